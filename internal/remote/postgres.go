// Package remote implements the archive tier on Postgres. Every operation
// is scoped to the authenticated principal's rows and bounded by a per-call
// timeout so a stalled network call cannot wedge the coordinator.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danmcgrath10/cyclora/internal/auth"
	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"
)

const rideColumns = `id, start_time, distance, duration, average_speed,
	max_speed, route_points, ai_summary, created_at, updated_at`

// Re-uploading an id that already exists upserts, which keeps migration
// passes idempotent when a prior local delete failed after upload.
const upsertRide = `
	INSERT INTO rides (id, owner_id, start_time, distance, duration,
		average_speed, max_speed, route_points, ai_summary, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		start_time = EXCLUDED.start_time,
		distance = EXCLUDED.distance,
		duration = EXCLUDED.duration,
		average_speed = EXCLUDED.average_speed,
		max_speed = EXCLUDED.max_speed,
		route_points = EXCLUDED.route_points,
		ai_summary = COALESCE(EXCLUDED.ai_summary, rides.ai_summary),
		updated_at = EXCLUDED.updated_at
	WHERE rides.owner_id = EXCLUDED.owner_id`

// PostgresStore implements ride.RemoteStore.
type PostgresStore struct {
	pool    *pgxpool.Pool
	auth    auth.Provider
	clock   ride.Clock
	timeout time.Duration
}

// NewPostgresStore connects to the archive database. clock may be nil, in
// which case the real clock is used.
func NewPostgresStore(ctx context.Context, url string, provider auth.Provider, timeout time.Duration, clock ride.Clock) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, ride.RemoteFault(fmt.Errorf("connecting to archive: %w", err))
	}

	if clock == nil {
		clock = ride.RealClock{}
	}

	return &PostgresStore{pool: pool, auth: provider, clock: clock, timeout: timeout}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostgresStore) Insert(ctx context.Context, r *model.Ride) error {
	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	args, err := upsertArgs(r, principal.UserID)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertRide, args...); err != nil {
		return ride.RemoteFault(fmt.Errorf("inserting ride: %w", err))
	}
	return nil
}

func (s *PostgresStore) InsertMany(ctx context.Context, rides []*model.Ride) error {
	if len(rides) == 0 {
		return nil
	}

	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// One transaction makes the batch all-or-nothing: a failed call
	// commits none of the rides.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ride.RemoteFault(fmt.Errorf("starting batch insert: %w", err))
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rides {
		args, err := upsertArgs(r, principal.UserID)
		if err != nil {
			return err
		}
		batch.Queue(upsertRide, args...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return ride.RemoteFault(fmt.Errorf("uploading batch of %d: %w", len(rides), err))
	}
	if err := tx.Commit(ctx); err != nil {
		return ride.RemoteFault(fmt.Errorf("committing batch: %w", err))
	}
	return nil
}

func (s *PostgresStore) GetPage(ctx context.Context, cursor *time.Time, pageSize int) (*ride.Page, error) {
	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rides WHERE owner_id = $1`,
		principal.UserID).Scan(&total)
	if err != nil {
		return nil, ride.RemoteFault(fmt.Errorf("counting archived rides: %w", err))
	}

	// Strict < so a page never repeats its boundary row; ties at the exact
	// cursor value are dropped, a documented pagination edge case.
	// Fetch one extra row to learn whether more remain.
	rows, err := s.pool.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE owner_id = $1 AND ($2::timestamptz IS NULL OR start_time < $2)
		ORDER BY start_time DESC
		LIMIT $3`,
		principal.UserID, cursor, pageSize+1)
	if err != nil {
		return nil, ride.RemoteFault(fmt.Errorf("querying archive page: %w", err))
	}
	defer rows.Close()

	var fetched []*model.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, ride.RemoteFault(fmt.Errorf("scanning archived ride: %w", err))
		}
		fetched = append(fetched, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ride.RemoteFault(fmt.Errorf("reading archive page: %w", err))
	}

	return buildPage(fetched, pageSize, total), nil
}

func (s *PostgresStore) UpdateSummary(ctx context.Context, id string, text string) error {
	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE rides SET ai_summary = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`,
		text, s.clock.Now(), id, principal.UserID)
	if err != nil {
		return ride.RemoteFault(fmt.Errorf("updating archived summary: %w", err))
	}
	// Another principal's ride looks exactly like a missing one.
	if tag.RowsAffected() == 0 {
		return ride.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rides WHERE id = $1 AND owner_id = $2`,
		id, principal.UserID)
	if err != nil {
		return ride.RemoteFault(fmt.Errorf("deleting archived ride: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ride.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.RideStats, error) {
	principal, err := s.auth.Principal(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats := &model.RideStats{}
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance), 0), COALESCE(SUM(duration), 0)
		FROM rides WHERE owner_id = $1`,
		principal.UserID).Scan(&stats.Count, &stats.TotalDistance, &stats.TotalDuration)
	if err != nil {
		return nil, ride.RemoteFault(fmt.Errorf("aggregating archived rides: %w", err))
	}
	return stats, nil
}

// buildPage assembles a page from the rows fetched with the one-extra-row
// probe: hasMore iff strictly more than pageSize rows matched, nextCursor
// is the last returned row's timestamp.
func buildPage(fetched []*model.Ride, pageSize int, total int) *ride.Page {
	page := &ride.Page{TotalCount: total}
	page.HasMore = len(fetched) > pageSize
	if page.HasMore {
		fetched = fetched[:pageSize]
		last := fetched[len(fetched)-1].Timestamp
		page.NextCursor = &last
	}
	page.Rides = fetched
	return page
}

func upsertArgs(r *model.Ride, ownerID string) ([]any, error) {
	var points []byte
	if len(r.RoutePoints) > 0 {
		data, err := json.Marshal(r.RoutePoints)
		if err != nil {
			return nil, fmt.Errorf("serializing route points: %w", err)
		}
		points = data
	}

	return []any{
		r.ID, ownerID, r.Timestamp, r.Distance, r.Duration, r.AverageSpeed,
		r.MaxSpeed, points, r.AISummary, r.CreatedAt, r.UpdatedAt,
	}, nil
}

func scanRide(rows pgx.Rows) (*model.Ride, error) {
	var (
		r       model.Ride
		points  []byte
		summary *string
	)
	err := rows.Scan(&r.ID, &r.Timestamp, &r.Distance, &r.Duration, &r.AverageSpeed,
		&r.MaxSpeed, &points, &summary, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.AISummary = summary
	if len(points) > 0 {
		// Same policy as the local tier: a corrupt blob only costs this
		// ride its route detail.
		if err := json.Unmarshal(points, &r.RoutePoints); err != nil {
			r.RoutePoints = nil
		}
	}

	return &r, nil
}

var _ ride.RemoteStore = (*PostgresStore)(nil)
