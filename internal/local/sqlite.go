package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danmcgrath10/cyclora/internal/local/migrations"
	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements ride.LocalStore on a SQLite database. Route
// points are serialized as a JSON blob in the row; a blob that fails to
// parse on read is treated as absent rather than failing the whole fetch.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock ride.Clock
	idgen ride.IDGenerator
}

// NewSQLiteStore opens a SQLite store at path (":memory:" for in-memory).
// clock and idgen may be nil, in which case real implementations are used.
func NewSQLiteStore(path string, clock ride.Clock, idgen ride.IDGenerator) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if clock == nil {
		clock = ride.RealClock{}
	}
	if idgen == nil {
		idgen = ride.UUIDGenerator{}
	}

	return &SQLiteStore{db: db, path: path, clock: clock, idgen: idgen}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ride.LocalFault(fmt.Errorf("failed to open database: %w", err))
	}

	// Wait for locks instead of failing when a deferred migration pass
	// overlaps a read.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, ride.LocalFault(fmt.Errorf("failed to set busy timeout: %w", err))
	}

	return db, nil
}

// Init creates the schema if absent. Safe to call multiple times.
func (s *SQLiteStore) Init(context.Context) error {
	if err := migrations.MigrateUp(s.db); err != nil {
		return ride.LocalFault(fmt.Errorf("migrating schema: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, draft model.RideDraft) (string, error) {
	id := s.idgen.New()
	now := s.clock.Now()

	var points sql.NullString
	if len(draft.RoutePoints) > 0 {
		data, err := json.Marshal(draft.RoutePoints)
		if err != nil {
			return "", fmt.Errorf("serializing route points: %w", err)
		}
		points = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rides (id, start_time, distance, duration, average_speed,
			max_speed, route_points, ai_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		id, draft.Timestamp, draft.Distance, draft.Duration, draft.AverageSpeed,
		nullFloat(draft.MaxSpeed), points, now, now,
	)
	if err != nil {
		return "", ride.LocalFault(fmt.Errorf("inserting ride: %w", err))
	}

	return id, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]*model.Ride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_time, distance, duration, average_speed,
			max_speed, route_points, ai_summary, created_at, updated_at
		FROM rides
		ORDER BY start_time DESC`)
	if err != nil {
		return nil, ride.LocalFault(fmt.Errorf("querying rides: %w", err))
	}
	defer rows.Close()

	var out []*model.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, ride.LocalFault(fmt.Errorf("scanning ride: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ride.LocalFault(fmt.Errorf("reading rides: %w", err))
	}

	return out, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Ride, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, distance, duration, average_speed,
			max_speed, route_points, ai_summary, created_at, updated_at
		FROM rides
		WHERE id = ?`, id)

	r, err := scanRide(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ride.ErrNotFound
		}
		return nil, ride.LocalFault(fmt.Errorf("finding ride %s: %w", id, err))
	}
	return r, nil
}

func (s *SQLiteStore) UpdateSummary(ctx context.Context, id string, text string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rides SET ai_summary = ?, updated_at = ? WHERE id = ?`,
		text, s.clock.Now(), id)
	if err != nil {
		return ride.LocalFault(fmt.Errorf("updating summary: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ride.LocalFault(fmt.Errorf("updating summary: %w", err))
	}
	if n == 0 {
		return ride.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	// Deleting a non-existent id is not an error.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rides WHERE id = ?`, id); err != nil {
		return ride.LocalFault(fmt.Errorf("deleting ride %s: %w", id, err))
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.RideStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance), 0), COALESCE(SUM(duration), 0)
		FROM rides`)

	stats := &model.RideStats{}
	if err := row.Scan(&stats.Count, &stats.TotalDistance, &stats.TotalDuration); err != nil {
		return nil, ride.LocalFault(fmt.Errorf("aggregating rides: %w", err))
	}
	return stats, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(sc scanner) (*model.Ride, error) {
	var (
		r        model.Ride
		maxSpeed sql.NullFloat64
		points   sql.NullString
		summary  sql.NullString
	)
	err := sc.Scan(&r.ID, &r.Timestamp, &r.Distance, &r.Duration, &r.AverageSpeed,
		&maxSpeed, &points, &summary, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if maxSpeed.Valid {
		r.MaxSpeed = &maxSpeed.Float64
	}
	if summary.Valid {
		r.AISummary = &summary.String
	}
	if points.Valid {
		// A corrupt blob only costs this ride its route detail.
		if err := json.Unmarshal([]byte(points.String), &r.RoutePoints); err != nil {
			r.RoutePoints = nil
		}
	}

	return &r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Compile-time check that SQLiteStore implements ride.LocalStore.
var _ ride.LocalStore = (*SQLiteStore)(nil)
