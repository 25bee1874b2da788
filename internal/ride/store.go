package ride

import (
	"context"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
)

// LocalStore is the fast on-device tier holding recent rides.
// Implementations are owned exclusively by the coordinator; no other
// component writes this store directly.
type LocalStore interface {
	// Init creates the schema if absent. Idempotent; must be called (and
	// awaited) at least once before any other operation.
	Init(ctx context.Context) error

	// Insert assigns a fresh id, persists the draft, and returns the id.
	Insert(ctx context.Context, draft model.RideDraft) (string, error)

	// GetAll returns every local ride ordered by timestamp descending.
	// A corrupt route-point blob on one row must not fail the fetch: that
	// row is returned with RoutePoints nil.
	GetAll(ctx context.Context) ([]*model.Ride, error)

	// GetByID returns the ride or ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Ride, error)

	// UpdateSummary sets the ai summary. Returns ErrNotFound if the id is
	// absent; a silent no-op is not acceptable.
	UpdateSummary(ctx context.Context, id string, text string) error

	// Delete removes the ride. Deleting a non-existent id is not an error.
	Delete(ctx context.Context, id string) error

	// Stats aggregates over all local rows.
	Stats(ctx context.Context) (*model.RideStats, error)

	// Close releases the underlying store.
	Close() error
}

// Page is one slice of the archive tier, newest first.
type Page struct {
	Rides []*model.Ride

	// HasMore is true iff strictly more than the requested page size of
	// rows matched the query.
	HasMore bool

	// NextCursor is the timestamp of the last row actually returned, nil
	// when there are no further pages.
	NextCursor *time.Time

	// TotalCount is the principal's total archived ride count, not the
	// size of this page.
	TotalCount int
}

// RemoteStore is the networked multi-tenant archive tier. Every operation
// is scoped to the current authenticated principal and fails with
// ErrUnauthenticated when none can be resolved. Implementations apply a
// bounded per-call timeout so a stalled transport cannot hold the
// coordinator's migration flag indefinitely.
type RemoteStore interface {
	// Insert stores a single ride under the current principal.
	Insert(ctx context.Context, r *model.Ride) error

	// InsertMany stores a batch atomically: if the call fails, none of the
	// rides are considered committed. Re-inserting an id that already
	// exists upserts, which keeps migration passes idempotent when a prior
	// local delete failed after a successful upload.
	InsertMany(ctx context.Context, rides []*model.Ride) error

	// GetPage returns rides strictly older than cursor (all rides when
	// cursor is nil), timestamp descending, at most pageSize of them.
	GetPage(ctx context.Context, cursor *time.Time, pageSize int) (*Page, error)

	// UpdateSummary sets the ai summary on the principal's ride. Another
	// principal's ride behaves as ErrNotFound.
	UpdateSummary(ctx context.Context, id string, text string) error

	// Delete removes the principal's ride. Idempotent.
	Delete(ctx context.Context, id string) error

	// Stats aggregates over the principal's archived rides.
	Stats(ctx context.Context) (*model.RideStats, error)
}
