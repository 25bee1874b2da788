package ride

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
)

const (
	// RecencyWindow is the tier boundary: a ride stays local while
	// now - timestamp <= RecencyWindow, inclusive at the boundary.
	RecencyWindow = 24 * time.Hour

	// MigrateDelay is the post-save debounce before a background
	// migration pass. Keeps the hot save path free of network round trips
	// and coalesces rapid saves into one attempt.
	MigrateDelay = 5 * time.Second

	// DefaultPageSize is the archive page size when the caller passes a
	// non-positive size.
	DefaultPageSize = 10
)

// Service is the hybrid coordinator. It owns the tier-boundary policy,
// migration scheduling and execution, unified pagination, unified
// delete/update, and the integrity check. Tier membership is always
// recomputed from the clock, never cached; the migrating flag is the only
// synchronization primitive and it protects the migration critical section
// only.
type Service struct {
	local     LocalStore
	remote    RemoteStore
	scheduler Scheduler
	logger    Logger
	clock     Clock

	migrating atomic.Bool
}

// NewService creates a Service with the provided dependencies.
func NewService(local LocalStore, remote RemoteStore, scheduler Scheduler, logger Logger, clock Clock) *Service {
	return &Service{
		local:     local,
		remote:    remote,
		scheduler: scheduler,
		logger:    logger,
		clock:     clock,
	}
}

// Initialize prepares the local store and runs one best-effort migration
// pass. A failed pass is logged and swallowed: local-only operation must
// always be available.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.local.Init(ctx); err != nil {
		return fmt.Errorf("initializing local store: %w", err)
	}

	if res := s.Migrate(ctx); res.Outcome == MigrationFailed {
		s.logger.Warn("initial migration pass failed", "error", res.Err)
	}

	return nil
}

// Save writes the draft to the local tier and returns the new id. A
// migration pass is scheduled after MigrateDelay, fire-and-forget; its
// failure never reaches this caller. Timers from successive saves are not
// coalesced — the extra passes no-op against the migrating flag.
func (s *Service) Save(ctx context.Context, draft model.RideDraft) (string, error) {
	id, err := s.local.Insert(ctx, draft)
	if err != nil {
		return "", fmt.Errorf("saving ride: %w", err)
	}

	s.logger.Debug("ride saved", "id", id)

	s.scheduler.AfterFunc(MigrateDelay, func() {
		if res := s.Migrate(context.Background()); res.Outcome == MigrationFailed {
			s.logger.Warn("deferred migration pass failed", "error", res.Err)
		}
	})

	return id, nil
}

// Recent returns local rides still inside the recency window, newest first.
func (s *Service) Recent(ctx context.Context) ([]*model.Ride, error) {
	return s.localByAge(ctx, true)
}

// Old returns local rides past the recency window, newest first. This is
// the migration candidate set.
func (s *Service) Old(ctx context.Context) ([]*model.Ride, error) {
	return s.localByAge(ctx, false)
}

func (s *Service) localByAge(ctx context.Context, recent bool) ([]*model.Ride, error) {
	all, err := s.local.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading local rides: %w", err)
	}

	cutoff := s.clock.Now().Add(-RecencyWindow)

	out := make([]*model.Ride, 0, len(all))
	for _, r := range all {
		// A ride exactly at the boundary is still recent.
		isRecent := !r.Timestamp.Before(cutoff)
		if isRecent == recent {
			out = append(out, r)
		}
	}
	return out, nil
}

// HybridPage is one unified view across both tiers. The local tier is
// never paginated: the full recent set rides along with every archive
// page, bounded by the recency window. TotalCount is recomputed per call
// and may be momentarily stale if rides cross the tier boundary between
// calls.
type HybridPage struct {
	LocalRides    []*model.Ride
	RemoteRides   []*model.Ride
	HasMoreRemote bool
	NextCursor    *time.Time
	TotalCount    int
}

// PaginatedRides merges the full recent local set with one archive page.
// Remote failures propagate so the facade can decide to present a
// local-only view; the coordinator never fabricates an empty page.
func (s *Service) PaginatedRides(ctx context.Context, cursor *time.Time, pageSize int) (*HybridPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	recent, err := s.Recent(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.remote.GetPage(ctx, cursor, pageSize)
	if err != nil {
		return nil, fmt.Errorf("reading archive page: %w", err)
	}

	return &HybridPage{
		LocalRides:    recent,
		RemoteRides:   page.Rides,
		HasMoreRemote: page.HasMore,
		NextCursor:    page.NextCursor,
		TotalCount:    len(recent) + page.TotalCount,
	}, nil
}

// DeleteRide removes the ride from whichever tier holds it. The local
// delete is idempotent and proves nothing about where the record was, so
// the remote delete is attempted unconditionally. An id present in neither
// tier still deletes successfully; only genuine faults surface.
func (s *Service) DeleteRide(ctx context.Context, id string) error {
	var localErr, remoteErr error

	if err := s.local.Delete(ctx, id); err != nil {
		localErr = fmt.Errorf("deleting local ride: %w", err)
	}

	if err := s.remote.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		remoteErr = fmt.Errorf("deleting archived ride: %w", err)
	}

	return errors.Join(localErr, remoteErr)
}

// UpdateSummary attaches the descriptive summary to the ride in whichever
// tier currently holds it, trying local first. A target missing from both
// tiers is a genuine caller error and surfaces as ErrNotFound.
func (s *Service) UpdateSummary(ctx context.Context, id string, text string) error {
	err := s.local.UpdateSummary(ctx, id, text)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("updating local summary: %w", err)
	}

	err = s.remote.UpdateSummary(ctx, id, text)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("ride %s in neither tier: %w", id, ErrNotFound)
	}
	return fmt.Errorf("updating archived summary: %w", err)
}

// IntegrityReport is a read-only diagnostic aggregate across both tiers.
type IntegrityReport struct {
	LocalCount    int64
	RemoteCount   int64
	OldLocalCount int64
}

// CheckIntegrity never fails: an unreadable tier degrades to a zero count.
// This is the one place an unauthenticated or offline remote is allowed to
// report as zero.
func (s *Service) CheckIntegrity(ctx context.Context) *IntegrityReport {
	report := &IntegrityReport{}

	if stats, err := s.local.Stats(ctx); err != nil {
		s.logger.Warn("integrity check: local stats unavailable", "error", err)
	} else {
		report.LocalCount = stats.Count
	}

	if old, err := s.Old(ctx); err != nil {
		s.logger.Warn("integrity check: local rides unavailable", "error", err)
	} else {
		report.OldLocalCount = int64(len(old))
	}

	if stats, err := s.remote.Stats(ctx); err != nil {
		s.logger.Warn("integrity check: remote stats unavailable", "error", err)
	} else {
		report.RemoteCount = stats.Count
	}

	return report
}
