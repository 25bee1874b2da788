package ride

import (
	"context"
	"fmt"
)

// MigrationOutcome classifies one migration pass.
type MigrationOutcome int

const (
	// MigrationCompleted means the pass ran to the end, even if there was
	// nothing to move.
	MigrationCompleted MigrationOutcome = iota

	// MigrationSkipped means another pass already held the flag.
	MigrationSkipped

	// MigrationFailed means the pass aborted; Err carries the reason and
	// nothing was removed from the local tier.
	MigrationFailed
)

// MigrationResult reports what one pass did. Callers choose per-call
// whether to surface or suppress a failure.
type MigrationResult struct {
	Outcome  MigrationOutcome
	Uploaded int
	Deleted  int
	Err      error
}

// Migrate runs one upload-then-delete pass over the rides that have aged
// past the recency window. At most one pass runs at a time; a concurrent
// caller gets MigrationSkipped with no side effects. Rides are never
// deleted locally before the batch upload has succeeded, so an upload
// failure leaves the local tier untouched. A per-ride delete failure after
// a successful upload is tolerated: the ride exists in both tiers until
// the next pass re-uploads (an upsert) and retries the delete.
func (s *Service) Migrate(ctx context.Context) MigrationResult {
	if !s.migrating.CompareAndSwap(false, true) {
		return MigrationResult{Outcome: MigrationSkipped}
	}
	defer s.migrating.Store(false)

	old, err := s.Old(ctx)
	if err != nil {
		return MigrationResult{Outcome: MigrationFailed, Err: err}
	}
	if len(old) == 0 {
		return MigrationResult{Outcome: MigrationCompleted}
	}

	if err := s.remote.InsertMany(ctx, old); err != nil {
		return MigrationResult{
			Outcome: MigrationFailed,
			Err:     fmt.Errorf("uploading %d rides: %w", len(old), err),
		}
	}

	deleted := 0
	for _, r := range old {
		if err := s.local.Delete(ctx, r.ID); err != nil {
			s.logger.Warn("ride uploaded but local delete failed, duplicate until next pass",
				"id", r.ID, "error", err)
			continue
		}
		deleted++
	}

	s.logger.Info("migration pass complete", "uploaded", len(old), "deleted", deleted)
	return MigrationResult{Outcome: MigrationCompleted, Uploaded: len(old), Deleted: deleted}
}

// ForceFullMigration uploads every local ride to the archive, then removes
// only the ones that are old at post-upload time, so nothing is stranded
// if the clock advanced mid-operation and recents stay readable locally
// even though they now also exist remotely. This is the user-initiated
// "sync now" action: contention surfaces as ErrMigrationInProgress rather
// than a silent no-op, and failures propagate. Returns the number of rides
// uploaded.
func (s *Service) ForceFullMigration(ctx context.Context) (int, error) {
	if !s.migrating.CompareAndSwap(false, true) {
		return 0, ErrMigrationInProgress
	}
	defer s.migrating.Store(false)

	all, err := s.local.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading local rides: %w", err)
	}
	if len(all) == 0 {
		return 0, nil
	}

	if err := s.remote.InsertMany(ctx, all); err != nil {
		return 0, fmt.Errorf("uploading %d rides: %w", len(all), err)
	}

	cutoff := s.clock.Now().Add(-RecencyWindow)
	for _, r := range all {
		if !r.Timestamp.Before(cutoff) {
			continue // still recent, keep the local copy
		}
		if err := s.local.Delete(ctx, r.ID); err != nil {
			s.logger.Warn("ride uploaded but local delete failed, duplicate until next pass",
				"id", r.ID, "error", err)
		}
	}

	s.logger.Info("forced migration complete", "uploaded", len(all))
	return len(all), nil
}
