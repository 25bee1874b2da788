package ride

import (
	"errors"
	"fmt"
)

// ErrNotFound means the operation's target id does not exist in the tier
// that was queried. The coordinator uses it internally to drive the
// Local→Remote fallback and returns it to callers only when the id is
// absent from both tiers.
var ErrNotFound = errors.New("ride not found")

// ErrUnauthenticated means a remote operation was attempted with no valid
// principal. For migration purposes the coordinator treats it like a remote
// StorageFault (the pass fails and is retried later); it must never be
// collapsed into "the archive is empty".
var ErrUnauthenticated = errors.New("no authenticated principal")

// ErrMigrationInProgress is returned by ForceFullMigration when a pass is
// already running. Background passes no-op instead of surfacing this.
var ErrMigrationInProgress = errors.New("migration already in progress")

// StorageFault reports that a tier's underlying medium (disk or network
// transport) is unavailable or erroring. Always retryable later.
type StorageFault struct {
	Tier string // "local" or "remote"
	Err  error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("%s storage fault: %v", e.Tier, e.Err)
}

func (e *StorageFault) Unwrap() error { return e.Err }

// LocalFault wraps err as a local-tier StorageFault.
func LocalFault(err error) error { return &StorageFault{Tier: "local", Err: err} }

// RemoteFault wraps err as a remote-tier StorageFault.
func RemoteFault(err error) error { return &StorageFault{Tier: "remote", Err: err} }
