package importing

import (
	"context"
	"time"
)

// ImportLock is the singleton progress record that gives the synchronous
// import page best-effort mutual exclusion. Two tabs racing on acquire is
// tolerated; the lock exists to stop accidental concurrent runs, not to
// coordinate a cluster.
type ImportLock struct {
	Owner       string    `json:"owner"`
	Filename    string    `json:"filename"`
	StartedAt   time.Time `json:"started_at"`
	Counters    Counters  `json:"counters"`
	TotalRows   int       `json:"total_rows"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// LockStore persists the singleton import lock.
type LockStore interface {
	// Acquire stores the lock only when absent. Returns false when a lock
	// is already held.
	Acquire(ctx context.Context, lock *ImportLock, ttl time.Duration) (bool, error)
	// Refresh overwrites the lock payload, keeping the TTL alive.
	Refresh(ctx context.Context, lock *ImportLock, ttl time.Duration) error
	// Get returns the current lock, or nil when none is held.
	Get(ctx context.Context) (*ImportLock, error)
	// Release deletes the lock unconditionally.
	Release(ctx context.Context) error
}
