package out

import (
	"context"
	"time"
)

// Lock is a held lease. Release is idempotent; calling it twice, or after
// the TTL has already expired, is not an error.
type Lock interface {
	Release(ctx context.Context) error
}

// LockManager hands out named mutual-exclusion leases with a TTL. Acquire
// never blocks waiting for contention to clear and never throws on
// contention: a lock that is already held returns (nil, false), and the
// finalize caller's contract is to peek the re-read state and skip rather
// than treat contention as a fatal error.
type LockManager interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Lock, bool, error)
}
