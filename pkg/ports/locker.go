package ports

import (
	"context"
	"time"
)

// UnlockFunc gives a lock back. It must be called exactly once per
// successful Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes edits of one configuration tree between
// processes that open the same root. Within a process session.Manager
// already holds a mutex per session name; the locker extends that across
// hosts.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl if the holder dies without unlocking.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
