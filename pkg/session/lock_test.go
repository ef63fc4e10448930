package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/augeas"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(WithDefaults(augeas.WithNoLoad(), augeas.WithRoot(t.TempDir())))
	ctx := context.Background()
	count := 500

	for i := 0; i < count; i++ {
		name := fmt.Sprintf("session-%d", i)
		_ = mgr.Open(ctx, name)
		_ = mgr.WithLock(ctx, name, func(*augeas.Session) error { return nil })
		_ = mgr.Close(ctx, name)
	}

	lockCount := len(mgr.locks)
	t.Logf("Sessions Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Close", lockCount)
	}
	if n := len(mgr.sessions); n != 0 {
		t.Errorf("%d sessions still registered", n)
	}
}
