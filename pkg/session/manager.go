package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/logging"
	"github.com/aretw0/augeas/pkg/ports"
)

var (
	// ErrSessionNotFound is returned for a name that has no open session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned by Open for a name already in use.
	ErrSessionExists = errors.New("session already open")
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out named sessions and serializes access to each one.
// A Session is not safe for concurrent use; every call through WithLock
// holds that session's lock, and the distributed lock when one is set.
// Lock entries are reference counted and dropped when unused.
type Manager struct {
	mu       sync.Mutex
	locks    map[string]*lockEntry
	sessions map[string]*augeas.Session

	defaults []augeas.Option
	locker   ports.DistributedLocker
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDefaults sets session options applied before the ones passed to Open.
func WithDefaults(opts ...augeas.Option) Option {
	return func(m *Manager) {
		m.defaults = append(m.defaults, opts...)
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*augeas.Session),
		ttl:      DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

func (m *Manager) lookup(name string) (*augeas.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[name]
	return s, ok
}

// Open creates a session and registers it under name.
func (m *Manager) Open(ctx context.Context, name string, opts ...augeas.Option) error {
	return m.locked(ctx, name, func(context.Context) error {
		if _, ok := m.lookup(name); ok {
			return fmt.Errorf("%w: %s", ErrSessionExists, name)
		}
		all := append(slices.Clone(m.defaults), opts...)
		s, err := augeas.Create(all...)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.sessions[name] = s
		m.mu.Unlock()
		m.logger.Debug("session opened", "session", name)
		return nil
	})
}

// Adopt registers an already open session under name. The Manager closes
// it from then on.
func (m *Manager) Adopt(ctx context.Context, name string, s *augeas.Session) error {
	return m.locked(ctx, name, func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.sessions[name]; ok {
			return fmt.Errorf("%w: %s", ErrSessionExists, name)
		}
		m.sessions[name] = s
		return nil
	})
}

// WithLock runs fn on the named session while holding its lock.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(*augeas.Session) error) error {
	return m.locked(ctx, name, func(context.Context) error {
		s, ok := m.lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
		}
		return fn(s)
	})
}

// Close closes the named session and forgets it.
func (m *Manager) Close(ctx context.Context, name string) error {
	return m.locked(ctx, name, func(context.Context) error {
		m.mu.Lock()
		s, ok := m.sessions[name]
		delete(m.sessions, name)
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
		}
		m.logger.Debug("session closed", "session", name)
		return s.Close()
	})
}

// CloseAll closes every session. It keeps going past failures and returns
// them joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, name := range m.List() {
		if err := m.Close(ctx, name); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// List returns the names of the open sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *Manager) locked(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
