package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates workspace access, ensuring a single logical mutator per workspace.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.WorkspaceStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration

	logger *slog.Logger
}

// DefaultLockTTL bounds how long a crashed replica can hold a distributed workspace lock.
const DefaultLockTTL = 30 * time.Second

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLocker configures a distributed locker for the Manager.
// The in-process lock is still taken first, so one replica sends one request per workspace to the locker.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// NewManager creates a new workspace Manager over the given store.
func NewManager(store ports.WorkspaceStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		logger:  logging.NewNop(), // Default to no-op
		lockTTL: DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves an existing workspace from the store.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Workspace, error) {
	var ws *domain.Workspace
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		ws, err = m.store.Load(ctx, id)
		return err
	})
	return ws, err
}

// LoadOrCreate tries to load a workspace. If not found, it stores the one built by create.
func (m *Manager) LoadOrCreate(ctx context.Context, id string, create func(id string) *domain.Workspace) (*domain.Workspace, error) {
	var ws *domain.Workspace
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		ws, err = m.store.Load(ctx, id)
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrWorkspaceNotFound) {
			return fmt.Errorf("failed to check workspace existence: %w", err)
		}

		ws = create(id)
		ws.ID = id

		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, ws); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		m.logger.Debug("Workspace created", "workspace_id", id)
		return nil
	})
	return ws, err
}

// Update loads the workspace, applies fn and saves the result, all under the workspace lock.
// When fn fails nothing is saved.
func (m *Manager) Update(ctx context.Context, id string, fn func(context.Context, *domain.Workspace) (*domain.Workspace, error)) (*domain.Workspace, error) {
	var out *domain.Workspace
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ws, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}

		next, err := fn(ctx, ws)
		if err != nil {
			return err
		}
		next.Revision = ws.Revision + 1
		if err := m.store.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

// Save stores the workspace.
func (m *Manager) Save(ctx context.Context, ws *domain.Workspace) error {
	return m.WithLock(ctx, ws.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, ws)
	})
}

// Delete removes the workspace from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying workspace store.
func (m *Manager) Store() ports.WorkspaceStore {
	return m.store
}

// WithLock executes a function while holding the lock for the workspace.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may be done by now; the lock must still be released.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"workspace_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
