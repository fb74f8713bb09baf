package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/codeshell/pkg/domain"
)

// Store implements ports.WorkspaceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Workspace
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Workspace),
	}
}

// Save keeps a snapshot of the workspace.
// Trees are immutable and shared; console and editor maps are copied.
func (s *Store) Save(ctx context.Context, ws *domain.Workspace) error {
	copied := ws.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ws.ID] = copied
	return nil
}

// Load retrieves a copy of the workspace so the caller can't mutate store state directly by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.data[id]
	if !ok {
		return nil, domain.ErrWorkspaceNotFound
	}
	return ws.Snapshot(), nil
}

// Delete removes the workspace.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored workspace IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
