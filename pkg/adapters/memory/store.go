package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.SnapshotNode
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.SnapshotNode),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, name string, snapshot domain.SnapshotNode) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := domain.NewSnapshot(snapshot.Node())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, name string) (domain.SnapshotNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[name]
	if !ok {
		return domain.SnapshotNode{}, domain.ErrSnapshotNotFound
	}

	// Copy on read so callers can't mutate the stored snapshot
	return domain.NewSnapshot(snap.Node()), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the saved snapshot names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
