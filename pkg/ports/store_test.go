package ports_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// MockStore is an in-memory implementation of SnapshotStore for testing purposes.
// It round-trips through JSON to behave like a serializing backend.
type MockStore struct {
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string][]byte),
	}
}

func (m *MockStore) Save(ctx context.Context, name string, snapshot domain.SnapshotNode) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	m.data[name] = raw
	return nil
}

func (m *MockStore) Load(ctx context.Context, name string) (domain.SnapshotNode, error) {
	raw, ok := m.data[name]
	if !ok {
		return domain.SnapshotNode{}, domain.ErrSnapshotNotFound
	}
	var snap domain.SnapshotNode
	err := json.Unmarshal(raw, &snap)
	return snap, err
}

func (m *MockStore) Delete(ctx context.Context, name string) error {
	delete(m.data, name)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	return names, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewMockStore())
}
