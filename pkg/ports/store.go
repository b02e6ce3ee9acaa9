package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// SnapshotStore defines the interface for persisting tree snapshots under a name.
// This allows a layout to be saved, listed and restored across restarts.
type SnapshotStore interface {
	// Save persists the snapshot under name, replacing any previous one.
	Save(ctx context.Context, name string, snapshot domain.SnapshotNode) error

	// Load retrieves the snapshot saved under name.
	// Returns domain.ErrSnapshotNotFound if there is none.
	Load(ctx context.Context, name string) (domain.SnapshotNode, error)

	// Delete removes the snapshot saved under name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of the saved snapshots.
	List(ctx context.Context) ([]string, error)
}
