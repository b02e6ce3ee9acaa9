package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeEngine defines the operations exposed to the outer adapters (HTTP, MCP).
// Implementations serialize concurrent callers.
type TreeEngine interface {
	// Tree returns a copy of the full tree.
	Tree() domain.Node

	// Snapshot returns the serialization-safe form of the tree and its revision.
	Snapshot() (domain.SnapshotNode, uint64)

	// Element returns the sanitized element with the given id.
	Element(id string) (*domain.Element, error)

	// Reconcile submits the full child list of a container.
	Reconcile(ctx context.Context, containerID, parentNodeID string, children []domain.Node) error

	// Remove deletes an element, through its owning container when it has one.
	Remove(ctx context.Context, id string) error

	// Update patches the allow-listed content of an element.
	Update(ctx context.Context, id string, patch map[string]any) (*domain.Element, error)

	// FlushAll clears the whole tree.
	FlushAll(ctx context.Context) error

	// SaveSnapshot persists the current tree under name.
	SaveSnapshot(ctx context.Context, name string) error

	// LoadSnapshot replaces the tree with the snapshot saved under name.
	LoadSnapshot(ctx context.Context, name string) error

	// ListSnapshots returns the saved snapshot names.
	ListSnapshots(ctx context.Context) ([]string, error)

	// Watch streams bus events until ctx is done.
	Watch(ctx context.Context) <-chan domain.Event
}
