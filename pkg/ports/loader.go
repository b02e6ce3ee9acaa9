package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// LayoutLoader defines how the engine retrieves the initial elements of the canvas.
type LayoutLoader interface {
	// Load returns the top-level elements, with their nested fields.
	Load(ctx context.Context) ([]domain.Node, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying layout changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
