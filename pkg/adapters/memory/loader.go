package memory

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Loader implements ports.LayoutLoader over a fixed set of elements.
type Loader struct {
	elements []domain.Node
}

// NewLoader creates a loader returning copies of elements.
func NewLoader(elements ...domain.Node) *Loader {
	return &Loader{elements: elements}
}

// Load returns a deep copy of the configured elements.
func (l *Loader) Load(ctx context.Context) ([]domain.Node, error) {
	out := make([]domain.Node, len(l.elements))
	for i, el := range l.elements {
		out[i] = el.Clone()
	}
	return out, nil
}
