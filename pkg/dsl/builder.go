package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the canvas construction. Elements keep the order they were added in.
type Builder struct {
	elements []*NodeBuilder
}

// New creates a new canvas builder.
func New() *Builder {
	return &Builder{}
}

// Add creates a top-level element.
// If the element already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	return add(&b.elements, id, "")
}

// Nodes returns the elements built so far, without validating them.
func (b *Builder) Nodes() []domain.Node {
	return build(b.elements)
}

// Build validates the canvas and compiles it into a memory Loader.
func (b *Builder) Build() (*memory.Loader, error) {
	nodes := b.Nodes()
	if err := domain.ValidateTree(domain.Node{ID: domain.RootID, Fields: nodes}); err != nil {
		return nil, fmt.Errorf("failed to build canvas: %w", err)
	}
	return memory.NewLoader(nodes...), nil
}

func add(list *[]*NodeBuilder, id, parentID string) *NodeBuilder {
	for _, nb := range *list {
		if nb.node.ID == id {
			return nb
		}
	}
	nb := &NodeBuilder{node: domain.Node{ID: id, ParentNodeID: parentID}}
	*list = append(*list, nb)
	return nb
}

func build(list []*NodeBuilder) []domain.Node {
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.Node, len(list))
	for i, nb := range list {
		out[i] = nb.Build()
	}
	return out
}
