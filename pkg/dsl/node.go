package dsl

import "github.com/aretw0/arbor/pkg/domain"

// NodeBuilder provides a fluent API for configuring an element.
type NodeBuilder struct {
	node     domain.Node
	children []*NodeBuilder
}

// Type sets the element type, usually a palette template type.
func (n *NodeBuilder) Type(t string) *NodeBuilder {
	n.node.Type = t
	return n
}

// Name sets the display name.
func (n *NodeBuilder) Name(name string) *NodeBuilder {
	n.node.Name = name
	return n
}

// In places the element in the given container of its parent.
func (n *NodeBuilder) In(containerID string) *NodeBuilder {
	n.node.ContainerID = containerID
	return n
}

// Set adds a payload value.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	if n.node.Payload == nil {
		n.node.Payload = make(map[string]any)
	}
	n.node.Payload[key] = value
	return n
}

// Payload merges values into the payload.
func (n *NodeBuilder) Payload(values map[string]any) *NodeBuilder {
	for k, v := range values {
		n.Set(k, v)
	}
	return n
}

// Child creates a nested element, or returns the existing one with the same id.
// The child's parent node is set to this element.
func (n *NodeBuilder) Child(id string) *NodeBuilder {
	return add(&n.children, id, n.node.ID)
}

// Build returns the underlying domain.Node with its subtree.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	out := n.node
	out.Payload = domain.ClonePayload(n.node.Payload)
	out.Fields = build(n.children)
	return out
}
