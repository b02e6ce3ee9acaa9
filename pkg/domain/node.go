package domain

// RootID is the reserved id of the tree root.
const RootID = "root"

// Node is one entry of the hierarchical tree.
// ContainerID and ParentNodeID are navigation hints, not ownership:
// they tell which container's slice of Fields a node belongs to when several
// containers share the same parent node.
type Node struct {
	ID           string         `json:"id" yaml:"id" mapstructure:"id"`
	Type         string         `json:"type" yaml:"type" mapstructure:"type"`
	Name         string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Payload      map[string]any `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
	ContainerID  string         `json:"containerID,omitempty" yaml:"containerID,omitempty" mapstructure:"containerID"`
	ParentNodeID string         `json:"parentNodeID,omitempty" yaml:"parentNodeID,omitempty" mapstructure:"parentNodeID"`

	// Fields holds the ordered children. Order is rendering order and drop-index addressing.
	// A nil slice on a submitted node means "keep whatever subtree the tree already has".
	Fields []Node `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return len(n.Fields) == 0
}

// Clone returns a deep copy of the node and its subtree.
func (n Node) Clone() Node {
	out := n
	out.Payload = ClonePayload(n.Payload)
	if n.Fields != nil {
		out.Fields = make([]Node, len(n.Fields))
		for i, child := range n.Fields {
			out.Fields[i] = child.Clone()
		}
	}
	return out
}

// Find walks the subtree depth-first and returns the first node with the given id.
func (n Node) Find(id string) (Node, bool) {
	if n.ID == id {
		return n, true
	}
	for _, child := range n.Fields {
		if found, ok := child.Find(id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// IDs returns the ids of the direct children, in order.
func (n Node) IDs() []string {
	ids := make([]string, len(n.Fields))
	for i, child := range n.Fields {
		ids[i] = child.ID
	}
	return ids
}

// Count returns the number of nodes in the subtree, the node itself included.
func (n Node) Count() int {
	total := 1
	for _, child := range n.Fields {
		total += child.Count()
	}
	return total
}

// ClonePayload deep-copies nested maps and slices of a payload.
func ClonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return ClonePayload(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
