package domain

// Element is the sanitized projection of a Node: identity and content only.
// It is what external code receives from lookups and elementUpdate notifications.
type Element struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Name         string         `json:"name,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	ContainerID  string         `json:"containerID,omitempty"`
	ParentNodeID string         `json:"parentNodeID,omitempty"`
}

// Sanitize projects a node onto the whitelisted Element fields.
// Children are dropped and function values inside the payload are stripped.
func Sanitize(n Node) *Element {
	return &Element{
		ID:           n.ID,
		Type:         n.Type,
		Name:         n.Name,
		Payload:      StripFuncs(n.Payload),
		ContainerID:  n.ContainerID,
		ParentNodeID: n.ParentNodeID,
	}
}

// Node converts the element back into a leaf node.
func (e Element) Node() Node {
	return Node{
		ID:           e.ID,
		Type:         e.Type,
		Name:         e.Name,
		Payload:      ClonePayload(e.Payload),
		ContainerID:  e.ContainerID,
		ParentNodeID: e.ParentNodeID,
	}
}
