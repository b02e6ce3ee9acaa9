package tree

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// find locates the first node with the given id. Each level is scanned before
// descending into the children of its nodes, in order.
func (s *Store) find(id string) (handle, bool) {
	return s.findIn([]handle{s.root}, id)
}

func (s *Store) findIn(level []handle, id string) (handle, bool) {
	for _, h := range level {
		if s.slots[h].node.ID == id {
			return h, true
		}
	}
	for _, h := range level {
		if children := s.slots[h].children; len(children) > 0 {
			if found, ok := s.findIn(children, id); ok {
				return found, true
			}
		}
	}
	return noHandle, false
}

// lookupElement finds the parent node and the child elementID inside it.
// A child matches when its ContainerID equals containerID; an empty containerID,
// or a child without one, matches any container.
func (s *Store) lookupElement(elementID, containerID, parentNodeID string) (parent, child handle, ok bool) {
	parent, ok = s.find(parentNodeID)
	if !ok {
		return noHandle, noHandle, false
	}
	for _, c := range s.slots[parent].children {
		n := s.slots[c].node
		if n.ID != elementID {
			continue
		}
		if containerID == "" || n.ContainerID == "" || n.ContainerID == containerID {
			return parent, c, true
		}
	}
	return parent, noHandle, false
}

// GetElement returns the sanitized element, or nil when it cannot be located.
// Elements are matched as in RemoveElement.
func (s *Store) GetElement(elementID, containerID, parentNodeID string) *domain.Element {
	_, c, ok := s.lookupElement(elementID, containerID, parentNodeID)
	if !ok {
		s.logger.Warn("get element: not found",
			"element_id", elementID,
			"container_id", containerID,
			"parent_node_id", parentNodeID,
		)
		return nil
	}
	return domain.Sanitize(s.nodeOf(c))
}

// GetElementParent returns the sanitized node hosting containerID, or nil.
func (s *Store) GetElementParent(containerID, parentNodeID string) *domain.Element {
	h, ok := s.find(parentNodeID)
	if !ok {
		s.logger.Warn("get element parent: not found",
			"container_id", containerID,
			"parent_node_id", parentNodeID,
		)
		return nil
	}
	return domain.Sanitize(s.nodeOf(h))
}

// Node returns a deep copy of the first node with the given id and its subtree.
func (s *Store) Node(id string) (domain.Node, bool) {
	h, ok := s.find(id)
	if !ok {
		return domain.Node{}, false
	}
	return s.export(h), true
}

// Locate returns the container and parent node of elementID, for callers that only know the id.
func (s *Store) Locate(elementID string) (containerID, parentNodeID string, ok bool) {
	h, ok := s.find(elementID)
	if !ok || h == s.root {
		return "", "", false
	}
	parent := s.slots[h].parent
	return s.slots[h].node.ContainerID, s.slots[parent].node.ID, true
}

// Children returns copies of the children of parentNodeID that belong to containerID,
// in tree order. An empty containerID returns every child.
func (s *Store) Children(containerID, parentNodeID string) []domain.Node {
	h, ok := s.find(parentNodeID)
	if !ok {
		return nil
	}
	var out []domain.Node
	for _, c := range s.slots[h].children {
		if containerID == "" || s.slots[c].node.ContainerID == containerID {
			out = append(out, s.export(c))
		}
	}
	return out
}
