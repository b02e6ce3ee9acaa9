package tree

import (
	"maps"

	"github.com/aretw0/arbor/pkg/domain"
)

// RemoveElement removes elementID from the container's slice of parentNodeID.
//
// The element's own removal hook does the work and receives onDone; without a binding
// the store detaches the element itself. elementRemove{trashed: false} is published
// afterwards. It returns false, silently apart from the log, when the parent or the
// element cannot be located.
//
// The element is matched by (containerID, parentNodeID) when both the caller and the
// element carry a container id. An empty containerID, or an element that never got one
// (nested layout fields without a hint), matches by parentNodeID alone.
func (s *Store) RemoveElement(elementID, containerID, parentNodeID string, onDone domain.DoneFunc) bool {
	parent, c, ok := s.lookupElement(elementID, containerID, parentNodeID)
	if !ok {
		s.logger.Warn("remove element: not found",
			"element_id", elementID,
			"container_id", containerID,
			"parent_node_id", parentNodeID,
		)
		return false
	}

	if b, bound := s.bindings[elementID]; bound && b.Remove != nil {
		b.Remove(elementID, onDone, false)
	} else {
		s.detach(parent, c)
		s.complete(onDone)
	}

	s.bus.PublishElementRemove(domain.RemoveEvent{
		ElementID:    elementID,
		ContainerID:  containerID,
		ParentNodeID: parentNodeID,
		Trashed:      false,
	})
	return true
}

// UpdateElement forwards data, with id forced to elementID, to the element's update hook
// and publishes elementUpdate with the sanitized result. Without a binding the store
// applies the allow-listed keys itself. Keys outside the allow-list are ignored.
// Elements are matched as in RemoveElement.
func (s *Store) UpdateElement(elementID, containerID, parentNodeID string, data map[string]any, onDone domain.DoneFunc) bool {
	_, c, ok := s.lookupElement(elementID, containerID, parentNodeID)
	if !ok {
		s.logger.Warn("update element: not found",
			"element_id", elementID,
			"container_id", containerID,
			"parent_node_id", parentNodeID,
		)
		return false
	}

	patch := make(map[string]any, len(data)+1)
	maps.Copy(patch, data)
	patch["id"] = elementID

	if b, bound := s.bindings[elementID]; bound && b.Update != nil {
		if !b.Update(patch, onDone) {
			s.logger.Warn("update element: rejected by owner",
				"element_id", elementID,
				"owner", b.Owner,
			)
			return false
		}
	} else {
		p, err := DecodePatch(patch)
		if err != nil {
			s.logger.Error("update element: invalid patch", "element_id", elementID, "err", err)
			return false
		}
		s.slots[c].node = p.Apply(s.slots[c].node)
		s.complete(onDone)
	}

	// The hook may have rebuilt the container's slice; look the element up again.
	_, c, ok = s.lookupElement(elementID, containerID, parentNodeID)
	if !ok {
		return false
	}
	s.bus.PublishElementUpdate(*domain.Sanitize(s.nodeOf(c)))
	return true
}

// detach removes child c from parent and frees its subtree.
func (s *Store) detach(parent, c handle) {
	children := s.slots[parent].children
	kept := make([]handle, 0, len(children))
	for _, h := range children {
		if h != c {
			kept = append(kept, h)
		}
	}
	s.slots[parent].children = kept
	s.release(c)
}
