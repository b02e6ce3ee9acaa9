package tree

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Reconcile merges a container's full local child list into the node parentNodeID.
//
// The first applicable case wins:
//
//  1. containerID == parentNodeID: the container bootstraps its own node, children are replaced.
//  2. the node has no children, or updated is empty: with a containerID, only that
//     container's children are removed; otherwise children are replaced.
//  3. the container's current share of children differs in size from updated: children
//     become updated followed by the children of other containers.
//  4. same size: submitted ids already present replace their slot in place, unknown ids
//     are appended in submission order. Existing order always wins, so resubmitting the
//     same children in another order does not reorder them.
//
// Submitted top-level children are stamped with containerID and parentNodeID. A submitted
// node with nil Fields keeps the subtree the tree already holds for its id.
//
// onDone receives the full tree, then change is published. When removedID is set,
// elementRemove{trashed: true} follows. It returns false, without publishing, when the
// parent is missing or the batch carries an empty or duplicate id.
func (s *Store) Reconcile(containerID, parentNodeID string, updated []domain.Node, onDone domain.DoneFunc, removedID string) bool {
	if err := domain.ValidateBatch(updated); err != nil {
		s.logger.Error("Duplicate or invalid ID",
			"container_id", containerID,
			"parent_node_id", parentNodeID,
			"err", err,
		)
		return false
	}

	h, ok := s.find(parentNodeID)
	if !ok {
		s.logger.Warn("reconcile: parent node not found",
			"container_id", containerID,
			"parent_node_id", parentNodeID,
		)
		return false
	}

	batch := stamp(updated, containerID, parentNodeID)
	s.reconcile(h, containerID, parentNodeID, batch)

	s.complete(onDone)
	if removedID != "" {
		s.bus.PublishElementRemove(domain.RemoveEvent{
			ElementID:    removedID,
			ContainerID:  containerID,
			ParentNodeID: parentNodeID,
			Trashed:      true,
		})
	}
	return true
}

func (s *Store) reconcile(h handle, containerID, parentNodeID string, batch []domain.Node) {
	current := s.slots[h].children

	switch {
	case containerID == parentNodeID:
		s.replaceChildren(h, batch, nil)

	case len(current) == 0 || len(batch) == 0:
		if containerID != "" && len(current) > 0 {
			kept := make([]handle, 0, len(current))
			for _, c := range current {
				if s.slots[c].node.ContainerID == containerID {
					s.release(c)
					continue
				}
				kept = append(kept, c)
			}
			s.slots[h].children = kept
			return
		}
		s.replaceChildren(h, batch, nil)

	default:
		owned := 0
		var others []handle
		for _, c := range current {
			if s.slots[c].node.ContainerID == containerID {
				owned++
			} else {
				others = append(others, c)
			}
		}
		if owned != len(batch) {
			s.replaceChildren(h, batch, others)
			return
		}
		s.merge(h, batch)
	}
}

// replaceChildren sets h's children to batch followed by tail. Existing children that are
// not in tail are reused by id so their subtrees survive; the rest are released.
func (s *Store) replaceChildren(h handle, batch []domain.Node, tail []handle) {
	old := s.slots[h].children

	kept := make(map[handle]bool, len(tail))
	for _, c := range tail {
		kept[c] = true
	}
	byID := make(map[string]handle, len(old))
	for _, c := range old {
		if kept[c] {
			continue
		}
		id := s.slots[c].node.ID
		if _, dup := byID[id]; !dup {
			byID[id] = c
		}
	}

	next := make([]handle, 0, len(batch)+len(tail))
	for _, n := range batch {
		if c, ok := byID[n.ID]; ok {
			delete(byID, n.ID)
			kept[c] = true
			s.assign(c, n)
			next = append(next, c)
			continue
		}
		next = append(next, s.insert(n, h))
	}
	next = append(next, tail...)

	for _, c := range old {
		if !kept[c] {
			s.release(c)
		}
	}
	s.slots[h].children = next
}

// merge is the same-size case: in-place replacement by id, unknown ids appended.
func (s *Store) merge(h handle, batch []domain.Node) {
	current := s.slots[h].children
	var queued []domain.Node

	for _, n := range batch {
		idx := -1
		for i, c := range current {
			if s.slots[c].node.ID == n.ID {
				idx = i
				break
			}
		}
		if idx == -1 {
			queued = append(queued, n)
			continue
		}
		s.assign(current[idx], n)
	}

	for _, n := range queued {
		c := s.insert(n, h)
		s.slots[h].children = append(s.slots[h].children, c)
	}
}

// assign replaces the content of slot c with n. Children follow n.Fields when it is
// non-nil and are kept otherwise.
func (s *Store) assign(c handle, n domain.Node) {
	children := n.Fields
	n.Fields = nil
	n.Payload = domain.StripFuncs(n.Payload)
	s.slots[c].node = n
	if children != nil {
		s.replaceChildren(c, children, nil)
	}
}

// complete finishes an applied mutation: bump the revision, hand the tree to onDone and
// publish change. Nested mutations triggered by flush hooks stay silent.
func (s *Store) complete(onDone domain.DoneFunc) {
	s.revision++
	if onDone != nil {
		onDone(s.Tree())
	}
	if s.flushing == 0 {
		s.bus.PublishChange(s.Tree())
	}
}

func stamp(batch []domain.Node, containerID, parentNodeID string) []domain.Node {
	out := make([]domain.Node, len(batch))
	for i, n := range batch {
		if containerID != "" {
			n.ContainerID = containerID
		}
		n.ParentNodeID = parentNodeID
		out[i] = n
	}
	return out
}
