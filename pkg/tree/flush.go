package tree

import (
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// FlushAll clears the tree by fanning out to the flush hook of every top-level child.
//
// It is a counted join: each hook gets its own completion, and when the last one fires
// a final change and then flush are published and onComplete runs. Children without
// a binding are detached by the store. Reconciliations issued by the hooks meanwhile do
// not publish change. Hooks must complete before returning; when some did not, the
// join is completed anyway and the late completions are ignored. With an empty root, flush is published at once, without change,
// and onComplete runs synchronously.
func (s *Store) FlushAll(onComplete func()) {
	top := s.slots[s.root].children
	if len(top) == 0 {
		s.bus.PublishFlush(s.Tree(), false)
		if onComplete != nil {
			onComplete()
		}
		return
	}

	ids := make([]string, len(top))
	for i, h := range top {
		ids[i] = s.slots[h].node.ID
	}

	s.flushing++
	pending := len(ids)
	finished := false
	finish := func() {
		if finished {
			return
		}
		finished = true
		s.flushing--
		s.revision++
		s.bus.PublishFlush(s.Tree(), true)
		if onComplete != nil {
			onComplete()
		}
	}

	unfinished := make(map[string]bool, len(ids))
	for _, id := range ids {
		unfinished[id] = true
		var once sync.Once
		done := func(domain.Node) {
			once.Do(func() {
				delete(unfinished, id)
				pending--
				if pending == 0 {
					finish()
				}
			})
		}

		if b, bound := s.bindings[id]; bound && b.Flush != nil {
			b.Flush(done)
			continue
		}
		if c, ok := s.childOf(s.root, id); ok {
			s.detach(s.root, c)
		}
		done(s.Tree())
	}

	// Hooks complete on the same stack; one that did not would silence change for good.
	if pending > 0 {
		left := make([]string, 0, len(unfinished))
		for _, id := range ids {
			if unfinished[id] {
				left = append(left, id)
			}
		}
		s.logger.Warn("flush all: hooks did not complete, forcing completion", "element_ids", left)
		finish()
	}
}

func (s *Store) childOf(parent handle, id string) (handle, bool) {
	for _, c := range s.slots[parent].children {
		if s.slots[c].node.ID == id {
			return c, true
		}
	}
	return noHandle, false
}
