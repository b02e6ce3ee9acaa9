package tree

import (
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
)

// handle addresses a slot in the arena.
type handle int

const noHandle handle = -1

type slot struct {
	node     domain.Node // Fields is always nil; children carry the structure
	children []handle
	parent   handle
	live     bool
}

// Store owns the tree and its per-node bindings.
type Store struct {
	slots    []slot
	free     []handle
	root     handle
	bindings map[string]domain.Binding
	bus      *events.Bus
	logger   *slog.Logger
	revision uint64
	flushing int
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the side-channel logger used to report lookup and identity failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store holding only the root node. A nil bus gets a private one.
func New(bus *events.Bus, opts ...Option) *Store {
	if bus == nil {
		bus = events.New()
	}
	s := &Store{
		bindings: make(map[string]domain.Binding),
		bus:      bus,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = s.alloc(domain.Node{ID: domain.RootID}, noHandle)
	return s
}

// Bus returns the bus the store publishes on.
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// Revision is incremented by every applied mutation.
func (s *Store) Revision() uint64 {
	return s.revision
}

// Tree returns a deep copy of the whole tree, root included.
func (s *Store) Tree() domain.Node {
	return s.export(s.root)
}

// Snapshot returns the function-free copy of the tree with children mirrored
// into InitialElements.
func (s *Store) Snapshot() domain.SnapshotNode {
	return domain.NewSnapshot(s.Tree())
}

// Len returns the number of nodes in the tree, root included.
func (s *Store) Len() int {
	return len(s.slots) - len(s.free)
}

// Bind registers the hooks for node id, replacing any previous binding.
func (s *Store) Bind(id string, b domain.Binding) {
	s.bindings[id] = b
}

// Unbind drops the binding for id if it is owned by owner. An empty owner always matches.
// Ownership matters when an element moved: the new container binds before the old one unbinds.
func (s *Store) Unbind(id, owner string) {
	b, ok := s.bindings[id]
	if !ok {
		return
	}
	if owner == "" || b.Owner == owner {
		delete(s.bindings, id)
	}
}

// Binding returns the hooks registered for id.
func (s *Store) Binding(id string) (domain.Binding, bool) {
	b, ok := s.bindings[id]
	return b, ok
}

func (s *Store) alloc(n domain.Node, parent handle) handle {
	n.Fields = nil
	n.Payload = domain.StripFuncs(n.Payload)
	sl := slot{node: n, parent: parent, live: true}
	if k := len(s.free); k > 0 {
		h := s.free[k-1]
		s.free = s.free[:k-1]
		s.slots[h] = sl
		return h
	}
	s.slots = append(s.slots, sl)
	return handle(len(s.slots) - 1)
}

// insert allocates n and its whole subtree under parent.
func (s *Store) insert(n domain.Node, parent handle) handle {
	h := s.alloc(n, parent)
	if len(n.Fields) > 0 {
		children := make([]handle, 0, len(n.Fields))
		for _, child := range n.Fields {
			children = append(children, s.insert(child, h))
		}
		s.slots[h].children = children
	}
	return h
}

// release frees h and its subtree.
func (s *Store) release(h handle) {
	for _, c := range s.slots[h].children {
		s.release(c)
	}
	s.slots[h] = slot{parent: noHandle}
	s.free = append(s.free, h)
}

func (s *Store) export(h handle) domain.Node {
	sl := s.slots[h]
	n := sl.node.Clone()
	if len(sl.children) > 0 {
		n.Fields = make([]domain.Node, len(sl.children))
		for i, c := range sl.children {
			n.Fields[i] = s.export(c)
		}
	}
	return n
}

func (s *Store) nodeOf(h handle) domain.Node {
	return s.slots[h].node
}
