package container

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/aretw0/arbor/pkg/tree"
)

// Append as a drop index places the element after the last one.
const Append = -1

// DropInfo is handed to a DropHandler.
type DropInfo struct {
	DropIndex int
	Current   []domain.Node
}

// DropHandler may enrich a dropped element before calling add.
type DropHandler func(el domain.Node, add func(domain.Node) error, info DropInfo) error

// MoveConfirm decides whether an element dragged out of a container may leave it.
type MoveConfirm func(moved DraggedElement) bool

// Container is a drop target bound to the node ParentID of a tree.Store.
// It is not safe for concurrent use.
type Container struct {
	id       string
	parentID string
	capacity int

	store    *tree.Store
	drag     *DragState
	elements []domain.Node
	initDone bool

	onDrop        DropHandler
	onElementMove MoveConfirm
	logger        *slog.Logger

	watch    events.Handle
	watching bool
}

// Option configures a Container.
type Option func(*Container)

// WithCapacity limits the number of elements the container accepts. Zero means unlimited.
func WithCapacity(n int) Option {
	return func(c *Container) {
		c.capacity = n
	}
}

// WithDragState shares the drag session between containers.
func WithDragState(d *DragState) Option {
	return func(c *Container) {
		c.drag = d
	}
}

// WithDropHandler intercepts drops before they are added.
func WithDropHandler(h DropHandler) Option {
	return func(c *Container) {
		c.onDrop = h
	}
}

// WithMoveConfirm sets the callback consulted before an element leaves for another container.
func WithMoveConfirm(fn MoveConfirm) Option {
	return func(c *Container) {
		c.onElementMove = fn
	}
}

// WithLogger sets the logger used to report rejected drops.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// New creates a container with the given id, hosted by node parentID.
func New(store *tree.Store, id, parentID string, opts ...Option) *Container {
	c := &Container{
		id:            id,
		parentID:      parentID,
		store:         store,
		onElementMove: func(DraggedElement) bool { return true },
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCanvas creates the root container.
func NewCanvas(store *tree.Store, opts ...Option) *Container {
	return New(store, domain.RootID, domain.RootID, opts...)
}

// ID returns the container id.
func (c *Container) ID() string { return c.id }

// ParentID returns the id of the node hosting the container.
func (c *Container) ParentID() string { return c.parentID }

// Capacity returns the maximum number of elements, zero when unlimited.
func (c *Container) Capacity() int { return c.capacity }

// SpaceAvailable reports whether another element fits.
func (c *Container) SpaceAvailable() bool {
	return c.capacity == 0 || len(c.elements) < c.capacity
}

// Elements returns a copy of the local list.
func (c *Container) Elements() []domain.Node {
	out := make([]domain.Node, len(c.elements))
	for i, el := range c.elements {
		out[i] = el.Clone()
	}
	return out
}

// Has reports whether the container holds elementID.
func (c *Container) Has(elementID string) bool {
	return slices.ContainsFunc(c.elements, func(e domain.Node) bool { return e.ID == elementID })
}

// Len returns the number of local elements.
func (c *Container) Len() int { return len(c.elements) }

// SetInitialElements bootstraps the container once. Later calls, or calls on a container
// that already holds elements, are ignored and return false.
func (c *Container) SetInitialElements(initial []domain.Node) bool {
	if c.initDone || len(c.elements) > 0 || len(initial) == 0 {
		return false
	}
	if err := domain.ValidateBatch(initial); err != nil {
		c.logger.Error("Duplicate or invalid ID", "container_id", c.id, "err", err)
		return false
	}
	c.elements = c.own(initial)
	c.bindAll()
	c.initDone = true
	return c.sync(nil, "")
}

// Drop adds el at index, going through the drop handler when one is set.
func (c *Container) Drop(el domain.Node, index int) error {
	if c.onDrop == nil {
		return c.Add(el, index)
	}
	info := DropInfo{DropIndex: index, Current: c.Elements()}
	return c.onDrop(el, func(enriched domain.Node) error { return c.Add(enriched, index) }, info)
}

// Add inserts el at index (0 prepends, Append or an index past the end appends).
//
// Re-adding an id the container already holds moves it to index; doing so at its current
// index is a duplicate. The result is checked against the capacity. When el is the element
// of the current drag session, its source container is asked to let it go.
func (c *Container) Add(el domain.Node, index int) error {
	if el.ID == "" {
		c.logger.Error("Duplicate or invalid ID", "container_id", c.id, "err", domain.ErrInvalidID)
		return domain.ErrInvalidID
	}

	present := slices.IndexFunc(c.elements, func(e domain.Node) bool { return e.ID == el.ID })
	if present != -1 && present == index {
		c.logger.Error("Duplicate or invalid ID", "container_id", c.id, "element_id", el.ID, "err", domain.ErrDuplicateID)
		return domain.ErrDuplicateID
	}

	dropped := el
	dropped.ContainerID = c.id
	dropped.ParentNodeID = c.parentID
	if dropped.Fields == nil {
		// The element's subtree travels with it: both a reorder and the source of a move
		// release the old node before this container syncs.
		if n, ok := c.store.Node(el.ID); ok && len(n.Fields) > 0 {
			dropped.Fields = n.Fields
		}
	}

	rest := slices.Clone(c.elements)
	if present != -1 {
		rest = slices.Delete(rest, present, present+1)
	}
	at := index
	if at < 0 || at > len(rest) {
		at = len(rest)
	}
	next := slices.Insert(slices.Clone(rest), at, dropped)

	if c.capacity > 0 && len(next) > c.capacity {
		err := fmt.Errorf("maximum capacity of container %s is %d: %w", c.id, c.capacity, domain.ErrCapacityExceeded)
		c.logger.Error("drop rejected", "container_id", c.id, "err", err)
		return err
	}

	if present != -1 {
		// Same-size resubmissions keep the tree's order, so a reorder is a removal
		// followed by a reinsertion.
		c.elements = rest
		c.sync(nil, "")
	} else {
		c.releaseFromSource(el.ID)
	}

	c.elements = next
	c.bind(dropped.ID)
	c.sync(nil, "")
	return nil
}

// Remove drops elementID from the local list and reconciles. With dispatch set the store
// publishes elementRemove{trashed: true}. It matches domain.RemoveHook.
func (c *Container) Remove(elementID string, onDone domain.DoneFunc, dispatch bool) {
	idx := slices.IndexFunc(c.elements, func(e domain.Node) bool { return e.ID == elementID })
	if idx != -1 {
		c.elements = slices.Delete(slices.Clone(c.elements), idx, idx+1)
		c.store.Unbind(elementID, c.id)
	}
	removed := ""
	if dispatch {
		removed = elementID
	}
	c.sync(onDone, removed)
}

// Update applies the allow-listed keys (name, type, payload) of patch to the element
// patch["id"]. It returns false when the element is not held here. It matches domain.UpdateHook.
func (c *Container) Update(patch map[string]any, onDone domain.DoneFunc) bool {
	p, err := tree.DecodePatch(patch)
	if err != nil {
		c.logger.Error("update rejected", "container_id", c.id, "err", err)
		return false
	}
	idx := slices.IndexFunc(c.elements, func(e domain.Node) bool { return e.ID == p.ID })
	if idx == -1 {
		return false
	}
	next := slices.Clone(c.elements)
	next[idx] = p.Apply(next[idx])
	c.elements = next
	return c.sync(onDone, "")
}

// Flush clears the local list and reconciles. It matches domain.FlushHook.
func (c *Container) Flush(onDone domain.DoneFunc) {
	for _, e := range c.elements {
		c.store.Unbind(e.ID, c.id)
	}
	c.elements = nil
	if !c.sync(onDone, "") && onDone != nil {
		onDone(c.store.Tree())
	}
}

// Sync re-submits the local list. It matches domain.SyncHook.
func (c *Container) Sync(onDone domain.DoneFunc) {
	c.sync(onDone, "")
}

// SetElements replaces the local list wholesale. The caller is responsible for
// submitting a coherent list; ids are still validated.
func (c *Container) SetElements(elements []domain.Node, onDone domain.DoneFunc) error {
	return c.SetElementsFunc(func([]domain.Node) []domain.Node { return elements }, onDone)
}

// SetElementsFunc replaces the local list with fn(current).
func (c *Container) SetElementsFunc(fn func(current []domain.Node) []domain.Node, onDone domain.DoneFunc) error {
	next := fn(c.Elements())
	if err := domain.ValidateBatch(next); err != nil {
		c.logger.Error("Duplicate or invalid ID", "container_id", c.id, "err", err)
		return err
	}
	for _, e := range c.elements {
		c.store.Unbind(e.ID, c.id)
	}
	c.elements = c.own(next)
	c.bindAll()
	c.sync(onDone, "")
	return nil
}

// Refresh reloads the local list from the tree.
func (c *Container) Refresh() {
	children := c.store.Children(c.id, c.parentID)
	next := make([]domain.Node, len(children))
	kept := make(map[string]bool, len(children))
	for i, n := range children {
		n.Fields = nil
		next[i] = n
		kept[n.ID] = true
	}
	for _, e := range c.elements {
		if !kept[e.ID] {
			c.store.Unbind(e.ID, c.id)
		}
	}
	c.elements = next
	c.bindAll()
}

// Watch keeps the local list in step with the tree by refreshing on every change.
func (c *Container) Watch() {
	if c.watching {
		return
	}
	c.watch, c.watching = c.store.Bus().OnChange(func(domain.Node) { c.Refresh() })
}

// Close stops watching and drops the bindings of every held element.
func (c *Container) Close() {
	if c.watching {
		c.store.Bus().Unsubscribe(domain.ChannelChange, c.watch)
		c.watching = false
	}
	for _, e := range c.elements {
		c.store.Unbind(e.ID, c.id)
	}
}

// Binding returns the hooks this container registers for its elements.
func (c *Container) Binding() domain.Binding {
	return domain.Binding{
		Owner:  c.id,
		Remove: c.Remove,
		Update: c.Update,
		Flush:  c.Flush,
		Sync:   c.Sync,
	}
}

func (c *Container) bind(id string) {
	c.store.Bind(id, c.Binding())
}

func (c *Container) bindAll() {
	for _, e := range c.elements {
		c.bind(e.ID)
	}
}

func (c *Container) own(batch []domain.Node) []domain.Node {
	out := make([]domain.Node, len(batch))
	for i, n := range batch {
		n.ContainerID = c.id
		n.ParentNodeID = c.parentID
		out[i] = n
	}
	return out
}

// sync submits the local list. Subtrees carried by freshly added elements are handed
// over once; afterwards the tree is their owner and the local copies drop them.
func (c *Container) sync(onDone domain.DoneFunc, removedID string) bool {
	ok := c.store.Reconcile(c.id, c.parentID, c.elements, onDone, removedID)
	if ok {
		for i := range c.elements {
			c.elements[i].Fields = nil
		}
	}
	return ok
}

// releaseFromSource asks the container the element was dragged from to remove it,
// if its move confirmation agrees and the pointer did not leave for the trash.
func (c *Container) releaseFromSource(elementID string) {
	if c.drag == nil {
		return
	}
	moved, ok := c.drag.Dragged()
	if !ok || moved.ElementID != elementID || moved.Source == nil || moved.Source == c {
		return
	}
	if moved.Source.onElementMove(moved) && !c.drag.AttemptToRemove() {
		moved.Source.Remove(elementID, nil, false)
	}
}
