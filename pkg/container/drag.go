package container

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// DraggedElement describes the element of an ongoing drag session.
type DraggedElement struct {
	ElementID    string
	ContainerID  string
	ParentNodeID string
	// Source is nil for drags that start outside the tree, such as the palette.
	Source *Container
}

// DragState holds the bookkeeping of a single drag session. The zero value is idle.
type DragState struct {
	dragged         *DraggedElement
	attemptToRemove bool
	dropPosition    int
}

// NewDragState returns an idle drag session.
func NewDragState() *DragState {
	return &DragState{dropPosition: Append}
}

// Start begins dragging el.
func (d *DragState) Start(el DraggedElement) {
	d.dragged = &el
	d.attemptToRemove = false
}

// End clears the session.
func (d *DragState) End() {
	d.dragged = nil
	d.attemptToRemove = false
	d.dropPosition = Append
}

// Dragged returns the element being dragged.
func (d *DragState) Dragged() (DraggedElement, bool) {
	if d.dragged == nil {
		return DraggedElement{}, false
	}
	return *d.dragged, true
}

// Enter records that the pointer is over a container.
func (d *DragState) Enter() { d.attemptToRemove = false }

// Leave records that the pointer left every container, which arms the trash.
func (d *DragState) Leave() { d.attemptToRemove = true }

// AttemptToRemove reports whether the dragged element left its containers.
func (d *DragState) AttemptToRemove() bool { return d.attemptToRemove }

// SetDropPosition records where the dragged element would land.
func (d *DragState) SetDropPosition(i int) { d.dropPosition = i }

// DropPosition returns the recorded drop position.
func (d *DragState) DropPosition() int { return d.dropPosition }

// Move drags elementID from one container to another at index in a single session.
// The subtree of the element travels with it. Within a single container it reorders.
func Move(d *DragState, elementID string, from, to *Container, index int) error {
	el, ok := from.store.Node(elementID)
	if !ok || el.ContainerID != from.id {
		return fmt.Errorf("%s in container %s: %w", elementID, from.id, domain.ErrElementNotFound)
	}

	d.Start(DraggedElement{
		ElementID:    elementID,
		ContainerID:  from.id,
		ParentNodeID: from.parentID,
		Source:       from,
	})
	defer d.End()
	d.Enter()
	d.SetDropPosition(index)

	prev := to.drag
	to.drag = d
	defer func() { to.drag = prev }()

	return to.Add(el, index)
}

// Trash removes dragged elements that were dropped outside every container.
type Trash struct {
	drag          *DragState
	onBeforeTrash func(DraggedElement) bool
	onAfterTrash  domain.DoneFunc
}

// TrashOption configures a Trash.
type TrashOption func(*Trash)

// WithBeforeTrash sets the confirmation consulted before an element is trashed.
func WithBeforeTrash(fn func(DraggedElement) bool) TrashOption {
	return func(t *Trash) {
		t.onBeforeTrash = fn
	}
}

// WithAfterTrash sets the callback receiving the tree after an element was trashed.
func WithAfterTrash(fn domain.DoneFunc) TrashOption {
	return func(t *Trash) {
		t.onAfterTrash = fn
	}
}

// NewTrash creates a trash bound to the drag session d.
func NewTrash(d *DragState, opts ...TrashOption) *Trash {
	t := &Trash{
		drag:          d,
		onBeforeTrash: func(DraggedElement) bool { return true },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Drop handles a drop on the trash. The dragged element is removed by its source
// container when the pointer left it and the confirmation agrees. It reports whether
// the element was removed. The session ends either way.
func (t *Trash) Drop() bool {
	defer t.drag.End()

	el, ok := t.drag.Dragged()
	if !ok || el.Source == nil {
		return false
	}
	if !t.onBeforeTrash(el) || !t.drag.AttemptToRemove() {
		return false
	}
	el.Source.Remove(el.ElementID, t.onAfterTrash, true)
	return true
}

// Discard drags elementID out of from and drops it on the trash.
func (t *Trash) Discard(elementID string, from *Container) bool {
	if !from.Has(elementID) {
		return false
	}
	t.drag.Start(DraggedElement{
		ElementID:    elementID,
		ContainerID:  from.id,
		ParentNodeID: from.parentID,
		Source:       from,
	})
	t.drag.Leave()
	return t.Drop()
}
