package container

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove_BetweenContainers(t *testing.T) {
	d := NewDragState()
	s, canvas, body := layout(t, WithDragState(d))

	require.NoError(t, Move(d, "n1", body, canvas, 0))

	assert.Equal(t, []string{"n1", "section", "t1"}, childIDs(s, domain.RootID))
	assert.Equal(t, []string{"n2"}, childIDs(s, "section"))
	assert.Equal(t, []string{"n2"}, localIDs(body))

	b, ok := s.Binding("n1")
	require.True(t, ok)
	assert.Equal(t, domain.RootID, b.Owner)

	_, dragging := d.Dragged()
	assert.False(t, dragging, "the session ends with the move")
}

func TestMove_CarriesSubtree(t *testing.T) {
	d := NewDragState()
	s, canvas, body := layout(t, WithDragState(d))
	require.NoError(t, canvas.Add(domain.Node{ID: "card", Type: "card", Fields: elements("c1")}, Append))

	require.NoError(t, Move(d, "card", canvas, body, 0))

	assert.Equal(t, []string{"card", "n1", "n2"}, childIDs(s, "section"))
	assert.Equal(t, []string{"c1"}, childIDs(s, "card"))
	assert.Equal(t, []string{"section", "t1"}, childIDs(s, domain.RootID))
}

func TestMove_SourceRefuses(t *testing.T) {
	d := NewDragState()
	s := tree.New(events.New())
	canvas := NewCanvas(s, WithDragState(d))
	require.True(t, canvas.SetInitialElements([]domain.Node{{ID: "section", Type: "section"}}))
	body := New(s, "body", "section", WithDragState(d), WithMoveConfirm(func(DraggedElement) bool { return false }))
	require.True(t, body.SetInitialElements(elements("n1", "n2")))

	require.NoError(t, Move(d, "n1", body, canvas, Append))

	// The target accepted a copy, the source kept its element.
	assert.Equal(t, []string{"n1", "n2"}, localIDs(body))
	assert.Equal(t, []string{"section", "n1"}, localIDs(canvas))
}

func TestMove_Reorder(t *testing.T) {
	d := NewDragState()
	s, _, body := layout(t, WithDragState(d))

	require.NoError(t, Move(d, "n2", body, body, 0))
	assert.Equal(t, []string{"n2", "n1"}, childIDs(s, "section"))

	assert.ErrorIs(t, Move(d, "n2", body, body, 0), domain.ErrDuplicateID)
	assert.ErrorIs(t, Move(d, "zzz", body, body, 0), domain.ErrElementNotFound)
}

func TestTrash_Discard(t *testing.T) {
	d := NewDragState()
	s, _, body := layout(t, WithDragState(d))

	var removal *domain.RemoveEvent
	s.Bus().OnElementRemove(func(e domain.RemoveEvent) { removal = &e })

	var after domain.Node
	trash := NewTrash(d, WithAfterTrash(func(tree domain.Node) { after = tree }))
	require.True(t, trash.Discard("n1", body))

	assert.Equal(t, []string{"n2"}, childIDs(s, "section"))
	require.NotNil(t, removal)
	assert.True(t, removal.Trashed)
	assert.Equal(t, "n1", removal.ElementID)
	assert.Equal(t, "body", removal.ContainerID)
	_, found := after.Find("n1")
	assert.False(t, found)

	assert.False(t, trash.Discard("n1", body), "already gone")
}

func TestTrash_DropRules(t *testing.T) {
	d := NewDragState()
	s, _, body := layout(t, WithDragState(d))
	refuse := NewTrash(d, WithBeforeTrash(func(DraggedElement) bool { return false }))
	trash := NewTrash(d)

	assert.False(t, trash.Drop(), "nothing dragged")

	d.Start(DraggedElement{ElementID: "palette-item"})
	d.Leave()
	assert.False(t, trash.Drop(), "palette drags have no source")

	d.Start(DraggedElement{ElementID: "n1", ContainerID: "body", Source: body})
	assert.False(t, trash.Drop(), "pointer never left the container")

	d.Start(DraggedElement{ElementID: "n1", ContainerID: "body", Source: body})
	d.Leave()
	assert.False(t, refuse.Drop())

	assert.Equal(t, []string{"n1", "n2"}, childIDs(s, "section"))
	_, dragging := d.Dragged()
	assert.False(t, dragging)
}
