package container

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func elements(ids ...string) []domain.Node {
	out := make([]domain.Node, len(ids))
	for i, id := range ids {
		out[i] = domain.Node{ID: id, Type: "text"}
	}
	return out
}

func localIDs(c *Container) []string {
	var out []string
	for _, e := range c.Elements() {
		out = append(out, e.ID)
	}
	return out
}

func childIDs(s *tree.Store, parent string) []string {
	n, ok := s.Node(parent)
	if !ok {
		return nil
	}
	return n.IDs()
}

// layout builds a canvas holding a section and t1, with a container "body" inside the section.
func layout(t *testing.T, opts ...Option) (*tree.Store, *Container, *Container) {
	t.Helper()
	s := tree.New(events.New())
	canvas := NewCanvas(s, opts...)
	require.True(t, canvas.SetInitialElements([]domain.Node{
		{ID: "section", Type: "section"},
		{ID: "t1", Type: "text"},
	}))
	body := New(s, "body", "section", opts...)
	require.True(t, body.SetInitialElements(elements("n1", "n2")))
	return s, canvas, body
}

func TestSetInitialElements(t *testing.T) {
	s, canvas, body := layout(t)

	assert.Equal(t, []string{"section", "t1"}, childIDs(s, domain.RootID))
	assert.Equal(t, []string{"n1", "n2"}, childIDs(s, "section"))

	assert.False(t, canvas.SetInitialElements(elements("other")), "bootstraps once")
	assert.Equal(t, []string{"n1", "n2"}, localIDs(body))

	cid, pid, ok := s.Locate("n2")
	require.True(t, ok)
	assert.Equal(t, "body", cid)
	assert.Equal(t, "section", pid)
}

func TestAdd_Positions(t *testing.T) {
	s, _, body := layout(t)

	require.NoError(t, body.Add(domain.Node{ID: "first", Type: "text"}, 0))
	require.NoError(t, body.Add(domain.Node{ID: "last", Type: "text"}, Append))
	require.NoError(t, body.Add(domain.Node{ID: "mid", Type: "text"}, 2))
	require.NoError(t, body.Add(domain.Node{ID: "far", Type: "text"}, 99))

	want := []string{"first", "n1", "mid", "n2", "last", "far"}
	assert.Equal(t, want, localIDs(body))
	assert.Equal(t, want, childIDs(s, "section"))
}

func TestAdd_InvalidAndDuplicate(t *testing.T) {
	s, _, body := layout(t)
	rev := s.Revision()

	assert.ErrorIs(t, body.Add(domain.Node{Type: "text"}, 0), domain.ErrInvalidID)
	assert.ErrorIs(t, body.Add(domain.Node{ID: "n1"}, 0), domain.ErrDuplicateID)
	assert.Equal(t, rev, s.Revision())
}

func TestAdd_ExistingIDReorders(t *testing.T) {
	s, _, body := layout(t)

	require.NoError(t, body.Add(domain.Node{ID: "n1", Type: "text"}, Append))

	assert.Equal(t, []string{"n2", "n1"}, localIDs(body))
	assert.Equal(t, []string{"n2", "n1"}, childIDs(s, "section"))
}

func TestAdd_Capacity(t *testing.T) {
	s, _, body := layout(t, WithCapacity(2))

	assert.False(t, body.SpaceAvailable())
	err := body.Add(domain.Node{ID: "n3"}, Append)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, []string{"n1", "n2"}, childIDs(s, "section"))

	require.NoError(t, body.Add(domain.Node{ID: "n2"}, 0), "reordering does not grow the container")
	assert.Equal(t, []string{"n2", "n1"}, childIDs(s, "section"))
}

func TestDrop_Handler(t *testing.T) {
	s := tree.New(events.New())
	var info DropInfo
	canvas := NewCanvas(s, WithDropHandler(func(el domain.Node, add func(domain.Node) error, di DropInfo) error {
		info = di
		el.Name = "Dropped " + el.Type
		return add(el)
	}))

	require.NoError(t, canvas.Drop(domain.Node{ID: "a", Type: "text"}, 0))
	require.NoError(t, canvas.Drop(domain.Node{ID: "b", Type: "image"}, 0))

	assert.Equal(t, 0, info.DropIndex)
	require.Len(t, info.Current, 1)
	got, ok := s.Node("b")
	require.True(t, ok)
	assert.Equal(t, "Dropped image", got.Name)
	assert.Equal(t, []string{"b", "a"}, childIDs(s, domain.RootID))
}

func TestStoreRemove_DelegatesToContainer(t *testing.T) {
	s, _, body := layout(t)

	var removal *domain.RemoveEvent
	s.Bus().OnElementRemove(func(e domain.RemoveEvent) { removal = &e })

	require.True(t, s.RemoveElement("n1", "body", "section", nil))

	assert.Equal(t, []string{"n2"}, localIDs(body))
	assert.Equal(t, []string{"n2"}, childIDs(s, "section"))
	require.NotNil(t, removal)
	assert.False(t, removal.Trashed)
	_, bound := s.Binding("n1")
	assert.False(t, bound)
}

func TestStoreUpdate_DelegatesToContainer(t *testing.T) {
	s, _, body := layout(t)

	var updated *domain.Element
	s.Bus().OnElementUpdate(func(e domain.Element) { updated = &e })

	ok := s.UpdateElement("n2", "body", "section", map[string]any{
		"name":    "Title",
		"payload": map[string]any{"size": 3},
		"fields":  []any{"ignored"},
	}, nil)
	require.True(t, ok)

	assert.Equal(t, "Title", body.Elements()[1].Name)
	require.NotNil(t, updated)
	assert.Equal(t, "Title", updated.Name)
	assert.Equal(t, 3, updated.Payload["size"])
	assert.Equal(t, "body", updated.ContainerID)
}

func TestContainerUpdate_UnknownElement(t *testing.T) {
	_, _, body := layout(t)
	assert.False(t, body.Update(map[string]any{"id": "zzz", "name": "x"}, nil))
}

func TestFlushAll_ThroughContainers(t *testing.T) {
	s, canvas, _ := layout(t)

	var seen []domain.Channel
	for _, ch := range domain.Channels {
		_, _ = s.Bus().Subscribe(ch, func(e domain.Event) { seen = append(seen, e.Channel) })
	}

	completed := false
	s.FlushAll(func() { completed = true })

	assert.True(t, completed)
	assert.Empty(t, childIDs(s, domain.RootID))
	assert.Zero(t, canvas.Len())
	assert.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelFlush}, seen)
}

func TestContainerFlush_OrphanStillCompletes(t *testing.T) {
	s := tree.New(events.New())
	orphan := New(s, "body", "gone")

	var got *domain.Node
	orphan.Flush(func(tree domain.Node) { got = &tree })

	require.NotNil(t, got, "onDone runs even when the parent node is missing")
	assert.Equal(t, domain.RootID, got.ID)
}

func TestSetElementsFunc(t *testing.T) {
	s, _, body := layout(t)

	err := body.SetElementsFunc(func(cur []domain.Node) []domain.Node {
		return append(cur, domain.Node{ID: "n3"})
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, childIDs(s, "section"))

	err = body.SetElements(elements("a", "a"), nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, []string{"n1", "n2", "n3"}, localIDs(body))
}

func TestWatch_RefreshesFromTree(t *testing.T) {
	s, _, body := layout(t)
	body.Watch()
	defer body.Close()

	// A removal that bypasses the container, through the store fallback.
	s.Unbind("n1", "")
	require.True(t, s.RemoveElement("n1", "body", "section", nil))

	assert.Equal(t, []string{"n2"}, localIDs(body))
}

func TestSubtreeHandedOverOnce(t *testing.T) {
	s, canvas, _ := layout(t)

	require.NoError(t, canvas.Add(domain.Node{
		ID:     "card",
		Type:   "card",
		Fields: elements("c1", "c2"),
	}, Append))
	assert.Equal(t, []string{"c1", "c2"}, childIDs(s, "card"))
	assert.Nil(t, canvas.Elements()[2].Fields)

	// Resubmitting the canvas keeps the card's subtree.
	canvas.Sync(nil)
	assert.Equal(t, []string{"c1", "c2"}, childIDs(s, "card"))
	assert.Equal(t, []string{"n1", "n2"}, childIDs(s, "section"))
}
