package tree

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveElement_Fallback(t *testing.T) {
	s, rec := seeded(t)

	called := false
	ok := s.RemoveElement("x1", "A", domain.RootID, func(domain.Node) { called = true })
	require.True(t, ok)

	assert.True(t, called)
	assert.Equal(t, []string{"x2"}, rootIDs(s))
	require.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelElementRemove}, rec.channels())
	assert.False(t, rec.events[1].Removal.Trashed)
	assert.Equal(t, "x1", rec.events[1].Removal.ElementID)
}

func TestRemoveElement_DelegatesToHook(t *testing.T) {
	s, rec := seeded(t)

	var gotID string
	var gotDispatch bool
	s.Bind("x2", domain.Binding{
		Owner: "A",
		Remove: func(elementID string, onDone domain.DoneFunc, dispatch bool) {
			gotID, gotDispatch = elementID, dispatch
			s.Reconcile("A", domain.RootID, nodes("x1"), onDone, "")
		},
	})

	require.True(t, s.RemoveElement("x2", "A", domain.RootID, nil))
	assert.Equal(t, "x2", gotID)
	assert.False(t, gotDispatch)
	assert.Equal(t, []string{"x1"}, rootIDs(s))
	assert.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelElementRemove}, rec.channels())
}

func TestRemoveElement_NotFound(t *testing.T) {
	s, rec := seeded(t)
	assert.False(t, s.RemoveElement("nope", "A", domain.RootID, nil))
	assert.False(t, s.RemoveElement("x1", "A", "missing", nil))
	assert.False(t, s.RemoveElement("x1", "B", domain.RootID, nil), "wrong container")
	assert.Empty(t, rec.events)
}

func TestUpdateElement_FallbackAllowList(t *testing.T) {
	s, rec := seeded(t)

	ok := s.UpdateElement("x1", "A", domain.RootID, map[string]any{
		"id":          "hijack",
		"name":        "Renamed",
		"payload":     map[string]any{"required": true},
		"containerID": "elsewhere",
		"fields":      []any{"ignored"},
	}, nil)
	require.True(t, ok)

	el := s.GetElement("x1", "A", domain.RootID)
	require.NotNil(t, el)
	assert.Equal(t, "Renamed", el.Name)
	assert.Equal(t, "text", el.Type)
	assert.Equal(t, "A", el.ContainerID)
	assert.Equal(t, map[string]any{"required": true}, el.Payload)

	require.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelElementUpdate}, rec.channels())
	assert.Equal(t, "Renamed", rec.events[1].Element.Name)
	assert.Equal(t, "x1", rec.events[1].Element.ID)
}

func TestUpdateElement_DelegatesToHook(t *testing.T) {
	s, rec := seeded(t)

	var got map[string]any
	s.Bind("x2", domain.Binding{
		Owner: "A",
		Update: func(patch map[string]any, onDone domain.DoneFunc) bool {
			got = patch
			return true
		},
	})

	require.True(t, s.UpdateElement("x2", "A", domain.RootID, map[string]any{"name": "N"}, nil))
	assert.Equal(t, map[string]any{"name": "N", "id": "x2"}, got)
	assert.Equal(t, []domain.Channel{domain.ChannelElementUpdate}, rec.channels())
}

func TestUpdateElement_HookRejects(t *testing.T) {
	s, rec := seeded(t)
	s.Bind("x2", domain.Binding{
		Update: func(map[string]any, domain.DoneFunc) bool { return false },
	})
	assert.False(t, s.UpdateElement("x2", "A", domain.RootID, map[string]any{"name": "N"}, nil))
	assert.False(t, s.UpdateElement("nope", "A", domain.RootID, nil, nil))
	assert.Empty(t, rec.events)
}

func TestGetters(t *testing.T) {
	s := New(nil)
	require.True(t, s.Reconcile(domain.RootID, domain.RootID, []domain.Node{{ID: "group", Type: "fieldset"}}, nil, ""))
	require.True(t, s.Reconcile("zone", "group", []domain.Node{{ID: "first", Type: "text", Payload: map[string]any{"fn": func() {}, "k": "v"}}}, nil, ""))

	el := s.GetElement("first", "zone", "group")
	require.NotNil(t, el)
	assert.Equal(t, map[string]any{"k": "v"}, el.Payload)

	parent := s.GetElementParent("zone", "group")
	require.NotNil(t, parent)
	assert.Equal(t, "fieldset", parent.Type)

	assert.Nil(t, s.GetElement("first", "zone", "nope"))
	assert.Nil(t, s.GetElementParent("zone", "nope"))

	containerID, parentID, ok := s.Locate("first")
	require.True(t, ok)
	assert.Equal(t, "zone", containerID)
	assert.Equal(t, "group", parentID)

	_, _, ok = s.Locate(domain.RootID)
	assert.False(t, ok)

	assert.Len(t, s.Children("zone", "group"), 1)
	assert.Empty(t, s.Children("other", "group"))
}

func TestLookup_ContainerMatching(t *testing.T) {
	s := New(nil)
	require.True(t, s.Reconcile(domain.RootID, domain.RootID, []domain.Node{{ID: "group", Type: "fieldset", Fields: []domain.Node{
		{ID: "hinted", Type: "text", ContainerID: "body"},
		{ID: "bare", Type: "text"},
	}}}, nil, ""))

	assert.NotNil(t, s.GetElement("hinted", "body", "group"))
	assert.Nil(t, s.GetElement("hinted", "footer", "group"), "both sides set: ids must agree")
	assert.NotNil(t, s.GetElement("hinted", "", "group"), "empty caller container matches by parent")
	assert.NotNil(t, s.GetElement("bare", "footer", "group"), "element without a container matches by parent")

	assert.False(t, s.RemoveElement("hinted", "footer", "group", nil))
	assert.False(t, s.UpdateElement("hinted", "footer", "group", map[string]any{"name": "x"}, nil))
	assert.True(t, s.RemoveElement("hinted", "body", "group", nil))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s := New(nil)
	require.True(t, s.Reconcile(domain.RootID, domain.RootID, []domain.Node{
		{ID: "group", Type: "fieldset", Payload: map[string]any{"legend": "Person"}},
		{ID: "email", Type: "text", Name: "Email"},
	}, nil, ""))
	require.True(t, s.Reconcile("zone", "group", nodes("first", "last"), nil, ""))

	snap := s.Snapshot()
	require.Len(t, snap.InitialElements, 2)
	assert.Equal(t, snap.Fields, snap.InitialElements)

	hydrated := New(nil)
	require.True(t, hydrated.Reconcile(domain.RootID, domain.RootID, domain.Nodes(snap.InitialElements), nil, ""))

	assert.Equal(t, s.Tree(), hydrated.Tree())
}

func TestFlushAll_EmptyRoot(t *testing.T) {
	bus := events.New()
	s := New(bus)
	rec := record(bus)

	completed := false
	s.FlushAll(func() { completed = true })

	assert.True(t, completed, "completion is synchronous")
	require.Equal(t, []domain.Channel{domain.ChannelFlush}, rec.channels())
	assert.True(t, rec.events[0].Flushed)
}

func TestFlushAll_FansOutThenPublishesOnce(t *testing.T) {
	s, rec := seeded(t)
	require.True(t, s.Reconcile("A", domain.RootID, nodes("x1", "x2", "x3"), nil, ""))
	rec.reset()

	var flushed []string
	// x1 and x2 share the container flush, as a canvas binds its elements; x3 has no binding.
	containerFlush := func(id string) domain.FlushHook {
		return func(onDone domain.DoneFunc) {
			flushed = append(flushed, id)
			s.Reconcile("A", domain.RootID, nil, onDone, "")
		}
	}
	s.Bind("x1", domain.Binding{Owner: "A", Flush: containerFlush("x1")})
	s.Bind("x2", domain.Binding{Owner: "A", Flush: containerFlush("x2")})
	s.Bind("x3", domain.Binding{Owner: "A"})

	completed := 0
	s.FlushAll(func() { completed++ })

	assert.Equal(t, 1, completed)
	assert.Equal(t, []string{"x1", "x2"}, flushed)
	assert.Empty(t, rootIDs(s))
	require.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelFlush}, rec.channels())
	assert.Empty(t, rec.events[0].Tree.Fields)
}

func TestFlushAll_HookCallingDoneTwice(t *testing.T) {
	s, rec := seeded(t)
	for _, id := range []string{"x1", "x2"} {
		s.Bind(id, domain.Binding{Flush: func(onDone domain.DoneFunc) {
			s.Reconcile("A", domain.RootID, nil, nil, "")
			onDone(s.Tree())
			onDone(s.Tree())
		}})
	}

	completed := 0
	s.FlushAll(func() { completed++ })
	assert.Equal(t, 1, completed)
	assert.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelFlush}, rec.channels())
}

func TestFlushAll_HookNeverCompleting(t *testing.T) {
	s, rec := seeded(t)
	var late domain.DoneFunc
	s.Bind("x1", domain.Binding{Flush: func(onDone domain.DoneFunc) { late = onDone }})

	completed := 0
	s.FlushAll(func() { completed++ })

	assert.Equal(t, 1, completed, "the join is forced once the fan-out returns")
	assert.Equal(t, []domain.Channel{domain.ChannelChange, domain.ChannelFlush}, rec.channels())

	require.NotNil(t, late)
	late(s.Tree())
	assert.Equal(t, 1, completed, "a late completion is ignored")

	s.Unbind("x1", "")
	rec.reset()
	require.True(t, s.Reconcile("A", domain.RootID, nodes("x1", "b"), nil, ""))
	assert.Equal(t, []domain.Channel{domain.ChannelChange}, rec.channels(), "change is published again")
}

func TestBindingOwnership(t *testing.T) {
	s := New(nil)
	s.Bind("x", domain.Binding{Owner: "B"})
	s.Unbind("x", "A")
	_, ok := s.Binding("x")
	assert.True(t, ok, "another owner cannot drop the binding")

	s.Unbind("x", "B")
	_, ok = s.Binding("x")
	assert.False(t, ok)
}
