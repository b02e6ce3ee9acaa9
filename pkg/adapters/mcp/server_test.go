package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Engine = (*arbor.Engine)(nil)

func newServer(t *testing.T) (*Server, *arbor.Engine) {
	t.Helper()
	reg := palette.NewRegistry()
	require.NoError(t, reg.Register(palette.Template{Type: "text", Name: "Text"}))
	eng := arbor.New(
		arbor.WithPalette(reg),
		arbor.WithLayoutLoader(memory.NewLoader(
			domain.Node{ID: "header", Type: "text"},
			domain.Node{ID: "contact", Type: "group", Fields: []domain.Node{
				{ID: "email", Type: "text", ContainerID: "contact-body"},
			}},
		)),
	)
	require.NoError(t, eng.Bootstrap(context.Background()))
	return NewServer(eng), eng
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestGetSnapshot(t *testing.T) {
	s, _ := newServer(t)

	res := call(t, s.handleGetSnapshot, nil)
	require.False(t, res.IsError)

	var resp SnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &resp))
	assert.Equal(t, domain.RootID, resp.Snapshot.ID)
	require.Len(t, resp.Snapshot.InitialElements, 2)
	assert.Equal(t, "email", resp.Snapshot.InitialElements[1].InitialElements[0].ID)
	assert.NotZero(t, resp.Revision)
}

func TestReconcileChildren(t *testing.T) {
	s, eng := newServer(t)

	res := call(t, s.handleReconcile, map[string]any{
		"container_id":   "contact-body",
		"parent_node_id": "contact",
		"children": []any{
			map[string]any{"id": "email", "type": "text"},
			map[string]any{"id": "phone", "type": "text"},
		},
	})
	require.False(t, res.IsError, text(t, res))

	n, ok := eng.Tree().Find("contact")
	require.True(t, ok)
	assert.Equal(t, []string{"email", "phone"}, n.IDs())

	res = call(t, s.handleReconcile, map[string]any{
		"container_id": "contact-body",
		"children":     []any{map[string]any{"id": ""}},
	})
	assert.True(t, res.IsError)
}

func TestRemoveAndUpdate(t *testing.T) {
	s, eng := newServer(t)

	res := call(t, s.handleUpdate, map[string]any{"id": "email", "name": "E-mail"})
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), `"name":"E-mail"`)

	res = call(t, s.handleUpdate, map[string]any{"id": "email"})
	assert.True(t, res.IsError)

	var trashed bool
	eng.Bus().OnElementRemove(func(ev domain.RemoveEvent) { trashed = ev.Trashed })

	res = call(t, s.handleRemove, map[string]any{"id": "email", "trash": true})
	require.False(t, res.IsError, text(t, res))
	assert.True(t, trashed)

	res = call(t, s.handleRemove, map[string]any{"id": "email"})
	assert.True(t, res.IsError)

	res = call(t, s.handleRemove, map[string]any{})
	assert.True(t, res.IsError)
}

func TestMoveAndSpawn(t *testing.T) {
	s, eng := newServer(t)

	res := call(t, s.handleMove, map[string]any{
		"id":             "header",
		"container_id":   "contact-body",
		"parent_node_id": "contact",
		"index":          float64(0),
	})
	require.False(t, res.IsError, text(t, res))
	n, _ := eng.Tree().Find("contact")
	assert.Equal(t, []string{"header", "email"}, n.IDs())

	res = call(t, s.handleSpawn, map[string]any{"type": "text", "container_id": domain.RootID})
	require.False(t, res.IsError, text(t, res))
	var spawned domain.Node
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &spawned))
	ids := eng.Tree().IDs()
	assert.Equal(t, spawned.ID, ids[len(ids)-1])

	res = call(t, s.handleSpawn, map[string]any{"type": "video", "container_id": domain.RootID})
	assert.True(t, res.IsError)
}

func TestSnapshotsAndFlush(t *testing.T) {
	s, eng := newServer(t)

	res := call(t, s.handleSaveSnapshot, map[string]any{"name": "draft"})
	require.False(t, res.IsError, text(t, res))

	res = call(t, s.handleFlushAll, nil)
	require.False(t, res.IsError)
	assert.Empty(t, eng.Tree().Fields)

	res = call(t, s.handleListSnapshots, nil)
	assert.JSONEq(t, `["draft"]`, text(t, res))

	res = call(t, s.handleLoadSnapshot, map[string]any{"name": "draft"})
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, []string{"header", "contact"}, eng.Tree().IDs())

	res = call(t, s.handleLoadSnapshot, map[string]any{"name": "missing"})
	assert.True(t, res.IsError)
}

func TestProtocol(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	list := s.MCPServer().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(list)
	require.NoError(t, err)
	for _, name := range []string{"get_snapshot", "reconcile_children", "remove_element", "update_element", "flush_all"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}

	read := s.MCPServer().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"arbor://snapshot"}}`))
	data, err = json.Marshal(read)
	require.NoError(t, err)
	assert.Contains(t, string(data), `arbor://snapshot`)
	assert.Contains(t, string(data), `header`)
}
