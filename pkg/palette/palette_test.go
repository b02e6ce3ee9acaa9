package palette

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(
		Template{Type: "text", Name: "Text"},
		Template{Type: "image", Name: "Image"},
	))
	require.NoError(t, r.Register(Template{Type: "text", Name: "Paragraph"}))

	list := r.Templates()
	require.Len(t, list, 2)
	assert.Equal(t, "Paragraph", list[0].Name, "overwrite keeps the position")
	assert.Equal(t, "image", list[1].Type)

	assert.ErrorIs(t, r.Register(Template{Name: "nameless"}), domain.ErrInvalidID)
}

func TestRegistry_SpawnUniqueIDs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Template{
		Type:    "group",
		Name:    "Group",
		Payload: map[string]any{"legend": "Contact"},
		Fields: []domain.Node{
			{ID: "tpl-a", Type: "text"},
			{ID: "tpl-b", Type: "row", Fields: []domain.Node{{ID: "tpl-c", Type: "text"}}},
		},
	}))

	a, err := r.Spawn("group")
	require.NoError(t, err)
	b, err := r.Spawn("group")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.ID, "group-"))
	assert.NotEqual(t, a.ID, b.ID)
	require.NoError(t, domain.ValidateTree(domain.Node{ID: domain.RootID, Fields: []domain.Node{a, b}}))
	assert.Equal(t, 4, a.Count())

	a.Payload["legend"] = "changed"
	tpl, _ := r.Template("group")
	assert.Equal(t, "Contact", tpl.Payload["legend"])
}

func TestRegistry_SpawnUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Spawn("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownTemplate)
}

func TestRegistry_WithIDFunc(t *testing.T) {
	n := 0
	r := NewRegistry(WithIDFunc(func(typ string) string {
		n++
		return fmt.Sprintf("%s%d", typ, n)
	}))
	require.NoError(t, r.Register(Template{Type: "text"}))

	el, err := r.Spawn("text")
	require.NoError(t, err)
	assert.Equal(t, "text1", el.ID)
}
