package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Canvas(t *testing.T) {
	b := New()

	b.Add("header").
		Type("text").
		Name("Header")

	contact := b.Add("contact").Type("group").Set("legend", "Contact")
	contact.Child("email").Type("text").In("contact-body")
	contact.Child("phone").Type("text").In("contact-body").Payload(map[string]any{"mask": "(99) 9999-9999"})

	loader, err := b.Build()
	require.NoError(t, err)

	nodes, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "header", nodes[0].ID)
	assert.Equal(t, "Header", nodes[0].Name)
	assert.Nil(t, nodes[0].Fields)

	group := nodes[1]
	assert.Equal(t, "Contact", group.Payload["legend"])
	assert.Equal(t, []string{"email", "phone"}, group.IDs())
	assert.Equal(t, "contact", group.Fields[0].ParentNodeID)
	assert.Equal(t, "contact-body", group.Fields[1].ContainerID)
	assert.Equal(t, "(99) 9999-9999", group.Fields[1].Payload["mask"])
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	b.Add("a").Type("text")
	b.Add("a").Name("Again")

	p := b.Add("p")
	p.Child("c").Type("text")
	p.Child("c").Name("C")

	nodes := b.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "text", nodes[0].Type)
	assert.Equal(t, "Again", nodes[0].Name)
	require.Len(t, nodes[1].Fields, 1)
	assert.Equal(t, "C", nodes[1].Fields[0].Name)
}

func TestBuilder_Invalid(t *testing.T) {
	t.Run("Empty ID", func(t *testing.T) {
		b := New()
		b.Add("")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("Duplicate Across Levels", func(t *testing.T) {
		b := New()
		b.Add("a")
		b.Add("p").Child("a")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrDuplicateID)
	})
}

func TestBuilder_BuildIsolation(t *testing.T) {
	b := New()
	n := b.Add("a").Set("k", "v")

	built := n.Build()
	built.Payload["k"] = "changed"
	assert.Equal(t, "v", n.Build().Payload["k"])
}

func TestBuilder_Bootstrap(t *testing.T) {
	b := New()
	b.Add("header").Type("text")
	b.Add("contact").Type("group").Child("email").Type("text").In("contact-body")

	loader, err := b.Build()
	require.NoError(t, err)

	eng := arbor.New(arbor.WithLayoutLoader(loader))
	require.NoError(t, eng.Bootstrap(context.Background()))
	assert.Equal(t, []string{"header", "contact"}, eng.Tree().IDs())

	el, err := eng.Element("email")
	require.NoError(t, err)
	assert.Equal(t, "contact-body", el.ContainerID)
}
