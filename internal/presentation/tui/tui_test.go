package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestOutline(t *testing.T) {
	root := domain.Node{ID: domain.RootID, Fields: []domain.Node{
		{ID: "section", Type: "section", ContainerID: domain.RootID, Fields: []domain.Node{
			{ID: "n1", Type: "text", Name: "Title", ContainerID: "body", ParentNodeID: "section",
				Payload: map[string]any{"size": 2, "align": "left"}},
		}},
		{ID: "t1", Type: "text", ContainerID: domain.RootID},
	}}

	out := tui.Outline("Layout", root)

	assert.True(t, strings.HasPrefix(out, "# Layout\n"))
	assert.Contains(t, out, "- **section** `section`\n")
	assert.Contains(t, out, "  - **n1** `text` Title _(in body)_ [align, size]\n")
	assert.Contains(t, out, "- **t1** `text`\n")
	assert.Contains(t, out, "3 element(s)")
}

func TestOutline_Empty(t *testing.T) {
	out := tui.Outline("", domain.Node{ID: domain.RootID})
	assert.Equal(t, "# Tree\n\n_empty_\n", out)
}

func TestRendererFor_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, tui.IsTerminal(&buf))

	render := tui.RendererFor(&buf)
	out, err := render("# hi")
	assert.NoError(t, err)
	assert.Equal(t, "# hi", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_.__/")
}
