package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Outline renders the tree as a markdown document: a heading followed by a
// nested list where every item shows id, type, name and owning container.
func Outline(title string, root domain.Node) string {
	var sb strings.Builder
	if title == "" {
		title = "Tree"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	if root.IsLeaf() {
		sb.WriteString("_empty_\n")
		return sb.String()
	}

	for _, child := range root.Fields {
		writeItem(&sb, child, 0)
	}
	sb.WriteString(fmt.Sprintf("\n%d element(s)\n", root.Count()-1))
	return sb.String()
}

func writeItem(sb *strings.Builder, n domain.Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(fmt.Sprintf("- **%s**", n.ID))
	if n.Type != "" {
		sb.WriteString(fmt.Sprintf(" `%s`", n.Type))
	}
	if n.Name != "" {
		sb.WriteString(" " + n.Name)
	}
	if n.ContainerID != "" && n.ContainerID != domain.RootID {
		sb.WriteString(fmt.Sprintf(" _(in %s)_", n.ContainerID))
	}
	if keys := payloadKeys(n.Payload); len(keys) > 0 {
		sb.WriteString(fmt.Sprintf(" [%s]", strings.Join(keys, ", ")))
	}
	sb.WriteString("\n")

	for _, child := range n.Fields {
		writeItem(sb, child, depth+1)
	}
}

func payloadKeys(p map[string]any) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
