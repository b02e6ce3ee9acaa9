package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	Highlighted []string
	Selected    string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a tree.
// It applies structural styling:
// - Root: ((Circle))
// - Host (has children): [[Subroutine]]
// - Leaf: [Rectangle]
// Edges carry the container id when it differs from the parent node id,
// so several containers sharing one parent stay distinguishable.
func GenerateMermaid(root domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	writeNode(&sb, root)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef highlighted fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Highlighted {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s highlighted;\n", safeID))
			}
		}

		if overlay.Selected != "" {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.Selected)))
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, n domain.Node) {
	safeID := sanitizeMermaidID(n.ID)

	opener, closer := "[", "]"
	switch {
	case n.ID == domain.RootID:
		opener, closer = "((", "))"
	case !n.IsLeaf():
		opener, closer = "[[", "]]"
	}

	sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label(n), closer))

	for _, child := range n.Fields {
		arrow := "-->"
		if child.ContainerID != "" && child.ContainerID != n.ID {
			safeContainer := strings.ReplaceAll(child.ContainerID, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", safeContainer)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(child.ID)))
	}

	for _, child := range n.Fields {
		writeNode(sb, child)
	}
}

func label(n domain.Node) string {
	text := n.ID
	if n.Type != "" {
		text = fmt.Sprintf("%s <br/> %s", n.ID, n.Type)
	}
	return strings.ReplaceAll(text, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
