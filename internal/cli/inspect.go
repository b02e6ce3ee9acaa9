package cli

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Render.
const (
	FormatOutline = "outline"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// Render formats a tree for display. Outline output is markdown, meant to go
// through a tui renderer.
func Render(title string, root domain.Node, format string) (string, error) {
	switch format {
	case FormatOutline, "":
		return tui.Outline(title, root), nil
	case FormatMermaid:
		return graph.GenerateMermaid(root, nil), nil
	case FormatJSON:
		data, err := json.MarshalIndent(domain.NewSnapshot(root), "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(domain.NewSnapshot(root))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (want outline, mermaid, json or yaml)", format)
	}
}
