package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		root     domain.Node
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Root Shape",
			root: domain.Node{ID: domain.RootID},
			contains: []string{
				"graph TD",
				"root((\"root\"))",
			},
		},
		{
			name: "Host And Leaf Shapes",
			root: domain.Node{ID: domain.RootID, Fields: []domain.Node{
				{ID: "section", Type: "section", ContainerID: domain.RootID, Fields: []domain.Node{
					{ID: "n1", Type: "text", ContainerID: "body", ParentNodeID: "section"},
				}},
			}},
			contains: []string{
				"section[[\"section <br/> section\"]]",
				"n1[\"n1 <br/> text\"]",
			},
		},
		{
			name: "Container Edge Labels",
			root: domain.Node{ID: domain.RootID, Fields: []domain.Node{
				{ID: "row", ContainerID: domain.RootID, Fields: []domain.Node{
					{ID: "a", ContainerID: "left", ParentNodeID: "row"},
					{ID: "b", ContainerID: "right", ParentNodeID: "row"},
				}},
			}},
			contains: []string{
				"root --> row",
				"row -- \"left\" --> a",
				"row -- \"right\" --> b",
			},
		},
		{
			name: "ID Sanitization",
			root: domain.Node{ID: domain.RootID, Fields: []domain.Node{
				{ID: "path/to/file.md", ContainerID: domain.RootID},
				{ID: "hyphen-ated", ContainerID: domain.RootID},
			}},
			contains: []string{
				"path_to_file_md[\"path/to/file.md\"]",
				"hyphen_ated[\"hyphen-ated\"]",
				"root --> hyphen_ated",
			},
		},
		{
			name: "Overlay",
			root: domain.Node{ID: domain.RootID, Fields: []domain.Node{
				{ID: "x-1", ContainerID: domain.RootID},
				{ID: "x-2", ContainerID: domain.RootID},
			}},
			overlay: &graph.GraphOverlay{Highlighted: []string{"x-1", "x-1", ""}, Selected: "x-2"},
			contains: []string{
				"classDef highlighted",
				"class x_1 highlighted;",
				"class x_2 selected;",
			},
		},
		{
			name:     "No Overlay",
			root:     domain.Node{ID: domain.RootID},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.root, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() missing %q\nGot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() unexpectedly contains %q\nGot:\n%s", unwanted, got)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class x_1 highlighted;") != 1 {
				t.Errorf("highlighted ids must be deduplicated\nGot:\n%s", got)
			}
		})
	}
}
