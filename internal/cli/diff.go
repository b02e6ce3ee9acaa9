package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/pkg/adapters/layout"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ResolveSnapshot reads ref from disk when it names an existing file,
// otherwise loads the snapshot saved under that name.
func (rt *Runtime) ResolveSnapshot(ctx context.Context, ref string) (domain.SnapshotNode, error) {
	if _, err := os.Stat(ref); err == nil {
		return ReadSnapshotFile(ref)
	}
	return rt.Snapshots.Load(ctx, ref)
}

// ReadSnapshotFile accepts either a layout document or a saved snapshot (JSON).
func ReadSnapshotFile(path string) (domain.SnapshotNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SnapshotNode{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f, layoutErr := layout.Parse(data, filepath.Ext(path))
	if layoutErr == nil {
		return domain.NewSnapshot(domain.Node{ID: domain.RootID, Fields: f.Elements}), nil
	}

	var snap domain.SnapshotNode
	if err := json.Unmarshal(data, &snap); err != nil || snap.ID != domain.RootID {
		return domain.SnapshotNode{}, fmt.Errorf("%s is neither a layout nor a snapshot: %w", path, layoutErr)
	}
	if err := domain.ValidateTree(snap.Node()); err != nil {
		return domain.SnapshotNode{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Diff renders a line diff of the indented JSON of two snapshots.
// The boolean reports whether they differ.
func Diff(a, b domain.SnapshotNode) (string, bool, error) {
	left, err := canonical(a)
	if err != nil {
		return "", false, err
	}
	right, err := canonical(b)
	if err != nil {
		return "", false, err
	}
	if left == right {
		return "", false, nil
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), true, nil
}

// canonical drops the InitialElements mirror so each child appears once.
func canonical(s domain.SnapshotNode) (string, error) {
	data, err := json.MarshalIndent(stripMirror(s), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(data) + "\n", nil
}

func stripMirror(s domain.SnapshotNode) domain.SnapshotNode {
	if len(s.Fields) == 0 && len(s.InitialElements) > 0 {
		s.Fields = s.InitialElements
	}
	s.InitialElements = nil
	if len(s.Fields) > 0 {
		fields := make([]domain.SnapshotNode, len(s.Fields))
		for i, child := range s.Fields {
			fields[i] = stripMirror(child)
		}
		s.Fields = fields
	}
	return s
}
