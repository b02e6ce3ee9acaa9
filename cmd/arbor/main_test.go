package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "arbor version "+strings.TrimSpace(arbor.Version)+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
palette:
  - type: text
elements:
  - id: header
    type: text
  - id: group
    fields:
      - id: inner
`), 0644))

	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "3 elements, 1 templates")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("elements:\n  - id: a\n  - id: a\n"), 0644))
	_, err = run(t, "validate", bad)
	assert.ErrorContains(t, err, "validation failed")
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("elements:\n  - id: header\n    type: text\n"), 0644))

	out, err := run(t, "inspect", "--layout", path, "--log-level", "error", "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "root --> header")
}
