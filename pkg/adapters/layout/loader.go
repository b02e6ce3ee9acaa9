// Package layout loads canvas layouts and palette templates from YAML or JSON files.
package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout document.
type File struct {
	Palette  []palette.Template `mapstructure:"palette"`
	Elements []domain.Node      `mapstructure:"elements"`
}

// Loader implements ports.LayoutLoader and ports.Watchable for a layout file.
type Loader struct {
	path     string
	debounce time.Duration
}

// New creates a loader for the file at path.
func New(path string) *Loader {
	return &Loader{path: path, debounce: 200 * time.Millisecond}
}

// Path returns the layout file path.
func (l *Loader) Path() string { return l.path }

// Load returns the layout's top-level elements.
func (l *Loader) Load(ctx context.Context) ([]domain.Node, error) {
	f, err := l.Read()
	if err != nil {
		return nil, err
	}
	return f.Elements, nil
}

// Read parses the whole layout document and validates its elements.
func (l *Loader) Read() (File, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read layout: %w", err)
	}
	f, err := Parse(data, filepath.Ext(l.path))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", l.path, err)
	}
	return f, nil
}

// Parse decodes a layout document. ext selects the format (".json", otherwise YAML).
func Parse(data []byte, ext string) (File, error) {
	var raw map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &f,
		ErrorUnused: true,
	})
	if err != nil {
		return File{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return File{}, fmt.Errorf("failed to decode layout: %w", err)
	}

	if err := domain.ValidateTree(domain.Node{ID: domain.RootID, Fields: f.Elements}); err != nil {
		return File{}, err
	}
	return f, nil
}
