// Package palette holds the element templates a builder offers for dropping.
package palette

import (
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/google/uuid"
)

// Template describes an element type the palette can spawn.
type Template struct {
	Type    string         `json:"type" yaml:"type" mapstructure:"type"`
	Name    string         `json:"name" yaml:"name" mapstructure:"name"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
	// Fields are default children; spawning gives each of them a fresh id too.
	Fields []domain.Node `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
}

// IDFunc generates element ids for a template type.
type IDFunc func(elementType string) string

// Registry manages the available templates, in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	templates map[string]Template
	newID     IDFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDFunc replaces the uuid based id generator.
func WithIDFunc(fn IDFunc) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		templates: make(map[string]Template),
		newID: func(elementType string) string {
			return elementType + "-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds templates to the registry.
// If a template with the same type exists, it is overwritten in place.
func (r *Registry) Register(templates ...Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range templates {
		if t.Type == "" {
			return fmt.Errorf("template without type: %w", domain.ErrInvalidID)
		}
		if _, exists := r.templates[t.Type]; !exists {
			r.order = append(r.order, t.Type)
		}
		r.templates[t.Type] = t
	}
	return nil
}

// Templates returns the registered templates in registration order.
func (r *Registry) Templates() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.order))
	for _, typ := range r.order {
		out = append(out, r.templates[typ])
	}
	return out
}

// Template looks up a template by type.
func (r *Registry) Template(elementType string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[elementType]
	return t, ok
}

// Spawn creates a fresh element from the template of elementType.
// Returns an error if the template is not found.
func (r *Registry) Spawn(elementType string) (domain.Node, error) {
	t, ok := r.Template(elementType)
	if !ok {
		return domain.Node{}, fmt.Errorf("%s: %w", elementType, domain.ErrUnknownTemplate)
	}

	n := domain.Node{
		ID:      r.newID(t.Type),
		Type:    t.Type,
		Name:    t.Name,
		Payload: domain.ClonePayload(t.Payload),
	}
	if len(t.Fields) > 0 {
		n.Fields = r.respawn(t.Fields)
	}
	return n, nil
}

func (r *Registry) respawn(fields []domain.Node) []domain.Node {
	out := make([]domain.Node, len(fields))
	for i, f := range fields {
		c := f.Clone()
		c.ID = r.newID(c.Type)
		c.ContainerID = ""
		c.ParentNodeID = ""
		if len(f.Fields) > 0 {
			c.Fields = r.respawn(f.Fields)
		}
		out[i] = c
	}
	return out
}
