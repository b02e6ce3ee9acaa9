package tree

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Patch is the allow-listed subset of content an update may change.
// Any other key in the source map (children, container, parent, ...) is ignored.
type Patch struct {
	ID      string         `mapstructure:"id"`
	Name    *string        `mapstructure:"name"`
	Type    *string        `mapstructure:"type"`
	Payload map[string]any `mapstructure:"payload"`
}

// DecodePatch extracts the allow-listed keys from data.
func DecodePatch(data map[string]any) (Patch, error) {
	var p Patch
	if err := mapstructure.Decode(data, &p); err != nil {
		return Patch{}, fmt.Errorf("failed to decode patch: %w", err)
	}
	return p, nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Payload == nil
}

// Apply returns n with the patched fields replaced. The payload is replaced, not merged.
func (p Patch) Apply(n domain.Node) domain.Node {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Payload != nil {
		n.Payload = domain.StripFuncs(p.Payload)
	}
	return n
}
