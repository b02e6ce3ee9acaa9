package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mask replaces the value of every redacted payload key.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks payload values whose key matches
// one of the patterns, in every node of the snapshot, before it is stored.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, name string, snapshot domain.SnapshotNode) error {
	return m.next.Save(ctx, name, m.mask(snapshot))
}

func (m *piiMiddleware) Load(ctx context.Context, name string) (domain.SnapshotNode, error) {
	return m.next.Load(ctx, name)
}

func (m *piiMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask works on a copy so the caller's snapshot is left untouched.
func (m *piiMiddleware) mask(s domain.SnapshotNode) domain.SnapshotNode {
	out := s
	if s.Payload != nil {
		out.Payload = domain.ClonePayload(s.Payload)
		maskMap(out.Payload, m.patterns)
	}
	out.Fields = m.maskAll(s.Fields)
	out.InitialElements = m.maskAll(s.InitialElements)
	return out
}

func (m *piiMiddleware) maskAll(batch []domain.SnapshotNode) []domain.SnapshotNode {
	if batch == nil {
		return nil
	}
	out := make([]domain.SnapshotNode, len(batch))
	for i, child := range batch {
		out[i] = m.mask(child)
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matchAny(k, patterns) {
			m[k] = Mask
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			maskMap(val, patterns)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					maskMap(sub, patterns)
				}
			}
		}
	}
}

func matchAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
