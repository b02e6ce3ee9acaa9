package domain

import (
	"fmt"
	"reflect"
	"strings"
)

// SnapshotNode is a function-free copy of a Node.
// Whenever a node has children they are mirrored into InitialElements, so the same
// value can be read as "current children" or as the bootstrap batch of a freshly
// constructed container.
type SnapshotNode struct {
	ID              string         `json:"id" yaml:"id" mapstructure:"id"`
	Type            string         `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Name            string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Payload         map[string]any `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
	ContainerID     string         `json:"containerID,omitempty" yaml:"containerID,omitempty" mapstructure:"containerID"`
	ParentNodeID    string         `json:"parentNodeID,omitempty" yaml:"parentNodeID,omitempty" mapstructure:"parentNodeID"`
	Fields          []SnapshotNode `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
	InitialElements []SnapshotNode `json:"initialElements,omitempty" yaml:"initialElements,omitempty" mapstructure:"initialElements"`
}

// NewSnapshot builds the snapshot of a node and its subtree.
func NewSnapshot(n Node) SnapshotNode {
	s := SnapshotNode{
		ID:           n.ID,
		Type:         n.Type,
		Name:         n.Name,
		Payload:      StripFuncs(n.Payload),
		ContainerID:  n.ContainerID,
		ParentNodeID: n.ParentNodeID,
	}
	if len(n.Fields) > 0 {
		s.Fields = make([]SnapshotNode, len(n.Fields))
		s.InitialElements = make([]SnapshotNode, len(n.Fields))
		for i, child := range n.Fields {
			cs := NewSnapshot(child)
			s.Fields[i] = cs
			s.InitialElements[i] = cs
		}
	}
	return s
}

// Node rebuilds the data record. Fields wins over InitialElements when both are set.
func (s SnapshotNode) Node() Node {
	n := Node{
		ID:           s.ID,
		Type:         s.Type,
		Name:         s.Name,
		Payload:      ClonePayload(s.Payload),
		ContainerID:  s.ContainerID,
		ParentNodeID: s.ParentNodeID,
	}
	children := s.Fields
	if len(children) == 0 {
		children = s.InitialElements
	}
	if len(children) > 0 {
		n.Fields = make([]Node, len(children))
		for i, child := range children {
			n.Fields[i] = child.Node()
		}
	}
	return n
}

// Nodes converts a snapshot batch (typically InitialElements) into nodes.
func Nodes(batch []SnapshotNode) []Node {
	out := make([]Node, len(batch))
	for i, s := range batch {
		out[i] = s.Node()
	}
	return out
}

// StripFuncs returns a deep copy of the payload without function or channel values,
// at any depth. Maps, slices and arrays of any element type are walked; typed ones that
// may hold functions come back as map[string]any or []any, structs as a map of their
// exported fields, and pointers are dereferenced.
func StripFuncs(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if sv, keep := stripValue(v); keep {
			out[k] = sv
		}
	}
	return out
}

// stripValue reports false when v itself must be dropped.
func stripValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case map[string]any:
		return StripFuncs(val), true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if sv, keep := stripValue(item); keep {
				out = append(out, sv)
			}
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if !mayHoldFunc(rv.Type(), map[reflect.Type]bool{}) {
		return v, true
	}
	return stripReflect(rv)
}

func stripReflect(rv reflect.Value) (any, bool) {
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil, true
		}
		return stripValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return nil, true
		}
		return stripElems(rv), true
	case reflect.Array:
		return stripElems(rv), true
	case reflect.Map:
		if rv.IsNil() {
			return nil, true
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if sv, keep := stripValue(iter.Value().Interface()); keep {
				out[fmt.Sprint(iter.Key().Interface())] = sv
			}
		}
		return out, true
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			if sv, keep := stripValue(rv.Field(i).Interface()); keep {
				out[name] = sv
			}
		}
		return out, true
	default:
		return rv.Interface(), true
	}
}

func stripElems(rv reflect.Value) []any {
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if sv, keep := stripValue(rv.Index(i).Interface()); keep {
			out = append(out, sv)
		}
	}
	return out
}

// mayHoldFunc reports whether a value of type t can reach a function or channel.
// Interfaces count, since their dynamic value is unknown.
func mayHoldFunc(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		return true
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return mayHoldFunc(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() && mayHoldFunc(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}
