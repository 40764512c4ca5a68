// Package document models the hierarchical marker documents consumed by the
// map renderer. A Tree is a plain map[string]any whose leaves are strings,
// ints, float64s, bools, nil or []any, so it composes directly with
// layering.MergeLayers.
package document

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrParse reports a document that could not be read as a tree.
var ErrParse = errors.New("document: parse error")

// Tree is the in-memory form of a document.
type Tree = map[string]any

// New returns an empty document.
func New() Tree {
	return Tree{}
}

// Mapping reports whether v is a nested mapping and returns it.
func Mapping(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Lookup walks path through nested mappings.
func Lookup(tree Tree, path ...string) (any, bool) {
	var current any = tree
	for _, key := range path {
		m, ok := Mapping(current)
		if !ok || m == nil {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// LookupMapping walks path and requires the node found to be a mapping.
// A node that exists but is not a mapping yields an ErrParse-wrapped error.
func LookupMapping(tree Tree, path ...string) (map[string]any, bool, error) {
	node, ok := Lookup(tree, path...)
	if !ok {
		return nil, false, nil
	}
	m, isMap := Mapping(node)
	if !isMap {
		return nil, true, &PathError{Path: path, Err: ErrParse}
	}
	return m, true, nil
}

// CheckPath verifies every existing node along path is a mapping, so that an
// overlay built with Nest can be merged without replacing scalar content.
func CheckPath(tree Tree, path ...string) error {
	var current any = tree
	for i, key := range path {
		m, ok := Mapping(current)
		if !ok {
			return &PathError{Path: path[:i], Err: ErrParse}
		}
		next, exists := m[key]
		if !exists || next == nil {
			return nil
		}
		current = next
	}
	if _, ok := Mapping(current); !ok {
		return &PathError{Path: path, Err: ErrParse}
	}
	return nil
}

// Nest wraps leaf in one mapping per path element, outermost first.
func Nest(leaf any, path ...string) Tree {
	if len(path) == 0 {
		if m, ok := Mapping(leaf); ok {
			return m
		}
		return Tree{}
	}
	node := leaf
	for i := len(path) - 1; i >= 0; i-- {
		node = map[string]any{path[i]: node}
	}
	return node.(map[string]any)
}

// IsEmpty reports whether v carries no content: nil, an empty mapping, list or
// string, or false.
func IsEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	case string:
		return value == ""
	case bool:
		return !value
	default:
		return false
	}
}

// Int coerces a numeric leaf to int. Strings holding integers are accepted
// because hand-edited documents sometimes quote numbers.
func Int(v any) (int, bool) {
	switch value := v.(type) {
	case int:
		return value, true
	case int32:
		return int(value), true
	case int64:
		return int(value), true
	case float32:
		return floatToInt(float64(value))
	case float64:
		return floatToInt(value)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// PathError names the document path that failed to resolve.
type PathError struct {
	Path []string
	Err  error
}

func (e *PathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, ".")
	if path == "" {
		path = "<root>"
	}
	return "document: " + path + " is not a mapping: " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
