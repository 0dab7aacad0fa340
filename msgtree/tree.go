// Package msgtree implements ordered translation trees.
//
// A translation tree is a nested mapping from string keys to values:
//
//	{
//	    "nav": { "home": "Home", "about": "About" },
//	    "title": "<b>Widget</b>"
//	}
//
// Leaf values are usually strings, but sequences, numbers, booleans and
// nulls are carried through unchanged so documents can be written back
// verbatim. Key order is preserved from the source document through merge,
// flatten and encode.
package msgtree

import (
	"strings"
)

// Tree is an ordered string-keyed mapping. Values are one of:
// string, *Tree, []any, or a scalar (json.Number, int64, float64, bool, nil).
type Tree struct {
	keys   []string
	values map[string]any
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the direct child keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Get returns the direct child stored under key.
func (t *Tree) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (t *Tree) Set(key string, value any) {
	if t.values == nil {
		t.values = make(map[string]any)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// SetPath stores value at a dot-joined path, creating intermediate trees.
// A non-tree value found on the way is replaced by a tree.
func (t *Tree) SetPath(path string, value any) {
	parts := strings.Split(path, ".")
	node := t
	for _, p := range parts[:len(parts)-1] {
		next, ok := node.values[p].(*Tree)
		if !ok {
			next = New()
			node.Set(p, next)
		}
		node = next
	}
	node.Set(parts[len(parts)-1], value)
}

// Lookup returns the string leaf stored at a dot-joined path.
func (t *Tree) Lookup(path string) (string, bool) {
	node := t
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := node.Get(p)
		if !ok {
			return "", false
		}
		if i == len(parts)-1 {
			s, ok := v.(string)
			return s, ok
		}
		if node, ok = v.(*Tree); !ok {
			return "", false
		}
	}
	return "", false
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{
		keys:   make([]string, len(t.keys)),
		values: make(map[string]any, len(t.values)),
	}
	copy(out.keys, t.keys)
	for k, v := range t.values {
		out.values[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies trees and sequences; scalars are returned as is.
func CloneValue(v any) any {
	switch x := v.(type) {
	case *Tree:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Leaf is a string value addressed by its dot-joined key path.
type Leaf struct {
	Path  string
	Value string
}

// Leaves returns every string leaf in depth-first key order. Values that
// are neither strings nor trees are skipped.
func (t *Tree) Leaves() []Leaf {
	var out []Leaf
	t.collect("", &out)
	return out
}

func (t *Tree) collect(prefix string, out *[]Leaf) {
	if t == nil {
		return
	}
	for _, key := range t.keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := t.values[key].(type) {
		case *Tree:
			v.collect(path, out)
		case string:
			*out = append(*out, Leaf{Path: path, Value: v})
		}
	}
}
