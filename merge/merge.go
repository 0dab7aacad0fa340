// Package merge implements deep merging of translation trees.
//
// A widget's own translations are layered over the shared default
// translations:
//   - Keys present on one side only are passed through unchanged.
//   - Keys present on both sides recurse when both values are trees.
//   - Sequences on both sides are concatenated, base first, duplicates kept.
//   - Otherwise the override value wins.
package merge

import (
	"github.com/minios-linux/ars/msgtree"
)

// Trees returns the deep merge of base and override. Neither input is
// modified; the result shares no trees or sequences with them.
// Key order: base keys in base order, then override-only keys.
func Trees(base, override *msgtree.Tree) *msgtree.Tree {
	if base == nil && override == nil {
		return msgtree.New()
	}
	if override == nil {
		return base.Clone()
	}
	if base == nil {
		return override.Clone()
	}

	result := msgtree.New()
	for _, key := range base.Keys() {
		bv, _ := base.Get(key)
		ov, ok := override.Get(key)
		if !ok {
			result.Set(key, msgtree.CloneValue(bv))
			continue
		}
		result.Set(key, values(bv, ov))
	}
	for _, key := range override.Keys() {
		if _, ok := base.Get(key); ok {
			continue
		}
		ov, _ := override.Get(key)
		result.Set(key, msgtree.CloneValue(ov))
	}
	return result
}

// values merges two values found under the same key.
func values(base, override any) any {
	switch b := base.(type) {
	case *msgtree.Tree:
		if o, ok := override.(*msgtree.Tree); ok {
			return Trees(b, o)
		}
	case []any:
		if o, ok := override.([]any); ok {
			out := make([]any, 0, len(b)+len(o))
			for _, e := range b {
				out = append(out, msgtree.CloneValue(e))
			}
			for _, e := range o {
				out = append(out, msgtree.CloneValue(e))
			}
			return out
		}
	}
	return msgtree.CloneValue(override)
}

// Languages merges per-language trees. Every language present on either
// side appears in the result; a language missing on one side merges with
// an empty tree.
func Languages(base, override map[string]*msgtree.Tree) map[string]*msgtree.Tree {
	result := make(map[string]*msgtree.Tree, len(base)+len(override))
	for lang, tree := range base {
		result[lang] = Trees(tree, override[lang])
	}
	for lang, tree := range override {
		if _, ok := base[lang]; ok {
			continue
		}
		result[lang] = Trees(nil, tree)
	}
	return result
}
