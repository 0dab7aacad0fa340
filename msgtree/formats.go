package msgtree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Extensions lists the document extensions ParseFile understands.
var Extensions = []string{".json", ".yaml", ".yml", ".toml", ".po"}

// Supported reports whether the file name has a known translation extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ParseFile reads a translation document, choosing the parser by extension.
func ParseFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var tree *Tree
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		tree, err = ParseJSON(data)
	case ".yaml", ".yml":
		tree, err = ParseYAML(data)
	case ".toml":
		tree, err = ParseTOML(data)
	case ".po":
		tree, err = ParsePO(data)
	default:
		return nil, fmt.Errorf("%s: unsupported translation format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// ---------------------------------------------------------------------------
// YAML
// ---------------------------------------------------------------------------

// ParseYAML parses a YAML mapping into a tree, preserving key order.
// An empty document yields an empty tree.
func ParseYAML(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return New(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML root must be a mapping, got kind %d", root.Kind)
	}
	v, err := fromYAML(root)
	if err != nil {
		return nil, err
	}
	return v.(*Tree), nil
}

func fromYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		tree := New()
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := fromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			tree.Set(node.Content[i].Value, v)
		}
		return tree, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!str":
			return node.Value, nil
		case "!!int", "!!float", "!!bool", "!!null":
			var v any
			if err := node.Decode(&v); err != nil {
				return nil, fmt.Errorf("line %d: %w", node.Line, err)
			}
			return v, nil
		}
		return node.Value, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
}

// ---------------------------------------------------------------------------
// TOML
// ---------------------------------------------------------------------------

// ParseTOML parses a TOML document into a tree. TOML tables carry no key
// order once decoded, so keys are sorted.
func ParseTOML(data []byte) (*Tree, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return fromMap(raw), nil
}

func fromMap(m map[string]any) *Tree {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tree := New()
	for _, k := range keys {
		tree.Set(k, fromGeneric(m[k]))
	}
	return tree
}

func fromGeneric(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return fromMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromGeneric(e)
		}
		return out
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// PO
// ---------------------------------------------------------------------------

// ParsePO reads a gettext PO document whose msgids are dot-joined key paths
// ("nav.home") into a tree. Untranslated entries and the header are skipped.
// Keys are sorted since the catalog is unordered.
func ParsePO(data []byte) (*Tree, error) {
	po := gotext.NewPo()
	po.Parse(data)

	translations := po.GetDomain().GetTranslations()
	ids := make([]string, 0, len(translations))
	for id, tr := range translations {
		if id == "" || tr == nil || tr.Trs[0] == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tree := New()
	for _, id := range ids {
		tree.SetPath(id, translations[id].Trs[0])
	}
	return tree, nil
}
