package textmeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoDescriptor reports that a widget declares no metadata.
var ErrNoDescriptor = errors.New("no metadata descriptor")

// Resolver looks up the metadata a widget declares itself.
// It returns an error wrapping ErrNoDescriptor when there is none.
type Resolver interface {
	Resolve(widget string) (Metadata, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(widget string) (Metadata, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(widget string) (Metadata, error) { return f(widget) }

// Registry is an in-memory Resolver.
type Registry map[string]Metadata

// Resolve implements Resolver.
func (r Registry) Resolve(widget string) (Metadata, error) {
	m, ok := r[widget]
	if !ok {
		return Metadata{}, fmt.Errorf("%s: %w", widget, ErrNoDescriptor)
	}
	return m, nil
}

// DescriptorNames lists the descriptor files DirResolver looks for in a
// widget directory, in order.
var DescriptorNames = []string{"meta.json", "meta.yaml", "meta.yml"}

// DirResolver reads descriptors from <ServicesDir>/<widget>/meta.json
// (or meta.yaml):
//
//	{
//	    "hideable": ["banner.subtitle"],
//	    "html": ["banner.body"],
//	    "details": { "banner.body": { "maxLength": 200 } }
//	}
type DirResolver struct {
	ServicesDir string
}

// Resolve implements Resolver.
func (r DirResolver) Resolve(widget string) (Metadata, error) {
	dir := filepath.Join(r.ServicesDir, widget)
	for _, name := range DescriptorNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Metadata{}, fmt.Errorf("reading %s: %w", path, err)
		}
		m, err := parseDescriptor(data, filepath.Ext(name))
		if err != nil {
			return Metadata{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return m, nil
	}
	return Metadata{}, fmt.Errorf("%s: %w", widget, ErrNoDescriptor)
}

type descriptor struct {
	Hideable []string       `json:"hideable" yaml:"hideable"`
	HTML     []string       `json:"html" yaml:"html"`
	Details  map[string]any `json:"details" yaml:"details"`
}

func parseDescriptor(data []byte, ext string) (Metadata, error) {
	var d descriptor
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return Metadata{}, err
	}
	details, err := jsonDetails(d.Details)
	if err != nil {
		return Metadata{}, err
	}
	// Union drops duplicates within the descriptor itself.
	return Metadata{}.Union(Metadata{Hideable: d.Hideable, HTML: d.HTML, Details: details}), nil
}

// jsonDetails re-decodes details through JSON so that every value is a
// JSON type. YAML mappings with non-string keys cannot be represented and
// are rejected.
func jsonDetails(details map[string]any) (map[string]any, error) {
	if len(details) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	return out, nil
}
