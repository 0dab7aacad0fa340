// Package manifest assembles the build manifest: the list of every output
// asset plus, in web components mode, the loader, title and locale
// documents of every widget.
//
// A manifest has exactly one of two shapes. Spa describes a single-page
// build; WebComponents describes independently loadable widgets. The JSON
// encoding of each shape carries only its own discriminating key ("spa" or
// "web_components"), and documents are checked against an embedded JSON
// schema before they are written or after they are read.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FileName is the name of the manifest document in the output directory.
const FileName = "manifest.json"

// Manifest is either Spa or WebComponents.
type Manifest interface {
	// Base returns the fields shared by both shapes.
	Base() Common
	isManifest()
}

// Common holds the fields shared by both manifest shapes.
type Common struct {
	Name      string
	Version   string
	TargetURL string
	Assets    []string
}

// Base implements Manifest.
func (c Common) Base() Common { return c }

// Spa is the single-page manifest.
type Spa struct {
	Common
}

// WebComponents is the multi-widget manifest.
type WebComponents struct {
	Common
	Components map[string]ComponentEntry
}

func (Spa) isManifest()           {}
func (WebComponents) isManifest() {}

// Locale points at one locale document.
type Locale struct {
	Lang string `json:"lang"`
	Path string `json:"path"`
}

// ComponentEntry describes one widget.
type ComponentEntry struct {
	// Path is the widget's loader script.
	Path string `json:"path"`
	// Name is the display title.
	Name    string   `json:"name"`
	Locales []Locale `json:"locales"`
	// LocalesMetadataPath is empty when the widget has no metadata document.
	LocalesMetadataPath string `json:"locales_metadata_path,omitempty"`
}

type commonJSON struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	TargetURL string   `json:"target_url"`
	Assets    []string `json:"assets"`
}

func (c Common) wire() commonJSON {
	assets := c.Assets
	if assets == nil {
		assets = []string{}
	}
	return commonJSON{Name: c.Name, Version: c.Version, TargetURL: c.TargetURL, Assets: assets}
}

func (w commonJSON) common() Common {
	return Common{Name: w.Name, Version: w.Version, TargetURL: w.TargetURL, Assets: w.Assets}
}

// MarshalJSON writes the single-page shape.
func (m Spa) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		commonJSON
		Spa bool `json:"spa"`
	}{m.wire(), true})
}

// MarshalJSON writes the multi-widget shape.
func (m WebComponents) MarshalJSON() ([]byte, error) {
	components := make(map[string]ComponentEntry, len(m.Components))
	for name, c := range m.Components {
		if c.Locales == nil {
			c.Locales = []Locale{}
		}
		components[name] = c
	}
	return json.Marshal(struct {
		commonJSON
		WebComponents map[string]ComponentEntry `json:"web_components"`
	}{m.wire(), components})
}

// Encode renders m as indented JSON and validates the result.
func Encode(m Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Decode validates a manifest document and returns its shape.
func Decode(data []byte) (Manifest, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var raw struct {
		commonJSON
		Spa           *bool                     `json:"spa"`
		WebComponents map[string]ComponentEntry `json:"web_components"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if raw.Spa != nil {
		return Spa{Common: raw.common()}, nil
	}
	return WebComponents{Common: raw.common(), Components: raw.WebComponents}, nil
}
