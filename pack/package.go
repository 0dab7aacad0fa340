// Package pack bundles a built manifest and every file it references into
// a single compressed asset package (<name>.ars) that the preview server
// can serve without the output directory.
//
// The package is the JSON encoding of Package, compressed with raw DEFLATE.
package pack

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Extension is the file extension of asset packages.
const Extension = ".ars"

// IndexPath is the asset path of the packaged index.html.
const IndexPath = "/"

// ErrNoAssets reports a manifest that references nothing to package.
var ErrNoAssets = errors.New("no assets to package")

// Asset is one packaged file.
type Asset struct {
	Path  string `json:"path"`
	Mime  string `json:"mime"`
	Bytes []byte `json:"bytes"`
}

// Locale is one packaged locale document.
type Locale struct {
	Lang  string `json:"lang"`
	Path  string `json:"path"`
	Bytes []byte `json:"bytes"`
}

// WebComponent is one packaged widget.
type WebComponent struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Path    string   `json:"path"`
	Locales []Locale `json:"locales"`
	// MetadataPath is empty when the widget has no metadata document.
	MetadataPath string `json:"metadata_path,omitempty"`
	Metadata     []byte `json:"metadata,omitempty"`
}

// Package is the decoded content of an .ars file.
type Package struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	TargetURL string `json:"target_url"`
	// Created and Updated are unix milliseconds.
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	// Index is the position of index.html in Assets, or -1.
	Index         int            `json:"index"`
	Assets        []Asset        `json:"assets"`
	WebComponents []WebComponent `json:"web_components"`
}

// IndexAsset returns the packaged index.html.
func (p *Package) IndexAsset() (*Asset, bool) {
	if p.Index < 0 || p.Index >= len(p.Assets) {
		return nil, false
	}
	return &p.Assets[p.Index], true
}

// Asset looks up a packaged file by path. A leading slash is ignored;
// "/" and "index.html" name the index.
func (p *Package) Asset(path string) (*Asset, bool) {
	path = strings.TrimPrefix(path, "/")
	if path == "index.html" {
		return p.IndexAsset()
	}
	for i := range p.Assets {
		if strings.TrimPrefix(p.Assets[i].Path, "/") == path {
			return &p.Assets[i], true
		}
	}
	return nil, false
}

// Component looks up a packaged widget by name.
func (p *Package) Component(name string) (*WebComponent, bool) {
	for i := range p.WebComponents {
		if p.WebComponents[i].Name == name {
			return &p.WebComponents[i], true
		}
	}
	return nil, false
}

// Encode serializes and compresses a package.
func Encode(pkg *Package) ([]byte, error) {
	raw, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encoding package: %w", err)
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing package: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing package: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses and parses a package.
func Decode(data []byte) (*Package, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing package: %w", err)
	}
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decoding package: %w", err)
	}
	return &pkg, nil
}

// Read loads a package file.
func Read(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}
	return Decode(data)
}

// FileName returns the package file name for a manifest name. Scoped
// package names (@scope/name) are flattened.
func FileName(name string) string {
	name = strings.TrimPrefix(name, "@")
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	return name + Extension
}
