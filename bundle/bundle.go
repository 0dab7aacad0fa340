// Package bundle reads the bundler's output classification.
//
// The manifest builder consumes a flat list of BuildAsset values. They come
// either from the bundler's own manifest (Vite's .vite/manifest.json) or,
// when no bundler manifest exists, from a plain listing of the output
// directory.
package bundle

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Asset kinds.
const (
	KindChunk = "chunk"
	KindAsset = "asset"
)

// BuildAsset is one file emitted by the bundler.
type BuildAsset struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	FileName       string   `json:"fileName"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
	IsEntry        bool     `json:"isEntry"`
}

// chunk is one record of the bundler manifest.
type chunk struct {
	File           string   `json:"file"`
	Name           string   `json:"name"`
	Src            string   `json:"src"`
	IsEntry        bool     `json:"isEntry"`
	DynamicImports []string `json:"dynamicImports"`
	CSS            []string `json:"css"`
	Assets         []string `json:"assets"`
}

// ReadManifest reads a Vite-style bundler manifest. Chunks are listed in
// key order, followed by the stylesheets and static files they reference.
// Every file name appears once.
func ReadManifest(manifestPath string) ([]BuildAsset, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading bundle manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses the contents of a Vite-style bundler manifest.
func ParseManifest(data []byte) ([]BuildAsset, error) {
	var chunks map[string]chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parsing bundle manifest: %w", err)
	}

	keys := make([]string, 0, len(chunks))
	for k := range chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	var assets, extra []BuildAsset
	for _, key := range keys {
		c := chunks[key]
		if c.File == "" || seen[c.File] {
			continue
		}
		seen[c.File] = true
		name := c.Name
		if name == "" {
			name = baseName(key)
		}
		assets = append(assets, BuildAsset{
			Key:            key,
			Name:           name,
			Kind:           KindChunk,
			FileName:       c.File,
			DynamicImports: c.DynamicImports,
			IsEntry:        c.IsEntry,
		})
	}
	for _, key := range keys {
		c := chunks[key]
		for _, file := range append(append([]string{}, c.CSS...), c.Assets...) {
			if seen[file] {
				continue
			}
			seen[file] = true
			extra = append(extra, BuildAsset{Key: file, Name: baseName(file), Kind: KindAsset, FileName: file})
		}
	}
	return append(assets, extra...), nil
}

// ScanDir lists every file below outDir as a non-entry BuildAsset, in
// lexical order. Paths in exclude are relative to outDir; an excluded
// directory excludes everything below it.
func ScanDir(outDir string, exclude []string) ([]BuildAsset, error) {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[filepath.ToSlash(filepath.Clean(e))] = true
	}

	var assets []BuildAsset
	err := filepath.WalkDir(outDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(outDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if skip[rel] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		kind := KindAsset
		switch path.Ext(rel) {
		case ".js", ".mjs":
			kind = KindChunk
		}
		assets = append(assets, BuildAsset{Key: rel, Name: baseName(rel), Kind: kind, FileName: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", outDir, err)
	}
	return assets, nil
}

// Entries returns the entry chunks, preserving order.
func Entries(assets []BuildAsset) []BuildAsset {
	var out []BuildAsset
	for _, a := range assets {
		if a.IsEntry {
			out = append(out, a)
		}
	}
	return out
}

func baseName(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
