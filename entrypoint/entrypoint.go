// Package entrypoint generates the fallback loader script of each widget.
//
// A loader appends the widget's module script to document.head once and
// dispatches the ars-component-loaded event on document, with the widget
// name as detail, when the script it inserted has loaded.
package entrypoint

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Event is the document event dispatched once a widget script has loaded.
const Event = "ars-component-loaded"

// Template tokens.
const (
	ComponentToken = "TARGET_COMPONENT"
	URLToken       = "TARGET_URL"
)

//go:embed load.js
var loaderTemplate string

// Render returns the loader script for one widget.
func Render(component, url string) []byte {
	r := strings.NewReplacer(
		ComponentToken, template.JSEscapeString(component),
		URLToken, template.JSEscapeString(url),
	)
	return []byte(r.Replace(loaderTemplate))
}

// Path returns the slash-separated output path of a widget's loader.
func Path(prefix, component string) string {
	return path.Join(prefix, component, component+".js")
}

// Write renders the loader of component and writes it below outDir.
// It returns the written path relative to outDir.
func Write(outDir, prefix, component, url string) (string, error) {
	rel := Path(prefix, component)
	dst := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating loader directory: %w", err)
	}
	if err := os.WriteFile(dst, Render(component, url), 0644); err != nil {
		return "", fmt.Errorf("writing loader %s: %w", rel, err)
	}
	return rel, nil
}

// JoinURL appends a bundle file name to the target URL.
func JoinURL(base, file string) string {
	file = strings.TrimLeft(file, "/")
	if base == "" {
		return "/" + file
	}
	return strings.TrimRight(base, "/") + "/" + file
}
