// Package config loads the .ars.yaml / .ars.toml build configuration.
//
// The build configuration drives the manifest pipeline: which manifest
// shape to emit, where widget sources and bundler output live, how widget
// titles and default languages are resolved, and which static directories
// are copied into the output. Every field has a default, so a project
// without a configuration file still builds.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// ArsFile is the top-level build configuration.
type ArsFile struct {
	// WC enables multi-widget (web components) mode. Default: single-page mode.
	WC bool `yaml:"wc" toml:"wc" json:"wc"`
	// TargetURL is the base URL generated loaders point at.
	TargetURL string `yaml:"targetUrl,omitempty" toml:"targetUrl" json:"targetUrl"`
	// Name overrides the manifest name (default: package.json name).
	Name string `yaml:"name,omitempty" toml:"name" json:"name"`
	// Version overrides the manifest version (default: package.json version).
	Version string `yaml:"version,omitempty" toml:"version" json:"version"`
	// Prefix is the path segment for generated assets.
	Prefix string `yaml:"prefix,omitempty" toml:"prefix" json:"prefix"`
	// FallbackPrefix is the path segment for generated loaders (default: Prefix).
	FallbackPrefix string `yaml:"fallbackPrefix,omitempty" toml:"fallbackPrefix" json:"fallbackPrefix"`
	// SrcDir holds locales/ and services/<widget>/ (default "src").
	SrcDir string `yaml:"srcDir,omitempty" toml:"srcDir" json:"srcDir"`
	// OutDir is the bundler output directory (default "dist").
	OutDir string `yaml:"outDir,omitempty" toml:"outDir" json:"outDir"`
	// BundleManifest is the bundler's manifest file (default "<outDir>/.vite/manifest.json").
	BundleManifest string `yaml:"bundleManifest,omitempty" toml:"bundleManifest" json:"bundleManifest"`
	// DefaultLanguage is used when a page declares none (default "en").
	DefaultLanguage string `yaml:"defaultLanguage,omitempty" toml:"defaultLanguage" json:"defaultLanguage"`
	// StaticAssets are directories copied into the output.
	StaticAssets []StaticAsset `yaml:"staticAssets,omitempty" toml:"staticAssets" json:"staticAssets"`
	// Pages resolve widget titles and default languages.
	Pages []Page `yaml:"pages,omitempty" toml:"pages" json:"pages"`
	// PostProcess is the command run with the manifest path.
	// Empty means the built-in packager.
	PostProcess []string `yaml:"postProcess,omitempty" toml:"postProcess" json:"postProcess"`

	// Root is the project root the relative paths are resolved against.
	Root string `yaml:"-" toml:"-" json:"-"`
}

// StaticAsset is a directory copied into the output and listed in the manifest.
type StaticAsset struct {
	Src  string `yaml:"src" toml:"src" json:"src"`
	Dest string `yaml:"dest,omitempty" toml:"dest" json:"dest"`
}

// Page carries the presentation settings of one widget.
type Page struct {
	Name            string `yaml:"name" toml:"name" json:"name"`
	Title           string `yaml:"title,omitempty" toml:"title" json:"title"`
	DefaultLanguage string `yaml:"defaultLanguage,omitempty" toml:"defaultLanguage" json:"defaultLanguage"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileNames lists the configuration files looked up, in order.
var FileNames = []string{".ars.yaml", ".ars.yml", ".ars.toml"}

// LoadArsFile loads .ars.yaml (or .ars.toml) from rootDir, applies defaults
// and validates it. Returns nil if no configuration file exists.
func LoadArsFile(rootDir string) (*ArsFile, error) {
	for _, name := range FileNames {
		path := filepath.Join(rootDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var af ArsFile
		if filepath.Ext(name) == ".toml" {
			err = toml.Unmarshal(data, &af)
		} else {
			err = yaml.Unmarshal(data, &af)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		af.Root = rootDir
		af.ApplyDefaults(Detect(rootDir))
		if err := af.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &af, nil
	}
	return nil, nil
}

// Load returns the project configuration: the configuration file when
// present, defaults otherwise.
func Load(rootDir string) (*ArsFile, error) {
	af, err := LoadArsFile(rootDir)
	if err != nil {
		return nil, err
	}
	if af != nil {
		return af, nil
	}
	af = &ArsFile{Root: rootDir}
	af.ApplyDefaults(Detect(rootDir))
	if err := af.Validate(); err != nil {
		return nil, err
	}
	return af, nil
}

// ApplyDefaults fills unset fields. proj supplies name and version.
func (af *ArsFile) ApplyDefaults(proj *Project) {
	if af.Root == "" {
		af.Root = "."
	}
	if af.Name == "" && proj != nil {
		af.Name = proj.Name
	}
	if af.Version == "" && proj != nil {
		af.Version = proj.Version
	}
	if af.Prefix == "" {
		af.Prefix = "wc"
	}
	if af.FallbackPrefix == "" {
		af.FallbackPrefix = af.Prefix
	}
	if af.SrcDir == "" {
		af.SrcDir = "src"
	}
	if af.OutDir == "" {
		af.OutDir = "dist"
	}
	if af.BundleManifest == "" {
		af.BundleManifest = filepath.Join(af.OutDir, ".vite", "manifest.json")
	}
	if af.DefaultLanguage == "" {
		af.DefaultLanguage = "en"
	}
	for i := range af.StaticAssets {
		if af.StaticAssets[i].Dest == "" {
			af.StaticAssets[i].Dest = filepath.Base(af.StaticAssets[i].Src)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the configuration after defaults were applied.
func (af *ArsFile) Validate() error {
	return validation.ValidateStruct(af,
		validation.Field(&af.Name, validation.Required),
		validation.Field(&af.TargetURL, validation.By(validURL)),
		validation.Field(&af.SrcDir, validation.Required),
		validation.Field(&af.OutDir, validation.Required),
		validation.Field(&af.FallbackPrefix, validation.By(relativePath)),
		validation.Field(&af.StaticAssets),
		validation.Field(&af.Pages, validation.By(uniquePages)),
	)
}

// Validate implements validation.Validatable.
func (s StaticAsset) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Src, validation.Required),
		validation.Field(&s.Dest, validation.By(relativePath)),
	)
}

// Validate implements validation.Validatable.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
	)
}

func validURL(value any) error {
	s, _ := value.(string)
	if s == "" || strings.HasPrefix(s, "/") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL or start with /")
	}
	return nil
}

func relativePath(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if filepath.IsAbs(s) {
		return errors.New("must be a relative path")
	}
	clean := filepath.ToSlash(filepath.Clean(s))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must stay inside the output directory")
	}
	return nil
}

func uniquePages(value any) error {
	pages, _ := value.([]Page)
	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		if seen[p.Name] {
			return fmt.Errorf("duplicate page %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolved paths
// ---------------------------------------------------------------------------

func (af *ArsFile) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(af.Root, p)
}

// AbsSrcDir returns the widget source directory.
func (af *ArsFile) AbsSrcDir() string { return af.abs(af.SrcDir) }

// AbsOutDir returns the build output directory.
func (af *ArsFile) AbsOutDir() string { return af.abs(af.OutDir) }

// AbsBundleManifest returns the bundler manifest path.
func (af *ArsFile) AbsBundleManifest() string { return af.abs(af.BundleManifest) }

// AbsStaticSrc returns the source directory of a static asset entry.
func (af *ArsFile) AbsStaticSrc(s StaticAsset) string { return af.abs(s.Src) }

// Page returns the page entry for a widget.
func (af *ArsFile) Page(name string) (Page, bool) {
	for _, p := range af.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

// Title returns the display title for a widget, defaulting to its name.
func (af *ArsFile) Title(name string) string {
	if p, ok := af.Page(name); ok && p.Title != "" {
		return p.Title
	}
	return name
}

// PreferredLanguage returns the default language declared for a widget.
func (af *ArsFile) PreferredLanguage(name string) string {
	if p, ok := af.Page(name); ok && p.DefaultLanguage != "" {
		return p.DefaultLanguage
	}
	return af.DefaultLanguage
}
