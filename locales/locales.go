// Package locales discovers widget translation documents and layers them
// over the shared default translations.
//
// Layout, relative to the source directory:
//
//	locales/<lang>.json                      shared default
//	services/<widget>/locales/<lang>.json    widget override
//
// The shared default is always the merge base and the widget directory is
// always the override. Documents may also be .yaml/.yml, .toml or .po.
package locales

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/merge"
	"github.com/minios-linux/ars/msgtree"
)

// Set maps language codes to translation trees.
type Set map[string]*msgtree.Tree

// Languages returns the language codes in sorted order.
func (s Set) Languages() []string {
	langs := make([]string, 0, len(s))
	for lang := range s {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Clone deep-copies every tree in the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for lang, tree := range s {
		out[lang] = tree.Clone()
	}
	return out
}

// Scanner reads translation documents below SrcDir.
type Scanner struct {
	SrcDir string
	Logger *zap.Logger
}

// NewScanner returns a scanner rooted at srcDir.
func NewScanner(srcDir string, log *zap.Logger) *Scanner {
	return &Scanner{SrcDir: srcDir, Logger: logger.OrNop(log)}
}

func (s *Scanner) log() *zap.Logger { return logger.OrNop(s.Logger) }

// ServicesDir returns the directory holding one sub-directory per widget.
func (s *Scanner) ServicesDir() string {
	return filepath.Join(s.SrcDir, "services")
}

// Dir returns the language directory of a widget, or of the shared
// default when widget is empty.
func (s *Scanner) Dir(widget string) string {
	if widget == "" {
		return filepath.Join(s.SrcDir, "locales")
	}
	return filepath.Join(s.ServicesDir(), widget, "locales")
}

// Scan reads every language document of a widget (or of the shared
// default when widget is empty). A missing directory yields an empty set.
// A document that fails to parse is logged and skipped; the other
// languages are still returned. When two documents map to the same
// language (en.json and en.yaml) the first in directory order wins.
func (s *Scanner) Scan(widget string) Set {
	dir := s.Dir(widget)
	set := make(Set)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log().Debug("no locale directory", zap.String("widget", widget), zap.String("dir", dir))
		} else {
			s.log().Warn("reading locale directory", zap.String("widget", widget), zap.String("dir", dir), zap.Error(err))
		}
		return set
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !msgtree.Supported(name) {
			continue
		}
		lang := strings.TrimSuffix(name, filepath.Ext(name))
		if lang == "" {
			continue
		}
		if _, dup := set[lang]; dup {
			s.log().Warn("duplicate locale document ignored", zap.String("widget", widget), zap.String("file", name))
			continue
		}
		tree, err := msgtree.ParseFile(filepath.Join(dir, name))
		if err != nil {
			s.log().Warn("skipping malformed locale document",
				zap.String("widget", widget), zap.String("lang", lang), zap.Error(err))
			continue
		}
		set[lang] = tree
	}
	return set
}

// Services returns the widget ids found under ServicesDir, sorted by
// name (os.ReadDir order). The metadata fold follows this order. A missing
// directory yields none.
func (s *Scanner) Services() []string {
	entries, err := os.ReadDir(s.ServicesDir())
	if err != nil {
		if !os.IsNotExist(err) {
			s.log().Warn("reading services directory", zap.String("dir", s.ServicesDir()), zap.Error(err))
		}
		return nil
	}
	var services []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			services = append(services, entry.Name())
		}
	}
	return services
}

// Catalog holds the merged translations of every discovered widget.
type Catalog struct {
	// Default is the shared default set.
	Default Set
	// Services lists widget ids sorted by name.
	Services []string
	// Widgets maps a widget id to its merged set.
	Widgets map[string]Set
}

// Load scans the shared default and every service, merging each service's
// documents over the default per language.
func (s *Scanner) Load() *Catalog {
	c := &Catalog{
		Default:  s.Scan(""),
		Services: s.Services(),
		Widgets:  make(map[string]Set),
	}
	for _, widget := range c.Services {
		c.Widgets[widget] = Set(merge.Languages(c.Default, s.Scan(widget)))
	}
	return c
}

// ForWidget returns the merged set of a widget. Widgets that were not
// discovered as services receive a copy of the shared default.
func (c *Catalog) ForWidget(widget string) Set {
	if set, ok := c.Widgets[widget]; ok {
		return set
	}
	return c.Default.Clone()
}
