// Package lockfile implements ars.lock, a lock file that tracks MD5
// checksums of the source documents each widget was last built from:
// the shared default locales, the widget's own locales and its metadata
// descriptor. Comparing the lock with the current sources tells which
// widgets changed since the last build.
//
// The lock file is stored next to .ars.yaml as ars.lock.
package lockfile

import (
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/ars/msgtree"
	"github.com/minios-linux/ars/textmeta"
)

// LockFileName is the default lock file name.
const LockFileName = "ars.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the ars.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // widget -> document -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return errors.New("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a document.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// IsChanged reports whether a document is new or changed for a widget.
func (lf *LockFile) IsChanged(widget, doc string, data []byte) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs, ok := lf.Checksums[widget]
	if !ok {
		return true
	}
	old, ok := docs[doc]
	if !ok {
		return true
	}
	return old != Hash(data)
}

// Record replaces every checksum of a widget.
func (lf *LockFile) Record(widget string, checksums map[string]string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs := make(map[string]string, len(checksums))
	for doc, sum := range checksums {
		docs[doc] = sum
	}
	lf.Checksums[widget] = docs
}

// Clean drops widgets that are no longer built.
func (lf *LockFile) Clean(widgets []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(widgets))
	for _, w := range widgets {
		valid[w] = true
	}
	for w := range lf.Checksums {
		if !valid[w] {
			delete(lf.Checksums, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Source discovery
// ---------------------------------------------------------------------------

// Sources hashes the source documents a widget is built from. Keys are
// slash-separated paths relative to srcDir.
func Sources(srcDir, widget string) (map[string]string, error) {
	sums := make(map[string]string)
	dirs := []string{
		"locales",
		filepath.Join("services", widget, "locales"),
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(filepath.Join(srcDir, dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !msgtree.Supported(e.Name()) {
				continue
			}
			if err := hashInto(sums, srcDir, filepath.Join(dir, e.Name())); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range textmeta.DescriptorNames {
		rel := filepath.Join("services", widget, name)
		if err := hashInto(sums, srcDir, rel); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return sums, nil
}

func hashInto(sums map[string]string, srcDir, rel string) error {
	data, err := os.ReadFile(filepath.Join(srcDir, rel))
	if err != nil {
		return err
	}
	sums[filepath.ToSlash(rel)] = Hash(data)
	return nil
}

// ---------------------------------------------------------------------------
// Diff
// ---------------------------------------------------------------------------

// Change lists how a widget's sources differ from the lock.
type Change struct {
	Widget   string
	Added    []string
	Modified []string
	Removed  []string
	// New is set when the widget has never been built.
	New bool
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return !c.New && len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Diff compares current checksums of a widget with the lock.
func (lf *LockFile) Diff(widget string, current map[string]string) Change {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	c := Change{Widget: widget}
	locked, ok := lf.Checksums[widget]
	if !ok {
		c.New = true
		return c
	}
	for doc, sum := range current {
		old, ok := locked[doc]
		switch {
		case !ok:
			c.Added = append(c.Added, doc)
		case old != sum:
			c.Modified = append(c.Modified, doc)
		}
	}
	for doc := range locked {
		if _, ok := current[doc]; !ok {
			c.Removed = append(c.Removed, doc)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)
	return c
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of widgets and total documents in the lock file.
func (lf *LockFile) Stats() (widgets, docs int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	widgets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		docs += len(m)
	}
	return
}

// Widgets returns the sorted list of locked widgets.
func (lf *LockFile) Widgets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	widgets := make([]string, 0, len(lf.Checksums))
	for w := range lf.Checksums {
		widgets = append(widgets, w)
	}
	sort.Strings(widgets)
	return widgets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	widgets, docs := lf.Stats()
	if widgets == 0 {
		return "empty"
	}

	var parts []string
	for _, w := range lf.Widgets() {
		parts = append(parts, fmt.Sprintf("%s: %d documents", w, len(lf.Checksums[w])))
	}
	return fmt.Sprintf("%d widgets, %d documents (%s)", widgets, docs, strings.Join(parts, ", "))
}
