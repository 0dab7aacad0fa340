package lockfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newLock() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash([]byte("Hello"))
	h2 := Hash([]byte("Hello"))
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if h1 == Hash([]byte("Hello!")) {
		t.Error("different content should produce different hashes")
	}
	if len(h1) != 32 {
		t.Errorf("hash length = %d, want 32", len(h1))
	}
}

func TestLoadNonExistent(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums should be empty, got %d", len(lf.Checksums))
	}
	if lf.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("Path = %q", lf.Path())
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("checksums: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	lf.Record("cart", map[string]string{
		"locales/en.json":               Hash([]byte("a")),
		"services/cart/locales/en.json": Hash([]byte("b")),
	})
	lf.Record("search", map[string]string{"locales/en.json": Hash([]byte("a"))})

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	widgets, docs := lf2.Stats()
	if widgets != 2 {
		t.Errorf("widgets = %d, want 2", widgets)
	}
	if docs != 3 {
		t.Errorf("docs = %d, want 3", docs)
	}
	if lf2.IsChanged("cart", "services/cart/locales/en.json", []byte("b")) {
		t.Error("recorded document should not be changed after reload")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := newLock().Save(); err == nil {
		t.Error("expected error for lock file without path")
	}
}

func TestIsChanged(t *testing.T) {
	lf := newLock()

	if !lf.IsChanged("cart", "locales/en.json", []byte("x")) {
		t.Error("unknown widget should be changed")
	}

	lf.Record("cart", map[string]string{"locales/en.json": Hash([]byte("x"))})
	if lf.IsChanged("cart", "locales/en.json", []byte("x")) {
		t.Error("unchanged document should not be changed")
	}
	if !lf.IsChanged("cart", "locales/en.json", []byte("y")) {
		t.Error("modified document should be changed")
	}
	if !lf.IsChanged("cart", "locales/de.json", []byte("x")) {
		t.Error("unknown document should be changed")
	}
}

func TestRecordCopies(t *testing.T) {
	lf := newLock()
	sums := map[string]string{"a": "1"}
	lf.Record("cart", sums)
	sums["b"] = "2"

	if _, docs := lf.Stats(); docs != 1 {
		t.Errorf("docs = %d, want 1", docs)
	}
}

func TestClean(t *testing.T) {
	lf := newLock()
	lf.Record("cart", map[string]string{"a": "1"})
	lf.Record("search", map[string]string{"a": "1"})
	lf.Record("gone", map[string]string{"a": "1"})

	lf.Clean([]string{"cart", "search"})

	if got := lf.Widgets(); !reflect.DeepEqual(got, []string{"cart", "search"}) {
		t.Errorf("Widgets = %v", got)
	}
}

func TestDiff(t *testing.T) {
	lf := newLock()

	c := lf.Diff("cart", map[string]string{"a": "1"})
	if !c.New || c.Empty() {
		t.Errorf("unbuilt widget should be new: %+v", c)
	}

	lf.Record("cart", map[string]string{"a": "1", "b": "2", "c": "3"})

	c = lf.Diff("cart", map[string]string{"a": "1", "b": "2", "c": "3"})
	if !c.Empty() {
		t.Errorf("identical sources should be empty: %+v", c)
	}

	c = lf.Diff("cart", map[string]string{"a": "1", "b": "9", "d": "4"})
	if c.New {
		t.Error("built widget should not be new")
	}
	if !reflect.DeepEqual(c.Added, []string{"d"}) {
		t.Errorf("Added = %v", c.Added)
	}
	if !reflect.DeepEqual(c.Modified, []string{"b"}) {
		t.Errorf("Modified = %v", c.Modified)
	}
	if !reflect.DeepEqual(c.Removed, []string{"c"}) {
		t.Errorf("Removed = %v", c.Removed)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSources(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "locales", "en.json"), `{"a": "A"}`)
	writeFile(t, filepath.Join(src, "locales", "README.md"), "ignored")
	writeFile(t, filepath.Join(src, "services", "cart", "locales", "de.yaml"), "a: B\n")
	writeFile(t, filepath.Join(src, "services", "cart", "meta.json"), `{"hideable": ["a"]}`)
	writeFile(t, filepath.Join(src, "services", "search", "locales", "en.json"), `{}`)

	sums, err := Sources(src, "cart")
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	want := []string{
		"locales/en.json",
		"services/cart/locales/de.yaml",
		"services/cart/meta.json",
	}
	if len(sums) != len(want) {
		t.Fatalf("Sources = %v, want keys %v", sums, want)
	}
	for _, k := range want {
		if _, ok := sums[k]; !ok {
			t.Errorf("missing %s", k)
		}
	}
	if sums["locales/en.json"] != Hash([]byte(`{"a": "A"}`)) {
		t.Error("checksum mismatch for locales/en.json")
	}

	// A widget without its own sources still depends on the defaults.
	sums, err = Sources(src, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 {
		t.Errorf("Sources(unknown) = %v", sums)
	}
}

func TestSummary(t *testing.T) {
	lf := newLock()
	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Record("cart", map[string]string{"a": "1", "b": "2"})
	lf.Record("search", map[string]string{"a": "1"})
	s := lf.Summary()
	if !strings.HasPrefix(s, "2 widgets, 3 documents") {
		t.Errorf("summary = %q", s)
	}
	if !strings.Contains(s, "cart: 2 documents") {
		t.Errorf("summary = %q", s)
	}
}

func TestConcurrentAccess(t *testing.T) {
	lf := newLock()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			widget := "w" + string(rune('0'+n))
			lf.Record(widget, map[string]string{"doc": "x"})
			lf.IsChanged(widget, "doc", []byte("x"))
			lf.Stats()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	widgets, _ := lf.Stats()
	if widgets != 10 {
		t.Errorf("widgets after concurrent writes = %d, want 10", widgets)
	}
}
