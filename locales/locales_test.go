package locales

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func encode(t *testing.T, s Set, lang string) string {
	t.Helper()
	tree, ok := s[lang]
	require.True(t, ok, "language %s missing", lang)
	out, err := tree.MarshalJSON()
	require.NoError(t, err)
	return string(out)
}

func TestScan_MissingDirectory(t *testing.T) {
	s := NewScanner(t.TempDir(), nil)
	assert.Empty(t, s.Scan(""))
	assert.Empty(t, s.Scan("cart"))
	assert.Empty(t, s.Services())
}

func TestScan_SkipsMalformedDocument(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "locales", "en.json"), `{"title": "Hello"}`)
	write(t, filepath.Join(src, "locales", "fr.json"), `{"title": `)
	write(t, filepath.Join(src, "locales", "de.yaml"), "title: Hallo\n")
	write(t, filepath.Join(src, "locales", "README.md"), "ignored")

	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScanner(src, zap.New(core))

	set := s.Scan("")
	assert.Equal(t, []string{"de", "en"}, set.Languages())
	assert.Equal(t, `{"title":"Hallo"}`, encode(t, set, "de"))

	warnings := logs.FilterMessage("skipping malformed locale document").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "fr", warnings[0].ContextMap()["lang"])
}

func TestLoad_MergesWidgetOverDefault(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "locales", "en.json"), `{"title": "Default", "nav": {"home": "Home"}}`)
	write(t, filepath.Join(src, "locales", "fr.json"), `{"title": "Défaut"}`)
	write(t, filepath.Join(src, "services", "cart", "locales", "en.json"), `{"title": "Cart", "nav": {"checkout": "Checkout"}}`)
	write(t, filepath.Join(src, "services", "cart", "locales", "de.json"), `{"title": "Warenkorb"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "services", "search"), 0755))

	c := NewScanner(src, nil).Load()

	assert.Equal(t, []string{"cart", "search"}, c.Services)

	cart := c.ForWidget("cart")
	assert.Equal(t, []string{"de", "en", "fr"}, cart.Languages())
	assert.Equal(t, `{"title":"Cart","nav":{"home":"Home","checkout":"Checkout"}}`, encode(t, cart, "en"))
	assert.Equal(t, `{"title":"Défaut"}`, encode(t, cart, "fr"))
	assert.Equal(t, `{"title":"Warenkorb"}`, encode(t, cart, "de"))

	search := c.ForWidget("search")
	assert.Equal(t, []string{"en", "fr"}, search.Languages())
	assert.Equal(t, `{"title":"Default","nav":{"home":"Home"}}`, encode(t, search, "en"))

	undiscovered := c.ForWidget("banner")
	assert.Equal(t, []string{"en", "fr"}, undiscovered.Languages())
	undiscovered["en"].Set("title", "mutated")
	assert.Equal(t, `{"title":"Default","nav":{"home":"Home"}}`, encode(t, c.Default, "en"))
}

func TestServices_NameOrder(t *testing.T) {
	src := t.TempDir()
	// Created out of order; hidden directories and plain files are skipped.
	for _, name := range []string{"search", "banner", ".cache", "cart"} {
		require.NoError(t, os.MkdirAll(filepath.Join(src, "services", name), 0755))
	}
	write(t, filepath.Join(src, "services", "README.md"), "")

	assert.Equal(t, []string{"banner", "cart", "search"}, NewScanner(src, nil).Services())
}
