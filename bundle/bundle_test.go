package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viteManifest = `{
  "src/services/search/index.ts": {
    "file": "assets/search-B1.js",
    "name": "search",
    "src": "src/services/search/index.ts",
    "isEntry": true,
    "css": ["assets/shared.css"]
  },
  "_vendor-X.js": {
    "file": "assets/vendor-X.js",
    "assets": ["assets/logo.svg"]
  },
  "src/services/cart/index.ts": {
    "file": "assets/cart-A9.js",
    "src": "src/services/cart/index.ts",
    "isEntry": true,
    "dynamicImports": ["_vendor-X.js"],
    "css": ["assets/shared.css", "assets/cart.css"]
  }
}`

func TestParseManifest(t *testing.T) {
	assets, err := ParseManifest([]byte(viteManifest))
	require.NoError(t, err)

	var files []string
	for _, a := range assets {
		files = append(files, a.FileName)
	}
	assert.Equal(t, []string{
		"assets/vendor-X.js",
		"assets/cart-A9.js",
		"assets/search-B1.js",
		"assets/logo.svg",
		"assets/shared.css",
		"assets/cart.css",
	}, files)

	cart := assets[1]
	assert.True(t, cart.IsEntry)
	assert.Equal(t, KindChunk, cart.Kind)
	// No name in the manifest: derived from the key.
	assert.Equal(t, "index", cart.Name)
	assert.Equal(t, []string{"_vendor-X.js"}, cart.DynamicImports)

	assert.Equal(t, "search", assets[2].Name)
	assert.Equal(t, KindAsset, assets[3].Kind)
	assert.False(t, assets[3].IsEntry)

	entries := Entries(assets)
	require.Len(t, entries, 2)
	assert.Equal(t, "assets/cart-A9.js", entries[0].FileName)
}

func TestReadManifestErrors(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2]"), 0644))
	_, err = ReadManifest(path)
	assert.Error(t, err)
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"index.html",
		"assets/app.js",
		"assets/app.css",
		"manifest.json",
		"locales/cart/en.json",
		".vite/manifest.json",
	} {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	assets, err := ScanDir(dir, []string{"manifest.json", "locales", ".vite"})
	require.NoError(t, err)

	var files []string
	for _, a := range assets {
		files = append(files, a.FileName)
		assert.False(t, a.IsEntry)
	}
	assert.Equal(t, []string{"assets/app.css", "assets/app.js", "index.html"}, files)
	assert.Equal(t, KindChunk, assets[1].Kind)
	assert.Equal(t, KindAsset, assets[0].Kind)
}
