package server

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/ars/config"
	"github.com/minios-linux/ars/pack"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testPackage() *pack.Package {
	return &pack.Package{
		ID:        "pkg",
		Name:      "demo",
		Version:   "1.0.0",
		TargetURL: "https://cdn.example.com/app",
		Index:     0,
		Assets: []pack.Asset{
			{Path: pack.IndexPath, Mime: "text/html; charset=utf-8", Bytes: []byte(`<script src="https://cdn.example.com/app/assets/app.js"></script>`)},
			{Path: "assets/app.js", Mime: "text/javascript; charset=utf-8", Bytes: []byte(`import "https://cdn.example.com/app/assets/dep.js"`)},
			{Path: "assets/logo.png", Mime: "image/png", Bytes: []byte("https://cdn.example.com/app")},
		},
		WebComponents: []pack.WebComponent{{
			Name:  "cart",
			Title: "Cart",
			Path:  "wc/cart/cart.js",
			Locales: []pack.Locale{
				{Lang: "de", Path: "locales/cart/de.json", Bytes: []byte(`{"cart": {"title": "Warenkorb"}}`)},
				{Lang: "en", Path: "locales/cart/en.json", Bytes: []byte(`{"cart": {"title": "Cart", "empty": "Nothing in {{name}}'s cart"}}`)},
			},
			MetadataPath: "locales/cart/meta.json",
			Metadata:     []byte(`{"service": "cart", "defaultLanguage": "en"}`),
		}},
	}
}

func newTestServer(t *testing.T, pkg *pack.Package) http.Handler {
	t.Helper()
	s, err := New(&config.ServerConfig{Address: "localhost:8000", PublicURL: "http://localhost:8000"}, pkg, nil)
	require.NoError(t, err)
	return s.Handler()
}

func get(h http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIndexRouting(t *testing.T) {
	h := newTestServer(t, testPackage())

	for _, target := range []string{"/", "/checkout", "/deep/client/route", "/index.html"} {
		w := get(h, target)
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, CacheNone, w.Header().Get("Cache-Control"), target)
		assert.Contains(t, w.Body.String(), "<script", target)
	}
}

func TestAssetServingAndRewrite(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/assets/app.js")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CacheAssets, w.Header().Get("Cache-Control"))
	assert.Equal(t, "text/javascript; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `import "http://localhost:8000/assets/dep.js"`, w.Body.String())

	// Binary assets are never rewritten.
	w = get(h, "/assets/logo.png")
	assert.Equal(t, "https://cdn.example.com/app", w.Body.String())

	// Index is rewritten too.
	w = get(h, "/")
	assert.Contains(t, w.Body.String(), "http://localhost:8000/assets/app.js")
}

func TestNoRewriteForRootTarget(t *testing.T) {
	pkg := testPackage()
	pkg.TargetURL = "/"
	h := newTestServer(t, pkg)

	w := get(h, "/assets/app.js")
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/app/assets/dep.js")
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", w.Body.String())
	assert.Equal(t, CacheNone, w.Header().Get("Cache-Control"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodPost, "/assets/app.js", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexMissing(t *testing.T) {
	pkg := testPackage()
	pkg.Index = -1
	pkg.Assets = pkg.Assets[1:]
	h := newTestServer(t, pkg)

	assert.Equal(t, http.StatusNotFound, get(h, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/route").Code)
	assert.Equal(t, http.StatusOK, get(h, "/assets/app.js").Code)
}

func TestGzip(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/assets/app.js", "Accept-Encoding", "gzip, deflate")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `import "http://localhost:8000/assets/dep.js"`, string(plain))

	w = get(h, "/assets/app.js")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestLocaleDocumentsServed(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/locales/cart/de.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cart": {"title": "Warenkorb"}}`, w.Body.String())

	w = get(h, "/locales/cart/meta.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service": "cart"`)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/assets/app.js", "Origin", "https://host.example.org")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, testPackage())

	assert.NotEmpty(t, get(h, "/").Header().Get(RequestIDHeader))
	assert.Equal(t, "abc", get(h, "/", RequestIDHeader, "abc").Header().Get(RequestIDHeader))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestMessages(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/_ars/messages/cart/de?path=cart.title")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Warenkorb", body["message"])
	assert.Equal(t, "de", body["lang"])

	// Missing in de: falls back to the default language.
	w = get(h, "/_ars/messages/cart/de?path=cart.empty")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Nothing in {{name}}'s cart", body["message"])
	assert.Equal(t, "en", body["lang"])

	w = get(h, "/_ars/messages/cart/de?path=cart.nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(h, "/_ars/messages/shop/en")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(h, "/_ars/messages/cart/de")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "en", body["defaultLanguage"])
	assert.Equal(t, map[string]any{
		"cart.title": "Warenkorb",
		"cart.empty": "Nothing in {{name}}'s cart",
	}, body["messages"])
}

func TestComponents(t *testing.T) {
	h := newTestServer(t, testPackage())

	w := get(h, "/_ars/components")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	components := body["components"].([]any)
	require.Len(t, components, 1)
	cart := components[0].(map[string]any)
	assert.Equal(t, "cart", cart["name"])
	assert.Equal(t, "Cart", cart["title"])
	assert.Equal(t, []any{"de", "en"}, cart["languages"])
	assert.Equal(t, "en", cart["defaultLanguage"])
}
