package server

import (
	"bytes"
	"compress/gzip"
	"strings"

	"github.com/minios-linux/ars/pack"
)

// body is a response prepared once at startup.
type body struct {
	mime string
	raw  []byte
	gz   []byte
}

func newBody(mime string, raw []byte) (*body, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &body{mime: mime, raw: raw, gz: buf.Bytes()}, nil
}

// rewriter replaces the build-time target URL with the URL the preview
// server is reachable at.
type rewriter struct {
	from, to []byte
}

func newRewriter(targetURL, publicURL string) *rewriter {
	if targetURL == "" || targetURL == "/" || publicURL == "" {
		return nil
	}
	return &rewriter{from: []byte(targetURL), to: []byte(publicURL)}
}

func (r *rewriter) apply(mime string, data []byte) []byte {
	if r == nil || !rewritable(mime) {
		return data
	}
	return bytes.ReplaceAll(data, r.from, r.to)
}

func rewritable(mime string) bool {
	for _, prefix := range []string{"text/javascript", "application/javascript", "text/css", "text/html"} {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

// prepare builds the response bodies of every packaged asset, keyed by
// path without leading slash. The index is returned separately.
func prepare(pkg *pack.Package, rw *rewriter) (map[string]*body, *body, error) {
	assets := make(map[string]*body, len(pkg.Assets))
	var index *body
	for i, a := range pkg.Assets {
		b, err := newBody(a.Mime, rw.apply(a.Mime, a.Bytes))
		if err != nil {
			return nil, nil, err
		}
		if i == pkg.Index {
			index = b
			continue
		}
		assets[strings.TrimPrefix(a.Path, "/")] = b
	}
	for _, c := range pkg.WebComponents {
		for _, l := range c.Locales {
			b, err := newBody("application/json", l.Bytes)
			if err != nil {
				return nil, nil, err
			}
			assets[strings.TrimPrefix(l.Path, "/")] = b
		}
		if c.MetadataPath != "" {
			b, err := newBody("application/json", c.Metadata)
			if err != nil {
				return nil, nil, err
			}
			assets[strings.TrimPrefix(c.MetadataPath, "/")] = b
		}
	}
	return assets, index, nil
}
