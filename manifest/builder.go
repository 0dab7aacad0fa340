package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/minios-linux/ars/bundle"
	"github.com/minios-linux/ars/config"
	"github.com/minios-linux/ars/entrypoint"
	"github.com/minios-linux/ars/langmeta"
	"github.com/minios-linux/ars/locales"
	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/textmeta"
)

// LocalesDir is the output directory of locale and metadata documents.
const LocalesDir = "locales"

// MetadataFileName is the name of a widget's metadata document.
const MetadataFileName = "meta.json"

// PostProcessor receives the path of the written manifest.
type PostProcessor interface {
	Process(ctx context.Context, manifestPath string) error
}

// Builder turns bundler output into a manifest.
type Builder struct {
	Config   *config.ArsFile
	Logger   *zap.Logger
	Scanner  *locales.Scanner
	Resolver textmeta.Resolver
	// PostProcessor may be nil.
	PostProcessor PostProcessor
}

// NewBuilder wires a builder over the configured source layout: locale
// documents and metadata descriptors are read below cfg's source directory.
func NewBuilder(cfg *config.ArsFile, log *zap.Logger, pp PostProcessor) *Builder {
	scanner := locales.NewScanner(cfg.AbsSrcDir(), log)
	return &Builder{
		Config:        cfg,
		Logger:        logger.OrNop(log),
		Scanner:       scanner,
		Resolver:      textmeta.DirResolver{ServicesDir: scanner.ServicesDir()},
		PostProcessor: pp,
	}
}

// Document is a file written by the builder.
type Document struct {
	// Widget is empty for documents not owned by a widget.
	Widget string
	// Path is slash separated and relative to the output directory.
	Path string
}

// Result describes a finished build.
type Result struct {
	Manifest Manifest
	// Path is the absolute path of the manifest document.
	Path      string
	Documents []Document
	Snapshots []textmeta.Snapshot
}

// MetadataDocument is the content of locales/<widget>/meta.json.
type MetadataDocument struct {
	Service         string             `json:"service"`
	DefaultLanguage string             `json:"defaultLanguage"`
	Languages       []string           `json:"languages"`
	Messages        []textmeta.Message `json:"messages"`
}

// build carries the state of one Build call.
type build struct {
	*Builder
	log       *zap.Logger
	outDir    string
	documents []Document
}

// Build assembles and writes the manifest for the given bundler output,
// then hands its path to the post-processor. A post-processor error is
// returned as is.
func (b *Builder) Build(ctx context.Context, assets []bundle.BuildAsset) (*Result, error) {
	st := &build{Builder: b, log: logger.OrNop(b.Logger), outDir: b.Config.AbsOutDir()}
	if st.Scanner == nil {
		return nil, errors.New("manifest builder has no locale scanner")
	}
	return st.run(ctx, assets)
}

func (st *build) run(ctx context.Context, assets []bundle.BuildAsset) (*Result, error) {
	cfg := st.Config
	if err := os.MkdirAll(st.outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	entries := st.uniqueEntries(bundle.Entries(assets))
	catalog := st.Scanner.Load()
	snapshots := textmeta.Accumulate(st.log, foldOrder(catalog.Services, entries), st.resolver())
	effective := textmeta.Index(snapshots)

	components := make(map[string]ComponentEntry, len(entries))
	for _, entry := range entries {
		c, err := st.writeLocales(entry.Name, catalog.ForWidget(entry.Name), effective[entry.Name])
		if err != nil {
			return nil, err
		}
		components[entry.Name] = c
	}

	var files []string
	for _, a := range assets {
		files = append(files, a.FileName)
	}

	for _, sa := range cfg.StaticAssets {
		copied, err := copyStatic(cfg.AbsStaticSrc(sa), st.outDir, sa.Dest)
		if err != nil {
			if os.IsNotExist(err) {
				st.log.Warn("static asset directory not found", zap.String("src", sa.Src))
				continue
			}
			return nil, err
		}
		files = append(files, copied...)
	}

	common := Common{Name: cfg.Name, Version: cfg.Version, TargetURL: cfg.TargetURL}
	var m Manifest
	if cfg.WC {
		for _, entry := range entries {
			url := entrypoint.JoinURL(cfg.TargetURL, entry.FileName)
			rel, err := entrypoint.Write(st.outDir, cfg.FallbackPrefix, entry.Name, url)
			if err != nil {
				return nil, err
			}
			st.documents = append(st.documents, Document{Widget: entry.Name, Path: rel})
			c := components[entry.Name]
			c.Path = rel
			components[entry.Name] = c
			files = append(files, rel)
		}
		common.Assets = dedupe(files)
		m = WebComponents{Common: common, Components: components}
	} else {
		common.Assets = dedupe(files)
		m = Spa{Common: common}
	}

	data, err := Encode(m)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(st.outDir, FileName)
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	st.log.Info("manifest written",
		zap.String("path", manifestPath),
		zap.Bool("wc", cfg.WC),
		zap.Int("assets", len(common.Assets)),
		zap.Int("widgets", len(entries)))

	res := &Result{Manifest: m, Path: manifestPath, Documents: st.documents, Snapshots: snapshots}
	if st.PostProcessor != nil {
		if err := st.PostProcessor.Process(ctx, manifestPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (st *build) resolver() textmeta.Resolver {
	if st.Resolver != nil {
		return st.Resolver
	}
	return textmeta.Registry{}
}

// writeLocales writes the locale and metadata documents of one widget.
// Every document is rendered before the first one is written.
func (st *build) writeLocales(widget string, set locales.Set, meta textmeta.Metadata) (ComponentEntry, error) {
	entry := ComponentEntry{Name: st.Config.Title(widget), Locales: []Locale{}}
	langs := set.Languages()
	if len(langs) == 0 {
		st.log.Debug("widget has no translations", zap.String("widget", widget))
		return entry, nil
	}

	type rendered struct {
		path string
		data []byte
	}
	var docs []rendered
	for _, lang := range langs {
		data, err := set[lang].MarshalIndent("  ")
		if err != nil {
			return entry, fmt.Errorf("encoding %s/%s: %w", widget, lang, err)
		}
		p := path.Join(LocalesDir, widget, lang+".json")
		docs = append(docs, rendered{p, data})
		entry.Locales = append(entry.Locales, Locale{Lang: lang, Path: p})
	}

	defaultLang := langmeta.Match(st.Config.PreferredLanguage(widget), langs)
	messages := textmeta.Flatten(set[defaultLang], meta)
	if len(messages) > 0 {
		data, err := encodeDocument(MetadataDocument{
			Service:         widget,
			DefaultLanguage: defaultLang,
			Languages:       langs,
			Messages:        messages,
		})
		if err != nil {
			return entry, fmt.Errorf("encoding %s metadata: %w", widget, err)
		}
		p := path.Join(LocalesDir, widget, MetadataFileName)
		docs = append(docs, rendered{p, data})
		entry.LocalesMetadataPath = p
	}

	if err := os.MkdirAll(filepath.Join(st.outDir, LocalesDir, widget), 0755); err != nil {
		return entry, fmt.Errorf("creating locale directory: %w", err)
	}
	for _, d := range docs {
		if err := os.WriteFile(filepath.Join(st.outDir, filepath.FromSlash(d.path)), d.data, 0644); err != nil {
			return entry, fmt.Errorf("writing %s: %w", d.path, err)
		}
		st.documents = append(st.documents, Document{Widget: widget, Path: d.path})
	}
	st.log.Debug("locales written",
		zap.String("widget", widget),
		zap.Strings("languages", langs),
		zap.String("defaultLanguage", defaultLang),
		zap.Int("messages", len(messages)))
	return entry, nil
}

// foldOrder lists the services in discovery order, followed by the entry
// widgets that are not services, in bundle order.
// uniqueEntries keeps the first entry of every widget name. Later entries
// with the same name would overwrite its documents and loader.
func (st *build) uniqueEntries(entries []bundle.BuildAsset) []bundle.BuildAsset {
	seen := make(map[string]bool, len(entries))
	out := make([]bundle.BuildAsset, 0, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			st.log.Warn("duplicate widget entry ignored",
				zap.String("widget", e.Name), zap.String("file", e.FileName))
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}

func foldOrder(services []string, entries []bundle.BuildAsset) []string {
	order := append([]string{}, services...)
	seen := make(map[string]bool, len(order))
	for _, s := range order {
		seen[s] = true
	}
	for _, e := range entries {
		if !seen[e.Name] {
			seen[e.Name] = true
			order = append(order, e.Name)
		}
	}
	return order
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func encodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
