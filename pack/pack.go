package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/manifest"
)

// Options tune Pack.
type Options struct {
	// OutDir receives the package. Default: the manifest's directory.
	OutDir string
	// Workers bounds concurrent file reads. Default: runtime.NumCPU().
	Workers int
	Logger  *zap.Logger
	// Now stamps the package. Default: time.Now.
	Now func() time.Time
}

// Pack reads the manifest at manifestPath and writes the package of its
// files. It returns the written package path.
func Pack(ctx context.Context, manifestPath string, opts Options) (string, error) {
	pkg, err := Build(ctx, manifestPath, opts)
	if err != nil {
		return "", err
	}
	data, err := Encode(pkg)
	if err != nil {
		return "", err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(manifestPath)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating package directory: %w", err)
	}
	out := filepath.Join(outDir, FileName(pkg.Name))
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", fmt.Errorf("writing package: %w", err)
	}
	logger.OrNop(opts.Logger).Info("package written",
		zap.String("path", out),
		zap.String("id", pkg.ID),
		zap.Int("assets", len(pkg.Assets)),
		zap.Int("webComponents", len(pkg.WebComponents)),
		zap.Int("bytes", len(data)))
	return out, nil
}

// Build loads every file referenced by the manifest into a Package.
// index.html and favicon.ico next to the manifest are included when
// present; index.html always comes first.
func Build(ctx context.Context, manifestPath string, opts Options) (*Package, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := manifest.Decode(data)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(manifestPath)
	common := m.Base()

	var files []string
	seen := map[string]bool{}
	index := -1
	if fileExists(filepath.Join(base, "index.html")) {
		index = 0
		files = append(files, "index.html")
		seen["index.html"] = true
	}
	if fileExists(filepath.Join(base, "favicon.ico")) {
		files = append(files, "favicon.ico")
		seen["favicon.ico"] = true
	}
	for _, a := range common.Assets {
		if seen[a] {
			continue
		}
		seen[a] = true
		files = append(files, a)
	}
	if len(files) == 0 {
		return nil, ErrNoAssets
	}
	assetCount := len(files)

	var components []WebComponent
	if wc, ok := m.(manifest.WebComponents); ok {
		names := make([]string, 0, len(wc.Components))
		for name := range wc.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := wc.Components[name]
			c := WebComponent{Name: name, Title: entry.Name, Path: entry.Path, MetadataPath: entry.LocalesMetadataPath}
			for _, l := range entry.Locales {
				c.Locales = append(c.Locales, Locale{Lang: l.Lang, Path: l.Path})
				files = append(files, l.Path)
			}
			if c.MetadataPath != "" {
				files = append(files, c.MetadataPath)
			}
			components = append(components, c)
		}
	}

	contents, err := readAll(ctx, base, files, opts.Workers, logger.OrNop(opts.Logger))
	if err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	created := now().UnixMilli()
	pkg := &Package{
		ID:        uuid.NewString(),
		Name:      common.Name,
		Version:   common.Version,
		TargetURL: common.TargetURL,
		Created:   created,
		Updated:   created,
		Index:     index,
	}
	for i, f := range files[:assetCount] {
		p := f
		if i == index {
			p = IndexPath
		}
		pkg.Assets = append(pkg.Assets, Asset{Path: p, Mime: DetectMime(f, contents[i]), Bytes: contents[i]})
	}

	next := assetCount
	for ci := range components {
		for li := range components[ci].Locales {
			components[ci].Locales[li].Bytes = contents[next]
			next++
		}
		if components[ci].MetadataPath != "" {
			components[ci].Metadata = contents[next]
			next++
		}
	}
	pkg.WebComponents = components
	return pkg, nil
}

// readAll reads files relative to base through a bounded worker pool.
// Results keep the order of files.
func readAll(ctx context.Context, base string, files []string, workers int, log *zap.Logger) ([][]byte, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(p any) {
			log.Error("package worker panic recovered", zap.Any("panic", p), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	contents := make([][]byte, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			data, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(f)))
			if err != nil {
				errs[i] = fmt.Errorf("reading asset %s: %w", f, err)
				return
			}
			contents[i] = data
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting %s: %w", f, err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return contents, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
