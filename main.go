// ars: widget manifest and localization assembler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minios-linux/ars/bundle"
	"github.com/minios-linux/ars/config"
	"github.com/minios-linux/ars/langmeta"
	"github.com/minios-linux/ars/locales"
	"github.com/minios-linux/ars/lockfile"
	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/manifest"
	"github.com/minios-linux/ars/pack"
	"github.com/minios-linux/ars/postproc"
	"github.com/minios-linux/ars/server"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir   string
	logLevel  string
	logFormat string
)

func newLogger() (*zap.Logger, error) {
	return logger.New(logLevel, logFormat)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ars",
		Short: "Widget manifest and localization assembler",
		Long: `ars assembles the deployment manifest of a bundled front-end.

Reads the bundler output and the translation sources, writes per-widget
locale and metadata documents, fallback loaders (web components mode) and
manifest.json, then hands the manifest to the post-processor.

Commands:
  build       Assemble manifest, locales and loaders
  pack        Package the files referenced by a manifest
  serve       Serve an asset package for local preview
  status      Show project info and widgets changed since the last build
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newBuildCmd(),
		newPackCmd(),
		newServeCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ars version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// build
// ---------------------------------------------------------------------------

type buildArgs struct {
	wc            bool
	targetURL     string
	setTargetURL  bool
	noPostProcess bool
}

func newBuildCmd() *cobra.Command {
	var a buildArgs

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble manifest, locales and loaders",
		Long: `Assemble the deployment manifest from the bundler output.

The bundler manifest (bundleManifest, default <outDir>/.vite/manifest.json)
lists entries and assets. Without it every file below outDir is listed and
no widget entries are known.

For every widget the shared default locales are deep merged with the
widget's own locales and written to <outDir>/locales/<widget>/<lang>.json,
together with meta.json describing hideable and HTML texts. In web
components mode a fallback loader is generated per widget.

The manifest is then passed to the post-processor: the postProcess command
from .ars.yaml, or the built-in packager when none is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setTargetURL = cmd.Flags().Changed("target-url")
			return runBuild(cmd.Context(), a)
		},
	}

	cmd.Flags().BoolVar(&a.wc, "wc", false, "Build in web components mode")
	cmd.Flags().StringVar(&a.targetURL, "target-url", "", "Base URL the build is deployed at")
	cmd.Flags().BoolVar(&a.noPostProcess, "no-post-process", false, "Skip the post-processor")

	return cmd
}

// applyBuildFlags overrides configuration values set on the command line.
func applyBuildFlags(cfg *config.ArsFile, a buildArgs) error {
	if a.wc {
		cfg.WC = true
	}
	if a.setTargetURL {
		cfg.TargetURL = a.targetURL
	}
	return cfg.Validate()
}

func runBuild(ctx context.Context, a buildArgs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cfg, a); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	assets, err := readBuildAssets(cfg)
	if err != nil {
		return err
	}

	var pp manifest.PostProcessor
	if !a.noPostProcess {
		pp = postproc.FromArgv(cfg.PostProcess, cfg.Root, log)
	}

	mode := "spa"
	if cfg.WC {
		mode = "web components"
	}
	logInfo("Building %s %s (%s)", cfg.Name, cfg.Version, mode)

	res, err := manifest.NewBuilder(cfg, log, pp).Build(ctx, assets)
	if res == nil {
		return err
	}
	logSuccess("Manifest written: %s", res.Path)

	if lerr := updateLock(cfg, res); lerr != nil {
		logWarning("Could not update %s: %v", lockfile.LockFileName, lerr)
	}
	if err != nil {
		return fmt.Errorf("post-processing %s: %w", res.Path, err)
	}
	return nil
}

// readBuildAssets reads the bundler manifest, or lists the output
// directory when there is none.
func readBuildAssets(cfg *config.ArsFile) ([]bundle.BuildAsset, error) {
	path := cfg.AbsBundleManifest()
	if fileExists(path) {
		return bundle.ReadManifest(path)
	}
	logWarning("No bundler manifest at %s, listing %s", path, cfg.AbsOutDir())

	exclude := []string{
		".vite",
		manifest.FileName,
		manifest.LocalesDir,
		cfg.FallbackPrefix,
		pack.FileName(cfg.Name),
	}
	for _, s := range cfg.StaticAssets {
		if s.Dest != "" {
			exclude = append(exclude, s.Dest)
		}
	}
	return bundle.ScanDir(cfg.AbsOutDir(), exclude)
}

// updateLock records the sources every built widget was assembled from.
func updateLock(cfg *config.ArsFile, res *manifest.Result) error {
	lf, err := lockfile.Load(cfg.Root)
	if err != nil {
		return err
	}
	widgets := make([]string, 0, len(res.Snapshots))
	for _, s := range res.Snapshots {
		sums, err := lockfile.Sources(cfg.AbsSrcDir(), s.Widget)
		if err != nil {
			return err
		}
		lf.Record(s.Widget, sums)
		widgets = append(widgets, s.Widget)
	}
	lf.Clean(widgets)
	return lf.Save()
}

// ---------------------------------------------------------------------------
// pack
// ---------------------------------------------------------------------------

func newPackCmd() *cobra.Command {
	var (
		outDir  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "pack <manifest>",
		Short: "Package the files referenced by a manifest",
		Long: `Read manifest.json and write one compressed package holding
index.html, favicon.ico, every listed asset and, in web components mode,
each widget's locale and metadata documents.

The package is written next to the manifest unless --out is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			out, err := pack.Pack(cmd.Context(), args[0], pack.Options{
				OutDir:  outDir,
				Workers: workers,
				Logger:  log,
			})
			if err != nil {
				return err
			}
			logSuccess("Package written: %s", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: manifest directory)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent file reads (default: number of CPUs)")

	return cmd
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:   "serve [package]",
		Short: "Serve an asset package for local preview",
		Long: `Serve a package written by 'ars pack'.

Configuration comes from ARS_SERVER_* environment variables, optionally
loaded from .env files:
  ARS_SERVER_HOST           listen host (default 0.0.0.0)
  ARS_SERVER_PORT           listen port (default 8000)
  ARS_SERVER_ADDRESS        host:port, overrides host and port
  ARS_SERVER_PUBLIC_URL     URL the server is reached at
  ARS_SERVER_ASSET_PACKAGE  package to serve (or pass it as argument)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pkgPath string
			if len(args) == 1 {
				pkgPath = args[0]
			}
			return runServe(cmd.Context(), pkgPath, envFiles)
		},
	}

	cmd.Flags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Environment files to load")

	return cmd
}

func runServe(ctx context.Context, pkgPath string, envFiles []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for i, f := range envFiles {
		if !filepath.IsAbs(f) {
			envFiles[i] = filepath.Join(rootDir, f)
		}
	}
	cfg, err := config.LoadServer(pkgPath, envFiles...)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pkg, err := pack.Read(cfg.AssetPackage)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(cfg, pkg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logInfo("Serving %s %s at %s", pkg.Name, pkg.Version, cfg.PublicURL)
	return srv.ListenAndServe(ctx)
}

// ---------------------------------------------------------------------------
// status (read-only: project info + widget state)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and widgets changed since the last build",
		Long: `Show the resolved build configuration and every widget with its
languages. Widgets whose translation sources changed since the last build
(as recorded in ars.lock) are marked. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

// widgetStatus is one row of the status table.
type widgetStatus struct {
	widget    string
	languages []string
	state     string
	change    lockfile.Change
}

// Widget states.
const (
	stateCurrent = "up to date"
	stateChanged = "changed"
	stateNew     = "not built"
	stateRemoved = "removed"
)

// collectStatus compares the current sources of every widget with the lock.
func collectStatus(cfg *config.ArsFile, lf *lockfile.LockFile) ([]widgetStatus, error) {
	catalog := locales.NewScanner(cfg.AbsSrcDir(), nil).Load()

	known := make(map[string]bool)
	var rows []widgetStatus
	for _, w := range catalog.Services {
		known[w] = true
		sums, err := lockfile.Sources(cfg.AbsSrcDir(), w)
		if err != nil {
			return nil, err
		}
		c := lf.Diff(w, sums)
		row := widgetStatus{widget: w, languages: catalog.ForWidget(w).Languages(), change: c}
		switch {
		case c.New:
			row.state = stateNew
		case c.Empty():
			row.state = stateCurrent
		default:
			row.state = stateChanged
		}
		rows = append(rows, row)
	}
	for _, w := range lf.Widgets() {
		if !known[w] {
			rows = append(rows, widgetStatus{widget: w, state: stateRemoved})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].widget < rows[j].widget })
	return rows, nil
}

func runStatus() error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	// Project info header
	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	fmt.Fprintf(os.Stderr, "  Name:       %s\n", cfg.Name)
	fmt.Fprintf(os.Stderr, "  Version:    %s\n", cfg.Version)

	absRoot, _ := filepath.Abs(cfg.Root)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)

	mode := "Single page"
	if cfg.WC {
		mode = "Web components"
	}
	fmt.Fprintf(os.Stderr, "  Mode:       %s\n", mode)
	if cfg.TargetURL != "" {
		fmt.Fprintf(os.Stderr, "  Target URL: %s\n", cfg.TargetURL)
	}
	fmt.Fprintf(os.Stderr, "  Sources:    %s\n", cfg.AbsSrcDir())
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", cfg.AbsOutDir())

	postProcess := "built-in packager"
	if len(cfg.PostProcess) > 0 {
		postProcess = strings.Join(cfg.PostProcess, " ")
	}
	fmt.Fprintf(os.Stderr, "  Post:       %s\n", postProcess)
	fmt.Fprintln(os.Stderr)

	lf, err := lockfile.Load(cfg.Root)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Lock:       %s\n", lf.Summary())
	fmt.Fprintln(os.Stderr)

	rows, err := collectStatus(cfg, lf)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		logInfo("No widgets found below %s", filepath.Join(cfg.AbsSrcDir(), "services"))
		return nil
	}

	fmt.Fprintf(os.Stderr, "%sWidgets%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n%-20s %-12s %s\n", "Widget", "State", "Languages")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	changed := 0
	for _, r := range rows {
		fmt.Fprintf(os.Stderr, "%-20s %s %s\n", r.widget, stateCell(r.state), languageList(r.languages))
		if r.state != stateCurrent {
			changed++
		}
		for _, doc := range r.change.Added {
			fmt.Fprintf(os.Stderr, "    + %s\n", doc)
		}
		for _, doc := range r.change.Modified {
			fmt.Fprintf(os.Stderr, "    ~ %s\n", doc)
		}
		for _, doc := range r.change.Removed {
			fmt.Fprintf(os.Stderr, "    - %s\n", doc)
		}
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	if changed > 0 {
		logInfo("%d widget(s) changed since the last build. Run 'ars build' to update.", changed)
	} else {
		logSuccess("All widgets up to date")
	}
	return nil
}

func stateCell(state string) string {
	color := colorYellow
	switch state {
	case stateCurrent:
		color = colorGreen
	case stateRemoved:
		color = colorRed
	}
	return fmt.Sprintf("%s%-12s%s", color, state, colorReset)
}

// languageList renders languages with their flags.
func languageList(langs []string) string {
	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		if flag := langmeta.Resolve(lang).Flag; flag != "" {
			parts = append(parts, flag+" "+lang)
			continue
		}
		parts = append(parts, lang)
	}
	return strings.Join(parts, ", ")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
