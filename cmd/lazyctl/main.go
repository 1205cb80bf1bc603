package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/lazyload/graph"
	"github.com/wippyai/lazyload/lazy"
	"github.com/wippyai/lazyload/manifest"
	"github.com/wippyai/lazyload/wasmunit"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lazyctl manifest -snapshot <graph.json> -registry <imports.yaml> [-public-path p] [-out file] [-config lazyctl.toml] [-v]")
	fmt.Fprintln(os.Stderr, "       lazyctl inspect [-manifest lazy-manifest.json] [-i]")
	fmt.Fprintln(os.Stderr, "       lazyctl render -id <module id> [-manifest lazy-manifest.json] [-dir dist] [-v]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "manifest":
		err = runManifest(os.Args[2:], os.Stdout)
	case "inspect":
		err = runInspect(os.Args[2:], os.Stdout)
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	var log *zap.Logger
	var err error
	if verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	manifest.SetLogger(log.Named("manifest"))
	lazy.SetLogger(log.Named("lazy"))
	wasmunit.SetLogger(log.Named("wasmunit"))
	return log, nil
}

func runManifest(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "TOML config file")
		snapshot   = fs.String("snapshot", "", "Compilation snapshot (JSON)")
		registry   = fs.String("registry", "", "Lazy import registry (YAML or JSON)")
		publicPath = fs.String("public-path", "", "Override the compilation's public path")
		out        = fs.String("out", manifest.DefaultFilename, "Output file, - for stdout")
		verbose    = fs.Bool("v", false, "Verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultBuildConfig()
	if *configPath != "" {
		loaded, err := loadBuildConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "snapshot":
			cfg.Snapshot = *snapshot
		case "registry":
			cfg.Registry = *registry
		case "public-path":
			cfg.PublicPath = publicPath
		case "out":
			cfg.Out = *out
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if err := cfg.validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := buildManifest(context.Background(), cfg)
	if err != nil {
		return err
	}

	if cfg.Out == "-" {
		return manifest.Encode(stdout, m)
	}
	if err := manifest.WriteFile(cfg.Out, m); err != nil {
		return err
	}
	log.Info("manifest written",
		zap.String("path", cfg.Out),
		zap.Int("entries", len(m.Assets)),
	)
	return nil
}

// buildManifest loads the snapshot and the registry concurrently, then
// builds the manifest from the linked compilation.
func buildManifest(ctx context.Context, cfg buildConfig) (*manifest.Manifest, error) {
	var (
		compilation *graph.Compilation
		reg         *graph.Registry
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := graph.LoadFile(cfg.Snapshot)
		compilation = c
		return err
	})
	g.Go(func() error {
		r, err := graph.LoadRegistry(cfg.Registry)
		reg = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var opts []manifest.Option
	if cfg.PublicPath != nil {
		opts = append(opts, manifest.WithPublicPath(*cfg.PublicPath))
	}
	return manifest.Build(compilation, reg, opts...), nil
}

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var (
		path        = fs.String("manifest", manifest.DefaultFilename, "Manifest file")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := manifest.LoadFile(*path)
	if err != nil {
		return err
	}
	if *interactive {
		return runInteractive(*path, m)
	}
	printManifest(stdout, m)
	return nil
}

func printManifest(w io.Writer, m *manifest.Manifest) {
	fmt.Fprintf(w, "Public path: %q\n", m.PublicPath)
	fmt.Fprintf(w, "Entries: %d\n", len(m.Assets))
	for _, id := range m.IDs() {
		fmt.Fprintf(w, "\n%s\n", id)
		for _, u := range m.AssetURLs(id) {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
}

// runRender server-renders one WebAssembly unit listed in the manifest and
// prints its preload hints followed by the marked markup.
func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var (
		path    = fs.String("manifest", manifest.DefaultFilename, "Manifest file")
		dir     = fs.String("dir", ".", "Build output directory the manifest files are relative to")
		id      = fs.String("id", "", "Module id to render")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("-id is required")
	}

	log, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	m, err := manifest.LoadFile(*path)
	if err != nil {
		return err
	}
	src, err := wasmunit.FromManifest(m, *id, os.DirFS(*dir))
	if err != nil {
		return err
	}

	ctx := context.Background()
	imp, err := wasmunit.NewImporter(ctx, wasmunit.WithWASI())
	if err != nil {
		return err
	}
	defer imp.Close(ctx)

	unit := lazy.ForPaint(imp.ImportRendered(src), lazy.WithModuleID(*id))
	session := lazy.NewServerSession(lazy.WithManifest(m), lazy.WithContext(ctx))
	defer session.Close()

	markup, err := session.Render(&lazy.Suspense{Children: []lazy.Node{unit}})
	if err != nil {
		return err
	}
	for _, hint := range session.AssetHints() {
		fmt.Fprintln(stdout, hint)
	}
	fmt.Fprintln(stdout, markup)
	return nil
}
