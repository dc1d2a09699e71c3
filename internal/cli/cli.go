package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/logger"
	"github.com/akhdanfadh/urlkeep/internal/server"
	"github.com/akhdanfadh/urlkeep/internal/store"
	"github.com/akhdanfadh/urlkeep/internal/transform"
	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// Version and Commit are set by main from build information.
var (
	Version = "dev"
	Commit  = "unknown"
)

// ErrUsage is returned for an unknown command or invalid arguments.
var ErrUsage = errors.New("invalid usage")

const usage = `Usage: urlkeep <command> [flags]

Commands:
  extract chrome|firefox  Pull OneTab state out of a browser profile into the raw directory
  transform               Convert every raw export into a canonical tree
  import                  Load canonical trees into the SQLite link store
  serve                   Serve trees and store statistics over HTTP
  urls [file...]          Print the unique http(s) URLs found in text, one per line
  version                 Print version information

Run 'urlkeep <command> -h' for the flags of a command.
`

// env holds the process streams a command talks to.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	tty    bool // stderr is a terminal
	getenv func(string) string
}

// Run executes the command named by args[0].
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, &env{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		tty:    logger.IsStderrTTY(),
		getenv: os.Getenv,
	})
}

func run(ctx context.Context, args []string, e *env) error {
	if len(args) == 0 {
		fmt.Fprint(e.stderr, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "extract":
		return runExtract(ctx, rest, e)
	case "transform":
		return runTransform(ctx, rest, e)
	case "import":
		return runImport(ctx, rest, e)
	case "serve":
		return runServe(ctx, rest, e)
	case "urls":
		return runURLs(rest, e)
	case "version", "-version", "--version":
		fmt.Fprintf(e.stdout, "%s %s (commit %s)\n", appName, Version, Commit)
		return nil
	case "help", "-h", "-help", "--help":
		fmt.Fprint(e.stderr, usage)
		return nil
	default:
		fmt.Fprint(e.stderr, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// parseCommand parses the shared flags plus any registered by extra and
// returns the resolved config and the remaining arguments.
func parseCommand(name string, args []string, e *env, extra func(fs *flag.FlagSet)) (*Config, []string, error) {
	fs := flag.NewFlagSet(appName+" "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	cf := newConfigFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cfg, err := cf.resolve(e.getenv)
	if err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// helpOrErr turns a -h request into a clean exit.
func helpOrErr(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func newLogger(cfg *Config, e *env) *logger.StdLogger {
	return logger.NewStdLogger(e.stderr, !cfg.Verbose)
}

func runTransform(ctx context.Context, args []string, e *env) error {
	cfg, _, err := parseCommand("transform", args, e, nil)
	if err != nil {
		return helpOrErr(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	log := newLogger(cfg, e)

	opts := []transform.Option{
		transform.WithLocation(loc),
		transform.WithLogger(log),
	}
	// verbose has its own logging
	var progress *logger.TTYProgresser
	if !cfg.Verbose && e.tty {
		progress = logger.NewProgresser(e.stderr, "Transforming: %d/%d")
		opts = append(opts, transform.WithProgress(progress))
	}

	start := time.Now()
	report, err := transform.New(cfg.ProcessedDir, opts...).Run(ctx, cfg.RawDir)
	if progress != nil {
		progress.Clear()
	}
	if err != nil {
		return fmt.Errorf("transforming %s: %w", cfg.RawDir, err)
	}

	printTransformSummary(e.stderr, report, time.Since(start))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed to transform", len(report.Failed))
	}
	return nil
}

func runImport(ctx context.Context, args []string, e *env) error {
	cfg, _, err := parseCommand("import", args, e, nil)
	if err != nil {
		return helpOrErr(err)
	}
	log := newLogger(cfg, e)

	paths, err := filepath.Glob(filepath.Join(cfg.ProcessedDir, "*.json"))
	if err != nil {
		return fmt.Errorf("listing %s: %w", cfg.ProcessedDir, err)
	}
	if len(paths) == 0 {
		fmt.Fprintf(e.stderr, "Warning: no processed trees in %s\n", cfg.ProcessedDir)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var stats importStats
	start := time.Now()
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		fileLog := log.With(filepath.Base(path))
		res, err := importFile(ctx, st, path)
		if err != nil {
			stats.failed++
			fileLog.Error("%v", err)
			continue
		}
		stats.imported++
		stats.folders += res.Folders
		stats.pages += res.Pages
		if res.Replaced {
			stats.replaced++
		}
		fileLog.Info("imported %d folders, %d pages", res.Folders, res.Pages)
	}
	stats.duration = time.Since(start)

	total, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	printImportSummary(e.stderr, stats, total)
	if stats.failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", stats.failed)
	}
	return nil
}

// importFile loads one processed tree into st.
func importFile(ctx context.Context, st *store.Store, path string) (*store.ImportResult, error) {
	meta, err := transform.ParseFilename(path)
	if err != nil {
		return nil, err
	}
	root, err := tree.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	src := store.Source{
		Filename: filepath.Base(path),
		Area:     meta.Area,
		Browser:  meta.Browser,
		Context:  meta.Context,
		Purpose:  meta.Purpose,
	}
	return st.ImportTree(ctx, src, root)
}

func runServe(ctx context.Context, args []string, e *env) error {
	cfg, _, err := parseCommand("serve", args, e, nil)
	if err != nil {
		return helpOrErr(err)
	}
	// request lines are Info, so the server always logs them
	log := logger.NewStdLogger(e.stderr, false)

	opts := []server.Option{server.WithLogger(log)}
	if _, statErr := os.Stat(cfg.DBPath); statErr == nil {
		st, err := store.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		opts = append(opts, server.WithLinkStore(st))
	} else {
		log.Warn("no database at %s, store endpoints disabled (run 'urlkeep import' first)", cfg.DBPath)
	}

	return server.New(cfg.ProcessedDir, opts...).ListenAndServe(ctx, cfg.ListenAddr)
}
