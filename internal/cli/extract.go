package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akhdanfadh/urlkeep/internal/extstore"
	"github.com/akhdanfadh/urlkeep/internal/logger"
	"github.com/akhdanfadh/urlkeep/internal/normalize"
	"github.com/akhdanfadh/urlkeep/internal/recovery"
	"github.com/akhdanfadh/urlkeep/internal/transform"
)

// extractOptions are the extract-specific flags.
type extractOptions struct {
	browser  string
	context  string
	purpose  string
	listKeys bool
}

func runExtract(ctx context.Context, args []string, e *env) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(e.stderr, "Usage: urlkeep extract chrome|firefox -context NAME -purpose NAME [flags]")
		return fmt.Errorf("%w: extract needs a browser", ErrUsage)
	}
	opts := extractOptions{browser: args[0]}

	cfg, _, err := parseCommand("extract "+opts.browser, args[1:], e, func(fs *flag.FlagSet) {
		fs.StringVar(&opts.context, "context", "", "Where the profile is used, e.g. home or a company name (required)")
		fs.StringVar(&opts.purpose, "purpose", "", "What the profile is used for, e.g. personal or work (required)")
		fs.BoolVar(&opts.listKeys, "list-keys", false, "List the keys of the Chrome extension store and exit")
	})
	if err != nil {
		return helpOrErr(err)
	}
	log := newLogger(cfg, e)

	if opts.listKeys {
		if opts.browser != "chrome" {
			return fmt.Errorf("%w: -list-keys only applies to chrome", ErrUsage)
		}
		return listStoreKeys(cfg.ChromeOneTabDir, e)
	}

	outName, err := rawFilename(opts)
	if err != nil {
		return err
	}

	var (
		state string
		doc   *normalize.GroupExport
	)
	switch opts.browser {
	case "chrome":
		state, doc, err = extractChrome(cfg, log)
	case "firefox":
		state, doc, err = extractFirefox(cfg)
	default:
		return fmt.Errorf("%w: unsupported browser %q (want chrome or firefox)", ErrUsage, opts.browser)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := filepath.Join(cfg.RawDir, outName)
	if err := writeRawState(out, state); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	tabs := 0
	for _, g := range doc.Groups {
		tabs += len(g.Tabs)
	}
	printExtractSummary(e.stderr, out, len(doc.Groups), tabs)
	return nil
}

// rawFilename builds the raw export name, which must itself follow the
// {area}_{browser}_{context}_{purpose} convention.
func rawFilename(opts extractOptions) (string, error) {
	for _, f := range []struct{ name, value string }{
		{"context", opts.context},
		{"purpose", opts.purpose},
	} {
		if f.value == "" {
			return "", fmt.Errorf("%w: -%s is required", ErrUsage, f.name)
		}
		if strings.ContainsAny(f.value, `_/\`) {
			return "", fmt.Errorf("%w: -%s %q must not contain '_' or path separators", ErrUsage, f.name, f.value)
		}
	}
	name := fmt.Sprintf("%s_%s_%s_%s.json", transform.AreaOneTab, opts.browser, opts.context, opts.purpose)
	if _, err := transform.ParseFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// extractChrome reads and recovers the OneTab state from the extension's
// LevelDB store. A recovery failure writes diagnostics and aborts the run.
func extractChrome(cfg *Config, log logger.Logger) (string, *normalize.GroupExport, error) {
	if cfg.ChromeOneTabDir == "" {
		return "", nil, fmt.Errorf("%w: no Chrome OneTab directory configured (-chrome-dir)", ErrUsage)
	}

	st, err := extstore.Open(cfg.ChromeOneTabDir)
	if err != nil {
		if errors.Is(err, extstore.ErrLocked) {
			log.Error("close the browser and retry")
		}
		return "", nil, err
	}
	raw, err := st.Get(extstore.OneTabStateKey)
	_ = st.Close() // read-only handle, only the lock to release
	if err != nil {
		return "", nil, err
	}
	log.Info("read %d bytes of OneTab state from %s", len(raw), cfg.ChromeOneTabDir)

	text, err := recovery.Recover(raw)
	if err != nil {
		var me *recovery.MalformedError
		if errors.As(err, &me) {
			stem := transform.AreaOneTab + "_chrome"
			rendered, recovered, diagErr := recovery.WriteDiagnostics(cfg.DiagnosticsDir, stem, me)
			if diagErr != nil {
				log.Error("writing diagnostics: %v", diagErr)
			} else {
				log.Error("diagnostics written to %s and %s", rendered, recovered)
			}
		}
		return "", nil, fmt.Errorf("recovering OneTab state: %w", err)
	}

	doc, err := normalize.DecodeGroups(strings.NewReader(text))
	if err != nil {
		return "", nil, fmt.Errorf("decoding recovered state: %w", err)
	}
	return text, doc, nil
}

// extractFirefox reads the OneTab state embedded in the Firefox extension
// storage file.
func extractFirefox(cfg *Config) (string, *normalize.GroupExport, error) {
	if cfg.FirefoxOneTabFile == "" {
		return "", nil, fmt.Errorf("%w: no Firefox OneTab file configured (-firefox-file)", ErrUsage)
	}
	f, err := os.Open(cfg.FirefoxOneTabFile)
	if err != nil {
		return "", nil, fmt.Errorf("opening Firefox storage: %w", err)
	}
	defer func() { _ = f.Close() }() // ignore error, less critical for read

	doc, state, err := normalize.ReadFirefoxStorage(f)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", cfg.FirefoxOneTabFile, err)
	}
	return state, doc, nil
}

// writeRawState writes state as indented JSON, creating the directory.
func writeRawState(path, state string) (err error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(state), "", "    "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = buf.WriteTo(f)
	return err
}

// listStoreKeys prints every key of the extension store, quoted so separator
// bytes stay visible.
func listStoreKeys(dir string, e *env) error {
	st, err := extstore.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	keys, err := st.Keys()
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}
	for _, k := range keys {
		marker := " "
		if bytes.Equal(k, extstore.OneTabStateKey) {
			marker = "*"
		}
		fmt.Fprintf(e.stdout, "%s %q\n", marker, k)
	}
	return nil
}
