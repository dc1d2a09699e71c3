// Package transform turns a directory of raw link exports into canonical
// tree files, one output per input, picking the normalizer from the input's
// filename.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/logger"
	"github.com/akhdanfadh/urlkeep/internal/normalize"
	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// Area values recognized in filenames.
const (
	AreaBookmarks = "bookmarks"
	AreaOneTab    = "onetab"
)

// Extensions accepted in the raw directory.
const (
	extJSON = ".json"
	extHTML = ".html"
)

// chromiumBrowsers write the Chromium "Bookmarks" JSON format.
var chromiumBrowsers = map[string]bool{
	"chrome":   true,
	"chromium": true,
	"brave":    true,
	"edge":     true,
}

// Decoder reads one source file into a document ready for normalization.
type Decoder func(r io.Reader) (normalize.Document, error)

// ParseFilename splits name (a path or base name) into its metadata.
func ParseFilename(name string) (Metadata, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	tokens := strings.Split(strings.TrimSuffix(base, ext), "_")
	if len(tokens) != 4 {
		return Metadata{}, &FilenameError{Name: base, Tokens: len(tokens)}
	}
	for _, tok := range tokens {
		if tok == "" {
			return Metadata{}, &FilenameError{Name: base, Tokens: len(tokens)}
		}
	}
	return Metadata{
		Area:    tokens[0],
		Browser: tokens[1],
		Context: tokens[2],
		Purpose: tokens[3],
		Ext:     strings.ToLower(ext),
	}, nil
}

// Dispatch returns the decoder for the source described by m.
func Dispatch(m Metadata) (Decoder, error) {
	switch {
	case m.Area == AreaBookmarks && m.Ext == extJSON && chromiumBrowsers[m.Browser]:
		return func(r io.Reader) (normalize.Document, error) { return normalize.DecodeBookmarks(r) }, nil
	case m.Area == AreaBookmarks && m.Ext == extHTML:
		return func(r io.Reader) (normalize.Document, error) { return normalize.ParseNetscape(r) }, nil
	case m.Area == AreaOneTab && m.Ext == extJSON:
		return func(r io.Reader) (normalize.Document, error) { return normalize.DecodeGroups(r) }, nil
	}
	return nil, &UnsupportedSourceError{Area: m.Area, Browser: m.Browser, Ext: m.Ext}
}

// Transformer represents the raw-to-processed pipeline.
type Transformer struct {
	outDir   string
	loc      *time.Location
	logger   logger.Logger
	progress logger.Progresser
}

// Option configures the Transformer.
type Option func(*Transformer)

// New creates a Transformer writing into outDir.
func New(outDir string, opts ...Option) *Transformer {
	t := &Transformer{
		outDir: outDir,
		loc:    time.Local,
		logger: logger.Noop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithLocation sets the zone used to format date_added values.
func WithLocation(loc *time.Location) Option {
	return func(t *Transformer) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger sets the logger for info/warn/error messages.
func WithLogger(l logger.Logger) Option {
	return func(t *Transformer) {
		t.logger = l
	}
}

// WithProgress enables progress reporting (e.g., for TTY output).
func WithProgress(p logger.Progresser) Option {
	return func(t *Transformer) {
		t.progress = p
	}
}

// TransformFile converts the file at path and writes its canonical tree to
// the output directory under the same stem with a .json extension.
// Failures are returned as *FileError.
func (t *Transformer) TransformFile(path string) (*Result, error) {
	return t.transform(path, nil)
}

// transform does the work of TransformFile. taken maps output paths already
// written in this batch to the input that produced them.
func (t *Transformer) transform(path string, taken map[string]string) (*Result, error) {
	name := filepath.Base(path)
	fail := func(stage Stage, err error) (*Result, error) {
		return nil, &FileError{File: name, Stage: stage, Err: err}
	}

	meta, err := ParseFilename(name)
	if err != nil {
		return fail(StageFilename, err)
	}
	decode, err := Dispatch(meta)
	if err != nil {
		return fail(StageDispatch, err)
	}
	out := filepath.Join(t.outDir, meta.Stem()+extJSON)
	if prev, ok := taken[out]; ok {
		return fail(StageOutput, &OutputTakenError{Output: out, By: prev})
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(StageRead, err)
	}
	doc, err := decode(f)
	_ = f.Close() // read-only, nothing to flush
	if err != nil {
		return fail(StageDecode, err)
	}

	root, err := normalize.Normalize(doc, t.loc)
	if err != nil {
		return fail(StageNormalize, err)
	}

	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return fail(StageWrite, err)
	}
	if err := tree.WriteFile(out, root); err != nil {
		return fail(StageWrite, err)
	}

	folders, links := root.Counts()
	return &Result{Input: path, Output: out, Folders: folders, Links: links}, nil
}

// Run transforms every .json and .html file in dir in name order. A failing
// file is logged and recorded in the report and the batch moves on. A file
// whose output was already written by an earlier file in the batch fails at
// StageOutput instead of overwriting it. Run
// returns an error only if dir cannot be listed or ctx is cancelled.
func (t *Transformer) Run(ctx context.Context, dir string) (*Report, error) {
	paths, err := listSources(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	report := &Report{}
	taken := make(map[string]string, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if t.progress != nil {
			t.progress.Update(i+1, len(paths), filepath.Base(path))
		}

		res, err := t.transform(path, taken)
		if err != nil {
			var fe *FileError
			if !errors.As(err, &fe) {
				fe = &FileError{File: filepath.Base(path), Stage: StageRead, Err: err}
			}
			report.Failed = append(report.Failed, fe)
			if t.progress != nil {
				t.progress.Clear()
			}
			t.logger.Error("%v", fe)
			continue
		}
		taken[res.Output] = filepath.Base(path)
		report.Written = append(report.Written, *res)
		t.logger.Info("%s: wrote %s (%d folders, %d urls)", filepath.Base(path), res.Output, res.Folders, res.Links)
	}
	return report, nil
}

// listSources returns the candidate input files of dir, sorted by name.
func listSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir) // sorted by filename
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case extJSON, extHTML:
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
