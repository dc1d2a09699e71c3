package transform

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrFilenameConvention is matched by every *FilenameError.
	ErrFilenameConvention = errors.New("filename does not follow {area}_{browser}_{context}_{purpose}")
	// ErrUnsupportedSource is matched by every *UnsupportedSourceError.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrOutputTaken is matched by every *OutputTakenError.
	ErrOutputTaken = errors.New("output already written in this batch")
)

// Stage names the step of the per-file pipeline that failed.
type Stage string

// Pipeline stages, in the order a file passes through them.
const (
	StageFilename  Stage = "filename"
	StageDispatch  Stage = "dispatch"
	StageOutput    Stage = "output"
	StageRead      Stage = "read"
	StageDecode    Stage = "decode"
	StageNormalize Stage = "normalize"
	StageWrite     Stage = "write"
)

// Metadata is the information encoded in an input filename.
type Metadata struct {
	Area    string // "bookmarks" or "onetab"
	Browser string
	Context string // e.g. "home" or a company name
	Purpose string // e.g. "personal" or "work"
	Ext     string // lower-cased extension including the dot
}

// Stem joins the four tokens back into the filename without extension.
func (m Metadata) Stem() string {
	return strings.Join([]string{m.Area, m.Browser, m.Context, m.Purpose}, "_")
}

// FilenameError reports a filename that does not split into exactly four
// non-empty underscore-separated tokens.
type FilenameError struct {
	Name   string
	Tokens int
}

// Error implements the error interface for FilenameError.
func (e *FilenameError) Error() string {
	return fmt.Sprintf("%s: got %d tokens in %q", ErrFilenameConvention, e.Tokens, e.Name)
}

// Is reports ErrFilenameConvention as a match.
func (e *FilenameError) Is(target error) bool { return target == ErrFilenameConvention }

// UnsupportedSourceError reports an area/browser/extension combination
// without a normalizer.
type UnsupportedSourceError struct {
	Area    string
	Browser string
	Ext     string
}

// Error implements the error interface for UnsupportedSourceError.
func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("%s: no normalizer for area %q, browser %q and %s files",
		ErrUnsupportedSource, e.Area, e.Browser, e.Ext)
}

// Is reports ErrUnsupportedSource as a match.
func (e *UnsupportedSourceError) Is(target error) bool { return target == ErrUnsupportedSource }

// OutputTakenError reports an input whose output path was already written by
// another input of the same batch, e.g. X.json next to X.html.
type OutputTakenError struct {
	Output string
	By     string // input that wrote Output
}

// Error implements the error interface for OutputTakenError.
func (e *OutputTakenError) Error() string {
	return fmt.Sprintf("%s: %s was written from %s", ErrOutputTaken, filepath.Base(e.Output), e.By)
}

// Is reports ErrOutputTaken as a match.
func (e *OutputTakenError) Is(target error) bool { return target == ErrOutputTaken }

// FileError ties a per-file failure to the file and stage it happened in.
type FileError struct {
	File  string
	Stage Stage
	Err   error
}

// Error implements the error interface for FileError.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error { return e.Err }

// Result describes one successfully written output file.
type Result struct {
	Input   string
	Output  string
	Folders int
	Links   int
}

// Report summarizes a batch run.
type Report struct {
	Written []Result
	Failed  []*FileError
}

// Links returns the number of links written across the batch.
func (r *Report) Links() int {
	n := 0
	for _, res := range r.Written {
		n += res.Links
	}
	return n
}
