package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMalformedStream is matched by every *MalformedError.
var ErrMalformedStream = errors.New("malformed byte stream")

// MalformedError reports recovered text that a JSON decoder rejected.
// It keeps both the rendered input and the cleaned output for inspection.
type MalformedError struct {
	Kind      string // Go type of the decoder error, e.g. *json.SyntaxError
	Offset    int64  // byte offset into Recovered, -1 if unknown
	Err       error
	Rendered  string // text before the cleanup steps
	Recovered string // text after the cleanup steps
}

func newMalformedError(err error, rendered, recovered string) *MalformedError {
	me := &MalformedError{
		Kind:      fmt.Sprintf("%T", err),
		Offset:    -1,
		Err:       err,
		Rendered:  rendered,
		Recovered: recovered,
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		me.Offset = syntaxErr.Offset
	}
	return me
}

// Error implements the error interface for MalformedError.
func (e *MalformedError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at offset %d: %v", ErrMalformedStream, e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedStream, e.Kind, e.Err)
}

// Unwrap returns the decoder error.
func (e *MalformedError) Unwrap() error { return e.Err }

// Is reports ErrMalformedStream as a match.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedStream }

// DiagnosticPaths returns the files WriteDiagnostics writes for stem.
func DiagnosticPaths(dir, stem string) (rendered, recovered string) {
	return filepath.Join(dir, stem+".raw.txt"), filepath.Join(dir, stem+".recovered.txt")
}

// WriteDiagnostics writes the pre-cleanup and post-cleanup text of e to dir
// as <stem>.raw.txt and <stem>.recovered.txt and returns both paths.
func WriteDiagnostics(dir, stem string, e *MalformedError) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	renderedPath, recoveredPath := DiagnosticPaths(dir, stem)
	if err := os.WriteFile(renderedPath, []byte(e.Rendered), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(recoveredPath, []byte(e.Recovered), 0o644); err != nil {
		return "", "", err
	}
	return renderedPath, recoveredPath, nil
}
