package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akhdanfadh/urlkeep/internal/epoch"
)

// ErrSchemaViolation is matched by every *SchemaError.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaError reports a source document shape the normalizers do not accept,
// including folder name collisions.
type SchemaError struct {
	Path   string // location in the source document, e.g. roots/bookmark_bar/Work
	Reason string
	Err    error // optional underlying error
}

// Error implements the error interface for SchemaError.
func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrSchemaViolation, e.Reason)
	}
	return fmt.Sprintf("%s at %s: %s", ErrSchemaViolation, e.Path, e.Reason)
}

// Unwrap returns the underlying error, if any.
func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports ErrSchemaViolation as a match.
func (e *SchemaError) Is(target error) bool { return target == ErrSchemaViolation }

// Document is a decoded source export. It is one of *BookmarkRoots or
// *GroupExport.
type Document interface {
	isDocument()
}

// BookmarkRoots is a nested bookmark export: named top-level folders holding
// folders and links.
type BookmarkRoots struct {
	Roots []*Folder
	// Clock converts Link.DateAdded. Nil means epoch.FromChrome.
	Clock epoch.Func
}

func (*BookmarkRoots) isDocument() {}

// Entry is a bookmark folder child. It is one of *Folder or *Link.
type Entry interface {
	isEntry()
}

// Folder is a named bookmark folder.
type Folder struct {
	Name     string
	Children []Entry
}

func (*Folder) isEntry() {}

// Link is a bookmarked URL. DateAdded is the raw epoch value from the source.
type Link struct {
	Title     string
	URL       string
	DateAdded any
}

func (*Link) isEntry() {}

// GroupExport is a flat OneTab export: unnested groups of tabs.
type GroupExport struct {
	Groups []Group
}

func (*GroupExport) isDocument() {}

// Group is a OneTab tab group. Every tab in it shares CreateDate.
type Group struct {
	CreateDate any     // milliseconds since the Unix epoch
	Label      *string // nil when the user never named the group
	Tabs       []Tab
}

// Tab is a single link inside a Group.
type Tab struct {
	ID    any
	Title string
	URL   string
}

// unmarshal decodes data into v keeping numbers as json.Number, so epoch
// values survive without float rounding.
func unmarshal(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}
