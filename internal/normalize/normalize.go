// Package normalize decodes browser link exports into typed documents and
// converts them into the canonical tree.
//
// Three source schemas are supported:
//   - Chromium "Bookmarks" files (nested folders, microseconds since 1601)
//   - Netscape HTML bookmark exports (nested folders, seconds since 1970)
//   - OneTab tab-group state (flat groups, milliseconds since 1970)
//
// Shape problems and folder name collisions are reported as *SchemaError and
// no partial tree is returned.
package normalize

import (
	"fmt"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// Normalize converts any decoded document into a canonical tree.
// loc sets the zone for date_added values; nil means time.Local.
func Normalize(doc Document, loc *time.Location) (*tree.Node, error) {
	switch d := doc.(type) {
	case *BookmarkRoots:
		return Bookmarks(d, loc)
	case *GroupExport:
		return Groups(d, loc)
	default:
		return nil, &SchemaError{Reason: fmt.Sprintf("unsupported document %T", doc)}
	}
}
