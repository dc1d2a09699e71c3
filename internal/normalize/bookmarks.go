package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/epoch"
	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// Bookmark entry type tags used by Chromium bookmark files.
const (
	entryTypeFolder = "folder"
	entryTypeURL    = "url"
)

// syncVersionKey sits next to the real roots and is not a folder.
const syncVersionKey = "sync_transaction_version"

// rawEntry is the on-disk shape of a Chromium bookmark node.
type rawEntry struct {
	Type      string            `json:"type"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	DateAdded any               `json:"date_added"`
	Children  []json.RawMessage `json:"children"`
}

// DecodeBookmarks reads a Chromium "Bookmarks" file.
//
//	{"roots": {"bookmark_bar": {...}, "other": {...}, "synced": {...}}, "checksum": "...", "version": 1}
//
// Every roots entry must be a folder. Roots are returned in key order.
func DecodeBookmarks(r io.Reader) (*BookmarkRoots, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file struct {
		Roots map[string]json.RawMessage `json:"roots"`
	}
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding bookmarks: %w", err)
	}
	if file.Roots == nil {
		return nil, &SchemaError{Reason: `missing "roots" object`}
	}

	keys := make([]string, 0, len(file.Roots))
	for key := range file.Roots {
		if key == syncVersionKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	doc := &BookmarkRoots{Clock: epoch.FromChrome}
	for _, key := range keys {
		path := "roots/" + key
		entry, err := decodeEntry(file.Roots[key], path)
		if err != nil {
			return nil, err
		}
		folder, ok := entry.(*Folder)
		if !ok {
			// links cannot live at root level
			return nil, &SchemaError{Path: path, Reason: "root entry is not a folder"}
		}
		doc.Roots = append(doc.Roots, folder)
	}
	return doc, nil
}

// decodeEntry decodes a bookmark node into its tagged variant.
func decodeEntry(data json.RawMessage, path string) (Entry, error) {
	var raw rawEntry
	if err := unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Path: path, Reason: "malformed entry", Err: err}
	}

	switch raw.Type {
	case entryTypeFolder:
		folder := &Folder{Name: raw.Name}
		for i, childData := range raw.Children {
			child, err := decodeEntry(childData, fmt.Sprintf("%s/children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			folder.Children = append(folder.Children, child)
		}
		return folder, nil
	case entryTypeURL:
		return &Link{Title: raw.Name, URL: raw.URL, DateAdded: raw.DateAdded}, nil
	default:
		return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("expected folder or url but got %q", raw.Type)}
	}
}

// Bookmarks converts a nested bookmark export into a canonical tree. Each root
// becomes a top-level folder named after its declared name. Sibling folders
// with the same name are rejected, never merged.
func Bookmarks(doc *BookmarkRoots, loc *time.Location) (*tree.Node, error) {
	clock := doc.Clock
	if clock == nil {
		clock = epoch.FromChrome
	}

	root := tree.New()
	for _, folder := range doc.Roots {
		path := []string{folder.Name}
		node, err := folderNode(folder, path, clock, loc)
		if err != nil {
			return nil, err
		}
		if err := addFolder(root, folder.Name, node, path); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func folderNode(folder *Folder, path []string, clock epoch.Func, loc *time.Location) (*tree.Node, error) {
	node := tree.New()
	for _, child := range folder.Children {
		switch c := child.(type) {
		case *Folder:
			childPath := append(path[:len(path):len(path)], c.Name)
			sub, err := folderNode(c, childPath, clock, loc)
			if err != nil {
				return nil, err
			}
			if err := addFolder(node, c.Name, sub, childPath); err != nil {
				return nil, err
			}
		case *Link:
			added, err := clock(c.DateAdded)
			if err != nil {
				return nil, &SchemaError{
					Path:   strings.Join(path, "/"),
					Reason: fmt.Sprintf("link %q has invalid date_added", c.URL),
					Err:    err,
				}
			}
			node.AddLink(tree.Link{
				Title:     c.Title,
				URL:       c.URL,
				DateAdded: epoch.Format(added, loc),
			})
		default:
			return nil, &SchemaError{Path: strings.Join(path, "/"), Reason: fmt.Sprintf("unknown entry %T", child)}
		}
	}
	return node, nil
}

// addFolder attaches child and turns a name collision into a SchemaError.
func addFolder(parent *tree.Node, name string, child *tree.Node, path []string) error {
	if err := parent.AddFolder(name, child); err != nil {
		if errors.Is(err, tree.ErrDuplicateFolder) {
			return &SchemaError{
				Path:   strings.Join(path, "/"),
				Reason: fmt.Sprintf("folder name %q already in current level", name),
				Err:    err,
			}
		}
		return err
	}
	return nil
}
