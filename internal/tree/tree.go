// Package tree defines the canonical folder/link tree every source export is
// normalized into, and its JSON file format.
package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// ErrDuplicateFolder is returned when a sibling folder name is already taken.
var ErrDuplicateFolder = errors.New("duplicate folder name")

// Link is a single bookmarked URL.
type Link struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	DateAdded string `json:"date_added"` // epoch.Layout
}

// Node is a folder holding uniquely named subfolders and an ordered list of links.
// The root node of a tree never holds links.
type Node struct {
	Folders Folders `json:"folders"`
	URLs    Links   `json:"urls"`
}

// Folders maps folder names to folders. encoding/json writes map keys sorted,
// so output is stable regardless of insertion order.
type Folders map[string]*Node

// MarshalJSON writes an empty object instead of null.
func (f Folders) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return marshal(map[string]*Node(f))
}

// Links is a custom type to handle marshaling empty arrays instead of null.
type Links []Link

func (l Links) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return marshal([]Link(l))
}

// marshal is json.Marshal without HTML escaping, so URLs keep their '&'.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// New returns an empty node.
func New() *Node {
	return &Node{Folders: Folders{}, URLs: Links{}}
}

// AddFolder attaches child under name. It never merges: a name already in
// use returns ErrDuplicateFolder.
func (n *Node) AddFolder(name string, child *Node) error {
	if n.Folders == nil {
		n.Folders = Folders{}
	}
	if _, ok := n.Folders[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFolder, name)
	}
	n.Folders[name] = child
	return nil
}

// AddLink appends a link to the node.
func (n *Node) AddLink(l Link) {
	n.URLs = append(n.URLs, l)
}

// FolderNames returns the names of the direct subfolders in sorted order.
func (n *Node) FolderNames() []string {
	names := make([]string, 0, len(n.Folders))
	for name := range n.Folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits every folder below n depth-first in sorted name order. path
// holds the folder names from n down to the visited folder.
func (n *Node) Walk(fn func(path []string, node *Node) error) error {
	return n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func([]string, *Node) error) error {
	for _, name := range n.FolderNames() {
		child := n.Folders[name]
		childPath := append(path[:len(path):len(path)], name)
		if err := fn(childPath, child); err != nil {
			return err
		}
		if err := child.walk(childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// Counts returns the number of folders and links below n, n included for links.
func (n *Node) Counts() (folders, links int) {
	links = len(n.URLs)
	_ = n.Walk(func(_ []string, node *Node) error {
		folders++
		links += len(node.URLs)
		return nil
	})
	return folders, links
}

// Encode writes n as indented JSON with sorted folder keys and a trailing newline.
func Encode(w io.Writer, n *Node) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(n)
}

// Decode reads a tree written by Encode.
func Decode(r io.Reader) (*Node, error) {
	var n Node
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, err
	}
	n.normalize()
	return &n, nil
}

// normalize replaces nil collections so decoded trees compare like built ones.
func (n *Node) normalize() {
	if n.Folders == nil {
		n.Folders = Folders{}
	}
	if n.URLs == nil {
		n.URLs = Links{}
	}
	for _, child := range n.Folders {
		if child != nil {
			child.normalize()
		}
	}
}

// WriteFile encodes n into path.
func WriteFile(path string, n *Node) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return Encode(f, n)
}

// ReadFile decodes the tree stored at path.
func ReadFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // ignore error, less critical for read
	return Decode(f)
}
