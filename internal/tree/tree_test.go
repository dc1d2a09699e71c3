package tree

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := map[string]struct {
		node *Node
		want string
	}{
		"empty root": {
			node: New(),
			want: "{\n    \"folders\": {},\n    \"urls\": []\n}\n",
		},
		"zero value writes empty collections": {
			node: &Node{},
			want: "{\n    \"folders\": {},\n    \"urls\": []\n}\n",
		},
		"html characters are not escaped": {
			node: &Node{
				Folders: Folders{"a": {URLs: Links{{Title: "<b>", URL: "https://x.test/?a=1&b=2", DateAdded: "2020-01-01 00:00"}}}},
			},
			want: `{
    "folders": {
        "a": {
            "folders": {},
            "urls": [
                {
                    "title": "<b>",
                    "url": "https://x.test/?a=1&b=2",
                    "date_added": "2020-01-01 00:00"
                }
            ]
        }
    },
    "urls": []
}
`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tc.node); err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if got := buf.String(); got != tc.want {
				t.Errorf("Encode() =\n%s\nwant\n%s", got, tc.want)
			}
		})
	}
}

func TestEncode_SortedFolderKeys(t *testing.T) {
	root := New()
	for _, name := range []string{"zeta", "Alpha", "beta", "alpha"} {
		if err := root.AddFolder(name, New()); err != nil {
			t.Fatalf("AddFolder(%q) unexpected error: %v", name, err)
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	out := buf.String()

	order := []string{`"Alpha"`, `"alpha"`, `"beta"`, `"zeta"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		if idx <= last {
			t.Fatalf("key %s out of order in:\n%s", key, out)
		}
		last = idx
	}
}

func TestAddFolder_Duplicate(t *testing.T) {
	root := New()
	if err := root.AddFolder("Work", New()); err != nil {
		t.Fatalf("first AddFolder() unexpected error: %v", err)
	}
	first := root.Folders["Work"]

	err := root.AddFolder("Work", New())
	if !errors.Is(err, ErrDuplicateFolder) {
		t.Fatalf("second AddFolder() error = %v, want ErrDuplicateFolder", err)
	}
	if root.Folders["Work"] != first {
		t.Error("AddFolder() replaced the existing folder")
	}
}

func TestWalkAndCounts(t *testing.T) {
	root := New()
	bar := New()
	work := New()
	work.AddLink(Link{Title: "a", URL: "https://a.test"})
	work.AddLink(Link{Title: "b", URL: "https://b.test"})
	bar.AddLink(Link{Title: "c", URL: "https://c.test"})
	_ = bar.AddFolder("Work", work)
	_ = bar.AddFolder("Empty", New())
	_ = root.AddFolder("bar", bar)

	var paths []string
	err := root.Walk(func(path []string, _ *Node) error {
		paths = append(paths, strings.Join(path, "/"))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() unexpected error: %v", err)
	}
	want := []string{"bar", "bar/Empty", "bar/Work"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Walk() paths = %v, want %v", paths, want)
	}

	folders, links := root.Counts()
	if folders != 3 || links != 3 {
		t.Errorf("Counts() = (%d, %d), want (3, 3)", folders, links)
	}
}

func TestWalk_StopsOnError(t *testing.T) {
	root := New()
	_ = root.AddFolder("a", New())
	_ = root.AddFolder("b", New())

	stop := errors.New("stop")
	visited := 0
	err := root.Walk(func([]string, *Node) error {
		visited++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want stop", err)
	}
	if visited != 1 {
		t.Errorf("Walk() visited %d folders, want 1", visited)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")

	root := New()
	child := New()
	child.AddLink(Link{Title: "Example", URL: "https://example.com", DateAdded: "2018-04-27 21:25"})
	_ = child.AddFolder("nested", New())
	_ = root.AddFolder("bar", child)

	if err := WriteFile(path, root); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, root) {
		t.Errorf("ReadFile() = %+v, want %+v", got, root)
	}
}

func TestDecode_NullCollections(t *testing.T) {
	got, err := Decode(strings.NewReader(`{"folders":{"a":{"folders":null,"urls":null}},"urls":null}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if got.URLs == nil || got.Folders["a"].Folders == nil || got.Folders["a"].URLs == nil {
		t.Errorf("Decode() left nil collections: %+v", got)
	}
}
