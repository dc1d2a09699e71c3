package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// openTestStore opens a store in a temporary directory with a fixed clock.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleTree builds bar/Work with two links and an empty Other folder.
func sampleTree(t *testing.T) *tree.Node {
	t.Helper()
	work := tree.New()
	work.AddLink(tree.Link{Title: "Example", URL: "https://Example.com/a?b=1#c", DateAdded: "2018-04-27 21:25"})
	work.AddLink(tree.Link{Title: "Example again", URL: "https://example.com/a?b=1#c", DateAdded: "2018-04-27 21:26"})

	bar := tree.New()
	bar.AddLink(tree.Link{Title: "Go", URL: "https://go.dev/", DateAdded: "2020-09-13 14:26"})
	if err := bar.AddFolder("Work", work); err != nil {
		t.Fatal(err)
	}

	root := tree.New()
	if err := root.AddFolder("bar", bar); err != nil {
		t.Fatal(err)
	}
	if err := root.AddFolder("Other", tree.New()); err != nil {
		t.Fatal(err)
	}
	return root
}

var sampleSource = Source{
	Filename: "bookmarks_chrome_home_personal.json",
	Area:     "bookmarks",
	Browser:  "chrome",
	Context:  "home",
	Purpose:  "personal",
}

func TestSplitURL(t *testing.T) {
	tests := map[string]struct {
		raw        string
		wantDomain string
		wantPath   string
	}{
		"plain":          {raw: "https://example.com/a/b", wantDomain: "https://example.com", wantPath: "/a/b"},
		"no path":        {raw: "https://example.com", wantDomain: "https://example.com", wantPath: ""},
		"query fragment": {raw: "http://example.com/x?q=1#top", wantDomain: "http://example.com", wantPath: "/x?q=1#top"},
		"upper-case":     {raw: "HTTPS://Example.COM/Path", wantDomain: "https://example.com", wantPath: "/Path"},
		"port":           {raw: "http://localhost:8080/", wantDomain: "http://localhost:8080", wantPath: "/"},
		"userinfo":       {raw: "ftp://me@files.example.com/pub", wantDomain: "ftp://me@files.example.com", wantPath: "/pub"},
		"no host":        {raw: "javascript:void(0)", wantDomain: "", wantPath: "javascript:void(0)"},
		"unparsable":     {raw: "http://[::1", wantDomain: "", wantPath: "http://[::1"},
		"empty":          {raw: "", wantDomain: "", wantPath: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			domain, path := SplitURL(tc.raw)
			if domain != tc.wantDomain || path != tc.wantPath {
				t.Errorf("SplitURL(%q) = (%q, %q), want (%q, %q)", tc.raw, domain, path, tc.wantDomain, tc.wantPath)
			}
		})
	}
}

func TestImportTree(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.ImportTree(ctx, sampleSource, sampleTree(t))
	if err != nil {
		t.Fatalf("ImportTree() unexpected error: %v", err)
	}
	if res.Replaced {
		t.Error("Replaced = true on first import")
	}
	if res.Folders != 3 || res.Pages != 3 {
		t.Errorf("result = %d folders, %d pages, want 3, 3", res.Folders, res.Pages)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	want := Stats{Sources: 1, Folders: 3, Domains: 2, Pages: 3}
	if *st != want {
		t.Errorf("Stats() = %+v, want %+v", *st, want)
	}

	domains, err := s.Domains(ctx)
	if err != nil {
		t.Fatalf("Domains() unexpected error: %v", err)
	}
	wantDomains := []DomainCount{
		{Value: "https://example.com", Pages: 2}, // duplicates are kept
		{Value: "https://go.dev", Pages: 1},
	}
	if len(domains) != len(wantDomains) {
		t.Fatalf("Domains() = %+v, want %+v", domains, wantDomains)
	}
	for i := range wantDomains {
		if domains[i] != wantDomains[i] {
			t.Errorf("Domains()[%d] = %+v, want %+v", i, domains[i], wantDomains[i])
		}
	}

	var parent string
	err = s.db.QueryRowContext(ctx, `
		SELECT p.name FROM folders f JOIN folders p ON f.parent_id = p.id WHERE f.name = 'Work'`).Scan(&parent)
	if err != nil {
		t.Fatalf("querying folder parent: %v", err)
	}
	if parent != "bar" {
		t.Errorf("parent of Work = %q, want bar", parent)
	}
}

func TestImportTree_ReplacesSameFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.ImportTree(ctx, sampleSource, sampleTree(t)); err != nil {
		t.Fatal(err)
	}

	smaller := tree.New()
	group := tree.New()
	group.AddLink(tree.Link{Title: "Go", URL: "https://go.dev/", DateAdded: "2020-09-13 14:26"})
	if err := smaller.AddFolder("bar", group); err != nil {
		t.Fatal(err)
	}
	res, err := s.ImportTree(ctx, sampleSource, smaller)
	if err != nil {
		t.Fatalf("second ImportTree() unexpected error: %v", err)
	}
	if !res.Replaced {
		t.Error("Replaced = false on re-import")
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// domain rows outlive their pages
	want := Stats{Sources: 1, Folders: 1, Domains: 2, Pages: 1}
	if *st != want {
		t.Errorf("Stats() = %+v, want %+v", *st, want)
	}

	domains, err := s.Domains(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(domains) != 1 || domains[0].Value != "https://go.dev" {
		t.Errorf("Domains() = %+v, want only https://go.dev", domains)
	}
}

func TestImportTree_Rejects(t *testing.T) {
	tests := map[string]struct {
		root    *tree.Node
		wantErr error
	}{
		"nil tree": {root: nil, wantErr: ErrNoRoot},
		"root links": {
			root: &tree.Node{
				Folders: tree.Folders{"a": tree.New()},
				URLs:    tree.Links{{Title: "x", URL: "https://x.org", DateAdded: "2020-01-01 00:00"}},
			},
			wantErr: ErrRootLinks,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()

			_, err := s.ImportTree(ctx, sampleSource, tc.root)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ImportTree() error = %v, want %v", err, tc.wantErr)
			}

			// nothing from the failed import is left behind
			st, err := s.Stats(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if *st != (Stats{}) {
				t.Errorf("Stats() after failed import = %+v, want zero", *st)
			}
		})
	}
}

func TestSources(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	work := sampleSource
	work.Filename = "onetab_chrome_acme_work.json"
	work.Area, work.Context, work.Purpose = "onetab", "acme", "work"

	for _, src := range []Source{work, sampleSource} {
		if _, err := s.ImportTree(ctx, src, sampleTree(t)); err != nil {
			t.Fatal(err)
		}
	}

	sources, err := s.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources() unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Sources() returned %d rows, want 2", len(sources))
	}
	if sources[0].Filename != sampleSource.Filename || sources[1].Filename != work.Filename {
		t.Errorf("Sources() order = %s, %s", sources[0].Filename, sources[1].Filename)
	}
	if sources[1].Pages != 3 {
		t.Errorf("Pages = %d, want 3", sources[1].Pages)
	}
	wantTime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if !sources[0].ImportedAt.Equal(wantTime) {
		t.Errorf("ImportedAt = %v, want %v", sources[0].ImportedAt, wantTime)
	}
	if !sources[1].IsWork() || sources[0].IsWork() {
		t.Error("IsWork() mismatch")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportTree(ctx, sampleSource, sampleTree(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// schema creation is repeatable and data survives
	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer func() { _ = s.Close() }()
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Pages != 3 {
		t.Errorf("Pages after reopen = %d, want 3", st.Pages)
	}
}
