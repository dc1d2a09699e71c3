// Package store keeps imported canonical trees in SQLite so links can be
// queried across sources.
//
// Every imported file becomes a source row. Its folders keep the tree shape
// through parent_id and each link becomes a page attached to a shared domain
// row. Pages are never deduplicated. Re-importing a file replaces everything
// that came from it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/akhdanfadh/urlkeep/internal/tree"
)

var (
	// ErrNoRoot is returned when ImportTree is given a nil tree.
	ErrNoRoot = errors.New("nil tree")
	// ErrRootLinks is returned for a tree whose root holds links. Canonical
	// trees keep every link inside a folder.
	ErrRootLinks = errors.New("links at root level")
)

// dsnPragmas are applied by the driver to every new connection.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id          INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL UNIQUE,
	area        TEXT NOT NULL,
	browser     TEXT NOT NULL,
	context     TEXT NOT NULL,
	purpose     TEXT NOT NULL,
	is_work     INTEGER NOT NULL DEFAULT 0,
	imported_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
	id        INTEGER PRIMARY KEY,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	parent_id INTEGER REFERENCES folders(id) ON DELETE CASCADE,
	name      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(source_id, parent_id);

CREATE TABLE IF NOT EXISTS domains (
	id         INTEGER PRIMARY KEY,
	value      TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id         INTEGER PRIMARY KEY,
	domain_id  INTEGER NOT NULL REFERENCES domains(id),
	path       TEXT NOT NULL,
	title      TEXT NOT NULL,
	date_added TEXT NOT NULL,
	folder_id  INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	source_id  INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain_id);
`

// Source identifies the processed file a tree came from.
type Source struct {
	Filename string `json:"filename"`
	Area     string `json:"area"`
	Browser  string `json:"browser"`
	Context  string `json:"context"`
	Purpose  string `json:"purpose"`
}

// IsWork reports whether the source was exported from a work profile.
func (s Source) IsWork() bool { return s.Purpose == "work" }

// SourceInfo is a stored source with its page count.
type SourceInfo struct {
	Source
	ID         int64     `json:"id"`
	ImportedAt time.Time `json:"imported_at"`
	Pages      int       `json:"pages"`
}

// ImportResult reports what one ImportTree call stored.
type ImportResult struct {
	SourceID int64
	Replaced bool // a previous import of the same file was removed
	Folders  int
	Pages    int
}

// Stats holds row counts for every table.
type Stats struct {
	Sources int `json:"sources"`
	Folders int `json:"folders"`
	Domains int `json:"domains"`
	Pages   int `json:"pages"`
}

// DomainCount is a domain with the number of pages that reference it.
type DomainCount struct {
	Value string `json:"domain"`
	Pages int    `json:"pages"`
}

// Store is a SQLite-backed link store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ImportTree stores root as the content of src in one transaction, replacing
// any earlier import of the same filename.
func (s *Store) ImportTree(ctx context.Context, src Source, root *tree.Node) (res *ImportResult, err error) {
	if root == nil {
		return nil, ErrNoRoot
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res = &ImportResult{}
	deleted, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE filename = ?`, src.Filename)
	if err != nil {
		return nil, fmt.Errorf("removing previous import: %w", err)
	}
	if n, _ := deleted.RowsAffected(); n > 0 {
		res.Replaced = true
	}

	now := s.now().UTC()
	inserted, err := tx.ExecContext(ctx,
		`INSERT INTO sources (filename, area, browser, context, purpose, is_work, imported_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.Filename, src.Area, src.Browser, src.Context, src.Purpose, src.IsWork(), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting source: %w", err)
	}
	if res.SourceID, err = inserted.LastInsertId(); err != nil {
		return nil, fmt.Errorf("inserting source: %w", err)
	}

	imp := &importer{tx: tx, sourceID: res.SourceID, now: now, domains: map[string]int64{}}
	if err := imp.folder(ctx, sql.NullInt64{}, root); err != nil {
		return nil, err
	}
	res.Folders, res.Pages = imp.folders, imp.pages

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return res, nil
}

// importer carries the state of one ImportTree transaction.
type importer struct {
	tx       *sql.Tx
	sourceID int64
	now      time.Time
	domains  map[string]int64

	folders int
	pages   int
}

// folder stores the links and subfolders of node under parent. An invalid
// parent means node is the tree root, which has no row of its own.
func (imp *importer) folder(ctx context.Context, parent sql.NullInt64, node *tree.Node) error {
	if node == nil {
		return nil
	}
	if len(node.URLs) > 0 {
		if !parent.Valid {
			return ErrRootLinks
		}
		for _, link := range node.URLs {
			if err := imp.page(ctx, parent.Int64, link); err != nil {
				return err
			}
		}
	}

	for _, name := range node.FolderNames() {
		r, err := imp.tx.ExecContext(ctx,
			`INSERT INTO folders (source_id, parent_id, name) VALUES (?, ?, ?)`,
			imp.sourceID, parent, name)
		if err != nil {
			return fmt.Errorf("inserting folder %q: %w", name, err)
		}
		id, err := r.LastInsertId()
		if err != nil {
			return fmt.Errorf("inserting folder %q: %w", name, err)
		}
		imp.folders++
		if err := imp.folder(ctx, sql.NullInt64{Int64: id, Valid: true}, node.Folders[name]); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) page(ctx context.Context, folderID int64, link tree.Link) error {
	domain, path := SplitURL(link.URL)
	domainID, err := imp.domain(ctx, domain)
	if err != nil {
		return err
	}
	if _, err := imp.tx.ExecContext(ctx,
		`INSERT INTO pages (domain_id, path, title, date_added, folder_id, source_id) VALUES (?, ?, ?, ?, ?, ?)`,
		domainID, path, link.Title, link.DateAdded, folderID, imp.sourceID); err != nil {
		return fmt.Errorf("inserting page %q: %w", link.URL, err)
	}
	imp.pages++
	return nil
}

// domain returns the id of the domain row for value, creating it if needed.
func (imp *importer) domain(ctx context.Context, value string) (int64, error) {
	if id, ok := imp.domains[value]; ok {
		return id, nil
	}
	if _, err := imp.tx.ExecContext(ctx,
		`INSERT INTO domains (value, created_at) VALUES (?, ?) ON CONFLICT(value) DO NOTHING`,
		value, imp.now.Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("inserting domain %q: %w", value, err)
	}
	var id int64
	if err := imp.tx.QueryRowContext(ctx, `SELECT id FROM domains WHERE value = ?`, value).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up domain %q: %w", value, err)
	}
	imp.domains[value] = id
	return id, nil
}

// SplitURL splits raw into a lower-cased scheme://host domain and the rest of
// the URL. Values without a host keep an empty domain and are stored whole
// as the path.
func SplitURL(raw string) (domain, path string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", raw
	}
	host := strings.ToLower(u.Host)
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	domain = strings.ToLower(u.Scheme) + "://" + host

	rest := *u
	rest.Scheme, rest.Host, rest.User = "", "", nil
	return domain, rest.String()
}

// Stats returns row counts for every table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM sources),
		(SELECT COUNT(*) FROM folders),
		(SELECT COUNT(*) FROM domains),
		(SELECT COUNT(*) FROM pages)`).Scan(&st.Sources, &st.Folders, &st.Domains, &st.Pages)
	if err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}
	return &st, nil
}

// Domains lists the domains referenced by at least one page, sorted by value.
func (s *Store) Domains(ctx context.Context) ([]DomainCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.value, COUNT(p.id)
		FROM domains d JOIN pages p ON p.domain_id = d.id
		GROUP BY d.id
		ORDER BY d.value`)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	domains := []DomainCount{}
	for rows.Next() {
		var d DomainCount
		if err := rows.Scan(&d.Value, &d.Pages); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// Sources lists the imported sources sorted by filename.
func (s *Store) Sources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.filename, s.area, s.browser, s.context, s.purpose, s.imported_at,
			(SELECT COUNT(*) FROM pages p WHERE p.source_id = s.id)
		FROM sources s
		ORDER BY s.filename`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := []SourceInfo{}
	for rows.Next() {
		var (
			info       SourceInfo
			importedAt string
		)
		if err := rows.Scan(&info.ID, &info.Filename, &info.Area, &info.Browser,
			&info.Context, &info.Purpose, &importedAt, &info.Pages); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if info.ImportedAt, err = time.Parse(time.RFC3339, importedAt); err != nil {
			return nil, fmt.Errorf("parsing imported_at of %s: %w", info.Filename, err)
		}
		sources = append(sources, info)
	}
	return sources, rows.Err()
}
