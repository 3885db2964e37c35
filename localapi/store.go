// Package localapi is a development stand-in for the headless content API.
// Documents live in SQLite and are served over the same REST shape the blog
// consumes, so the site can run without a hosted repository.
package localapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/cms"
)

const dateLayout = "2006-01-02T15:04:05Z"

// Store wraps a SQLite database holding content documents.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    uid TEXT NOT NULL,
    type TEXT NOT NULL,
    lang TEXT NOT NULL,
    tags TEXT NOT NULL,
    first_publication_date TEXT NOT NULL,
    last_publication_date TEXT NOT NULL,
    data TEXT NOT NULL,
    UNIQUE(type, uid)
);
CREATE INDEX IF NOT EXISTS documents_by_date ON documents(type, first_publication_date);
CREATE TABLE IF NOT EXISTS refs (
    label TEXT PRIMARY KEY,
    ref TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`)
	return err
}

// MasterRef returns the ref of the current content, creating one on first use.
func (s *Store) MasterRef(ctx context.Context) (string, error) {
	var ref string
	err := s.db.QueryRowContext(ctx, `SELECT ref FROM refs WHERE label = 'Master'`).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return s.bumpRef(ctx, s.db)
	}
	return ref, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// bumpRef replaces the master ref. Every write gets a fresh one.
func (s *Store) bumpRef(ctx context.Context, db execer) (string, error) {
	ref := uuid.NewString()
	_, err := db.ExecContext(ctx, `
INSERT INTO refs (label, ref, updated_at) VALUES ('Master', ?, ?)
ON CONFLICT(label) DO UPDATE SET ref = excluded.ref, updated_at = excluded.updated_at`,
		ref, s.now().UTC().Format(dateLayout))
	if err != nil {
		return "", err
	}
	return ref, nil
}

// Save inserts or updates doc, keyed by its type and UID. An existing
// document keeps its id and first publication date. The saved document is
// returned.
func (s *Store) Save(ctx context.Context, doc cms.Document) (cms.Document, error) {
	if doc.Type == "" || doc.UID == "" {
		return cms.Document{}, fmt.Errorf("localapi: document needs a type and uid")
	}
	now := s.now().UTC().Truncate(time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cms.Document{}, err
	}
	defer tx.Rollback()

	var id, first string
	err = tx.QueryRowContext(ctx, `SELECT id, first_publication_date FROM documents WHERE type = ? AND uid = ?`, doc.Type, doc.UID).
		Scan(&id, &first)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		published := now
		if t := doc.FirstPublicationDate.TimePtr(); t != nil {
			published = t.UTC()
		}
		first = published.Format(dateLayout)
	case err != nil:
		return cms.Document{}, err
	}

	if doc.Lang == "" {
		doc.Lang = "pt-br"
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if len(doc.Data) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return cms.Document{}, err
	}
	last := now.Format(dateLayout)

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (id, uid, type, lang, tags, first_publication_date, last_publication_date, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    lang = excluded.lang,
    tags = excluded.tags,
    last_publication_date = excluded.last_publication_date,
    data = excluded.data`,
		id, doc.UID, doc.Type, doc.Lang, string(tags), first, last, string(doc.Data))
	if err != nil {
		return cms.Document{}, err
	}
	if _, err := s.bumpRef(ctx, tx); err != nil {
		return cms.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return cms.Document{}, err
	}

	doc.ID = id
	doc.FirstPublicationDate = parseTimestamp(first)
	doc.LastPublicationDate = parseTimestamp(last)
	return doc, nil
}

// Delete removes the document of docType with the given UID. Deleting a
// missing document is not an error.
func (s *Store) Delete(ctx context.Context, docType, uid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE type = ? AND uid = ?`, docType, uid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := s.bumpRef(ctx, tx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UIDs returns the UIDs of every document of docType.
func (s *Store) UIDs(ctx context.Context, docType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid FROM documents WHERE type = ? ORDER BY uid`, docType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// Query selects documents for Search.
type Query struct {
	Type     string
	UID      string
	ID       string
	Page     int
	PageSize int
	// OrderBy is "first_publication_date" or "last_publication_date".
	OrderBy string
	Desc    bool
}

// Search returns one page of documents matching q and the total match count.
func (s *Store) Search(ctx context.Context, q Query) ([]cms.Document, int, error) {
	where := "1 = 1"
	var args []any
	if q.Type != "" {
		where += " AND type = ?"
		args = append(args, q.Type)
	}
	if q.UID != "" {
		where += " AND uid = ?"
		args = append(args, q.UID)
	}
	if q.ID != "" {
		where += " AND id = ?"
		args = append(args, q.ID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "first_publication_date"
	if q.OrderBy == "last_publication_date" {
		order = q.OrderBy
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, uid, type, lang, tags, first_publication_date, last_publication_date, data
FROM documents WHERE `+where+`
ORDER BY `+order+` `+dir+`, uid `+dir+`
LIMIT ? OFFSET ?`, append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := []cms.Document{}
	for rows.Next() {
		var d cms.Document
		var tags, first, last, data string
		if err := rows.Scan(&d.ID, &d.UID, &d.Type, &d.Lang, &tags, &first, &last, &data); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
			return nil, 0, fmt.Errorf("localapi: tags of %s: %w", d.ID, err)
		}
		d.FirstPublicationDate = parseTimestamp(first)
		d.LastPublicationDate = parseTimestamp(last)
		d.Data = json.RawMessage(data)
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func parseTimestamp(s string) *cms.Timestamp {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &cms.Timestamp{Time: t}
}
