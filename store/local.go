package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"

	"github.com/lingomark/lingomark"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultRingSize is how many records the local store keeps. Inserting past
// the limit evicts the oldest records.
const DefaultRingSize = 100

// sessionKey is the settings key the mirrored session JSON lives under.
const sessionKey = "session"

// LocalStore persists records in a local SQLite file. It keeps a bounded
// ring of the most recent records and doubles as the settings and session
// mirror for the daemon.
type LocalStore struct {
	db   *sql.DB
	sq   sq.StatementBuilderType
	ring int
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithRingSize overrides the number of records the store retains.
func WithRingSize(n int) LocalOption {
	return func(s *LocalStore) {
		if n > 0 {
			s.ring = n
		}
	}
}

// Open opens (or creates) the SQLite database at dbPath and applies any
// pending migrations.
func Open(dbPath string, opts ...LocalOption) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &lingomark.StoreError{Op: "open", Message: "creating database directory", Cause: err}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &lingomark.StoreError{Op: "open", Message: "opening sqlite database", Cause: err}
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, &lingomark.StoreError{Op: "open", Message: fmt.Sprintf("pragma %q", p), Cause: err}
		}
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &LocalStore{
		db:   db,
		sq:   sq.StatementBuilder.PlaceholderFormat(sq.Question),
		ring: DefaultRingSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return &lingomark.StoreError{Op: "migrate", Message: "creating schema_migrations", Cause: err}
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return &lingomark.StoreError{Op: "migrate", Message: "reading embedded migrations", Cause: err}
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var n int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&n)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return &lingomark.StoreError{Op: "migrate", Message: fmt.Sprintf("checking migration %s", name), Cause: err}
		}

		b, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return &lingomark.StoreError{Op: "migrate", Message: fmt.Sprintf("reading migration %s", name), Cause: err}
		}
		if _, err := db.Exec(string(b)); err != nil {
			return &lingomark.StoreError{Op: "migrate", Message: fmt.Sprintf("applying migration %s", name), Cause: err}
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return &lingomark.StoreError{Op: "migrate", Message: fmt.Sprintf("recording migration %s", name), Cause: err}
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Insert stores a record and trims the ring to its bound. Records without an
// ID get a generated one; records without a date get the current time.
// Timestamps are truncated to whole seconds, matching what List returns.
func (s *LocalStore) Insert(ctx context.Context, rec lingomark.Record) (lingomark.Record, error) {
	if rec.ID == "" {
		rec.ID = xid.New().String()
	}
	if rec.Date.IsZero() {
		rec.Date = time.Now()
	}
	rec.Date = rec.Date.UTC().Truncate(time.Second)

	q := s.sq.Insert("records").
		Columns("id", "original", "translation", "url", "host", "source_lang", "target_lang", "remote_id", "created_at").
		Values(rec.ID, rec.Original, rec.Translation, rec.URL, lingomark.HostOf(rec.URL),
			rec.SourceLang, rec.TargetLang, rec.RemoteID, rec.Date.Format(time.RFC3339))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "building insert", Cause: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "starting transaction", Cause: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "inserting record", Cause: err}
	}
	if err := s.trim(ctx, tx); err != nil {
		return rec, err
	}
	if err := tx.Commit(); err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "committing transaction", Cause: err}
	}
	return rec, nil
}

// trim evicts everything but the most recent ring-size records. The rowid
// breaks ties between records inserted within the same second.
func (s *LocalStore) trim(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id NOT IN (
        SELECT id FROM records ORDER BY created_at DESC, rowid DESC LIMIT ?)`, s.ring)
	if err != nil {
		return &lingomark.StoreError{Op: "insert", Message: "trimming ring", Cause: err}
	}
	return nil
}

// List returns all stored records, oldest first.
func (s *LocalStore) List(ctx context.Context) ([]lingomark.Record, error) {
	q := s.sq.Select("id", "original", "translation", "url", "source_lang", "target_lang", "remote_id", "created_at").
		From("records").
		OrderBy("created_at ASC", "rowid ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, &lingomark.StoreError{Op: "list", Message: "building query", Cause: err}
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, &lingomark.StoreError{Op: "list", Message: "querying records", Cause: err}
	}
	defer rows.Close()

	out := []lingomark.Record{}
	for rows.Next() {
		var rec lingomark.Record
		var created string
		if err := rows.Scan(&rec.ID, &rec.Original, &rec.Translation, &rec.URL,
			&rec.SourceLang, &rec.TargetLang, &rec.RemoteID, &created); err != nil {
			return nil, &lingomark.StoreError{Op: "list", Message: "scanning record", Cause: err}
		}
		rec.Date, _ = time.Parse(time.RFC3339, created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &lingomark.StoreError{Op: "list", Message: "iterating records", Cause: err}
	}
	return out, nil
}

// Delete removes a single record by id. Deleting an unknown id returns
// ErrNotFound.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return &lingomark.StoreError{Op: "delete", Message: "deleting record", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &lingomark.StoreError{Op: "delete", Message: "checking affected rows", Cause: err}
	}
	if n == 0 {
		return lingomark.ErrNotFound
	}
	return nil
}

// DeleteByHost removes every record captured on the given host. Deleting a
// host with no records is not an error.
func (s *LocalStore) DeleteByHost(ctx context.Context, host string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE host = ?`, strings.ToLower(host))
	if err != nil {
		return &lingomark.StoreError{Op: "delete_host", Message: "deleting records by host", Cause: err}
	}
	return nil
}

// ReplaceAll swaps the entire record set in one transaction, then trims the
// ring. Used by deck import after merging.
func (s *LocalStore) ReplaceAll(ctx context.Context, recs []lingomark.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &lingomark.StoreError{Op: "replace", Message: "starting transaction", Cause: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return &lingomark.StoreError{Op: "replace", Message: "clearing records", Cause: err}
	}

	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = xid.New().String()
		}
		if rec.Date.IsZero() {
			rec.Date = time.Now()
		}
		rec.Date = rec.Date.UTC().Truncate(time.Second)

		q := s.sq.Insert("records").
			Columns("id", "original", "translation", "url", "host", "source_lang", "target_lang", "remote_id", "created_at").
			Values(rec.ID, rec.Original, rec.Translation, rec.URL, lingomark.HostOf(rec.URL),
				rec.SourceLang, rec.TargetLang, rec.RemoteID, rec.Date.Format(time.RFC3339))
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return &lingomark.StoreError{Op: "replace", Message: "building insert", Cause: err}
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return &lingomark.StoreError{Op: "replace", Message: "inserting record", Cause: err}
		}
	}

	if err := s.trim(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &lingomark.StoreError{Op: "replace", Message: "committing transaction", Cause: err}
	}
	return nil
}

// GetSetting returns the value for a settings key, or "" when unset.
func (s *LocalStore) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", &lingomark.StoreError{Op: "settings", Message: "reading setting", Cause: err}
	}
	return v, nil
}

// SetSetting stores a settings key, overwriting any previous value.
func (s *LocalStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return &lingomark.StoreError{Op: "settings", Message: "writing setting", Cause: err}
	}
	return nil
}

// SaveSession mirrors the serialized session for remember-me restarts.
func (s *LocalStore) SaveSession(ctx context.Context, data []byte) error {
	return s.SetSetting(ctx, sessionKey, string(data))
}

// LoadSession returns the mirrored session, or nil when none is stored.
func (s *LocalStore) LoadSession(ctx context.Context) ([]byte, error) {
	v, err := s.GetSetting(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

// ClearSession removes the mirrored session.
func (s *LocalStore) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, sessionKey)
	if err != nil {
		return &lingomark.StoreError{Op: "settings", Message: "clearing session", Cause: err}
	}
	return nil
}

// Verify LocalStore implements CardStore
var _ lingomark.CardStore = (*LocalStore)(nil)
