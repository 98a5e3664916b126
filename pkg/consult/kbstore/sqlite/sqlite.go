package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/consult/pkg/consult/internalerr"
	"github.com/cognicore/consult/pkg/consult/kbstore"
)

// sqliteStore implements the kbstore.Store interface using SQLite
type sqliteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens a SQLite rulebase library with WAL mode enabled.
func Open(ctx context.Context, path string) (kbstore.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, openErr(path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, openErr(path, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, openErr(path, err)
	}

	return &sqliteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// openErr marks library-open failures with the store-unavailable
// category so callers can tell them apart from bad input.
func openErr(path string, err error) error {
	return fmt.Errorf("open rulebase library %q: %v: %w", path, err, internalerr.ErrStoreUnavailable)
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS rulebases (
	name TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	revision TEXT NOT NULL,
	document BLOB NOT NULL,
	imported_at TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertRulebase inserts or replaces a rulebase document by name.
func (s *sqliteStore) UpsertRulebase(ctx context.Context, rb kbstore.Rulebase) (kbstore.Rulebase, error) {
	if rb.Name == "" {
		return kbstore.Rulebase{}, fmt.Errorf("rulebase name must not be empty")
	}

	rb.Revision = ulid.MustNew(ulid.Now(), s.entropy).String()
	rb.ImportedAt = time.Now().UTC()

	const stmt = `
INSERT INTO rulebases (name, target, revision, document, imported_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	target=excluded.target,
	revision=excluded.revision,
	document=excluded.document,
	imported_at=excluded.imported_at;
`

	_, err := s.db.ExecContext(
		ctx,
		stmt,
		rb.Name,
		rb.Target,
		rb.Revision,
		rb.Document,
		rb.ImportedAt.Format(time.RFC3339),
	)
	if err != nil {
		return kbstore.Rulebase{}, err
	}
	return rb, nil
}

// GetRulebase returns a rulebase by name.
func (s *sqliteStore) GetRulebase(ctx context.Context, name string) (kbstore.Rulebase, bool, error) {
	const stmt = `
SELECT name, target, revision, document, imported_at
FROM rulebases WHERE name=?;
`

	var rb kbstore.Rulebase
	var importedAt string
	err := s.db.QueryRowContext(ctx, stmt, name).Scan(
		&rb.Name, &rb.Target, &rb.Revision, &rb.Document, &importedAt,
	)
	if err == sql.ErrNoRows {
		return kbstore.Rulebase{}, false, nil
	}
	if err != nil {
		return kbstore.Rulebase{}, false, err
	}

	rb.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return kbstore.Rulebase{}, false, fmt.Errorf("parse imported_at for %q: %w", name, err)
	}
	return rb, true, nil
}

// ListRulebases returns summaries of all stored rulebases, by name.
func (s *sqliteStore) ListRulebases(ctx context.Context) ([]kbstore.Info, error) {
	const stmt = `
SELECT name, target, revision, imported_at
FROM rulebases ORDER BY name;
`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []kbstore.Info
	for rows.Next() {
		var info kbstore.Info
		var importedAt string
		if err := rows.Scan(&info.Name, &info.Target, &info.Revision, &importedAt); err != nil {
			return nil, err
		}
		info.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
		if err != nil {
			return nil, fmt.Errorf("parse imported_at for %q: %w", info.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteRulebase removes a rulebase by name. Unknown names are a no-op.
func (s *sqliteStore) DeleteRulebase(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rulebases WHERE name=?`, name)
	return err
}
