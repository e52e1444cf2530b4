// Package sqlite implements one partition's record store over a single
// library.db file, which the remote sync uploads and downloads wholesale.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const LibraryFileName = "library.db"

// Unit ids double as vector index keys, so both tables use AUTOINCREMENT:
// sqlite then never reuses a rowid after deletion, which keeps
// delete-by-id against the index valid forever.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	storage_path TEXT NOT NULL DEFAULT '',
	unit_count INTEGER NOT NULL DEFAULT 0,
	byte_size INTEGER NOT NULL DEFAULT 0,
	source_type TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	start_offset_seconds INTEGER NOT NULL DEFAULT 0,
	raw_text TEXT NOT NULL DEFAULT '',
	analysis TEXT NOT NULL DEFAULT '',
	processed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_units_document ON units(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);
`

type DB struct {
	sqlDB *sql.DB
	path  string
}

// Open opens or creates the partition database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create partition dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &DB{sqlDB: sqlDB, path: path}, nil
}

func (db *DB) Path() string { return db.path }

func (db *DB) Close() error { return db.sqlDB.Close() }
