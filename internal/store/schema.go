package store

import (
	"database/sql"
	"fmt"
)

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS files (
    path        TEXT PRIMARY KEY,
    hash        TEXT NOT NULL,
    size_bytes  INTEGER NOT NULL DEFAULT 0,
    mtime_ns    INTEGER NOT NULL DEFAULT 0,
    chunk_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunks (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk_uid  TEXT NOT NULL UNIQUE,
    path       TEXT NOT NULL,
    language   TEXT NOT NULL DEFAULT '',
    start_byte INTEGER NOT NULL,
    end_byte   INTEGER NOT NULL,
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    symbol     TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL DEFAULT '',
    seq        INTEGER NOT NULL,
    content    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS chunks_path ON chunks(path);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// initSchema creates the tables if they don't exist. The vec0 virtual
// table is built separately because its dimension and distance metric
// come from configuration.
func initSchema(db *sql.DB, dimension int, metric string) error {
	if _, err := db.Exec(ddl); err != nil {
		return err
	}
	vecDDL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_rowid INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=%s
		);
	`, dimension, metric)
	_, err := db.Exec(vecDDL)
	return err
}
