package store

import (
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and initializes
// the schema with the configured embedding dimension and metric.
func OpenSQLite(path string, dimension int, metric string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := initSchema(db, dimension, metric); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetFingerprint(path string) (*Fingerprint, error) {
	var fp Fingerprint
	var mtime int64
	err := s.db.QueryRow(
		"SELECT path, hash, size_bytes, mtime_ns, chunk_count FROM files WHERE path = ?", path,
	).Scan(&fp.Path, &fp.Hash, &fp.Size, &mtime, &fp.ChunkCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fp.ModTime = time.Unix(0, mtime)
	return &fp, nil
}

func (s *SQLiteStore) ListFingerprints() ([]Fingerprint, error) {
	rows, err := s.db.Query("SELECT path, hash, size_bytes, mtime_ns, chunk_count FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []Fingerprint
	for rows.Next() {
		var fp Fingerprint
		var mtime int64
		if err := rows.Scan(&fp.Path, &fp.Hash, &fp.Size, &mtime, &fp.ChunkCount); err != nil {
			return nil, err
		}
		fp.ModTime = time.Unix(0, mtime)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

func (s *SQLiteStore) PutFingerprint(fp Fingerprint) error {
	_, err := s.db.Exec(`
		INSERT INTO files (path, hash, size_bytes, mtime_ns, chunk_count) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			size_bytes = excluded.size_bytes,
			mtime_ns = excluded.mtime_ns,
			chunk_count = excluded.chunk_count
	`, fp.Path, fp.Hash, fp.Size, fp.ModTime.UnixNano(), fp.ChunkCount)
	return err
}

func (s *SQLiteStore) DeleteFingerprint(path string) error {
	_, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

func (s *SQLiteStore) Upsert(path string, records []VectorRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (chunk_uid, path, language, start_byte, end_byte, start_line, end_line, symbol, kind, seq, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_uid) DO UPDATE SET
			path = excluded.path, language = excluded.language,
			start_byte = excluded.start_byte, end_byte = excluded.end_byte,
			start_line = excluded.start_line, end_line = excluded.end_line,
			symbol = excluded.symbol, kind = excluded.kind,
			seq = excluded.seq, content = excluded.content
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			r.ChunkID, r.Path, r.Language, r.StartByte, r.EndByte,
			r.StartLine, r.EndLine, r.Symbol, r.Kind, r.Seq, r.Content,
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", r.ChunkID, err)
		}

		var rowid int64
		if err := tx.QueryRow("SELECT id FROM chunks WHERE chunk_uid = ?", r.ChunkID).Scan(&rowid); err != nil {
			return err
		}

		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %s: %w", r.ChunkID, err)
		}
		if _, err := tx.Exec("DELETE FROM vec_chunks WHERE chunk_rowid = ?", rowid); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO vec_chunks (chunk_rowid, embedding) VALUES (?, ?)", rowid, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %s: %w", r.ChunkID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteByFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM vec_chunks WHERE chunk_rowid IN (SELECT id FROM chunks WHERE path = ?)", path,
	); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chunks WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(embedding []float32, topK int) ([]SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT c.chunk_uid, c.path, c.language, c.start_byte, c.end_byte,
		       c.start_line, c.end_line, c.symbol, c.kind, c.seq, c.content,
		       v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance, c.chunk_uid
	`, blob, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.Record.ChunkID, &r.Record.Path, &r.Record.Language,
			&r.Record.StartByte, &r.Record.EndByte,
			&r.Record.StartLine, &r.Record.EndLine,
			&r.Record.Symbol, &r.Record.Kind, &r.Record.Seq, &r.Record.Content,
			&r.Distance,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) DeleteAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM vec_chunks",
		"DELETE FROM chunks",
		"DELETE FROM files",
	} {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
