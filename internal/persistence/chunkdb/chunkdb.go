// Package chunkdb stores encoded chunks in SQLite, keyed by absolute chunk
// coordinate. It is the durable backend behind the chunk store.
package chunkdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/world/terrain/store"
)

type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// ChunkRow describes one stored chunk without its payload.
type ChunkRow struct {
	X         int    `db:"x"`
	Y         int    `db:"y"`
	Z         int    `db:"z"`
	Version   int    `db:"version"`
	Bytes     int64  `db:"bytes"`
	UpdatedAt string `db:"updated_at"`
}

func (r ChunkRow) Coord() store.Coord { return store.Coord{X: r.X, Y: r.Y, Z: r.Z} }

// Updated parses UpdatedAt; the zero time when it is malformed.
func (r ChunkRow) Updated() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	return t
}

type Stats struct {
	Chunks int64          `db:"chunks"`
	Bytes  int64          `db:"bytes"`
	Oldest sql.NullString `db:"oldest"`
	Newest sql.NullString `db:"newest"`
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := initPragmas(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func initPragmas(conn *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		z INTEGER NOT NULL,
		version INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (x, y, z)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_layer ON chunks(z);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Load returns the stored chunk at c, or an error wrapping
// store.ErrNotFound when there is none.
func (db *DB) Load(c store.Coord) (snapshot.ChunkV1, error) {
	var data []byte
	err := db.conn.Get(&data, "SELECT data FROM chunks WHERE x = ? AND y = ? AND z = ?", c.X, c.Y, c.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.ChunkV1{}, fmt.Errorf("chunk %d,%d,%d: %w", c.X, c.Y, c.Z, store.ErrNotFound)
	}
	if err != nil {
		return snapshot.ChunkV1{}, err
	}
	ch, err := snapshot.DecodeChunk(data)
	if err != nil {
		return snapshot.ChunkV1{}, fmt.Errorf("chunk %d,%d,%d: %w", c.X, c.Y, c.Z, err)
	}
	if ch.X != c.X || ch.Y != c.Y || ch.Z != c.Z {
		return snapshot.ChunkV1{}, fmt.Errorf("chunk %d,%d,%d: stored coordinate %d,%d,%d", c.X, c.Y, c.Z, ch.X, ch.Y, ch.Z)
	}
	return ch, nil
}

// Save inserts or replaces the chunk at its own coordinate.
func (db *DB) Save(ch snapshot.ChunkV1) error {
	data, err := snapshot.EncodeChunk(ch)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`INSERT INTO chunks (x, y, z, version, bytes, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(x, y, z) DO UPDATE SET
			version = excluded.version,
			bytes = excluded.bytes,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		ch.X, ch.Y, ch.Z, ch.Version, len(data), data, db.now().UTC().Format(time.RFC3339Nano))
	return err
}

// Delete removes the chunk at c; deleting a missing chunk is not an error.
func (db *DB) Delete(c store.Coord) error {
	_, err := db.conn.Exec("DELETE FROM chunks WHERE x = ? AND y = ? AND z = ?", c.X, c.Y, c.Z)
	return err
}

// List returns every stored chunk ordered by layer, row and column.
func (db *DB) List() ([]ChunkRow, error) {
	var rows []ChunkRow
	err := db.conn.Select(&rows, "SELECT x, y, z, version, bytes, updated_at FROM chunks ORDER BY z, y, x")
	return rows, err
}

func (db *DB) Stats() (Stats, error) {
	var st Stats
	err := db.conn.Get(&st, `SELECT COUNT(*) AS chunks, COALESCE(SUM(bytes), 0) AS bytes,
		MIN(updated_at) AS oldest, MAX(updated_at) AS newest FROM chunks`)
	return st, err
}

func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta returns "" for a missing key.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
