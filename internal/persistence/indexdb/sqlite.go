package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// SQLiteIndex catalogs structure files written by the tools. The files stay
// the source of truth; the index only makes them searchable.
type SQLiteIndex struct {
	db   *sql.DB
	once sync.Once

	now func() time.Time
}

// Entry is one written structure file.
type Entry struct {
	ID          string // assigned by RecordStructure when empty
	Path        string
	Source      string // input file for conversions, empty otherwise
	Author      string
	SizeX       int
	SizeY       int
	SizeZ       int
	Palette     int
	Blocks      int
	Metadata    int
	Backend     string
	Compression string
	Bytes       int64
	SHA256      string
	RecordedAt  time.Time
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS structures (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			source TEXT NOT NULL,
			author TEXT NOT NULL,
			size_x INTEGER NOT NULL,
			size_y INTEGER NOT NULL,
			size_z INTEGER NOT NULL,
			palette INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			metadata INTEGER NOT NULL,
			backend TEXT NOT NULL,
			compression TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_structures_path ON structures(path, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_structures_sha256 ON structures(sha256);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// RecordStructure inserts e and returns its id. A nil index records nothing.
func (s *SQLiteIndex) RecordStructure(ctx context.Context, e Entry) (string, error) {
	if s == nil {
		return "", nil
	}
	if e.Path == "" {
		return "", fmt.Errorf("indexdb: entry without path")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if _, err := uuid.Parse(e.ID); err != nil {
		return "", fmt.Errorf("indexdb: entry id: %w", err)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO structures(id,path,source,author,size_x,size_y,size_z,palette,blocks,metadata,backend,compression,bytes,sha256,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID,
		e.Path,
		e.Source,
		e.Author,
		e.SizeX, e.SizeY, e.SizeZ,
		e.Palette,
		e.Blocks,
		e.Metadata,
		e.Backend,
		e.Compression,
		e.Bytes,
		e.SHA256,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("indexdb: insert structure: %w", err)
	}
	return e.ID, nil
}

// ListStructures returns every entry, oldest first.
func (s *SQLiteIndex) ListStructures(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT id,path,source,author,size_x,size_y,size_z,palette,blocks,metadata,backend,compression,bytes,sha256,recorded_at
		FROM structures ORDER BY recorded_at, id`)
}

// FindByDigest returns the entries whose file content hashes to sha.
func (s *SQLiteIndex) FindByDigest(ctx context.Context, sha string) ([]Entry, error) {
	return s.query(ctx, `SELECT id,path,source,author,size_x,size_y,size_z,palette,blocks,metadata,backend,compression,bytes,sha256,recorded_at
		FROM structures WHERE sha256=? ORDER BY recorded_at, id`, sha)
}

func (s *SQLiteIndex) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Source, &e.Author, &e.SizeX, &e.SizeY, &e.SizeZ,
			&e.Palette, &e.Blocks, &e.Metadata, &e.Backend, &e.Compression, &e.Bytes, &e.SHA256, &at); err != nil {
			return nil, err
		}
		e.RecordedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("indexdb: structure %s recorded_at: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertCatalog stores v as canonical JSON under name along with its sha256
// digest. The tools record the block mapping they ran with this way.
func (s *SQLiteIndex) UpsertCatalog(ctx context.Context, name string, v any) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		name, digest, string(b), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("indexdb: upsert catalog %s: %w", name, err)
	}
	return digest, nil
}

// CatalogDigest returns the stored digest for name, or "" when absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return digest, err
}
