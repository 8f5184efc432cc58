package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evertrace/memtree/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		content     TEXT NOT NULL,
		deprecated  INTEGER NOT NULL DEFAULT 0,
		migrated_to INTEGER,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_deprecated ON memories(deprecated);
	CREATE INDEX IF NOT EXISTS idx_memories_migrated ON memories(migrated_to);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);

	CREATE TABLE IF NOT EXISTS paths (
		ns          TEXT NOT NULL,
		path        TEXT NOT NULL,
		memory_id   INTEGER NOT NULL REFERENCES memories(id),
		priority    INTEGER NOT NULL DEFAULT 0,
		disclosure  TEXT,
		created_at  TEXT NOT NULL,
		PRIMARY KEY (ns, path)
	);
	CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// escapeLike escapes LIKE metacharacters so a path can be used as a literal
// prefix. Queries using it must carry ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord reads a joined paths×memories row:
// m.id, m.content, p.ns, p.path, p.priority, p.disclosure, m.created_at.
func scanRecord(row scanner) (*model.Record, error) {
	var r model.Record
	var disclosure sql.NullString
	var createdAt string

	err := row.Scan(&r.ID, &r.Content, &r.NS, &r.Path, &r.Priority, &disclosure, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Disclosure = disclosure.String
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// scanMemory reads a memories row: id, content, deprecated, migrated_to, created_at.
func scanMemory(row scanner) (*model.Memory, error) {
	var m model.Memory
	var deprecated int
	var migratedTo sql.NullInt64
	var createdAt string

	err := row.Scan(&m.ID, &m.Content, &deprecated, &migratedTo, &createdAt)
	if err != nil {
		return nil, err
	}
	m.Deprecated = deprecated != 0
	if migratedTo.Valid {
		v := migratedTo.Int64
		m.MigratedTo = &v
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}
