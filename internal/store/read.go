package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/evertrace/memtree/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// GetByPath resolves an address to its live memory. Returns ErrNotFound if
// the path is absent or its memory is deprecated.
func (s *SQLiteStore) GetByPath(ctx context.Context, path, ns string) (*model.Record, error) {
	return getByPath(ctx, s.db, path, ns)
}

func getByPath(ctx context.Context, q querier, path, ns string) (*model.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT m.id, m.content, p.ns, p.path, p.priority, p.disclosure, m.created_at
		FROM memories m
		JOIN paths p ON m.id = p.memory_id
		WHERE p.ns = ? AND p.path = ? AND m.deprecated = 0`, ns, path)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, model.MakeURI(ns, path))
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetVersion returns a memory by id, deprecated or not, with every URI that
// currently references it.
func (s *SQLiteStore) GetVersion(ctx context.Context, memoryID int64) (*model.Memory, error) {
	return getVersion(ctx, s.db, memoryID)
}

func getVersion(ctx context.Context, q querier, memoryID int64) (*model.Memory, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, content, deprecated, migrated_to, created_at FROM memories WHERE id = ?`,
		memoryID)

	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %d", ErrNotFound, memoryID)
	}
	if err != nil {
		return nil, err
	}

	m.Paths, err = pathURIs(ctx, q, memoryID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// pathURIs returns the URIs of every path referencing memoryID, priority
// order.
func pathURIs(ctx context.Context, q querier, memoryID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ns, path FROM paths WHERE memory_id = ? ORDER BY priority, path`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var ns, path string
		if err := rows.Scan(&ns, &path); err != nil {
			return nil, err
		}
		uris = append(uris, model.MakeURI(ns, path))
	}
	return uris, rows.Err()
}

// Roots returns the top-level paths of a namespace (the virtual root's
// children).
func (s *SQLiteStore) Roots(ctx context.Context, ns string) ([]model.Child, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content, p.ns, p.path, p.priority, p.disclosure
		FROM memories m
		JOIN paths p ON m.id = p.memory_id
		WHERE p.ns = ? AND m.deprecated = 0 AND p.path NOT LIKE '%/%'
		ORDER BY p.priority, p.path`, ns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChildren(rows, nil)
}

// Children returns the direct sub-paths of a memory, unioned across every
// alias referencing it. Recall is a property of identity: the sub-memories
// depend on what the node is, not which address was used to reach it.
func (s *SQLiteStore) Children(ctx context.Context, memoryID int64) ([]model.Child, error) {
	parents, err := s.db.QueryContext(ctx,
		`SELECT ns, path FROM paths WHERE memory_id = ?`, memoryID)
	if err != nil {
		return nil, err
	}
	defer parents.Close()

	var conds []string
	var args []interface{}
	for parents.Next() {
		var ns, path string
		if err := parents.Scan(&ns, &path); err != nil {
			return nil, err
		}
		prefix := escapeLike(path) + "/"
		conds = append(conds, `(p.ns = ? AND p.path LIKE ? ESCAPE '\' AND p.path NOT LIKE ? ESCAPE '\')`)
		args = append(args, ns, prefix+"%", prefix+"%/%")
	}
	if err := parents.Err(); err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.content, p.ns, p.path, p.priority, p.disclosure
		FROM memories m
		JOIN paths p ON m.id = p.memory_id
		WHERE m.deprecated = 0 AND (%s)
		ORDER BY p.priority, p.path`, strings.Join(conds, " OR "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Aliases in different namespaces can surface the same child twice.
	seen := make(map[string]bool)
	return collectChildren(rows, seen)
}

func collectChildren(rows *sql.Rows, seen map[string]bool) ([]model.Child, error) {
	var children []model.Child
	for rows.Next() {
		var c model.Child
		var content string
		var disclosure sql.NullString
		if err := rows.Scan(&c.MemoryID, &content, &c.NS, &c.Path, &c.Priority, &disclosure); err != nil {
			return nil, err
		}
		if seen != nil {
			key := c.NS + "\x00" + c.Path
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		c.Name = model.BaseOf(c.Path)
		c.Snippet = model.Snippet(content, 100)
		c.Disclosure = disclosure.String
		children = append(children, c)
	}
	return children, rows.Err()
}

// AllPaths lists every live path, optionally filtered by namespace.
func (s *SQLiteStore) AllPaths(ctx context.Context, ns string) ([]model.PathEntry, error) {
	query := `
		SELECT p.ns, p.path, p.memory_id, p.priority, p.disclosure, p.created_at
		FROM paths p
		JOIN memories m ON p.memory_id = m.id
		WHERE m.deprecated = 0`
	var args []interface{}
	if ns != "" {
		query += ` AND p.ns = ?`
		args = append(args, ns)
	}
	query += ` ORDER BY p.ns, p.path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPathEntries(rows)
}

// Recent returns the most recently created live memories that have at least
// one path. Updates mint new rows, so created_at on live rows effectively
// means "last modified".
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.PathEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.ns, p.path, p.memory_id, p.priority, p.disclosure, p.created_at
		FROM memories m
		JOIN paths p ON m.id = p.memory_id
		WHERE m.deprecated = 0
		GROUP BY m.id
		ORDER BY m.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPathEntries(rows)
}

func collectPathEntries(rows *sql.Rows) ([]model.PathEntry, error) {
	var entries []model.PathEntry
	for rows.Next() {
		var e model.PathEntry
		var disclosure sql.NullString
		var createdAt string
		if err := rows.Scan(&e.NS, &e.Path, &e.MemoryID, &e.Priority, &disclosure, &createdAt); err != nil {
			return nil, err
		}
		e.Disclosure = disclosure.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
