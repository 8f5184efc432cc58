package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/evertrace/memtree/internal/model"
)

// Export is a portable dump of the live tree: every non-deprecated memory
// with at least one path, flattened to address + content.
type Export struct {
	NS         string `json:"ns"`
	Path       string `json:"path"`
	Content    string `json:"content"`
	Priority   int    `json:"priority"`
	Disclosure string `json:"disclosure,omitempty"`
}

// ExportAll returns all live addressed memories, optionally filtered by
// namespace. Aliases export as separate entries sharing content.
func (s *SQLiteStore) ExportAll(ctx context.Context, ns string) ([]Export, error) {
	query := `
		SELECT p.ns, p.path, m.content, p.priority, COALESCE(p.disclosure, '')
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

	var out []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.NS, &e.Path, &e.Content, &e.Priority, &e.Disclosure); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Import re-creates exported entries. Entries must arrive parents-first
// (ExportAll's path ordering guarantees this); existing addresses are
// skipped and counted separately.
func (s *SQLiteStore) Import(ctx context.Context, entries []Export) (imported, skipped int, err error) {
	for _, e := range entries {
		_, err := s.Create(ctx, CreateParams{
			ParentPath: model.ParentOf(e.Path),
			NS:         e.NS,
			Content:    e.Content,
			Priority:   e.Priority,
			Name:       model.BaseOf(e.Path),
			Disclosure: e.Disclosure,
		})
		if err != nil {
			if errors.Is(err, ErrConflict) {
				skipped++
				continue
			}
			return imported, skipped, fmt.Errorf("import %s: %w", model.MakeURI(e.NS, e.Path), err)
		}
		imported++
	}
	return imported, skipped, nil
}
