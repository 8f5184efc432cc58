package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/evertrace/memtree/internal/model"
)

// AddAlias creates a second address resolving to the same memory as an
// existing one. Aliases may cross namespaces.
func (s *SQLiteStore) AddAlias(ctx context.Context, p AliasParams) (*model.PathEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var targetID int64
	err = tx.QueryRowContext(ctx,
		`SELECT memory_id FROM paths WHERE ns = ? AND path = ?`,
		p.TargetNS, p.TargetPath).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: target %s", ErrNotFound, model.MakeURI(p.TargetNS, p.TargetPath))
	}
	if err != nil {
		return nil, err
	}

	if parent := model.ParentOf(p.NewPath); parent != "" {
		if err := pathExists(ctx, tx, p.NewNS, parent); err != nil {
			return nil, fmt.Errorf("parent %s does not exist: %w",
				model.MakeURI(p.NewNS, parent), ErrNotFound)
		}
	}

	if err := pathExists(ctx, tx, p.NewNS, p.NewPath); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrConflict, model.MakeURI(p.NewNS, p.NewPath))
	}

	if err := insertPath(ctx, tx, p.NewNS, p.NewPath, targetID, p.Priority, p.Disclosure); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.PathEntry{
		NS:         p.NewNS,
		Path:       p.NewPath,
		MemoryID:   targetID,
		Priority:   p.Priority,
		Disclosure: p.Disclosure,
	}, nil
}

// RemovePath deletes an address without touching the memory it references.
// Deletion proceeds bottom-up: a path with descendant paths cannot be
// removed, and the error names a sample of the blockers. Returns the
// memory id the path referenced.
func (s *SQLiteStore) RemovePath(ctx context.Context, path, ns string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var memoryID int64
	err = tx.QueryRowContext(ctx,
		`SELECT memory_id FROM paths WHERE ns = ? AND path = ?`, ns, path).Scan(&memoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, model.MakeURI(ns, path))
	}
	if err != nil {
		return 0, err
	}

	prefix := escapeLike(path) + "/%"
	var childCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM paths WHERE ns = ? AND path LIKE ? ESCAPE '\'`,
		ns, prefix).Scan(&childCount)
	if err != nil {
		return 0, err
	}

	if childCount > 0 {
		rows, err := tx.QueryContext(ctx,
			`SELECT path FROM paths WHERE ns = ? AND path LIKE ? ESCAPE '\' ORDER BY path LIMIT 5`,
			ns, prefix)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		var sample []string
		for rows.Next() {
			var child string
			if err := rows.Scan(&child); err != nil {
				return 0, err
			}
			sample = append(sample, model.MakeURI(ns, child))
		}
		suffix := ""
		if childCount > len(sample) {
			suffix = fmt.Sprintf(" (and %d more)", childCount-len(sample))
		}
		return 0, fmt.Errorf("%w: %s still has %d child path(s), delete children first: %s%s",
			ErrConflict, model.MakeURI(ns, path), childCount, strings.Join(sample, ", "), suffix)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM paths WHERE ns = ? AND path = ?`, ns, path); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return memoryID, nil
}

// RestorePath re-creates an address pointing at a specific memory id. Used
// by rollback-of-delete. The memory is reactivated if a later update
// deprecated it; the restore fails if someone recreated the address in the
// meantime.
func (s *SQLiteStore) RestorePath(ctx context.Context, path, ns string, memoryID int64, priority int, disclosure string) (*model.PathEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE id = ?`, memoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %d", ErrNotFound, memoryID)
	}
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE memories SET deprecated = 0 WHERE id = ?`, memoryID); err != nil {
		return nil, err
	}

	if err := pathExists(ctx, tx, ns, path); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrConflict, model.MakeURI(ns, path))
	}

	if err := insertPath(ctx, tx, ns, path, memoryID, priority, disclosure); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.PathEntry{
		NS:         ns,
		Path:       path,
		MemoryID:   memoryID,
		Priority:   priority,
		Disclosure: disclosure,
	}, nil
}
