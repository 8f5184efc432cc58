package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evertrace/memtree/internal/model"
)

// maxChainHops bounds version-chain traversal as a second line of defense
// behind the visited set.
const maxChainHops = 50

// resolveChain follows migrated_to from startID to the chain's live end
// (the node with migrated_to = NULL). A chain that revisits a node, exceeds
// the hop bound, or references a missing memory fails closed with
// ErrBrokenChain; callers render a placeholder instead of propagating it.
func resolveChain(ctx context.Context, q querier, startID int64) (*model.ChainTarget, error) {
	visited := make(map[int64]bool)
	currentID := startID

	for hops := 0; hops < maxChainHops; hops++ {
		if visited[currentID] {
			return nil, fmt.Errorf("%w: cycle at memory %d", ErrBrokenChain, currentID)
		}
		visited[currentID] = true

		var content, createdAt string
		var migratedTo sql.NullInt64
		err := q.QueryRowContext(ctx,
			`SELECT content, migrated_to, created_at FROM memories WHERE id = ?`,
			currentID).Scan(&content, &migratedTo, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: memory %d missing", ErrBrokenChain, currentID)
		}
		if err != nil {
			return nil, err
		}

		if !migratedTo.Valid {
			paths, err := pathURIs(ctx, q, currentID)
			if err != nil {
				return nil, err
			}
			return &model.ChainTarget{
				ID:        currentID,
				Content:   content,
				Snippet:   model.Snippet(content, 200),
				Paths:     paths,
				CreatedAt: parseTime(createdAt),
			}, nil
		}
		currentID = migratedTo.Int64
	}
	return nil, fmt.Errorf("%w: chain from memory %d exceeds %d hops", ErrBrokenChain, startID, maxChainHops)
}

// Orphans returns every memory eligible for permanent deletion: deprecated
// versions left behind by updates, and live memories stranded by path
// deletion. Deprecated entries carry their chain-resolved live successor so
// a reviewer sees where the content moved without opening each version.
func (s *SQLiteStore) Orphans(ctx context.Context) ([]model.Orphan, error) {
	var orphans []model.Orphan

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, migrated_to, created_at FROM memories
		WHERE deprecated = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	deprecated, err := collectOrphans(rows, model.OrphanDeprecated)
	if err != nil {
		return nil, err
	}

	for i := range deprecated {
		if deprecated[i].MigratedTo == nil {
			continue
		}
		target, err := resolveChain(ctx, s.db, *deprecated[i].MigratedTo)
		if errors.Is(err, ErrBrokenChain) {
			continue // unresolvable; listed without a target
		}
		if err != nil {
			return nil, err
		}
		target.Content = "" // listings carry snippets only
		deprecated[i].Target = target
	}
	orphans = append(orphans, deprecated...)

	rows, err = s.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.migrated_to, m.created_at FROM memories m
		LEFT JOIN paths p ON m.id = p.memory_id
		WHERE m.deprecated = 0 AND p.memory_id IS NULL
		ORDER BY m.created_at DESC`)
	if err != nil {
		return nil, err
	}
	pathless, err := collectOrphans(rows, model.OrphanPathless)
	if err != nil {
		return nil, err
	}
	orphans = append(orphans, pathless...)

	return orphans, nil
}

func collectOrphans(rows *sql.Rows, category string) ([]model.Orphan, error) {
	defer rows.Close()

	var orphans []model.Orphan
	for rows.Next() {
		var o model.Orphan
		var content, createdAt string
		var migratedTo sql.NullInt64
		if err := rows.Scan(&o.ID, &content, &migratedTo, &createdAt); err != nil {
			return nil, err
		}
		o.Snippet = model.Snippet(content, 200)
		o.CreatedAt = parseTime(createdAt)
		o.Deprecated = category == model.OrphanDeprecated
		o.Category = category
		if migratedTo.Valid {
			v := migratedTo.Int64
			o.MigratedTo = &v
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

// OrphanDetail returns an orphan's full content and its resolved migration
// target, for content viewing and diff comparison.
func (s *SQLiteStore) OrphanDetail(ctx context.Context, memoryID int64) (*model.OrphanDetail, error) {
	m, err := getVersion(ctx, s.db, memoryID)
	if err != nil {
		return nil, err
	}

	category := "active"
	switch {
	case m.Deprecated:
		category = model.OrphanDeprecated
	case len(m.Paths) == 0:
		category = model.OrphanPathless
	}

	detail := &model.OrphanDetail{
		ID:         m.ID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		Deprecated: m.Deprecated,
		MigratedTo: m.MigratedTo,
		Category:   category,
	}

	if m.MigratedTo != nil {
		target, err := resolveChain(ctx, s.db, *m.MigratedTo)
		if err != nil && !errors.Is(err, ErrBrokenChain) {
			return nil, err
		}
		detail.Target = target
	}
	return detail, nil
}

// PermanentlyDelete removes a memory row outright, repairing the version
// chain around it: every memory whose migration pointer aims at the deleted
// node is rewritten to the node's own successor (A→B→C, delete B ⇒ A→C;
// deleting a chain end leaves predecessors at NULL). Any leftover paths
// referencing the memory are removed with it. Returns the successor id the
// chain was repaired to, nil when the node was a chain end.
//
// With requireOrphan the orphan condition (deprecated, or zero paths) is
// re-checked inside this transaction, failing with ErrNotOrphan when the
// memory regained active paths since the caller last looked. The guard only
// closes the check-then-act race within this process's store handle; a
// second process can still restore a path between its own check and this
// delete. Known limitation.
func (s *SQLiteStore) PermanentlyDelete(ctx context.Context, memoryID int64, requireOrphan bool) (*int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var deprecated int
	var successor sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT deprecated, migrated_to FROM memories WHERE id = ?`, memoryID).
		Scan(&deprecated, &successor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %d", ErrNotFound, memoryID)
	}
	if err != nil {
		return nil, err
	}

	if requireOrphan && deprecated == 0 {
		var pathCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM paths WHERE memory_id = ?`, memoryID).Scan(&pathCount)
		if err != nil {
			return nil, err
		}
		if pathCount > 0 {
			return nil, fmt.Errorf("%w: memory %d has %d active path(s), deletion aborted",
				ErrNotOrphan, memoryID, pathCount)
		}
	}

	var successorArg interface{}
	if successor.Valid {
		successorArg = successor.Int64
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE memories SET migrated_to = ? WHERE migrated_to = ?`, successorArg, memoryID); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM paths WHERE memory_id = ?`, memoryID); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM memories WHERE id = ?`, memoryID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if successor.Valid {
		v := successor.Int64
		return &v, nil
	}
	return nil, nil
}
