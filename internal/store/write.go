package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/evertrace/memtree/internal/model"
)

// Create inserts a new memory and its path in one transaction. The parent
// path must already exist unless the memory is created at the namespace
// root. When no explicit name is given, the next unused integer sibling
// segment is assigned.
func (s *SQLiteStore) Create(ctx context.Context, p CreateParams) (*model.Record, error) {
	if p.Name != "" && !model.ValidName(p.Name) {
		return nil, fmt.Errorf("%w: name %q may only contain alphanumerics, underscores, and hyphens",
			ErrValidation, p.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if p.ParentPath != "" {
		if err := pathExists(ctx, tx, p.NS, p.ParentPath); err != nil {
			return nil, fmt.Errorf("parent %s does not exist: %w",
				model.MakeURI(p.NS, p.ParentPath), ErrNotFound)
		}
	}

	finalPath := p.Name
	if finalPath == "" {
		n, err := nextNumericSegment(ctx, tx, p.NS, p.ParentPath)
		if err != nil {
			return nil, err
		}
		finalPath = strconv.Itoa(n)
	}
	if p.ParentPath != "" {
		finalPath = p.ParentPath + "/" + finalPath
	}

	if err := pathExists(ctx, tx, p.NS, finalPath); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrConflict, model.MakeURI(p.NS, finalPath))
	}

	createdAt := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO memories (content, deprecated, created_at) VALUES (?, 0, ?)`,
		p.Content, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	memoryID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := insertPath(ctx, tx, p.NS, finalPath, memoryID, p.Priority, p.Disclosure); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Record{
		ID:         memoryID,
		NS:         p.NS,
		Path:       finalPath,
		Content:    p.Content,
		Priority:   p.Priority,
		Disclosure: p.Disclosure,
		CreatedAt:  parseTime(createdAt),
	}, nil
}

// pathExists returns nil when (ns, path) is present, sql.ErrNoRows otherwise.
func pathExists(ctx context.Context, q querier, ns, path string) error {
	var one int
	return q.QueryRowContext(ctx,
		`SELECT 1 FROM paths WHERE ns = ? AND path = ?`, ns, path).Scan(&one)
}

// nextNumericSegment finds the next unused integer child segment under
// parentPath.
func nextNumericSegment(ctx context.Context, q querier, ns, parentPath string) (int, error) {
	var rows *sql.Rows
	var err error
	prefix := ""
	if parentPath != "" {
		prefix = parentPath + "/"
		rows, err = q.QueryContext(ctx,
			`SELECT path FROM paths WHERE ns = ? AND path LIKE ? ESCAPE '\'`,
			ns, escapeLike(parentPath)+"/%")
	} else {
		rows, err = q.QueryContext(ctx, `SELECT path FROM paths WHERE ns = ?`, ns)
	}
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	maxNum := 0
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, err
		}
		remainder := strings.TrimPrefix(path, prefix)
		if strings.Contains(remainder, "/") {
			continue // not a direct child
		}
		if n, err := strconv.Atoi(remainder); err == nil && n > maxNum {
			maxNum = n
		}
	}
	return maxNum + 1, rows.Err()
}

func insertPath(ctx context.Context, q querier, ns, path string, memoryID int64, priority int, disclosure string) error {
	var disc interface{}
	if disclosure != "" {
		disc = disclosure
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO paths (ns, path, memory_id, priority, disclosure, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ns, path, memoryID, priority, disc, now())
	if err != nil {
		return fmt.Errorf("insert path: %w", err)
	}
	return nil
}

// Update applies a content and/or metadata update to an address.
//
// A content update ALWAYS creates a new version, even when the new content
// is byte-identical to the current content. An earlier skip-if-unchanged
// optimization dropped writes silently: the caller reads content in one
// transaction, computes the replacement, and submits it in another, so a
// concurrent change between the two made the equality check pass while the
// caller's edit was lost. The old version is deprecated with its migration
// pointer set, and every path referencing it (all aliases) is repointed
// in the same transaction. Metadata-only updates touch just the path row.
func (s *SQLiteStore) Update(ctx context.Context, p UpdateParams) (*UpdateResult, error) {
	if p.Content == nil && p.Priority == nil && p.Disclosure == nil {
		return nil, fmt.Errorf("%w: no update fields provided for %s",
			ErrValidation, model.MakeURI(p.NS, p.Path))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cur, err := getByPath(ctx, tx, p.Path, p.NS)
	if err != nil {
		return nil, err
	}
	oldID := cur.ID
	newID := oldID

	if p.Priority != nil || p.Disclosure != nil {
		sets := []string{}
		args := []interface{}{}
		if p.Priority != nil {
			sets = append(sets, "priority = ?")
			args = append(args, *p.Priority)
		}
		if p.Disclosure != nil {
			sets = append(sets, "disclosure = ?")
			args = append(args, *p.Disclosure)
		}
		args = append(args, p.NS, p.Path)
		_, err = tx.ExecContext(ctx,
			`UPDATE paths SET `+strings.Join(sets, ", ")+` WHERE ns = ? AND path = ?`, args...)
		if err != nil {
			return nil, err
		}
	}

	if p.Content != nil {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO memories (content, deprecated, created_at) VALUES (?, 0, ?)`,
			*p.Content, now())
		if err != nil {
			return nil, fmt.Errorf("insert version: %w", err)
		}
		newID, err = res.LastInsertId()
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE memories SET deprecated = 1, migrated_to = ? WHERE id = ?`, newID, oldID)
		if err != nil {
			return nil, err
		}

		// All aliases move together.
		_, err = tx.ExecContext(ctx,
			`UPDATE paths SET memory_id = ? WHERE memory_id = ?`, newID, oldID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &UpdateResult{
		NS:          p.NS,
		Path:        p.Path,
		URI:         model.MakeURI(p.NS, p.Path),
		OldMemoryID: oldID,
		NewMemoryID: newID,
	}, nil
}

// RollbackToVersion repoints an address at an earlier version. The current
// memory is deprecated with its pointer aimed at the target; the target is
// reactivated as the chain head; every alias follows.
func (s *SQLiteStore) RollbackToVersion(ctx context.Context, path, ns string, targetID int64) (*UpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var currentID int64
	err = tx.QueryRowContext(ctx,
		`SELECT memory_id FROM paths WHERE ns = ? AND path = ?`, ns, path).Scan(&currentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, model.MakeURI(ns, path))
	}
	if err != nil {
		return nil, err
	}

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE id = ?`, targetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: target memory %d", ErrNotFound, targetID)
	}
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE memories SET deprecated = 1, migrated_to = ? WHERE id = ?`, targetID, currentID); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE memories SET deprecated = 0, migrated_to = NULL WHERE id = ?`, targetID); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE paths SET memory_id = ? WHERE memory_id = ?`, targetID, currentID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &UpdateResult{
		NS:          ns,
		Path:        path,
		URI:         model.MakeURI(ns, path),
		OldMemoryID: currentID,
		NewMemoryID: targetID,
	}, nil
}
