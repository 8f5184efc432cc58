package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/evertrace/memtree/internal/snapshot"
	"github.com/evertrace/memtree/internal/store"
)

// RollbackResult reports what a rollback did. NoChange is set when the
// current state already matched the snapshot and nothing was touched.
type RollbackResult struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	Operation    string `json:"operation_type"`
	Message      string `json:"message"`
	NewVersion   *int64 `json:"new_version,omitempty"`
	NoChange     bool   `json:"no_change,omitempty"`
}

// Rollback restores a resource to its snapshot state. Every handler
// re-reads the current state first; the store may have moved on since
// capture. The snapshot itself is left in place so the reviewer can delete
// it explicitly once satisfied.
func (e *Engine) Rollback(ctx context.Context, sessionID, resourceID string) (*RollbackResult, error) {
	rec, err := e.getSnapshot(sessionID, resourceID)
	if err != nil {
		return nil, err
	}

	res := &RollbackResult{
		ResourceID:   resourceID,
		ResourceType: rec.ResourceType,
		Operation:    rec.Data.OperationType,
	}

	switch rec.Data.OperationType {
	case snapshot.OpCreate:
		err = e.rollbackCreate(ctx, rec, res)
	case snapshot.OpCreateAlias:
		err = e.rollbackAlias(ctx, rec, res)
	case snapshot.OpDelete:
		err = e.rollbackDelete(ctx, rec, res)
	case snapshot.OpModifyMeta:
		err = e.rollbackMeta(ctx, rec, res)
	case snapshot.OpModifyContent:
		err = e.rollbackContent(ctx, rec, res)
	default:
		return nil, fmt.Errorf("%w: unknown operation type %q", store.ErrValidation, rec.Data.OperationType)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// rollbackCreate undoes a create by permanently deleting the memory and
// every path referencing it. An address that is already gone counts as
// success.
func (e *Engine) rollbackCreate(ctx context.Context, rec *snapshot.Record, res *RollbackResult) error {
	cur, err := e.store.GetByPath(ctx, rec.Data.Path, rec.Data.NS)
	if errors.Is(err, store.ErrNotFound) {
		res.Message = "Resource was already deleted."
		res.NoChange = true
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := e.store.PermanentlyDelete(ctx, cur.ID, false); err != nil {
		return fmt.Errorf("delete created memory %s: %w", rec.Data.URI, err)
	}
	res.Message = fmt.Sprintf("Deleted created resource %s.", rec.Data.URI)
	return nil
}

// rollbackAlias removes only the alias path; the memory it pointed at
// belongs to its original address.
func (e *Engine) rollbackAlias(ctx context.Context, rec *snapshot.Record, res *RollbackResult) error {
	_, err := e.store.RemovePath(ctx, rec.Data.Path, rec.Data.NS)
	if errors.Is(err, store.ErrNotFound) {
		res.Message = "Alias was already removed."
		res.NoChange = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove alias %s: %w", rec.Data.URI, err)
	}
	res.Message = fmt.Sprintf("Removed alias %s.", rec.Data.URI)
	return nil
}

// rollbackDelete restores the deleted address, reactivating the memory it
// pointed at. Fails distinctly when the memory was purged in the meantime
// or the address was re-created.
func (e *Engine) rollbackDelete(ctx context.Context, rec *snapshot.Record, res *RollbackResult) error {
	priority := 0
	if rec.Data.Priority != nil {
		priority = *rec.Data.Priority
	}
	disclosure := ""
	if rec.Data.Disclosure != nil {
		disclosure = *rec.Data.Disclosure
	}

	entry, err := e.store.RestorePath(ctx, rec.Data.Path, rec.Data.NS, rec.Data.MemoryID, priority, disclosure)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("memory %d was permanently deleted, cannot restore %s: %w",
			rec.Data.MemoryID, rec.Data.URI, err)
	}
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%s was re-created after deletion, refusing to overwrite: %w", rec.Data.URI, err)
	}
	if err != nil {
		return err
	}

	res.Message = fmt.Sprintf("Restored deleted resource %s.", rec.Data.URI)
	res.NewVersion = &entry.MemoryID
	return nil
}

// rollbackMeta writes the captured priority and disclosure back.
func (e *Engine) rollbackMeta(ctx context.Context, rec *snapshot.Record, res *RollbackResult) error {
	cur, err := e.store.GetByPath(ctx, rec.Data.Path, rec.Data.NS)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", rec.Data.URI, err)
	}

	changed := (rec.Data.Priority != nil && *rec.Data.Priority != cur.Priority) ||
		(rec.Data.Disclosure != nil && *rec.Data.Disclosure != cur.Disclosure)
	if !changed {
		res.Message = "No changes detected. Metadata already matches snapshot."
		res.NoChange = true
		res.NewVersion = &cur.ID
		return nil
	}

	if _, err := e.store.Update(ctx, store.UpdateParams{
		Path:       rec.Data.Path,
		NS:         rec.Data.NS,
		Priority:   rec.Data.Priority,
		Disclosure: rec.Data.Disclosure,
	}); err != nil {
		return fmt.Errorf("restore metadata of %s: %w", rec.Data.URI, err)
	}
	res.Message = fmt.Sprintf("Restored metadata of %s.", rec.Data.URI)
	res.NewVersion = &cur.ID
	return nil
}

// rollbackContent repoints the URI at the snapshotted version. A no-op
// result, not an error, when the URI already resolves there.
func (e *Engine) rollbackContent(ctx context.Context, rec *snapshot.Record, res *RollbackResult) error {
	cur, err := e.currentByAnyAddress(ctx, rec.Data)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("%w: no address of memory %d still exists, cannot rollback",
			store.ErrNotFound, rec.Data.MemoryID)
	}

	if cur.ID == rec.Data.MemoryID {
		res.Message = "No changes detected. Content already matches snapshot."
		res.NoChange = true
		res.NewVersion = &cur.ID
		return nil
	}

	result, err := e.store.RollbackToVersion(ctx, cur.Path, cur.NS, rec.Data.MemoryID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("version %d was permanently deleted, cannot rollback: %w",
			rec.Data.MemoryID, err)
	}
	if err != nil {
		return err
	}

	res.Message = fmt.Sprintf("Restored %s to version %d.", result.URI, result.NewMemoryID)
	res.NewVersion = &result.NewMemoryID
	return nil
}
