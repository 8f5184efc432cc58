// Package review tracks an agent session's store modifications as
// pre-change snapshots and turns them back into diffs and rollbacks.
//
// Two snapshot spaces cover the two store tables: path snapshots keyed by
// URI for address-level operations (create, alias, delete, metadata), and
// content snapshots keyed by "memory:{id}" for version-chain updates. The
// split keeps an alias capture from shadowing a content capture on the
// same URI.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/evertrace/memtree/internal/model"
	"github.com/evertrace/memtree/internal/snapshot"
	"github.com/evertrace/memtree/internal/store"
)

// Engine binds a store, a snapshot manager, and one session id.
type Engine struct {
	store   store.Store
	snaps   *snapshot.Manager
	session string
}

// NewEngine creates a review engine for one session.
func NewEngine(st store.Store, snaps *snapshot.Manager, sessionID string) *Engine {
	return &Engine{store: st, snaps: snaps, session: sessionID}
}

// SessionID returns the session this engine captures under.
func (e *Engine) SessionID() string { return e.session }

// Manager exposes the underlying snapshot manager for session listings.
func (e *Engine) Manager() *snapshot.Manager { return e.snaps }

// CaptureCreate records that a path was created, so rollback can delete it.
// Call after the create succeeds, since the memory id is minted by it.
func (e *Engine) CaptureCreate(ctx context.Context, ns, path string, memoryID int64) error {
	uri := model.MakeURI(ns, path)
	_, err := e.snaps.Create(e.session, uri, snapshot.ResourcePath, snapshot.Payload{
		OperationType: snapshot.OpCreate,
		NS:            ns,
		Path:          path,
		URI:           uri,
		MemoryID:      memoryID,
	}, false)
	return err
}

// CaptureAlias records an alias creation, keeping the target address so the
// snapshot listing shows what the alias pointed at.
func (e *Engine) CaptureAlias(ctx context.Context, ns, path string, memoryID int64, targetURI string) error {
	uri := model.MakeURI(ns, path)
	_, err := e.snaps.Create(e.session, uri, snapshot.ResourcePath, snapshot.Payload{
		OperationType: snapshot.OpCreateAlias,
		NS:            ns,
		Path:          path,
		URI:           uri,
		MemoryID:      memoryID,
		TargetURI:     targetURI,
	}, false)
	return err
}

// CaptureMetaChange snapshots a path's priority and disclosure before a
// metadata update. First capture in the session wins; later ones no-op.
func (e *Engine) CaptureMetaChange(ctx context.Context, ns, path string) error {
	uri := model.MakeURI(ns, path)
	exists, err := e.snaps.Has(e.session, uri)
	if err != nil || exists {
		return err
	}

	rec, err := e.store.GetByPath(ctx, path, ns)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	priority := rec.Priority
	disclosure := rec.Disclosure
	_, err = e.snaps.Create(e.session, uri, snapshot.ResourcePath, snapshot.Payload{
		OperationType: snapshot.OpModifyMeta,
		NS:            ns,
		Path:          path,
		URI:           uri,
		MemoryID:      rec.ID,
		Priority:      &priority,
		Disclosure:    &disclosure,
	}, false)
	return err
}

// CaptureContentChange snapshots the identity of the memory version a URI
// resolves to, before a content update deprecates it. The content itself is
// not copied: the superseded row stays in the store and is read back by id
// when diffing or rolling back.
//
// Idempotent per URI per session. A second update mints a new memory id, so
// the id-keyed existence check alone would capture every intermediate
// version; the URI-level lookup stops that.
func (e *Engine) CaptureContentChange(ctx context.Context, ns, path string) error {
	uri := model.MakeURI(ns, path)

	rec, err := e.store.GetByPath(ctx, path, ns)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	resourceID := snapshot.ContentResourceID(rec.ID)
	exists, err := e.snaps.Has(e.session, resourceID)
	if err != nil || exists {
		return err
	}
	prior, err := e.snaps.FindContentSnapshotByURI(e.session, uri)
	if err != nil || prior != "" {
		return err
	}

	// Record every address of this memory so rollback still finds it if
	// the primary path is deleted later in the session.
	mem, err := e.store.GetVersion(ctx, rec.ID)
	if err != nil {
		return err
	}

	_, err = e.snaps.Create(e.session, resourceID, snapshot.ResourceMemory, snapshot.Payload{
		OperationType: snapshot.OpModifyContent,
		NS:            ns,
		Path:          path,
		URI:           uri,
		MemoryID:      rec.ID,
		AllPaths:      mem.Paths,
	}, false)
	return err
}

// CaptureDelete records a path deletion. Two cases:
//
//  1. The session already holds a create or create_alias snapshot for this
//     URI: the pair cancels out. Both the path snapshot and any content
//     snapshot for the URI are removed, and nothing is captured. Returns
//     cancelled=true.
//
//  2. Otherwise the pre-delete state is captured with force, overwriting a
//     modify_meta snapshot if present, but carrying that snapshot's
//     pre-session priority and disclosure forward instead of the values
//     the session itself wrote.
func (e *Engine) CaptureDelete(ctx context.Context, ns, path string) (cancelled bool, err error) {
	uri := model.MakeURI(ns, path)

	existing, err := e.snaps.Get(e.session, uri)
	if err != nil {
		return false, err
	}
	if existing != nil {
		op := existing.Data.OperationType
		if op == snapshot.OpCreate || op == snapshot.OpCreateAlias {
			contentID, err := e.snaps.FindContentSnapshotByURI(e.session, uri)
			if err != nil {
				return false, err
			}
			if contentID != "" {
				if _, err := e.snaps.Delete(e.session, contentID); err != nil {
					return false, err
				}
			}
			if _, err := e.snaps.Delete(e.session, uri); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	rec, err := e.store.GetByPath(ctx, path, ns)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	priority := rec.Priority
	disclosure := rec.Disclosure
	if existing != nil && existing.Data.OperationType == snapshot.OpModifyMeta {
		if existing.Data.Priority != nil {
			priority = *existing.Data.Priority
		}
		if existing.Data.Disclosure != nil {
			disclosure = *existing.Data.Disclosure
		}
	}

	_, err = e.snaps.Create(e.session, uri, snapshot.ResourcePath, snapshot.Payload{
		OperationType: snapshot.OpDelete,
		NS:            ns,
		Path:          path,
		URI:           uri,
		MemoryID:      rec.ID,
		Priority:      &priority,
		Disclosure:    &disclosure,
	}, true)
	return false, err
}

// getSnapshot loads a snapshot or fails with the store's not-found sentinel
// so CLI error handling stays uniform.
func (e *Engine) getSnapshot(sessionID, resourceID string) (*snapshot.Record, error) {
	rec, err := e.snaps.Get(sessionID, resourceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: snapshot %q in session %q", store.ErrNotFound, resourceID, sessionID)
	}
	return rec, nil
}
