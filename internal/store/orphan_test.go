package store

import (
	"context"
	"errors"
	"testing"

	"github.com/evertrace/memtree/internal/model"
)

func TestOrphansListsDeprecatedAndPathless(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Deprecated orphan: an update leaves the old version behind.
	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	res, _ := s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})

	// Pathless orphan: remove the only address of a live memory.
	other, _ := s.Create(ctx, CreateParams{NS: "core", Content: "stray", Name: "b"})
	s.RemovePath(ctx, "b", "core")

	// Not an orphan: live and addressed.
	s.Create(ctx, CreateParams{NS: "core", Content: "kept", Name: "c"})

	orphans, err := s.Orphans(ctx)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}

	byID := map[int64]model.Orphan{}
	for _, o := range orphans {
		byID[o.ID] = o
	}
	if len(byID) != 2 {
		t.Fatalf("expected exactly 2 orphans, got %d: %v", len(byID), byID)
	}

	dep, ok := byID[rec.ID]
	if !ok {
		t.Fatalf("deprecated memory %d missing from orphans", rec.ID)
	}
	if dep.Category != model.OrphanDeprecated {
		t.Errorf("expected category %q, got %q", model.OrphanDeprecated, dep.Category)
	}
	if dep.Target == nil || dep.Target.ID != res.NewMemoryID {
		t.Errorf("expected chain target %d, got %+v", res.NewMemoryID, dep.Target)
	}

	stray, ok := byID[other.ID]
	if !ok {
		t.Fatalf("pathless memory %d missing from orphans", other.ID)
	}
	if stray.Category != model.OrphanPathless {
		t.Errorf("expected category %q, got %q", model.OrphanPathless, stray.Category)
	}
}

func TestOrphanDetail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "old content here", Name: "a"})
	s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("new content here")})

	d, err := s.OrphanDetail(ctx, rec.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if d.Content != "old content here" {
		t.Errorf("expected full content, got %q", d.Content)
	}
	if d.Target == nil || d.Target.Content != "new content here" {
		t.Errorf("expected resolved target content, got %+v", d.Target)
	}
	if len(d.Target.Paths) != 1 || d.Target.Paths[0] != "core://a" {
		t.Errorf("expected target paths [core://a], got %v", d.Target.Paths)
	}

	if _, err := s.OrphanDetail(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChainResolutionTerminates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})

	// Corrupt the chain into a self-cycle.
	if _, err := s.db.ExecContext(ctx,
		"UPDATE memories SET migrated_to = ? WHERE id = ?", rec.ID, rec.ID); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	// Listing must not hang, and the broken chain shows no target.
	orphans, err := s.Orphans(ctx)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	for _, o := range orphans {
		if o.ID == rec.ID && o.Target != nil {
			t.Errorf("broken chain should have nil target, got %+v", o.Target)
		}
	}

	if _, err := resolveChain(ctx, s.db, rec.ID); !errors.Is(err, ErrBrokenChain) {
		t.Errorf("expected ErrBrokenChain, got %v", err)
	}
}

func TestChainResolutionDanglingPointer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})

	if _, err := s.db.ExecContext(ctx,
		"UPDATE memories SET migrated_to = 9999 WHERE id = ?", rec.ID); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := resolveChain(ctx, s.db, rec.ID); !errors.Is(err, ErrBrokenChain) {
		t.Errorf("expected ErrBrokenChain for dangling pointer, got %v", err)
	}
}

func TestPermanentlyDeleteRepairsChain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Build chain A -> B -> C through two updates.
	a, _ := s.Create(ctx, CreateParams{NS: "core", Content: "A", Name: "x"})
	resB, _ := s.Update(ctx, UpdateParams{Path: "x", NS: "core", Content: strPtr("B")})
	resC, _ := s.Update(ctx, UpdateParams{Path: "x", NS: "core", Content: strPtr("C")})

	// Deleting the middle link repoints A at C.
	succ, err := s.PermanentlyDelete(ctx, resB.NewMemoryID, true)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if succ == nil || *succ != resC.NewMemoryID {
		t.Errorf("expected successor %d, got %v", resC.NewMemoryID, succ)
	}

	mA, _ := s.GetVersion(ctx, a.ID)
	if mA.MigratedTo == nil || *mA.MigratedTo != resC.NewMemoryID {
		t.Errorf("expected A migrated_to=%d, got %v", resC.NewMemoryID, mA.MigratedTo)
	}

	if _, err := s.GetVersion(ctx, resB.NewMemoryID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted version still readable: %v", err)
	}
}

func TestPermanentlyDeleteTerminalLeavesNull(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Create(ctx, CreateParams{NS: "core", Content: "A", Name: "x"})
	resB, _ := s.Update(ctx, UpdateParams{Path: "x", NS: "core", Content: strPtr("B")})

	// Delete the live head (after freeing its path).
	s.RemovePath(ctx, "x", "core")
	succ, err := s.PermanentlyDelete(ctx, resB.NewMemoryID, true)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if succ != nil {
		t.Errorf("terminal delete should report no successor, got %d", *succ)
	}

	// A's pointer is cleared, not repointed.
	mA, _ := s.GetVersion(ctx, a.ID)
	if mA.MigratedTo != nil {
		t.Errorf("expected NULL migrated_to, got %d", *mA.MigratedTo)
	}
}

func TestPermanentlyDeleteRequiresOrphan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "live", Name: "a"})

	if _, err := s.PermanentlyDelete(ctx, rec.ID, true); !errors.Is(err, ErrNotOrphan) {
		t.Errorf("expected ErrNotOrphan for addressed memory, got %v", err)
	}

	// Forced delete removes the paths along with the memory.
	if _, err := s.PermanentlyDelete(ctx, rec.ID, false); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if _, err := s.GetByPath(ctx, "a", "core"); !errors.Is(err, ErrNotFound) {
		t.Errorf("path should be gone after forced delete, got %v", err)
	}

	if _, err := s.PermanentlyDelete(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFullVersionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "story"})
	res, _ := s.Update(ctx, UpdateParams{Path: "story", NS: "core", Content: strPtr("v2")})

	// Roll back, which deprecates v2 and revives v1.
	if _, err := s.RollbackToVersion(ctx, "story", "core", rec.ID); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	// v2 is now the only orphan; purge it.
	orphans, _ := s.Orphans(ctx)
	if len(orphans) != 1 || orphans[0].ID != res.NewMemoryID {
		t.Fatalf("expected v2 as sole orphan, got %v", orphans)
	}
	if _, err := s.PermanentlyDelete(ctx, res.NewMemoryID, true); err != nil {
		t.Fatalf("purge: %v", err)
	}

	// v1 survives at its address, pointer untouched.
	got, err := s.GetByPath(ctx, "story", "core")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != rec.ID || got.Content != "v1" {
		t.Errorf("expected v1 live, got %+v", got)
	}
	m, _ := s.GetVersion(ctx, rec.ID)
	if m.Deprecated || m.MigratedTo != nil {
		t.Errorf("expected clean head version, got %+v", m)
	}

	remaining, _ := s.Orphans(ctx)
	if len(remaining) != 0 {
		t.Errorf("expected no orphans left, got %v", remaining)
	}
}
