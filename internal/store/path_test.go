package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAddAlias(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "shared", Name: "a"})

	entry, err := s.AddAlias(ctx, AliasParams{
		NewPath: "b", NewNS: "writer", TargetPath: "a", TargetNS: "core", Priority: 3,
	})
	if err != nil {
		t.Fatalf("alias: %v", err)
	}
	if entry.MemoryID != rec.ID {
		t.Errorf("alias points at %d, want %d", entry.MemoryID, rec.ID)
	}

	got, err := s.GetByPath(ctx, "b", "writer")
	if err != nil {
		t.Fatalf("get alias: %v", err)
	}
	if got.ID != rec.ID || got.Content != "shared" {
		t.Errorf("alias read mismatch: %+v", got)
	}
	// Priority belongs to the address, not the memory.
	if got.Priority != 3 {
		t.Errorf("expected alias priority 3, got %d", got.Priority)
	}

	_, err = s.AddAlias(ctx, AliasParams{NewPath: "b", NewNS: "writer", TargetPath: "a", TargetNS: "core"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate alias, got %v", err)
	}

	_, err = s.AddAlias(ctx, AliasParams{NewPath: "c", NewNS: "core", TargetPath: "nope", TargetNS: "core"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing target, got %v", err)
	}

	_, err = s.AddAlias(ctx, AliasParams{NewPath: "missing/child", NewNS: "core", TargetPath: "a", TargetNS: "core"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestRemovePathBlockedByChildren(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "p", Name: "parent"})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "c1", Name: "one"})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "c2", Name: "two"})

	_, err := s.RemovePath(ctx, "parent", "core")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// The error names the blocking children.
	msg := err.Error()
	if !strings.Contains(msg, "core://parent/one") || !strings.Contains(msg, "core://parent/two") {
		t.Errorf("error should list blockers, got %q", msg)
	}

	// Bottom-up removal succeeds.
	if _, err := s.RemovePath(ctx, "parent/one", "core"); err != nil {
		t.Fatalf("remove child: %v", err)
	}
	if _, err := s.RemovePath(ctx, "parent/two", "core"); err != nil {
		t.Fatalf("remove child: %v", err)
	}
	if _, err := s.RemovePath(ctx, "parent", "core"); err != nil {
		t.Fatalf("remove parent: %v", err)
	}
}

func TestRemovePathPrefixIsNotChild(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "a", Name: "note"})
	s.Create(ctx, CreateParams{NS: "core", Content: "b", Name: "notes"})

	// "notes" shares a prefix with "note" but is not its child.
	if _, err := s.RemovePath(ctx, "note", "core"); err != nil {
		t.Fatalf("prefix sibling blocked removal: %v", err)
	}
}

func TestRestorePath(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "keep me", Name: "a", Priority: 4})
	memID, _ := s.RemovePath(ctx, "a", "core")
	if memID != rec.ID {
		t.Fatalf("remove returned %d, want %d", memID, rec.ID)
	}

	entry, err := s.RestorePath(ctx, "a", "core", memID, 4, "")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if entry.MemoryID != rec.ID {
		t.Errorf("restored to %d, want %d", entry.MemoryID, rec.ID)
	}

	got, _ := s.GetByPath(ctx, "a", "core")
	if got.Content != "keep me" || got.Priority != 4 {
		t.Errorf("restore mismatch: %+v", got)
	}

	// Restoring over an existing address conflicts.
	if _, err := s.RestorePath(ctx, "a", "core", memID, 0, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	// Restoring a purged memory fails.
	if _, err := s.RestorePath(ctx, "b", "core", 999, 0, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRestorePathReactivatesDeprecated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})
	s.RemovePath(ctx, "a", "core")

	// Restore the deprecated original under a fresh address.
	if _, err := s.RestorePath(ctx, "a-old", "core", rec.ID, 0, ""); err != nil {
		t.Fatalf("restore: %v", err)
	}
	m, _ := s.GetVersion(ctx, rec.ID)
	if m.Deprecated {
		t.Error("restored memory should be reactivated")
	}
	got, _ := s.GetByPath(ctx, "a-old", "core")
	if got.Content != "v1" {
		t.Errorf("expected v1 content, got %q", got.Content)
	}
}
