package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Create(ctx, CreateParams{
		NS: "core", Content: "hello world", Priority: 2, Name: "greeting",
		Disclosure: "when greeted",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Path != "greeting" {
		t.Errorf("expected path 'greeting', got %q", rec.Path)
	}
	if rec.ID == 0 {
		t.Error("expected non-zero memory id")
	}

	got, err := s.GetByPath(ctx, "greeting", "core")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hello world" || got.Priority != 2 || got.Disclosure != "when greeted" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreateAutoNumbering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "root", Name: "parent"})

	a, _ := s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "first"})
	b, _ := s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "second"})

	if a.Path != "parent/1" {
		t.Errorf("expected 'parent/1', got %q", a.Path)
	}
	if b.Path != "parent/2" {
		t.Errorf("expected 'parent/2', got %q", b.Path)
	}

	// Named siblings don't disturb the counter
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "named", Name: "note"})
	c, _ := s.Create(ctx, CreateParams{NS: "core", ParentPath: "parent", Content: "third"})
	if c.Path != "parent/3" {
		t.Errorf("expected 'parent/3', got %q", c.Path)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Create(ctx, CreateParams{NS: "core", Content: "x", Name: "bad/name"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for slash in name, got %v", err)
	}

	_, err = s.Create(ctx, CreateParams{NS: "core", ParentPath: "nope", Content: "x", Name: "a"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}

	s.Create(ctx, CreateParams{NS: "core", Content: "x", Name: "taken"})
	_, err = s.Create(ctx, CreateParams{NS: "core", Content: "y", Name: "taken"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate path, got %v", err)
	}
}

func TestUpdateAlwaysCreatesNewVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "same", Name: "a"})

	// Identical content must still mint a new version.
	res, err := s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("same")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.NewMemoryID == rec.ID {
		t.Error("expected a new memory id for identical content")
	}

	old, err := s.GetVersion(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	if !old.Deprecated {
		t.Error("expected old version deprecated")
	}
	if old.MigratedTo == nil || *old.MigratedTo != res.NewMemoryID {
		t.Errorf("expected migrated_to=%d, got %v", res.NewMemoryID, old.MigratedTo)
	}
}

func TestUpdateRequiresFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "x", Name: "a"})
	_, err := s.Update(ctx, UpdateParams{Path: "a", NS: "core"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateMetadataOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "x", Name: "a", Priority: 1})
	res, err := s.Update(ctx, UpdateParams{
		Path: "a", NS: "core", Priority: intPtr(7), Disclosure: strPtr("when needed"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.NewMemoryID != rec.ID {
		t.Error("metadata-only update must not create a new version")
	}

	got, _ := s.GetByPath(ctx, "a", "core")
	if got.Priority != 7 || got.Disclosure != "when needed" {
		t.Errorf("metadata not applied: %+v", got)
	}
}

func TestUpdateRepointsAllAliases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	s.AddAlias(ctx, AliasParams{NewPath: "b", NewNS: "core", TargetPath: "a", TargetNS: "core"})
	s.AddAlias(ctx, AliasParams{NewPath: "c", NewNS: "writer", TargetPath: "a", TargetNS: "core"})

	res, _ := s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})

	for _, addr := range []struct{ path, ns string }{{"a", "core"}, {"b", "core"}, {"c", "writer"}} {
		got, err := s.GetByPath(ctx, addr.path, addr.ns)
		if err != nil {
			t.Fatalf("get %s://%s: %v", addr.ns, addr.path, err)
		}
		if got.ID != res.NewMemoryID {
			t.Errorf("%s://%s resolves to %d, want %d", addr.ns, addr.path, got.ID, res.NewMemoryID)
		}
	}

	old, _ := s.GetVersion(ctx, rec.ID)
	if !old.Deprecated || old.MigratedTo == nil || *old.MigratedTo != res.NewMemoryID {
		t.Errorf("old version not deprecated with pointer: %+v", old)
	}
}

func TestRollbackToVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "v1", Name: "a"})
	res, _ := s.Update(ctx, UpdateParams{Path: "a", NS: "core", Content: strPtr("v2")})

	rb, err := s.RollbackToVersion(ctx, "a", "core", rec.ID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if rb.NewMemoryID != rec.ID {
		t.Errorf("expected restore to %d, got %d", rec.ID, rb.NewMemoryID)
	}

	got, _ := s.GetByPath(ctx, "a", "core")
	if got.ID != rec.ID || got.Content != "v1" {
		t.Errorf("path not repointed: %+v", got)
	}

	// The skipped version becomes deprecated and points back.
	skipped, _ := s.GetVersion(ctx, res.NewMemoryID)
	if !skipped.Deprecated || skipped.MigratedTo == nil || *skipped.MigratedTo != rec.ID {
		t.Errorf("skipped version state wrong: %+v", skipped)
	}

	// The restored version is the chain head again.
	restored, _ := s.GetVersion(ctx, rec.ID)
	if restored.Deprecated || restored.MigratedTo != nil {
		t.Errorf("restored version state wrong: %+v", restored)
	}
}

func TestRollbackNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.RollbackToVersion(ctx, "nope", "core", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing path, got %v", err)
	}

	s.Create(ctx, CreateParams{NS: "core", Content: "x", Name: "a"})
	if _, err := s.RollbackToVersion(ctx, "a", "core", 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing target, got %v", err)
	}
}

func TestChildrenAcrossAliases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, _ := s.Create(ctx, CreateParams{NS: "core", Content: "hub", Name: "hub"})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "hub", Content: "a", Name: "a"})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "hub", Content: "deep", Name: "a2"})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "hub/a2", Content: "too deep", Name: "x"})

	// Alias in another namespace with its own child.
	s.Create(ctx, CreateParams{NS: "writer", Content: "shelf", Name: "shelf"})
	s.AddAlias(ctx, AliasParams{NewPath: "shelf/hub", NewNS: "writer", TargetPath: "hub", TargetNS: "core"})
	s.Create(ctx, CreateParams{NS: "writer", ParentPath: "shelf/hub", Content: "b", Name: "b"})

	children, err := s.Children(ctx, rec.ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}

	got := map[string]bool{}
	for _, c := range children {
		got[c.URI()] = true
	}
	for _, want := range []string{"core://hub/a", "core://hub/a2", "writer://shelf/hub/b"} {
		if !got[want] {
			t.Errorf("missing child %s in %v", want, got)
		}
	}
	if got["core://hub/a2/x"] {
		t.Error("grandchild leaked into direct children")
	}
}

func TestRoots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "1", Name: "top", Priority: 1})
	s.Create(ctx, CreateParams{NS: "core", Content: "2", Name: "first", Priority: 0})
	s.Create(ctx, CreateParams{NS: "core", ParentPath: "top", Content: "3", Name: "nested"})
	s.Create(ctx, CreateParams{NS: "writer", Content: "4", Name: "other"})

	roots, err := s.Roots(ctx, "core")
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].Path != "first" {
		t.Errorf("expected priority order, got %q first", roots[0].Path)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{NS: "core", Content: "the lighthouse keeper", Name: "keeper"})
	s.Create(ctx, CreateParams{NS: "writer", Content: "a lighthouse in fog", Name: "fog"})
	s.Create(ctx, CreateParams{NS: "core", Content: "unrelated", Name: "noise"})

	all, err := s.Search(ctx, SearchParams{Query: "lighthouse"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 matches, got %d", len(all))
	}

	scoped, _ := s.Search(ctx, SearchParams{Query: "lighthouse", NS: "writer"})
	if len(scoped) != 1 {
		t.Errorf("expected 1 scoped match, got %d", len(scoped))
	}

	// Aliases dedupe by memory id.
	s.AddAlias(ctx, AliasParams{NewPath: "keeper2", NewNS: "core", TargetPath: "keeper", TargetNS: "core"})
	deduped, _ := s.Search(ctx, SearchParams{Query: "keeper"})
	seen := map[int64]int{}
	for _, m := range deduped {
		seen[m.MemoryID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("memory %d appeared %d times", id, n)
		}
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
