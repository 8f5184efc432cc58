package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/evertrace/memtree/internal/model"
	"github.com/evertrace/memtree/internal/snapshot"
	"github.com/evertrace/memtree/internal/store"
)

// deletedPlaceholder stands in for content that no longer exists on the
// side being compared.
const deletedPlaceholder = "[DELETED]"

// Diff compares a snapshot against the current store state.
type Diff struct {
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Operation    string    `json:"operation_type"`
	SnapshotTime time.Time `json:"snapshot_time"`
	Unified      string    `json:"diff_unified"`
	Summary      string    `json:"diff_summary"`
	HasChanges   bool      `json:"has_changes"`
}

// Diff reconstructs both sides of a snapshot and produces a unified diff
// with a one-line summary. Missing live state renders as a placeholder
// rather than an error; the reviewer still needs to see what was there.
func (e *Engine) Diff(ctx context.Context, sessionID, resourceID string) (*Diff, error) {
	rec, err := e.getSnapshot(sessionID, resourceID)
	if err != nil {
		return nil, err
	}

	d := &Diff{
		ResourceID:   resourceID,
		ResourceType: rec.ResourceType,
		Operation:    rec.Data.OperationType,
		SnapshotTime: rec.SnapshotTime,
	}

	switch rec.Data.OperationType {
	case snapshot.OpCreate, snapshot.OpCreateAlias:
		err = e.diffCreate(ctx, rec, d)
	case snapshot.OpDelete:
		err = e.diffDelete(ctx, rec, d)
	case snapshot.OpModifyMeta:
		err = e.diffMeta(ctx, rec, d)
	case snapshot.OpModifyContent:
		err = e.diffContent(ctx, rec, d)
	default:
		return nil, fmt.Errorf("%w: unknown operation type %q", store.ErrValidation, rec.Data.OperationType)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// diffCreate shows what a created path currently holds: the snapshot side
// is empty by definition.
func (e *Engine) diffCreate(ctx context.Context, rec *snapshot.Record, d *Diff) error {
	cur, err := e.store.GetByPath(ctx, rec.Data.Path, rec.Data.NS)
	if errors.Is(err, store.ErrNotFound) {
		d.Unified = fmt.Sprintf("--- /dev/null\n+++ %s\n", d.ResourceID)
		d.Summary = "Created then deleted"
		d.HasChanges = false
		return nil
	}
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- /dev/null\n+++ %s\n", d.ResourceID)
	for _, line := range strings.Split(cur.Content, "\n") {
		b.WriteString("+")
		b.WriteString(line)
		b.WriteString("\n")
	}
	d.Unified = b.String()
	d.Summary = fmt.Sprintf("Created: +%d lines (rollback = delete)", lineCount(cur.Content))
	d.HasChanges = true
	return nil
}

// diffDelete compares the pre-delete content against whatever lives at the
// address now, normally nothing.
func (e *Engine) diffDelete(ctx context.Context, rec *snapshot.Record, d *Diff) error {
	old := e.versionContent(ctx, rec.Data.MemoryID)

	current := deletedPlaceholder
	cur, err := e.store.GetByPath(ctx, rec.Data.Path, rec.Data.NS)
	if err == nil {
		// Address was manually re-created after the delete.
		current = cur.Content
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	d.Unified, d.Summary = computeDiff(old, current)
	if current == deletedPlaceholder {
		d.Summary = "Deleted (rollback = restore)"
	}
	d.HasChanges = true
	return nil
}

// diffMeta reports priority and disclosure changes; the content is shared
// with the live version, so there is nothing textual to diff.
func (e *Engine) diffMeta(ctx context.Context, rec *snapshot.Record, d *Diff) error {
	cur, err := e.store.GetByPath(ctx, rec.Data.Path, rec.Data.NS)
	if errors.Is(err, store.ErrNotFound) {
		d.Summary = deletedPlaceholder
		d.HasChanges = true
		return nil
	}
	if err != nil {
		return err
	}

	var changes []string
	if rec.Data.Priority != nil && *rec.Data.Priority != cur.Priority {
		changes = append(changes, fmt.Sprintf("priority: %d -> %d", *rec.Data.Priority, cur.Priority))
	}
	if rec.Data.Disclosure != nil && *rec.Data.Disclosure != cur.Disclosure {
		changes = append(changes, fmt.Sprintf("disclosure: %q -> %q", *rec.Data.Disclosure, cur.Disclosure))
	}

	if len(changes) == 0 {
		d.Summary = "No changes"
		return nil
	}
	d.Summary = "Metadata: " + strings.Join(changes, ", ")
	d.HasChanges = true
	return nil
}

// diffContent compares the snapshotted version's content against the
// version its URI resolves to now. The snapshot stores only the memory id;
// the content is read back from the deprecated row.
func (e *Engine) diffContent(ctx context.Context, rec *snapshot.Record, d *Diff) error {
	old := e.versionContent(ctx, rec.Data.MemoryID)

	current := deletedPlaceholder
	cur, err := e.currentByAnyAddress(ctx, rec.Data)
	if err != nil {
		return err
	}
	if cur != nil {
		current = cur.Content
	}

	d.Unified, d.Summary = computeDiff(old, current)
	d.HasChanges = old != current
	return nil
}

// versionContent reads a memory version's content, degrading to the
// placeholder when the row was permanently deleted.
func (e *Engine) versionContent(ctx context.Context, memoryID int64) string {
	m, err := e.store.GetVersion(ctx, memoryID)
	if err != nil {
		return deletedPlaceholder
	}
	return m.Content
}

// currentByAnyAddress resolves the live record for a content snapshot: the
// primary address first, then every alternate address recorded at capture
// time. Returns nil when no address resolves.
func (e *Engine) currentByAnyAddress(ctx context.Context, data snapshot.Payload) (*model.Record, error) {
	cur, err := e.store.GetByPath(ctx, data.Path, data.NS)
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for _, uri := range data.AllPaths {
		if uri == data.URI {
			continue
		}
		ns, path := model.ParseURI(uri)
		cur, err := e.store.GetByPath(ctx, path, ns)
		if err == nil {
			return cur, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// computeDiff produces a unified diff and a "+X / -Y lines" summary.
func computeDiff(old, current string) (unified, summary string) {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(current),
		FromFile: "snapshot",
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return "", "diff failed: " + err.Error()
	}

	var additions, deletions int
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}

	if additions == 0 && deletions == 0 {
		return unified, "No changes"
	}
	return unified, fmt.Sprintf("+%d / -%d lines", additions, deletions)
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(strings.TrimSuffix(s, "\n"), "\n"))
}
