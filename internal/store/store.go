// Package store implements the versioned, path-addressed memory store on
// SQLite: a memories table holding immutable content versions linked by a
// migration pointer, and a paths table mapping (namespace, path) addresses
// onto the current version.
package store

import (
	"context"

	"github.com/evertrace/memtree/internal/model"
)

// CreateParams holds parameters for creating a memory.
type CreateParams struct {
	ParentPath string // "" creates at the namespace root
	NS         string
	Content    string
	Priority   int
	Name       string // optional explicit path segment; auto-numbered when empty
	Disclosure string
}

// UpdateParams holds parameters for updating a memory. Nil fields are left
// unchanged; at least one must be set.
type UpdateParams struct {
	Path       string
	NS         string
	Content    *string
	Priority   *int
	Disclosure *string
}

// UpdateResult reports the version transition an update performed.
type UpdateResult struct {
	NS          string `json:"ns"`
	Path        string `json:"path"`
	URI         string `json:"uri"`
	OldMemoryID int64  `json:"old_memory_id"`
	NewMemoryID int64  `json:"new_memory_id"`
}

// AliasParams holds parameters for creating an alias path.
type AliasParams struct {
	NewPath    string
	NewNS      string
	TargetPath string
	TargetNS   string
	Priority   int
	Disclosure string
}

// SearchParams holds parameters for substring search.
type SearchParams struct {
	Query string
	NS    string // "" searches all namespaces
	Limit int
}

// Match is one search hit.
type Match struct {
	NS       string `json:"ns"`
	Path     string `json:"path"`
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Snippet  string `json:"snippet"`
	Priority int    `json:"priority"`
	MemoryID int64  `json:"memory_id"`
}

// Store is the contract the review engine and CLI consume.
type Store interface {
	// Read side.
	GetByPath(ctx context.Context, path, ns string) (*model.Record, error)
	GetVersion(ctx context.Context, memoryID int64) (*model.Memory, error)
	Roots(ctx context.Context, ns string) ([]model.Child, error)
	Children(ctx context.Context, memoryID int64) ([]model.Child, error)
	AllPaths(ctx context.Context, ns string) ([]model.PathEntry, error)
	Recent(ctx context.Context, limit int) ([]model.PathEntry, error)
	Search(ctx context.Context, p SearchParams) ([]Match, error)

	// Version chain mutations.
	Create(ctx context.Context, p CreateParams) (*model.Record, error)
	Update(ctx context.Context, p UpdateParams) (*UpdateResult, error)
	RollbackToVersion(ctx context.Context, path, ns string, targetID int64) (*UpdateResult, error)

	// Path index mutations.
	AddAlias(ctx context.Context, p AliasParams) (*model.PathEntry, error)
	RemovePath(ctx context.Context, path, ns string) (int64, error)
	RestorePath(ctx context.Context, path, ns string, memoryID int64, priority int, disclosure string) (*model.PathEntry, error)

	// Orphan lifecycle.
	Orphans(ctx context.Context) ([]model.Orphan, error)
	OrphanDetail(ctx context.Context, memoryID int64) (*model.OrphanDetail, error)
	PermanentlyDelete(ctx context.Context, memoryID int64, requireOrphan bool) (*int64, error)

	Close() error
}
