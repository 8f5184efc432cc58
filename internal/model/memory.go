// Package model defines the core memory data types.
package model

import "time"

// Memory is a single content version. Updates never mutate a Memory in
// place: they insert a new row and point the old row's MigratedTo at it,
// forming a singly linked version chain that ends at a row with
// MigratedTo == nil.
type Memory struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Deprecated bool      `json:"deprecated"`
	MigratedTo *int64    `json:"migrated_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// URIs of every path currently referencing this memory.
	Paths []string `json:"paths,omitempty"`
}

// PathEntry is one address in the path index. Several entries may reference
// the same memory id (aliases). Priority and disclosure are properties of
// the address, not of the content.
type PathEntry struct {
	NS         string    `json:"ns"`
	Path       string    `json:"path"`
	MemoryID   int64     `json:"memory_id"`
	Priority   int       `json:"priority"`
	Disclosure string    `json:"disclosure,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// URI returns the entry's full address.
func (p PathEntry) URI() string { return MakeURI(p.NS, p.Path) }

// Record is a path joined with its live memory: what a read by address
// returns.
type Record struct {
	ID         int64     `json:"id"`
	NS         string    `json:"ns"`
	Path       string    `json:"path"`
	Content    string    `json:"content"`
	Priority   int       `json:"priority"`
	Disclosure string    `json:"disclosure,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// URI returns the record's full address.
func (r Record) URI() string { return MakeURI(r.NS, r.Path) }

// Child is a direct sub-path in a browse listing.
type Child struct {
	NS         string `json:"ns"`
	Path       string `json:"path"`
	Name       string `json:"name"`
	MemoryID   int64  `json:"memory_id"`
	Snippet    string `json:"snippet"`
	Priority   int    `json:"priority"`
	Disclosure string `json:"disclosure,omitempty"`
}

// URI returns the child's full address.
func (c Child) URI() string { return MakeURI(c.NS, c.Path) }

// Orphan categories.
const (
	OrphanDeprecated = "deprecated" // superseded by an update
	OrphanPathless   = "orphaned"   // live but no address references it
)

// Orphan is a memory eligible for permanent deletion: either deprecated, or
// live with zero paths. For deprecated entries the migration chain is
// resolved so a reviewer can see where the content moved.
type Orphan struct {
	ID         int64        `json:"id"`
	Snippet    string       `json:"snippet"`
	CreatedAt  time.Time    `json:"created_at"`
	Deprecated bool         `json:"deprecated"`
	MigratedTo *int64       `json:"migrated_to,omitempty"`
	Category   string       `json:"category"`
	Target     *ChainTarget `json:"migration_target,omitempty"`
}

// ChainTarget is the live end of a migration chain. Nil when the chain is
// broken or cyclic.
type ChainTarget struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content,omitempty"`
	Snippet   string    `json:"snippet"`
	Paths     []string  `json:"paths"`
	CreatedAt time.Time `json:"created_at"`
}

// OrphanDetail is the full content view of an orphan, for diffing against
// its migration target.
type OrphanDetail struct {
	ID         int64        `json:"id"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
	Deprecated bool         `json:"deprecated"`
	MigratedTo *int64       `json:"migrated_to,omitempty"`
	Category   string       `json:"category"`
	Target     *ChainTarget `json:"migration_target,omitempty"`
}

// Snippet truncates content for listings.
func Snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
