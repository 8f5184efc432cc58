// Package snapshot stores pre-modification resource states on disk, one
// directory per session, so a reviewer can later diff and selectively roll
// back an agent's changes.
//
// Layout:
//
//	<dir>/<session_id>/manifest.json
//	<dir>/<session_id>/resources/<safe_resource_id>.json
//
// Within a session each resource gets at most one snapshot: the state before
// its first modification. Later modifications to the same resource are
// no-ops unless forced.
package snapshot

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Operation types recorded in a snapshot payload.
const (
	OpCreate        = "create"
	OpCreateAlias   = "create_alias"
	OpDelete        = "delete"
	OpModifyMeta    = "modify_meta"
	OpModifyContent = "modify_content"
)

// Resource types. Path snapshots are keyed by URI; memory content snapshots
// are keyed by "memory:{id}" so the two spaces never collide.
const (
	ResourcePath   = "path"
	ResourceMemory = "memory"
)

// Payload is the captured pre-modification state. Which fields are set
// depends on the operation type; content is never stored here, because the
// superseded memory row survives in the database until permanently deleted.
type Payload struct {
	OperationType string   `json:"operation_type"`
	NS            string   `json:"ns"`
	Path          string   `json:"path"`
	URI           string   `json:"uri"`
	MemoryID      int64    `json:"memory_id"`
	Priority      *int     `json:"priority,omitempty"`
	Disclosure    *string  `json:"disclosure,omitempty"`
	TargetURI     string   `json:"target_uri,omitempty"`
	AllPaths      []string `json:"all_paths,omitempty"`
}

// Record is one snapshot as stored on disk.
type Record struct {
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	SnapshotTime time.Time `json:"snapshot_time"`
	Data         Payload   `json:"data"`
}

// SessionInfo summarizes one session for listings.
type SessionInfo struct {
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	ResourceCount int       `json:"resource_count"`
}

// Info summarizes one snapshot within a session.
type Info struct {
	ResourceID    string    `json:"resource_id"`
	ResourceType  string    `json:"resource_type"`
	SnapshotTime  time.Time `json:"snapshot_time"`
	OperationType string    `json:"operation_type"`
}

type manifest struct {
	SessionID string                  `json:"session_id"`
	CreatedAt time.Time               `json:"created_at"`
	Resources map[string]resourceMeta `json:"resources"`
}

type resourceMeta struct {
	ResourceType  string    `json:"resource_type"`
	SnapshotTime  time.Time `json:"snapshot_time"`
	OperationType string    `json:"operation_type"`
	File          string    `json:"file"`
}

// ContentResourceID keys a content snapshot by memory id.
func ContentResourceID(memoryID int64) string {
	return "memory:" + strconv.FormatInt(memoryID, 10)
}

const maxSafeIDLen = 100

// sanitizeResourceID converts a resource id into a safe filename stem. A
// hash of the original id is always appended, so distinct ids that sanitize
// to the same text ("core://a/b" vs "core://a_b") still get distinct files.
func sanitizeResourceID(resourceID string) string {
	sum := md5.Sum([]byte(resourceID))
	idHash := hex.EncodeToString(sum[:])[:8]

	safe := strings.ReplaceAll(resourceID, "://", "__")
	safe = strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(safe)
	safe = strings.ReplaceAll(safe, ">", "_to_")

	if len(safe) > maxSafeIDLen {
		safe = safe[:maxSafeIDLen]
	}
	return safe + "_" + idHash
}
