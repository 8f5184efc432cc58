package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Manager owns a snapshot directory.
type Manager struct {
	dir string
}

// NewManager creates the snapshot directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the root snapshot directory.
func (m *Manager) Dir() string { return m.dir }

// NewSessionID mints a time-sortable session id, so lexical order of session
// directories matches creation order.
func NewSessionID() string {
	return "sess_" + ulid.Make().String()
}

func (m *Manager) sessionDir(sessionID string) string {
	return filepath.Join(m.dir, sessionID)
}

func (m *Manager) resourcesDir(sessionID string) string {
	return filepath.Join(m.sessionDir(sessionID), "resources")
}

func (m *Manager) manifestPath(sessionID string) string {
	return filepath.Join(m.sessionDir(sessionID), "manifest.json")
}

func (m *Manager) snapshotPath(sessionID, resourceID string) string {
	return filepath.Join(m.resourcesDir(sessionID), sanitizeResourceID(resourceID)+".json")
}

func (m *Manager) loadManifest(sessionID string) (*manifest, error) {
	raw, err := os.ReadFile(m.manifestPath(sessionID))
	if os.IsNotExist(err) {
		return &manifest{
			SessionID: sessionID,
			CreatedAt: time.Now().UTC(),
			Resources: map[string]resourceMeta{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	var mf manifest
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest for %s: %w", sessionID, err)
	}
	if mf.Resources == nil {
		mf.Resources = map[string]resourceMeta{}
	}
	return &mf, nil
}

func (m *Manager) saveManifest(sessionID string, mf *manifest) error {
	if err := os.MkdirAll(m.sessionDir(sessionID), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.manifestPath(sessionID), raw, 0o644)
}

// Has reports whether a snapshot exists for this resource in this session.
func (m *Manager) Has(sessionID, resourceID string) (bool, error) {
	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return false, err
	}
	if _, ok := mf.Resources[resourceID]; ok {
		return true, nil
	}
	_, err = os.Stat(m.snapshotPath(sessionID, resourceID))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Create writes a snapshot for a resource. It must be called before the
// modification it guards. If a snapshot already exists for the resource in
// this session the call is a no-op returning false, unless force is set.
// Delete captures use force so the final snapshot reflects the delete
// rather than an earlier metadata change.
func (m *Manager) Create(sessionID, resourceID, resourceType string, data Payload, force bool) (bool, error) {
	if !force {
		exists, err := m.Has(sessionID, resourceID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	if err := os.MkdirAll(m.resourcesDir(sessionID), 0o755); err != nil {
		return false, err
	}

	rec := Record{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		SnapshotTime: time.Now().UTC(),
		Data:         data,
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return false, err
	}
	path := m.snapshotPath(sessionID, resourceID)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return false, err
	}

	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return false, err
	}
	mf.Resources[resourceID] = resourceMeta{
		ResourceType:  resourceType,
		SnapshotTime:  rec.SnapshotTime,
		OperationType: data.OperationType,
		File:          filepath.Base(path),
	}
	if err := m.saveManifest(sessionID, mf); err != nil {
		return false, err
	}
	return true, nil
}

// Get retrieves a snapshot, or nil when none exists.
func (m *Manager) Get(sessionID, resourceID string) (*Record, error) {
	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return nil, err
	}

	path := m.snapshotPath(sessionID, resourceID)
	if meta, ok := mf.Resources[resourceID]; ok && meta.File != "" {
		path = filepath.Join(m.resourcesDir(sessionID), meta.File)
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", resourceID, err)
	}
	return &rec, nil
}

// FindContentSnapshotByURI returns the resource id of the session's content
// snapshot whose payload addresses the given URI, or "" when none exists.
// Content snapshots are keyed by memory id, so after several updates the
// key no longer matches the live version; this lookup is what keeps content
// capture idempotent per URI.
func (m *Manager) FindContentSnapshotByURI(sessionID, uri string) (string, error) {
	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return "", err
	}
	for resourceID, meta := range mf.Resources {
		if meta.ResourceType != ResourceMemory {
			continue
		}
		rec, err := m.Get(sessionID, resourceID)
		if err != nil {
			return "", err
		}
		if rec != nil && rec.Data.URI == uri {
			return resourceID, nil
		}
	}
	return "", nil
}

// Delete removes one snapshot. When the last snapshot of a session goes,
// the whole session directory goes with it. Returns false when the
// snapshot did not exist.
func (m *Manager) Delete(sessionID, resourceID string) (bool, error) {
	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return false, err
	}

	path := m.snapshotPath(sessionID, resourceID)
	if meta, ok := mf.Resources[resourceID]; ok && meta.File != "" {
		path = filepath.Join(m.resourcesDir(sessionID), meta.File)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}

	if _, ok := mf.Resources[resourceID]; ok {
		delete(mf.Resources, resourceID)
		if len(mf.Resources) == 0 {
			if _, err := m.ClearSession(sessionID); err != nil {
				return false, err
			}
			return true, nil
		}
		if err := m.saveManifest(sessionID, mf); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ListSessions returns every session holding snapshots, newest first.
// Sessions whose manifests have gone empty are discarded on the way.
func (m *Manager) ListSessions() ([]SessionInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []SessionInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		mf, err := m.loadManifest(e.Name())
		if err != nil {
			return nil, err
		}
		if len(mf.Resources) == 0 {
			if _, err := m.ClearSession(e.Name()); err != nil {
				return nil, err
			}
			continue
		}
		sessions = append(sessions, SessionInfo{
			SessionID:     e.Name(),
			CreatedAt:     mf.CreatedAt,
			ResourceCount: len(mf.Resources),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// ListSnapshots returns metadata for every snapshot in a session, sorted by
// resource id for stable output.
func (m *Manager) ListSnapshots(sessionID string) ([]Info, error) {
	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(mf.Resources))
	for resourceID, meta := range mf.Resources {
		infos = append(infos, Info{
			ResourceID:    resourceID,
			ResourceType:  meta.ResourceType,
			SnapshotTime:  meta.SnapshotTime,
			OperationType: meta.OperationType,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return strings.Compare(infos[i].ResourceID, infos[j].ResourceID) < 0
	})
	return infos, nil
}

// ClearSession removes a session directory wholesale, returning how many
// snapshots it held.
func (m *Manager) ClearSession(sessionID string) (int, error) {
	dir := m.sessionDir(sessionID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	mf, err := m.loadManifest(sessionID)
	if err != nil {
		return 0, err
	}
	count := len(mf.Resources)

	if err := os.RemoveAll(dir); err != nil {
		return 0, err
	}
	return count, nil
}
