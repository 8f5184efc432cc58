package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath             string           `json:"db_path"`
	DBSizeBytes        int64            `json:"db_size_bytes"`
	TotalMemories      int              `json:"total_memories"`
	ActiveMemories     int              `json:"active_memories"`
	DeprecatedMemories int              `json:"deprecated_memories"`
	TotalPaths         int              `json:"total_paths"`
	Namespaces         []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds per-namespace counts.
type NamespaceStats struct {
	NS       string `json:"ns"`
	Paths    int    `json:"paths"`
	Memories int    `json:"memories"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE deprecated = 0`).Scan(&st.ActiveMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE deprecated = 1`).Scan(&st.DeprecatedMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paths`).Scan(&st.TotalPaths)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ns, COUNT(*) AS cnt, COUNT(DISTINCT memory_id) AS mems
		FROM paths GROUP BY ns ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ns NamespaceStats
		rows.Scan(&ns.NS, &ns.Paths, &ns.Memories)
		st.Namespaces = append(st.Namespaces, ns)
	}

	return st, nil
}
