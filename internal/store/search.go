package store

import (
	"context"
	"strings"

	"github.com/evertrace/memtree/internal/model"
)

// Search runs a substring match over paths and content. Plain LIKE, not
// semantic: results are live memories only, deduplicated by memory id so
// aliases surface once, ordered by priority.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]Match, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + escapeLike(p.Query) + "%"
	query := `
		SELECT m.id, m.content, p.ns, p.path, p.priority
		FROM memories m
		JOIN paths p ON m.id = p.memory_id
		WHERE m.deprecated = 0
		  AND (p.path LIKE ? ESCAPE '\' OR m.content LIKE ? ESCAPE '\')`
	args := []interface{}{pattern, pattern}
	if p.NS != "" {
		query += ` AND p.ns = ?`
		args = append(args, p.NS)
	}
	query += ` ORDER BY p.priority LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	var matches []Match
	for rows.Next() {
		var m Match
		var content string
		if err := rows.Scan(&m.MemoryID, &content, &m.NS, &m.Path, &m.Priority); err != nil {
			return nil, err
		}
		if seen[m.MemoryID] {
			continue
		}
		seen[m.MemoryID] = true

		m.URI = model.MakeURI(m.NS, m.Path)
		m.Name = model.BaseOf(m.Path)
		m.Snippet = matchSnippet(content, p.Query)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// matchSnippet extracts ~30 chars of context around the first hit, falling
// back to a plain prefix when the match was on the path.
func matchSnippet(content, query string) string {
	pos := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if pos < 0 {
		return model.Snippet(content, 80)
	}
	start := pos - 30
	if start < 0 {
		start = 0
	}
	end := pos + len(query) + 30
	if end > len(content) {
		end = len(content)
	}
	return "..." + content[start:end] + "..."
}
