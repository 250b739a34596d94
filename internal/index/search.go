package index

import (
	"strings"

	"github.com/starford/laguz/internal/models"
)

const searchLimit = 50

// ftsOperators are stripped from user input before it reaches the FTS
// query parser.
const ftsOperators = "\"*(){}[]^:+-!&|~.,;=<>/\\?@%$#"

// SearchNotes is the search front door. A leading '#' searches by exact
// tag (case-insensitive). Anything else is sanitized into an FTS query:
// one token searches as a prefix, several as an AND of prefixes, and a
// fully quoted input passes through as a literal phrase. When FTS finds
// nothing and the query has at least two characters, a LIKE substring scan
// over name and content answers instead.
func (db *DB) SearchNotes(query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if strings.HasPrefix(query, "#") {
		return db.searchByTag(strings.TrimPrefix(query, "#"))
	}

	match := buildMatch(query)
	if match != "" {
		res, err := db.ftsMatch(match, searchLimit)
		if err != nil {
			return nil, err
		}
		if len(res) > 0 {
			return res, nil
		}
	}
	if len(query) >= 2 {
		return db.likeFallback(query)
	}
	return nil, nil
}

// buildMatch turns raw user input into an FTS match expression.
func buildMatch(query string) string {
	quoted := len(query) >= 2 && strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`)
	tokens := strings.Fields(sanitizeFTS(query))
	if len(tokens) == 0 {
		return ""
	}
	if quoted {
		return `"` + strings.Join(tokens, " ") + `"`
	}
	for i, t := range tokens {
		tokens[i] = t + "*"
	}
	return strings.Join(tokens, " AND ")
}

func sanitizeFTS(query string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(ftsOperators, r) {
			return ' '
		}
		return r
	}, query)
}

func (db *DB) searchByTag(tag string) ([]models.SearchResult, error) {
	notes, err := db.NotesWithTag(strings.TrimSpace(tag), searchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchResult, 0, len(notes))
	for _, n := range notes {
		out = append(out, models.SearchResult{
			ID:     n.ID,
			Name:   n.Name,
			Path:   n.Path,
			Folder: n.Folder,
		})
	}
	return out, nil
}

// likeFallback scans name and content case-insensitively for the raw query.
func (db *DB) likeFallback(query string) ([]models.SearchResult, error) {
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT n.id, n.name, n.path, n.folder, substr(f.content, 1, 200)
		FROM notes n
		JOIN notes_fts f ON f.rowid = n.id
		WHERE (n.name LIKE ? OR f.content LIKE ?) AND `+visibleNotesCond+`
		ORDER BY n.updated_at DESC
		LIMIT ?
	`, like, like, searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.Folder, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
