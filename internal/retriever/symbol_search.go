package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// symbolRow is the shape of one trigram match row.
type symbolRow struct {
	Name          string  `db:"name"`
	QualifiedName string  `db:"qualified_name"`
	FilePath      string  `db:"file_path"`
	StartLine     int     `db:"start_line"`
	EndLine       int     `db:"end_line"`
	Score         float64 `db:"score"`
}

// SQLSymbolSearch implements SymbolSearch against the symbols table using
// Postgres' pg_trgm similarity operator, the same search the original
// Q&A service ran over its symbols table.
type SQLSymbolSearch struct {
	DB *sqlx.DB
}

// NewSQLSymbolSearch builds a SymbolSearch backed by db.
func NewSQLSymbolSearch(db *sqlx.DB) *SQLSymbolSearch {
	return &SQLSymbolSearch{DB: db}
}

const trigramQuery = `
SELECT
	name,
	qualified_name,
	file_path,
	start_line,
	end_line,
	GREATEST(
		similarity(name, $1),
		similarity(qualified_name, $1)
	) AS score
FROM symbols
WHERE repository_id = $2
AND (
	name % $1
	OR qualified_name % $1
	OR search_text ILIKE $3
)
ORDER BY score DESC
LIMIT $4
`

// Search runs the trigram query for keywords joined by a space, matching
// name/qualified_name similarity and a fallback ILIKE over search_text on
// the single longest keyword.
func (s *SQLSymbolSearch) Search(ctx context.Context, repoID string, keywords []string, limit int) ([]SourceCandidate, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultTrigramLimit
	}

	query := strings.Join(keywords, " ")
	likeQuery := "%" + keywords[0] + "%"

	var rows []symbolRow
	if err := s.DB.SelectContext(ctx, &rows, trigramQuery, query, repoID, likeQuery, limit); err != nil {
		return nil, fmt.Errorf("trigram search for repo %s: %w", repoID, err)
	}

	candidates := make([]SourceCandidate, len(rows))
	for i, r := range rows {
		score := r.Score
		if score == 0 {
			score = defaultVectorScore
		}
		candidates[i] = SourceCandidate{
			FilePath:   r.FilePath,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			SymbolName: r.QualifiedName,
			Score:      score,
			SourceType: "trigram",
		}
	}
	return candidates, nil
}
