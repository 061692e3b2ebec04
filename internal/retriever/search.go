package retriever

import (
	"context"
	"sort"
	"strconv"

	"github.com/sevigo/goframe/schema"
)

// SourceCandidate is one retrieved piece of evidence, before its snippet
// content has been fetched.
type SourceCandidate struct {
	Index      int
	FilePath   string
	StartLine  int
	EndLine    int
	SymbolName string
	Content    string
	Score      float64
	SourceType string // "trigram" or "vector"
}

// key identifies a candidate for the purposes of merging duplicates across
// the trigram and vector result sets.
func (s SourceCandidate) key() string {
	return s.FilePath + ":" + strconv.Itoa(s.StartLine)
}

// SymbolSearch looks up symbols whose name, qualified name, or search text
// resembles one of keywords, scored by trigram similarity in [0,1].
type SymbolSearch interface {
	Search(ctx context.Context, repoID string, keywords []string, limit int) ([]SourceCandidate, error)
}

// defaultVectorTopK and defaultTrigramLimit mirror the fixed limits the
// hybrid search runs with before the merge step trims to its own cap.
const (
	defaultTrigramLimit = 10
	defaultVectorTopK   = 15
	mergeLimit          = 15
	defaultVectorScore  = 0.5
)

// VectorSimilaritySearch is the subset of a vector store this package
// needs: a text query similarity search over a repository's collection,
// the same contract the teacher's storage.VectorStore exposes.
type VectorSimilaritySearch interface {
	SimilaritySearch(ctx context.Context, collectionName, query string, numDocs int) ([]schema.Document, error)
}

// VectorSearcher runs a kNN search over a repository's embedded chunks.
type VectorSearcher struct {
	Store VectorSimilaritySearch
}

// CollectionName derives the vector store collection for a repository,
// matching the naming this system's embedder package upserts under.
func CollectionName(repoID string) string {
	return "coderadar_repo_" + repoID
}

// VectorSearch embeds question implicitly (the configured store's embedder
// does so) and returns up to topK nearest chunks as source candidates.
func (v *VectorSearcher) VectorSearch(ctx context.Context, repoID, question string, topK int) ([]SourceCandidate, error) {
	if topK <= 0 {
		topK = defaultVectorTopK
	}
	docs, err := v.Store.SimilaritySearch(ctx, CollectionName(repoID), question, topK)
	if err != nil {
		return nil, err
	}

	candidates := make([]SourceCandidate, 0, len(docs))
	for _, d := range docs {
		filePath, _ := d.Metadata["file_path"].(string)
		if filePath == "" {
			continue
		}
		candidates = append(candidates, SourceCandidate{
			FilePath:   filePath,
			StartLine:  asInt(d.Metadata["line_start"]),
			EndLine:    asInt(d.Metadata["line_end"]),
			SymbolName: asString(d.Metadata["symbol"]),
			Score:      scoreOrDefault(d.Metadata["score"]),
			SourceType: "vector",
		})
	}
	return candidates, nil
}

func scoreOrDefault(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return defaultVectorScore
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Merge unions trigram and vector candidates by (file_path, start_line),
// keeping whichever copy scored higher, sorts the survivors by score
// descending, re-indexes them 1..N, and trims to mergeLimit (15).
func Merge(trigram, vector []SourceCandidate, limit int) []SourceCandidate {
	if limit <= 0 {
		limit = mergeLimit
	}

	best := map[string]SourceCandidate{}
	order := make([]string, 0, len(trigram)+len(vector))
	for _, c := range append(append([]SourceCandidate{}, trigram...), vector...) {
		k := c.key()
		existing, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = c
			continue
		}
		if c.Score > existing.Score {
			best[k] = c
		}
	}

	merged := make([]SourceCandidate, 0, len(order))
	for _, k := range order {
		merged = append(merged, best[k])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	for i := range merged {
		merged[i].Index = i + 1
	}
	return merged
}
