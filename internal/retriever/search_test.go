package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/goframe/schema"
)

func TestMergeKeepsHigherScoreOnDuplicateKey(t *testing.T) {
	trigram := []SourceCandidate{{FilePath: "a.go", StartLine: 10, Score: 0.4}}
	vector := []SourceCandidate{{FilePath: "a.go", StartLine: 10, Score: 0.9}}

	merged := Merge(trigram, vector, 15)
	require.Len(t, merged, 1)
	assert.Equal(t, 0.9, merged[0].Score)
	assert.Equal(t, 1, merged[0].Index)
}

func TestMergeSortsByScoreAndReindexes(t *testing.T) {
	trigram := []SourceCandidate{
		{FilePath: "a.go", StartLine: 1, Score: 0.2},
		{FilePath: "b.go", StartLine: 5, Score: 0.8},
	}

	merged := Merge(trigram, nil, 15)
	require.Len(t, merged, 2)
	assert.Equal(t, "b.go", merged[0].FilePath)
	assert.Equal(t, 1, merged[0].Index)
	assert.Equal(t, "a.go", merged[1].FilePath)
	assert.Equal(t, 2, merged[1].Index)
}

func TestMergeTrimsToLimit(t *testing.T) {
	var trigram []SourceCandidate
	for i := 0; i < 20; i++ {
		trigram = append(trigram, SourceCandidate{FilePath: "f.go", StartLine: i + 1, Score: float64(i)})
	}

	merged := Merge(trigram, nil, 15)
	assert.Len(t, merged, 15)
}

type fakeVectorStore struct {
	docs []schema.Document
}

func (f *fakeVectorStore) SimilaritySearch(_ context.Context, _, _ string, _ int) ([]schema.Document, error) {
	return f.docs, nil
}

func TestVectorSearchMapsDocumentMetadata(t *testing.T) {
	store := &fakeVectorStore{docs: []schema.Document{
		schema.NewDocument("body", map[string]any{
			"file_path":  "svc.go",
			"line_start": 3,
			"line_end":   9,
			"symbol":     "Service.Run",
			"score":      0.77,
		}),
	}}
	searcher := &VectorSearcher{Store: store}

	candidates, err := searcher.VectorSearch(context.Background(), "42", "how does Service.Run work", 15)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "svc.go", candidates[0].FilePath)
	assert.Equal(t, 3, candidates[0].StartLine)
	assert.Equal(t, "Service.Run", candidates[0].SymbolName)
	assert.Equal(t, 0.77, candidates[0].Score)
	assert.Equal(t, "vector", candidates[0].SourceType)
}
