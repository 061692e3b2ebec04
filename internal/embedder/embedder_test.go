package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

type fakeEmbedder struct {
	calls      int
	failTimes  int
	failErr    error
	vectorSize int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, f.failErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), float32(f.vectorSize)}
	}
	return out, nil
}

func chunksOf(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{ID: string(rune('a' + i)), Content: "content"}
	}
	return chunks
}

func TestBatchEmbedSplitsIntoBatchSize(t *testing.T) {
	e := &fakeEmbedder{}
	chunks := chunksOf(5)

	embedded, err := BatchEmbed(context.Background(), chunks, e, 2)
	require.NoError(t, err)
	assert.Len(t, embedded, 5)
	assert.Equal(t, 3, e.calls) // batches of 2, 2, 1
}

func TestBatchEmbedRetriesTransientErrors(t *testing.T) {
	e := &fakeEmbedder{failTimes: 2, failErr: &TransientError{Err: errors.New("503 service unavailable")}}
	chunks := chunksOf(3)

	embedded, err := BatchEmbed(context.Background(), chunks, e, 10)
	require.NoError(t, err)
	assert.Len(t, embedded, 3)
	assert.Equal(t, 3, e.calls) // 2 failures + 1 success
}

func TestBatchEmbedPropagatesNonTransientErrors(t *testing.T) {
	e := &fakeEmbedder{failTimes: 99, failErr: errors.New("invalid api key")}
	chunks := chunksOf(2)

	_, err := BatchEmbed(context.Background(), chunks, e, 10)
	require.Error(t, err)
	assert.Equal(t, 1, e.calls)
}

func TestIsTransientRecognizesRateLimitWording(t *testing.T) {
	assert.True(t, IsTransient(errors.New("429 too many requests")))
	assert.True(t, IsTransient(errors.New("received 503 from upstream")))
	assert.False(t, IsTransient(errors.New("invalid request")))
	assert.False(t, IsTransient(nil))
}

type fakeVectorStore struct {
	deletedRepo string
	upserted    [][]Point
}

func (f *fakeVectorStore) DeleteByRepo(_ context.Context, repoID string) error {
	f.deletedRepo = repoID
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, points []Point) error {
	f.upserted = append(f.upserted, points)
	return nil
}

func TestUpsertInSubBatchesChunksAt100(t *testing.T) {
	store := &fakeVectorStore{}
	points := make([]Point, 250)

	err := UpsertInSubBatches(context.Background(), store, points)
	require.NoError(t, err)
	require.Len(t, store.upserted, 3)
	assert.Len(t, store.upserted[0], 100)
	assert.Len(t, store.upserted[1], 100)
	assert.Len(t, store.upserted[2], 50)
}

func TestPointsFromEmbeddedCarriesChunkFields(t *testing.T) {
	embedded := []EmbeddedChunk{
		{Chunk: core.Chunk{ID: "abc", FilePath: "f.go", LineStart: 1, LineEnd: 2, SymbolName: "Foo"}, Vector: []float32{1, 2}},
	}

	points := PointsFromEmbedded(42, embedded)
	require.Len(t, points, 1)
	assert.Equal(t, "abc", points[0].ID)
	assert.Equal(t, int64(42), points[0].RepositoryID)
	assert.Equal(t, "f.go", points[0].FilePath)
}
