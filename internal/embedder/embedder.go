// Package embedder batches chunks into an embedding backend and persists
// the resulting vectors to a vector store, retrying transient failures
// with exponential backoff.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sevigo/coderadar/internal/core"
)

// Embedder turns a batch of texts into their vector embeddings, one per
// input text, in the same order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddedChunk pairs a chunk with the vector produced for its content.
type EmbeddedChunk struct {
	Chunk  core.Chunk
	Vector []float32
}

// defaultBatchSize is the number of chunks embedded per call when the
// caller doesn't specify one.
const defaultBatchSize = 20

// retryDelays is the exponential backoff schedule for a transient batch
// failure: three attempts beyond the first, waiting 1s, 2s, then 4s.
var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// TransientError wraps an embedder error that's safe to retry: a 5xx
// response or an explicit rate-limit indicator from the backend.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or a wrapped cause) should be retried.
// It recognizes an explicit *TransientError, and falls back to sniffing
// common rate-limit/5xx wording so an Embedder implementation that
// doesn't wrap its errors still benefits from the retry policy.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "rate-limit", "too many requests", "429", "503", "502", "500"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// BatchEmbed sends chunks to embedder in batches of batchSize (default
// defaultBatchSize when <= 0), retrying a transient batch failure up to
// three times with the 1s/2s/4s backoff schedule. A non-transient error
// aborts the whole call immediately.
func BatchEmbed(ctx context.Context, chunks []core.Chunk, embedder Embedder, batchSize int) ([]EmbeddedChunk, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var out []EmbeddedChunk
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := embedBatchWithRetry(ctx, embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for i, v := range vectors {
			out = append(out, EmbeddedChunk{Chunk: batch[i], Vector: v})
		}
	}
	return out, nil
}

func embedBatchWithRetry(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
		if attempt == len(retryDelays) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
	}
	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

// Point is one vector-store upsert record: an embedded chunk's vector
// plus enough payload for the retriever to reconstruct a citation without
// a secondary lookup.
type Point struct {
	ID           string
	RepositoryID int64
	Vector       []float32
	FilePath     string
	LineStart    int
	LineEnd      int
	SymbolName   string
	Preview      string
}

// VectorStore is the persistence contract for embedded chunks.
type VectorStore interface {
	// DeleteByRepo removes every point whose payload repo_id matches
	// repoID, run before a full reindex inserts the fresh set.
	DeleteByRepo(ctx context.Context, repoID string) error
	// Upsert inserts or replaces the points it is given in one call;
	// UpsertInSubBatches is what splits a large set into groups of 100.
	Upsert(ctx context.Context, points []Point) error
}

// PointsFromEmbedded converts a batch of embedded chunks into the points a
// VectorStore upserts, deriving each point's id from the chunk's own
// stable content hash so re-indexing the same symbol replaces its prior
// point rather than duplicating it.
func PointsFromEmbedded(repositoryID int64, embedded []EmbeddedChunk) []Point {
	points := make([]Point, len(embedded))
	for i, e := range embedded {
		points[i] = Point{
			ID:           e.Chunk.ID,
			RepositoryID: repositoryID,
			Vector:       e.Vector,
			FilePath:     e.Chunk.FilePath,
			LineStart:    e.Chunk.LineStart,
			LineEnd:      e.Chunk.LineEnd,
			SymbolName:   e.Chunk.SymbolName,
			Preview:      e.Chunk.ContentPreview,
		}
	}
	return points
}

const upsertSubBatchSize = 100

// UpsertInSubBatches upserts points in groups of upsertSubBatchSize, the
// size the persistence step commits to Qdrant in.
func UpsertInSubBatches(ctx context.Context, store VectorStore, points []Point) error {
	for start := 0; start < len(points); start += upsertSubBatchSize {
		end := start + upsertSubBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := store.Upsert(ctx, points[start:end]); err != nil {
			return fmt.Errorf("upserting points [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}
