package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/schema"
	"github.com/sevigo/goframe/vectorstores"
	"github.com/sevigo/goframe/vectorstores/qdrant"
)

// GoframeEmbedder adapts a goframe embeddings.Embedder (Gemini, Ollama, or
// any other backend it wraps) onto this package's Embedder interface.
type GoframeEmbedder struct {
	backend embeddings.Embedder
}

// NewGoframeEmbedder wraps an already-configured goframe embedder.
func NewGoframeEmbedder(backend embeddings.Embedder) *GoframeEmbedder {
	return &GoframeEmbedder{backend: backend}
}

func (g *GoframeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.backend.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// qdrantVectorStore implements VectorStore against a single Qdrant
// collection per repository, the same one-collection-per-thing shape the
// teacher's storage.qdrantVectorStore follows for PR review collections.
//
// Qdrant persistence goes through goframe's AddDocuments, which embeds
// its document text with the embedder it was configured with — the
// library gives no lower-level "upsert this raw vector" entry point, so
// the embedder is wired in here exactly as the teacher wires it into its
// qdrant.WithEmbedder option. This package's own BatchEmbed/retry policy
// still runs first, but the vectors it produces (Point.Vector) are not
// stored anywhere: the Qdrant write embeds each point's Preview text (the
// truncated content preview, not the full chunk) through the configured
// backend.
type qdrantVectorStore struct {
	host     string
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// NewQdrantVectorStore builds a VectorStore backed by Qdrant at host,
// using backend to embed document text at upsert time.
func NewQdrantVectorStore(host string, backend embeddings.Embedder, logger *slog.Logger) VectorStore {
	return &qdrantVectorStore{host: host, embedder: backend, logger: logger}
}

func collectionForRepo(repoID string) (string, error) {
	if strings.TrimSpace(repoID) == "" {
		return "", fmt.Errorf("repository id cannot be empty")
	}
	return "coderadar_repo_" + repoID, nil
}

func (q *qdrantVectorStore) store(collectionName string) (vectorstores.VectorStore, error) {
	return qdrant.New(
		qdrant.WithHost(q.host),
		qdrant.WithEmbedder(q.embedder),
		qdrant.WithCollectionName(collectionName),
		qdrant.WithLogger(q.logger),
	)
}

func (q *qdrantVectorStore) DeleteByRepo(ctx context.Context, repoID string) error {
	collectionName, err := collectionForRepo(repoID)
	if err != nil {
		return err
	}
	store, err := q.store(collectionName)
	if err != nil {
		return fmt.Errorf("getting qdrant store for %s: %w", collectionName, err)
	}
	if err := store.DeleteCollection(ctx, collectionName); err != nil {
		return fmt.Errorf("deleting qdrant collection %s: %w", collectionName, err)
	}
	return nil
}

func (q *qdrantVectorStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	collectionName, err := collectionForRepo(fmt.Sprintf("%d", points[0].RepositoryID))
	if err != nil {
		return err
	}
	store, err := q.store(collectionName)
	if err != nil {
		return fmt.Errorf("getting qdrant store for %s: %w", collectionName, err)
	}

	docs := make([]schema.Document, len(points))
	for i, p := range points {
		docs[i] = schema.NewDocument(p.Preview, map[string]any{
			"id":         p.ID,
			"repo_id":    p.RepositoryID,
			"file_path":  p.FilePath,
			"line_start": p.LineStart,
			"line_end":   p.LineEnd,
			"symbol":     p.SymbolName,
		})
	}

	if _, err := store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("upserting to qdrant collection %s: %w", collectionName, err)
	}
	return nil
}
