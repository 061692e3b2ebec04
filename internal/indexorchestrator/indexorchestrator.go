// Package indexorchestrator drives a repository's index build: checkout,
// parse every file into symbols, replace the symbol table and chunk/embed
// set transactionally, and update the repository's index state. It is the
// C1->C4, C8 pipeline wired together, the counterpart to
// internal/scanorchestrator's finding-producing pipeline.
package indexorchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sevigo/coderadar/internal/chunker"
	"github.com/sevigo/coderadar/internal/cloner"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/embedder"
	"github.com/sevigo/coderadar/internal/parser"
	"github.com/sevigo/coderadar/internal/storage"
)

// vendorDirs are pruned during the index walk the same way
// internal/scanorchestrator prunes them; duplicated rather than shared
// because the two orchestrators' walks diverge on file-size/skip policy
// and a shared dependency would couple them for no real benefit.
var vendorDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".venv": true, "__pycache__": true,
}

// maxFileBytes bounds how large a file this orchestrator will read for
// parsing; larger files are skipped rather than indexed.
const maxFileBytes = 2 * 1024 * 1024

// Orchestrator rebuilds a repository's full index: symbol table, import/
// call graph extraction (consumed by the parser/indexer packages during
// parsing), chunked embeddings, and file tracking.
type Orchestrator struct {
	cloner      *cloner.Cloner
	parsers     *parser.Registry
	store       storage.Store
	embedder    embedder.Embedder
	vectorStore embedder.VectorStore
	batchSize   int
	logger      *slog.Logger
}

// New builds an Orchestrator. batchSize <= 0 uses the embedder package's
// own default.
func New(c *cloner.Cloner, parsers *parser.Registry, store storage.Store, emb embedder.Embedder, vs embedder.VectorStore, batchSize int, logger *slog.Logger) *Orchestrator {
	if c == nil || parsers == nil || store == nil || emb == nil || vs == nil || logger == nil {
		panic("indexorchestrator.New received a nil dependency")
	}
	return &Orchestrator{cloner: c, parsers: parsers, store: store, embedder: emb, vectorStore: vs, batchSize: batchSize, logger: logger}
}

// Run rebuilds the index for the repository identified by repoID, cloning
// repoURL at ref. On any failure the repository's index_status is set to
// IndexFailed before the error is returned.
func (o *Orchestrator) Run(ctx context.Context, repoID int64, repoURL, ref, token string) error {
	if err := o.store.UpdateRepositoryIndexState(ctx, repoID, core.IndexIndexing, "", 0, 0); err != nil {
		return fmt.Errorf("indexorchestrator: mark indexing: %w", err)
	}

	fileCount, symbolCount, commitSHA, err := o.execute(ctx, repoID, repoURL, ref, token)
	if err != nil {
		if failErr := o.store.UpdateRepositoryIndexState(ctx, repoID, core.IndexFailed, "", 0, 0); failErr != nil {
			o.logger.ErrorContext(ctx, "failed to record index failure", "repository_id", repoID, "error", failErr)
		}
		return err
	}

	if err := o.store.UpdateRepositoryIndexState(ctx, repoID, core.IndexReady, commitSHA, fileCount, symbolCount); err != nil {
		return fmt.Errorf("indexorchestrator: mark ready: %w", err)
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, repoID int64, repoURL, ref, token string) (fileCount, symbolCount int, commitSHA string, err error) {
	workDir, commitSHA, cleanup, err := o.cloner.Checkout(ctx, repoURL, ref, token)
	if err != nil {
		return 0, 0, "", fmt.Errorf("checkout: %w", err)
	}
	defer cleanup()

	relPaths, err := walkFiles(workDir)
	if err != nil {
		return 0, 0, "", fmt.Errorf("discovering files: %w", err)
	}

	var (
		symbols      []core.Symbol
		fileRecords  []storage.FileRecord
		fileContents = map[string][]byte{}
		seenPaths    = make([]string, 0, len(relPaths))
	)

	for _, rel := range relPaths {
		absPath := filepath.Join(workDir, rel)
		info, statErr := os.Stat(absPath)
		if statErr != nil || info.Size() > maxFileBytes {
			continue
		}
		lang, known := parser.DetectLanguage(rel)
		if !known {
			continue
		}
		content, readErr := os.ReadFile(absPath)
		if readErr != nil {
			o.logger.WarnContext(ctx, "skipping unreadable file during indexing", "path", rel, "error", readErr)
			continue
		}

		p := o.parsers.For(lang)
		if p == nil {
			continue
		}
		parsed, parseErr := p.ParseFile(rel, content)
		if parseErr != nil {
			o.logger.WarnContext(ctx, "skipping file that failed to parse during indexing", "path", rel, "error", parseErr)
			continue
		}

		symbols = append(symbols, parsed.Symbols...)
		fileContents[rel] = content
		seenPaths = append(seenPaths, rel)
		fileRecords = append(fileRecords, storage.FileRecord{
			RepositoryID:  repoID,
			FilePath:      rel,
			FileHash:      sha256Hex(content),
			LastIndexedAt: time.Now(),
		})
	}

	if err := o.replaceFileTracking(ctx, repoID, seenPaths, fileRecords); err != nil {
		return 0, 0, "", fmt.Errorf("replacing file tracking: %w", err)
	}

	if err := o.store.ReplaceSymbols(ctx, repoID, symbols); err != nil {
		return 0, 0, "", fmt.Errorf("replacing symbols: %w", err)
	}

	chunks := chunker.Chunk(symbols, fileContents)
	for i := range chunks {
		chunks[i].RepositoryID = repoID
	}

	if err := o.refreshVectors(ctx, repoID, chunks); err != nil {
		return 0, 0, "", fmt.Errorf("refreshing vectors: %w", err)
	}

	return len(seenPaths), len(symbols), commitSHA, nil
}

// replaceFileTracking diffs the freshly discovered file set against the
// repository's previously tracked files, deleting anything gone and
// upserting everything present — the same transactional-replace shape
// core.Repository's doc comment and this system's design for C12 call
// for, applied to the teacher's existing FileRecord bookkeeping table.
func (o *Orchestrator) replaceFileTracking(ctx context.Context, repoID int64, seenPaths []string, records []storage.FileRecord) error {
	existing, err := o.store.GetFilesForRepo(ctx, repoID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(seenPaths))
	for _, p := range seenPaths {
		seen[p] = true
	}

	var toDelete []string
	for path := range existing {
		if !seen[path] {
			toDelete = append(toDelete, path)
		}
	}
	if len(toDelete) > 0 {
		if err := o.store.DeleteFiles(ctx, repoID, toDelete); err != nil {
			return err
		}
	}

	if len(records) > 0 {
		if err := o.store.UpsertFiles(ctx, repoID, records); err != nil {
			return err
		}
	}
	return nil
}

// refreshVectors re-embeds every chunk and replaces the repository's
// vector collection wholesale: delete then upsert, the same
// transactional-replace shape applied to the vector store since Qdrant
// has no cross-collection transaction of its own.
func (o *Orchestrator) refreshVectors(ctx context.Context, repoID int64, chunks []core.Chunk) error {
	if err := o.vectorStore.DeleteByRepo(ctx, fmt.Sprintf("%d", repoID)); err != nil {
		return fmt.Errorf("clearing prior vectors: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	embedded, err := embedder.BatchEmbed(ctx, chunks, o.embedder, o.batchSize)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	points := embedder.PointsFromEmbedded(repoID, embedded)
	if err := embedder.UpsertInSubBatches(ctx, o.vectorStore, points); err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}
	return nil
}

// walkFiles returns every regular file under root as a path relative to
// root, pruning vendor/build directories before descending into them.
func walkFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if vendorDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
