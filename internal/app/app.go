// Package app initializes and orchestrates the main components of the
// repository analysis pipeline and answer engine.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"log/slog"

	"github.com/sevigo/coderadar/internal/analyzer"
	"github.com/sevigo/coderadar/internal/answer"
	"github.com/sevigo/coderadar/internal/cloner"
	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/db"
	"github.com/sevigo/coderadar/internal/embedder"
	"github.com/sevigo/coderadar/internal/github"
	"github.com/sevigo/coderadar/internal/indexorchestrator"
	"github.com/sevigo/coderadar/internal/jobs"
	"github.com/sevigo/coderadar/internal/parser"
	"github.com/sevigo/coderadar/internal/retriever"
	"github.com/sevigo/coderadar/internal/scanorchestrator"
	"github.com/sevigo/coderadar/internal/server"
	"github.com/sevigo/coderadar/internal/storage"
)

// App holds every initialized component the server and CLI entry points
// drive: storage, the job dispatcher behind the webhook/CLI, and the
// read-side retrieval/answer pipeline.
type App struct {
	Store      storage.Store
	Cfg        *config.Config
	Dispatcher core.JobDispatcher

	symbolSearch   retriever.SymbolSearch
	vectorSearch   *retriever.VectorSearcher
	snippetFetcher *retriever.SnippetFetcher
	generator      answer.LLM

	cloner           *cloner.Cloner
	parsers          *parser.Registry
	analyzers        *analyzer.Registry
	writeEmbedder    embedder.Embedder
	writeVectorStore embedder.VectorStore

	logger *slog.Logger
	server *server.Server
}

// newOllamaHTTPClient creates an HTTP client with longer timeouts for Ollama
// requests, which can take a while to process.
func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Minute}
}

// NewApp wires the full application: database and migrations, the
// checkout/parse/analyze pipeline behind a scan, the checkout/parse/embed
// pipeline behind an index build, the job dispatcher that runs both, and
// the retrieval components the answer engine reads through.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	logger.Info("initializing coderadar application",
		"llm_provider", cfg.AI.LLMProvider,
		"embedder_provider", cfg.AI.EmbedderProvider,
		"generator_model", cfg.AI.GeneratorModel,
		"embedder_model", cfg.AI.EmbedderModel,
		"max_workers", cfg.Server.MaxWorkers,
		"repo_path", cfg.Storage.RepoPath,
	)

	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { dbCleanup() }

	store := storage.NewStore(dbConn.DB)

	repoCloner, err := cloner.New(cfg.Storage.RepoPath, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initializing cloner: %w", err)
	}

	parserRegistry := parser.NewRegistry()
	analyzerRegistry := analyzer.NewRegistry()

	generatorModel, err := createGeneratorLLM(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	embedderBackend, err := createEmbedder(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	writeEmbedder := embedder.NewGoframeEmbedder(embedderBackend)
	writeVectorStore := embedder.NewQdrantVectorStore(cfg.Storage.QdrantHost, embedderBackend, logger)
	readVectorStore := storage.NewQdrantVectorStore(cfg.Storage.QdrantHost, embedderBackend, logger)

	scanJob := jobs.NewScanJob(cfg, repoCloner, parserRegistry, analyzerRegistry, store, logger)
	indexJob := jobs.NewIndexJob(cfg, repoCloner, parserRegistry, store, writeEmbedder, writeVectorStore, 0, logger)
	router := jobs.Router{ScanJob: scanJob, IndexJob: indexJob}
	dispatcher := jobs.NewDispatcher(router, cfg.Server.MaxWorkers, logger)

	ghClient := github.NewPATClient(ctx, cfg.GitHub.Token, logger)
	snippetFetcher := retriever.NewSnippetFetcher(&ghFileFetcher{client: ghClient})

	httpServer := server.NewServer(ctx, cfg, dispatcher, logger)

	logger.Info("coderadar application initialized successfully")
	return &App{
		Store:      store,
		Cfg:        cfg,
		Dispatcher: dispatcher,

		symbolSearch:   retriever.NewSQLSymbolSearch(dbConn.DB),
		vectorSearch:   &retriever.VectorSearcher{Store: readVectorStore},
		snippetFetcher: snippetFetcher,
		generator:      modelLLM{model: generatorModel},

		cloner:           repoCloner,
		parsers:          parserRegistry,
		analyzers:        analyzerRegistry,
		writeEmbedder:    writeEmbedder,
		writeVectorStore: writeVectorStore,

		logger: logger,
		server: httpServer,
	}, cleanup, nil
}

// Scan runs a full, synchronous scan against repoURL at ref and returns the
// persisted ScanRun and its Findings. It builds its own Orchestrator with a
// nil poster: a CLI-driven scan has no pull request to report back to.
func (a *App) Scan(ctx context.Context, repoURL string, repoID int64, ref string) (*core.ScanRun, []core.Finding, error) {
	orch := scanorchestrator.New(a.cloner, a.parsers, a.analyzers, a.Store, nil, a.logger)
	return orch.Run(ctx, &core.ScanRequest{RepoURL: repoURL, RepoID: repoID, Ref: ref, SkipVendor: true})
}

// IndexRepo runs a full, synchronous index build against repoURL at ref.
func (a *App) IndexRepo(ctx context.Context, repoID int64, repoURL, ref string) error {
	orch := indexorchestrator.New(a.cloner, a.parsers, a.Store, a.writeEmbedder, a.writeVectorStore, 0, a.logger)
	return orch.Run(ctx, repoID, repoURL, ref, "")
}

// ResolveRepository returns the repository record for owner/name,
// creating it if this is the first time the CLI has seen it.
func (a *App) ResolveRepository(ctx context.Context, owner, name, defaultBranch string) (*core.Repository, error) {
	return a.Store.GetOrCreateRepository(ctx, owner, name, defaultBranch, 0)
}

// Answer runs the full hybrid-retrieval + generation pipeline for one
// question against one repository: symbol search and vector search run
// concurrently in spirit (both are cheap, sequential here for simplicity),
// are merged and deduplicated, have their snippets filled in, and are
// finally handed to the generator with citation verification.
func (a *App) Answer(ctx context.Context, repoID int64, repoFullName, commitSHA, question string) (*core.Answer, error) {
	repoIDStr := fmt.Sprintf("%d", repoID)
	keywords := retriever.ExtractKeywords(question)

	trigram, err := a.symbolSearch.Search(ctx, repoIDStr, keywords, 0)
	if err != nil {
		return nil, fmt.Errorf("symbol search: %w", err)
	}
	vector, err := a.vectorSearch.VectorSearch(ctx, repoIDStr, question, 0)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	merged := retriever.Merge(trigram, vector, 0)
	filled, err := a.snippetFetcher.FillSnippets(ctx, repoFullName, commitSHA, merged)
	if err != nil {
		return nil, fmt.Errorf("filling snippets: %w", err)
	}

	ans, err := answer.GenerateAnswer(ctx, question, filled, a.generator)
	if err != nil {
		return nil, err
	}
	if saveErr := a.Store.SaveAnswer(ctx, repoID, ans); saveErr != nil {
		a.logger.WarnContext(ctx, "failed to persist answer", "error", saveErr)
	}
	return ans, nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting coderadar", "server_port", a.Cfg.Server.Port, "max_workers", a.Cfg.Server.MaxWorkers)
	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down coderadar services")
	a.Dispatcher.Stop()

	if a.server == nil {
		return nil
	}
	if err := a.server.Stop(); err != nil {
		a.logger.Error("error during HTTP server shutdown", "error", err)
		return err
	}
	a.logger.Info("coderadar stopped successfully")
	return nil
}

func createGeneratorLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	logger.Info("connecting to generator LLM", "model", cfg.AI.GeneratorModel)
	model, err := createLLM(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator LLM: %w", err)
	}
	return model, nil
}

func createLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.AI.LLMProvider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("ai.gemini_api_key is required for the gemini provider")
		}
		return gemini.New(ctx, gemini.WithModel(cfg.AI.GeneratorModel), gemini.WithAPIKey(cfg.AI.GeminiAPIKey))
	case "ollama":
		return ollama.New(
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.AI.GeneratorModel),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.AI.LLMProvider)
	}
}

func createEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	logger.Info("connecting to embedder", "provider", cfg.AI.EmbedderProvider, "model", cfg.AI.EmbedderModel)

	var embedderLLM embeddings.Embedder
	var err error
	switch cfg.AI.EmbedderProvider {
	case "gemini":
		embedderLLM, err = gemini.New(ctx, gemini.WithEmbeddingModel(cfg.AI.EmbedderModel), gemini.WithAPIKey(cfg.AI.GeminiAPIKey))
	case "ollama":
		embedderLLM, err = ollama.New(
			ollama.WithServerURL(cfg.AI.OllamaHost),
			ollama.WithModel(cfg.AI.EmbedderModel),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.AI.EmbedderProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder backend: %w", cfg.AI.EmbedderProvider, err)
	}

	emb, err := embeddings.NewEmbedder(embedderLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return emb, nil
}

// modelLLM adapts goframe's llms.Model (Call accepts variadic options) down
// to answer.LLM's narrower two-argument shape.
type modelLLM struct{ model llms.Model }

func (m modelLLM) Call(ctx context.Context, prompt string) (string, error) {
	return m.model.Call(ctx, prompt)
}

// ghFileFetcher adapts github.Client to retriever.FileFetcher, splitting
// the "owner/name" form the retrieval pipeline uses for a repository
// identity into the owner/repo pair the GitHub API expects.
type ghFileFetcher struct{ client github.Client }

func (f *ghFileFetcher) GetFileContent(ctx context.Context, repo, commit, path string) (string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return "", fmt.Errorf("repo %q is not in owner/name form", repo)
	}
	return f.client.GetFileContent(ctx, owner, name, commit, path)
}
