package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/coderadar/internal/core"
)

var (
	// ErrNotFound is returned when a requested record is not found in the database.
	ErrNotFound = errors.New("record not found")
)

// Repository is the persistence-shaped record backing core.Repository: the
// durable identity under which scans, indexes, and answers are grouped.
type Repository struct {
	ID             int64     `json:"id" db:"id"`
	Owner          string    `json:"owner" db:"owner"`
	Name           string    `json:"name" db:"name"`
	FullName       string    `json:"full_name" db:"full_name"`
	DefaultBranch  string    `json:"default_branch" db:"default_branch"`
	InstallationID int64     `json:"installation_id" db:"installation_id"`
	IndexStatus    string    `json:"index_status" db:"index_status"`
	LastIndexedSHA string    `json:"last_indexed_sha" db:"last_indexed_sha"`
	FileCount      int       `json:"file_count" db:"file_count"`
	SymbolCount    int       `json:"symbol_count" db:"symbol_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (r *Repository) toCore() *core.Repository {
	return &core.Repository{
		ID:             r.ID,
		Owner:          r.Owner,
		Name:           r.Name,
		DefaultBranch:  r.DefaultBranch,
		InstallationID: r.InstallationID,
		IndexStatus:    core.IndexStatus(r.IndexStatus),
		LastIndexedSHA: r.LastIndexedSHA,
		FileCount:      r.FileCount,
		SymbolCount:    r.SymbolCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// FileRecord represents a tracked file in a repository.
type FileRecord struct {
	ID            int64     `db:"id"`
	RepositoryID  int64     `db:"repository_id"`
	FilePath      string    `db:"file_path"`
	FileHash      string    `db:"file_hash"`
	LastIndexedAt time.Time `db:"last_indexed_at"`
}

// ScanState represents the state of a scan process, polled by the terminal
// UI / CLI status command while a scan is running.
type ScanState struct {
	ID           int64            `db:"id"`
	RepositoryID int64            `db:"repository_id"`
	Status       string           `db:"status"`
	Progress     json.RawMessage  `db:"progress"`
	Artifacts    *json.RawMessage `db:"artifacts"`
	CreatedAt    time.Time        `db:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"`
}

// scanRunRow is the persistence-shaped record backing core.ScanRun.
type scanRunRow struct {
	ID            int64          `db:"id"`
	RepositoryID  int64          `db:"repository_id"`
	CommitSHA     string         `db:"commit_sha"`
	ConfigHash    string         `db:"config_hash"`
	Status        string         `db:"status"`
	DegradedFlags pq.StringArray `db:"degraded_flags"`
	StartedAt     time.Time      `db:"started_at"`
	FinishedAt    sql.NullTime   `db:"finished_at"`
	FailureReason string         `db:"failure_reason"`
}

func (r *scanRunRow) toCore() *core.ScanRun {
	run := &core.ScanRun{
		ID:            r.ID,
		RepositoryID:  r.RepositoryID,
		CommitSHA:     r.CommitSHA,
		ConfigHash:    r.ConfigHash,
		Status:        core.ScanStatus(r.Status),
		StartedAt:     r.StartedAt,
		FailureReason: r.FailureReason,
	}
	for _, f := range r.DegradedFlags {
		run.DegradedFlags = append(run.DegradedFlags, core.DegradedFlag(f))
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time
		run.FinishedAt = &t
	}
	return run
}

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks github.com/sevigo/coderadar/internal/storage Store
type Store interface {
	// Repositories
	GetOrCreateRepository(ctx context.Context, owner, name, defaultBranch string, installationID int64) (*core.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (*Repository, error)
	GetRepositoryByID(ctx context.Context, id int64) (*core.Repository, error)
	UpdateRepositoryIndexState(ctx context.Context, repoID int64, status core.IndexStatus, lastIndexedSHA string, fileCount, symbolCount int) error
	GetAllRepositories(ctx context.Context) ([]*Repository, error)

	// PR review bookkeeping (supplemental entities, see DESIGN.md)
	SavePRReview(ctx context.Context, review *core.PRReview) error
	GetLatestPRReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.PRReview, error)
	GetAllPRReviewsForPR(ctx context.Context, repoFullName string, prNumber int) ([]*core.PRReview, error)

	// File tracking (used by the index orchestrator's transactional replace)
	GetFilesForRepo(ctx context.Context, repoID int64) (map[string]FileRecord, error)
	UpsertFiles(ctx context.Context, repoID int64, files []FileRecord) error
	DeleteFiles(ctx context.Context, repoID int64, paths []string) error

	// Scan State (polled progress for the CLI/terminal UI)
	GetScanState(ctx context.Context, repoID int64) (*ScanState, error)
	UpsertScanState(ctx context.Context, state *ScanState) error

	// ScanRun / Finding persistence (scan orchestrator, C11)
	GetOrCreateScanRun(ctx context.Context, repoID int64, commitSHA, configHash string) (*core.ScanRun, error)
	UpdateScanRunStatus(ctx context.Context, scanRunID int64, status core.ScanStatus, degradedFlags []core.DegradedFlag, failureReason string) error
	SaveFileSnapshots(ctx context.Context, snapshots []core.FileSnapshot) error
	SaveCoverageSummary(ctx context.Context, summary core.CoverageSummary) error
	SaveFindings(ctx context.Context, scanRunID int64, findings []core.Finding) error

	// Answer persistence (C10/C11 query surface)
	SaveAnswer(ctx context.Context, repoID int64, answer *core.Answer) error

	// Symbol persistence (index orchestrator, C12): a full transactional
	// replace per repository, since an index build re-derives the whole
	// symbol table rather than diffing it incrementally.
	ReplaceSymbols(ctx context.Context, repoID int64, symbols []core.Symbol) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// GetOrCreateRepository returns the Repository identified by (owner, name),
// creating it in IndexPending state if it doesn't exist yet.
func (s *postgresStore) GetOrCreateRepository(ctx context.Context, owner, name, defaultBranch string, installationID int64) (*core.Repository, error) {
	fullName := owner + "/" + name
	existing, err := s.GetRepositoryByFullName(ctx, fullName)
	if err == nil {
		return existing.toCore(), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO repositories (owner, name, full_name, default_branch, installation_id, index_status)
		VALUES (:owner, :name, :full_name, :default_branch, :installation_id, :index_status)
		RETURNING id, created_at, updated_at`
	row := &Repository{
		Owner:          owner,
		Name:           name,
		FullName:       fullName,
		DefaultBranch:  defaultBranch,
		InstallationID: installationID,
		IndexStatus:    string(core.IndexPending),
	}
	stmt, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for creating repository: %w", err)
	}
	defer stmt.Close()
	if err := stmt.QueryRowContext(ctx, row).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create repository %q: %w", fullName, err)
	}
	return row.toCore(), nil
}

// GetRepositoryByFullName retrieves a repository by its full name.
func (s *postgresStore) GetRepositoryByFullName(ctx context.Context, fullName string) (*Repository, error) {
	query := `
SELECT id, owner, name, full_name, default_branch, installation_id, index_status, last_indexed_sha, file_count, symbol_count, created_at, updated_at
FROM repositories
WHERE full_name = $1`
	var repo Repository
	err := s.db.GetContext(ctx, &repo, query, fullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get repository by full name %s: %w", fullName, err)
	}
	return &repo, nil
}

// GetRepositoryByID retrieves a repository by its primary key.
func (s *postgresStore) GetRepositoryByID(ctx context.Context, id int64) (*core.Repository, error) {
	query := `
SELECT id, owner, name, full_name, default_branch, installation_id, index_status, last_indexed_sha, file_count, symbol_count, created_at, updated_at
FROM repositories
WHERE id = $1`
	var repo Repository
	err := s.db.GetContext(ctx, &repo, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get repository %d: %w", id, err)
	}
	return repo.toCore(), nil
}

// UpdateRepositoryIndexState transitions a repository's index lifecycle,
// called by the index orchestrator at the start and end of each run.
func (s *postgresStore) UpdateRepositoryIndexState(ctx context.Context, repoID int64, status core.IndexStatus, lastIndexedSHA string, fileCount, symbolCount int) error {
	query := `
		UPDATE repositories
		SET index_status = $1, last_indexed_sha = $2, file_count = $3, symbol_count = $4, updated_at = NOW()
		WHERE id = $5`
	_, err := s.db.ExecContext(ctx, query, string(status), lastIndexedSHA, fileCount, symbolCount, repoID)
	if err != nil {
		return fmt.Errorf("failed to update index state for repository %d: %w", repoID, err)
	}
	return nil
}

// GetAllRepositories retrieves all repositories from the database.
func (s *postgresStore) GetAllRepositories(ctx context.Context) ([]*Repository, error) {
	query := `
		SELECT id, owner, name, full_name, default_branch, installation_id, index_status, last_indexed_sha, file_count, symbol_count, created_at, updated_at
		FROM repositories
		ORDER BY full_name ASC`

	var repos []*Repository
	err := s.db.SelectContext(ctx, &repos, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve all repositories: %w", err)
	}
	return repos, nil
}

// SavePRReview inserts a new PR review record into the database.
func (s *postgresStore) SavePRReview(ctx context.Context, review *core.PRReview) error {
	query := `
		INSERT INTO pr_reviews (scan_run_id, repo_full_name, pr_number, head_sha, verdict, summary, check_run_id, comment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	row := s.db.QueryRowContext(ctx, query, review.ScanRunID, review.RepoFullName, review.PRNumber, review.HeadSHA, string(review.Verdict), review.Summary, review.CheckRunID, review.CommentID)
	return row.Scan(&review.ID, &review.CreatedAt)
}

// GetLatestPRReviewForPR retrieves the most recent review for a given pull request.
func (s *postgresStore) GetLatestPRReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.PRReview, error) {
	query := `
		SELECT id, scan_run_id, repo_full_name, pr_number, head_sha, verdict, summary, check_run_id, comment_id, created_at
		FROM pr_reviews
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, repoFullName, prNumber)

	var r core.PRReview
	var verdict string
	err := row.Scan(&r.ID, &r.ScanRunID, &r.RepoFullName, &r.PRNumber, &r.HeadSHA, &verdict, &r.Summary, &r.CheckRunID, &r.CommentID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Verdict = core.PRReviewVerdict(verdict)
	return &r, nil
}

// GetAllPRReviewsForPR retrieves all reviews for a specific pull request.
func (s *postgresStore) GetAllPRReviewsForPR(ctx context.Context, repoFullName string, prNumber int) ([]*core.PRReview, error) {
	query := `
		SELECT id, scan_run_id, repo_full_name, pr_number, head_sha, verdict, summary, check_run_id, comment_id, created_at
		FROM pr_reviews
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, repoFullName, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve all pr reviews for %q PR %d: %w", repoFullName, prNumber, err)
	}
	defer rows.Close()

	var reviews []*core.PRReview
	for rows.Next() {
		var r core.PRReview
		var verdict string
		if err := rows.Scan(&r.ID, &r.ScanRunID, &r.RepoFullName, &r.PRNumber, &r.HeadSHA, &verdict, &r.Summary, &r.CheckRunID, &r.CommentID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Verdict = core.PRReviewVerdict(verdict)
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// GetFilesForRepo returns a map of file_path -> FileRecord for a repository.
func (s *postgresStore) GetFilesForRepo(ctx context.Context, repoID int64) (map[string]FileRecord, error) {
	query := `SELECT id, repository_id, file_path, file_hash, last_indexed_at FROM repository_files WHERE repository_id = $1`
	rows, err := s.db.QueryxContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for repo %d: %w", repoID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close rows in GetFilesForRepo", "error", err)
		}
	}()

	files := make(map[string]FileRecord)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var record FileRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, err
		}
		files[record.FilePath] = record
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return files, nil
}

// UpsertFiles updates or inserts file tracking records in bulk.
func (s *postgresStore) UpsertFiles(ctx context.Context, repoID int64, files []FileRecord) error {
	if len(files) == 0 {
		return nil
	}

	const batchSize = 1000
	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		if err := s.upsertFilesBatch(ctx, repoID, batch); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (s *postgresStore) upsertFilesBatch(ctx context.Context, repoID int64, files []FileRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in UpsertFiles", "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO repository_files (repository_id, file_path, file_hash, last_indexed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (repository_id, file_path)
		DO UPDATE SET file_hash = EXCLUDED.file_hash, last_indexed_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert stmt: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, repoID, f.FilePath, f.FileHash); err != nil {
			return fmt.Errorf("failed to upsert file %s: %w", f.FilePath, err)
		}
	}

	return tx.Commit()
}

// DeleteFiles removes file tracking records.
func (s *postgresStore) DeleteFiles(ctx context.Context, repoID int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	const batchSize = 1000
	for i := 0; i < len(paths); i += batchSize {
		end := i + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[i:end]

		query, args, err := sqlx.In("DELETE FROM repository_files WHERE repository_id = ? AND file_path IN (?)", repoID, batch)
		if err != nil {
			return fmt.Errorf("failed to build delete query: %w", err)
		}
		query = s.db.Rebind(query)

		_, err = s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete files batch for repo %d: %w", repoID, err)
		}
	}
	return nil
}

// GetScanState retrieves the scan state for a repository.
func (s *postgresStore) GetScanState(ctx context.Context, repoID int64) (*ScanState, error) {
	query := `SELECT id, repository_id, status, progress, artifacts, created_at, updated_at FROM scan_state WHERE repository_id = $1`
	var state ScanState
	err := s.db.GetContext(ctx, &state, query, repoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan state for repo %d: %w", repoID, err)
	}
	return &state, nil
}

// UpsertScanState updates or inserts a scan state record.
func (s *postgresStore) UpsertScanState(ctx context.Context, state *ScanState) error {
	query := `
		INSERT INTO scan_state (repository_id, status, progress, artifacts, updated_at)
		VALUES (:repository_id, :status, :progress, :artifacts, NOW())
		ON CONFLICT (repository_id)
		DO UPDATE SET status = EXCLUDED.status, progress = EXCLUDED.progress, artifacts = EXCLUDED.artifacts, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, state)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			slog.Error("postgres error during upsert scan state", "code", pqErr.Code, "message", pqErr.Message)
		}
		return fmt.Errorf("failed to upsert scan state for repo %d: %w", state.RepositoryID, err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&state.ID, &state.CreatedAt, &state.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan returned id/dates: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	return nil
}

// GetOrCreateScanRun returns the ScanRun identified by the (repo, commit,
// config_hash) triple, creating a fresh queued run if none exists yet.
func (s *postgresStore) GetOrCreateScanRun(ctx context.Context, repoID int64, commitSHA, configHash string) (*core.ScanRun, error) {
	var existing scanRunRow
	err := s.db.GetContext(ctx, &existing, `
		SELECT id, repository_id, commit_sha, config_hash, status, degraded_flags, started_at, finished_at, failure_reason
		FROM scan_runs WHERE repository_id = $1 AND commit_sha = $2 AND config_hash = $3`,
		repoID, commitSHA, configHash)
	if err == nil {
		return existing.toCore(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up scan run: %w", err)
	}

	var row scanRunRow
	insertErr := s.db.GetContext(ctx, &row, `
		INSERT INTO scan_runs (repository_id, commit_sha, config_hash, status, started_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, repository_id, commit_sha, config_hash, status, degraded_flags, started_at, finished_at, failure_reason`,
		repoID, commitSHA, configHash, string(core.ScanQueued))
	if insertErr != nil {
		return nil, fmt.Errorf("failed to create scan run: %w", insertErr)
	}
	return row.toCore(), nil
}

// UpdateScanRunStatus transitions a ScanRun to a terminal (or running)
// status, recording any degradation flags and failure reason.
func (s *postgresStore) UpdateScanRunStatus(ctx context.Context, scanRunID int64, status core.ScanStatus, degradedFlags []core.DegradedFlag, failureReason string) error {
	flags := make(pq.StringArray, len(degradedFlags))
	for i, f := range degradedFlags {
		flags[i] = string(f)
	}
	finished := interface{}(nil)
	if status == core.ScanCompleted || status == core.ScanDegraded || status == core.ScanFailed {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = $1, degraded_flags = $2, failure_reason = $3, finished_at = $4 WHERE id = $5`,
		string(status), flags, failureReason, finished, scanRunID)
	if err != nil {
		return fmt.Errorf("failed to update scan run %d status: %w", scanRunID, err)
	}
	return nil
}

// SaveFileSnapshots bulk-inserts the per-file content identities recorded
// during a scan run.
func (s *postgresStore) SaveFileSnapshots(ctx context.Context, snapshots []core.FileSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in SaveFileSnapshots", "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_snapshots (scan_run_id, path, language, content_hash, size_bytes, is_binary)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare file snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		if _, err := stmt.ExecContext(ctx, snap.ScanRunID, snap.Path, snap.Language, snap.ContentHash, snap.SizeBytes, snap.IsBinary); err != nil {
			return fmt.Errorf("failed to insert file snapshot %s: %w", snap.Path, err)
		}
	}
	return tx.Commit()
}

// SaveCoverageSummary persists the one-per-scan accounting row.
func (s *postgresStore) SaveCoverageSummary(ctx context.Context, summary core.CoverageSummary) error {
	skipped, err := json.Marshal(summary.SkippedByReason)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped-by-reason: %w", err)
	}
	failed, err := json.Marshal(summary.Failed)
	if err != nil {
		return fmt.Errorf("failed to marshal parse failures: %w", err)
	}
	perLang, err := json.Marshal(summary.PerLanguageCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal per-language counts: %w", err)
	}
	analyzerRan, err := json.Marshal(summary.AnalyzerRan)
	if err != nil {
		return fmt.Errorf("failed to marshal analyzer-ran list: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO coverage_summaries (scan_run_id, discovered_count, parsed_count, skipped_by_reason, failed, per_language_counts, analyzer_ran, coverage_percent, incomplete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (scan_run_id) DO UPDATE SET
			discovered_count = EXCLUDED.discovered_count,
			parsed_count = EXCLUDED.parsed_count,
			skipped_by_reason = EXCLUDED.skipped_by_reason,
			failed = EXCLUDED.failed,
			per_language_counts = EXCLUDED.per_language_counts,
			analyzer_ran = EXCLUDED.analyzer_ran,
			coverage_percent = EXCLUDED.coverage_percent,
			incomplete = EXCLUDED.incomplete`,
		summary.ScanRunID, summary.DiscoveredCount, summary.ParsedCount, skipped, failed, perLang, analyzerRan, summary.CoveragePercent, summary.Incomplete)
	if err != nil {
		return fmt.Errorf("failed to save coverage summary for scan run %d: %w", summary.ScanRunID, err)
	}
	return nil
}

// SaveFindings persists a scan run's deduplicated Findings, each with its
// instances, inside a single transaction.
func (s *postgresStore) SaveFindings(ctx context.Context, scanRunID int64, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in SaveFindings", "error", err)
		}
	}()

	findingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (scan_run_id, rule_id, category, title, description, severity, confidence, confidence_rationale, tags, dedupe_key, remediation_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer findingStmt.Close()

	instanceStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO finding_instances (finding_id, file_path, start_line, end_line, snippet, snippet_hash, symbol_qn, trace_qns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding instance insert: %w", err)
	}
	defer instanceStmt.Close()

	for i := range findings {
		f := &findings[i]
		var findingID int64
		err := findingStmt.QueryRowContext(ctx, scanRunID, f.RuleID, f.Category, f.Title, f.Description,
			string(f.Severity), string(f.Confidence), pq.StringArray(f.ConfidenceRationale), pq.StringArray(f.Tags), f.DedupeKey, f.RemediationSummary,
		).Scan(&findingID)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.DedupeKey, err)
		}
		f.ID = findingID

		for _, inst := range f.Instances {
			if _, err := instanceStmt.ExecContext(ctx, findingID, inst.Evidence.FilePath, inst.Evidence.StartLine, inst.Evidence.EndLine,
				inst.Evidence.SnippetText, inst.Evidence.SnippetHash, inst.SymbolQN, pq.StringArray(inst.TraceQNs)); err != nil {
				return fmt.Errorf("failed to insert finding instance for %s: %w", f.DedupeKey, err)
			}
		}
	}

	return tx.Commit()
}

// ReplaceSymbols deletes every symbol row for repoID and re-inserts
// symbols in one transaction, including a denormalized search_text column
// the pg_trgm indexes target alongside name/qualified_name.
func (s *postgresStore) ReplaceSymbols(ctx context.Context, repoID int64, symbols []core.Symbol) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in ReplaceSymbols", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE repository_id = $1`, repoID); err != nil {
		return fmt.Errorf("failed to clear existing symbols: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (repository_id, kind, name, qualified_name, file_path, start_line, end_line, signature, parent, visibility, search_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("failed to prepare symbol insert: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		searchText := sym.Name + " " + sym.QualifiedName + " " + sym.Signature
		if _, err := stmt.ExecContext(ctx, repoID, string(sym.Kind), sym.Name, sym.QualifiedName, sym.FilePath,
			sym.LineStart, sym.LineEnd, sym.Signature, sym.Parent, string(sym.Visibility), searchText); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", sym.QualifiedName, err)
		}
	}

	return tx.Commit()
}

// SaveAnswer persists a proof-carrying answer and its citations.
func (s *postgresStore) SaveAnswer(ctx context.Context, repoID int64, answer *core.Answer) error {
	sections, err := json.Marshal(answer.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal answer sections: %w", err)
	}
	unknowns, err := json.Marshal(answer.Unknowns)
	if err != nil {
		return fmt.Errorf("failed to marshal answer unknowns: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in SaveAnswer", "error", err)
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO answers (repository_id, question, sections, unknowns, confidence_tier, validation_passed, validation_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		repoID, answer.Question, sections, unknowns, string(answer.ConfidenceTier), answer.ValidationPassed, pq.StringArray(answer.ValidationErrors),
	).Scan(&answer.ID)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	citationStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO citations (answer_id, source_index, file_path, start_line, end_line, snippet, symbol_name, github_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare citation insert: %w", err)
	}
	defer citationStmt.Close()

	for _, c := range answer.Citations {
		if _, err := citationStmt.ExecContext(ctx, answer.ID, c.SourceIndex, c.FilePath, c.StartLine, c.EndLine, c.Snippet, c.SymbolName, c.GithubURL); err != nil {
			return fmt.Errorf("failed to insert citation for source %d: %w", c.SourceIndex, err)
		}
	}

	return tx.Commit()
}
