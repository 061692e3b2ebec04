package core

import "time"

// ScanStatus is the lifecycle state of a ScanRun.
type ScanStatus string

const (
	ScanQueued    ScanStatus = "queued"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanDegraded  ScanStatus = "degraded"
	ScanFailed    ScanStatus = "failed"
)

// DegradedFlag names a reason a ScanRun completed with reduced guarantees.
type DegradedFlag string

const (
	FlagTreeSitterUnavailable DegradedFlag = "tree_sitter_unavailable"
	FlagLowCoverage           DegradedFlag = "low_coverage"
	FlagParseErrors           DegradedFlag = "parse_errors"
)

// ScanRun is the immutable record of one scan attempt. Its identity is the
// triple (repo, commit_sha, config_hash): two scans sharing that triple
// collapse to the same run (see storage.Store.GetOrCreateScanRun).
type ScanRun struct {
	ID            int64
	RepositoryID  int64
	CommitSHA     string
	ConfigHash    string
	Status        ScanStatus
	DegradedFlags []DegradedFlag
	StartedAt     time.Time
	FinishedAt    *time.Time
	FailureReason string
}

// IsDegraded reports whether any degradation flag is set.
func (s *ScanRun) IsDegraded() bool {
	return len(s.DegradedFlags) > 0
}

// FileSnapshot captures one file's content identity within a ScanRun.
type FileSnapshot struct {
	ID          int64
	ScanRunID   int64
	Path        string
	Language    string
	ContentHash string // SHA-256(content)
	SizeBytes   int64
	IsBinary    bool
}

// ScanRequest is the external input that kicks off a scan.
type ScanRequest struct {
	RepoURL         string
	RepoID          int64
	Ref             string
	Region          string
	Sector          string
	AnalyzersEnable []string
	MaxFiles        int
	SkipVendor      bool
	DiffLines       map[string]map[int]struct{} // set by the PR-review path only
	InstallationID  int64
	Token           string
	Event           *GitHubEvent // set by the PR-review path only, consulted to post a review back to GitHub
}
