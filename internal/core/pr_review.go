package core

import "time"

// PRReviewVerdict is the programmatic approval status attached to a
// PRReview, surfaced to GitHub as a check-run conclusion.
type PRReviewVerdict string

const (
	VerdictApprove        PRReviewVerdict = "approve"
	VerdictRequestChanges PRReviewVerdict = "request_changes"
	VerdictComment        PRReviewVerdict = "comment"
)

// PRReview is the durable record of a scan run posted back to a pull
// request: one row per "/review" comment or automatic opened/synchronize
// event, distinct from the ScanRun it was generated from so that a single
// scan can be re-posted (or re-reviewed) without re-running analysis.
type PRReview struct {
	ID           int64
	ScanRunID    int64
	RepoFullName string
	PRNumber     int
	HeadSHA      string
	Verdict      PRReviewVerdict
	Summary      string
	CheckRunID   int64
	CommentID    int64
	CreatedAt    time.Time
}

// PRFinding links one Finding to the pull request it was posted against,
// tracking the GitHub review-comment id so a re-review can detect and skip
// findings already surfaced on an unchanged line.
type PRFinding struct {
	ID          int64
	PRReviewID  int64
	FindingID   int64
	FilePath    string
	LineNumber  int
	Body        string
	GithubID    int64 // GitHub's review-comment id, 0 until posted
	Resolved    bool
}
