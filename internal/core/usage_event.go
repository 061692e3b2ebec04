package core

import "time"

// UsageEventType enumerates the billable operations the pipeline performs.
type UsageEventType string

const (
	UsageRepoIndexed    UsageEventType = "repo_indexed"
	UsageQuestionAsked  UsageEventType = "question_asked"
	UsagePRReviewed     UsageEventType = "pr_reviewed"
	UsageSnippetFetched UsageEventType = "snippet_fetched"
)

// UsageEvent records one metered operation for cost tracking and
// rate-limiting, independent of the operation's own result row.
type UsageEvent struct {
	ID                 int64
	RepositoryID       int64 // 0 when the event isn't repo-scoped
	EventType          UsageEventType
	EmbeddingTokens    int
	InputTokens        int
	OutputTokens       int
	EstimatedCostMicro int64 // hundredths of a cent
	Metadata           map[string]string
	CreatedAt          time.Time
}
