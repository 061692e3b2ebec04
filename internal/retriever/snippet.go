package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	snippetTTL             = time.Hour
	snippetCacheCleanup    = 10 * time.Minute
	snippetMaxChars        = 500
	snippetTruncatedSuffix = "..."
	maxConcurrentFetches   = 10
)

// FileFetcher retrieves a whole file's content at a given commit, the
// single upstream call the snippet fetch falls back to on a cache miss.
type FileFetcher interface {
	GetFileContent(ctx context.Context, repo, commit, path string) (string, error)
}

// SnippetFetcher fills in SourceCandidate.Content from a 1-hour TTL cache
// keyed by (repo, commit, file_path, start_line, end_line), falling back
// to FileFetcher and slicing the requested lines on a miss.
type SnippetFetcher struct {
	Fetcher FileFetcher
	cache   *cache.Cache
}

// NewSnippetFetcher builds a SnippetFetcher with its own TTL cache.
func NewSnippetFetcher(fetcher FileFetcher) *SnippetFetcher {
	return &SnippetFetcher{
		Fetcher: fetcher,
		cache:   cache.New(snippetTTL, snippetCacheCleanup),
	}
}

func snippetCacheKey(repo, commit, path string, start, end int) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", repo, commit, path, start, end)
}

// FetchSnippet returns the file content sliced to [start, end] (1-indexed,
// inclusive), truncated to snippetMaxChars with an ellipsis, serving from
// cache when present.
func (s *SnippetFetcher) FetchSnippet(ctx context.Context, repo, commit, path string, start, end int) (string, error) {
	key := snippetCacheKey(repo, commit, path, start, end)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	content, err := s.Fetcher.GetFileContent(ctx, repo, commit, path)
	if err != nil {
		return "", fmt.Errorf("fetching %s@%s: %w", path, commit, err)
	}

	snippet := sliceLines(content, start, end)
	s.cache.Set(key, snippet, snippetTTL)
	return snippet, nil
}

func sliceLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	startIdx := start - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx > len(lines) {
		startIdx = len(lines)
	}
	endIdx := end
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}
	snippet := strings.Join(lines[startIdx:endIdx], "\n")
	if len(snippet) > snippetMaxChars {
		snippet = snippet[:snippetMaxChars] + snippetTruncatedSuffix
	}
	return snippet
}

// FillSnippets fetches every candidate's content concurrently, bounded to
// maxConcurrentFetches in flight at a time. A failed fetch does not fail
// the call: that candidate's Content is set to a "[could not fetch: ...]"
// note instead.
func (s *SnippetFetcher) FillSnippets(ctx context.Context, repo, commit string, candidates []SourceCandidate) ([]SourceCandidate, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i := range candidates {
		i := i
		g.Go(func() error {
			content, err := s.FetchSnippet(ctx, repo, commit, candidates[i].FilePath, candidates[i].StartLine, candidates[i].EndLine)
			if err != nil {
				candidates[i].Content = fmt.Sprintf("[could not fetch: %s]", err)
				return nil
			}
			candidates[i].Content = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}
