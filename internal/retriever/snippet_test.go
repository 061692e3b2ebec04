package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileFetcher struct {
	calls   int
	content string
	err     error
}

func (f *fakeFileFetcher) GetFileContent(_ context.Context, _, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func TestFetchSnippetSlicesRequestedLines(t *testing.T) {
	fetcher := &fakeFileFetcher{content: "line1\nline2\nline3\nline4\nline5"}
	s := NewSnippetFetcher(fetcher)

	snippet, err := s.FetchSnippet(context.Background(), "owner/repo", "sha", "f.go", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "line2\nline3\nline4", snippet)
}

func TestFetchSnippetTruncatesLongContent(t *testing.T) {
	fetcher := &fakeFileFetcher{content: strings.Repeat("x", 1000)}
	s := NewSnippetFetcher(fetcher)

	snippet, err := s.FetchSnippet(context.Background(), "owner/repo", "sha", "f.go", 1, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Len(t, snippet, snippetMaxChars+len(snippetTruncatedSuffix))
}

func TestFetchSnippetServesFromCacheOnSecondCall(t *testing.T) {
	fetcher := &fakeFileFetcher{content: "a\nb\nc"}
	s := NewSnippetFetcher(fetcher)

	_, err := s.FetchSnippet(context.Background(), "owner/repo", "sha", "f.go", 1, 2)
	require.NoError(t, err)
	_, err = s.FetchSnippet(context.Background(), "owner/repo", "sha", "f.go", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestFillSnippetsRecordsFetchFailureInline(t *testing.T) {
	fetcher := &fakeFileFetcher{err: errors.New("not found")}
	s := NewSnippetFetcher(fetcher)
	candidates := []SourceCandidate{{FilePath: "f.go", StartLine: 1, EndLine: 2}}

	out, err := s.FillSnippets(context.Background(), "owner/repo", "sha", candidates)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "could not fetch")
}
