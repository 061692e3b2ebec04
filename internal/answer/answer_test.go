package answer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/retriever"
)

type fakeLLM struct {
	responses []string
	calls     int
}

func (f *fakeLLM) Call(_ context.Context, _ string) (string, error) {
	resp := f.responses[f.calls]
	if f.calls < len(f.responses)-1 {
		f.calls++
	}
	return resp, nil
}

func twoSources() []retriever.SourceCandidate {
	return []retriever.SourceCandidate{
		{Index: 1, FilePath: "a.go", StartLine: 1, EndLine: 5, Content: "func Foo() { return 1 }", Score: 0.8},
		{Index: 2, FilePath: "b.go", StartLine: 1, EndLine: 5, Content: "func Bar() { return 2 }", Score: 0.6},
	}
}

func TestGenerateAnswerAcceptsSectionWithVerifiedQuote(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"sections":[{"text":"Foo returns 1.","source_ids":[1],"quoted_spans":[{"source_id":1,"quote":"func Foo() { return 1 }"}]}],"unknowns":[]}`,
	}}

	a, err := GenerateAnswer(context.Background(), "what does Foo do", twoSources(), llm)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.True(t, a.Sections[0].QuotedSpans[0].Verified)
	assert.True(t, a.ValidationPassed)
	assert.NotEqual(t, core.TierNone, a.ConfidenceTier)
	require.Len(t, a.Citations, 1)
	assert.Equal(t, "a.go", a.Citations[0].FilePath)
}

func TestGenerateAnswerRejectsSectionWithUnverifiableQuote(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"sections":[{"text":"Foo does X.","source_ids":[1],"quoted_spans":[{"source_id":1,"quote":"this text is not in the source"}]}],"unknowns":[]}`,
	}}

	a, err := GenerateAnswer(context.Background(), "what does Foo do", twoSources(), llm)
	require.NoError(t, err)
	assert.Empty(t, a.Sections)
	assert.Equal(t, core.TierNone, a.ConfidenceTier)
	assert.False(t, a.ValidationPassed)
	assert.NotEmpty(t, a.ValidationErrors)
}

func TestGenerateAnswerKeepsUnverifiedSectionWithNoQuotes(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"sections":[{"text":"Foo exists somewhere.","source_ids":[1],"quoted_spans":[]}],"unknowns":[]}`,
	}}

	a, err := GenerateAnswer(context.Background(), "what does Foo do", twoSources(), llm)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.True(t, a.Sections[0].Unverified)
}

func TestGenerateAnswerRetriesOnceOnUnparsableResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"not json the first time",
		`{"sections":[{"text":"Foo returns 1.","source_ids":[1],"quoted_spans":[{"source_id":1,"quote":"func Foo() { return 1 }"}]}],"unknowns":[]}`,
	}}

	a, err := GenerateAnswer(context.Background(), "what does Foo do", twoSources(), llm)
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls+1)
	require.Len(t, a.Sections, 1)
}

func TestGenerateAnswerDegradesWhenBothAttemptsUnparsable(t *testing.T) {
	llm := &fakeLLM{responses: []string{"garbage one", "garbage two"}}

	a, err := GenerateAnswer(context.Background(), "what does Foo do", twoSources(), llm)
	require.NoError(t, err)
	assert.Equal(t, core.TierNone, a.ConfidenceTier)
	assert.False(t, a.ValidationPassed)
	require.Len(t, a.Sections, 1)
	assert.True(t, a.Sections[0].Unverified)
	require.Len(t, a.Citations, 2)
}

func TestGenerateAnswerWithNoSourcesIsDegradedWithoutCallingLLM(t *testing.T) {
	llm := &fakeLLM{}
	a, err := GenerateAnswer(context.Background(), "anything", nil, llm)
	require.NoError(t, err)
	assert.Equal(t, core.TierNone, a.ConfidenceTier)
	assert.Equal(t, 0, llm.calls)
	require.Len(t, a.Unknowns, 1)
	assert.Equal(t, "anything", a.Unknowns[0])
}
