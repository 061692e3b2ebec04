package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONDirect(t *testing.T) {
	raw := `{"sections":[{"text":"x","source_ids":[1],"quoted_spans":[{"source_id":1,"quote":"foo"}]}],"unknowns":[]}`
	a, err := ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.Equal(t, "x", a.Sections[0].Text)
	assert.Equal(t, []int{1}, a.Sections[0].SourceIDs)
	assert.Equal(t, "foo", a.Sections[0].QuotedSpans[0].Quote)
}

func TestParseJSONFromMarkdownFence(t *testing.T) {
	raw := "Here is the answer:\n```json\n{\"sections\":[{\"text\":\"y\",\"source_ids\":[2],\"quoted_spans\":[]}]}\n```\nThanks"
	a, err := ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.Equal(t, "y", a.Sections[0].Text)
}

func TestParseJSONGreedyLargestObject(t *testing.T) {
	raw := `some preamble { "sections": [{"text": "z", "source_ids": [1], "quoted_spans": []}] } trailing junk`
	a, err := ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
}

func TestParseJSONRepairsTrailingCommaAndBareKeys(t *testing.T) {
	raw := `{sections: [{text: "w", source_ids: [1], quoted_spans: [],},],}`
	a, err := ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.Equal(t, "w", a.Sections[0].Text)
}

func TestParseJSONWalksToLastBalancedObjectWhenTruncated(t *testing.T) {
	raw := `{"sections":[{"text":"v","source_ids":[1],"quoted_spans":[]}]} {"truncated": {"x": 1}`
	a, err := ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, a.Sections, 1)
	assert.Equal(t, "v", a.Sections[0].Text)
}

func TestParseJSONFailsOnGarbage(t *testing.T) {
	_, err := ParseJSON("not json at all, just words")
	assert.Error(t, err)
}

func TestRepairJSONSwapsQuotesOnlyWhenNoDoubleQuotesPresent(t *testing.T) {
	repaired, changed := RepairJSON(`{'a': 'b'}`)
	assert.True(t, changed)
	assert.Contains(t, repaired, `"a"`)

	untouched, changed := RepairJSON(`{"a": "it's fine"}`)
	assert.False(t, changed)
	assert.Equal(t, `{"a": "it's fine"}`, untouched)
}
