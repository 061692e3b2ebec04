package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

func TestChunkSkipsSymbolsWithoutBodyOrDocstring(t *testing.T) {
	symbols := []core.Symbol{
		{Kind: core.SymbolFunction, Name: "empty", QualifiedName: "pkg.empty", FilePath: "pkg.go"},
		{Kind: core.SymbolConstant, Name: "MaxSize", QualifiedName: "pkg.MaxSize", FilePath: "pkg.go", Body: "100"},
	}

	chunks := Chunk(symbols, nil)
	assert.Empty(t, chunks)
}

func TestChunkBuildsContentWithMarkers(t *testing.T) {
	symbols := []core.Symbol{
		{
			Kind:          core.SymbolMethod,
			Name:          "Greet",
			QualifiedName: "Greeter.Greet",
			FilePath:      "greeter.go",
			Parent:        "Greeter",
			Signature:     "func (g *Greeter) Greet() string",
			Docstring:     "Greet returns a greeting.",
			Body:          "return \"hello\"",
			LineStart:     10,
			LineEnd:       12,
		},
	}

	chunks := Chunk(symbols, nil)
	require.Len(t, chunks, 1)
	c := chunks[0]

	assert.Contains(t, c.Content, "file: greeter.go")
	assert.Contains(t, c.Content, "parent: Greeter")
	assert.Contains(t, c.Content, "func (g *Greeter) Greet() string")
	assert.Contains(t, c.Content, "Greet returns a greeting.")
	assert.Contains(t, c.Content, "return \"hello\"")
	assert.NotEmpty(t, c.ID)
}

func TestChunkTruncatesLongBody(t *testing.T) {
	longBody := strings.Repeat("x", 3000)
	symbols := []core.Symbol{
		{Kind: core.SymbolFunction, Name: "big", QualifiedName: "pkg.big", FilePath: "pkg.go", Body: longBody},
	}

	chunks := Chunk(symbols, nil)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "[truncated]")
	assert.Less(t, len(chunks[0].Content), len(longBody))
}

func TestChunkIDStableForSameFileAndSymbol(t *testing.T) {
	a := core.Symbol{Kind: core.SymbolFunction, Name: "f", QualifiedName: "pkg.f", FilePath: "pkg.go", Body: "x"}
	b := a

	chunksA := Chunk([]core.Symbol{a}, nil)
	chunksB := Chunk([]core.Symbol{b}, nil)
	require.Len(t, chunksA, 1)
	require.Len(t, chunksB, 1)
	assert.Equal(t, chunksA[0].ID, chunksB[0].ID)
}
