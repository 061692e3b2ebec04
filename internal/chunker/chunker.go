// Package chunker turns parsed symbols into the retrieval-ready text units
// the embedder sends to a vector store.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
)

// bodyTruncateLimit is the body length (in characters) beyond which chunk
// content is truncated with an elided marker.
const bodyTruncateLimit = 2000

const elidedMarker = "\n... [truncated]"

const previewLength = 240

// Chunk builds one core.Chunk per indexable symbol (class, function,
// method) whose body or docstring is non-empty. Symbols produced by a
// fallback parser never carry a body, so they only produce a chunk when
// their docstring is non-empty too — most fallback symbols produce no
// chunk at all, which is expected: retrieval quality over a file this
// system can't parse an AST for is necessarily weaker.
func Chunk(symbols []core.Symbol, fileContents map[string][]byte) []core.Chunk {
	var out []core.Chunk
	for _, sym := range symbols {
		if sym.Kind != core.SymbolClass && sym.Kind != core.SymbolFunction && sym.Kind != core.SymbolMethod {
			continue
		}
		if sym.Body == "" && sym.Docstring == "" {
			continue
		}

		content := buildChunkContent(sym)
		out = append(out, core.Chunk{
			ID:             chunkID(sym.FilePath, sym.QualifiedName),
			FilePath:       sym.FilePath,
			LineStart:      sym.LineStart,
			LineEnd:        sym.LineEnd,
			SymbolName:     sym.Name,
			SymbolType:     sym.Kind,
			ParentSymbol:   sym.Parent,
			Content:        content,
			ContentPreview: preview(content),
		})
	}
	return out
}

// buildChunkContent concatenates the file-path marker, type marker,
// parent marker (if any), signature, docstring (if any), and body —
// body truncated to bodyTruncateLimit characters with an elided marker
// appended.
func buildChunkContent(sym core.Symbol) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// file: %s\n", sym.FilePath)
	fmt.Fprintf(&b, "// type: %s\n", sym.Kind)
	if sym.Parent != "" {
		fmt.Fprintf(&b, "// parent: %s\n", sym.Parent)
	}
	if sym.Signature != "" {
		b.WriteString(sym.Signature)
		b.WriteString("\n")
	}
	if sym.Docstring != "" {
		b.WriteString(sym.Docstring)
		b.WriteString("\n")
	}
	if sym.Body != "" {
		body := sym.Body
		if len(body) > bodyTruncateLimit {
			body = body[:bodyTruncateLimit] + elidedMarker
		}
		b.WriteString(body)
	}
	return b.String()
}

func chunkID(filePath, qualifiedName string) string {
	sum := sha256.Sum256([]byte(filePath + "|" + qualifiedName))
	return hex.EncodeToString(sum[:])
}

func preview(content string) string {
	if len(content) <= previewLength {
		return content
	}
	return content[:previewLength] + "..."
}
