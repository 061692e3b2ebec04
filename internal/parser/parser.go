// Package parser extracts symbols, imports, and call edges from source
// files. Python and JavaScript/TypeScript get a full tree-sitter AST
// parse; every other language falls back to a regex-based extractor that
// never populates a symbol's Body.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
)

// Parser extracts a ParseResult from one file's content.
type Parser interface {
	ParseFile(path string, content []byte) (*core.ParseResult, error)
	// Language reports the language this Parser instance handles.
	Language() string
}

var extensionLanguage = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".rb":    "ruby",
	".php":   "php",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".kt":    "kotlin",
	".swift": "swift",
	".scala": "scala",
}

// treeSitterLanguages are the languages with a full AST parser; everything
// else in extensionLanguage is still "supported" for coverage purposes but
// is handled by the regex fallback.
var treeSitterLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"typescript": true,
}

// DetectLanguage maps a file path to a language name by extension. It
// returns ("", false) for an extension the pipeline doesn't recognize at
// all, which the coverage tracker records as SkipUnsupportedLang.
func DetectLanguage(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

// HasTreeSitterSupport reports whether language gets full AST parsing.
func HasTreeSitterSupport(language string) bool {
	return treeSitterLanguages[language]
}

// Registry resolves a Parser for a given language, preferring a
// tree-sitter parser when one is registered and falling back to the
// regex-based extractor otherwise.
type Registry struct {
	treeSitter map[string]Parser
	fallback   Parser
}

// NewRegistry builds a Registry with Python and JavaScript/TypeScript
// tree-sitter parsers pre-registered, plus the regex fallback for every
// other recognized extension.
func NewRegistry() *Registry {
	r := &Registry{
		treeSitter: make(map[string]Parser),
		fallback:   NewFallbackParser(),
	}
	for _, p := range []Parser{
		NewTreeSitterParser("python"),
		NewTreeSitterParser("javascript"),
		NewTreeSitterParser("typescript"),
	} {
		r.treeSitter[p.Language()] = p
	}
	return r
}

// For returns the best available Parser for language. It never returns
// nil: an unrecognized language still gets the regex fallback, since the
// caller has already decided (via DetectLanguage) that the file is in
// scope.
func (r *Registry) For(language string) Parser {
	if p, ok := r.treeSitter[language]; ok {
		return p
	}
	return r.fallback
}
