package parser

import (
	"regexp"

	"github.com/sevigo/coderadar/internal/core"
)

// genericFuncPattern matches a loose superset of function/method
// declaration syntax across C-family, Ruby, PHP, Rust, and similar
// languages: a keyword (optional), an identifier, then an opening paren.
// It is intentionally permissive; precision is not the point, coverage is.
var genericFuncPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:(?:public|private|protected|static|async|export|func|function|def|fn|sub)\s+)*` +
		`(?:[A-Za-z_][\w<>\[\]]*\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

var genericClassPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:export\s+)?(?:public\s+)?(?:abstract\s+)?(?:class|struct|interface|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)

var genericImportPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:import|require|include|use)\s+['"]?([\w./\-]+)['"]?`)

// FallbackParser extracts a coarse symbol/import list with a regex sweep,
// for languages without a registered tree-sitter grammar. It never
// populates Symbol.Body (see core.BodyUnavailable) and never produces
// call edges: without a real AST there is no reliable way to scope a call
// site to its enclosing function.
type FallbackParser struct{}

// NewFallbackParser returns the shared, stateless regex-based parser.
func NewFallbackParser() *FallbackParser { return &FallbackParser{} }

func (f *FallbackParser) Language() string { return "unknown" }

func (f *FallbackParser) ParseFile(path string, content []byte) (*core.ParseResult, error) {
	result := &core.ParseResult{FilePath: path, Language: f.Language()}

	lineOffsets := buildLineOffsets(content)

	for _, m := range genericClassPattern.FindAllSubmatchIndex(content, -1) {
		name := string(content[m[2]:m[3]])
		result.Symbols = append(result.Symbols, core.Symbol{
			FilePath:      path,
			QualifiedName: name,
			Name:          name,
			Kind:          core.SymbolClass,
			Visibility:    core.VisibilityPublic,
			LineStart:     lineForOffset(lineOffsets, m[0]),
			LineEnd:       lineForOffset(lineOffsets, m[0]),
			Body:          core.BodyUnavailable,
			FromFallback:  true,
		})
	}

	for _, m := range genericFuncPattern.FindAllSubmatchIndex(content, -1) {
		name := string(content[m[2]:m[3]])
		result.Symbols = append(result.Symbols, core.Symbol{
			FilePath:      path,
			QualifiedName: name,
			Name:          name,
			Kind:          core.SymbolFunction,
			Visibility:    core.VisibilityPublic,
			LineStart:     lineForOffset(lineOffsets, m[0]),
			LineEnd:       lineForOffset(lineOffsets, m[0]),
			Body:          core.BodyUnavailable,
			FromFallback:  true,
		})
	}

	for _, m := range genericImportPattern.FindAllSubmatchIndex(content, -1) {
		result.Imports = append(result.Imports, core.Import{
			FilePath: path,
			Line:     lineForOffset(lineOffsets, m[0]),
			Module:   string(content[m[2]:m[3]]),
		})
	}

	return result, nil
}

func buildLineOffsets(content []byte) []int {
	offsets := []int{0}
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func lineForOffset(offsets []int, pos int) int {
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
