// Package indexer turns a parse pass's raw symbols, imports, and calls
// into queryable graphs: a symbol table, an import graph, a call graph,
// and their reverse indices.
package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
)

// SymbolTable indexes symbols by qualified name and by file, for O(1)
// lookup during call-graph resolution and entry-point detection.
type SymbolTable struct {
	byQName map[string]core.Symbol
	byFile  map[string][]core.Symbol
}

// Lookup returns the symbol for a fully qualified name.
func (t SymbolTable) Lookup(qname string) (core.Symbol, bool) {
	s, ok := t.byQName[qname]
	return s, ok
}

// InFile returns every symbol declared in the given file.
func (t SymbolTable) InFile(path string) []core.Symbol {
	return t.byFile[path]
}

// All returns every symbol in the table, sorted by qualified name for
// deterministic iteration.
func (t SymbolTable) All() []core.Symbol {
	out := make([]core.Symbol, 0, len(t.byQName))
	for _, s := range t.byQName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

// BuildSymbolTable indexes every symbol from a scan's parse results.
func BuildSymbolTable(symbols []core.Symbol) SymbolTable {
	t := SymbolTable{
		byQName: make(map[string]core.Symbol, len(symbols)),
		byFile:  make(map[string][]core.Symbol),
	}
	for _, s := range symbols {
		t.byQName[s.QualifiedName] = s
		t.byFile[s.FilePath] = append(t.byFile[s.FilePath], s)
	}
	return t
}

// Graph is an adjacency list keyed by node id (a file path for the import
// graph, a qualified name for the call graph).
type Graph map[string][]string

// importSuffixCandidates are tried, in order, to resolve an import's
// module string to a file under the working directory.
var importSuffixCandidates = []string{
	".py", "/__init__.py",
	".js", ".jsx", ".mjs", "/index.js",
	".ts", ".tsx", "/index.ts",
	".go",
}

// BuildImportGraph resolves each Import's module to a file under workDir
// and returns the forward (file -> files it imports) and reverse
// (file -> files that import it) graphs. Unresolved imports are treated
// as external dependencies and silently dropped from the graph.
func BuildImportGraph(imports []core.Import, workDir string) (fwd, rev Graph) {
	fwd = make(Graph)
	rev = make(Graph)
	for _, imp := range imports {
		target, ok := ResolveImportTarget(imp.Module, imp.FilePath, workDir)
		if !ok {
			continue
		}
		if !contains(fwd[imp.FilePath], target) {
			fwd[imp.FilePath] = append(fwd[imp.FilePath], target)
		}
		if !contains(rev[target], imp.FilePath) {
			rev[target] = append(rev[target], imp.FilePath)
		}
	}
	return fwd, rev
}

// ResolveImportTarget resolves an import's module string to a real file
// path under workDir, trying the module as a relative path from the
// importing file's directory and then from the working directory's root,
// appending each candidate suffix in turn.
func ResolveImportTarget(module, fromFile, workDir string) (string, bool) {
	if module == "" {
		return "", false
	}
	modPath := strings.ReplaceAll(module, ".", string(filepath.Separator))
	bases := []string{
		filepath.Join(filepath.Dir(fromFile), filepath.Base(modPath)),
		filepath.Join(filepath.Dir(filepath.Join(workDir, fromFile)), filepath.Base(modPath)),
		modPath,
	}
	for _, base := range bases {
		for _, suffix := range importSuffixCandidates {
			candidate := base + suffix
			if fileExists(filepath.Join(workDir, candidate)) {
				return filepath.ToSlash(candidate), true
			}
			// base itself may already carry the right extension.
			if fileExists(filepath.Join(workDir, base)) {
				return filepath.ToSlash(base), true
			}
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// BuildCallGraph resolves every CallEdge's callee expression against the
// symbol table and returns the forward (caller -> callees) and reverse
// (callee -> callers) graphs. An unresolved call contributes no edge: the
// raw expression is not a valid graph node on its own.
func BuildCallGraph(calls []core.CallEdge, table SymbolTable) (fwd, rev Graph) {
	fwd = make(Graph)
	rev = make(Graph)
	for _, call := range calls {
		callee, matched := ResolveCallTarget(call.CalleeExpression, table)
		if !matched {
			continue
		}
		if !contains(fwd[call.CallerQName], callee) {
			fwd[call.CallerQName] = append(fwd[call.CallerQName], callee)
		}
		if !contains(rev[callee], call.CallerQName) {
			rev[callee] = append(rev[callee], call.CallerQName)
		}
	}
	return fwd, rev
}

// ResolveCallTarget resolves a raw call expression (e.g. "self.foo",
// "pkg.Bar", "foo") to a symbol's qualified name. It takes the last
// dotted segment of the expression and looks it up by suffix match
// against every qualified name in the table, preferring a method over a
// plain function when both match.
func ResolveCallTarget(expr string, table SymbolTable) (string, bool) {
	if expr == "" {
		return "", false
	}
	if sym, ok := table.Lookup(expr); ok {
		return sym.QualifiedName, true
	}

	lastSeg := lastDottedSegment(expr)
	var methodMatch, funcMatch string
	for _, sym := range table.All() {
		if sym.Name != lastSeg {
			continue
		}
		switch sym.Kind {
		case core.SymbolMethod:
			if methodMatch == "" {
				methodMatch = sym.QualifiedName
			}
		case core.SymbolFunction:
			if funcMatch == "" {
				funcMatch = sym.QualifiedName
			}
		}
	}
	if methodMatch != "" {
		return methodMatch, true
	}
	if funcMatch != "" {
		return funcMatch, true
	}
	return expr, false
}

func lastDottedSegment(expr string) string {
	for _, sep := range []string{".", "::", "->"} {
		if idx := strings.LastIndex(expr, sep); idx >= 0 {
			expr = expr[idx+len(sep):]
		}
	}
	return expr
}

var entryPointNamePatterns = []string{
	"main", "handle", "handler", "route", "cli", "start", "run", "init", "index",
}

var routeDecoratorMarkers = []string{
	".route", ".get(", ".post(", ".put(", ".delete(", "@app.", "@router.",
}

// DetectEntryPoints returns symbols that look like program or request
// entry points: a name from the fixed pattern list with no inbound
// callers, or a body containing a web-routing decorator marker regardless
// of caller count (a route handler is always reachable from outside the
// call graph, even though the graph itself shows no caller).
func DetectEntryPoints(symbols []core.Symbol, callGraphRev Graph) []core.Symbol {
	var out []core.Symbol
	for _, sym := range symbols {
		if hasRouteMarker(sym.Body) {
			out = append(out, sym)
			continue
		}
		if matchesEntryPointName(sym.Name) && len(callGraphRev[sym.QualifiedName]) == 0 {
			out = append(out, sym)
		}
	}
	return out
}

func matchesEntryPointName(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range entryPointNamePatterns {
		if lower == p || strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func hasRouteMarker(body string) bool {
	if body == "" {
		return false
	}
	for _, m := range routeDecoratorMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// RankTopLevel surfaces a repository's most architecturally central
// top-level symbols first: classes ranked by child (member) count
// descending, top-level functions ranked by inbound-caller count
// (fan-in) descending, classes then functions. Anything else — a
// method, a nested symbol, a symbol whose kind isn't tracked — keeps
// the old fan-in-only ordering and is appended last. Ties within each
// group break by qualified name for determinism.
func RankTopLevel(symbols []core.Symbol, callGraphRev Graph) []core.Symbol {
	childCount := make(map[string]int)
	for _, s := range symbols {
		if s.Parent != "" {
			childCount[s.Parent]++
		}
	}

	var classes, functions, others []core.Symbol
	for _, s := range symbols {
		switch {
		case s.Parent == "" && s.Kind == core.SymbolClass:
			classes = append(classes, s)
		case s.Parent == "" && s.Kind == core.SymbolFunction:
			functions = append(functions, s)
		default:
			others = append(others, s)
		}
	}

	sort.SliceStable(classes, func(i, j int) bool {
		ci, cj := childCount[classes[i].QualifiedName], childCount[classes[j].QualifiedName]
		if ci != cj {
			return ci > cj
		}
		return classes[i].QualifiedName < classes[j].QualifiedName
	})
	byFanIn := func(ranked []core.Symbol) func(i, j int) bool {
		return func(i, j int) bool {
			fi, fj := len(callGraphRev[ranked[i].QualifiedName]), len(callGraphRev[ranked[j].QualifiedName])
			if fi != fj {
				return fi > fj
			}
			return ranked[i].QualifiedName < ranked[j].QualifiedName
		}
	}
	sort.SliceStable(functions, byFanIn(functions))
	sort.SliceStable(others, byFanIn(others))

	ranked := make([]core.Symbol, 0, len(symbols))
	ranked = append(ranked, classes...)
	ranked = append(ranked, functions...)
	ranked = append(ranked, others...)
	return ranked
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
