package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

func TestBuildSymbolTableLookup(t *testing.T) {
	symbols := []core.Symbol{
		{QualifiedName: "pkg.Foo", Name: "Foo", FilePath: "pkg/foo.go"},
		{QualifiedName: "pkg.Bar", Name: "Bar", FilePath: "pkg/foo.go"},
	}
	table := BuildSymbolTable(symbols)

	sym, ok := table.Lookup("pkg.Foo")
	require.True(t, ok)
	assert.Equal(t, "Foo", sym.Name)

	_, ok = table.Lookup("pkg.Missing")
	assert.False(t, ok)

	assert.Len(t, table.InFile("pkg/foo.go"), 2)
}

func TestResolveImportTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "utils.py"), []byte("x = 1"), 0o644))

	target, ok := ResolveImportTarget("app.utils", "app/main.py", dir)
	require.True(t, ok)
	assert.Equal(t, "app/utils.py", target)

	_, ok = ResolveImportTarget("numpy", "app/main.py", dir)
	assert.False(t, ok, "an external package should not resolve")
}

func TestResolveCallTargetPrefersMethodOverFunction(t *testing.T) {
	table := BuildSymbolTable([]core.Symbol{
		{QualifiedName: "util.process", Name: "process", Kind: core.SymbolFunction},
		{QualifiedName: "Handler.process", Name: "process", Kind: core.SymbolMethod},
	})

	qname, matched := ResolveCallTarget("self.process", table)
	require.True(t, matched)
	assert.Equal(t, "Handler.process", qname)
}

func TestResolveCallTargetFallsBackToRawExpression(t *testing.T) {
	table := BuildSymbolTable(nil)
	qname, matched := ResolveCallTarget("external.doThing", table)
	assert.False(t, matched)
	assert.Equal(t, "external.doThing", qname)
}

func TestBuildCallGraphDropsUnresolvedCalls(t *testing.T) {
	table := BuildSymbolTable([]core.Symbol{
		{QualifiedName: "pkg.Known", Name: "Known", Kind: core.SymbolFunction},
	})
	calls := []core.CallEdge{
		{CallerQName: "pkg.Caller", CalleeExpression: "Known"},
		{CallerQName: "pkg.Caller", CalleeExpression: "totallyUnknownThing"},
	}

	fwd, rev := BuildCallGraph(calls, table)
	assert.Equal(t, []string{"pkg.Known"}, fwd["pkg.Caller"])
	assert.Equal(t, []string{"pkg.Caller"}, rev["pkg.Known"])
}

func TestDetectEntryPoints(t *testing.T) {
	symbols := []core.Symbol{
		{QualifiedName: "cmd.main", Name: "main"},
		{QualifiedName: "pkg.helper", Name: "helper"},
		{QualifiedName: "api.getUsers", Name: "getUsers", Body: `@app.route("/users")`},
	}
	rev := Graph{
		"pkg.helper": {"cmd.main"}, // helper has an inbound caller, main does not
	}

	entries := DetectEntryPoints(symbols, rev)

	var names []string
	for _, e := range entries {
		names = append(names, e.QualifiedName)
	}
	assert.Contains(t, names, "cmd.main")
	assert.Contains(t, names, "api.getUsers")
	assert.NotContains(t, names, "pkg.helper")
}

func TestRankTopLevelOrdersByFanIn(t *testing.T) {
	symbols := []core.Symbol{
		{QualifiedName: "a"},
		{QualifiedName: "b"},
		{QualifiedName: "c"},
	}
	rev := Graph{
		"b": {"x", "y", "z"},
		"c": {"x"},
	}

	ranked := RankTopLevel(symbols, rev)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].QualifiedName)
	assert.Equal(t, "c", ranked[1].QualifiedName)
	assert.Equal(t, "a", ranked[2].QualifiedName)
}

func TestRankTopLevelRanksClassesByChildCountAheadOfFunctions(t *testing.T) {
	symbols := []core.Symbol{
		{QualifiedName: "pkg.Small", Kind: core.SymbolClass},
		{QualifiedName: "pkg.Small.m1", Kind: core.SymbolMethod, Parent: "pkg.Small"},
		{QualifiedName: "pkg.Big", Kind: core.SymbolClass},
		{QualifiedName: "pkg.Big.m1", Kind: core.SymbolMethod, Parent: "pkg.Big"},
		{QualifiedName: "pkg.Big.m2", Kind: core.SymbolMethod, Parent: "pkg.Big"},
		{QualifiedName: "pkg.Big.m3", Kind: core.SymbolMethod, Parent: "pkg.Big"},
		{QualifiedName: "pkg.popularFunc", Kind: core.SymbolFunction},
		{QualifiedName: "pkg.quietFunc", Kind: core.SymbolFunction},
	}
	rev := Graph{
		"pkg.popularFunc": {"x", "y", "z", "w"},
		"pkg.quietFunc":   {"x"},
	}

	ranked := RankTopLevel(symbols, rev)

	names := make([]string, 0, len(ranked))
	for _, s := range ranked {
		names = append(names, s.QualifiedName)
	}

	// classes come first, ranked by member count, even though a class has
	// ~0 call-graph fan-in of its own.
	require.Equal(t, "pkg.Big", names[0])
	require.Equal(t, "pkg.Small", names[1])
	// then top-level functions, ranked by inbound-caller count.
	require.Equal(t, "pkg.popularFunc", names[2])
	require.Equal(t, "pkg.quietFunc", names[3])
}
