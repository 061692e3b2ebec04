package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

func TestPatternAnalyzerFindsSecretLikeAssignment(t *testing.T) {
	p := NewPatternAnalyzer(defaultPatternRules())
	fc := &FileContext{
		FilePath: "config.py",
		Content:  []byte("api_key = \"abcdefgh12345678\"\n"),
	}

	matches, err := p.Analyze(context.Background(), fc)
	require.NoError(t, err)

	var found bool
	for _, m := range matches {
		if m.RuleID == "SEC-003" {
			found = true
			assert.Equal(t, 1, m.StartLine)
			assert.NotEmpty(t, m.Snippet)
		}
	}
	assert.True(t, found)
}

func TestPatternAnalyzerDerivesLineFromOffset(t *testing.T) {
	p := NewPatternAnalyzer(defaultPatternRules())
	fc := &FileContext{
		FilePath: "app.py",
		Content:  []byte("x = 1\ny = 2\nresult = eval(user_input)\n"),
	}

	matches, err := p.Analyze(context.Background(), fc)
	require.NoError(t, err)

	var sawLine3 bool
	for _, m := range matches {
		if m.RuleID == "SEC-001" {
			assert.Equal(t, 3, m.StartLine)
			sawLine3 = true
		}
	}
	assert.True(t, sawLine3)
}

func TestLongFunctionRuleFlagsOverThreshold(t *testing.T) {
	fc := &FileContext{
		FilePath: "big.py",
		ParseResult: &core.ParseResult{
			Symbols: []core.Symbol{
				{
					Kind:          core.SymbolFunction,
					Name:          "doLots",
					QualifiedName: "doLots",
					FilePath:      "big.py",
					LineStart:     1,
					LineEnd:       90,
					Body:          "line1\nline2\n",
				},
				{
					Kind:      core.SymbolFunction,
					Name:      "small",
					LineStart: 1,
					LineEnd:   5,
				},
			},
		},
	}

	matches := longFunctionRule(fc)
	require.Len(t, matches, 1)
	assert.Equal(t, "MAINT-001", matches[0].RuleID)
	assert.Equal(t, "doLots", matches[0].Symbol)
}

func TestControllerDataAccessRuleRequiresPathAndMarker(t *testing.T) {
	hit := &FileContext{FilePath: "app/controllers/users.py", Content: []byte("db.query('SELECT 1')")}
	matches := controllerDataAccessRule(hit)
	require.Len(t, matches, 1)
	assert.Equal(t, "ARCH-001", matches[0].RuleID)

	noMarker := &FileContext{FilePath: "app/controllers/users.py", Content: []byte("return render()")}
	assert.Empty(t, controllerDataAccessRule(noMarker))

	noPath := &FileContext{FilePath: "app/services/users.py", Content: []byte("db.query('SELECT 1')")}
	assert.Empty(t, controllerDataAccessRule(noPath))
}

func TestOutboundTimeoutRuleRespectsExclusion(t *testing.T) {
	withTimeout := &FileContext{FilePath: "client.py", Content: []byte("requests.get(url, timeout=5)\n")}
	assert.Empty(t, outboundTimeoutRule(withTimeout))

	withoutTimeout := &FileContext{FilePath: "client.py", Content: []byte("requests.get(url)\n")}
	matches := outboundTimeoutRule(withoutTimeout)
	require.Len(t, matches, 1)
	assert.Equal(t, "REL-001", matches[0].RuleID)
	assert.Equal(t, 1, matches[0].StartLine)
}

func TestHighPrecisionAnalyzerFlagsEnvFile(t *testing.T) {
	h := NewHighPrecisionAnalyzer()
	fc := &FileContext{FilePath: "deploy/.env.production", Content: []byte("DB_PASS=hunter2")}

	matches, err := h.Analyze(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, string(core.CategoryEnvLeaked), matches[0].Category)
}

func TestHighPrecisionAnalyzerFlagsLockfile(t *testing.T) {
	h := NewHighPrecisionAnalyzer()
	fc := &FileContext{FilePath: "package-lock.json", Content: []byte("{}")}

	matches, err := h.Analyze(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, string(core.CategoryDependencyChanged), matches[0].Category)
}

func TestHighPrecisionAnalyzerFlagsSecretAndRedactsSnippet(t *testing.T) {
	h := NewHighPrecisionAnalyzer()
	token := "ghp_" + repeat("a", 36)
	fc := &FileContext{FilePath: "config.go", Content: []byte("token := \"" + token + "\"\n")}

	matches, err := h.Analyze(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, string(core.CategorySecretExposure), matches[0].Category)
	assert.NotContains(t, matches[0].Snippet, token)
}

func TestHighPrecisionAnalyzerFlagsDestructiveMigration(t *testing.T) {
	h := NewHighPrecisionAnalyzer()
	fc := &FileContext{
		FilePath: "database/migrations/2024_drop_users.php",
		Content:  []byte("Schema::drop('users');\n"),
	}

	matches, err := h.Analyze(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, string(core.CategoryMigrationDestructive), matches[0].Category)
	assert.Equal(t, "DROP TABLE", matches[0].Title)
	assert.Contains(t, matches[0].RuleTriggerReason, "on 'users'")
	assert.Contains(t, matches[0].Tags, "target:users")
}

func TestHighPrecisionAnalyzerFlagsAuthMiddlewareRemoval(t *testing.T) {
	h := NewHighPrecisionAnalyzer()
	fc := &FileContext{
		FilePath: "routes/web.php",
		Content:  []byte("Route::get('/admin')->withoutMiddleware('auth');\n"),
	}

	matches, err := h.Analyze(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, string(core.CategoryAuthMiddlewareRemoved), matches[0].Category)
}

func TestScopeToDiffKeepsOnlyChangedLines(t *testing.T) {
	matches := []core.FindingMatch{
		{FilePath: "a.go", StartLine: 10},
		{FilePath: "a.go", StartLine: 20},
		{FilePath: "b.go", StartLine: 10},
	}
	diff := map[string]map[int]struct{}{
		"a.go": {10: {}},
	}

	scoped := ScopeToDiff(matches, diff)
	require.Len(t, scoped, 1)
	assert.Equal(t, "a.go", scoped[0].FilePath)
	assert.Equal(t, 10, scoped[0].StartLine)
}

func TestRegistryRegisterWrapsSingleRule(t *testing.T) {
	r := NewRegistry()
	before := len(r.All())

	r.Register(RuleMeta{RuleID: "CUSTOM-001", Category: "custom", Severity: core.SeverityLow, Confidence: core.ConfidenceLow},
		func(fc *FileContext) []core.FindingMatch {
			return []core.FindingMatch{{FilePath: fc.FilePath, StartLine: 1, EndLine: 1, RuleTriggerReason: "hit", Snippet: "x"}}
		})

	all := r.All()
	require.Len(t, all, before+1)

	matches, err := all[len(all)-1].Analyze(context.Background(), &FileContext{FilePath: "f.go"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CUSTOM-001", matches[0].RuleID)
	assert.Equal(t, "custom", matches[0].Category)
}

func TestRegistryAllReturnsBuiltInFamilies(t *testing.T) {
	r := NewRegistry()
	names := map[string]bool{}
	for _, a := range r.All() {
		names[a.Name()] = true
	}
	assert.True(t, names["pattern"])
	assert.True(t, names["structural"])
	assert.True(t, names["high_precision"])
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
