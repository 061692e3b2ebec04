// Package analyzer runs the rule families that turn a parsed file into raw
// FindingMatches: pattern matching over content, structural checks over a
// ParseResult, and the curated high-precision family that drives PR review
// comments.
package analyzer

import (
	"context"

	"github.com/sevigo/coderadar/internal/core"
)

// FileContext is everything one Analyze call sees for a single file: its
// path and content, the parse pass's result (nil if parsing failed or the
// language has no parser), and the scan's coverage summary so an analyzer
// can factor coverage into its own confidence if it chooses to.
type FileContext struct {
	RepoPath    string
	FilePath    string
	Content     []byte
	ParseResult *core.ParseResult
	Coverage    core.CoverageSummary
}

// Analyzer is the contract every rule family implements: given a file,
// produce zero or more raw matches.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, fc *FileContext) ([]core.FindingMatch, error)
}

// RuleMeta describes one rule independent of how it's matched: identity,
// human-facing text, and the scoring inputs the rule contributes.
type RuleMeta struct {
	RuleID           string
	Category         string
	Title            string
	Description      string
	Severity         core.Severity
	Confidence       core.Confidence
	Remediation      string
	Tags             []string
	NormalizedSource string
	NormalizedSink   string
	Impact           map[string]string
	Likelihood       map[string]string
}

// RuleImpl is a rule's matching logic: given a file, return the matches it
// finds for this rule alone. A match need only set the fields specific to
// where it fired (FilePath, StartLine, EndLine, Snippet,
// RuleTriggerReason, Symbol) — ruleAnalyzer stamps the rest of RuleMeta
// onto every match the impl returns.
type RuleImpl func(fc *FileContext) []core.FindingMatch

// ruleAnalyzer adapts a single (RuleMeta, RuleImpl) pair into an Analyzer,
// so the registry can treat an ad-hoc rule and a whole built-in family
// (PatternAnalyzer, StructuralAnalyzer, HighPrecisionAnalyzer) the same
// way once registered.
type ruleAnalyzer struct {
	meta RuleMeta
	impl RuleImpl
}

func (r *ruleAnalyzer) Name() string { return r.meta.RuleID }

func (r *ruleAnalyzer) Analyze(_ context.Context, fc *FileContext) ([]core.FindingMatch, error) {
	matches := r.impl(fc)
	for i := range matches {
		stampRuleMeta(&matches[i], r.meta)
	}
	return matches, nil
}

// stampRuleMeta fills in any RuleMeta field a RuleImpl left unset, so a
// simple location-only match still carries full rule identity.
func stampRuleMeta(m *core.FindingMatch, meta RuleMeta) {
	if m.RuleID == "" {
		m.RuleID = meta.RuleID
	}
	if m.Category == "" {
		m.Category = meta.Category
	}
	if m.Title == "" {
		m.Title = meta.Title
	}
	if m.Description == "" {
		m.Description = meta.Description
	}
	if m.Severity == "" {
		m.Severity = meta.Severity
	}
	if m.Confidence == "" {
		m.Confidence = meta.Confidence
	}
	if m.Remediation == "" {
		m.Remediation = meta.Remediation
	}
	if m.Tags == nil {
		m.Tags = meta.Tags
	}
	if m.NormalizedSource == "" {
		m.NormalizedSource = meta.NormalizedSource
	}
	if m.NormalizedSink == "" {
		m.NormalizedSink = meta.NormalizedSink
	}
	if m.Impact == nil {
		m.Impact = meta.Impact
	}
	if m.Likelihood == nil {
		m.Likelihood = meta.Likelihood
	}
}

// Registry collects every analyzer a scan runs, whether registered as a
// single rule via Register or added whole via registerAnalyzer (the path
// the three built-in families take, since each already manages many rules
// internally).
type Registry struct {
	analyzers []Analyzer
}

// NewRegistry builds the default registry: the pattern family, the
// structural family, and the closed-category high-precision family, each
// pre-loaded with its built-in rule packs.
func NewRegistry() *Registry {
	r := &Registry{}
	r.registerAnalyzer(NewPatternAnalyzer(defaultPatternRules()))
	r.registerAnalyzer(NewStructuralAnalyzer(defaultStructuralRules()))
	r.registerAnalyzer(NewHighPrecisionAnalyzer())
	return r
}

// Register adds a single rule to the registry, wrapping it into an
// Analyzer of its own. Use this to extend the default set with a
// project-specific rule without forking this package.
func (r *Registry) Register(meta RuleMeta, impl RuleImpl) {
	r.registerAnalyzer(&ruleAnalyzer{meta: meta, impl: impl})
}

func (r *Registry) registerAnalyzer(a Analyzer) {
	r.analyzers = append(r.analyzers, a)
}

// All returns every registered analyzer, in registration order.
func (r *Registry) All() []Analyzer {
	out := make([]Analyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}

// ScopeToDiff keeps only matches whose start line falls inside the caller's
// diff-line set, keyed by file path. A nil or missing entry for a file
// means no diff lines were supplied for it, so every match from that file
// is dropped — this is used on the PR-review path, where only changed
// lines should surface as review comments.
func ScopeToDiff(matches []core.FindingMatch, diffLines map[string]map[int]struct{}) []core.FindingMatch {
	out := make([]core.FindingMatch, 0, len(matches))
	for _, m := range matches {
		lines, ok := diffLines[m.FilePath]
		if !ok {
			continue
		}
		if _, ok := lines[m.StartLine]; ok {
			out = append(out, m)
		}
	}
	return out
}
