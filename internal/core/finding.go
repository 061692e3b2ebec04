package core

// Severity orders from most to least urgent.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Rank returns a comparable ordinal, higher is more severe.
func (s Severity) Rank() int { return severityRank[s] }

// Max returns the more severe of the two.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// Confidence orders from most to least certain; "unknown" sits below "low".
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

var confidenceRank = map[Confidence]int{
	ConfidenceHigh:    4,
	ConfidenceMedium:  3,
	ConfidenceLow:     2,
	ConfidenceUnknown: 1,
}

func (c Confidence) Rank() int { return confidenceRank[c] }

func (c Confidence) Max(other Confidence) Confidence {
	if other.Rank() > c.Rank() {
		return other
	}
	return c
}

// Downgrade moves confidence one tier down, floored at "unknown". Applying
// it twice (once for low coverage, once for AST unavailability) can stack
// a "medium" finding all the way to "unknown"; this is deliberate, see
// DESIGN.md's note on stacked downgrades.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	case ConfidenceLow, ConfidenceUnknown:
		return ConfidenceUnknown
	default:
		return ConfidenceUnknown
	}
}

// HighPrecisionCategory is the closed, curated category set for the
// near-100%-precision analyzer family that drives the PR-review surface.
type HighPrecisionCategory string

const (
	CategorySecretExposure         HighPrecisionCategory = "secret_exposure"
	CategoryPrivateKeyExposed      HighPrecisionCategory = "private_key_exposed"
	CategoryEnvLeaked              HighPrecisionCategory = "env_leaked"
	CategoryMigrationDestructive   HighPrecisionCategory = "migration_destructive"
	CategoryAuthMiddlewareRemoved  HighPrecisionCategory = "auth_middleware_removed"
	CategoryDependencyChanged      HighPrecisionCategory = "dependency_changed"
)

// FindingMatch is the raw output of a single Analyzer invocation, before
// dedup and scoring. A match missing file/line anchoring and a symbol
// reference is "speculative" and gets its severity forced down to info
// during scoring.
type FindingMatch struct {
	RuleID            string
	Category          string
	Title             string
	Description       string
	Severity          Severity
	Confidence        Confidence
	Remediation       string
	Tags              []string
	FilePath          string
	StartLine         int
	EndLine           int
	RuleTriggerReason string
	Snippet           string
	Symbol            string // qualified name, if the match is symbol-scoped
	NormalizedSource  string
	NormalizedSink    string
	Impact            map[string]string
	Likelihood        map[string]string
}

// ImpactScore is the impact computation breakdown used during scoring.
type ImpactScore struct {
	Score            int
	DataSensitivity  string
	FlowWidth        string
	RegulatoryTags   []string
}

// ExploitabilityScore is the exploitability computation breakdown used
// during scoring.
type ExploitabilityScore struct {
	Score              int
	NetworkExposure    string
	AttackComplexity   string
}

// Finding is the root record after deduplication. Many FindingMatches
// sharing a DedupeKey collapse into one Finding with many FindingInstances.
type Finding struct {
	ID                  int64
	ScanRunID           int64
	RuleID              string
	Category            string
	Title               string
	Description         string
	Severity            Severity
	Confidence          Confidence
	ConfidenceRationale []string
	Impact              ImpactScore
	Likelihood          ExploitabilityScore
	Tags                []string
	DedupeKey           string
	RemediationSummary  string
	Instances           []FindingInstance
}

// FindingInstance is one concrete occurrence of a Finding, anchored to a
// specific EvidenceSnippet and optionally a Symbol or call-graph trace.
type FindingInstance struct {
	ID         int64
	FindingID  int64
	Evidence   EvidenceSnippet
	SymbolQN   string
	TraceQNs   []string // call-graph trace, when the finding is flow-shaped
}

// FindingGroup is a human-facing rollup for the scan summary
// (group_key = rule_id | category).
type FindingGroup struct {
	RuleID   string
	Category string
	RuleName string
	Count    int
	Summary  string // "<count> <rule name> finding(s)"
}
