package answer

import "github.com/sevigo/coderadar/internal/core"

// Tier computes the confidence tier from v verified quotes, t total
// quotes, s sections with at least one verified quote, f unique cited
// files, and avgScore the mean retrieval score across cited sources —
// the exact ladder from the answer-engine's confidence formula.
func Tier(v, t, s, f int, avgScore float64) core.ConfidenceTier {
	switch {
	case v == 0:
		return core.TierNone
	case t > 0 && float64(v)/float64(t) < 0.5:
		return core.TierLow
	case s >= 2 && f >= 2 && float64(v)/float64(t) >= 0.75 && avgScore >= 0.5:
		return core.TierHigh
	case float64(v)/float64(t) >= 0.5 && s >= 1 && avgScore >= 0.3:
		return core.TierMedium
	case float64(v)/float64(t) >= 0.5 && s >= 1 && avgScore < 0.3:
		return core.TierLow
	default:
		return core.TierLow
	}
}
