package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/coderadar/internal/core"
)

func TestTierNoneWhenNoVerifiedQuotes(t *testing.T) {
	assert.Equal(t, core.TierNone, Tier(0, 3, 0, 1, 0.9))
}

func TestTierLowWhenVerificationRateBelowHalf(t *testing.T) {
	assert.Equal(t, core.TierLow, Tier(1, 4, 1, 1, 0.9))
}

func TestTierHighRequiresMultiSectionMultiFileStrongVerification(t *testing.T) {
	assert.Equal(t, core.TierHigh, Tier(3, 4, 2, 2, 0.6))
}

func TestTierMediumWithGoodVerificationDecentScore(t *testing.T) {
	assert.Equal(t, core.TierMedium, Tier(2, 3, 1, 1, 0.4))
}

func TestTierLowWithGoodVerificationWeakScore(t *testing.T) {
	assert.Equal(t, core.TierLow, Tier(2, 3, 1, 1, 0.2))
}
