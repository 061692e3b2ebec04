package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywordsPreservesFilePaths(t *testing.T) {
	kws := ExtractKeywords("what does app/Http/Controllers/UserController.php do")
	assert.Contains(t, kws, "app/Http/Controllers/UserController.php")
	assert.Contains(t, kws, "UserController")
}

func TestExtractKeywordsPreservesQualifiedNames(t *testing.T) {
	kws := ExtractKeywords("how does AuthService::login work")
	assert.Contains(t, kws, "AuthService::login")
	assert.Contains(t, kws, "AuthService")
	assert.Contains(t, kws, "login")
}

func TestExtractKeywordsPreservesDunders(t *testing.T) {
	kws := ExtractKeywords("what is __init__ used for")
	assert.Contains(t, kws, "__init__")
}

func TestExtractKeywordsPreservesAllCapsAndDigits(t *testing.T) {
	kws := ExtractKeywords("how is JWT validated in OAuth2 flows")
	assert.Contains(t, kws, "JWT")
	assert.Contains(t, kws, "OAuth2")
}

func TestExtractKeywordsSplitsCamelAndSnakeCase(t *testing.T) {
	kws := ExtractKeywords("where is getUserProfile or fetch_user_profile called")
	assert.Contains(t, kws, "getUserProfile")
	assert.Contains(t, kws, "fetch_user_profile")
	assert.Contains(t, kws, "profile")
}

func TestExtractKeywordsDropsStopwordsAndCapsAtTen(t *testing.T) {
	kws := ExtractKeywords("how does the alpha beta gamma delta epsilon zeta eta theta iota kappa lambda work")
	assert.NotContains(t, kws, "how")
	assert.NotContains(t, kws, "does")
	assert.LessOrEqual(t, len(kws), 10)
}
