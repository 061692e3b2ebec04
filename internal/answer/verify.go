package answer

import "strings"

// VerifyQuote reports whether quote occurs in sourceContent, trying
// progressively looser matching strategies until one succeeds: exact
// substring, whitespace-normalized substring, case-insensitive substring,
// line-wise containment of every non-empty line in the quote, and —
// for quotes of three tokens or fewer — a set match requiring every token
// to appear somewhere in the source.
func VerifyQuote(quote, sourceContent string) bool {
	matched, _ := verifyQuoteRung(quote, sourceContent)
	return matched
}

// verifyQuoteRung is VerifyQuote's implementation, additionally reporting
// which rung of the ladder matched (for QuotedSpan.MatchedBy); "" when
// nothing matched.
func verifyQuoteRung(quote, sourceContent string) (bool, string) {
	if quote == "" || sourceContent == "" {
		return false, ""
	}

	if strings.Contains(sourceContent, quote) {
		return true, "exact"
	}

	normalizedQuote := normalizeWhitespace(quote)
	normalizedSource := normalizeWhitespace(sourceContent)
	if strings.Contains(normalizedSource, normalizedQuote) {
		return true, "whitespace_normalized"
	}

	if strings.Contains(strings.ToLower(normalizedSource), strings.ToLower(normalizedQuote)) {
		return true, "case_insensitive"
	}

	if lineWiseContained(quote, sourceContent) {
		return true, "line_wise"
	}

	tokens := strings.Fields(normalizedQuote)
	if len(tokens) > 0 && len(tokens) <= 3 && allTokensPresent(tokens, normalizedSource) {
		return true, "token_set"
	}

	return false, ""
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func lineWiseContained(quote, sourceContent string) bool {
	quoteLines := strings.Split(quote, "\n")
	var nonEmpty []string
	for _, l := range quoteLines {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	if len(nonEmpty) == 0 {
		return false
	}
	for _, l := range nonEmpty {
		if !strings.Contains(sourceContent, l) {
			return false
		}
	}
	return true
}

func allTokensPresent(tokens []string, normalizedSource string) bool {
	lowerSource := strings.ToLower(normalizedSource)
	for _, tok := range tokens {
		if !strings.Contains(lowerSource, strings.ToLower(tok)) {
			return false
		}
	}
	return true
}
