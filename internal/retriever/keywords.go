// Package retriever resolves a free-text question about a repository into
// a ranked set of source candidates: a trigram search over indexed symbols,
// a vector search over embedded chunks, merged and capped, with snippet
// content filled in from a short-lived cache or the upstream repository.
package retriever

import (
	"regexp"
	"sort"
	"strings"
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"how": {}, "what": {}, "where": {}, "when": {}, "why": {}, "which": {}, "who": {},
	"does": {}, "do": {}, "did": {}, "has": {}, "have": {}, "had": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "will": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"and": {}, "or": {}, "but": {}, "if": {}, "then": {}, "else": {},
	"my": {}, "your": {}, "our": {}, "their": {}, "i": {}, "you": {}, "we": {}, "they": {},
}

var (
	filePathPattern   = regexp.MustCompile(`[\w./\\-]+\.(?:go|py|js|ts|tsx|jsx|java|rs|rb|php)`)
	qualifiedPattern  = regexp.MustCompile(`\b\w+(?:(?:::|\.|\\)\w+)+\b`)
	qualifiedSplit    = regexp.MustCompile(`::|\\|\.`)
	dunderPattern     = regexp.MustCompile(`__\w+__`)
	alphaNumPattern   = regexp.MustCompile(`\b[A-Za-z]+\d+\w*\b|\b\d+[A-Za-z]+\w*\b`)
	allCapsPattern    = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	camelCasePattern  = regexp.MustCompile(`\b[a-z]+(?:[A-Z][a-z0-9]+)+\b|\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)
	camelSplitPattern = regexp.MustCompile(`[A-Z]?[a-z0-9]+|[A-Z]+(?:[^a-z0-9]|$)`)
	snakeCasePattern  = regexp.MustCompile(`\b\w+(?:_\w+)+\b`)
	wordPattern       = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9]*\b`)
)

// ExtractKeywords tokenizes a free-text question the way a source-aware
// search needs to: file paths, qualified names, dunder identifiers,
// ALLCAPS acronyms, and digit-bearing tokens are kept whole, camelCase and
// snake_case tokens are kept whole AND split into their parts, and plain
// English stopwords are dropped. The result is sorted longest-first and
// capped at 10 entries so the caller's trigram query stays cheap.
func ExtractKeywords(question string) []string {
	var keywords []string
	seen := map[string]struct{}{}

	add := func(kw string) {
		if kw == "" {
			return
		}
		if _, stop := stopwords[strings.ToLower(kw)]; stop {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, path := range filePathPattern.FindAllString(question, -1) {
		add(path)
		base := path
		if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
			base = base[idx+1:]
		}
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[:idx]
		}
		add(base)
	}

	for _, q := range qualifiedPattern.FindAllString(question, -1) {
		add(q)
		for _, part := range qualifiedSplit.Split(q, -1) {
			if len(part) > 1 {
				add(part)
			}
		}
	}

	for _, d := range dunderPattern.FindAllString(question, -1) {
		add(d)
	}

	for _, an := range alphaNumPattern.FindAllString(question, -1) {
		add(an)
	}

	for _, ac := range allCapsPattern.FindAllString(question, -1) {
		add(ac)
	}

	for _, camel := range camelCasePattern.FindAllString(question, -1) {
		add(camel)
		for _, part := range camelSplitPattern.FindAllString(camel, -1) {
			if len(part) > 2 {
				add(part)
			}
		}
	}

	for _, snake := range snakeCasePattern.FindAllString(question, -1) {
		add(snake)
		for _, part := range strings.Split(snake, "_") {
			if len(part) > 2 {
				add(part)
			}
		}
	}

	for _, word := range wordPattern.FindAllString(question, -1) {
		if len(word) > 2 {
			add(word)
		}
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		if len(keywords[i]) != len(keywords[j]) {
			return len(keywords[i]) > len(keywords[j])
		}
		return strings.ToLower(keywords[i]) < strings.ToLower(keywords[j])
	})

	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	return keywords
}
