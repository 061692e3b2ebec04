package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// RawQuotedSpan is one quoted_span entry as the model emits it, before
// verification.
type RawQuotedSpan struct {
	SourceID int
	Quote    string
}

// RawSection is one sections entry as the model emits it.
type RawSection struct {
	Text        string
	SourceIDs   []int
	QuotedSpans []RawQuotedSpan
}

// RawAnswer is the model's JSON output, before claim validation.
type RawAnswer struct {
	Sections []RawSection
	Unknowns []string
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseJSON ingests a model response through an escalating ladder of
// strategies, the same ladder the original Q&A service's
// `_parse_answer_json` runs: direct parse, fenced-code-block extraction,
// greedy largest-object extraction, punctuation repair, then a
// last-balanced-brace walk for a truncated response. It returns the first
// strategy that yields valid JSON with at least one recognizable section.
func ParseJSON(raw string) (*RawAnswer, error) {
	if a, ok := tryParse(raw); ok {
		return a, nil
	}

	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		if a, ok := tryParse(m[1]); ok {
			return a, nil
		}
	}

	if candidate := largestBraceSubstring(raw); candidate != "" {
		if a, ok := tryParse(candidate); ok {
			return a, nil
		}
		if repaired, changed := RepairJSON(candidate); changed {
			if a, ok := tryParse(repaired); ok {
				return a, nil
			}
		}
	}

	if candidate := lastBalancedObject(raw); candidate != "" {
		if a, ok := tryParse(candidate); ok {
			return a, nil
		}
		if repaired, changed := RepairJSON(candidate); changed {
			if a, ok := tryParse(repaired); ok {
				return a, nil
			}
		}
	}

	return nil, fmt.Errorf("could not parse a valid answer object from model response")
}

// tryParse uses gjson's lenient path extraction rather than a strict
// encoding/json unmarshal: a model occasionally emits a source_id as a
// quoted string instead of a number, which gjson's .Int() coerces instead
// of rejecting outright. It reports ok=false only when the input isn't
// valid JSON at all, or carries no sections.
func tryParse(s string) (*RawAnswer, bool) {
	if !gjson.Valid(s) {
		return nil, false
	}
	root := gjson.Parse(s)
	sectionsResult := root.Get("sections")
	if !sectionsResult.IsArray() {
		return nil, false
	}

	var a RawAnswer
	sectionsResult.ForEach(func(_, section gjson.Result) bool {
		sec := RawSection{Text: section.Get("text").String()}
		section.Get("source_ids").ForEach(func(_, id gjson.Result) bool {
			sec.SourceIDs = append(sec.SourceIDs, int(id.Int()))
			return true
		})
		section.Get("quoted_spans").ForEach(func(_, span gjson.Result) bool {
			sec.QuotedSpans = append(sec.QuotedSpans, RawQuotedSpan{
				SourceID: int(span.Get("source_id").Int()),
				Quote:    span.Get("quote").String(),
			})
			return true
		})
		a.Sections = append(a.Sections, sec)
		return true
	})
	root.Get("unknowns").ForEach(func(_, u gjson.Result) bool {
		a.Unknowns = append(a.Unknowns, u.String())
		return true
	})

	if len(a.Sections) == 0 {
		return nil, false
	}
	return &a, true
}

// largestBraceSubstring returns the text from the first '{' to the last
// '}' in raw, a greedy (possibly over-eager) object extraction.
func largestBraceSubstring(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// lastBalancedObject walks forward from the first '{' and returns the
// substring up to the point the braces first balance back to zero,
// recovering a usable prefix from a response truncated mid-stream.
func lastBalancedObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	bareKeyPattern       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	controlCharPattern   = regexp.MustCompile(`[\x00-\x1f]`)
)

// RepairJSON applies the original service's fixed sequence of textual
// repairs: strip trailing commas before a closing bracket, quote bare
// object keys, strip control characters, and — only when the string has
// no double quotes at all, so the swap can't corrupt an already-valid
// value — replace single quotes with double quotes. It reports whether
// any repair actually changed the input.
func RepairJSON(raw string) (string, bool) {
	repaired := raw
	repaired = trailingCommaPattern.ReplaceAllString(repaired, "$1")
	repaired = bareKeyPattern.ReplaceAllString(repaired, `$1"$2":`)
	repaired = controlCharPattern.ReplaceAllString(repaired, "")

	if strings.Contains(repaired, "'") && !strings.Contains(repaired, `"`) {
		repaired = strings.ReplaceAll(repaired, "'", `"`)
	}

	return repaired, repaired != raw
}
