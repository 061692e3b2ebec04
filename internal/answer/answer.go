package answer

import (
	"context"
	"fmt"

	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/retriever"
)

// LLM generates a completion for a prompt, the same single-method shape
// goframe's llms.Model.Call exposes.
type LLM interface {
	Call(ctx context.Context, prompt string) (string, error)
}

const retryInstruction = "\n\nRemember: Output ONLY valid JSON."

// GenerateAnswer builds the prompt, calls llm (retrying once with a
// stricter instruction if the response doesn't parse), validates every
// claim against its cited source, and returns a fully scored Answer. A
// response that still fails to parse after the retry yields a degraded,
// evidence-only answer rather than an error.
func GenerateAnswer(ctx context.Context, question string, sources []retriever.SourceCandidate, llm LLM) (*core.Answer, error) {
	if len(sources) == 0 {
		return degradedAnswer(question, nil, []string{"no sources retrieved"}), nil
	}

	prompt := BuildPrompt(question, sources)
	response, err := llm.Call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	parsed, parseErr := ParseJSON(response)
	if parseErr != nil {
		response, err = llm.Call(ctx, prompt+retryInstruction)
		if err != nil {
			return nil, fmt.Errorf("regenerating answer: %w", err)
		}
		parsed, parseErr = ParseJSON(response)
	}

	if parseErr != nil {
		return degradedAnswer(question, sources, []string{"JSON parsing failed - evidence-only mode"}), nil
	}

	return validate(question, parsed, sources), nil
}

// degradedAnswer is returned when the model's response could never be
// parsed: the top three retrieved sources, no verified quotes, tier none.
func degradedAnswer(question string, sources []retriever.SourceCandidate, errs []string) *core.Answer {
	top := sources
	if len(top) > 3 {
		top = top[:3]
	}
	ids := make([]int, len(top))
	for i, s := range top {
		ids[i] = s.Index
	}

	unknowns := []string{"Answer generation failed - showing raw sources", "Please review the citations manually"}
	if len(sources) == 0 {
		// No evidence was retrieved at all: the question itself is the
		// one thing we couldn't answer, and must appear verbatim.
		unknowns = []string{question}
	}

	return &core.Answer{
		Question: question,
		Sections: []core.AnswerSection{{
			Text:       "I found relevant code but couldn't structure a complete answer. Please review the cited sources directly.",
			SourceIDs:  ids,
			Unverified: true,
		}},
		Unknowns:         unknowns,
		ConfidenceTier:   core.TierNone,
		ValidationPassed: false,
		ValidationErrors: errs,
		Citations:        buildCitations(top, ids),
	}
}

func validate(question string, parsed *RawAnswer, sources []retriever.SourceCandidate) *core.Answer {
	byIndex := make(map[int]retriever.SourceCandidate, len(sources))
	for _, s := range sources {
		byIndex[s.Index] = s
	}

	var (
		sections      []core.AnswerSection
		errs          []string
		totalQuotes   int
		verifiedQuotes int
		citedIDs      = map[int]struct{}{}
	)

	for i, rs := range parsed.Sections {
		if rs.Text == "" {
			errs = append(errs, fmt.Sprintf("section %d has no text", i))
			continue
		}
		if len(rs.SourceIDs) == 0 {
			errs = append(errs, fmt.Sprintf("section %d has no source_ids", i))
			continue
		}

		var validIDs []int
		for _, id := range rs.SourceIDs {
			if _, ok := byIndex[id]; ok {
				validIDs = append(validIDs, id)
			} else {
				errs = append(errs, fmt.Sprintf("section %d references invalid source_id %d", i, id))
			}
		}
		if len(validIDs) == 0 {
			continue
		}

		if len(rs.QuotedSpans) == 0 {
			errs = append(errs, fmt.Sprintf("section %d has no quoted_spans - claims not verifiable", i))
			sections = append(sections, core.AnswerSection{
				Text:       rs.Text,
				SourceIDs:  validIDs,
				Unverified: true,
			})
			for _, id := range validIDs {
				citedIDs[id] = struct{}{}
			}
			continue
		}

		var (
			spans          []core.QuotedSpan
			hasVerified    bool
		)
		for _, qs := range rs.QuotedSpans {
			source, ok := byIndex[qs.SourceID]
			if !ok {
				errs = append(errs, fmt.Sprintf("section %d: quote references invalid source %d", i, qs.SourceID))
				continue
			}
			totalQuotes++
			verified, rung := verifyQuoteRung(qs.Quote, source.Content)
			spans = append(spans, core.QuotedSpan{
				Quote:     qs.Quote,
				SourceIdx: qs.SourceID,
				Verified:  verified,
				MatchedBy: rung,
			})
			if verified {
				verifiedQuotes++
				hasVerified = true
			} else {
				errs = append(errs, fmt.Sprintf("section %d: quote not found in source %d", i, qs.SourceID))
			}
		}

		if !hasVerified {
			errs = append(errs, fmt.Sprintf("section %d: no quotes could be verified - rejecting section", i))
			continue
		}

		sections = append(sections, core.AnswerSection{
			Text:        rs.Text,
			SourceIDs:   validIDs,
			QuotedSpans: spans,
		})
		for _, id := range validIDs {
			citedIDs[id] = struct{}{}
		}
	}

	verifiedSections := 0
	for _, sec := range sections {
		for _, span := range sec.QuotedSpans {
			if span.Verified {
				verifiedSections++
				break
			}
		}
	}

	ids := make([]int, 0, len(citedIDs))
	for id := range citedIDs {
		ids = append(ids, id)
	}

	uniqueFiles := map[string]struct{}{}
	var scoreSum float64
	var cited []retriever.SourceCandidate
	for _, id := range ids {
		s := byIndex[id]
		uniqueFiles[s.FilePath] = struct{}{}
		scoreSum += s.Score
		cited = append(cited, s)
	}
	avgScore := 0.0
	if len(cited) > 0 {
		avgScore = scoreSum / float64(len(cited))
	}

	tier := Tier(verifiedQuotes, totalQuotes, verifiedSections, len(uniqueFiles), avgScore)

	return &core.Answer{
		Question: question,
		Sections: sections,
		Unknowns: parsed.Unknowns,
		ConfidenceTier: tier,
		ConfidenceFactors: core.ConfidenceFactors{
			VerifiedQuotes: verifiedQuotes,
			TotalQuotes:    totalQuotes,
			Sections:       verifiedSections,
			UniqueFiles:    len(uniqueFiles),
			AvgScore:       avgScore,
		},
		ValidationPassed: len(errs) == 0 && verifiedQuotes > 0,
		ValidationErrors: errs,
		Citations:        buildCitations(cited, ids),
	}
}

func buildCitations(sources []retriever.SourceCandidate, citedIDs []int) []core.Citation {
	cited := map[int]struct{}{}
	for _, id := range citedIDs {
		cited[id] = struct{}{}
	}

	citations := make([]core.Citation, 0, len(sources))
	for _, s := range sources {
		if _, ok := cited[s.Index]; len(citedIDs) > 0 && !ok {
			continue
		}
		citations = append(citations, core.Citation{
			SourceIndex: s.Index,
			FilePath:    s.FilePath,
			StartLine:   s.StartLine,
			EndLine:     s.EndLine,
			Snippet:     s.Content,
			SymbolName:  s.SymbolName,
		})
	}
	return citations
}
