// Package answer turns a question plus a set of retrieved sources into a
// proof-carrying Answer: every claim section must anchor to a verbatim
// quote from a cited source, verified before the section is accepted.
package answer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/sevigo/coderadar/internal/retriever"
)

//go:embed prompts/answer.prompt
var promptFS embed.FS

var promptTemplate = template.Must(template.ParseFS(promptFS, "prompts/answer.prompt"))

type promptData struct {
	Question string
	Sources  string
}

// BuildPrompt composes the three literal elements of the answer prompt:
// the question, the numbered sources block, and the strict JSON schema
// baked into the template itself.
func BuildPrompt(question string, sources []retriever.SourceCandidate) string {
	var sourcesBlock strings.Builder
	for i, s := range sources {
		if i > 0 {
			sourcesBlock.WriteString("\n\n")
		}
		label := fmt.Sprintf("[Source %d] %s:%d-%d", s.Index, s.FilePath, s.StartLine, s.EndLine)
		if s.SymbolName != "" {
			label += fmt.Sprintf(" (%s)", s.SymbolName)
		}
		sourcesBlock.WriteString(label)
		sourcesBlock.WriteString("\n```\n")
		sourcesBlock.WriteString(s.Content)
		sourcesBlock.WriteString("\n```")
	}

	var buf bytes.Buffer
	// template execution on a fixed, compile-time-validated template never
	// fails at runtime; the error is only reachable if the embedded prompt
	// itself is malformed.
	_ = promptTemplate.Execute(&buf, promptData{Question: question, Sources: sourcesBlock.String()})
	return buf.String()
}
