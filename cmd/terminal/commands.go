package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/storage"
	"github.com/sevigo/coderadar/internal/wire"
)

func initializeAppCmd() tea.Cmd {
	return func() tea.Msg {
		application, cleanup, err := wire.InitializeApp(context.Background())
		if err != nil {
			return appInitializedMsg{err: err}
		}
		if err := application.Cfg.ValidateForCLI(); err != nil {
			cleanup()
			return appInitializedMsg{err: fmt.Errorf("cli configuration validation failed: %w", err)}
		}
		return appInitializedMsg{app: application}
	}
}

func loadReposCmd(a *app.App) tea.Cmd {
	return func() tea.Msg {
		repos, err := a.Store.GetAllRepositories(context.Background())
		return reposLoadedMsg{repos: repos, err: err}
	}
}

func answerQuestionCmd(a *app.App, repo *storage.Repository, question string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		ans, err := a.Answer(ctx, repo.ID, repo.FullName, repo.LastIndexedSHA, question)
		if err != nil {
			return errorMsg{err}
		}
		return answerCompleteMsg{rendered: renderAnswer(ans)}
	}
}

// renderAnswer turns an Answer into terminal-styled markdown: the
// confidence tier, then each section's heading and text with a note when it
// is unverified, a "sources" list of cited line ranges, and any unknowns.
// Quoted spans are not rendered.
func renderAnswer(ans *core.Answer) string {
	var md strings.Builder
	md.WriteString(fmt.Sprintf("**confidence: %s**\n\n", ans.ConfidenceTier))

	for _, sec := range ans.Sections {
		if sec.Heading != "" {
			md.WriteString("### " + sec.Heading + "\n\n")
		}
		md.WriteString(sec.Text + "\n\n")
		if sec.Unverified {
			md.WriteString("_unverified: no quoted source span found_\n\n")
		}
	}

	if len(ans.Citations) > 0 {
		md.WriteString("---\n\n**sources**\n\n")
		for _, c := range ans.Citations {
			md.WriteString(fmt.Sprintf("- `%s:%d-%d`\n", c.FilePath, c.StartLine, c.EndLine))
		}
	}

	if len(ans.Unknowns) > 0 {
		md.WriteString("\n**could not determine**\n\n")
		for _, u := range ans.Unknowns {
			md.WriteString("- " + u + "\n")
		}
	}

	out, err := glamour.Render(md.String(), "dark")
	if err != nil {
		return md.String()
	}
	return out
}
