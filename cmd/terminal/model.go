package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/storage"
)

const asciiLogo = `
╔═════════════════════════════════════════════════════════════════════════════════════════════════╗
║                                                                                                 ║
║       ██████╗ ██████╗ ██████╗ ███████╗   ██████╗  █████╗ ██████╗  █████╗ ██████╗              ║
║      ██╔════╝██╔═══██╗██╔══██╗██╔════╝   ██╔══██╗██╔══██╗██╔══██╗██╔══██╗██╔══██╗             ║
║      ██║     ██║   ██║██║  ██║█████╗     ██████╔╝███████║██║  ██║███████║██████╔╝             ║
║      ██║     ██║   ██║██║  ██║██╔══╝     ██╔══██╗██╔══██║██║  ██║██╔══██║██╔══██╗             ║
║      ╚██████╗╚██████╔╝██████╔╝███████╗   ██║  ██║██║  ██║██████╔╝██║  ██║██║  ██║             ║
║       ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝             ║
║                                                                                                 ║
║                          PROOF-CARRYING ANSWERS OVER YOUR CODEBASE                              ║
║                                                                                                 ║
╚═════════════════════════════════════════════════════════════════════════════════════════════════╝
`

// model is the terminal's Bubble Tea state: a scrollback viewport, a single-
// line input, and the repository currently selected as the question target.
type model struct {
	styles styles
	app    *app.App

	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool

	selected       *storage.Repository
	availableRepos []*storage.Repository
	history        []string
}

func initialModel(theme ThemeName) *model {
	s := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Ask a question about the selected repository..."
	ta.Focus()
	ta.Prompt = s.prompt.Render("> ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:    s,
		textarea:  ta,
		spinner:   sp,
		isLoading: true,
		history:   []string{s.ascii.Render(asciiLogo), "", "connecting..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(), m.spinner.Tick)
}

func (m *model) appendLine(lines ...string) {
	m.history = append(m.history, lines...)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd, spCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case appInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			fmt.Fprintf(os.Stderr, "error initializing app: %v\n", msg.err)
			m.appendLine("", m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.app = msg.app
		return m, loadReposCmd(m.app)

	case reposLoadedMsg:
		if msg.err != nil {
			m.appendLine("", m.styles.error.Render("could not load repositories: "+msg.err.Error()))
			return m, nil
		}
		m.availableRepos = msg.repos
		if len(m.availableRepos) == 0 {
			m.appendLine("", m.styles.inactive.Render("no indexed repositories found; index one with `cie index <url>` first"))
		} else if len(m.availableRepos) == 1 {
			m.selected = m.availableRepos[0]
			m.appendLine("", m.styles.success.Render("selected "+m.selected.FullName))
		} else {
			m.appendLine("", m.styles.inactive.Render(fmt.Sprintf("%d repositories indexed. use /select [owner/name]", len(m.availableRepos))))
		}
		m.appendLine("", "type /help for commands, or ask a question directly.")
		return m, nil

	case answerCompleteMsg:
		m.isLoading = false
		m.appendLine("", msg.rendered)
		return m, nil

	case errorMsg:
		m.isLoading = false
		m.appendLine("", m.styles.error.Render("! "+msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.app == nil {
		return fmt.Sprintf("\n  %s starting up...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.selected != nil {
		statusParts = append(statusParts, "repo: "+m.selected.FullName)
	} else {
		statusParts = append(statusParts, "repo: none selected")
	}
	if m.app.Cfg != nil {
		statusParts = append(statusParts, fmt.Sprintf("llm: %s (%s)", m.app.Cfg.AI.GeneratorModel, m.app.Cfg.AI.LLMProvider))
	}
	status := m.styles.inactive.Render(strings.Join(statusParts, " | "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("working...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left, m.textarea.View(), loadingIndicator),
			),
			status,
		),
	)
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendLine(m.styles.prompt.Render("> ") + input)

	parts := strings.Fields(input)
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/select":
		if len(args) != 1 {
			m.appendLine(m.styles.error.Render("usage: /select [owner/name]"))
			return nil
		}
		for _, r := range m.availableRepos {
			if r.FullName == args[0] {
				m.selected = r
				m.appendLine(m.styles.success.Render("selected " + r.FullName))
				return nil
			}
		}
		m.appendLine(m.styles.error.Render("unknown repository: " + args[0]))
		return nil

	case "/list", "/ls":
		if len(m.availableRepos) == 0 {
			m.appendLine(m.styles.inactive.Render("no repositories indexed yet"))
			return nil
		}
		var b strings.Builder
		b.WriteString(m.styles.success.Render("indexed repositories:"))
		for _, r := range m.availableRepos {
			mark := " "
			if m.selected != nil && r.FullName == m.selected.FullName {
				mark = "*"
			}
			b.WriteString(fmt.Sprintf("\n %s %s", mark, r.FullName))
		}
		m.appendLine(b.String())
		return nil

	case "/help", "/h":
		m.appendLine("", m.styles.success.Render("commands:")+`
  /select [owner/name]   set the active repository
  /list, /ls             list indexed repositories
  /help                  show this message
  /exit, /quit           exit

any other input is treated as a question about the selected repository.`)
		return nil

	case "/exit", "/quit":
		return tea.Quit

	default:
		if m.selected == nil {
			m.appendLine(m.styles.error.Render("no repository selected; use /select [owner/name]"))
			return nil
		}
		m.isLoading = true
		m.appendLine("", m.styles.command.Render("thinking..."))
		return tea.Batch(m.spinner.Tick, answerQuestionCmd(m.app, m.selected, input))
	}
}
