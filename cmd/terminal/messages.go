package main

import (
	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/storage"
)

// appInitializedMsg reports that the core application services are ready.
type appInitializedMsg struct {
	app *app.App
	err error
}

type reposLoadedMsg struct {
	repos []*storage.Repository
	err   error
}

// answerCompleteMsg carries a question's answer already rendered to
// terminal-styled markdown.
type answerCompleteMsg struct{ rendered string }

// errorMsg is a generic error reported by a command.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
