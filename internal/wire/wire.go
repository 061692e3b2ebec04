//go:build wireinject
// +build wireinject

// Package wire assembles the application's dependency graph. app.NewApp
// does the actual construction; this file is the wire source that
// documents the graph for `go run github.com/google/wire/cmd/wire` to
// regenerate wire_gen.go from. Since app.NewApp takes only a loaded
// config and a logger, the remaining graph is just those two steps.
package wire

import (
	"context"

	"github.com/google/wire"
	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/config"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		config.LoadConfig,
		provideSlogLogger,
	)
	return &app.App{}, nil, nil
}
