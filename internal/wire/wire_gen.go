// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/config"
)

// InitializeApp loads configuration, builds the logger, and constructs the
// application. app.NewApp owns the rest of the dependency graph (database,
// cloner, analyzers, embedder, dispatcher, retrieval stack); this function
// exists only to give cmd/cie a single entry point that doesn't need to
// know the construction order.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := provideSlogLogger(cfg)

	application, cleanup, err := app.NewApp(ctx, cfg, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return application, cleanup, nil
}
