package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/logger"
)

// provideSlogLogger builds the application logger from config, the one
// step app.NewApp doesn't do itself since it needs the logger before it
// can log its own construction.
func provideSlogLogger(cfg *config.Config) *slog.Logger {
	var w io.Writer
	switch cfg.Logging.Output {
	case "stderr":
		w = os.Stderr
	case "file":
		f, err := os.OpenFile("coderadar.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			w = os.Stdout
		} else {
			w = f
		}
	default:
		w = os.Stdout
	}
	return logger.NewLogger(cfg.Logging, w)
}
