// Package obs provides the ambient observability stack: structured logging
// via zerolog and request-scoped Prometheus metrics. Grounded on
// jhkimqd-chaos-utils/pkg/reporting/logger.go (LoggerConfig{Level,Format}
// shape, text vs JSON output) and its monitoring package's use of
// github.com/prometheus/client_golang.
package obs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwmdev/transitpath/internal/config"
)

// NewLogger builds a zerolog.Logger from a LoggingConfig. Format "text"
// yields a human-readable console writer (development use); anything else
// (including the zero value) yields JSON, matching the teacher's
// LogFormatJSON default.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339, NoColor: false}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	switch cfg.Level {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}
