// Package logger configures the process-wide zerolog logger used by the
// host and plugin layers. The embedded engine keeps its own pion/logging
// factory, see pkg/engine.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global log level and output and returns the configured
// logger. An unknown level falls back to info.
func Init(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if out == nil {
		out = os.Stderr
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
