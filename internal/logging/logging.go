// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sends logs to stderr through a console writer. level is a zerolog
// level name; debug forces debug level.
func Setup(level string, debug bool) {
	setLevel(level, debug)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// SetupFile sends logs to path, for when stderr belongs to a full screen UI.
// The returned closer must be called on exit.
func SetupFile(path string, level string, debug bool) (io.Closer, error) {
	setLevel(level, debug)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

// Discard silences logging entirely.
func Discard() {
	log.Logger = zerolog.Nop()
}

func setLevel(level string, debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
