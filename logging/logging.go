// Package logging constructs the engine's zerolog.Logger, grounded on the
// level/format switch ws_poc's servers apply over the same library.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a Logger writing to stdout, either structured JSON or a
// console-friendly format, at the given level.
func New(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer = os.Stdout
	logger := zerolog.New(writer).With().Timestamp().Logger()

	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer}).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
