// Package logger provides the configured zerolog root logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger for the given service name with the requested level.
// Unknown level strings fall back to info.
func New(service, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().
		Str("service", service).
		Timestamp().
		Logger()
}
