// Package logger builds the service's zerolog root logger. Every component
// derives its own logger from this root via With().Str(...), so output format
// and level are decided once here.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfolio/quantfolio/internal/config"
)

// FromConfig builds the root logger from the loaded configuration and
// installs it as the package-level default. An unknown level string falls
// back to info rather than failing startup. Dev mode gets a human console
// writer; production emits JSON lines.
func FromConfig(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	var output io.Writer = os.Stdout
	if cfg.DevMode {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	root := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", "quantfolio").
		Logger()
	log.Logger = root
	return root
}
