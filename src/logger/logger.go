package logger

import (
	"fmt"
	"io"
	"ml_dashboard/src/model"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger = zerolog.Nop()

// New builds a logger from the configuration without touching globals.
// The returned closer releases the log file when output is "file".
func New(config model.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level '%s': %w", config.Level, err)
	}

	var output io.Writer
	var closer io.Closer = io.NopCloser(nil)
	switch strings.ToLower(config.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	case "file":
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file '%s': %w", config.FilePath, err)
		}
		output = file
		closer = file
	default:
		return zerolog.Nop(), nil, fmt.Errorf("unknown log output '%s'", config.Output)
	}

	if strings.ToLower(config.Format) == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	l := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("app", "ml_dashboard").
		Logger()
	return l, closer, nil
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(config model.LogConfig) (io.Closer, error) {
	switch strings.ToLower(config.TimeFormat) {
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "iso8601":
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	l, closer, err := New(config)
	if err != nil {
		return nil, err
	}
	Logger = l

	// Also set the global zerolog logger for compatibility
	log.Logger = Logger

	Logger.Debug().
		Str("level", config.Level).
		Str("format", config.Format).
		Str("output", config.Output).
		Msg("Logger initialized")

	return closer, nil
}
