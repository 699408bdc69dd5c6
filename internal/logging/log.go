// Package logging wraps zerolog behind the printf-style leveled
// helpers used throughout the program.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	// Level gates D() calls: a debug message prints when its level is
	// strictly below Level.
	Level int
)

// Setup points the logger at the console plus a log file, creating
// parent directories as needed. Safe to skip; the package default logs
// to stdout only.
func Setup(logFilePath string, debugLevel int) error {
	mu.Lock()
	defer mu.Unlock()

	Level = debugLevel

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}}
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
		}
		writers = append(writers, f)
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if debugLevel > 0 {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return nil
}

// I logs informational messages.
func I(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// S logs success messages.
func S(format string, args ...any) {
	logger.Info().Str("outcome", "success").Msgf(format, args...)
}

// W logs warnings.
func W(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// E logs errors.
func E(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// D logs debug messages gated by verbosity level.
func D(l int, format string, args ...any) {
	if l >= Level {
		return
	}
	logger.Debug().Msgf(format, args...)
}
