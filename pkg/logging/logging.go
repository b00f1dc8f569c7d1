// Package logging builds the zerolog logger shared by the CLI and the tree
// controller.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the level and an optional log file.
type Options struct {
	Level string // zerolog level name; unknown names mean info
	File  string // Empty means console only
	// Console receives human-readable output. Defaults to stderr; set it to
	// io.Discard when a TUI owns the terminal.
	Console io.Writer
}

var (
	mu      sync.Mutex
	logger  = zerolog.Nop()
	logFile *os.File
)

// ParseLevel parses level, falling back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Init replaces the process logger. A previously opened log file is closed
// first.
func Init(opts Options) (zerolog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return logger, err
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return logger, err
		}
		logFile = f
		writers = append(writers, f)
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
	return logger, nil
}

// Logger returns the process logger; a no-op logger before Init.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Close closes the log file, if any, and resets the process logger to a
// no-op logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logger = zerolog.Nop()
}

func closeLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
