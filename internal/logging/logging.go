// Package logging builds the *slog.Logger handed to the stores, adapter and
// runner. Records go through charmbracelet/log, either as text on stderr or
// as JSON lines in a rotated file, and always through [RedactingHandler].
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for file output.
const (
	DefaultMaxSizeMB = 10
	DefaultMaxFiles  = 5
)

// ErrLevel is returned for an unknown level name.
var ErrLevel = errors.New("invalid log level")

// Options configure [New].
type Options struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// File, when set, receives JSON lines instead of Stderr.
	File string
	// Stderr receives text output when File is empty.
	Stderr io.Writer

	MaxSizeMB int
	MaxFiles  int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its output. The closer must be
// called once logging is finished.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = "warn"
	}

	level, err := charmlog.ParseLevel(levelName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrLevel, levelName)
	}

	if opts.File == "" {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}

		handler := charmlog.NewWithOptions(out, charmlog.Options{
			Level:     level,
			Prefix:    "authdoc",
			Formatter: charmlog.TextFormatter,
		})

		return slog.New(NewRedactingHandler(handler)), nopCloser{}, nil
	}

	writer, err := NewRotatingWriter(RotationConfig{
		File:      opts.File,
		MaxSizeMB: opts.MaxSizeMB,
		MaxFiles:  opts.MaxFiles,
	})
	if err != nil {
		return nil, nil, err
	}

	handler := charmlog.NewWithOptions(writer, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		Formatter:       charmlog.JSONFormatter,
	})

	return slog.New(NewRedactingHandler(handler)), writer, nil
}

// RotationConfig configures [NewRotatingWriter].
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// NewRotatingWriter opens a size-rotated log file, creating its directory.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, errors.New("rotation file path must not be empty")
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}

	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}

	err := os.MkdirAll(filepath.Dir(cfg.File), 0o700)
	if err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
	}, nil
}
