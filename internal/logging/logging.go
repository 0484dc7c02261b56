// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much is logged.
type Options struct {
	// File is the log file; relative paths resolve against Dir.
	File string
	Dir  string

	// Level is one of debug, info, warn or error.
	Level string

	// Tee also writes records to this writer (stderr for serve). The TUI
	// leaves it nil because anything on the terminal corrupts the screen.
	Tee io.Writer
}

// Setup installs a default logger writing to a rotating file and returns a
// function that closes it.
func Setup(opts Options) (func() error, error) {
	path := opts.File
	if path == "" {
		path = "erpdesk.log"
	}
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logWriter := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var w io.Writer = logWriter
	if opts.Tee != nil {
		w = io.MultiWriter(opts.Tee, logWriter)
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	slog.SetDefault(slog.New(h))
	return logWriter.Close, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
