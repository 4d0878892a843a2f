package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level represents the severity threshold for emitted log records
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Config holds logger configuration
type Config struct {
	Level      Level
	OutputFile string // Path to log file (empty = stderr only)
	JSONFormat bool   // Use JSON format (text otherwise)
	AddSource  bool   // Add source file and line number
}

var (
	setupOnce sync.Once
	setupErr  error
)

// Initialize configures the process-wide default slog logger. Components
// derive their own loggers from slog.Default() with a "component"
// attribute, so this must run before any of them are constructed.
func Initialize(config Config) error {
	setupOnce.Do(func() {
		logger, err := NewLogger(config)
		if err != nil {
			setupErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		slog.SetDefault(logger)
	})
	return setupErr
}

// NewLogger builds a slog.Logger from the given configuration without
// touching the process default.
func NewLogger(config Config) (*slog.Logger, error) {
	var writers []io.Writer
	writers = append(writers, os.Stderr)

	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		writers = append(writers, file)
	}

	multi := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(multi, opts)
	} else {
		handler = slog.NewTextHandler(multi, opts)
	}

	return slog.New(handler), nil
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}
