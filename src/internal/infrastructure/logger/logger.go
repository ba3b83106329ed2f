// Package logger provides the process-wide structured logger for gameops tasks.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	instance *logrus.Logger
	once     sync.Once
	mu       sync.Mutex
	logFile  *os.File
)

// Config holds logger configuration.
type Config struct {
	Level string
	// Format is "text" (default) or "json".
	Format   string
	FilePath string
	// Output overrides stderr, mainly for tests.
	Output io.Writer
}

// Initialize sets up the global logger instance.
func Initialize(cfg Config) error {
	var err error
	once.Do(func() {
		instance = logrus.New()

		level, parseErr := logrus.ParseLevel(cfg.Level)
		if parseErr != nil {
			level = logrus.InfoLevel
		}
		instance.SetLevel(level)

		if cfg.Format == "json" {
			instance.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: time.RFC3339,
			})
		} else {
			instance.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: time.TimeOnly,
			})
		}

		var out io.Writer = os.Stderr
		if cfg.Output != nil {
			out = cfg.Output
		}

		if cfg.FilePath != "" {
			err = setupFileOutput(cfg)
			if err == nil && logFile != nil {
				out = io.MultiWriter(out, logFile)
			}
		}
		instance.SetOutput(out)
	})

	return err
}

func setupFileOutput(cfg Config) error {
	logDir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	mu.Lock()
	logFile = file
	mu.Unlock()
	return nil
}

// Get returns the logger instance, initializing it with defaults on first use.
func Get() *logrus.Logger {
	if instance == nil {
		if err := Initialize(Config{Level: "info"}); err != nil {
			instance = logrus.New()
		}
	}
	return instance
}

// WithField creates an entry with a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

// WithFields creates an entry with multiple fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

// WithError creates an entry carrying err.
func WithError(err error) *logrus.Entry {
	return Get().WithError(err)
}

// Close releases the log file and allows re-initialization.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		if instance != nil {
			instance.SetOutput(os.Stderr)
		}
		_ = logFile.Close() //nolint:errcheck // switching back to stderr
		logFile = nil
	}
	instance = nil
	once = sync.Once{}
}
