// Package log holds the shared logrus logger for taskboard.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// GetLogger returns the shared logger instance.
func GetLogger() *logrus.Logger {
	return logger
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR (any case) to a logrus level.
// Anything else falls back to INFO.
func ParseLevel(level string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Configure applies a level and, when path is non-empty, redirects output to
// that file (appending). The returned closer must be called on shutdown.
func Configure(level, path string) (io.Closer, error) {
	if level != "" {
		logger.SetLevel(ParseLevel(level))
	}
	if path == "" {
		return nopCloser{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(f)
	return f, nil
}

// Discard silences the logger. Used by tests.
func Discard() {
	logger.SetOutput(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
