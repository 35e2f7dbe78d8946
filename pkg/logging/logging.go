// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/config"
)

const defaultLogFilePermissions fs.FileMode = 0644

// New returns a logger writing to stderr, or to cfg.File when set.
// Structured selects JSON output.
func New(cfg config.Logging) (*logrus.Logger, error) {
	var output io.Writer = os.Stderr
	if cfg.File != "" {
		logFile, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, defaultLogFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("unable to setup log file: %w", err)
		}
		output = logFile
	}

	return NewWithOutput(cfg, output)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(cfg config.Logging, output io.Writer) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(level)

	if cfg.Structured {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}

	return logger, nil
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
