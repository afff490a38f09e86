// SPDX-License-Identifier: MIT
package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger creates the logger shared by every command.
func newLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.00"})
	logger.SetLevel(logrus.InfoLevel)

	return logger
}

// setLevel applies a configured level, verbose taking precedence.
func setLevel(logger *logrus.Logger, level string, verbose bool) (err error) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	logger.SetLevel(parsed)

	return
}

// setOutput redirects the logger to the configured file, rotated by size.
//
// Without a file, fallback is used.
func setOutput(logger *logrus.Logger, cfg LogConfig, fallback io.Writer) {
	if cfg.File == "" {
		logger.SetOutput(fallback)
		return
	}

	logger.SetOutput(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
}
