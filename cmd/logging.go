package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// setupLogging configures logger from the logging flags. --verbose and
// --quiet override --log-level. A non-empty path duplicates every message
// into that file; the returned func closes it.
func setupLogging(logger *logrus.Logger, levelName, path string, quiet, verbose bool) (func(), error) {
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", levelName)
	}
	switch {
	case verbose:
		level = logrus.DebugLevel
	case quiet:
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		logger.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
