// Package logging configures the process-wide logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures level, format and an optional log file. Messages always
// go to stderr; with a log file set they are duplicated there.
func Setup(level, logFile string) error {
	parsed := logrus.InfoLevel
	if level != "" {
		var err error
		parsed, err = logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", logFile, err)
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}
