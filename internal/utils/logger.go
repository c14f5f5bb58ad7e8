package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a new configured logger. When logFolder is non-empty, a
// per-run log file is created under logFolder/<subfolder>/ in addition to
// console output.
func NewLogger(level, logFolder, subfolder string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Parse log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if logFolder != "" {
		dir := filepath.Join(logFolder, subfolder)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.WithError(err).Warn("Failed to create log folder, logging to console only")
			return logger
		}

		name := time.Now().Format("2006-01-02 15-04-05") + ".log"
		file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Failed to create log file, logging to console only")
			return logger
		}

		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return logger
}
