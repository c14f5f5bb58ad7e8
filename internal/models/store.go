package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Load reads a JSON document from path. A missing file or a file that fails
// to parse yields the default value: a corrupt cache must not take the whole
// run down, so failures are logged and absorbed here.
func Load[T any](path string, def T, logger *logrus.Logger) T {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.WithField("path", path).Debug("Document not found, using default")
		} else {
			logger.WithError(err).WithField("path", path).Error("Failed to read document, using default")
		}
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.WithError(err).WithField("path", path).Error("Failed to parse document, using default")
		return def
	}

	return v
}

// Save writes a document as pretty-printed UTF-8 JSON, overwriting whatever
// is at path. HTML escaping is off so URLs survive round trips readably.
func Save(v any, path string, logger *logrus.Logger) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(v); err != nil {
		logger.WithError(err).WithField("path", path).Error("Failed to encode document")
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		logger.WithError(err).WithField("path", path).Error("Failed to write document")
		return fmt.Errorf("failed to write document: %w", err)
	}

	return nil
}
