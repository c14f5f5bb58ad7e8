package controllers

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"kinolog/internal/config"
	"kinolog/internal/models"
	"kinolog/internal/services/kinopoisk"
)

// testLogger returns a logger that swallows output.
func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testConfig builds a configuration rooted in a temp directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		APIKey:              "test-key",
		HTTPTimeoutSeconds:  1,
		RequestDelaySeconds: 0,
		UpdateThresholdDays: 120,
		ExperienceFile:      filepath.Join(dir, "experience.json"),
		CatalogFile:         filepath.Join(dir, "catalog_cache.json"),
		CurrentFile:         filepath.Join(dir, "current_viewing.json"),
		ExceptionsFile:      filepath.Join(dir, "exceptions.json"),
		NotesFolder:         filepath.Join(dir, "notes"),
		FilenameReplacements: map[string]string{
			":": "",
			"?": "",
			"/": " ",
			"—": "–",
		},
		ContentReplacements: map[string]string{
			"\r\n ": "\n",
			"\r\n":  "\n",
			"\r ":   "\n\n",
			"\r":    "\n\n",
		},
		LogLevel: "debug",
	}
}

// testDocuments builds an empty in-memory working set over a temp directory.
func testDocuments(t *testing.T) *Documents {
	t.Helper()
	return LoadDocuments(testConfig(t), testLogger())
}

// scriptedPrompter replays canned answers.
type scriptedPrompter struct {
	confirms []bool
	inputs   []string
}

func (p *scriptedPrompter) Confirm(string) bool {
	if len(p.confirms) == 0 {
		return false
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer
}

func (p *scriptedPrompter) Input(string) string {
	if len(p.inputs) == 0 {
		return ""
	}
	answer := p.inputs[0]
	p.inputs = p.inputs[1:]
	return answer
}

// fakeCatalog is a scripted catalogClient that counts remote calls.
type fakeCatalog struct {
	searchResults map[string][]models.CatalogEntry
	entries       map[int]*models.CatalogEntry
	images        map[int][]models.ImageDoc
	err           error
	imagesErr     error

	searchCalls int
	fetchCalls  int
	imageCalls  int
}

func (f *fakeCatalog) Search(_ context.Context, title string) ([]models.CatalogEntry, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.searchResults[title], nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int) (*models.CatalogEntry, error) {
	f.fetchCalls++
	if f.err != nil {
		return nil, f.err
	}
	if entry, ok := f.entries[id]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, &kinopoisk.APIError{StatusCode: 404, Body: "not found"}
}

func (f *fakeCatalog) GetImages(_ context.Context, id int) ([]models.ImageDoc, error) {
	f.imageCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return f.images[id], nil
}

func (f *fakeCatalog) calls() int {
	return f.searchCalls + f.fetchCalls + f.imageCalls
}

func intPtr(v int) *int {
	return &v
}
