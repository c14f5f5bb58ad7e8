package controllers

import (
	"context"

	"github.com/sirupsen/logrus"

	"kinolog/internal/config"
	"kinolog/internal/models"
)

// Documents is the in-memory working set of one run: the four flat JSON
// documents, mutated in place and persisted at checkpoints.
type Documents struct {
	Experience models.ExperienceLog
	Catalog    models.CatalogCache
	Current    models.CurrentViewingState
	Exceptions models.Exceptions

	cfg    *config.Config
	logger *logrus.Logger
}

// LoadDocuments reads all four documents, falling back to empty defaults for
// anything absent or corrupt.
func LoadDocuments(cfg *config.Config, logger *logrus.Logger) *Documents {
	return &Documents{
		Experience: models.Load(cfg.ExperienceFile, models.ExperienceLog{}, logger),
		Catalog:    models.Load(cfg.CatalogFile, models.CatalogCache{}, logger),
		Current:    models.Load(cfg.CurrentFile, models.CurrentViewingState{}, logger),
		Exceptions: models.Load(cfg.ExceptionsFile, models.Exceptions{}, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// SaveExperience persists the experience log checkpoint.
func (d *Documents) SaveExperience() error {
	return models.Save(d.Experience, d.cfg.ExperienceFile, d.logger)
}

// SaveCatalog persists the catalog cache checkpoint.
func (d *Documents) SaveCatalog() error {
	return models.Save(d.Catalog, d.cfg.CatalogFile, d.logger)
}

// SaveCurrent persists the current-viewing checkpoint.
func (d *Documents) SaveCurrent() error {
	return models.Save(d.Current, d.cfg.CurrentFile, d.logger)
}

// SaveExceptions persists the exception list.
func (d *Documents) SaveExceptions() error {
	return models.Save(d.Exceptions, d.cfg.ExceptionsFile, d.logger)
}

// catalogClient is the surface of the Kinopoisk client the controllers
// depend on.
type catalogClient interface {
	Search(ctx context.Context, title string) ([]models.CatalogEntry, error)
	GetByID(ctx context.Context, id int) (*models.CatalogEntry, error)
	GetImages(ctx context.Context, id int) ([]models.ImageDoc, error)
}
