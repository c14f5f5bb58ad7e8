package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kinolog/internal/models"
	"kinolog/internal/prompt"
	"kinolog/internal/services/kinopoisk"
)

// ErrResolutionAbandoned means no search candidate was confirmed for a
// title. The title stays unresolved and is retried on the next run.
var ErrResolutionAbandoned = errors.New("no catalog candidate confirmed")

// ResolverController binds an unresolved title to a catalog id: first from
// local documents, then by a search-and-confirm loop against the catalog.
// Confirmation is always human-in-the-loop; the first accepted candidate
// wins.
type ResolverController struct {
	docs      *Documents
	client    catalogClient
	prompter  prompt.Prompter
	threshold time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewResolverController creates a new resolver controller
func NewResolverController(docs *Documents, client catalogClient, prompter prompt.Prompter, threshold time.Duration, logger *logrus.Logger) *ResolverController {
	return &ResolverController{
		docs:      docs,
		client:    client,
		prompter:  prompter,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// Resolve returns the catalog id for a title, learning and caching it if
// necessary. Quota failures propagate so the caller can stop remote work
// for the rest of the run.
func (c *ResolverController) Resolve(ctx context.Context, title string) (int, error) {
	// Step 1: local lookup, current viewing state first.
	if id, ok := c.lookupLocal(title); ok {
		if c.docs.Catalog.HasID(id) {
			c.propagate(title, id)
			return id, nil
		}

		// Step 2: a known id without cached metadata gets re-confirmed
		// before an expensive full fetch; rejection falls through to
		// a fresh search.
		question := fmt.Sprintf("Cached id for %q points to %s. Is that the right page?", title, kinopoisk.PageURL(id))
		if c.prompter.Confirm(question) {
			entry, err := c.client.GetByID(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("failed to fetch confirmed id %d: %w", id, err)
			}
			if err := c.adopt(ctx, title, entry); err != nil {
				return 0, err
			}
			return id, nil
		}

		c.logger.WithFields(logrus.Fields{
			"title": title,
			"kp_id": id,
		}).Info("Cached id rejected, searching the catalog")
	}

	// Step 3: remote search, candidates presented in catalog order.
	candidates, err := c.client.Search(ctx, title)
	if err != nil {
		return 0, err
	}

	for i := range candidates {
		question := fmt.Sprintf("Is %s the right page for %q?", kinopoisk.PageURL(candidates[i].ID), title)
		if !c.prompter.Confirm(question) {
			continue
		}

		// adopt mutates the entry; the search result may be a shared
		// memoized slice, so it gets a copy.
		candidate := candidates[i]
		if err := c.adopt(ctx, title, &candidate); err != nil {
			return 0, err
		}
		return candidate.ID, nil
	}

	c.logger.WithField("title", title).Warn("No candidate confirmed, title stays unresolved")
	return 0, fmt.Errorf("resolution of %q: %w", title, ErrResolutionAbandoned)
}

// lookupLocal checks the current viewing state, then prior experience
// records, for an already-known id.
func (c *ResolverController) lookupLocal(title string) (int, bool) {
	if _, cur, ok := c.docs.Current.Lookup(title); ok && cur.KpID != nil {
		return *cur.KpID, true
	}
	if _, rec, ok := c.docs.Experience.Lookup(title); ok && rec.KpID != nil {
		return *rec.KpID, true
	}
	return 0, false
}

// adopt caches a freshly confirmed entry and propagates its id into the
// documents that referenced the title. date_update is backdated by one
// threshold period so the next refresh pass fills in anything the search
// response omitted.
func (c *ResolverController) adopt(ctx context.Context, title string, entry *models.CatalogEntry) error {
	images, err := c.client.GetImages(ctx, entry.ID)
	if err != nil {
		if kinopoisk.IsQuotaExceeded(err) {
			return err
		}
		c.logger.WithError(err).WithField("kp_id", entry.ID).Error("Failed to fetch images, keeping entry without them")
	}
	entry.Images = images

	entry.DateUpdate = c.now().Add(-c.threshold).Format(models.DateFormat)
	c.docs.Catalog.Put(entry)
	c.propagate(title, entry.ID)

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"kp_id": entry.ID,
		"name":  entry.Name,
	}).Info("Title resolved")

	return nil
}

// propagate writes the learned id into every document holding the title,
// replacing a stale id if confirmation picked a different page.
func (c *ResolverController) propagate(title string, id int) {
	if _, rec, ok := c.docs.Experience.Lookup(title); ok {
		rec.KpID = &id
	}
	if _, cur, ok := c.docs.Current.Lookup(title); ok {
		cur.KpID = &id
	}
}
