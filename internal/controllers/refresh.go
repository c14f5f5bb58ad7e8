package controllers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"kinolog/internal/models"
	"kinolog/internal/services/kinopoisk"
)

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Refreshed  int
	Resolved   int
	Unresolved int
	Failed     int
	QuotaHit   bool
}

// RefreshController re-fetches cached catalog entries that have gone stale
// and routes titles without an id (or without cached metadata) to the
// resolver. A quota rejection halts all remaining remote work for the run;
// untouched entries simply stay eligible for the next one.
type RefreshController struct {
	docs      *Documents
	client    catalogClient
	resolver  *ResolverController
	threshold time.Duration
	delay     time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewRefreshController creates a new refresh controller
func NewRefreshController(docs *Documents, client catalogClient, resolver *ResolverController, threshold, delay time.Duration, logger *logrus.Logger) *RefreshController {
	return &RefreshController{
		docs:      docs,
		client:    client,
		resolver:  resolver,
		threshold: threshold,
		delay:     delay,
		now:       time.Now,
		logger:    logger,
	}
}

// RefreshAll walks every tracked title once. Per-title failures are logged
// and contained; the documents are persisted afterwards regardless, so
// everything already fetched survives.
func (c *RefreshController) RefreshAll(ctx context.Context) *RefreshResult {
	result := &RefreshResult{}
	apiAvailable := true
	calls := 0

	// Pacing between remote calls: crude, fixed, deliberately not adaptive.
	pace := func() {
		if calls > 0 && c.delay > 0 {
			time.Sleep(c.delay)
		}
		calls++
	}

	for _, title := range c.trackedTitles() {
		id, hasID := c.knownID(title)

		if !hasID || !c.docs.Catalog.HasID(id) {
			if !apiAvailable {
				result.Unresolved++
				continue
			}

			pace()
			resolvedID, err := c.resolver.Resolve(ctx, title)
			switch {
			case err == nil:
				c.logger.WithFields(logrus.Fields{
					"title": title,
					"kp_id": resolvedID,
				}).Info("Resolved during refresh")
				result.Resolved++
			case kinopoisk.IsQuotaExceeded(err):
				c.logger.WithField("title", title).Warn("Quota exceeded, skipping all remaining remote calls this run")
				apiAvailable = false
				result.QuotaHit = true
				result.Unresolved++
			case errors.Is(err, ErrResolutionAbandoned):
				result.Unresolved++
			default:
				c.logger.WithError(err).WithField("title", title).Error("Resolution failed")
				result.Failed++
			}
			continue
		}

		entry, _ := c.docs.Catalog.Get(id)
		if !entry.IsStale(c.now(), c.threshold) {
			continue
		}
		if !apiAvailable {
			continue
		}

		pace()
		if err := c.refreshEntry(ctx, id); err != nil {
			if kinopoisk.IsQuotaExceeded(err) {
				c.logger.WithField("title", title).Warn("Quota exceeded, skipping all remaining remote calls this run")
				apiAvailable = false
				result.QuotaHit = true
			} else {
				c.logger.WithError(err).WithField("title", title).Error("Refresh failed")
				result.Failed++
			}
			continue
		}
		result.Refreshed++
	}

	if err := c.docs.SaveCatalog(); err != nil {
		c.logger.WithError(err).Error("Failed to persist catalog cache")
	}
	if err := c.docs.SaveExperience(); err != nil {
		c.logger.WithError(err).Error("Failed to persist experience log")
	}
	if err := c.docs.SaveCurrent(); err != nil {
		c.logger.WithError(err).Error("Failed to persist current viewing state")
	}

	c.logger.WithFields(logrus.Fields{
		"refreshed":  result.Refreshed,
		"resolved":   result.Resolved,
		"unresolved": result.Unresolved,
		"failed":     result.Failed,
	}).Info("Catalog refresh completed")

	return result
}

// refreshEntry re-fetches the full record and its images, stamping both
// update dates with now. date_update never regresses because a successful
// fetch is the only writer.
func (c *RefreshController) refreshEntry(ctx context.Context, id int) error {
	fresh, err := c.client.GetByID(ctx, id)
	if err != nil {
		return err
	}

	today := c.now().Format(models.DateFormat)
	fresh.DateUpdate = today

	images, err := c.client.GetImages(ctx, id)
	if err != nil {
		if kinopoisk.IsQuotaExceeded(err) {
			return err
		}
		c.logger.WithError(err).WithField("kp_id", id).Error("Image refresh failed, keeping previously cached images")
		if old, ok := c.docs.Catalog.Get(id); ok {
			fresh.Images = old.Images
			fresh.DateImageUpdate = old.DateImageUpdate
		}
	} else {
		fresh.Images = images
		fresh.DateImageUpdate = today
	}

	c.docs.Catalog.Put(fresh)

	return nil
}

// trackedTitles returns every title referenced by the experience log or the
// current viewing state, sorted for a deterministic walk order.
func (c *RefreshController) trackedTitles() []string {
	titles := make([]string, 0, len(c.docs.Experience)+len(c.docs.Current))

	for title := range c.docs.Experience {
		titles = append(titles, title)
	}
	for title := range c.docs.Current {
		if _, _, ok := c.docs.Experience.Lookup(title); ok {
			continue
		}
		titles = append(titles, title)
	}

	sort.Strings(titles)
	return titles
}

// knownID returns the title's catalog id from the experience log or the
// current viewing state.
func (c *RefreshController) knownID(title string) (int, bool) {
	if _, rec, ok := c.docs.Experience.Lookup(title); ok && rec.KpID != nil {
		return *rec.KpID, true
	}
	if _, cur, ok := c.docs.Current.Lookup(title); ok && cur.KpID != nil {
		return *cur.KpID, true
	}
	return 0, false
}
