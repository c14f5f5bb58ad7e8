package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"kinolog/internal/models"
	"kinolog/internal/prompt"
)

// MergeController appends viewing events into the experience log and keeps
// the current-viewing state consistent with them.
type MergeController struct {
	docs     *Documents
	prompter prompt.Prompter
	logger   *logrus.Logger
}

// NewMergeController creates a new merge controller
func NewMergeController(docs *Documents, prompter prompt.Prompter, logger *logrus.Logger) *MergeController {
	return &MergeController{
		docs:     docs,
		prompter: prompter,
		logger:   logger,
	}
}

// RecordMovie logs one movie viewing. Recording the identical (date, rating)
// pair twice is suppressed by value equality.
func (c *MergeController) RecordMovie(title string, date time.Time, rating int) error {
	entry := models.ExperienceEntry{
		Date:   date.Format(models.DateFormat),
		Rating: &rating,
	}

	c.appendEntry(title, entry)
	return c.docs.SaveExperience()
}

// RecordSeriesSeason logs a rated season. The rated season is no longer in
// progress, so the title's current-viewing entry is removed and any
// persisted in-progress placeholder for that season is replaced.
func (c *MergeController) RecordSeriesSeason(title string, date time.Time, rating, season int) error {
	entry := models.ExperienceEntry{
		Date:   date.Format(models.DateFormat),
		Rating: &rating,
		Season: &season,
	}

	key, rec, ok := c.docs.Experience.Lookup(title)
	if ok {
		kept := rec.Experience[:0]
		for _, existing := range rec.Experience {
			if existing.InProgress() && (existing.Season == nil || *existing.Season == season) {
				continue
			}
			kept = append(kept, existing)
		}
		rec.Experience = kept
	} else {
		key = title
	}

	c.appendEntry(key, entry)

	if curKey, _, ok := c.docs.Current.Lookup(title); ok {
		delete(c.docs.Current, curKey)
		if err := c.docs.SaveCurrent(); err != nil {
			return err
		}
	}

	return c.docs.SaveExperience()
}

// RecordEpisodeProgress creates or advances the in-progress state of a
// series season. It reports a cold start when the title has never been seen
// by the catalog cache, so the caller can run resolution and a full note
// regeneration pass.
func (c *MergeController) RecordEpisodeProgress(title string, season, episode, totalEpisodes int) (bool, error) {
	key, cur, ok := c.docs.Current.Lookup(title)
	if !ok {
		key = title
		cur = &models.CurrentViewing{InProgress: true}
		if _, rec, found := c.docs.Experience.Lookup(title); found {
			cur.KpID = rec.KpID
		}
		c.docs.Current[key] = cur
	}

	if cur.CurrentSeason != season {
		cur.TotalEpisodes = 0
	}
	cur.CurrentSeason = season
	cur.CurrentEpisode = episode

	if totalEpisodes > 0 {
		cur.TotalEpisodes = totalEpisodes
	}
	if cur.TotalEpisodes == 0 {
		total, err := c.totalEpisodes(title, cur, season)
		if err != nil {
			return false, err
		}
		cur.TotalEpisodes = total
	}

	coldStart := cur.KpID == nil || !c.docs.Catalog.HasID(*cur.KpID)
	if coldStart {
		c.logger.WithField("title", title).Info("Title unknown to the catalog cache, full regeneration needed")
	}

	c.logger.WithFields(logrus.Fields{
		"title":   key,
		"season":  season,
		"episode": episode,
		"total":   cur.TotalEpisodes,
	}).Info("Episode progress recorded")

	return coldStart, c.docs.SaveCurrent()
}

// totalEpisodes defaults the season length from cached catalog metadata and
// falls back to asking the user.
func (c *MergeController) totalEpisodes(title string, cur *models.CurrentViewing, season int) (int, error) {
	if cur.KpID != nil {
		if entry, ok := c.docs.Catalog.Get(*cur.KpID); ok {
			if count := entry.EpisodesInSeason(season); count > 0 {
				return count, nil
			}
		}
	}

	for attempt := 0; attempt < 3; attempt++ {
		answer := c.prompter.Input(fmt.Sprintf("Total episodes in season %d of %q", season, title))
		total, err := strconv.Atoi(answer)
		if err == nil && total > 0 {
			return total, nil
		}
	}

	return 0, fmt.Errorf("no valid episode total given for %q season %d", title, season)
}

// appendEntry upserts an entry into a title's record, suppressing exact
// duplicates.
func (c *MergeController) appendEntry(title string, entry models.ExperienceEntry) {
	key, rec, ok := c.docs.Experience.Lookup(title)
	if !ok {
		key = title
		rec = &models.ExperienceRecord{}
		c.docs.Experience[key] = rec
	}

	for _, existing := range rec.Experience {
		if existing.Equal(entry) {
			c.logger.WithFields(logrus.Fields{
				"title": key,
				"date":  entry.Date,
			}).Info("Entry already recorded, skipping")
			return
		}
	}

	rec.Experience = append(rec.Experience, entry)
	c.logger.WithFields(logrus.Fields{
		"title": key,
		"date":  entry.Date,
	}).Info("Entry recorded")
}
