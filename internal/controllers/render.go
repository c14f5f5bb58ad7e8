package controllers

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"kinolog/internal/config"
	"kinolog/internal/models"
	"kinolog/internal/services/kinopoisk"
)

// RenderResult summarizes one render pass.
type RenderResult struct {
	Written   int
	Unchanged int
	Skipped   int
}

// RenderController projects the merged documents into per-title Markdown
// notes. Writes are hash-gated: an unchanged note is never rewritten, so a
// second run with no new input touches nothing.
type RenderController struct {
	docs         *Documents
	notesFolder  string
	filenameRepl *strings.Replacer
	contentRepl  *strings.Replacer
	now          func() time.Time
	logger       *logrus.Logger
}

// NewRenderController creates a new render controller
func NewRenderController(docs *Documents, cfg *config.Config, logger *logrus.Logger) *RenderController {
	return &RenderController{
		docs:         docs,
		notesFolder:  cfg.NotesFolder,
		filenameRepl: newReplacer(cfg.FilenameReplacements),
		contentRepl:  newReplacer(cfg.ContentReplacements),
		now:          time.Now,
		logger:       logger,
	}
}

// RenderAll renders a note for every title with an experience record or an
// open season. Per-title failures are logged and skipped; only an
// uncreatable output folder aborts the batch.
func (c *RenderController) RenderAll() (*RenderResult, error) {
	result := &RenderResult{}

	if len(c.docs.Experience) == 0 && len(c.docs.Current) == 0 {
		return result, nil
	}

	if err := os.MkdirAll(c.notesFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create notes folder: %w", err)
	}

	view := c.renderView()

	localIDs := make(map[int]bool, len(view))
	for _, rec := range view {
		if rec.KpID != nil {
			localIDs[*rec.KpID] = true
		}
	}

	titles := make([]string, 0, len(view))
	for title := range view {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		rec := view[title]

		if rec.KpID == nil {
			c.logger.WithField("title", title).Error("Title unresolved, skipping note")
			result.Skipped++
			continue
		}

		entry, ok := c.docs.Catalog.Get(*rec.KpID)
		if !ok {
			c.logger.WithFields(logrus.Fields{
				"title": title,
				"kp_id": *rec.KpID,
			}).Error("No cached catalog entry, skipping note")
			result.Skipped++
			continue
		}

		content := c.buildNote(title, rec, entry, localIDs)
		path := filepath.Join(c.notesFolder, c.noteFilename(title, entry))

		wrote, err := c.writeNote(path, content)
		if err != nil {
			c.logger.WithError(err).WithField("title", title).Error("Failed to write note")
			result.Skipped++
			continue
		}
		if wrote {
			result.Written++
		} else {
			result.Unchanged++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"written":   result.Written,
		"unchanged": result.Unchanged,
		"skipped":   result.Skipped,
	}).Info("Notes rendered")

	return result, nil
}

// renderView copies the experience log and augments it with an in-progress
// placeholder per open season. The augmentation is render-only and never
// persisted; a title holds at most one placeholder.
func (c *RenderController) renderView() models.ExperienceLog {
	view := make(models.ExperienceLog, len(c.docs.Experience)+len(c.docs.Current))

	for title, rec := range c.docs.Experience {
		view[title] = &models.ExperienceRecord{
			KpID:       rec.KpID,
			Experience: append([]models.ExperienceEntry(nil), rec.Experience...),
		}
	}

	for title, cur := range c.docs.Current {
		season := cur.CurrentSeason
		placeholder := models.ExperienceEntry{Date: models.InProgressDate, Season: &season}

		if _, rec, ok := view.Lookup(title); ok {
			open := false
			for _, entry := range rec.Experience {
				if entry.InProgress() {
					open = true
					break
				}
			}
			if !open {
				rec.Experience = append(rec.Experience, placeholder)
			}
			continue
		}

		view[title] = &models.ExperienceRecord{
			KpID:       cur.KpID,
			Experience: []models.ExperienceEntry{placeholder},
		}
	}

	return view
}

// relatedTitles is the filtered sequels-and-prequels projection: the table
// rows plus the notification lists surfaced in the frontmatter.
type relatedTitles struct {
	rows   [][]string
	titles []string
	links  []string
}

// relatedSection filters sequelsAndPrequels: entries without a name or
// poster, future-dated entries and exception-listed entries are dropped.
// Titles already tracked locally become wiki cross-references instead of
// notification candidates.
func (c *RenderController) relatedSection(entry *models.CatalogEntry, localIDs map[int]bool) relatedTitles {
	related := relatedTitles{}
	currentYear := c.now().Year()

	for _, item := range entry.SequelsAndPrequels {
		if item.Name == "" || item.Poster == nil || item.Poster.URL == "" {
			continue
		}
		if item.Year > currentYear {
			continue
		}
		if c.docs.Exceptions.ContainsID(item.ID) || c.docs.Exceptions.ContainsTitle(item.Name) {
			continue
		}

		pageURL := kinopoisk.PageURL(item.ID)

		if localIDs[item.ID] {
			clean := c.filenameRepl.Replace(item.Name)
			related.rows = append(related.rows, []string{
				fmt.Sprintf("<img src=%s width='400'><br>[[%s]]", item.Poster.URL, clean),
			})
			continue
		}

		displayName := item.Name
		if item.Year > 0 {
			displayName = fmt.Sprintf("%s (%d)", item.Name, item.Year)
		}

		related.rows = append(related.rows, []string{
			fmt.Sprintf("<img src=%s width='400'><br>[%s](%s)", item.Poster.URL, item.Name, pageURL),
		})
		related.titles = append(related.titles, fmt.Sprintf("[%s](%s)", displayName, pageURL))
		related.links = append(related.links, item.Poster.URL)
	}

	return related
}

// buildNote assembles the full Markdown document for one title.
func (c *RenderController) buildNote(title string, rec *models.ExperienceRecord, entry *models.CatalogEntry, localIDs map[int]bool) string {
	related := c.relatedSection(entry, localIDs)

	lines := []string{"---"}
	lines = append(lines, c.frontmatter(title, rec, entry, related)...)
	lines = append(lines, "---", fmt.Sprintf("<img src=%s width=\"400\">", entry.PosterURL()))

	if dates := c.viewingTable(rec, entry); dates != "" {
		lines = append(lines, "", dates)
	}
	if ratings := c.ratingTable(rec, entry); ratings != "" {
		lines = append(lines, "", ratings)
	}

	lines = append(lines, "", "## Description", "", entry.Description)

	if relatedTable := markdownTable([]string{"Sequels and prequels"}, related.rows); relatedTable != "" {
		lines = append(lines, "", relatedTable)
	}

	return strings.Join(lines, "\n") + "\n"
}

// frontmatter builds the ordered key:value block. Map iteration would
// shuffle the keys between runs and defeat the hash gate.
func (c *RenderController) frontmatter(title string, rec *models.ExperienceRecord, entry *models.CatalogEntry, related relatedTitles) []string {
	genres := make([]string, 0, len(entry.Genres))
	for _, genre := range entry.Genres {
		genres = append(genres, genre.Name)
	}

	var viewingDates []string
	for _, e := range rec.Experience {
		if e.Date != "" {
			viewingDates = append(viewingDates, e.Date)
		}
	}

	lines := []string{
		"tag: " + formatList([]string{"#Cinematograph"}),
		"year: " + strconv.Itoa(entry.Year),
		"genres: " + formatList(genres),
		"poster: " + entry.PosterURL(),
		"viewing_dates: " + formatList(viewingDates),
		"sequels_and_prequels_titles: " + formatList(related.titles),
		"sequels_and_prequels_links: " + formatList(related.links),
		"sequels_and_prequels: " + strconv.FormatBool(len(related.titles) > 0),
	}

	if newSeasons, known := c.newSeasons(title, rec, entry); known {
		lines = append(lines, "new_seasons: "+strconv.FormatBool(newSeasons))
	}

	if _, cur, ok := c.docs.Current.Lookup(title); ok {
		percent := cur.ProgressPercent()
		lines = append(lines,
			"current_season: "+strconv.Itoa(cur.CurrentSeason),
			"current_episode: "+strconv.Itoa(cur.CurrentEpisode),
			"total_episodes: "+strconv.Itoa(cur.TotalEpisodes),
			fmt.Sprintf("progress: <progress max=100 value=%d> </progress> %d%%", percent, percent),
			"in_the_process_of_watching: true",
		)
	}

	return lines
}

// newSeasons reports whether the catalog lists a season newer than the last
// recorded one. known is false when there is no recorded season to compare
// against.
func (c *RenderController) newSeasons(title string, rec *models.ExperienceRecord, entry *models.CatalogEntry) (bool, bool) {
	if !entry.IsSeries {
		return false, false
	}
	if len(entry.SeasonsInfo) == 0 {
		return false, true
	}
	if c.docs.Exceptions.ContainsID(entry.ID) || c.docs.Exceptions.ContainsTitle(title) {
		return false, true
	}

	lastRecorded := rec.LastSeason()
	if lastRecorded == nil {
		return false, false
	}

	lastCatalog := entry.SeasonsInfo[len(entry.SeasonsInfo)-1].Number
	return lastCatalog > *lastRecorded, true
}

// viewingTable renders the watch history: date, season and rating for a
// series, dates only for a movie.
func (c *RenderController) viewingTable(rec *models.ExperienceRecord, entry *models.CatalogEntry) string {
	if !entry.IsSeries {
		rows := make([][]string, 0, len(rec.Experience))
		for _, e := range rec.Experience {
			rows = append(rows, []string{e.Date})
		}
		return markdownTable([]string{"Watch date"}, rows)
	}

	rows := make([][]string, 0, len(rec.Experience))
	for _, e := range rec.Experience {
		rows = append(rows, []string{e.Date, formatIntPtr(e.Season), formatIntPtr(e.Rating)})
	}
	return markdownTable([]string{"Watch date", "Season", "Rating"}, rows)
}

// ratingTable compares catalog scores with the personal one. A series gets
// catalog scores only, since its personal rating varies per season.
func (c *RenderController) ratingTable(rec *models.ExperienceRecord, entry *models.CatalogEntry) string {
	kp := formatScore(entry.Rating.KP)
	imdb := formatScore(entry.Rating.IMDB)

	if entry.IsSeries {
		return markdownTable([]string{"Kinopoisk", "IMDb"}, [][]string{{kp, imdb}})
	}

	mine := ""
	if len(rec.Experience) > 0 {
		mine = formatIntPtr(rec.Experience[len(rec.Experience)-1].Rating)
	}
	return markdownTable([]string{"Kinopoisk", "IMDb", "Mine"}, [][]string{{kp, imdb, mine}})
}

// noteFilename prefers the catalog's canonical name; a name shared by two or
// more cached entries falls back to the log title so notes never clobber
// each other.
func (c *RenderController) noteFilename(title string, entry *models.CatalogEntry) string {
	name := entry.Name
	if name == "" || c.docs.Catalog.CountByName(name) >= 2 {
		name = title
	}

	name = c.filenameRepl.Replace(name)
	name = norm.NFC.String(name)

	return name + ".md"
}

// writeNote writes the normalized content only when its hash differs from
// the normalized on-disk content, reporting whether a write happened.
func (c *RenderController) writeNote(path, content string) (bool, error) {
	normalized := c.contentRepl.Replace(content)
	sum := md5.Sum([]byte(normalized))

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		existingSum := md5.Sum([]byte(c.contentRepl.Replace(string(existing))))
		if existingSum == sum {
			return false, nil
		}
		c.logger.WithField("file", filepath.Base(path)).Info("Note changed")
	case os.IsNotExist(err):
		c.logger.WithField("file", filepath.Base(path)).Info("New note")
	default:
		return false, fmt.Errorf("failed to read existing note: %w", err)
	}

	if err := os.WriteFile(path, []byte(normalized), 0644); err != nil {
		return false, fmt.Errorf("failed to write note: %w", err)
	}

	return true, nil
}

// markdownTable renders a Markdown table, or "" when there are no rows.
func markdownTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	return tw.RenderMarkdown()
}

// formatList renders a YAML flow sequence for the frontmatter.
func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// newReplacer builds a replacer with longest patterns first so overlapping
// replacements (CRLF variants) resolve deterministically.
func newReplacer(replacements map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(replacements))
	for key := range replacements {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, replacements[key])
	}

	return strings.NewReplacer(pairs...)
}
