package models

import (
	"strconv"
	"time"
)

// Genre is one catalog genre label.
type Genre struct {
	Name string `json:"name"`
}

// Poster holds catalog image URLs.
type Poster struct {
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// Rating holds the catalog's aggregate scores.
type Rating struct {
	KP   float64 `json:"kp"`
	IMDB float64 `json:"imdb"`
}

// SeasonInfo describes one season of a series.
type SeasonInfo struct {
	Number        int `json:"number"`
	EpisodesCount int `json:"episodesCount"`
}

// RelatedTitle is a sequel or prequel reference returned by the catalog.
type RelatedTitle struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type,omitempty"`
	Year   int     `json:"year,omitempty"`
	Poster *Poster `json:"poster"`
}

// ImageDoc is one still image attached to a catalog entry.
type ImageDoc struct {
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Type       string `json:"type,omitempty"`
	Height     int    `json:"height,omitempty"`
	Width      int    `json:"width,omitempty"`
}

// CatalogEntry is cached metadata for one title, in the shape the catalog
// API returns it, plus the local date_update bookkeeping fields.
type CatalogEntry struct {
	ID                 int            `json:"id"`
	Name               string         `json:"name"`
	AlternativeName    string         `json:"alternativeName,omitempty"`
	Year               int            `json:"year"`
	Description        string         `json:"description"`
	IsSeries           bool           `json:"isSeries"`
	Genres             []Genre        `json:"genres"`
	Poster             *Poster        `json:"poster"`
	Rating             Rating         `json:"rating"`
	SeasonsInfo        []SeasonInfo   `json:"seasonsInfo,omitempty"`
	SequelsAndPrequels []RelatedTitle `json:"sequelsAndPrequels,omitempty"`
	Images             []ImageDoc     `json:"images,omitempty"`
	DateUpdate         string         `json:"date_update,omitempty"`
	DateImageUpdate    string         `json:"date_image_update,omitempty"`
}

// PosterURL returns the poster URL or "" when the catalog has none.
func (e *CatalogEntry) PosterURL() string {
	if e.Poster == nil {
		return ""
	}
	return e.Poster.URL
}

// UpdatedAt parses date_update. ok is false when the field is missing or
// malformed, which callers must treat as infinitely stale.
func (e *CatalogEntry) UpdatedAt() (time.Time, bool) {
	if e.DateUpdate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateFormat, e.DateUpdate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsStale reports whether the entry needs a refresh at the given moment.
func (e *CatalogEntry) IsStale(now time.Time, threshold time.Duration) bool {
	updated, ok := e.UpdatedAt()
	if !ok {
		return true
	}
	return now.Sub(updated) > threshold
}

// EpisodesInSeason returns the episode count the catalog reports for the
// given season number, or 0 when the season is unknown.
func (e *CatalogEntry) EpisodesInSeason(season int) int {
	for _, info := range e.SeasonsInfo {
		if info.Number == season {
			return info.EpisodesCount
		}
	}
	return 0
}

// CatalogCache maps a decimal catalog id to its cached entry.
type CatalogCache map[string]*CatalogEntry

// Get returns the cached entry for a catalog id.
func (c CatalogCache) Get(id int) (*CatalogEntry, bool) {
	entry, ok := c[strconv.Itoa(id)]
	return entry, ok
}

// Put stores an entry under its own id.
func (c CatalogCache) Put(entry *CatalogEntry) {
	c[strconv.Itoa(entry.ID)] = entry
}

// HasID reports whether the cache holds an entry for the id.
func (c CatalogCache) HasID(id int) bool {
	_, ok := c.Get(id)
	return ok
}

// CountByName counts cached entries sharing a canonical name. A count of two
// or more means the name cannot serve as a unique note filename.
func (c CatalogCache) CountByName(name string) int {
	count := 0
	for _, entry := range c {
		if entry.Name == name {
			count++
		}
	}
	return count
}
