package models

import (
	"encoding/json"
	"strings"
)

// CurrentViewing is the in-progress state of one series season. Every entry
// in the document represents a season being watched but not yet rated.
type CurrentViewing struct {
	CurrentSeason  int  `json:"current_season"`
	CurrentEpisode int  `json:"current_episode"`
	TotalEpisodes  int  `json:"total_episodes"`
	KpID           *int `json:"kp_id"`
	InProgress     bool `json:"in_the_process_of_watching"`
}

type currentViewingJSON struct {
	CurrentSeason  json.RawMessage `json:"current_season"`
	CurrentEpisode json.RawMessage `json:"current_episode"`
	TotalEpisodes  json.RawMessage `json:"total_episodes"`
	KpID           json.RawMessage `json:"kp_id"`
	InProgress     *bool           `json:"in_the_process_of_watching"`
}

// UnmarshalJSON migrates legacy documents where numeric fields were written
// as empty strings and the in-progress flag was sometimes absent.
func (c *CurrentViewing) UnmarshalJSON(data []byte) error {
	var raw currentViewingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	season, err := decodeFlexInt(raw.CurrentSeason)
	if err != nil {
		return err
	}
	episode, err := decodeFlexInt(raw.CurrentEpisode)
	if err != nil {
		return err
	}
	total, err := decodeFlexInt(raw.TotalEpisodes)
	if err != nil {
		return err
	}
	kpID, err := decodeFlexInt(raw.KpID)
	if err != nil {
		return err
	}

	c.CurrentSeason = intOrZero(season)
	c.CurrentEpisode = intOrZero(episode)
	c.TotalEpisodes = intOrZero(total)
	c.KpID = kpID

	// Presence in the document means the season is open; the flag is
	// normalized rather than trusted.
	c.InProgress = true
	if raw.InProgress != nil {
		c.InProgress = *raw.InProgress
	}

	return nil
}

// ProgressPercent returns floor(episode/total*100), or 0 when the total is
// unknown.
func (c *CurrentViewing) ProgressPercent() int {
	if c.TotalEpisodes <= 0 {
		return 0
	}
	return c.CurrentEpisode * 100 / c.TotalEpisodes
}

// CurrentViewingState maps a title to its open season.
type CurrentViewingState map[string]*CurrentViewing

// Lookup finds an entry by title, matching case-insensitively, and returns
// the storage key it is filed under.
func (s CurrentViewingState) Lookup(title string) (string, *CurrentViewing, bool) {
	if cur, ok := s[title]; ok {
		return title, cur, true
	}
	for key, cur := range s {
		if strings.EqualFold(key, title) {
			return key, cur, true
		}
	}
	return "", nil, false
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
