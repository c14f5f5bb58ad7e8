package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DateFormat is the date layout used across all documents.
const DateFormat = "2006-01-02"

// InProgressDate is the sentinel date of a season that is being watched but
// has not been rated yet.
const InProgressDate = "in progress"

// ExperienceEntry is one logged viewing event. Rating is nil while a season
// is still in progress; Season is nil for movies.
type ExperienceEntry struct {
	Date   string `json:"date"`
	Rating *int   `json:"rating"`
	Season *int   `json:"season,omitempty"`
}

// InProgress reports whether the entry is the open-season placeholder.
func (e ExperienceEntry) InProgress() bool {
	return e.Date == InProgressDate
}

// Equal compares entries by value: date, rating and season must all match.
func (e ExperienceEntry) Equal(other ExperienceEntry) bool {
	return e.Date == other.Date && intPtrEqual(e.Rating, other.Rating) && intPtrEqual(e.Season, other.Season)
}

type experienceEntryJSON struct {
	Date   string          `json:"date"`
	Rating json.RawMessage `json:"rating"`
	Season json.RawMessage `json:"season,omitempty"`
}

// UnmarshalJSON tolerates the legacy encoding where an absent rating or
// season was written as an empty string instead of null.
func (e *ExperienceEntry) UnmarshalJSON(data []byte) error {
	var raw experienceEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rating, err := decodeFlexInt(raw.Rating)
	if err != nil {
		return err
	}
	season, err := decodeFlexInt(raw.Season)
	if err != nil {
		return err
	}

	e.Date = raw.Date
	e.Rating = rating
	e.Season = season
	return nil
}

// MarshalJSON writes an absent rating as an empty string so files stay
// byte-compatible with documents produced before the schema was settled.
func (e ExperienceEntry) MarshalJSON() ([]byte, error) {
	raw := experienceEntryJSON{Date: e.Date}

	if e.Rating != nil {
		raw.Rating = json.RawMessage(strconv.Itoa(*e.Rating))
	} else {
		raw.Rating = json.RawMessage(`""`)
	}
	if e.Season != nil {
		raw.Season = json.RawMessage(strconv.Itoa(*e.Season))
	}

	return json.Marshal(raw)
}

// ExperienceRecord is the full watch history of one title.
type ExperienceRecord struct {
	KpID       *int              `json:"kp_id"`
	Experience []ExperienceEntry `json:"experience"`
}

// LastSeason returns the season number of the most recent entry carrying one.
func (r *ExperienceRecord) LastSeason() *int {
	for i := len(r.Experience) - 1; i >= 0; i-- {
		if r.Experience[i].Season != nil {
			return r.Experience[i].Season
		}
	}
	return nil
}

// ExperienceLog maps a title (case-sensitive storage key) to its record.
type ExperienceLog map[string]*ExperienceRecord

// Lookup finds a record by title, matching case-insensitively, and returns
// the storage key it is filed under.
func (l ExperienceLog) Lookup(title string) (string, *ExperienceRecord, bool) {
	if rec, ok := l[title]; ok {
		return title, rec, true
	}
	for key, rec := range l {
		if strings.EqualFold(key, title) {
			return key, rec, true
		}
	}
	return "", nil, false
}

// decodeFlexInt parses an optional integer that legacy documents may have
// written as "" or omitted entirely.
func decodeFlexInt(raw json.RawMessage) (*int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil, nil
	}

	var v int
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
