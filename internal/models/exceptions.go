package models

import (
	"strconv"
	"strings"
)

// Exceptions is the set of titles and catalog ids excluded from new-season
// and related-title notifications. Ids are stored in decimal string form.
type Exceptions []string

// ContainsTitle checks a title against the list, case-insensitively.
func (e Exceptions) ContainsTitle(title string) bool {
	for _, value := range e {
		if strings.EqualFold(value, title) {
			return true
		}
	}
	return false
}

// ContainsID checks a catalog id against the list.
func (e Exceptions) ContainsID(id int) bool {
	decimal := strconv.Itoa(id)
	for _, value := range e {
		if value == decimal {
			return true
		}
	}
	return false
}

// Add appends values that are not already present and reports whether the
// list changed.
func (e *Exceptions) Add(values ...string) bool {
	changed := false
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || e.contains(value) {
			continue
		}
		*e = append(*e, value)
		changed = true
	}
	return changed
}

func (e Exceptions) contains(value string) bool {
	for _, existing := range e {
		if existing == value {
			return true
		}
	}
	return false
}
