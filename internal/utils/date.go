package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseUserDate parses the short date forms used when logging a viewing:
// "D" (day of the current month), "M D" (month and day of the current year)
// and "Y M D". A day or month that has not happened yet is taken to mean the
// most recent past occurrence, so "31" entered on the 3rd refers to the
// previous month.
func ParseUserDate(now time.Time, input string) (time.Time, error) {
	fields := strings.Fields(input)

	var year, month, day int

	switch len(fields) {
	case 1:
		d, err := strconv.Atoi(fields[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day %q: %w", fields[0], err)
		}

		day = d
		month = int(now.Month())
		year = now.Year()

		if day > now.Day() {
			prev := now.AddDate(0, 0, -now.Day())
			month = int(prev.Month())
			year = prev.Year()
		}
	case 2:
		m, err := strconv.Atoi(fields[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid month %q: %w", fields[0], err)
		}
		d, err := strconv.Atoi(fields[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day %q: %w", fields[1], err)
		}

		month = m
		day = d
		year = now.Year()

		if month > int(now.Month()) || (month == int(now.Month()) && day > now.Day()) {
			year--
		}
	case 3:
		y, err := strconv.Atoi(fields[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid year %q: %w", fields[0], err)
		}
		m, err := strconv.Atoi(fields[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid month %q: %w", fields[1], err)
		}
		d, err := strconv.Atoi(fields[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day %q: %w", fields[2], err)
		}

		year, month, day = y, m, d
	default:
		return time.Time{}, fmt.Errorf("expected 1 to 3 date fields, got %d", len(fields))
	}

	parsed := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if parsed.Day() != day || int(parsed.Month()) != month {
		return time.Time{}, fmt.Errorf("no such date: year %d month %d day %d", year, month, day)
	}

	return parsed, nil
}
