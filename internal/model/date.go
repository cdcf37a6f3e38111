package model

import (
	"strings"
	"time"
)

const (
	// StorageDateFormat is the date layout of the reading file and the YAML registry.
	StorageDateFormat = "2006-01-02"
	// DisplayDateFormat is the day-month-year layout shown to users.
	DisplayDateFormat = "02.01.2006"
)

// Accepted input layouts, tried in order. Time-of-day is dropped.
var dateLayouts = []string{
	StorageDateFormat,
	DisplayDateFormat,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2.1.2006",
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts the storage form (2023-06-01), the display form
// (01.06.2023) and timestamped variants of the storage form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{Input: s, Reason: "empty"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, &InvalidDateError{Input: s, Reason: "expected YYYY-MM-DD or DD.MM.YYYY"}
}

// FormatStorage renders a date in the storage layout.
func FormatStorage(t time.Time) string {
	return t.Format(StorageDateFormat)
}

// FormatDisplay renders a date in the display layout.
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayDateFormat)
}
