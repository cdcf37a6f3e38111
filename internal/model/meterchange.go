package model

import (
	"sort"
	"time"
)

// MeterChange is a correction record: Offset is added to every reading of
// Column dated on or after Date.
type MeterChange struct {
	Date   time.Time
	Column string
	Offset int64
	Reason string
}

// Registry maps a metric column to its meter changes.
type Registry map[string][]MeterChange

// Sorted returns the changes for column in ascending date order without
// touching the registry. Changes sharing a date keep their document order.
func (r Registry) Sorted(column string) []MeterChange {
	changes := append([]MeterChange(nil), r[column]...)
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Date.Before(changes[j].Date)
	})
	return changes
}

// Columns returns the registry's column names in sorted order.
func (r Registry) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Len returns the total number of changes across all columns.
func (r Registry) Len() int {
	n := 0
	for _, changes := range r {
		n += len(changes)
	}
	return n
}
