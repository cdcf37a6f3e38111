package model

import (
	"slices"
	"sort"
	"time"
)

// Table is the date-indexed reading table. Readings are kept in ascending
// date order and no two readings share a date.
type Table struct {
	Columns  []string // metric columns in header order, date column excluded
	readings []Reading
}

// NewTable returns an empty table with the given schema.
func NewTable(columns []string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of readings.
func (t *Table) Len() int {
	return len(t.readings)
}

// Readings returns the readings in ascending date order. The slice must be
// treated as read-only.
func (t *Table) Readings() []Reading {
	return t.readings
}

// HasColumn reports whether column is part of the table schema.
func (t *Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Get returns the reading at date.
func (t *Table) Get(date time.Time) (Reading, bool) {
	i, ok := t.search(Day(date))
	if !ok {
		return Reading{}, false
	}
	return t.readings[i], true
}

// Upsert inserts r, replacing any reading with the same date. It reports
// whether an existing reading was replaced.
func (t *Table) Upsert(r Reading) bool {
	r.Date = Day(r.Date)
	i, ok := t.search(r.Date)
	if ok {
		t.readings[i] = r
		return true
	}
	t.readings = slices.Insert(t.readings, i, r)
	return false
}

// Delete removes the reading at date and reports whether one was present.
func (t *Table) Delete(date time.Time) bool {
	i, ok := t.search(Day(date))
	if !ok {
		return false
	}
	t.readings = slices.Delete(t.readings, i, i+1)
	return true
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns:  slices.Clone(t.Columns),
		readings: make([]Reading, len(t.readings)),
	}
	for i, r := range t.readings {
		out.readings[i] = r.Clone()
	}
	return out
}

func (t *Table) search(date time.Time) (int, bool) {
	i := sort.Search(len(t.readings), func(i int) bool {
		return !t.readings[i].Date.Before(date)
	})
	return i, i < len(t.readings) && t.readings[i].Date.Equal(date)
}
