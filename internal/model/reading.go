package model

import "time"

// Reading is one row of the reading file: all meter values entered for a date.
type Reading struct {
	Date   time.Time        // UTC midnight
	Values map[string]Value // keyed by column; absent key == missing
}

// NewReading returns a Reading for date with no values set.
func NewReading(date time.Time) Reading {
	return Reading{Date: Day(date), Values: make(map[string]Value)}
}

// Get returns the value of column, Missing if unset.
func (r Reading) Get(column string) Value {
	return r.Values[column]
}

// Set stores v under column.
func (r *Reading) Set(column string, v Value) {
	if r.Values == nil {
		r.Values = make(map[string]Value)
	}
	r.Values[column] = v
}

// Clone returns a deep copy.
func (r Reading) Clone() Reading {
	values := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Reading{Date: r.Date, Values: values}
}

// Equal reports whether both readings carry the same date and the same values
// for every column either of them sets.
func (r Reading) Equal(o Reading) bool {
	if !r.Date.Equal(o.Date) {
		return false
	}
	for k, v := range r.Values {
		if o.Values[k] != v {
			return false
		}
	}
	for k, v := range o.Values {
		if r.Values[k] != v {
			return false
		}
	}
	return true
}
