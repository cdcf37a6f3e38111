package model

import "strconv"

// Value is a nullable whole-unit meter value. The zero Value is missing.
type Value struct {
	V     int64
	Valid bool
}

// Int returns a present Value.
func Int(v int64) Value {
	return Value{V: v, Valid: true}
}

// Missing is the absent Value.
var Missing = Value{}

// String renders the value, or "" when missing.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.V, 10)
}

// Ptr returns nil for a missing value, which is how JSON views expose it.
func (v Value) Ptr() *int64 {
	if !v.Valid {
		return nil
	}
	n := v.V
	return &n
}
