// Package correction layers meter change offsets over the raw reading table.
//
// Raw readings are what the user entered; the corrected table is derived on
// demand and never persisted.
package correction

import (
	"github.com/meterbook-dev/meterbook/internal/model"
)

// Apply returns a corrected copy of table. For every registry column that is
// part of the table schema, changes are applied in ascending date order and
// each change adds its offset to every present value dated on or after the
// change. Missing values stay missing. Registry columns the table does not
// have are ignored. The input table is not modified.
func Apply(table *model.Table, reg model.Registry) *model.Table {
	out := table.Clone()
	rows := out.Readings()

	for _, column := range reg.Columns() {
		if !out.HasColumn(column) {
			continue
		}
		for _, change := range reg.Sorted(column) {
			for i := range rows {
				if rows[i].Date.Before(change.Date) {
					continue
				}
				v := rows[i].Get(column)
				if !v.Valid {
					continue
				}
				rows[i].Set(column, model.Int(v.V+change.Offset))
			}
		}
	}
	return out
}

// Adjustment describes how one meter change affected the table.
type Adjustment struct {
	Change   model.MeterChange
	Affected int  // present values the offset was added to
	Ignored  bool // column not in the table schema
}

// Summary reports, per change, how many readings it touches. Changes are
// listed by column name, then date.
func Summary(table *model.Table, reg model.Registry) []Adjustment {
	var out []Adjustment
	for _, column := range reg.Columns() {
		known := table.HasColumn(column)
		for _, change := range reg.Sorted(column) {
			adj := Adjustment{Change: change, Ignored: !known}
			if known {
				for _, r := range table.Readings() {
					if !r.Date.Before(change.Date) && r.Get(column).Valid {
						adj.Affected++
					}
				}
			}
			out = append(out, adj)
		}
	}
	return out
}
