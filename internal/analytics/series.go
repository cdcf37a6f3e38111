// Package analytics derives aggregates and statistics from a corrected
// reading table.
//
// Missing observations are carried as points with Valid == false and never
// count as zero unless a function says so.
package analytics

import (
	"time"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Point is one observation of a series.
type Point struct {
	Date  time.Time
	Value float64
	Valid bool
}

// Series is an ordered (ascending date) sequence of points for one metric.
type Series []Point

// FromTable extracts the series of column, one point per reading, including
// readings where the value is missing.
func FromTable(table *model.Table, column string) (Series, error) {
	if !table.HasColumn(column) {
		return nil, &model.MetricNotFoundError{Column: column}
	}
	out := make(Series, 0, table.Len())
	for _, r := range table.Readings() {
		v := r.Get(column)
		out = append(out, Point{Date: r.Date, Value: float64(v.V), Valid: v.Valid})
	}
	return out, nil
}

// Known returns only the present points.
func (s Series) Known() Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Valid {
			out = append(out, p)
		}
	}
	return out
}

// Values returns the present values in order.
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, p := range s {
		if p.Valid {
			out = append(out, p.Value)
		}
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
