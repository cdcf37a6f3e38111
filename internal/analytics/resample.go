package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is a resampling interval.
type Bucket int

const (
	Daily Bucket = iota
	Weekly
	Monthly
	Annual
)

// ParseBucket accepts the timeframe codes used by the chart API (D, W, M, Y)
// and their spelled-out names.
func ParseBucket(s string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return Daily, nil
	case "w", "week", "weekly":
		return Weekly, nil
	case "m", "month", "monthly":
		return Monthly, nil
	case "y", "a", "year", "annual", "yearly":
		return Annual, nil
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}

func (b Bucket) String() string {
	switch b {
	case Daily:
		return "D"
	case Weekly:
		return "W"
	case Monthly:
		return "M"
	case Annual:
		return "Y"
	}
	return fmt.Sprintf("Bucket(%d)", int(b))
}

// Mode selects how observations inside a bucket are combined.
type Mode int

const (
	Sum Mode = iota
	Mean
)

// End returns the last day of the bucket containing date. Weeks end on
// Sunday; months and years are calendar periods.
func (b Bucket) End(date time.Time) time.Time {
	y, m, d := date.Date()
	switch b {
	case Weekly:
		return time.Date(y, m, d+(7-int(date.Weekday()))%7, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	case Annual:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Resample groups the series into contiguous buckets from the first to the
// last point's bucket, each labeled with the bucket's last day.
//
// In Sum mode a bucket without observations is a valid 0. In Mean mode it
// is missing.
func Resample(s Series, b Bucket, mode Mode) Series {
	if len(s) == 0 {
		return Series{}
	}

	type acc struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*acc)
	for _, p := range s {
		end := b.End(p.Date)
		a, ok := buckets[end]
		if !ok {
			a = &acc{}
			buckets[end] = a
		}
		if p.Valid {
			a.sum += p.Value
			a.count++
		}
	}

	last := b.End(s[len(s)-1].Date)
	var out Series
	for end := b.End(s[0].Date); !end.After(last); end = b.End(end.AddDate(0, 0, 1)) {
		a := buckets[end]
		switch {
		case a != nil && a.count > 0 && mode == Mean:
			out = append(out, Point{Date: end, Value: a.sum / float64(a.count), Valid: true})
		case a != nil && a.count > 0:
			out = append(out, Point{Date: end, Value: a.sum, Valid: true})
		case mode == Sum:
			out = append(out, Point{Date: end, Value: 0, Valid: true})
		default:
			out = append(out, Point{Date: end})
		}
	}
	return out
}
