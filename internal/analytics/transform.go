package analytics

// Interpolate fills internal gaps linearly by position between the nearest
// known neighbours. Leading and trailing gaps stay missing.
func Interpolate(s Series) Series {
	out := append(Series(nil), s...)
	prev := -1
	for i, p := range out {
		if !p.Valid {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			from, to := out[prev].Value, p.Value
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				out[j].Value = from + (to-from)*float64(j-prev)/span
				out[j].Valid = true
			}
		}
		prev = i
	}
	return out
}

// Cumulative returns the running sum. Points before the first known value
// are missing; later missing points carry the running total.
func Cumulative(s Series) Series {
	out := make(Series, len(s))
	var total float64
	started := false
	for i, p := range s {
		out[i].Date = p.Date
		if p.Valid {
			total += p.Value
			started = true
		}
		if started {
			out[i].Value = total
			out[i].Valid = true
		}
	}
	return out
}

// Diff returns the change between each known value and the previous known
// value, i.e. the consumption between two meter readings. The first known
// point and every missing point are missing.
func Diff(s Series) Series {
	out := make(Series, len(s))
	var prev float64
	seen := false
	for i, p := range s {
		out[i].Date = p.Date
		if !p.Valid {
			continue
		}
		if seen {
			out[i].Value = p.Value - prev
			out[i].Valid = true
		}
		prev = p.Value
		seen = true
	}
	return out
}
