package analytics

import (
	"math"
	"sort"
	"time"
)

// Comparison is a year-over-year comparison of yearly averages.
type Comparison struct {
	ReferenceYear  int
	CurrentYearAvg float64
	PriorYearAvg   float64
	ChangePercent  float64
	Available      bool // false when either year lacks data or the prior average is 0
}

// YearOverYear compares the average of referenceYear with the year before,
// over present observations only.
func YearOverYear(s Series, referenceYear int) Comparison {
	var current, prior []float64
	for _, p := range s {
		if !p.Valid {
			continue
		}
		switch p.Date.Year() {
		case referenceYear:
			current = append(current, p.Value)
		case referenceYear - 1:
			prior = append(prior, p.Value)
		}
	}

	c := Comparison{ReferenceYear: referenceYear}
	if len(current) == 0 || len(prior) == 0 {
		return c
	}
	c.CurrentYearAvg = mean(current)
	c.PriorYearAvg = mean(prior)
	if c.PriorYearAvg == 0 {
		return c
	}
	c.ChangePercent = (c.CurrentYearAvg - c.PriorYearAvg) / c.PriorYearAvg * 100
	c.Available = true
	return c
}

// MonthAverage is the mean of one calendar month across all years.
type MonthAverage struct {
	Month time.Month
	Value float64
	Valid bool
}

// Profile is the seasonal profile of a series. PeakMonth and LowMonth are 0
// when the series has no observations.
type Profile struct {
	MonthlyAverages [12]MonthAverage
	PeakMonth       time.Month
	LowMonth        time.Month
}

// SeasonalProfile averages observations per calendar month across years.
// Ties for peak and low go to the lowest month number.
func SeasonalProfile(s Series) Profile {
	var sums [12]float64
	var counts [12]int
	for _, p := range s {
		if !p.Valid {
			continue
		}
		m := p.Date.Month() - 1
		sums[m] += p.Value
		counts[m]++
	}

	var prof Profile
	for i := range prof.MonthlyAverages {
		avg := MonthAverage{Month: time.Month(i + 1)}
		if counts[i] > 0 {
			avg.Value = sums[i] / float64(counts[i])
			avg.Valid = true
		}
		prof.MonthlyAverages[i] = avg
	}

	for _, avg := range prof.MonthlyAverages {
		if !avg.Valid {
			continue
		}
		if prof.PeakMonth == 0 || avg.Value > prof.MonthlyAverages[prof.PeakMonth-1].Value {
			prof.PeakMonth = avg.Month
		}
		if prof.LowMonth == 0 || avg.Value < prof.MonthlyAverages[prof.LowMonth-1].Value {
			prof.LowMonth = avg.Month
		}
	}
	return prof
}

// DetectAnomalies flags observations whose absolute deviation from the
// series mean exceeds twice the population standard deviation.
func DetectAnomalies(s Series) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	values := s.Values()
	if len(values) < 2 {
		return out
	}

	mu := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mu) * (v - mu)
	}
	sigma := math.Sqrt(sq / float64(len(values)))
	if sigma == 0 {
		return out
	}

	for _, p := range s {
		if p.Valid && math.Abs(p.Value-mu) > 2*sigma {
			out[p.Date] = p.Value
		}
	}
	return out
}

// Pivot holds month -> year -> mean.
type Pivot map[time.Month]map[int]float64

// Years returns every year present in the pivot, ascending.
func (p Pivot) Years() []int {
	seen := make(map[int]bool)
	for _, byYear := range p {
		for y := range byYear {
			seen[y] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// PivotByMonthYear averages present observations per (month, year).
// Cells without observations are absent.
func PivotByMonthYear(s Series) Pivot {
	type key struct {
		month time.Month
		year  int
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, p := range s {
		if !p.Valid {
			continue
		}
		k := key{p.Date.Month(), p.Date.Year()}
		sums[k] += p.Value
		counts[k]++
	}

	out := make(Pivot)
	for k, n := range counts {
		if out[k.month] == nil {
			out[k.month] = make(map[int]float64)
		}
		out[k.month][k.year] = sums[k] / float64(n)
	}
	return out
}
