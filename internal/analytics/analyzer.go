package analytics

import (
	"time"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Analyzer runs the series functions against columns of a corrected table.
// Every method fails with *model.MetricNotFoundError for a column outside
// the table schema.
type Analyzer struct {
	table *model.Table
}

// New creates an Analyzer over a corrected table.
func New(table *model.Table) *Analyzer {
	return &Analyzer{table: table}
}

// Series returns the raw series of metric.
func (a *Analyzer) Series(metric string) (Series, error) {
	return FromTable(a.table, metric)
}

// Resample resamples metric.
func (a *Analyzer) Resample(metric string, b Bucket, mode Mode) (Series, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return Resample(s, b, mode), nil
}

// Interpolate fills internal gaps of metric.
func (a *Analyzer) Interpolate(metric string) (Series, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return Interpolate(s), nil
}

// Cumulative returns the running sum of metric.
func (a *Analyzer) Cumulative(metric string) (Series, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return Cumulative(s), nil
}

// Diff returns the per-reading change of metric.
func (a *Analyzer) Diff(metric string) (Series, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return Diff(s), nil
}

// YearOverYear compares referenceYear with the prior year for metric.
func (a *Analyzer) YearOverYear(metric string, referenceYear int) (Comparison, error) {
	s, err := a.Series(metric)
	if err != nil {
		return Comparison{}, err
	}
	return YearOverYear(s, referenceYear), nil
}

// SeasonalProfile returns the monthly profile of metric.
func (a *Analyzer) SeasonalProfile(metric string) (Profile, error) {
	s, err := a.Series(metric)
	if err != nil {
		return Profile{}, err
	}
	return SeasonalProfile(s), nil
}

// DetectAnomalies returns outliers of metric.
func (a *Analyzer) DetectAnomalies(metric string) (map[time.Time]float64, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return DetectAnomalies(s), nil
}

// PivotByMonthYear returns the month x year means of metric.
func (a *Analyzer) PivotByMonthYear(metric string) (Pivot, error) {
	s, err := a.Series(metric)
	if err != nil {
		return nil, err
	}
	return PivotByMonthYear(s), nil
}
