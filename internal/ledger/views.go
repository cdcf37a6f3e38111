package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/meterbook-dev/meterbook/internal/analytics"
	"github.com/meterbook-dev/meterbook/internal/correction"
	"github.com/meterbook-dev/meterbook/internal/model"
)

// ChartSeries is one metric as parallel label/value arrays. Only present
// values are included.
type ChartSeries struct {
	Metric model.Metric `json:"metric"`
	Labels []string     `json:"labels"`
	Values []int64      `json:"values"`
}

// Series returns the corrected series of metric (key or display name) for
// charting.
func (s *Service) Series(metric string) (ChartSeries, error) {
	metric = s.resolveMetric(metric)
	table, err := s.Corrected()
	if err != nil {
		return ChartSeries{}, err
	}
	series, err := analytics.FromTable(table, metric)
	if err != nil {
		return ChartSeries{}, err
	}

	out := ChartSeries{Metric: s.metric(metric), Labels: []string{}, Values: []int64{}}
	for _, p := range series.Known() {
		out.Labels = append(out.Labels, model.FormatStorage(p.Date))
		out.Values = append(out.Values, int64(p.Value))
	}
	return out, nil
}

// AggregateView is a resampled metric, plus a month x year pivot for the
// monthly and annual timeframes.
type AggregateView struct {
	Metric    model.Metric `json:"metric"`
	Timeframe string       `json:"timeframe"`
	Labels    []string     `json:"labels"`
	Values    []*float64   `json:"values"`
	Pivot     *PivotView   `json:"pivot,omitempty"`
}

// PivotView holds Values[month-1][i] for Years[i]; nil cells lack data.
type PivotView struct {
	Years  []int        `json:"years"`
	Values [][]*float64 `json:"values"`
}

// Aggregates interpolates metric and resamples it: daily sums, weekly,
// monthly and annual means.
func (s *Service) Aggregates(metric, timeframe string) (AggregateView, error) {
	metric = s.resolveMetric(metric)
	bucket, err := analytics.ParseBucket(timeframe)
	if err != nil {
		return AggregateView{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}

	table, err := s.Corrected()
	if err != nil {
		return AggregateView{}, err
	}
	series, err := analytics.FromTable(table, metric)
	if err != nil {
		return AggregateView{}, err
	}

	mode := analytics.Mean
	if bucket == analytics.Daily {
		mode = analytics.Sum
	}
	resampled := analytics.Resample(analytics.Interpolate(series), bucket, mode)

	view := AggregateView{
		Metric:    s.metric(metric),
		Timeframe: bucket.String(),
		Labels:    make([]string, 0, len(resampled)),
		Values:    make([]*float64, 0, len(resampled)),
	}
	for _, p := range resampled {
		view.Labels = append(view.Labels, model.FormatStorage(p.Date))
		view.Values = append(view.Values, pointValue(p))
	}
	if bucket == analytics.Monthly || bucket == analytics.Annual {
		view.Pivot = newPivotView(analytics.PivotByMonthYear(resampled))
	}
	return view, nil
}

// Insights gathers the statistics shown next to a metric's charts.
type Insights struct {
	Metric          model.Metric     `json:"metric"`
	YearOverYear    YearOverYear     `json:"year_over_year"`
	MonthlyAverages []*float64       `json:"monthly_averages"` // index 0 is January
	PeakMonth       int              `json:"peak_month"`
	LowMonth        int              `json:"low_month"`
	Anomalies       []DatedValue     `json:"anomalies"`
	YearlyTotals    []DatedValue     `json:"yearly_totals"`
	Cumulative      []DatedValue     `json:"cumulative"`
	Consumption     []DatedValue     `json:"consumption"`
	Adjustments     []AdjustmentView `json:"adjustments"`
}

// AdjustmentView is a meter change applied to the metric.
type AdjustmentView struct {
	Date     string `json:"date"`
	Offset   int64  `json:"offset"`
	Reason   string `json:"reason,omitempty"`
	Affected int    `json:"affected"`
}

// YearOverYear is the JSON form of analytics.Comparison.
type YearOverYear struct {
	ReferenceYear  int      `json:"reference_year"`
	Available      bool     `json:"available"`
	CurrentYearAvg *float64 `json:"current_year_avg,omitempty"`
	PriorYearAvg   *float64 `json:"prior_year_avg,omitempty"`
	ChangePercent  *float64 `json:"change_percent,omitempty"`
}

// DatedValue is a labeled number.
type DatedValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Insights computes year-over-year, seasonal, anomaly, total and cumulative
// views of metric. A zero referenceYear selects the latest year with data,
// or the current year for an empty series.
func (s *Service) Insights(metric string, referenceYear int) (Insights, error) {
	metric = s.resolveMetric(metric)
	raw, reg, err := s.snapshot()
	if err != nil {
		return Insights{}, err
	}
	an := analytics.New(correction.Apply(raw, reg))
	series, err := an.Series(metric)
	if err != nil {
		return Insights{}, err
	}

	if referenceYear == 0 {
		referenceYear = s.now().Year()
		if known := series.Known(); len(known) > 0 {
			referenceYear = known[len(known)-1].Date.Year()
		}
	}

	out := Insights{
		Metric:       s.metric(metric),
		YearOverYear: newYearOverYear(analytics.YearOverYear(series, referenceYear)),
		Anomalies:    []DatedValue{},
		YearlyTotals: datedValues(analytics.Resample(series, analytics.Annual, analytics.Sum)),
		Cumulative:   datedValues(analytics.Cumulative(series)),
		Consumption:  datedValues(analytics.Diff(series)),
		Adjustments:  []AdjustmentView{},
	}

	profile := analytics.SeasonalProfile(series)
	out.MonthlyAverages = make([]*float64, len(profile.MonthlyAverages))
	for i, avg := range profile.MonthlyAverages {
		if avg.Valid {
			v := avg.Value
			out.MonthlyAverages[i] = &v
		}
	}
	out.PeakMonth = int(profile.PeakMonth)
	out.LowMonth = int(profile.LowMonth)

	anomalies := analytics.DetectAnomalies(series)
	dates := make([]time.Time, 0, len(anomalies))
	for d := range anomalies {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, d := range dates {
		out.Anomalies = append(out.Anomalies, DatedValue{Date: model.FormatStorage(d), Value: anomalies[d]})
	}

	for _, adj := range correction.Summary(raw, reg) {
		if adj.Change.Column != metric {
			continue
		}
		out.Adjustments = append(out.Adjustments, AdjustmentView{
			Date:     model.FormatStorage(adj.Change.Date),
			Offset:   adj.Change.Offset,
			Reason:   adj.Change.Reason,
			Affected: adj.Affected,
		})
	}
	return out, nil
}

func (s *Service) metric(key string) model.Metric {
	if m, ok := s.catalog.Get(key); ok {
		return m
	}
	return model.Metric{Key: key, DisplayName: key, Label: key}
}

func newYearOverYear(c analytics.Comparison) YearOverYear {
	out := YearOverYear{ReferenceYear: c.ReferenceYear, Available: c.Available}
	if !c.Available {
		return out
	}
	cur, prior, change := c.CurrentYearAvg, c.PriorYearAvg, c.ChangePercent
	out.CurrentYearAvg = &cur
	out.PriorYearAvg = &prior
	out.ChangePercent = &change
	return out
}

func newPivotView(p analytics.Pivot) *PivotView {
	years := p.Years()
	view := &PivotView{Years: years, Values: make([][]*float64, 12)}
	for m := time.January; m <= time.December; m++ {
		row := make([]*float64, len(years))
		for i, y := range years {
			if v, ok := p[m][y]; ok {
				row[i] = &v
			}
		}
		view.Values[m-1] = row
	}
	return view
}

func datedValues(s analytics.Series) []DatedValue {
	out := make([]DatedValue, 0, len(s))
	for _, p := range s {
		if p.Valid {
			out = append(out, DatedValue{Date: model.FormatStorage(p.Date), Value: p.Value})
		}
	}
	return out
}

func pointValue(p analytics.Point) *float64 {
	if !p.Valid {
		return nil
	}
	v := p.Value
	return &v
}
