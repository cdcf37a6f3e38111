// Package ledger exposes the operations the CLI and HTTP layers call: list,
// submit, delete, chart series, aggregates, insights, export and import.
//
// Every call loads the data file, applies meter change corrections and
// works on the result. Nothing is cached between calls.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/auditlog"
	"github.com/meterbook-dev/meterbook/internal/catalog"
	"github.com/meterbook-dev/meterbook/internal/correction"
	"github.com/meterbook-dev/meterbook/internal/gitops"
	"github.com/meterbook-dev/meterbook/internal/meterchanges"
	"github.com/meterbook-dev/meterbook/internal/model"
	"github.com/meterbook-dev/meterbook/internal/readings"
)

// DefaultMinYear is the earliest accepted reading year.
const DefaultMinYear = 2000

// Committer records changed files in version control.
type Committer interface {
	Commit(message string, paths ...string) (string, error)
}

// Options wires a Service.
type Options struct {
	Store       *readings.Store
	ChangesPath string           // meter change registry; empty disables corrections
	Catalog     *catalog.Service // nil uses the default catalog
	Audit       *auditlog.Log    // optional
	Committer   Committer        // optional
	ImportDir   string
	MinYear     int
	Now         func() time.Time
}

// Service provides the reading operations.
type Service struct {
	store       *readings.Store
	changesPath string
	catalog     *catalog.Service
	audit       *auditlog.Log
	committer   Committer
	importDir   string
	minYear     int
	now         func() time.Time
}

// NewService creates a ledger Service.
func NewService(opts Options) *Service {
	s := &Service{
		store:       opts.Store,
		changesPath: opts.ChangesPath,
		catalog:     opts.Catalog,
		audit:       opts.Audit,
		committer:   opts.Committer,
		importDir:   opts.ImportDir,
		minYear:     opts.MinYear,
		now:         opts.Now,
	}
	if s.catalog == nil {
		s.catalog = catalog.NewService(catalog.DefaultMetrics())
	}
	if s.minYear == 0 {
		s.minYear = DefaultMinYear
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Catalog returns the metric catalog.
func (s *Service) Catalog() *catalog.Service {
	return s.catalog
}

// Registry loads the meter change registry.
func (s *Service) Registry() (model.Registry, error) {
	if s.changesPath == "" {
		return model.Registry{}, nil
	}
	return meterchanges.Load(s.changesPath)
}

// Corrected loads the raw table and applies all registered meter changes.
func (s *Service) Corrected() (*model.Table, error) {
	raw, reg, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return correction.Apply(raw, reg), nil
}

// snapshot reads the raw table and the registry once. Corrected data is
// always derived from one snapshot.
func (s *Service) snapshot() (*model.Table, model.Registry, error) {
	table, err := s.store.Load()
	if err != nil {
		return nil, nil, err
	}
	reg, err := s.Registry()
	if err != nil {
		return nil, nil, err
	}
	return table, reg, nil
}

// resolveMetric maps a column key or display name to its column key.
// Unknown names pass through trimmed and fail later as MetricNotFound.
func (s *Service) resolveMetric(name string) string {
	if key, ok := s.catalog.Resolve(name); ok {
		return key
	}
	return strings.TrimSpace(name)
}

// ListView is the table for display: newest first, display dates and names.
type ListView struct {
	Columns []string  `json:"columns"` // display names, date column first
	Keys    []string  `json:"keys"`    // column keys matching Columns
	Rows    []ListRow `json:"rows"`
}

// ListRow is one displayed reading. Values follow ListView.Keys minus the
// date column; nil means missing.
type ListRow struct {
	Date   string   `json:"date"`
	Values []*int64 `json:"values"`
}

// List returns the corrected table for display.
func (s *Service) List() (ListView, error) {
	table, err := s.Corrected()
	if err != nil {
		return ListView{}, err
	}

	keys := append([]string{model.ColumnDate}, table.Columns...)
	view := ListView{
		Columns: s.catalog.DisplayNames(keys),
		Keys:    keys,
		Rows:    make([]ListRow, 0, table.Len()),
	}
	rs := table.Readings()
	for i := len(rs) - 1; i >= 0; i-- {
		row := ListRow{Date: model.FormatDisplay(rs[i].Date), Values: make([]*int64, len(table.Columns))}
		for j, col := range table.Columns {
			row.Values[j] = rs[i].Get(col).Ptr()
		}
		view.Rows = append(view.Rows, row)
	}
	return view, nil
}

// Submission is a reading as entered by a user: a date in any accepted
// form and raw value strings keyed by column key or display name.
type Submission struct {
	Date   string            `json:"date"`
	Values map[string]string `json:"values"`
}

// SubmitResult reports the outcome of Submit.
type SubmitResult struct {
	Date     time.Time             `json:"-"`
	Replaced bool                  `json:"replaced"`
	Warning  *DuplicateDateWarning `json:"-"`
}

// Submit validates sub and upserts it as the full reading for its date.
// Validation happens before any mutation. Overwriting an existing date
// succeeds and sets Warning.
func (s *Service) Submit(sub Submission) (SubmitResult, error) {
	date, err := s.parseDate(sub.Date)
	if err != nil {
		return SubmitResult{}, err
	}

	table, err := s.store.Load()
	if err != nil {
		return SubmitResult{}, err
	}

	reading, err := s.buildReading(table, date, sub.Values)
	if err != nil {
		return SubmitResult{}, err
	}

	replaced := s.store.Upsert(table, reading)
	if err := s.store.Save(table); err != nil {
		return SubmitResult{}, fmt.Errorf("saving readings: %w", err)
	}

	action := auditlog.ActionAdd
	res := SubmitResult{Date: date, Replaced: replaced}
	if replaced {
		action = auditlog.ActionReplace
		res.Warning = &DuplicateDateWarning{Date: date}
	}
	mutationsTotal.WithLabelValues(action).Inc()
	s.record(action, date, describe(reading, table.Columns))

	zap.L().Info("reading saved",
		zap.String("component", "ledger"),
		zap.String("date", model.FormatStorage(date)),
		zap.Bool("replaced", replaced),
	)
	return res, nil
}

// Delete removes the reading at date and reports whether it existed.
// Deleting an absent date leaves the file untouched.
func (s *Service) Delete(dateInput string) (bool, error) {
	date, err := model.ParseDate(dateInput)
	if err != nil {
		return false, err
	}

	table, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if !s.store.Delete(table, date) {
		return false, nil
	}
	if err := s.store.Save(table); err != nil {
		return false, fmt.Errorf("saving readings: %w", err)
	}

	mutationsTotal.WithLabelValues(auditlog.ActionDelete).Inc()
	s.record(auditlog.ActionDelete, date, "")
	zap.L().Info("reading deleted",
		zap.String("component", "ledger"),
		zap.String("date", model.FormatStorage(date)),
	)
	return true, nil
}

func (s *Service) parseDate(input string) (time.Time, error) {
	date, err := model.ParseDate(input)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.checkYear(date, input); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

// checkYear enforces the accepted year range [minYear, current year].
func (s *Service) checkYear(date time.Time, input string) error {
	maxYear := s.now().Year()
	if y := date.Year(); y < s.minYear || y > maxYear {
		return &model.InvalidDateError{
			Input:  input,
			Reason: fmt.Sprintf("year %d outside %d-%d", y, s.minYear, maxYear),
		}
	}
	return nil
}

func (s *Service) buildReading(table *model.Table, date time.Time, values map[string]string) (model.Reading, error) {
	codec := s.store.Codec()
	reading := model.NewReading(date)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key, ok := s.catalog.Resolve(name)
		if !ok {
			key = strings.TrimSpace(name)
		}
		if !table.HasColumn(key) {
			return model.Reading{}, &model.MetricNotFoundError{Column: name}
		}
		v, err := codec.ParseValue(values[name])
		if err != nil {
			return model.Reading{}, &model.InvalidValueError{Column: key, Input: values[name]}
		}
		reading.Set(key, v)
	}
	return reading, nil
}

// record writes the audit entry and commits the data file. Both are
// best-effort once the data file is saved.
func (s *Service) record(action string, date time.Time, details string) {
	log := zap.L().With(zap.String("component", "ledger"))
	day := model.FormatStorage(date)

	if s.audit != nil {
		if _, err := s.audit.Record(action, day, details); err != nil {
			log.Warn("audit log append failed", zap.Error(err))
		}
	}
	s.commit(fmt.Sprintf("readings: %s %s", action, day))
}

func (s *Service) commit(message string) {
	if s.committer == nil {
		return
	}
	paths := []string{s.store.Path()}
	if s.audit != nil {
		paths = append(paths, s.audit.Path())
	}
	hash, err := s.committer.Commit(message, paths...)
	switch {
	case errors.Is(err, gitops.ErrNothingToCommit):
	case err != nil:
		zap.L().Warn("git commit failed", zap.String("component", "ledger"), zap.Error(err))
	default:
		zap.L().Debug("committed", zap.String("component", "ledger"), zap.String("hash", hash))
	}
}

func describe(r model.Reading, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if v := r.Get(col); v.Valid {
			parts = append(parts, col+"="+v.String())
		}
	}
	return strings.Join(parts, "; ")
}
