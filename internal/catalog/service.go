package catalog

import (
	"strings"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Service provides in-memory lookup over the metric catalog.
type Service struct {
	metrics []model.Metric
	byKey   map[string]model.Metric
}

// NewService creates a Service from a slice of metrics. Later entries with
// a duplicate key override earlier ones but keep the first position.
func NewService(metrics []model.Metric) *Service {
	byKey := make(map[string]model.Metric, len(metrics))
	var ordered []model.Metric
	for _, m := range metrics {
		if _, seen := byKey[m.Key]; !seen {
			ordered = append(ordered, m)
		} else {
			for i := range ordered {
				if ordered[i].Key == m.Key {
					ordered[i] = m
				}
			}
		}
		byKey[m.Key] = m
	}
	return &Service{metrics: ordered, byKey: byKey}
}

// WithOverrides returns the default catalog with overrides merged on top.
func WithOverrides(overrides []model.Metric) *Service {
	return NewService(append(DefaultMetrics(), overrides...))
}

// All returns all metrics.
func (s *Service) All() []model.Metric {
	return s.metrics
}

// Get returns a metric by column key.
func (s *Service) Get(key string) (model.Metric, bool) {
	m, ok := s.byKey[key]
	return m, ok
}

// Exists reports whether a column key is catalogued.
func (s *Service) Exists(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// DisplayName returns the user-facing column name. Unknown keys and the date
// column fall back to sensible names.
func (s *Service) DisplayName(key string) string {
	if key == model.ColumnDate {
		return DateDisplayName
	}
	if m, ok := s.byKey[key]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return key
}

// DisplayNames maps column keys to display names, preserving order.
func (s *Service) DisplayNames(keys []string) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = s.DisplayName(k)
	}
	return names
}

// Resolve maps a header name to a column key. It accepts the key itself or
// the display name, case-insensitively.
func (s *Service) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := s.byKey[name]; ok {
		return name, true
	}
	for _, m := range s.metrics {
		if strings.EqualFold(m.Key, name) || strings.EqualFold(m.DisplayName, name) {
			return m.Key, true
		}
	}
	return "", false
}
