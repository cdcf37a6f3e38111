package model

import "fmt"

// InvalidDateError reports an unparseable or out-of-range date.
type InvalidDateError struct {
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

// InvalidValueError reports non-numeric input for a metric.
type InvalidValueError struct {
	Column string
	Input  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: not a number", e.Input, e.Column)
}

// MetricNotFoundError reports a column that is not part of the table schema.
type MetricNotFoundError struct {
	Column string
}

func (e *MetricNotFoundError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Column)
}
