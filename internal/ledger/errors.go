package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// ErrInvalidTimeframe is returned for an aggregate timeframe other than
// D, W, M or Y.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// DuplicateDateWarning notes that a submission replaced an existing reading.
// It is carried in SubmitResult and never returned as an error.
type DuplicateDateWarning struct {
	Date time.Time
}

func (w *DuplicateDateWarning) Error() string {
	return fmt.Sprintf("a reading for %s already existed and was overwritten", model.FormatDisplay(w.Date))
}

// IsValidation reports whether err is caused by user input rather than
// storage or configuration.
func IsValidation(err error) bool {
	var (
		dateErr  *model.InvalidDateError
		valueErr *model.InvalidValueError
	)
	return errors.As(err, &dateErr) || errors.As(err, &valueErr) || errors.Is(err, ErrInvalidTimeframe)
}
