package readings

import (
	"errors"
	"fmt"
)

var errValueRange = errors.New("value out of range")

// ParseError reports a reading file that is unreadable or structurally
// malformed. Row is 1-based and includes the header; 0 means the whole file.
type ParseError struct {
	Path string
	Row  int
	Err  error
}

func (e *ParseError) Error() string {
	where := "reading file"
	if e.Path != "" {
		where = e.Path
	}
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: %v", where, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
