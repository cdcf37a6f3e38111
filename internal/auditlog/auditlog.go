// Package auditlog records mutations of the reading file in an append-only CSV log.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the ledger.
const (
	ActionAdd     = "add"
	ActionReplace = "replace"
	ActionDelete  = "delete"
	ActionImport  = "import"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	ID        string
	Action    string
	Date      string // reading date the action touched, empty for bulk actions
	Details   string
}

// Header is the CSV header of the audit log.
const Header = "timestamp,id,action,date,details"

const (
	numFields    = 5
	colTimestamp = 0
	colID        = 1
	colAction    = 2
	colDate      = 3
	colDetails   = 4
)

// Log appends entries to a CSV file.
type Log struct {
	path string
	now  func() time.Time
}

// New returns a Log writing to path. The file and its directory are created
// on first append.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Record appends a single entry stamped with a fresh ID and the current time.
func (l *Log) Record(action, date, details string) (Entry, error) {
	e := Entry{
		Timestamp: l.now().UTC().Truncate(time.Second),
		ID:        uuid.NewString(),
		Action:    action,
		Date:      date,
		Details:   details,
	}
	if err := l.Append([]Entry{e}); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colID] = e.ID
	row[colAction] = e.Action
	row[colDate] = e.Date
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	if _, err := uuid.Parse(record[colID]); err != nil {
		return Entry{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
	}

	return Entry{
		Timestamp: ts,
		ID:        record[colID],
		Action:    record[colAction],
		Date:      record[colDate],
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to the log, creating the file and header if needed.
func (l *Log) Append(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating audit log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries. A missing file yields no entries.
func (l *Log) Read() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
