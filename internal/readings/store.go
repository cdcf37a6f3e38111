package readings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Options configures a Store.
type Options struct {
	Path             string
	Delimiter        rune
	DecimalSeparator string
	Columns          []string // schema for a file that does not exist yet
}

// Store persists the reading table as a single delimited file.
type Store struct {
	path    string
	codec   Codec
	columns []string
}

// NewStore creates a Store. Zero option fields fall back to the defaults of
// the historical data file.
func NewStore(opts Options) *Store {
	codec := DefaultCodec()
	if opts.Delimiter != 0 {
		codec.Delimiter = opts.Delimiter
	}
	if opts.DecimalSeparator != "" {
		codec.DecimalSeparator = opts.DecimalSeparator
	}
	columns := opts.Columns
	if len(columns) == 0 {
		columns = model.DefaultColumns
	}
	return &Store{path: opts.Path, codec: codec, columns: slices.Clone(columns)}
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Codec returns the codec used for the data file.
func (s *Store) Codec() Codec {
	return s.codec
}

// Load reads the full table. A missing file yields an empty table.
func (s *Store) Load() (*model.Table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewTable(s.columns), nil
	}
	if err != nil {
		return nil, &ParseError{Path: s.path, Err: err}
	}
	defer f.Close()

	table, err := s.codec.ReadTable(f, s.columns)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = s.path
			return nil, pe
		}
		return nil, &ParseError{Path: s.path, Err: err}
	}
	return table, nil
}

// Save replaces the data file with table. The write goes to a temporary file
// in the same directory which is renamed over the target, so readers see
// either the old or the new file.
func (s *Store) Save(table *model.Table) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := s.codec.WriteTable(tmp, table); err != nil {
		return fmt.Errorf("writing readings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing readings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Upsert inserts reading into table, replacing a reading with the same date.
// It reports whether one was replaced.
func (s *Store) Upsert(table *model.Table, reading model.Reading) bool {
	return table.Upsert(reading)
}

// Delete removes the reading at date from table and reports whether it existed.
func (s *Store) Delete(table *model.Table, date time.Time) bool {
	return table.Delete(date)
}
