package meterchanges

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Template is written by `meterbook init` as the initial registry file.
const Template = `# Meter replacements and other corrections.
# Each offset is added to every reading of the column on or after its date.
#
# strom:
#   - date: 2023-06-01
#     offset: 50
#     reason: meter replaced
`

// RegistryParseError reports a structurally invalid registry document.
// Index is the 0-based entry position within Column, or -1.
type RegistryParseError struct {
	Path   string
	Column string
	Index  int
	Err    error
}

func (e *RegistryParseError) Error() string {
	where := "meter changes"
	if e.Path != "" {
		where = e.Path
	}
	if e.Column != "" && e.Index >= 0 {
		return fmt.Sprintf("%s: %s[%d]: %v", where, e.Column, e.Index, e.Err)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s: %s: %v", where, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *RegistryParseError) Unwrap() error { return e.Err }

type entry struct {
	Date   *string `yaml:"date"`
	Offset *int64  `yaml:"offset"`
	Reason string  `yaml:"reason,omitempty"`
}

// Load reads the registry at path. A missing or empty file is an empty
// registry.
func Load(path string) (model.Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Registry{}, nil
	}
	if err != nil {
		return nil, &RegistryParseError{Path: path, Index: -1, Err: err}
	}

	reg, err := Parse(bytes.NewReader(data))
	if err != nil {
		var rpe *RegistryParseError
		if errors.As(err, &rpe) {
			rpe.Path = path
			return nil, rpe
		}
		return nil, err
	}
	return reg, nil
}

// Parse decodes a registry document. Changes come back in ascending date
// order per column.
func Parse(r io.Reader) (model.Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc map[string][]entry
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Registry{}, nil
		}
		return nil, &RegistryParseError{Index: -1, Err: err}
	}

	reg := make(model.Registry, len(doc))
	for column, entries := range doc {
		changes := make([]model.MeterChange, 0, len(entries))
		for i, e := range entries {
			change, err := toChange(column, e)
			if err != nil {
				return nil, &RegistryParseError{Column: column, Index: i, Err: err}
			}
			changes = append(changes, change)
		}
		reg[column] = changes
	}

	for column := range reg {
		reg[column] = reg.Sorted(column)
	}
	return reg, nil
}

func toChange(column string, e entry) (model.MeterChange, error) {
	if e.Date == nil {
		return model.MeterChange{}, errors.New("missing date")
	}
	if e.Offset == nil {
		return model.MeterChange{}, errors.New("missing offset")
	}
	date, err := time.Parse(model.StorageDateFormat, *e.Date)
	if err != nil {
		return model.MeterChange{}, fmt.Errorf("parsing date %q: %w", *e.Date, err)
	}
	return model.MeterChange{
		Date:   date,
		Column: column,
		Offset: *e.Offset,
		Reason: e.Reason,
	}, nil
}

// Save writes reg to path in the format Load reads.
func Save(path string, reg model.Registry) error {
	doc := make(map[string][]entry, len(reg))
	for _, column := range reg.Columns() {
		for _, c := range reg.Sorted(column) {
			date := model.FormatStorage(c.Date)
			offset := c.Offset
			doc[column] = append(doc[column], entry{Date: &date, Offset: &offset, Reason: c.Reason})
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling meter changes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing meter changes: %w", err)
	}
	return nil
}
