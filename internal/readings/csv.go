package readings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meterbook-dev/meterbook/internal/model"
)

const (
	colDate = 0

	// DefaultDelimiter and DefaultDecimalSeparator match the historical data file.
	DefaultDelimiter        = ';'
	DefaultDecimalSeparator = ","
)

// Codec converts between the delimited file format and a model.Table.
type Codec struct {
	Delimiter        rune
	DecimalSeparator string
}

// DefaultCodec returns the semicolon/comma codec.
func DefaultCodec() Codec {
	return Codec{Delimiter: DefaultDelimiter, DecimalSeparator: DefaultDecimalSeparator}
}

// ReadTable reads a reading file. An empty input yields an empty table with
// defaultColumns as schema; a header-only input yields an empty table with
// the header as schema.
func (c Codec) ReadTable(r io.Reader, defaultColumns []string) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = c.delimiter()
	cr.FieldsPerRecord = 0 // every row must match the header

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &ParseError{Row: pe.Line, Err: pe.Err}
		}
		return nil, &ParseError{Err: err}
	}

	return c.TableFromRecords(records, defaultColumns)
}

// TableFromRecords builds a table from already split rows, the first being
// the header. Row numbers in errors are 1-based and count the header.
func (c Codec) TableFromRecords(records [][]string, defaultColumns []string) (*model.Table, error) {
	if len(records) == 0 {
		return model.NewTable(defaultColumns), nil
	}

	columns, err := parseHeader(records[0])
	if err != nil {
		return nil, &ParseError{Row: 1, Err: err}
	}

	table := model.NewTable(columns)
	for i, rec := range records[1:] {
		reading, err := c.UnmarshalReading(rec, columns)
		if err != nil {
			return nil, &ParseError{Row: i + 2, Err: err}
		}
		// A duplicated date in the file collapses onto the later row.
		table.Upsert(reading)
	}
	return table, nil
}

// WriteTable writes the header and one row per reading in table order.
func (c Codec) WriteTable(w io.Writer, table *model.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = c.delimiter()

	header := append([]string{model.ColumnDate}, table.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range table.Readings() {
		if err := cw.Write(c.MarshalReading(r, table.Columns)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalReading converts a Reading to a row ([]string) in column order.
func (c Codec) MarshalReading(r model.Reading, columns []string) []string {
	row := make([]string, len(columns)+1)
	row[colDate] = model.FormatStorage(r.Date)
	for i, col := range columns {
		row[i+1] = r.Get(col).String()
	}
	return row
}

// UnmarshalReading converts a row to a Reading. Metric fields that are blank
// or not numeric become missing; the date must parse.
func (c Codec) UnmarshalReading(record []string, columns []string) (model.Reading, error) {
	if len(record) != len(columns)+1 {
		return model.Reading{}, fmt.Errorf("expected %d fields, got %d", len(columns)+1, len(record))
	}

	date, err := model.ParseDate(record[colDate])
	if err != nil {
		return model.Reading{}, fmt.Errorf("parsing %s: %w", model.ColumnDate, err)
	}

	reading := model.NewReading(date)
	for i, col := range columns {
		v, err := c.ParseValue(record[i+1])
		if err != nil {
			v = model.Missing
		}
		reading.Set(col, v)
	}
	return reading, nil
}

// ParseValue parses a metric field. Blank input is Missing without error;
// non-numeric input is Missing with an error. Fractions are truncated
// toward zero.
func (c Codec) ParseValue(s string) (model.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Missing, nil
	}
	normalized := s
	if sep := c.DecimalSeparator; sep != "" && sep != "." {
		normalized = strings.Replace(normalized, sep, ".", 1)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return model.Missing, fmt.Errorf("parsing %q: %w", s, err)
	}
	whole := d.Truncate(0)
	if !whole.BigInt().IsInt64() {
		return model.Missing, fmt.Errorf("parsing %q: %w", s, errValueRange)
	}
	return model.Int(whole.IntPart()), nil
}

// FormatValue renders v for the file. Values are whole units, so the decimal
// separator never appears on write.
func (c Codec) FormatValue(v model.Value) string {
	return v.String()
}

func (c Codec) delimiter() rune {
	if c.Delimiter == 0 {
		return DefaultDelimiter
	}
	return c.Delimiter
}

func parseHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, errors.New("empty header")
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff")))
	if first != model.ColumnDate && first != "date" {
		return nil, fmt.Errorf("first column is %q, want %q", header[0], model.ColumnDate)
	}

	columns := make([]string, 0, len(header)-1)
	seen := make(map[string]bool, len(header))
	for _, h := range header[1:] {
		col := strings.TrimSpace(h)
		if col == "" {
			return nil, errors.New("blank column name in header")
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate column %q in header", col)
		}
		seen[col] = true
		columns = append(columns, col)
	}
	return columns, nil
}
