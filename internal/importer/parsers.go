package importer

import (
	"fmt"
	"os"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/meterbook-dev/meterbook/internal/model"
	"github.com/meterbook-dev/meterbook/internal/readings"
)

// DefaultRegistry returns a registry with the CSV and XLSX parsers using
// codec for delimiter and decimal separator.
func DefaultRegistry(codec readings.Codec) *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{Codec: codec})
	r.Register(&XLSXParser{Codec: codec})
	return r
}

// CSVParser reads files in the reading file format.
type CSVParser struct {
	Codec readings.Codec
}

// Format returns "csv".
func (p *CSVParser) Format() string { return "csv" }

// Parse reads the file at path.
func (p *CSVParser) Parse(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	return p.Codec.ReadTable(f, nil)
}

// XLSXParser reads the first sheet (or SheetName) of a workbook laid out
// like the spreadsheet export: header row first, date in column A.
type XLSXParser struct {
	Codec     readings.Codec
	SheetName string
}

// Format returns "xlsx".
func (p *XLSXParser) Format() string { return "xlsx" }

// Parse reads the workbook at path.
func (p *XLSXParser) Parse(path string) (*model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	sheet, err := p.sheet(f)
	if err != nil {
		return nil, err
	}

	var records [][]string
	width := 0
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		blank := true
		for j, cell := range row.Cells {
			if i > 0 && j == 0 {
				cells[j] = dateCell(cell, f.Date1904)
			} else {
				cells[j] = strings.TrimSpace(cell.String())
			}
			if cells[j] != "" {
				blank = false
			}
		}
		if i == 0 {
			width = trimmedWidth(cells)
			cells = cells[:width]
		} else if blank {
			continue
		}
		records = append(records, fitWidth(cells, width))
	}

	// Spreadsheet values are whole numbers with '.' as separator regardless
	// of the data file's locale.
	codec := p.Codec
	codec.DecimalSeparator = "."
	return codec.TableFromRecords(records, nil)
}

func (p *XLSXParser) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if p.SheetName != "" {
		sheet, ok := f.Sheet[p.SheetName]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", p.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// dateCell renders a date column cell in storage format. Date-formatted and
// plain numeric cells hold Excel serial days.
func dateCell(cell *xlsx.Cell, date1904 bool) string {
	if cell.IsTime() {
		if t, err := cell.GetTime(date1904); err == nil {
			return model.FormatStorage(model.Day(t))
		}
	}
	if cell.Type() == xlsx.CellTypeNumeric {
		if serial, err := cell.Float(); err == nil {
			return model.FormatStorage(model.Day(xlsx.TimeFromExcelTime(serial, date1904)))
		}
	}
	return strings.TrimSpace(cell.String())
}

func trimmedWidth(header []string) int {
	n := len(header)
	for n > 0 && header[n-1] == "" {
		n--
	}
	return n
}

func fitWidth(cells []string, width int) []string {
	if len(cells) >= width {
		return cells[:width]
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}
