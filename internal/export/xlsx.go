// Package export writes the corrected reading table as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/meterbook-dev/meterbook/internal/model"
)

const (
	dateNumFmt    = "dd.mm.yyyy"
	maxSheetChars = 31
	dateColWidth  = 12
	valueColWidth = 14
)

// Options controls the workbook layout.
type Options struct {
	Sheet      string            // sheet name, sanitized before use
	DateHeader string            // header of the first column
	Headers    map[string]string // column key -> header text; key itself when absent
}

// Write renders table as an XLSX workbook with a single sheet: bold header
// row, the date in the first column, metric columns in schema order, frozen
// header and an autofilter over the used range.
func Write(w io.Writer, table *model.Table, opts Options) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := SanitizeSheetName(opts.Sheet)
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, 0, len(table.Columns)+1)
	dateHeader := opts.DateHeader
	if dateHeader == "" {
		dateHeader = model.ColumnDate
	}
	header = append(header, dateHeader)
	for _, col := range table.Columns {
		if h, ok := opts.Headers[col]; ok && h != "" {
			header = append(header, h)
		} else {
			header = append(header, col)
		}
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	numFmt := dateNumFmt
	dateStyle, err := xl.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}
	headerStyle, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, r := range table.Readings() {
		row := i + 2
		dateCell, _ := excelize.CoordinatesToCellName(1, row)
		if err := xl.SetCellValue(sheet, dateCell, r.Date); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if err := xl.SetCellStyle(sheet, dateCell, dateCell, dateStyle); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		for j, col := range table.Columns {
			v := r.Get(col)
			if !v.Valid {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			if err := xl.SetCellValue(sheet, cell, v.V); err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := xl.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := xl.SetColWidth(sheet, "A", "A", dateColWidth); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if len(header) > 1 {
		if err := xl.SetColWidth(sheet, "B", lastCol, valueColWidth); err != nil {
			return fmt.Errorf("sizing columns: %w", err)
		}
	}

	if err := xl.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	lastRow := table.Len() + 1
	if err := xl.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
		return fmt.Errorf("adding autofilter: %w", err)
	}

	if err := xl.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SheetNameFromPath derives the sheet name from the data file name.
func SheetNameFromPath(path string) string {
	base := filepath.Base(path)
	return SanitizeSheetName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// SanitizeSheetName replaces characters Excel forbids in sheet names and
// truncates to 31 characters.
func SanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := strings.Trim(strings.TrimSpace(replacer.Replace(name)), "'")
	return truncateSheetName(safe)
}

func truncateSheetName(name string) string {
	if r := []rune(name); len(r) > maxSheetChars {
		return string(r[:maxSheetChars])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
