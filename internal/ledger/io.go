package ledger

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/auditlog"
	"github.com/meterbook-dev/meterbook/internal/catalog"
	"github.com/meterbook-dev/meterbook/internal/export"
	"github.com/meterbook-dev/meterbook/internal/importer"
	"github.com/meterbook-dev/meterbook/internal/model"
)

// ExportFileName is the download name of the spreadsheet export.
func (s *Service) ExportFileName() string {
	return export.SheetNameFromPath(s.store.Path()) + ".xlsx"
}

// Export writes the corrected table as a spreadsheet.
func (s *Service) Export(w io.Writer) error {
	table, err := s.Corrected()
	if err != nil {
		return err
	}

	headers := make(map[string]string, len(table.Columns))
	for _, col := range table.Columns {
		headers[col] = s.catalog.DisplayName(col)
	}
	return export.Write(w, table, export.Options{
		Sheet:      export.SheetNameFromPath(s.store.Path()),
		DateHeader: catalog.DateDisplayName,
		Headers:    headers,
	})
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Files    []string `json:"files"`
	Added    int      `json:"added"`
	Replaced int      `json:"replaced"`
}

// Import reads every supported file in the import directory and upserts
// their readings under a single save. Files apply in name order, so a date
// in a later file wins. Imported readings merge into existing ones column by
// column. Consumed files move to the processed subdirectory.
func (s *Service) Import(ctx context.Context) (ImportResult, error) {
	log := zap.L().With(zap.String("component", "ledger.import"))
	if s.importDir == "" {
		return ImportResult{}, fmt.Errorf("no import directory configured")
	}

	reg := importer.DefaultRegistry(s.store.Codec())
	files, err := importer.Scan(s.importDir, reg)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Files: []string{}}
	if len(files) == 0 {
		log.Info("no import files found", zap.String("dir", s.importDir))
		return res, nil
	}

	parsed, err := importer.ParseAll(ctx, reg, s.catalog, files)
	if err != nil {
		return ImportResult{}, err
	}

	table, err := s.store.Load()
	if err != nil {
		return ImportResult{}, err
	}
	for _, pf := range parsed {
		for _, r := range pf.Readings {
			if err := s.checkYear(r.Date, model.FormatStorage(r.Date)); err != nil {
				return ImportResult{}, fmt.Errorf("%s: %w", pf.File.Name, err)
			}
			for col := range r.Values {
				if !table.HasColumn(col) {
					return ImportResult{}, fmt.Errorf("%s: %w", pf.File.Name, &model.MetricNotFoundError{Column: col})
				}
			}
		}
	}

	for _, pf := range parsed {
		for _, r := range pf.Readings {
			merged := r
			if existing, ok := table.Get(r.Date); ok {
				merged = existing.Clone()
				for col, v := range r.Values {
					if v.Valid {
						merged.Set(col, v)
					}
				}
			}
			if s.store.Upsert(table, merged) {
				res.Replaced++
			} else {
				res.Added++
			}
		}
		res.Files = append(res.Files, pf.File.Name)
	}

	if err := s.store.Save(table); err != nil {
		return ImportResult{}, fmt.Errorf("saving readings: %w", err)
	}
	importedReadingsTotal.Add(float64(res.Added + res.Replaced))
	mutationsTotal.WithLabelValues(auditlog.ActionImport).Inc()

	for _, f := range files {
		if err := importer.MarkProcessed(s.importDir, f.Name); err != nil {
			log.Warn("could not move import file", zap.String("file", f.Name), zap.Error(err))
		}
	}

	details := fmt.Sprintf("files=%d added=%d replaced=%d", len(res.Files), res.Added, res.Replaced)
	if s.audit != nil {
		if _, err := s.audit.Record(auditlog.ActionImport, "", details); err != nil {
			log.Warn("audit log append failed", zap.Error(err))
		}
	}
	s.commit("readings: import " + details)

	log.Info("import complete",
		zap.Int("files", len(res.Files)),
		zap.Int("added", res.Added),
		zap.Int("replaced", res.Replaced),
	)
	return res, nil
}
