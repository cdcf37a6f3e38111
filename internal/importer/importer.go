// Package importer reads bulk reading files dropped into the import directory.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// Parser converts an import file into a reading table whose columns are the
// file's own header names.
type Parser interface {
	Parse(path string) (*model.Table, error)
	Format() string // file extension without the dot
}

// ColumnResolver maps a header name to a column key.
type ColumnResolver interface {
	Resolve(name string) (string, bool)
}

// Registry holds parsers keyed by format.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Format string
	Size   int64
}

// ParsedFile is an import file with its readings keyed by column key.
type ParsedFile struct {
	File     FileInfo
	Readings []model.Reading
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Supports reports whether a file name has a registered format.
func (r *Registry) Supports(name string) bool {
	return r.Get(formatOf(name)) != nil
}

// processedDir is the subdirectory of the import dir for consumed files.
const processedDir = "processed"

// maxParallel bounds concurrent file parsing.
const maxParallel = 4

// Scan returns the files in dir that reg can parse, ordered by name.
// A missing directory yields no files.
func Scan(dir string, reg *Registry) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !reg.Supports(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Format: formatOf(e.Name()),
			Size:   info.Size(),
		})
	}
	return files, nil
}

// ParseAll parses files concurrently and maps their headers onto column
// keys. Results keep the order of files. The first failure cancels the rest.
func ParseAll(ctx context.Context, reg *Registry, columns ColumnResolver, files []FileInfo) ([]ParsedFile, error) {
	out := make([]ParsedFile, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := reg.Get(f.Format)
			if p == nil {
				return fmt.Errorf("%s: no parser for format %q", f.Name, f.Format)
			}
			table, err := p.Parse(f.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			rs, err := resolveColumns(table, columns)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			out[i] = ParsedFile{File: f, Readings: rs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkProcessed moves a file from the import dir to its processed/ subdir.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

func resolveColumns(table *model.Table, columns ColumnResolver) ([]model.Reading, error) {
	keys := make(map[string]string, len(table.Columns))
	for _, name := range table.Columns {
		key, ok := columns.Resolve(name)
		if !ok {
			return nil, &model.MetricNotFoundError{Column: name}
		}
		keys[name] = key
	}

	out := make([]model.Reading, 0, table.Len())
	for _, r := range table.Readings() {
		mapped := model.NewReading(r.Date)
		for name, v := range r.Values {
			mapped.Set(keys[name], v)
		}
		out = append(out, mapped)
	}
	return out, nil
}

func formatOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
