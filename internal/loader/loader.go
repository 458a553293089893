// Package loader reads the raw per-table files into typed records.
//
// Each table lives in its own subdirectory of the data root. Files are read
// in parallel but their records are always returned in a fixed file order:
// primary files first, then the rest by name. Rows keep their order within a
// file. Malformed rows are dropped and counted per file.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"filesdash/xref/internal/logger"
	"filesdash/xref/internal/record"
)

const maxSamples = 5

// FileStats summarizes the rows read from one file.
type FileStats struct {
	Table   string
	File    string
	Rows    int
	Loaded  int
	Skipped int
	Samples []*SkippedRowError // first few skipped rows
}

// Dataset is everything one run reads from disk.
type Dataset struct {
	Persons   []record.Person
	Flights   []record.Flight
	Documents []record.Document
	Edges     []record.Edge
	Emails    []record.Email
	Images    record.ImageIndex
	Files     []FileStats
}

// Skipped returns the total number of skipped rows across all files.
func (d *Dataset) Skipped() int {
	n := 0
	for _, f := range d.Files {
		n += f.Skipped
	}
	return n
}

// Loader reads a data root laid out as one subdirectory per table.
type Loader struct {
	root       string
	workers    int
	primary    map[string][]string
	imageIndex string
	logger     logger.Logger
	metrics    Recorder
}

// New creates a Loader rooted at root.
func New(root string, opts ...Option) *Loader {
	l := &Loader{
		root:    root,
		workers: runtime.NumCPU(),
		primary: map[string][]string{
			record.TablePersons: {"entities.csv"},
		},
		logger:  logger.Nop(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads all tables and the image index.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	var stats []FileStats

	if ds.Persons, stats, err = loadTable(ctx, l, record.TablePersons, decodePerson); err != nil {
		return nil, err
	}
	ds.Files = append(ds.Files, stats...)
	if ds.Flights, stats, err = loadTable(ctx, l, record.TableFlights, decodeFlight); err != nil {
		return nil, err
	}
	ds.Files = append(ds.Files, stats...)
	if ds.Documents, stats, err = loadTable(ctx, l, record.TableDocuments, decodeDocument); err != nil {
		return nil, err
	}
	ds.Files = append(ds.Files, stats...)
	if ds.Edges, stats, err = loadTable(ctx, l, record.TableRelationships, decodeEdge); err != nil {
		return nil, err
	}
	ds.Files = append(ds.Files, stats...)
	if ds.Emails, stats, err = loadTable(ctx, l, record.TableEmails, decodeEmail); err != nil {
		return nil, err
	}
	ds.Files = append(ds.Files, stats...)

	ds.Images = record.ImageIndex{}
	if l.imageIndex != "" {
		if ds.Images, err = LoadImageIndex(l.imageIndex); err != nil {
			return nil, err
		}
	}

	l.logger.Info(ctx, "dataset loaded",
		logger.Int("persons", len(ds.Persons)),
		logger.Int("flights", len(ds.Flights)),
		logger.Int("documents", len(ds.Documents)),
		logger.Int("relationships", len(ds.Edges)),
		logger.Int("emails", len(ds.Emails)),
		logger.Int("image_keys", len(ds.Images)),
		logger.Int("skipped", ds.Skipped()))
	return ds, nil
}

// Files returns the readable files of a table in load order.
func (l *Loader) Files(table string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, table))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || formatFor(name) == nil {
			continue
		}
		names = append(names, name)
	}

	ordered := make([]string, 0, len(names))
	for _, p := range l.primary[table] {
		if slices.Contains(names, p) && !slices.Contains(ordered, p) {
			ordered = append(ordered, p)
		}
	}
	for _, name := range names {
		if !slices.Contains(ordered, name) {
			ordered = append(ordered, name)
		}
	}
	return ordered, nil
}

type decoder[T any] func(record.Ref, row) (T, error)

type fileResult[T any] struct {
	records []T
	stats   FileStats
}

// loadTable reads every file of a table concurrently and concatenates the
// results in file order.
func loadTable[T any](ctx context.Context, l *Loader, table string, decode decoder[T]) ([]T, []FileStats, error) {
	files, err := l.Files(table)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn(ctx, "table directory missing", logger.String("table", table))
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing %s: %v", ErrReadFile, table, err)
	}

	results := make([]fileResult[T], len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := loadFile(table, l.root, name, decode)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []T
	stats := make([]FileStats, 0, len(results))
	for _, res := range results {
		out = append(out, res.records...)
		stats = append(stats, res.stats)
		l.metrics.RowsLoaded(table, res.stats.Loaded)
		l.metrics.RowsSkipped(table, res.stats.Skipped)

		fields := []logger.Field{
			logger.String("file", res.stats.File),
			logger.Int("rows", res.stats.Rows),
			logger.Int("loaded", res.stats.Loaded),
			logger.Int("skipped", res.stats.Skipped),
		}
		if res.stats.Skipped > 0 {
			fields = append(fields, logger.String("first", res.stats.Samples[0].Error()))
			l.logger.Warn(ctx, "rows skipped", fields...)
		} else {
			l.logger.Debug(ctx, "file loaded", fields...)
		}
	}
	return out, stats, nil
}

func loadFile[T any](table, root, name string, decode decoder[T]) (fileResult[T], error) {
	rel := filepath.ToSlash(filepath.Join(table, name))
	res := fileResult[T]{stats: FileStats{Table: table, File: rel}}

	skipped := func(e *SkippedRowError) {
		res.stats.Skipped++
		if len(res.stats.Samples) < maxSamples {
			res.stats.Samples = append(res.stats.Samples, e)
		}
	}

	err := readFile(filepath.Join(root, table, name),
		func(line int, r row) error {
			res.stats.Rows++
			rec, err := decode(record.Ref{File: rel, Line: line}, r)
			var skip *SkippedRowError
			if errors.As(err, &skip) {
				skip.File, skip.Line = rel, line
				skipped(skip)
				return nil
			}
			if err != nil {
				return err
			}
			res.records = append(res.records, rec)
			res.stats.Loaded++
			return nil
		},
		func(line int, reason string) {
			res.stats.Rows++
			skipped(&SkippedRowError{File: rel, Line: line, Reason: reason})
		})
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrReadFile, rel, err)
	}
	return res, nil
}

// LoadImageIndex reads the image index file. A missing file is an empty index.
func LoadImageIndex(path string) (record.ImageIndex, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return record.ImageIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFile, path, err)
	}
	var idx record.ImageIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFile, path, err)
	}
	if idx == nil {
		idx = record.ImageIndex{}
	}
	return idx, nil
}

type nopRecorder struct{}

func (nopRecorder) RowsLoaded(string, int)  {}
func (nopRecorder) RowsSkipped(string, int) {}
