package loader

import (
	"filesdash/xref/internal/logger"
)

// Recorder receives per-file row counts.
type Recorder interface {
	RowsLoaded(table string, n int)
	RowsSkipped(table string, n int)
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithWorkers bounds the number of files read concurrently.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithPrimaryFiles sets the files of a table that are loaded before the rest,
// in the given order. Files earlier in the order take priority during resolution.
func WithPrimaryFiles(table string, files ...string) Option {
	return func(l *Loader) {
		l.primary[table] = files
	}
}

// WithImageIndex sets the image index file loaded alongside the tables.
func WithImageIndex(path string) Option {
	return func(l *Loader) {
		l.imageIndex = path
	}
}

// WithLogger sets a custom logger for the loader.
func WithLogger(logger logger.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics reports row counts to r.
func WithMetrics(r Recorder) Option {
	return func(l *Loader) {
		if r != nil {
			l.metrics = r
		}
	}
}
