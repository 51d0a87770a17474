package vdfs

import (
	"log/slog"

	"github.com/meigma/vdfs/cache"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for mount and cache diagnostics. Volume tables
// are traced row by row at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCache enables caching of extracted content.
//
// Content is keyed by its location (origin, offset, size and timestamp).
// Concurrent extractions of the same file are deduplicated.
func WithCache(c cache.Cache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// WithMaxFileSize limits the size of a single extracted file.
// Set limit to 0 to disable the limit (the default).
func WithMaxFileSize(limit uint64) Option {
	return func(r *Registry) {
		r.maxFileSize = limit
	}
}

// CopyOption configures CopyTo and CopyDir operations.
type CopyOption func(*copyConfig)

type copyConfig struct {
	overwrite     bool
	preserveTimes bool
	workers       int
	progress      func(path string, done, total int)
}

// CopyWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func CopyWithOverwrite(overwrite bool) CopyOption {
	return func(c *copyConfig) {
		c.overwrite = overwrite
	}
}

// CopyWithPreserveTimes sets each file's modification time to the timestamp
// of the volume it came from. By default files use the current time.
func CopyWithPreserveTimes(preserve bool) CopyOption {
	return func(c *copyConfig) {
		c.preserveTimes = preserve
	}
}

// CopyWithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func CopyWithWorkers(n int) CopyOption {
	return func(c *copyConfig) {
		c.workers = n
	}
}

// CopyWithProgress sets a callback invoked after each file is written.
// It may be called from several goroutines.
func CopyWithProgress(fn func(path string, done, total int)) CopyOption {
	return func(c *copyConfig) {
		c.progress = fn
	}
}
