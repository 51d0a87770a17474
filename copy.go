package vdfs

import (
	"io/fs"

	"github.com/meigma/vdfs/internal/batch"
	"github.com/meigma/vdfs/internal/pathutil"
)

// CopyTo extracts specific files to a destination directory, keeping their
// paths relative to destDir. Paths that do not name a file are ignored.
//
// Parent directories are created as needed. Existing files are skipped.
func (r *Registry) CopyTo(destDir string, paths ...string) error {
	return r.CopyToWithOptions(destDir, paths)
}

// CopyToWithOptions extracts specific files with options.
func (r *Registry) CopyToWithOptions(destDir string, paths []string, opts ...CopyOption) error {
	if len(paths) == 0 {
		return nil
	}

	cfg := copyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return r.copyEntries(destDir, r.collectPathEntries(paths), &cfg)
}

// CopyDir extracts every file below the directory prefix to destDir.
//
// If prefix is "" or ".", the whole tree is extracted. Files keep their full
// path relative to destDir and are written atomically using temp files and
// renames.
//
// By default:
//   - Existing files are skipped (use CopyWithOverwrite to overwrite)
//   - Modification times are not preserved (use CopyWithPreserveTimes)
//   - Files are written by GOMAXPROCS workers (use CopyWithWorkers to change)
func (r *Registry) CopyDir(destDir, prefix string, opts ...CopyOption) error {
	cfg := copyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	prefix = NormalizePath(prefix)
	if prefix == "." {
		prefix = ""
	}
	entries, ok := r.collectPrefixEntries(prefix)
	if !ok {
		return &fs.PathError{Op: "copy", Path: prefix, Err: fs.ErrNotExist}
	}
	return r.copyEntries(destDir, entries, &cfg)
}

// collectPathEntries collects entries for specific paths.
func (r *Registry) collectPathEntries(paths []string) []*batch.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*batch.Entry, 0, len(paths))
	for _, path := range paths {
		path = NormalizePath(path)
		f, ok := r.root.Lookup(path)
		if !ok {
			continue
		}
		entries = append(entries, newBatchEntry(path, f))
	}
	return entries
}

// collectPrefixEntries collects all files below the directory prefix.
func (r *Registry) collectPrefixEntries(prefix string) ([]*batch.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir, ok := r.root.LookupDir(prefix)
	if !ok {
		return nil, false
	}

	dirPrefix := pathutil.DirPrefix(prefix)
	var entries []*batch.Entry //nolint:prealloc // size unknown until iteration
	for item := range dir.Files() {
		entries = append(entries, newBatchEntry(dirPrefix+item.Path, item.File))
	}
	return entries, true
}

func newBatchEntry(path string, f *FileEntry) *batch.Entry {
	return &batch.Entry{
		Path:      path,
		Origin:    f.Origin,
		Offset:    f.Offset,
		Size:      f.Size,
		Timestamp: f.Timestamp,
	}
}

// copyEntries uses the batch processor to copy entries to destDir.
func (r *Registry) copyEntries(destDir string, entries []*batch.Entry, cfg *copyConfig) error {
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if !fs.ValidPath(entry.Path) {
			return &fs.PathError{Op: "copy", Path: entry.Path, Err: fs.ErrInvalid}
		}
	}

	sink := batch.NewFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithPreserveTimes(cfg.preserveTimes),
	)

	procOpts := []batch.ProcessorOption{
		batch.WithMaxFileSize(r.maxFileSize),
		batch.WithLogger(r.log()),
	}
	if cfg.workers != 0 {
		procOpts = append(procOpts, batch.WithWorkers(cfg.workers))
	}
	if cfg.progress != nil {
		progress := cfg.progress
		procOpts = append(procOpts, batch.WithProgress(func(e *batch.Entry, done, total int) {
			progress(e.Path, done, total)
		}))
	}

	stats, err := batch.NewProcessor(procOpts...).Process(entries, sink)
	r.log().Debug("copy finished",
		"dest", destDir,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"bytes", stats.Bytes)
	return err
}
