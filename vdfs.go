package vdfs

import (
	"io/fs"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/vdfs/cache"
	"github.com/meigma/vdfs/internal/batch"
	"github.com/meigma/vdfs/internal/tree"
	"github.com/meigma/vdfs/internal/volume"
)

// Re-export types from internal packages for the public API.
type (
	// FileEntry locates one embedded file: the volume it is read from, its
	// byte range there and the timestamp of that volume.
	FileEntry = tree.File

	// Item is one node reported by Walk and Enumerate.
	Item = tree.Item

	// Directory is a node of the merged tree.
	Directory = tree.Directory

	// Stats summarizes a tree.
	Stats = tree.Stats
)

// Sentinel errors re-exported from internal packages.
var (
	// ErrFormat is returned when a volume header or table is malformed.
	ErrFormat = volume.ErrFormat

	// ErrTruncated is returned when a volume ends before the data it declares.
	ErrTruncated = volume.ErrTruncated

	// ErrSizeOverflow is returned when a file exceeds the configured size limit.
	ErrSizeOverflow = batch.ErrTooLarge
)

// Interface compliance.
var (
	_ fs.FS         = (*Registry)(nil)
	_ fs.StatFS     = (*Registry)(nil)
	_ fs.ReadFileFS = (*Registry)(nil)
	_ fs.ReadDirFS  = (*Registry)(nil)
)

// Volume summarizes a mounted volume.
type Volume struct {
	// Path is the file the volume was mounted from.
	Path string

	Comment   string
	CreatedAt time.Time

	// Entries and Files are the counts declared by the header.
	Entries uint32
	Files   uint32

	// DataSize is the size of the content region declared by the header.
	DataSize uint32

	// Merge outcome of the volume's file rows.
	Added     int
	Replaced  int
	Skipped   int
	Conflicts int
}

// Registry is a virtual directory tree assembled from mounted volumes.
//
// A Registry is safe for concurrent use. Mount takes an exclusive lock;
// lookups and extraction share a read lock.
type Registry struct {
	mu          sync.RWMutex
	root        *tree.Directory
	volumes     []Volume
	cache       cache.Cache        // nil = no caching
	readGroup   singleflight.Group // zero value is valid
	maxFileSize uint64
	logger      *slog.Logger
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{root: tree.New()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// FileExists reports whether path names a file. Backslashes are accepted as
// separators.
func (r *Registry) FileExists(path string) bool {
	_, ok := r.FileInfo(path)
	return ok
}

// FileInfo returns the location of the file at path.
func (r *Registry) FileInfo(path string) (FileEntry, bool) {
	path = NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.root.Lookup(path)
	if !ok {
		return FileEntry{}, false
	}
	return *f, true
}

// DirExists reports whether path names a directory. The empty path is the
// root.
func (r *Registry) DirExists(path string) bool {
	path = NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.root.LookupDir(path)
	return ok
}

// Walk returns a depth-first iterator over the whole tree: at each level
// files come before subdirectories, and every subdirectory is walked before
// its next sibling.
//
// The read lock is held while iterating; do not Mount from inside the loop.
func (r *Registry) Walk() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for item := range r.root.Walk() {
			if !yield(item) {
				return
			}
		}
	}
}

// Enumerate returns every node of the tree in Walk order.
func (r *Registry) Enumerate() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root.Enumerate()
}

// EnumerateDir returns every node below the directory at path in Walk
// order, with paths relative to that directory. The empty path is the root.
func (r *Registry) EnumerateDir(path string) ([]Item, bool) {
	path = NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	dir, ok := r.root.LookupDir(path)
	if !ok {
		return nil, false
	}
	return dir.Enumerate(), true
}

// DirStats counts the files, directories and content bytes below the
// directory at path.
func (r *Registry) DirStats(path string) (Stats, bool) {
	path = NormalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	dir, ok := r.root.LookupDir(path)
	if !ok {
		return Stats{}, false
	}
	return dir.Stats(), true
}

// Stats counts the files, directories and content bytes in the tree.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root.Stats()
}

// Root returns the live root directory without taking the lock. It must not
// be used, and must never be modified, while another goroutine mounts.
// EnumerateDir and DirStats are the synchronized equivalents.
func (r *Registry) Root() *Directory {
	return r.root
}

// Volumes returns the volumes mounted so far, in mount order.
func (r *Registry) Volumes() []Volume {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.volumes)
}
