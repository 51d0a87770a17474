package vdfs

import (
	"bytes"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/meigma/vdfs/internal/pathutil"
)

// Open implements fs.FS.
//
// Files are extracted in full when opened; the returned fs.File reads from
// memory and supports Seek and ReadAt. No volume handle stays open.
func (r *Registry) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if f, ok := r.lookupFile(name); ok {
		content, err := r.readEntry(&f)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &openFile{
			Reader: bytes.NewReader(content),
			info:   fileInfo{name: pathutil.Base(name), entry: f},
		}, nil
	}

	if entries, ok := r.readDir(name); ok {
		return &openDir{name: name, entries: entries}, nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS.
func (r *Registry) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	if f, ok := r.lookupFile(name); ok {
		return fileInfo{name: pathutil.Base(name), entry: f}, nil
	}
	if r.isDir(name) {
		return dirInfo{name: pathutil.Base(name)}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (r *Registry) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	f, ok := r.lookupFile(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	content, err := r.readEntry(&f)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return content, nil
}

// ReadDir implements fs.ReadDirFS.
//
// Entries are sorted by name. Files and directories report the modification
// time of the volume that contributed them and the zero time respectively.
func (r *Registry) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	entries, ok := r.readDir(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return entries, nil
}

// lookupFile resolves an fs.ValidPath name to a file. Unlike FileInfo, no
// separator conversion happens.
func (r *Registry) lookupFile(name string) (FileEntry, bool) {
	if name == "." {
		return FileEntry{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.root.Lookup(name)
	if !ok {
		return FileEntry{}, false
	}
	return *f, true
}

// isDir reports whether an fs.ValidPath name resolves to a directory.
func (r *Registry) isDir(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.root.LookupDir(pathutil.Rel(name))
	return ok
}

// readDir snapshots the children of the directory at name.
func (r *Registry) readDir(name string) ([]fs.DirEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir, ok := r.root.LookupDir(pathutil.Rel(name))
	if !ok {
		return nil, false
	}

	entries := make([]fs.DirEntry, 0, dir.Len())
	for _, n := range dir.FileNames() {
		f, _ := dir.File(n)
		entries = append(entries, fs.FileInfoToDirEntry(fileInfo{name: n, entry: *f}))
	}
	for _, n := range dir.DirNames() {
		entries = append(entries, fs.FileInfoToDirEntry(dirInfo{name: n}))
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, true
}

// fileInfo implements fs.FileInfo for an embedded file.
type fileInfo struct {
	name  string
	entry FileEntry
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return int64(fi.entry.Size) }
func (fi fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fileInfo) ModTime() time.Time { return fi.entry.ModTime() }
func (fi fileInfo) IsDir() bool        { return false }

// Sys returns the FileEntry describing where the content lives.
func (fi fileInfo) Sys() any { return fi.entry }

// dirInfo implements fs.FileInfo for a directory of the merged tree.
// Volumes do not record directory times.
type dirInfo struct {
	name string
}

func (di dirInfo) Name() string       { return di.name }
func (di dirInfo) Size() int64        { return 0 }
func (di dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di dirInfo) ModTime() time.Time { return time.Time{} }
func (di dirInfo) IsDir() bool        { return true }
func (di dirInfo) Sys() any           { return nil }

// openFile implements fs.File over extracted content.
type openFile struct {
	*bytes.Reader
	info   fileInfo
	closed bool
}

func (f *openFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *openFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrClosed}
	}
	return f.Reader.Read(p)
}

func (f *openFile) Close() error {
	if f.closed {
		return &fs.PathError{Op: "close", Path: f.info.name, Err: fs.ErrClosed}
	}
	f.closed = true
	return nil
}

// openDir implements fs.ReadDirFile over a snapshot of a directory.
type openDir struct {
	name    string
	entries []fs.DirEntry
	offset  int
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return dirInfo{name: pathutil.Base(d.name)}, nil
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return slices.Clone(rest), nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return slices.Clone(rest[:n]), nil
}
