// Package tree holds the in-memory directory hierarchy that mounted volumes
// are merged into.
//
// Every directory exclusively owns its files and subdirectories. Names are
// compared byte-for-byte; "." and ".." have no special meaning.
package tree

import (
	"slices"
	"strings"
	"time"
)

// Separator delimits path segments in lookups.
const Separator = "/"

// File describes where an embedded file lives. It is immutable once created.
type File struct {
	// Origin is the path of the volume the bytes are read from.
	Origin string

	// Offset is the byte offset of the content within Origin.
	Offset uint32

	// Size is the content length in bytes.
	Size uint32

	// Timestamp is the creation time of the volume that contributed the file,
	// in Unix seconds.
	Timestamp uint32
}

// NewFile returns a File for the given location.
func NewFile(origin string, offset, size, timestamp uint32) *File {
	return &File{
		Origin:    origin,
		Offset:    offset,
		Size:      size,
		Timestamp: timestamp,
	}
}

// ModTime returns Timestamp as a time.Time.
func (f *File) ModTime() time.Time {
	return time.Unix(int64(f.Timestamp), 0).UTC()
}

// Directory is a node in the tree.
type Directory struct {
	files   map[string]*File
	subdirs map[string]*Directory
}

// New returns an empty, unnamed directory suitable as a tree root.
func New() *Directory {
	return &Directory{
		files:   make(map[string]*File),
		subdirs: make(map[string]*Directory),
	}
}

// HasDirectory reports whether name is a direct subdirectory of d.
func (d *Directory) HasDirectory(name string) bool {
	_, ok := d.subdirs[name]
	return ok
}

// HasFile reports whether the slash-separated path resolves to a file.
func (d *Directory) HasFile(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

// Lookup resolves a slash-separated path, relative to d, to a file.
func (d *Directory) Lookup(path string) (*File, bool) {
	dir, rest := d, path
	for {
		head, tail, found := strings.Cut(rest, Separator)
		if head == "" {
			return nil, false
		}
		if !found {
			f, ok := dir.files[head]
			return f, ok
		}
		next, ok := dir.subdirs[head]
		if !ok {
			return nil, false
		}
		dir, rest = next, tail
	}
}

// LookupDir resolves a slash-separated path to a directory. The empty path
// resolves to d itself.
func (d *Directory) LookupDir(path string) (*Directory, bool) {
	if path == "" {
		return d, true
	}
	dir := d
	for _, name := range strings.Split(path, Separator) {
		if name == "" {
			return nil, false
		}
		next, ok := dir.subdirs[name]
		if !ok {
			return nil, false
		}
		dir = next
	}
	return dir, true
}

// File returns the direct child file called name.
func (d *Directory) File(name string) (*File, bool) {
	f, ok := d.files[name]
	return f, ok
}

// Dir returns the direct subdirectory called name.
func (d *Directory) Dir(name string) (*Directory, bool) {
	sub, ok := d.subdirs[name]
	return sub, ok
}

// Mkdir returns the subdirectory called name, creating it when absent.
// created is false when the directory already existed. Mkdir refuses to
// shadow a file of the same name and returns ok == false.
func (d *Directory) Mkdir(name string) (sub *Directory, created, ok bool) {
	if sub, exists := d.subdirs[name]; exists {
		return sub, false, true
	}
	if _, isFile := d.files[name]; isFile {
		return nil, false, false
	}
	sub = New()
	d.subdirs[name] = sub
	return sub, true, true
}

// Merge outcomes reported by PutFile.
const (
	Skipped  = iota // an existing file was kept
	Added           // the name was new
	Replaced        // an older file was overwritten
	Conflict        // the name is taken by a subdirectory
)

// PutFile inserts f under name. An existing file is only replaced when f has
// a strictly greater Timestamp.
func (d *Directory) PutFile(name string, f *File) int {
	if _, isDir := d.subdirs[name]; isDir {
		return Conflict
	}
	existing, ok := d.files[name]
	if !ok {
		d.files[name] = f
		return Added
	}
	if f.Timestamp > existing.Timestamp {
		d.files[name] = f
		return Replaced
	}
	return Skipped
}

// FileNames returns the names of direct child files in lexical order.
func (d *Directory) FileNames() []string {
	return sortedKeys(d.files)
}

// DirNames returns the names of direct subdirectories in lexical order.
func (d *Directory) DirNames() []string {
	return sortedKeys(d.subdirs)
}

// Len returns the number of direct children.
func (d *Directory) Len() int {
	return len(d.files) + len(d.subdirs)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
