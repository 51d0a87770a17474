package tree

import "iter"

// Item is one node reported by Walk.
type Item struct {
	// Depth is 0 for direct children of the walked directory.
	Depth int

	// Name is the node's own name.
	Name string

	// Path is the slash-separated path relative to the walked directory.
	Path string

	// IsDir reports whether the node is a directory.
	IsDir bool

	// File is set for file nodes.
	File *File
}

// Walk returns a depth-first iterator over the subtree rooted at d.
//
// At every level files are yielded before subdirectories, and each
// subdirectory is fully walked before its next sibling. Names within each
// group are in lexical order.
func (d *Directory) Walk() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		d.walk(0, "", yield)
	}
}

func (d *Directory) walk(depth int, prefix string, yield func(Item) bool) bool {
	for _, name := range d.FileNames() {
		item := Item{Depth: depth, Name: name, Path: prefix + name, File: d.files[name]}
		if !yield(item) {
			return false
		}
	}
	for _, name := range d.DirNames() {
		path := prefix + name
		if !yield(Item{Depth: depth, Name: name, Path: path, IsDir: true}) {
			return false
		}
		if !d.subdirs[name].walk(depth+1, path+Separator, yield) {
			return false
		}
	}
	return true
}

// Enumerate collects Walk into a slice.
func (d *Directory) Enumerate() []Item {
	var items []Item //nolint:prealloc // size unknown until walked
	for item := range d.Walk() {
		items = append(items, item)
	}
	return items
}

// Stats summarizes a subtree.
type Stats struct {
	Files int
	Dirs  int
	Bytes uint64
}

// Stats counts the files, directories and content bytes below d.
func (d *Directory) Stats() Stats {
	var s Stats
	for item := range d.Walk() {
		if item.IsDir {
			s.Dirs++
			continue
		}
		s.Files++
		s.Bytes += uint64(item.File.Size)
	}
	return s
}

// Files returns an iterator over every file below d, in Walk order.
func (d *Directory) Files() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for item := range d.Walk() {
			if item.IsDir {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}
