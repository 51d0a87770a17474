package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/meigma/vdfs/internal/volume"
)

// Row describes one table row for BuildVolume.
type Row struct {
	Name  string
	Dir   bool
	Last  bool
	Attrs uint32

	// Data is appended after the table for file rows; Offset and Size are
	// derived from it unless Offset is non-zero.
	Data   []byte
	Offset uint32
}

// Volume describes a volume for BuildVolume.
type Volume struct {
	Comment   string
	Timestamp uint32
	Rows      []Row

	// Version replaces the marker when non-empty.
	Version string
}

// BuildVolume encodes v in the on-disk VDF layout.
func BuildVolume(tb testing.TB, v Volume) []byte {
	tb.Helper()

	version := v.Version
	if version == "" {
		version = volume.Marker
	}

	tableEnd := uint32(volume.HeaderSize + len(v.Rows)*volume.EntrySize)
	var data bytes.Buffer
	files := 0
	type placed struct {
		offset, size, flags uint32
	}
	layout := make([]placed, len(v.Rows))
	for i, row := range v.Rows {
		var p placed
		if row.Dir {
			p.flags |= uint32(volume.FlagDirectory)
		} else {
			files++
			p.offset = tableEnd + uint32(data.Len())
			if row.Offset != 0 {
				p.offset = row.Offset
			}
			p.size = uint32(len(row.Data))
			data.Write(row.Data)
		}
		if row.Last {
			p.flags |= uint32(volume.FlagLast)
		}
		layout[i] = p
	}

	var buf bytes.Buffer
	comment := make([]byte, volume.CommentSize)
	for i := range comment {
		comment[i] = 0x1A
	}
	copy(comment, v.Comment)
	buf.Write(comment)

	ver := make([]byte, volume.VersionSize)
	copy(ver, version)
	buf.Write(ver)

	for _, field := range []uint32{
		uint32(len(v.Rows)),
		uint32(files),
		v.Timestamp,
		uint32(data.Len()),
		volume.HeaderSize,
		volume.EntrySize,
	} {
		writeUint32(&buf, field)
	}

	for i, row := range v.Rows {
		name := bytes.Repeat([]byte{' '}, volume.NameSize)
		copy(name, row.Name)
		buf.Write(name)
		writeUint32(&buf, layout[i].offset)
		writeUint32(&buf, layout[i].size)
		writeUint32(&buf, layout[i].flags)
		writeUint32(&buf, row.Attrs)
	}

	buf.Write(data.Bytes())
	return buf.Bytes()
}

// WriteVolume encodes v into dir/name and returns the file path.
func WriteVolume(tb testing.TB, dir, name string, v Volume) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildVolume(tb, v), 0o644); err != nil {
		tb.Fatalf("write volume %s: %v", path, err)
	}
	return path
}

// FromFiles lays out files (slash-separated paths to contents) as table rows
// in the breadth-first order VDF writers use: the root's run first, then
// each directory's run in the order the directory was listed. Within a run
// files precede directories and names are sorted.
func FromFiles(timestamp uint32, files map[string][]byte) Volume {
	type node struct {
		files map[string][]byte
		dirs  map[string]*node
	}
	newNode := func() *node {
		return &node{files: map[string][]byte{}, dirs: map[string]*node{}}
	}

	root := newNode()
	for path, content := range files {
		parts := strings.Split(path, "/")
		n := root
		for _, dir := range parts[:len(parts)-1] {
			next, ok := n.dirs[dir]
			if !ok {
				next = newNode()
				n.dirs[dir] = next
			}
			n = next
		}
		n.files[parts[len(parts)-1]] = content
	}

	var rows []Row
	queue := []*node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		start := len(rows)
		for _, name := range sortedKeys(n.files) {
			rows = append(rows, Row{Name: name, Data: n.files[name]})
		}
		for _, name := range sortedKeys(n.dirs) {
			rows = append(rows, Row{Name: name, Dir: true})
			queue = append(queue, n.dirs[name])
		}
		if len(rows) > start {
			rows[len(rows)-1].Last = true
		}
	}

	return Volume{Timestamp: timestamp, Rows: rows}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
