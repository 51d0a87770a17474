package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Flag bits of a table row.
type Flag uint32

const (
	// FlagDirectory marks a row describing a directory.
	FlagDirectory Flag = 0x80000000

	// FlagLast marks the final row of a directory's run of children.
	FlagLast Flag = 0x40000000
)

// Attr holds the DOS-style attribute bits stored with every row. The loader
// ignores them.
type Attr uint32

const (
	AttrReadOnly Attr = 1
	AttrHidden   Attr = 2
	AttrSystem   Attr = 4
	AttrArchive  Attr = 32
)

// String renders the attribute bits as "rhsa", with "-" for unset bits.
func (a Attr) String() string {
	var sb strings.Builder
	for _, bit := range []struct {
		attr Attr
		ch   byte
	}{
		{AttrReadOnly, 'r'},
		{AttrHidden, 'h'},
		{AttrSystem, 's'},
		{AttrArchive, 'a'},
	} {
		if a&bit.attr != 0 {
			sb.WriteByte(bit.ch)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Entry is one decoded table row.
type Entry struct {
	Name   string
	Offset uint32
	Size   uint32
	Flags  Flag
	Attrs  Attr
}

// IsDir reports whether the row describes a directory.
func (e *Entry) IsDir() bool {
	return e.Flags&FlagDirectory != 0
}

// IsLast reports whether the row closes its directory's run.
func (e *Entry) IsLast() bool {
	return e.Flags&FlagLast != 0
}

type rawEntry struct {
	Name   [NameSize]byte
	Offset uint32
	Size   uint32
	Flags  uint32
	Attrs  uint32
}

// ReadEntry decodes one table row from r. A short row yields an error
// wrapping ErrTruncated.
func ReadEntry(r io.Reader) (Entry, error) {
	var raw rawEntry
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Entry{}, fmt.Errorf("%w: %w", ErrTruncated, io.ErrUnexpectedEOF)
		}
		return Entry{}, err
	}
	return Entry{
		Name:   DecodeName(raw.Name[:]),
		Offset: raw.Offset,
		Size:   raw.Size,
		Flags:  Flag(raw.Flags),
		Attrs:  Attr(raw.Attrs),
	}, nil
}

// DecodeName turns a space-padded name field into a string. Every space acts
// as a terminator, so the name ends at the first space or NUL.
func DecodeName(b []byte) string {
	for i, c := range b {
		if c == ' ' || c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
