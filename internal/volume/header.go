// Package volume decodes VDF volumes and merges their entry tables into a
// directory tree.
//
// A volume starts with a fixed 296-byte header followed by EntryCount
// 80-byte table rows. All integers are little-endian uint32.
package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Layout constants.
const (
	CommentSize = 256
	VersionSize = 16
	HeaderSize  = CommentSize + VersionSize + 6*4
	NameSize    = 64
	EntrySize   = NameSize + 4*4
)

// Marker is the version string every supported volume carries.
const Marker = "PSVDSC_V2.00\r\n\r\n"

// Sentinel errors.
var (
	// ErrFormat is returned when a volume header or table is malformed.
	ErrFormat = errors.New("vdfs: invalid volume format")

	// ErrTruncated is returned when a volume ends before the data it declares.
	ErrTruncated = errors.New("vdfs: truncated volume")
)

// commentEOF is the legacy text-mode EOF byte found in comments.
const commentEOF = 0x1A

// Header is the fixed preamble of a volume.
type Header struct {
	Comment     string
	Version     string
	EntryCount  uint32
	FileCount   uint32
	Timestamp   uint32
	DataSize    uint32
	TableOffset uint32
	EntrySize   uint32
}

// CreatedAt returns Timestamp as a time.Time.
func (h *Header) CreatedAt() time.Time {
	return time.Unix(int64(h.Timestamp), 0).UTC()
}

// rawHeader mirrors the on-disk header.
type rawHeader struct {
	Comment [CommentSize]byte
	Version [VersionSize]byte
	Params  params
}

type params struct {
	EntryCount  uint32
	FileCount   uint32
	Timestamp   uint32
	DataSize    uint32
	TableOffset uint32
	EntrySize   uint32
}

// ReadHeader decodes and validates a header from r.
//
// A short comment or version, a version other than Marker, or a short
// parameter block all yield an error wrapping ErrFormat.
func ReadHeader(r io.Reader) (Header, error) {
	var raw rawHeader
	if _, err := io.ReadFull(r, raw.Comment[:]); err != nil {
		return Header{}, formatError("read comment", err)
	}
	if _, err := io.ReadFull(r, raw.Version[:]); err != nil {
		return Header{}, formatError("read version", err)
	}
	if string(raw.Version[:]) != Marker {
		return Header{}, fmt.Errorf("%w: unexpected version %q", ErrFormat, raw.Version[:])
	}
	if err := binary.Read(r, binary.LittleEndian, &raw.Params); err != nil {
		return Header{}, formatError("read header fields", err)
	}

	return Header{
		Comment:     decodeComment(raw.Comment[:]),
		Version:     string(raw.Version[:]),
		EntryCount:  raw.Params.EntryCount,
		FileCount:   raw.Params.FileCount,
		Timestamp:   raw.Params.Timestamp,
		DataSize:    raw.Params.DataSize,
		TableOffset: raw.Params.TableOffset,
		EntrySize:   raw.Params.EntrySize,
	}, nil
}

// formatError reports EOF conditions as ErrFormat and passes other read
// failures through.
func formatError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", ErrFormat, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// decodeComment zeroes 0x1A bytes and returns the text up to the first NUL.
func decodeComment(b []byte) string {
	buf := bytes.Clone(b)
	for i, c := range buf {
		if c == commentEOF {
			buf[i] = 0
		}
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}
