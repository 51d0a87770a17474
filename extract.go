package vdfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/meigma/vdfs/cache"
)

// ExtractFile reads the content of the file at path.
//
// The bytes are read from the volume that contributed the file, which is
// opened for the duration of the call only. A missing path returns an
// *fs.PathError wrapping fs.ErrNotExist. Empty files return an empty slice.
// The returned slice belongs to the caller.
func (r *Registry) ExtractFile(path string) ([]byte, error) {
	path = NormalizePath(path)
	f, ok := r.FileInfo(path)
	if !ok {
		return nil, &fs.PathError{Op: "extract", Path: path, Err: fs.ErrNotExist}
	}
	content, err := r.readEntry(&f)
	if err != nil {
		return nil, &fs.PathError{Op: "extract", Path: path, Err: err}
	}
	return content, nil
}

// readEntry returns the content of f, going through the cache when one is
// configured.
func (r *Registry) readEntry(f *FileEntry) ([]byte, error) {
	if r.maxFileSize > 0 && uint64(f.Size) > r.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrSizeOverflow, f.Size)
	}
	if f.Size == 0 {
		return []byte{}, nil
	}

	// No cache - read straight from the volume
	if r.cache == nil {
		return readRange(f)
	}

	key := cache.Key(f.Origin, f.Offset, f.Size, f.Timestamp)
	if content, ok := r.cache.Get(key); ok && len(content) == int(f.Size) {
		r.log().Debug("extract cache hit", "origin", f.Origin, "offset", f.Offset)
		return bytes.Clone(content), nil
	}
	r.log().Debug("extract cache miss", "origin", f.Origin, "offset", f.Offset)

	// Cache miss with singleflight
	result, err, _ := r.readGroup.Do(key.String(), func() (any, error) {
		// Double-check cache
		if content, ok := r.cache.Get(key); ok && len(content) == int(f.Size) {
			return content, nil
		}

		content, err := readRange(f)
		if err != nil {
			return nil, err
		}

		if err := r.cache.Put(key, content); err != nil {
			r.log().Warn("cache put failed", "origin", f.Origin, slog.Any("error", err))
		}
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	// Shared with the cache and with every caller of this flight.
	return bytes.Clone(result.([]byte)), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// readRange opens the origin volume of f and reads exactly f.Size bytes at
// f.Offset.
func readRange(f *FileEntry) ([]byte, error) {
	src, err := os.Open(f.Origin) //nolint:gosec // origin is a mounted volume
	if err != nil {
		return nil, fmt.Errorf("open volume %s: %w", f.Origin, err)
	}
	defer src.Close()

	content := make([]byte, f.Size)
	_, err = io.ReadFull(io.NewSectionReader(src, int64(f.Offset), int64(f.Size)), content)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %s ends before offset %d+%d: %w",
			ErrTruncated, f.Origin, f.Offset, f.Size, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("read volume %s: %w", f.Origin, err)
	}
	return content, nil
}
