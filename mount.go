package vdfs

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/meigma/vdfs/internal/volume"
)

// Mount merges the volume at path into the tree.
//
// Mounts are cumulative and order-sensitive only for ties: a file already in
// the tree is replaced only by one from a volume with a strictly newer
// timestamp. A volume with a bad header leaves the tree unchanged. If the
// entry table is cut short, the rows read before that point stay merged and
// ErrTruncated is returned.
func (r *Registry) Mount(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := volume.LoadFile(path, r.root, volume.WithLogger(r.log()))
	if err != nil {
		if res != nil {
			r.log().Warn("volume partially mounted",
				slog.String("volume", path),
				slog.Int("added", res.Added),
				slog.Int("replaced", res.Replaced),
				slog.Any("error", err))
		}
		return err
	}

	v := Volume{
		Path:      path,
		Comment:   res.Header.Comment,
		CreatedAt: res.Header.CreatedAt(),
		Entries:   res.Header.EntryCount,
		Files:     res.Header.FileCount,
		DataSize:  res.Header.DataSize,
		Added:     res.Added,
		Replaced:  res.Replaced,
		Skipped:   res.Skipped,
		Conflicts: res.Conflicts,
	}
	r.volumes = append(r.volumes, v)

	r.log().Info("volume mounted",
		slog.String("volume", path),
		slog.Time("created", v.CreatedAt),
		slog.Int("added", v.Added),
		slog.Int("replaced", v.Replaced),
		slog.Int("skipped", v.Skipped))
	return nil
}

// MountAll mounts paths in order. A failed mount does not stop the rest;
// all failures are joined into the returned error.
func (r *Registry) MountAll(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if err := r.Mount(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MountGlob mounts every file matching pattern (see filepath.Match) in
// lexical order.
func (r *Registry) MountGlob(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("mount %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return r.MountAll(matches...)
}
