// Package vdfs provides random access to the files packed in VDF volumes,
// the archive format of the Gothic games.
//
// A [Registry] merges one or more volumes into a single virtual directory
// tree. Volumes are mounted in order; when two volumes carry the same path,
// the file from the volume with the newer header timestamp wins regardless
// of mount order. Directories are merged, never replaced.
//
// Mounting reads only the volume's header and entry table. File content is
// read on demand from the volume that contributed it, and no volume handle
// is kept open between calls.
//
// # Quick Start
//
//	r := vdfs.New(vdfs.WithLogger(slog.Default()))
//	if err := r.MountGlob("Data/*.vdf"); err != nil {
//	    return err
//	}
//	content, err := r.ExtractFile(`_WORK\DATA\SCRIPTS\_COMPILED\GOTHIC.DAT`)
//
// Paths accept either slash or backslash separators and are matched
// case-sensitively against the names stored in the volumes.
//
// # fs.FS
//
// Registry implements fs.FS, fs.StatFS, fs.ReadFileFS and fs.ReadDirFS, so a
// mounted tree can be used with fs.WalkDir, http.FS and friends.
//
// # Caching
//
// Use [WithCache] to keep extracted content in a [cache.Cache]. The
// cache/disk package provides a zstd-compressed on-disk implementation.
package vdfs
