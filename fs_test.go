package vdfs

import (
	"io"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vdfs/internal/testutil"
)

func newFSRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	mountVolume(t, r, "fs.vdf", testutil.FromFiles(1700000000, map[string][]byte{
		"README.TXT":          []byte("hello"),
		"DATA/A.TXT":          []byte("abcde"),
		"DATA/EMPTY.BIN":      {},
		"DATA/DEEP/NESTED.TX": []byte("nested"),
	}))
	return r
}

func TestFSConformance(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)
	require.NoError(t, fstest.TestFS(r,
		"README.TXT",
		"DATA/A.TXT",
		"DATA/EMPTY.BIN",
		"DATA/DEEP/NESTED.TX",
	))
}

func TestFSStat(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	info, err := r.Stat("DATA/A.TXT")
	require.NoError(t, err)
	assert.Equal(t, "A.TXT", info.Name())
	assert.Equal(t, int64(5), info.Size())
	assert.False(t, info.IsDir())
	assert.True(t, info.ModTime().Equal(time.Unix(1700000000, 0)))

	entry, ok := info.Sys().(FileEntry)
	require.True(t, ok)
	assert.Equal(t, uint32(5), entry.Size)

	info, err = r.Stat("DATA")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "DATA", info.Name())

	info, err = r.Stat(".")
	require.NoError(t, err)
	assert.Equal(t, ".", info.Name())

	_, err = r.Stat("MISSING")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = r.Stat("/DATA")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestFSReadDir(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	entries, err := r.ReadDir("DATA")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"A.TXT", "DEEP", "EMPTY.BIN"}, names)
	assert.True(t, entries[1].IsDir())

	_, err = r.ReadDir("README.TXT")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = r.ReadDir("DATA/../DATA")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestFSOpenDirPaging(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	f, err := r.Open("DATA")
	require.NoError(t, err)
	defer f.Close()

	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok)

	first, err := dir.ReadDir(2)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := dir.ReadDir(2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	_, err = dir.ReadDir(1)
	assert.ErrorIs(t, err, io.EOF)

	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestFSOpenFile(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	f, err := r.Open("DATA/A.TXT")
	require.NoError(t, err)

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), content)

	require.NoError(t, f.Close())
	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.ErrorIs(t, f.Close(), fs.ErrClosed)
}

func TestFSWalkDir(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	var files []string
	err := fs.WalkDir(r, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"README.TXT", "DATA/A.TXT", "DATA/EMPTY.BIN", "DATA/DEEP/NESTED.TX",
	}, files)
}

func TestFSBackslashIsLiteral(t *testing.T) {
	t.Parallel()

	r := newFSRegistry(t)

	_, err := r.ReadFile(`DATA\A.TXT`)
	assert.ErrorIs(t, err, fs.ErrNotExist, "fs.FS paths are slash-only")
}
