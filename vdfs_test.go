package vdfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vdfs/internal/testutil"
)

// scenario is a three-row volume: a root file, a directory closing the root
// run, and a file closing DATA's run.
func scenario(timestamp uint32) testutil.Volume {
	return testutil.Volume{
		Comment:   "scenario",
		Timestamp: timestamp,
		Rows: []testutil.Row{
			{Name: "README.TXT", Data: []byte("hello")},
			{Name: "DATA", Dir: true, Last: true},
			{Name: "A.TXT", Last: true, Data: []byte("abcde")},
		},
	}
}

// mountVolume writes v to a temp dir and mounts it into r.
func mountVolume(t *testing.T, r *Registry, name string, v testutil.Volume) string {
	t.Helper()
	path := testutil.WriteVolume(t, t.TempDir(), name, v)
	require.NoError(t, r.Mount(path))
	return path
}

func TestScenario(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))

	assert.True(t, r.FileExists("README.TXT"))
	assert.True(t, r.FileExists("DATA/A.TXT"))
	assert.False(t, r.FileExists("A.TXT"))
	assert.False(t, r.FileExists("DATA"), "directories are not files")
	assert.True(t, r.DirExists("DATA"))

	content, err := r.ExtractFile("DATA/A.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), content)
}

func TestEnumerateOrder(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))

	var got []string
	var depths []int
	for _, item := range r.Enumerate() {
		got = append(got, item.Path)
		depths = append(depths, item.Depth)
	}
	assert.Equal(t, []string{"README.TXT", "DATA", "DATA/A.TXT"}, got)
	assert.Equal(t, []int{0, 0, 1}, depths)

	var walked []string
	for item := range r.Walk() {
		walked = append(walked, item.Path)
		if len(walked) == 2 {
			break
		}
	}
	assert.Equal(t, got[:2], walked)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"_WORK/DATA/SCRIPTS/GOTHIC.DAT":  []byte("compiled scripts"),
		"_WORK/DATA/WORLDS/WORLD.ZEN":    []byte("zen"),
		"_WORK/DATA/TEXTURES/STONE.TGA":  []byte("pixels pixels pixels"),
		"_WORK/DATA/TEXTURES/EMPTY.TGA":  {},
		"_WORK/DATA/MUSIC/NEWWORLD/X.SGT": []byte("music"),
		"VERSION.TXT":                    []byte("1.08k"),
	}

	r := New()
	path := mountVolume(t, r, "all.vdf", testutil.FromFiles(42, files))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	count := 0
	for item := range r.Walk() {
		if item.IsDir {
			continue
		}
		count++
		content, err := r.ExtractFile(item.Path)
		require.NoError(t, err, item.Path)
		assert.Equal(t, files[item.Path], content, item.Path)

		f := item.File
		assert.Equal(t, path, f.Origin)
		assert.Len(t, content, int(f.Size))
		assert.Equal(t, raw[f.Offset:f.Offset+f.Size], content)
	}
	assert.Equal(t, len(files), count)

	stats := r.Stats()
	assert.Equal(t, len(files), stats.Files)
	assert.Equal(t, 7, stats.Dirs)
}

func TestMountIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteVolume(t, dir, "a.vdf", scenario(5))

	once := New()
	require.NoError(t, once.Mount(path))

	twice := New()
	require.NoError(t, twice.Mount(path))
	require.NoError(t, twice.Mount(path))

	assert.Equal(t, once.Enumerate(), twice.Enumerate())

	vols := twice.Volumes()
	require.Len(t, vols, 2)
	assert.Equal(t, 2, vols[0].Added)
	assert.Equal(t, 0, vols[1].Added)
	assert.Equal(t, 2, vols[1].Skipped)
}

func TestOverrideByTimestamp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	older := testutil.WriteVolume(t, dir, "older.vdf", testutil.FromFiles(100, map[string][]byte{
		"SHARED/X.TXT": []byte("old"),
		"ONLY_OLD.TXT": []byte("o"),
	}))
	newer := testutil.WriteVolume(t, dir, "newer.vdf", testutil.FromFiles(200, map[string][]byte{
		"SHARED/X.TXT": []byte("new"),
		"ONLY_NEW.TXT": []byte("n"),
	}))

	tests := []struct {
		name  string
		order []string
	}{
		{"older first", []string{older, newer}},
		{"newer first", []string{newer, older}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New()
			require.NoError(t, r.MountAll(tt.order...))

			info, ok := r.FileInfo("SHARED/X.TXT")
			require.True(t, ok)
			assert.Equal(t, newer, info.Origin)
			assert.Equal(t, uint32(200), info.Timestamp)

			content, err := r.ExtractFile("SHARED/X.TXT")
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), content)

			assert.True(t, r.FileExists("ONLY_OLD.TXT"))
			assert.True(t, r.FileExists("ONLY_NEW.TXT"))
		})
	}
}

func TestEqualTimestampKeepsFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := testutil.WriteVolume(t, dir, "first.vdf", testutil.FromFiles(7, map[string][]byte{"X": []byte("1")}))
	second := testutil.WriteVolume(t, dir, "second.vdf", testutil.FromFiles(7, map[string][]byte{"X": []byte("2")}))

	r := New()
	require.NoError(t, r.MountAll(first, second))

	info, ok := r.FileInfo("X")
	require.True(t, ok)
	assert.Equal(t, first, info.Origin)
}

func TestBackslashPaths(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "deep.vdf", testutil.FromFiles(1, map[string][]byte{
		"A/B/C": []byte("c"),
	}))

	assert.Equal(t, r.FileExists("A/B/C"), r.FileExists(`A\B\C`))
	assert.True(t, r.FileExists(`A\B\C`))
	assert.Equal(t, r.FileExists("A/B/X"), r.FileExists(`A\B\X`))

	slash, ok := r.FileInfo("A/B/C")
	require.True(t, ok)
	back, ok := r.FileInfo(`A\B\C`)
	require.True(t, ok)
	assert.Equal(t, slash, back)

	content, err := r.ExtractFile(`A\B\C`)
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), content)
}

func TestLookupIsExact(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))

	for _, path := range []string{
		"readme.txt",
		"/README.TXT",
		"DATA/",
		"DATA//A.TXT",
		"./README.TXT",
		"DATA/../README.TXT",
		"",
	} {
		assert.False(t, r.FileExists(path), path)
	}
}

func TestUnnamedRowsAreNotReachable(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "unnamed.vdf", testutil.Volume{
		Timestamp: 1,
		Rows: []testutil.Row{
			{Name: "DATA", Dir: true, Last: true},
			{Name: " HIDDEN.TXT", Last: true, Data: []byte("x")},
		},
	})

	assert.False(t, r.FileExists("DATA/"))
	_, err := r.ExtractFile(`DATA\`)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, r.DirExists("DATA"))

	entries, err := r.ReadDir("DATA")
	require.NoError(t, err)
	assert.Empty(t, entries)
	for _, item := range r.Enumerate() {
		assert.NotEqual(t, "DATA/", item.Path)
	}
	require.NoError(t, r.CopyDir(t.TempDir(), "DATA"))
}

func TestMountMalformedHeaderLeavesTree(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "good.vdf", scenario(1))
	before := r.Enumerate()

	bad := scenario(2)
	bad.Version = "PSVDSC_V1.00\r\n\r\n"
	bad.Rows = append(bad.Rows[:0:0], testutil.Row{Name: "INJECTED.TXT", Last: true, Data: []byte("x")})
	path := testutil.WriteVolume(t, t.TempDir(), "bad.vdf", bad)

	err := r.Mount(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, before, r.Enumerate())
	assert.Len(t, r.Volumes(), 1)
}

func TestMountTruncatedTableKeepsMergedRows(t *testing.T) {
	t.Parallel()

	data := testutil.BuildVolume(t, scenario(1))
	// Header plus the first two rows; A.TXT's row is missing.
	cut := data[:296+2*80]
	path := filepath.Join(t.TempDir(), "cut.vdf")
	require.NoError(t, os.WriteFile(path, cut, 0o644))

	r := New()
	err := r.Mount(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.True(t, r.FileExists("README.TXT"))
	assert.True(t, r.DirExists("DATA"))
	assert.False(t, r.FileExists("DATA/A.TXT"))
	assert.Empty(t, r.Volumes(), "failed mounts are not listed")
}

func TestMountMissingFile(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Mount(filepath.Join(t.TempDir(), "missing.vdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Empty(t, r.Enumerate())
}

func TestMountAllJoinsErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := testutil.WriteVolume(t, dir, "good.vdf", scenario(1))
	missing := filepath.Join(dir, "missing.vdf")
	bad := testutil.WriteVolume(t, dir, "bad.vdf", testutil.Volume{Version: "garbage"})

	r := New()
	err := r.MountAll(missing, good, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrFormat)
	assert.True(t, r.FileExists("DATA/A.TXT"))

	vols := r.Volumes()
	require.Len(t, vols, 1)
	assert.Equal(t, good, vols[0].Path)
	assert.Equal(t, "scenario", vols[0].Comment)
	assert.Equal(t, uint32(3), vols[0].Entries)
	assert.Equal(t, uint32(2), vols[0].Files)
}

func TestMountGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := testutil.WriteVolume(t, dir, "b.vdf", testutil.FromFiles(1, map[string][]byte{"B": []byte("b")}))
	a := testutil.WriteVolume(t, dir, "a.vdf", testutil.FromFiles(1, map[string][]byte{"A": []byte("a")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	r := New()
	require.NoError(t, r.MountGlob(filepath.Join(dir, "*.vdf")))

	vols := r.Volumes()
	require.Len(t, vols, 2)
	assert.Equal(t, a, vols[0].Path)
	assert.Equal(t, b, vols[1].Path)

	err := r.MountGlob("[")
	require.Error(t, err)
	assert.True(t, errors.Is(err, filepath.ErrBadPattern))
}

func TestRootIsShared(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))

	root := r.Root()
	assert.True(t, root.HasDirectory("DATA"))
	assert.True(t, root.HasFile("README.TXT"))
}

func TestEnumerateDirAndDirStats(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))

	items, ok := r.EnumerateDir("DATA")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "A.TXT", items[0].Path)

	all, ok := r.EnumerateDir("")
	require.True(t, ok)
	assert.Equal(t, r.Enumerate(), all)

	stats, ok := r.DirStats("DATA")
	require.True(t, ok)
	assert.Equal(t, Stats{Files: 1, Bytes: 5}, stats)

	_, ok = r.EnumerateDir("DATA/")
	assert.False(t, ok)
	_, ok = r.DirStats("README.TXT")
	assert.False(t, ok)
}

func TestDirQueriesDuringMount(t *testing.T) {
	t.Parallel()

	r := New()
	mountVolume(t, r, "scenario.vdf", scenario(1))
	dir := t.TempDir()
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = testutil.WriteVolume(t, dir, fmt.Sprintf("v%d.vdf", i),
			testutil.FromFiles(uint32(i+2), map[string][]byte{fmt.Sprintf("DATA/F%d", i): []byte("x")}))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, p := range paths {
			assert.NoError(t, r.Mount(p))
		}
	}()
	for range 100 {
		_, ok := r.EnumerateDir("DATA")
		assert.True(t, ok)
		_, ok = r.DirStats("DATA")
		assert.True(t, ok)
	}
	wg.Wait()

	stats, ok := r.DirStats("DATA")
	require.True(t, ok)
	assert.Equal(t, 9, stats.Files)
}
