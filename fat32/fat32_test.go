package fat32_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/disktest"
	"github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/fat32"
)

func formattedVolume(t *testing.T) *fat32.Driver {
	t.Helper()
	dev := disktest.NewSimulatedDevice(512, 200000) // ~100 MiB
	require.NoError(t, fat32.Format(dev, fat32.FormatOptions{Label: "SURVIVAL"}))

	drv := &fat32.Driver{}
	require.NoError(t, drv.Mount(dev))
	return drv
}

func TestFormatThenMountRecoversLabel(t *testing.T) {
	drv := formattedVolume(t)
	assert.Equal(t, "SURVIVAL", drv.Label())
}

func TestWriteThenReadFileRoundTrips(t *testing.T) {
	drv := formattedVolume(t)
	data := []byte("hello from the survival workstation\n")

	var lastDone, lastTotal int
	err := drv.WriteFile("/hello.txt", data, func(done, total int) {
		lastDone, lastTotal = done, total
	})
	require.NoError(t, err)
	assert.Equal(t, lastTotal, lastDone)

	got, err := drv.ReadFile("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMkdirThenOpenDirListsEntry(t *testing.T) {
	drv := formattedVolume(t)
	require.NoError(t, drv.Mkdir("/projects"))

	entries, err := drv.OpenDir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "projects", entries[0].Name)
	assert.True(t, entries[0].IsDir)
}

func TestMkdirRejectsDuplicate(t *testing.T) {
	drv := formattedVolume(t)
	require.NoError(t, drv.Mkdir("/src"))
	err := drv.Mkdir("/src")
	assert.ErrorIs(t, err, errors.ErrExists)
}

func TestLongFileNameRoundTripsAtChainBoundaries(t *testing.T) {
	drv := formattedVolume(t)
	// 13, 14, and 27 characters span 1, 2, and 3 LFN entries respectively
	// per spec.md §8's boundary cases.
	names := []string{
		strings.Repeat("a", 9) + ".txt",
		strings.Repeat("b", 10) + ".txt",
		strings.Repeat("c", 23) + ".txt",
	}
	for _, name := range names {
		require.NoError(t, drv.WriteFile("/"+name, []byte("x"), nil))
	}

	entries, err := drv.OpenDir("/")
	require.NoError(t, err)
	require.Len(t, entries, len(names))
	var gotNames []string
	for _, e := range entries {
		gotNames = append(gotNames, e.Name)
	}
	for _, name := range names {
		assert.Contains(t, gotNames, name)
	}
}

func TestRenameMovesEntry(t *testing.T) {
	drv := formattedVolume(t)
	require.NoError(t, drv.WriteFile("/a.txt", []byte("data"), nil))
	require.NoError(t, drv.Rename("/a.txt", "/b.txt"))

	_, err := drv.ReadFile("/a.txt")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	got, err := drv.ReadFile("/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestRemoveNonEmptyDirectoryFails(t *testing.T) {
	drv := formattedVolume(t)
	require.NoError(t, drv.Mkdir("/dir"))
	require.NoError(t, drv.WriteFile("/dir/f.txt", []byte("x"), nil))

	err := drv.Remove("/dir")
	assert.ErrorIs(t, err, errors.ErrNotEmpty)
}

func TestRemoveFileFreesSpace(t *testing.T) {
	drv := formattedVolume(t)
	freeBefore, _ := drv.FreeSpace()

	require.NoError(t, drv.WriteFile("/big.bin", make([]byte, 64*1024), nil))
	freeAfterWrite, _ := drv.FreeSpace()
	assert.Less(t, freeAfterWrite, freeBefore)

	require.NoError(t, drv.Remove("/big.bin"))
	freeAfterRemove, _ := drv.FreeSpace()
	assert.Equal(t, freeBefore, freeAfterRemove)
}
