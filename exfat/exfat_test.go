package exfat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/disktest"
	"github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/exfat"
)

func formattedVolume(t *testing.T) *exfat.Driver {
	t.Helper()
	dev := disktest.NewSimulatedDevice(512, 200000)
	require.NoError(t, exfat.Format(dev, exfat.FormatOptions{Label: "SURVIVAL"}))

	drv := &exfat.Driver{}
	require.NoError(t, drv.Mount(dev))
	return drv
}

func TestFormatThenMountRecoversLabel(t *testing.T) {
	drv := formattedVolume(t)
	assert.Equal(t, "SURVIVAL", drv.Label())
}

func TestWriteThenReadFileRoundTrips(t *testing.T) {
	drv := formattedVolume(t)
	data := []byte("hello from the cluster heap\n")

	require.NoError(t, drv.WriteFile("/hello.txt", data, nil))
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

func TestCreateDeleteCreateRoundTrips(t *testing.T) {
	// Mirrors spec.md §8's exFAT create-delete-create property test.
	drv := formattedVolume(t)
	require.NoError(t, drv.WriteFile("/a.txt", []byte("hello\nthere"), nil))
	got, err := drv.ReadFile("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\nthere", string(got))

	require.NoError(t, drv.Remove("/a.txt"))
	_, err = drv.ReadFile("/a.txt")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, drv.WriteFile("/a.txt", []byte("world"), nil))
	got, err = drv.ReadFile("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
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

func TestLongNameRoundTrips(t *testing.T) {
	drv := formattedVolume(t)
	name := "a-reasonably-long-exfat-filename-past-fifteen-chars.txt"
	require.NoError(t, drv.WriteFile("/"+name, []byte("x"), nil))

	entries, err := drv.OpenDir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, name, entries[0].Name)
}
