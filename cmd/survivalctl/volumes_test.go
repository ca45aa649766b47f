package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/clone"
	"github.com/lowlevel-dev/survival/volume"
)

func TestFormatImageWithGPTIsDetectedAtESPOffset(t *testing.T) {
	dev, err := formatImage("usb-8g", "fat32", "TESTLBL", false)
	require.NoError(t, err)

	start, ok := detectESP(dev)
	require.True(t, ok)
	assert.Equal(t, uint64(espStartLBA), start)

	vol, err := mountVolume(espDevice(dev))
	require.NoError(t, err)
	assert.Equal(t, "TESTLBL", vol.Label())
}

func TestFormatImageNoGPTFormatsWholeDevice(t *testing.T) {
	dev, err := formatImage("usb-8g", "exfat", "", true)
	require.NoError(t, err)

	_, ok := detectESP(dev)
	assert.False(t, ok)

	vol, err := mountVolume(espDevice(dev))
	require.NoError(t, err)
	assert.NotNil(t, vol)
}

func TestOpenVolumeFromImageRoundTripsWriteThenRead(t *testing.T) {
	dev, err := formatImage("usb-4g", "fat32", "DATA", false)
	require.NoError(t, err)

	imagePath := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, saveImageFile(imagePath, dev))

	vol, reopened, err := openVolumeFromImage(imagePath)
	require.NoError(t, err)
	require.NoError(t, vol.WriteFile("/hello.txt", []byte("hi there"), nil))
	require.NoError(t, saveImageFile(imagePath, reopened))

	vol2, _, err := openVolumeFromImage(imagePath)
	require.NoError(t, err)
	data, err := vol2.ReadFile("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi there"), data)
}

func TestFsckFindsNoViolationsOnFreshVolume(t *testing.T) {
	dev, err := formatImage("sd-2g", "fat32", "", false)
	require.NoError(t, err)
	vol, err := mountVolume(espDevice(dev))
	require.NoError(t, err)

	checker, ok := vol.(volume.Checker)
	require.True(t, ok)
	assert.NoError(t, volume.Verify(checker))
}

func TestCLICloneMirrorsBootOntoTarget(t *testing.T) {
	bootDev, err := formatImage("usb-4g", "fat32", "BOOT", false)
	require.NoError(t, err)
	bootVol, err := mountVolume(espDevice(bootDev))
	require.NoError(t, err)
	require.NoError(t, bootVol.Mkdir("/docs"))
	require.NoError(t, bootVol.WriteFile("/docs/a.txt", []byte("payload"), nil))

	targetDev, err := formatImage("usb-4g", "exfat", "TARGET", false)
	require.NoError(t, err)
	targetVol, err := mountVolume(espDevice(targetDev))
	require.NoError(t, err)

	e := clone.NewEngine(bootVol, targetVol)
	e.Confirm('Y')
	require.NoError(t, e.Run("/", "/", nil))

	got, err := targetVol.ReadFile("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
