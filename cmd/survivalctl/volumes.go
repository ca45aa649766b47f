package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/lowlevel-dev/survival/exfat"
	"github.com/lowlevel-dev/survival/fat32"
	"github.com/lowlevel-dev/survival/gpt"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/platform/simdevice"
	"github.com/lowlevel-dev/survival/volume"
)

// espStartLBA is the fixed ESP starting offset gpt.BuildLayout uses, per
// spec.md §4.4's "the ESP starts at LBA 2048" convention.
const espStartLBA = 2048

// partitionDevice rebases a platform.BlockDevice so LBA 0 of the view is
// LBA start of the underlying device, letting fat32/exfat format and mount
// directly on the ESP without knowing a GPT sits in front of it.
type partitionDevice struct {
	base        platform.BlockDevice
	start       uint64
	totalBlocks uint64
}

func (p *partitionDevice) BlockSize() uint     { return p.base.BlockSize() }
func (p *partitionDevice) TotalBlocks() uint64 { return p.totalBlocks }
func (p *partitionDevice) ReadBlock(lba uint64, buf []byte) error {
	return p.base.ReadBlock(p.start+lba, buf)
}
func (p *partitionDevice) WriteBlock(lba uint64, buf []byte) error {
	return p.base.WriteBlock(p.start+lba, buf)
}

var _ platform.BlockDevice = (*partitionDevice)(nil)

// randomGUID fills a fresh GUID the way a real formatter would: GPT disk
// and partition unique IDs only need to be unlikely to collide, not
// cryptographically unguessable, but crypto/rand is the ordinary Go source
// for "bytes nobody else will produce" regardless of threat model.
func randomGUID() ([16]byte, error) {
	var g [16]byte
	if _, err := rand.Read(g[:]); err != nil {
		return g, err
	}
	return g, nil
}

// writeGPTLayout persists a built gpt.Layout to the first 34 and last 33
// sectors of dev, in the five regions BuildLayout produces.
func writeGPTLayout(dev platform.BlockDevice, layout *gpt.Layout) error {
	if err := dev.WriteBlock(0, layout.ProtectiveMBR[:]); err != nil {
		return err
	}
	if err := dev.WriteBlock(1, layout.PrimaryHeader[:]); err != nil {
		return err
	}
	if err := writeRegion(dev, 2, layout.PrimaryEntries[:]); err != nil {
		return err
	}
	if err := writeRegion(dev, layout.BackupEntriesLBA(), layout.BackupEntries[:]); err != nil {
		return err
	}
	return dev.WriteBlock(layout.TotalSectors-1, layout.BackupHeader[:])
}

func writeRegion(dev platform.BlockDevice, startLBA uint64, data []byte) error {
	const sectorSize = gpt.SectorSize
	for off := 0; off < len(data); off += sectorSize {
		if err := dev.WriteBlock(startLBA+uint64(off/sectorSize), data[off:off+sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// detectESP looks for a protective MBR at LBA 0 and, if present, reads the
// primary GPT's first partition entry to find where the ESP actually
// starts. ok is false for an un-partitioned image, in which case the whole
// device is the filesystem.
func detectESP(dev platform.BlockDevice) (startLBA uint64, ok bool) {
	sector := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(0, sector); err != nil {
		return 0, false
	}
	mbr, err := gpt.ToMBR(sector)
	if err != nil || !mbr.SignatureValid() || mbr.PartitionType(0) != 0xEE {
		return 0, false
	}
	entrySector := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(2, entrySector); err != nil {
		return 0, false
	}
	entry, err := gpt.ToPartitionEntry(entrySector)
	if err != nil {
		return 0, false
	}
	return entry.FirstLBA(), true
}

// espDevice returns the BlockDevice fat32/exfat should mount: either dev
// itself, or a partitionDevice rebased onto the ESP a GPT layout points at.
func espDevice(dev platform.BlockDevice) platform.BlockDevice {
	start, ok := detectESP(dev)
	if !ok {
		return dev
	}
	return &partitionDevice{base: dev, start: start, totalBlocks: dev.TotalBlocks() - start}
}

// openImageFile loads a raw disk image from the host filesystem as a
// simdevice.Device.
func openImageFile(path string, blockSize uint) (*simdevice.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if blockSize == 0 {
		blockSize = 512
	}
	if len(data)%int(blockSize) != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of the %d-byte block size", path, len(data), blockSize)
	}
	return simdevice.FromBytes(blockSize, data), nil
}

// saveImageFile writes dev's full contents back to path.
func saveImageFile(path string, dev *simdevice.Device) error {
	return os.WriteFile(path, dev.Snapshot(), 0o644)
}

// mountVolume tries fat32 then exfat against dev's ESP, returning whichever
// driver recognizes the boot sector. Both drivers report ErrInvalidFormat
// on a foreign filesystem, so trying the other on failure is safe.
func mountVolume(dev platform.BlockDevice) (volume.Volume, error) {
	fatDriver := &fat32.Driver{}
	if err := fatDriver.Mount(dev); err == nil {
		return fatDriver, nil
	}
	exfatDriver := &exfat.Driver{}
	if err := exfatDriver.Mount(dev); err == nil {
		return exfatDriver, nil
	}
	return nil, fmt.Errorf("no recognized filesystem (tried FAT32 and exFAT)")
}

// openVolumeFromImage is the common path every read/write subcommand but
// format uses: load the image, find the ESP, mount whichever driver fits.
// Block size isn't recorded in a raw image, so this tries the two sizes
// `format` can produce (512, the GPT-compatible default, then 4096 for
// large fixed media) in order.
func openVolumeFromImage(path string) (volume.Volume, *simdevice.Device, error) {
	var lastErr error
	for _, blockSize := range []uint{512, 4096} {
		dev, err := openImageFile(path, blockSize)
		if err != nil {
			lastErr = err
			continue
		}
		vol, err := mountVolume(espDevice(dev))
		if err != nil {
			lastErr = err
			continue
		}
		return vol, dev, nil
	}
	return nil, nil, lastErr
}
