// Package simdevice is a host-side stand-in for the firmware's raw block I/O
// service (spec.md §6.1). It backs a platform.BlockDevice with an in-memory
// byte slice wrapped by bytesextra.NewReadWriteSeeker, the same technique the
// teacher repo uses in its own disk-image test fixtures
// (testing/images.go, drivers/common/blockcache tests) to turn a []byte into
// an io.ReadWriteSeeker without a real file on disk.
package simdevice

import (
	"io"

	"github.com/xaionaro-go/bytesextra"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// Device is an in-memory platform.BlockDevice. It's used by every package's
// tests, and by cmd/survivalctl when asked to operate on a plain image file
// instead of a physical device.
type Device struct {
	blockSize   uint
	totalBlocks uint64
	stream      io.ReadWriteSeeker
}

// New creates a zero-filled Device of the given geometry.
func New(blockSize uint, totalBlocks uint64) *Device {
	data := make([]byte, blockSize*uint(totalBlocks))
	return &Device{
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		stream:      bytesextra.NewReadWriteSeeker(data),
	}
}

// FromBytes wraps an existing image (e.g. loaded from a host file) as a
// Device. len(data) must be an exact multiple of blockSize.
func FromBytes(blockSize uint, data []byte) *Device {
	return &Device{
		blockSize:   blockSize,
		totalBlocks: uint64(len(data)) / uint64(blockSize),
		stream:      bytesextra.NewReadWriteSeeker(data),
	}
}

func (d *Device) BlockSize() uint       { return d.blockSize }
func (d *Device) TotalBlocks() uint64   { return d.totalBlocks }

func (d *Device) checkBounds(lba uint64, bufLen int) error {
	if bufLen != int(d.blockSize) {
		return survivalerrors.ErrIOFailed.WithMessage(
			"buffer length %d is not exactly one block (%d bytes)", bufLen, d.blockSize)
	}
	if lba >= d.totalBlocks {
		return survivalerrors.ErrIOFailed.WithMessage(
			"block %d out of range [0, %d)", lba, d.totalBlocks)
	}
	return nil
}

func (d *Device) ReadBlock(lba uint64, buf []byte) error {
	if err := d.checkBounds(lba, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(lba)*int64(d.blockSize), io.SeekStart); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

func (d *Device) WriteBlock(lba uint64, buf []byte) error {
	if err := d.checkBounds(lba, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(lba)*int64(d.blockSize), io.SeekStart); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Snapshot returns a copy of the entire backing image, useful for tests that
// want to assert on exact on-disk bytes or persist a fixture.
func (d *Device) Snapshot() []byte {
	out := make([]byte, uint64(d.blockSize)*d.totalBlocks)
	for lba := uint64(0); lba < d.totalBlocks; lba++ {
		_ = d.ReadBlock(lba, out[lba*uint64(d.blockSize):(lba+1)*uint64(d.blockSize)])
	}
	return out
}
