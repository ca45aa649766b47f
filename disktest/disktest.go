// Package disktest provides small fixtures shared by every driver's test
// suite, adapted from the teacher's top-level testing package
// (LoadDiskImage et al.) but built around platform.BlockDevice /
// simdevice.Device instead of a raw io.ReadWriteSeeker.
package disktest

import (
	"math/rand"

	"github.com/lowlevel-dev/survival/platform/simdevice"
)

// NewSimulatedDevice returns a zero-filled in-memory block device of the
// given geometry, ready to be formatted or mounted by a driver under test.
func NewSimulatedDevice(blockSize uint, totalBlocks uint64) *simdevice.Device {
	return simdevice.New(blockSize, totalBlocks)
}

// RandomBytes returns n pseudo-random bytes seeded deterministically so test
// failures reproduce, mirroring the teacher's own fixture helper.
func RandomBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}
