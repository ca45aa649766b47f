package blockcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/blockcache"
	"github.com/lowlevel-dev/survival/disktest"
)

func TestReadMissThenHit(t *testing.T) {
	dev := disktest.NewSimulatedDevice(512, 64)
	payload := disktest.RandomBytes(1, 512)
	require.NoError(t, dev.WriteBlock(5, payload))

	c := blockcache.New(dev)
	buf, err := c.Read(5)
	require.NoError(t, err)
	assert.Equal(t, payload, buf)

	buf2, err := c.Read(5)
	require.NoError(t, err)
	assert.Equal(t, payload, buf2)
	assert.NoError(t, c.Invariants())
}

func TestMarkDirtyAndFlushAll(t *testing.T) {
	dev := disktest.NewSimulatedDevice(512, 64)
	c := blockcache.New(dev)

	buf, err := c.Read(3)
	require.NoError(t, err)
	copy(buf, disktest.RandomBytes(2, 512))
	require.NoError(t, c.MarkDirty(3))

	require.NoError(t, c.FlushAll())

	raw := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(3, raw))
	assert.Equal(t, buf, raw)
	assert.NoError(t, c.Invariants())
}

func TestClockEvictionFlushesDirtySlot(t *testing.T) {
	dev := disktest.NewSimulatedDevice(512, 64)
	c := blockcache.New(dev)

	for lba := uint64(0); lba < blockcache.NumSlots; lba++ {
		buf, err := c.Read(lba)
		require.NoError(t, err)
		buf[0] = byte(lba + 1)
		require.NoError(t, c.MarkDirty(lba))
	}

	// One more distinct lba forces an eviction of slot 0 (first filled,
	// first evicted under clock order), which must flush before reuse.
	_, err := c.Read(blockcache.NumSlots)
	require.NoError(t, err)

	raw := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(0, raw))
	assert.Equal(t, byte(1), raw[0])
	assert.NoError(t, c.Invariants())
}

func TestMarkDirtyOnUncachedLBAFails(t *testing.T) {
	dev := disktest.NewSimulatedDevice(512, 8)
	c := blockcache.New(dev)
	err := c.MarkDirty(2)
	assert.Error(t, err)
}
