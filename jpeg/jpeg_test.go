package jpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReaderDestuffsFFZero(t *testing.T) {
	// 0xFF 0x00 must decode as a literal 0xFF data byte, not a marker.
	br := newBitReader([]byte{0xFF, 0x00, 0x0F})
	b, ok := br.nextByte()
	require.True(t, ok)
	assert.Equal(t, byte(0xFF), b)
	b, ok = br.nextByte()
	require.True(t, ok)
	assert.Equal(t, byte(0x0F), b)
}

func TestBitReaderStopsAtMarker(t *testing.T) {
	br := newBitReader([]byte{0x12, 0xFF, 0xD0, 0x34})
	b, ok := br.nextByte()
	require.True(t, ok)
	assert.Equal(t, byte(0x12), b)
	_, ok = br.nextByte()
	assert.False(t, ok)
	m, _ := br.Marker()
	assert.Equal(t, byte(0xD0), m)
}

func TestBitReaderReadBitMSBFirst(t *testing.T) {
	br := newBitReader([]byte{0b10110000})
	var bits []byte
	for i := 0; i < 8; i++ {
		b, err := br.readBit()
		require.NoError(t, err)
		bits = append(bits, b)
	}
	assert.Equal(t, []byte{1, 0, 1, 1, 0, 0, 0, 0}, bits)
}

func TestBuildHuffTableAndDecodeSymbol(t *testing.T) {
	// Two one-bit-length codes: symbol 0x00 -> "0", symbol 0x01 -> "1".
	var counts [17]byte
	counts[1] = 2
	table := buildHuffTable(counts, []byte{0x00, 0x01})

	br := newBitReader([]byte{0b10000000})
	sym, err := decodeSymbol(br, table)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), sym)
}

func TestExtendMapsMagnitudeToSignedRange(t *testing.T) {
	// Category 3 covers [-7..-4] union [4..7].
	assert.Equal(t, 4, extend(0b100, 3))
	assert.Equal(t, 7, extend(0b111, 3))
	assert.Equal(t, -7, extend(0b000, 3))
	assert.Equal(t, -4, extend(0b011, 3))
	assert.Equal(t, 0, extend(0, 0))
}

func TestIDCTOfPureDCBlockIsFlat(t *testing.T) {
	// A block with only a DC coefficient should IDCT to a uniform plane:
	// each output sample equals dc/8 + 128 (clamped).
	var coeff [64]float64
	coeff[0] = 80.0 // arbitrary dequantized DC value
	var out [64]byte
	idct8x8(&coeff, &out)

	want := clampSample(80.0/8.0 + 128.0)
	for i, v := range out {
		assert.Equal(t, want, v, "sample %d", i)
	}
}

func TestIDCTZeroBlockIsMidGray(t *testing.T) {
	var coeff [64]float64
	var out [64]byte
	idct8x8(&coeff, &out)
	for _, v := range out {
		assert.Equal(t, byte(128), v)
	}
}

func TestDecodeRejectsMissingSOI(t *testing.T) {
	err := Decode([]byte{0x00, 0x01, 0x02}, func(int, int, []uint16, any) {}, nil)
	assert.Error(t, err)
}

func TestDecodeRejectsProgressiveFrame(t *testing.T) {
	data := []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xC2, 0x00, 0x02, // SOF2 with a (bogus, unread) zero-length body
	}
	err := Decode(data, func(int, int, []uint16, any) {}, nil)
	assert.Error(t, err)
}
