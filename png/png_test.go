package png_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	survivalpng "github.com/lowlevel-dev/survival/png"
	"github.com/lowlevel-dev/survival/platform"
)

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.WriteString(typ)
	buf.Write(data)
	buf.Write([]byte{0, 0, 0, 0}) // CRC, unchecked by this decoder
}

func buildRGBPNG(t *testing.T, width, height int, rawScanlines []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	out.Write([]byte{137, 80, 78, 71, 13, 10, 26, 10})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8  // bit depth
	ihdr[9] = 2  // color type RGB
	ihdr[10] = 0 // compression
	ihdr[11] = 0 // filter method
	ihdr[12] = 0 // interlace
	writeChunk(&out, "IHDR", ihdr)

	var zlibBuf bytes.Buffer
	w := zlib.NewWriter(&zlibBuf)
	_, err := w.Write(rawScanlines)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	writeChunk(&out, "IDAT", zlibBuf.Bytes())

	writeChunk(&out, "IEND", nil)
	return out.Bytes()
}

func TestDecodeRGBTwoByTwo(t *testing.T) {
	raw := []byte{
		0, 255, 0, 0, 0, 255, 0, // filter=None, (255,0,0) (0,255,0)
		0, 0, 0, 255, 255, 255, 255, // filter=None, (0,0,255) (255,255,255)
	}
	data := buildRGBPNG(t, 2, 2, raw)

	var rows [][]uint16
	err := survivalpng.Decode(data, func(y, width int, pixels []uint16, user any) {
		row := make([]uint16, width)
		copy(row, pixels)
		rows = append(rows, row)
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, platform.RGB565(255, 0, 0), rows[0][0])
	assert.Equal(t, platform.RGB565(0, 255, 0), rows[0][1])
	assert.Equal(t, platform.RGB565(0, 0, 255), rows[1][0])
	assert.Equal(t, platform.RGB565(255, 255, 255), rows[1][1])
}

func TestDecodeRejectsNonPNGSignature(t *testing.T) {
	err := survivalpng.Decode([]byte("not a png"), func(int, int, []uint16, any) {}, nil)
	assert.Error(t, err)
}

func TestDecodeRejectsSixteenBitDepth(t *testing.T) {
	raw := []byte{0, 0, 0, 0, 0, 0, 0}
	data := buildRGBPNG(t, 2, 2, raw)
	// Flip the bit-depth byte inside IHDR (offset: signature 8 + length 4 +
	// type 4 + width 4 + height 4 = 24).
	data[24] = 16
	err := survivalpng.Decode(data, func(int, int, []uint16, any) {}, nil)
	assert.Error(t, err)
}
