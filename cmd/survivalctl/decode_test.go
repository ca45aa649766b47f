package main

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/png"
)

func TestRGB565ToRGB888RoundTripsPureChannels(t *testing.T) {
	r, g, b := rgb565ToRGB888(0xFFFF) // white
	assert.Equal(t, byte(0xFF), r)
	assert.Equal(t, byte(0xFF), g)
	assert.Equal(t, byte(0xFF), b)

	r, g, b = rgb565ToRGB888(0x0000) // black
	assert.Equal(t, byte(0), r)
	assert.Equal(t, byte(0), g)
	assert.Equal(t, byte(0), b)
}

func TestPPMRowBufferWritesHeaderWithTrueHeight(t *testing.T) {
	buf := &ppmRowBuffer{}
	buf.row(0, 2, []uint16{0xFFFF, 0x0000}, nil)
	buf.row(1, 2, []uint16{0x0000, 0xFFFF}, nil)

	path := filepath.Join(t.TempDir(), "out.ppm")
	require.NoError(t, buf.writeTo(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data[:20]), "P6\n2 2\n255\n")
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.WriteString(typ)
	buf.Write(data)
	buf.Write([]byte{0, 0, 0, 0})
}

func buildRGBPNG(t *testing.T, width, height int, rawScanlines []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	out.Write([]byte{137, 80, 78, 71, 13, 10, 26, 10})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8], ihdr[9] = 8, 2
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

func TestDecodePNGCommandWritesPPM(t *testing.T) {
	raw := []byte{
		0, 255, 0, 0,
		0, 0, 0, 255,
	}
	data := buildRGBPNG(t, 1, 2, raw)

	dir := t.TempDir()
	pngPath := filepath.Join(dir, "in.png")
	ppmPath := filepath.Join(dir, "out.ppm")
	require.NoError(t, os.WriteFile(pngPath, data, 0o644))

	buf := &ppmRowBuffer{}
	require.NoError(t, png.Decode(data, buf.row, nil))
	require.NoError(t, buf.writeTo(ppmPath))

	out, err := os.ReadFile(ppmPath)
	require.NoError(t, err)
	assert.Contains(t, string(out[:20]), "P6\n1 2\n255\n")
}
