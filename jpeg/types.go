// Package jpeg is component I: a baseline-only JPEG decoder (Huffman
// bitstream, Winograd/AAN IDCT, nearest-neighbour chroma upsampling,
// YCbCr→RGB565), emitting row callbacks exactly like the png package does
// (spec.md §4.6). Progressive JPEG (SOF2, marker 0xFFC2) and every other
// non-baseline SOF variant are rejected as ErrInvalidFormat. No repo in the
// example pack performs JPEG decoding, so the algorithms here are grounded
// directly on spec.md §4.6's own precise description rather than on a pack
// file — the two-pass, five-multiply-per-pass IDCT it specifies is the
// well-known AAN/Winograd scaled IDCT, and the Huffman table shape
// ({min_code, max_code, val_ptr, values}) is the classic JPEG baseline
// decoder structure described in the JPEG standard itself.
package jpeg

// RowCallback receives one fully decoded image row as RGB565 pixels.
type RowCallback func(y int, width int, pixels []uint16, user any)

// component is one scan component (Y, Cb, or Cr).
type component struct {
	id       byte
	h, v     int // sampling factors
	quantTbl int
	dcTable  int
	acTable  int
	dcPred   int
}

// frame holds everything parsed from SOF0 through the start of entropy data.
type frame struct {
	width, height int
	components    []component
	quant         [4]*quantTable
	dcHuff        [4]*huffTable
	acHuff        [4]*huffTable
	restartInterv int
}

type quantTable struct {
	// values is in natural (not zig-zag) row-major order, pre-multiplied by
	// the AAN scale factors per spec.md §4.6 ("Dequantisation with
	// pre-multiplied Winograd scale factors").
	values [64]float64
}
