package jpeg

import (
	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// huffTable is the classic baseline-JPEG decode structure spec.md §4.6
// names: per bit-length (1..16) the minimum code, maximum code, and an
// index into values where that length's symbols begin.
type huffTable struct {
	minCode [17]int32 // 1-indexed by code length; minCode[0] unused
	maxCode [17]int32 // -1 means "no codes of this length"
	valPtr  [17]int32
	values  []byte
}

// buildHuffTable builds the table from DHT's per-length symbol counts
// (counts[1..16], 1-indexed by code length) and the flat values list.
func buildHuffTable(counts [17]byte, values []byte) *huffTable {
	t := &huffTable{values: values}
	code := int32(0)
	k := int32(0)
	for length := 1; length <= 16; length++ {
		n := int32(counts[length])
		if n == 0 {
			t.maxCode[length] = -1
			code <<= 1
			continue
		}
		t.valPtr[length] = k
		t.minCode[length] = code
		code += n
		k += n
		t.maxCode[length] = code - 1
		code <<= 1
	}
	return t
}

// decodeSymbol reads bits from br one at a time until a valid Huffman code
// of some length 1..16 is found, and returns the decoded byte symbol.
func decodeSymbol(br *bitReader, t *huffTable) (byte, error) {
	code := int32(0)
	for length := 1; length <= 16; length++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code = (code << 1) | int32(bit)
		if t.maxCode[length] != -1 && code <= t.maxCode[length] && code >= t.minCode[length] {
			idx := t.valPtr[length] + (code - t.minCode[length])
			if int(idx) >= len(t.values) {
				return 0, survivalerrors.ErrInvalidFormat.WithMessage("huffman value index out of range")
			}
			return t.values[idx], nil
		}
	}
	return 0, survivalerrors.ErrInvalidFormat.WithMessage("no matching huffman code found")
}

// receive reads n raw magnitude bits MSB-first, per the JPEG "RECEIVE"
// procedure, used for both DC difference and AC coefficient magnitudes.
func receive(br *bitReader, n int) (int, error) {
	v := 0
	for i := 0; i < n; i++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | int(bit)
	}
	return v, nil
}

// extend applies the JPEG "EXTEND" sign conversion: a magnitude read with
// category s is reinterpreted as a signed value in
// [-(2^s - 1), 2^s - 1] \ {0 not excluded}, per the JPEG standard's table.
func extend(v, s int) int {
	if s == 0 {
		return 0
	}
	vt := 1 << (s - 1)
	if v < vt {
		return v - (1 << s) + 1
	}
	return v
}
