package jpeg

import (
	"encoding/binary"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOF0 = 0xC0
	markerSOF2 = 0xC2
	markerDHT  = 0xC4
	markerDQT  = 0xDB
	markerDRI  = 0xDD
	markerSOS  = 0xDA
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Decode parses a baseline (SOF0) JFIF/EXIF-less JPEG stream and emits one
// row of RGB565 pixels at a time via cb, per spec.md §4.6. Progressive
// (SOF2) and every other non-baseline frame kind is rejected.
func Decode(data []byte, cb RowCallback, user any) error {
	pos := 0
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return survivalerrors.ErrInvalidFormat.WithMessage("missing SOI marker")
	}
	pos = 2

	var fr frame
	var scanComponents []int // indices into fr.components, in scan order

	for pos < len(data) {
		if data[pos] != 0xFF {
			return survivalerrors.ErrInvalidFormat.WithMessage("expected marker at offset %d", pos)
		}
		marker := data[pos+1]
		pos += 2
		if marker == markerEOI {
			break
		}
		if marker == 0x00 || marker == 0xFF {
			continue
		}

		if pos+2 > len(data) {
			return survivalerrors.ErrInvalidFormat.WithMessage("truncated segment header")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		if segLen < 2 || pos+segLen > len(data) {
			return survivalerrors.ErrInvalidFormat.WithMessage("invalid segment length at offset %d", pos)
		}
		payload := data[pos+2 : pos+segLen]
		pos += segLen

		switch marker {
		case markerSOF2:
			return survivalerrors.ErrInvalidFormat.WithMessage("progressive JPEG is not supported")
		case markerSOF0:
			if err := parseSOF0(payload, &fr); err != nil {
				return err
			}
		case markerDQT:
			if err := parseDQT(payload, &fr); err != nil {
				return err
			}
		case markerDHT:
			if err := parseDHT(payload, &fr); err != nil {
				return err
			}
		case markerDRI:
			if len(payload) < 2 {
				return survivalerrors.ErrInvalidFormat.WithMessage("truncated DRI segment")
			}
			fr.restartInterv = int(binary.BigEndian.Uint16(payload[0:2]))
		case markerSOS:
			var err error
			scanComponents, err = parseSOS(payload, &fr)
			if err != nil {
				return err
			}
			// Entropy-coded data follows immediately; pos currently points
			// just past the SOS header, which is where decoding starts.
			return decodeScan(data[pos:], &fr, scanComponents, cb, user)
		}
	}
	return survivalerrors.ErrInvalidFormat.WithMessage("reached end of stream without a scan")
}

func parseSOF0(p []byte, fr *frame) error {
	if len(p) < 6 {
		return survivalerrors.ErrInvalidFormat.WithMessage("truncated SOF0 segment")
	}
	precision := p[0]
	if precision != 8 {
		return survivalerrors.ErrInvalidFormat.WithMessage("unsupported sample precision %d", precision)
	}
	fr.height = int(binary.BigEndian.Uint16(p[1:3]))
	fr.width = int(binary.BigEndian.Uint16(p[3:5]))
	if fr.width == 0 || fr.height == 0 {
		return survivalerrors.ErrInvalidFormat.WithMessage("zero-sized frame")
	}
	numComponents := int(p[5])
	if numComponents != 1 && numComponents != 3 {
		return survivalerrors.ErrInvalidFormat.WithMessage("unsupported component count %d", numComponents)
	}
	if len(p) < 6+3*numComponents {
		return survivalerrors.ErrInvalidFormat.WithMessage("truncated SOF0 component list")
	}
	fr.components = fr.components[:0]
	for i := 0; i < numComponents; i++ {
		b := p[6+3*i:]
		fr.components = append(fr.components, component{
			id: b[0],
			h:  int(b[1] >> 4),
			v:  int(b[1] & 0x0F),
		})
		fr.components[i].quantTbl = int(b[2])
	}
	return nil
}

func parseDQT(p []byte, fr *frame) error {
	for len(p) > 0 {
		precFlag := p[0] >> 4
		id := int(p[0] & 0x0F)
		if id > 3 {
			return survivalerrors.ErrInvalidFormat.WithMessage("invalid DQT table id %d", id)
		}
		p = p[1:]
		qt := &quantTable{}
		if precFlag == 0 {
			if len(p) < 64 {
				return survivalerrors.ErrInvalidFormat.WithMessage("truncated DQT table")
			}
			for i := 0; i < 64; i++ {
				row, col := zigzag[i]/8, zigzag[i]%8
				qt.values[row*8+col] = float64(p[i]) * aanScale[row] * aanScale[col]
			}
			p = p[64:]
		} else {
			if len(p) < 128 {
				return survivalerrors.ErrInvalidFormat.WithMessage("truncated 16-bit DQT table")
			}
			for i := 0; i < 64; i++ {
				row, col := zigzag[i]/8, zigzag[i]%8
				v := binary.BigEndian.Uint16(p[2*i : 2*i+2])
				qt.values[row*8+col] = float64(v) * aanScale[row] * aanScale[col]
			}
			p = p[128:]
		}
		fr.quant[id] = qt
	}
	return nil
}

func parseDHT(p []byte, fr *frame) error {
	for len(p) > 0 {
		if len(p) < 17 {
			return survivalerrors.ErrInvalidFormat.WithMessage("truncated DHT header")
		}
		class := p[0] >> 4 // 0 = DC, 1 = AC
		id := int(p[0] & 0x0F)
		if id > 3 {
			return survivalerrors.ErrInvalidFormat.WithMessage("invalid DHT table id %d", id)
		}
		var counts [17]byte
		total := 0
		for i := 1; i <= 16; i++ {
			counts[i] = p[i]
			total += int(counts[i])
		}
		p = p[17:]
		if len(p) < total {
			return survivalerrors.ErrInvalidFormat.WithMessage("truncated DHT value list")
		}
		values := make([]byte, total)
		copy(values, p[:total])
		p = p[total:]

		table := buildHuffTable(counts, values)
		if class == 0 {
			fr.dcHuff[id] = table
		} else {
			fr.acHuff[id] = table
		}
	}
	return nil
}

// parseSOS reads the scan header and returns, for each component in scan
// order, its index into fr.components.
func parseSOS(p []byte, fr *frame) ([]int, error) {
	if len(p) < 1 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("truncated SOS segment")
	}
	n := int(p[0])
	if len(p) < 1+2*n+3 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("truncated SOS component list")
	}
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id := p[1+2*i]
		sel := p[1+2*i+1]
		idx := -1
		for ci, c := range fr.components {
			if c.id == id {
				idx = ci
				break
			}
		}
		if idx < 0 {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("SOS references unknown component id %d", id)
		}
		fr.components[idx].dcTable = int(sel >> 4)
		fr.components[idx].acTable = int(sel & 0x0F)
		order = append(order, idx)
	}
	return order, nil
}

// decodeScan runs the entropy-coded MCU decode loop and emits rows.
func decodeScan(entropy []byte, fr *frame, scanOrder []int, cb RowCallback, user any) error {
	hmax, vmax := 1, 1
	for _, c := range fr.components {
		if c.h > hmax {
			hmax = c.h
		}
		if c.v > vmax {
			vmax = c.v
		}
	}
	mcuWidth := 8 * hmax
	mcuHeight := 8 * vmax
	mcusPerLine := (fr.width + mcuWidth - 1) / mcuWidth
	mcusPerColumn := (fr.height + mcuHeight - 1) / mcuHeight

	// Per-component sample planes sized to whole MCUs.
	planes := make([][]byte, len(fr.components))
	planeStrides := make([]int, len(fr.components))
	for i, c := range fr.components {
		stride := mcusPerLine * c.h * 8
		planeStrides[i] = stride
		planes[i] = make([]byte, stride*mcusPerColumn*c.v*8)
	}

	br := newBitReader(entropy)
	restartCounter := fr.restartInterv
	var blk [64]float64
	var sample [64]byte

	for my := 0; my < mcusPerColumn; my++ {
		for mx := 0; mx < mcusPerLine; mx++ {
			for _, ci := range scanOrder {
				c := &fr.components[ci]
				qt := fr.quant[c.quantTbl]
				dcT := fr.dcHuff[c.dcTable]
				acT := fr.acHuff[c.acTable]
				if qt == nil || dcT == nil || acT == nil {
					return survivalerrors.ErrInvalidFormat.WithMessage("scan references an undefined table")
				}
				for by := 0; by < c.v; by++ {
					for bx := 0; bx < c.h; bx++ {
						if err := decodeBlock(br, c, qt, dcT, acT, &blk); err != nil {
							return err
						}
						idct8x8(&blk, &sample)
						ox := (mx*c.h + bx) * 8
						oy := (my*c.v + by) * 8
						stride := planeStrides[ci]
						plane := planes[ci]
						for yy := 0; yy < 8; yy++ {
							copy(plane[(oy+yy)*stride+ox:(oy+yy)*stride+ox+8], sample[yy*8:yy*8+8])
						}
					}
				}
			}

			if fr.restartInterv > 0 {
				restartCounter--
				if restartCounter == 0 && !(my == mcusPerColumn-1 && mx == mcusPerLine-1) {
					if err := br.ResetAfterRestart(); err != nil {
						return err
					}
					for i := range fr.components {
						fr.components[i].dcPred = 0
					}
					restartCounter = fr.restartInterv
				}
			}
		}
	}

	return emitRows(fr, hmax, vmax, planes, planeStrides, cb, user)
}

// decodeBlock decodes one 8x8 block's DC+AC coefficients, dequantizes them
// (the quant table is already AAN-prescaled), and writes natural-order
// coefficients into blk.
func decodeBlock(br *bitReader, c *component, qt *quantTable, dcT, acT *huffTable, blk *[64]float64) error {
	for i := range blk {
		blk[i] = 0
	}

	s, err := decodeSymbol(br, dcT)
	if err != nil {
		return err
	}
	diffBits, err := receive(br, int(s))
	if err != nil {
		return err
	}
	diff := extend(diffBits, int(s))
	c.dcPred += diff
	blk[0] = float64(c.dcPred) * qt.values[0]

	k := 1
	for k < 64 {
		rs, err := decodeSymbol(br, acT)
		if err != nil {
			return err
		}
		run := int(rs >> 4)
		size := int(rs & 0x0F)
		if size == 0 {
			if run == 15 {
				k += 16
				continue
			}
			break // EOB
		}
		k += run
		if k >= 64 {
			return survivalerrors.ErrInvalidFormat.WithMessage("AC coefficient run overflows block")
		}
		bits, err := receive(br, size)
		if err != nil {
			return err
		}
		val := extend(bits, size)
		zz := zigzag[k]
		blk[zz] = float64(val) * qt.values[zz]
		k++
	}
	return nil
}

// emitRows upsamples chroma (nearest-neighbour) and converts each row to
// RGB565, per spec.md §4.6's exact integer YCbCr formula.
func emitRows(fr *frame, hmax, vmax int, planes [][]byte, strides []int, cb RowCallback, user any) error {
	row := make([]uint16, fr.width)
	yComp := 0
	var cbComp, crComp int
	hasChroma := len(fr.components) == 3
	if hasChroma {
		cbComp, crComp = 1, 2
	}

	for y := 0; y < fr.height; y++ {
		yStride := strides[yComp]
		yPlane := planes[yComp]
		yShift := 0 // luma is always full resolution relative to itself
		_ = yShift

		for x := 0; x < fr.width; x++ {
			Y := int(yPlane[y*yStride+x])
			if !hasChroma {
				row[x] = platform.RGB565(byte(Y), byte(Y), byte(Y))
				continue
			}
			c := &fr.components[cbComp]
			cr := &fr.components[crComp]
			cbx := x * c.h / hmax
			cby := y * c.v / vmax
			crx := x * cr.h / hmax
			cry := y * cr.v / vmax
			cbv := int(planes[cbComp][cby*strides[cbComp]+cbx])
			crv := int(planes[crComp][cry*strides[crComp]+crx])

			cbp := cbv - 128
			crp := crv - 128
			r := Y + (crp*359)>>8
			g := Y - (cbp*88+crp*183)>>8
			b := Y + (cbp*454)>>8
			row[x] = platform.RGB565(clampByte(r), clampByte(g), clampByte(b))
		}
		cb(y, fr.width, row, user)
	}
	return nil
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
