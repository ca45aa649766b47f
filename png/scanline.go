package png

import (
	"bytes"

	"github.com/lowlevel-dev/survival/deflate"
	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// decompressIDAT concatenates every IDAT payload into the single zlib
// stream spec.md §4.5 describes, strips the 2-byte zlib header (the
// trailing 4-byte Adler-32 is simply left unread — deflate.Inflater stops
// once the DEFLATE stream's final block ends), and fully drains it through
// the deflate package.
func decompressIDAT(idat [][]byte) ([]byte, error) {
	var zlibStream bytes.Buffer
	for _, part := range idat {
		zlibStream.Write(part)
	}
	if zlibStream.Len() < 2 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("IDAT stream too short")
	}

	inf := deflate.NewInflater()
	inf.Feed(zlibStream.Bytes()[2:])
	inf.Finish()
	defer inf.Close()

	var out bytes.Buffer
	buf := make([]byte, deflate.WindowSize)
	for {
		n, status, err := inf.Produce(buf)
		if err != nil {
			return nil, err
		}
		out.Write(buf[:n])
		if status == deflate.StatusDone {
			break
		}
	}
	return out.Bytes(), nil
}

// assembleScanlines runs spec.md §4.5's scanline state machine: one filter
// byte followed by stride filtered bytes per row, inverse-filtered against
// the previous row, converted to RGB565, and emitted via cb.
func assembleScanlines(hdr Header, bpp int, palette [][3]byte, raw []byte, cb RowCallback, user any) error {
	width := int(hdr.Width)
	height := int(hdr.Height)
	stride := width * bpp

	prev := make([]byte, stride)
	cur := make([]byte, stride)
	rowPixels := make([]uint16, width)

	pos := 0
	for y := 0; y < height; y++ {
		if pos >= len(raw) {
			return survivalerrors.ErrInvalidFormat.WithMessage("truncated scanline data at row %d", y)
		}
		filterType := raw[pos]
		pos++
		if pos+stride > len(raw) {
			return survivalerrors.ErrInvalidFormat.WithMessage("truncated scanline data at row %d", y)
		}
		copy(cur, raw[pos:pos+stride])
		pos += stride

		if err := unfilterRow(filterType, cur, prev, bpp); err != nil {
			return err
		}
		if err := convertRow(hdr.ColorType, cur, width, palette, rowPixels); err != nil {
			return err
		}
		cb(y, width, rowPixels, user)

		prev, cur = cur, prev
	}
	return nil
}

// unfilterRow reverses one of the five PNG scanline filters in place,
// following spec.md §4.5's exact definitions (a = left raw byte, b = above
// raw byte, c = above-left raw byte, all zero at image edges).
func unfilterRow(filterType byte, cur, prev []byte, bpp int) error {
	switch filterType {
	case 0: // None
		return nil
	case 1: // Sub
		for i := range cur {
			var a byte
			if i >= bpp {
				a = cur[i-bpp]
			}
			cur[i] += a
		}
	case 2: // Up
		for i := range cur {
			cur[i] += prev[i]
		}
	case 3: // Average
		for i := range cur {
			var a byte
			if i >= bpp {
				a = cur[i-bpp]
			}
			b := prev[i]
			cur[i] += byte((int(a) + int(b)) / 2)
		}
	case 4: // Paeth
		for i := range cur {
			var a, c byte
			if i >= bpp {
				a = cur[i-bpp]
				c = prev[i-bpp]
			}
			b := prev[i]
			cur[i] += paethPredictor(a, b, c)
		}
	default:
		return survivalerrors.ErrInvalidFormat.WithMessage("unknown PNG filter type %d", filterType)
	}
	return nil
}

// paethPredictor implements spec.md §4.5's P(a,b,c): whichever of a, b, c is
// closest to the linear prediction a+b-c, ties broken a then b then c.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := absInt(p - int(a))
	pb := absInt(p - int(b))
	pc := absInt(p - int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
