package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lowlevel-dev/survival/jpeg"
	"github.com/lowlevel-dev/survival/png"
)

// rgb565ToRGB888 reverses platform.RGB565's packing, close enough for a PPM
// preview: each channel is replicated from its truncated bit width back up
// to 8 bits rather than zero-padded, so round-white stays white.
func rgb565ToRGB888(v uint16) (r, g, b byte) {
	r5 := byte(v>>11) & 0x1F
	g6 := byte(v>>5) & 0x3F
	b5 := byte(v) & 0x1F
	r = r5<<3 | r5>>2
	g = g6<<2 | g6>>4
	b = b5<<3 | b5>>2
	return
}

// ppmRowBuffer accumulates decoded rows as RGB888 bytes and writes a raw
// (P6) PPM once decoding finishes and the true height is known — the
// simplest host-viewable format, needing no extra dependency to produce.
type ppmRowBuffer struct {
	width int
	rows  [][]byte
}

func (p *ppmRowBuffer) row(y, width int, pixels []uint16, user any) {
	p.width = width
	buf := make([]byte, width*3)
	for i, px := range pixels {
		r, g, b := rgb565ToRGB888(px)
		buf[i*3], buf[i*3+1], buf[i*3+2] = r, g, b
	}
	p.rows = append(p.rows, buf)
}

func (p *ppmRowBuffer) writeTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P6\n%d %d\n255\n", p.width, len(p.rows))
	for _, row := range p.rows {
		w.Write(row)
	}
	return w.Flush()
}

var decodePNGCommand = &cli.Command{
	Name:      "decode-png",
	Usage:     "Decode a PNG and write it out as a PPM for host viewing",
	ArgsUsage: "PNG_FILE OUT.ppm",
	Action: func(c *cli.Context) error {
		data, err := os.ReadFile(c.Args().First())
		if err != nil {
			return err
		}
		buf := &ppmRowBuffer{}
		if err := png.Decode(data, buf.row, nil); err != nil {
			return err
		}
		return buf.writeTo(c.Args().Get(1))
	},
}

var decodeJPEGCommand = &cli.Command{
	Name:      "decode-jpeg",
	Usage:     "Decode a baseline JPEG and write it out as a PPM for host viewing",
	ArgsUsage: "JPEG_FILE OUT.ppm",
	Action: func(c *cli.Context) error {
		data, err := os.ReadFile(c.Args().First())
		if err != nil {
			return err
		}
		buf := &ppmRowBuffer{}
		if err := jpeg.Decode(data, buf.row, nil); err != nil {
			return err
		}
		return buf.writeTo(c.Args().Get(1))
	},
}
