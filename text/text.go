// Package text is component J: 8×16 bitmap font glyph rasterisation into
// the framebuffer with foreground/background colours (spec.md §2's module
// table). No repo in the example pack renders text, so the glyph table and
// blit loop are grounded directly on the platform.Framebuffer contract spec.md
// §6.1 defines (a bare SetPixel call) and on the module table's own
// description of what this component does.
package text

import "github.com/lowlevel-dev/survival/platform"

// DrawGlyph blits one character cell at pixel origin (x, y), painting fg
// where the glyph bitmap has a set bit and bg everywhere else.
func DrawGlyph(fb platform.Framebuffer, x, y int, c byte, fg, bg platform.Color) {
	g := glyphFor(c)
	for row := 0; row < GlyphHeight; row++ {
		bits := g[row]
		for col := 0; col < GlyphWidth; col++ {
			set := bits&(0x80>>uint(col)) != 0
			if set {
				fb.SetPixel(x+col, y+row, fg)
			} else {
				fb.SetPixel(x+col, y+row, bg)
			}
		}
	}
}

// DrawString draws s left to right starting at (x, y) and returns the pixel
// width consumed. Characters are rendered in fixed GlyphWidth-pixel cells,
// so the returned width is always len(s)*GlyphWidth.
func DrawString(fb platform.Framebuffer, x, y int, s string, fg, bg platform.Color) int {
	cx := x
	for i := 0; i < len(s); i++ {
		DrawGlyph(fb, cx, y, s[i], fg, bg)
		cx += GlyphWidth
	}
	return cx - x
}

// MeasureString returns the pixel width s would occupy if drawn, without
// touching the framebuffer.
func MeasureString(s string) int {
	return len(s) * GlyphWidth
}
