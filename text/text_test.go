package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/text"
)

type fakeFB struct {
	width, height int
	pixels        map[[2]int]platform.Color
}

func newFakeFB(w, h int) *fakeFB {
	return &fakeFB{width: w, height: h, pixels: make(map[[2]int]platform.Color)}
}

func (f *fakeFB) Dimensions() (int, int, int) { return f.width, f.height, f.width }

func (f *fakeFB) SetPixel(x, y int, c platform.Color) {
	f.pixels[[2]int{x, y}] = c
}

func TestDrawGlyphPaintsFgAndBgEverywhere(t *testing.T) {
	fb := newFakeFB(text.GlyphWidth, text.GlyphHeight)
	fg := platform.RGB(255, 255, 255)
	bg := platform.RGB(0, 0, 0)
	text.DrawGlyph(fb, 0, 0, 'A', fg, bg)

	require.Len(t, fb.pixels, text.GlyphWidth*text.GlyphHeight)
	var fgCount, bgCount int
	for _, c := range fb.pixels {
		switch c {
		case fg:
			fgCount++
		case bg:
			bgCount++
		}
	}
	assert.Equal(t, text.GlyphWidth*text.GlyphHeight, fgCount+bgCount)
	assert.Greater(t, fgCount, 0, "letter A must paint at least one foreground pixel")
}

func TestDrawStringAdvancesByGlyphWidth(t *testing.T) {
	fb := newFakeFB(64, 16)
	width := text.DrawString(fb, 0, 0, "ABC", platform.RGB(255, 255, 255), platform.RGB(0, 0, 0))
	assert.Equal(t, 3*text.GlyphWidth, width)
}

func TestMeasureStringMatchesFixedCellWidth(t *testing.T) {
	assert.Equal(t, 5*text.GlyphWidth, text.MeasureString("hello"))
}

func TestUnknownCharacterUsesFallbackGlyph(t *testing.T) {
	fb := newFakeFB(text.GlyphWidth, text.GlyphHeight)
	text.DrawGlyph(fb, 0, 0, 0x01, platform.RGB(255, 255, 255), platform.RGB(0, 0, 0))
	require.Len(t, fb.pixels, text.GlyphWidth*text.GlyphHeight)
}
