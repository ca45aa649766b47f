// Package platform is the collaborator contract of spec.md §6.1: everything
// the firmware/hardware layer provides and the rest of this module treats as
// opaque. The real UEFI protocol bindings (framebuffer pixel writes, scan-code
// decoding, raw block I/O, wall clock, reset services) are out of scope per
// spec.md §1 — what lives here are the Go interfaces every other package
// programs against, plus the in-memory simulator under ./simdevice used by
// tests and by cmd/survivalctl in place of real firmware.
package platform

import "time"

// BlockDevice is the raw block I/O contract: synchronous, block-aligned,
// fail-fast reads and writes over an ordered sequence of fixed-size blocks
// (spec.md §3.1). Exactly one driver owns a BlockDevice at a time; switching
// owners is an explicit handoff, never ambient state (spec.md §5).
type BlockDevice interface {
	// BlockSize is the size of one block in bytes, learned at mount (512 or
	// 4096).
	BlockSize() uint
	// TotalBlocks is the number of addressable blocks on the device.
	TotalBlocks() uint64
	// ReadBlock fills buf (exactly BlockSize() bytes) with the contents of
	// the block at lba.
	ReadBlock(lba uint64, buf []byte) error
	// WriteBlock writes buf (exactly BlockSize() bytes) to the block at lba.
	WriteBlock(lba uint64, buf []byte) error
}

// Color is a 32-bit framebuffer pixel in the platform's native byte order —
// on UEFI this is 0x00RRGGBB stored in memory as B,G,R,0 (spec.md §3.9). The
// byte ordering is a property of the write path, not of the color value
// itself, per spec.md §9 ("framebuffer pixel values as bare u32").
type Color uint32

// RGB builds a Color from 8-bit channels.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// AsBGRX renders the color as the four bytes UEFI's GOP framebuffer expects
// in memory: blue, green, red, reserved.
func (c Color) AsBGRX() [4]byte {
	return [4]byte{c.B(), c.G(), c.R(), 0}
}

// RGB565 packs 8-bit channels into the R5G6B5 format image decoders emit
// (spec.md §3.9, §4.5, §4.6).
func RGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b>>3)
}

// Framebuffer is the query+blit contract of spec.md §6.1's "Framebuffer
// query" row. Pixel format is always 32-bit BGRX.
type Framebuffer interface {
	Dimensions() (width, height, pixelsPerScanline int)
	SetPixel(x, y int, c Color)
}

// RawKeyEvent is what the firmware hands back from a keyboard read: a
// scancode, a Unicode codepoint (0 if none), and a shift-state bitmask. The
// keyboard package turns this into the unified KeyEvent model of spec.md
// §6.3.
type RawKeyEvent struct {
	ScanCode  uint16
	Unicode   rune
	ShiftCtrl bool
	ShiftAlt  bool
	ShiftOn   bool
}

// Keyboard is the input contract of spec.md §6.1.
type Keyboard interface {
	// ReadKey returns the next queued key, or ok=false if the queue is
	// empty.
	ReadKey() (ev RawKeyEvent, ok bool)
	// WaitKey blocks until a key is available and returns it. This is the
	// only suspension point in the editor/browser main loops (spec.md §5).
	WaitKey() RawKeyEvent
}

// ResetKind selects which reset service to invoke.
type ResetKind int

const (
	ResetShutdown ResetKind = iota
	ResetCold
	ResetWarm
)

// Services bundles the remaining platform collaborator operations of spec.md
// §6.1 that aren't block I/O, framebuffer, or keyboard: wall clock, stall,
// and reset. It is constructed once at the firmware entry point and passed
// by reference to whatever components need it (spec.md §9 — not a
// singleton).
type Services interface {
	// Now returns the wall-clock time. Real firmware without an RTC should
	// return the zero time. The filesystem drivers in this module do not
	// call it: exFAT entries always carry the fixed 2026-01-01 00:00:00
	// stamp spec.md §4.3 prescribes.
	Now() time.Time
	// Stall busy-waits for at least d.
	Stall(d time.Duration)
	// Reset never returns.
	Reset(kind ResetKind)
}

// Context is the "global boot state" of spec.md §9, reduced to a plain value
// constructed once in the entry point and threaded through by reference —
// never a package-level singleton. Components store only the references
// they need, not the whole Context.
type Context struct {
	Boot        BlockDevice
	Framebuffer Framebuffer
	Keyboard    Keyboard
	Services    Services
}
