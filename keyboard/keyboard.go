// Package keyboard is component N: it turns the platform's raw scancode
// stream into the unified KeyEvent model of spec.md §4.10. CUA remapping
// (Shift+Insert, Ctrl+Insert, Shift+Delete) is deliberately not here — spec.md
// says that happens one layer up, in the editor.
package keyboard

import "github.com/lowlevel-dev/survival/platform"

// Modifier is a bitmask of the three modifier keys spec.md §4.10 tracks.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

// Code identifies a key: either a plain Unicode codepoint (for printable
// keys and Ctrl-normalized control characters) or one of the NamedKey
// constants below for keys with no natural character.
type Code rune

// NamedKey values start above any valid Unicode codepoint's low planes used
// here, placed in Go's private-use-adjacent range so they never collide with
// a real rune produced by the firmware.
const (
	KeyUp Code = 0xE000 + iota
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPageUp
	KeyPageDown
	KeyEscape
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeyEvent is the unified key model every component above this package
// consumes.
type KeyEvent struct {
	Code      Code
	ScanCode  uint16
	Modifiers Modifier
}

// namedScanCodes maps the closed set of platform scancodes spec.md §4.10
// names to their Code. Values here follow the PC/AT scancode set the
// teacher's own platform notes assume (arrows, navigation cluster, function
// row, Escape); a real firmware binding would supply these from its own
// UEFI SIMPLE_TEXT_INPUT_EX scan code table.
var namedScanCodes = map[uint16]Code{
	0x01: KeyEscape,
	0x0B: KeyUp,
	0x0C: KeyDown,
	0x0D: KeyRight,
	0x0E: KeyLeft,
	0x0F: KeyHome,
	0x10: KeyEnd,
	0x11: KeyInsert,
	0x12: KeyDelete,
	0x13: KeyPageUp,
	0x14: KeyPageDown,
	0x15: KeyF1,
	0x16: KeyF2,
	0x17: KeyF3,
	0x18: KeyF4,
	0x19: KeyF5,
	0x1A: KeyF6,
	0x1B: KeyF7,
	0x1C: KeyF8,
	0x1D: KeyF9,
	0x1E: KeyF10,
	0x1F: KeyF11,
	0x20: KeyF12,
}

// FromRaw converts a platform.RawKeyEvent into a KeyEvent, applying the
// Ctrl-letter normalization rule of spec.md §4.10: when Ctrl is set and the
// Unicode character is a-z/A-Z, Code is rewritten to the corresponding
// control character (1..26) regardless of what the firmware actually
// delivered, so the editor never has to special-case firmware variance.
func FromRaw(raw platform.RawKeyEvent) KeyEvent {
	var mods Modifier
	if raw.ShiftCtrl {
		mods |= ModCtrl
	}
	if raw.ShiftAlt {
		mods |= ModAlt
	}
	if raw.ShiftOn {
		mods |= ModShift
	}

	if named, ok := namedScanCodes[raw.ScanCode]; ok {
		return KeyEvent{Code: named, ScanCode: raw.ScanCode, Modifiers: mods}
	}

	code := Code(raw.Unicode)
	if mods&ModCtrl != 0 {
		if c := normalizeCtrlLetter(raw.Unicode); c != 0 {
			code = Code(c)
		}
	}
	return KeyEvent{Code: code, ScanCode: raw.ScanCode, Modifiers: mods}
}

// normalizeCtrlLetter returns the control character (1..26) for a-z/A-Z, or
// 0 if r isn't a letter.
func normalizeCtrlLetter(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return rune(r-'a') + 1
	case r >= 'A' && r <= 'Z':
		return rune(r-'A') + 1
	default:
		return 0
	}
}
