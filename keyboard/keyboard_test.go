package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lowlevel-dev/survival/keyboard"
	"github.com/lowlevel-dev/survival/platform"
)

func TestCtrlLetterNormalizedToControlChar(t *testing.T) {
	ev := keyboard.FromRaw(platform.RawKeyEvent{Unicode: 'c', ShiftCtrl: true})
	assert.Equal(t, keyboard.Code(3), ev.Code)
	assert.Equal(t, keyboard.ModCtrl, ev.Modifiers)
}

func TestCtrlLetterNormalizedFromRawControlCharToo(t *testing.T) {
	// Some firmware delivers Ctrl+C as (0x03, CTRL) directly rather than
	// ('c', CTRL); that path needs no rewrite since it isn't a-z/A-Z.
	ev := keyboard.FromRaw(platform.RawKeyEvent{Unicode: 0x03, ShiftCtrl: true})
	assert.Equal(t, keyboard.Code(0x03), ev.Code)
}

func TestNamedScanCodeTakesPriority(t *testing.T) {
	ev := keyboard.FromRaw(platform.RawKeyEvent{ScanCode: 0x0B, Unicode: 0})
	assert.Equal(t, keyboard.KeyUp, ev.Code)
}

func TestPlainLetterWithoutCtrlIsUnmodified(t *testing.T) {
	ev := keyboard.FromRaw(platform.RawKeyEvent{Unicode: 'x'})
	assert.Equal(t, keyboard.Code('x'), ev.Code)
	assert.Zero(t, ev.Modifiers)
}
