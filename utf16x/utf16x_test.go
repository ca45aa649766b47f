package utf16x_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lowlevel-dev/survival/utf16x"
)

func TestRoundTripASCII(t *testing.T) {
	s := "README.TXT"
	enc := utf16x.EncodeToString16(s)
	assert.Equal(t, s, utf16x.DecodeString(enc))
}

func TestRoundTripSurrogatePair(t *testing.T) {
	s := "a\U0001F600b" // grinning face emoji, needs a surrogate pair
	enc := utf16x.EncodeToString16(s)
	assert.Equal(t, s, utf16x.DecodeString(enc))
}

func TestDecodeStringStopsAtNul(t *testing.T) {
	enc := utf16x.EncodeToString16("hi")
	padded := append(append([]byte{}, enc...), 0, 0, 'X', 0)
	assert.Equal(t, "hi", utf16x.DecodeString(padded))
}
