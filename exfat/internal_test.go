package exfat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRol15RotatesLeftByFifteenBits(t *testing.T) {
	assert.Equal(t, uint16(0x0001), rol15(0x0002))
	assert.Equal(t, uint16(0x8000), rol15(0x0001))
}

func TestEntrySetChecksumSkipsItsOwnField(t *testing.T) {
	set := buildEntrySet("a.txt", false, 5, 4)
	got := entrySetChecksum(set)
	want := uint16(set[2]) | uint16(set[3])<<8
	assert.Equal(t, want, got)
}

func TestNameHashIsCaseInsensitiveOverASCII(t *testing.T) {
	assert.Equal(t, nameHash("HELLO.TXT"), nameHash("hello.txt"))
}

func TestBuildAndParseEntrySetRoundTripsName(t *testing.T) {
	raw := buildEntrySet("longer-than-fifteen-chars.txt", false, 9, 123)
	entry, ok := parseEntrySet(raw, 0)
	assert.True(t, ok)
	assert.Equal(t, "longer-than-fifteen-chars.txt", entry.Name)
	assert.EqualValues(t, 9, entry.FirstCluster)
	assert.EqualValues(t, 123, entry.DataLength)
	assert.False(t, entry.IsDir)
}
