package fat32

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBuildEntrySlotsLFNEntryCountAtChainBoundaries exercises spec.md:434's
// exact boundary directly against the raw on-disk slots buildEntrySlots
// produces, rather than just round-tripping the decoded name: a name of
// exactly 13/26/39 characters must not spill its NUL terminator into an
// extra LFN entry.
func TestBuildEntrySlotsLFNEntryCountAtChainBoundaries(t *testing.T) {
	cases := []struct {
		nameLen     int
		wantEntries int
	}{
		{13, 1},
		{14, 2},
		{26, 2},
		{27, 3},
		{39, 3},
	}
	for _, c := range cases {
		name := strings.Repeat("a", c.nameLen)
		out := buildEntrySlots(name, 0, 1, 0)

		slotCount := len(out) / direntSize
		gotEntries := slotCount - 1 // last slot is always the short entry
		assert.Equalf(t, c.wantEntries, gotEntries, "name length %d", c.nameLen)
	}
}
