package volume

import (
	"sort"

	"github.com/lowlevel-dev/survival/mem"
)

// sortEntries implements spec.md §4.8: directories before files, then
// case-insensitive ASCII order within each group.
func sortEntries(entries []DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return mem.ASCIILess(a.Name, b.Name)
	})
}
