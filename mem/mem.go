// Package mem holds the small byte-level primitives spec.md's component B
// describes in firmware terms (memset/memcpy, ASCII case-folding and
// ordering) that the filesystem drivers, the browser's sort order, and
// volume.SortEntries actually call. Go's garbage collector and slice
// built-ins already cover the allocation-pool half of the original firmware
// component, so there is no Pool type here to leak or go unused.
package mem

// Fill sets every byte of buf to v, mirroring the firmware's memset-style
// primitive.
func Fill(buf []byte, v byte) {
	for i := range buf {
		buf[i] = v
	}
}

// Copy copies min(len(dst), len(src)) bytes and returns that count, mirroring
// the firmware's memcpy-style primitive (overlapping src/dst is undefined,
// same as the original).
func Copy(dst, src []byte) int {
	return copy(dst, src)
}

// ASCIIEqualFold reports whether a and b are equal under a 7-bit ASCII
// case-fold, used by the fat32 and exFAT drivers' case-insensitive name
// lookup.
func ASCIIEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if asciiLower(a[i]) != asciiLower(b[i]) {
			return false
		}
	}
	return true
}

func asciiLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// ASCIILess is a case-insensitive ASCII ordering, used by the browser's
// directory sort (spec.md §4.8).
func ASCIILess(a, b string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		la, lb := asciiLower(a[i]), asciiLower(b[i])
		if la != lb {
			return la < lb
		}
	}
	return len(a) < len(b)
}
