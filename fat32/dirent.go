package fat32

import (
	"strings"

	"github.com/lowlevel-dev/survival/utf16x"
)

// Attribute flags, spec.md §4.2's recognised set. Named AttrXxx after the
// teacher's own drivers/fat/common.go constants, values taken from the FAT
// standard rather than disko's internal numbering since these are on-disk.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = 0x0F
)

const (
	direntFreeMarker    = 0x00
	direntDeletedMarker = 0xE5
	lfnLastEntryBit     = 0x40
	lfnCharsPerEntry    = 13
)

// shortDirent is one parsed 8.3 directory entry.
type shortDirent struct {
	name         [8]byte
	ext          [3]byte
	attr         byte
	ntReserved   byte
	firstCluster uint32
	size         uint32
}

// parseShortDirent reads a 32-byte short-name entry.
func parseShortDirent(b []byte) shortDirent {
	var d shortDirent
	copy(d.name[:], b[0:8])
	copy(d.ext[:], b[8:11])
	d.attr = b[11]
	d.ntReserved = b[12]
	hi := uint32(b[20]) | uint32(b[21])<<8
	lo := uint32(b[26]) | uint32(b[27])<<8
	d.firstCluster = (hi << 16) | lo
	d.size = uint32(b[28]) | uint32(b[29])<<8 | uint32(b[30])<<16 | uint32(b[31])<<24
	return d
}

func (d *shortDirent) serialize(b []byte) {
	copy(b[0:8], d.name[:])
	copy(b[8:11], d.ext[:])
	b[11] = d.attr
	b[12] = d.ntReserved
	b[20] = byte(d.firstCluster >> 16)
	b[21] = byte(d.firstCluster >> 24)
	b[26] = byte(d.firstCluster)
	b[27] = byte(d.firstCluster >> 8)
	b[28] = byte(d.size)
	b[29] = byte(d.size >> 8)
	b[30] = byte(d.size >> 16)
	b[31] = byte(d.size >> 24)
}

// shortName reconstructs the 8.3 display name from raw bytes and the NT
// case-flag bits (bit 3 = lowercase base, bit 4 = lowercase extension),
// per spec.md §3.3.
func (d *shortDirent) shortName() string {
	base := strings.TrimRight(string(d.name[:]), " ")
	ext := strings.TrimRight(string(d.ext[:]), " ")
	if d.ntReserved&0x08 != 0 {
		base = strings.ToLower(base)
	}
	if d.ntReserved&0x10 != 0 {
		ext = strings.ToLower(ext)
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// lfnChecksum is the FAT "rolling-rotate-add" checksum of the 11-byte
// 8.3 name, shared by every LFN entry in a chain, per spec.md §4.2.
func lfnChecksum(name [8]byte, ext [3]byte) byte {
	var sum byte
	for _, c := range append(name[:], ext[:]...) {
		sum = ((sum & 1) << 7) + (sum >> 1) + c
	}
	return sum
}

// lfnOffsets are the fixed UCS-2 character byte offsets within a 32-byte
// LFN entry, per spec.md §4.2: 1,3,5,7,9, 14,16,18,20,22,24, 28,30.
var lfnOffsets = [lfnCharsPerEntry]int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30}

// parseLFNEntry extracts the sequence number, last-entry bit, checksum, and
// the up-to-13 UCS-2 characters (as 2-byte little-endian pairs) from one
// raw LFN entry.
func parseLFNEntry(b []byte) (seq int, isLast bool, checksum byte, chars [lfnCharsPerEntry * 2]byte) {
	seq = int(b[0] & 0x1F)
	isLast = b[0]&lfnLastEntryBit != 0
	checksum = b[13]
	for i, off := range lfnOffsets {
		chars[2*i] = b[off]
		chars[2*i+1] = b[off+1]
	}
	return
}

func serializeLFNEntry(b []byte, seq int, isLast bool, checksum byte, chars []byte) {
	flag := byte(seq)
	if isLast {
		flag |= lfnLastEntryBit
	}
	b[0] = flag
	b[11] = AttrLongName
	b[13] = checksum
	for i, off := range lfnOffsets {
		if 2*i+1 < len(chars) {
			b[off] = chars[2*i]
			b[off+1] = chars[2*i+1]
		} else {
			// Pad with 0xFFFF past the name's terminator, per the VFAT spec.
			b[off] = 0xFF
			b[off+1] = 0xFF
		}
	}
}

// ParsedEntry is one logical directory entry: a resolved long or short name
// plus the fields callers need (attributes, cluster, size).
type ParsedEntry struct {
	Name         string
	Attr         byte
	FirstCluster uint32
	Size         uint32
	// EntryCount is how many raw 32-byte slots (LFN chain + short entry)
	// this logical entry occupies, needed by Remove/Rename to mark them
	// all deleted.
	EntryCount int
	// SlotIndex is the index of the first raw slot (the first LFN entry,
	// or the short entry itself if there's no LFN chain) within the
	// directory's raw entry list.
	SlotIndex int
}

// parseDirectorySlots walks a flat list of 32-byte raw directory entries
// and resolves them into ParsedEntry values, accumulating any preceding
// LFN chain into a long name exactly as spec.md §4.2's reading algorithm
// describes.
func parseDirectorySlots(raw []byte) []ParsedEntry {
	count := len(raw) / direntSize
	var entries []ParsedEntry
	var pendingChars [][]byte // in on-disk (reverse logical) order
	var pendingChecksum byte
	haveLFN := false

	for i := 0; i < count; i++ {
		slot := raw[i*direntSize : (i+1)*direntSize]
		first := slot[0]
		if first == direntFreeMarker {
			break
		}
		if first == direntDeletedMarker {
			pendingChars = nil
			haveLFN = false
			continue
		}
		attr := slot[11]
		if attr&AttrLongName == AttrLongName {
			_, isLast, checksum, chars := parseLFNEntry(slot)
			if isLast {
				pendingChars = nil
				haveLFN = true
				pendingChecksum = checksum
			}
			pendingChars = append(pendingChars, append([]byte(nil), chars[:]...))
			continue
		}

		short := parseShortDirent(slot)
		startSlot := i
		name := short.shortName()
		entryCount := 1
		if attr&AttrVolumeID == 0 && name != "." && name != ".." {
			if haveLFN && lfnChecksum(short.name, short.ext) == pendingChecksum {
				name = decodeLFNChars(pendingChars)
				entryCount = len(pendingChars) + 1
				startSlot = i - len(pendingChars)
			}
		}
		pendingChars = nil
		haveLFN = false

		if attr&AttrVolumeID != 0 || name == "." || name == ".." {
			continue
		}
		entries = append(entries, ParsedEntry{
			Name:         name,
			Attr:         attr,
			FirstCluster: short.firstCluster,
			Size:         short.size,
			EntryCount:   entryCount,
			SlotIndex:    startSlot,
		})
	}
	return entries
}

// decodeLFNChars reassembles pendingChars (collected on-disk, i.e. from the
// last logical fragment backward) into a UTF-8 string, stopping at the
// first embedded NUL pair.
func decodeLFNChars(pendingChars [][]byte) string {
	var ucs2 []byte
	for i := len(pendingChars) - 1; i >= 0; i-- {
		ucs2 = append(ucs2, pendingChars[i]...)
	}
	return utf16x.DecodeString(ucs2)
}

// buildEntrySlots produces the raw 32-byte slots (LFN chain, if needed,
// followed by the short entry) for a file/directory named name, per
// spec.md §4.2's long-name creation rule.
func buildEntrySlots(name string, attr byte, firstCluster, size uint32) []byte {
	shortName, needsLFN := makeShortName(name)

	var shortBuf [direntSize]byte
	d := shortDirent{attr: attr, firstCluster: firstCluster, size: size}
	copy(d.name[:], shortName[0])
	copy(d.ext[:], shortName[1])
	if !needsLFN {
		origBase, origExt := splitNameExt(name)
		d.ntReserved = ntCaseFlags(origBase, origExt)
	}
	d.serialize(shortBuf[:])

	if !needsLFN {
		return append([]byte(nil), shortBuf[:]...)
	}

	ucs2 := utf16x.EncodeToString16(name)
	nameChars := len(ucs2) / 2
	numEntries := (nameChars + lfnCharsPerEntry - 1) / lfnCharsPerEntry
	// The terminator is only stored when the name doesn't exactly fill its
	// last entry; an exact multiple of 13 chars (spec.md:434's 13/26/39
	// boundary) leaves no room for it and gets none, per the VFAT spec.
	if nameChars%lfnCharsPerEntry != 0 {
		ucs2 = append(ucs2, 0x00, 0x00)
	}
	checksum := lfnChecksum(d.name, d.ext)
	out := make([]byte, numEntries*direntSize+direntSize)
	for i := 0; i < numEntries; i++ {
		seq := numEntries - i // on-disk order is reverse logical order
		start := (seq - 1) * lfnCharsPerEntry * 2
		end := start + lfnCharsPerEntry*2
		if end > len(ucs2) {
			end = len(ucs2)
		}
		serializeLFNEntry(out[i*direntSize:(i+1)*direntSize], seq, seq == numEntries, checksum, ucs2[start:end])
	}
	copy(out[numEntries*direntSize:], shortBuf[:])
	return out
}

// makeShortName derives an uppercase 8.3 name. If name doesn't already fit,
// it allocates the `<FIRST6>~1.<EXT>` placeholder spec.md §4.2 prescribes
// and reports that an LFN chain is required.
func makeShortName(name string) ([2]string, bool) {
	base, ext := splitNameExt(name)
	upperBase := strings.ToUpper(base)
	upperExt := strings.ToUpper(ext)

	fitsAsIs := len(upperBase) <= 8 && len(upperExt) <= 3 && isShortNameSafe(upperBase) && isShortNameSafe(upperExt)
	if fitsAsIs {
		return [2]string{padField(upperBase, 8), padField(upperExt, 3)}, false
	}

	first6 := upperBase
	if len(first6) > 6 {
		first6 = first6[:6]
	}
	placeholder := first6 + "~1"
	if len(placeholder) > 8 {
		placeholder = placeholder[:8]
	}
	if len(upperExt) > 3 {
		upperExt = upperExt[:3]
	}
	return [2]string{padField(placeholder, 8), padField(upperExt, 3)}, true
}

func splitNameExt(name string) (base, ext string) {
	base = name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		base = name[:idx]
		ext = name[idx+1:]
	}
	return
}

func isShortNameSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '.' || c > 0x7E {
			return false
		}
	}
	return true
}

func padField(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// ntCaseFlags computes the NT-reserved case bits for a name that fits
// as-is in 8.3 without needing an LFN chain (bit 3 lowercase base, bit 4
// lowercase extension), used so all-lowercase short names round-trip
// without an LFN chain at all.
func ntCaseFlags(base, ext string) byte {
	var flags byte
	if base != "" && base == strings.ToLower(base) && base != strings.ToUpper(base) {
		flags |= 0x08
	}
	if ext != "" && ext == strings.ToLower(ext) && ext != strings.ToUpper(ext) {
		flags |= 0x10
	}
	return flags
}
