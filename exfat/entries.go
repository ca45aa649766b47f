package exfat

import (
	"encoding/binary"
	"strings"

	"github.com/lowlevel-dev/survival/utf16x"
)

// Directory entry type bytes, per the exFAT specification and
// navigator_entry_types.go's EntryType decomposition (in-use bit 0x80,
// category bit 0x40, importance bit 0x20, low 5 bits the type code).
const (
	entryTypeInUseBit  = 0x80
	entryTypeEndMarker = 0x00
	entryTypeBitmap    = 0x81
	entryTypeUpcase    = 0x82
	entryTypeVolumeLbl = 0x83
	entryTypeFile      = 0x85
	entryTypeStreamExt = 0xC0
	entryTypeFileName  = 0xC1
)

const (
	secondaryFlagAllocationPossible = 0x01
	secondaryFlagNoFatChain         = 0x02

	// fixedTimestamp is the exFAT-encoded 2026-01-01 00:00:00 value spec.md
	// §4.3 requires every created/modified entry to carry, since no
	// real-time clock is available: year_since_1980=46, month=1, day=1.
	fixedTimestamp uint32 = 46<<25 | 1<<21 | 1<<16
)

// rol15 rotates a 16-bit value left by 15 bits (equivalently, right by one
// bit), the primitive both exFAT's name-hash and entry-set checksum use.
func rol15(v uint16) uint16 {
	return (v << 15) | (v >> 1)
}

// nameHash computes exFAT's required stream-entry name hash: a rolling
// rol15 checksum over each UTF-16LE code unit's two bytes, after ASCII
// up-casing 'a'..'z', per spec.md §4.3.
func nameHash(name string) uint16 {
	upper := asciiUpper(name)
	ucs2 := utf16x.EncodeToString16(upper)
	var hash uint16
	for _, b := range ucs2 {
		hash = rol15(hash) + uint16(b)
	}
	return hash
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// entrySetChecksum computes the required rolling checksum over every byte
// of a file entry set, excluding bytes 2 and 3 of the first entry (the
// checksum field itself), per spec.md §4.3.
func entrySetChecksum(raw []byte) uint16 {
	var sum uint16
	for i, b := range raw {
		if i == 2 || i == 3 {
			continue
		}
		sum = rol15(sum) + uint16(b)
	}
	return sum
}

// ParsedEntry is one logical exFAT directory entry resolved from a 0x85
// file-entry-set, the exFAT analogue of fat32.ParsedEntry.
type ParsedEntry struct {
	Name         string
	IsDir        bool
	FirstCluster uint32
	DataLength   uint64
	NoFatChain   bool
	// EntryCount is the number of raw 32-byte slots the set occupies
	// (1 file entry + 1 stream-extension entry + name entries).
	EntryCount int
	// SlotIndex is the index of the file entry (0x85) within the
	// directory's flat raw-entry list.
	SlotIndex int
}

const (
	attrDirectoryBit = 0x0010
	attrArchiveBit   = 0x0020
)

// parseEntrySet parses one file-entry-set starting at raw[startSlot*32:],
// per spec.md §4.3's "on a 0x85 entry, read the secondary-count" algorithm.
// It returns ok=false if startSlot doesn't point at a file entry or the set
// runs past the end of raw.
func parseEntrySet(raw []byte, startSlot int) (ParsedEntry, bool) {
	count := len(raw) / 32
	if startSlot >= count {
		return ParsedEntry{}, false
	}
	fileSlot := raw[startSlot*32 : startSlot*32+32]
	if fileSlot[0] != entryTypeFile {
		return ParsedEntry{}, false
	}
	secondaryCount := int(fileSlot[1])
	attrs := binary.LittleEndian.Uint16(fileSlot[4:6])

	if startSlot+1+secondaryCount > count {
		return ParsedEntry{}, false
	}
	streamSlot := raw[(startSlot+1)*32 : (startSlot+1)*32+32]
	if streamSlot[0] != entryTypeStreamExt {
		return ParsedEntry{}, false
	}
	secondaryFlags := streamSlot[1]
	nameLen := int(streamSlot[3])
	firstCluster := binary.LittleEndian.Uint32(streamSlot[20:24])
	dataLength := binary.LittleEndian.Uint64(streamSlot[24:32])

	var ucs2 []byte
	for i := 0; i < secondaryCount-1; i++ {
		nameSlot := raw[(startSlot+2+i)*32 : (startSlot+2+i)*32+32]
		if nameSlot[0] != entryTypeFileName {
			return ParsedEntry{}, false
		}
		ucs2 = append(ucs2, nameSlot[2:32]...)
	}
	if len(ucs2) > nameLen*2 {
		ucs2 = ucs2[:nameLen*2]
	}

	return ParsedEntry{
		Name:         utf16x.DecodeString(append(ucs2, 0, 0)),
		IsDir:        attrs&attrDirectoryBit != 0,
		FirstCluster: firstCluster,
		DataLength:   dataLength,
		NoFatChain:   secondaryFlags&secondaryFlagNoFatChain != 0,
		EntryCount:   1 + secondaryCount,
		SlotIndex:    startSlot,
	}, true
}

// buildEntrySet builds the raw 32-byte slots (file entry, stream-extension
// entry, then ⌈len(name)/15⌉ name entries) for one logical entry, per
// spec.md §4.3. Writes always allocate a FAT chain, so NoFatChain is never
// set here even if an overwritten file previously used the contiguous
// representation.
func buildEntrySet(name string, isDir bool, firstCluster uint32, dataLength uint64) []byte {
	ucs2 := utf16x.EncodeToString16(name)
	nameChars := len(ucs2) / 2
	nameEntries := (nameChars + 14) / 15
	if nameEntries == 0 {
		nameEntries = 1
	}
	secondaryCount := 1 + nameEntries
	total := make([]byte, (2+nameEntries)*32)

	fileSlot := total[0:32]
	fileSlot[0] = entryTypeFile
	fileSlot[1] = byte(secondaryCount)
	var attrs uint16 = attrArchiveBit
	if isDir {
		attrs = attrDirectoryBit
	}
	binary.LittleEndian.PutUint16(fileSlot[4:6], attrs)
	binary.LittleEndian.PutUint32(fileSlot[8:12], fixedTimestamp)  // create
	binary.LittleEndian.PutUint32(fileSlot[12:16], fixedTimestamp) // modified

	streamSlot := total[32:64]
	streamSlot[0] = entryTypeStreamExt
	streamSlot[1] = secondaryFlagAllocationPossible
	streamSlot[3] = byte(nameChars)
	binary.LittleEndian.PutUint16(streamSlot[4:6], nameHash(name))
	binary.LittleEndian.PutUint64(streamSlot[8:16], dataLength) // valid data length
	binary.LittleEndian.PutUint32(streamSlot[20:24], firstCluster)
	binary.LittleEndian.PutUint64(streamSlot[24:32], dataLength)

	for i := 0; i < nameEntries; i++ {
		slot := total[(2+i)*32 : (2+i)*32+32]
		slot[0] = entryTypeFileName
		start := i * 15 * 2
		end := start + 15*2
		if end > len(ucs2) {
			end = len(ucs2)
		}
		copy(slot[2:], ucs2[start:end])
	}

	checksum := entrySetChecksum(total)
	binary.LittleEndian.PutUint16(fileSlot[2:4], checksum)
	return total
}

// markDeleted clears the in-use bit of every raw slot belonging to one
// entry set, the exFAT analogue of writing 0xE5 over a FAT short entry.
func markDeleted(raw []byte, slotIndex, entryCount int) {
	for i := 0; i < entryCount; i++ {
		off := (slotIndex + i) * 32
		raw[off] &^= entryTypeInUseBit
	}
}

// splitExfatPath splits a slash-separated path into components, discarding
// empty segments (leading/trailing/duplicate slashes), matching fat32's own
// splitPath helper.
func splitExfatPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
