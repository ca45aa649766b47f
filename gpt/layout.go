package gpt

import (
	"hash/crc32"
)

// SectorSize is the sector size spec.md §4.4's GPT math assumes.
const SectorSize = 512

// EntriesPerRegion is the partition entry count spec.md §4.4 prescribes
// (128 entries × 128 bytes = 32 sectors = 16 KiB).
const EntriesPerRegion = 128

const entriesRegionBytes = EntriesPerRegion * 128 // 16384
const entriesRegionSectors = entriesRegionBytes / SectorSize // 32

// Layout is a fully built protective-MBR + primary/backup GPT layout, ready
// to be written to the first 34 and last 33 sectors of a device.
type Layout struct {
	TotalSectors uint64

	ProtectiveMBR [SectorSize]byte
	PrimaryHeader [SectorSize]byte
	PrimaryEntries [entriesRegionBytes]byte
	BackupEntries  [entriesRegionBytes]byte
	BackupHeader  [SectorSize]byte
}

// BackupEntriesLBA is the LBA the backup entries region starts at.
func (l *Layout) BackupEntriesLBA() uint64 {
	return l.lastSector() - entriesRegionSectors
}

func (l *Layout) lastSector() uint64 { return l.TotalSectors - 1 }

// BuildLayout constructs the protective MBR, primary GPT, and backup GPT
// for a device of totalSectors sectors, with a single ESP partition
// starting at LBA 2048 and running to the last usable LBA, exactly as
// spec.md §4.4 specifies.
func BuildLayout(totalSectors uint64, diskGUID, espUniqueGUID [16]byte, espName string) (*Layout, error) {
	l := &Layout{TotalSectors: totalSectors}

	if _, err := BuildProtectiveMBR(l.ProtectiveMBR[:], totalSectors); err != nil {
		return nil, err
	}

	lastSector := l.lastSector()
	backupEntriesLBA := l.BackupEntriesLBA()
	firstUsable := uint64(34)
	lastUsable := backupEntriesLBA - 1

	pe, err := ToPartitionEntry(l.PrimaryEntries[0:128])
	if err != nil {
		return nil, err
	}
	pe.SetTypeGUID(ESPTypeGUID)
	pe.SetUniqueGUID(espUniqueGUID)
	pe.SetFirstLBA(2048)
	pe.SetLastLBA(lastUsable)
	pe.SetAttributes(0)
	pe.SetName(espName)

	copy(l.BackupEntries[:], l.PrimaryEntries[:])

	entriesCRC := crc32OverEntries(l.PrimaryEntries[:])

	if err := fillHeader(l.PrimaryHeader[:], headerParams{
		myLBA:        1,
		alternateLBA: lastSector,
		firstUsable:  firstUsable,
		lastUsable:   lastUsable,
		diskGUID:     diskGUID,
		entriesLBA:   2,
		entriesCRC:   entriesCRC,
	}); err != nil {
		return nil, err
	}

	if err := fillHeader(l.BackupHeader[:], headerParams{
		myLBA:        lastSector,
		alternateLBA: 1,
		firstUsable:  firstUsable,
		lastUsable:   lastUsable,
		diskGUID:     diskGUID,
		entriesLBA:   backupEntriesLBA,
		entriesCRC:   entriesCRC,
	}); err != nil {
		return nil, err
	}

	return l, nil
}

type headerParams struct {
	myLBA, alternateLBA uint64
	firstUsable, lastUsable uint64
	diskGUID   [16]byte
	entriesLBA uint64
	entriesCRC uint32
}

func fillHeader(sector []byte, p headerParams) error {
	for i := range sector {
		sector[i] = 0
	}
	h, err := ToHeader(sector)
	if err != nil {
		return err
	}
	h.SetSignature()
	h.SetRevision()
	h.SetSize(headerSize)
	h.SetCurrentLBA(p.myLBA)
	h.SetAlternateLBA(p.alternateLBA)
	h.SetFirstUsableLBA(p.firstUsable)
	h.SetLastUsableLBA(p.lastUsable)
	h.SetDiskGUID(p.diskGUID)
	h.SetPartitionEntryLBA(p.entriesLBA)
	h.SetNumberOfPartitionEntries(EntriesPerRegion)
	h.SetSizeOfPartitionEntry(128)
	h.SetPartitionEntriesCRC32(p.entriesCRC)

	// Header CRC32 is computed with the field itself zeroed, per spec.md
	// §4.4.
	h.SetCRC(0)
	h.SetCRC(crc32.ChecksumIEEE(h.data))
	return nil
}

// crc32OverEntries computes the CRC32 of the partition entries region one
// sector at a time (spec.md §4.4's "incremental CRC32": the 16 KiB region
// doesn't fit in a single sector buffer on the real firmware, so it's
// checksummed sector-by-sector, threading the running CRC through each
// crc32.Update call instead of hashing the whole buffer at once).
func crc32OverEntries(entries []byte) uint32 {
	var crc uint32
	for off := 0; off < len(entries); off += SectorSize {
		crc = crc32.Update(crc, crc32.IEEETable, entries[off:off+SectorSize])
	}
	return crc
}

// ParseLayout reconstructs a Layout from its on-disk regions, for the
// round-trip property of spec.md §8: a parsed layout's header CRC32
// validates to zero once the stored CRC is zeroed and recomputed.
func ParseLayout(totalSectors uint64, mbrSector, primaryHeaderSector []byte, primaryEntries []byte, backupEntries []byte, backupHeaderSector []byte) (*Layout, error) {
	l := &Layout{TotalSectors: totalSectors}
	if len(mbrSector) < SectorSize || len(primaryHeaderSector) < SectorSize ||
		len(primaryEntries) < entriesRegionBytes || len(backupEntries) < entriesRegionBytes ||
		len(backupHeaderSector) < SectorSize {
		return nil, errTooShort("gpt layout region", SectorSize, 0)
	}
	copy(l.ProtectiveMBR[:], mbrSector)
	copy(l.PrimaryHeader[:], primaryHeaderSector)
	copy(l.PrimaryEntries[:], primaryEntries)
	copy(l.BackupEntries[:], backupEntries)
	copy(l.BackupHeader[:], backupHeaderSector)
	return l, nil
}

// ValidateHeaderCRC reports whether the header's stored CRC32 matches the
// CRC32 recomputed with that field zeroed — the round-trip check of
// spec.md §8.
func ValidateHeaderCRC(sector []byte) (bool, error) {
	buf := append([]byte(nil), sector[:headerSize]...)
	h, err := ToHeader(buf)
	if err != nil {
		return false, err
	}
	stored := h.CRC()
	h.SetCRC(0)
	recomputed := crc32.ChecksumIEEE(h.data)
	return stored == recomputed, nil
}
