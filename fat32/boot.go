// Package fat32 implements component D: a FAT32 reader/writer/formatter
// with VFAT long-filename support, streaming writes, and dual-FAT
// mirroring (spec.md §4.2). Boot-sector field layout and version
// determination are adapted from the teacher's own
// drivers/fat/common.go; directory-entry parsing is adapted from
// drivers/fat/dirent.go, extended with the VFAT LFN chain support the
// teacher's own TODO comment flagged as missing.
package fat32

import (
	"encoding/binary"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

const (
	bootSectorSize  = 512
	reservedSectors = 32 // spec.md §4.2: "32-sector reserved region"
	numFATs         = 2
	direntSize      = 32

	// FAT32 special entry values, spec.md §4.2.
	fatEntryMediaAndHighBits = 0x0FFFFFF8
	fatEntryAllOnes          = 0x0FFFFFFF
	fatEntryEndOfChain       = 0x0FFFFFFF
	fatEntryBadCluster       = 0x0FFFFFF7
	fatEntryFree             = 0x00000000
	fatEntryMask             = 0x0FFFFFFF

	rootDirFirstCluster = 2
)

// BootSector is the parsed FAT32 BPB plus the derived geometry values the
// driver needs on every operation (cluster math, FAT location, root
// directory cluster).
type BootSector struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	Media             uint8
	SectorsPerFAT32   uint32
	RootCluster       uint32
	FSInfoSector      uint16
	BackupBootSector  uint16
	VolumeLabel       string
	TotalSectors      uint32

	BytesPerCluster uint
	FirstFATSector  uint64
	FirstDataSector uint64
	TotalClusters   uint
}

// ParseBootSector reads and validates the 512-byte FAT32 boot sector.
func ParseBootSector(sector []byte) (*BootSector, error) {
	if len(sector) < bootSectorSize {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("boot sector shorter than 512 bytes")
	}
	if sector[510] != 0x55 || sector[511] != 0xAA {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("missing 0x55AA boot signature")
	}

	bs := &BootSector{
		BytesPerSector:    binary.LittleEndian.Uint16(sector[11:13]),
		SectorsPerCluster: sector[13],
		ReservedSectors:   binary.LittleEndian.Uint16(sector[14:16]),
		NumFATs:           sector[16],
		Media:             sector[21],
		SectorsPerFAT32:   binary.LittleEndian.Uint32(sector[36:40]),
		RootCluster:       binary.LittleEndian.Uint32(sector[44:48]),
		FSInfoSector:       binary.LittleEndian.Uint16(sector[48:50]),
		BackupBootSector:  binary.LittleEndian.Uint16(sector[50:52]),
		TotalSectors:      binary.LittleEndian.Uint32(sector[32:36]),
	}
	bs.VolumeLabel = trimLabel(sector[71:82])

	switch bs.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("bad BytesPerSector %d", bs.BytesPerSector)
	}
	if bs.NumFATs == 0 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage("NumFATs must be nonzero")
	}

	bs.BytesPerCluster = uint(bs.BytesPerSector) * uint(bs.SectorsPerCluster)
	bs.FirstFATSector = uint64(bs.ReservedSectors)
	bs.FirstDataSector = bs.FirstFATSector + uint64(bs.NumFATs)*uint64(bs.SectorsPerFAT32)

	dataSectors := uint(bs.TotalSectors) - uint(bs.FirstDataSector)
	bs.TotalClusters = dataSectors / uint(bs.SectorsPerCluster)

	if DetermineFATVersion(bs.TotalClusters) != 32 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"cluster count %d does not correspond to FAT32", bs.TotalClusters)
	}
	return bs, nil
}

// DetermineFATVersion applies Microsoft's official FAT-version-by-cluster-
// count rule, carried over verbatim from the teacher's common.go.
func DetermineFATVersion(totalClusters uint) int {
	if totalClusters < 4085 {
		return 12
	}
	if totalClusters < 65525 {
		return 16
	}
	return 32
}

// ClusterToSector converts a cluster number to its first LBA.
func (bs *BootSector) ClusterToSector(cluster uint32) uint64 {
	return bs.FirstDataSector + uint64(cluster-rootDirFirstCluster)*uint64(bs.SectorsPerCluster)
}

func trimLabel(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// serializeBootSector writes bs into a fresh 512-byte boot sector buffer,
// used both for the primary BPB and its backup copy.
func serializeBootSector(bs *BootSector, volID uint32) []byte {
	sector := make([]byte, bootSectorSize)
	sector[0] = 0xEB
	sector[1] = 0x58
	sector[2] = 0x90
	copy(sector[3:11], []byte("SURVIVOS"))
	binary.LittleEndian.PutUint16(sector[11:13], bs.BytesPerSector)
	sector[13] = bs.SectorsPerCluster
	binary.LittleEndian.PutUint16(sector[14:16], bs.ReservedSectors)
	sector[16] = bs.NumFATs
	sector[21] = 0xF8 // fixed media descriptor
	binary.LittleEndian.PutUint32(sector[32:36], bs.TotalSectors)
	binary.LittleEndian.PutUint32(sector[36:40], bs.SectorsPerFAT32)
	binary.LittleEndian.PutUint32(sector[44:48], bs.RootCluster)
	binary.LittleEndian.PutUint16(sector[48:50], bs.FSInfoSector)
	binary.LittleEndian.PutUint16(sector[50:52], bs.BackupBootSector)
	sector[66] = 0x29 // extended boot signature
	binary.LittleEndian.PutUint32(sector[67:71], volID)

	label := bs.VolumeLabel
	if len(label) > 11 {
		label = label[:11]
	}
	copy(sector[71:82], []byte(label))
	for i := 71 + len(label); i < 82; i++ {
		sector[i] = ' '
	}
	copy(sector[82:90], []byte("FAT32   "))
	sector[510] = 0x55
	sector[511] = 0xAA
	return sector
}

// serializeFSInfo builds the FSInfo sector spec.md §4.2's reserved region
// carries alongside the BPB and its backup.
func serializeFSInfo(freeClusters, nextFreeHint uint32) []byte {
	sector := make([]byte, bootSectorSize)
	binary.LittleEndian.PutUint32(sector[0:4], 0x41615252)
	binary.LittleEndian.PutUint32(sector[484:488], 0x61417272)
	binary.LittleEndian.PutUint32(sector[488:492], freeClusters)
	binary.LittleEndian.PutUint32(sector[492:496], nextFreeHint)
	binary.LittleEndian.PutUint32(sector[508:512], 0xAA550000)
	sector[510] = 0x55
	sector[511] = 0xAA
	return sector
}
