// Package exfat implements spec.md §4.3's exFAT driver: mount, path
// resolution, file-entry-set parsing and building, cluster allocation
// through an in-memory bitmap, rename, and delete. It is grounded on
// dsoprea-go-exfat's structures.go/navigator.go/navigator_entry_types.go —
// the only pack repo that actually speaks exFAT — adapted from that
// package's read-only, panic-on-corruption navigator into a read/write
// driver returning ordinary errors, per this module's no-panic-in-core
// discipline (spec.md §5, §7).
package exfat

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

const (
	bootSectorSize        = 512
	fileSystemNameField   = "EXFAT   "
	bootSignatureRequired = 0xAA55

	// firstDataCluster is the lowest valid cluster index in the cluster
	// heap; clusters 0 and 1 are reserved in the FAT address space.
	firstDataCluster = 2
)

// rawBootSectorHeader mirrors the exFAT specification's 512-byte Main Boot
// Sector layout field-for-field and in field order, the same approach
// dsoprea-go-exfat's BootSectorHeader takes, so github.com/go-restruct/restruct
// can marshal/unmarshal it directly by reflection without explicit tags —
// every field here is a fixed-size integer or byte array.
type rawBootSectorHeader struct {
	JumpBoot                    [3]byte
	FileSystemName              [8]byte
	MustBeZero                  [53]byte
	PartitionOffset             uint64
	VolumeLength                uint64
	FatOffset                   uint32
	FatLength                   uint32
	ClusterHeapOffset           uint32
	ClusterCount                uint32
	FirstClusterOfRootDirectory uint32
	VolumeSerialNumber          uint32
	FileSystemRevision          [2]uint8
	VolumeFlags                 uint16
	BytesPerSectorShift         uint8
	SectorsPerClusterShift      uint8
	NumberOfFats                uint8
	DriveSelect                 uint8
	PercentInUse                uint8
	Reserved                    [7]byte
	BootCode                    [390]byte
	BootSignature               uint16
}

// BootSector is the parsed, byte-count form of rawBootSectorHeader the rest
// of this package works with, mirroring fat32.BootSector's shape: on-disk
// fields plus values derived once at mount time.
type BootSector struct {
	BytesPerSector       uint32
	SectorsPerCluster    uint32
	FatOffset            uint32 // volume-relative sector offset of the First FAT
	FatLength            uint32 // sectors per FAT
	NumberOfFats         uint8
	ClusterHeapOffset    uint32 // volume-relative sector offset of cluster 2
	ClusterCount         uint32
	RootDirectoryCluster uint32
	VolumeSerialNumber   uint32
	PartitionOffset      uint64
	VolumeLength         uint64

	BytesPerCluster uint64
}

// ParseBootSector validates and decodes a 512-byte exFAT Main Boot Sector
// per spec.md §4.3's mount algorithm: filesystem-name, must-be-zero region,
// 0xAA55 signature, and sector/cluster shift ranges.
func ParseBootSector(sector []byte) (*BootSector, error) {
	if len(sector) < bootSectorSize {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"exfat boot sector short: got %d bytes, want %d", len(sector), bootSectorSize)
	}

	var raw rawBootSectorHeader
	if err := restruct.Unpack(sector[:bootSectorSize], binary.LittleEndian, &raw); err != nil {
		return nil, survivalerrors.ErrInvalidFormat.WrapError(err)
	}

	if string(raw.FileSystemName[:]) != fileSystemNameField {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"bad exfat filesystem-name field: %q", raw.FileSystemName[:])
	}
	for _, b := range raw.MustBeZero {
		if b != 0 {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("must-be-zero region not zero")
		}
	}
	if raw.BootSignature != bootSignatureRequired {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"bad boot signature: %#04x", raw.BootSignature)
	}
	if raw.BytesPerSectorShift < 9 || raw.BytesPerSectorShift > 12 {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"bytes-per-sector-shift out of range: %d", raw.BytesPerSectorShift)
	}
	maxClusterShift := 25 - raw.BytesPerSectorShift
	if raw.SectorsPerClusterShift > maxClusterShift {
		return nil, survivalerrors.ErrInvalidFormat.WithMessage(
			"sectors-per-cluster-shift out of range: %d", raw.SectorsPerClusterShift)
	}

	bs := &BootSector{
		BytesPerSector:       1 << raw.BytesPerSectorShift,
		SectorsPerCluster:    1 << raw.SectorsPerClusterShift,
		FatOffset:            raw.FatOffset,
		FatLength:            raw.FatLength,
		NumberOfFats:         raw.NumberOfFats,
		ClusterHeapOffset:    raw.ClusterHeapOffset,
		ClusterCount:         raw.ClusterCount,
		RootDirectoryCluster: raw.FirstClusterOfRootDirectory,
		VolumeSerialNumber:   raw.VolumeSerialNumber,
		PartitionOffset:      raw.PartitionOffset,
		VolumeLength:         raw.VolumeLength,
	}
	bs.BytesPerCluster = uint64(bs.BytesPerSector) * uint64(bs.SectorsPerCluster)
	return bs, nil
}

// ClusterToSector converts a cluster index (cluster numbering starts at 2,
// per the exFAT specification) into a volume-relative sector number.
func (bs *BootSector) ClusterToSector(cluster uint32) uint64 {
	return uint64(bs.ClusterHeapOffset) + uint64(cluster-firstDataCluster)*uint64(bs.SectorsPerCluster)
}

// shiftFor returns log2(n) for a power-of-two n, used when building a fresh
// boot sector from a chosen bytes-per-sector / sectors-per-cluster pair.
func shiftFor(n uint32) uint8 {
	var shift uint8
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}

// serializeBootSector builds the 512-byte on-disk Main Boot Sector for bs.
func serializeBootSector(bs *BootSector, serial uint32) ([]byte, error) {
	raw := rawBootSectorHeader{
		PartitionOffset:             bs.PartitionOffset,
		VolumeLength:                bs.VolumeLength,
		FatOffset:                   bs.FatOffset,
		FatLength:                   bs.FatLength,
		ClusterHeapOffset:           bs.ClusterHeapOffset,
		ClusterCount:                bs.ClusterCount,
		FirstClusterOfRootDirectory: bs.RootDirectoryCluster,
		VolumeSerialNumber:          serial,
		FileSystemRevision:          [2]uint8{0, 1},
		BytesPerSectorShift:         shiftFor(bs.BytesPerSector),
		SectorsPerClusterShift:      shiftFor(bs.SectorsPerCluster),
		NumberOfFats:                bs.NumberOfFats,
		PercentInUse:                0xFF,
		BootSignature:               bootSignatureRequired,
	}
	copy(raw.FileSystemName[:], fileSystemNameField)

	out, err := restruct.Pack(binary.LittleEndian, &raw)
	if err != nil {
		return nil, survivalerrors.ErrInvalidState.WrapError(err)
	}
	return out, nil
}
