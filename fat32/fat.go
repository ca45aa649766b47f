package fat32

import (
	"encoding/binary"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
)

// fatTable provides entry-level access to both on-disk FAT copies,
// mirroring every write to both per spec.md §8's FAT[0]==FAT[1] invariant.
// It bypasses blockcache deliberately: a single chain-walk or mirror check
// needs several FAT sectors live at once, which is exactly the "unbuffered
// bulk path" spec.md §4.1 reserves for callers the 8-slot cache can't serve.
type fatTable struct {
	dev           platform.BlockDevice
	bs            *BootSector
	entriesPerSec uint
}

func newFATTable(dev platform.BlockDevice, bs *BootSector) *fatTable {
	return &fatTable{dev: dev, bs: bs, entriesPerSec: uint(bs.BytesPerSector) / 4}
}

func (f *fatTable) entryLocation(cluster uint32) (sectorOffset uint64, byteOffset uint) {
	index := uint(cluster)
	sectorOffset = uint64(index / f.entriesPerSec)
	byteOffset = (index % f.entriesPerSec) * 4
	return
}

// ReadEntry returns the low 28 bits of the FAT entry for cluster, read from
// the first FAT copy.
func (f *fatTable) ReadEntry(cluster uint32) (uint32, error) {
	sectorOffset, byteOffset := f.entryLocation(cluster)
	buf := make([]byte, f.bs.BytesPerSector)
	if err := f.dev.ReadBlock(f.bs.FirstFATSector+sectorOffset, buf); err != nil {
		return 0, survivalerrors.ErrIOFailed.WrapError(err)
	}
	return binary.LittleEndian.Uint32(buf[byteOffset:byteOffset+4]) & fatEntryMask, nil
}

// WriteEntry writes value into cluster's FAT entry in every FAT copy,
// preserving each copy's top 4 reserved bits.
func (f *fatTable) WriteEntry(cluster uint32, value uint32) error {
	sectorOffset, byteOffset := f.entryLocation(cluster)
	buf := make([]byte, f.bs.BytesPerSector)
	for copyIdx := uint64(0); copyIdx < uint64(f.bs.NumFATs); copyIdx++ {
		lba := f.bs.FirstFATSector + copyIdx*uint64(f.bs.SectorsPerFAT32) + sectorOffset
		if err := f.dev.ReadBlock(lba, buf); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
		existing := binary.LittleEndian.Uint32(buf[byteOffset : byteOffset+4])
		merged := (existing &^ fatEntryMask) | (value & fatEntryMask)
		binary.LittleEndian.PutUint32(buf[byteOffset:byteOffset+4], merged)
		if err := f.dev.WriteBlock(lba, buf); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
	}
	return nil
}

// VerifyMirror checks spec.md §8's invariant that every FAT copy is
// byte-for-byte identical, reading sector by sector to avoid needing the
// whole FAT in memory at once.
func (f *fatTable) VerifyMirror() error {
	if f.bs.NumFATs < 2 {
		return nil
	}
	a := make([]byte, f.bs.BytesPerSector)
	b := make([]byte, f.bs.BytesPerSector)
	for s := uint32(0); s < f.bs.SectorsPerFAT32; s++ {
		if err := f.dev.ReadBlock(f.bs.FirstFATSector+uint64(s), a); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
		if err := f.dev.ReadBlock(f.bs.FirstFATSector+uint64(f.bs.SectorsPerFAT32)+uint64(s), b); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
		for i := range a {
			if a[i] != b[i] {
				return survivalerrors.ErrInvalidState.WithMessage("FAT copies diverge at sector %d", s)
			}
		}
	}
	return nil
}

// Chain returns the full cluster chain starting at start, following FAT
// entries until an end-of-chain marker.
func (f *fatTable) Chain(start uint32) ([]uint32, error) {
	var chain []uint32
	cluster := start
	for {
		chain = append(chain, cluster)
		next, err := f.ReadEntry(cluster)
		if err != nil {
			return nil, err
		}
		if next >= fatEntryEndOfChain || next == fatEntryBadCluster {
			break
		}
		if next == fatEntryFree {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("cluster chain hits a free entry")
		}
		cluster = next
	}
	return chain, nil
}

// AllocateChain finds count free clusters via linear scan and links them
// into a chain terminated by an end-of-chain marker, returning the cluster
// numbers in chain order.
func (f *fatTable) AllocateChain(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	found := make([]uint32, 0, count)
	for cluster := uint32(rootDirFirstCluster); cluster < uint32(f.bs.TotalClusters)+rootDirFirstCluster; cluster++ {
		entry, err := f.ReadEntry(cluster)
		if err != nil {
			return nil, err
		}
		if entry == fatEntryFree {
			found = append(found, cluster)
			if len(found) == count {
				break
			}
		}
	}
	if len(found) < count {
		return nil, survivalerrors.ErrInsufficientSpace.WithMessage(
			"need %d free clusters, found %d", count, len(found))
	}
	for i, cluster := range found {
		if i == len(found)-1 {
			if err := f.WriteEntry(cluster, fatEntryEndOfChain); err != nil {
				return nil, err
			}
		} else if err := f.WriteEntry(cluster, found[i+1]); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// FreeChain marks every cluster in chain as free.
func (f *fatTable) FreeChain(chain []uint32) error {
	for _, cluster := range chain {
		if err := f.WriteEntry(cluster, fatEntryFree); err != nil {
			return err
		}
	}
	return nil
}

// FreeClusterCount scans every FAT entry and counts the free ones, per
// spec.md §4.2's free-space query.
func (f *fatTable) FreeClusterCount() (uint32, error) {
	var free uint32
	for cluster := uint32(rootDirFirstCluster); cluster < uint32(f.bs.TotalClusters)+rootDirFirstCluster; cluster++ {
		entry, err := f.ReadEntry(cluster)
		if err != nil {
			return 0, err
		}
		if entry == fatEntryFree {
			free++
		}
	}
	return free, nil
}
