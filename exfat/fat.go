package exfat

import (
	"encoding/binary"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
)

const (
	exfatEntryFree = 0x00000000
	exfatEntryEOC  = 0xFFFFFFFF
	exfatEntryBad  = 0xFFFFFFF7
)

// fatTable is exFAT's single (First) FAT, accessed directly against the
// block device rather than through blockcache, for the same reason
// fat32.fatTable does: chain-walking and mirroring logic need several FAT
// sectors live across one logical operation, which the 8-slot cache can't
// generally serve.
type fatTable struct {
	dev           platform.BlockDevice
	bs            *BootSector
	entriesPerSec uint
}

func newFATTable(dev platform.BlockDevice, bs *BootSector) *fatTable {
	return &fatTable{dev: dev, bs: bs, entriesPerSec: uint(bs.BytesPerSector) / 4}
}

func (f *fatTable) entryLocation(cluster uint32) (sector uint64, byteOffset uint) {
	idx := uint(cluster)
	sector = uint64(f.bs.FatOffset) + uint64(idx/f.entriesPerSec)
	byteOffset = (idx % f.entriesPerSec) * 4
	return
}

// ReadEntry returns the raw FAT[cluster] value.
func (f *fatTable) ReadEntry(cluster uint32) (uint32, error) {
	sector, off := f.entryLocation(cluster)
	buf := make([]byte, f.bs.BytesPerSector)
	if err := f.dev.ReadBlock(sector, buf); err != nil {
		return 0, survivalerrors.ErrIOFailed.WrapError(err)
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), nil
}

// WriteEntry sets FAT[cluster] = value.
func (f *fatTable) WriteEntry(cluster uint32, value uint32) error {
	sector, off := f.entryLocation(cluster)
	buf := make([]byte, f.bs.BytesPerSector)
	if err := f.dev.ReadBlock(sector, buf); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], value)
	if err := f.dev.WriteBlock(sector, buf); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Chain walks the FAT starting at start, returning every cluster in order
// up to and including the last cluster before EOC.
func (f *fatTable) Chain(start uint32) ([]uint32, error) {
	var chain []uint32
	cluster := start
	for {
		chain = append(chain, cluster)
		next, err := f.ReadEntry(cluster)
		if err != nil {
			return nil, err
		}
		if next == exfatEntryEOC || next == exfatEntryFree {
			break
		}
		if next == exfatEntryBad {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("bad cluster %d in chain", cluster)
		}
		cluster = next
	}
	return chain, nil
}

// AllocateChain allocates count clusters from bitmap, links them into one
// FAT chain terminated with EOC, and returns the cluster numbers in order.
func (f *fatTable) AllocateChain(bitmap *allocBitmap, count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	chain := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		c, err := bitmap.AllocateFirst()
		if err != nil {
			for _, prev := range chain {
				bitmap.Free(prev)
			}
			return nil, err
		}
		chain = append(chain, c)
	}
	for i, c := range chain {
		var next uint32 = exfatEntryEOC
		if i+1 < len(chain) {
			next = chain[i+1]
		}
		if err := f.WriteEntry(c, next); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// FreeChain clears every FAT entry in chain and their bitmap bits.
func (f *fatTable) FreeChain(bitmap *allocBitmap, chain []uint32) error {
	for _, c := range chain {
		if err := f.WriteEntry(c, exfatEntryFree); err != nil {
			return err
		}
		if err := bitmap.Free(c); err != nil {
			return err
		}
	}
	return nil
}
