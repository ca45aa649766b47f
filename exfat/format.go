package exfat

import (
	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
)

// FormatOptions controls Format.
type FormatOptions struct {
	Label string
}

// Format writes a fresh exFAT filesystem spanning dev's full extent: a
// Main/Backup Boot region, one FAT, a cluster heap whose first clusters
// hold the allocation bitmap, and a root directory carrying the bitmap and
// volume-label entries. No up-case table is written: ASCII-only up-casing
// is handled entirely in software per spec.md §4.3's name-hash rule.
func Format(dev platform.BlockDevice, opts FormatOptions) error {
	bytesPerSector := uint32(dev.BlockSize())
	if bytesPerSector < 512 || bytesPerSector > 4096 {
		return survivalerrors.ErrInvalidState.WithMessage("unsupported sector size %d", bytesPerSector)
	}
	totalSectors := dev.TotalBlocks()

	sectorsPerCluster := chooseExfatSectorsPerCluster(bytesPerSector)

	// Reserve 24 sectors for the Main Boot region (the exFAT-minimum per
	// spec.md's cited FatOffset lower bound), mirrored by 24 more for the
	// Backup Boot region.
	const bootRegionSectors = 24
	fatOffset := uint32(2 * bootRegionSectors)

	entriesPerSector := bytesPerSector / 4
	// One spare FAT entry per reserved cluster index (0 and 1 are reserved
	// in the FAT address space, matching FAT32's convention).
	maxClusters := uint32((totalSectors - uint64(fatOffset)) / uint64(sectorsPerCluster))
	fatLength := (maxClusters + 2 + entriesPerSector - 1) / entriesPerSector

	clusterHeapOffset := fatOffset + fatLength
	clusterCount := uint32((totalSectors - uint64(clusterHeapOffset)) / uint64(sectorsPerCluster))

	bs := &BootSector{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		FatOffset:         fatOffset,
		FatLength:         fatLength,
		NumberOfFats:      1,
		ClusterHeapOffset: clusterHeapOffset,
		ClusterCount:      clusterCount,
		VolumeLength:      totalSectors,
	}
	bs.BytesPerCluster = uint64(bs.BytesPerSector) * uint64(bs.SectorsPerCluster)

	bitmapClusters := uint32((uint64(clusterCount)/8 + uint64(bs.BytesPerCluster) - 1) / bs.BytesPerCluster)
	if bitmapClusters == 0 {
		bitmapClusters = 1
	}
	bitmapFirstCluster := uint32(firstDataCluster)
	rootFirstCluster := bitmapFirstCluster + bitmapClusters
	bs.RootDirectoryCluster = rootFirstCluster

	fat := newFATTable(dev, bs)
	zeroSector := make([]byte, bytesPerSector)
	for s := uint32(0); s < fatLength; s++ {
		if err := dev.WriteBlock(uint64(fatOffset+s), zeroSector); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
	}
	if err := fat.WriteEntry(0, exfatEntryEOC); err != nil {
		return err
	}
	if err := fat.WriteEntry(1, exfatEntryEOC); err != nil {
		return err
	}
	for c := bitmapFirstCluster; c < bitmapFirstCluster+bitmapClusters; c++ {
		next := uint32(exfatEntryEOC)
		if c+1 < bitmapFirstCluster+bitmapClusters {
			next = c + 1
		}
		if err := fat.WriteEntry(c, next); err != nil {
			return err
		}
	}
	if err := fat.WriteEntry(rootFirstCluster, exfatEntryEOC); err != nil {
		return err
	}

	bitmap := newAllocBitmap(clusterCount)
	for c := bitmapFirstCluster; c <= rootFirstCluster; c++ {
		bitmap.Set(c, true)
	}

	driver := &Driver{dev: dev, bs: bs, fat: fat, bitmap: bitmap}

	bitmapChain := make([]uint32, bitmapClusters)
	for i := range bitmapChain {
		bitmapChain[i] = bitmapFirstCluster + uint32(i)
	}
	if err := driver.writeClusters(bitmapChain, bitmap.Bytes()); err != nil {
		return err
	}

	if err := driver.writeClusters([]uint32{rootFirstCluster}, make([]byte, bs.BytesPerCluster)); err != nil {
		return err
	}

	bitmapEntry := buildBitmapEntry(bitmapFirstCluster, uint64(bitmapClusters)*bs.BytesPerCluster)
	root := make([]byte, bs.BytesPerCluster)
	copy(root, bitmapEntry)
	if opts.Label != "" {
		labelEntry := buildVolumeLabelEntry(opts.Label)
		copy(root[32:], labelEntry)
	}
	if err := driver.writeClusters([]uint32{rootFirstCluster}, root); err != nil {
		return err
	}

	sector, err := serializeBootSector(bs, 0x45584641) // "EXFA" as a fixed serial
	if err != nil {
		return err
	}
	if err := dev.WriteBlock(0, sector); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	for i := uint32(1); i < bootRegionSectors; i++ {
		if err := dev.WriteBlock(uint64(i), zeroSector); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
	}
	for i := uint32(0); i < bootRegionSectors; i++ {
		buf := zeroSector
		if i == 0 {
			buf = sector
		}
		if err := dev.WriteBlock(uint64(bootRegionSectors+i), buf); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
	}

	return nil
}

// chooseExfatSectorsPerCluster picks a conservative fixed cluster size
// (4 KiB worth of sectors) — exFAT's cluster-size field is a free choice
// per the specification, and spec.md does not prescribe a sizing heuristic
// the way it does for FAT32, so this keeps bitmap and FAT bookkeeping
// simple rather than reproducing FAT32's version-threshold search.
func chooseExfatSectorsPerCluster(bytesPerSector uint32) uint32 {
	target := uint32(4096)
	spc := target / bytesPerSector
	if spc == 0 {
		spc = 1
	}
	return spc
}

// buildBitmapEntry builds the root directory's single allocation-bitmap
// entry (type 0x81, flags bit 0 = 0 for the primary bitmap).
func buildBitmapEntry(firstCluster uint32, length uint64) []byte {
	buf := make([]byte, 32)
	buf[0] = entryTypeBitmap
	buf[1] = 0 // BitmapFlags: bit 0 = 0 selects the primary bitmap
	putUint32(buf[20:24], firstCluster)
	putUint64(buf[24:32], length)
	return buf
}

// buildVolumeLabelEntry builds the root directory's volume-label entry
// (type 0x83), encoding label as UCS-2 with an explicit character count.
func buildVolumeLabelEntry(label string) []byte {
	buf := make([]byte, 32)
	if label == "" {
		return buf
	}
	runes := []rune(label)
	if len(runes) > 11 {
		runes = runes[:11]
	}
	buf[0] = entryTypeVolumeLbl
	buf[1] = byte(len(runes))
	for i, r := range runes {
		putUint16(buf[2+i*2:4+i*2], uint16(r))
	}
	return buf
}

func putUint16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putUint32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
