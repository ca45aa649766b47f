package fat32

import (
	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
)

// FormatOptions controls Format.
type FormatOptions struct {
	Label string
	// Progress is called with (sectorsDone, sectorsTotal) while zeroing the
	// reserved region and FAT sectors, per spec.md §4.2.
	Progress func(done, total int)
}

// Format writes a fresh FAT32 filesystem spanning dev's full extent,
// following spec.md §4.2's formatting algorithm: a 32-sector reserved
// region (BPB + backup BPB + FSInfo), two explicitly zeroed FAT copies
// seeded with the three required initial entries, and a zeroed root
// directory cluster carrying one volume-label entry.
func Format(dev platform.BlockDevice, opts FormatOptions) error {
	bytesPerSector := uint16(dev.BlockSize())
	totalSectors := dev.TotalBlocks()
	if totalSectors > 1<<32-1 {
		return survivalerrors.ErrInvalidState.WithMessage("device too large for a 32-bit sector count")
	}

	sectorsPerCluster := chooseSectorsPerCluster(bytesPerSector, totalSectors)

	dataSectorsBudget := uint(totalSectors) - reservedSectors
	// Solve for SectorsPerFAT32 iteratively: each FAT sector holds
	// bytesPerSector/4 entries, and both FAT copies plus the root cluster
	// must fit inside dataSectorsBudget.
	entriesPerFATSector := uint(bytesPerSector) / 4
	var sectorsPerFAT uint32
	for {
		totalFATSectors := uint(numFATs) * uint(sectorsPerFAT)
		remainingSectors := dataSectorsBudget - totalFATSectors
		clusters := remainingSectors / uint(sectorsPerCluster)
		neededFATSectors := uint32((uint(clusters) + uint(entriesPerFATSector) - 1) / uint(entriesPerFATSector))
		if neededFATSectors <= sectorsPerFAT {
			break
		}
		sectorsPerFAT = neededFATSectors
	}

	bs := &BootSector{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		SectorsPerFAT32:   sectorsPerFAT,
		RootCluster:       rootDirFirstCluster,
		FSInfoSector:      1,
		BackupBootSector:  6,
		VolumeLabel:       opts.Label,
		TotalSectors:      uint32(totalSectors),
	}
	bs.BytesPerCluster = uint(bs.BytesPerSector) * uint(bs.SectorsPerCluster)
	bs.FirstFATSector = uint64(bs.ReservedSectors)
	bs.FirstDataSector = bs.FirstFATSector + uint64(bs.NumFATs)*uint64(bs.SectorsPerFAT32)
	dataSectors := uint(bs.TotalSectors) - uint(bs.FirstDataSector)
	bs.TotalClusters = dataSectors / uint(bs.SectorsPerCluster)

	if DetermineFATVersion(bs.TotalClusters) != 32 {
		return survivalerrors.ErrInvalidState.WithMessage(
			"volume too small for FAT32 (%d clusters)", bs.TotalClusters)
	}

	totalWork := int(reservedSectors) + int(numFATs)*int(sectorsPerFAT) + int(sectorsPerCluster)
	done := 0
	report := func() {
		done++
		if opts.Progress != nil {
			opts.Progress(done, totalWork)
		}
	}

	// Zero the entire reserved region first, per spec.md §4.2's explicit
	// "every allocated FAT sector must be zeroed before writing real
	// entries" rule.
	zeroSector := make([]byte, bytesPerSector)
	for s := uint16(0); s < reservedSectors; s++ {
		if err := dev.WriteBlock(uint64(s), zeroSector); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
		report()
	}

	volID := uint32(0x12345678)
	bootSector := serializeBootSector(bs, volID)
	if err := dev.WriteBlock(0, bootSector); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	if err := dev.WriteBlock(uint64(bs.BackupBootSector), bootSector); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}

	fsinfo := serializeFSInfo(bs.TotalClusters-1, rootDirFirstCluster)
	if err := dev.WriteBlock(uint64(bs.FSInfoSector), fsinfo); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}

	// Zero both FAT copies, then seed the three required initial entries
	// in each, per spec.md §4.2.
	for copyIdx := uint64(0); copyIdx < uint64(numFATs); copyIdx++ {
		base := bs.FirstFATSector + copyIdx*uint64(sectorsPerFAT)
		for s := uint32(0); s < sectorsPerFAT; s++ {
			if err := dev.WriteBlock(base+uint64(s), zeroSector); err != nil {
				return survivalerrors.ErrIOFailed.WrapError(err)
			}
			report()
		}
	}

	fat := newFATTable(dev, bs)
	if err := fat.WriteEntry(0, fatEntryMediaAndHighBits); err != nil {
		return err
	}
	if err := fat.WriteEntry(1, fatEntryAllOnes); err != nil {
		return err
	}
	if err := fat.WriteEntry(rootDirFirstCluster, fatEntryEndOfChain); err != nil {
		return err
	}

	// Zero the root directory cluster, then add a single volume-label
	// entry, per spec.md §4.2.
	rootLBA := bs.ClusterToSector(rootDirFirstCluster)
	for s := uint8(0); s < sectorsPerCluster; s++ {
		if err := dev.WriteBlock(rootLBA+uint64(s), zeroSector); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
		report()
	}

	if opts.Label != "" {
		labelSlots := buildVolumeLabelEntry(opts.Label)
		rootSector := make([]byte, bytesPerSector)
		copy(rootSector, labelSlots)
		if err := dev.WriteBlock(rootLBA, rootSector); err != nil {
			return survivalerrors.ErrIOFailed.WrapError(err)
		}
	}

	return nil
}

// chooseSectorsPerCluster picks the largest power-of-two cluster size
// (1..64 sectors) that still leaves the cluster count at or above 65525,
// the FAT32 threshold, per spec.md §4.2's "sensible sectors_per_cluster"
// requirement — bigger clusters on bigger volumes, same trade-off real
// FAT32 formatters make, without ever dropping below the version
// threshold.
func chooseSectorsPerCluster(bytesPerSector uint16, totalSectors uint64) uint8 {
	usableSectors := totalSectors - reservedSectors
	entriesPerFATSector := uint64(bytesPerSector) / 4
	for spc := uint8(64); spc > 1; spc /= 2 {
		// Both FAT copies come out of the same sectors; size them for the
		// cluster estimate before the FATs are subtracted, as Format does.
		estimate := usableSectors / uint64(spc)
		fatSectors := uint64(numFATs) * ((estimate + entriesPerFATSector - 1) / entriesPerFATSector)
		if (usableSectors-fatSectors)/uint64(spc) >= 65525 {
			return spc
		}
	}
	return 1
}

// buildVolumeLabelEntry builds the single 32-byte volume-label directory
// entry spec.md §4.2 requires in a freshly formatted root directory.
func buildVolumeLabelEntry(label string) []byte {
	var d shortDirent
	name := label
	if len(name) > 11 {
		name = name[:11]
	}
	copy(d.name[:], padField(name, 8))
	if len(name) > 8 {
		copy(d.ext[:], name[8:])
	}
	d.attr = AttrVolumeID
	buf := make([]byte, direntSize)
	d.serialize(buf)
	return buf
}
