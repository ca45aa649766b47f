package fat32

import (
	"strings"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/mem"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/volume"
)

// Driver implements volume.Volume over a FAT32 filesystem. It enforces
// spec.md §4.2's "one open stream at a time" rule: ReadFile/WriteFile (and
// the directory walk they use internally) share Driver.streamOpen.
type Driver struct {
	dev        platform.BlockDevice
	bs         *BootSector
	fat        *fatTable
	streamOpen bool
}

// Mount parses dev's boot sector and prepares the driver for use.
func (d *Driver) Mount(dev platform.BlockDevice) error {
	sector := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(0, sector); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	bs, err := ParseBootSector(sector)
	if err != nil {
		return err
	}
	d.dev = dev
	d.bs = bs
	d.fat = newFATTable(dev, bs)
	return nil
}

func (d *Driver) Label() string { return d.bs.VolumeLabel }

func (d *Driver) FreeSpace() (free, total uint64) {
	freeClusters, err := d.fat.FreeClusterCount()
	if err != nil {
		return 0, 0
	}
	return uint64(freeClusters) * uint64(d.bs.BytesPerCluster), uint64(d.bs.TotalClusters) * uint64(d.bs.BytesPerCluster)
}

// readClusterChain reads every cluster in chain back to back into one
// buffer, going straight to the device per spec.md §4.1's unbuffered bulk
// path (an entire chain must be live in memory at once, which an 8-slot
// cache can't generally hold).
func (d *Driver) readClusterChain(chain []uint32) ([]byte, error) {
	out := make([]byte, 0, len(chain)*int(d.bs.BytesPerCluster))
	sectorBuf := make([]byte, d.bs.BytesPerSector)
	for _, cluster := range chain {
		lba := d.bs.ClusterToSector(cluster)
		for s := uint8(0); s < d.bs.SectorsPerCluster; s++ {
			if err := d.dev.ReadBlock(lba+uint64(s), sectorBuf); err != nil {
				return nil, survivalerrors.ErrIOFailed.WrapError(err)
			}
			out = append(out, sectorBuf...)
		}
	}
	return out, nil
}

func (d *Driver) writeClusterChain(chain []uint32, data []byte) error {
	sectorBuf := make([]byte, d.bs.BytesPerSector)
	pos := 0
	for _, cluster := range chain {
		lba := d.bs.ClusterToSector(cluster)
		for s := uint8(0); s < d.bs.SectorsPerCluster; s++ {
			n := copy(sectorBuf, data[pos:])
			for i := n; i < len(sectorBuf); i++ {
				sectorBuf[i] = 0
			}
			if err := d.dev.WriteBlock(lba+uint64(s), sectorBuf); err != nil {
				return survivalerrors.ErrIOFailed.WrapError(err)
			}
			pos += n
		}
	}
	return nil
}

// resolveDir walks path's components from the root, returning the cluster
// chain of the final directory.
func (d *Driver) resolveDir(path string) ([]uint32, error) {
	chain, err := d.fat.Chain(d.bs.RootCluster)
	if err != nil {
		return nil, err
	}
	for _, part := range splitPath(path) {
		raw, err := d.readClusterChain(chain)
		if err != nil {
			return nil, err
		}
		entries := parseDirectorySlots(raw)
		found := false
		for _, e := range entries {
			if e.Attr&AttrDirectory != 0 && mem.ASCIIEqualFold(e.Name, part) {
				chain, err = d.fat.Chain(e.FirstCluster)
				if err != nil {
					return nil, err
				}
				found = true
				break
			}
		}
		if !found {
			return nil, survivalerrors.ErrNotFound.WithMessage("directory %q not found", part)
		}
	}
	return chain, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func splitParentAndLeaf(path string) (string, string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

// OpenDir lists path's entries, sorted per volume.SortEntries.
func (d *Driver) OpenDir(path string) ([]volume.DirEntry, error) {
	chain, err := d.resolveDir(path)
	if err != nil {
		return nil, err
	}
	raw, err := d.readClusterChain(chain)
	if err != nil {
		return nil, err
	}
	parsed := parseDirectorySlots(raw)
	out := make([]volume.DirEntry, 0, len(parsed))
	for _, e := range parsed {
		out = append(out, volume.DirEntry{
			Name:  volume.TruncateName(e.Name),
			Size:  uint64(e.Size),
			IsDir: e.Attr&AttrDirectory != 0,
		})
	}
	return volume.SortEntries(out), nil
}

// findEntry locates leaf inside the directory whose chain is dirChain.
func (d *Driver) findEntry(dirChain []uint32, leaf string) (ParsedEntry, bool, error) {
	raw, err := d.readClusterChain(dirChain)
	if err != nil {
		return ParsedEntry{}, false, err
	}
	for _, e := range parseDirectorySlots(raw) {
		if mem.ASCIIEqualFold(e.Name, leaf) {
			return e, true, nil
		}
	}
	return ParsedEntry{}, false, nil
}

// appendEntry writes slots at the end of the directory's existing content,
// allocating an additional cluster if the chain has no room left.
func (d *Driver) appendEntry(dirChain []uint32, slots []byte) error {
	raw, err := d.readClusterChain(dirChain)
	if err != nil {
		return err
	}
	insertAt := len(raw)
	for i := 0; i+direntSize <= len(raw); i += direntSize {
		if raw[i] == direntFreeMarker {
			insertAt = i
			break
		}
	}
	need := insertAt + len(slots)
	if need > len(raw) {
		extra, err := d.fat.AllocateChain(1)
		if err != nil {
			return err
		}
		last := dirChain[len(dirChain)-1]
		if err := d.fat.WriteEntry(last, extra[0]); err != nil {
			return err
		}
		dirChain = append(dirChain, extra[0])
		raw = append(raw, make([]byte, d.bs.BytesPerCluster)...)
	}
	copy(raw[insertAt:], slots)
	return d.writeClusterChain(dirChain, raw)
}

// Mkdir creates an empty directory at path (must not already exist).
func (d *Driver) Mkdir(path string) error {
	parentPath, leaf := splitParentAndLeaf(path)
	if leaf == "" {
		return survivalerrors.ErrInvalidState.WithMessage("cannot create the root directory")
	}
	parentChain, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}
	if _, ok, err := d.findEntry(parentChain, leaf); err != nil {
		return err
	} else if ok {
		return survivalerrors.ErrExists.WithMessage("%q already exists", path)
	}

	newChain, err := d.fat.AllocateChain(1)
	if err != nil {
		return err
	}
	zeroed := make([]byte, d.bs.BytesPerCluster)
	if err := d.writeClusterChain(newChain, zeroed); err != nil {
		return err
	}

	slots := buildEntrySlots(leaf, AttrDirectory, newChain[0], 0)
	return d.appendEntry(parentChain, slots)
}

// ReadFile reads path's full contents.
func (d *Driver) ReadFile(path string) ([]byte, error) {
	if d.streamOpen {
		return nil, survivalerrors.ErrInvalidState.WithMessage("a stream is already open")
	}
	d.streamOpen = true
	defer func() { d.streamOpen = false }()

	parentPath, leaf := splitParentAndLeaf(path)
	parentChain, err := d.resolveDir(parentPath)
	if err != nil {
		return nil, err
	}
	entry, ok, err := d.findEntry(parentChain, leaf)
	if err != nil {
		return nil, err
	}
	if !ok || entry.Attr&AttrDirectory != 0 {
		return nil, survivalerrors.ErrNotFound.WithMessage("%q not found", path)
	}
	if entry.Size == 0 {
		return nil, nil
	}
	chain, err := d.fat.Chain(entry.FirstCluster)
	if err != nil {
		return nil, err
	}
	data, err := d.readClusterChain(chain)
	if err != nil {
		return nil, err
	}
	return data[:entry.Size], nil
}

// WriteFile implements the streaming write spec.md §4.2 describes: the
// full cluster chain is allocated up front sized to data, then written
// sector-by-sector, zero-padding the final partial sector.
func (d *Driver) WriteFile(path string, data []byte, progress func(done, total int)) error {
	if d.streamOpen {
		return survivalerrors.ErrInvalidState.WithMessage("a stream is already open")
	}
	d.streamOpen = true
	defer func() { d.streamOpen = false }()

	parentPath, leaf := splitParentAndLeaf(path)
	parentChain, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}

	existing, exists, err := d.findEntry(parentChain, leaf)
	if err != nil {
		return err
	}
	if exists {
		if existing.Attr&AttrDirectory != 0 {
			return survivalerrors.ErrExists.WithMessage("%q is a directory", path)
		}
		oldChain, err := d.fat.Chain(existing.FirstCluster)
		if err == nil {
			if ferr := d.fat.FreeChain(oldChain); ferr != nil {
				return ferr
			}
		}
	}

	clustersNeeded := (len(data) + int(d.bs.BytesPerCluster) - 1) / int(d.bs.BytesPerCluster)
	var chain []uint32
	if clustersNeeded > 0 {
		chain, err = d.fat.AllocateChain(clustersNeeded)
		if err != nil {
			return err
		}
	}

	sectorBuf := make([]byte, d.bs.BytesPerSector)
	pos := 0
	totalSectors := clustersNeeded * int(d.bs.SectorsPerCluster)
	sectorsDone := 0
	for _, cluster := range chain {
		lba := d.bs.ClusterToSector(cluster)
		for s := uint8(0); s < d.bs.SectorsPerCluster; s++ {
			n := copy(sectorBuf, data[pos:])
			for i := n; i < len(sectorBuf); i++ {
				sectorBuf[i] = 0
			}
			if err := d.dev.WriteBlock(lba+uint64(s), sectorBuf); err != nil {
				return survivalerrors.ErrIOFailed.WrapError(err)
			}
			pos += n
			sectorsDone++
			if progress != nil {
				progress(sectorsDone, totalSectors)
			}
		}
	}

	var firstCluster uint32
	if len(chain) > 0 {
		firstCluster = chain[0]
	}
	slots := buildEntrySlots(leaf, AttrArchive, firstCluster, uint32(len(data)))
	if exists {
		if err := d.removeEntrySlots(parentChain, existing); err != nil {
			return err
		}
	}
	return d.appendEntry(parentChain, slots)
}

// removeEntrySlots zeroes out the raw 32-byte slots an entry occupies,
// marking them free without disturbing the rest of the directory.
func (d *Driver) removeEntrySlots(dirChain []uint32, e ParsedEntry) error {
	raw, err := d.readClusterChain(dirChain)
	if err != nil {
		return err
	}
	for i := 0; i < e.EntryCount; i++ {
		off := (e.SlotIndex + i) * direntSize
		if off+direntSize > len(raw) {
			break
		}
		raw[off] = direntDeletedMarker
	}
	return d.writeClusterChain(dirChain, raw)
}

// Remove deletes a file or empty directory at path.
func (d *Driver) Remove(path string) error {
	parentPath, leaf := splitParentAndLeaf(path)
	parentChain, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}
	entry, ok, err := d.findEntry(parentChain, leaf)
	if err != nil {
		return err
	}
	if !ok {
		return survivalerrors.ErrNotFound.WithMessage("%q not found", path)
	}
	if entry.Attr&AttrDirectory != 0 {
		childChain, err := d.fat.Chain(entry.FirstCluster)
		if err != nil {
			return err
		}
		raw, err := d.readClusterChain(childChain)
		if err != nil {
			return err
		}
		if len(parseDirectorySlots(raw)) > 0 {
			return survivalerrors.ErrNotEmpty.WithMessage("%q is not empty", path)
		}
		if err := d.fat.FreeChain(childChain); err != nil {
			return err
		}
	} else if entry.Size > 0 {
		chain, err := d.fat.Chain(entry.FirstCluster)
		if err != nil {
			return err
		}
		if err := d.fat.FreeChain(chain); err != nil {
			return err
		}
	}
	return d.removeEntrySlots(parentChain, entry)
}

// Rename moves oldPath to newPath, both within the same volume.
func (d *Driver) Rename(oldPath, newPath string) error {
	oldParentPath, oldLeaf := splitParentAndLeaf(oldPath)
	oldParentChain, err := d.resolveDir(oldParentPath)
	if err != nil {
		return err
	}
	entry, ok, err := d.findEntry(oldParentChain, oldLeaf)
	if err != nil {
		return err
	}
	if !ok {
		return survivalerrors.ErrNotFound.WithMessage("%q not found", oldPath)
	}

	newParentPath, newLeaf := splitParentAndLeaf(newPath)
	newParentChain, err := d.resolveDir(newParentPath)
	if err != nil {
		return err
	}
	if _, exists, err := d.findEntry(newParentChain, newLeaf); err != nil {
		return err
	} else if exists {
		return survivalerrors.ErrExists.WithMessage("%q already exists", newPath)
	}

	if err := d.removeEntrySlots(oldParentChain, entry); err != nil {
		return err
	}
	attr := entry.Attr
	slots := buildEntrySlots(newLeaf, attr, entry.FirstCluster, entry.Size)
	return d.appendEntry(newParentChain, slots)
}

// CheckInvariants implements volume.Checker, realizing spec.md §8's
// property 3 for a mounted FAT32 volume: both FAT copies must agree
// byte-for-byte. fatTable.VerifyMirror already walks the pair sector by
// sector; CheckInvariants just adapts its single error into the slice
// Checker callers expect.
func (d *Driver) CheckInvariants() []error {
	if err := d.fat.VerifyMirror(); err != nil {
		return []error{err}
	}
	return nil
}

var _ volume.Volume = (*Driver)(nil)
