package exfat

import (
	"github.com/dsoprea/go-logging"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/mem"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/utf16x"
	"github.com/lowlevel-dev/survival/volume"
)

// Driver implements volume.Volume over an exFAT filesystem, grounded on
// dsoprea-go-exfat's ExfatReader/navigator.Navigator but rebuilt around
// ordinary (value, error) returns instead of that package's panic/recover
// style, since this module's core never lets an exception escape (spec.md
// §5, §7). Diagnostic context for mount/entry-set failures is still built
// with github.com/dsoprea/go-logging's log.Errorf, the way the teacher
// package does internally, but only to construct an error value — never
// log.PanicIf/log.Panicf.
type Driver struct {
	dev    platform.BlockDevice
	bs     *BootSector
	fat    *fatTable
	bitmap *allocBitmap

	label      string
	streamOpen bool
}

var _ volume.Volume = (*Driver)(nil)

// Mount reads and validates the boot sector, then walks the root directory
// to find the allocation bitmap and volume-label entries, per spec.md
// §4.3's mount algorithm.
func (d *Driver) Mount(dev platform.BlockDevice) error {
	sector := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(0, sector); err != nil {
		return survivalerrors.ErrIOFailed.WrapError(err)
	}
	bs, err := ParseBootSector(sector)
	if err != nil {
		return survivalerrors.ErrInvalidFormat.WrapError(log.Errorf("exfat mount: %s", err))
	}

	d.dev = dev
	d.bs = bs
	d.fat = newFATTable(dev, bs)

	rootChain, err := d.fat.Chain(bs.RootDirectoryCluster)
	if err != nil {
		return err
	}
	rootRaw, err := d.readClusters(rootChain)
	if err != nil {
		return err
	}

	count := len(rootRaw) / 32
	for i := 0; i < count; i++ {
		slot := rootRaw[i*32 : i*32+32]
		switch slot[0] &^ entryTypeInUseBit {
		case entryTypeBitmap &^ entryTypeInUseBit:
			// flags bit 0 = 0 selects the primary bitmap, per spec.md §4.3.
			if slot[1]&1 != 0 {
				continue
			}
			firstCluster := leUint32(slot[20:24])
			length := leUint64(slot[24:32])
			chain, err := d.fat.Chain(firstCluster)
			if err != nil {
				return err
			}
			raw, err := d.readClusters(chain)
			if err != nil {
				return err
			}
			if uint64(len(raw)) > length {
				raw = raw[:length]
			}
			d.bitmap = loadAllocBitmap(raw, bs.ClusterCount)
		case entryTypeVolumeLbl &^ entryTypeInUseBit:
			charCount := int(slot[1])
			ucs2 := slot[2 : 2+charCount*2]
			d.label = decodeVolumeLabel(ucs2)
		}
	}
	if d.bitmap == nil {
		d.bitmap = newAllocBitmap(bs.ClusterCount)
	}
	return nil
}

// CheckInvariants implements volume.Checker, realizing spec.md §8's
// property 2 for a mounted exFAT volume: every data cluster's bitmap bit
// must agree with whether its FAT entry is non-zero. It reports every
// disagreement found rather than stopping at the first, per §8's
// "quantified invariant" framing.
func (d *Driver) CheckInvariants() []error {
	var errs []error
	for i := uint32(0); i < d.bs.ClusterCount; i++ {
		cluster := i + firstDataCluster
		entry, err := d.fat.ReadEntry(cluster)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		allocated := d.bitmap.Get(cluster)
		if allocated != (entry != 0) {
			errs = append(errs, survivalerrors.ErrInvalidState.WithMessage(
				"cluster %d: bitmap allocated=%v but FAT entry=%d", cluster, allocated, entry))
		}
	}
	return errs
}

func (d *Driver) Label() string { return d.label }

// FreeSpace reports free and total bytes, derived from the bitmap's free
// cluster count per spec.md §4.3.
func (d *Driver) FreeSpace() (free, total uint64) {
	free = uint64(d.bitmap.FreeCount()) * d.bs.BytesPerCluster
	total = uint64(d.bs.ClusterCount) * d.bs.BytesPerCluster
	return
}

// readClusters reads every cluster in chain and concatenates their bytes.
func (d *Driver) readClusters(chain []uint32) ([]byte, error) {
	buf := make([]byte, int(d.bs.BytesPerCluster)*len(chain))
	secPerCluster := uint64(d.bs.SectorsPerCluster)
	secSize := uint64(d.bs.BytesPerSector)
	for i, cluster := range chain {
		lba := d.bs.ClusterToSector(cluster)
		for s := uint64(0); s < secPerCluster; s++ {
			off := uint64(i)*d.bs.BytesPerCluster + s*secSize
			if err := d.dev.ReadBlock(lba+s, buf[off:off+secSize]); err != nil {
				return nil, survivalerrors.ErrIOFailed.WrapError(err)
			}
		}
	}
	return buf, nil
}

func (d *Driver) writeClusters(chain []uint32, data []byte) error {
	secPerCluster := uint64(d.bs.SectorsPerCluster)
	secSize := uint64(d.bs.BytesPerSector)
	padded := make([]byte, int(d.bs.BytesPerCluster)*len(chain))
	copy(padded, data)
	for i, cluster := range chain {
		lba := d.bs.ClusterToSector(cluster)
		for s := uint64(0); s < secPerCluster; s++ {
			off := uint64(i)*d.bs.BytesPerCluster + s*secSize
			if err := d.dev.WriteBlock(lba+s, padded[off:off+secSize]); err != nil {
				return survivalerrors.ErrIOFailed.WrapError(err)
			}
		}
	}
	return nil
}

func (d *Driver) clustersNeeded(byteLen uint64) int {
	if byteLen == 0 {
		return 0
	}
	return int((byteLen + d.bs.BytesPerCluster - 1) / d.bs.BytesPerCluster)
}

// resolveDirChain resolves path (a directory) to its cluster chain.
func (d *Driver) resolveDirChain(path string) ([]uint32, error) {
	parts := splitExfatPath(path)
	chain, err := d.fat.Chain(d.bs.RootDirectoryCluster)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		raw, err := d.readClusters(chain)
		if err != nil {
			return nil, err
		}
		entry, ok := findEntrySet(raw, part)
		if !ok {
			return nil, survivalerrors.ErrNotFound.WithMessage("%s not found", part)
		}
		if !entry.IsDir {
			return nil, survivalerrors.ErrInvalidState.WithMessage("%s is not a directory", part)
		}
		chain, err = d.fat.Chain(entry.FirstCluster)
		if err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// findEntrySet scans raw for a file-entry-set whose name ASCII-case-folds
// to match name, per spec.md §4.3's case-insensitive path resolution.
func findEntrySet(raw []byte, name string) (ParsedEntry, bool) {
	count := len(raw) / 32
	for i := 0; i < count; {
		slot := raw[i*32 : i*32+32]
		if slot[0] == entryTypeEndMarker {
			break
		}
		if slot[0] != entryTypeFile {
			i++
			continue
		}
		entry, ok := parseEntrySet(raw, i)
		if !ok {
			i++
			continue
		}
		if mem.ASCIIEqualFold(entry.Name, name) {
			return entry, true
		}
		i += entry.EntryCount
	}
	return ParsedEntry{}, false
}

// listEntrySets returns every live file-entry-set in raw.
func listEntrySets(raw []byte) []ParsedEntry {
	count := len(raw) / 32
	var out []ParsedEntry
	for i := 0; i < count; {
		slot := raw[i*32 : i*32+32]
		if slot[0] == entryTypeEndMarker {
			break
		}
		if slot[0] != entryTypeFile {
			i++
			continue
		}
		entry, ok := parseEntrySet(raw, i)
		if !ok {
			i++
			continue
		}
		out = append(out, entry)
		i += entry.EntryCount
	}
	return out
}

// OpenDir lists path's immediate children.
func (d *Driver) OpenDir(path string) ([]volume.DirEntry, error) {
	chain, err := d.resolveDirChain(path)
	if err != nil {
		return nil, err
	}
	raw, err := d.readClusters(chain)
	if err != nil {
		return nil, err
	}
	parsed := listEntrySets(raw)
	out := make([]volume.DirEntry, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, volume.DirEntry{
			Name:  volume.TruncateName(p.Name),
			Size:  p.DataLength,
			IsDir: p.IsDir,
		})
	}
	return out, nil
}

func splitParentLeaf(path string) (string, string) {
	parts := splitExfatPath(path)
	if len(parts) == 0 {
		return "/", ""
	}
	leaf := parts[len(parts)-1]
	parent := "/" + joinPath(parts[:len(parts)-1])
	return parent, leaf
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// appendEntrySet writes newSlots into the first run of free (end-marker or
// deleted) slots long enough to hold them, per spec.md §4.3's "first run of
// free slots long enough" rule. When no such run exists it allocates and
// links one more cluster; a free run that reaches the end of the existing
// chain continues into that new, zeroed cluster.
func (d *Driver) appendEntrySet(dirChain []uint32, newSlots []byte) error {
	raw, err := d.readClusters(dirChain)
	if err != nil {
		return err
	}
	count := len(raw) / 32
	needed := len(newSlots) / 32
	free := 0
	startFree := -1
	for i := 0; i < count; i++ {
		if raw[i*32] == entryTypeEndMarker || raw[i*32]&entryTypeInUseBit == 0 {
			if startFree == -1 {
				startFree = i
			}
			free++
			if free >= needed {
				break
			}
		} else {
			free = 0
			startFree = -1
		}
	}
	if free >= needed {
		copy(raw[startFree*32:], newSlots)
		return d.writeClusters(dirChain, raw)
	}

	// No run of free slots: grow the directory by one cluster.
	newChain, err := d.fat.AllocateChain(d.bitmap, 1)
	if err != nil {
		return err
	}
	if err := d.fat.WriteEntry(dirChain[len(dirChain)-1], newChain[0]); err != nil {
		return err
	}
	grown := append(append([]uint32(nil), dirChain...), newChain[0])
	combined := append(raw, make([]byte, d.bs.BytesPerCluster)...)
	at := len(raw)
	if startFree != -1 {
		// The trailing free run is kept contiguous with the new slots, so no
		// end marker is left in front of them.
		at = startFree * 32
	}
	copy(combined[at:], newSlots)
	return d.writeClusters(grown, combined)
}

// Mkdir creates an empty directory at path.
func (d *Driver) Mkdir(path string) error {
	parentPath, leaf := splitParentLeaf(path)
	if leaf == "" {
		return survivalerrors.ErrInvalidState.WithMessage("empty path")
	}
	parentChain, err := d.resolveDirChain(parentPath)
	if err != nil {
		return err
	}
	raw, err := d.readClusters(parentChain)
	if err != nil {
		return err
	}
	if _, ok := findEntrySet(raw, leaf); ok {
		return survivalerrors.ErrExists.WithMessage("%s already exists", leaf)
	}

	newChain, err := d.fat.AllocateChain(d.bitmap, 1)
	if err != nil {
		return err
	}
	if err := d.writeClusters(newChain, make([]byte, d.bs.BytesPerCluster)); err != nil {
		return err
	}

	slots := buildEntrySet(leaf, true, newChain[0], 0)
	return d.appendEntrySet(parentChain, slots)
}

// ReadFile reads path's entire contents into memory.
func (d *Driver) ReadFile(path string) ([]byte, error) {
	parentPath, leaf := splitParentLeaf(path)
	parentChain, err := d.resolveDirChain(parentPath)
	if err != nil {
		return nil, err
	}
	raw, err := d.readClusters(parentChain)
	if err != nil {
		return nil, err
	}
	entry, ok := findEntrySet(raw, leaf)
	if !ok || entry.IsDir {
		return nil, survivalerrors.ErrNotFound.WithMessage("%s not found", leaf)
	}
	if entry.DataLength == 0 {
		return nil, nil
	}

	var fileRaw []byte
	if entry.NoFatChain {
		clusters := d.clustersNeeded(entry.DataLength)
		chain := make([]uint32, clusters)
		for i := range chain {
			chain[i] = entry.FirstCluster + uint32(i)
		}
		fileRaw, err = d.readClusters(chain)
	} else {
		chain, chainErr := d.fat.Chain(entry.FirstCluster)
		if chainErr != nil {
			return nil, chainErr
		}
		fileRaw, err = d.readClusters(chain)
	}
	if err != nil {
		return nil, err
	}
	return fileRaw[:entry.DataLength], nil
}

// WriteFile creates or overwrites path with data, streaming through
// progress (byte counts) if non-nil. Per spec.md §4.3, writes always
// allocate a fresh FAT chain: an existing file's old chain (FAT-based or
// contiguous) is freed and a brand-new entry set inserted.
func (d *Driver) WriteFile(path string, data []byte, progress func(done, total int)) error {
	if d.streamOpen {
		return survivalerrors.ErrInvalidState.WithMessage("a write is already in progress")
	}
	d.streamOpen = true
	defer func() { d.streamOpen = false }()

	parentPath, leaf := splitParentLeaf(path)
	parentChain, err := d.resolveDirChain(parentPath)
	if err != nil {
		return err
	}
	raw, err := d.readClusters(parentChain)
	if err != nil {
		return err
	}

	if old, ok := findEntrySet(raw, leaf); ok {
		if err := d.freeEntryData(old); err != nil {
			return err
		}
		markDeleted(raw[old.SlotIndex*32:], 0, old.EntryCount)
		if err := d.writeClusters(parentChain, raw); err != nil {
			return err
		}
	}

	var firstCluster uint32
	clusters := d.clustersNeeded(uint64(len(data)))
	if clusters > 0 {
		chain, err := d.fat.AllocateChain(d.bitmap, clusters)
		if err != nil {
			return err
		}
		firstCluster = chain[0]
		if err := d.writeClusters(chain, data); err != nil {
			return err
		}
		if progress != nil {
			progress(len(data), len(data))
		}
	}

	slots := buildEntrySet(leaf, false, firstCluster, uint64(len(data)))
	return d.appendEntrySet(parentChain, slots)
}

func (d *Driver) freeEntryData(entry ParsedEntry) error {
	if entry.FirstCluster == 0 {
		return nil
	}
	if entry.NoFatChain {
		n := d.clustersNeeded(entry.DataLength)
		for i := 0; i < n; i++ {
			if err := d.bitmap.Free(entry.FirstCluster + uint32(i)); err != nil {
				return err
			}
		}
		return nil
	}
	chain, err := d.fat.Chain(entry.FirstCluster)
	if err != nil {
		return err
	}
	return d.fat.FreeChain(d.bitmap, chain)
}

// Rename moves oldPath to newPath within the volume (same-directory and
// cross-directory both supported).
func (d *Driver) Rename(oldPath, newPath string) error {
	oldParentPath, oldLeaf := splitParentLeaf(oldPath)
	oldParentChain, err := d.resolveDirChain(oldParentPath)
	if err != nil {
		return err
	}
	oldRaw, err := d.readClusters(oldParentChain)
	if err != nil {
		return err
	}
	entry, ok := findEntrySet(oldRaw, oldLeaf)
	if !ok {
		return survivalerrors.ErrNotFound.WithMessage("%s not found", oldLeaf)
	}

	newParentPath, newLeaf := splitParentLeaf(newPath)
	newParentChain, err := d.resolveDirChain(newParentPath)
	if err != nil {
		return err
	}
	newRaw, err := d.readClusters(newParentChain)
	if err != nil {
		return err
	}
	if _, exists := findEntrySet(newRaw, newLeaf); exists {
		return survivalerrors.ErrExists.WithMessage("%s already exists", newLeaf)
	}

	markDeleted(oldRaw[entry.SlotIndex*32:], 0, entry.EntryCount)
	if err := d.writeClusters(oldParentChain, oldRaw); err != nil {
		return err
	}

	slots := buildEntrySet(newLeaf, entry.IsDir, entry.FirstCluster, entry.DataLength)
	return d.appendEntrySet(newParentChain, slots)
}

// Remove deletes a file, or an empty directory.
func (d *Driver) Remove(path string) error {
	parentPath, leaf := splitParentLeaf(path)
	parentChain, err := d.resolveDirChain(parentPath)
	if err != nil {
		return err
	}
	raw, err := d.readClusters(parentChain)
	if err != nil {
		return err
	}
	entry, ok := findEntrySet(raw, leaf)
	if !ok {
		return survivalerrors.ErrNotFound.WithMessage("%s not found", leaf)
	}
	if entry.IsDir {
		childChain, err := d.fat.Chain(entry.FirstCluster)
		if err != nil {
			return err
		}
		childRaw, err := d.readClusters(childChain)
		if err != nil {
			return err
		}
		if len(listEntrySets(childRaw)) > 0 {
			return survivalerrors.ErrNotEmpty.WithMessage("%s is not empty", leaf)
		}
	}

	if err := d.freeEntryData(entry); err != nil {
		return err
	}
	markDeleted(raw[entry.SlotIndex*32:], 0, entry.EntryCount)
	return d.writeClusters(parentChain, raw)
}

// decodeVolumeLabel decodes a volume-label entry's UCS-2 name field. Unlike
// LFN fragments, exFAT's VolumeLabel entry carries an explicit character
// count rather than a NUL terminator, so this bypasses utf16x.DecodeString's
// NUL-scanning convention and decodes the field as given.
func decodeVolumeLabel(ucs2 []byte) string {
	dst := make([]byte, len(ucs2)*3)
	n, _ := utf16x.ToUTF8(dst, ucs2)
	return string(dst[:n])
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
