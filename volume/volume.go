// Package volume defines the uniform directory-entry view of spec.md §3.5
// and the Volume interface SPEC_FULL.md §4.2/§4.3 adds on top of it: the
// common surface fat32.Driver and exfat.Driver both implement so the browser
// and clone engine can work against either filesystem without caring which
// one they're talking to. Modeled on the shape of
// dargueta-disko/driver.BaseDriver wrapping a FileSystemImplementer, but
// narrowed to exactly the operations spec.md's browser/clone components
// need instead of a full POSIX VFS (no symlinks, no permissions, no mount
// flags).
package volume

import (
	"github.com/lowlevel-dev/survival/platform"
)

// MaxNameLen is the uniform name length cap of spec.md §3.5: longer names
// (FAT32 long names and exFAT names can exceed it) are lossily truncated,
// and bytes ≥128 become '?'.
const MaxNameLen = 128

// DirEntry is the uniform record spec.md §3.5 requires every driver surface,
// regardless of on-disk format.
type DirEntry struct {
	Name  string
	Size  uint64
	IsDir bool
}

// Volume is the filesystem-agnostic surface SPEC_FULL.md adds to realize
// spec.md §9's "no hidden current volume" principle: callers hold explicit
// Volume values (boot, target) rather than mutating ambient state.
type Volume interface {
	// Mount reads and validates the on-disk structures on dev, returning an
	// error wrapping ErrInvalidFormat on a corrupt or foreign filesystem.
	Mount(dev platform.BlockDevice) error
	// OpenDir lists path's immediate children. fat32 returns them in
	// SortEntries order; exFAT returns them in on-disk order, so callers
	// needing the browser's directory-first, case-insensitive order apply
	// SortEntries themselves.
	OpenDir(path string) ([]DirEntry, error)
	// Mkdir creates an empty directory at path; the parent must exist.
	Mkdir(path string) error
	// ReadFile reads path's entire contents into memory.
	ReadFile(path string) ([]byte, error)
	// WriteFile creates or truncates path and writes data to it. progress
	// may be nil; fat32 calls it after each sector with sector counts, and
	// exFAT calls it once after the data is written with byte counts.
	WriteFile(path string, data []byte, progress func(done, total int)) error
	// Rename moves oldPath to newPath within the same volume.
	Rename(oldPath, newPath string) error
	// Remove deletes a file, or an empty directory (ErrNotEmpty otherwise).
	Remove(path string) error
	// FreeSpace reports free and total bytes on the volume.
	FreeSpace() (free, total uint64)
	// Label returns the volume label, or "" if none is set.
	Label() string
}

// TruncateName applies spec.md §3.5's lossy truncation: cap at MaxNameLen
// bytes, and replace any byte ≥128 with '?'. This is the single point every
// driver funnels its long filesystem-specific name through before handing a
// DirEntry to the rest of the system.
func TruncateName(name string) string {
	b := []byte(name)
	if len(b) > MaxNameLen {
		b = b[:MaxNameLen]
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 128 {
			out[i] = '?'
		} else {
			out[i] = c
		}
	}
	return string(out)
}

// SortEntries orders entries the way spec.md §4.8's file browser displays
// them: directories first, then case-insensitive ASCII order within each
// group. It sorts in place and also returns entries for chaining.
func SortEntries(entries []DirEntry) []DirEntry {
	sortEntries(entries)
	return entries
}
