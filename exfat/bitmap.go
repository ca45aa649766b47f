package exfat

import (
	"github.com/boljen/go-bitmap"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// allocBitmap is the in-memory allocation bitmap spec.md §3.4/§4.3 requires:
// one bit per data cluster, index 0 corresponding to cluster 2 (the first
// cluster heap cluster). It is loaded wholesale at mount and flushed
// wholesale back to the bitmap entry's cluster chain on every change,
// mirroring the teacher's own bitmap component (github.com/boljen/go-bitmap,
// named directly in the teacher's go.mod) rather than hand-rolling bit
// manipulation.
type allocBitmap struct {
	bits         bitmap.Bitmap
	clusterCount uint32
}

// newAllocBitmap allocates a fresh, all-clear bitmap for clusterCount data
// clusters, used by Format.
func newAllocBitmap(clusterCount uint32) *allocBitmap {
	return &allocBitmap{bits: bitmap.New(int(clusterCount)), clusterCount: clusterCount}
}

// loadAllocBitmap copies raw on-disk bitmap bytes (as read from the bitmap
// entry's cluster chain) into a freshly allocated bitmap sized for
// clusterCount clusters.
func loadAllocBitmap(raw []byte, clusterCount uint32) *allocBitmap {
	b := bitmap.New(int(clusterCount))
	copy(b, raw)
	return &allocBitmap{bits: b, clusterCount: clusterCount}
}

// Bytes returns the bitmap's on-disk byte representation, ready to write
// back to the bitmap entry's cluster chain.
func (b *allocBitmap) Bytes() []byte {
	return []byte(b.bits)
}

func (b *allocBitmap) checkCluster(cluster uint32) error {
	if cluster < firstDataCluster || cluster >= firstDataCluster+b.clusterCount {
		return survivalerrors.ErrInvalidState.WithMessage("cluster %d out of range", cluster)
	}
	return nil
}

// Get reports whether cluster is currently allocated.
func (b *allocBitmap) Get(cluster uint32) bool {
	return b.bits.Get(int(cluster - firstDataCluster))
}

// Set marks cluster allocated or free.
func (b *allocBitmap) Set(cluster uint32, allocated bool) {
	b.bits.Set(int(cluster-firstDataCluster), allocated)
}

// AllocateFirst does a linear scan for the first clear bit, sets it, and
// returns the corresponding cluster index, per spec.md §4.3's "linear scan
// of the in-memory bitmap for a clear bit" allocation rule.
func (b *allocBitmap) AllocateFirst() (uint32, error) {
	for i := uint32(0); i < b.clusterCount; i++ {
		if !b.bits.Get(int(i)) {
			b.bits.Set(int(i), true)
			return i + firstDataCluster, nil
		}
	}
	return 0, survivalerrors.ErrInsufficientSpace.WithMessage("no free clusters")
}

// Free clears cluster's bit.
func (b *allocBitmap) Free(cluster uint32) error {
	if err := b.checkCluster(cluster); err != nil {
		return err
	}
	b.bits.Set(int(cluster-firstDataCluster), false)
	return nil
}

// FreeCount reports how many clusters are currently unallocated.
func (b *allocBitmap) FreeCount() uint32 {
	var free uint32
	for i := uint32(0); i < b.clusterCount; i++ {
		if !b.bits.Get(int(i)) {
			free++
		}
	}
	return free
}
