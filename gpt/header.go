package gpt

import (
	"encoding/binary"

	"github.com/lowlevel-dev/survival/utf16x"
)

const (
	headerSize      = 92
	partEntryOff    = 56
	partNameOff     = 56
	partNameLen     = 72
	signatureEFI    = 0x5452415020494645 // "EFI PART" little-endian
	revision0x00010000 = 0x00010000
)

// Header wraps one 92-byte GPT header, itself a window into the first 92
// bytes of a 512-byte sector (the rest of the sector is reserved-zero).
type Header struct {
	data []byte
}

// ToHeader wraps an existing ≥92-byte buffer as a Header.
func ToHeader(sector []byte) (Header, error) {
	if len(sector) < headerSize {
		return Header{}, errTooShort("gpt header", headerSize, len(sector))
	}
	return Header{data: sector[:headerSize:headerSize]}, nil
}

func (h *Header) Signature() uint64 { return binary.LittleEndian.Uint64(h.data[0:8]) }
func (h *Header) SetSignature()     { binary.LittleEndian.PutUint64(h.data[0:8], signatureEFI) }

func (h *Header) Revision() uint32 { return binary.LittleEndian.Uint32(h.data[8:12]) }
func (h *Header) SetRevision()     { binary.LittleEndian.PutUint32(h.data[8:12], revision0x00010000) }

func (h *Header) Size() uint32      { return binary.LittleEndian.Uint32(h.data[12:16]) }
func (h *Header) SetSize(n uint32)  { binary.LittleEndian.PutUint32(h.data[12:16], n) }

func (h *Header) CRC() uint32     { return binary.LittleEndian.Uint32(h.data[16:20]) }
func (h *Header) SetCRC(c uint32) { binary.LittleEndian.PutUint32(h.data[16:20], c) }

func (h *Header) CurrentLBA() uint64    { return binary.LittleEndian.Uint64(h.data[24:32]) }
func (h *Header) SetCurrentLBA(l uint64) { binary.LittleEndian.PutUint64(h.data[24:32], l) }

func (h *Header) AlternateLBA() uint64    { return binary.LittleEndian.Uint64(h.data[32:40]) }
func (h *Header) SetAlternateLBA(l uint64) { binary.LittleEndian.PutUint64(h.data[32:40], l) }

func (h *Header) FirstUsableLBA() uint64    { return binary.LittleEndian.Uint64(h.data[40:48]) }
func (h *Header) SetFirstUsableLBA(l uint64) { binary.LittleEndian.PutUint64(h.data[40:48], l) }

func (h *Header) LastUsableLBA() uint64    { return binary.LittleEndian.Uint64(h.data[48:56]) }
func (h *Header) SetLastUsableLBA(l uint64) { binary.LittleEndian.PutUint64(h.data[48:56], l) }

func (h *Header) DiskGUID() (g [16]byte)      { copy(g[:], h.data[56:72]); return }
func (h *Header) SetDiskGUID(g [16]byte)      { copy(h.data[56:72], g[:]) }

func (h *Header) PartitionEntryLBA() uint64    { return binary.LittleEndian.Uint64(h.data[72:80]) }
func (h *Header) SetPartitionEntryLBA(l uint64) { binary.LittleEndian.PutUint64(h.data[72:80], l) }

func (h *Header) NumberOfPartitionEntries() uint32 { return binary.LittleEndian.Uint32(h.data[80:84]) }
func (h *Header) SetNumberOfPartitionEntries(n uint32) {
	binary.LittleEndian.PutUint32(h.data[80:84], n)
}

func (h *Header) SizeOfPartitionEntry() uint32 { return binary.LittleEndian.Uint32(h.data[84:88]) }
func (h *Header) SetSizeOfPartitionEntry(n uint32) {
	binary.LittleEndian.PutUint32(h.data[84:88], n)
}

func (h *Header) PartitionEntriesCRC32() uint32 { return binary.LittleEndian.Uint32(h.data[88:92]) }
func (h *Header) SetPartitionEntriesCRC32(c uint32) {
	binary.LittleEndian.PutUint32(h.data[88:92], c)
}

// PartitionEntry wraps one 128-byte GPT partition table entry.
type PartitionEntry struct {
	data []byte
}

// ToPartitionEntry wraps an existing ≥128-byte buffer as a PartitionEntry.
func ToPartitionEntry(start []byte) (PartitionEntry, error) {
	if len(start) < 128 {
		return PartitionEntry{}, errTooShort("gpt partition entry", 128, len(start))
	}
	return PartitionEntry{data: start[:128:128]}, nil
}

func (p *PartitionEntry) TypeGUID() (g [16]byte) { copy(g[:], p.data[0:16]); return }
func (p *PartitionEntry) SetTypeGUID(g [16]byte) { copy(p.data[0:16], g[:]) }

func (p *PartitionEntry) UniqueGUID() (g [16]byte) { copy(g[:], p.data[16:32]); return }
func (p *PartitionEntry) SetUniqueGUID(g [16]byte) { copy(p.data[16:32], g[:]) }

func (p *PartitionEntry) FirstLBA() uint64     { return binary.LittleEndian.Uint64(p.data[32:40]) }
func (p *PartitionEntry) SetFirstLBA(l uint64) { binary.LittleEndian.PutUint64(p.data[32:40], l) }

func (p *PartitionEntry) LastLBA() uint64     { return binary.LittleEndian.Uint64(p.data[40:48]) }
func (p *PartitionEntry) SetLastLBA(l uint64) { binary.LittleEndian.PutUint64(p.data[40:48], l) }

func (p *PartitionEntry) Attributes() uint64     { return binary.LittleEndian.Uint64(p.data[48:56]) }
func (p *PartitionEntry) SetAttributes(a uint64) { binary.LittleEndian.PutUint64(p.data[48:56], a) }

// SetName writes name as UTF-16LE into the 72-byte name field, truncating
// and NUL-padding as needed.
func (p *PartitionEntry) SetName(name string) {
	field := p.data[partNameOff : partNameOff+partNameLen]
	for i := range field {
		field[i] = 0
	}
	_, _ = utf16x.FromUTF8(field, []byte(name))
}

// Name reads the UTF-16LE name field back as a Go string.
func (p *PartitionEntry) Name() string {
	return utf16x.DecodeString(p.data[partNameOff : partNameOff+partNameLen])
}
