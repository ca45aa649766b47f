// Package gpt builds and parses the protective-MBR + GPT layout of spec.md
// §4.4. The byte-accessor style here — a typed wrapper around a []byte
// window with explicit little-endian get/set method pairs, never
// struct-punning — follows soypat-fat's internal/mbr and internal/gpt
// packages directly.
package gpt

import "encoding/binary"

const (
	mbrBootstrapLen  = 440
	mbrPTEOffset     = 446
	mbrPTELen        = 16
	mbrSignatureOff  = 510
	mbrSignature     = 0xAA55
	mbrProtectiveTyp = 0xEE
)

// MBR wraps one 512-byte protective MBR sector.
type MBR struct {
	data []byte
}

// ToMBR wraps an existing 512-byte sector buffer as an MBR.
func ToMBR(sector []byte) (MBR, error) {
	if len(sector) < 512 {
		return MBR{}, errTooShort("mbr sector", 512, len(sector))
	}
	return MBR{data: sector[:512:512]}, nil
}

// BuildProtectiveMBR fills sector (must be 512 bytes, already present so
// callers control where it lives) with the protective MBR spec.md §4.4
// describes: zeroed bootstrap area, one 0xEE partition entry covering the
// disk, boot signature 0xAA55.
func BuildProtectiveMBR(sector []byte, totalSectors uint64) (MBR, error) {
	m, err := ToMBR(sector)
	if err != nil {
		return MBR{}, err
	}
	for i := 0; i < mbrBootstrapLen; i++ {
		m.data[i] = 0
	}

	size := totalSectors - 1
	if size > 0xFFFFFFFF {
		size = 0xFFFFFFFF
	}

	pte := m.data[mbrPTEOffset : mbrPTEOffset+mbrPTELen]
	pte[0] = 0 // status: not bootable
	// CHS-start, symbolic (0, 2, 0) per spec.md §4.4.
	pte[1], pte[2], pte[3] = 0, 2, 0
	pte[4] = mbrProtectiveTyp
	// CHS-end, symbolic (255, 255, 255).
	pte[5], pte[6], pte[7] = 255, 255, 255
	binary.LittleEndian.PutUint32(pte[8:12], 1)
	binary.LittleEndian.PutUint32(pte[12:16], uint32(size))

	binary.LittleEndian.PutUint16(m.data[mbrSignatureOff:mbrSignatureOff+2], mbrSignature)
	return m, nil
}

// PartitionType returns the type byte of the idx'th (0-based) partition
// table entry.
func (m *MBR) PartitionType(idx int) byte {
	return m.data[mbrPTEOffset+idx*mbrPTELen+4]
}

// StartLBA returns the idx'th partition table entry's starting LBA.
func (m *MBR) StartLBA(idx int) uint32 {
	off := mbrPTEOffset + idx*mbrPTELen + 8
	return binary.LittleEndian.Uint32(m.data[off : off+4])
}

// SignatureValid reports whether the boot signature at offset 510 is
// 0xAA55.
func (m *MBR) SignatureValid() bool {
	return binary.LittleEndian.Uint16(m.data[mbrSignatureOff:mbrSignatureOff+2]) == mbrSignature
}
