package asm

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ELF32 constants needed for a minimal static, single-segment executable.
// Grounded on other_examples' from-scratch ELF writer (same stdlib-only
// encoding/binary approach; the dynamic-linking machinery there does not
// apply to this module's flat statically-placed output).
const (
	elfMagic       = "\x7fELF"
	elfClass32     = 1
	elfDataLSB     = 1
	elfDataMSB     = 2
	elfVersion     = 1
	etExec         = 2
	emNone         = 0xFF00 // vendor-reserved machine id for both custom ISAs
	ptLoad         = 1
	elfHeaderSize  = 52
	progHeaderSize = 32
)

// EmitELF32 writes a minimal statically-linked ELF32 executable: one
// PT_LOAD segment covering every section's bytes laid out contiguously,
// placed right after the ELF and program headers (virtual address
// loadBase plus the 84 header bytes), with e_entry set to the resolved
// address of entryLabel.
func EmitELF32(l *Linked, loadBase uint32, entryLabel string, bigEndian bool) ([]byte, error) {
	entry, ok := l.Labels[entryLabel]
	if !ok {
		return nil, errors.Wrapf(ErrUnresolvedLabel, "entry point %q", entryLabel)
	}

	payload := FlatBinary(l)
	fileOffset := uint32(elfHeaderSize + progHeaderSize)
	vaddr := loadBase + fileOffset

	var buf bytes.Buffer
	order := binary.ByteOrder(binary.LittleEndian)
	dataEnc := byte(elfDataLSB)
	if bigEndian {
		order = binary.BigEndian
		dataEnc = elfDataMSB
	}

	entryOffset := entry.Address - sectionBaseOffset(l)
	entryVaddr := vaddr + uint32(entryOffset)
	writeELFHeader(&buf, order, dataEnc, entryVaddr)
	writeProgramHeader(&buf, order, fileOffset, vaddr, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// sectionBaseOffset is the lowest Address among the linked sections,
// normally 0; kept as a helper in case a future target reserves a
// non-zero base for its entrypoint table.
func sectionBaseOffset(l *Linked) int {
	min := -1
	for _, s := range l.Sections {
		if min < 0 || s.Address < min {
			min = s.Address
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

func writeELFHeader(buf *bytes.Buffer, order binary.ByteOrder, dataEnc byte, entry uint32) {
	buf.WriteString(elfMagic)
	buf.WriteByte(elfClass32)
	buf.WriteByte(dataEnc)
	buf.WriteByte(elfVersion)
	buf.Write(make([]byte, 9)) // EI_PAD

	write16 := func(v uint16) { var b [2]byte; order.PutUint16(b[:], v); buf.Write(b[:]) }
	write32 := func(v uint32) { var b [4]byte; order.PutUint32(b[:], v); buf.Write(b[:]) }

	write16(etExec)
	write16(emNone)
	write32(elfVersion)
	write32(entry)               // e_entry
	write32(elfHeaderSize)       // e_phoff
	write32(0)                   // e_shoff
	write32(0)                   // e_flags
	write16(elfHeaderSize)       // e_ehsize
	write16(progHeaderSize)      // e_phentsize
	write16(1)                   // e_phnum
	write16(0)                   // e_shentsize
	write16(0)                   // e_shnum
	write16(0)                   // e_shstrndx
}

func writeProgramHeader(buf *bytes.Buffer, order binary.ByteOrder, offset, vaddr, filesz uint32) {
	write32 := func(v uint32) { var b [4]byte; order.PutUint32(b[:], v); buf.Write(b[:]) }
	write32(ptLoad)
	write32(offset)
	write32(vaddr)
	write32(vaddr) // p_paddr
	write32(filesz)
	write32(filesz) // p_memsz
	write32(7)      // p_flags: RWX
	write32(0x1000) // p_align
}
