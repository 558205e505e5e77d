// Package asm implements the two-pass chunked-section assembler/linker of
// spec.md §4.7: a Builder that the target selector writes tagged records
// into (satisfying pkg/target.Chunks), a Link step that performs the
// layout and emission passes, and the flat-binary/ELF32/sidecar output
// writers. Grounded on the teacher's pkg/mach/printer.go for the
// switch-based dump style reused by the sidecar writer; the two-pass
// layout/emit split and tagged-record buffer have no direct teacher
// analogue (the teacher never lowers to real machine bytes) and are
// written fresh in the same plain-struct idiom.
package asm

import (
	"bytes"

	"github.com/pkg/errors"
)

// RefMode is the addressing interpretation of a LABEL_REF record (spec.md
// §4.7's mode byte).
type RefMode int

const (
	AbsPtr RefMode = iota
	PCRelativePtr
	AbsWordLo
	AbsWordHi
	PCRelativeWord
)

type tag int

const (
	tagData tag = iota
	tagZero
	tagLabel
	tagLabelRef
)

type record struct {
	tag    tag
	data   []byte
	count  int
	name   string
	mode   RefMode
	offset int
}

// Section is one named output region with its own byte stream of tagged
// records and alignment requirement.
type Section struct {
	Name    string
	Align   int
	records []record

	// filled by Link
	Address int
	Size    int
}

// ErrUnresolvedLabel is returned by Link when a LABEL_REF names a label
// never defined anywhere in the program.
var ErrUnresolvedLabel = errors.New("asm: unresolved label")

// ErrDuplicateLabel is returned by Link when the same label name is
// defined more than once.
var ErrDuplicateLabel = errors.New("asm: duplicate label")

// ErrAlignmentConflict is returned by Link when two sections placed at
// the same address disagree on alignment.
var ErrAlignmentConflict = errors.New("asm: section alignment conflict")

// outputOrder is the fixed section emission order of spec.md §4.7:
// entrypoint table (if present), text, rodata, data, bss, then anything
// else in the order first seen.
var outputOrder = []string{".entrypoints", ".text", ".rodata", ".data", ".bss"}

// Builder accumulates tagged records into named sections; it satisfies
// pkg/target.Chunks for whichever section is currently selected.
type Builder struct {
	PtrSize     int // address width in bytes
	BigEndian   bool
	sections    map[string]*Section
	extraOrder  []string
	cur         *Section
}

// NewBuilder creates an empty Builder for a target with the given pointer
// width and endianness.
func NewBuilder(ptrSize int, bigEndian bool) *Builder {
	b := &Builder{PtrSize: ptrSize, BigEndian: bigEndian, sections: make(map[string]*Section)}
	b.SelectSection(".text", 1)
	return b
}

// SelectSection switches the active section, creating it with the given
// alignment if this is the first reference.
func (b *Builder) SelectSection(name string, align int) {
	s, ok := b.sections[name]
	if !ok {
		if align < 1 {
			align = 1
		}
		s = &Section{Name: name, Align: align}
		b.sections[name] = s
		if !isKnownSection(name) {
			b.extraOrder = append(b.extraOrder, name)
		}
	}
	b.cur = s
}

func isKnownSection(name string) bool {
	for _, n := range outputOrder {
		if n == name {
			return true
		}
	}
	return false
}

// EmitData appends a DATA record of raw bytes to the active section.
func (b *Builder) EmitData(data []byte) {
	cp := append([]byte(nil), data...)
	b.cur.records = append(b.cur.records, record{tag: tagData, data: cp})
}

// EmitZero appends a ZERO record reserving count zero bytes.
func (b *Builder) EmitZero(count int) {
	b.cur.records = append(b.cur.records, record{tag: tagZero, count: count})
}

// EmitLabel appends a LABEL record defining name at the current PC.
func (b *Builder) EmitLabel(name string) {
	b.cur.records = append(b.cur.records, record{tag: tagLabel, name: name})
}

// EmitLabelRef appends a LABEL_REF record: an unresolved reference to name
// with the given addressing mode and an additional in-instruction offset.
func (b *Builder) EmitLabelRef(mode int, offset int, name string) {
	b.cur.records = append(b.cur.records, record{tag: tagLabelRef, mode: RefMode(mode), offset: offset, name: name})
}

// Sections returns the section list in the fixed output order.
func (b *Builder) Sections() []*Section {
	var out []*Section
	for _, name := range append(append([]string(nil), outputOrder...), b.extraOrder...) {
		if s, ok := b.sections[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

func alignUp(pc, align int) int {
	if align <= 1 {
		return pc
	}
	if r := pc % align; r != 0 {
		pc += align - r
	}
	return pc
}

func recordLen(r record, ptrSize int) int {
	switch r.tag {
	case tagData:
		return len(r.data)
	case tagZero:
		return r.count
	case tagLabelRef:
		if r.mode == AbsWordLo || r.mode == AbsWordHi {
			return ptrSize / 2
		}
		return ptrSize
	default:
		return 0
	}
}

// LabelInfo is one resolved label's address and owning section.
type LabelInfo struct {
	Address int
	Section string
}

// Linked is the result of running both assembler passes: label table plus
// per-section laid-out byte streams ready for an output writer.
type Linked struct {
	Labels   map[string]LabelInfo
	Sections []*Section
	Bytes    map[string][]byte // per-section emitted bytes, keyed by Section.Name
}

// Link performs spec.md §4.7's two passes: layout (assign addresses to
// every label and section) then emit (resolve every LABEL_REF and produce
// the final byte stream per section).
func (b *Builder) Link() (*Linked, error) {
	labels := make(map[string]LabelInfo)
	sections := b.Sections()

	pc := 0
	for _, s := range sections {
		newPC := alignUp(pc, s.Align)
		s.Address = newPC
		pc = newPC
		for _, r := range s.records {
			if r.tag == tagLabel {
				if _, dup := labels[r.name]; dup {
					return nil, errors.Wrapf(ErrDuplicateLabel, "%q", r.name)
				}
				labels[r.name] = LabelInfo{Address: pc, Section: s.Name}
			}
			pc += recordLen(r, b.PtrSize)
		}
		s.Size = pc - s.Address
	}

	out := make(map[string][]byte)
	for _, s := range sections {
		buf, err := b.emitSection(s, labels)
		if err != nil {
			return nil, err
		}
		out[s.Name] = buf
	}
	return &Linked{Labels: labels, Sections: sections, Bytes: out}, nil
}

func (b *Builder) emitSection(s *Section, labels map[string]LabelInfo) ([]byte, error) {
	var buf bytes.Buffer
	pc := s.Address
	for _, r := range s.records {
		switch r.tag {
		case tagData:
			buf.Write(r.data)
			pc += len(r.data)
		case tagZero:
			buf.Write(make([]byte, r.count))
			pc += r.count
		case tagLabel:
			// no bytes emitted
		case tagLabelRef:
			target, ok := labels[r.name]
			if !ok {
				return nil, errors.Wrapf(ErrUnresolvedLabel, "%q", r.name)
			}
			width := recordLen(r, b.PtrSize)
			// The slot's "current PC" for a PC-relative reference is the
			// address *after* the reference slot (spec.md §4.7's edge
			// case), so we compute relative to pc+width.
			var resolved int64
			switch r.mode {
			case AbsPtr, AbsWordLo, AbsWordHi:
				resolved = int64(target.Address + r.offset)
			case PCRelativePtr, PCRelativeWord:
				resolved = int64(target.Address + r.offset - (pc + width))
			}
			buf.Write(b.encode(resolved, r.mode, width))
			pc += width
		}
	}
	return buf.Bytes(), nil
}

func (b *Builder) encode(v int64, mode RefMode, width int) []byte {
	switch mode {
	case AbsWordHi:
		v >>= uint(width * 8)
	}
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		shift := uint(i * 8)
		if b.BigEndian {
			shift = uint((width - 1 - i) * 8)
		}
		out[i] = byte(v >> shift)
	}
	return out
}

// FlatBinary concatenates every section's bytes in output order, padding
// gaps between sections with zero bytes up to each section's Address —
// the default emitter named in spec.md §6.
func FlatBinary(l *Linked) []byte {
	var buf bytes.Buffer
	pos := 0
	for _, s := range l.Sections {
		if s.Address > pos {
			buf.Write(make([]byte, s.Address-pos))
			pos = s.Address
		}
		data := l.Bytes[s.Name]
		buf.Write(data)
		pos += len(data)
	}
	return buf.Bytes()
}
