package loc

// AddrMode enumerates the abstract addressing-mode classes a Location can
// resolve to; the target instruction selector (§4.6) maps these onto its
// real addressing-mode table.
type AddrMode int

const (
	AddrVoid AddrMode = iota
	AddrImmediate
	AddrLabelAbs
	AddrStack
	AddrStackFrame
	AddrRegister
	AddrFlags
	AddrIndirect
	AddrReturn
)

// Resolved is the result of addressing_for: the addressing-mode class,
// the base register (if any, else -1), and a literal offset or label
// name, one word at a time.
type Resolved struct {
	Mode    AddrMode
	BaseReg int
	Literal int64
	Label   string
}

// Materializer lets §4.2 emit an LEA-like instruction to compute an
// Indexed location's Combined pointer the first time it is needed; the
// lowering walker supplies the real implementation (it alone knows how to
// emit instructions).
type Materializer interface {
	Materialize(base, index Location) Location
}

// AddressingFor implements spec.md §4.2's one operation: given a Location
// and a word index (0 for single-word values), returns the addressing
// mode, base register, and literal/label the selector needs to reference
// that word. For Indexed with a non-trivial index, part >= 1 triggers
// materialisation of Combined via m (memoised on the Indexed value
// itself, exactly once).
func AddressingFor(l Location, part int, m Materializer) Resolved {
	switch v := l.(type) {
	case Void:
		return Resolved{Mode: AddrVoid}
	case Const:
		return Resolved{Mode: AddrImmediate, BaseReg: -1, Literal: wordOf(v.Value, part)}
	case Label:
		return Resolved{Mode: AddrLabelAbs, BaseReg: -1, Label: v.Name, Literal: int64(part)}
	case StackOffset:
		return Resolved{Mode: AddrStack, BaseReg: -1, Literal: int64(v.Offset + part)}
	case StackFrame:
		return Resolved{Mode: AddrStackFrame, BaseReg: -1, Literal: int64(v.Offset + part)}
	case Register:
		return Resolved{Mode: AddrRegister, BaseReg: v.Reg + part}
	case ReturnValue:
		return Resolved{Mode: AddrReturn, BaseReg: -1, Literal: int64(part)}
	case Condition:
		return Resolved{Mode: AddrFlags, BaseReg: -1}
	case Pointer:
		base := AddressingFor(v.Base, 0, m)
		base.Literal += int64(part)
		base.Mode = AddrIndirect
		return base
	case *Indexed:
		if part >= 1 && v.Combined == nil && m != nil {
			v.Combined = m.Materialize(v.Base, v.Index)
		}
		if v.Combined != nil {
			r := AddressingFor(v.Combined, 0, m)
			r.Literal += int64(part)
			r.Mode = AddrIndirect
			return r
		}
		base := AddressingFor(v.Base, part, m)
		base.Mode = AddrIndirect
		return base
	case Unassigned:
		return AddressingFor(v.DefaultLoc, part, m)
	default:
		return Resolved{Mode: AddrVoid}
	}
}

// wordOf extracts the part-th target word (little-endian order) of a
// constant's 64-bit value; the caller masks to the target's word width.
func wordOf(v int64, part int) int64 {
	return (v >> (uint(part) * 8)) & 0xff
}
