// Package target defines the per-architecture capability set of spec.md
// §4.6 that the lowering walker (pkg/lower) depends on, plus the generic
// constraint parser and template expander shared by every target's
// inline-assembly path, and a generic one-temp-per-operand fallback for
// targets that do not specialise a hook (spec.md §9's Open Question).
package target

import (
	"github.com/pkg/errors"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/scope"
)

// ErrNoAddressingMode is returned when the selector cannot find an
// addressing mode for an operand combination (spec.md §7 backend error).
var ErrNoAddressingMode = errors.New("target: no addressing mode for operand combination")

// CallConv enumerates the calling-convention classes of spec.md's
// GLOSSARY: "no args", "args fit in registers", "args go on stack".
type CallConv int

const (
	CCNone CallConv = iota
	CCRegisters
	CCStack
)

// Chunks is the minimal view of the assembler the selector writes to; it
// is satisfied by *asm.Builder (pkg/asm), kept as an interface here so
// pkg/target does not import pkg/asm (which in turn will want to import
// pkg/target's Target for its debug dump).
type Chunks interface {
	EmitData(bytes []byte)
	EmitLabel(name string)
	EmitLabelRef(mode int, offset int, name string)
	EmitZero(count int)
}

// Emitter is threaded through every selector hook: it is the Chunks sink
// plus the current Scope (for register/stack bookkeeping) and Interner
// (for type queries).
type Emitter struct {
	Out     Chunks
	Scope   *scope.Scope
	Types   *ctypes.Interner
	PIE     bool
	FuncTag string // current function name, for label generation
	label   int
}

// NewLabel returns a fresh function-local label name.
func (e *Emitter) NewLabel(suffix string) string {
	e.label++
	return e.FuncTag + ".L" + suffix + itoa(e.label)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// FuncDefInfo is what emit_function_entry needs about the function being
// entered, decoupled from pkg/ast so pkg/target does not depend on the
// parser's node shapes beyond what it actually uses.
type FuncDefInfo struct {
	Name       string
	Params     []ast.Param
	ReturnType *ctypes.Type
	IsIRQ      bool
	IsNMI      bool
}

// Target is the capability set of spec.md §9's "Polymorphism over
// targets": emit_function_entry, emit_return, emit_call, emit_math1,
// emit_math2, emit_mov_n, emit_branch, emit_jump, plus the target's
// register/addressing-mode policy and inline-asm tables.
type Target interface {
	// Name identifies the target for diagnostics and -m flag validation.
	Name() string
	// NumRegisters is the target's register count (N in spec.md §3/§4.3).
	NumRegisters() int
	// WordBytes is one target memory word's width in bytes.
	WordBytes() int
	// LittleEndian reports true for little-endian targets.
	LittleEndian() bool

	EmitFunctionEntry(e *Emitter, fn FuncDefInfo) []loc.Location
	EmitReturn(e *Emitter, fn FuncDefInfo, retval loc.Location)
	EmitCall(e *Emitter, callee loc.Location, args []loc.Location, argTypes []*ctypes.Type) loc.Location
	EmitMath1(e *Emitter, op string, outHint loc.Location, a loc.Location) loc.Location
	EmitMath2(e *Emitter, op string, outHint loc.Location, a, b loc.Location) loc.Location
	EmitMovN(e *Emitter, dst, src loc.Location, words int)
	EmitBranch(e *Emitter, cond loc.Location, lTrue, lFalse string)
	EmitJump(e *Emitter, label string)

	// Asm exposes the per-target mini-assembler tokenizer used by inline
	// asm expansion (§4.6 "mini-assembler").
	Asm() MiniAssembler
}

// MiniAssembler parses one target-mnemonic instruction at a time from a
// fully-substituted asm template line and emits its chunks.
type MiniAssembler interface {
	AssembleLine(e *Emitter, line string) error
}

// GenericMath1 is the one-temp-per-operand fallback for emit_math1 named
// in spec.md §9's Open Questions ("a simple one-temp-per-operand
// lowering" is the preferred resolution of the incomplete generic
// fallback). Targets without a specialised unary path call this.
func GenericMath1(e *Emitter, op string, outHint loc.Location, a loc.Location, t Target) loc.Location {
	dst := outHint
	if dst == nil {
		dst = e.Scope.GetTmp(wordsOf(a, t), true, a.Info().Type)
	}
	t.EmitMovN(e, dst, a, wordsOf(a, t))
	return dst
}

// GenericCall is the one-temp-per-argument fallback for emit_call named
// in the same Open Question: each argument is materialised into its own
// temporary before the call, with no attempt at a specialised calling
// sequence.
func GenericCall(e *Emitter, callee loc.Location, args []loc.Location, t Target) loc.Location {
	for _, a := range args {
		tmp := e.Scope.GetTmp(wordsOf(a, t), true, a.Info().Type)
		t.EmitMovN(e, tmp, a, wordsOf(a, t))
		e.Scope.Unuse(tmp)
	}
	e.Out.EmitLabelRef(0, 0, labelOf(callee))
	return loc.NewReturnValue(nil)
}

func labelOf(l loc.Location) string {
	if lbl, ok := l.(loc.Label); ok {
		return lbl.Name
	}
	return ""
}

func wordsOf(l loc.Location, t Target) int {
	if l == nil || l.Info().Type == nil {
		return 1
	}
	words := l.Info().Type.Size()
	if words < 1 {
		words = 1
	}
	return words
}
