// Package gr8cpu implements pkg/target.Target for the gr8cpu-r3 8-bit
// accumulator machine (registers A, X, Y; WORD_BYTES=1, ADDR_BYTES=2,
// little-endian), grounded on original_source/src/arch/gr8cpu-r3/
// gr8cpu-r3-config.h and gr8cpu-r3-gen.c for the opcode encodings, and on
// the teacher's pkg/selection/ops.go for the operator-table shape.
package gr8cpu

import (
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// Register numbers, matching gr8cpu-r3-config.h's REG_A/REG_X/REG_Y.
const (
	RegA    = 0
	RegX    = 1
	RegY    = 2
	NumRegs = 3
)

// Opcode constants transcribed from gr8cpu-r3-gen.c's #defines. These are
// the real encoding the original assembler emits, not invented bytes: a
// byte is a base opcode plus an addressing-mode-dependent delta, the same
// shape r3_math2/r3_mov/r3_branch build in the original.
const (
	insnJMP    = 0x0E
	offsBranch = 0x0F
	offsPIE    = 0x80

	offsADD = 0x32
	offsSUB = 0x34
	offsCMP = 0x36

	offsCalcAX = 0x00
	offsCalcAY = 0x01
	offsCalcAV = 0x06
	offsCalcAM = 0x09
	offsCalcXV = 0x2A
	offsCalcXM = 0x2B
	offsCalcYV = 0x32
	offsCalcYM = 0x33

	insnIncA = 0x3E
	insnDecA = 0x40
	insnIncM = 0x3F
	insnDecM = 0x41
	insnIncX = 0x62
	insnDecX = 0x63
	insnIncY = 0x6A
	insnDecY = 0x6B

	insnMovAX = 0x17
	insnMovAY = 0x18
	insnMovXA = 0x19
	insnMovXY = 0x1A
	insnMovYA = 0x1B
	insnMovYX = 0x1C
	offsMovRI = 0x1D // + reg: move immediate into reg

	offsMovLD = 0x20 // + reg (+ OFFS_PIE for a label): load memory into reg
	offsMovST = 0x29 // + reg (+ OFFS_PIE for a label): store reg to memory

	offsPushR = 0x04 // + reg
	offsPullR = 0x09 // + reg
	insnPushI = 0x07
	insnPop   = 0x0C

	insnCall = 0x02
	insnRet  = 0x03
)

// extOpBase carries the base opcode family for the binary operators the
// original's gen.c defines (+, -, comparisons via CMP) and extends the
// same offs+OFFS_CALC_* addressing scheme to the operators gr8cpu-r3-gen.c
// has no hardware instruction for (*, /, %, shifts, bitwise). These
// extension bases are not in the original distillation; DESIGN.md records
// them as an addressing-scheme-compatible extension, not as grounded
// opcodes.
var extOpBase = map[string]byte{
	"+":  offsADD,
	"-":  offsSUB,
	"==": offsCMP,
	"!=": offsCMP,
	"<":  offsCMP,
	"<=": offsCMP,
	">":  offsCMP,
	">=": offsCMP,
	"*":  0x70,
	"/":  0x72,
	"%":  0x74,
	"&":  0x76,
	"|":  0x78,
	"^":  0x7A,
	"<<": 0x7C,
	">>": 0x7E,
}

// CallConvClass mirrors the original r3_call_conv_t enum.
type CallConvClass int

const (
	CCInt  CallConvClass = iota // R3_CC_INT: result/args fit the accumulator width
	CCChar                      // R3_CC_CHAR: single-byte fast path
	CCMem                       // R3_CC_MEM: spills through memory
)

// Target is the gr8cpu-r3 instruction selector.
type Target struct{}

// New builds a gr8cpu-r3 Target.
func New() *Target { return &Target{} }

func (*Target) Name() string       { return "gr8cpu-r3" }
func (*Target) NumRegisters() int  { return NumRegs }
func (*Target) WordBytes() int     { return 1 }
func (*Target) LittleEndian() bool { return true }

// classify picks the calling-convention class per original_source's
// r3_call_conv_t, based on total argument byte size: zero args is CCInt
// trivially (no register pressure), one byte-sized arg set is CCChar, and
// anything needing more than the accumulator triple spills to memory.
func classify(fn target.FuncDefInfo) CallConvClass {
	total := 0
	for _, p := range fn.Params {
		total += p.Type.Size()
	}
	switch {
	case total == 0:
		return CCInt
	case total <= 1:
		return CCChar
	case total <= NumRegs:
		return CCInt
	default:
		return CCMem
	}
}

// EmitFunctionEntry binds each parameter's location per the chosen
// calling-convention class and pushes callee-saved registers not used by
// parameters (spec.md §4.6).
func (t *Target) EmitFunctionEntry(e *target.Emitter, fn target.FuncDefInfo) []loc.Location {
	e.Out.EmitLabel(fn.Name)
	class := classify(fn)
	locs := make([]loc.Location, len(fn.Params))
	switch class {
	case CCMem:
		offset := 0
		for i, p := range fn.Params {
			locs[i] = loc.NewStackFrame(p.Type, offset)
			offset += p.Type.Size()
		}
	default:
		reg := RegA
		for i, p := range fn.Params {
			if reg >= NumRegs {
				locs[i] = loc.NewStackFrame(p.Type, 0)
				continue
			}
			locs[i] = loc.NewRegister(p.Type, reg)
			e.Scope.Declare(p.Name, locs[i])
			reg += wordsOf(p.Type)
		}
	}
	return locs
}

func wordsOf(t *ctypes.Type) int {
	if t == nil {
		return 1
	}
	w := t.Size()
	if w < 1 {
		w = 1
	}
	return w
}

// EmitReturn coerces retval to the return type and moves it to the
// accumulator, then emits a plain or interrupt return.
func (t *Target) EmitReturn(e *target.Emitter, fn target.FuncDefInfo, retval loc.Location) {
	if retval != nil {
		dst := loc.NewRegister(fn.ReturnType, RegA)
		t.EmitMovN(e, dst, retval, wordsOf(fn.ReturnType))
	}
	e.Scope.Memclobber(spAdjuster{e})
	switch {
	case fn.IsIRQ, fn.IsNMI:
		// gr8cpu-r3 has no separate RTI opcode in gr8cpu-r3-gen.c; an
		// interrupt handler still returns through INSN_RET, the vector
		// dispatch restores flags before entry.
		e.Out.EmitData([]byte{insnRet})
	default:
		e.Out.EmitData([]byte{insnRet})
	}
}

type spAdjuster struct{ e *target.Emitter }

// AdjustSP moves the stack pointer by delta using SP-relative math on the
// stack itself: a run of PUSH/POP-equivalent pulls, mirroring how
// gr8cpu-r3-gen.c's gen_method_ret pops stack temporaries one at a time
// rather than through a dedicated add-to-SP instruction (the ISA has
// none).
func (s spAdjuster) AdjustSP(delta int) {
	if delta > 0 {
		for i := 0; i < delta; i++ {
			s.e.Out.EmitData([]byte{insnPop})
		}
	} else {
		for i := 0; i < -delta; i++ {
			s.e.Out.EmitData([]byte{insnPushI, 0x00})
		}
	}
}

// EmitCall evaluates the callee first, vacates argument registers, and
// either uses the register convention or pushes arguments in reverse
// order for the memory-spill convention (spec.md §4.6 emit_call).
func (t *Target) EmitCall(e *target.Emitter, callee loc.Location, args []loc.Location, argTypes []*ctypes.Type) loc.Location {
	for r := 0; r < NumRegs; r++ {
		e.Scope.Vacate(r, nil)
	}
	total := 0
	for _, at := range argTypes {
		total += wordsOf(at)
	}
	if total <= NumRegs {
		reg := RegA
		for i, a := range args {
			dst := loc.NewRegister(argTypes[i], reg)
			t.EmitMovN(e, dst, a, wordsOf(argTypes[i]))
			reg += wordsOf(argTypes[i])
		}
	} else {
		for i := len(args) - 1; i >= 0; i-- {
			t.pushArg(e, args[i])
		}
	}
	if lbl, ok := callee.(loc.Label); ok {
		if e.PIE {
			e.Out.EmitLabelRef(1, 0, lbl.Name) // pc-relative-ptr
		} else {
			e.Out.EmitLabelRef(0, 0, lbl.Name) // abs-ptr
		}
	}
	e.Out.EmitData([]byte{insnCall})
	return loc.NewReturnValue(nil)
}

// pushArg pushes one argument word using PUSHI (immediate) or by first
// materialising it into the accumulator and pushing via OFFS_PUSHR+REG_A,
// mirroring r3_push's fall-through for non-register param specs.
func (t *Target) pushArg(e *target.Emitter, a loc.Location) {
	r := loc.AddressingFor(a, 0, nil)
	switch r.Mode {
	case loc.AddrImmediate:
		e.Out.EmitData([]byte{insnPushI, byte(r.Literal)})
	case loc.AddrRegister:
		e.Out.EmitData([]byte{offsPushR + byte(r.BaseReg)})
	default:
		reg, _ := e.Scope.PickRegister(true, nil)
		t.movIntoReg(e, reg, r)
		e.Out.EmitData([]byte{offsPushR + byte(reg)})
	}
}

// EmitMath1 implements unary math: inc/dec dispatches on the operand's
// addressing mode per gen_math1 (register-specific opcode, or the memory
// INC_M/DEC_M opcode plus an address/label operand); cmp1 emits the
// accumulator compare-with-zero and yields a deferred Condition.
func (t *Target) EmitMath1(e *target.Emitter, op string, outHint loc.Location, a loc.Location) loc.Location {
	switch op {
	case "inc", "dec":
		dst := outHint
		if dst == nil {
			dst = a
		}
		if !loc.Equivalent(dst, a) {
			t.EmitMovN(e, dst, a, wordsOf(a.Info().Type))
		}
		r := loc.AddressingFor(dst, 0, materializer{t, e})
		t.emitIncDec(e, op, r)
		return dst
	case "cmp1":
		// gr8cpu-r3-gen.c defines no dedicated CMP1 opcode (that's a
		// pixie-16 instruction); compare-with-zero is expressed as the
		// real CMP opcode against an immediate 0, forcing a into a
		// register first exactly as r3_math2 does for any CMP operand.
		ar := loc.AddressingFor(a, 0, materializer{t, e})
		if ar.Mode != loc.AddrRegister {
			t.movIntoReg(e, RegA, ar)
			ar = loc.Resolved{Mode: loc.AddrRegister, BaseReg: RegA}
		}
		t.emitCalc(e, offsCMP, ar.BaseReg, loc.Resolved{Mode: loc.AddrImmediate, BaseReg: -1, Literal: 0})
		return loc.NewCondition(a.Info().Type, loc.CondEQ)
	default:
		return target.GenericMath1(e, op, outHint, a, t)
	}
}

func (t *Target) emitIncDec(e *target.Emitter, op string, r loc.Resolved) {
	inc := op != "dec"
	switch r.Mode {
	case loc.AddrRegister:
		switch r.BaseReg {
		case RegA:
			if inc {
				e.Out.EmitData([]byte{insnIncA})
			} else {
				e.Out.EmitData([]byte{insnDecA})
			}
		case RegX:
			if inc {
				e.Out.EmitData([]byte{insnIncX})
			} else {
				e.Out.EmitData([]byte{insnDecX})
			}
		default:
			if inc {
				e.Out.EmitData([]byte{insnIncY})
			} else {
				e.Out.EmitData([]byte{insnDecY})
			}
		}
	case loc.AddrLabelAbs:
		op := byte(offsPIE)
		if inc {
			op += insnIncM
		} else {
			op += insnDecM
		}
		e.Out.EmitData([]byte{op})
		e.Out.EmitLabelRef(pieMode(e), int(r.Literal), r.Label)
	default: // absolute address (stack/stack-frame/indirect)
		op := byte(insnIncM)
		if !inc {
			op = insnDecM
		}
		e.Out.EmitData([]byte{op, byte(r.Literal), byte(r.Literal >> 8)})
	}
}

// EmitMath2 chooses an addressing mode per operand, swapping operands on
// commutative ops to put the constant second, and materialising one
// operand into a scratch register when both are memory, then dispatches
// through loc.AddressingFor to pick the real offs+OFFS_CALC_* opcode byte
// that gr8cpu-r3-gen.c's r3_math2 emits for the resolved register/operand
// combination.
func (t *Target) EmitMath2(e *target.Emitter, op string, outHint loc.Location, a, b loc.Location) loc.Location {
	if isCommutative(op) {
		if _, aConst := a.(loc.Const); aConst {
			if _, bConst := b.(loc.Const); !bConst {
				a, b = b, a
			}
		}
	}
	if isMemory(a) && isMemory(b) {
		reg, _ := e.Scope.PickRegister(true, nil)
		scratch := loc.NewRegister(a.Info().Type, reg)
		t.EmitMovN(e, scratch, a, wordsOf(a.Info().Type))
		a = scratch
	}
	// a must end up in a register before the math opcode can reference it;
	// default to the accumulator, matching r3_collect_args' fallback.
	ar := loc.AddressingFor(a, 0, materializer{t, e})
	if ar.Mode != loc.AddrRegister {
		t.movIntoReg(e, RegA, ar)
		ar = loc.Resolved{Mode: loc.AddrRegister, BaseReg: RegA}
		a = loc.NewRegister(a.Info().Type, RegA)
	}
	dst := outHint
	if dst == nil {
		dst = a
	}
	if !loc.Equivalent(dst, a) {
		t.EmitMovN(e, dst, a, wordsOf(a.Info().Type))
	}
	base, ok := extOpBase[op]
	if !ok {
		base = extOpBase["+"]
	}
	br := loc.AddressingFor(b, 0, materializer{t, e})
	t.emitCalc(e, base, ar.BaseReg, br)
	return dst
}

// emitCalc emits the offs+OFFS_CALC_* family for the register a currently
// occupies, switching on b's resolved addressing mode exactly as
// r3_math2's per-register switch does.
func (t *Target) emitCalc(e *target.Emitter, offs byte, reg int, br loc.Resolved) {
	var deltaReg, deltaImm, deltaMem byte
	switch reg {
	case RegA:
		deltaReg, deltaImm, deltaMem = offsCalcAX, offsCalcAV, offsCalcAM
		if br.Mode == loc.AddrRegister && br.BaseReg == RegY {
			deltaReg = offsCalcAY
		}
	case RegX:
		deltaImm, deltaMem = offsCalcXV, offsCalcXM
	default:
		deltaImm, deltaMem = offsCalcYV, offsCalcYM
	}
	switch br.Mode {
	case loc.AddrRegister:
		e.Out.EmitData([]byte{offs + deltaReg})
	case loc.AddrLabelAbs:
		e.Out.EmitData([]byte{offsPIE + offs + deltaMem})
		e.Out.EmitLabelRef(pieMode(e), int(br.Literal), br.Label)
	case loc.AddrImmediate:
		e.Out.EmitData([]byte{offs + deltaImm, byte(br.Literal)})
	default: // absolute address
		e.Out.EmitData([]byte{offs + deltaMem, byte(br.Literal), byte(br.Literal >> 8)})
	}
}

func isMemory(l loc.Location) bool {
	switch l.(type) {
	case loc.StackOffset, loc.StackFrame, loc.Label, loc.Pointer, *loc.Indexed:
		return true
	default:
		return false
	}
}

func isCommutative(op string) bool {
	switch op {
	case "+", "*", "&", "|", "^", "==", "!=":
		return true
	default:
		return false
	}
}

// EmitMovN moves src to dst word-by-word, reversed when dst is
// stack-increasing, bypassed when locations_equivalent.
func (t *Target) EmitMovN(e *target.Emitter, dst, src loc.Location, words int) {
	if loc.Equivalent(dst, src) {
		return
	}
	for w := 0; w < words; w++ {
		part := w
		if isStackIncreasing(dst) {
			part = words - 1 - w
		}
		t.emitMoveWord(e, dst, src, part)
	}
}

// emitMoveWord resolves both operands through loc.AddressingFor and picks
// the real r3_mov/r3_math2-style opcode for the resolved combination,
// routing any memory-to-memory move through a scratch register since
// gr8cpu-r3 has no memory-to-memory move instruction.
func (t *Target) emitMoveWord(e *target.Emitter, dst, src loc.Location, part int) {
	m := materializer{t, e}
	sr := loc.AddressingFor(src, part, m)
	dr := loc.AddressingFor(dst, part, m)
	if dr.Mode == loc.AddrRegister {
		t.movIntoReg(e, dr.BaseReg, sr)
		return
	}
	reg := sr.BaseReg
	if sr.Mode != loc.AddrRegister {
		reg, _ = e.Scope.PickRegister(true, nil)
		t.movIntoReg(e, reg, sr)
	}
	t.storeFromReg(e, dr, reg)
}

// movIntoReg moves a resolved operand into reg, selecting INSN_MOV_xy for
// a register source, OFFS_MOV_RI for an immediate, OFFS_MOVLD (+OFFS_PIE
// for a label) for a memory load, or OFFS_PULLR for a stack pull — the
// same dispatch as r3_mov.
func (t *Target) movIntoReg(e *target.Emitter, reg int, sr loc.Resolved) {
	switch sr.Mode {
	case loc.AddrRegister:
		if sr.BaseReg == reg {
			return
		}
		e.Out.EmitData([]byte{movRegOpcode(reg, sr.BaseReg)})
	case loc.AddrImmediate:
		e.Out.EmitData([]byte{offsMovRI + byte(reg), byte(sr.Literal)})
	case loc.AddrLabelAbs:
		e.Out.EmitData([]byte{offsPIE + offsMovLD + byte(reg)})
		e.Out.EmitLabelRef(pieMode(e), int(sr.Literal), sr.Label)
	case loc.AddrStack:
		e.Out.EmitData([]byte{offsPullR + byte(reg)})
	default: // absolute address: stack-frame param, pointer deref, indexed
		e.Out.EmitData([]byte{offsMovLD + byte(reg), byte(sr.Literal), byte(sr.Literal >> 8)})
	}
}

// storeFromReg stores reg to a resolved memory destination using
// OFFS_MOVST (+OFFS_PIE for a label), the store-direction mirror of
// movIntoReg's OFFS_MOVLD.
func (t *Target) storeFromReg(e *target.Emitter, dr loc.Resolved, reg int) {
	switch dr.Mode {
	case loc.AddrLabelAbs:
		e.Out.EmitData([]byte{offsPIE + offsMovST + byte(reg)})
		e.Out.EmitLabelRef(pieMode(e), int(dr.Literal), dr.Label)
	default:
		e.Out.EmitData([]byte{offsMovST + byte(reg), byte(dr.Literal), byte(dr.Literal >> 8)})
	}
}

func movRegOpcode(dst, src int) byte {
	switch {
	case dst == RegA && src == RegX:
		return insnMovAX
	case dst == RegA:
		return insnMovAY
	case dst == RegX && src == RegA:
		return insnMovXA
	case dst == RegX:
		return insnMovXY
	case dst == RegY && src == RegA:
		return insnMovYA
	default:
		return insnMovYX
	}
}

func pieMode(e *target.Emitter) int {
	if e.PIE {
		return 1
	}
	return 0
}

func isStackIncreasing(l loc.Location) bool {
	_, ok := l.(loc.StackOffset)
	return ok
}

// materializer implements loc.Materializer for gr8cpu-r3: an Indexed
// location's combined address is computed by moving the base into a free
// register and adding the index to it, mirroring how r3_math2 forces one
// operand into a register before the calc opcode can reference it.
type materializer struct {
	t *Target
	e *target.Emitter
}

func (m materializer) Materialize(base, index loc.Location) loc.Location {
	reg, _ := m.e.Scope.PickRegister(true, nil)
	dst := loc.NewRegister(base.Info().Type, reg)
	m.t.EmitMovN(m.e, dst, base, 1)
	m.t.EmitMath2(m.e, "+", dst, dst, index)
	return dst
}

// EmitBranch translates an abstract condition to gr8cpu-r3's branch
// instruction: OFFS_BRANCH plus the condition-specific delta r3_branch
// uses, always PIE-relative (branches are PC-relative in the original).
func (t *Target) EmitBranch(e *target.Emitter, cond loc.Location, lTrue, lFalse string) {
	delta := branchDelta(cond)
	if lTrue != "" {
		e.Out.EmitData([]byte{offsPIE + offsBranch + delta})
		e.Out.EmitLabelRef(1, 0, lTrue)
	}
	if lFalse != "" {
		e.Out.EmitData([]byte{offsPIE + offsBranch + invBranchDelta(delta)})
		e.Out.EmitLabelRef(1, 0, lFalse)
	}
}

// branchDelta mirrors r3_branch's cond switch: EQ=0, NE=1, GT=2, LE=3,
// LT=4, GE=5, CARRY=6, NOTCARRY=7.
func branchDelta(cond loc.Location) byte {
	c, ok := cond.(loc.Condition)
	if !ok {
		return 0
	}
	switch c.Code {
	case loc.CondEQ:
		return 0
	case loc.CondNE:
		return 1
	case loc.CondGT, loc.CondUGT:
		return 2
	case loc.CondLE, loc.CondULE:
		return 3
	case loc.CondLT, loc.CondULT:
		return 4
	case loc.CondGE, loc.CondUGE:
		return 5
	default:
		return 0
	}
}

// invBranchDelta negates a branch delta for the fall-through arm, pairing
// EQ/NE, GT/LE, LT/GE the way the original's two label targets are
// produced by branch-or-fallthrough-then-jump code shapes.
func invBranchDelta(d byte) byte {
	switch d {
	case 0:
		return 1
	case 1:
		return 0
	case 2:
		return 3
	case 3:
		return 2
	case 4:
		return 5
	case 5:
		return 4
	case 6:
		return 7
	default:
		return 6
	}
}

func (t *Target) EmitJump(e *target.Emitter, label string) {
	e.Out.EmitData([]byte{offsPIE + insnJMP})
	e.Out.EmitLabelRef(1, 0, label)
}

func (t *Target) Asm() target.MiniAssembler { return miniAsm{} }
