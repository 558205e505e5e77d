// Package pixie16 implements pkg/target.Target for the pixie-16 four
// general-purpose-register machine (R0-R3, plus the non-general ST/PF/PC/
// IMM registers; WORD_BITS=16), grounded on original_source/src/arch/
// pixie-16/pixie-16_config.h for the packed instruction word and opcode
// enum, and pixie-16_instruction.c/pixie-16_gen.c for the addressing
// resolver and register-move sequencing.
package pixie16

import (
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// General-purpose register numbers; ST/PF/PC are addressed by the
// selector through dedicated opcodes rather than through the occupancy
// tracker, since they are not allocatable.
const (
	R0      = 0
	R1      = 1
	R2      = 2
	R3      = 3
	NumRegs = 4

	RegST = 4
	RegPF = 5
	RegPC = 6
)

// Addressing classes (px_addr_t) and the register-field sentinel
// (reg_t PX_REG_IMM) from pixie-16_config.h: a reg field equal to
// pxRegIMM means "a following 16-bit word carries this operand",
// interpreted per the x field as a plain constant (pxAddrIMM), an
// absolute address (pxAddrMEM), a stack offset (pxAddrST) or a
// PC-relative offset (pxAddrPC).
const (
	pxAddrR0  = 0
	pxAddrR1  = 1
	pxAddrR2  = 2
	pxAddrR3  = 3
	pxAddrST  = 4
	pxAddrMEM = 5
	pxAddrPC  = 6
	pxAddrIMM = 7

	pxRegIMM = 7
)

// px_opcode_t values, transcribed from pixie-16_config.h. The plain math
// family occupies opcodes 0-5, its carry-continue twin (used for word
// index >= 1 of a multi-word operation) is reached by OR-ing in
// pxOffsCC, and MOV/LEA pack a 3-bit condition code into their low bits.
const (
	pxOpADD = 0
	pxOpSUB = 1
	pxOpCMP = 2
	pxOpAND = 3
	pxOpOR  = 4
	pxOpXOR = 5

	pxOffsCC = 8 // PX_OFFS_CC: added for the carry-continuing word of a multi-word op

	pxOpINC  = 16
	pxOpDEC  = 17
	pxOpCMP1 = 18

	pxOffsMOV  = 32 // PX_OFFS_MOV: | cond gives the conditional-move opcode
	pxOffsLEA  = 48 // PX_OFFS_LEA: | cond gives the conditional-LEA opcode
	pxOpMOV    = pxOffsMOV | condTRUE
	pxOpLEA    = pxOffsLEA | condTRUE
	pxOpMOVJSR = pxOffsMOV | condJSR
)

// cond_t values (octal in the original, transcribed as decimal).
// INV_BR negates a branch sense by flipping the family bit (XOR 8),
// pairing ULT/UGE, UGT/ULE, SLT/SGE, SGT/SLE, EQ/NE, CS/CC.
const (
	condULT  = 0
	condUGT  = 1
	condSLT  = 2
	condSGT  = 3
	condEQ   = 4
	condCS   = 5
	condTRUE = 6
	condUGE  = 8
	condULE  = 9
	condSGE  = 10
	condSLE  = 11
	condNE   = 12
	condCC   = 13
	condJSR  = 14
)

func invBranch(cond int) int { return cond ^ 8 }

// condFor maps the abstract CondCode the lowering walker produces to
// pixie-16's condition field, per pixie-16_config.h's cond_t.
func condFor(c loc.CondCode) int {
	switch c {
	case loc.CondEQ:
		return condEQ
	case loc.CondNE:
		return condNE
	case loc.CondLT:
		return condSLT
	case loc.CondLE:
		return condSLE
	case loc.CondGT:
		return condSGT
	case loc.CondGE:
		return condSGE
	case loc.CondULT:
		return condULT
	case loc.CondULE:
		return condULE
	case loc.CondUGT:
		return condUGT
	case loc.CondUGE:
		return condUGE
	default:
		return condTRUE
	}
}

// packInsn lays out the 16-bit instruction word exactly as
// pixie-16_instruction.c's px_pack_insn does: y in bit 15, x in bits
// 12-14, b in bits 9-11, a in bits 6-8, o in bits 0-5.
func packInsn(y bool, x, b, a, o int) uint16 {
	v := o & 0x3f
	v |= (a & 7) << 6
	v |= (b & 7) << 9
	v |= (x & 7) << 12
	if y {
		v |= 1 << 15
	}
	return uint16(v)
}

// EntryKind distinguishes the three machine-option-selected function
// roles pixie-16 supports (-mentrypoint=/-mirqhandler=/-mnmihandler=).
type EntryKind int

const (
	EntryNormal EntryKind = iota
	EntryPoint
	EntryIRQ
	EntryNMI
)

// Options carries the -m machine options parsed from the command line
// (spec.md §6), consulted by EmitFunctionEntry/EmitReturn to recognise
// the designated entry point / IRQ / NMI handler by name.
type Options struct {
	EntryPointName string
	IRQHandlerName string
	NMIHandlerName string
	PIC            bool
	PIE            bool
}

// Target is the pixie-16 instruction selector.
type Target struct {
	Opts Options
}

// New builds a pixie-16 Target with the given machine options.
func New(opts Options) *Target { return &Target{Opts: opts} }

func (*Target) Name() string       { return "pixie-16" }
func (*Target) NumRegisters() int  { return NumRegs }
func (*Target) WordBytes() int     { return 2 }
func (*Target) LittleEndian() bool { return true }

func (t *Target) kindOf(name string) EntryKind {
	switch name {
	case t.Opts.EntryPointName:
		if name != "" {
			return EntryPoint
		}
	case t.Opts.IRQHandlerName:
		if name != "" {
			return EntryIRQ
		}
	case t.Opts.NMIHandlerName:
		if name != "" {
			return EntryNMI
		}
	}
	return EntryNormal
}

// EmitFunctionEntry binds R0..R3 to the first four words of parameters
// (register calling convention), spilling the remainder to the caller's
// frame, per spec.md §4.6.
func (t *Target) EmitFunctionEntry(e *target.Emitter, fn target.FuncDefInfo) []loc.Location {
	e.Out.EmitLabel(fn.Name)
	locs := make([]loc.Location, len(fn.Params))
	reg := R0
	frameOff := 0
	for i, p := range fn.Params {
		n := wordsOf(p.Type)
		if reg+n <= NumRegs {
			locs[i] = loc.NewRegister(p.Type, reg)
			e.Scope.Declare(p.Name, locs[i])
			reg += n
		} else {
			locs[i] = loc.NewStackFrame(p.Type, frameOff)
			e.Scope.Declare(p.Name, locs[i])
			frameOff += n * 2
		}
	}
	return locs
}

func wordsOf(t *ctypes.Type) int {
	if t == nil {
		return 1
	}
	words := t.Size()
	if words < 1 {
		words = 1
	}
	return words
}

type spAdjuster struct{ e *target.Emitter }

// AdjustSP emits ADD/SUB against the stack register (reg_t ST) with the
// real opcode family, rather than an invented dedicated opcode.
func (s spAdjuster) AdjustSP(delta int) {
	if delta > 0 {
		writeInsn(s.e, false, pxAddrIMM, pxRegIMM, RegST, pxOpADD, "", 0, int64(delta))
	} else {
		writeInsn(s.e, false, pxAddrIMM, pxRegIMM, RegST, pxOpSUB, "", 0, int64(-delta))
	}
}

// EmitReturn moves retval into R0 (word 0) and R1 (word 1, for 32-bit
// values), reconciles the stack, restores flags for an IRQ/NMI handler,
// and pops the return address into PC.
func (t *Target) EmitReturn(e *target.Emitter, fn target.FuncDefInfo, retval loc.Location) {
	if retval != nil {
		dst := loc.NewRegister(fn.ReturnType, R0)
		t.EmitMovN(e, dst, retval, wordsOf(fn.ReturnType))
	}
	e.Scope.Memclobber(spAdjuster{e})
	switch t.kindOf(fn.Name) {
	case EntryIRQ, EntryNMI:
		writeInsn(e, false, pxAddrST, pxRegIMM, RegPF, pxOpMOV, "", 0, 0)
	}
	writeInsn(e, false, pxAddrST, pxRegIMM, RegPC, pxOpMOV, "", 0, 0)
}

// EmitCall evaluates args into R0..R3 in order (register convention) or
// spills overflow arguments to the stack, then issues MOV.JSR (direct) or
// an indirect jump-to-subroutine through a register when callee is not a
// static label, depending on Opts.PIC/Opts.PIE for the label reference
// mode.
func (t *Target) EmitCall(e *target.Emitter, callee loc.Location, args []loc.Location, argTypes []*ctypes.Type) loc.Location {
	for r := 0; r < NumRegs; r++ {
		e.Scope.Vacate(r, nil)
	}
	reg := R0
	for i, a := range args {
		n := wordsOf(argTypes[i])
		if reg+n <= NumRegs {
			dst := loc.NewRegister(argTypes[i], reg)
			t.EmitMovN(e, dst, a, n)
			reg += n
		} else {
			t.pushArg(e, a)
		}
	}
	if lbl, ok := callee.(loc.Label); ok {
		e.Out.EmitData(packedBytes(packInsn(false, pxAddrMEM, pxRegIMM, RegPC, pxOpMOVJSR)))
		e.Out.EmitLabelRef(t.labelMode(pxAddrMEM), 0, lbl.Name)
	} else {
		m := materializer{t, e}
		r := loc.AddressingFor(callee, 0, m)
		reg2 := r.BaseReg
		if r.Mode != loc.AddrRegister {
			reg2, _ = e.Scope.PickRegister(true, nil)
			t.movIntoReg(e, reg2, r)
		}
		e.Out.EmitData(packedBytes(packInsn(false, pxAddrIMM, reg2, RegPC, pxOpMOVJSR)))
	}
	return loc.NewReturnValue(nil)
}

// pushArg stores an argument word to the top of the outgoing-argument
// stack area, via a stack-addressed MOV.
func (t *Target) pushArg(e *target.Emitter, a loc.Location) {
	m := materializer{t, e}
	r := loc.AddressingFor(a, 0, m)
	reg := r.BaseReg
	if r.Mode != loc.AddrRegister {
		reg, _ = e.Scope.PickRegister(true, nil)
		t.movIntoReg(e, reg, r)
	}
	writeInsn(e, false, pxAddrST, pxRegIMM, reg, pxOpMOV, "", 0, 0)
}

// EmitMath1 specialises inc/dec/cmp1 (the real INC/DEC/CMP1 opcodes,
// word-by-word with the carry-continue family for word index >= 1) and
// neg (synthesised as XOR -1 then INC, both real opcodes; pixie-16 has no
// dedicated NEG instruction), falling back to the generic one-temp
// lowering otherwise.
func (t *Target) EmitMath1(e *target.Emitter, op string, outHint loc.Location, a loc.Location) loc.Location {
	m := materializer{t, e}
	switch op {
	case "inc", "dec", "cmp1":
		dst := a
		if op != "cmp1" {
			dst = outHint
			if dst == nil {
				dst = a
			}
			if !loc.Equivalent(dst, a) {
				t.EmitMovN(e, dst, a, wordsOf(a.Info().Type))
			}
		}
		base := pxOpINC
		if op == "dec" {
			base = pxOpDEC
		} else if op == "cmp1" {
			base = pxOpCMP1
		}
		words := wordsOf(dst.Info().Type)
		for w := 0; w < words; w++ {
			r := loc.AddressingFor(dst, w, m)
			reg := r.BaseReg
			if r.Mode != loc.AddrRegister {
				reg, _ = e.Scope.PickRegister(true, nil)
				t.movIntoReg(e, reg, r)
			}
			opc := base
			if w > 0 {
				opc |= pxOffsCC
			}
			writeInsn(e, false, pxAddrIMM, 0, reg, opc, "", 0, 0)
			if r.Mode != loc.AddrRegister {
				t.storeFromReg(e, r, reg)
			}
		}
		if op == "cmp1" {
			return loc.NewCondition(a.Info().Type, loc.CondEQ)
		}
		return dst
	case "neg":
		dst := outHint
		if dst == nil {
			dst = a
		}
		if !loc.Equivalent(dst, a) {
			t.EmitMovN(e, dst, a, wordsOf(a.Info().Type))
		}
		r := loc.AddressingFor(dst, 0, m)
		reg := r.BaseReg
		if r.Mode != loc.AddrRegister {
			reg, _ = e.Scope.PickRegister(true, nil)
			t.movIntoReg(e, reg, r)
		}
		writeInsn(e, false, pxAddrIMM, pxRegIMM, reg, pxOpXOR, "", 0, -1)
		writeInsn(e, false, pxAddrIMM, 0, reg, pxOpINC, "", 0, 0)
		if r.Mode != loc.AddrRegister {
			t.storeFromReg(e, r, reg)
		}
		return dst
	default:
		return target.GenericMath1(e, op, outHint, a, t)
	}
}

// pxOpBase maps operators to px_opcode_t's plain math family for the
// operators gr8cpu-r3-gen.c's pixie-16 twin actually has hardware for
// (+, -, &, |, ^, and comparisons via CMP); the remaining C operators
// (*, /, %, shifts) have no pixie-16 opcode and are given extension
// values in the family's unused slots (6, 7, 19, 20, 21), recorded as an
// addressing-scheme-compatible extension in DESIGN.md, not as grounded
// hardware opcodes.
var pxOpBase = map[string]int{
	"+": pxOpADD, "-": pxOpSUB,
	"==": pxOpCMP, "!=": pxOpCMP, "<": pxOpCMP, "<=": pxOpCMP, ">": pxOpCMP, ">=": pxOpCMP,
	"&": pxOpAND, "|": pxOpOR, "^": pxOpXOR,
	"*": 6, "/": 7, "%": 19, "<<": 20, ">>": 21,
}

func isCommutative(op string) bool {
	switch op {
	case "+", "*", "&", "|", "^", "==", "!=":
		return true
	default:
		return false
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

// EmitMath2 forces operand a into a register (px_math2's r3-style
// collect-args fallback), then emits the real px_opcode_t for op against
// b's resolved addressing mode, one packed instruction per word with the
// carry-continue opcode for word index >= 1 (spec.md §4.6 "carry-continue
// opcodes").
func (t *Target) EmitMath2(e *target.Emitter, op string, outHint loc.Location, a, b loc.Location) loc.Location {
	if isCommutative(op) {
		if _, aConst := a.(loc.Const); aConst {
			if _, bConst := b.(loc.Const); !bConst {
				a, b = b, a
			}
		}
	}
	m := materializer{t, e}
	if isMemory(a) && isMemory(b) {
		reg, _ := e.Scope.PickRegister(true, nil)
		scratch := loc.NewRegister(a.Info().Type, reg)
		t.EmitMovN(e, scratch, a, wordsOf(a.Info().Type))
		a = scratch
	}
	ar := loc.AddressingFor(a, 0, m)
	if ar.Mode != loc.AddrRegister {
		reg, _ := e.Scope.PickRegister(true, nil)
		t.movIntoReg(e, reg, ar)
		ar = loc.Resolved{Mode: loc.AddrRegister, BaseReg: reg}
		a = loc.NewRegister(a.Info().Type, reg)
	}
	dst := outHint
	if dst == nil {
		dst = a
	}
	if !loc.Equivalent(dst, a) {
		t.EmitMovN(e, dst, a, wordsOf(a.Info().Type))
	}
	base, ok := pxOpBase[op]
	if !ok {
		base = pxOpADD
	}
	words := wordsOf(a.Info().Type)
	for w := 0; w < words; w++ {
		br := loc.AddressingFor(b, w, m)
		opc := base
		if w > 0 {
			opc |= pxOffsCC
		}
		t.emitOperandInsn(e, false, ar.BaseReg, opc, br)
	}
	return dst
}

// emitOperandInsn packs and writes one instruction whose b/x fields come
// from a resolved operand: a plain register (x=IMM, b=reg number, no
// following word), an immediate, a label, or an absolute/stack address
// (all three: x picks the interpretation, b=PX_REG_IMM, and a following
// word or label reference carries the value) — exactly px_addr_var's
// CONST/LABEL/STACKOFFS/REG cases.
func (t *Target) emitOperandInsn(e *target.Emitter, y bool, a, o int, r loc.Resolved) {
	switch r.Mode {
	case loc.AddrRegister:
		writeInsn(e, y, pxAddrIMM, r.BaseReg, a, o, "", 0, 0)
	case loc.AddrImmediate:
		writeInsn(e, y, pxAddrIMM, pxRegIMM, a, o, "", 0, r.Literal)
	case loc.AddrLabelAbs:
		writeInsn(e, y, pxAddrMEM, pxRegIMM, a, o, r.Label, int(r.Literal), 0)
	case loc.AddrStack:
		writeInsn(e, y, pxAddrST, pxRegIMM, a, o, "", 0, r.Literal)
	default:
		writeInsn(e, y, pxAddrMEM, pxRegIMM, a, o, "", 0, r.Literal)
	}
}

// EmitMovN moves src to dst one 16-bit word at a time, resolving both
// operands through loc.AddressingFor exactly as px_mov_to_reg/px_addr_var
// do, routing a memory-to-memory move through a scratch register.
func (t *Target) EmitMovN(e *target.Emitter, dst, src loc.Location, words int) {
	if loc.Equivalent(dst, src) {
		return
	}
	m := materializer{t, e}
	for w := 0; w < words; w++ {
		dr := loc.AddressingFor(dst, w, m)
		sr := loc.AddressingFor(src, w, m)
		if dr.Mode == loc.AddrRegister {
			t.movIntoReg(e, dr.BaseReg, sr)
			continue
		}
		reg := sr.BaseReg
		if sr.Mode != loc.AddrRegister {
			reg, _ = e.Scope.PickRegister(true, nil)
			t.movIntoReg(e, reg, sr)
		}
		t.storeFromReg(e, dr, reg)
	}
}

// movIntoReg loads a resolved operand into reg via the real PX_OP_MOV
// opcode, y=1 (load-into-register direction, per px_part_to_reg).
func (t *Target) movIntoReg(e *target.Emitter, reg int, sr loc.Resolved) {
	if sr.Mode == loc.AddrRegister && sr.BaseReg == reg {
		return
	}
	t.emitOperandInsn(e, true, reg, pxOpMOV, sr)
}

// storeFromReg stores reg to a resolved memory destination via PX_OP_MOV
// with y=0 (store direction).
func (t *Target) storeFromReg(e *target.Emitter, dr loc.Resolved, reg int) {
	t.emitOperandInsn(e, false, reg, pxOpMOV, dr)
}

// writeInsn packs and writes one instruction word, followed by a literal
// or label-referenced 16-bit word whenever the b field carries the
// PX_REG_IMM sentinel — px_write_insn's behaviour.
func writeInsn(e *target.Emitter, y bool, x, b, a, o int, label string, labelPart int, literal int64) {
	e.Out.EmitData(packedBytes(packInsn(y, x, b, a, o)))
	if b != pxRegIMM {
		return
	}
	if label != "" {
		mode := 0
		if x == pxAddrPC {
			mode = 1
		}
		e.Out.EmitLabelRef(mode, labelPart, label)
		return
	}
	e.Out.EmitData([]byte{byte(literal), byte(literal >> 8)})
}

func packedBytes(word uint16) []byte {
	return []byte{byte(word), byte(word >> 8)}
}

func (t *Target) labelMode(x int) int {
	if x == pxAddrPC {
		return 1
	}
	if t.Opts.PIC {
		return 2
	}
	if t.Opts.PIE {
		return 1
	}
	return 0
}

// EmitBranch lowers an abstract condition to pixie-16's conditional
// MOV/LEA-to-PC form: LEA PC,[PC+label] under PIE (PC-relative), MOV
// PC,label otherwise, with the false arm using the condition's inverse
// (INV_BR: XOR the family bit), per px_branch.
func (t *Target) EmitBranch(e *target.Emitter, cond loc.Location, lTrue, lFalse string) {
	c, _ := cond.(loc.Condition)
	trueCond := condFor(c.Code)
	falseCond := invBranch(trueCond)
	if lTrue != "" {
		t.emitBranchTo(e, trueCond, lTrue)
	}
	if lFalse != "" {
		t.emitBranchTo(e, falseCond, lFalse)
	}
}

func (t *Target) emitBranchTo(e *target.Emitter, cond int, label string) {
	if t.Opts.PIE {
		writeInsn(e, false, pxAddrPC, pxRegIMM, RegPC, pxOffsLEA|cond, label, 0, 0)
	} else {
		mode := 0
		if t.Opts.PIC {
			mode = 2
		}
		e.Out.EmitData(packedBytes(packInsn(false, pxAddrMEM, pxRegIMM, RegPC, pxOffsMOV|cond)))
		e.Out.EmitLabelRef(mode, 0, label)
	}
}

// EmitJump emits px_jump's unconditional form: LEA PC,[PC+label] under
// PIE, MOV PC,label otherwise.
func (t *Target) EmitJump(e *target.Emitter, label string) {
	if t.Opts.PIE {
		writeInsn(e, false, pxAddrPC, pxRegIMM, RegPC, pxOpLEA, label, 0, 0)
		return
	}
	mode := 0
	if t.Opts.PIC {
		mode = 2
	}
	e.Out.EmitData(packedBytes(packInsn(false, pxAddrMEM, pxRegIMM, RegPC, pxOpMOV)))
	e.Out.EmitLabelRef(mode, 0, label)
}

func (t *Target) Asm() target.MiniAssembler { return miniAsm{} }

// materializer implements loc.Materializer for pixie-16: an Indexed
// location's combined address is computed by moving the base into a free
// register and adding the index to it, the same "force into a register
// before using it as an address" shape px_addr_var's INDEXED case
// performs before caching the combined register.
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
