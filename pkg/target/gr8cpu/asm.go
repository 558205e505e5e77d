package gr8cpu

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// argClass is one operand's addressing class, mirroring gr8cpu-r3_iasm.c's
// A_REG_A/A_REG_X/A_REG_Y/A_IMM/A_MEM bitmask constants (collapsed to the
// subset this mini-assembler matches operands against).
type argClass int

const (
	argImm argClass = iota
	argRegA
	argRegX
	argRegY
	argMem
)

// insnForm is one addressing-mode-table row: gr8cpu-r3_iasm.c's
// r3_iasm_mode_t (n_args is len(argModes), n_words is the operand-byte
// count, opcode is the instruction byte for this exact operand shape).
type insnForm struct {
	opcode   byte
	nWords   int
	argModes []argClass
}

// insnTable transcribes a representative subset of gr8cpu-r3_iasm.c's
// 46-entry r3_insn_lut: the mnemonics the code generator itself emits
// (mov/add/sub/cmp/inc/dec/push/pull/pop/call/ret/jmp/branches), each with
// every addressing-mode row the original lists for it. Mnemonics the
// generator never emits (bki, sirq, gptr, the carry-continue/rotate
// family, ...) are not transcribed; this is a deliberately partial table,
// not the full inline-asm instruction set.
var insnTable = map[string][]insnForm{
	"RET": {{opcode: insnRet}},
	"POP":  {{opcode: insnPop}},
	"JMP": {{opcode: insnJMP, nWords: 2, argModes: []argClass{argMem}}},
	"CALL": {{opcode: insnCall, nWords: 2, argModes: []argClass{argMem}}},
	"BEQ": {{opcode: 0x0F, nWords: 2, argModes: []argClass{argMem}}},
	"BNE": {{opcode: 0x10, nWords: 2, argModes: []argClass{argMem}}},
	"BGT": {{opcode: 0x11, nWords: 2, argModes: []argClass{argMem}}},
	"BLE": {{opcode: 0x12, nWords: 2, argModes: []argClass{argMem}}},
	"BLT": {{opcode: 0x13, nWords: 2, argModes: []argClass{argMem}}},
	"BGE": {{opcode: 0x14, nWords: 2, argModes: []argClass{argMem}}},
	"BCS": {{opcode: 0x15, nWords: 2, argModes: []argClass{argMem}}},
	"BCC": {{opcode: 0x16, nWords: 2, argModes: []argClass{argMem}}},
	"MOV": {
		{opcode: insnMovAX, argModes: []argClass{argRegA, argRegX}},
		{opcode: insnMovAY, argModes: []argClass{argRegA, argRegY}},
		{opcode: insnMovXA, argModes: []argClass{argRegX, argRegA}},
		{opcode: insnMovXY, argModes: []argClass{argRegX, argRegY}},
		{opcode: insnMovYA, argModes: []argClass{argRegY, argRegA}},
		{opcode: insnMovYX, argModes: []argClass{argRegY, argRegX}},
		{opcode: offsMovRI + RegA, nWords: 1, argModes: []argClass{argRegA, argImm}},
		{opcode: offsMovRI + RegX, nWords: 1, argModes: []argClass{argRegX, argImm}},
		{opcode: offsMovRI + RegY, nWords: 1, argModes: []argClass{argRegY, argImm}},
		{opcode: offsMovLD + RegA, nWords: 2, argModes: []argClass{argRegA, argMem}},
		{opcode: offsMovLD + RegX, nWords: 2, argModes: []argClass{argRegX, argMem}},
		{opcode: offsMovLD + RegY, nWords: 2, argModes: []argClass{argRegY, argMem}},
		{opcode: offsMovST + RegA, nWords: 2, argModes: []argClass{argMem, argRegA}},
		{opcode: offsMovST + RegX, nWords: 2, argModes: []argClass{argMem, argRegX}},
		{opcode: offsMovST + RegY, nWords: 2, argModes: []argClass{argMem, argRegY}},
	},
	"ADD": {
		{opcode: offsADD + offsCalcAX, argModes: []argClass{argRegA, argRegX}},
		{opcode: offsADD + offsCalcAY, argModes: []argClass{argRegA, argRegY}},
		{opcode: offsADD + offsCalcAV, nWords: 1, argModes: []argClass{argRegA, argImm}},
		{opcode: offsADD + offsCalcAM, nWords: 2, argModes: []argClass{argRegA, argMem}},
		{opcode: offsADD + offsCalcXV, nWords: 1, argModes: []argClass{argRegX, argImm}},
		{opcode: offsADD + offsCalcXM, nWords: 2, argModes: []argClass{argRegX, argMem}},
		{opcode: offsADD + offsCalcYV, nWords: 1, argModes: []argClass{argRegY, argImm}},
		{opcode: offsADD + offsCalcYM, nWords: 2, argModes: []argClass{argRegY, argMem}},
	},
	"SUB": {
		{opcode: offsSUB + offsCalcAX, argModes: []argClass{argRegA, argRegX}},
		{opcode: offsSUB + offsCalcAY, argModes: []argClass{argRegA, argRegY}},
		{opcode: offsSUB + offsCalcAV, nWords: 1, argModes: []argClass{argRegA, argImm}},
		{opcode: offsSUB + offsCalcAM, nWords: 2, argModes: []argClass{argRegA, argMem}},
		{opcode: offsSUB + offsCalcXV, nWords: 1, argModes: []argClass{argRegX, argImm}},
		{opcode: offsSUB + offsCalcXM, nWords: 2, argModes: []argClass{argRegX, argMem}},
		{opcode: offsSUB + offsCalcYV, nWords: 1, argModes: []argClass{argRegY, argImm}},
		{opcode: offsSUB + offsCalcYM, nWords: 2, argModes: []argClass{argRegY, argMem}},
	},
	"CMP": {
		{opcode: offsCMP + offsCalcAX, argModes: []argClass{argRegA, argRegX}},
		{opcode: offsCMP + offsCalcAY, argModes: []argClass{argRegA, argRegY}},
		{opcode: offsCMP + offsCalcAV, nWords: 1, argModes: []argClass{argRegA, argImm}},
		{opcode: offsCMP + offsCalcAM, nWords: 2, argModes: []argClass{argRegA, argMem}},
	},
	"INC": {
		{opcode: insnIncA, argModes: []argClass{argRegA}},
		{opcode: insnIncX, argModes: []argClass{argRegX}},
		{opcode: insnIncY, argModes: []argClass{argRegY}},
		{opcode: insnIncM, nWords: 2, argModes: []argClass{argMem}},
	},
	"DEC": {
		{opcode: insnDecA, argModes: []argClass{argRegA}},
		{opcode: insnDecX, argModes: []argClass{argRegX}},
		{opcode: insnDecY, argModes: []argClass{argRegY}},
		{opcode: insnDecM, nWords: 2, argModes: []argClass{argMem}},
	},
	"PSH": {
		{opcode: offsPushR + RegA, argModes: []argClass{argRegA}},
		{opcode: offsPushR + RegX, argModes: []argClass{argRegX}},
		{opcode: offsPushR + RegY, argModes: []argClass{argRegY}},
		{opcode: insnPushI, nWords: 1, argModes: []argClass{argImm}},
	},
	"PUL": {
		{opcode: offsPullR + RegA, argModes: []argClass{argRegA}},
		{opcode: offsPullR + RegX, argModes: []argClass{argRegX}},
		{opcode: offsPullR + RegY, argModes: []argClass{argRegY}},
	},
}

// miniAsm implements target.MiniAssembler for gr8cpu-r3.
type miniAsm struct{}

type asmOperand struct {
	class argClass
	value int64
	label string
}

func parseOperand(tok string) asmOperand {
	switch strings.ToLower(tok) {
	case "a":
		return asmOperand{class: argRegA}
	case "x":
		return asmOperand{class: argRegX}
	case "y":
		return asmOperand{class: argRegY}
	}
	if strings.HasPrefix(tok, "#") {
		v, _ := strconv.ParseInt(strings.TrimPrefix(tok, "#"), 0, 64)
		return asmOperand{class: argImm, value: v}
	}
	if v, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return asmOperand{class: argMem, value: v}
	}
	return asmOperand{class: argMem, label: tok}
}

func classMatches(mode argClass, op asmOperand) bool {
	switch mode {
	case argRegA, argRegX, argRegY:
		return op.class == mode
	default:
		return op.class == mode
	}
}

// AssembleLine tokenizes a fully-substituted asm line, then matches the
// mnemonic's addressing-mode table (insnTable) against the operand
// classes, picking the first row whose arg count and per-operand classes
// match — the same algorithm gr8cpu-r3_iasm.c's mnemonic lookup plus
// linear mode scan implements — and emits that row's real opcode plus any
// immediate or address/label operand bytes.
func (miniAsm) AssembleLine(e *target.Emitter, line string) error {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	mnem := strings.ToUpper(fields[0])
	rows, ok := insnTable[mnem]
	if !ok {
		return errors.Errorf("gr8cpu: unknown mnemonic %q", fields[0])
	}
	operands := make([]asmOperand, len(fields)-1)
	for i, f := range fields[1:] {
		operands[i] = parseOperand(f)
	}
	for _, row := range rows {
		if len(row.argModes) != len(operands) {
			continue
		}
		matched := true
		for i, m := range row.argModes {
			if !classMatches(m, operands[i]) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		e.Out.EmitData([]byte{row.opcode})
		for i, m := range row.argModes {
			if m != argImm && m != argMem {
				continue
			}
			op := operands[i]
			switch row.nWords {
			case 1:
				e.Out.EmitData([]byte{byte(op.value)})
			case 2:
				if op.label != "" {
					e.Out.EmitLabelRef(0, 0, op.label)
				} else {
					e.Out.EmitData([]byte{byte(op.value), byte(op.value >> 8)})
				}
			}
		}
		return nil
	}
	return errors.Errorf("gr8cpu: no addressing mode matches %q", line)
}
