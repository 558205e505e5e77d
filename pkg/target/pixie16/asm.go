package pixie16

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// opcodeByMnemonic transcribes pixie-16_iasm.c's px_iasm_keyw row layout,
// which lists mnemonics in px_opcode_t enum order: the plain math family
// (0-5), its carry-continue twin (8-13), the one-operand family (16-18,
// 22-23) and its carry-continue twin (24-26, 30-31), then the 16-row
// condition-coded MOV family (32-47) and LEA family (48-62, no LEA.CX).
var opcodeByMnemonic = map[string]int{
	"ADD": pxOpADD, "SUB": pxOpSUB, "CMP": pxOpCMP,
	"AND": pxOpAND, "OR": pxOpOR, "XOR": pxOpXOR,
	"ADDC": pxOpADD | pxOffsCC, "SUBC": pxOpSUB | pxOffsCC, "CMPC": pxOpCMP | pxOffsCC,
	"ANDC": pxOpAND | pxOffsCC, "ORC": pxOpOR | pxOffsCC, "XORC": pxOpXOR | pxOffsCC,

	"INC": pxOpINC, "DEC": pxOpDEC, "CMP1": pxOpCMP1,
	"INCC": pxOpINC | pxOffsCC, "DECC": pxOpDEC | pxOffsCC, "CMP1C": pxOpCMP1 | pxOffsCC,

	"MOV":     pxOffsMOV | condTRUE,
	"MOV.EQ":  pxOffsMOV | condEQ,
	"MOV.NE":  pxOffsMOV | condNE,
	"MOV.LT":  pxOffsMOV | condSLT,
	"MOV.LE":  pxOffsMOV | condSLE,
	"MOV.GT":  pxOffsMOV | condSGT,
	"MOV.GE":  pxOffsMOV | condSGE,
	"MOV.ULT": pxOffsMOV | condULT,
	"MOV.ULE": pxOffsMOV | condULE,
	"MOV.UGT": pxOffsMOV | condUGT,
	"MOV.UGE": pxOffsMOV | condUGE,
	"MOV.CS":  pxOffsMOV | condCS,
	"MOV.CC":  pxOffsMOV | condCC,
	"MOV.JSR": pxOffsMOV | condJSR,

	"LEA":     pxOffsLEA | condTRUE,
	"LEA.EQ":  pxOffsLEA | condEQ,
	"LEA.NE":  pxOffsLEA | condNE,
	"LEA.LT":  pxOffsLEA | condSLT,
	"LEA.LE":  pxOffsLEA | condSLE,
	"LEA.GT":  pxOffsLEA | condSGT,
	"LEA.GE":  pxOffsLEA | condSGE,
	"LEA.ULT": pxOffsLEA | condULT,
	"LEA.ULE": pxOffsLEA | condULE,
	"LEA.UGT": pxOffsLEA | condUGT,
	"LEA.UGE": pxOffsLEA | condUGE,
	"LEA.CS":  pxOffsLEA | condCS,
	"LEA.CC":  pxOffsLEA | condCC,
	"LEA.JSR": pxOffsLEA | condJSR,
}

// miniAsm implements target.MiniAssembler for pixie-16.
type miniAsm struct{}

type pxOperand struct {
	isReg bool
	reg   int
	isMem bool
	label string
	value int64
}

func regNumber(name string) (int, bool) {
	switch strings.ToUpper(name) {
	case "R0":
		return R0, true
	case "R1":
		return R1, true
	case "R2":
		return R2, true
	case "R3":
		return R3, true
	case "ST":
		return RegST, true
	case "PF":
		return RegPF, true
	case "PC":
		return RegPC, true
	default:
		return 0, false
	}
}

// parseOperand tokenizes one operand per pixie-16_iasm.c's lexer:
// register names, [addr] or [label] for absolute memory, #imm for an
// immediate, or a bare label.
func parseOperand(tok string) pxOperand {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		inner := strings.TrimSpace(tok[1 : len(tok)-1])
		if v, err := strconv.ParseInt(inner, 0, 64); err == nil {
			return pxOperand{isMem: true, value: v}
		}
		return pxOperand{isMem: true, label: inner}
	}
	if reg, ok := regNumber(tok); ok {
		return pxOperand{isReg: true, reg: reg}
	}
	if strings.HasPrefix(tok, "#") {
		v, _ := strconv.ParseInt(strings.TrimPrefix(tok, "#"), 0, 64)
		return pxOperand{value: v}
	}
	if v, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return pxOperand{value: v}
	}
	return pxOperand{label: tok}
}

// AssembleLine looks the mnemonic up in opcodeByMnemonic (a flat
// mnemonic-to-opcode mapping, unlike gr8cpu-r3's per-row addressing
// table: pixie-16's single packed-word format resolves addressing
// through the x/b fields rather than through alternate opcode rows),
// resolves its destination (register, field a) and source (register,
// memory or immediate, fields b/x) operands, and packs+emits the real
// instruction word plus any trailing literal or label-referenced word.
func (miniAsm) AssembleLine(e *target.Emitter, line string) error {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	mnem := strings.ToUpper(strings.TrimSuffix(fields[0], ","))
	opcode, ok := opcodeByMnemonic[mnem]
	if !ok {
		return errors.Errorf("pixie16: unknown mnemonic %q", fields[0])
	}
	rest := strings.Join(fields[1:], " ")
	var operandToks []string
	if strings.TrimSpace(rest) != "" {
		operandToks = strings.Split(rest, ",")
	}
	if len(operandToks) == 0 {
		return errors.Errorf("pixie16: %q needs a destination operand", line)
	}
	dst := parseOperand(operandToks[0])
	if !dst.isReg {
		return errors.Errorf("pixie16: destination operand of %q must be a register", line)
	}

	x, b := pxAddrIMM, 0
	var label string
	var literal int64
	if len(operandToks) > 1 {
		src := parseOperand(operandToks[1])
		switch {
		case src.isReg:
			b = src.reg
		case src.isMem && src.label != "":
			x, b, label = pxAddrMEM, pxRegIMM, src.label
		case src.isMem:
			x, b, literal = pxAddrMEM, pxRegIMM, src.value
		case src.label != "":
			x, b, label = pxAddrMEM, pxRegIMM, src.label
		default:
			b, literal = pxRegIMM, src.value
		}
	}

	e.Out.EmitData(packedBytes(packInsn(false, x, b, dst.reg, opcode)))
	if b == pxRegIMM {
		if label != "" {
			e.Out.EmitLabelRef(0, 0, label)
		} else {
			e.Out.EmitData([]byte{byte(literal), byte(literal >> 8)})
		}
	}
	return nil
}
