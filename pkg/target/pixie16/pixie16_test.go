package pixie16

import (
	"bytes"
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/scope"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

type fakeChunks struct {
	data      [][]byte
	labels    []string
	labelRefs []string
}

func (f *fakeChunks) EmitData(b []byte)                              { f.data = append(f.data, append([]byte(nil), b...)) }
func (f *fakeChunks) EmitLabel(name string)                          { f.labels = append(f.labels, name) }
func (f *fakeChunks) EmitLabelRef(mode int, offset int, name string) { f.labelRefs = append(f.labelRefs, name) }
func (f *fakeChunks) EmitZero(count int)                             {}

func newEmitter() (*target.Emitter, *fakeChunks) {
	fc := &fakeChunks{}
	in := ctypes.NewInterner(2)
	sc := scope.NewRootScope(NumRegs, "f")
	return &target.Emitter{Out: fc, Scope: sc, Types: in, FuncTag: "f"}, fc
}

func TestEmitFunctionEntryFourRegisterParams(t *testing.T) {
	e, _ := newEmitter()
	tg := New(Options{})
	in := ctypes.NewInterner(2)
	intT := in.Simple(ctypes.Int)
	fn := target.FuncDefInfo{Name: "f", Params: []ast.Param{
		{Name: "a", Type: intT}, {Name: "b", Type: intT},
		{Name: "c", Type: intT}, {Name: "d", Type: intT},
		{Name: "e", Type: intT},
	}}
	locs := tg.EmitFunctionEntry(e, fn)
	for i := 0; i < 4; i++ {
		r, ok := locs[i].(loc.Register)
		if !ok || r.Reg != i {
			t.Fatalf("expected param %d in register %d, got %#v", i, i, locs[i])
		}
	}
	if _, ok := locs[4].(loc.StackFrame); !ok {
		t.Fatalf("expected fifth param spilled to caller frame, got %#v", locs[4])
	}
}

func TestEmitReturnRestoresFlagsForIRQHandler(t *testing.T) {
	e, fc := newEmitter()
	tg := New(Options{IRQHandlerName: "isr"})
	fn := target.FuncDefInfo{Name: "isr", IsIRQ: true}
	tg.EmitReturn(e, fn, nil)
	popPF := packedBytes(packInsn(false, pxAddrST, pxRegIMM, RegPF, pxOpMOV))
	popPC := packedBytes(packInsn(false, pxAddrST, pxRegIMM, RegPC, pxOpMOV))
	n := len(fc.data)
	if n < 4 || !bytes.Equal(fc.data[n-4], popPF) || !bytes.Equal(fc.data[n-2], popPC) {
		t.Fatalf("expected MOV PF,[ST] then MOV PC,[ST], got %v", fc.data)
	}
}

func TestEmitReturnPopsPCForNormalFunction(t *testing.T) {
	e, fc := newEmitter()
	tg := New(Options{IRQHandlerName: "isr"})
	fn := target.FuncDefInfo{Name: "main"}
	tg.EmitReturn(e, fn, nil)
	popPF := packedBytes(packInsn(false, pxAddrST, pxRegIMM, RegPF, pxOpMOV))
	popPC := packedBytes(packInsn(false, pxAddrST, pxRegIMM, RegPC, pxOpMOV))
	n := len(fc.data)
	if n != 2 || !bytes.Equal(fc.data[0], popPC) || bytes.Equal(fc.data[0], popPF) {
		t.Fatalf("expected a plain MOV PC,[ST] return, got %v", fc.data)
	}
}

func TestEmitMath2UsesCarryContinueForSecondWord(t *testing.T) {
	e, fc := newEmitter()
	tg := New(Options{})
	in := ctypes.NewInterner(2)
	longT := in.Simple(ctypes.Long) // 32 bits == 2 sixteen-bit words
	a := loc.NewRegister(longT, R0)
	b := loc.NewRegister(longT, R2)
	tg.EmitMath2(e, "+", nil, a, b)
	foundADD, foundADDC := false, false
	for _, d := range fc.data {
		if len(d) == 2 && int(d[0]&0x3f) == pxOpADD {
			foundADD = true
		}
		if len(d) == 2 && int(d[0]&0x3f) == pxOpADD|pxOffsCC {
			foundADDC = true
		}
	}
	if !foundADD || !foundADDC {
		t.Fatalf("expected both ADD and ADDC opcodes for a 2-word add, got %v", fc.data)
	}
}

func TestEmitCallPICReferencesCalleeLabel(t *testing.T) {
	e, fc := newEmitter()
	tg := New(Options{PIC: true})
	in := ctypes.NewInterner(2)
	fnT := in.Simple(ctypes.Int)
	callee := loc.NewLabel(fnT, "helper")
	tg.EmitCall(e, callee, nil, nil)
	found := false
	for _, l := range fc.labelRefs {
		if l == "helper" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a label reference to helper, got %v", fc.labelRefs)
	}
}

func TestMiniAsmRejectsUnknownMnemonic(t *testing.T) {
	e, _ := newEmitter()
	tg := New(Options{})
	if err := tg.Asm().AssembleLine(e, "FROB R0, 1"); err == nil {
		t.Fatalf("expected error for unknown mnemonic")
	}
	if err := tg.Asm().AssembleLine(e, "CMP1 R0"); err != nil {
		t.Fatalf("unexpected error for known mnemonic: %v", err)
	}
}
