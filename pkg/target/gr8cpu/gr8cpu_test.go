package gr8cpu

import (
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/scope"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

type fakeChunks struct {
	data   [][]byte
	labels []string
}

func (f *fakeChunks) EmitData(b []byte)                                 { f.data = append(f.data, append([]byte(nil), b...)) }
func (f *fakeChunks) EmitLabel(name string)                             { f.labels = append(f.labels, name) }
func (f *fakeChunks) EmitLabelRef(mode int, offset int, name string)    { f.labels = append(f.labels, name) }
func (f *fakeChunks) EmitZero(count int)                                {}

func newEmitter() (*target.Emitter, *fakeChunks) {
	fc := &fakeChunks{}
	in := ctypes.NewInterner(1)
	sc := scope.NewRootScope(NumRegs, "f")
	return &target.Emitter{Out: fc, Scope: sc, Types: in, FuncTag: "f"}, fc
}

func TestEmitFunctionEntryZeroArgs(t *testing.T) {
	e, fc := newEmitter()
	tg := New()
	locs := tg.EmitFunctionEntry(e, target.FuncDefInfo{Name: "f", Params: nil})
	if len(locs) != 0 {
		t.Fatalf("expected no param locations, got %v", locs)
	}
	if len(fc.labels) != 1 || fc.labels[0] != "f" {
		t.Fatalf("expected function label emitted, got %v", fc.labels)
	}
}

func TestEmitFunctionEntryBindsAccumulator(t *testing.T) {
	e, _ := newEmitter()
	tg := New()
	in := ctypes.NewInterner(1)
	intT := in.Simple(ctypes.Int)
	fn := target.FuncDefInfo{Name: "f", Params: []ast.Param{{Name: "n", Type: intT}}}
	locs := tg.EmitFunctionEntry(e, fn)
	reg, ok := locs[0].(loc.Register)
	if !ok || reg.Reg != RegA {
		t.Fatalf("expected first param bound to accumulator, got %#v", locs[0])
	}
	if _, ok := e.Scope.Lookup("n"); !ok {
		t.Fatalf("expected n declared in scope")
	}
}

func TestEmitMovNSkipsWhenEquivalent(t *testing.T) {
	e, fc := newEmitter()
	tg := New()
	in := ctypes.NewInterner(1)
	intT := in.Simple(ctypes.Int)
	r := loc.NewRegister(intT, RegA)
	tg.EmitMovN(e, r, r, 1)
	if len(fc.data) != 0 {
		t.Fatalf("expected no-op move to emit nothing, got %v", fc.data)
	}
}

func TestEmitMath1IncDec(t *testing.T) {
	e, fc := newEmitter()
	tg := New()
	in := ctypes.NewInterner(1)
	intT := in.Simple(ctypes.Int)
	a := loc.NewRegister(intT, RegA)
	tg.EmitMath1(e, "inc", nil, a)
	found := false
	for _, d := range fc.data {
		if len(d) == 1 && d[0] == insnIncA {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected INC opcode byte emitted, got %v", fc.data)
	}
}

func TestEmitMath2SwapsConstantToSecondOperand(t *testing.T) {
	e, _ := newEmitter()
	tg := New()
	in := ctypes.NewInterner(1)
	intT := in.Simple(ctypes.Int)
	a := loc.NewConst(intT, 5)
	b := loc.NewRegister(intT, RegA)
	dst := tg.EmitMath2(e, "+", nil, a, b)
	if !loc.Equivalent(dst, b) {
		t.Fatalf("expected operands swapped so dst tracks the register operand, got %#v", dst)
	}
}

func TestMiniAsmRejectsUnknownMnemonic(t *testing.T) {
	e, _ := newEmitter()
	tg := New()
	if err := tg.Asm().AssembleLine(e, "FROB A, 1"); err == nil {
		t.Fatalf("expected error for unknown mnemonic")
	}
	if err := tg.Asm().AssembleLine(e, "MOV ST, 0xffff"); err != nil {
		t.Fatalf("unexpected error for known mnemonic: %v", err)
	}
}
