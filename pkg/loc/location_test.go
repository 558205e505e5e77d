package loc

import (
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
)

func TestEquivalentRegister(t *testing.T) {
	in := ctypes.NewInterner(1)
	a := NewRegister(in.Simple(ctypes.Int), 2)
	b := NewRegister(in.Simple(ctypes.Int), 2)
	c := NewRegister(in.Simple(ctypes.Int), 3)
	if !Equivalent(a, b) {
		t.Fatalf("expected same-register locations to be equivalent")
	}
	if Equivalent(a, c) {
		t.Fatalf("expected different-register locations not to be equivalent")
	}
}

func TestEquivalentCrossVariant(t *testing.T) {
	in := ctypes.NewInterner(1)
	a := NewRegister(in.Simple(ctypes.Int), 0)
	b := NewConst(in.Simple(ctypes.Int), 0)
	if Equivalent(a, b) {
		t.Fatalf("expected different variants never to be equivalent")
	}
}

func TestUnassignedFallsBackToDefault(t *testing.T) {
	in := ctypes.NewInterner(1)
	def := NewStackOffset(in.Simple(ctypes.Int), 4)
	u := NewUnassigned(in.Simple(ctypes.Int), def)
	r := AddressingFor(u, 0, nil)
	if r.Mode != AddrStack || r.Literal != 4 {
		t.Fatalf("expected Unassigned to resolve through its default, got %+v", r)
	}
}

type fakeMaterializer struct {
	called bool
	result Location
}

func (f *fakeMaterializer) Materialize(base, index Location) Location {
	f.called = true
	return f.result
}

func TestIndexedMaterializesOnceForPartOneOrMore(t *testing.T) {
	in := ctypes.NewInterner(1)
	base := NewStackOffset(in.Simple(ctypes.Int), 0)
	index := NewConst(in.Simple(ctypes.Int), 2)
	ix := NewIndexed(in.Simple(ctypes.Int), base, index)
	fm := &fakeMaterializer{result: NewRegister(in.Simple(ctypes.Int), 1)}

	r0 := AddressingFor(ix, 0, fm)
	if fm.called {
		t.Fatalf("expected part 0 not to require materialisation")
	}
	if r0.Mode != AddrIndirect {
		t.Fatalf("expected indirect addressing for indexed base, got %+v", r0)
	}

	r1 := AddressingFor(ix, 1, fm)
	if !fm.called {
		t.Fatalf("expected part >= 1 to materialise Combined")
	}
	if r1.Mode != AddrIndirect || r1.BaseReg != 1 {
		t.Fatalf("expected materialised combined register, got %+v", r1)
	}

	fm.called = false
	_ = AddressingFor(ix, 1, fm)
	if fm.called {
		t.Fatalf("expected Combined to be memoised, not re-materialised")
	}
}
