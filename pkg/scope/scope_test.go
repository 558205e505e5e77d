package scope

import (
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
)

type recordingEvictor struct {
	evicted []string
}

func (r *recordingEvictor) EvictTo(b *Binding, dest loc.Location) {
	r.evicted = append(r.evicted, b.Name)
}

func TestDeclareBindsRegister(t *testing.T) {
	in := ctypes.NewInterner(1)
	s := NewRootScope(3, "f")
	s.Declare("a", loc.NewRegister(in.Simple(ctypes.Int), 0))
	if s.Occupant(0) == nil || s.Occupant(0).Name != "a" {
		t.Fatalf("expected register 0 occupied by a")
	}
}

func TestPickRegisterEvictsLRU(t *testing.T) {
	in := ctypes.NewInterner(1)
	s := NewRootScope(2, "f")
	intT := in.Simple(ctypes.Int)
	s.Declare("a", loc.NewRegister(intT, 0))
	s.Declare("b", loc.NewRegister(intT, 1))
	// both full; a was touched first (declare order), so b is MRU, a is LRU
	s.Touch(1)
	ev := &recordingEvictor{}
	reg, err := s.PickRegister(true, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg != 0 {
		t.Fatalf("expected LRU register 0 evicted, got %d", reg)
	}
	if len(ev.evicted) != 1 || ev.evicted[0] != "a" {
		t.Fatalf("expected binding a to be evicted, got %v", ev.evicted)
	}
	if s.Occupant(0) != nil {
		t.Fatalf("expected register 0 free after eviction and vacate")
	}
}

func TestPickRegisterFailsWhenAllLocked(t *testing.T) {
	in := ctypes.NewInterner(1)
	s := NewRootScope(1, "f")
	s.Declare("a", loc.NewRegister(in.Simple(ctypes.Int), 0))
	s.Lock(0)
	_, err := s.PickRegister(true, &recordingEvictor{})
	if err != ErrNoFreeRegister {
		t.Fatalf("expected ErrNoFreeRegister, got %v", err)
	}
}

func TestPushPopRestoresParentOccupancy(t *testing.T) {
	in := ctypes.NewInterner(1)
	root := NewRootScope(2, "f")
	root.Declare("a", loc.NewRegister(in.Simple(ctypes.Int), 0))

	child := root.Push()
	child.Declare("b", loc.NewRegister(in.Simple(ctypes.Int), 1))
	if root.Occupant(1) != nil {
		t.Fatalf("expected child's declaration not to leak into parent")
	}

	back := child.Pop()
	if back != root {
		t.Fatalf("expected Pop to return the original parent")
	}
	if back.Occupant(0) == nil || back.Occupant(0).Name != "a" {
		t.Fatalf("expected parent occupancy intact after pop")
	}
}

func TestTempPoolReuseLIFO(t *testing.T) {
	p := NewTempPool("fib")
	a := p.Get(1)
	b := p.Get(1)
	if a[0] == b[0] {
		t.Fatalf("expected distinct slots for two live temps")
	}
	p.Unuse(b)
	c := p.Get(1)
	if c[0] != b[0] {
		t.Fatalf("expected freed slot to be reused, got %d want %d", c[0], b[0])
	}
}

func TestMemclobberReconciles(t *testing.T) {
	s := NewRootScope(1, "f")
	s.StackSize = 4
	adj := &fakeAdjuster{}
	s.Memclobber(adj)
	if adj.delta != 4 {
		t.Fatalf("expected SP adjust by 4, got %d", adj.delta)
	}
	if s.RealStackSize != 4 {
		t.Fatalf("expected RealStackSize reconciled to 4, got %d", s.RealStackSize)
	}
	adj.delta = 0
	s.Memclobber(adj)
	if adj.delta != 0 {
		t.Fatalf("expected no-op memclobber when already reconciled")
	}
}

type fakeAdjuster struct{ delta int }

func (f *fakeAdjuster) AdjustSP(delta int) { f.delta = delta }
