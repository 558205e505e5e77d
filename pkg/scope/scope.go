// Package scope implements the scope stack and register/stack bookkeeping
// of spec.md §4.3: a simple scope-local LRU register-occupancy tracker and
// stack accountant. This deliberately does not reuse the teacher's
// pkg/regalloc global graph-coloring allocator (see DESIGN.md
// "Architectural substitutions") — only its RegSet idiom survives, in
// regset.go.
package scope

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
)

// ErrNoFreeRegister is returned by PickRegister when every register is
// locked and eviction was disallowed or produced no candidate.
var ErrNoFreeRegister = errors.New("scope: no free register available")

// Binding is a mutable cell holding one variable's or temporary's current
// Location. The register-occupancy table and the identifier map both
// point at the same Binding, so evicting a register in place rewrites
// every reference to it (spec.md §4.3 "rewriting the Location the old
// owner held").
type Binding struct {
	Name string
	Loc  loc.Location
}

// Evictor emits the code needed to move a value out of a register into
// its spill Location; scope itself never emits instructions, since that
// is the lowering walker's and target selector's job.
type Evictor interface {
	EvictTo(b *Binding, dest loc.Location)
}

// SPAdjuster emits the SP-adjustment instruction memclobber decides is
// needed.
type SPAdjuster interface {
	AdjustSP(delta int)
}

// TempPool is the per-function monotonically-growing pool of temporary
// stack slots named "<func>.LTnnnn" (spec.md §4.3). It is shared by every
// Scope within one function; scopes only track which of the pool's slots
// they currently hold via LIFO unuse.
type TempPool struct {
	funcName string
	free     []bool
	nextID   int
}

// NewTempPool creates an empty pool for the named function.
func NewTempPool(funcName string) *TempPool {
	return &TempPool{funcName: funcName}
}

// LabelFor returns the temp slot's assembler label.
func (p *TempPool) LabelFor(idx int) string {
	return fmt.Sprintf("%s.LT%04d", p.funcName, idx)
}

// Get returns n consecutive free slot indices, extending the pool if no
// existing run is free (spec.md §4.3 get_tmp: "scans the pool for a run
// of n free slots, then extends the pool").
func (p *TempPool) Get(n int) []int {
	if n <= 0 {
		return nil
	}
	if run, ok := p.findRun(n); ok {
		for i := run; i < run+n; i++ {
			p.free[i] = false
		}
		return indexRange(run, n)
	}
	start := len(p.free)
	for i := 0; i < n; i++ {
		p.free = append(p.free, false)
	}
	return indexRange(start, n)
}

func (p *TempPool) findRun(n int) (int, bool) {
	run := 0
	for i, f := range p.free {
		if f {
			run++
			if run == n {
				return i - n + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

func indexRange(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// Unuse marks slots free again (LIFO reuse per spec.md §4.3).
func (p *TempPool) Unuse(idxs []int) {
	for _, i := range idxs {
		if i >= 0 && i < len(p.free) {
			p.free[i] = true
		}
	}
}

// Scope is a lexical block: an identifier map, a register-occupancy
// snapshot with LRU order, a stack-size accounting pair, and a parent
// link. The "arena" named in spec.md §3 is modelled as the Bindings slice
// below: it is simply dropped, along with the whole Scope, on Pop — Go's
// GC reclaims it, matching the spec's "freed as one block" semantics
// without a manual allocator (see SPEC_FULL.md §5).
type Scope struct {
	parent    *Scope
	vars      map[string]*Binding
	arena     []*Binding
	registers []*Binding // nil entry == free register
	lru       []int      // least-recently-used first
	locked    map[int]bool
	pool      *TempPool

	StackSize     int
	RealStackSize int
}

// NewRootScope creates the outermost scope of a function with numRegs
// target registers and a fresh temp pool.
func NewRootScope(numRegs int, funcName string) *Scope {
	return &Scope{
		vars:      make(map[string]*Binding),
		registers: make([]*Binding, numRegs),
		lru:       identityOrder(numRegs),
		locked:    make(map[int]bool),
		pool:      NewTempPool(funcName),
	}
}

func identityOrder(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Push clones the occupancy snapshot and inherits StackSize, per spec.md
// §4.3's push_scope.
func (s *Scope) Push() *Scope {
	child := &Scope{
		parent:        s,
		vars:          make(map[string]*Binding),
		registers:     append([]*Binding(nil), s.registers...),
		lru:           append([]int(nil), s.lru...),
		locked:        make(map[int]bool),
		pool:          s.pool,
		StackSize:     s.StackSize,
		RealStackSize: s.RealStackSize,
	}
	return child
}

// Pop discards the child scope's arena and returns the parent, whose
// occupancy table is untouched by anything the child did (spec.md §4.3:
// "no restoration of old locations is performed on pop; any eviction is
// eager").
func (s *Scope) Pop() *Scope {
	return s.parent
}

// Declare binds name to its location within this scope, registering it in
// the occupancy table if it is a Register location.
func (s *Scope) Declare(name string, l loc.Location) *Binding {
	b := &Binding{Name: name, Loc: l}
	s.vars[name] = b
	s.arena = append(s.arena, b)
	if r, ok := l.(loc.Register); ok {
		s.bindRegister(r.Reg, b)
	}
	return b
}

// Lookup searches this scope and its ancestors for name.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (s *Scope) bindRegister(reg int, b *Binding) {
	if reg < 0 || reg >= len(s.registers) {
		return
	}
	s.registers[reg] = b
	s.touchLocked(reg)
}

// Occupant returns the Binding currently bound to reg, or nil if free.
func (s *Scope) Occupant(reg int) *Binding {
	if reg < 0 || reg >= len(s.registers) {
		return nil
	}
	return s.registers[reg]
}

// Touch marks reg most-recently-used (spec.md §4.3 touch, called
// implicitly on every use).
func (s *Scope) Touch(reg int) {
	s.touchLocked(reg)
}

func (s *Scope) touchLocked(reg int) {
	for i, r := range s.lru {
		if r == reg {
			s.lru = append(s.lru[:i], s.lru[i+1:]...)
			break
		}
	}
	s.lru = append(s.lru, reg)
}

// Lock marks reg temp-locked for the duration of the current instruction
// (spec.md §4.3's temp_usage / §5 "locked during emission"), preventing
// PickRegister from evicting it.
func (s *Scope) Lock(reg int)   { s.locked[reg] = true }
func (s *Scope) Unlock(reg int) { delete(s.locked, reg) }

// Vacate force-evicts reg via ev, clearing the occupancy slot. No-op if
// reg is already free.
func (s *Scope) Vacate(reg int, ev Evictor) {
	b := s.Occupant(reg)
	if b == nil {
		return
	}
	dest := b.Default()
	if b.Loc.Info().Default == nil {
		t := b.Loc.Info().Type
		n := 1
		if t != nil && t.Size() > 1 {
			n = t.Size()
		}
		dest = s.GetTmp(n, false, t)
	}
	if ev != nil {
		ev.EvictTo(b, dest)
	}
	b.Loc = dest
	s.registers[reg] = nil
}

// Default resolves the Binding's eviction target: its Location's
// Default, or the Location itself if none is set (Vacate then evicts to
// a fresh temp slot instead), matching spec.md §4.3's "by copying it to
// its default_loc (or a fresh temp slot)".
func (b *Binding) Default() loc.Location {
	if d := b.Loc.Info().Default; d != nil {
		return d
	}
	return b.Loc
}

// PickEmptyRegister returns the first free run of size consecutive
// registers, or ok=false if none exists.
func (s *Scope) PickEmptyRegister(size int) (reg int, ok bool) {
	if size <= 0 {
		size = 1
	}
	run := 0
	for i := 0; i < len(s.registers); i++ {
		if s.registers[i] == nil && !s.locked[i] {
			run++
			if run == size {
				return i - size + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// PickRegister returns a free register if one exists; otherwise, if
// allowEvict, it evicts the least-recently-used unlocked occupant and
// returns its register. It fails only when every register is locked.
func (s *Scope) PickRegister(allowEvict bool, ev Evictor) (int, error) {
	if reg, ok := s.PickEmptyRegister(1); ok {
		return reg, nil
	}
	if !allowEvict {
		return 0, ErrNoFreeRegister
	}
	for _, reg := range s.lru {
		if s.locked[reg] {
			continue
		}
		s.Vacate(reg, ev)
		return reg, nil
	}
	return 0, ErrNoFreeRegister
}

// GetTmp acquires a temporary of type t holding n words: a register run
// if allowReg and one is free, otherwise a stack slot run from the shared
// pool (spec.md §4.3 get_tmp).
func (s *Scope) GetTmp(n int, allowReg bool, t *ctypes.Type) loc.Location {
	if allowReg {
		if reg, ok := s.PickEmptyRegister(n); ok {
			return loc.NewRegister(t, reg)
		}
	}
	idxs := s.pool.Get(n)
	return loc.NewStackOffset(t, idxs[0])
}

// Unuse releases whichever resource l occupies: a register is freed in
// the occupancy table, a stack slot is returned to the pool.
func (s *Scope) Unuse(l loc.Location) {
	switch v := l.(type) {
	case loc.Register:
		if v.Reg >= 0 && v.Reg < len(s.registers) {
			s.registers[v.Reg] = nil
		}
	case loc.StackOffset:
		s.pool.Unuse([]int{v.Offset})
	}
}

// Memclobber reconciles RealStackSize with StackSize, emitting the SP
// adjustment via adj when they differ (spec.md §4.3 memclobber). It is a
// no-op when the two already agree.
func (s *Scope) Memclobber(adj SPAdjuster) {
	delta := s.StackSize - s.RealStackSize
	if delta == 0 {
		return
	}
	if adj != nil {
		adj.AdjustSP(delta)
	}
	s.RealStackSize = s.StackSize
}
