// Package loc models the tagged Location variant of §4.2: where a value
// currently resides during code generation. Each variant is a distinct Go
// type implementing the Location interface via an unexported marker
// method, the same pattern the teacher's pkg/ltl uses for its Loc and
// Instruction unions.
package loc

import "github.com/robotman2412/lily-cc-go/pkg/ctypes"

// CondCode is an abstract condition code, resolved to a target branch
// instruction by the selector (§4.6).
type CondCode int

const (
	CondEQ CondCode = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
	CondULT
	CondULE
	CondUGT
	CondUGE
)

// Location is the tagged variant described in spec.md §3. Every variant
// additionally carries Type/Owner/Default via the embedded Info.
type Location interface {
	implLoc()
	Info() *Info
}

// Info holds the fields every Location carries: its Type, an optional
// source-level owner name, and an optional default_loc used when the
// value must be evicted to a canonical spill location.
type Info struct {
	Type    *ctypes.Type
	Owner   string
	Default Location
}

// Info is implemented with a value receiver (not *Info) so that the
// value-type Location variants below satisfy the Location interface
// directly — a pointer-receiver promoted method only extends to the
// embedding type's pointer method set, not its value method set.
func (i Info) Info() *Info { return &i }

// Void is the location of a void-typed value (no storage).
type Void struct{ Info }

func (Void) implLoc() {}

// NewVoid builds a Void location.
func NewVoid() Void { return Void{} }

// Const is a compile-time integer constant embedded directly in the
// instruction stream.
type Const struct {
	Info
	Value int64
}

func (Const) implLoc() {}

// NewConst builds a Const location of the given type and value.
func NewConst(t *ctypes.Type, value int64) Const {
	return Const{Info: Info{Type: t}, Value: value}
}

// Label is static memory at a named label.
type Label struct {
	Info
	Name string
}

func (Label) implLoc() {}

// NewLabel builds a Label location.
func NewLabel(t *ctypes.Type, name string) Label {
	return Label{Info: Info{Type: t}, Name: name}
}

// StackOffset is in the current call frame at a positive offset from the
// frame base.
type StackOffset struct {
	Info
	Offset int
}

func (StackOffset) implLoc() {}

// NewStackOffset builds a StackOffset location.
func NewStackOffset(t *ctypes.Type, offset int) StackOffset {
	return StackOffset{Info: Info{Type: t}, Offset: offset}
}

// StackFrame is in the caller's frame, used for stack-passed parameters.
type StackFrame struct {
	Info
	Offset int
}

func (StackFrame) implLoc() {}

// NewStackFrame builds a StackFrame location.
func NewStackFrame(t *ctypes.Type, offset int) StackFrame {
	return StackFrame{Info: Info{Type: t}, Offset: offset}
}

// Register is live in target register Reg; for multi-word values it
// occupies Reg..Reg+size-1.
type Register struct {
	Info
	Reg int
}

func (Register) implLoc() {}

// NewRegister builds a Register location.
func NewRegister(t *ctypes.Type, reg int) Register {
	return Register{Info: Info{Type: t}, Reg: reg}
}

// ReturnValue is a reserved slot resolved at emission time to the
// ABI-mandated return register(s).
type ReturnValue struct{ Info }

func (ReturnValue) implLoc() {}

// NewReturnValue builds a ReturnValue location.
func NewReturnValue(t *ctypes.Type) ReturnValue {
	return ReturnValue{Info: Info{Type: t}}
}

// Condition is a deferred branch condition: "what the flags register
// currently says".
type Condition struct {
	Info
	Code CondCode
}

func (Condition) implLoc() {}

// NewCondition builds a Condition location.
func NewCondition(t *ctypes.Type, code CondCode) Condition {
	return Condition{Info: Info{Type: t}, Code: code}
}

// Pointer is the dereference of another Location.
type Pointer struct {
	Info
	Base Location
}

func (Pointer) implLoc() {}

// NewPointer builds a Pointer location dereferencing base.
func NewPointer(t *ctypes.Type, base Location) Pointer {
	return Pointer{Info: Info{Type: t}, Base: base}
}

// Indexed is base[index]; Combined caches a materialised pointer once
// computed by addressing_for (§4.2).
type Indexed struct {
	Info
	Base     Location
	Index    Location
	Combined Location // nil until materialised
}

func (*Indexed) implLoc() {}

// NewIndexed builds an Indexed location. Indexed is pointer-receiver
// because Combined is mutated in place once materialised (the memoisation
// spec.md §4.2 requires).
func NewIndexed(t *ctypes.Type, base, index Location) *Indexed {
	return &Indexed{Info: Info{Type: t}, Base: base, Index: index}
}

// Unassigned is a declared-but-not-yet-written variable; any read raises
// a warning and substitutes Default.
type Unassigned struct {
	Info
	DefaultLoc Location
}

func (Unassigned) implLoc() {}

// NewUnassigned builds an Unassigned location falling back to def.
func NewUnassigned(t *ctypes.Type, def Location) Unassigned {
	return Unassigned{Info: Info{Type: t, Default: def}, DefaultLoc: def}
}

// Equivalent performs the structural equality of spec.md §4.2's
// locations_equivalent: used to skip no-op moves and detect
// "destination already equals source" in the mover.
func Equivalent(a, b Location) bool {
	switch av := a.(type) {
	case Void:
		_, ok := b.(Void)
		return ok
	case Const:
		bv, ok := b.(Const)
		return ok && av.Value == bv.Value
	case Label:
		bv, ok := b.(Label)
		return ok && av.Name == bv.Name
	case StackOffset:
		bv, ok := b.(StackOffset)
		return ok && av.Offset == bv.Offset
	case StackFrame:
		bv, ok := b.(StackFrame)
		return ok && av.Offset == bv.Offset
	case Register:
		bv, ok := b.(Register)
		return ok && av.Reg == bv.Reg
	case ReturnValue:
		_, ok := b.(ReturnValue)
		return ok
	case Condition:
		bv, ok := b.(Condition)
		return ok && av.Code == bv.Code
	case Pointer:
		bv, ok := b.(Pointer)
		return ok && Equivalent(av.Base, bv.Base)
	case *Indexed:
		bv, ok := b.(*Indexed)
		return ok && Equivalent(av.Base, bv.Base) && Equivalent(av.Index, bv.Index)
	case Unassigned:
		bv, ok := b.(Unassigned)
		return ok && Equivalent(av.DefaultLoc, bv.DefaultLoc)
	default:
		return false
	}
}
