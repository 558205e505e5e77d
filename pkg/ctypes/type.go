// Package ctypes models the canonical C type descriptors consumed by the
// generator: simple primitives, pointers, arrays, and structs/unions.
// Descriptors are interned so identity comparison is a valid fast path
// (§4.1 of the design); structural Equals is always correct and is what
// callers outside this package should use.
package ctypes

// SimpleKind enumerates the primitive type kinds.
type SimpleKind int

const (
	Void SimpleKind = iota
	Bool
	Char
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
)

var simpleNames = map[SimpleKind]string{
	Void: "void", Bool: "_Bool", Char: "char", UChar: "unsigned char",
	Short: "short", UShort: "unsigned short", Int: "int", UInt: "unsigned int",
	Long: "long", ULong: "unsigned long", LongLong: "long long",
	ULongLong: "unsigned long long", Float: "float", Double: "double",
	LongDouble: "long double",
}

func (k SimpleKind) String() string {
	if n, ok := simpleNames[k]; ok {
		return n
	}
	return "?"
}

func (k SimpleKind) signed() bool {
	switch k {
	case UChar, UShort, UInt, ULong, ULongLong, Bool, Void:
		return false
	default:
		return true
	}
}

// Kind discriminates the Type variants.
type Kind int

const (
	KindSimple Kind = iota
	KindPointer
	KindArray
	KindStruct
	KindUnion
)

// Field is one member of a struct/union.
type Field struct {
	Name   string
	Type   *Type
	Offset int // in target memory words
}

// Type is an interned, value-semantic C type descriptor. Two descriptors
// produced by the same *Interner for the same shape are the same pointer,
// so `a == b` is a valid fast path; Equals is the always-correct check.
type Type struct {
	Kind     Kind
	Simple   SimpleKind // valid when Kind == KindSimple
	Elem     *Type      // pointee / element type
	Len      int        // array length; -1 if unspecified ("incomplete")
	Fields   []Field    // struct/union fields, in declaration order
	Name     string     // struct/union tag, "" if anonymous
	size     int        // size in target memory words
	complete bool
}

// Size returns the type's size in target memory words.
func (t *Type) Size() int { return t.size }

// Complete reports whether the type has a known size (false for an
// incomplete array or a forward-declared struct).
func (t *Type) Complete() bool { return t.complete }

// Signed reports whether the type is a signed integer kind. Non-integer
// and unsigned kinds report false.
func (t *Type) Signed() bool {
	return t.Kind == KindSimple && t.Simple.signed()
}

// IsInteger reports whether the type is one of the integral simple kinds.
func (t *Type) IsInteger() bool {
	return t.Kind == KindSimple && t.Simple != Void && t.Simple != Float &&
		t.Simple != Double && t.Simple != LongDouble
}

// IsPointer reports whether the type is a pointer.
func (t *Type) IsPointer() bool { return t.Kind == KindPointer }

// Equals performs structural equality, per spec.md's "two equal
// descriptors compare by address" (enforced here by the Interner; this
// method is the safety net for descriptors built outside it, e.g. in
// tests).
func Equals(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSimple:
		return a.Simple == b.Simple
	case KindPointer:
		return Equals(a.Elem, b.Elem)
	case KindArray:
		return a.Len == b.Len && Equals(a.Elem, b.Elem)
	case KindStruct, KindUnion:
		if a.Name != "" || b.Name != "" {
			return a.Name == b.Name
		}
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !Equals(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// Interner caches Type descriptors for one translation unit so that equal
// shapes share one pointer (spec.md §3 "descriptors are interned").
type Interner struct {
	wordBytes int // target memory word size, needed to compute sizes
	simples   map[SimpleKind]*Type
	pointers  map[*Type]*Type
	arrays    map[arrayKey]*Type
}

type arrayKey struct {
	elem *Type
	len  int
}

// NewInterner creates an Interner for a target whose memory word is
// wordBytes bytes wide.
func NewInterner(wordBytes int) *Interner {
	in := &Interner{
		wordBytes: wordBytes,
		simples:   make(map[SimpleKind]*Type),
		pointers:  make(map[*Type]*Type),
		arrays:    make(map[arrayKey]*Type),
	}
	return in
}

func wordsFor(bits, wordBytes int) int {
	bytes := bits / 8
	if bytes == 0 {
		bytes = 1
	}
	words := (bytes + wordBytes - 1) / wordBytes
	if words == 0 {
		words = 1
	}
	return words
}

// simpleBits gives the natural bit width of k, the same for every target;
// only the interner's wordBytes varies per target, which changes how many
// memory words each width occupies.
var simpleBits = map[SimpleKind]int{
	Void: 0, Bool: 8, Char: 8, UChar: 8, Short: 16, UShort: 16,
	Int: 16, UInt: 16, Long: 32, ULong: 32, LongLong: 64, ULongLong: 64,
	Float: 32, Double: 32, LongDouble: 64,
}

// Simple returns the interned descriptor for kind k.
func (in *Interner) Simple(k SimpleKind) *Type {
	if t, ok := in.simples[k]; ok {
		return t
	}
	t := &Type{
		Kind:     KindSimple,
		Simple:   k,
		size:     wordsFor(simpleBits[k], in.wordBytes),
		complete: true,
	}
	in.simples[k] = t
	return t
}

// PointerTo returns the interned pointer-to-elem descriptor. Pointer size
// is always one address word.
func (in *Interner) PointerTo(elem *Type) *Type {
	if t, ok := in.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: KindPointer, Elem: elem, size: 1, complete: true}
	in.pointers[elem] = t
	return t
}

// ArrayOf returns the interned array-of-elem descriptor. len < 0 denotes
// an incomplete array (size/known-ness undefined until completed).
func (in *Interner) ArrayOf(elem *Type, length int) *Type {
	key := arrayKey{elem, length}
	if t, ok := in.arrays[key]; ok {
		return t
	}
	t := &Type{Kind: KindArray, Elem: elem, Len: length}
	if length >= 0 {
		t.size = elem.size * length
		t.complete = true
	}
	in.arrays[key] = t
	return t
}

// StructOf builds a struct descriptor with fields laid out in declaration
// order at target-word granularity (no sub-word packing, matching the
// simple byte/word addressing the two target ISAs expose). Not interned
// by shape (struct identity is nominal via Name, or fresh per literal
// anonymous struct), matching C's own nominal struct-equivalence rule.
func (in *Interner) StructOf(name string, fields []Field) *Type {
	offset := 0
	for i := range fields {
		fields[i].Offset = offset
		offset += fields[i].Type.size
	}
	return &Type{Kind: KindStruct, Name: name, Fields: fields, size: offset, complete: true}
}

// UnionOf builds a union descriptor; every field starts at offset 0 and
// the union's size is its largest member's size.
func (in *Interner) UnionOf(name string, fields []Field) *Type {
	max := 0
	for i := range fields {
		fields[i].Offset = 0
		if fields[i].Type.size > max {
			max = fields[i].Type.size
		}
	}
	return &Type{Kind: KindUnion, Name: name, Fields: fields, size: max, complete: true}
}
