package ctypes

import "testing"

func TestInternerSharesSimple(t *testing.T) {
	in := NewInterner(1)
	a := in.Simple(Int)
	b := in.Simple(Int)
	if a != b {
		t.Fatalf("expected interned Int to share one pointer")
	}
	if !Equals(a, b) {
		t.Fatalf("expected Equals to agree with identity")
	}
}

func TestPointerAndArray(t *testing.T) {
	in := NewInterner(1)
	intT := in.Simple(Int)
	p1 := in.PointerTo(intT)
	p2 := in.PointerTo(intT)
	if p1 != p2 {
		t.Fatalf("expected interned pointer-to-int to share one pointer")
	}
	if p1.Size() != 1 {
		t.Fatalf("expected pointer size 1 word, got %d", p1.Size())
	}

	arr := in.ArrayOf(intT, 4)
	if !arr.Complete() {
		t.Fatalf("expected array of known length to be complete")
	}
	if arr.Size() != 4*intT.Size() {
		t.Fatalf("expected array size %d, got %d", 4*intT.Size(), arr.Size())
	}

	incomplete := in.ArrayOf(intT, -1)
	if incomplete.Complete() {
		t.Fatalf("expected array of unspecified length to be incomplete")
	}
}

func TestStructLayout(t *testing.T) {
	in := NewInterner(1)
	charT := in.Simple(Char)
	intT := in.Simple(Int)
	st := in.StructOf("point", []Field{
		{Name: "tag", Type: charT},
		{Name: "val", Type: intT},
	})
	if st.Fields[0].Offset != 0 {
		t.Fatalf("expected first field at offset 0")
	}
	if st.Fields[1].Offset != charT.Size() {
		t.Fatalf("expected second field at offset %d, got %d", charT.Size(), st.Fields[1].Offset)
	}
	if st.Size() != charT.Size()+intT.Size() {
		t.Fatalf("expected struct size %d, got %d", charT.Size()+intT.Size(), st.Size())
	}
}

func TestUnionLayout(t *testing.T) {
	in := NewInterner(1)
	charT := in.Simple(Char)
	longT := in.Simple(Long)
	u := in.UnionOf("u", []Field{
		{Name: "c", Type: charT},
		{Name: "l", Type: longT},
	})
	for _, f := range u.Fields {
		if f.Offset != 0 {
			t.Fatalf("expected union field %q at offset 0, got %d", f.Name, f.Offset)
		}
	}
	if u.Size() != longT.Size() {
		t.Fatalf("expected union size %d (largest member), got %d", longT.Size(), u.Size())
	}
}

func TestSignedness(t *testing.T) {
	in := NewInterner(1)
	if !in.Simple(Int).Signed() {
		t.Fatalf("expected int to be signed")
	}
	if in.Simple(UInt).Signed() {
		t.Fatalf("expected unsigned int to be unsigned")
	}
	if in.Simple(Float).IsInteger() {
		t.Fatalf("expected float not to be an integer kind")
	}
}
