package asm

import (
	"bytes"
	"testing"
)

func TestLinkLayoutAssignsAddresses(t *testing.T) {
	b := NewBuilder(2, false)
	b.SelectSection(".text", 1)
	b.EmitLabel("main")
	b.EmitData([]byte{0x01, 0x02})
	b.EmitLabel("after")

	l, err := b.Link()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Labels["main"].Address != 0 {
		t.Fatalf("expected main at 0, got %d", l.Labels["main"].Address)
	}
	if l.Labels["after"].Address != 2 {
		t.Fatalf("expected after at 2, got %d", l.Labels["after"].Address)
	}
}

func TestLinkDuplicateLabelIsHardError(t *testing.T) {
	b := NewBuilder(2, false)
	b.EmitLabel("x")
	b.EmitLabel("x")
	if _, err := b.Link(); err == nil {
		t.Fatalf("expected duplicate label error")
	}
}

func TestLinkUnresolvedLabelIsHardError(t *testing.T) {
	b := NewBuilder(2, false)
	b.EmitLabelRef(int(AbsPtr), 0, "nowhere")
	if _, err := b.Link(); err == nil {
		t.Fatalf("expected unresolved label error")
	}
}

func TestLinkResolvesAbsoluteReference(t *testing.T) {
	b := NewBuilder(2, false)
	b.SelectSection(".text", 1)
	b.EmitLabel("target")
	b.EmitZero(4)
	b.SelectSection(".data", 1)
	b.EmitLabelRef(int(AbsPtr), 0, "target")

	l, err := b.Link()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := l.Bytes[".data"]
	want := []byte{0x00, 0x00} // target resolves to address 0, little-endian
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLinkResolvesPCRelativeReferenceAfterSlot(t *testing.T) {
	b := NewBuilder(2, false)
	b.SelectSection(".text", 1)
	b.EmitZero(2)    // two bytes of padding before the ref
	b.EmitLabelRef(int(PCRelativePtr), 0, "here")
	b.EmitLabel("here")

	l, err := b.Link()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := l.Bytes[".text"]
	// ref slot occupies bytes [2,4); "here" is at address 4; relative = 4 - 4 = 0
	want := []byte{0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFlatBinaryPadsBetweenSections(t *testing.T) {
	b := NewBuilder(2, false)
	b.SelectSection(".text", 4)
	b.EmitData([]byte{0x01})
	b.SelectSection(".rodata", 4)
	b.EmitData([]byte{0x02})

	l, err := b.Link()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := FlatBinary(l)
	if len(out) != 5 || out[0] != 0x01 || out[4] != 0x02 {
		t.Fatalf("expected padded 5-byte image, got %v", out)
	}
}

func TestEmitELF32SetsEntryPoint(t *testing.T) {
	b := NewBuilder(2, false)
	b.SelectSection(".text", 1)
	b.EmitLabel("_start")
	b.EmitData([]byte{0x00, 0x00})

	l, err := b.Link()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := EmitELF32(l, 0x8000, "_start", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img[:4]) != elfMagic {
		t.Fatalf("expected ELF magic, got %v", img[:4])
	}
}
