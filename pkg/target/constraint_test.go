package target

import "testing"

func TestParseConstraintWrite(t *testing.T) {
	c := ParseConstraint("=r")
	if !c.Write || c.Read {
		t.Fatalf("expected write-only, got %+v", c)
	}
	if !c.AllowsRegister() || c.AllowsMemory() {
		t.Fatalf("expected register-only class, got %+v", c)
	}
}

func TestParseConstraintReadWriteMemory(t *testing.T) {
	c := ParseConstraint("+m")
	if !c.Write || !c.Read {
		t.Fatalf("expected read-write, got %+v", c)
	}
	if !c.AllowsMemory() || c.AllowsRegister() {
		t.Fatalf("expected memory-only class, got %+v", c)
	}
}

func TestParseConstraintTiedOperand(t *testing.T) {
	c := ParseConstraint("0")
	if c.CommutativeTag != 0 {
		t.Fatalf("expected tied operand 0, got %+v", c)
	}
}

func TestExpandTemplateNamedAndPositional(t *testing.T) {
	operands := []TemplateOperand{
		{Rendered: "A"},
		{Name: "val", Rendered: "0x1234"},
	}
	got := ExpandTemplate("MOV %0, %[val]", operands)
	if got != "MOV A, 0x1234" {
		t.Fatalf("expected substitution, got %q", got)
	}
}

func TestExpandTemplateVerbatimNoOperands(t *testing.T) {
	got := ExpandTemplate("MOV ST, 0xffff", nil)
	if got != "MOV ST, 0xffff" {
		t.Fatalf("expected verbatim passthrough, got %q", got)
	}
}

func TestRenderImmediate(t *testing.T) {
	if got := RenderImmediate(0xffff); got != "0xffff" {
		t.Fatalf("expected 0xffff, got %q", got)
	}
}
