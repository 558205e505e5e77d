package lower

import (
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/asm"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/diag"
	"github.com/robotman2412/lily-cc-go/pkg/parser"
	"github.com/robotman2412/lily-cc-go/pkg/scope"
	"github.com/robotman2412/lily-cc-go/pkg/target"
	"github.com/robotman2412/lily-cc-go/pkg/target/gr8cpu"
)

// compileOne runs one source string through parse+lower+link for
// gr8cpu-r3, the way cmd/lilycc does, and returns the linked program.
func compileOne(t *testing.T, source string) (*asm.Linked, *diag.Bag) {
	t.Helper()
	tgt := gr8cpu.New()
	interner := ctypes.NewInterner(tgt.WordBytes())
	p := parser.New(source, "test.c", interner)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	diags := diag.NewBag()
	builder := asm.NewBuilder(1, !tgt.LittleEndian())
	walker := NewWalker(tgt, interner, diags)

	for _, fn := range prog.Funcs {
		if fn.Body == nil {
			continue
		}
		e := &target.Emitter{
			Out:   builder,
			Types: interner,
			Scope: scope.NewRootScope(tgt.NumRegisters(), fn.Name),
		}
		builder.SelectSection(".text", 1)
		walker.LowerFunction(e, fn)
	}

	linked, err := builder.Link()
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	return linked, diags
}

func TestLowerReturnConstant(t *testing.T) {
	linked, diags := compileOne(t, `int main() { return 42; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if _, ok := linked.Labels["main"]; !ok {
		t.Fatalf("expected a main label, got %+v", linked.Labels)
	}
}

func TestLowerArithmeticExpression(t *testing.T) {
	linked, diags := compileOne(t, `int add(int a, int b) { return a + b; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if _, ok := linked.Labels["add"]; !ok {
		t.Fatalf("expected an add label, got %+v", linked.Labels)
	}
}

func TestLowerIfElseBothBranchesReturn(t *testing.T) {
	source := `int sign(int x) {
		if (x) {
			return 1;
		} else {
			return 0;
		}
	}`
	_, diags := compileOne(t, source)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
}

func TestLowerWhileLoop(t *testing.T) {
	source := `int countdown(int n) {
		while (n) {
			n = n - 1;
		}
		return n;
	}`
	_, diags := compileOne(t, source)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
}

func TestLowerSwitchCascade(t *testing.T) {
	source := `int classify(int x) {
		switch (x) {
		case 1:
			return 10;
		case 2:
			return 20;
		default:
			return 0;
		}
	}`
	linked, diags := compileOne(t, source)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if _, ok := linked.Labels["classify"]; !ok {
		t.Fatalf("expected a classify label, got %+v", linked.Labels)
	}
}

func TestLowerStringLiteralCollection(t *testing.T) {
	source := `int main() {
		char *s = "hi";
		return 0;
	}`
	tgt := gr8cpu.New()
	interner := ctypes.NewInterner(tgt.WordBytes())
	p := parser.New(source, "test.c", interner)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	diags := diag.NewBag()
	builder := asm.NewBuilder(1, !tgt.LittleEndian())
	walker := NewWalker(tgt, interner, diags)
	for _, fn := range prog.Funcs {
		e := &target.Emitter{
			Out:   builder,
			Types: interner,
			Scope: scope.NewRootScope(tgt.NumRegisters(), fn.Name),
		}
		builder.SelectSection(".text", 1)
		walker.LowerFunction(e, fn)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	lits := walker.StringLiterals()
	if len(lits) != 1 || lits[0].Value != "hi" {
		t.Fatalf("expected one collected string literal \"hi\", got %+v", lits)
	}
}
