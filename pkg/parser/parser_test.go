package parser

import (
	"testing"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	in := ctypes.NewInterner(1)
	p := New(src, "test.c", in)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return prog
}

func TestParseSimpleFunction(t *testing.T) {
	prog := parse(t, `int main() { return 0; }`)
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if fn.Name != "main" {
		t.Fatalf("expected name main, got %s", fn.Name)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected Return, got %T", fn.Body.Stmts[0])
	}
	lit, ok := ret.Expr.(*ast.IntLit)
	if !ok || lit.Value != 0 {
		t.Fatalf("expected IntLit(0), got %#v", ret.Expr)
	}
}

func TestParseFibonacci(t *testing.T) {
	prog := parse(t, `long fib(long n){ if(n==0) return 0; if(n==1) return 1; return fib(n-2)+fib(n-1); }`)
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if len(fn.Params) != 1 || fn.Params[0].Name != "n" {
		t.Fatalf("expected one parameter n, got %#v", fn.Params)
	}
	if len(fn.Body.Stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(fn.Body.Stmts))
	}
	last, ok := fn.Body.Stmts[2].(*ast.Return)
	if !ok {
		t.Fatalf("expected Return, got %T", fn.Body.Stmts[2])
	}
	bin, ok := last.Expr.(*ast.BinaryOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected top-level '+', got %#v", last.Expr)
	}
	if _, ok := bin.Left.(*ast.Call); !ok {
		t.Fatalf("expected left operand to be a call, got %#v", bin.Left)
	}
}

func TestParsePointerAliasing(t *testing.T) {
	prog := parse(t, `int main() { int a=2; int *b=&a; *b=4; return a; }`)
	fn := prog.Funcs[0]
	if len(fn.Body.Stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(fn.Body.Stmts))
	}
	decl, ok := fn.Body.Stmts[1].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl for b, got %T", fn.Body.Stmts[1])
	}
	if decl.Name != "b" || !decl.Type.IsPointer() {
		t.Fatalf("expected pointer declaration for b, got %#v", decl)
	}
	addrOf, ok := decl.Init.(*ast.UnaryOp)
	if !ok || addrOf.Op != "&" {
		t.Fatalf("expected &a initializer, got %#v", decl.Init)
	}
}

func TestParseWhileLoopMMIOPattern(t *testing.T) {
	prog := parse(t, `void f(int *p) { while(*p) { *p = *p; } }`)
	fn := prog.Funcs[0]
	loop, ok := fn.Body.Stmts[0].(*ast.While)
	if !ok {
		t.Fatalf("expected While, got %T", fn.Body.Stmts[0])
	}
	if _, ok := loop.Cond.(*ast.UnaryOp); !ok {
		t.Fatalf("expected dereference condition, got %#v", loop.Cond)
	}
}

func TestParseInlineAsmVerbatim(t *testing.T) {
	prog := parse(t, `void f() { __asm__("MOV ST, 0xffff"); __asm__("SUB ST, [0xffff]"); }`)
	fn := prog.Funcs[0]
	if len(fn.Body.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(fn.Body.Stmts))
	}
	a0, ok := fn.Body.Stmts[0].(*ast.InlineAsm)
	if !ok || a0.Template != "MOV ST, 0xffff" {
		t.Fatalf("expected verbatim asm template, got %#v", fn.Body.Stmts[0])
	}
}

func TestParseEntryPointFunction(t *testing.T) {
	prog := parse(t, `int entry(void) { return 1; }`)
	if len(prog.Funcs) != 1 || len(prog.Funcs[0].Params) != 0 {
		t.Fatalf("expected zero-arg function, got %#v", prog.Funcs)
	}
}

func TestParseSwitch(t *testing.T) {
	prog := parse(t, `int f(int x){ switch(x){ case 1: return 1; case 2: return 2; default: return 0; } }`)
	fn := prog.Funcs[0]
	sw, ok := fn.Body.Stmts[0].(*ast.Switch)
	if !ok {
		t.Fatalf("expected Switch, got %T", fn.Body.Stmts[0])
	}
	if len(sw.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(sw.Cases))
	}
	if !sw.Cases[2].IsDefault {
		t.Fatalf("expected last case to be default")
	}
}
