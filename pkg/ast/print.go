package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
)

// Printer renders a parsed Program back to roughly the C syntax it came
// from, for the --dparse debug dump, in the same struct-plus-methods
// shape as the teacher's own backend printers.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every top-level declaration in source order.
func (p *Printer) PrintProgram(prog *Program) {
	for _, g := range prog.Globals {
		p.printGlobal(g)
	}
	for _, fn := range prog.Funcs {
		p.PrintFunc(fn)
	}
}

func (p *Printer) printGlobal(g *GlobalVar) {
	storage := ""
	if g.IsStatic {
		storage = "static "
	}
	if g.Init != nil {
		fmt.Fprintf(p.w, "%s%s %s = %s;\n", storage, typeName(g.Type), g.Name, p.exprString(g.Init))
	} else {
		fmt.Fprintf(p.w, "%s%s %s;\n", storage, typeName(g.Type), g.Name)
	}
}

// PrintFunc prints one function's signature and body.
func (p *Printer) PrintFunc(fn *FuncDef) {
	storage := ""
	if fn.IsStatic {
		storage = "static "
	}
	params := make([]string, len(fn.Params))
	for i, prm := range fn.Params {
		params[i] = typeName(prm.Type) + " " + prm.Name
	}
	if fn.Variadic {
		params = append(params, "...")
	}
	fmt.Fprintf(p.w, "%s%s %s(%s)", storage, typeName(fn.ReturnType), fn.Name, strings.Join(params, ", "))
	if fn.Body == nil {
		fmt.Fprintln(p.w, ";")
		return
	}
	fmt.Fprintln(p.w, " {")
	p.indent++
	for _, s := range fn.Body.Stmts {
		p.printStmt(s)
	}
	p.indent--
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *Printer) printStmt(s Stmt) {
	switch st := s.(type) {
	case *Multi:
		p.line("{")
		p.indent++
		for _, c := range st.Stmts {
			p.printStmt(c)
		}
		p.indent--
		p.line("}")

	case *If:
		p.line("if (%s)", p.exprString(st.Cond))
		p.indent++
		p.printStmt(st.Then)
		p.indent--
		if st.Else != nil {
			p.line("else")
			p.indent++
			p.printStmt(st.Else)
			p.indent--
		}

	case *While:
		p.line("while (%s)", p.exprString(st.Cond))
		p.indent++
		p.printStmt(st.Body)
		p.indent--

	case *DoWhile:
		p.line("do")
		p.indent++
		p.printStmt(st.Body)
		p.indent--
		p.line("while (%s);", p.exprString(st.Cond))

	case *For:
		p.line("for (%s; %s; %s)", p.stmtInline(st.Init), p.exprStringOr(st.Cond), p.exprStringOr(st.Step))
		p.indent++
		p.printStmt(st.Body)
		p.indent--

	case *Return:
		if st.Expr != nil {
			p.line("return %s;", p.exprString(st.Expr))
		} else {
			p.line("return;")
		}

	case *VarDecl:
		if st.Init != nil {
			p.line("%s %s = %s;", typeName(st.Type), st.Name, p.exprString(st.Init))
		} else {
			p.line("%s %s;", typeName(st.Type), st.Name)
		}

	case *ExprStmt:
		p.line("%s;", p.exprString(st.Expr))

	case *InlineAsm:
		p.line("asm(%q);", st.Template)

	case *Break:
		p.line("break;")

	case *Continue:
		p.line("continue;")

	case *Goto:
		p.line("goto %s;", st.Label)

	case *LabeledStmt:
		p.line("%s:", st.Label)
		p.printStmt(st.Stmt)

	case *Switch:
		p.line("switch (%s) {", p.exprString(st.Tag))
		p.indent++
		for _, c := range st.Cases {
			if c.IsDefault {
				p.line("default:")
			} else {
				p.line("case %s:", p.exprString(c.Value))
			}
			p.indent++
			for _, body := range c.Body {
				p.printStmt(body)
			}
			p.indent--
		}
		p.indent--
		p.line("}")

	default:
		p.line("/* unknown statement */")
	}
}

// stmtInline renders an Init clause of a for-loop on one line, since it
// normally appears inside the for(...) header rather than its own line.
func (p *Printer) stmtInline(s Stmt) string {
	switch st := s.(type) {
	case nil:
		return ""
	case *VarDecl:
		if st.Init != nil {
			return fmt.Sprintf("%s %s = %s", typeName(st.Type), st.Name, p.exprString(st.Init))
		}
		return fmt.Sprintf("%s %s", typeName(st.Type), st.Name)
	case *ExprStmt:
		return p.exprString(st.Expr)
	default:
		return ""
	}
}

func (p *Printer) exprStringOr(e Expr) string {
	if e == nil {
		return ""
	}
	return p.exprString(e)
}

func (p *Printer) exprString(e Expr) string {
	switch ex := e.(type) {
	case *IntLit:
		return fmt.Sprintf("%d", ex.Value)
	case *StringLit:
		return fmt.Sprintf("%q", ex.Value)
	case *Ident:
		return ex.Name
	case *UnaryOp:
		switch ex.Op {
		case "++post":
			return p.exprString(ex.Operand) + "++"
		case "--post":
			return p.exprString(ex.Operand) + "--"
		case "++pre":
			return "++" + p.exprString(ex.Operand)
		case "--pre":
			return "--" + p.exprString(ex.Operand)
		default:
			return ex.Op + p.exprString(ex.Operand)
		}
	case *BinaryOp:
		return fmt.Sprintf("%s %s %s", p.exprString(ex.Left), ex.Op, p.exprString(ex.Right))
	case *Ternary:
		return fmt.Sprintf("%s ? %s : %s", p.exprString(ex.Cond), p.exprString(ex.Then), p.exprString(ex.Else))
	case *Index:
		return fmt.Sprintf("%s[%s]", p.exprString(ex.Base), p.exprString(ex.Idx))
	case *Call:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = p.exprString(a)
		}
		return fmt.Sprintf("%s(%s)", p.exprString(ex.Callee), strings.Join(args, ", "))
	case *Cast:
		return fmt.Sprintf("(%s)%s", typeName(ex.ExprType()), p.exprString(ex.Operand))
	default:
		return "?"
	}
}

// typeName renders t the way its declaration would read; unlike
// ctypes.Type it is presentation-only and lives here rather than in
// pkg/ctypes, which has no printer of its own.
func typeName(t *ctypes.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case ctypes.KindSimple:
		return t.Simple.String()
	case ctypes.KindPointer:
		return typeName(t.Elem) + " *"
	case ctypes.KindArray:
		return fmt.Sprintf("%s[%d]", typeName(t.Elem), t.Len)
	case ctypes.KindStruct:
		if t.Name != "" {
			return "struct " + t.Name
		}
		return "struct"
	case ctypes.KindUnion:
		if t.Name != "" {
			return "union " + t.Name
		}
		return "union"
	default:
		return "?"
	}
}
