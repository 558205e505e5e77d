package lower

import (
	"fmt"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/diag"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// Walker is the single-pass statement/expression lowering driver of
// spec.md §4.5, grounded on the teacher's pkg/rtlgen/stmt.go dispatch
// style (one method per statement kind, recursive descent) and
// pkg/cminorgen/stack.go for address-taken (pointer-aliasing) handling —
// folded here into one emit-directly walk instead of IR-to-IR lowering.
type Walker struct {
	Target target.Target
	Types  *ctypes.Interner
	Diags  *diag.Bag

	strLabels  map[string]string
	strOrder   []string
	strCounter int
	returned   bool
	loopLabels []loopCtx
}

type loopCtx struct{ breakLabel, continueLabel string }

// NewWalker creates a Walker targeting tgt, reporting diagnostics to diags.
func NewWalker(tgt target.Target, types *ctypes.Interner, diags *diag.Bag) *Walker {
	return &Walker{Target: tgt, Types: types, Diags: diags, strLabels: make(map[string]string)}
}

// StringLiterals returns every distinct string literal collected during
// lowering, paired with its assigned read-only-data label, in first-seen
// order (spec.md §4.4's string-literal collection, grounded on the
// teacher's cshmgen/program.go global collection pass).
func (w *Walker) StringLiterals() []StringLiteral {
	out := make([]StringLiteral, len(w.strOrder))
	for i, v := range w.strOrder {
		out[i] = StringLiteral{Label: w.strLabels[v], Value: v}
	}
	return out
}

// StringLiteral is one collected literal and its assigned label.
type StringLiteral struct {
	Label string
	Value string
}

func toFuncDefInfo(fn *ast.FuncDef) target.FuncDefInfo {
	return target.FuncDefInfo{
		Name:       fn.Name,
		Params:     fn.Params,
		ReturnType: fn.ReturnType,
		IsIRQ:      fn.IsIRQ,
		IsNMI:      fn.IsNMI,
	}
}

// LowerFunction emits one complete function: entry, body, and (if control
// falls off the end) an implicit epilogue.
func (w *Walker) LowerFunction(e *target.Emitter, fn *ast.FuncDef) {
	e.FuncTag = fn.Name
	info := toFuncDefInfo(fn)
	w.Target.EmitFunctionEntry(e, info)
	w.returned = false
	w.Stmt(e, fn.Body)
	if !w.returned {
		w.Target.EmitReturn(e, info, nil)
	}
}

func wordsOf(t *ctypes.Type) int {
	if t == nil {
		return 1
	}
	n := t.Size()
	if n < 1 {
		n = 1
	}
	return n
}

// Stmt dispatches on s's concrete type (§4.5 "Statements").
func (w *Walker) Stmt(e *target.Emitter, s ast.Stmt) {
	if w.returned {
		return // unreachable code after an explicit return is silently dropped
	}
	switch st := s.(type) {
	case *ast.Multi:
		e.Scope = e.Scope.Push()
		for _, sub := range st.Stmts {
			w.Stmt(e, sub)
		}
		e.Scope = e.Scope.Pop()
	case *ast.If:
		w.lowerIf(e, st)
	case *ast.While:
		w.lowerWhile(e, st)
	case *ast.DoWhile:
		w.lowerDoWhile(e, st)
	case *ast.For:
		w.lowerFor(e, st)
	case *ast.Return:
		var val loc.Location
		if st.Expr != nil {
			val = w.Expr(e, st.Expr, loc.NewReturnValue(nil))
		}
		w.Target.EmitReturn(e, target.FuncDefInfo{Name: e.FuncTag}, val)
		w.returned = true
	case *ast.VarDecl:
		w.lowerVarDecl(e, st)
	case *ast.ExprStmt:
		v := w.Expr(e, st.Expr, nil)
		e.Scope.Unuse(v)
	case *ast.InlineAsm:
		w.lowerInlineAsm(e, st)
	case *ast.Break:
		if n := len(w.loopLabels); n > 0 {
			w.Target.EmitJump(e, w.loopLabels[n-1].breakLabel)
		} else {
			w.Diags.Errorf(diag.KindSemantic, diag.Position{}, "break outside of loop or switch")
		}
	case *ast.Continue:
		if n := len(w.loopLabels); n > 0 {
			w.Target.EmitJump(e, w.loopLabels[n-1].continueLabel)
		} else {
			w.Diags.Errorf(diag.KindSemantic, diag.Position{}, "continue outside of loop")
		}
	case *ast.Goto:
		w.Target.EmitJump(e, st.Label)
	case *ast.LabeledStmt:
		e.Out.EmitLabel(st.Label)
		w.Stmt(e, st.Stmt)
	case *ast.Switch:
		w.lowerSwitch(e, st)
	}
}

func (w *Walker) lowerIf(e *target.Emitter, st *ast.If) {
	lFalse := e.NewLabel("else")
	lEnd := e.NewLabel("endif")
	w.logic(e, st.Cond, "", lFalse, flowTrue)
	w.returned = false
	savedReturned := w.returned
	w.Stmt(e, st.Then)
	thenReturned := w.returned
	w.returned = savedReturned
	if st.Else != nil {
		w.Target.EmitJump(e, lEnd)
	}
	e.Out.EmitLabel(lFalse)
	if st.Else != nil {
		w.Stmt(e, st.Else)
		elseReturned := w.returned
		e.Out.EmitLabel(lEnd)
		w.returned = thenReturned && elseReturned
	} else {
		w.returned = false
	}
}

func (w *Walker) lowerWhile(e *target.Emitter, st *ast.While) {
	lCheck := e.NewLabel("check")
	lBody := e.NewLabel("body")
	lEnd := e.NewLabel("end")
	w.Target.EmitJump(e, lCheck)
	e.Out.EmitLabel(lBody)
	w.loopLabels = append(w.loopLabels, loopCtx{breakLabel: lEnd, continueLabel: lCheck})
	w.Stmt(e, st.Body)
	w.loopLabels = w.loopLabels[:len(w.loopLabels)-1]
	w.returned = false
	e.Out.EmitLabel(lCheck)
	w.logic(e, st.Cond, lBody, "", flowFalse)
	e.Out.EmitLabel(lEnd)
}

func (w *Walker) lowerDoWhile(e *target.Emitter, st *ast.DoWhile) {
	lBody := e.NewLabel("body")
	lCheck := e.NewLabel("check")
	lEnd := e.NewLabel("end")
	e.Out.EmitLabel(lBody)
	w.loopLabels = append(w.loopLabels, loopCtx{breakLabel: lEnd, continueLabel: lCheck})
	w.Stmt(e, st.Body)
	w.loopLabels = w.loopLabels[:len(w.loopLabels)-1]
	w.returned = false
	e.Out.EmitLabel(lCheck)
	w.logic(e, st.Cond, lBody, "", flowFalse)
	e.Out.EmitLabel(lEnd)
}

func (w *Walker) lowerFor(e *target.Emitter, st *ast.For) {
	e.Scope = e.Scope.Push()
	if st.Init != nil {
		w.Stmt(e, st.Init)
	}
	lCheck := e.NewLabel("check")
	lBody := e.NewLabel("body")
	lEnd := e.NewLabel("end")
	lStep := e.NewLabel("step")
	w.Target.EmitJump(e, lCheck)
	e.Out.EmitLabel(lBody)
	w.loopLabels = append(w.loopLabels, loopCtx{breakLabel: lEnd, continueLabel: lStep})
	w.Stmt(e, st.Body)
	w.loopLabels = w.loopLabels[:len(w.loopLabels)-1]
	w.returned = false
	e.Out.EmitLabel(lStep)
	if st.Step != nil {
		v := w.Expr(e, st.Step, nil)
		e.Scope.Unuse(v)
	}
	e.Out.EmitLabel(lCheck)
	if st.Cond != nil {
		w.logic(e, st.Cond, lBody, "", flowFalse)
	} else {
		w.Target.EmitJump(e, lBody)
	}
	e.Out.EmitLabel(lEnd)
	e.Scope = e.Scope.Pop()
}

func (w *Walker) lowerVarDecl(e *target.Emitter, st *ast.VarDecl) {
	n := wordsOf(st.Type)
	def := e.Scope.GetTmp(n, false, st.Type)
	bound := def
	if reg, ok := e.Scope.PickEmptyRegister(n); ok {
		r := loc.NewRegister(st.Type, reg)
		r.Info.Default = def
		bound = r
	}
	if st.Init != nil {
		val := w.Expr(e, st.Init, bound)
		if !loc.Equivalent(val, bound) {
			w.Target.EmitMovN(e, bound, val, n)
		}
		e.Scope.Declare(st.Name, bound)
	} else {
		e.Scope.Declare(st.Name, loc.NewUnassigned(st.Type, def))
	}
}

func (w *Walker) lowerSwitch(e *target.Emitter, st *ast.Switch) {
	// Lowered as a cascade of equality comparisons against the tag
	// expression, matching the teacher's rtlgen/stmt.go translateSwitch
	// approach rather than building a jump table (see DESIGN.md).
	tagVal := w.Expr(e, st.Tag, nil)
	lEnd := e.NewLabel("switchend")
	w.loopLabels = append(w.loopLabels, loopCtx{breakLabel: lEnd, continueLabel: lEnd})
	var caseLabels []string
	defaultLabel := ""
	for range st.Cases {
		caseLabels = append(caseLabels, e.NewLabel("case"))
	}
	for i, c := range st.Cases {
		if c.IsDefault {
			defaultLabel = caseLabels[i]
			continue
		}
		val := w.Expr(e, c.Value, nil)
		cond := w.Target.EmitMath2(e, "==", nil, tagVal, val)
		w.Target.EmitBranch(e, cond, caseLabels[i], "")
	}
	if defaultLabel != "" {
		w.Target.EmitJump(e, defaultLabel)
	} else {
		w.Target.EmitJump(e, lEnd)
	}
	for i, c := range st.Cases {
		e.Out.EmitLabel(caseLabels[i])
		for _, sub := range c.Body {
			w.Stmt(e, sub)
		}
		w.returned = false
	}
	e.Out.EmitLabel(lEnd)
	w.loopLabels = w.loopLabels[:len(w.loopLabels)-1]
}

func (w *Walker) lowerInlineAsm(e *target.Emitter, st *ast.InlineAsm) {
	var operands []target.TemplateOperand
	bind := func(op ast.InlineAsmOperand) {
		c := target.ParseConstraint(op.Constraint)
		v := w.Expr(e, op.Expr, nil)
		if !constraintAllows(c, v) {
			if c.AllowsRegister() {
				reg, _ := e.Scope.PickRegister(true, nil)
				dst := loc.NewRegister(v.Info().Type, reg)
				w.Target.EmitMovN(e, dst, v, wordsOf(v.Info().Type))
				v = dst
			}
		}
		rendered := renderOperand(v)
		operands = append(operands, target.TemplateOperand{Name: op.Name, Rendered: rendered})
	}
	for _, o := range st.Outputs {
		bind(o)
	}
	for _, o := range st.Inputs {
		bind(o)
	}
	line := target.ExpandTemplate(st.Template, operands)
	if err := w.Target.Asm().AssembleLine(e, line); err != nil {
		w.Diags.Errorf(diag.KindBackend, diag.Position{}, "%v", err)
	}
}

func constraintAllows(c target.Constraint, v loc.Location) bool {
	switch v.(type) {
	case loc.Register:
		return c.AllowsRegister()
	case loc.Const:
		return c.Classes&target.ClassConstKnown != 0 || c.Classes&target.ClassConstUnknown != 0
	default:
		return c.AllowsMemory()
	}
}

func renderOperand(v loc.Location) string {
	switch lv := v.(type) {
	case loc.Const:
		return target.RenderImmediate(lv.Value)
	case loc.Label:
		return target.RenderLabel(lv.Name)
	case loc.StackOffset:
		return target.RenderStack(lv.Offset)
	case loc.Register:
		return fmt.Sprintf("R%d", lv.Reg)
	default:
		return ""
	}
}
