package lower

import (
	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/diag"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// Expr dispatches on expr's concrete type (§4.5 "Expressions"), lowering
// it toward hint when one is supplied (nil means "anywhere convenient").
// hint is propagated down the left operand only, matching the teacher's
// rtlgen expression translator: the left side is lowered first and, for
// a two-operand node, is given first claim on the caller's hint, since
// that is the operand whose result typically becomes the node's own
// result.
func (w *Walker) Expr(e *target.Emitter, expr ast.Expr, hint loc.Location) loc.Location {
	switch ex := expr.(type) {
	case *ast.IntLit:
		return loc.NewConst(ex.ExprType(), ex.Value)

	case *ast.StringLit:
		label, ok := w.strLabels[ex.Value]
		if !ok {
			w.strCounter++
			label = e.FuncTag + ".LC" + itoaLocal(w.strCounter)
			w.strLabels[ex.Value] = label
			w.strOrder = append(w.strOrder, ex.Value)
		}
		return loc.NewLabel(ex.ExprType(), label)

	case *ast.Ident:
		b, ok := e.Scope.Lookup(ex.Name)
		if !ok {
			w.Diags.Errorf(diag.KindSemantic, posOf(ex), "undeclared identifier %q", ex.Name)
			return loc.NewConst(ex.ExprType(), 0)
		}
		if u, ok := b.Loc.(loc.Unassigned); ok {
			w.Diags.Warnf(diag.KindSemantic, posOf(ex), "%q read before being assigned", ex.Name)
			return u.DefaultLoc
		}
		e.Scope.Touch(regOf(b.Loc))
		return b.Loc

	case *ast.UnaryOp:
		return w.lowerUnary(e, ex, hint)

	case *ast.BinaryOp:
		return w.lowerBinary(e, ex, hint)

	case *ast.Ternary:
		return w.lowerTernary(e, ex, hint)

	case *ast.Index:
		return w.lowerIndexExpr(e, ex, hint)

	case *ast.Call:
		return w.lowerCall(e, ex)

	case *ast.Cast:
		return w.lowerCast(e, ex, hint)

	default:
		return loc.NewVoid()
	}
}

func itoaLocal(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func posOf(e ast.Expr) diag.Position {
	p := e.Position()
	return diag.Position{File: p.File, Line: p.Line, Col: p.Column}
}

func regOf(l loc.Location) int {
	if r, ok := l.(loc.Register); ok {
		return r.Reg
	}
	return -1
}

func (w *Walker) lowerUnary(e *target.Emitter, ex *ast.UnaryOp, hint loc.Location) loc.Location {
	switch ex.Op {
	case "!":
		v := w.Expr(e, ex.Operand, nil)
		return w.Target.EmitMath1(e, "not", hint, v)
	case "-":
		v := w.Expr(e, ex.Operand, hint)
		return w.Target.EmitMath1(e, "neg", hint, v)
	case "~":
		v := w.Expr(e, ex.Operand, hint)
		return w.Target.EmitMath1(e, "com", hint, v)
	case "&":
		v := w.Expr(e, ex.Operand, nil)
		return loc.NewPointer(ex.ExprType(), v)
	case "*":
		v := w.Expr(e, ex.Operand, nil)
		return loc.NewPointer(ex.ExprType(), v)
	case "++pre", "--pre":
		v := w.Expr(e, ex.Operand, nil)
		op := "inc"
		if ex.Op == "--pre" {
			op = "dec"
		}
		res := w.Target.EmitMath1(e, op, v, v)
		if !loc.Equivalent(res, v) {
			w.Target.EmitMovN(e, v, res, wordsOf(ex.ExprType()))
		}
		return v
	case "++post", "--post":
		v := w.Expr(e, ex.Operand, nil)
		old := e.Scope.GetTmp(wordsOf(ex.ExprType()), true, ex.ExprType())
		w.Target.EmitMovN(e, old, v, wordsOf(ex.ExprType()))
		op := "inc"
		if ex.Op == "--post" {
			op = "dec"
		}
		res := w.Target.EmitMath1(e, op, v, v)
		if !loc.Equivalent(res, v) {
			w.Target.EmitMovN(e, v, res, wordsOf(ex.ExprType()))
		}
		return old
	default:
		return w.Expr(e, ex.Operand, hint)
	}
}

func (w *Walker) lowerBinary(e *target.Emitter, ex *ast.BinaryOp, hint loc.Location) loc.Location {
	if ex.Op == "=" {
		dst := w.Expr(e, ex.Left, nil)
		val := w.Expr(e, ex.Right, dst)
		if !loc.Equivalent(val, dst) {
			w.Target.EmitMovN(e, dst, val, wordsOf(ex.ExprType()))
		}
		return dst
	}
	if compoundOp, ok := strippedCompound(ex.Op); ok {
		dst := w.Expr(e, ex.Left, nil)
		rhs := w.Expr(e, ex.Right, nil)
		res := w.Target.EmitMath2(e, compoundOp, dst, dst, rhs)
		if !loc.Equivalent(res, dst) {
			w.Target.EmitMovN(e, dst, res, wordsOf(ex.ExprType()))
		}
		return dst
	}
	if isCmpOp(ex.Op) {
		if w.isZeroLit(ex.Right) && (ex.Op == "==" || ex.Op == "!=") {
			v := w.Expr(e, ex.Left, nil)
			return w.Target.EmitMath1(e, "cmp1", nil, v)
		}
	}
	left := w.Expr(e, ex.Left, hint)
	right := w.Expr(e, ex.Right, nil)
	return w.Target.EmitMath2(e, ex.Op, hint, left, right)
}

func (w *Walker) isZeroLit(e ast.Expr) bool {
	lit, ok := e.(*ast.IntLit)
	return ok && lit.Value == 0
}

func isCmpOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

func strippedCompound(op string) (string, bool) {
	switch op {
	case "+=":
		return "+", true
	case "-=":
		return "-", true
	case "*=":
		return "*", true
	case "/=":
		return "/", true
	case "%=":
		return "%", true
	case "&=":
		return "&", true
	case "|=":
		return "|", true
	case "^=":
		return "^", true
	case "<<=":
		return "<<", true
	case ">>=":
		return ">>", true
	default:
		return "", false
	}
}

func (w *Walker) lowerTernary(e *target.Emitter, ex *ast.Ternary, hint loc.Location) loc.Location {
	dst := hint
	if dst == nil {
		dst = e.Scope.GetTmp(wordsOf(ex.ExprType()), true, ex.ExprType())
	}
	lElse := e.NewLabel("telse")
	lEnd := e.NewLabel("tend")
	w.logic(e, ex.Cond, "", lElse, flowTrue)
	thenVal := w.Expr(e, ex.Then, dst)
	if !loc.Equivalent(thenVal, dst) {
		w.Target.EmitMovN(e, dst, thenVal, wordsOf(ex.ExprType()))
	}
	w.Target.EmitJump(e, lEnd)
	e.Out.EmitLabel(lElse)
	elseVal := w.Expr(e, ex.Else, dst)
	if !loc.Equivalent(elseVal, dst) {
		w.Target.EmitMovN(e, dst, elseVal, wordsOf(ex.ExprType()))
	}
	e.Out.EmitLabel(lEnd)
	return dst
}

func (w *Walker) lowerIndexExpr(e *target.Emitter, ex *ast.Index, hint loc.Location) loc.Location {
	base := w.Expr(e, ex.Base, nil)
	idx := w.Expr(e, ex.Idx, nil)
	return loc.NewIndexed(ex.ExprType(), base, idx)
}

func (w *Walker) lowerCall(e *target.Emitter, ex *ast.Call) loc.Location {
	callee := w.Expr(e, ex.Callee, nil)
	args := make([]loc.Location, len(ex.Args))
	argTypes := make([]*ctypes.Type, len(ex.Args))
	for i, a := range ex.Args {
		args[i] = w.Expr(e, a, nil)
		argTypes[i] = a.ExprType()
	}
	return w.Target.EmitCall(e, callee, args, argTypes)
}

// lowerCast widens or narrows Operand to ex's target type. Narrowing
// simply truncates to the low word(s) (EmitMovN with fewer words);
// widening a signed source sign-extends from its most-significant word,
// an unsigned source zero-extends, matching spec.md §4.5's cast rule.
func (w *Walker) lowerCast(e *target.Emitter, ex *ast.Cast, hint loc.Location) loc.Location {
	v := w.Expr(e, ex.Operand, nil)
	srcWords := wordsOf(ex.Operand.ExprType())
	dstWords := wordsOf(ex.ExprType())
	if dstWords <= srcWords {
		dst := hint
		if dst == nil {
			dst = e.Scope.GetTmp(dstWords, true, ex.ExprType())
		}
		w.Target.EmitMovN(e, dst, v, dstWords)
		return dst
	}
	dst := hint
	if dst == nil {
		dst = e.Scope.GetTmp(dstWords, true, ex.ExprType())
	}
	w.Target.EmitMovN(e, dst, v, srcWords)
	if ex.Operand.ExprType() != nil && ex.Operand.ExprType().Signed() {
		w.Target.EmitMath1(e, "sext", dst, dst)
	} else {
		w.Target.EmitMath1(e, "zext", dst, dst)
	}
	return dst
}
