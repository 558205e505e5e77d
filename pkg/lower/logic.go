package lower

import (
	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/loc"
	"github.com/robotman2412/lily-cc-go/pkg/target"
)

// flowKind names which outcome of a condition is the fallthrough, so the
// driver can eliminate the final branch (spec.md §4.5's logic/flow_type).
type flowKind int

const (
	flowTrue  flowKind = iota // falling through means the condition was true
	flowFalse                 // falling through means the condition was false
)

// logic is the short-circuit driver of spec.md §4.5: if expr's root
// operator is &&, ||, or !, it recursively produces branches to lTrue/
// lFalse, inverting labels through ! and reusing one side's branch
// through &&/||. Any other expression is evaluated once with a Condition
// hint and a single branch is emitted. Either of lTrue/lFalse may be ""
// (fallthrough).
func (w *Walker) logic(e *target.Emitter, expr ast.Expr, lTrue, lFalse string, flow flowKind) {
	if un, ok := expr.(*ast.UnaryOp); ok && un.Op == "!" {
		w.logic(e, un.Operand, lFalse, lTrue, invert(flow))
		return
	}
	if bin, ok := expr.(*ast.BinaryOp); ok && (bin.Op == "&&" || bin.Op == "||") {
		if bin.Op == "&&" {
			// Both sides must be true to reach lTrue; a false left side
			// jumps straight to lFalse, reusing that branch instead of
			// re-evaluating the right side.
			mid := lFalse
			if mid == "" {
				mid = e.NewLabel("and")
			}
			w.logic(e, bin.Left, "", mid, flowTrue)
			w.logic(e, bin.Right, lTrue, lFalse, flow)
			if mid != lFalse {
				e.Out.EmitLabel(mid)
			}
		} else {
			mid := lTrue
			if mid == "" {
				mid = e.NewLabel("or")
			}
			w.logic(e, bin.Left, mid, "", flowFalse)
			w.logic(e, bin.Right, lTrue, lFalse, flow)
			if mid != lTrue {
				e.Out.EmitLabel(mid)
			}
		}
		return
	}
	cond := w.Expr(e, expr, loc.NewCondition(nil, loc.CondNE))
	w.Target.EmitBranch(e, cond, lTrue, lFalse)
}

func invert(flow flowKind) flowKind {
	if flow == flowTrue {
		return flowFalse
	}
	return flowTrue
}
