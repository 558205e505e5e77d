// Package ast defines the C abstract syntax tree nodes consumed by
// pkg/lower. Node shapes follow the tagged-union-via-interface-plus-
// marker-method idiom the teacher uses for its own IR nodes in
// pkg/ltl/ast.go.
package ast

import "github.com/robotman2412/lily-cc-go/pkg/ctypes"

// Pos is a source position, matching pkg/diag.Position's shape so the
// parser can build one without importing pkg/diag.
type Pos struct {
	File   string
	Line   int
	Column int
}

// Stmt is the tagged variant of a C statement.
type Stmt interface {
	implStmt()
	Position() Pos
}

type stmtBase struct{ Pos Pos }

func (s stmtBase) Position() Pos { return s.Pos }

// Multi is a brace-delimited block: push scope, generate each statement,
// pop scope (spec.md §4.5).
type Multi struct {
	stmtBase
	Stmts []Stmt
}

func (*Multi) implStmt() {}

// If is an if/else statement.
type If struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else branch
}

func (*If) implStmt() {}

// While is a pre-tested loop.
type While struct {
	stmtBase
	Cond Expr
	Body Stmt
}

func (*While) implStmt() {}

// DoWhile is a post-tested loop.
type DoWhile struct {
	stmtBase
	Body Stmt
	Cond Expr
}

func (*DoWhile) implStmt() {}

// For is a C for-loop; any of Init/Cond/Step may be nil.
type For struct {
	stmtBase
	Init Stmt
	Cond Expr
	Step Expr
	Body Stmt
}

func (*For) implStmt() {}

// Return is a return statement; Expr is nil for a bare "return;".
type Return struct {
	stmtBase
	Expr Expr
}

func (*Return) implStmt() {}

// VarDecl declares a local variable, with an optional initializer.
type VarDecl struct {
	stmtBase
	Name string
	Type *ctypes.Type
	Init Expr // nil if uninitialised
}

func (*VarDecl) implStmt() {}

// ExprStmt evaluates an expression for its side effects and discards the
// result.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (*ExprStmt) implStmt() {}

// InlineAsmOperand is one constrained operand of an InlineAsm statement.
type InlineAsmOperand struct {
	Name       string // the "%[name]" substitution key, "" if positional-only
	Constraint string // raw constraint string, e.g. "=r", "r", "m"
	Expr       Expr
}

// InlineAsm is a GCC-style `asm("template" : outputs : inputs : clobbers)`
// statement (§4.6 inline assembly).
type InlineAsm struct {
	stmtBase
	Template string
	Outputs  []InlineAsmOperand
	Inputs   []InlineAsmOperand
	Clobbers []string
}

func (*InlineAsm) implStmt() {}

// Break exits the innermost loop or switch. Supplemented beyond spec.md's
// explicit statement list as a natural, unavoidable C feature (see
// DESIGN.md).
type Break struct{ stmtBase }

func (*Break) implStmt() {}

// Continue restarts the innermost loop's step/condition.
type Continue struct{ stmtBase }

func (*Continue) implStmt() {}

// Goto jumps to a named label within the same function.
type Goto struct {
	stmtBase
	Label string
}

func (*Goto) implStmt() {}

// LabeledStmt attaches a goto target label to the statement it precedes.
type LabeledStmt struct {
	stmtBase
	Label string
	Stmt  Stmt
}

func (*LabeledStmt) implStmt() {}

// SwitchCase is one "case k:" or "default:" arm of a Switch.
type SwitchCase struct {
	Value     Expr // nil for default
	IsDefault bool
	Body      []Stmt
}

// Switch is a C switch statement, lowered as a cascade of comparisons
// (matching the teacher's rtlgen/stmt.go translateSwitch approach, rather
// than a jump table — see DESIGN.md).
type Switch struct {
	stmtBase
	Tag   Expr
	Cases []SwitchCase
}

func (*Switch) implStmt() {}

// Expr is the tagged variant of a C expression. Every node carries a
// resolved Type (§4.1's model assumes types are already attached, or
// attaches them during the preprocessing pass of §4.4).
type Expr interface {
	implExpr()
	Position() Pos
	ExprType() *ctypes.Type
	SetType(*ctypes.Type)
}

type exprBase struct {
	Pos Pos
	Typ *ctypes.Type
}

func (e exprBase) Position() Pos          { return e.Pos }
func (e exprBase) ExprType() *ctypes.Type { return e.Typ }
func (e *exprBase) SetType(t *ctypes.Type) { e.Typ = t }

// IntLit is an integer constant literal.
type IntLit struct {
	exprBase
	Value int64
}

func (*IntLit) implExpr() {}

// StringLit is a string literal; it is collected into a read-only global
// during preprocessing (§4.4) and replaced with a Label reference.
type StringLit struct {
	exprBase
	Value string
}

func (*StringLit) implExpr() {}

// Ident is a variable or function reference by name.
type Ident struct {
	exprBase
	Name string
}

func (*Ident) implExpr() {}

// UnaryOp is a prefix/postfix unary operator.
type UnaryOp struct {
	exprBase
	Op      string // "-", "!", "~", "&", "*", "++pre", "++post", "--pre", "--post"
	Operand Expr
}

func (*UnaryOp) implExpr() {}

// BinaryOp is a binary operator, including assignment ("=") and
// compound-assignment ("+=", etc.), which the lowering walker treats
// specially per spec.md §4.5.
type BinaryOp struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryOp) implExpr() {}

// Ternary is the "?:" conditional expression.
type Ternary struct {
	exprBase
	Cond, Then, Else Expr
}

func (*Ternary) implExpr() {}

// Index is "base[index]" array/pointer subscripting.
type Index struct {
	exprBase
	Base, Idx Expr
}

func (*Index) implExpr() {}

// Call is a function call.
type Call struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func (*Call) implExpr() {}

// Cast is an explicit "(type)expr" conversion.
type Cast struct {
	exprBase
	Operand Expr
}

func (*Cast) implExpr() {}

// Param is one function parameter.
type Param struct {
	Name string
	Type *ctypes.Type
}

// FuncDef is a top-level function definition.
type FuncDef struct {
	Pos        Pos
	Name       string
	ReturnType *ctypes.Type
	Params     []Param
	Variadic   bool
	Body       *Multi
	IsStatic   bool
	IsIRQ      bool // IRQ handler flag, consumed by the target's emit_return
	IsNMI      bool
}

// GlobalVar is a top-level variable declaration.
type GlobalVar struct {
	Pos      Pos
	Name     string
	Type     *ctypes.Type
	Init     Expr // nil for a tentative/bss definition
	IsStatic bool
	Volatile bool
}

// Program is one translation unit's top-level declarations, in source
// order.
type Program struct {
	Funcs   []*FuncDef
	Globals []*GlobalVar
}
