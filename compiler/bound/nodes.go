// Package bound defines the typed tree produced by the binder. Every
// expression carries its resolved type and value category; names are
// replaced by symbols and operators by the callables they resolved to.
package bound

import (
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
)

// Node is implemented by every bound node.
type Node interface {
	Span() syntax.Span
	node()
}

// Expr is a bound expression.
type Expr interface {
	Node
	Type() types.TypeID
	Category() types.ValueCategory
	expr()
}

// Stmt is a bound statement.
type Stmt interface {
	Node
	stmt()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal is a constant. Value is int64 for signed integers, uint64 for
// unsigned ones, float64, bool, rune or string.
type Literal struct {
	SpanVal syntax.Span
	Value   interface{}
	TypeVal types.TypeID
}

func (n *Literal) Span() syntax.Span             { return n.SpanVal }
func (n *Literal) Type() types.TypeID            { return n.TypeVal }
func (n *Literal) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Literal) node()                         {}
func (n *Literal) expr()                         {}

// SymbolRef reads a local, parameter, global or field.
type SymbolRef struct {
	SpanVal syntax.Span
	Symbol  *types.Symbol
}

func (n *SymbolRef) Span() syntax.Span             { return n.SpanVal }
func (n *SymbolRef) Type() types.TypeID            { return n.Symbol.Type }
func (n *SymbolRef) Category() types.ValueCategory { return n.Symbol.Category() }
func (n *SymbolRef) node()                         {}
func (n *SymbolRef) expr()                         {}

// GroupRef names an overload group. It is only legal as a callee.
type GroupRef struct {
	SpanVal syntax.Span
	Name    string
	Group   types.TypeID
}

func (n *GroupRef) Span() syntax.Span             { return n.SpanVal }
func (n *GroupRef) Type() types.TypeID            { return n.Group }
func (n *GroupRef) Category() types.ValueCategory { return types.CategoryNone }
func (n *GroupRef) node()                         {}
func (n *GroupRef) expr()                         {}

// TypeExpr is a type name appearing in expression position.
type TypeExpr struct {
	SpanVal syntax.Span
	TypeVal types.TypeID
}

func (n *TypeExpr) Span() syntax.Span             { return n.SpanVal }
func (n *TypeExpr) Type() types.TypeID            { return n.TypeVal }
func (n *TypeExpr) Category() types.ValueCategory { return types.CategoryTypeName }
func (n *TypeExpr) node()                         {}
func (n *TypeExpr) expr()                         {}

// Assignment stores Value into Target and yields the stored value.
// Value has already been converted to the target's type.
type Assignment struct {
	SpanVal syntax.Span
	Target  Expr // SymbolRef or Index
	Value   Expr
}

func (n *Assignment) Span() syntax.Span             { return n.SpanVal }
func (n *Assignment) Type() types.TypeID            { return n.Target.Type() }
func (n *Assignment) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Assignment) node()                         {}
func (n *Assignment) expr()                         {}

// CompoundAssignment is target OP= value. Operator is the resolved binary
// callable; Value is converted to its second parameter type and the
// operator's result is implicitly convertible to the target's type.
type CompoundAssignment struct {
	SpanVal  syntax.Span
	Target   Expr
	Operator types.TypeID
	Value    Expr
}

func (n *CompoundAssignment) Span() syntax.Span             { return n.SpanVal }
func (n *CompoundAssignment) Type() types.TypeID            { return n.Target.Type() }
func (n *CompoundAssignment) Category() types.ValueCategory { return types.CategoryReadable }
func (n *CompoundAssignment) node()                         {}
func (n *CompoundAssignment) expr()                         {}

// Binary applies an intrinsic binary operator. Both operands have already
// been converted to the operator's parameter types.
type Binary struct {
	SpanVal  syntax.Span
	Operator types.TypeID
	Left     Expr
	Right    Expr
	TypeVal  types.TypeID
}

func (n *Binary) Span() syntax.Span             { return n.SpanVal }
func (n *Binary) Type() types.TypeID            { return n.TypeVal }
func (n *Binary) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Binary) node()                         {}
func (n *Binary) expr()                         {}

// Unary applies an intrinsic unary operator.
type Unary struct {
	SpanVal  syntax.Span
	Operator types.TypeID
	Operand  Expr
	TypeVal  types.TypeID
}

func (n *Unary) Span() syntax.Span             { return n.SpanVal }
func (n *Unary) Type() types.TypeID            { return n.TypeVal }
func (n *Unary) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Unary) node()                         {}
func (n *Unary) expr()                         {}

// Call invokes a resolved callable, either a user function or a library
// overload. Arguments are converted to the parameter types.
type Call struct {
	SpanVal  syntax.Span
	Callable types.TypeID
	Args     []Expr
	TypeVal  types.TypeID
}

func (n *Call) Span() syntax.Span  { return n.SpanVal }
func (n *Call) Type() types.TypeID { return n.TypeVal }
func (n *Call) Category() types.ValueCategory {
	if n.TypeVal == types.Void {
		return types.CategoryNone
	}
	return types.CategoryReadable
}
func (n *Call) node() {}
func (n *Call) expr() {}

// Conversion changes the type of its operand. Conversions through the
// library (string formatting and parsing) are bound as calls instead.
type Conversion struct {
	SpanVal  syntax.Span
	Kind     types.Conversion
	Operand  Expr
	TypeVal  types.TypeID
	Explicit bool
}

func (n *Conversion) Span() syntax.Span             { return n.SpanVal }
func (n *Conversion) Type() types.TypeID            { return n.TypeVal }
func (n *Conversion) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Conversion) node()                         {}
func (n *Conversion) expr()                         {}

// Index reads (or, as an assignment target, writes) an element of an array
// or a character of a string.
type Index struct {
	SpanVal syntax.Span
	Target  Expr
	Index   Expr
	TypeVal types.TypeID
}

func (n *Index) Span() syntax.Span  { return n.SpanVal }
func (n *Index) Type() types.TypeID { return n.TypeVal }
func (n *Index) Category() types.ValueCategory {
	if n.Target.Type() == types.String {
		return types.CategoryReadable
	}
	return types.CategoryModifiable
}
func (n *Index) node() {}
func (n *Index) expr() {}

// Length is the .length of an array or string.
type Length struct {
	SpanVal syntax.Span
	Target  Expr
}

func (n *Length) Span() syntax.Span             { return n.SpanVal }
func (n *Length) Type() types.TypeID            { return types.I32 }
func (n *Length) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Length) node()                         {}
func (n *Length) expr()                         {}

// NewArray allocates a zeroed array of Size elements.
type NewArray struct {
	SpanVal syntax.Span
	Elem    types.TypeID
	Size    Expr
	TypeVal types.TypeID
}

func (n *NewArray) Span() syntax.Span             { return n.SpanVal }
func (n *NewArray) Type() types.TypeID            { return n.TypeVal }
func (n *NewArray) Category() types.ValueCategory { return types.CategoryReadable }
func (n *NewArray) node()                         {}
func (n *NewArray) expr()                         {}

// Invalid stands in for an expression that could not be bound. Its type is
// always the error type; Children keeps whatever did bind.
type Invalid struct {
	SpanVal  syntax.Span
	Children []Expr
}

func (n *Invalid) Span() syntax.Span             { return n.SpanVal }
func (n *Invalid) Type() types.TypeID            { return types.Error }
func (n *Invalid) Category() types.ValueCategory { return types.CategoryReadable }
func (n *Invalid) node()                         {}
func (n *Invalid) expr()                         {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Block is a sequence of statements sharing one scope.
type Block struct {
	SpanVal    syntax.Span
	Statements []Stmt
}

func (n *Block) Span() syntax.Span { return n.SpanVal }
func (n *Block) node()             {}
func (n *Block) stmt()             {}

// VarDecl declares a local or global. Init is nil without an initializer.
type VarDecl struct {
	SpanVal syntax.Span
	Symbol  *types.Symbol
	Init    Expr
}

func (n *VarDecl) Span() syntax.Span { return n.SpanVal }
func (n *VarDecl) node()             {}
func (n *VarDecl) stmt()             {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	SpanVal syntax.Span
	Expr    Expr
}

func (n *ExprStmt) Span() syntax.Span { return n.SpanVal }
func (n *ExprStmt) node()             {}
func (n *ExprStmt) stmt()             {}

// If is a two-way branch. Else may be nil.
type If struct {
	SpanVal syntax.Span
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

func (n *If) Span() syntax.Span { return n.SpanVal }
func (n *If) node()             {}
func (n *If) stmt()             {}

// While is a pre-tested loop.
type While struct {
	SpanVal syntax.Span
	Cond    Expr
	Body    Stmt
}

func (n *While) Span() syntax.Span { return n.SpanVal }
func (n *While) node()             {}
func (n *While) stmt()             {}

// For is a counted loop. Init, Cond and Post may each be nil.
type For struct {
	SpanVal syntax.Span
	Init    Stmt
	Cond    Expr
	Post    Expr
	Body    Stmt
}

func (n *For) Span() syntax.Span { return n.SpanVal }
func (n *For) node()             {}
func (n *For) stmt()             {}

// Break leaves the innermost loop.
type Break struct {
	SpanVal syntax.Span
}

func (n *Break) Span() syntax.Span { return n.SpanVal }
func (n *Break) node()             {}
func (n *Break) stmt()             {}

// Continue jumps to the innermost loop's next iteration.
type Continue struct {
	SpanVal syntax.Span
}

func (n *Continue) Span() syntax.Span { return n.SpanVal }
func (n *Continue) node()             {}
func (n *Continue) stmt()             {}

// Return leaves the function. Value is nil in void functions.
type Return struct {
	SpanVal syntax.Span
	Value   Expr
}

func (n *Return) Span() syntax.Span { return n.SpanVal }
func (n *Return) node()             {}
func (n *Return) stmt()             {}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Function is a bound routine: a user function, the global initializer or
// the script routine. Callable is NoType for the synthesized routines.
type Function struct {
	SpanVal  syntax.Span
	Name     string
	Callable types.TypeID
	Params   []*types.Symbol
	Result   types.TypeID
	Body     *Block
}

func (n *Function) Span() syntax.Span { return n.SpanVal }
func (n *Function) node()             {}

// Program is the output of binding one compilation unit.
type Program struct {
	Globals   []*types.Symbol
	Init      *Function   // global initializer assignments
	Functions []*Function // user functions in declaration order
	Script    *Function   // top-level statements; nil when there are none
	Entry     *Function   // Script, or the user main; nil if neither exists
}

// Routines returns every function to generate: Init, the user functions,
// then Script when present.
func (p *Program) Routines() []*Function {
	out := make([]*Function, 0, len(p.Functions)+2)
	out = append(out, p.Init)
	out = append(out, p.Functions...)
	if p.Script != nil {
		out = append(out, p.Script)
	}
	return out
}
