// Package lower flattens bound routines into goto form: a linear list of
// declarations, expression statements, returns, labels and (conditional)
// jumps. Structured control flow and compound assignment do not survive.
package lower

import "github.com/chazu/tern/compiler/types"

// LabelID identifies a jump target within one function. IDs are minted
// during lowering and carry no positional meaning.
type LabelID uint32

// Stmt is a lowered statement.
type Stmt interface {
	stmt()
}

// Expr is a lowered expression.
type Expr interface {
	Type() types.TypeID
	expr()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Declare allocates storage for a local. It never carries an initializer.
type Declare struct {
	Symbol *types.Symbol
}

// ExprStmt evaluates an expression and discards any result.
type ExprStmt struct {
	Expr Expr
}

// Return leaves the function; Value is nil in void routines.
type Return struct {
	Value Expr
}

// Goto jumps unconditionally.
type Goto struct {
	Target LabelID
}

// CondGoto jumps when Cond is true and falls through otherwise.
type CondGoto struct {
	Cond   Expr
	Target LabelID
}

// Label marks a jump target.
type Label struct {
	ID LabelID
}

func (*Declare) stmt()  {}
func (*ExprStmt) stmt() {}
func (*Return) stmt()   {}
func (*Goto) stmt()     {}
func (*CondGoto) stmt() {}
func (*Label) stmt()    {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal is a constant; Value is nil for the zero reference value.
type Literal struct {
	Value   interface{}
	TypeVal types.TypeID
}

// SymbolRef reads a local, parameter, global or library field.
type SymbolRef struct {
	Symbol *types.Symbol
}

// Assign stores Value into Target (a SymbolRef or Index) and yields it.
type Assign struct {
	Target Expr
	Value  Expr
}

// Binary is an intrinsic operation on two operands of type Operand.
type Binary struct {
	Op      types.Operator
	Operand types.TypeID
	Left    Expr
	Right   Expr
	TypeVal types.TypeID
}

// Unary is an intrinsic operation on one operand.
type Unary struct {
	Op      types.Operator
	Operand Expr
	TypeVal types.TypeID
}

// Call invokes a user function or library callable.
type Call struct {
	Callable types.TypeID
	Args     []Expr
	TypeVal  types.TypeID
}

// Conversion changes a value's type. Identity conversions are dropped.
type Conversion struct {
	Kind    types.Conversion
	Operand Expr
	TypeVal types.TypeID
}

// Index reads an array element or string character.
type Index struct {
	Target  Expr
	Index   Expr
	TypeVal types.TypeID
}

// Length reads the length of an array or string.
type Length struct {
	Target Expr
}

// NewArray allocates an array.
type NewArray struct {
	Elem    types.TypeID
	Size    Expr
	TypeVal types.TypeID
}

// Invalid stands in for an expression that failed to bind. Code
// generation refuses it.
type Invalid struct{}

func (n *Literal) Type() types.TypeID    { return n.TypeVal }
func (n *SymbolRef) Type() types.TypeID  { return n.Symbol.Type }
func (n *Assign) Type() types.TypeID     { return n.Target.Type() }
func (n *Binary) Type() types.TypeID     { return n.TypeVal }
func (n *Unary) Type() types.TypeID      { return n.TypeVal }
func (n *Call) Type() types.TypeID       { return n.TypeVal }
func (n *Conversion) Type() types.TypeID { return n.TypeVal }
func (n *Index) Type() types.TypeID      { return n.TypeVal }
func (n *Length) Type() types.TypeID     { return types.I32 }
func (n *NewArray) Type() types.TypeID   { return n.TypeVal }
func (n *Invalid) Type() types.TypeID    { return types.Error }

func (*Literal) expr()    {}
func (*SymbolRef) expr()  {}
func (*Assign) expr()     {}
func (*Binary) expr()     {}
func (*Unary) expr()      {}
func (*Call) expr()       {}
func (*Conversion) expr() {}
func (*Index) expr()      {}
func (*Length) expr()     {}
func (*NewArray) expr()   {}
func (*Invalid) expr()    {}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Function is a lowered routine.
type Function struct {
	Name     string
	Callable types.TypeID // NoType for the initializer and script
	Params   []*types.Symbol
	Result   types.TypeID
	Body     []Stmt
}

// Program mirrors bound.Program in lowered form.
type Program struct {
	Globals   []*types.Symbol
	Init      *Function
	Functions []*Function
	Script    *Function
	Entry     *Function
}

// Routines returns Init, the user functions, then Script when present.
func (p *Program) Routines() []*Function {
	out := make([]*Function, 0, len(p.Functions)+2)
	out = append(out, p.Init)
	out = append(out, p.Functions...)
	if p.Script != nil {
		out = append(out, p.Script)
	}
	return out
}
