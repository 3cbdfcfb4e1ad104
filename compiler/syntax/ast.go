package syntax

import "strings"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Tern
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Type references
// ---------------------------------------------------------------------------

// TypeRef is a written type: a builtin scalar name followed by zero or more [].
type TypeRef struct {
	SpanVal Span
	Name    string
	Rank    int // number of [] suffixes
}

func (n *TypeRef) Span() Span { return n.SpanVal }
func (n *TypeRef) node()      {}

func (n *TypeRef) String() string {
	return n.Name + strings.Repeat("[]", n.Rank)
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal. Value holds the magnitude;
// a leading minus is a separate Unary node.
type IntLiteral struct {
	SpanVal Span
	Value   uint64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// CharLiteral represents a character literal ('a').
type CharLiteral struct {
	SpanVal Span
	Value   rune
}

func (n *CharLiteral) Span() Span { return n.SpanVal }
func (n *CharLiteral) node()      {}
func (n *CharLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// Name represents an identifier reference.
type Name struct {
	SpanVal Span
	Name    string
}

func (n *Name) Span() Span { return n.SpanVal }
func (n *Name) node()      {}
func (n *Name) expr()      {}

// Assignment represents target = value, or a compound form such as
// target += value when Op is non-empty.
type Assignment struct {
	SpanVal Span
	Target  Expr
	Op      string // underlying binary operator for compound forms, "" otherwise
	Value   Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) expr()      {}

// Binary represents a binary operator application.
type Binary struct {
	SpanVal Span
	Op      string
	Left    Expr
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary represents a prefix operator application.
type Unary struct {
	SpanVal Span
	Op      string
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Call represents callee(args...).
type Call struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// Index represents target[index].
type Index struct {
	SpanVal Span
	Target  Expr
	Index   Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// Member represents target.name.
type Member struct {
	SpanVal Span
	Target  Expr
	Name    string
}

func (n *Member) Span() Span { return n.SpanVal }
func (n *Member) node()      {}
func (n *Member) expr()      {}

// Cast represents an explicit conversion: operand as type.
type Cast struct {
	SpanVal Span
	Operand Expr
	Type    *TypeRef
}

func (n *Cast) Span() Span { return n.SpanVal }
func (n *Cast) node()      {}
func (n *Cast) expr()      {}

// NewArray represents new T[size].
type NewArray struct {
	SpanVal Span
	Elem    *TypeRef
	Size    Expr
}

func (n *NewArray) Span() Span { return n.SpanVal }
func (n *NewArray) node()      {}
func (n *NewArray) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// VarDecl declares a variable or constant, optionally typed and initialized.
type VarDecl struct {
	SpanVal Span
	Name    string
	Const   bool
	Type    *TypeRef // nil when inferred
	Init    Expr     // nil when absent
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) node()      {}
func (n *VarDecl) stmt()      {}

// Block is a braced statement list introducing a scope.
type Block struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// If represents if (cond) then [else else].
type If struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil when absent
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While represents while (cond) body.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// For represents for (init; cond; post) body. Any header part may be nil.
type For struct {
	SpanVal Span
	Init    Stmt
	Cond    Expr
	Post    Expr
	Body    Stmt
}

func (n *For) Span() Span { return n.SpanVal }
func (n *For) node()      {}
func (n *For) stmt()      {}

// Break represents break;
type Break struct {
	SpanVal Span
}

func (n *Break) Span() Span { return n.SpanVal }
func (n *Break) node()      {}
func (n *Break) stmt()      {}

// Continue represents continue;
type Continue struct {
	SpanVal Span
}

func (n *Continue) Span() Span { return n.SpanVal }
func (n *Continue) node()      {}
func (n *Continue) stmt()      {}

// Return represents return [value];
type Return struct {
	SpanVal Span
	Value   Expr // nil for a bare return
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Param is a function parameter.
type Param struct {
	SpanVal Span
	Name    string
	Type    *TypeRef
}

func (n *Param) Span() Span { return n.SpanVal }
func (n *Param) node()      {}

// FuncDecl represents a function definition.
type FuncDecl struct {
	SpanVal Span
	Name    string
	Params  []*Param
	Result  *TypeRef // nil means void
	Body    *Block
}

func (n *FuncDecl) Span() Span { return n.SpanVal }
func (n *FuncDecl) node()      {}

// ImportDecl imports a library symbol by qualified name. When Signature is
// set only the overload with exactly those parameter (and, if given, result)
// types is imported.
type ImportDecl struct {
	SpanVal   Span
	Path      string // e.g. "std.io.println"
	Signature bool
	Params    []*TypeRef
	Result    *TypeRef // nil when not constrained
}

func (n *ImportDecl) Span() Span { return n.SpanVal }
func (n *ImportDecl) node()      {}

// LocalName returns the last component of the import path.
func (n *ImportDecl) LocalName() string {
	if i := strings.LastIndexByte(n.Path, '.'); i >= 0 {
		return n.Path[i+1:]
	}
	return n.Path
}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// SourceFile represents a complete source file.
type SourceFile struct {
	SpanVal    Span
	Imports    []*ImportDecl
	Globals    []*VarDecl
	Funcs      []*FuncDecl
	Statements []Stmt // top-level statements forming the script routine
}

func (n *SourceFile) Span() Span { return n.SpanVal }
func (n *SourceFile) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// ZeroSpan returns an empty span.
func ZeroSpan() Span {
	return Span{}
}
