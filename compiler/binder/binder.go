// Package binder resolves names and types, turning a syntax tree into a
// bound tree.
//
// Binding never stops at the first problem. User errors are recorded in the
// compilation's diagnostic bag and the offending expression is replaced by a
// bound.Invalid carrying the error type, which every later check accepts
// silently so that one mistake produces one diagnostic.
package binder

import (
	"fmt"

	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/builtins"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/scope"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
)

// Names of the synthesized routines.
const (
	InitName   = "<init>"
	ScriptName = "<script>"
	MainName   = "main"
)

// Binder binds one compilation unit.
type Binder struct {
	reg   *types.Registry
	lib   *builtins.Library
	diags *diag.Bag
	ops   *operators

	global *scope.Scope
	scope  *scope.Scope
	fn     *funcContext
}

// funcContext tracks the routine whose body is being bound.
type funcContext struct {
	result types.TypeID
	loops  int
	locals []localInfo
	reads  map[*types.Symbol]bool
}

type localInfo struct {
	sym  *types.Symbol
	span syntax.Span
}

// New creates a binder that registers types in reg, imports from lib and
// reports into diags.
func New(reg *types.Registry, lib *builtins.Library, diags *diag.Bag) *Binder {
	g := scope.NewGlobal()
	return &Binder{
		reg:    reg,
		lib:    lib,
		diags:  diags,
		ops:    newOperators(reg),
		global: g,
		scope:  g,
	}
}

// Global returns the global scope, populated once BindProgram has run.
func (b *Binder) Global() *scope.Scope {
	return b.global
}

func (b *Binder) errorAt(code diag.Code, span syntax.Span, format string, args ...interface{}) {
	b.diags.Errorf(code, span, format, args...)
}

func (b *Binder) warnAt(code diag.Code, span syntax.Span, format string, args ...interface{}) {
	b.diags.Warnf(code, span, format, args...)
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// BindProgram binds a whole source file. Declarations are entered in three
// passes (imports, function signatures, globals) before any function body
// is bound, so bodies may call functions declared later and read any global.
func (b *Binder) BindProgram(file *syntax.SourceFile) *bound.Program {
	for _, imp := range file.Imports {
		b.bindImport(imp)
	}

	type pending struct {
		decl     *syntax.FuncDecl
		callable types.TypeID
		params   []types.TypeID
		result   types.TypeID
	}
	var funcs []pending
	for _, decl := range file.Funcs {
		params, result, callable, ok := b.declareFunction(decl)
		if ok {
			funcs = append(funcs, pending{decl, callable, params, result})
		}
	}

	prog := &bound.Program{}
	prog.Init = b.bindGlobals(file, prog)

	for _, f := range funcs {
		prog.Functions = append(prog.Functions, b.bindFunction(f.decl, f.callable, f.params, f.result))
	}

	if len(file.Statements) > 0 {
		prog.Script = b.bindScript(file)
		prog.Entry = prog.Script
	} else {
		prog.Entry = b.findMain(prog)
	}
	return prog
}

// findMain returns the parameterless user main, if declared.
func (b *Binder) findMain(prog *bound.Program) *bound.Function {
	for _, fn := range prog.Functions {
		if fn.Name == MainName && len(fn.Params) == 0 {
			return fn
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

func (b *Binder) bindImport(d *syntax.ImportDecl) {
	name := d.LocalName()

	if field, ok := b.lib.Field(d.Path); ok {
		if d.Signature {
			b.errorAt(diag.CodeImport, d.Span(), "%s is a field and takes no signature", d.Path)
			return
		}
		sym := types.NewField(name, field.Type, field.Readonly, field.Path)
		if !b.global.Declare(sym) {
			b.errorAt(diag.CodeNameResolution, d.Span(), "%q is already declared in this scope", name)
		}
		return
	}

	group, ok := b.lib.Group(d.Path)
	if !ok {
		b.errorAt(diag.CodeImport, d.Span(), "unknown library symbol %q", d.Path)
		return
	}

	members := b.reg.Members(group)
	if d.Signature {
		params := make([]types.TypeID, len(d.Params))
		for i, p := range d.Params {
			params[i] = b.resolveType(p)
		}
		var result types.TypeID
		if d.Result != nil {
			result = b.resolveType(d.Result)
		}

		var matched []types.TypeID
		for _, m := range members {
			info := b.reg.Callable(m)
			if sameTypes(info.Params, params) && (result == types.NoType || info.Result == result) {
				matched = append(matched, m)
			}
		}
		sig := "(" + b.reg.JoinNames(params) + ")"
		switch len(matched) {
		case 0:
			b.errorAt(diag.CodeImport, d.Span(), "%s has no overload %s", d.Path, sig)
			return
		case 1:
			members = matched
		default:
			b.errorAt(diag.CodeImport, d.Span(), "%s%s matches %d overloads", d.Path, sig, len(matched))
			return
		}
	}

	local, ok := b.localGroup(name, d.Span())
	if !ok {
		return
	}
	for _, m := range members {
		b.reg.AdoptCallable(local, m)
	}
}

// localGroup returns the global overload group called name, creating it on
// first use.
func (b *Binder) localGroup(name string, span syntax.Span) (types.TypeID, bool) {
	if sym := b.global.LookupLocal(name); sym != nil {
		if sym.Kind != types.SymGroup {
			b.errorAt(diag.CodeNameResolution, span, "%q is already declared in this scope", name)
			return types.NoType, false
		}
		return sym.Type, true
	}
	g := b.reg.NewGroup(name, "")
	b.global.Declare(types.NewGroupSymbol(name, g))
	return g, true
}

func sameTypes(a, b []types.TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// resolveType maps a written type to a registry type. Unknown names and
// arrays of void are reported and yield the error type.
func (b *Binder) resolveType(ref *syntax.TypeRef) types.TypeID {
	t, ok := types.LookupBuiltin(ref.Name)
	if !ok {
		b.errorAt(diag.CodeNameResolution, ref.Span(), "unknown type %q", ref.Name)
		return types.Error
	}
	if ref.Rank > 0 && t == types.Void {
		b.errorAt(diag.CodeType, ref.Span(), "cannot make an array of void")
		return types.Error
	}
	for i := 0; i < ref.Rank; i++ {
		t = b.reg.ArrayOf(t)
	}
	return t
}

// valueType resolves a type that must describe a value (not void).
func (b *Binder) valueType(ref *syntax.TypeRef) types.TypeID {
	t := b.resolveType(ref)
	if t == types.Void {
		b.errorAt(diag.CodeType, ref.Span(), "void is not a value type")
		return types.Error
	}
	return t
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// declareFunction enters a function's signature into its overload group.
func (b *Binder) declareFunction(d *syntax.FuncDecl) ([]types.TypeID, types.TypeID, types.TypeID, bool) {
	params := make([]types.TypeID, len(d.Params))
	for i, p := range d.Params {
		params[i] = b.valueType(p.Type)
	}
	result := types.Void
	if d.Result != nil {
		result = b.resolveType(d.Result)
	}

	group, ok := b.localGroup(d.Name, d.Span())
	if !ok {
		return nil, types.NoType, types.NoType, false
	}
	for _, m := range b.reg.Members(group) {
		if sameTypes(b.reg.Callable(m).Params, params) {
			b.errorAt(diag.CodeNameResolution, d.Span(), "function %s(%s) is already declared",
				d.Name, b.reg.JoinNames(params))
			return nil, types.NoType, types.NoType, false
		}
	}
	return params, result, b.reg.AddCallable(group, result, params, types.OpNone), true
}

// enterFunction opens a function scope and context.
func (b *Binder) enterFunction(result types.TypeID) func() {
	savedScope, savedFn := b.scope, b.fn
	b.scope = b.global.Push(scope.Function)
	b.fn = &funcContext{result: result, reads: make(map[*types.Symbol]bool)}
	return func() {
		b.reportUnused()
		b.scope, b.fn = savedScope, savedFn
	}
}

func (b *Binder) bindFunction(d *syntax.FuncDecl, callable types.TypeID, params []types.TypeID, result types.TypeID) *bound.Function {
	leave := b.enterFunction(result)
	defer leave()

	fn := &bound.Function{
		SpanVal:  d.Span(),
		Name:     d.Name,
		Callable: callable,
		Result:   result,
	}
	for i, p := range d.Params {
		sym := types.NewParameter(p.Name, params[i], i)
		if !b.scope.Declare(sym) {
			b.errorAt(diag.CodeNameResolution, p.Span(), "%q is already declared in this scope", p.Name)
		}
		fn.Params = append(fn.Params, sym)
	}

	// The body shares the function scope so a local cannot redeclare a parameter.
	fn.Body = &bound.Block{SpanVal: d.Body.Span(), Statements: b.bindStatements(d.Body.Statements)}

	b.checkFlow(fn.Body)
	if result != types.Void && result != types.Error && canComplete(fn.Body) {
		b.errorAt(diag.CodeFlow, d.Span(), "missing return in function %s", d.Name)
	}
	return fn
}

func (b *Binder) bindScript(file *syntax.SourceFile) *bound.Function {
	leave := b.enterFunction(types.Void)
	defer leave()

	body := &bound.Block{SpanVal: file.Span(), Statements: b.bindStatements(file.Statements)}
	b.checkFlow(body)
	return &bound.Function{SpanVal: file.Span(), Name: ScriptName, Result: types.Void, Body: body}
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

// bindGlobals declares every global in source order and collects their
// initializers into the initializer routine. An initializer sees only the
// globals declared before it.
func (b *Binder) bindGlobals(file *syntax.SourceFile, prog *bound.Program) *bound.Function {
	leave := b.enterFunction(types.Void)
	defer leave()

	init := &bound.Function{SpanVal: file.Span(), Name: InitName, Result: types.Void, Body: &bound.Block{SpanVal: file.Span()}}
	for _, d := range file.Globals {
		t, value := b.bindDeclaration(d)
		sym := types.NewGlobal(d.Name, t, d.Const)
		if !b.global.Declare(sym) {
			b.errorAt(diag.CodeNameResolution, d.Span(), "%q is already declared in this scope", d.Name)
			continue
		}
		prog.Globals = append(prog.Globals, sym)
		if value != nil {
			init.Body.Statements = append(init.Body.Statements, &bound.ExprStmt{
				SpanVal: d.Span(),
				Expr: &bound.Assignment{
					SpanVal: d.Span(),
					Target:  &bound.SymbolRef{SpanVal: d.Span(), Symbol: sym},
					Value:   value,
				},
			})
		}
	}
	return init
}

// bindDeclaration computes a declaration's type and its converted
// initializer, which is nil when there is none.
func (b *Binder) bindDeclaration(d *syntax.VarDecl) (types.TypeID, bound.Expr) {
	declared := types.NoType
	if d.Type != nil {
		declared = b.valueType(d.Type)
	}
	if d.Init == nil {
		if declared == types.NoType {
			return types.Error, nil
		}
		return declared, nil
	}

	value := b.bindValue(d.Init)
	if declared == types.NoType {
		t := value.Type()
		if t == types.Void {
			b.errorAt(diag.CodeType, d.Init.Span(), "cannot initialize %s with a void expression", d.Name)
			return types.Error, &bound.Invalid{SpanVal: d.Init.Span(), Children: []bound.Expr{value}}
		}
		return t, value
	}
	return declared, b.convertImplicit(value, declared, d.Init.Span())
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// convertImplicit adapts e to type to for an assignment, argument or return.
// Integer and float literals are retyped when their value fits.
func (b *Binder) convertImplicit(e bound.Expr, to types.TypeID, span syntax.Span) bound.Expr {
	from := e.Type()
	if from == to || from == types.Error || to == types.Error {
		return e
	}
	if lit, ok := e.(*bound.Literal); ok {
		if retyped, ok := retypeLiteral(lit, to); ok {
			return retyped
		}
	}
	conv := b.reg.Classify(from, to)
	if !conv.Implicit() {
		if conv.Exists() {
			b.errorAt(diag.CodeType, span, "cannot use %s as %s without an explicit conversion",
				b.reg.FullName(from), b.reg.FullName(to))
		} else {
			b.errorAt(diag.CodeType, span, "cannot use %s as %s", b.reg.FullName(from), b.reg.FullName(to))
		}
		return &bound.Invalid{SpanVal: span, Children: []bound.Expr{e}}
	}
	return &bound.Conversion{SpanVal: e.Span(), Kind: conv, Operand: e, TypeVal: to}
}

// coerce wraps args in the implicit conversions to params. The caller has
// already established that every argument is implicitly convertible.
func (b *Binder) coerce(args []bound.Expr, params []types.TypeID) []bound.Expr {
	out := make([]bound.Expr, len(args))
	for i, a := range args {
		if a.Type() == params[i] {
			out[i] = a
			continue
		}
		out[i] = &bound.Conversion{SpanVal: a.Span(), Kind: b.reg.Classify(a.Type(), params[i]), Operand: a, TypeVal: params[i]}
	}
	return out
}

// reportUnused warns about locals of the current routine that were never read.
func (b *Binder) reportUnused() {
	for _, l := range b.fn.locals {
		if !b.fn.reads[l.sym] && l.sym.Name != "_" {
			b.warnAt(diag.CodeUnused, l.span, "local %q is declared but never read", l.sym.Name)
		}
	}
}

func describe(reg *types.Registry, args []bound.Expr) string {
	ts := make([]types.TypeID, len(args))
	for i, a := range args {
		ts[i] = a.Type()
	}
	return fmt.Sprintf("(%s)", reg.JoinNames(ts))
}
