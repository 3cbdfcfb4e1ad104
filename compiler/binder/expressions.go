package binder

import (
	"math"

	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// bindExpr binds an expression of any category, including group and type
// names and void calls.
func (b *Binder) bindExpr(e syntax.Expr) bound.Expr {
	switch n := e.(type) {
	case *syntax.IntLiteral:
		return b.bindIntLiteral(n.Span(), n.Value, false)
	case *syntax.FloatLiteral:
		return &bound.Literal{SpanVal: n.Span(), Value: n.Value, TypeVal: types.F64}
	case *syntax.StringLiteral:
		return &bound.Literal{SpanVal: n.Span(), Value: n.Value, TypeVal: types.String}
	case *syntax.CharLiteral:
		return &bound.Literal{SpanVal: n.Span(), Value: n.Value, TypeVal: types.Char}
	case *syntax.BoolLiteral:
		return &bound.Literal{SpanVal: n.Span(), Value: n.Value, TypeVal: types.Bool}
	case *syntax.Name:
		return b.bindName(n, true)
	case *syntax.Assignment:
		return b.bindAssignment(n)
	case *syntax.Binary:
		left := b.bindValue(n.Left)
		right := b.bindValue(n.Right)
		return b.applyBinary(n.Op, left, right, n.Span())
	case *syntax.Unary:
		return b.bindUnary(n)
	case *syntax.Call:
		return b.bindCall(n)
	case *syntax.Index:
		return b.bindIndex(n)
	case *syntax.Member:
		return b.bindMember(n)
	case *syntax.Cast:
		return b.bindCast(n)
	case *syntax.NewArray:
		return b.bindNewArray(n)
	default:
		panic(diag.Internalf("binder: unexpected expression %T", e))
	}
}

// bindValue binds an expression that must produce a value.
func (b *Binder) bindValue(e syntax.Expr) bound.Expr {
	return b.requireValue(b.bindExpr(e))
}

// requireValue rejects group names, type names and void calls where a value
// is needed.
func (b *Binder) requireValue(x bound.Expr) bound.Expr {
	switch n := x.(type) {
	case *bound.GroupRef:
		b.errorAt(diag.CodeType, n.Span(), "function %s used as a value", n.Name)
	case *bound.TypeExpr:
		b.errorAt(diag.CodeType, n.Span(), "type name %s used as a value", b.reg.Name(n.TypeVal))
	case *bound.Call:
		if n.TypeVal != types.Void {
			return x
		}
		b.errorAt(diag.CodeType, n.Span(), "%s does not produce a value", b.reg.FullName(n.Callable))
	default:
		return x
	}
	return &bound.Invalid{SpanVal: x.Span()}
}

func invalid(span syntax.Span, children ...bound.Expr) bound.Expr {
	return &bound.Invalid{SpanVal: span, Children: children}
}

func anyError(es ...bound.Expr) bool {
	for _, e := range es {
		if e.Type() == types.Error {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// bindIntLiteral types an integer literal as i32 when it fits, else i64,
// else u64.
func (b *Binder) bindIntLiteral(span syntax.Span, magnitude uint64, negative bool) bound.Expr {
	if negative {
		if magnitude > 1<<63 {
			b.errorAt(diag.CodeType, span, "integer literal -%d overflows i64", magnitude)
			return invalid(span)
		}
		v := -int64(magnitude)
		if magnitude == 1<<63 {
			v = math.MinInt64
		}
		return &bound.Literal{SpanVal: span, Value: v, TypeVal: signedLiteralType(v)}
	}
	if magnitude > math.MaxInt64 {
		return &bound.Literal{SpanVal: span, Value: magnitude, TypeVal: types.U64}
	}
	v := int64(magnitude)
	return &bound.Literal{SpanVal: span, Value: v, TypeVal: signedLiteralType(v)}
}

func signedLiteralType(v int64) types.TypeID {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return types.I32
	}
	return types.I64
}

// retypeLiteral gives a numeric literal the type to when its value is
// representable there. It is not a conversion: the constant simply has the
// target type from the start.
func retypeLiteral(lit *bound.Literal, to types.TypeID) (*bound.Literal, bool) {
	out := *lit
	out.TypeVal = to
	switch v := lit.Value.(type) {
	case int64:
		switch {
		case types.IsSigned(to) && fitsSigned(v, types.Bits(to)):
			return &out, true
		case types.IsUnsigned(to) && v >= 0 && fitsUnsigned(uint64(v), types.Bits(to)):
			out.Value = uint64(v)
			return &out, true
		case types.IsFloat(to):
			out.Value = float64(v)
			return &out, true
		}
	case uint64:
		if types.IsFloat(to) {
			out.Value = float64(v)
			return &out, true
		}
	case float64:
		if to == types.F32 {
			return &out, true
		}
	}
	return nil, false
}

func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return v >= -limit && v < limit
}

func fitsUnsigned(v uint64, bits int) bool {
	return bits >= 64 || v < uint64(1)<<bits
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

// bindName resolves an identifier. read is false for plain assignment
// targets, which do not count as uses.
func (b *Binder) bindName(n *syntax.Name, read bool) bound.Expr {
	sym := b.scope.Lookup(n.Name)
	if sym == nil {
		if t, ok := types.LookupBuiltin(n.Name); ok {
			return &bound.TypeExpr{SpanVal: n.Span(), TypeVal: t}
		}
		b.errorAt(diag.CodeNameResolution, n.Span(), "undeclared identifier %q", n.Name)
		return invalid(n.Span())
	}
	if sym.Kind == types.SymGroup {
		return &bound.GroupRef{SpanVal: n.Span(), Name: sym.Name, Group: sym.Type}
	}
	if read {
		b.fn.reads[sym] = true
	}
	return &bound.SymbolRef{SpanVal: n.Span(), Symbol: sym}
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

func (b *Binder) bindAssignment(n *syntax.Assignment) bound.Expr {
	var target bound.Expr
	if name, ok := n.Target.(*syntax.Name); ok {
		target = b.bindName(name, n.Op != "")
	} else {
		target = b.bindExpr(n.Target)
	}
	value := b.bindValue(n.Value)

	if anyError(target) {
		return invalid(n.Span(), target, value)
	}
	if target.Category() != types.CategoryModifiable {
		b.errorAt(diag.CodeAssignment, n.Target.Span(), "cannot assign to %s", b.describeTarget(target))
		return invalid(n.Span(), target, value)
	}
	if anyError(value) {
		return invalid(n.Span(), target, value)
	}

	if n.Op == "" {
		return &bound.Assignment{SpanVal: n.Span(), Target: target, Value: b.convertImplicit(value, target.Type(), n.Value.Span())}
	}

	if lit, ok := value.(*bound.Literal); ok {
		if retyped, ok := retypeLiteral(lit, target.Type()); ok {
			value = retyped
		}
	}
	op := b.applyBinary(n.Op, target, value, n.Span())
	if anyError(op) {
		return op
	}

	callable, rhs := splitOperator(op)
	result := b.reg.Callable(callable).Result
	if result != target.Type() && !b.reg.ImplicitlyConvertible(result, target.Type()) {
		b.errorAt(diag.CodeType, n.Span(), "%s= produces %s, which cannot be stored in %s",
			n.Op, b.reg.FullName(result), b.reg.FullName(target.Type()))
		return invalid(n.Span(), target, value)
	}
	return &bound.CompoundAssignment{SpanVal: n.Span(), Target: target, Operator: callable, Value: rhs}
}

// splitOperator extracts the resolved callable and converted right operand
// from a bound binary operation (intrinsic or library-routed).
func splitOperator(e bound.Expr) (types.TypeID, bound.Expr) {
	switch n := e.(type) {
	case *bound.Binary:
		return n.Operator, n.Right
	case *bound.Call:
		return n.Callable, n.Args[1]
	default:
		panic(diag.Internalf("binder: %T is not a binary operation", e))
	}
}

func (b *Binder) describeTarget(e bound.Expr) string {
	switch n := e.(type) {
	case *bound.SymbolRef:
		switch {
		case n.Symbol.Kind == types.SymParameter:
			return "parameter " + n.Symbol.Name
		case n.Symbol.Kind == types.SymField:
			return "readonly field " + n.Symbol.Path
		default:
			return "constant " + n.Symbol.Name
		}
	case *bound.Literal:
		return "a literal"
	case *bound.GroupRef:
		return "function " + n.Name
	case *bound.Index:
		return "a character of a string"
	default:
		return "this expression"
	}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// libraryOperator names the library group an operator falls back to when no
// intrinsic overload applies.
func (b *Binder) libraryOperator(op string) types.TypeID {
	switch op {
	case "+":
		return b.lib.Concat()
	case "==", "!=":
		return b.lib.Equals()
	default:
		return types.NoType
	}
}

// applyBinary resolves a binary operator over already-bound operands.
func (b *Binder) applyBinary(op string, left, right bound.Expr, span syntax.Span) bound.Expr {
	if anyError(left, right) {
		return invalid(span, left, right)
	}
	group, ok := b.ops.binary[op]
	if !ok {
		panic(diag.Internalf("binder: unknown binary operator %q", op))
	}
	args := []types.TypeID{left.Type(), right.Type()}

	res := ResolveOverload(b.reg, group, args)
	switch res.Outcome {
	case Resolved:
		info := b.reg.Callable(res.Callable)
		operands := b.coerce([]bound.Expr{left, right}, info.Params)
		return &bound.Binary{SpanVal: span, Operator: res.Callable, Left: operands[0], Right: operands[1], TypeVal: info.Result}
	case Ambiguous:
		b.reportAmbiguous(span, op, args, res.Tied)
		return invalid(span, left, right)
	}

	if lib := b.libraryOperator(op); lib != types.NoType {
		res = ResolveOverload(b.reg, lib, args)
		switch res.Outcome {
		case Resolved:
			info := b.reg.Callable(res.Callable)
			var call bound.Expr = &bound.Call{
				SpanVal:  span,
				Callable: res.Callable,
				Args:     b.coerce([]bound.Expr{left, right}, info.Params),
				TypeVal:  info.Result,
			}
			if op == "!=" {
				call = &bound.Unary{SpanVal: span, Operator: b.ops.not(b.reg), Operand: call, TypeVal: types.Bool}
			}
			return call
		case Ambiguous:
			b.reportAmbiguous(span, op, args, res.Tied)
			return invalid(span, left, right)
		}
	}

	b.errorAt(diag.CodeType, span, "operator %s is not defined for (%s)", op, b.reg.JoinNames(args))
	return invalid(span, left, right)
}

func (b *Binder) bindUnary(n *syntax.Unary) bound.Expr {
	if n.Op == "-" {
		switch lit := n.Operand.(type) {
		case *syntax.IntLiteral:
			return b.bindIntLiteral(n.Span(), lit.Value, true)
		case *syntax.FloatLiteral:
			return &bound.Literal{SpanVal: n.Span(), Value: -lit.Value, TypeVal: types.F64}
		}
	}

	operand := b.bindValue(n.Operand)
	if anyError(operand) {
		return invalid(n.Span(), operand)
	}
	group, ok := b.ops.unary[n.Op]
	if !ok {
		panic(diag.Internalf("binder: unknown unary operator %q", n.Op))
	}
	args := []types.TypeID{operand.Type()}
	res := ResolveOverload(b.reg, group, args)
	switch res.Outcome {
	case Resolved:
		info := b.reg.Callable(res.Callable)
		return &bound.Unary{
			SpanVal:  n.Span(),
			Operator: res.Callable,
			Operand:  b.coerce([]bound.Expr{operand}, info.Params)[0],
			TypeVal:  info.Result,
		}
	case Ambiguous:
		b.reportAmbiguous(n.Span(), n.Op, args, res.Tied)
	default:
		b.errorAt(diag.CodeType, n.Span(), "operator %s is not defined for %s", n.Op, b.reg.FullName(operand.Type()))
	}
	return invalid(n.Span(), operand)
}

func (b *Binder) reportAmbiguous(span syntax.Span, name string, args []types.TypeID, tied []types.TypeID) {
	b.errorAt(diag.CodeType, span, "%s(%s) is ambiguous between %s and %s",
		name, b.reg.JoinNames(args), b.reg.FullName(tied[0]), b.reg.FullName(tied[1]))
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (b *Binder) bindCall(n *syntax.Call) bound.Expr {
	callee := b.bindExpr(n.Callee)
	args := make([]bound.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = b.bindValue(a)
	}

	if anyError(callee) {
		return invalid(n.Span(), args...)
	}
	g, ok := callee.(*bound.GroupRef)
	if !ok {
		b.errorAt(diag.CodeType, n.Callee.Span(), "%s is not a function", b.reg.FullName(callee.Type()))
		return invalid(n.Span(), args...)
	}
	if anyError(args...) {
		return invalid(n.Span(), args...)
	}

	argTypes := make([]types.TypeID, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}
	res := ResolveOverload(b.reg, g.Group, argTypes)
	switch res.Outcome {
	case NotApplicable:
		b.errorAt(diag.CodeType, n.Span(), "no overload of %s accepts %s", g.Name, describe(b.reg, args))
		return invalid(n.Span(), args...)
	case Ambiguous:
		b.reportAmbiguous(n.Span(), g.Name, argTypes, res.Tied)
		return invalid(n.Span(), args...)
	}

	info := b.reg.Callable(res.Callable)
	return &bound.Call{SpanVal: n.Span(), Callable: res.Callable, Args: b.coerce(args, info.Params), TypeVal: info.Result}
}

// ---------------------------------------------------------------------------
// Arrays, members and casts
// ---------------------------------------------------------------------------

func (b *Binder) bindIndex(n *syntax.Index) bound.Expr {
	target := b.bindValue(n.Target)
	index := b.convertImplicit(b.bindValue(n.Index), types.I32, n.Index.Span())
	if anyError(target, index) {
		return invalid(n.Span(), target, index)
	}

	t := target.Type()
	switch {
	case b.reg.Kind(t) == types.KindArray:
		return &bound.Index{SpanVal: n.Span(), Target: target, Index: index, TypeVal: b.reg.Elem(t)}
	case t == types.String:
		return &bound.Index{SpanVal: n.Span(), Target: target, Index: index, TypeVal: types.Char}
	}
	b.errorAt(diag.CodeType, n.Target.Span(), "cannot index a value of type %s", b.reg.FullName(t))
	return invalid(n.Span(), target, index)
}

func (b *Binder) bindMember(n *syntax.Member) bound.Expr {
	target := b.bindValue(n.Target)
	if anyError(target) {
		return invalid(n.Span(), target)
	}
	t := target.Type()
	if n.Name == "length" && (t == types.String || b.reg.Kind(t) == types.KindArray) {
		return &bound.Length{SpanVal: n.Span(), Target: target}
	}
	b.errorAt(diag.CodeNameResolution, n.Span(), "%s has no member %q", b.reg.FullName(t), n.Name)
	return invalid(n.Span(), target)
}

// bindCast binds operand as T. String formatting and parsing become library
// calls; every other legal cast is a conversion node.
func (b *Binder) bindCast(n *syntax.Cast) bound.Expr {
	operand := b.bindValue(n.Operand)
	to := b.valueType(n.Type)
	if anyError(operand) || to == types.Error {
		return invalid(n.Span(), operand)
	}

	from := operand.Type()
	switch conv := b.reg.Classify(from, to); conv {
	case types.ConvNone:
		b.errorAt(diag.CodeType, n.Span(), "cannot convert %s to %s", b.reg.FullName(from), b.reg.FullName(to))
		return invalid(n.Span(), operand)
	case types.ConvToString:
		callable := b.lib.ToString()
		return &bound.Call{
			SpanVal:  n.Span(),
			Callable: callable,
			Args:     b.coerce([]bound.Expr{operand}, b.reg.Callable(callable).Params),
			TypeVal:  types.String,
		}
	case types.ConvParse:
		callable, ok := b.lib.Parse(to)
		if !ok {
			panic(diag.Internalf("binder: no parse routine for %s", b.reg.Name(to)))
		}
		return &bound.Call{SpanVal: n.Span(), Callable: callable, Args: []bound.Expr{operand}, TypeVal: to}
	default:
		return &bound.Conversion{SpanVal: n.Span(), Kind: conv, Operand: operand, TypeVal: to, Explicit: true}
	}
}

func (b *Binder) bindNewArray(n *syntax.NewArray) bound.Expr {
	elem := b.valueType(n.Elem)
	size := b.convertImplicit(b.bindValue(n.Size), types.I32, n.Size.Span())
	if elem == types.Error || anyError(size) {
		return invalid(n.Span(), size)
	}
	return &bound.NewArray{SpanVal: n.Span(), Elem: elem, Size: size, TypeVal: b.reg.ArrayOf(elem)}
}
