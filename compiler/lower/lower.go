package lower

import (
	"fmt"

	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/types"
)

// Lower converts every routine of a bound program. It runs on erroneous
// trees too, so tooling can show the lowered form; Invalid expressions are
// carried through and rejected later by code generation.
func Lower(reg *types.Registry, prog *bound.Program) *Program {
	out := &Program{Globals: prog.Globals}
	lowered := make(map[*bound.Function]*Function)

	conv := func(fn *bound.Function) *Function {
		lf := LowerFunction(reg, fn)
		lowered[fn] = lf
		return lf
	}

	out.Init = conv(prog.Init)
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, conv(fn))
	}
	if prog.Script != nil {
		out.Script = conv(prog.Script)
	}
	if prog.Entry != nil {
		out.Entry = lowered[prog.Entry]
	}
	return out
}

// loopLabels are the jump targets of the innermost enclosing loop.
type loopLabels struct {
	continueTo LabelID
	breakTo    LabelID
}

// lowerer holds the state for one function body.
type lowerer struct {
	reg       *types.Registry
	out       []Stmt
	nextLabel LabelID
	loops     []loopLabels
	temps     int
	tempSyms  map[*types.Symbol]bool
}

// LowerFunction flattens one bound routine.
func LowerFunction(reg *types.Registry, fn *bound.Function) *Function {
	l := &lowerer{reg: reg, tempSyms: make(map[*types.Symbol]bool)}
	l.lowerStmt(fn.Body)

	if len(l.out) == 0 || !isReturn(l.out[len(l.out)-1]) {
		if fn.Result == types.Void || fn.Result == types.Error {
			l.emit(&Return{})
		} else {
			// Unreachable: the binder rejects bodies that can fall off the end.
			l.emit(&Return{Value: zeroValue(fn.Result)})
		}
	}

	return &Function{
		Name:     fn.Name,
		Callable: fn.Callable,
		Params:   fn.Params,
		Result:   fn.Result,
		Body:     l.out,
	}
}

func isReturn(s Stmt) bool {
	_, ok := s.(*Return)
	return ok
}

func (l *lowerer) emit(s Stmt) {
	l.out = append(l.out, s)
}

func (l *lowerer) freshLabel() LabelID {
	l.nextLabel++
	return l.nextLabel
}

func (l *lowerer) currentLoop(what string) loopLabels {
	if len(l.loops) == 0 {
		panic(diag.Internalf("lower: %s outside a loop", what))
	}
	return l.loops[len(l.loops)-1]
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (l *lowerer) lowerStmt(s bound.Stmt) {
	switch n := s.(type) {
	case *bound.Block:
		for _, st := range n.Statements {
			l.lowerStmt(st)
		}
	case *bound.VarDecl:
		l.emit(&Declare{Symbol: n.Symbol})
		var value Expr
		switch {
		case n.Init != nil:
			value = l.lowerExpr(n.Init)
		case n.Symbol.Type != types.Error:
			// A slot is reused on every pass through a loop body.
			value = zeroValue(n.Symbol.Type)
		default:
			return
		}
		l.emit(&ExprStmt{Expr: &Assign{Target: &SymbolRef{Symbol: n.Symbol}, Value: value}})
	case *bound.ExprStmt:
		e := l.lowerExpr(n.Expr)
		l.emit(&ExprStmt{Expr: e})
	case *bound.If:
		l.lowerIf(n)
	case *bound.While:
		l.lowerWhile(n)
	case *bound.For:
		l.lowerFor(n)
	case *bound.Break:
		l.emit(&Goto{Target: l.currentLoop("break").breakTo})
	case *bound.Continue:
		l.emit(&Goto{Target: l.currentLoop("continue").continueTo})
	case *bound.Return:
		if n.Value == nil {
			l.emit(&Return{})
			return
		}
		value := l.lowerExpr(n.Value)
		l.emit(&Return{Value: value})
	default:
		panic(diag.Internalf("lower: unexpected statement %T", s))
	}
}

// lowerIf emits
//
//	condgoto !cond else
//	<then>
//	goto end
//	else:
//	<else>
//	end:
//
// and without an else branch just the jump past <then> to end.
func (l *lowerer) lowerIf(n *bound.If) {
	cond := l.lowerExpr(n.Cond)
	end := l.freshLabel()
	if n.Else == nil {
		l.emit(&CondGoto{Cond: negate(cond), Target: end})
		l.lowerStmt(n.Then)
		l.emit(&Label{ID: end})
		return
	}

	elseL := l.freshLabel()
	l.emit(&CondGoto{Cond: negate(cond), Target: elseL})
	l.lowerStmt(n.Then)
	l.emit(&Goto{Target: end})
	l.emit(&Label{ID: elseL})
	l.lowerStmt(n.Else)
	l.emit(&Label{ID: end})
}

func (l *lowerer) lowerWhile(n *bound.While) {
	top := l.freshLabel()
	end := l.freshLabel()

	l.emit(&Label{ID: top})
	cond := l.lowerExpr(n.Cond)
	l.emit(&CondGoto{Cond: negate(cond), Target: end})

	l.loops = append(l.loops, loopLabels{continueTo: top, breakTo: end})
	l.lowerStmt(n.Body)
	l.loops = l.loops[:len(l.loops)-1]

	l.emit(&Goto{Target: top})
	l.emit(&Label{ID: end})
}

// lowerFor lowers like a while loop whose body is followed by the post
// expression; continue jumps to the post expression, not to the test.
func (l *lowerer) lowerFor(n *bound.For) {
	if n.Init != nil {
		l.lowerStmt(n.Init)
	}
	top := l.freshLabel()
	next := l.freshLabel()
	end := l.freshLabel()

	l.emit(&Label{ID: top})
	if n.Cond != nil {
		cond := l.lowerExpr(n.Cond)
		l.emit(&CondGoto{Cond: negate(cond), Target: end})
	}

	l.loops = append(l.loops, loopLabels{continueTo: next, breakTo: end})
	l.lowerStmt(n.Body)
	l.loops = l.loops[:len(l.loops)-1]

	l.emit(&Label{ID: next})
	if n.Post != nil {
		post := l.lowerExpr(n.Post)
		l.emit(&ExprStmt{Expr: post})
	}
	l.emit(&Goto{Target: top})
	l.emit(&Label{ID: end})
}

// negate builds the logical negation of a bool expression, folding
// constants and double negation.
func negate(e Expr) Expr {
	switch n := e.(type) {
	case *Unary:
		if n.Op == types.OpNot {
			return n.Operand
		}
	case *Literal:
		if v, ok := n.Value.(bool); ok {
			return &Literal{Value: !v, TypeVal: types.Bool}
		}
	}
	return &Unary{Op: types.OpNot, Operand: e, TypeVal: types.Bool}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (l *lowerer) lowerExpr(e bound.Expr) Expr {
	switch n := e.(type) {
	case *bound.Literal:
		return &Literal{Value: n.Value, TypeVal: n.TypeVal}
	case *bound.SymbolRef:
		return &SymbolRef{Symbol: n.Symbol}
	case *bound.Assignment:
		if t, ok := n.Target.(*bound.Index); ok {
			ops := l.lowerOperands(t.Target, t.Index, n.Value)
			return &Assign{Target: &Index{Target: ops[0], Index: ops[1], TypeVal: t.TypeVal}, Value: ops[2]}
		}
		target := l.lowerExpr(n.Target)
		value := l.lowerExpr(n.Value)
		return &Assign{Target: target, Value: value}
	case *bound.CompoundAssignment:
		return l.lowerCompound(n)
	case *bound.Binary:
		info := l.reg.Callable(n.Operator)
		if info.Op.IsShortCircuit() {
			return l.lowerShortCircuit(info.Op, n.Left, n.Right)
		}
		ops := l.lowerOperands(n.Left, n.Right)
		return &Binary{Op: info.Op, Operand: info.Params[0], Left: ops[0], Right: ops[1], TypeVal: n.TypeVal}
	case *bound.Unary:
		info := l.reg.Callable(n.Operator)
		return &Unary{Op: info.Op, Operand: l.lowerExpr(n.Operand), TypeVal: n.TypeVal}
	case *bound.Call:
		return &Call{Callable: n.Callable, Args: l.lowerOperands(n.Args...), TypeVal: n.TypeVal}
	case *bound.Conversion:
		operand := l.lowerExpr(n.Operand)
		if n.Kind == types.ConvIdentity {
			return operand
		}
		return &Conversion{Kind: n.Kind, Operand: operand, TypeVal: n.TypeVal}
	case *bound.Index:
		ops := l.lowerOperands(n.Target, n.Index)
		return &Index{Target: ops[0], Index: ops[1], TypeVal: n.TypeVal}
	case *bound.Length:
		return &Length{Target: l.lowerExpr(n.Target)}
	case *bound.NewArray:
		return &NewArray{Elem: n.Elem, Size: l.lowerExpr(n.Size), TypeVal: n.TypeVal}
	case *bound.Invalid, *bound.GroupRef, *bound.TypeExpr:
		return &Invalid{}
	default:
		panic(diag.Internalf("lower: unexpected expression %T", e))
	}
}

// lowerShortCircuit evaluates a && b as
//
//	$t = a
//	goto end if !$t
//	$t = b
//	end:
//
// and a || b the same way with the jump taken when $t is true.
func (l *lowerer) lowerShortCircuit(op types.Operator, left, right bound.Expr) Expr {
	tmp := l.newTemp(types.Bool)
	l.emit(&Declare{Symbol: tmp})
	l.emit(&ExprStmt{Expr: &Assign{Target: &SymbolRef{Symbol: tmp}, Value: l.lowerExpr(left)}})

	end := l.freshLabel()
	var decided Expr = &SymbolRef{Symbol: tmp}
	if op == types.OpAndAlso {
		decided = negate(decided)
	}
	l.emit(&CondGoto{Cond: decided, Target: end})
	l.emit(&ExprStmt{Expr: &Assign{Target: &SymbolRef{Symbol: tmp}, Value: l.lowerExpr(right)}})
	l.emit(&Label{ID: end})
	return &SymbolRef{Symbol: tmp}
}

// lowerOperands lowers es left to right. When an operand emits statements
// of its own, the operands before it are stored into temporaries ahead of
// those statements so they are still evaluated first.
func (l *lowerer) lowerOperands(es ...bound.Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		mark := len(l.out)
		out[i] = l.lowerExpr(e)
		if len(l.out) == mark {
			continue
		}
		var hoisted []Stmt
		for j := 0; j < i; j++ {
			if l.stable(out[j]) {
				continue
			}
			tmp := l.newTemp(out[j].Type())
			hoisted = append(hoisted,
				&Declare{Symbol: tmp},
				&ExprStmt{Expr: &Assign{Target: &SymbolRef{Symbol: tmp}, Value: out[j]}})
			out[j] = &SymbolRef{Symbol: tmp}
		}
		l.insert(mark, hoisted)
	}
	return out
}

// stable reports whether e reads the same value wherever it is evaluated
// within one statement sequence: constants, temporaries and readonly
// symbols.
func (l *lowerer) stable(e Expr) bool {
	switch n := e.(type) {
	case *Literal:
		return true
	case *SymbolRef:
		return l.tempSyms[n.Symbol] || n.Symbol.Kind == types.SymParameter || n.Symbol.Kind == types.SymField
	}
	return false
}

func (l *lowerer) insert(pos int, stmts []Stmt) {
	if len(stmts) == 0 {
		return
	}
	l.out = append(l.out[:pos], append(stmts, l.out[pos:]...)...)
}

func (l *lowerer) newTemp(t types.TypeID) *types.Symbol {
	l.temps++
	tmp := types.NewLocal(fmt.Sprintf("$t%d", l.temps), t, false)
	l.tempSyms[tmp] = true
	return tmp
}

// lowerCompound rewrites target OP= value as target = target OP value.
// An element target whose array or index expression is not a plain
// variable or constant is first spilled into temporaries so it is evaluated
// once.
func (l *lowerer) lowerCompound(n *bound.CompoundAssignment) Expr {
	var target, right Expr
	switch t := n.Target.(type) {
	case *bound.SymbolRef:
		target = &SymbolRef{Symbol: t.Symbol}
	case *bound.Index:
		ops := l.lowerOperands(t.Target, t.Index, n.Value)
		array := l.spill(ops[0])
		index := l.spill(ops[1])
		target = &Index{Target: array, Index: index, TypeVal: t.TypeVal}
		right = ops[2]
	default:
		return &Invalid{}
	}

	info := l.reg.Callable(n.Operator)
	left := l.convert(target, info.Params[0])
	if right == nil {
		right = l.lowerExpr(n.Value)
	}

	var op Expr
	if info.Intrinsic() {
		op = &Binary{Op: info.Op, Operand: info.Params[0], Left: left, Right: right, TypeVal: info.Result}
	} else {
		op = &Call{Callable: n.Operator, Args: []Expr{left, right}, TypeVal: info.Result}
	}
	return &Assign{Target: target, Value: l.convert(op, target.Type())}
}

// spill stores e in a fresh temporary unless it is already free of side
// effects, returning an expression that rereads the value.
func (l *lowerer) spill(e Expr) Expr {
	switch e.(type) {
	case *SymbolRef, *Literal:
		return e
	}
	tmp := l.newTemp(e.Type())
	l.emit(&Declare{Symbol: tmp})
	l.emit(&ExprStmt{Expr: &Assign{Target: &SymbolRef{Symbol: tmp}, Value: e}})
	return &SymbolRef{Symbol: tmp}
}

func (l *lowerer) convert(e Expr, to types.TypeID) Expr {
	from := e.Type()
	if from == to {
		return e
	}
	kind := l.reg.Classify(from, to)
	if kind == types.ConvIdentity {
		return e
	}
	return &Conversion{Kind: kind, Operand: e, TypeVal: to}
}

// zeroValue is the default value of a type.
func zeroValue(t types.TypeID) Expr {
	var v interface{}
	switch {
	case types.IsSigned(t):
		v = int64(0)
	case types.IsUnsigned(t):
		v = uint64(0)
	case types.IsFloat(t):
		v = float64(0)
	case t == types.Bool:
		v = false
	case t == types.Char:
		v = rune(0)
	case t == types.String:
		v = ""
	}
	return &Literal{Value: v, TypeVal: t}
}
