package binder

import (
	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/scope"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *Binder) bindStatements(stmts []syntax.Stmt) []bound.Stmt {
	out := make([]bound.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, b.bindStmt(s))
	}
	return out
}

// bindStmt binds one statement. It always returns a node; a statement that
// cannot be represented becomes an empty block.
func (b *Binder) bindStmt(s syntax.Stmt) bound.Stmt {
	switch n := s.(type) {
	case *syntax.Block:
		return b.bindBlock(n)
	case *syntax.VarDecl:
		return b.bindLocal(n)
	case *syntax.ExprStmt:
		x := b.bindExpr(n.Expr)
		switch x.(type) {
		case *bound.GroupRef, *bound.TypeExpr:
			x = b.requireValue(x)
		}
		return &bound.ExprStmt{SpanVal: n.Span(), Expr: x}
	case *syntax.If:
		stmt := &bound.If{SpanVal: n.Span(), Cond: b.bindCondition(n.Cond)}
		stmt.Then = b.bindNested(n.Then)
		if n.Else != nil {
			stmt.Else = b.bindNested(n.Else)
		}
		return stmt
	case *syntax.While:
		stmt := &bound.While{SpanVal: n.Span(), Cond: b.bindCondition(n.Cond)}
		b.fn.loops++
		stmt.Body = b.bindNested(n.Body)
		b.fn.loops--
		return stmt
	case *syntax.For:
		return b.bindFor(n)
	case *syntax.Break:
		if b.fn.loops == 0 {
			b.errorAt(diag.CodeFlow, n.Span(), "break outside a loop")
			return &bound.Block{SpanVal: n.Span()}
		}
		return &bound.Break{SpanVal: n.Span()}
	case *syntax.Continue:
		if b.fn.loops == 0 {
			b.errorAt(diag.CodeFlow, n.Span(), "continue outside a loop")
			return &bound.Block{SpanVal: n.Span()}
		}
		return &bound.Continue{SpanVal: n.Span()}
	case *syntax.Return:
		return b.bindReturn(n)
	default:
		panic(diag.Internalf("binder: unexpected statement %T", s))
	}
}

func (b *Binder) bindBlock(n *syntax.Block) *bound.Block {
	saved := b.scope
	b.scope = b.scope.Push(scope.Block)
	defer func() { b.scope = saved }()
	return &bound.Block{SpanVal: n.Span(), Statements: b.bindStatements(n.Statements)}
}

// bindNested binds the body of an if or loop. A declaration used directly
// as a body still gets a scope of its own.
func (b *Binder) bindNested(s syntax.Stmt) bound.Stmt {
	if _, ok := s.(*syntax.VarDecl); ok {
		return b.bindBlock(&syntax.Block{SpanVal: s.Span(), Statements: []syntax.Stmt{s}})
	}
	return b.bindStmt(s)
}

func (b *Binder) bindLocal(d *syntax.VarDecl) bound.Stmt {
	t, value := b.bindDeclaration(d)
	sym := types.NewLocal(d.Name, t, d.Const)
	if !b.scope.Declare(sym) {
		b.errorAt(diag.CodeNameResolution, d.Span(), "%q is already declared in this scope", d.Name)
	} else {
		b.fn.locals = append(b.fn.locals, localInfo{sym: sym, span: d.Span()})
	}
	return &bound.VarDecl{SpanVal: d.Span(), Symbol: sym, Init: value}
}

func (b *Binder) bindFor(n *syntax.For) bound.Stmt {
	saved := b.scope
	b.scope = b.scope.Push(scope.Block)
	defer func() { b.scope = saved }()

	stmt := &bound.For{SpanVal: n.Span()}
	if n.Init != nil {
		stmt.Init = b.bindStmt(n.Init)
	}
	if n.Cond != nil {
		stmt.Cond = b.bindCondition(n.Cond)
	}
	if n.Post != nil {
		stmt.Post = b.bindExpr(n.Post)
	}
	b.fn.loops++
	stmt.Body = b.bindNested(n.Body)
	b.fn.loops--
	return stmt
}

// bindCondition binds an expression that must be bool.
func (b *Binder) bindCondition(e syntax.Expr) bound.Expr {
	return b.convertImplicit(b.bindValue(e), types.Bool, e.Span())
}

func (b *Binder) bindReturn(n *syntax.Return) bound.Stmt {
	result := b.fn.result
	if n.Value == nil {
		if result != types.Void && result != types.Error {
			b.errorAt(diag.CodeType, n.Span(), "missing return value of type %s", b.reg.FullName(result))
		}
		return &bound.Return{SpanVal: n.Span()}
	}

	value := b.bindExpr(n.Value)
	if result == types.Void {
		if value.Type() != types.Error {
			b.errorAt(diag.CodeType, n.Value.Span(), "unexpected return value in a void routine")
		}
		return &bound.Return{SpanVal: n.Span()}
	}
	value = b.requireValue(value)
	return &bound.Return{SpanVal: n.Span(), Value: b.convertImplicit(value, result, n.Value.Span())}
}

// ---------------------------------------------------------------------------
// Flow analysis
// ---------------------------------------------------------------------------

// checkFlow warns about the first unreachable statement of every block.
func (b *Binder) checkFlow(s bound.Stmt) {
	switch n := s.(type) {
	case *bound.Block:
		dead := false
		for _, st := range n.Statements {
			if dead {
				if !isEmptyBlock(st) {
					b.warnAt(diag.CodeUnreachable, st.Span(), "unreachable code")
					break
				}
				continue
			}
			b.checkFlow(st)
			dead = !canComplete(st)
		}
	case *bound.If:
		b.checkFlow(n.Then)
		if n.Else != nil {
			b.checkFlow(n.Else)
		}
	case *bound.While:
		b.checkFlow(n.Body)
	case *bound.For:
		b.checkFlow(n.Body)
	}
}

func isEmptyBlock(s bound.Stmt) bool {
	blk, ok := s.(*bound.Block)
	return ok && len(blk.Statements) == 0
}

// canComplete reports whether control can reach the end of s.
func canComplete(s bound.Stmt) bool {
	switch n := s.(type) {
	case *bound.Return, *bound.Break, *bound.Continue:
		return false
	case *bound.Block:
		for _, st := range n.Statements {
			if !canComplete(st) {
				return false
			}
		}
		return true
	case *bound.If:
		if n.Else == nil {
			return true
		}
		return canComplete(n.Then) || canComplete(n.Else)
	case *bound.While:
		return !isTrue(n.Cond) || breaks(n.Body)
	case *bound.For:
		return (n.Cond != nil && !isTrue(n.Cond)) || breaks(n.Body)
	default:
		return true
	}
}

func isTrue(e bound.Expr) bool {
	lit, ok := e.(*bound.Literal)
	if !ok {
		return false
	}
	v, ok := lit.Value.(bool)
	return ok && v
}

// breaks reports whether s contains a break leaving the enclosing loop.
func breaks(s bound.Stmt) bool {
	switch n := s.(type) {
	case *bound.Break:
		return true
	case *bound.Block:
		for _, st := range n.Statements {
			if breaks(st) {
				return true
			}
		}
	case *bound.If:
		return breaks(n.Then) || (n.Else != nil && breaks(n.Else))
	}
	return false
}
