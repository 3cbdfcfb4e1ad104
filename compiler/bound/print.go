package bound

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/tern/compiler/types"
)

// Print renders a bound program as an indented tree, one node per line.
func Print(reg *types.Registry, prog *Program) string {
	p := &printer{reg: reg}
	for _, g := range prog.Globals {
		p.line("global %s: %s", g.Name, reg.Name(g.Type))
	}
	for _, fn := range prog.Routines() {
		p.function(fn)
	}
	if prog.Entry != nil {
		p.line("entry %s", prog.Entry.Name)
	}
	return p.sb.String()
}

// PrintExpr renders a single expression on one line.
func PrintExpr(reg *types.Registry, e Expr) string {
	p := &printer{reg: reg}
	return p.expr(e)
}

type printer struct {
	reg    *types.Registry
	sb     strings.Builder
	indent int
}

func (p *printer) line(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) function(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, s := range fn.Params {
		params[i] = s.Name + ": " + p.reg.Name(s.Type)
	}
	p.line("func %s(%s): %s", fn.Name, strings.Join(params, ", "), p.reg.Name(fn.Result))
	p.indent++
	p.stmt(fn.Body)
	p.indent--
}

func (p *printer) stmt(s Stmt) {
	switch n := s.(type) {
	case *Block:
		p.line("{")
		p.indent++
		for _, st := range n.Statements {
			p.stmt(st)
		}
		p.indent--
		p.line("}")
	case *VarDecl:
		kw := "var"
		if n.Symbol.Readonly {
			kw = "const"
		}
		if n.Init == nil {
			p.line("%s %s: %s", kw, n.Symbol.Name, p.reg.Name(n.Symbol.Type))
		} else {
			p.line("%s %s: %s = %s", kw, n.Symbol.Name, p.reg.Name(n.Symbol.Type), p.expr(n.Init))
		}
	case *ExprStmt:
		p.line("%s", p.expr(n.Expr))
	case *If:
		p.line("if %s", p.expr(n.Cond))
		p.nested(n.Then)
		if n.Else != nil {
			p.line("else")
			p.nested(n.Else)
		}
	case *While:
		p.line("while %s", p.expr(n.Cond))
		p.nested(n.Body)
	case *For:
		p.line("for")
		p.indent++
		if n.Init != nil {
			p.stmt(n.Init)
		}
		if n.Cond != nil {
			p.line("cond %s", p.expr(n.Cond))
		}
		if n.Post != nil {
			p.line("post %s", p.expr(n.Post))
		}
		p.indent--
		p.nested(n.Body)
	case *Break:
		p.line("break")
	case *Continue:
		p.line("continue")
	case *Return:
		if n.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", p.expr(n.Value))
		}
	default:
		p.line("<%T>", s)
	}
}

func (p *printer) nested(s Stmt) {
	if _, ok := s.(*Block); ok {
		p.stmt(s)
		return
	}
	p.indent++
	p.stmt(s)
	p.indent--
}

func (p *printer) operator(callable types.TypeID) string {
	return p.reg.Callable(callable).Op.String()
}

func (p *printer) expr(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		return formatLiteral(n.Value)
	case *SymbolRef:
		return n.Symbol.Name
	case *GroupRef:
		return n.Name
	case *TypeExpr:
		return p.reg.Name(n.TypeVal)
	case *Assignment:
		return fmt.Sprintf("(%s = %s)", p.expr(n.Target), p.expr(n.Value))
	case *CompoundAssignment:
		return fmt.Sprintf("(%s %s= %s)", p.expr(n.Target), p.operator(n.Operator), p.expr(n.Value))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", p.expr(n.Left), p.operator(n.Operator), p.expr(n.Right))
	case *Unary:
		return fmt.Sprintf("(%s%s)", p.operator(n.Operator), p.expr(n.Operand))
	case *Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = p.expr(a)
		}
		return fmt.Sprintf("%s(%s)", p.reg.QualifiedName(p.reg.Callable(n.Callable).Group), strings.Join(args, ", "))
	case *Conversion:
		return fmt.Sprintf("%s(%s -> %s)", n.Kind, p.expr(n.Operand), p.reg.Name(n.TypeVal))
	case *Index:
		return fmt.Sprintf("%s[%s]", p.expr(n.Target), p.expr(n.Index))
	case *Length:
		return p.expr(n.Target) + ".length"
	case *NewArray:
		return fmt.Sprintf("new %s[%s]", p.reg.Name(n.Elem), p.expr(n.Size))
	case *Invalid:
		return "<invalid>"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func formatLiteral(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case rune:
		return strconv.QuoteRune(x)
	default:
		return fmt.Sprint(x)
	}
}
