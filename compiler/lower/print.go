package lower

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/tern/compiler/types"
)

// Print renders a lowered program for tooling. Labels print as L<n> and
// are flush left; other statements are indented.
func Print(reg *types.Registry, prog *Program) string {
	var sb strings.Builder
	for _, g := range prog.Globals {
		fmt.Fprintf(&sb, "global %s: %s\n", g.Name, reg.Name(g.Type))
	}
	for _, fn := range prog.Routines() {
		sb.WriteString(PrintFunction(reg, fn))
	}
	return sb.String()
}

// PrintFunction renders one lowered routine.
func PrintFunction(reg *types.Registry, fn *Function) string {
	var sb strings.Builder
	params := make([]string, len(fn.Params))
	for i, s := range fn.Params {
		params[i] = s.Name + ": " + reg.Name(s.Type)
	}
	fmt.Fprintf(&sb, "func %s(%s): %s\n", fn.Name, strings.Join(params, ", "), reg.Name(fn.Result))
	for _, s := range fn.Body {
		if lbl, ok := s.(*Label); ok {
			fmt.Fprintf(&sb, "L%d:\n", lbl.ID)
			continue
		}
		sb.WriteString("    ")
		sb.WriteString(FormatStmt(reg, s))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatStmt renders a single lowered statement.
func FormatStmt(reg *types.Registry, s Stmt) string {
	switch n := s.(type) {
	case *Declare:
		return fmt.Sprintf("declare %s: %s", n.Symbol.Name, reg.Name(n.Symbol.Type))
	case *ExprStmt:
		return FormatExpr(reg, n.Expr)
	case *Return:
		if n.Value == nil {
			return "return"
		}
		return "return " + FormatExpr(reg, n.Value)
	case *Goto:
		return fmt.Sprintf("goto L%d", n.Target)
	case *CondGoto:
		return fmt.Sprintf("goto L%d if %s", n.Target, FormatExpr(reg, n.Cond))
	case *Label:
		return fmt.Sprintf("L%d:", n.ID)
	default:
		return fmt.Sprintf("<%T>", s)
	}
}

// FormatExpr renders a lowered expression.
func FormatExpr(reg *types.Registry, e Expr) string {
	switch n := e.(type) {
	case *Literal:
		switch v := n.Value.(type) {
		case nil:
			return "null"
		case string:
			return strconv.Quote(v)
		case rune:
			return strconv.QuoteRune(v)
		default:
			return fmt.Sprint(v)
		}
	case *SymbolRef:
		return n.Symbol.Name
	case *Assign:
		return fmt.Sprintf("%s = %s", FormatExpr(reg, n.Target), FormatExpr(reg, n.Value))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", FormatExpr(reg, n.Left), n.Op, FormatExpr(reg, n.Right))
	case *Unary:
		return fmt.Sprintf("%s%s", n.Op, FormatExpr(reg, n.Operand))
	case *Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = FormatExpr(reg, a)
		}
		return fmt.Sprintf("%s(%s)", reg.QualifiedName(reg.Callable(n.Callable).Group), strings.Join(args, ", "))
	case *Conversion:
		return fmt.Sprintf("(%s as %s)", FormatExpr(reg, n.Operand), reg.Name(n.TypeVal))
	case *Index:
		return fmt.Sprintf("%s[%s]", FormatExpr(reg, n.Target), FormatExpr(reg, n.Index))
	case *Length:
		return FormatExpr(reg, n.Target) + ".length"
	case *NewArray:
		return fmt.Sprintf("new %s[%s]", reg.Name(n.Elem), FormatExpr(reg, n.Size))
	case *Invalid:
		return "<invalid>"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
