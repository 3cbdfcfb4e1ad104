package binder

import (
	"strings"
	"testing"

	"github.com/chazu/tern/compiler/bound"
	"github.com/chazu/tern/compiler/builtins"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
)

type bindResult struct {
	reg   *types.Registry
	lib   *builtins.Library
	diags *diag.Bag
	prog  *bound.Program
}

func bind(t *testing.T, src string) *bindResult {
	t.Helper()
	file, errs := syntax.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	reg := types.NewRegistry()
	lib := builtins.Load(reg)
	diags := diag.NewBag()
	prog := New(reg, lib, diags).BindProgram(file)
	return &bindResult{reg: reg, lib: lib, diags: diags, prog: prog}
}

func (r *bindResult) global(t *testing.T, name string) *types.Symbol {
	t.Helper()
	for _, g := range r.prog.Globals {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("no global %q", name)
	return nil
}

// initValue returns the converted initializer of a global.
func (r *bindResult) initValue(t *testing.T, name string) bound.Expr {
	t.Helper()
	for _, s := range r.prog.Init.Body.Statements {
		a := s.(*bound.ExprStmt).Expr.(*bound.Assignment)
		if a.Target.(*bound.SymbolRef).Symbol.Name == name {
			return a.Value
		}
	}
	t.Fatalf("no initializer for %q", name)
	return nil
}

func expectClean(t *testing.T, r *bindResult) {
	t.Helper()
	if r.diags.Len() > 0 {
		t.Fatalf("unexpected diagnostics:\n%s", r.diags)
	}
}

func expectOne(t *testing.T, r *bindResult, code diag.Code, fragment string) {
	t.Helper()
	if r.diags.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1:\n%s", r.diags.Len(), r.diags)
	}
	d := r.diags.Items()[0]
	if d.Code != code {
		t.Errorf("code = %v, want %v (%s)", d.Code, code, d)
	}
	if !strings.Contains(d.Message, fragment) {
		t.Errorf("message %q does not contain %q", d.Message, fragment)
	}
}

// ---------------------------------------------------------------------------
// Error recovery
// ---------------------------------------------------------------------------

func TestAssignToLiteralReportsOnce(t *testing.T) {
	r := bind(t, "1 = 2;")
	expectOne(t, r, diag.CodeAssignment, "cannot assign to a literal")

	stmt := r.prog.Script.Body.Statements[0].(*bound.ExprStmt)
	inv, ok := stmt.Expr.(*bound.Invalid)
	if !ok {
		t.Fatalf("expression = %T, want *bound.Invalid", stmt.Expr)
	}
	if inv.Type() != types.Error {
		t.Errorf("invalid node type = %v, want error", inv.Type())
	}
}

func TestErrorsDoNotCascade(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
		frag string
	}{
		{"undeclared in arithmetic", "var x = missing + 1 * 2;", diag.CodeNameResolution, `undeclared identifier "missing"`},
		{"undeclared as argument", "import std.io.println;\nprintln(missing);", diag.CodeNameResolution, "undeclared"},
		{"bad cast inside call", "import std.io.println;\nprintln((true as i32) + 1);", diag.CodeType, "cannot convert bool to i32"},
		{"unknown type", "var x: int = 1;", diag.CodeNameResolution, `unknown type "int"`},
		{"no member", "var s = \"abc\";\nvar n = s.size;", diag.CodeNameResolution, `has no member "size"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bind(t, tc.src)
			expectOne(t, r, tc.code, tc.frag)
		})
	}
}

// ---------------------------------------------------------------------------
// Literals and conversions
// ---------------------------------------------------------------------------

func TestIntegerLiteralTypes(t *testing.T) {
	r := bind(t, `var a = 1;
var b = 3000000000;
var c = 10000000000000000000;
var d = -2147483648;
var e = -2147483649;
var f = 1.5;
var g = 'x';
var h = "s";
var i = true;
`)
	expectClean(t, r)
	want := map[string]types.TypeID{
		"a": types.I32, "b": types.I64, "c": types.U64, "d": types.I32, "e": types.I64,
		"f": types.F64, "g": types.Char, "h": types.String, "i": types.Bool,
	}
	for name, typ := range want {
		if got := r.global(t, name).Type; got != typ {
			t.Errorf("%s: type = %v, want %v", name, got, typ)
		}
	}

	if lit := r.initValue(t, "d").(*bound.Literal); lit.Value != int64(-2147483648) {
		t.Errorf("d = %v", lit.Value)
	}
}

func TestLiteralRetyping(t *testing.T) {
	r := bind(t, `var a: u8 = 255;
var b: i8 = -128;
var c: f32 = 2;
var d: f32 = 2.5;
var e: i64 = 7;
`)
	expectClean(t, r)

	for name, typ := range map[string]types.TypeID{"a": types.U8, "b": types.I8, "c": types.F32, "d": types.F32, "e": types.I64} {
		lit, ok := r.initValue(t, name).(*bound.Literal)
		if !ok {
			t.Errorf("%s: initializer is %T, want a retyped literal", name, r.initValue(t, name))
			continue
		}
		if lit.Type() != typ {
			t.Errorf("%s: literal type = %v, want %v", name, lit.Type(), typ)
		}
	}
	if v := r.initValue(t, "a").(*bound.Literal).Value; v != uint64(255) {
		t.Errorf("a = %#v, want uint64(255)", v)
	}
	if v := r.initValue(t, "c").(*bound.Literal).Value; v != float64(2) {
		t.Errorf("c = %#v, want float64(2)", v)
	}
}

func TestLiteralOutOfRange(t *testing.T) {
	tests := []struct {
		src  string
		frag string
	}{
		{"var a: u8 = 256;", "cannot use i32 as u8 without an explicit conversion"},
		{"var a: u32 = -1;", "cannot use i32 as u32"},
		{"var a: i32 = 3000000000;", "cannot use i64 as i32"},
		{"var a = -9223372036854775809;", "overflows i64"},
		{"var a: f32 = 1.5 + 1.0;", "cannot use f64 as f32"},
	}
	for _, tc := range tests {
		r := bind(t, tc.src)
		expectOne(t, r, diag.CodeType, tc.frag)
	}
}

func TestImplicitWidening(t *testing.T) {
	r := bind(t, `var small: i16 = 1;
var wide: i64 = small;
var real: f64 = small;
var boxed: object = small;
`)
	expectClean(t, r)

	conv, ok := r.initValue(t, "wide").(*bound.Conversion)
	if !ok || conv.Kind != types.ConvWiden || conv.Explicit {
		t.Errorf("wide = %#v, want implicit widening", r.initValue(t, "wide"))
	}
	if conv := r.initValue(t, "boxed").(*bound.Conversion); conv.Kind != types.ConvBox {
		t.Errorf("boxed conversion = %v, want box", conv.Kind)
	}
}

func TestCasts(t *testing.T) {
	r := bind(t, `var n: i64 = 300;
var a = n as u8;
var s = n as string;
var p = "42" as i32;
var o: object = 1;
var u = o as i32;
`)
	expectClean(t, r)

	if conv := r.initValue(t, "a").(*bound.Conversion); conv.Kind != types.ConvNumeric || !conv.Explicit {
		t.Errorf("a = %+v", conv)
	}
	call := r.initValue(t, "s").(*bound.Call)
	if builtins.Key(r.reg, call.Callable) != "std.convert.to_string(object)" {
		t.Errorf("s calls %s", builtins.Key(r.reg, call.Callable))
	}
	call = r.initValue(t, "p").(*bound.Call)
	if builtins.Key(r.reg, call.Callable) != "std.convert.parse_i32(string)" {
		t.Errorf("p calls %s", builtins.Key(r.reg, call.Callable))
	}
	if conv := r.initValue(t, "u").(*bound.Conversion); conv.Kind != types.ConvUnbox {
		t.Errorf("u = %+v", conv)
	}
}

// ---------------------------------------------------------------------------
// Operators and overloads
// ---------------------------------------------------------------------------

func TestBinaryPromotion(t *testing.T) {
	r := bind(t, `var a: i32 = 1;
var b: i64 = 2;
var c: u32 = 3;
var f: f32 = 1.5;
var sum = a + b;
var mixed = a + c;
var fl = f * 2;
var cmp = a < b;
var bits = c & c;
`)
	expectClean(t, r)
	// Literals are not retyped in operator position, so f * 2 is f64.
	want := map[string]types.TypeID{
		"sum": types.I64, "mixed": types.F64, "fl": types.F64, "cmp": types.Bool, "bits": types.U32,
	}
	for name, typ := range want {
		if got := r.global(t, name).Type; got != typ {
			t.Errorf("%s: type = %v, want %v", name, got, typ)
		}
	}

	bin := r.initValue(t, "sum").(*bound.Binary)
	if bin.Left.Type() != types.I64 || bin.Right.Type() != types.I64 {
		t.Errorf("operands not converted: %v, %v", bin.Left.Type(), bin.Right.Type())
	}
	if info := r.reg.Callable(bin.Operator); info.Op != types.OpAdd || !info.Intrinsic() {
		t.Errorf("operator = %+v", info)
	}
}

func TestLogicalOperators(t *testing.T) {
	r := bind(t, `var p = true;
var q = false;
var both = p && q;
var either = p || q;
var bits = p & q;
`)
	expectClean(t, r)
	tests := []struct {
		name string
		op   types.Operator
	}{
		{"both", types.OpAndAlso},
		{"either", types.OpOrElse},
		{"bits", types.OpAnd},
	}
	for _, tt := range tests {
		bin, ok := r.initValue(t, tt.name).(*bound.Binary)
		if !ok {
			t.Fatalf("%s = %#v, want a binary", tt.name, r.initValue(t, tt.name))
		}
		if got := r.reg.Callable(bin.Operator).Op; got != tt.op || bin.Type() != types.Bool {
			t.Errorf("%s: operator %v of type %v, want %v", tt.name, got, bin.Type(), tt.op)
		}
	}

	r = bind(t, `var n = 1 && 2;`)
	expectOne(t, r, diag.CodeType, "not defined")
}

func TestLibraryOperators(t *testing.T) {
	r := bind(t, `var s = "n=" + 1;
var t = "a" + "b";
var eq = "a" == "b";
var ne = "a" != "b";
`)
	expectClean(t, r)

	key := func(e bound.Expr) string { return builtins.Key(r.reg, e.(*bound.Call).Callable) }
	if got := key(r.initValue(t, "s")); got != "std.runtime.concat(string,object)" {
		t.Errorf("s uses %s", got)
	}
	if got := key(r.initValue(t, "t")); got != "std.runtime.concat(string,string)" {
		t.Errorf("t uses %s", got)
	}
	if got := key(r.initValue(t, "eq")); got != "std.runtime.equals(string,string)" {
		t.Errorf("eq uses %s", got)
	}
	not, ok := r.initValue(t, "ne").(*bound.Unary)
	if !ok || r.reg.Callable(not.Operator).Op != types.OpNot {
		t.Fatalf("ne = %#v, want negated equals", r.initValue(t, "ne"))
	}
	if got := key(not.Operand); got != "std.runtime.equals(string,string)" {
		t.Errorf("ne uses %s", got)
	}
}

func TestOperatorNotDefined(t *testing.T) {
	tests := []struct {
		src  string
		frag string
	}{
		{"var x = true + 1;", "operator + is not defined for (bool, i32)"},
		{"var x = 1.5 << 1;", "operator << is not defined"},
		{"var x = -true;", "operator - is not defined for bool"},
		{"var x = \"a\" - \"b\";", "operator - is not defined for (string, string)"},
	}
	for _, tc := range tests {
		r := bind(t, tc.src)
		expectOne(t, r, diag.CodeType, tc.frag)
	}
}

func TestAmbiguousCall(t *testing.T) {
	r := bind(t, `func f(a: i32): i32 { return a; }
func f(a: i64): i64 { return a; }
var s: i16 = 1;
f(s);
`)
	expectOne(t, r, diag.CodeType, "ambiguous")
}

func TestOverloadPicksCheapest(t *testing.T) {
	r := bind(t, `func f(a: i32): i32 { return 1; }
func f(a: f64): i32 { return 2; }
func g(a: i64, b: i64): i32 { return 1; }
func g(a: i32, b: f64): i32 { return 2; }
var x: i32 = 1;
var r1 = f(x);
var r2 = f(1.5);
var r3 = g(1, 2);
`)
	expectClean(t, r)

	params := func(name string) []types.TypeID {
		return r.reg.Callable(r.initValue(t, name).(*bound.Call).Callable).Params
	}
	if p := params("r1"); p[0] != types.I32 {
		t.Errorf("f(i32) chose %v", p)
	}
	if p := params("r2"); p[0] != types.F64 {
		t.Errorf("f(f64) chose %v", p)
	}
	// g(i32, i32): g(i64,i64) costs 2, g(i32,f64) costs 1.
	if p := params("r3"); p[0] != types.I32 || p[1] != types.F64 {
		t.Errorf("g(i32, i32) chose %v", p)
	}
}

func TestResolveOverloadIsDeterministic(t *testing.T) {
	reg := types.NewRegistry()
	g := reg.NewGroup("f", "")
	a := reg.AddCallable(g, types.Void, []types.TypeID{types.I32}, types.OpNone)
	reg.AddCallable(g, types.Void, []types.TypeID{types.I64}, types.OpNone)
	reg.AddCallable(g, types.Void, []types.TypeID{types.F64}, types.OpNone)

	for i := 0; i < 10; i++ {
		res := ResolveOverload(reg, g, []types.TypeID{types.I32})
		if res.Outcome != Resolved || res.Callable != a {
			t.Fatalf("run %d: %+v", i, res)
		}
	}

	res := ResolveOverload(reg, g, []types.TypeID{types.I16})
	if res.Outcome != Ambiguous || len(res.Tied) != 3 {
		t.Errorf("i16: %+v, want three-way tie", res)
	}
	res = ResolveOverload(reg, g, []types.TypeID{types.String})
	if res.Outcome != NotApplicable {
		t.Errorf("string: %v, want not applicable", res.Outcome)
	}
	res = ResolveOverload(reg, g, nil)
	if res.Outcome != NotApplicable {
		t.Errorf("no args: %v, want not applicable", res.Outcome)
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		src  string
		code diag.Code
		frag string
	}{
		{"import std.math.sqrt;\nvar x = sqrt(\"4\");", diag.CodeType, "no overload of sqrt accepts (string)"},
		{"var x = 1;\nvar y = x(2);", diag.CodeType, "i32 is not a function"},
		{"import std.io.println;\nvar x = println(\"a\");", diag.CodeType, "does not produce a value"},
		{"import std.io.println;\nvar x = println;", diag.CodeType, "function println used as a value"},
		{"var x = i32;", diag.CodeType, "type name i32 used as a value"},
	}
	for _, tc := range tests {
		r := bind(t, tc.src)
		expectOne(t, r, tc.code, tc.frag)
	}
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

func TestAssignmentTargets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"constant", "const c = 1;\nc = 2;", "cannot assign to constant c"},
		{"parameter", "func f(p: i32) { p = 1; }", "cannot assign to parameter p"},
		{"field", "import std.math.pi;\npi = 3.0;", "cannot assign to readonly field std.math.pi"},
		{"string character", "var s = \"abc\";\ns[0] = 'x';", "cannot assign to a character of a string"},
		{"function", "func f() {}\nf = 1;", "cannot assign to function f"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bind(t, tc.src)
			expectOne(t, r, diag.CodeAssignment, tc.frag)
		})
	}
}

func TestCompoundAssignment(t *testing.T) {
	r := bind(t, `var x: i8 = 1;
var arr = new i32[4];
var s = "a";
x += 1;
arr[0] *= 3;
s += 1;
`)
	expectClean(t, r)

	stmts := r.prog.Script.Body.Statements
	ca := stmts[0].(*bound.ExprStmt).Expr.(*bound.CompoundAssignment)
	if ca.Value.Type() != types.I8 || r.reg.Callable(ca.Operator).Op != types.OpAdd {
		t.Errorf("x += 1: value %v, operator %+v", ca.Value.Type(), r.reg.Callable(ca.Operator))
	}
	if _, ok := stmts[1].(*bound.ExprStmt).Expr.(*bound.CompoundAssignment).Target.(*bound.Index); !ok {
		t.Error("arr[0] *= 3 target is not an index")
	}
	concat := stmts[2].(*bound.ExprStmt).Expr.(*bound.CompoundAssignment)
	if builtins.Key(r.reg, concat.Operator) != "std.runtime.concat(string,object)" {
		t.Errorf("s += 1 uses %s", builtins.Key(r.reg, concat.Operator))
	}

	r = bind(t, "var i: i32 = 0;\nvar f: f64 = 1.5;\ni += f;")
	expectOne(t, r, diag.CodeType, "+= produces f64, which cannot be stored in i32")
}

// ---------------------------------------------------------------------------
// Scopes and declarations
// ---------------------------------------------------------------------------

func TestShadowingCreatesDistinctSymbols(t *testing.T) {
	r := bind(t, `import std.io.println;
var x = 1;
{
    var x = "inner";
    println(x);
}
println(x);
`)
	expectClean(t, r)

	stmts := r.prog.Script.Body.Statements
	inner := stmts[0].(*bound.Block).Statements[0].(*bound.VarDecl).Symbol
	global := r.global(t, "x")
	if inner == global {
		t.Fatal("shadowing local reuses the global symbol")
	}
	if inner.Type != types.String || global.Type != types.I32 {
		t.Errorf("types: inner %v, global %v", inner.Type, global.Type)
	}

	innerUse := stmts[0].(*bound.Block).Statements[1].(*bound.ExprStmt).Expr.(*bound.Call).Args[0]
	if innerUse.(*bound.SymbolRef).Symbol != inner {
		t.Error("inner println does not read the inner x")
	}
	outerUse := stmts[1].(*bound.ExprStmt).Expr.(*bound.Call).Args[0].(*bound.Conversion).Operand
	if outerUse.(*bound.SymbolRef).Symbol != global {
		t.Error("outer println does not read the global x")
	}
}

func TestRedeclaration(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"global", "var a = 1;\nvar a = 2;", `"a" is already declared`},
		{"local", "func f() { var a = 1; var a = 2; }", `"a" is already declared`},
		{"parameter", "func f(a: i32, a: i32) {}", `"a" is already declared`},
		{"local over parameter", "func f(a: i32) { var a = 1; }", `"a" is already declared`},
		{"same signature", "func f(a: i32) {}\nfunc f(b: i32) {}", "function f(i32) is already declared"},
		{"global over function", "func f() {}\nvar f = 1;", `"f" is already declared`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bind(t, tc.src)
			if r.diags.Count(diag.CodeNameResolution) != 1 {
				t.Fatalf("diagnostics:\n%s", r.diags)
			}
			found := false
			for _, d := range r.diags.Items() {
				if d.Code == diag.CodeNameResolution && strings.Contains(d.Message, tc.frag) {
					found = true
				}
			}
			if !found {
				t.Errorf("no diagnostic containing %q:\n%s", tc.frag, r.diags)
			}
		})
	}
}

func TestGlobalInitializerOrder(t *testing.T) {
	r := bind(t, "var a = b;\nvar b = 1;")
	expectOne(t, r, diag.CodeNameResolution, `undeclared identifier "b"`)

	// Functions see every global regardless of order.
	r = bind(t, "func get(): i32 { return late; }\nvar late = 5;")
	expectClean(t, r)
}

func TestFunctionsCallEachOther(t *testing.T) {
	r := bind(t, `func even(n: i32): bool {
    if (n == 0) return true;
    return odd(n - 1);
}
func odd(n: i32): bool {
    if (n == 0) return false;
    return even(n - 1);
}
`)
	expectClean(t, r)
	if len(r.prog.Functions) != 2 {
		t.Errorf("functions = %d, want 2", len(r.prog.Functions))
	}
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

func TestImports(t *testing.T) {
	r := bind(t, `import std.math.abs(i64): i64;
var x = abs(-3);
`)
	expectClean(t, r)
	call := r.initValue(t, "x").(*bound.Call)
	if got := builtins.Key(r.reg, call.Callable); got != "std.math.abs(i64)" {
		t.Errorf("abs resolved to %s", got)
	}

	tests := []struct {
		src  string
		code diag.Code
		frag string
	}{
		{"import std.io.nothing;", diag.CodeImport, `unknown library symbol "std.io.nothing"`},
		{"import std.math.abs(string);", diag.CodeImport, "std.math.abs has no overload (string)"},
		{"import std.math.pi(f64);", diag.CodeImport, "is a field and takes no signature"},
		{"import std.io.print;\nimport std.math.pi;\nimport other.pi;", diag.CodeImport, "unknown library symbol"},
	}
	for _, tc := range tests {
		r := bind(t, tc.src)
		expectOne(t, r, tc.code, tc.frag)
	}
}

func TestImportMergesWithUserOverloads(t *testing.T) {
	r := bind(t, `import std.io.println;
func println(a: i32, b: i32) {}
println("x");
println(1, 2);
`)
	expectClean(t, r)
	stmts := r.prog.Script.Body.Statements
	first := stmts[0].(*bound.ExprStmt).Expr.(*bound.Call)
	second := stmts[1].(*bound.ExprStmt).Expr.(*bound.Call)
	if builtins.Key(r.reg, first.Callable) != "std.io.println(string)" {
		t.Errorf("first call: %s", builtins.Key(r.reg, first.Callable))
	}
	if len(r.reg.Callable(second.Callable).Params) != 2 {
		t.Error("second call did not pick the user overload")
	}
}

// ---------------------------------------------------------------------------
// Flow
// ---------------------------------------------------------------------------

func TestFlowDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		code     diag.Code
		severity diag.Severity
		frag     string
	}{
		{"break outside loop", "break;", diag.CodeFlow, diag.Error, "break outside a loop"},
		{"continue outside loop", "func f() { continue; }", diag.CodeFlow, diag.Error, "continue outside a loop"},
		{"missing return", "func f(a: i32): i32 { if (a > 0) return 1; }", diag.CodeFlow, diag.Error, "missing return in function f"},
		{"unreachable", "func f(): i32 { return 1; f(); }", diag.CodeUnreachable, diag.Warning, "unreachable code"},
		{"unused local", "func f() { var x = 1; }", diag.CodeUnused, diag.Warning, `local "x" is declared but never read`},
		{"void return value", "func f() { return 1; }", diag.CodeType, diag.Error, "unexpected return value"},
		{"missing return value", "func f(): i32 { return; }", diag.CodeType, diag.Error, "missing return value of type i32"},
		{"condition type", "if (1) {}", diag.CodeType, diag.Error, "cannot use i32 as bool"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bind(t, tc.src)
			expectOne(t, r, tc.code, tc.frag)
			if d := r.diags.Items()[0]; d.Severity != tc.severity {
				t.Errorf("severity = %v, want %v", d.Severity, tc.severity)
			}
		})
	}
}

func TestFlowAccepted(t *testing.T) {
	srcs := []string{
		"func f(a: i32): i32 { if (a > 0) return 1; else return 2; }",
		"func f(): i32 { while (true) {} }",
		"func f(): i32 { for (;;) {} }",
		"func f(a: i32): i32 { while (true) { if (a > 0) return a; } }",
		"func f() { var _ = 1; }",
		"func f() { while (true) { break; } }",
		"func f(): i32 { { return 1; } }",
	}
	for _, src := range srcs {
		if r := bind(t, src); r.diags.Len() != 0 {
			t.Errorf("%s:\n%s", src, r.diags)
		}
	}

	r := bind(t, "func f(): i32 { while (true) { break; } }")
	expectOne(t, r, diag.CodeFlow, "missing return")
}

func TestUnreachableReportedOncePerBlock(t *testing.T) {
	r := bind(t, `func f(): i32 {
    return 1;
    var a = 2;
    var b = 3;
}`)
	if n := r.diags.Count(diag.CodeUnreachable); n != 1 {
		t.Errorf("unreachable warnings = %d, want 1:\n%s", n, r.diags)
	}
}

// ---------------------------------------------------------------------------
// Program shape
// ---------------------------------------------------------------------------

func TestEntrySelection(t *testing.T) {
	r := bind(t, "func main() {}\nvar x = 1;\nx = 2;")
	if r.prog.Script == nil || r.prog.Entry != r.prog.Script {
		t.Error("top-level statements should form the entry")
	}

	r = bind(t, "func helper() {}\nfunc main() { helper(); }")
	if r.prog.Script != nil || r.prog.Entry == nil || r.prog.Entry.Name != MainName {
		t.Errorf("entry = %+v, want main", r.prog.Entry)
	}

	r = bind(t, "func main(a: i32) {}")
	if r.prog.Entry != nil {
		t.Error("main with parameters is not an entry")
	}

	routines := bind(t, "func a() {}\nfunc b() {}\na();").prog.Routines()
	names := make([]string, len(routines))
	for i, fn := range routines {
		names[i] = fn.Name
	}
	if strings.Join(names, ",") != InitName+",a,b,"+ScriptName {
		t.Errorf("routines = %v", names)
	}
}

func TestArraysAndStrings(t *testing.T) {
	r := bind(t, `var grid = new i32[3][];
var row = new i32[3];
var n = row.length;
var s = "hey";
var c = s[1];
var m = s.length;
var bad = row[true];
`)
	expectOne(t, r, diag.CodeType, "cannot use bool as i32")

	if got := r.reg.Name(r.global(t, "grid").Type); got != "i32[][]" {
		t.Errorf("grid type = %s", got)
	}
	if r.global(t, "n").Type != types.I32 || r.global(t, "c").Type != types.Char || r.global(t, "m").Type != types.I32 {
		t.Error("length or string index typed wrongly")
	}
}
