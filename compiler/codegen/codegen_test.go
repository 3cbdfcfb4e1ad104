package codegen

import (
	"strings"
	"testing"

	"github.com/chazu/tern/compiler/binder"
	"github.com/chazu/tern/compiler/builtins"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/lower"
	"github.com/chazu/tern/compiler/syntax"
	"github.com/chazu/tern/compiler/types"
	"github.com/chazu/tern/vm"
)

func i32(v int64) *lower.Literal {
	return &lower.Literal{Value: v, TypeVal: types.I32}
}

func boolLit(v bool) *lower.Literal {
	return &lower.Literal{Value: v, TypeVal: types.Bool}
}

// emitBody generates a single routine f with the given body.
func emitBody(t *testing.T, result types.TypeID, body ...lower.Stmt) (*vm.Module, *vm.Method) {
	t.Helper()
	reg := types.NewRegistry()
	b := vm.NewModuleBuilder("test")
	g := &Generator{
		reg:     reg,
		sink:    b,
		statics: make(map[*types.Symbol]int),
		methods: make(map[types.TypeID]int),
	}
	fn := &lower.Function{Name: "f", Callable: types.NoType, Result: result, Body: body}
	_, ms := b.DeclareMethod(fn.Name, nil, reg.Name(result))
	g.Method(fn, ms)
	m := b.Module()
	return m, m.Methods[0]
}

func opcodes(code []vm.Instruction) []string {
	out := make([]string, len(code))
	for i, ins := range code {
		name := ins.Op.Name()
		if ins.Op.Info().Typed && ins.Op != vm.OpConvert {
			name += "." + ins.T.String()
		}
		out[i] = name
	}
	return out
}

func expectOps(t *testing.T, code []vm.Instruction, want ...string) {
	t.Helper()
	got := opcodes(code)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("code = %v\nwant   %v", got, want)
	}
}

func expectInternal(t *testing.T, frag string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(*diag.InternalError)
		if !ok {
			t.Fatalf("recovered %v, want an internal error", r)
		}
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error = %q, want it to mention %q", err.Error(), frag)
		}
	}()
	f()
}

func TestPostOrderArithmetic(t *testing.T) {
	mul := &lower.Binary{Op: types.OpMul, Operand: types.I32, Left: i32(2), Right: i32(3), TypeVal: types.I32}
	add := &lower.Binary{Op: types.OpAdd, Operand: types.I32, Left: i32(1), Right: mul, TypeVal: types.I32}
	m, meth := emitBody(t, types.I32, &lower.Return{Value: add})

	expectOps(t, meth.Code, "push", "push", "push", "mul.i32", "add.i32", "ret")
	for i, want := range []int64{1, 2, 3} {
		c := m.Constants[meth.Code[i].A]
		if c.Value() != want {
			t.Errorf("push %d = %v, want %d", i, c.Value(), want)
		}
	}
}

func TestConstantsAreInterned(t *testing.T) {
	sum := &lower.Binary{Op: types.OpAdd, Operand: types.I32, Left: i32(7), Right: i32(7), TypeVal: types.I32}
	m, meth := emitBody(t, types.I32, &lower.Return{Value: sum})
	if len(m.Constants) != 1 || meth.Code[0].A != meth.Code[1].A {
		t.Errorf("constants = %v", m.Constants)
	}
}

func TestDerivedComparisons(t *testing.T) {
	tests := []struct {
		op   types.Operator
		want []string
	}{
		{types.OpEq, []string{"push", "push", "ceq.i32", "ret"}},
		{types.OpNe, []string{"push", "push", "ceq.i32", "push", "ceq.bool", "ret"}},
		{types.OpLt, []string{"push", "push", "clt.i32", "ret"}},
		{types.OpLe, []string{"push", "push", "cgt.i32", "push", "ceq.bool", "ret"}},
		{types.OpGe, []string{"push", "push", "clt.i32", "push", "ceq.bool", "ret"}},
	}
	for _, tc := range tests {
		cmp := &lower.Binary{Op: tc.op, Operand: types.I32, Left: i32(1), Right: i32(2), TypeVal: types.Bool}
		_, meth := emitBody(t, types.Bool, &lower.Return{Value: cmp})
		expectOps(t, meth.Code, tc.want...)
	}
}

func TestJumpPatching(t *testing.T) {
	_, meth := emitBody(t, types.Void,
		&lower.Label{ID: 1},
		&lower.CondGoto{Cond: boolLit(false), Target: 2},
		&lower.Goto{Target: 1},
		&lower.Label{ID: 2},
		&lower.Return{},
	)
	expectOps(t, meth.Code, "push", "brtrue", "br", "retvoid")
	if meth.Code[1].A != 3 {
		t.Errorf("forward branch target = %d, want 3", meth.Code[1].A)
	}
	if meth.Code[2].A != 0 {
		t.Errorf("backward branch target = %d, want 0", meth.Code[2].A)
	}
}

func TestBadLabelsPanic(t *testing.T) {
	expectInternal(t, "undefined label L9", func() {
		emitBody(t, types.Void, &lower.Goto{Target: 9}, &lower.Return{})
	})
	expectInternal(t, "defined twice", func() {
		emitBody(t, types.Void, &lower.Label{ID: 1}, &lower.Label{ID: 1}, &lower.Return{})
	})
}

func TestInvalidNodesPanic(t *testing.T) {
	expectInternal(t, "invalid expression", func() {
		emitBody(t, types.Void, &lower.ExprStmt{Expr: &lower.Invalid{}}, &lower.Return{})
	})
}

func TestLocalsAndDiscardedValues(t *testing.T) {
	x := types.NewLocal("x", types.I32, false)
	_, meth := emitBody(t, types.I32,
		&lower.Declare{Symbol: x},
		&lower.ExprStmt{Expr: &lower.Assign{Target: &lower.SymbolRef{Symbol: x}, Value: i32(5)}},
		&lower.Return{Value: &lower.SymbolRef{Symbol: x}},
	)
	expectOps(t, meth.Code, "push", "stloc", "pop", "ldloc", "ret")
	if len(meth.Locals) != 1 || meth.Locals[0].Name != "x" || meth.Locals[0].Type != "i32" {
		t.Errorf("locals = %v", meth.Locals)
	}
}

func TestConversions(t *testing.T) {
	p := types.NewParameter("p", types.I32, 0)
	widen := &lower.Conversion{Kind: types.ConvWiden, Operand: &lower.SymbolRef{Symbol: p}, TypeVal: types.I64}
	_, meth := emitBody(t, types.I64, &lower.Return{Value: widen})
	expectOps(t, meth.Code, "ldarg", "conv", "ret")
	conv := meth.Code[1]
	if vm.Tag(conv.A) != vm.TagI32 || conv.T != vm.TagI64 {
		t.Errorf("conv operands = %s -> %s", vm.Tag(conv.A), conv.T)
	}

	expectInternal(t, "conversion reached code generation", func() {
		parse := &lower.Conversion{Kind: types.ConvParse, Operand: &lower.Literal{Value: "1", TypeVal: types.String}, TypeVal: types.I32}
		emitBody(t, types.I32, &lower.Return{Value: parse})
	})
}

func TestUnsignedLiteralConstants(t *testing.T) {
	lit := &lower.Literal{Value: int64(200), TypeVal: types.U8}
	m, _ := emitBody(t, types.U8, &lower.Return{Value: lit})
	if m.Constants[0].Kind != vm.ConstUint || m.Constants[0].Value() != uint64(200) {
		t.Errorf("constant = %+v", m.Constants[0])
	}
}

func TestGenerateProgram(t *testing.T) {
	src := `import std.io.println;
var g: i32 = 4;
func sq(x: i32): i32 { return x * x; }
println(sq(g));
`
	file, errs := syntax.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	reg := types.NewRegistry()
	diags := diag.NewBag()
	bp := binder.New(reg, builtins.Load(reg), diags).BindProgram(file)
	if diags.HasErrors() {
		t.Fatalf("bind errors:\n%s", diags)
	}
	b := vm.NewModuleBuilder("prog")
	Generate(reg, lower.Lower(reg, bp), b)
	m := b.Module()

	if len(m.Fields) != 1 || m.Fields[0].Name != "g" || m.Fields[0].Type != "i32" {
		t.Errorf("fields = %v", m.Fields)
	}
	if m.Init != m.MethodIndex(binder.InitName) || m.Entry != m.MethodIndex(binder.ScriptName) {
		t.Errorf("init = %d, entry = %d", m.Init, m.Entry)
	}
	sq := m.Methods[m.MethodIndex("sq")]
	expectOps(t, sq.Code, "ldarg", "ldarg", "mul.i32", "ret")

	listing := vm.DisassembleModule(m)
	for _, frag := range []string{"call", "; sq", "box", "callnative", "std.io.println(object)", "stsfld"} {
		if !strings.Contains(listing, frag) {
			t.Errorf("listing missing %q:\n%s", frag, listing)
		}
	}
}
