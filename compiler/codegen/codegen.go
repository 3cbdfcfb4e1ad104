// Package codegen emits lowered routines into a module sink. Emission is
// two-pass per method: instructions are appended in order with placeholder
// branch targets, then every branch is patched once all label positions are
// known.
package codegen

import (
	"github.com/chazu/tern/compiler/builtins"
	"github.com/chazu/tern/compiler/diag"
	"github.com/chazu/tern/compiler/lower"
	"github.com/chazu/tern/compiler/types"
	"github.com/chazu/tern/vm"
)

// ModuleSink receives a module's fields and methods.
type ModuleSink interface {
	DeclareStaticField(name, typ string) int
	DeclareMethod(name string, params []string, result string) (int, vm.MethodSink)
	Constant(c vm.Constant) int
	TypeRef(name string) int
	Native(key string) int
	SetInitializer(method int)
	SetEntry(method int)
}

// Generator holds the module-level tables shared by all method bodies.
type Generator struct {
	reg     *types.Registry
	sink    ModuleSink
	statics map[*types.Symbol]int
	methods map[types.TypeID]int // user callable -> method index
}

// Generate emits a whole program. The program must be free of errors;
// anything Error-typed is a compiler defect and panics.
func Generate(reg *types.Registry, prog *lower.Program, sink ModuleSink) {
	g := &Generator{
		reg:     reg,
		sink:    sink,
		statics: make(map[*types.Symbol]int),
		methods: make(map[types.TypeID]int),
	}

	// Fields first, then every method, so bodies can refer forward.
	for _, sym := range prog.Globals {
		g.statics[sym] = sink.DeclareStaticField(sym.Name, g.typeName(sym.Type))
	}

	routines := prog.Routines()
	sinks := make([]vm.MethodSink, len(routines))
	indexes := make(map[*lower.Function]int, len(routines))
	for i, fn := range routines {
		params := make([]string, len(fn.Params))
		for j, p := range fn.Params {
			params[j] = g.typeName(p.Type)
		}
		idx, ms := sink.DeclareMethod(fn.Name, params, g.typeName(fn.Result))
		sinks[i] = ms
		indexes[fn] = idx
		if fn.Callable != types.NoType {
			g.methods[fn.Callable] = idx
		}
	}

	sink.SetInitializer(indexes[prog.Init])
	if prog.Entry != nil {
		sink.SetEntry(indexes[prog.Entry])
	}

	for i, fn := range routines {
		g.Method(fn, sinks[i])
	}
}

func (g *Generator) typeName(t types.TypeID) string {
	if t == types.Error || t == types.NoType {
		panic(diag.Internalf("codegen: %s type reached code generation", t))
	}
	return g.reg.Name(t)
}

func (g *Generator) tag(t types.TypeID) vm.Tag {
	return vm.TagOf(g.typeName(t))
}

// ---------------------------------------------------------------------------
// Method bodies
// ---------------------------------------------------------------------------

type patch struct {
	index int
	label lower.LabelID
}

type method struct {
	*Generator
	fn      *lower.Function
	out     vm.MethodSink
	locals  map[*types.Symbol]int
	labels  map[lower.LabelID]int
	patches []patch
}

// Method emits one routine into out and patches its branches.
func (g *Generator) Method(fn *lower.Function, out vm.MethodSink) {
	m := &method{
		Generator: g,
		fn:        fn,
		out:       out,
		locals:    make(map[*types.Symbol]int),
		labels:    make(map[lower.LabelID]int),
	}
	for _, s := range fn.Body {
		m.stmt(s)
	}
	m.patch()
}

func (m *method) emit(op vm.Opcode, a int) int {
	return m.out.Append(vm.Ins(op, a))
}

func (m *method) emitTyped(op vm.Opcode, t vm.Tag) int {
	return m.out.Append(vm.Typed(op, t))
}

// patch resolves every recorded branch against the label table.
func (m *method) patch() {
	for _, p := range m.patches {
		target, ok := m.labels[p.label]
		if !ok {
			panic(diag.Internalf("codegen: %s: jump to undefined label L%d", m.fn.Name, p.label))
		}
		m.out.Patch(p.index, target)
	}
}

func (m *method) branch(op vm.Opcode, label lower.LabelID) {
	idx := m.emit(op, -1)
	m.patches = append(m.patches, patch{index: idx, label: label})
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (m *method) stmt(s lower.Stmt) {
	switch n := s.(type) {
	case *lower.Declare:
		m.local(n.Symbol)
	case *lower.ExprStmt:
		m.expr(n.Expr)
		if n.Expr.Type() != types.Void {
			m.emit(vm.OpPOP, 0)
		}
	case *lower.Return:
		if n.Value == nil {
			m.emit(vm.OpReturnVoid, 0)
			return
		}
		m.expr(n.Value)
		m.emit(vm.OpReturn, 0)
	case *lower.Goto:
		m.branch(vm.OpJump, n.Target)
	case *lower.CondGoto:
		m.expr(n.Cond)
		m.branch(vm.OpJumpTrue, n.Target)
	case *lower.Label:
		if _, dup := m.labels[n.ID]; dup {
			panic(diag.Internalf("codegen: %s: label L%d defined twice", m.fn.Name, n.ID))
		}
		m.labels[n.ID] = m.out.Len()
	default:
		panic(diag.Internalf("codegen: unexpected statement %T", s))
	}
}

// local returns the slot of a local, allocating it at first sight.
func (m *method) local(sym *types.Symbol) int {
	if slot, ok := m.locals[sym]; ok {
		return slot
	}
	slot := m.out.DeclareLocal(sym.Name, m.typeName(sym.Type))
	m.locals[sym] = slot
	return slot
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (m *method) expr(e lower.Expr) {
	switch n := e.(type) {
	case *lower.Literal:
		m.emit(vm.OpPushConst, m.sink.Constant(m.constant(n)))
	case *lower.SymbolRef:
		m.load(n.Symbol)
	case *lower.Assign:
		m.assign(n)
	case *lower.Binary:
		m.expr(n.Left)
		m.expr(n.Right)
		m.binary(n.Op, m.tag(n.Operand))
	case *lower.Unary:
		m.expr(n.Operand)
		m.unary(n.Op, m.tag(n.Operand.Type()))
	case *lower.Call:
		m.call(n)
	case *lower.Conversion:
		m.expr(n.Operand)
		m.conversion(n)
	case *lower.Index:
		m.expr(n.Target)
		m.expr(n.Index)
		m.emit(vm.OpLoadElem, 0)
	case *lower.Length:
		m.expr(n.Target)
		m.emit(vm.OpLength, 0)
	case *lower.NewArray:
		m.expr(n.Size)
		m.emit(vm.OpNewArray, m.sink.TypeRef(m.typeName(n.Elem)))
	case *lower.Invalid:
		panic(diag.Internalf("codegen: %s: invalid expression reached code generation", m.fn.Name))
	default:
		panic(diag.Internalf("codegen: unexpected expression %T", e))
	}
}

// constant converts a literal to a pool entry of its static type.
func (m *method) constant(n *lower.Literal) vm.Constant {
	t := n.TypeVal
	switch v := n.Value.(type) {
	case nil:
		return vm.NullConst()
	case bool:
		return vm.BoolConst(v)
	case rune:
		return vm.CharConst(v)
	case string:
		return vm.StringConst(v)
	case float64:
		if t == types.F32 {
			v = float64(float32(v))
		}
		return vm.FloatConst(v)
	case int64:
		switch {
		case types.IsUnsigned(t):
			return vm.UintConst(uint64(v))
		case types.IsFloat(t):
			return vm.FloatConst(float64(v))
		}
		return vm.IntConst(v)
	case uint64:
		switch {
		case types.IsSigned(t):
			return vm.IntConst(int64(v))
		case types.IsFloat(t):
			return vm.FloatConst(float64(v))
		}
		return vm.UintConst(v)
	}
	panic(diag.Internalf("codegen: literal of Go type %T", n.Value))
}

func (m *method) load(sym *types.Symbol) {
	switch sym.Kind {
	case types.SymLocal:
		m.emit(vm.OpLoadLocal, m.local(sym))
	case types.SymParameter:
		m.emit(vm.OpLoadArg, sym.Index)
	case types.SymGlobal:
		m.emit(vm.OpLoadStatic, m.static(sym))
	case types.SymField:
		m.emit(vm.OpLoadNative, m.sink.Native(sym.Path))
	default:
		panic(diag.Internalf("codegen: cannot load %s %q", sym.Kind, sym.Name))
	}
}

func (m *method) static(sym *types.Symbol) int {
	idx, ok := m.statics[sym]
	if !ok {
		panic(diag.Internalf("codegen: global %q was never declared", sym.Name))
	}
	return idx
}

// assign stores and leaves the stored value on the stack.
func (m *method) assign(n *lower.Assign) {
	switch t := n.Target.(type) {
	case *lower.SymbolRef:
		m.expr(n.Value)
		switch t.Symbol.Kind {
		case types.SymLocal:
			m.emit(vm.OpStoreLocal, m.local(t.Symbol))
		case types.SymGlobal:
			m.emit(vm.OpStoreStatic, m.static(t.Symbol))
		default:
			panic(diag.Internalf("codegen: cannot store to %s %q", t.Symbol.Kind, t.Symbol.Name))
		}
	case *lower.Index:
		m.expr(t.Target)
		m.expr(t.Index)
		m.expr(n.Value)
		m.emit(vm.OpStoreElem, 0)
	default:
		panic(diag.Internalf("codegen: assignment to %T", n.Target))
	}
}

// not negates the bool on top of the stack by comparing it to false.
func (m *method) not() {
	m.emit(vm.OpPushConst, m.sink.Constant(vm.BoolConst(false)))
	m.emitTyped(vm.OpCeq, vm.TagBool)
}

func (m *method) binary(op types.Operator, t vm.Tag) {
	switch op {
	case types.OpAdd:
		m.emitTyped(vm.OpAdd, t)
	case types.OpSub:
		m.emitTyped(vm.OpSub, t)
	case types.OpMul:
		m.emitTyped(vm.OpMul, t)
	case types.OpDiv:
		m.emitTyped(vm.OpDiv, t)
	case types.OpRem:
		m.emitTyped(vm.OpRem, t)
	case types.OpAnd:
		m.emitTyped(vm.OpAnd, t)
	case types.OpOr:
		m.emitTyped(vm.OpOr, t)
	case types.OpXor:
		m.emitTyped(vm.OpXor, t)
	case types.OpShl:
		m.emitTyped(vm.OpShl, t)
	case types.OpShr:
		m.emitTyped(vm.OpShr, t)
	case types.OpEq:
		m.emitTyped(vm.OpCeq, t)
	case types.OpNe:
		m.emitTyped(vm.OpCeq, t)
		m.not()
	case types.OpLt:
		m.emitTyped(vm.OpClt, t)
	case types.OpGt:
		m.emitTyped(vm.OpCgt, t)
	case types.OpLe:
		m.emitTyped(vm.OpCgt, t)
		m.not()
	case types.OpGe:
		m.emitTyped(vm.OpClt, t)
		m.not()
	default:
		panic(diag.Internalf("codegen: %s is not a binary operator", op))
	}
}

func (m *method) unary(op types.Operator, t vm.Tag) {
	switch op {
	case types.OpNeg:
		m.emitTyped(vm.OpNeg, t)
	case types.OpPlus:
	case types.OpNot:
		m.not()
	case types.OpComplement:
		m.emitTyped(vm.OpCompl, t)
	default:
		panic(diag.Internalf("codegen: %s is not a unary operator", op))
	}
}

// call emits the arguments left to right and the call. Static calls have
// no receiver, so nothing is pushed for it.
func (m *method) call(n *lower.Call) {
	for _, a := range n.Args {
		m.expr(a)
	}
	if idx, ok := m.methods[n.Callable]; ok {
		m.emit(vm.OpCall, idx)
		return
	}
	if m.reg.Callable(n.Callable).Intrinsic() {
		panic(diag.Internalf("codegen: intrinsic %s lowered as a call", m.reg.FullName(n.Callable)))
	}
	m.emit(vm.OpCallNative, m.sink.Native(builtins.Key(m.reg, n.Callable)))
}

func (m *method) conversion(n *lower.Conversion) {
	from := n.Operand.Type()
	switch n.Kind {
	case types.ConvWiden, types.ConvNumeric:
		ins := vm.Typed(vm.OpConvert, m.tag(n.TypeVal))
		ins.A = int32(m.tag(from))
		m.out.Append(ins)
	case types.ConvBox:
		m.emit(vm.OpBox, m.sink.TypeRef(m.typeName(from)))
	case types.ConvUnbox:
		m.emit(vm.OpUnbox, m.sink.TypeRef(m.typeName(n.TypeVal)))
	default:
		panic(diag.Internalf("codegen: %s conversion reached code generation", n.Kind))
	}
}
