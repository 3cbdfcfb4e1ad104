package binder

import "github.com/chazu/tern/compiler/types"

// ---------------------------------------------------------------------------
// Intrinsic operator groups
// ---------------------------------------------------------------------------

// operators holds one intrinsic callable group per source operator. Each
// group has one overload per operand type, so operand promotion is decided
// by ordinary overload resolution.
type operators struct {
	binary map[string]types.TypeID
	unary  map[string]types.TypeID
}

var (
	numericTypes = []types.TypeID{
		types.I8, types.I16, types.I32, types.I64,
		types.U8, types.U16, types.U32, types.U64,
		types.F32, types.F64,
	}
	integerTypes = numericTypes[:8]
	signedTypes  = []types.TypeID{types.I8, types.I16, types.I32, types.I64, types.F32, types.F64}
)

func with(ts []types.TypeID, extra ...types.TypeID) []types.TypeID {
	out := append([]types.TypeID(nil), ts...)
	return append(out, extra...)
}

func newOperators(reg *types.Registry) *operators {
	o := &operators{
		binary: make(map[string]types.TypeID),
		unary:  make(map[string]types.TypeID),
	}

	arith := func(name string, op types.Operator, operands []types.TypeID) {
		g := reg.NewGroup(name, "")
		for _, t := range operands {
			reg.AddCallable(g, t, []types.TypeID{t, t}, op)
		}
		o.binary[name] = g
	}
	compare := func(name string, op types.Operator, operands []types.TypeID) {
		g := reg.NewGroup(name, "")
		for _, t := range operands {
			reg.AddCallable(g, types.Bool, []types.TypeID{t, t}, op)
		}
		o.binary[name] = g
	}
	unary := func(name string, op types.Operator, operands []types.TypeID) {
		g := reg.NewGroup(name, "")
		for _, t := range operands {
			reg.AddCallable(g, t, []types.TypeID{t}, op)
		}
		o.unary[name] = g
	}

	arith("+", types.OpAdd, numericTypes)
	arith("-", types.OpSub, numericTypes)
	arith("*", types.OpMul, numericTypes)
	arith("/", types.OpDiv, numericTypes)
	arith("%", types.OpRem, numericTypes)

	arith("&", types.OpAnd, with(integerTypes, types.Bool))
	arith("|", types.OpOr, with(integerTypes, types.Bool))
	arith("^", types.OpXor, with(integerTypes, types.Bool))
	arith("<<", types.OpShl, integerTypes)
	arith(">>", types.OpShr, integerTypes)

	arith("&&", types.OpAndAlso, []types.TypeID{types.Bool})
	arith("||", types.OpOrElse, []types.TypeID{types.Bool})

	compare("==", types.OpEq, with(numericTypes, types.Bool, types.Char))
	compare("!=", types.OpNe, with(numericTypes, types.Bool, types.Char))
	compare("<", types.OpLt, with(numericTypes, types.Char))
	compare(">", types.OpGt, with(numericTypes, types.Char))
	compare("<=", types.OpLe, with(numericTypes, types.Char))
	compare(">=", types.OpGe, with(numericTypes, types.Char))

	unary("-", types.OpNeg, signedTypes)
	unary("+", types.OpPlus, numericTypes)
	unary("!", types.OpNot, []types.TypeID{types.Bool})
	unary("~", types.OpComplement, integerTypes)

	return o
}

// not returns the boolean negation callable.
func (o *operators) not(reg *types.Registry) types.TypeID {
	return reg.Members(o.unary["!"])[0]
}
