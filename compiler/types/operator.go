package types

// Operator tags an intrinsic callable with the primitive it compiles to.
// Library callables carry OpNone.
type Operator uint8

const (
	OpNone Operator = iota

	// Binary arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem

	// Bitwise (also logical on bool)
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Comparison
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe

	// Short-circuit logic, rewritten into jumps by lowering
	OpAndAlso
	OpOrElse

	// Unary
	OpNeg
	OpPlus
	OpNot
	OpComplement
)

var operatorNames = map[Operator]string{
	OpNone:       "none",
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpRem:        "%",
	OpAnd:        "&",
	OpOr:         "|",
	OpXor:        "^",
	OpShl:        "<<",
	OpShr:        ">>",
	OpEq:         "==",
	OpNe:         "!=",
	OpLt:         "<",
	OpGt:         ">",
	OpLe:         "<=",
	OpGe:         ">=",
	OpAndAlso:    "&&",
	OpOrElse:     "||",
	OpNeg:        "-",
	OpPlus:       "+",
	OpNot:        "!",
	OpComplement: "~",
}

func (o Operator) String() string {
	if s, ok := operatorNames[o]; ok {
		return s
	}
	return "op?"
}

// IsComparison reports whether o yields bool from two operands.
func (o Operator) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// IsShortCircuit reports whether o evaluates its right operand only when
// the left one does not decide the result.
func (o Operator) IsShortCircuit() bool {
	return o == OpAndAlso || o == OpOrElse
}

// IsUnary reports whether o takes a single operand.
func (o Operator) IsUnary() bool {
	return o >= OpNeg
}
