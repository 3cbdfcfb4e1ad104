package vm

import (
	"errors"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Width normalization
// ---------------------------------------------------------------------------

// wrapSigned truncates v to the width of a signed tag.
func wrapSigned(v int64, t Tag) int64 {
	switch t {
	case TagI8:
		return int64(int8(v))
	case TagI16:
		return int64(int16(v))
	case TagI32:
		return int64(int32(v))
	}
	return v
}

// wrapUnsigned truncates v to the width of an unsigned tag.
func wrapUnsigned(v uint64, t Tag) uint64 {
	switch t {
	case TagU8:
		return uint64(uint8(v))
	case TagU16:
		return uint64(uint16(v))
	case TagU32:
		return uint64(uint32(v))
	}
	return v
}

// roundFloat rounds v to the precision of a floating tag.
func roundFloat(v float64, t Tag) float64 {
	if t == TagF32 {
		return float64(float32(v))
	}
	return v
}

// ---------------------------------------------------------------------------
// Binary and unary operations
// ---------------------------------------------------------------------------

var errDivideByZero = errors.New("integer division by zero")

func mismatch(op Opcode, t Tag, v Value) error {
	return fmt.Errorf("%s.%s applied to %T", op, t, v)
}

// binaryOp applies an arithmetic, bitwise or comparison opcode to two
// operands of tag t.
func binaryOp(op Opcode, t Tag, a, b Value) (Value, error) {
	switch {
	case t.IsSigned():
		x, ok1 := a.(int64)
		y, ok2 := b.(int64)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		return signedOp(op, t, x, y)
	case t.IsUnsigned():
		x, ok1 := a.(uint64)
		y, ok2 := b.(uint64)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		return unsignedOp(op, t, x, y)
	case t.IsFloat():
		x, ok1 := a.(float64)
		y, ok2 := b.(float64)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		return floatOp(op, t, x, y)
	case t == TagBool:
		x, ok1 := a.(bool)
		y, ok2 := b.(bool)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		switch op {
		case OpAnd:
			return x && y, nil
		case OpOr:
			return x || y, nil
		case OpXor:
			return x != y, nil
		case OpCeq:
			return x == y, nil
		}
	case t == TagChar:
		x, ok1 := a.(rune)
		y, ok2 := b.(rune)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		switch op {
		case OpCeq:
			return x == y, nil
		case OpClt:
			return x < y, nil
		case OpCgt:
			return x > y, nil
		}
	case t == TagString:
		x, ok1 := a.(string)
		y, ok2 := b.(string)
		if !ok1 || !ok2 {
			return nil, mismatch(op, t, a)
		}
		switch op {
		case OpCeq:
			return x == y, nil
		case OpClt:
			return x < y, nil
		case OpCgt:
			return x > y, nil
		case OpAdd:
			return x + y, nil
		}
	case t == TagRef:
		if op == OpCeq {
			return ObjectEquals(a, b), nil
		}
	}
	return nil, fmt.Errorf("%s is not defined for %s", op, t)
}

func signedOp(op Opcode, t Tag, x, y int64) (Value, error) {
	switch op {
	case OpAdd:
		return wrapSigned(x+y, t), nil
	case OpSub:
		return wrapSigned(x-y, t), nil
	case OpMul:
		return wrapSigned(x*y, t), nil
	case OpDiv:
		if y == 0 {
			return nil, errDivideByZero
		}
		return wrapSigned(x/y, t), nil
	case OpRem:
		if y == 0 {
			return nil, errDivideByZero
		}
		return wrapSigned(x%y, t), nil
	case OpAnd:
		return x & y, nil
	case OpOr:
		return x | y, nil
	case OpXor:
		return x ^ y, nil
	case OpShl:
		if y < 0 {
			return nil, fmt.Errorf("negative shift count %d", y)
		}
		return wrapSigned(x<<uint64(y), t), nil
	case OpShr:
		if y < 0 {
			return nil, fmt.Errorf("negative shift count %d", y)
		}
		return x >> uint64(y), nil
	case OpCeq:
		return x == y, nil
	case OpClt:
		return x < y, nil
	case OpCgt:
		return x > y, nil
	}
	return nil, fmt.Errorf("%s is not defined for %s", op, t)
}

func unsignedOp(op Opcode, t Tag, x, y uint64) (Value, error) {
	switch op {
	case OpAdd:
		return wrapUnsigned(x+y, t), nil
	case OpSub:
		return wrapUnsigned(x-y, t), nil
	case OpMul:
		return wrapUnsigned(x*y, t), nil
	case OpDiv:
		if y == 0 {
			return nil, errDivideByZero
		}
		return x / y, nil
	case OpRem:
		if y == 0 {
			return nil, errDivideByZero
		}
		return x % y, nil
	case OpAnd:
		return x & y, nil
	case OpOr:
		return x | y, nil
	case OpXor:
		return x ^ y, nil
	case OpShl:
		return wrapUnsigned(x<<y, t), nil
	case OpShr:
		return x >> y, nil
	case OpCeq:
		return x == y, nil
	case OpClt:
		return x < y, nil
	case OpCgt:
		return x > y, nil
	}
	return nil, fmt.Errorf("%s is not defined for %s", op, t)
}

func floatOp(op Opcode, t Tag, x, y float64) (Value, error) {
	switch op {
	case OpAdd:
		return roundFloat(x+y, t), nil
	case OpSub:
		return roundFloat(x-y, t), nil
	case OpMul:
		return roundFloat(x*y, t), nil
	case OpDiv:
		return roundFloat(x/y, t), nil
	case OpRem:
		return roundFloat(math.Mod(x, y), t), nil
	case OpCeq:
		return x == y, nil
	case OpClt:
		return x < y, nil
	case OpCgt:
		return x > y, nil
	}
	return nil, fmt.Errorf("%s is not defined for %s", op, t)
}

// unaryOp applies neg or compl.
func unaryOp(op Opcode, t Tag, v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		if op == OpNeg {
			return wrapSigned(-x, t), nil
		}
		return ^x, nil
	case uint64:
		if op == OpCompl {
			return wrapUnsigned(^x, t), nil
		}
	case float64:
		if op == OpNeg {
			return -x, nil
		}
	}
	return nil, mismatch(op, t, v)
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// convert performs a numeric or char conversion from tag from to tag to.
// Integer results wrap; float to integer truncates toward zero and maps
// NaN to zero.
func convert(from, to Tag, v Value) (Value, error) {
	var (
		i int64
		u uint64
		f float64
	)
	switch x := v.(type) {
	case int64:
		i, u, f = x, uint64(x), float64(x)
	case uint64:
		i, u, f = int64(x), x, float64(x)
	case float64:
		f = x
		if !math.IsNaN(x) {
			if x < 0 {
				i = int64(x)
				u = uint64(i)
			} else if x >= math.MaxUint64 {
				i, u = -1, math.MaxUint64
			} else {
				u = uint64(x)
				i = int64(u)
			}
		}
	case rune:
		i, u, f = int64(x), uint64(x), float64(x)
	default:
		return nil, fmt.Errorf("conv %s -> %s applied to %T", from, to, v)
	}

	switch {
	case to.IsSigned():
		return wrapSigned(i, to), nil
	case to.IsUnsigned():
		return wrapUnsigned(u, to), nil
	case to.IsFloat():
		return roundFloat(f, to), nil
	case to == TagChar:
		return rune(int32(i)), nil
	}
	return nil, fmt.Errorf("conv %s -> %s is not supported", from, to)
}
