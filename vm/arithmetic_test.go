package vm

import (
	"errors"
	"math"
	"testing"
)

func TestBinaryOpWrapping(t *testing.T) {
	x, y := 0.1, 0.2
	tests := []struct {
		name string
		op   Opcode
		tag  Tag
		a, b Value
		want Value
	}{
		{"i8 overflow", OpAdd, TagI8, int64(127), int64(1), int64(-128)},
		{"i16 underflow", OpSub, TagI16, int64(-32768), int64(1), int64(32767)},
		{"i32 mul", OpMul, TagI32, int64(0x10000), int64(0x10000), int64(0)},
		{"i64 add", OpAdd, TagI64, int64(math.MaxInt64), int64(1), int64(math.MinInt64)},
		{"u8 overflow", OpAdd, TagU8, uint64(255), uint64(1), uint64(0)},
		{"u32 underflow", OpSub, TagU32, uint64(0), uint64(1), uint64(math.MaxUint32)},
		{"i32 shl", OpShl, TagI32, int64(1), int64(31), int64(math.MinInt32)},
		{"u16 shl", OpShl, TagU16, uint64(0xffff), uint64(4), uint64(0xfff0)},
		{"shr is arithmetic", OpShr, TagI32, int64(-8), int64(1), int64(-4)},
		{"shr unsigned", OpShr, TagU32, uint64(0x80000000), uint64(31), uint64(1)},
		{"truncating div", OpDiv, TagI32, int64(-7), int64(2), int64(-3)},
		{"rem sign", OpRem, TagI32, int64(-7), int64(2), int64(-1)},
		{"f32 rounds", OpAdd, TagF32, 0.1, 0.2, float64(float32(x + y))},
		{"f64 div by zero", OpDiv, TagF64, 1.0, 0.0, math.Inf(1)},
		{"f64 rem", OpRem, TagF64, 7.5, 2.0, 1.5},
		{"bool xor", OpXor, TagBool, true, true, false},
		{"bool and", OpAnd, TagBool, true, false, false},
		{"char less", OpClt, TagChar, 'a', 'b', true},
		{"string equal", OpCeq, TagString, "x", "x", true},
		{"string concat", OpAdd, TagString, "a", "b", "ab"},
		{"null equals null", OpCeq, TagRef, nil, nil, true},
		{"unsigned compare", OpCgt, TagU64, uint64(math.MaxUint64), uint64(1), true},
	}
	for _, tt := range tests {
		got, err := binaryOp(tt.op, tt.tag, tt.a, tt.b)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestBinaryOpErrors(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		tag  Tag
		a, b Value
	}{
		{"signed div", OpDiv, TagI32, int64(1), int64(0)},
		{"signed rem", OpRem, TagI64, int64(1), int64(0)},
		{"unsigned div", OpDiv, TagU8, uint64(1), uint64(0)},
		{"unsigned rem", OpRem, TagU32, uint64(1), uint64(0)},
	}
	for _, tt := range tests {
		if _, err := binaryOp(tt.op, tt.tag, tt.a, tt.b); !errors.Is(err, errDivideByZero) {
			t.Errorf("%s: err = %v, want division by zero", tt.name, err)
		}
	}

	if _, err := binaryOp(OpShl, TagI32, int64(1), int64(-1)); err == nil {
		t.Error("negative shift should fail")
	}
	if _, err := binaryOp(OpAdd, TagI32, int64(1), uint64(1)); err == nil {
		t.Error("mismatched representation should fail")
	}
	if _, err := binaryOp(OpMul, TagBool, true, true); err == nil {
		t.Error("mul.bool is not defined")
	}
}

func TestUnaryOp(t *testing.T) {
	tests := []struct {
		op   Opcode
		tag  Tag
		v    Value
		want Value
	}{
		{OpNeg, TagI32, int64(5), int64(-5)},
		{OpNeg, TagI8, int64(-128), int64(-128)},
		{OpNeg, TagF64, 2.5, -2.5},
		{OpCompl, TagI32, int64(0), int64(-1)},
		{OpCompl, TagU8, uint64(0), uint64(255)},
		{OpCompl, TagU64, uint64(0), uint64(math.MaxUint64)},
	}
	for _, tt := range tests {
		got, err := unaryOp(tt.op, tt.tag, tt.v)
		if err != nil || got != tt.want {
			t.Errorf("%s.%s %v = %#v, %v; want %#v", tt.op, tt.tag, tt.v, got, err, tt.want)
		}
	}
	if _, err := unaryOp(OpNeg, TagU32, uint64(1)); err == nil {
		t.Error("neg.u32 should fail")
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		from, to Tag
		v        Value
		want     Value
	}{
		{TagI32, TagI64, int64(-1), int64(-1)},
		{TagI32, TagU8, int64(300), uint64(44)},
		{TagI64, TagU32, int64(-1), uint64(math.MaxUint32)},
		{TagU64, TagI64, uint64(math.MaxUint64), int64(-1)},
		{TagU8, TagI8, uint64(200), int64(-56)},
		{TagF64, TagI32, -1.9, int64(-1)},
		{TagF64, TagI32, 2.9, int64(2)},
		{TagF64, TagI32, math.NaN(), int64(0)},
		{TagF64, TagU64, 1e30, uint64(math.MaxUint64)},
		{TagF64, TagF32, 0.1, float64(float32(0.1))},
		{TagI32, TagF64, int64(7), 7.0},
		{TagU64, TagF64, uint64(1 << 63), float64(1 << 63)},
		{TagI32, TagChar, int64(65), 'A'},
		{TagChar, TagI32, 'A', int64(65)},
		{TagChar, TagU8, 'é', uint64(0xe9)},
	}
	for _, tt := range tests {
		got, err := convert(tt.from, tt.to, tt.v)
		if err != nil || got != tt.want {
			t.Errorf("conv %s -> %s of %v = %#v, %v; want %#v", tt.from, tt.to, tt.v, got, err, tt.want)
		}
	}
	if _, err := convert(TagString, TagI32, "1"); err == nil {
		t.Error("converting a string should fail")
	}
	if _, err := convert(TagI32, TagBool, int64(1)); err == nil {
		t.Error("conv to bool is not supported")
	}
}
