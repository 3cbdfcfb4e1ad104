package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Run-time values
// ---------------------------------------------------------------------------

// Value is a run-time value. The dynamic Go type follows the operand tag:
//
//	signed integers   int64
//	unsigned integers uint64
//	f32, f64          float64
//	bool              bool
//	char              rune
//	string            string
//	arrays            *Array
//	object            *Boxed, or nil for the null reference
//
// Narrow integer and f32 values are kept normalized to their width.
type Value = interface{}

// Array is a fixed-length array with reference semantics.
type Array struct {
	Elem  string
	Items []Value
}

// NewArray allocates an array of n zero values of the element type.
func NewArray(elem string, n int) *Array {
	items := make([]Value, n)
	zero := ZeroValue(elem)
	for i := range items {
		items[i] = zero
	}
	return &Array{Elem: elem, Items: items}
}

// Boxed is a value viewed as object. It remembers its static type so
// unboxing can be checked.
type Boxed struct {
	Type  string
	Value Value
}

// Box wraps v as an object of the named static type.
func Box(typeName string, v Value) *Boxed {
	return &Boxed{Type: typeName, Value: v}
}

// FormatValue renders a value the way print does.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case *Boxed:
		return FormatValue(x.Value)
	case string:
		return x
	case rune:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *Array:
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// ObjectEquals compares two objects: the null reference equals only itself,
// boxed values are equal when their types and values match, and arrays
// compare by identity.
func ObjectEquals(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ba, okA := a.(*Boxed)
	bb, okB := b.(*Boxed)
	if !okA || !okB {
		return a == b
	}
	if ba.Type != bb.Type {
		return false
	}
	return ba.Value == bb.Value
}
