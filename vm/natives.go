package vm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Native routines
// ---------------------------------------------------------------------------

// NativeFunc implements a library routine. Arguments arrive in declaration
// order.
type NativeFunc func(m *Machine, args []Value) (Value, error)

// Native is one entry of the runtime library. A native is either a routine
// (Fn set) or a constant field (Field set).
type Native struct {
	Key     string
	Arity   int
	Returns bool
	Fn      NativeFunc
	Field   Value
}

var natives = make(map[string]*Native)

// registerNative adds a routine. The arity is read from the parameter list
// in key, so "std.io.println(string)" takes one argument.
func registerNative(key string, returns bool, fn NativeFunc) {
	natives[key] = &Native{Key: key, Arity: arityOf(key), Returns: returns, Fn: fn}
}

func registerField(key string, v Value) {
	natives[key] = &Native{Key: key, Field: v}
}

func arityOf(key string) int {
	open := strings.IndexByte(key, '(')
	if open < 0 || strings.HasSuffix(key, "()") {
		return 0
	}
	return strings.Count(key[open:], ",") + 1
}

// LookupNative finds a native by key.
func LookupNative(key string) (*Native, bool) {
	n, ok := natives[key]
	return n, ok
}

// NativeKeys lists every registered key, sorted.
func NativeKeys() []string {
	keys := make([]string, 0, len(natives))
	for k := range natives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	// std.io
	registerNative("std.io.print(string)", false, nativePrint(false))
	registerNative("std.io.print(object)", false, nativePrint(false))
	registerNative("std.io.println()", false, nativePrint(true))
	registerNative("std.io.println(string)", false, nativePrint(true))
	registerNative("std.io.println(object)", false, nativePrint(true))
	registerNative("std.io.input()", true, nativeInput)

	// std.math
	registerNative("std.math.random()", true, func(m *Machine, _ []Value) (Value, error) {
		return m.rng.Float64(), nil
	})
	registerNative("std.math.random(i32,i32)", true, nativeRandomRange)
	registerNative("std.math.abs(i32)", true, func(_ *Machine, args []Value) (Value, error) {
		v := args[0].(int64)
		if v < 0 {
			return wrapSigned(-v, TagI32), nil
		}
		return v, nil
	})
	registerNative("std.math.abs(i64)", true, func(_ *Machine, args []Value) (Value, error) {
		v := args[0].(int64)
		if v < 0 {
			return -v, nil
		}
		return v, nil
	})
	registerNative("std.math.abs(f64)", true, func(_ *Machine, args []Value) (Value, error) {
		return math.Abs(args[0].(float64)), nil
	})
	registerNative("std.math.sqrt(f64)", true, func(_ *Machine, args []Value) (Value, error) {
		return math.Sqrt(args[0].(float64)), nil
	})
	registerField("std.math.pi", math.Pi)

	// std.sys
	registerNative("std.sys.exit(i32)", false, func(_ *Machine, args []Value) (Value, error) {
		return nil, &exitRequest{code: int(args[0].(int64))}
	})
	registerNative("std.sys.clock()", true, func(m *Machine, _ []Value) (Value, error) {
		return m.now().Sub(m.start).Milliseconds(), nil
	})

	// std.runtime
	concat := func(_ *Machine, args []Value) (Value, error) {
		return FormatValue(args[0]) + FormatValue(args[1]), nil
	}
	registerNative("std.runtime.concat(string,string)", true, concat)
	registerNative("std.runtime.concat(string,object)", true, concat)
	registerNative("std.runtime.concat(object,string)", true, concat)
	registerNative("std.runtime.equals(string,string)", true, func(_ *Machine, args []Value) (Value, error) {
		return args[0].(string) == args[1].(string), nil
	})
	registerNative("std.runtime.equals(object,object)", true, func(_ *Machine, args []Value) (Value, error) {
		return ObjectEquals(args[0], args[1]), nil
	})

	// std.convert
	registerNative("std.convert.to_string(object)", true, func(_ *Machine, args []Value) (Value, error) {
		return FormatValue(args[0]), nil
	})
	for _, t := range []Tag{TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64, TagF32, TagF64, TagBool, TagChar} {
		tag := t
		registerNative("std.convert.parse_"+tag.String()+"(string)", true, func(_ *Machine, args []Value) (Value, error) {
			return parseScalar(tag, args[0].(string))
		})
	}
}

func nativePrint(newline bool) NativeFunc {
	return func(m *Machine, args []Value) (Value, error) {
		if len(args) > 0 {
			m.out.WriteString(FormatValue(args[0]))
		}
		if newline {
			m.out.WriteByte('\n')
		}
		return nil, nil
	}
}

// nativeInput reads one line without its terminator. End of input yields
// the empty string.
func nativeInput(m *Machine, _ []Value) (Value, error) {
	if err := m.out.Flush(); err != nil {
		return nil, err
	}
	line, err := m.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// nativeRandomRange returns an i32 in [lo, hi). An empty range yields lo.
func nativeRandomRange(m *Machine, args []Value) (Value, error) {
	lo, hi := args[0].(int64), args[1].(int64)
	switch {
	case hi < lo:
		return nil, fmt.Errorf("empty range [%d, %d)", lo, hi)
	case hi == lo:
		return lo, nil
	}
	return lo + m.rng.Int63n(hi-lo), nil
}

// parseScalar converts text to a value of the given tag.
func parseScalar(t Tag, text string) (Value, error) {
	s := strings.TrimSpace(text)
	switch {
	case t.IsSigned():
		v, err := strconv.ParseInt(s, 10, bitsOf(t))
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s", text, t)
		}
		return v, nil
	case t.IsUnsigned():
		v, err := strconv.ParseUint(s, 10, bitsOf(t))
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s", text, t)
		}
		return v, nil
	case t.IsFloat():
		v, err := strconv.ParseFloat(s, bitsOf(t))
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s", text, t)
		}
		return v, nil
	case t == TagBool:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case t == TagChar:
		if r, size := utf8.DecodeRuneInString(text); size > 0 && size == len(text) && r != utf8.RuneError {
			return r, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as %s", text, t)
}

func bitsOf(t Tag) int {
	switch t {
	case TagI8, TagU8:
		return 8
	case TagI16, TagU16:
		return 16
	case TagI32, TagU32, TagF32:
		return 32
	}
	return 64
}
