package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Tags
// ---------------------------------------------------------------------------

// Tag is the run-time representation class of a typed operand.
type Tag uint8

const (
	TagNone Tag = iota
	TagI8
	TagI16
	TagI32
	TagI64
	TagU8
	TagU16
	TagU32
	TagU64
	TagF32
	TagF64
	TagBool
	TagChar
	TagString
	TagRef // object and arrays
)

var tagNames = [...]string{
	TagNone:   "none",
	TagI8:     "i8",
	TagI16:    "i16",
	TagI32:    "i32",
	TagI64:    "i64",
	TagU8:     "u8",
	TagU16:    "u16",
	TagU32:    "u32",
	TagU64:    "u64",
	TagF32:    "f32",
	TagF64:    "f64",
	TagBool:   "bool",
	TagChar:   "char",
	TagString: "string",
	TagRef:    "ref",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag?"
}

// TagOf maps a source type name to its tag. Arrays and object are TagRef.
func TagOf(typeName string) Tag {
	for t := TagI8; t <= TagString; t++ {
		if tagNames[t] == typeName {
			return t
		}
	}
	if typeName == "void" || typeName == "" {
		return TagNone
	}
	return TagRef
}

// IsSigned reports whether t is a signed integer tag.
func (t Tag) IsSigned() bool { return t >= TagI8 && t <= TagI64 }

// IsUnsigned reports whether t is an unsigned integer tag.
func (t Tag) IsUnsigned() bool { return t >= TagU8 && t <= TagU64 }

// IsFloat reports whether t is a floating tag.
func (t Tag) IsFloat() bool { return t == TagF32 || t == TagF64 }

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// ConstKind classifies a constant.
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstInt
	ConstUint
	ConstFloat
	ConstBool
	ConstChar
	ConstString
)

// Constant is an entry of a module's constant pool. Numeric payloads are
// stored as raw bits so the encoding is exact.
type Constant struct {
	Kind ConstKind `cbor:"1,keyasint"`
	Bits uint64    `cbor:"2,keyasint,omitempty"`
	Str  string    `cbor:"3,keyasint,omitempty"`
}

func IntConst(v int64) Constant     { return Constant{Kind: ConstInt, Bits: uint64(v)} }
func UintConst(v uint64) Constant   { return Constant{Kind: ConstUint, Bits: v} }
func FloatConst(v float64) Constant { return Constant{Kind: ConstFloat, Bits: math.Float64bits(v)} }
func CharConst(v rune) Constant     { return Constant{Kind: ConstChar, Bits: uint64(uint32(v))} }
func StringConst(v string) Constant { return Constant{Kind: ConstString, Str: v} }
func NullConst() Constant           { return Constant{Kind: ConstNull} }

func BoolConst(v bool) Constant {
	if v {
		return Constant{Kind: ConstBool, Bits: 1}
	}
	return Constant{Kind: ConstBool}
}

// Value returns the run-time value of the constant.
func (c Constant) Value() Value {
	switch c.Kind {
	case ConstInt:
		return int64(c.Bits)
	case ConstUint:
		return c.Bits
	case ConstFloat:
		return math.Float64frombits(c.Bits)
	case ConstBool:
		return c.Bits != 0
	case ConstChar:
		return rune(uint32(c.Bits))
	case ConstString:
		return c.Str
	default:
		return nil
	}
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstChar:
		return strconv.QuoteRune(rune(uint32(c.Bits)))
	case ConstNull:
		return "null"
	default:
		return fmt.Sprint(c.Value())
	}
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Field is a module-level static field.
type Field struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
}

// Local is a method's local variable slot.
type Local struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
}

// Method is one compiled routine.
type Method struct {
	Name   string        `cbor:"1,keyasint"`
	Params []string      `cbor:"2,keyasint,omitempty"`
	Result string        `cbor:"3,keyasint"`
	Locals []Local       `cbor:"4,keyasint,omitempty"`
	Code   []Instruction `cbor:"5,keyasint,omitempty"`
}

// Returns reports whether the method leaves a value.
func (m *Method) Returns() bool {
	return m.Result != "void"
}

// Module is an executable unit: static fields, methods and the tables
// their instructions index into. Init and Entry are method indexes, or -1.
type Module struct {
	ID        string     `cbor:"1,keyasint,omitempty"`
	Name      string     `cbor:"2,keyasint"`
	Fields    []Field    `cbor:"3,keyasint,omitempty"`
	Methods   []*Method  `cbor:"4,keyasint,omitempty"`
	Constants []Constant `cbor:"5,keyasint,omitempty"`
	Types     []string   `cbor:"6,keyasint,omitempty"`
	Natives   []string   `cbor:"7,keyasint,omitempty"`
	Init      int        `cbor:"8,keyasint"`
	Entry     int        `cbor:"9,keyasint"`
}

// MethodIndex finds a method by name, or returns -1.
func (m *Module) MethodIndex(name string) int {
	for i, meth := range m.Methods {
		if meth.Name == name {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

// MethodSink receives the locals and instructions of one method.
type MethodSink interface {
	DeclareLocal(name, typ string) int
	Append(ins Instruction) int
	Patch(index, target int)
	Len() int
}

// ModuleBuilder assembles a Module. Constants, type names and natives are
// interned.
type ModuleBuilder struct {
	m       *Module
	consts  map[Constant]int
	types   map[string]int
	natives map[string]int
}

// NewModuleBuilder starts an empty module.
func NewModuleBuilder(name string) *ModuleBuilder {
	return &ModuleBuilder{
		m:       &Module{Name: name, Init: -1, Entry: -1},
		consts:  make(map[Constant]int),
		types:   make(map[string]int),
		natives: make(map[string]int),
	}
}

// DeclareStaticField adds a static field and returns its index.
func (b *ModuleBuilder) DeclareStaticField(name, typ string) int {
	b.m.Fields = append(b.m.Fields, Field{Name: name, Type: typ})
	return len(b.m.Fields) - 1
}

// DeclareMethod adds a method with an empty body and returns its index and
// the sink for its body.
func (b *ModuleBuilder) DeclareMethod(name string, params []string, result string) (int, MethodSink) {
	meth := &Method{Name: name, Params: append([]string(nil), params...), Result: result}
	b.m.Methods = append(b.m.Methods, meth)
	return len(b.m.Methods) - 1, &MethodBuilder{method: meth}
}

// Constant interns a constant and returns its pool index.
func (b *ModuleBuilder) Constant(c Constant) int {
	if i, ok := b.consts[c]; ok {
		return i
	}
	b.m.Constants = append(b.m.Constants, c)
	i := len(b.m.Constants) - 1
	b.consts[c] = i
	return i
}

// TypeRef interns a type name for box, unbox and newarr.
func (b *ModuleBuilder) TypeRef(name string) int {
	if i, ok := b.types[name]; ok {
		return i
	}
	b.m.Types = append(b.m.Types, name)
	i := len(b.m.Types) - 1
	b.types[name] = i
	return i
}

// Native interns a library routine or field key.
func (b *ModuleBuilder) Native(key string) int {
	if i, ok := b.natives[key]; ok {
		return i
	}
	b.m.Natives = append(b.m.Natives, key)
	i := len(b.m.Natives) - 1
	b.natives[key] = i
	return i
}

// SetInitializer marks the method run before the entry point.
func (b *ModuleBuilder) SetInitializer(method int) {
	b.m.Init = method
}

// SetEntry marks the entry point.
func (b *ModuleBuilder) SetEntry(method int) {
	b.m.Entry = method
}

// Module returns the module built so far.
func (b *ModuleBuilder) Module() *Module {
	return b.m
}

// MethodBuilder is the MethodSink of one declared method.
type MethodBuilder struct {
	method *Method
}

// DeclareLocal allocates a local slot.
func (b *MethodBuilder) DeclareLocal(name, typ string) int {
	b.method.Locals = append(b.method.Locals, Local{Name: name, Type: typ})
	return len(b.method.Locals) - 1
}

// Append adds an instruction and returns its index.
func (b *MethodBuilder) Append(ins Instruction) int {
	b.method.Code = append(b.method.Code, ins)
	return len(b.method.Code) - 1
}

// Patch rewrites the target of the branch at index.
func (b *MethodBuilder) Patch(index, target int) {
	if index < 0 || index >= len(b.method.Code) {
		panic(fmt.Sprintf("vm: patch index %d out of range in %s", index, b.method.Name))
	}
	if !b.method.Code[index].Op.IsJump() {
		panic(fmt.Sprintf("vm: patch of non-branch %s at %d in %s", b.method.Code[index].Op, index, b.method.Name))
	}
	b.method.Code[index].A = int32(target)
}

// Len returns the number of instructions emitted.
func (b *MethodBuilder) Len() int {
	return len(b.method.Code)
}

// ---------------------------------------------------------------------------
// Zero values
// ---------------------------------------------------------------------------

// ZeroValue is the initial value of a slot of the named type.
func ZeroValue(typeName string) Value {
	switch t := TagOf(typeName); {
	case t.IsSigned():
		return int64(0)
	case t.IsUnsigned():
		return uint64(0)
	case t.IsFloat():
		return float64(0)
	case t == TagBool:
		return false
	case t == TagChar:
		return rune(0)
	case t == TagString:
		return ""
	default:
		return nil
	}
}

// ElemType returns the element type name of an array type name.
func ElemType(arrayType string) (string, bool) {
	if !strings.HasSuffix(arrayType, "[]") {
		return "", false
	}
	return strings.TrimSuffix(arrayType, "[]"), true
}
