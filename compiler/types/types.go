// Package types is the type and symbol model shared by every compiler phase.
//
// All types live in a Registry arena and are addressed by TypeID. The builtin
// scalars and the error type have fixed IDs, so two registries agree on them
// and equality is always an ID comparison, never a structural one.
package types

import (
	"fmt"
	"strings"

	"github.com/chazu/tern/compiler/diag"
)

// TypeID identifies a type within a Registry.
type TypeID uint32

// Fixed IDs for the builtin types. NoType (zero) is never a valid type.
const (
	NoType TypeID = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bool
	Char
	String
	Object
	Void
	Error

	firstDerived
)

// Kind classifies a type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuiltin
	KindError
	KindArray
	KindGroup
	KindCallable
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindError:
		return "error"
	case KindArray:
		return "array"
	case KindGroup:
		return "group"
	case KindCallable:
		return "callable"
	default:
		return "invalid"
	}
}

var builtinNames = [...]string{
	I8:     "i8",
	I16:    "i16",
	I32:    "i32",
	I64:    "i64",
	U8:     "u8",
	U16:    "u16",
	U32:    "u32",
	U64:    "u64",
	F32:    "f32",
	F64:    "f64",
	Bool:   "bool",
	Char:   "char",
	String: "string",
	Object: "object",
	Void:   "void",
}

// LookupBuiltin resolves a builtin scalar type by its source name.
func LookupBuiltin(name string) (TypeID, bool) {
	for id := I8; id <= Void; id++ {
		if builtinNames[id] == name {
			return id, true
		}
	}
	return NoType, false
}

// Scalars returns every builtin value type except void and object, in ID order.
func Scalars() []TypeID {
	var out []TypeID
	for id := I8; id <= String; id++ {
		out = append(out, id)
	}
	return out
}

// entry is one arena slot. Which fields are meaningful depends on kind.
type entry struct {
	kind Kind
	name string

	// array
	elem TypeID

	// group
	parent  string
	members []TypeID

	// callable
	group  TypeID
	result TypeID
	params []TypeID
	op     Operator
}

// Registry owns every type of one compilation. Types are never removed.
type Registry struct {
	entries []entry
	arrays  map[TypeID]TypeID // element -> array type
}

// NewRegistry creates a registry pre-populated with the builtin types.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make([]entry, firstDerived, 64),
		arrays:  make(map[TypeID]TypeID),
	}
	for id := I8; id <= Void; id++ {
		r.entries[id] = entry{kind: KindBuiltin, name: builtinNames[id]}
	}
	r.entries[Error] = entry{kind: KindError, name: "?"}
	return r
}

func (r *Registry) at(t TypeID) *entry {
	if t == NoType || int(t) >= len(r.entries) {
		panic(diag.Internalf("types: invalid type id %d", t))
	}
	return &r.entries[t]
}

func (r *Registry) expect(t TypeID, kind Kind) *entry {
	e := r.at(t)
	if e.kind != kind {
		panic(diag.Internalf("types: type %d is %s, not %s", t, e.kind, kind))
	}
	return e
}

// Len returns the number of types in the registry, including builtins.
func (r *Registry) Len() int {
	return len(r.entries) - 1
}

// Kind returns the kind of t.
func (r *Registry) Kind(t TypeID) Kind {
	return r.at(t).kind
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// ArrayOf returns the unique array type with the given element type.
func (r *Registry) ArrayOf(elem TypeID) TypeID {
	if t, ok := r.arrays[elem]; ok {
		return t
	}
	r.at(elem)
	t := TypeID(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindArray, elem: elem})
	r.arrays[elem] = t
	return t
}

// Elem returns the element type of an array type.
func (r *Registry) Elem(t TypeID) TypeID {
	return r.expect(t, KindArray).elem
}

// ---------------------------------------------------------------------------
// Callable groups and callables
// ---------------------------------------------------------------------------

// NewGroup creates an empty overload group. parent qualifies the name for
// display ("std.io" for std.io.println) and may be empty.
func (r *Registry) NewGroup(name, parent string) TypeID {
	t := TypeID(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindGroup, name: name, parent: parent})
	return t
}

// AddCallable appends an overload to group and returns its type.
func (r *Registry) AddCallable(group, result TypeID, params []TypeID, op Operator) TypeID {
	r.expect(group, KindGroup)
	t := TypeID(len(r.entries))
	r.entries = append(r.entries, entry{
		kind:   KindCallable,
		group:  group,
		result: result,
		params: append([]TypeID(nil), params...),
		op:     op,
	})
	g := r.at(group)
	g.members = append(g.members, t)
	return t
}

// AdoptCallable adds an existing callable to another group. Imports use this
// to expose a library overload under a local name without copying it.
func (r *Registry) AdoptCallable(group, callable TypeID) {
	r.expect(callable, KindCallable)
	g := r.expect(group, KindGroup)
	for _, m := range g.members {
		if m == callable {
			return
		}
	}
	g.members = append(g.members, callable)
}

// Members returns the overloads of a group in declaration order.
func (r *Registry) Members(group TypeID) []TypeID {
	return append([]TypeID(nil), r.expect(group, KindGroup).members...)
}

// GroupName returns the unqualified name of a group.
func (r *Registry) GroupName(group TypeID) string {
	return r.expect(group, KindGroup).name
}

// QualifiedName returns parent.name for a group, or just name without parent.
func (r *Registry) QualifiedName(group TypeID) string {
	e := r.expect(group, KindGroup)
	if e.parent == "" {
		return e.name
	}
	return e.parent + "." + e.name
}

// CallableInfo is a read-only view of a callable.
type CallableInfo struct {
	Group  TypeID
	Result TypeID
	Params []TypeID
	Op     Operator
}

// Intrinsic reports whether the callable maps to a primitive instruction
// rather than a call.
func (c CallableInfo) Intrinsic() bool {
	return c.Op != OpNone
}

// Callable returns the signature of a callable.
func (r *Registry) Callable(c TypeID) CallableInfo {
	e := r.expect(c, KindCallable)
	return CallableInfo{
		Group:  e.group,
		Result: e.result,
		Params: append([]TypeID(nil), e.params...),
		Op:     e.op,
	}
}

// ---------------------------------------------------------------------------
// Predicates
// ---------------------------------------------------------------------------

// IsError reports whether t is the error type.
func IsError(t TypeID) bool { return t == Error }

// IsInteger reports whether t is one of the eight integer types.
func IsInteger(t TypeID) bool { return t >= I8 && t <= U64 }

// IsSigned reports whether t is a signed integer type.
func IsSigned(t TypeID) bool { return t >= I8 && t <= I64 }

// IsUnsigned reports whether t is an unsigned integer type.
func IsUnsigned(t TypeID) bool { return t >= U8 && t <= U64 }

// IsFloat reports whether t is f32 or f64.
func IsFloat(t TypeID) bool { return t == F32 || t == F64 }

// IsNumeric reports whether t is an integer or floating type.
func IsNumeric(t TypeID) bool { return IsInteger(t) || IsFloat(t) }

// IsScalar reports whether t is a builtin value type other than object and void.
func IsScalar(t TypeID) bool { return t >= I8 && t <= String }

// Bits returns the width of a numeric type.
func Bits(t TypeID) int {
	switch t {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	default:
		return 0
	}
}

// IsValue reports whether values of t can exist (not void, group or callable).
func (r *Registry) IsValue(t TypeID) bool {
	switch r.Kind(t) {
	case KindBuiltin:
		return t != Void
	case KindArray, KindError:
		return true
	default:
		return false
	}
}

// IsReference reports whether t has reference equality semantics
// (object, string and arrays).
func (r *Registry) IsReference(t TypeID) bool {
	return t == Object || t == String || r.Kind(t) == KindArray
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// Name returns the short display name of t.
func (r *Registry) Name(t TypeID) string {
	e := r.at(t)
	switch e.kind {
	case KindArray:
		return r.Name(e.elem) + "[]"
	case KindCallable:
		return r.at(e.group).name
	default:
		return e.name
	}
}

// FullName renders t for diagnostics. It is not used for equality.
func (r *Registry) FullName(t TypeID) string {
	e := r.at(t)
	switch e.kind {
	case KindGroup:
		return r.QualifiedName(t)
	case KindCallable:
		var sb strings.Builder
		sb.WriteString(r.QualifiedName(e.group))
		sb.WriteByte('(')
		for i, p := range e.params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.Name(p))
		}
		sb.WriteString("): ")
		sb.WriteString(r.Name(e.result))
		return sb.String()
	default:
		return r.Name(t)
	}
}

// JoinNames renders a list of types as "a, b, c".
func (r *Registry) JoinNames(ts []TypeID) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = r.Name(t)
	}
	return strings.Join(names, ", ")
}

// String renders a type id for debugging without a registry.
func (t TypeID) String() string {
	if t > NoType && t <= Void {
		return builtinNames[t]
	}
	if t == Error {
		return "error"
	}
	return fmt.Sprintf("type#%d", uint32(t))
}
