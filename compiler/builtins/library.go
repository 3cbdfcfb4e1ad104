// Package builtins describes the pre-typed standard library that programs
// import from. Only signatures live here; the run-time implementations are
// the interpreter's natives, keyed by Key.
package builtins

import (
	"sort"
	"strings"

	"github.com/chazu/tern/compiler/types"
)

// Field is a library value exposed by qualified name.
type Field struct {
	Path     string
	Type     types.TypeID
	Readonly bool
}

// Library is the set of importable groups and fields, registered into one
// compilation's type registry.
type Library struct {
	reg    *types.Registry
	groups map[string]types.TypeID
	fields map[string]Field

	concat   types.TypeID
	equals   types.TypeID
	toString types.TypeID
	parse    map[types.TypeID]types.TypeID
}

type overload struct {
	result types.TypeID
	params []types.TypeID
}

func sig(result types.TypeID, params ...types.TypeID) overload {
	return overload{result: result, params: params}
}

// Load registers the standard library into reg.
func Load(reg *types.Registry) *Library {
	l := &Library{
		reg:    reg,
		groups: make(map[string]types.TypeID),
		fields: make(map[string]Field),
		parse:  make(map[types.TypeID]types.TypeID),
	}

	l.define("std.io.print", sig(types.Void, types.String), sig(types.Void, types.Object))
	l.define("std.io.println", sig(types.Void), sig(types.Void, types.String), sig(types.Void, types.Object))
	l.define("std.io.input", sig(types.String))

	l.define("std.math.random", sig(types.F64), sig(types.I32, types.I32, types.I32))
	l.define("std.math.abs", sig(types.I32, types.I32), sig(types.I64, types.I64), sig(types.F64, types.F64))
	l.define("std.math.sqrt", sig(types.F64, types.F64))
	l.fields["std.math.pi"] = Field{Path: "std.math.pi", Type: types.F64, Readonly: true}

	l.define("std.sys.exit", sig(types.Void, types.I32))
	l.define("std.sys.clock", sig(types.I64))

	l.concat = l.define("std.runtime.concat",
		sig(types.String, types.String, types.String),
		sig(types.String, types.String, types.Object),
		sig(types.String, types.Object, types.String))
	l.equals = l.define("std.runtime.equals",
		sig(types.Bool, types.String, types.String),
		sig(types.Bool, types.Object, types.Object))

	l.toString = l.define("std.convert.to_string", sig(types.String, types.Object))
	for _, t := range types.Scalars() {
		if t == types.String {
			continue
		}
		g := l.define("std.convert.parse_"+reg.Name(t), sig(t, types.String))
		l.parse[t] = reg.Members(g)[0]
	}

	return l
}

// define creates a group at a qualified path with the given overloads.
func (l *Library) define(path string, overloads ...overload) types.TypeID {
	parent, name := splitPath(path)
	g := l.reg.NewGroup(name, parent)
	for _, o := range overloads {
		l.reg.AddCallable(g, o.result, o.params, types.OpNone)
	}
	l.groups[path] = g
	return g
}

func splitPath(path string) (parent, name string) {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// Group resolves a qualified name to a library overload group.
func (l *Library) Group(path string) (types.TypeID, bool) {
	g, ok := l.groups[path]
	return g, ok
}

// Field resolves a qualified name to a library field.
func (l *Library) Field(path string) (Field, bool) {
	f, ok := l.fields[path]
	return f, ok
}

// Paths returns every importable qualified name, sorted.
func (l *Library) Paths() []string {
	paths := make([]string, 0, len(l.groups)+len(l.fields))
	for p := range l.groups {
		paths = append(paths, p)
	}
	for p := range l.fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Concat is the group string + routes through.
func (l *Library) Concat() types.TypeID { return l.concat }

// Equals is the group string/object equality routes through.
func (l *Library) Equals() types.TypeID { return l.equals }

// ToString is the callable used for explicit scalar-to-string conversions.
func (l *Library) ToString() types.TypeID { return l.reg.Members(l.toString)[0] }

// Parse returns the callable converting a string to the scalar t.
func (l *Library) Parse(t types.TypeID) (types.TypeID, bool) {
	c, ok := l.parse[t]
	return c, ok
}

// Key names a library callable for the run-time native table:
// the qualified group name followed by the parameter types,
// e.g. "std.io.println(string)".
func Key(reg *types.Registry, callable types.TypeID) string {
	info := reg.Callable(callable)
	return reg.QualifiedName(info.Group) + "(" + strings.ReplaceAll(reg.JoinNames(info.Params), " ", "") + ")"
}
