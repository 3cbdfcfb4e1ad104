package types

// SymbolKind says what kind of storage or entity a symbol names.
type SymbolKind uint8

const (
	SymLocal SymbolKind = iota
	SymParameter
	SymGlobal
	SymField
	SymGroup
)

func (k SymbolKind) String() string {
	switch k {
	case SymLocal:
		return "local"
	case SymParameter:
		return "parameter"
	case SymGlobal:
		return "global"
	case SymField:
		return "field"
	case SymGroup:
		return "function"
	default:
		return "symbol?"
	}
}

// ValueCategory governs which operations are legal on an expression.
type ValueCategory uint8

const (
	CategoryNone ValueCategory = iota
	CategoryReadable
	CategoryModifiable
	CategoryTypeName
)

func (c ValueCategory) String() string {
	switch c {
	case CategoryReadable:
		return "readable"
	case CategoryModifiable:
		return "modifiable"
	case CategoryTypeName:
		return "type name"
	default:
		return "none"
	}
}

// IsValue reports whether an expression of this category produces a value.
func (c ValueCategory) IsValue() bool {
	return c == CategoryReadable || c == CategoryModifiable
}

// Symbol is a named entity in a scope. Symbols are compared by identity:
// two locals with the same name in nested blocks are distinct symbols.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Type     TypeID
	Index    int    // parameter position
	Readonly bool   // const locals/globals and readonly fields
	Path     string // qualified library name for imported fields
}

// NewLocal creates a local variable symbol.
func NewLocal(name string, t TypeID, readonly bool) *Symbol {
	return &Symbol{Name: name, Kind: SymLocal, Type: t, Readonly: readonly}
}

// NewParameter creates a parameter symbol at the given position.
func NewParameter(name string, t TypeID, index int) *Symbol {
	return &Symbol{Name: name, Kind: SymParameter, Type: t, Index: index, Readonly: true}
}

// NewGlobal creates a module-level variable symbol.
func NewGlobal(name string, t TypeID, readonly bool) *Symbol {
	return &Symbol{Name: name, Kind: SymGlobal, Type: t, Readonly: readonly}
}

// NewField creates a library field symbol.
func NewField(name string, t TypeID, readonly bool, path string) *Symbol {
	return &Symbol{Name: name, Kind: SymField, Type: t, Readonly: readonly, Path: path}
}

// NewGroupSymbol creates a symbol naming an overload group.
func NewGroupSymbol(name string, group TypeID) *Symbol {
	return &Symbol{Name: name, Kind: SymGroup, Type: group, Readonly: true}
}

// Category derives the value category from kind and readonly. It is the only
// source of a symbol's category.
func (s *Symbol) Category() ValueCategory {
	switch s.Kind {
	case SymParameter:
		return CategoryReadable
	case SymLocal, SymGlobal, SymField:
		if s.Readonly {
			return CategoryReadable
		}
		return CategoryModifiable
	default:
		return CategoryNone
	}
}
