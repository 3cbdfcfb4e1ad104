// Package scope implements the lexical scope chain used during binding.
package scope

import "github.com/chazu/tern/compiler/types"

// Kind says what construct opened a scope.
type Kind uint8

const (
	Global Kind = iota
	Function
	Block
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Function:
		return "function"
	default:
		return "block"
	}
}

// Scope maps names to symbols and links to its parent. The chain always ends
// at a single global scope and never forms a cycle.
type Scope struct {
	kind    Kind
	parent  *Scope
	symbols map[string]*types.Symbol
}

// NewGlobal creates the root scope of a compilation.
func NewGlobal() *Scope {
	return &Scope{kind: Global, symbols: make(map[string]*types.Symbol)}
}

// Push opens a child scope.
func (s *Scope) Push(kind Kind) *Scope {
	return &Scope{kind: kind, parent: s, symbols: make(map[string]*types.Symbol)}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Kind returns what opened the scope.
func (s *Scope) Kind() Kind {
	return s.kind
}

// Declare adds sym to this scope. It returns false, leaving the scope
// unchanged, if the name is already declared here. Shadowing an outer
// scope's name is allowed.
func (s *Scope) Declare(sym *types.Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// Lookup finds name in this scope or the nearest enclosing one.
func (s *Scope) Lookup(name string) *types.Symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal finds name in this scope only.
func (s *Scope) LookupLocal(name string) *types.Symbol {
	return s.symbols[name]
}

// Names returns the names declared directly in this scope.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	return names
}
