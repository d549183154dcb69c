package scope

import (
	"fmt"

	"github.com/plctools/st2cc/internal/compiler/symbols"
)

// Scope is one level of the variable/function namespace. Lookups chain
// through Outer, innermost first.
type Scope struct {
	Symbols map[string]*symbols.SymbolInfo
	Outer   *Scope
	Name    string

	order []string
}

func NewScope(outer *Scope, name string) *Scope {
	return &Scope{
		Symbols: make(map[string]*symbols.SymbolInfo),
		Outer:   outer,
		Name:    name,
	}
}

// Define adds a symbol to this scope level only. Redeclaring a name already
// bound at this level is an error; shadowing an outer binding is not.
func (s *Scope) Define(info *symbols.SymbolInfo) error {
	if _, exists := s.Symbols[info.Name]; exists {
		return fmt.Errorf("symbol '%s' already declared in this scope", info.Name)
	}
	s.Symbols[info.Name] = info
	s.order = append(s.order, info.Name)
	return nil
}

// Lookup searches this scope and then outward.
func (s *Scope) Lookup(name string) (*symbols.SymbolInfo, bool) {
	for sc := s; sc != nil; sc = sc.Outer {
		if info, ok := sc.Symbols[name]; ok {
			return info, true
		}
	}
	return nil, false
}

// LookupCurrent checks only this scope level.
func (s *Scope) LookupCurrent(name string) (*symbols.SymbolInfo, bool) {
	info, ok := s.Symbols[name]
	return info, ok
}

// Ordered returns this level's symbols in declaration order.
func (s *Scope) Ordered() []*symbols.SymbolInfo {
	out := make([]*symbols.SymbolInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.Symbols[name])
	}
	return out
}

// TypeRegistry is the flat, write-once namespace for TYPE declarations.
// Unlike variable scopes it is visible from every scope, and lives for the
// duration of one compilation.
type TypeRegistry struct {
	types map[string]*symbols.DataType
	order []string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*symbols.DataType)}
}

// Define registers a struct type. Built-in type names and already-registered
// names are rejected.
func (r *TypeRegistry) Define(t *symbols.DataType) error {
	if symbols.Builtin(t.Name) != nil {
		return fmt.Errorf("type '%s' shadows a built-in type", t.Name)
	}
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("type '%s' already declared", t.Name)
	}
	r.types[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Resolve maps a type name to its definition, checking built-ins first.
func (r *TypeRegistry) Resolve(name string) (*symbols.DataType, bool) {
	if t := symbols.Builtin(name); t != nil {
		return t, true
	}
	t, ok := r.types[name]
	return t, ok
}

// Ordered returns the declared struct types in declaration order.
func (r *TypeRegistry) Ordered() []*symbols.DataType {
	out := make([]*symbols.DataType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}
