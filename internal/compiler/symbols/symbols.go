package symbols

import (
	"strings"

	"github.com/plctools/st2cc/internal/compiler/addr"
)

// SymbolKind distinguishes what an identifier is bound to.
type SymbolKind int

const (
	KindVariable SymbolKind = iota
	KindFunction
	KindType
)

func (k SymbolKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindType:
		return "type"
	}
	return "unknown"
}

// BaseType is the fundamental type category.
type BaseType int

const (
	Bool BaseType = iota
	Int
	Real
	Struct
)

// Field is one struct member. Order of fields is declaration order and is
// significant for code generation.
type Field struct {
	Name string
	Type *DataType
}

// DataType describes a resolved ST type. The built-in types are the package
// singletons BoolType, IntType and RealType; struct types are created once
// per TYPE declaration and compared by name.
type DataType struct {
	Base   BaseType
	Name   string
	Fields []Field
}

var (
	BoolType = &DataType{Base: Bool, Name: "BOOL"}
	IntType  = &DataType{Base: Int, Name: "INT"}
	RealType = &DataType{Base: Real, Name: "REAL"}
)

// Builtin maps an uppercase built-in type name to its singleton, or nil.
func Builtin(name string) *DataType {
	switch name {
	case "BOOL":
		return BoolType
	case "INT":
		return IntType
	case "REAL":
		return RealType
	}
	return nil
}

// Equal reports type identity. Struct types are identical only when they are
// the same declared type.
func (t *DataType) Equal(o *DataType) bool {
	if t == nil || o == nil {
		return false
	}
	if t.Base != o.Base {
		return false
	}
	if t.Base == Struct {
		return t.Name == o.Name
	}
	return true
}

// AssignableTo reports whether a value of type t may be assigned to a target
// of type dst: identical types, or the single implicit widening INT -> REAL.
// REAL never narrows to INT implicitly.
func (t *DataType) AssignableTo(dst *DataType) bool {
	if t.Equal(dst) {
		return true
	}
	return t != nil && dst != nil && t.Base == Int && dst.Base == Real
}

// Field returns the named struct field, or nil.
func (t *DataType) Field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

func (t *DataType) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Base == Struct {
		names := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name + ": " + f.Type.Name
		}
		return t.Name + "{" + strings.Join(names, "; ") + "}"
	}
	return t.Name
}

// SymbolInfo is one entry of the symbol table.
type SymbolInfo struct {
	Name string
	Kind SymbolKind

	// Type is the variable's type, a type symbol's definition, or a
	// function's return type.
	Type *DataType

	// ReadOnly marks VAR_INPUT parameters, which may not be assigned.
	ReadOnly bool

	// Addr is the hardware address of a mapped variable, or nil.
	Addr *addr.Address

	// Function-only info.
	ParamNames []string
	ParamTypes []*DataType
}

func (s *SymbolInfo) String() string {
	out := s.Name + ":" + s.Type.String()
	if s.Addr != nil {
		out += ":ADDR=" + s.Addr.String()
	}
	return out
}
