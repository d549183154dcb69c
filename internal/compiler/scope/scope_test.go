package scope

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/plctools/st2cc/internal/compiler/symbols"
)

func TestDefineAndLookup(t *testing.T) {
	global := NewScope(nil, "global")
	err := global.Define(&symbols.SymbolInfo{Name: "Max", Kind: symbols.KindFunction, Type: symbols.IntType})
	be.Err(t, err, nil)

	info, ok := global.Lookup("Max")
	be.True(t, ok)
	be.Equal(t, info.Kind, symbols.KindFunction)

	_, ok = global.Lookup("missing")
	be.True(t, !ok)
}

func TestDefineRejectsDuplicates(t *testing.T) {
	s := NewScope(nil, "program")
	be.Err(t, s.Define(&symbols.SymbolInfo{Name: "a", Type: symbols.BoolType}), nil)
	be.Err(t, s.Define(&symbols.SymbolInfo{Name: "a", Type: symbols.IntType}))
}

func TestLookupChainsOutward(t *testing.T) {
	global := NewScope(nil, "global")
	be.Err(t, global.Define(&symbols.SymbolInfo{Name: "F", Kind: symbols.KindFunction, Type: symbols.IntType}), nil)

	inner := NewScope(global, "F")
	be.Err(t, inner.Define(&symbols.SymbolInfo{Name: "x", Type: symbols.IntType}), nil)

	_, ok := inner.Lookup("F")
	be.True(t, ok)
	_, ok = inner.LookupCurrent("F")
	be.True(t, !ok)

	// inner bindings stay invisible from the outside
	_, ok = global.Lookup("x")
	be.True(t, !ok)
}

func TestShadowingOuterBindings(t *testing.T) {
	global := NewScope(nil, "global")
	be.Err(t, global.Define(&symbols.SymbolInfo{Name: "n", Type: symbols.IntType}), nil)

	inner := NewScope(global, "F")
	be.Err(t, inner.Define(&symbols.SymbolInfo{Name: "n", Type: symbols.RealType}), nil)

	info, ok := inner.Lookup("n")
	be.True(t, ok)
	be.Equal(t, info.Type, symbols.RealType)

	info, ok = global.Lookup("n")
	be.True(t, ok)
	be.Equal(t, info.Type, symbols.IntType)
}

func TestOrderedPreservesDeclarationOrder(t *testing.T) {
	s := NewScope(nil, "program")
	for _, name := range []string{"z", "a", "m"} {
		be.Err(t, s.Define(&symbols.SymbolInfo{Name: name, Type: symbols.IntType}), nil)
	}
	ordered := s.Ordered()
	be.Equal(t, len(ordered), 3)
	be.Equal(t, ordered[0].Name, "z")
	be.Equal(t, ordered[1].Name, "a")
	be.Equal(t, ordered[2].Name, "m")
}

func TestTypeRegistry(t *testing.T) {
	r := NewTypeRegistry()
	point := &symbols.DataType{
		Base: symbols.Struct,
		Name: "Point",
		Fields: []symbols.Field{
			{Name: "x", Type: symbols.RealType},
			{Name: "y", Type: symbols.RealType},
		},
	}
	be.Err(t, r.Define(point), nil)

	got, ok := r.Resolve("Point")
	be.True(t, ok)
	be.Equal(t, got, point)

	// built-ins resolve without registration
	got, ok = r.Resolve("INT")
	be.True(t, ok)
	be.Equal(t, got, symbols.IntType)

	_, ok = r.Resolve("Vector")
	be.True(t, !ok)
}

func TestTypeRegistryRejections(t *testing.T) {
	r := NewTypeRegistry()
	be.Err(t, r.Define(&symbols.DataType{Base: symbols.Struct, Name: "BOOL"}))

	be.Err(t, r.Define(&symbols.DataType{Base: symbols.Struct, Name: "Point"}), nil)
	be.Err(t, r.Define(&symbols.DataType{Base: symbols.Struct, Name: "Point"}))
}
