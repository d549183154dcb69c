package analyzer

import (
	"github.com/plctools/st2cc/internal/compiler/addr"
	"github.com/plctools/st2cc/internal/compiler/ast"
	"github.com/plctools/st2cc/internal/compiler/diag"
	"github.com/plctools/st2cc/internal/compiler/scope"
	"github.com/plctools/st2cc/internal/compiler/symbols"
	"github.com/plctools/st2cc/internal/compiler/token"
)

// Info carries everything semantic analysis learned about a program. The AST
// itself is never mutated; resolved types and symbols live in side tables
// keyed by node identity, so each stage only reads what the previous stage
// produced.
type Info struct {
	// Registry holds the declared struct types plus the built-ins.
	Registry *scope.TypeRegistry

	// Types is the resolved type of every well-typed expression.
	Types map[ast.Expression]*symbols.DataType

	// Syms maps identifier uses, declarations and calls to their symbol.
	Syms map[ast.Node]*symbols.SymbolInfo

	// ProgramVars are the PROGRAM block's variables in declaration order.
	ProgramVars []*symbols.SymbolInfo

	// Claims are the hardware address extents in declaration order.
	Claims []addr.Claim
}

func (i *Info) TypeOf(e ast.Expression) *symbols.DataType { return i.Types[e] }
func (i *Info) SymbolOf(n ast.Node) *symbols.SymbolInfo   { return i.Syms[n] }

// Analyzer performs the single semantic pass: symbol table construction,
// type checking and hardware address resolution. Unlike lexing and parsing
// it does not stop at the first problem; all semantic errors of one run are
// collected so the user sees every diagnostic at once.
type Analyzer struct {
	registry *scope.TypeRegistry
	global   *scope.Scope
	current  *scope.Scope
	claims   addr.ClaimSet
	info     *Info
	diags    []diag.Diagnostic

	// name of the function whose body is being analyzed, "" at program level
	currentFunc string
}

// Analyze walks the AST and returns the annotation tables. Code generation
// may only proceed when the diagnostic list is empty.
func Analyze(prog *ast.Program) (*Info, []diag.Diagnostic) {
	a := &Analyzer{
		registry: scope.NewTypeRegistry(),
		info: &Info{
			Types: make(map[ast.Expression]*symbols.DataType),
			Syms:  make(map[ast.Node]*symbols.SymbolInfo),
		},
	}
	a.info.Registry = a.registry
	a.global = scope.NewScope(nil, "global")
	a.current = a.global

	// Struct types first, then function signatures, so bodies can call
	// functions declared later in the file and recursion needs no special
	// case.
	for _, sd := range prog.Structs {
		a.declareStruct(sd)
	}
	for _, fd := range prog.Functions {
		a.declareFunctionSignature(fd)
	}
	for _, fd := range prog.Functions {
		a.analyzeFunctionBody(fd)
	}
	if prog.Name != nil {
		a.analyzeProgramBlock(prog)
	}
	a.info.Claims = a.claims.Claims()

	return a.info, a.diags
}

func (a *Analyzer) errorf(kind diag.Kind, tok token.Token, format string, args ...any) {
	a.diags = append(a.diags, diag.New(kind, tok.Line, tok.Column, format, args...))
}

// --- Declarations ---

func (a *Analyzer) declareStruct(sd *ast.StructDecl) {
	t := &symbols.DataType{Base: symbols.Struct, Name: sd.Name.Value}
	seen := make(map[string]bool)
	for _, f := range sd.Fields {
		if seen[f.Name.Value] {
			a.errorf(diag.DuplicateSymbol, f.Name.Token,
				"duplicate field '%s' in struct '%s'", f.Name.Value, sd.Name.Value)
			continue
		}
		seen[f.Name.Value] = true
		ft := a.resolveType(f.TypeNode)
		t.Fields = append(t.Fields, symbols.Field{Name: f.Name.Value, Type: ft})
	}
	if err := a.registry.Define(t); err != nil {
		a.errorf(diag.DuplicateSymbol, sd.Name.Token, "%s", err.Error())
	}
}

func (a *Analyzer) declareFunctionSignature(fd *ast.FuncDecl) {
	sym := &symbols.SymbolInfo{
		Name: fd.Name.Value,
		Kind: symbols.KindFunction,
		Type: a.resolveType(fd.ReturnType),
	}
	for _, p := range fd.Params {
		sym.ParamNames = append(sym.ParamNames, p.Name.Value)
		sym.ParamTypes = append(sym.ParamTypes, a.resolveType(p.TypeNode))
	}
	if err := a.global.Define(sym); err != nil {
		a.errorf(diag.DuplicateSymbol, fd.Name.Token, "%s", err.Error())
		return
	}
	a.info.Syms[fd] = sym
}

// resolveType maps a type name to its definition; nil means the error has
// already been reported and later checks involving it stay silent.
func (a *Analyzer) resolveType(tn *ast.TypeNode) *symbols.DataType {
	t, ok := a.registry.Resolve(tn.Name)
	if !ok {
		a.errorf(diag.UndefinedSymbol, tn.Token, "undefined type '%s'", tn.Name)
		return nil
	}
	return t
}

// declareVar declares one variable in the current scope, resolving its
// optional hardware address. allowAddr is false inside functions: hardware
// access belongs to the program scan cycle.
func (a *Analyzer) declareVar(vd *ast.VarDecl, readOnly, allowAddr bool) *symbols.SymbolInfo {
	t := a.resolveType(vd.TypeNode)
	sym := &symbols.SymbolInfo{
		Name:     vd.Name.Value,
		Kind:     symbols.KindVariable,
		Type:     t,
		ReadOnly: readOnly,
	}

	if vd.Addr != nil {
		switch {
		case !allowAddr:
			a.errorf(diag.TypeMismatch, vd.AddrToken,
				"hardware address %s not allowed on function-scope variable '%s'", vd.Addr, vd.Name.Value)
		case t == nil:
			// type already reported; no pairing check possible
		case t.Base == symbols.Bool && vd.Addr.Gran != addr.Bit:
			a.errorf(diag.TypeMismatch, vd.AddrToken,
				"BOOL variable '%s' requires a bit-granularity address, got %s", vd.Name.Value, vd.Addr)
		case t.Base == symbols.Int && vd.Addr.Gran == addr.Bit:
			a.errorf(diag.TypeMismatch, vd.AddrToken,
				"INT variable '%s' requires a byte, word or double-word address, got %s", vd.Name.Value, vd.Addr)
		case t.Base == symbols.Real || t.Base == symbols.Struct:
			a.errorf(diag.TypeMismatch, vd.AddrToken,
				"type %s cannot be hardware-mapped", t.Name)
		default:
			if other, ok := a.claims.Claim(vd.Name.Value, vd.Addr); !ok {
				a.errorf(diag.AddressConflict, vd.AddrToken,
					"address %s of '%s' overlaps address of '%s'", vd.Addr, vd.Name.Value, other)
			} else {
				sym.Addr = vd.Addr
			}
		}
	}

	if err := a.current.Define(sym); err != nil {
		a.errorf(diag.DuplicateSymbol, vd.Name.Token, "%s", err.Error())
		return nil
	}
	a.info.Syms[vd] = sym
	return sym
}

// --- Bodies ---

func (a *Analyzer) analyzeFunctionBody(fd *ast.FuncDecl) {
	sym := a.info.Syms[fd]
	if sym == nil {
		// signature failed to declare (duplicate); body is not analyzable
		// against a coherent scope
		return
	}

	a.current = scope.NewScope(a.global, fd.Name.Value)
	a.currentFunc = fd.Name.Value
	defer func() {
		a.current = a.global
		a.currentFunc = ""
	}()

	for _, p := range fd.Params {
		a.declareVar(p, true, false)
	}
	for _, l := range fd.Locals {
		a.declareVar(l, false, false)
	}

	// The function's own name is its return-value variable inside the body.
	ret := &symbols.SymbolInfo{
		Name: fd.Name.Value,
		Kind: symbols.KindVariable,
		Type: sym.Type,
	}
	if err := a.current.Define(ret); err != nil {
		a.errorf(diag.DuplicateSymbol, fd.Name.Token,
			"'%s' shadows the function's return value", fd.Name.Value)
	}

	a.analyzeBlock(fd.Body)
}

func (a *Analyzer) analyzeProgramBlock(prog *ast.Program) {
	a.current = scope.NewScope(a.global, "program")
	defer func() { a.current = a.global }()

	for _, vd := range prog.Vars {
		if sym := a.declareVar(vd, false, true); sym != nil {
			a.info.ProgramVars = append(a.info.ProgramVars, sym)
		}
	}
	a.analyzeBlock(prog.Body)
}

func (a *Analyzer) analyzeBlock(block *ast.BlockStatement) {
	for _, stmt := range block.Statements {
		a.analyzeStatement(stmt)
	}
}

func (a *Analyzer) analyzeStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		a.analyzeAssign(s)
	case *ast.IfStatement:
		condType := a.exprType(s.Condition)
		if condType != nil && condType.Base != symbols.Bool {
			a.errorf(diag.TypeMismatch, s.Condition.GetToken(),
				"IF condition must be BOOL, got %s", condType.Name)
		}
		a.analyzeBlock(s.Then)
		if s.Else != nil {
			a.analyzeBlock(s.Else)
		}
	}
}

func (a *Analyzer) analyzeAssign(s *ast.AssignStatement) {
	targetType := a.targetType(s.Target)
	valueType := a.exprType(s.Value)
	if targetType == nil || valueType == nil {
		return
	}
	if !valueType.AssignableTo(targetType) {
		a.errorf(diag.TypeMismatch, s.Token,
			"cannot assign %s to %s", valueType.Name, targetType.Name)
	}
}

// targetType resolves an assignment target and checks it is writable.
func (a *Analyzer) targetType(target ast.Expression) *symbols.DataType {
	switch t := target.(type) {
	case *ast.Identifier:
		sym, ok := a.current.Lookup(t.Value)
		if !ok {
			a.errorf(diag.UndefinedSymbol, t.Token, "undefined symbol '%s'", t.Value)
			return nil
		}
		if sym.Kind == symbols.KindFunction {
			a.errorf(diag.TypeMismatch, t.Token,
				"cannot assign to function '%s' outside its own body", t.Value)
			return nil
		}
		if sym.ReadOnly {
			a.errorf(diag.TypeMismatch, t.Token,
				"cannot assign to VAR_INPUT parameter '%s'", t.Value)
			return nil
		}
		a.info.Syms[t] = sym
		a.info.Types[t] = sym.Type
		return sym.Type

	case *ast.MemberExpression:
		// writability is a property of the root identifier
		root := rootIdentifier(t)
		if root != nil {
			if sym, ok := a.current.Lookup(root.Value); ok && sym.ReadOnly {
				a.errorf(diag.TypeMismatch, root.Token,
					"cannot assign to VAR_INPUT parameter '%s'", root.Value)
				return nil
			}
		}
		return a.exprType(t)

	default:
		a.errorf(diag.TypeMismatch, target.GetToken(), "invalid assignment target")
		return nil
	}
}

func rootIdentifier(e ast.Expression) *ast.Identifier {
	for {
		switch v := e.(type) {
		case *ast.Identifier:
			return v
		case *ast.MemberExpression:
			e = v.Object
		default:
			return nil
		}
	}
}

// --- Expression typing ---

// exprType infers an expression's type bottom-up and records it in the side
// table. A nil result means a diagnostic has already been reported somewhere
// below; callers skip their own check in that case to avoid cascades.
func (a *Analyzer) exprType(e ast.Expression) *symbols.DataType {
	t := a.inferType(e)
	if t != nil {
		a.info.Types[e] = t
	}
	return t
}

func (a *Analyzer) inferType(e ast.Expression) *symbols.DataType {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return symbols.IntType
	case *ast.RealLiteral:
		return symbols.RealType
	case *ast.BooleanLiteral:
		return symbols.BoolType

	case *ast.Identifier:
		sym, ok := a.current.Lookup(v.Value)
		if !ok {
			a.errorf(diag.UndefinedSymbol, v.Token, "undefined symbol '%s'", v.Value)
			return nil
		}
		switch sym.Kind {
		case symbols.KindFunction:
			a.errorf(diag.TypeMismatch, v.Token, "function '%s' used as a value", v.Value)
			return nil
		case symbols.KindType:
			a.errorf(diag.TypeMismatch, v.Token, "type '%s' used as a value", v.Value)
			return nil
		}
		a.info.Syms[v] = sym
		return sym.Type

	case *ast.UnaryExpression:
		t := a.exprType(v.Operand)
		if t == nil {
			return nil
		}
		if v.Operator == "NOT" {
			if t.Base != symbols.Bool {
				a.errorf(diag.TypeMismatch, v.Token, "NOT requires a BOOL operand, got %s", t.Name)
				return nil
			}
			return symbols.BoolType
		}
		if t.Base != symbols.Int && t.Base != symbols.Real {
			a.errorf(diag.TypeMismatch, v.Token, "unary '-' requires INT or REAL, got %s", t.Name)
			return nil
		}
		return t

	case *ast.BinaryExpression:
		return a.binaryType(v)

	case *ast.CallExpression:
		return a.callType(v)

	case *ast.MemberExpression:
		objType := a.exprType(v.Object)
		if objType == nil {
			return nil
		}
		if objType.Base != symbols.Struct {
			a.errorf(diag.TypeMismatch, v.Token, "member access on non-struct type %s", objType.Name)
			return nil
		}
		f := objType.Field(v.Field.Value)
		if f == nil {
			a.errorf(diag.UndefinedSymbol, v.Field.Token,
				"struct '%s' has no field '%s'", objType.Name, v.Field.Value)
			return nil
		}
		return f.Type
	}
	return nil
}

func isNumeric(t *symbols.DataType) bool {
	return t.Base == symbols.Int || t.Base == symbols.Real
}

func (a *Analyzer) binaryType(e *ast.BinaryExpression) *symbols.DataType {
	lt := a.exprType(e.Left)
	rt := a.exprType(e.Right)
	if lt == nil || rt == nil {
		return nil
	}

	switch e.Operator {
	case "AND", "OR":
		if lt.Base != symbols.Bool || rt.Base != symbols.Bool {
			a.errorf(diag.TypeMismatch, e.Token,
				"operator %s requires BOOL operands, got %s and %s", e.Operator, lt.Name, rt.Name)
			return nil
		}
		return symbols.BoolType

	case "+", "-", "*", "/":
		if !isNumeric(lt) || !isNumeric(rt) {
			a.errorf(diag.TypeMismatch, e.Token,
				"operator '%s' requires INT or REAL operands, got %s and %s", e.Operator, lt.Name, rt.Name)
			return nil
		}
		if lt.Base == symbols.Real || rt.Base == symbols.Real {
			return symbols.RealType
		}
		return symbols.IntType

	case "=", "<>":
		if lt.Base == symbols.Bool && rt.Base == symbols.Bool {
			return symbols.BoolType
		}
		if !isNumeric(lt) || !isNumeric(rt) {
			a.errorf(diag.TypeMismatch, e.Token,
				"operator '%s' requires matching BOOL or numeric operands, got %s and %s", e.Operator, lt.Name, rt.Name)
			return nil
		}
		return symbols.BoolType

	default: // < > <= >=
		if !isNumeric(lt) || !isNumeric(rt) {
			a.errorf(diag.TypeMismatch, e.Token,
				"operator '%s' requires INT or REAL operands, got %s and %s", e.Operator, lt.Name, rt.Name)
			return nil
		}
		return symbols.BoolType
	}
}

func (a *Analyzer) callType(e *ast.CallExpression) *symbols.DataType {
	name := e.Function.Value

	// Inside a function's own body the bare name is the return variable; a
	// call still targets the function, so calls resolve against the global
	// scope when the nearest binding is not a function.
	sym, ok := a.current.Lookup(name)
	if !ok || sym.Kind != symbols.KindFunction {
		if gsym, gok := a.global.Lookup(name); gok && gsym.Kind == symbols.KindFunction {
			sym, ok = gsym, true
		} else if !ok {
			a.errorf(diag.UndefinedSymbol, e.Token, "undefined function '%s'", name)
			return nil
		} else {
			a.errorf(diag.TypeMismatch, e.Token, "'%s' is not a function", name)
			return nil
		}
	}

	if len(e.Arguments) != len(sym.ParamTypes) {
		a.errorf(diag.ArityMismatch, e.Token,
			"function '%s' expects %d argument(s), got %d", name, len(sym.ParamTypes), len(e.Arguments))
	}

	n := len(e.Arguments)
	if len(sym.ParamTypes) < n {
		n = len(sym.ParamTypes)
	}
	for i := 0; i < n; i++ {
		at := a.exprType(e.Arguments[i])
		pt := sym.ParamTypes[i]
		if at == nil || pt == nil {
			continue
		}
		if !at.AssignableTo(pt) {
			a.errorf(diag.TypeMismatch, e.Arguments[i].GetToken(),
				"argument %d of '%s': cannot pass %s as %s", i+1, name, at.Name, pt.Name)
		}
	}
	// type the extra arguments too, so their own errors surface
	for i := n; i < len(e.Arguments); i++ {
		a.exprType(e.Arguments[i])
	}

	a.info.Syms[e] = sym
	return sym.Type
}
