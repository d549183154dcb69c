package analyzer

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/plctools/st2cc/internal/compiler/ast"
	"github.com/plctools/st2cc/internal/compiler/diag"
	"github.com/plctools/st2cc/internal/compiler/lexer"
	"github.com/plctools/st2cc/internal/compiler/parser"
	"github.com/plctools/st2cc/internal/compiler/symbols"
)

func analyze(t *testing.T, src string) (*ast.Program, *Info, []diag.Diagnostic) {
	t.Helper()
	toks, lexErr := lexer.Tokenize(src)
	if lexErr != nil {
		t.Fatalf("lex error: %s", lexErr)
	}
	prog, parseErr := parser.Parse(toks)
	if parseErr != nil {
		t.Fatalf("parse error: %s", parseErr)
	}
	info, diags := Analyze(prog)
	return prog, info, diags
}

func analyzeClean(t *testing.T, src string) (*ast.Program, *Info) {
	t.Helper()
	prog, info, diags := analyze(t, src)
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %s", d)
	}
	return prog, info
}

// wantKinds asserts the diagnostic kinds in reporting order.
func wantKinds(t *testing.T, diags []diag.Diagnostic, kinds ...diag.Kind) {
	t.Helper()
	if len(diags) != len(kinds) {
		for _, d := range diags {
			t.Logf("got: %s", d)
		}
		t.Fatalf("got %d diagnostics, want %d", len(diags), len(kinds))
	}
	for i, k := range kinds {
		be.Equal(t, diags[i].Kind, k)
	}
}

func TestCleanProgram(t *testing.T) {
	prog, info := analyzeClean(t, `
PROGRAM Main
VAR
    a: BOOL;
    n: INT;
    r: REAL;
END_VAR
a := TRUE;
n := 1 + 2 * 3;
r := n;
IF a AND n > 0 THEN
    r := 0.5;
END_IF
END_PROGRAM
`)
	be.Equal(t, len(info.ProgramVars), 3)
	be.Equal(t, info.ProgramVars[0].Name, "a")

	// the widened assignment keeps its INT source type in the table
	assign := prog.Body.Statements[2].(*ast.AssignStatement)
	be.Equal(t, info.TypeOf(assign.Value), symbols.IntType)
	be.Equal(t, info.TypeOf(assign.Target), symbols.RealType)
}

func TestFunctionAndCall(t *testing.T) {
	prog, info := analyzeClean(t, `
FUNCTION Twice : INT
VAR_INPUT
    x: INT;
END_VAR
Twice := x * 2;
END_FUNCTION
PROGRAM Main
VAR
    n: INT;
END_VAR
n := Twice(21);
END_PROGRAM
`)
	call := prog.Body.Statements[0].(*ast.AssignStatement).Value.(*ast.CallExpression)
	be.Equal(t, info.TypeOf(call), symbols.IntType)

	sym := info.SymbolOf(call)
	be.True(t, sym != nil)
	be.Equal(t, sym.Kind, symbols.KindFunction)
	be.Equal(t, len(sym.ParamTypes), 1)
}

// Functions may be called before their declaration in the file.
func TestForwardCall(t *testing.T) {
	analyzeClean(t, `
FUNCTION A : INT
A := B() + 1;
END_FUNCTION
FUNCTION B : INT
B := 41;
END_FUNCTION
`)
}

// Inside a body the bare function name is the return variable, yet a call
// through the same name still reaches the function. That is what makes
// recursion work.
func TestRecursion(t *testing.T) {
	analyzeClean(t, `
FUNCTION Factorial : INT
VAR_INPUT
    num: INT;
END_VAR
IF num <= 1 THEN
    Factorial := 1;
ELSE
    Factorial := num * Factorial(num - 1);
END_IF
END_FUNCTION
`)
}

func TestProgramVarsInvisibleToFunctions(t *testing.T) {
	_, _, diags := analyze(t, `
FUNCTION F : INT
F := g;
END_FUNCTION
PROGRAM Main
VAR
    g: INT;
END_VAR
g := F();
END_PROGRAM
`)
	wantKinds(t, diags, diag.UndefinedSymbol)
	be.True(t, strings.Contains(diags[0].Message, "'g'"))
}

func TestAssignmentTypeRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Kind
	}{
		{
			"real to int rejected",
			"PROGRAM P VAR n: INT; END_VAR n := 1.5; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"int to real widens",
			"PROGRAM P VAR r: REAL; END_VAR r := 3; END_PROGRAM",
			nil,
		},
		{
			"bool to int rejected",
			"PROGRAM P VAR n: INT; END_VAR n := TRUE; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"if condition must be bool",
			"PROGRAM P VAR n: INT; END_VAR IF n THEN n := 1; END_IF END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"and requires bool operands",
			"PROGRAM P VAR a: BOOL; n: INT; END_VAR a := a AND n; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"bool equality allowed",
			"PROGRAM P VAR a: BOOL; b: BOOL; END_VAR a := a = b; END_PROGRAM",
			nil,
		},
		{
			"bool ordering rejected",
			"PROGRAM P VAR a: BOOL; b: BOOL; END_VAR a := a < b; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"mixed equality operand kinds rejected",
			"PROGRAM P VAR a: BOOL; n: INT; END_VAR a := a = n; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"mixed comparison widens",
			"PROGRAM P VAR a: BOOL; n: INT; r: REAL; END_VAR a := n < r; END_PROGRAM",
			nil,
		},
		{
			"not requires bool",
			"PROGRAM P VAR a: BOOL; n: INT; END_VAR a := NOT n; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"unary minus requires numeric",
			"PROGRAM P VAR a: BOOL; END_VAR a := -a; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := analyze(t, tt.src)
			wantKinds(t, diags, tt.want...)
		})
	}
}

func TestUndefinedSymbols(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Kind
	}{
		{
			"undefined variable read",
			"PROGRAM P VAR n: INT; END_VAR n := m; END_PROGRAM",
			[]diag.Kind{diag.UndefinedSymbol},
		},
		{
			"undefined assignment target",
			"PROGRAM P m := 1; END_PROGRAM",
			[]diag.Kind{diag.UndefinedSymbol},
		},
		{
			"undefined function",
			"PROGRAM P VAR n: INT; END_VAR n := F(1); END_PROGRAM",
			[]diag.Kind{diag.UndefinedSymbol},
		},
		{
			"undefined type",
			"PROGRAM P VAR p: Point; END_VAR END_PROGRAM",
			[]diag.Kind{diag.UndefinedSymbol},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := analyze(t, tt.src)
			wantKinds(t, diags, tt.want...)
		})
	}
}

func TestDuplicates(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Kind
	}{
		{
			"duplicate program variable",
			"PROGRAM P VAR a: BOOL; a: INT; END_VAR END_PROGRAM",
			[]diag.Kind{diag.DuplicateSymbol},
		},
		{
			"duplicate function",
			"FUNCTION F : INT F := 1; END_FUNCTION FUNCTION F : INT F := 2; END_FUNCTION",
			[]diag.Kind{diag.DuplicateSymbol},
		},
		{
			"duplicate struct field",
			"TYPE T : STRUCT x: INT; x: REAL; END_STRUCT; END_TYPE",
			[]diag.Kind{diag.DuplicateSymbol},
		},
		{
			"struct shadows builtin",
			"TYPE INT : STRUCT x: INT; END_STRUCT; END_TYPE",
			[]diag.Kind{diag.DuplicateSymbol},
		},
		{
			"parameter and local with same name",
			"FUNCTION F : INT VAR_INPUT x: INT; END_VAR VAR x: INT; END_VAR F := x; END_FUNCTION",
			[]diag.Kind{diag.DuplicateSymbol},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := analyze(t, tt.src)
			wantKinds(t, diags, tt.want...)
		})
	}
}

func TestReturnValueAssignment(t *testing.T) {
	// assigning to the function's own name is the return convention
	analyzeClean(t, "FUNCTION F : INT F := 1; END_FUNCTION")

	// assigning to another function's name is not
	_, _, diags := analyze(t, `
FUNCTION F : INT
F := 1;
END_FUNCTION
PROGRAM Main
F := 2;
END_PROGRAM
`)
	wantKinds(t, diags, diag.TypeMismatch)
}

func TestParameterIsReadOnly(t *testing.T) {
	_, _, diags := analyze(t, `
FUNCTION F : INT
VAR_INPUT
    x: INT;
END_VAR
x := 1;
F := x;
END_FUNCTION
`)
	wantKinds(t, diags, diag.TypeMismatch)
	be.True(t, strings.Contains(diags[0].Message, "VAR_INPUT"))
}

func TestArity(t *testing.T) {
	src := `
FUNCTION Add : INT
VAR_INPUT
    a: INT;
    b: INT;
END_VAR
Add := a + b;
END_FUNCTION
PROGRAM Main
VAR
    n: INT;
END_VAR
n := Add(1);
n := Add(1, 2, 3);
n := Add(1, TRUE);
END_PROGRAM
`
	_, _, diags := analyze(t, src)
	wantKinds(t, diags, diag.ArityMismatch, diag.ArityMismatch, diag.TypeMismatch)
}

func TestArgumentWidening(t *testing.T) {
	analyzeClean(t, `
FUNCTION Half : REAL
VAR_INPUT
    x: REAL;
END_VAR
Half := x / 2.0;
END_FUNCTION
PROGRAM Main
VAR
    r: REAL;
END_VAR
r := Half(3);
END_PROGRAM
`)
}

func TestStructs(t *testing.T) {
	prog, info := analyzeClean(t, `
TYPE Point :
STRUCT
    x: REAL;
    y: REAL;
END_STRUCT;
END_TYPE
PROGRAM Main
VAR
    p: Point;
    q: Point;
END_VAR
p.x := 1.0;
p.y := p.x + 0.5;
q := p;
END_PROGRAM
`)
	pt, ok := info.Registry.Resolve("Point")
	be.True(t, ok)
	be.Equal(t, len(pt.Fields), 2)

	member := prog.Body.Statements[1].(*ast.AssignStatement).Value.(*ast.BinaryExpression).Left
	be.Equal(t, info.TypeOf(member), symbols.RealType)
}

func TestStructErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Kind
	}{
		{
			"unknown field",
			`TYPE Point : STRUCT x: REAL; END_STRUCT; END_TYPE
PROGRAM P VAR p: Point; END_VAR p.z := 1.0; END_PROGRAM`,
			[]diag.Kind{diag.UndefinedSymbol},
		},
		{
			"member access on scalar",
			"PROGRAM P VAR n: INT; END_VAR n.x := 1; END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"struct cannot be hardware-mapped",
			`TYPE Point : STRUCT x: REAL; END_STRUCT; END_TYPE
PROGRAM P VAR p AT %IW0: Point; END_VAR END_PROGRAM`,
			[]diag.Kind{diag.TypeMismatch},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := analyze(t, tt.src)
			wantKinds(t, diags, tt.want...)
		})
	}
}

func TestAddressRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Kind
	}{
		{
			"bool needs bit granularity",
			"PROGRAM P VAR a AT %IW0: BOOL; END_VAR END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"int needs byte or wider",
			"PROGRAM P VAR n AT %IX0.0: INT; END_VAR END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"real cannot be mapped",
			"PROGRAM P VAR r AT %IW0: REAL; END_VAR END_PROGRAM",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"no addresses in function scope",
			"FUNCTION F : INT VAR n AT %IW0: INT; END_VAR F := n; END_FUNCTION",
			[]diag.Kind{diag.TypeMismatch},
		},
		{
			"overlapping bits conflict",
			"PROGRAM P VAR a AT %IX0.0: BOOL; b AT %IX0.0: BOOL; END_VAR END_PROGRAM",
			[]diag.Kind{diag.AddressConflict},
		},
		{
			"word overlapping bit conflicts",
			"PROGRAM P VAR a AT %IX1.0: BOOL; n AT %IW0: INT; END_VAR END_PROGRAM",
			[]diag.Kind{diag.AddressConflict},
		},
		{
			"disjoint bits coexist",
			"PROGRAM P VAR a AT %IX0.0: BOOL; b AT %IX0.1: BOOL; q AT %QX0.0: BOOL; END_VAR END_PROGRAM",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := analyze(t, tt.src)
			wantKinds(t, diags, tt.want...)
		})
	}
}

func TestClaimsRecorded(t *testing.T) {
	_, info := analyzeClean(t, `
PROGRAM P
VAR
    a AT %IX0.0: BOOL;
    n AT %QW0: INT;
END_VAR
END_PROGRAM
`)
	be.Equal(t, len(info.Claims), 2)
	be.Equal(t, info.Claims[0].Name, "a")
	be.Equal(t, info.Claims[1].Name, "n")
}

// Semantic analysis collects; it does not stop at the first error.
func TestMultipleErrorsCollected(t *testing.T) {
	_, _, diags := analyze(t, `
PROGRAM P
VAR
    n: INT;
END_VAR
n := 1.5;
n := missing;
IF n THEN
    n := 1;
END_IF
END_PROGRAM
`)
	wantKinds(t, diags, diag.TypeMismatch, diag.UndefinedSymbol, diag.TypeMismatch)
}
