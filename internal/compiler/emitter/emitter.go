package emitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plctools/st2cc/internal/compiler/addr"
	"github.com/plctools/st2cc/internal/compiler/analyzer"
	"github.com/plctools/st2cc/internal/compiler/ast"
	"github.com/plctools/st2cc/internal/compiler/config"
	"github.com/plctools/st2cc/internal/compiler/symbols"
)

const indent = "    "

// retVar is the C local realizing IEC's assign-to-own-name return
// convention. A C local sharing the function's name would shadow it and
// break recursive calls, so assignments to (and reads of) the function's
// own name are rewritten to this name instead. The ST grammar cannot
// produce an identifier starting with an underscore pair, so it never
// collides with user variables.
const retVar = "__ret"

// Emitter translates a zero-error annotated AST into one C99 translation
// unit. It performs no validation of its own: all validity is guaranteed by
// semantic analysis, and any internal inconsistency (a type with no
// generation rule, a missing annotation) is a programming defect that
// panics instead of emitting invalid C silently. Output is deterministic:
// the same AST, annotations and config produce byte-identical text.
type Emitter struct {
	builder strings.Builder
	cfg     *config.Config
	info    *analyzer.Info

	// name of the function currently being emitted, "" in main
	currentFunc string
}

func NewEmitter(cfg *config.Config) *Emitter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Emitter{cfg: cfg}
}

// Emit generates the full translation unit.
func (e *Emitter) Emit(prog *ast.Program, info *analyzer.Info) string {
	e.info = info

	e.writeLine("// This file was generated automatically by st2cc.")
	e.writeLine("")
	e.writeLine("#include <inttypes.h>")
	if usesBool(prog) {
		e.writeLine("#include <stdbool.h>")
	}

	for _, t := range info.Registry.Ordered() {
		e.writeLine("")
		e.emitStructTypedef(t)
	}

	addressed := e.addressedVars()
	if len(addressed) > 0 {
		e.writeLine("")
		for _, sym := range addressed {
			e.writeLine("#define %s 0x%X", macroName(sym), e.cfg.Base(sym.Addr.Region)+int64(sym.Addr.BytePos()))
		}
	}

	for _, fd := range prog.Functions {
		e.writeLine("")
		e.emitFunction(fd)
	}

	if prog.Name != nil {
		e.writeLine("")
		e.emitMain(prog)
	}

	return e.builder.String()
}

func (e *Emitter) writeLine(format string, args ...any) {
	fmt.Fprintf(&e.builder, format, args...)
	e.builder.WriteString("\n")
}

func (e *Emitter) writeIndented(depth int, format string, args ...any) {
	e.builder.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(&e.builder, format, args...)
	e.builder.WriteString("\n")
}

// --- Declarations ---

func (e *Emitter) emitStructTypedef(t *symbols.DataType) {
	e.writeLine("typedef struct {")
	for _, f := range t.Fields {
		e.writeIndented(1, "%s %s;", e.cType(f.Type), f.Name)
	}
	e.writeLine("} %s;", t.Name)
}

func (e *Emitter) emitFunction(fd *ast.FuncDecl) {
	sym := e.info.SymbolOf(fd)
	if sym == nil {
		panic("emitter: function without symbol annotation: " + fd.Name.Value)
	}

	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		psym := e.info.SymbolOf(p)
		params[i] = e.cType(psym.Type) + " " + psym.Name
	}

	retC := e.cType(sym.Type)
	e.writeLine("%s %s(%s) {", retC, sym.Name, strings.Join(params, ", "))
	e.writeIndented(1, "%s %s = %s;", retC, retVar, e.zeroValue(sym.Type))
	for _, l := range fd.Locals {
		lsym := e.info.SymbolOf(l)
		e.writeIndented(1, "%s %s = %s;", e.cType(lsym.Type), lsym.Name, e.zeroValue(lsym.Type))
	}

	e.currentFunc = fd.Name.Value
	e.emitBlock(fd.Body, 1)
	e.currentFunc = ""

	e.writeIndented(1, "return %s;", retVar)
	e.writeLine("}")
}

// --- main and the scan cycle ---

func (e *Emitter) emitMain(prog *ast.Program) {
	inCells := e.cells(addr.Input)
	outCells := e.cells(addr.Output)

	e.writeLine("int main(int argc, char *argv[]) {")
	for _, c := range inCells {
		e.writeIndented(1, "%s %s;", cellCType(c.bits), c.name())
	}
	for _, c := range outCells {
		e.writeIndented(1, "%s %s;", cellCType(c.bits), c.name())
	}
	for _, sym := range e.info.ProgramVars {
		e.writeIndented(1, "%s %s;", e.cType(sym.Type), sym.Name)
	}

	e.writeIndented(1, "while (1) {")
	for _, c := range inCells {
		e.emitCellRead(c)
	}
	e.emitBlock(prog.Body, 2)
	for _, c := range outCells {
		e.emitCellWrite(c)
	}
	e.writeIndented(1, "}")
	e.writeIndented(1, "return 0;")
	e.writeLine("}")
}

// ioCell is one physical byte/word/dword of a region, claimed either by a
// single whole-cell variable or by up to eight packed BOOL bit variables.
type ioCell struct {
	region  addr.Region
	bytePos int
	bits    int
	whole   *symbols.SymbolInfo
	packed  []*symbols.SymbolInfo // sorted by bit position
	macro   string                // macro of the first claimant, declaration order
}

func (c *ioCell) name() string {
	if c.region == addr.Input {
		return fmt.Sprintf("_in_%d", c.bytePos)
	}
	return fmt.Sprintf("_out_%d", c.bytePos)
}

// cells groups the region's addressed variables into distinct byte cells,
// ordered by byte offset. The address-conflict check already guarantees
// that a cell holds either one whole-cell variable or disjoint bits.
func (e *Emitter) cells(region addr.Region) []*ioCell {
	byPos := make(map[int]*ioCell)
	var order []int

	for _, sym := range e.addressedVars() {
		a := sym.Addr
		if a.Region != region {
			continue
		}
		c, ok := byPos[a.BytePos()]
		if !ok {
			c = &ioCell{region: region, bytePos: a.BytePos(), bits: 8, macro: macroName(sym)}
			byPos[a.BytePos()] = c
			order = append(order, a.BytePos())
		}
		if a.Gran == addr.Bit {
			c.packed = append(c.packed, sym)
		} else {
			c.whole = sym
			c.bits = a.Gran.Bits()
		}
	}

	sort.Ints(order)
	cells := make([]*ioCell, 0, len(order))
	for _, pos := range order {
		c := byPos[pos]
		sort.SliceStable(c.packed, func(i, j int) bool {
			return c.packed[i].Addr.BitPos < c.packed[j].Addr.BitPos
		})
		cells = append(cells, c)
	}
	return cells
}

// emitCellRead loads one input cell and unpacks it into its variables.
// Bit extraction always uses a single-bit mask.
func (e *Emitter) emitCellRead(c *ioCell) {
	e.writeIndented(2, "%s = *(volatile %s *)%s;", c.name(), cellCType(c.bits), c.macro)
	if c.whole != nil {
		e.writeIndented(2, "%s = (%s)%s;", c.whole.Name, e.cType(c.whole.Type), c.name())
		return
	}
	for _, sym := range c.packed {
		e.writeIndented(2, "%s = (%s >> %d) & 0x1;", sym.Name, c.name(), sym.Addr.BitPos)
	}
}

// emitCellWrite packs one output cell from its variables and stores it.
func (e *Emitter) emitCellWrite(c *ioCell) {
	if c.whole != nil {
		e.writeIndented(2, "%s = (%s)%s;", c.name(), cellCType(c.bits), c.whole.Name)
	} else {
		terms := make([]string, len(c.packed))
		for i, sym := range c.packed {
			terms[i] = fmt.Sprintf("(%s << %d)", sym.Name, sym.Addr.BitPos)
		}
		e.writeIndented(2, "%s = (%s)(%s);", c.name(), cellCType(c.bits), strings.Join(terms, " | "))
	}
	e.writeIndented(2, "*(volatile %s *)%s = %s;", cellCType(c.bits), c.macro, c.name())
}

func (e *Emitter) addressedVars() []*symbols.SymbolInfo {
	var out []*symbols.SymbolInfo
	for _, sym := range e.info.ProgramVars {
		if sym.Addr != nil {
			out = append(out, sym)
		}
	}
	return out
}

// --- Statements ---

func (e *Emitter) emitBlock(block *ast.BlockStatement, depth int) {
	for _, stmt := range block.Statements {
		e.emitStatement(stmt, depth)
	}
}

func (e *Emitter) emitStatement(stmt ast.Statement, depth int) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		e.writeIndented(depth, "%s = %s;", e.expr(s.Target), e.expr(s.Value))
	case *ast.IfStatement:
		e.writeIndented(depth, "if (%s) {", e.expr(s.Condition))
		e.emitBlock(s.Then, depth+1)
		if s.Else != nil {
			e.writeIndented(depth, "} else {")
			e.emitBlock(s.Else, depth+1)
		}
		e.writeIndented(depth, "}")
	default:
		panic(fmt.Sprintf("emitter: no generation rule for statement %T", stmt))
	}
}

// --- Expressions ---

// expr translates structurally: the AST shape already encodes precedence,
// and every binary node is parenthesized, so C's precedence never matters.
func (e *Emitter) expr(x ast.Expression) string {
	switch v := x.(type) {
	case *ast.Identifier:
		if e.currentFunc != "" && v.Value == e.currentFunc {
			return retVar
		}
		return v.Value
	case *ast.IntegerLiteral:
		return v.Token.Literal
	case *ast.RealLiteral:
		return v.Token.Literal + "f"
	case *ast.BooleanLiteral:
		if v.Value {
			return "true"
		}
		return "false"
	case *ast.BinaryExpression:
		return "(" + e.expr(v.Left) + " " + cOperator(v.Operator) + " " + e.expr(v.Right) + ")"
	case *ast.UnaryExpression:
		// parenthesized like binary nodes; a bare minus before a negated
		// operand would otherwise lex as C's '--'
		if v.Operator == "NOT" {
			return "(!" + e.expr(v.Operand) + ")"
		}
		return "(-" + e.expr(v.Operand) + ")"
	case *ast.CallExpression:
		args := make([]string, len(v.Arguments))
		for i, a := range v.Arguments {
			args[i] = e.expr(a)
		}
		return v.Function.Value + "(" + strings.Join(args, ", ") + ")"
	case *ast.MemberExpression:
		return e.expr(v.Object) + "." + v.Field.Value
	default:
		panic(fmt.Sprintf("emitter: no generation rule for expression %T", x))
	}
}

func cOperator(op string) string {
	switch op {
	case "OR":
		return "||"
	case "AND":
		return "&&"
	case "=":
		return "=="
	case "<>":
		return "!="
	default:
		return op
	}
}

// --- Type mapping ---

func (e *Emitter) cType(t *symbols.DataType) string {
	if t == nil {
		panic("emitter: unresolved type reached code generation")
	}
	switch t.Base {
	case symbols.Bool:
		return "bool"
	case symbols.Int:
		return "int32_t"
	case symbols.Real:
		return "float"
	case symbols.Struct:
		return t.Name
	}
	panic("emitter: no C type for " + t.Name)
}

func (e *Emitter) zeroValue(t *symbols.DataType) string {
	switch t.Base {
	case symbols.Bool:
		return "false"
	case symbols.Int:
		return "0"
	case symbols.Real:
		return "0.0f"
	case symbols.Struct:
		return "{0}"
	}
	panic("emitter: no zero value for " + t.Name)
}

func cellCType(bits int) string {
	switch bits {
	case 8:
		return "uint8_t"
	case 16:
		return "uint16_t"
	case 32:
		return "uint32_t"
	}
	panic(fmt.Sprintf("emitter: no cell type for %d bits", bits))
}

func macroName(sym *symbols.SymbolInfo) string {
	return "ADDR_" + strings.ToUpper(sym.Name)
}

// usesBool reports whether the emitted C needs <stdbool.h>: any declared
// BOOL variable, parameter, field or return type, or a TRUE/FALSE literal.
func usesBool(prog *ast.Program) bool {
	isBool := func(tn *ast.TypeNode) bool { return tn.Name == "BOOL" }

	for _, sd := range prog.Structs {
		for _, f := range sd.Fields {
			if isBool(f.TypeNode) {
				return true
			}
		}
	}
	for _, fd := range prog.Functions {
		if isBool(fd.ReturnType) {
			return true
		}
		for _, p := range fd.Params {
			if isBool(p.TypeNode) {
				return true
			}
		}
		for _, l := range fd.Locals {
			if isBool(l.TypeNode) {
				return true
			}
		}
		if blockUsesBoolLiteral(fd.Body) {
			return true
		}
	}
	for _, vd := range prog.Vars {
		if isBool(vd.TypeNode) {
			return true
		}
	}
	return prog.Body != nil && blockUsesBoolLiteral(prog.Body)
}

func blockUsesBoolLiteral(block *ast.BlockStatement) bool {
	for _, stmt := range block.Statements {
		if stmtUsesBoolLiteral(stmt) {
			return true
		}
	}
	return false
}

func stmtUsesBoolLiteral(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return exprUsesBoolLiteral(s.Target) || exprUsesBoolLiteral(s.Value)
	case *ast.IfStatement:
		if exprUsesBoolLiteral(s.Condition) || blockUsesBoolLiteral(s.Then) {
			return true
		}
		return s.Else != nil && blockUsesBoolLiteral(s.Else)
	}
	return false
}

func exprUsesBoolLiteral(x ast.Expression) bool {
	switch v := x.(type) {
	case *ast.BooleanLiteral:
		return true
	case *ast.BinaryExpression:
		return exprUsesBoolLiteral(v.Left) || exprUsesBoolLiteral(v.Right)
	case *ast.UnaryExpression:
		return exprUsesBoolLiteral(v.Operand)
	case *ast.CallExpression:
		for _, a := range v.Arguments {
			if exprUsesBoolLiteral(a) {
				return true
			}
		}
	case *ast.MemberExpression:
		return exprUsesBoolLiteral(v.Object)
	}
	return false
}
