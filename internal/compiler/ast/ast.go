package ast

import (
	"bytes"
	"strings"

	"github.com/plctools/st2cc/internal/compiler/addr"
	"github.com/plctools/st2cc/internal/compiler/token"
)

// --- Interfaces ---

type Node interface {
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// --- Program ---

// Program is the root node for one source file: its TYPE and FUNCTION
// declarations plus the (at most one) top-level PROGRAM block.
type Program struct {
	Token token.Token // PROGRAM, zero when the file has no program block

	Structs   []*StructDecl
	Functions []*FuncDecl

	// Program block, empty Name when absent.
	Name *Identifier
	Vars []*VarDecl
	Body *BlockStatement
}

func (p *Program) TokenLiteral() string { return p.Token.Literal }

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Structs {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	for _, f := range p.Functions {
		out.WriteString(f.String())
		out.WriteString("\n")
	}
	if p.Name != nil {
		out.WriteString("PROGRAM " + p.Name.Value + "\n")
		for _, v := range p.Vars {
			out.WriteString("  " + v.String() + "\n")
		}
		out.WriteString(p.Body.String())
		out.WriteString("END_PROGRAM\n")
	}
	return out.String()
}

// --- Declarations ---

// TypeNode names a declared or built-in type; resolution happens during
// semantic analysis.
type TypeNode struct {
	Token token.Token
	Name  string
}

func (tn *TypeNode) TokenLiteral() string { return tn.Token.Literal }
func (tn *TypeNode) String() string       { return tn.Name }

// Field is one struct member declaration.
type Field struct {
	Name     *Identifier
	TypeNode *TypeNode
}

func (f *Field) String() string { return f.Name.Value + ": " + f.TypeNode.String() + ";" }

// StructDecl -> TYPE Point : STRUCT x: REAL; y: REAL; END_STRUCT; END_TYPE
type StructDecl struct {
	Token  token.Token // TYPE
	Name   *Identifier
	Fields []*Field
}

func (sd *StructDecl) statementNode()       {}
func (sd *StructDecl) TokenLiteral() string { return sd.Token.Literal }
func (sd *StructDecl) String() string {
	var out bytes.Buffer
	out.WriteString("TYPE " + sd.Name.Value + " : STRUCT\n")
	for _, f := range sd.Fields {
		out.WriteString("  " + f.String() + "\n")
	}
	out.WriteString("END_STRUCT; END_TYPE")
	return out.String()
}

// VarDecl -> n AT %IW0 : INT ;
type VarDecl struct {
	Token    token.Token // the identifier token
	Name     *Identifier
	TypeNode *TypeNode

	// Optional AT clause.
	AddrToken token.Token
	Addr      *addr.Address
}

func (vd *VarDecl) statementNode()       {}
func (vd *VarDecl) TokenLiteral() string { return vd.Token.Literal }
func (vd *VarDecl) String() string {
	var out bytes.Buffer
	out.WriteString(vd.Name.Value)
	if vd.Addr != nil {
		out.WriteString(" AT " + vd.Addr.String())
	}
	out.WriteString(": " + vd.TypeNode.String() + ";")
	return out.String()
}

// FuncDecl -> FUNCTION Factorial : INT VAR_INPUT ... END_VAR stmt* END_FUNCTION
type FuncDecl struct {
	Token      token.Token // FUNCTION
	Name       *Identifier
	ReturnType *TypeNode
	Params     []*VarDecl
	Locals     []*VarDecl
	Body       *BlockStatement
}

func (fd *FuncDecl) statementNode()       {}
func (fd *FuncDecl) TokenLiteral() string { return fd.Token.Literal }
func (fd *FuncDecl) String() string {
	var out bytes.Buffer
	out.WriteString("FUNCTION " + fd.Name.Value + " : " + fd.ReturnType.String() + "\n")
	for _, p := range fd.Params {
		out.WriteString("  IN " + p.String() + "\n")
	}
	for _, l := range fd.Locals {
		out.WriteString("  " + l.String() + "\n")
	}
	out.WriteString(fd.Body.String())
	out.WriteString("END_FUNCTION")
	return out.String()
}

// --- Statements ---

// BlockStatement is an ordered statement sequence; order is execution order.
type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	for _, s := range bs.Statements {
		out.WriteString("  " + s.String() + "\n")
	}
	return out.String()
}

// AssignStatement -> lvalue := expr ;
type AssignStatement struct {
	Token  token.Token // :=
	Target Expression  // *Identifier or *MemberExpression
	Value  Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) String() string {
	return as.Target.String() + " := " + as.Value.String() + ";"
}

// IfStatement -> IF cond THEN ... ELSE ... END_IF. Else is nil when the
// branch is absent.
type IfStatement struct {
	Token     token.Token // IF
	Condition Expression
	Then      *BlockStatement
	Else      *BlockStatement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("IF " + is.Condition.String() + " THEN\n")
	out.WriteString(is.Then.String())
	if is.Else != nil {
		out.WriteString("ELSE\n")
		out.WriteString(is.Else.String())
	}
	out.WriteString("END_IF")
	return out.String()
}

// --- Expressions ---

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Literal }
func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) String() string        { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()       {}
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Literal }
func (il *IntegerLiteral) GetToken() token.Token { return il.Token }
func (il *IntegerLiteral) String() string        { return il.Token.Literal }

type RealLiteral struct {
	Token token.Token
	Value float64
}

func (rl *RealLiteral) expressionNode()       {}
func (rl *RealLiteral) TokenLiteral() string  { return rl.Token.Literal }
func (rl *RealLiteral) GetToken() token.Token { return rl.Token }
func (rl *RealLiteral) String() string        { return rl.Token.Literal }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Literal }
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }
func (bl *BooleanLiteral) String() string        { return bl.Token.Literal }

// BinaryExpression -> left op right, left-associative at every level.
type BinaryExpression struct {
	Token    token.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (be *BinaryExpression) expressionNode()       {}
func (be *BinaryExpression) TokenLiteral() string  { return be.Token.Literal }
func (be *BinaryExpression) GetToken() token.Token { return be.Token }
func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator + " " + be.Right.String() + ")"
}

// UnaryExpression -> NOT x, -x
type UnaryExpression struct {
	Token    token.Token
	Operator string
	Operand  Expression
}

func (ue *UnaryExpression) expressionNode()       {}
func (ue *UnaryExpression) TokenLiteral() string  { return ue.Token.Literal }
func (ue *UnaryExpression) GetToken() token.Token { return ue.Token }
func (ue *UnaryExpression) String() string {
	if ue.Operator == "NOT" {
		return "(NOT " + ue.Operand.String() + ")"
	}
	return "(" + ue.Operator + ue.Operand.String() + ")"
}

// CallExpression -> Factorial(n)
type CallExpression struct {
	Token     token.Token // the callee identifier token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Literal }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Function.Value + "(" + strings.Join(args, ", ") + ")"
}

// MemberExpression -> point.x, left-to-right chains.
type MemberExpression struct {
	Token  token.Token // the '.'
	Object Expression
	Field  *Identifier
}

func (me *MemberExpression) expressionNode()       {}
func (me *MemberExpression) TokenLiteral() string  { return me.Token.Literal }
func (me *MemberExpression) GetToken() token.Token { return me.Token }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Field.Value
}
