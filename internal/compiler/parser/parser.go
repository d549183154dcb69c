package parser

import (
	"strconv"

	"github.com/plctools/st2cc/internal/compiler/addr"
	"github.com/plctools/st2cc/internal/compiler/ast"
	"github.com/plctools/st2cc/internal/compiler/diag"
	"github.com/plctools/st2cc/internal/compiler/token"
)

// Parser is an LL(1) recursive-descent parser over a finished token stream.
// Each grammar production maps to one parsing routine. Parsing stops at the
// first grammar violation; there is no recovery, since this is a batch
// compiler and not an IDE service. The parser performs no semantic checks:
// unknown type names, undeclared identifiers and the like parse fine and are
// rejected by the analyzer.
type Parser struct {
	tokens  []token.Token
	pos     int
	curTok  token.Token
	peekTok token.Token
}

// Parse builds the AST for one source file. The token stream must end with
// the lexer's EOF sentinel.
func Parse(tokens []token.Token) (*ast.Program, *diag.Diagnostic) {
	p := &Parser{tokens: tokens}
	p.nextToken()
	p.nextToken()
	return p.parseFile()
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.pos < len(p.tokens) {
		p.peekTok = p.tokens[p.pos]
		p.pos++
	}
	// past the end the sentinel repeats, so lookahead never reads beyond input
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) *diag.Diagnostic {
	d := diag.New(diag.Parse, tok.Line, tok.Column, format, args...)
	return &d
}

func describe(tok token.Token) string {
	if tok.Type == token.TokenEOF {
		return "end of input"
	}
	return "'" + tok.Literal + "'"
}

// expect consumes the current token if it has the wanted type, otherwise it
// reports the first-error diagnostic.
func (p *Parser) expect(t token.TokenType, what string) (token.Token, *diag.Diagnostic) {
	if p.curTok.Type != t {
		return token.Token{}, p.errorf(p.curTok, "expected %s, found %s", what, describe(p.curTok))
	}
	tok := p.curTok
	p.nextToken()
	return tok, nil
}

// --- File ---

// file = { typedecl | funcdecl | program } ;  with at most one program
func (p *Parser) parseFile() (*ast.Program, *diag.Diagnostic) {
	prog := &ast.Program{}

	for p.curTok.Type != token.TokenEOF {
		switch p.curTok.Type {
		case token.TokenTypeKeyword:
			sd, err := p.parseStructDecl()
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, sd)
		case token.TokenFunction:
			fd, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fd)
		case token.TokenProgram:
			if prog.Name != nil {
				return nil, p.errorf(p.curTok, "duplicate PROGRAM block; at most one is allowed per file")
			}
			if err := p.parseProgramBlock(prog); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(p.curTok, "expected TYPE, FUNCTION or PROGRAM, found %s", describe(p.curTok))
		}
	}
	return prog, nil
}

// --- Declarations ---

// typedecl = "TYPE" ID ":" "STRUCT" field* "END_STRUCT" ";" "END_TYPE" ;
func (p *Parser) parseStructDecl() (*ast.StructDecl, *diag.Diagnostic) {
	typeTok, err := p.expect(token.TokenTypeKeyword, "TYPE")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.TokenIdent, "type name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenColon, "':'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenStruct, "STRUCT"); err != nil {
		return nil, err
	}

	sd := &ast.StructDecl{
		Token: typeTok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
	}
	for p.curTok.Type != token.TokenEndStruct {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		sd.Fields = append(sd.Fields, f)
	}
	if _, err = p.expect(token.TokenEndStruct, "END_STRUCT"); err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenEndType, "END_TYPE"); err != nil {
		return nil, err
	}
	return sd, nil
}

// field = ID ":" type ";" ;
func (p *Parser) parseField() (*ast.Field, *diag.Diagnostic) {
	nameTok, err := p.expect(token.TokenIdent, "field name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenColon, "':'"); err != nil {
		return nil, err
	}
	tn, err := p.parseTypeNode()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.Field{
		Name:     &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		TypeNode: tn,
	}, nil
}

// funcdecl = "FUNCTION" ID ":" type paramblock? varblock? stmt* "END_FUNCTION" ;
func (p *Parser) parseFuncDecl() (*ast.FuncDecl, *diag.Diagnostic) {
	funcTok, err := p.expect(token.TokenFunction, "FUNCTION")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.TokenIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenColon, "':'"); err != nil {
		return nil, err
	}
	retType, err := p.parseTypeNode()
	if err != nil {
		return nil, err
	}

	fd := &ast.FuncDecl{
		Token:      funcTok,
		Name:       &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		ReturnType: retType,
	}

	if p.curTok.Type == token.TokenVarInput {
		p.nextToken()
		fd.Params, err = p.parseVarDecls()
		if err != nil {
			return nil, err
		}
	}
	if p.curTok.Type == token.TokenVar {
		p.nextToken()
		fd.Locals, err = p.parseVarDecls()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock(token.TokenEndFunction)
	if err != nil {
		return nil, err
	}
	fd.Body = body
	if _, err = p.expect(token.TokenEndFunction, "END_FUNCTION"); err != nil {
		return nil, err
	}
	return fd, nil
}

// program = "PROGRAM" ID varblock? stmt* "END_PROGRAM" ;
func (p *Parser) parseProgramBlock(prog *ast.Program) *diag.Diagnostic {
	progTok, err := p.expect(token.TokenProgram, "PROGRAM")
	if err != nil {
		return err
	}
	nameTok, err := p.expect(token.TokenIdent, "program name")
	if err != nil {
		return err
	}
	prog.Token = progTok
	prog.Name = &ast.Identifier{Token: nameTok, Value: nameTok.Literal}

	if p.curTok.Type == token.TokenVar {
		p.nextToken()
		prog.Vars, err = p.parseVarDecls()
		if err != nil {
			return err
		}
	}

	body, err := p.parseBlock(token.TokenEndProgram)
	if err != nil {
		return err
	}
	prog.Body = body
	_, err = p.expect(token.TokenEndProgram, "END_PROGRAM")
	return err
}

// parseVarDecls parses vardecl* up to and including END_VAR. The opening
// VAR/VAR_INPUT has already been consumed.
func (p *Parser) parseVarDecls() ([]*ast.VarDecl, *diag.Diagnostic) {
	var decls []*ast.VarDecl
	for p.curTok.Type != token.TokenEndVar {
		vd, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, vd)
	}
	p.nextToken() // END_VAR
	return decls, nil
}

// vardecl = ID ("AT" ADDR)? ":" type ";" ;
func (p *Parser) parseVarDecl() (*ast.VarDecl, *diag.Diagnostic) {
	nameTok, err := p.expect(token.TokenIdent, "variable name")
	if err != nil {
		return nil, err
	}
	vd := &ast.VarDecl{
		Token: nameTok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
	}

	if p.curTok.Type == token.TokenAt {
		p.nextToken()
		addrTok, err := p.expect(token.TokenAddress, "hardware address")
		if err != nil {
			return nil, err
		}
		a, perr := addr.Parse(addrTok.Literal)
		if perr != nil {
			// the lexer validates address literals, so this is unreachable
			// for lexer-produced streams
			return nil, p.errorf(addrTok, "%s", perr.Error())
		}
		vd.AddrToken = addrTok
		vd.Addr = a
	}

	if _, err = p.expect(token.TokenColon, "':'"); err != nil {
		return nil, err
	}
	vd.TypeNode, err = p.parseTypeNode()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return vd, nil
}

// type = "BOOL" | "INT" | "REAL" | ID ;
func (p *Parser) parseTypeNode() (*ast.TypeNode, *diag.Diagnostic) {
	if !p.curTok.IsTypeName() {
		return nil, p.errorf(p.curTok, "expected type name, found %s", describe(p.curTok))
	}
	tn := &ast.TypeNode{Token: p.curTok, Name: p.curTok.Literal}
	p.nextToken()
	return tn, nil
}

// --- Statements ---

// parseBlock parses stmt* until one of the closing keywords of the enclosing
// production (which is not consumed).
func (p *Parser) parseBlock(stop ...token.TokenType) (*ast.BlockStatement, *diag.Diagnostic) {
	block := &ast.BlockStatement{Token: p.curTok}
	for {
		if p.curTok.Type == token.TokenEOF {
			return nil, p.errorf(p.curTok, "unexpected end of input inside block")
		}
		for _, s := range stop {
			if p.curTok.Type == s {
				return block, nil
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

// stmt = ifstmt | assignment ;
func (p *Parser) parseStatement() (ast.Statement, *diag.Diagnostic) {
	switch p.curTok.Type {
	case token.TokenIf:
		return p.parseIfStatement()
	case token.TokenIdent:
		return p.parseAssignment()
	default:
		return nil, p.errorf(p.curTok, "expected statement, found %s", describe(p.curTok))
	}
}

// ifstmt = "IF" expr "THEN" stmt* ("ELSE" stmt*)? "END_IF" ;
func (p *Parser) parseIfStatement() (*ast.IfStatement, *diag.Diagnostic) {
	ifTok := p.curTok
	p.nextToken()

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenThen, "THEN"); err != nil {
		return nil, err
	}

	then, err := p.parseBlock(token.TokenElse, token.TokenEndIf)
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Token: ifTok, Condition: cond, Then: then}

	if p.curTok.Type == token.TokenElse {
		p.nextToken()
		stmt.Else, err = p.parseBlock(token.TokenEndIf)
		if err != nil {
			return nil, err
		}
	}
	if _, err = p.expect(token.TokenEndIf, "END_IF"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// assignment = lvalue ":=" expr ";" ;
func (p *Parser) parseAssignment() (*ast.AssignStatement, *diag.Diagnostic) {
	target, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	assignTok, err := p.expect(token.TokenAssign, "':='")
	if err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(token.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.AssignStatement{Token: assignTok, Target: target, Value: value}, nil
}

// lvalue = ID ("." ID)* ;
func (p *Parser) parseLValue() (ast.Expression, *diag.Diagnostic) {
	nameTok, err := p.expect(token.TokenIdent, "identifier")
	if err != nil {
		return nil, err
	}
	var expr ast.Expression = &ast.Identifier{Token: nameTok, Value: nameTok.Literal}
	return p.parseMemberChain(expr)
}

func (p *Parser) parseMemberChain(expr ast.Expression) (ast.Expression, *diag.Diagnostic) {
	for p.curTok.Type == token.TokenDot {
		dotTok := p.curTok
		p.nextToken()
		fieldTok, err := p.expect(token.TokenIdent, "field name")
		if err != nil {
			return nil, err
		}
		expr = &ast.MemberExpression{
			Token:  dotTok,
			Object: expr,
			Field:  &ast.Identifier{Token: fieldTok, Value: fieldTok.Literal},
		}
	}
	return expr, nil
}

// --- Expressions ---
//
// Precedence, lowest to highest: OR, AND, comparisons, additive,
// multiplicative, unary, primary. All binary levels are left-associative;
// the AST shape fixes precedence so later stages never re-derive it.

func (p *Parser) parseExpression() (ast.Expression, *diag.Diagnostic) {
	return p.parseOr()
}

// or = and {"OR" and} ;
func (p *Parser) parseOr() (ast.Expression, *diag.Diagnostic) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curTok.Type == token.TokenOr {
		opTok := p.curTok
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: "OR", Left: left, Right: right}
	}
	return left, nil
}

// and = cmp {"AND" cmp} ;
func (p *Parser) parseAnd() (ast.Expression, *diag.Diagnostic) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.curTok.Type == token.TokenAnd {
		opTok := p.curTok
		p.nextToken()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: "AND", Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[token.TokenType]string{
	token.TokenEq:  "=",
	token.TokenNeq: "<>",
	token.TokenLt:  "<",
	token.TokenGt:  ">",
	token.TokenLe:  "<=",
	token.TokenGe:  ">=",
}

// cmp = add {("="|"<>"|"<"|">"|"<="|">=") add} ;
func (p *Parser) parseComparison() (ast.Expression, *diag.Diagnostic) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.curTok.Type]
		if !ok {
			return left, nil
		}
		opTok := p.curTok
		p.nextToken()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: op, Left: left, Right: right}
	}
}

// add = mul {("+"|"-") mul} ;
func (p *Parser) parseAdditive() (ast.Expression, *diag.Diagnostic) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.curTok.Type == token.TokenPlus || p.curTok.Type == token.TokenMinus {
		opTok := p.curTok
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: opTok.Literal, Left: left, Right: right}
	}
	return left, nil
}

// mul = unary {("*"|"/") unary} ;
func (p *Parser) parseMultiplicative() (ast.Expression, *diag.Diagnostic) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curTok.Type == token.TokenAsterisk || p.curTok.Type == token.TokenSlash {
		opTok := p.curTok
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: opTok.Literal, Left: left, Right: right}
	}
	return left, nil
}

// unary = ["NOT"|"-"] primary ;
func (p *Parser) parseUnary() (ast.Expression, *diag.Diagnostic) {
	switch p.curTok.Type {
	case token.TokenNot, token.TokenMinus:
		opTok := p.curTok
		op := opTok.Literal
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Token: opTok, Operator: op, Operand: operand}, nil
	default:
		return p.parsePrimary()
	}
}

// primary = "TRUE" | "FALSE" | REAL | INT | ID "(" args ")" | lvalue | "(" expr ")" ;
func (p *Parser) parsePrimary() (ast.Expression, *diag.Diagnostic) {
	switch p.curTok.Type {
	case token.TokenTrue, token.TokenFalse:
		tok := p.curTok
		p.nextToken()
		return &ast.BooleanLiteral{Token: tok, Value: tok.Type == token.TokenTrue}, nil

	case token.TokenIntLit:
		tok := p.curTok
		p.nextToken()
		// INT is 32 bits in the generated C, so the literal must fit there
		v, err := strconv.ParseInt(tok.Literal, 10, 32)
		if err != nil {
			return nil, p.errorf(tok, "integer literal %s out of range", tok.Literal)
		}
		return &ast.IntegerLiteral{Token: tok, Value: v}, nil

	case token.TokenRealLit:
		tok := p.curTok
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf(tok, "real literal %s out of range", tok.Literal)
		}
		return &ast.RealLiteral{Token: tok, Value: v}, nil

	case token.TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(token.TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case token.TokenIdent:
		nameTok := p.curTok
		p.nextToken()
		ident := &ast.Identifier{Token: nameTok, Value: nameTok.Literal}
		if p.curTok.Type == token.TokenLParen {
			return p.parseCallArguments(ident)
		}
		return p.parseMemberChain(ident)

	default:
		return nil, p.errorf(p.curTok, "expected expression, found %s", describe(p.curTok))
	}
}

func (p *Parser) parseCallArguments(callee *ast.Identifier) (ast.Expression, *diag.Diagnostic) {
	call := &ast.CallExpression{Token: callee.Token, Function: callee}
	p.nextToken() // (

	if p.curTok.Type == token.TokenRParen {
		p.nextToken()
		return call, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
		if p.curTok.Type != token.TokenComma {
			break
		}
		p.nextToken()
	}
	if _, err := p.expect(token.TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return call, nil
}
