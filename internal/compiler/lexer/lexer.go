package lexer

import (
	"fmt"

	"github.com/plctools/st2cc/internal/compiler/addr"
	"github.com/plctools/st2cc/internal/compiler/diag"
	"github.com/plctools/st2cc/internal/compiler/token"
)

// Lexer turns ST source text into a token stream. Every character is
// consumed into exactly one token or skipped as whitespace/comment; the
// stream always ends with a single EOF sentinel.
type Lexer struct {
	input        string
	position     int  // current char index
	readPosition int  // next char index
	ch           byte // current char

	line   int // 1-indexed
	column int // 1-indexed

	// set when a block comment reaches EOF unterminated
	badComment       bool
	badCommentLine   int
	badCommentColumn int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// Tokenize consumes the whole input. On an unrecognized character or
// malformed literal it stops and returns a LexError diagnostic; the token
// stream built so far is discarded since no valid parse can continue.
func Tokenize(input string) ([]token.Token, *diag.Diagnostic) {
	l := NewLexer(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.TokenIllegal {
			d := diag.New(diag.Lex, tok.Line, tok.Column, "unexpected %s", tok.Literal)
			return nil, &d
		}
		toks = append(toks, tok)
		if tok.Type == token.TokenEOF {
			return toks, nil
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}

	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else if l.ch != 0 {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	startLine := l.line
	startCol := l.column

	if l.badComment {
		return l.newToken(token.TokenIllegal, "unterminated block comment", l.badCommentLine, l.badCommentColumn)
	}

	switch l.ch {
	case 0:
		return token.Token{Type: token.TokenEOF, Literal: "", Line: startLine, Column: startCol}
	case '(':
		l.readChar()
		return l.newToken(token.TokenLParen, "(", startLine, startCol)
	case ')':
		l.readChar()
		return l.newToken(token.TokenRParen, ")", startLine, startCol)
	case ';':
		l.readChar()
		return l.newToken(token.TokenSemicolon, ";", startLine, startCol)
	case ',':
		l.readChar()
		return l.newToken(token.TokenComma, ",", startLine, startCol)
	case '.':
		l.readChar()
		return l.newToken(token.TokenDot, ".", startLine, startCol)
	case '+':
		l.readChar()
		return l.newToken(token.TokenPlus, "+", startLine, startCol)
	case '-':
		l.readChar()
		return l.newToken(token.TokenMinus, "-", startLine, startCol)
	case '*':
		l.readChar()
		return l.newToken(token.TokenAsterisk, "*", startLine, startCol)
	case '/':
		// '//' comments are consumed by skipWhitespaceAndComments
		l.readChar()
		return l.newToken(token.TokenSlash, "/", startLine, startCol)
	case '=':
		l.readChar()
		return l.newToken(token.TokenEq, "=", startLine, startCol)
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.TokenAssign, ":=", startLine, startCol)
		}
		l.readChar()
		return l.newToken(token.TokenColon, ":", startLine, startCol)
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			l.readChar()
			return l.newToken(token.TokenLe, "<=", startLine, startCol)
		case '>':
			l.readChar()
			l.readChar()
			return l.newToken(token.TokenNeq, "<>", startLine, startCol)
		}
		l.readChar()
		return l.newToken(token.TokenLt, "<", startLine, startCol)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.TokenGe, ">=", startLine, startCol)
		}
		l.readChar()
		return l.newToken(token.TokenGt, ">", startLine, startCol)
	case '%':
		return l.readAddress(startLine, startCol)
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return l.newToken(lookupIdent(ident), ident, startLine, startCol)
		}
		if isDigit(l.ch) {
			return l.readNumber(startLine, startCol)
		}
		lit := string(l.ch)
		l.readChar()
		return l.newToken(token.TokenIllegal, fmt.Sprintf("character %q", lit), startLine, startCol)
	}
}

func (l *Lexer) newToken(t token.TokenType, literal string, line, col int) token.Token {
	return token.Token{Type: t, Literal: literal, Line: line, Column: col}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '(' && l.peekChar() == '*':
			openLine, openCol := l.line, l.column
			l.readChar() // (
			l.readChar() // *
			for {
				if l.ch == 0 {
					l.badComment = true
					l.badCommentLine = openLine
					l.badCommentColumn = openCol
					return
				}
				if l.ch == '*' && l.peekChar() == ')' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans an INT or REAL literal. The lexical form alone decides
// the kind: a decimal point or exponent makes it REAL.
func (l *Lexer) readNumber(startLine, startCol int) token.Token {
	start := l.position
	isReal := false

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isReal = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isReal = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return l.newToken(token.TokenIllegal, "malformed real literal: missing exponent digits", startLine, startCol)
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	lit := l.input[start:l.position]
	if isReal {
		return l.newToken(token.TokenRealLit, lit, startLine, startCol)
	}
	return l.newToken(token.TokenIntLit, lit, startLine, startCol)
}

// readAddress scans a hardware address literal:
//
//	"%" ("I"|"Q") ("X"|"B"|"W"|"D") INT ["." INT]
func (l *Lexer) readAddress(startLine, startCol int) token.Token {
	start := l.position
	l.readChar() // %
	if l.ch != 'I' && l.ch != 'Q' {
		return l.newToken(token.TokenIllegal, "malformed address literal: expected I or Q after '%'", startLine, startCol)
	}
	l.readChar()
	switch l.ch {
	case 'X', 'B', 'W', 'D':
		l.readChar()
	default:
		return l.newToken(token.TokenIllegal, "malformed address literal: expected granularity X, B, W or D", startLine, startCol)
	}
	if !isDigit(l.ch) {
		return l.newToken(token.TokenIllegal, "malformed address literal: missing position", startLine, startCol)
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lit := l.input[start:l.position]
	if _, err := addr.Parse(lit); err != nil {
		return l.newToken(token.TokenIllegal, err.Error(), startLine, startCol)
	}
	return l.newToken(token.TokenAddress, lit, startLine, startCol)
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// keywords is the fixed, case-sensitive keyword set. An identifier matching
// none of these lexes as TokenIdent.
var keywords = map[string]token.TokenType{
	"PROGRAM":      token.TokenProgram,
	"END_PROGRAM":  token.TokenEndProgram,
	"VAR":          token.TokenVar,
	"VAR_INPUT":    token.TokenVarInput,
	"END_VAR":      token.TokenEndVar,
	"TYPE":         token.TokenTypeKeyword,
	"END_TYPE":     token.TokenEndType,
	"STRUCT":       token.TokenStruct,
	"END_STRUCT":   token.TokenEndStruct,
	"IF":           token.TokenIf,
	"THEN":         token.TokenThen,
	"ELSE":         token.TokenElse,
	"END_IF":       token.TokenEndIf,
	"FUNCTION":     token.TokenFunction,
	"END_FUNCTION": token.TokenEndFunction,
	"AT":           token.TokenAt,
	"AND":          token.TokenAnd,
	"OR":           token.TokenOr,
	"NOT":          token.TokenNot,
	"TRUE":         token.TokenTrue,
	"FALSE":        token.TokenFalse,
	"BOOL":         token.TokenTypeLiteral,
	"INT":          token.TokenTypeLiteral,
	"REAL":         token.TokenTypeLiteral,
}

func lookupIdent(ident string) token.TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return token.TokenIdent
}
