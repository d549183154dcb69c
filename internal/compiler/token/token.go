package token

type TokenType string

const (
	// Punctuation
	TokenLParen    TokenType = "LPAREN"    // (
	TokenRParen    TokenType = "RPAREN"    // )
	TokenColon     TokenType = "COLON"     // :
	TokenSemicolon TokenType = "SEMICOLON" // ;
	TokenComma     TokenType = "COMMA"     // ,
	TokenDot       TokenType = "DOT"       // .

	// Operators
	TokenAssign   TokenType = "ASSIGN"   // :=
	TokenPlus     TokenType = "PLUS"     // +
	TokenMinus    TokenType = "MINUS"    // -
	TokenAsterisk TokenType = "ASTERISK" // *
	TokenSlash    TokenType = "SLASH"    // /
	TokenEq       TokenType = "EQ"       // =
	TokenNeq      TokenType = "NEQ"      // <>
	TokenLt       TokenType = "LT"       // <
	TokenGt       TokenType = "GT"       // >
	TokenLe       TokenType = "LE"       // <=
	TokenGe       TokenType = "GE"       // >=

	// Keywords
	TokenProgram     TokenType = "PROGRAM"
	TokenEndProgram  TokenType = "END_PROGRAM"
	TokenVar         TokenType = "VAR"
	TokenVarInput    TokenType = "VAR_INPUT"
	TokenEndVar      TokenType = "END_VAR"
	TokenTypeKeyword TokenType = "TYPE"
	TokenEndType     TokenType = "END_TYPE"
	TokenStruct      TokenType = "STRUCT"
	TokenEndStruct   TokenType = "END_STRUCT"
	TokenIf          TokenType = "IF"
	TokenThen        TokenType = "THEN"
	TokenElse        TokenType = "ELSE"
	TokenEndIf       TokenType = "END_IF"
	TokenFunction    TokenType = "FUNCTION"
	TokenEndFunction TokenType = "END_FUNCTION"
	TokenAt          TokenType = "AT"
	TokenAnd         TokenType = "AND"
	TokenOr          TokenType = "OR"
	TokenNot         TokenType = "NOT"
	TokenTrue        TokenType = "TRUE"
	TokenFalse       TokenType = "FALSE"

	// Built-in type names (BOOL, INT, REAL); the literal says which one
	TokenTypeLiteral TokenType = "TYPE_LITERAL"

	// Literals & identifiers
	TokenIntLit  TokenType = "INT_LIT"  // 42
	TokenRealLit TokenType = "REAL_LIT" // 3.14, 1e-3
	TokenAddress TokenType = "ADDRESS"  // %IX0.1, %QW0
	TokenIdent   TokenType = "IDENT"

	// Special
	TokenEOF     TokenType = "EOF"
	TokenIllegal TokenType = "ILLEGAL"
)

// Token is an immutable value record produced by the lexer. Line and Column
// are the 1-indexed position of the token's first character.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// IsTypeName reports whether the token can open a type production
// (a built-in type name or a struct type identifier).
func (t Token) IsTypeName() bool {
	return t.Type == TokenTypeLiteral || t.Type == TokenIdent
}
