package lexer

import "fmt"

// Type classifies a lexical token.
type Type int

const (
	EOF Type = iota
	ILLEGAL

	IDENT  // variable, parameter, shock and block names
	NUMBER // numeric literal, e.g. 0.99 or 1e-10

	ASSIGN    // =
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	CARET     // ^
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	SEMICOLON // ;
)

var typeNames = map[Type]string{
	EOF:       "end of input",
	ILLEGAL:   "illegal token",
	IDENT:     "identifier",
	NUMBER:    "number",
	ASSIGN:    "'='",
	PLUS:      "'+'",
	MINUS:     "'-'",
	STAR:      "'*'",
	SLASH:     "'/'",
	CARET:     "'^'",
	LPAREN:    "'('",
	RPAREN:    "')'",
	LBRACE:    "'{'",
	RBRACE:    "'}'",
	LBRACKET:  "'['",
	RBRACKET:  "']'",
	SEMICOLON: "';'",
}

// String returns a human-readable name for the token type, used in
// parse-error messages.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a single lexical token with its 1-based source position.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
}
