// Package lexer tokenizes model source text. Line comments introduced by
// '#' run to end of line and are dropped; they are legal anywhere,
// including inside statement sequences.
package lexer

import "unicode"

// Lexer scans model source text rune by rune.
type Lexer struct {
	input  []rune
	pos    int  // index of the current rune
	ch     rune // current rune (0 = EOF)
	line   int  // 1-based line of the current rune
	column int  // 1-based column of the current rune
}

// New returns a lexer positioned at the start of input.
func New(input string) *Lexer {
	l := &Lexer{
		input:  []rune(input),
		pos:    -1,
		line:   1,
		column: 0,
	}
	l.read()
	return l
}

// read advances to the next rune, maintaining line/column bookkeeping.
func (l *Lexer) read() {
	if l.pos >= 0 && l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line++
		l.column = 0
	}
	l.pos++
	l.column++
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

// Next returns the next token. Whitespace and comments are skipped; at end
// of input it returns EOF tokens forever.
func (l *Lexer) Next() Token {
	l.skipBlanks()

	tok := Token{Line: l.line, Column: l.column}

	switch {
	case l.ch == 0:
		tok.Type = EOF
		return tok
	case isIdentStart(l.ch):
		tok.Type = IDENT
		tok.Literal = l.readIdent()
		return tok
	case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peek())):
		tok.Type = NUMBER
		tok.Literal = l.readNumber()
		return tok
	}

	single := map[rune]Type{
		'=': ASSIGN,
		'+': PLUS,
		'-': MINUS,
		'*': STAR,
		'/': SLASH,
		'^': CARET,
		'(': LPAREN,
		')': RPAREN,
		'{': LBRACE,
		'}': RBRACE,
		'[': LBRACKET,
		']': RBRACKET,
		';': SEMICOLON,
	}
	if t, ok := single[l.ch]; ok {
		tok.Type = t
		tok.Literal = string(l.ch)
		l.read()
		return tok
	}

	tok.Type = ILLEGAL
	tok.Literal = string(l.ch)
	l.read()
	return tok
}

// skipBlanks consumes whitespace and '#' line comments.
func (l *Lexer) skipBlanks() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.read()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.read()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber scans a numeric literal: an integer or decimal mantissa with
// an optional e/E exponent.
func (l *Lexer) readNumber() string {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.read()
	}
	if l.ch == '.' {
		l.read()
		for unicode.IsDigit(l.ch) {
			l.read()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peek()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			l.read() // e
			if l.ch == '+' || l.ch == '-' {
				l.read()
			}
			for unicode.IsDigit(l.ch) {
				l.read()
			}
		}
	}
	return string(l.input[start:l.pos])
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
