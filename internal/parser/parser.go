// Package parser turns model source text into a model.Model. Parsing is a
// pure function of the input text; it either produces a fully bound model
// with interned symbol tables or fails with an *Error carrying the source
// position and a human-readable cause.
package parser

import (
	"fmt"

	"github.com/macrolab/dsolve/internal/lexer"
	"github.com/macrolab/dsolve/internal/model"
)

// Error is a parse failure with its 1-based source position.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

// bail is the panic payload used to unwind to Parse on the first error,
// in the manner of go/parser.
type bail struct{ err *Error }

// parser holds the token window. cur is the token under examination and
// peek the single token of lookahead.
type parser struct {
	lx   *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
}

// Parse consumes source text and produces a Model.
func Parse(src string) (m *model.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bail)
			if !ok {
				panic(r)
			}
			m, err = nil, b.err
		}
	}()

	p := &parser{lx: lexer.New(src)}
	p.next()
	p.next()

	raw := p.parseBlock()
	p.expect(lexer.EOF)
	return bind(raw)
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lx.Next()
}

func (p *parser) errorf(tok lexer.Token, format string, args ...any) {
	panic(bail{&Error{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)}})
}

// expect consumes the current token if it has the wanted type and fails
// otherwise.
func (p *parser) expect(t lexer.Type) lexer.Token {
	if p.cur.Type != t {
		p.unexpected(t.String())
	}
	tok := p.cur
	p.next()
	return tok
}

func (p *parser) unexpected(wanted string) {
	got := p.cur.Type.String()
	if p.cur.Type == lexer.IDENT || p.cur.Type == lexer.NUMBER || p.cur.Type == lexer.ILLEGAL {
		got = fmt.Sprintf("%s %q", got, p.cur.Literal)
	}
	p.errorf(p.cur, "expected %s, found %s", wanted, got)
}

// expectKeyword consumes an identifier token with the exact literal kw.
func (p *parser) expectKeyword(kw string) {
	if p.cur.Type != lexer.IDENT || p.cur.Literal != kw {
		p.unexpected(fmt.Sprintf("%q", kw))
	}
	p.next()
}

// rawModel is the pre-binding parse result: expression trees still carry
// names only, and bracketed references are provisionally variables.
type rawModel struct {
	name        string
	equations   []rawEquation
	shocks      []rawShock
	calibration []rawAssign
}

type rawEquation struct {
	lhs, rhs model.Expr
	line     int
}

type rawShock struct {
	name string
	line int
}

type rawAssign struct {
	name string
	rhs  model.Expr
	line int
}

// parseBlock parses the outer named block with its three sections:
//
//	block Name { identities {...}; shocks {...}; calibration {...}; };
func (p *parser) parseBlock() *rawModel {
	p.expectKeyword("block")
	name := p.expect(lexer.IDENT)
	p.expect(lexer.LBRACE)

	raw := &rawModel{name: name.Literal}
	seen := map[string]bool{}

	for p.cur.Type != lexer.RBRACE {
		section := p.expect(lexer.IDENT)
		if seen[section.Literal] {
			p.errorf(section, "duplicate section %q", section.Literal)
		}
		seen[section.Literal] = true

		p.expect(lexer.LBRACE)
		switch section.Literal {
		case "identities":
			p.parseIdentities(raw)
		case "shocks":
			p.parseShocks(raw)
		case "calibration":
			p.parseCalibration(raw)
		default:
			p.errorf(section, "unknown section %q (want identities, shocks or calibration)", section.Literal)
		}
		p.expect(lexer.RBRACE)
		p.expect(lexer.SEMICOLON)
	}

	p.expect(lexer.RBRACE)
	p.expect(lexer.SEMICOLON)
	return raw
}

// parseIdentities parses `lhs = rhs ;` statements until the closing brace.
func (p *parser) parseIdentities(raw *rawModel) {
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		line := p.cur.Line
		lhs := p.parseExpr(precLowest)
		p.expect(lexer.ASSIGN)
		rhs := p.parseExpr(precLowest)
		p.expect(lexer.SEMICOLON)
		raw.equations = append(raw.equations, rawEquation{lhs: lhs, rhs: rhs, line: line})
	}
}

// parseShocks parses `name[] ;` declarations until the closing brace.
func (p *parser) parseShocks(raw *rawModel) {
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		name := p.expect(lexer.IDENT)
		p.expect(lexer.LBRACKET)
		p.expect(lexer.RBRACKET)
		p.expect(lexer.SEMICOLON)
		raw.shocks = append(raw.shocks, rawShock{name: name.Literal, line: name.Line})
	}
}

// parseCalibration parses `name = expr ;` statements until the closing
// brace.
func (p *parser) parseCalibration(raw *rawModel) {
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		name := p.expect(lexer.IDENT)
		p.expect(lexer.ASSIGN)
		rhs := p.parseExpr(precLowest)
		p.expect(lexer.SEMICOLON)
		raw.calibration = append(raw.calibration, rawAssign{name: name.Literal, rhs: rhs, line: name.Line})
	}
}
