package parser

import (
	"strconv"

	"github.com/macrolab/dsolve/internal/lexer"
	"github.com/macrolab/dsolve/internal/model"
)

// Operator precedence, lowest first. '^' binds tightest and associates to
// the right; unary minus sits between '*' and '^' so that -x^2 reads as
// -(x^2) while -a*b reads as (-a)*b.
const (
	precLowest = iota
	precSum
	precProduct
	precPrefix
	precPower
)

var infixPrec = map[lexer.Type]int{
	lexer.PLUS:  precSum,
	lexer.MINUS: precSum,
	lexer.STAR:  precProduct,
	lexer.SLASH: precProduct,
	lexer.CARET: precPower,
}

var infixOp = map[lexer.Type]model.Op{
	lexer.PLUS:  model.OpAdd,
	lexer.MINUS: model.OpSub,
	lexer.STAR:  model.OpMul,
	lexer.SLASH: model.OpDiv,
	lexer.CARET: model.OpPow,
}

// parseExpr is a Pratt-style expression parser over the arithmetic
// operators of the model language.
func (p *parser) parseExpr(prec int) model.Expr {
	left := p.parsePrefix()

	for {
		opPrec, ok := infixPrec[p.cur.Type]
		if !ok || opPrec <= prec {
			return left
		}
		op := infixOp[p.cur.Type]
		p.next()

		rightPrec := opPrec
		if op == model.OpPow {
			rightPrec = opPrec - 1 // right-associative
		}
		right := p.parseExpr(rightPrec)
		left = &model.Binary{Op: op, X: left, Y: right}
	}
}

func (p *parser) parsePrefix() model.Expr {
	switch p.cur.Type {
	case lexer.NUMBER:
		tok := p.cur
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf(tok, "malformed number %q", tok.Literal)
		}
		p.next()
		return &model.Num{Value: v}

	case lexer.IDENT:
		return p.parseReference()

	case lexer.MINUS:
		p.next()
		return &model.Unary{Op: model.OpNeg, X: p.parseExpr(precPrefix)}

	case lexer.LPAREN:
		p.next()
		e := p.parseExpr(precLowest)
		p.expect(lexer.RPAREN)
		return e

	default:
		p.unexpected("an expression")
		return nil
	}
}

// parseReference parses an identifier head: a bare parameter name, a
// time-indexed reference `name[k]`, or the expectation operator
// `E[][expr]`.
func (p *parser) parseReference() model.Expr {
	name := p.expect(lexer.IDENT)

	if p.cur.Type != lexer.LBRACKET {
		// Bare identifier: a parameter or, in calibration, a `_ss` name.
		// Binding decides which later.
		return &model.Param{Name: name.Literal, Index: -1}
	}
	p.next() // consume '['

	// `E[][...]` is the expectation operator; `E[]` alone is an ordinary
	// variable named E.
	if name.Literal == "E" && p.cur.Type == lexer.RBRACKET && p.peek.Type == lexer.LBRACKET {
		p.next() // consume ']'
		p.next() // consume '['
		inner := p.parseExpr(precLowest)
		p.expect(lexer.RBRACKET)
		return &model.Expect{Inner: inner}
	}

	offset := p.parseOffset(name)
	p.expect(lexer.RBRACKET)
	return &model.Var{Name: name.Literal, Index: -1, Offset: offset}
}

// parseOffset parses the optional signed integer inside a time-index
// bracket. An empty bracket denotes the current period.
func (p *parser) parseOffset(ref lexer.Token) int {
	if p.cur.Type == lexer.RBRACKET {
		return 0
	}

	sign := 1
	switch p.cur.Type {
	case lexer.MINUS:
		sign = -1
		p.next()
	case lexer.PLUS:
		p.next()
	}

	tok := p.expect(lexer.NUMBER)
	k, err := strconv.Atoi(tok.Literal)
	if err != nil {
		p.errorf(tok, "time offset must be an integer, found %q", tok.Literal)
	}
	k *= sign
	if k < -1 || k > 1 {
		p.errorf(tok, "time offset %d for %q out of range: only lags and leads of one period are supported", k, ref.Literal)
	}
	return k
}
