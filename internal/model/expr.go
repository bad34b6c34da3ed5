package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Op identifies an arithmetic operator in the expression tree.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpNeg
)

// String returns the surface syntax for the operator.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpNeg:
		return "-"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Expr is a node in the algebraic expression tree.
type Expr interface {
	String() string
	isExpr()
}

// Num is a numeric literal.
type Num struct {
	Value float64
}

// Param references a calibrated parameter by interned index.
type Param struct {
	Name  string
	Index int
}

// Var references a variable at a relative time offset: -1 lag, 0 current,
// +1 lead.
type Var struct {
	Name   string
	Index  int
	Offset int
}

// Shock references a declared exogenous innovation.
type Shock struct {
	Name  string
	Index int
}

// SteadyRef references the steady-state value of a variable. It only occurs
// in calibration expressions, via the `name_ss` convention.
type SteadyRef struct {
	Name  string // the surface name, e.g. "K_ss"
	Index int    // the interned index of the underlying variable
}

// Expect wraps a sub-expression in the expectation operator E[][...]. The
// inner expression must reference only lead-dated variables.
type Expect struct {
	Inner Expr
}

// Unary is a prefix operation; the only prefix operator is negation.
type Unary struct {
	Op Op
	X  Expr
}

// Binary is an infix operation over two operands.
type Binary struct {
	Op   Op
	X, Y Expr
}

func (*Num) isExpr()       {}
func (*Param) isExpr()     {}
func (*Var) isExpr()       {}
func (*Shock) isExpr()     {}
func (*SteadyRef) isExpr() {}
func (*Expect) isExpr()    {}
func (*Unary) isExpr()     {}
func (*Binary) isExpr()    {}

func (n *Num) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (p *Param) String() string { return p.Name }

func (v *Var) String() string {
	if v.Offset == 0 {
		return v.Name + "[]"
	}
	return fmt.Sprintf("%s[%d]", v.Name, v.Offset)
}

func (s *Shock) String() string { return s.Name + "[]" }

func (s *SteadyRef) String() string { return s.Name }

func (e *Expect) String() string {
	return "E[][" + e.Inner.String() + "]"
}

func (u *Unary) String() string {
	return "(-" + u.X.String() + ")"
}

func (b *Binary) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(b.X.String())
	sb.WriteByte(' ')
	sb.WriteString(b.Op.String())
	sb.WriteByte(' ')
	sb.WriteString(b.Y.String())
	sb.WriteByte(')')
	return sb.String()
}

// Walk traverses the expression tree in preorder, calling fn for every node,
// including the inner expression of expectation operators.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *Expect:
		Walk(n.Inner, fn)
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	}
}
