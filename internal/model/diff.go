package model

import "fmt"

// TargetKind selects what a partial derivative is taken with respect to.
type TargetKind int

const (
	// TargetVar differentiates with respect to one (variable, offset) slot.
	TargetVar TargetKind = iota
	// TargetShock differentiates with respect to one shock innovation.
	TargetShock
)

// Target identifies the differentiation slot.
type Target struct {
	Kind   TargetKind
	Index  int
	Offset int // only meaningful for TargetVar
}

func (t Target) matches(e Expr) bool {
	switch n := e.(type) {
	case *Var:
		return t.Kind == TargetVar && n.Index == t.Index && n.Offset == t.Offset
	case *Shock:
		return t.Kind == TargetShock && n.Index == t.Index
	default:
		return false
	}
}

// Diff returns the symbolic partial derivative of e with respect to the
// target slot. Expectation operators must have been rewritten away before
// differentiation; encountering one is an error.
func Diff(e Expr, t Target) (Expr, error) {
	switch n := e.(type) {
	case *Num, *Param, *SteadyRef:
		return &Num{Value: 0}, nil
	case *Var, *Shock:
		if t.matches(e) {
			return &Num{Value: 1}, nil
		}
		return &Num{Value: 0}, nil
	case *Expect:
		return nil, fmt.Errorf("cannot differentiate through an expectation operator; rewrite it first")
	case *Unary:
		dx, err := Diff(n.X, t)
		if err != nil {
			return nil, err
		}
		return neg(dx), nil
	case *Binary:
		return diffBinary(n, t)
	default:
		return nil, fmt.Errorf("unknown expression node %T", e)
	}
}

func diffBinary(b *Binary, t Target) (Expr, error) {
	dx, err := Diff(b.X, t)
	if err != nil {
		return nil, err
	}
	dy, err := Diff(b.Y, t)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpAdd:
		return add(dx, dy), nil
	case OpSub:
		return sub(dx, dy), nil
	case OpMul:
		// product rule: x'y + xy'
		return add(mul(dx, b.Y), mul(b.X, dy)), nil
	case OpDiv:
		// quotient rule: (x'y - xy') / y^2
		return div(sub(mul(dx, b.Y), mul(b.X, dy)), pow(b.Y, &Num{Value: 2})), nil
	case OpPow:
		// Power rule v * u^(v-1) * u'. The general rule d(u^v) needs a
		// logarithm, which the equation language does not define, so an
		// exponent depending on the target is rejected.
		if !isZero(dy) {
			return nil, fmt.Errorf("cannot differentiate %s: exponent depends on the differentiation variable", b)
		}
		return mul(mul(b.Y, pow(b.X, sub(b.Y, &Num{Value: 1}))), dx), nil
	default:
		return nil, fmt.Errorf("unknown operator %v", b.Op)
	}
}

// The constructors below fold the trivial identities (x+0, x*1, x*0, x^1)
// so derivative trees stay small enough to read in diagnostics.

func isZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.Value == 0
}

func isOne(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.Value == 1
}

func add(x, y Expr) Expr {
	if isZero(x) {
		return y
	}
	if isZero(y) {
		return x
	}
	return &Binary{Op: OpAdd, X: x, Y: y}
}

func sub(x, y Expr) Expr {
	if isZero(y) {
		return x
	}
	if isZero(x) {
		return neg(y)
	}
	if nx, ok := x.(*Num); ok {
		if ny, ok := y.(*Num); ok {
			return &Num{Value: nx.Value - ny.Value}
		}
	}
	return &Binary{Op: OpSub, X: x, Y: y}
}

func mul(x, y Expr) Expr {
	if isZero(x) || isZero(y) {
		return &Num{Value: 0}
	}
	if isOne(x) {
		return y
	}
	if isOne(y) {
		return x
	}
	return &Binary{Op: OpMul, X: x, Y: y}
}

func div(x, y Expr) Expr {
	if isZero(x) {
		return &Num{Value: 0}
	}
	if isOne(y) {
		return x
	}
	return &Binary{Op: OpDiv, X: x, Y: y}
}

func pow(x, y Expr) Expr {
	if isOne(y) {
		return x
	}
	if isZero(y) {
		return &Num{Value: 1}
	}
	return &Binary{Op: OpPow, X: x, Y: y}
}

func neg(x Expr) Expr {
	if isZero(x) {
		return x
	}
	if n, ok := x.(*Num); ok {
		return &Num{Value: -n.Value}
	}
	return &Unary{Op: OpNeg, X: x}
}
