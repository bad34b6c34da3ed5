package model

import (
	"fmt"
	"math"
)

// Env supplies the numeric values a single evaluation runs against. Each
// lookup reports whether the requested quantity is resolved; an unresolved
// lookup aborts the evaluation with an UnresolvedError.
type Env interface {
	Param(index int) (float64, bool)
	Steady(varIndex int) (float64, bool)
	Variable(index, offset int) (float64, bool)
	Shock(index int) (float64, bool)
}

// UnresolvedError reports a reference to a quantity the environment has not
// resolved yet.
type UnresolvedError struct {
	Name   string
	Steady bool // true when the reference is a `name_ss` steady-state name
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference %q", e.Name)
}

// DomainError reports an arithmetic operation that leaves the real domain:
// a non-integer power of a non-positive base, a division by zero, or a
// non-finite intermediate result.
type DomainError struct {
	Op     string
	Detail string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error in %s: %s", e.Op, e.Detail)
}

// Eval evaluates the expression against the environment. The expectation
// operator evaluates to its inner expression, which is exact at the
// deterministic steady state; callers that need the stochastic semantics
// must rewrite expectations away first (the linearizer does).
func Eval(e Expr, env Env) (float64, error) {
	switch n := e.(type) {
	case *Num:
		return n.Value, nil
	case *Param:
		v, ok := env.Param(n.Index)
		if !ok {
			return 0, &UnresolvedError{Name: n.Name}
		}
		return v, nil
	case *SteadyRef:
		v, ok := env.Steady(n.Index)
		if !ok {
			return 0, &UnresolvedError{Name: n.Name, Steady: true}
		}
		return v, nil
	case *Var:
		v, ok := env.Variable(n.Index, n.Offset)
		if !ok {
			return 0, &UnresolvedError{Name: n.Name}
		}
		return v, nil
	case *Shock:
		v, ok := env.Shock(n.Index)
		if !ok {
			return 0, &UnresolvedError{Name: n.Name}
		}
		return v, nil
	case *Expect:
		return Eval(n.Inner, env)
	case *Unary:
		v, err := Eval(n.X, env)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *Binary:
		x, err := Eval(n.X, env)
		if err != nil {
			return 0, err
		}
		y, err := Eval(n.Y, env)
		if err != nil {
			return 0, err
		}
		return evalBinary(n.Op, x, y)
	default:
		return 0, fmt.Errorf("unknown expression node %T", e)
	}
}

func evalBinary(op Op, x, y float64) (float64, error) {
	var v float64
	switch op {
	case OpAdd:
		v = x + y
	case OpSub:
		v = x - y
	case OpMul:
		v = x * y
	case OpDiv:
		if y == 0 {
			return 0, &DomainError{Op: "/", Detail: "division by zero"}
		}
		v = x / y
	case OpPow:
		if x < 0 && y != math.Trunc(y) {
			return 0, &DomainError{
				Op:     "^",
				Detail: fmt.Sprintf("non-integer power %g of negative base %g", y, x),
			}
		}
		v = math.Pow(x, y)
	default:
		return 0, fmt.Errorf("unknown operator %v", op)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DomainError{Op: op.String(), Detail: "non-finite result"}
	}
	return v, nil
}
