package parser

import (
	"fmt"
	"strings"

	"github.com/macrolab/dsolve/internal/model"
)

// bind resolves every name in the raw parse result against the interned
// symbol tables and produces the immutable Model. Classification cannot
// happen during parsing because the shocks section follows the identities
// that use the shocks.
func bind(raw *rawModel) (*model.Model, error) {
	b := &binder{
		raw: raw,
		m:   &model.Model{Name: raw.name},
	}
	if err := b.internSymbols(); err != nil {
		return nil, err
	}
	if err := b.bindEquations(); err != nil {
		return nil, err
	}
	if err := b.bindCalibration(); err != nil {
		return nil, err
	}
	return b.m, nil
}

type binder struct {
	raw *rawModel
	m   *model.Model
}

func bindErr(line int, format string, args ...any) error {
	return &Error{Line: line, Column: 1, Msg: fmt.Sprintf(format, args...)}
}

// internSymbols builds the shock, variable and parameter tables in order
// of declaration or first occurrence.
func (b *binder) internSymbols() error {
	for _, s := range b.raw.shocks {
		if _, dup := b.m.ShockIndex(s.name); dup {
			return bindErr(s.line, "duplicate shock %q", s.name)
		}
		b.m.Shocks = append(b.m.Shocks, s.name)
	}

	// Bracketed names that are not shocks are variables.
	for _, eq := range b.raw.equations {
		walkBoth(eq.lhs, eq.rhs, func(e model.Expr) {
			if n, ok := e.(*model.Var); ok {
				if _, isShock := b.m.ShockIndex(n.Name); isShock {
					return
				}
				if _, seen := b.m.VariableIndex(n.Name); !seen {
					b.m.Variables = append(b.m.Variables, n.Name)
				}
			}
		})
	}

	// Bare names inside identities are parameters, except `name_ss`
	// references to a variable's steady-state value.
	for _, eq := range b.raw.equations {
		var nameErr error
		walkBoth(eq.lhs, eq.rhs, func(e model.Expr) {
			if nameErr != nil {
				return
			}
			if n, ok := e.(*model.Param); ok {
				if _, isShock := b.m.ShockIndex(n.Name); isShock {
					nameErr = bindErr(eq.line, "shock %q must be referenced with a time index, e.g. %s[]", n.Name, n.Name)
					return
				}
				if b.isSteadyOfVariable(n.Name) {
					return
				}
				if _, seen := b.m.ParameterIndex(n.Name); !seen {
					b.m.Parameters = append(b.m.Parameters, n.Name)
				}
			}
		})
		if nameErr != nil {
			return nameErr
		}
	}

	// A name cannot be both a variable and a parameter or shock.
	for _, p := range b.m.Parameters {
		if _, clash := b.m.VariableIndex(p); clash {
			return bindErr(1, "%q is used both with and without a time index", p)
		}
	}
	for _, v := range b.m.Variables {
		if _, clash := b.m.ShockIndex(v); clash {
			return bindErr(1, "%q is declared as a shock but used as a variable", v)
		}
	}

	// Calibration introduces the remaining parameters (left-hand sides that
	// are neither steady-state names nor already-known parameters).
	for _, a := range b.raw.calibration {
		if base, ok := steadyBase(a.name); ok {
			if _, isVar := b.m.VariableIndex(base); isVar {
				continue
			}
			return bindErr(a.line, "steady-state assignment %q does not match any model variable", a.name)
		}
		if _, isVar := b.m.VariableIndex(a.name); isVar {
			return bindErr(a.line, "cannot calibrate %q directly: it is a model variable, assign %s_ss instead", a.name, a.name)
		}
		if _, isShock := b.m.ShockIndex(a.name); isShock {
			return bindErr(a.line, "cannot calibrate shock %q", a.name)
		}
		if _, seen := b.m.ParameterIndex(a.name); !seen {
			b.m.Parameters = append(b.m.Parameters, a.name)
		}
	}

	// Every parameter used in an identity must be given by the calibration
	// block.
	calibrated := map[string]bool{}
	for _, a := range b.raw.calibration {
		if calibrated[a.name] {
			return bindErr(a.line, "duplicate calibration of %q", a.name)
		}
		calibrated[a.name] = true
	}
	for _, eq := range b.raw.equations {
		var nameErr error
		line := eq.line
		walkBoth(eq.lhs, eq.rhs, func(e model.Expr) {
			if nameErr != nil {
				return
			}
			if p, ok := e.(*model.Param); ok && !calibrated[p.Name] && !b.isSteadyOfVariable(p.Name) {
				nameErr = bindErr(line, "undeclared identifier %q: not a variable, shock or calibrated parameter", p.Name)
			}
		})
		if nameErr != nil {
			return nameErr
		}
	}
	return nil
}

// bindEquations rewrites the identity trees with interned indices and
// re-types shock references.
func (b *binder) bindEquations() error {
	for i, eq := range b.raw.equations {
		lhs, err := b.rewrite(eq.lhs, eq.line, false)
		if err != nil {
			return err
		}
		rhs, err := b.rewrite(eq.rhs, eq.line, false)
		if err != nil {
			return err
		}
		b.m.Equations = append(b.m.Equations, model.Equation{
			Name: fmt.Sprintf("identity %d", i+1),
			LHS:  lhs,
			RHS:  rhs,
		})
	}
	return nil
}

// bindCalibration rewrites calibration statements; `name_ss` references
// become SteadyRef nodes and everything else must be a parameter.
func (b *binder) bindCalibration() error {
	for _, a := range b.raw.calibration {
		rhs, err := b.rewrite(a.rhs, a.line, true)
		if err != nil {
			return err
		}
		stmt := model.Assignment{Name: a.name, RHS: rhs, Line: a.line}
		if base, ok := steadyBase(a.name); ok {
			idx, _ := b.m.VariableIndex(base)
			stmt.Kind = model.AssignSteady
			stmt.Index = idx
		} else {
			idx, _ := b.m.ParameterIndex(a.name)
			stmt.Kind = model.AssignParameter
			stmt.Index = idx
		}
		b.m.Calibration = append(b.m.Calibration, stmt)
	}
	return nil
}

// rewrite returns a copy of the tree with every reference bound to its
// interned index. In calibration position, time-indexed references and
// expectation operators are rejected and `_ss` names resolve to steady
// references.
func (b *binder) rewrite(e model.Expr, line int, calibration bool) (model.Expr, error) {
	switch n := e.(type) {
	case *model.Num:
		return n, nil

	case *model.Var:
		if calibration {
			return nil, bindErr(line, "time-indexed reference %q is not allowed in calibration", n.String())
		}
		if idx, ok := b.m.ShockIndex(n.Name); ok {
			if n.Offset != 0 {
				return nil, bindErr(line, "shock %q cannot be lagged or led", n.Name)
			}
			return &model.Shock{Name: n.Name, Index: idx}, nil
		}
		idx, _ := b.m.VariableIndex(n.Name)
		return &model.Var{Name: n.Name, Index: idx, Offset: n.Offset}, nil

	case *model.Param:
		if base, ok := steadyBase(n.Name); ok {
			if idx, isVar := b.m.VariableIndex(base); isVar {
				return &model.SteadyRef{Name: n.Name, Index: idx}, nil
			}
		}
		idx, ok := b.m.ParameterIndex(n.Name)
		if !ok {
			return nil, bindErr(line, "undeclared identifier %q", n.Name)
		}
		return &model.Param{Name: n.Name, Index: idx}, nil

	case *model.Expect:
		if calibration {
			return nil, bindErr(line, "expectation operator is not allowed in calibration")
		}
		inner, err := b.rewrite(n.Inner, line, calibration)
		if err != nil {
			return nil, err
		}
		return &model.Expect{Inner: inner}, nil

	case *model.Unary:
		x, err := b.rewrite(n.X, line, calibration)
		if err != nil {
			return nil, err
		}
		return &model.Unary{Op: n.Op, X: x}, nil

	case *model.Binary:
		x, err := b.rewrite(n.X, line, calibration)
		if err != nil {
			return nil, err
		}
		y, err := b.rewrite(n.Y, line, calibration)
		if err != nil {
			return nil, err
		}
		return &model.Binary{Op: n.Op, X: x, Y: y}, nil

	default:
		return nil, bindErr(line, "unexpected expression node %T", e)
	}
}

func (b *binder) isSteadyOfVariable(name string) bool {
	base, ok := steadyBase(name)
	if !ok {
		return false
	}
	_, isVar := b.m.VariableIndex(base)
	return isVar
}

// steadyBase splits a `name_ss` steady-state name into its variable part.
func steadyBase(name string) (string, bool) {
	base, found := strings.CutSuffix(name, "_ss")
	if !found || base == "" {
		return "", false
	}
	return base, true
}

func walkBoth(lhs, rhs model.Expr, fn func(model.Expr)) {
	model.Walk(lhs, fn)
	model.Walk(rhs, fn)
}
