package linearize

import (
	"fmt"

	"github.com/macrolab/dsolve/internal/calib"
	"github.com/macrolab/dsolve/internal/model"
)

// rewriter replaces each expectation-operator occurrence with a fresh
// forecast state and records the identity that closes it. Occurrences are
// discovered in equation order, then left-to-right within an equation, so
// the error ordering is deterministic.
type rewriter struct {
	m          *model.Model
	inners     []model.Expr  // original inner expression per occurrence
	stateNames []string      // forecast state names
	errorNames []string      // expectational error names
	closing    []residualRow // closing identities, one per occurrence
}

// rewrite returns a copy of the residual with expectations replaced by
// forecast-state references. The model's trees are never mutated.
func (w *rewriter) rewrite(e model.Expr, eqName string) (model.Expr, error) {
	switch n := e.(type) {
	case *model.Num, *model.Param, *model.Var, *model.Shock, *model.SteadyRef:
		return e, nil

	case *model.Expect:
		return w.introduce(n, eqName)

	case *model.Unary:
		x, err := w.rewrite(n.X, eqName)
		if err != nil {
			return nil, err
		}
		return &model.Unary{Op: n.Op, X: x}, nil

	case *model.Binary:
		x, err := w.rewrite(n.X, eqName)
		if err != nil {
			return nil, err
		}
		y, err := w.rewrite(n.Y, eqName)
		if err != nil {
			return nil, err
		}
		return &model.Binary{Op: n.Op, X: x, Y: y}, nil

	default:
		return nil, &Error{Equation: eqName, Msg: fmt.Sprintf("unexpected expression node %T", e)}
	}
}

// introduce allocates the forecast state and expectational error for one
// E[][inner] occurrence and records its closing identity
// inner(t) - f(t-1) - η(t) = 0.
func (w *rewriter) introduce(e *model.Expect, eqName string) (model.Expr, error) {
	if err := w.validateInner(e.Inner, eqName); err != nil {
		return nil, err
	}

	j := len(w.inners)
	idx := len(w.m.Variables) + j
	name := fmt.Sprintf("exp_%d", j+1)

	w.inners = append(w.inners, e.Inner)
	w.stateNames = append(w.stateNames, name)
	w.errorNames = append(w.errorNames, fmt.Sprintf("eta_%d", j+1))
	w.closing = append(w.closing, residualRow{
		name: fmt.Sprintf("expectation closure %d (from %s)", j+1, eqName),
		expr: &model.Binary{
			Op: model.OpSub,
			X:  shiftBack(e.Inner),
			Y:  &model.Var{Name: name, Index: idx, Offset: -1},
		},
		errorCol: j,
	})

	return &model.Var{Name: name, Index: idx, Offset: 0}, nil
}

// validateInner enforces the expectation operator's contract: the inner
// expression references only one-period leads, at least one of them, and
// no shocks or nested expectations.
func (w *rewriter) validateInner(inner model.Expr, eqName string) error {
	leads := 0
	var innerErr error
	model.Walk(inner, func(e model.Expr) {
		if innerErr != nil {
			return
		}
		switch n := e.(type) {
		case *model.Var:
			if n.Offset != 1 {
				innerErr = &Error{Equation: eqName, Msg: fmt.Sprintf(
					"expectation operator may only reference one-period leads, found %s", n)}
				return
			}
			leads++
		case *model.Shock:
			innerErr = &Error{Equation: eqName, Msg: fmt.Sprintf(
				"shock %s cannot appear under an expectation operator", n)}
		case *model.Expect:
			innerErr = &Error{Equation: eqName, Msg: "nested expectation operators are not supported"}
		}
	})
	if innerErr != nil {
		return innerErr
	}
	if leads == 0 {
		return &Error{Equation: eqName, Msg: "expectation operator must reference at least one lead variable"}
	}
	return nil
}

// shiftBack dates an expectation's inner expression one period earlier,
// turning its leads into current-period references for the closing
// identity.
func shiftBack(e model.Expr) model.Expr {
	switch n := e.(type) {
	case *model.Var:
		return &model.Var{Name: n.Name, Index: n.Index, Offset: n.Offset - 1}
	case *model.Unary:
		return &model.Unary{Op: n.Op, X: shiftBack(n.X)}
	case *model.Binary:
		return &model.Binary{Op: n.Op, X: shiftBack(n.X), Y: shiftBack(n.Y)}
	default:
		return e
	}
}

// linEnv evaluates expressions at the steady state over the extended
// state vector. Forecast states take the steady-state value of their
// inner expression, exact because expectations are degenerate at the
// steady state.
type linEnv struct {
	params []float64
	steady []float64 // model variables followed by forecast states
}

func newLinEnv(m *model.Model, res *calib.Result, rw *rewriter) (*linEnv, error) {
	env := &linEnv{
		params: res.Parameters,
		steady: append([]float64{}, res.SteadyState...),
	}
	for j, inner := range rw.inners {
		v, err := model.Eval(inner, env)
		if err != nil {
			return nil, fmt.Errorf("steady state of %s: %w", rw.stateNames[j], err)
		}
		env.steady = append(env.steady, v)
	}
	return env, nil
}

func (e *linEnv) Param(i int) (float64, bool)  { return e.params[i], true }
func (e *linEnv) Steady(i int) (float64, bool) { return e.steady[i], true }
func (e *linEnv) Shock(int) (float64, bool)    { return 0, true }

func (e *linEnv) Variable(i, _ int) (float64, bool) { return e.steady[i], true }

// nudgeEnv perturbs exactly one slot of the steady state, for the
// finite-difference derivative path.
type nudgeEnv struct {
	base   *linEnv
	target model.Target
	delta  float64
}

func (e *nudgeEnv) Param(i int) (float64, bool)  { return e.base.Param(i) }
func (e *nudgeEnv) Steady(i int) (float64, bool) { return e.base.Steady(i) }

func (e *nudgeEnv) Variable(i, offset int) (float64, bool) {
	v, ok := e.base.Variable(i, offset)
	if e.target.Kind == model.TargetVar && e.target.Index == i && e.target.Offset == offset {
		v += e.delta
	}
	return v, ok
}

func (e *nudgeEnv) Shock(i int) (float64, bool) {
	v, ok := e.base.Shock(i)
	if e.target.Kind == model.TargetShock && e.target.Index == i {
		v += e.delta
	}
	return v, ok
}
