package linearize

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/macrolab/dsolve/internal/calib"
	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/model"
)

// Method selects how partial derivatives are computed.
type Method int

const (
	// MethodAnalytic differentiates the expression tree symbolically and
	// evaluates the result at the steady state. This is exact and the
	// default.
	MethodAnalytic Method = iota
	// MethodNumeric uses centered finite differences; it exists as a
	// cross-check on the analytic derivatives.
	MethodNumeric
)

// Options configures one linearization run. The zero value is the
// analytic default.
type Options struct {
	Method Method
}

// fdH is the centered-difference step for MethodNumeric.
const fdH = 1e-6

// residualRow is one row of the structural system awaiting
// differentiation.
type residualRow struct {
	name     string
	expr     model.Expr
	errorCol int // Π column this row closes, or -1
}

// Linearize expands every identity to first order around the steady state
// and assembles the canonical structural matrices.
func Linearize(ctx context.Context, m *model.Model, res *calib.Result, opts Options) (*System, error) {
	logger := ctxlog.FromContext(ctx)

	if len(m.Equations) != len(m.Variables) {
		return nil, &Error{Msg: fmt.Sprintf(
			"model is not square: %d identities but %d variables; the system must have exactly one identity per variable",
			len(m.Equations), len(m.Variables))}
	}

	rw := &rewriter{m: m}
	rows := make([]residualRow, 0, len(m.Equations))
	for i := range m.Equations {
		eq := m.Equations[i]
		expr, err := rw.rewrite(eq.Residual(), eq.Name)
		if err != nil {
			return nil, err
		}
		if err := rejectBareLeads(expr, eq.Name); err != nil {
			return nil, err
		}
		rows = append(rows, residualRow{name: eq.Name, expr: expr, errorCol: -1})
	}
	rows = append(rows, rw.closing...)

	env, err := newLinEnv(m, res, rw)
	if err != nil {
		return nil, err
	}

	n := len(rows)
	sys := &System{
		Gamma0: mat.NewDense(n, n, nil),
		Gamma1: mat.NewDense(n, n, nil),
		States: append(append([]string{}, m.Variables...), rw.stateNames...),
		Shocks: m.Shocks,
		Errors: rw.errorNames,
	}
	if len(m.Shocks) > 0 {
		sys.Psi = mat.NewDense(n, len(m.Shocks), nil)
	}
	if len(rw.errorNames) > 0 {
		sys.Pi = mat.NewDense(n, len(rw.errorNames), nil)
	}

	for r, row := range rows {
		if err := checkPowDomains(row.expr, env, row.name); err != nil {
			return nil, err
		}
		if err := assembleRow(sys, r, row, env, opts.Method); err != nil {
			return nil, err
		}
		if row.errorCol >= 0 {
			sys.Pi.Set(r, row.errorCol, 1)
		}
	}

	logger.Debug("model linearized.",
		"states", sys.Dim(), "shocks", len(sys.Shocks), "expectational_errors", sys.NumErrors())
	return sys, nil
}

// assembleRow differentiates one residual with respect to every (variable,
// offset) slot and every shock it references, and writes the coefficients
// into the structural matrices with the canonical signs.
func assembleRow(sys *System, r int, row residualRow, env *linEnv, method Method) error {
	slots, shocks := collectSlots(row.expr)
	for _, s := range slots {
		d, err := partial(row.expr, model.Target{Kind: model.TargetVar, Index: s.index, Offset: s.offset}, env, method)
		if err != nil {
			return fmt.Errorf("linearizing %s: %w", row.name, err)
		}
		switch s.offset {
		case 0:
			sys.Gamma0.Set(r, s.index, d)
		case -1:
			sys.Gamma1.Set(r, s.index, -d)
		}
	}
	for _, idx := range shocks {
		d, err := partial(row.expr, model.Target{Kind: model.TargetShock, Index: idx}, env, method)
		if err != nil {
			return fmt.Errorf("linearizing %s: %w", row.name, err)
		}
		sys.Psi.Set(r, idx, -d)
	}
	return nil
}

// partial computes one partial derivative at the steady state.
func partial(expr model.Expr, t model.Target, env *linEnv, method Method) (float64, error) {
	if method == MethodNumeric {
		return numericPartial(expr, t, env)
	}
	d, err := model.Diff(expr, t)
	if err != nil {
		return 0, err
	}
	return model.Eval(d, env)
}

// numericPartial estimates the derivative by centered differences around
// the steady state.
func numericPartial(expr model.Expr, t model.Target, env *linEnv) (float64, error) {
	h := fdH
	if t.Kind == model.TargetVar {
		if v, ok := env.Variable(t.Index, t.Offset); ok {
			h = fdH * math.Max(1, math.Abs(v))
		}
	}
	up, err := model.Eval(expr, &nudgeEnv{base: env, target: t, delta: h})
	if err != nil {
		return 0, err
	}
	down, err := model.Eval(expr, &nudgeEnv{base: env, target: t, delta: -h})
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * h), nil
}

type slot struct {
	index  int
	offset int
}

// collectSlots lists the distinct (variable, offset) pairs and shock
// indices referenced by a residual, in first-occurrence order.
func collectSlots(expr model.Expr) ([]slot, []int) {
	var slots []slot
	var shocks []int
	seenSlot := map[slot]bool{}
	seenShock := map[int]bool{}
	model.Walk(expr, func(e model.Expr) {
		switch n := e.(type) {
		case *model.Var:
			s := slot{index: n.Index, offset: n.Offset}
			if !seenSlot[s] {
				seenSlot[s] = true
				slots = append(slots, s)
			}
		case *model.Shock:
			if !seenShock[n.Index] {
				seenShock[n.Index] = true
				shocks = append(shocks, n.Index)
			}
		}
	})
	return slots, shocks
}

// rejectBareLeads enforces that lead-dated references only occur inside an
// expectation operator; the canonical form has no period-t+1 terms.
func rejectBareLeads(expr model.Expr, name string) error {
	var bad *model.Var
	model.Walk(expr, func(e model.Expr) {
		if bad != nil {
			return
		}
		if v, ok := e.(*model.Var); ok && v.Offset > 0 {
			bad = v
		}
	})
	if bad != nil {
		return &Error{Equation: name, Msg: fmt.Sprintf(
			"lead reference %s outside an expectation operator; wrap it as E[][...]", bad)}
	}
	return nil
}

// checkPowDomains verifies that every power with a non-integer exponent
// has a strictly positive base at the steady state, so its derivative is
// well defined.
func checkPowDomains(expr model.Expr, env *linEnv, name string) error {
	var domErr error
	model.Walk(expr, func(e model.Expr) {
		if domErr != nil {
			return
		}
		b, ok := e.(*model.Binary)
		if !ok || b.Op != model.OpPow {
			return
		}
		exp, err := model.Eval(b.Y, env)
		if err != nil || exp == math.Trunc(exp) {
			return // integer powers are fine on any base
		}
		base, err := model.Eval(b.X, env)
		if err != nil {
			return // surfaced later by the main evaluation
		}
		if base <= 0 {
			domErr = fmt.Errorf("linearizing %s: %w", name, &model.DomainError{
				Op: "^",
				Detail: fmt.Sprintf(
					"non-integer exponent %g requires a strictly positive steady-state base, got %g", exp, base),
			})
		}
	})
	return domErr
}
