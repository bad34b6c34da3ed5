package calib

import (
	"context"
	"fmt"
	"math"

	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/model"
)

// steadyEnv is the evaluation environment during resolution: parameters
// and steady-state values fill in as statements are processed. Variables
// at any time offset evaluate to their steady value and shocks to zero,
// which is the steady-state semantics.
type steadyEnv struct {
	params    []float64
	paramSet  []bool
	steady    []float64
	steadySet []bool
}

func newSteadyEnv(nParams, nVars int) *steadyEnv {
	return &steadyEnv{
		params:    make([]float64, nParams),
		paramSet:  make([]bool, nParams),
		steady:    make([]float64, nVars),
		steadySet: make([]bool, nVars),
	}
}

func (e *steadyEnv) clone() *steadyEnv {
	c := newSteadyEnv(len(e.params), len(e.steady))
	copy(c.params, e.params)
	copy(c.paramSet, e.paramSet)
	copy(c.steady, e.steady)
	copy(c.steadySet, e.steadySet)
	return c
}

func (e *steadyEnv) Param(i int) (float64, bool)  { return e.params[i], e.paramSet[i] }
func (e *steadyEnv) Steady(i int) (float64, bool) { return e.steady[i], e.steadySet[i] }
func (e *steadyEnv) Shock(int) (float64, bool)    { return 0, true }

func (e *steadyEnv) Variable(i, _ int) (float64, bool) { return e.Steady(i) }

// unknown is one coordinate of the implicit system's solution vector.
type unknown struct {
	name      string // guess lookup key
	steadyIdx int    // variable index, or -1
	paramIdx  int    // parameter index, or -1
}

// Resolve evaluates the model's calibration block into parameter values
// and a steady state.
func Resolve(ctx context.Context, m *model.Model, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	env := newSteadyEnv(len(m.Parameters), len(m.Variables))

	// Explicit pass: evaluate statements in declaration order, deferring
	// the ones blocked on an unresolved steady-state name.
	var deferred []model.Assignment
	deferredParam := make([]bool, len(m.Parameters))
	for _, stmt := range m.Calibration {
		blocked, err := blockingRef(stmt, env, deferredParam)
		if err != nil {
			return nil, err
		}
		if blocked {
			if stmt.Kind == model.AssignParameter {
				deferredParam[stmt.Index] = true
			}
			deferred = append(deferred, stmt)
			logger.Debug("calibration statement deferred to implicit system.",
				"name", stmt.Name, "line", stmt.Line)
			continue
		}
		v, err := model.Eval(stmt.RHS, env)
		if err != nil {
			return nil, fmt.Errorf("calibration of %q at line %d: %w", stmt.Name, stmt.Line, err)
		}
		if stmt.Kind == model.AssignParameter {
			env.params[stmt.Index] = v
			env.paramSet[stmt.Index] = true
		} else {
			env.steady[stmt.Index] = v
			env.steadySet[stmt.Index] = true
		}
	}

	// Everything still unset is an unknown of the implicit system.
	var unknowns []unknown
	for i, name := range m.Variables {
		if !env.steadySet[i] {
			unknowns = append(unknowns, unknown{name: name, steadyIdx: i, paramIdx: -1})
		}
	}
	for _, stmt := range deferred {
		if stmt.Kind == model.AssignParameter && !env.paramSet[stmt.Index] {
			unknowns = append(unknowns, unknown{name: stmt.Name, steadyIdx: -1, paramIdx: stmt.Index})
		}
	}

	iterations := 0
	if len(unknowns) > 0 {
		nEq := len(deferred) + len(m.Equations)
		if len(unknowns) > nEq {
			return nil, &UnderdeterminedError{Unknowns: len(unknowns), Equations: nEq}
		}
		logger.Debug("solving implicit steady-state system.",
			"unknowns", len(unknowns), "equations", nEq)

		x0 := make([]float64, len(unknowns))
		for i, u := range unknowns {
			if u.steadyIdx >= 0 {
				x0[i] = opts.guess(u.name, u.name+"_ss")
			} else {
				x0[i] = opts.guess(u.name)
			}
		}

		residual := func(x []float64) ([]float64, error) {
			return implicitResiduals(m, env, unknowns, deferred, x)
		}
		x, iters, err := newton(ctx, residual, x0, opts.tolerance(), opts.maxIterations())
		if err != nil {
			return nil, err
		}
		iterations = iters
		applyUnknowns(env, unknowns, x)
	}

	if err := checkConsistency(m, env); err != nil {
		return nil, err
	}
	logger.Debug("calibration resolved.",
		"parameters", len(m.Parameters), "variables", len(m.Variables), "newton_iterations", iterations)

	res := &Result{
		Parameters:  make([]float64, len(m.Parameters)),
		SteadyState: make([]float64, len(m.Variables)),
		Iterations:  iterations,
	}
	copy(res.Parameters, env.params)
	copy(res.SteadyState, env.steady)
	return res, nil
}

// blockingRef scans a statement's right-hand side. It reports whether the
// statement must join the implicit system, or fails when the statement
// references a plainly undefined name.
func blockingRef(stmt model.Assignment, env *steadyEnv, deferredParam []bool) (bool, error) {
	blocked := false
	var refErr error
	model.Walk(stmt.RHS, func(e model.Expr) {
		if refErr != nil {
			return
		}
		switch n := e.(type) {
		case *model.SteadyRef:
			if _, ok := env.Steady(n.Index); !ok {
				blocked = true
			}
		case *model.Param:
			if _, ok := env.Param(n.Index); ok {
				return
			}
			if deferredParam[n.Index] {
				blocked = true
				return
			}
			refErr = &UnresolvedReferenceError{Name: n.Name, Statement: stmt.Name, Line: stmt.Line}
		}
	})
	return blocked, refErr
}

// implicitResiduals evaluates the deferred statements and every identity
// at the trial point x.
func implicitResiduals(m *model.Model, base *steadyEnv, unknowns []unknown, deferred []model.Assignment, x []float64) ([]float64, error) {
	env := base.clone()
	applyUnknowns(env, unknowns, x)

	out := make([]float64, 0, len(deferred)+len(m.Equations))
	for _, stmt := range deferred {
		rhs, err := model.Eval(stmt.RHS, env)
		if err != nil {
			return nil, err
		}
		var lhs float64
		if stmt.Kind == model.AssignParameter {
			lhs = env.params[stmt.Index]
		} else {
			lhs = env.steady[stmt.Index]
		}
		out = append(out, lhs-rhs)
	}
	for i := range m.Equations {
		v, err := model.Eval(m.Equations[i].Residual(), env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func applyUnknowns(env *steadyEnv, unknowns []unknown, x []float64) {
	for i, u := range unknowns {
		if u.steadyIdx >= 0 {
			env.steady[u.steadyIdx] = x[i]
			env.steadySet[u.steadyIdx] = true
		} else {
			env.params[u.paramIdx] = x[i]
			env.paramSet[u.paramIdx] = true
		}
	}
}

// checkConsistency verifies the resolved steady state against every
// identity with shocks at zero. This is the resolver's post-condition and
// is always enforced.
func checkConsistency(m *model.Model, env *steadyEnv) error {
	for i := range m.Equations {
		v, err := model.Eval(m.Equations[i].Residual(), env)
		if err != nil {
			return fmt.Errorf("steady-state check of %s: %w", m.Equations[i].Name, err)
		}
		if math.Abs(v) > consistencyTol {
			return &ConsistencyError{Equation: m.Equations[i].Name, Residual: v}
		}
	}
	return nil
}
