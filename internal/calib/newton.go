package calib

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/macrolab/dsolve/internal/ctxlog"
)

// fdStep scales the finite-difference perturbation used for the Newton
// Jacobian.
const fdStep = 1e-7

// newton drives a damped Newton iteration on f(x) = 0 until the maximum
// absolute residual falls below tol. The Jacobian is estimated by centered
// finite differences and the step is solved in the least-squares sense, so
// consistent overdetermined systems (deferred calibration statements that
// duplicate an identity) are handled.
func newton(ctx context.Context, f func([]float64) ([]float64, error), x0 []float64, tol float64, maxIter int) ([]float64, int, error) {
	logger := ctxlog.FromContext(ctx)

	x := make([]float64, len(x0))
	copy(x, x0)

	r, err := f(x)
	if err != nil {
		return nil, 0, err
	}
	norm := floats.Norm(r, math.Inf(1))

	for iter := 1; iter <= maxIter; iter++ {
		if norm < tol {
			return x, iter - 1, nil
		}

		jac, err := jacobian(f, x, r)
		if err != nil {
			return nil, iter, err
		}
		rhs := mat.NewVecDense(len(r), r)
		var step mat.VecDense
		if err := step.SolveVec(jac, rhs); err != nil {
			// A rank-deficient Jacobian at this point: treat like a failed
			// step and stop with the residual reached so far.
			return nil, iter, &ConvergenceError{Iterations: iter, Residual: norm}
		}

		// Backtracking line search: halve the step until the residual
		// improves or the step becomes negligible.
		improved := false
		trial := make([]float64, len(x))
		for lambda := 1.0; lambda >= 1.0/64; lambda /= 2 {
			for i := range x {
				trial[i] = x[i] - lambda*step.AtVec(i)
			}
			tr, err := f(trial)
			if err != nil {
				continue // trial point left the domain, shorten the step
			}
			tnorm := floats.Norm(tr, math.Inf(1))
			if tnorm < norm {
				copy(x, trial)
				r, norm = tr, tnorm
				improved = true
				break
			}
		}
		if !improved {
			logger.Debug("newton stalled.", "iteration", iter, "residual", norm)
			return nil, iter, &ConvergenceError{Iterations: iter, Residual: norm}
		}
	}

	if norm < tol {
		return x, maxIter, nil
	}
	return nil, maxIter, &ConvergenceError{Iterations: maxIter, Residual: norm}
}

// jacobian estimates df/dx by centered differences, column by column.
// base is f(x); when one probe point leaves an expression's domain the
// column falls back to the one-sided difference through base, so steady
// states on a domain boundary stay resolvable.
func jacobian(f func([]float64) ([]float64, error), x, base []float64) (*mat.Dense, error) {
	m := len(base)
	jac := mat.NewDense(m, len(x), nil)
	pt := make([]float64, len(x))
	for j := range x {
		h := fdStep * math.Max(1, math.Abs(x[j]))

		copy(pt, x)
		pt[j] = x[j] + h
		fp, errP := f(pt)
		pt[j] = x[j] - h
		fm, errM := f(pt)

		switch {
		case errP == nil && errM == nil:
			for i := 0; i < m; i++ {
				jac.Set(i, j, (fp[i]-fm[i])/(2*h))
			}
		case errP == nil:
			for i := 0; i < m; i++ {
				jac.Set(i, j, (fp[i]-base[i])/h)
			}
		case errM == nil:
			for i := 0; i < m; i++ {
				jac.Set(i, j, (base[i]-fm[i])/h)
			}
		default:
			return nil, errP
		}
	}
	return jac, nil
}
