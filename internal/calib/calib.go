package calib

import "fmt"

const (
	defaultTolerance     = 1e-10
	defaultMaxIterations = 200
	defaultGuess         = 1.0

	// consistencyTol bounds the identity residuals accepted after
	// resolution, regardless of how tight the Newton tolerance was.
	consistencyTol = 1e-8
)

// Options configures one resolution run.
type Options struct {
	// Tolerance is the maximum absolute residual accepted by the implicit
	// solver. Zero means the default of 1e-10.
	Tolerance float64

	// MaxIterations bounds the Newton iteration. Zero means the default
	// of 200.
	MaxIterations int

	// InitialGuess seeds the implicit solver, keyed by variable name
	// ("K"), steady-state name ("K_ss") or deferred parameter name.
	// Unknowns without a guess start at 1.
	InitialGuess map[string]float64
}

func (o Options) tolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return defaultTolerance
}

func (o Options) maxIterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return defaultMaxIterations
}

func (o Options) guess(names ...string) float64 {
	for _, n := range names {
		if v, ok := o.InitialGuess[n]; ok {
			return v
		}
	}
	return defaultGuess
}

// Result holds the resolved calibration: one value per parameter index and
// one steady-state value per variable index.
type Result struct {
	Parameters  []float64
	SteadyState []float64

	// Iterations is the number of Newton steps the implicit solver took;
	// zero for a fully explicit calibration.
	Iterations int
}

// UnresolvedReferenceError reports a calibration statement that uses a
// name before it is defined.
type UnresolvedReferenceError struct {
	Name      string // the unresolved name
	Statement string // the statement's left-hand side
	Line      int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("calibration of %q at line %d references %q before it is defined",
		e.Statement, e.Line, e.Name)
}

// ConvergenceError reports an implicit steady-state solve that did not
// reach tolerance within the iteration budget.
type ConvergenceError struct {
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("steady state did not converge: residual %.3e after %d iterations",
		e.Residual, e.Iterations)
}

// UnderdeterminedError reports an implicit system with fewer equations
// than unknowns, which cannot pin down a unique steady state.
type UnderdeterminedError struct {
	Unknowns  int
	Equations int
}

func (e *UnderdeterminedError) Error() string {
	return fmt.Sprintf("steady state underdetermined: %d unknowns but only %d equations",
		e.Unknowns, e.Equations)
}

// ConsistencyError reports a resolved steady state that fails to satisfy
// an identity. It indicates a resolver bug or an unsatisfiable
// calibration and is always fatal.
type ConsistencyError struct {
	Equation string
	Residual float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency check failed: %s has steady-state residual %.3e",
		e.Equation, e.Residual)
}
