// Package calib evaluates a model's calibration block into concrete
// parameter values and a steady state.
//
// Statements are processed in declaration order. A statement whose
// right-hand side only references already-resolved names is evaluated
// directly (the explicit form). A statement that references a
// not-yet-resolved steady-state name is deferred into an implicit residual
// system, together with every model identity evaluated at the steady
// state; the system is solved by a damped Newton iteration with a
// finite-difference Jacobian. Any other unresolved reference fails
// immediately.
//
// After resolution the steady state is verified against every identity;
// a residual above tolerance is an internal consistency failure, never
// silently accepted.
package calib
