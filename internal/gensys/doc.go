// Package gensys solves linear rational-expectations systems in the
// canonical form Gamma0·x_t = Gamma1·x_{t-1} + Psi·eps_t + Pi·eta_t.
//
// The solver follows the generalized Schur route: a complex QZ
// decomposition of the (Gamma1, Gamma0) pencil, a stable-first
// reordering of the eigenvalues, a Blanchard-Kahn count of explosive
// roots against expectational error dimensions, and a triangular
// back-substitution that recovers the law of motion
// x_t = G·x_{t-1} + H·eps_t.
package gensys
