// Package linearize computes the first-order expansion of a model's
// identities around its resolved steady state, producing the canonical
// structural form
//
//	Γ0·y_t = Γ1·y_{t-1} + Ψ·ε_t + Π·η_t
//
// over the extended state vector: the model's variables followed by one
// forecast term per expectation-operator occurrence. Each occurrence
// E[][inner] is replaced by a forecast variable f and closed with the
// auxiliary identity inner(t) = f(t-1) + η(t), where η is the
// expectational error between the realized value and its period-earlier
// forecast.
//
// Derivatives are exact by default (symbolic differentiation of the
// expression tree); centered finite differences are available as a
// numeric cross-check.
package linearize
