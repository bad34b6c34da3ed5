package linearize

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System is the canonical linearized form Γ0·y = Γ1·y(-1) + Ψ·ε + Π·η.
type System struct {
	// Gamma0 and Gamma1 are square with one row per identity (including
	// the expectation-closing identities) and one column per state.
	Gamma0 *mat.Dense
	Gamma1 *mat.Dense

	// Psi has one column per shock; nil when the model declares none.
	Psi *mat.Dense

	// Pi has one column per expectational error; nil when the model has
	// no expectation operators.
	Pi *mat.Dense

	// States names the extended state vector: model variables first, then
	// one forecast term per expectation occurrence.
	States []string

	// Shocks and Errors name the columns of Psi and Pi.
	Shocks []string
	Errors []string
}

// Dim is the dimension of the extended state vector.
func (s *System) Dim() int { return len(s.States) }

// NumErrors is the number of expectational-error dimensions.
func (s *System) NumErrors() int { return len(s.Errors) }

// Error is a structural linearization failure: a non-square system or an
// ill-placed time index.
type Error struct {
	Equation string // offending identity, if any
	Msg      string
}

func (e *Error) Error() string {
	if e.Equation == "" {
		return "linearization failed: " + e.Msg
	}
	return fmt.Sprintf("linearization of %s failed: %s", e.Equation, e.Msg)
}
