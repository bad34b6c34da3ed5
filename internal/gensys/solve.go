package gensys

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/linearize"
)

// Solution is the state-space law of motion recovered from a linearized
// system: x_t = G·x_{t-1} + H·eps_t in deviations from the steady state.
type Solution struct {
	// G is the square transition matrix over the full state vector,
	// expectational forecast states included.
	G *mat.Dense
	// H maps structural shock innovations into the states. It is nil
	// when the model declares no shocks.
	H *mat.Dense

	// Eigenvalues holds the transition roots of the pencil after
	// reordering, stable roots first. An infinite root is reported as
	// complex(+Inf, 0).
	Eigenvalues []complex128
	// Unstable is the count of roots with modulus >= 1.
	Unstable int
	// ErrorDims is the number of expectational error dimensions.
	ErrorDims int
}

// FailureKind classifies why no unique stable solution was produced.
type FailureKind int

const (
	// FailureExistence: more explosive roots than expectational error
	// dimensions, so no stable solution exists.
	FailureExistence FailureKind = iota
	// FailureUniqueness: fewer explosive roots than expectational error
	// dimensions, or a rank defect in the error loading, so the stable
	// solution is indeterminate.
	FailureUniqueness
	// FailureNumerical: the decomposition or back-substitution broke
	// down before the root counts could be trusted.
	FailureNumerical
)

func (k FailureKind) String() string {
	switch k {
	case FailureExistence:
		return "existence"
	case FailureUniqueness:
		return "uniqueness"
	case FailureNumerical:
		return "numerical degeneracy"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is the structured error returned when the model has no unique
// stable rational-expectations solution.
type Failure struct {
	Kind      FailureKind
	Unstable  int
	ErrorDims int
	Msg       string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure (%d unstable roots, %d expectational errors): %s",
		f.Kind, f.Unstable, f.ErrorDims, f.Msg)
}

const degenTol = 1e-12

// Solve computes the unique stable solution of the linearized system, or
// a *Failure describing why none exists. The computation is deterministic
// for a given input.
func Solve(ctx context.Context, sys *linearize.System) (*Solution, error) {
	log := ctxlog.FromContext(ctx)
	n := sys.Dim()
	k := sys.NumErrors()

	// The pencil is arranged with Gamma1 on the Hessenberg side so that
	// the many zero rows a model's static identities leave in Gamma1
	// surface as zero eigenvalues rather than zero divisors.
	s, t, q, z, err := qz(cmatFromDense(sys.Gamma1), cmatFromDense(sys.Gamma0))
	if err != nil {
		return nil, &Failure{Kind: FailureNumerical, ErrorDims: k, Msg: err.Error()}
	}

	scale := math.Max(s.maxAbs(), t.maxAbs())
	if scale == 0 {
		scale = 1
	}
	for i := 0; i < n; i++ {
		if cmplx.Abs(s.at(i, i)) <= degenTol*scale && cmplx.Abs(t.at(i, i)) <= degenTol*scale {
			return nil, &Failure{
				Kind:      FailureNumerical,
				ErrorDims: k,
				Msg:       fmt.Sprintf("singular pencil: coincident zero at diagonal position %d", i),
			}
		}
	}

	stable, err := reorder(s, t, q, z)
	if err != nil {
		return nil, &Failure{Kind: FailureNumerical, ErrorDims: k, Msg: err.Error()}
	}
	u := n - stable

	roots := make([]complex128, n)
	for i := 0; i < n; i++ {
		if cmplx.Abs(t.at(i, i)) <= degenTol*scale {
			roots[i] = complex(math.Inf(1), 0)
		} else {
			roots[i] = s.at(i, i) / t.at(i, i)
		}
	}
	log.Debug("pencil decomposed", "dim", n, "unstable", u, "errorDims", k)

	if u > k {
		return nil, &Failure{
			Kind: FailureExistence, Unstable: u, ErrorDims: k,
			Msg: fmt.Sprintf("%d explosive roots cannot be absorbed by %d expectational errors", u, k),
		}
	}
	if u < k {
		return nil, &Failure{
			Kind: FailureUniqueness, Unstable: u, ErrorDims: k,
			Msg: fmt.Sprintf("only %d explosive roots for %d expectational errors; solution is indeterminate", u, k),
		}
	}

	// Loading of the expectational errors on the unstable block.
	var phi *cmat
	if k > 0 {
		pi := cmatFromDense(sys.Pi)
		qpi := q.mul(pi)
		q2pi := qpi.slice(stable, n, 0, k)
		rankTol := degenTol * math.Max(q2pi.maxAbs(), 1)
		if rank(q2pi, rankTol) < u {
			return nil, &Failure{
				Kind: FailureUniqueness, Unstable: u, ErrorDims: k,
				Msg: "expectational error loading is rank deficient on the unstable block",
			}
		}
		q1pi := qpi.slice(0, stable, 0, k)
		// phi satisfies phi*(q2*Pi) = q1*Pi, solved through transposes.
		phiT, err := gaussSolve(q2pi.transpose(), q1pi.transpose())
		if err != nil {
			return nil, &Failure{Kind: FailureNumerical, Unstable: u, ErrorDims: k, Msg: err.Error()}
		}
		phi = phiT.transpose()
	}

	// Assemble [I -phi]·T and [I -phi]·S over the stable rows, close the
	// unstable block with the identity, and back-substitute.
	g0c := newCMat(n, n)
	g1c := newCMat(n, n)
	for i := 0; i < stable; i++ {
		for j := 0; j < n; j++ {
			vt, vs := t.at(i, j), s.at(i, j)
			if phi != nil {
				for m := 0; m < u; m++ {
					vt -= phi.at(i, m) * t.at(stable+m, j)
					vs -= phi.at(i, m) * s.at(stable+m, j)
				}
			}
			g0c.set(i, j, vt)
			g1c.set(i, j, vs)
		}
	}
	for i := stable; i < n; i++ {
		g0c.set(i, i, 1)
	}

	backTol := degenTol * math.Max(g0c.maxAbs(), 1)
	x, err := backSolveUpper(g0c, g1c, backTol)
	if err != nil {
		return nil, &Failure{Kind: FailureNumerical, Unstable: u, ErrorDims: k, Msg: err.Error()}
	}
	g := z.mul(x).mul(z.hermitian()).realPart()

	sol := &Solution{
		G:           g,
		Eigenvalues: roots,
		Unstable:    u,
		ErrorDims:   k,
	}

	if sys.Psi != nil {
		psi := q.mul(cmatFromDense(sys.Psi))
		rhs := newCMat(n, psi.c)
		for i := 0; i < stable; i++ {
			for j := 0; j < psi.c; j++ {
				v := psi.at(i, j)
				if phi != nil {
					for m := 0; m < u; m++ {
						v -= phi.at(i, m) * psi.at(stable+m, j)
					}
				}
				rhs.set(i, j, v)
			}
		}
		y, err := backSolveUpper(g0c, rhs, backTol)
		if err != nil {
			return nil, &Failure{Kind: FailureNumerical, Unstable: u, ErrorDims: k, Msg: err.Error()}
		}
		sol.H = z.mul(y).realPart()
	}
	return sol, nil
}
