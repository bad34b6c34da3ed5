package gensys

import (
	"fmt"
	"math"
	"math/cmplx"
)

// unstableAt reports whether the generalized eigenvalue at diagonal
// position i has modulus one or larger. A zero T diagonal is an infinite
// eigenvalue and counts as unstable.
func unstableAt(s, t *cmat, i int) bool {
	return cmplx.Abs(s.at(i, i)) >= cmplx.Abs(t.at(i, i))
}

// reorder permutes the generalized Schur form so that every stable
// eigenvalue precedes every unstable one, preserving the relative order
// inside each class. It returns the number of stable eigenvalues.
//
// The pass is a bubble over adjacent diagonal pairs; each offending pair
// is exchanged with a unitary 2x2 equivalence that keeps both triangles
// triangular.
func reorder(s, t, q, z *cmat) (int, error) {
	n := s.r
	for {
		swapped := false
		for i := 0; i < n-1; i++ {
			if unstableAt(s, t, i) && !unstableAt(s, t, i+1) {
				if err := swapPair(s, t, q, z, i); err != nil {
					return 0, err
				}
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
	stable := 0
	for i := 0; i < n; i++ {
		if !unstableAt(s, t, i) {
			stable++
		}
	}
	return stable, nil
}

// swapPair exchanges the generalized eigenvalues at diagonal positions i
// and i+1 of the triangular pair (S, T), updating Q and Z.
func swapPair(s, t, q, z *cmat, i int) error {
	a11, a12 := s.at(i, i), s.at(i, i+1)
	a22 := s.at(i+1, i+1)
	b11, b12 := t.at(i, i), t.at(i, i+1)
	b22 := t.at(i+1, i+1)

	d1 := a12*b22 - a22*b12
	d2 := a11*b22 - a22*b11

	x1, x2 := -d1, d2
	nx := math.Hypot(cmplx.Abs(x1), cmplx.Abs(x2))
	if nx == 0 {
		// Coincident eigenvalues; the exchange is a no-op.
		return nil
	}
	x1 /= complex(nx, 0)
	x2 /= complex(nx, 0)
	u := [2][2]complex128{
		{x1, -cmplx.Conj(x2)},
		{x2, cmplx.Conj(x1)},
	}
	s.applyRight2(i, u)
	t.applyRight2(i, u)
	z.applyRight2(i, u)

	w1 := t.at(i, i)
	w2 := t.at(i+1, i)
	if math.Hypot(cmplx.Abs(w1), cmplx.Abs(w2)) == 0 {
		w1 = s.at(i, i)
		w2 = s.at(i+1, i)
	}
	if math.Hypot(cmplx.Abs(w1), cmplx.Abs(w2)) == 0 {
		return fmt.Errorf("degenerate 2x2 block at position %d during eigenvalue exchange", i)
	}
	c, sr := givens(w1, w2)
	s.rotateRows(c, sr, i, i+1)
	t.rotateRows(c, sr, i, i+1)
	q.rotateRows(c, sr, i, i+1)
	s.set(i+1, i, 0)
	t.set(i+1, i, 0)
	return nil
}
