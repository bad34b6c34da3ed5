package gensys

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	ulp          = 2.220446049250313e-16
	sweepsPerEig = 50
)

// qz computes the complex generalized Schur decomposition of the pencil
// (P, W): unitary Q and Z such that S = Q·P·Z and T = Q·W·Z are both
// upper triangular. The generalized eigenvalues of the pencil are the
// ratios S[i][i]/T[i][i].
//
// The reduction is the classical Hessenberg-triangular preparation
// followed by single-shift implicit QZ sweeps with deflation. Pairs that
// refuse to converge within the sweep budget are reported as an error.
func qz(p, w *cmat) (s, t, q, z *cmat, err error) {
	n := p.r
	s, t = p.clone(), w.clone()
	q, z = cmatIdentity(n), cmatIdentity(n)
	if n == 1 {
		return s, t, q, z, nil
	}

	// Triangularize T with left rotations, carried through S and Q.
	for j := 0; j < n; j++ {
		for i := n - 1; i > j; i-- {
			c, sr := givens(t.at(i-1, j), t.at(i, j))
			t.rotateRows(c, sr, i-1, i)
			s.rotateRows(c, sr, i-1, i)
			q.rotateRows(c, sr, i-1, i)
			t.set(i, j, 0)
		}
	}

	// Reduce S to upper Hessenberg while keeping T triangular.
	for j := 0; j < n-2; j++ {
		for i := n - 1; i > j+1; i-- {
			c, sr := givens(s.at(i-1, j), s.at(i, j))
			s.rotateRows(c, sr, i-1, i)
			t.rotateRows(c, sr, i-1, i)
			q.rotateRows(c, sr, i-1, i)
			s.set(i, j, 0)

			c, sr = givensRight(t.at(i, i-1), t.at(i, i))
			t.rotateCols(c, sr, i-1, i)
			s.rotateCols(c, sr, i-1, i)
			z.rotateCols(c, sr, i-1, i)
			t.set(i, i-1, 0)
		}
	}

	scale := math.Max(s.maxAbs(), t.maxAbs())
	if scale == 0 {
		scale = 1
	}
	small := ulp * scale

	hi := n - 1
	budget := sweepsPerEig * n
	sinceDeflate := 0
	for hi > 0 {
		if negligible(s, hi, small) {
			s.set(hi, hi-1, 0)
			hi--
			sinceDeflate = 0
			continue
		}
		// An effectively zero T diagonal at the corner is an infinite
		// eigenvalue; rotate it out and deflate directly.
		if cmplx.Abs(t.at(hi, hi)) <= small {
			t.set(hi, hi, 0)
			c, sr := givensRight(s.at(hi, hi-1), s.at(hi, hi))
			s.rotateCols(c, sr, hi-1, hi)
			t.rotateCols(c, sr, hi-1, hi)
			z.rotateCols(c, sr, hi-1, hi)
			s.set(hi, hi-1, 0)
			t.set(hi, hi-1, 0)
			hi--
			sinceDeflate = 0
			continue
		}
		if budget <= 0 {
			return nil, nil, nil, nil, fmt.Errorf("QZ iteration failed to converge with %d eigenvalues remaining", hi+1)
		}
		budget--
		sinceDeflate++

		lo := 0
		for i := hi; i > 0; i-- {
			if negligible(s, i, small) {
				s.set(i, i-1, 0)
				lo = i
				break
			}
		}
		sweep(s, t, q, z, lo, hi, sinceDeflate)
	}
	return s, t, q, z, nil
}

func negligible(s *cmat, i int, small float64) bool {
	tol := ulp * (cmplx.Abs(s.at(i-1, i-1)) + cmplx.Abs(s.at(i, i)))
	if tol < small {
		tol = small
	}
	return cmplx.Abs(s.at(i, i-1)) <= tol
}

// sweep runs one implicit single-shift QZ step on the active window
// [lo, hi], restoring the Hessenberg-triangular structure behind the
// bulge as it travels.
func sweep(s, t, q, z *cmat, lo, hi, iter int) {
	sigma := shift(s, t, lo, hi, iter)
	x := s.at(lo, lo) - sigma*t.at(lo, lo)
	y := s.at(lo+1, lo)
	for k := lo; k < hi; k++ {
		if k > lo {
			x = s.at(k, k-1)
			y = s.at(k+1, k-1)
		}
		c, sr := givens(x, y)
		s.rotateRows(c, sr, k, k+1)
		t.rotateRows(c, sr, k, k+1)
		q.rotateRows(c, sr, k, k+1)
		if k > lo {
			s.set(k+1, k-1, 0)
		}

		c, sr = givensRight(t.at(k+1, k), t.at(k+1, k+1))
		t.rotateCols(c, sr, k, k+1)
		s.rotateCols(c, sr, k, k+1)
		z.rotateCols(c, sr, k, k+1)
		t.set(k+1, k, 0)
	}
}

// shift picks the eigenvalue of the trailing 2x2 pencil block closest to
// the corner ratio. Every tenth stalled sweep substitutes an exceptional
// shift to break symmetric cycling.
func shift(s, t *cmat, lo, hi, iter int) complex128 {
	if iter%10 == 0 {
		mag := cmplx.Abs(s.at(hi, hi-1))
		if hi-1 > lo {
			mag += cmplx.Abs(s.at(hi-1, hi-2))
		}
		return complex(0.75*mag, 0.4375*mag)
	}
	s11, s12 := s.at(hi-1, hi-1), s.at(hi-1, hi)
	s21, s22 := s.at(hi, hi-1), s.at(hi, hi)
	t11, t12 := t.at(hi-1, hi-1), t.at(hi-1, hi)
	t22 := t.at(hi, hi)

	// det(S2 - lambda*T2) = a*lambda^2 + b*lambda + c
	a := t11 * t22
	b := s21*t12 - s11*t22 - s22*t11
	c := s11*s22 - s12*s21

	if cmplx.Abs(a) <= ulp*(cmplx.Abs(b)+cmplx.Abs(c)) {
		if b == 0 {
			return 0
		}
		return -c / b
	}
	disc := cmplx.Sqrt(b*b - 4*a*c)
	r1 := (-b + disc) / (2 * a)
	r2 := (-b - disc) / (2 * a)
	if cmplx.Abs(t22) > ulp*cmplx.Abs(s22) {
		corner := s22 / t22
		if cmplx.Abs(r1-corner) < cmplx.Abs(r2-corner) {
			return r1
		}
		return r2
	}
	if cmplx.Abs(r1) > cmplx.Abs(r2) {
		return r1
	}
	return r2
}
