package gensys

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// cmat is a dense complex matrix in row-major order. It carries just the
// operations the QZ decomposition and the solution back-out need; real
// matrices everywhere else in the engine are gonum Dense matrices.
type cmat struct {
	r, c int
	d    []complex128
}

func newCMat(r, c int) *cmat {
	return &cmat{r: r, c: c, d: make([]complex128, r*c)}
}

func cmatIdentity(n int) *cmat {
	m := newCMat(n, n)
	for i := 0; i < n; i++ {
		m.set(i, i, 1)
	}
	return m
}

func cmatFromDense(src *mat.Dense) *cmat {
	r, c := src.Dims()
	m := newCMat(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.set(i, j, complex(src.At(i, j), 0))
		}
	}
	return m
}

func (m *cmat) at(i, j int) complex128     { return m.d[i*m.c+j] }
func (m *cmat) set(i, j int, v complex128) { m.d[i*m.c+j] = v }

func (m *cmat) clone() *cmat {
	out := newCMat(m.r, m.c)
	copy(out.d, m.d)
	return out
}

// slice copies the half-open row/column range [r0,r1)x[c0,c1).
func (m *cmat) slice(r0, r1, c0, c1 int) *cmat {
	out := newCMat(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			out.set(i-r0, j-c0, m.at(i, j))
		}
	}
	return out
}

func (m *cmat) mul(b *cmat) *cmat {
	out := newCMat(m.r, b.c)
	for i := 0; i < m.r; i++ {
		for k := 0; k < m.c; k++ {
			v := m.at(i, k)
			if v == 0 {
				continue
			}
			for j := 0; j < b.c; j++ {
				out.d[i*out.c+j] += v * b.at(k, j)
			}
		}
	}
	return out
}

func (m *cmat) sub(b *cmat) *cmat {
	out := newCMat(m.r, m.c)
	for i := range m.d {
		out.d[i] = m.d[i] - b.d[i]
	}
	return out
}

// transpose returns the plain transpose without conjugation.
func (m *cmat) transpose() *cmat {
	out := newCMat(m.c, m.r)
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.set(j, i, m.at(i, j))
		}
	}
	return out
}

// hermitian returns the conjugate transpose.
func (m *cmat) hermitian() *cmat {
	out := newCMat(m.c, m.r)
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.set(j, i, cmplx.Conj(m.at(i, j)))
		}
	}
	return out
}

// realPart drops the (numerically negligible) imaginary parts into a
// gonum matrix.
func (m *cmat) realPart() *mat.Dense {
	out := mat.NewDense(m.r, m.c, nil)
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.Set(i, j, real(m.at(i, j)))
		}
	}
	return out
}

func (m *cmat) maxAbs() float64 {
	v := 0.0
	for _, e := range m.d {
		v = math.Max(v, cmplx.Abs(e))
	}
	return v
}

// givens computes a unitary rotation G = [[c, s], [-conj(s), c]] with real
// c such that G·(a, b)ᵀ = (r, 0)ᵀ.
func givens(a, b complex128) (float64, complex128) {
	if b == 0 {
		return 1, 0
	}
	if a == 0 {
		return 0, 1
	}
	n := math.Hypot(cmplx.Abs(a), cmplx.Abs(b))
	c := cmplx.Abs(a) / n
	s := a / complex(cmplx.Abs(a), 0) * cmplx.Conj(b) / complex(n, 0)
	return c, s
}

// givensRight computes a rotation R = [[c, s], [-conj(s), c]] such that
// post-multiplying a matrix by R zeroes the row entry x against its right
// neighbour y: c·x - conj(s)·y = 0.
func givensRight(x, y complex128) (float64, complex128) {
	if x == 0 {
		return 1, 0
	}
	if y == 0 {
		return 0, 1
	}
	n := math.Hypot(cmplx.Abs(x), cmplx.Abs(y))
	c := cmplx.Abs(y) / n
	s := cmplx.Conj(x) * (y / complex(cmplx.Abs(y), 0)) / complex(n, 0)
	return c, s
}

// rotateRows applies G = [[c, s], [-conj(s), c]] to rows i and k.
func (m *cmat) rotateRows(c float64, s complex128, i, k int) {
	for j := 0; j < m.c; j++ {
		vi, vk := m.at(i, j), m.at(k, j)
		m.set(i, j, complex(c, 0)*vi+s*vk)
		m.set(k, j, -cmplx.Conj(s)*vi+complex(c, 0)*vk)
	}
}

// rotateCols post-multiplies by R = [[c, s], [-conj(s), c]] on columns j
// and k: col_j' = c·col_j - conj(s)·col_k, col_k' = s·col_j + c·col_k.
func (m *cmat) rotateCols(c float64, s complex128, j, k int) {
	for i := 0; i < m.r; i++ {
		vj, vk := m.at(i, j), m.at(i, k)
		m.set(i, j, complex(c, 0)*vj-cmplx.Conj(s)*vk)
		m.set(i, k, s*vj+complex(c, 0)*vk)
	}
}

// applyRight2 post-multiplies columns j and j+1 by an arbitrary 2x2
// unitary block u.
func (m *cmat) applyRight2(j int, u [2][2]complex128) {
	for i := 0; i < m.r; i++ {
		v0, v1 := m.at(i, j), m.at(i, j+1)
		m.set(i, j, v0*u[0][0]+v1*u[1][0])
		m.set(i, j+1, v0*u[0][1]+v1*u[1][1])
	}
}

// gaussSolve solves A·X = B in place by Gaussian elimination with partial
// pivoting. A must be square.
func gaussSolve(a, b *cmat) (*cmat, error) {
	n := a.r
	lu := a.clone()
	x := b.clone()
	for col := 0; col < n; col++ {
		// pivot
		p := col
		best := cmplx.Abs(lu.at(col, col))
		for i := col + 1; i < n; i++ {
			if v := cmplx.Abs(lu.at(i, col)); v > best {
				best, p = v, i
			}
		}
		if best == 0 {
			return nil, fmt.Errorf("singular matrix in complex solve (column %d)", col)
		}
		if p != col {
			swapRows(lu, p, col)
			swapRows(x, p, col)
		}
		piv := lu.at(col, col)
		for i := col + 1; i < n; i++ {
			f := lu.at(i, col) / piv
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				lu.set(i, j, lu.at(i, j)-f*lu.at(col, j))
			}
			for j := 0; j < x.c; j++ {
				x.set(i, j, x.at(i, j)-f*x.at(col, j))
			}
		}
	}
	// back substitution
	for i := n - 1; i >= 0; i-- {
		for j := 0; j < x.c; j++ {
			v := x.at(i, j)
			for k := i + 1; k < n; k++ {
				v -= lu.at(i, k) * x.at(k, j)
			}
			x.set(i, j, v/lu.at(i, i))
		}
	}
	return x, nil
}

func swapRows(m *cmat, i, k int) {
	for j := 0; j < m.c; j++ {
		vi := m.at(i, j)
		m.set(i, j, m.at(k, j))
		m.set(k, j, vi)
	}
}

// backSolveUpper solves U·X = B for upper-triangular U. A diagonal entry
// below tol is reported as singular.
func backSolveUpper(u, b *cmat, tol float64) (*cmat, error) {
	n := u.r
	x := b.clone()
	for i := n - 1; i >= 0; i-- {
		d := u.at(i, i)
		if cmplx.Abs(d) <= tol {
			return nil, fmt.Errorf("upper-triangular system singular at row %d", i)
		}
		for j := 0; j < x.c; j++ {
			v := x.at(i, j)
			for k := i + 1; k < n; k++ {
				v -= u.at(i, k) * x.at(k, j)
			}
			x.set(i, j, v/d)
		}
	}
	return x, nil
}

// rank estimates the numerical rank by row-reducing a working copy with
// full pivoting and counting pivots above tol.
func rank(m *cmat, tol float64) int {
	w := m.clone()
	rk := 0
	row := 0
	for col := 0; col < w.c && row < w.r; col++ {
		p := -1
		best := tol
		for i := row; i < w.r; i++ {
			if v := cmplx.Abs(w.at(i, col)); v > best {
				best, p = v, i
			}
		}
		if p < 0 {
			continue
		}
		if p != row {
			swapRows(w, p, row)
		}
		piv := w.at(row, col)
		for i := row + 1; i < w.r; i++ {
			f := w.at(i, col) / piv
			for j := col; j < w.c; j++ {
				w.set(i, j, w.at(i, j)-f*w.at(row, j))
			}
		}
		rk++
		row++
	}
	return rk
}
