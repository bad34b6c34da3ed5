package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func x() *Var            { return &Var{Name: "x", Index: 0} }
func xlag() *Var         { return &Var{Name: "x", Index: 0, Offset: -1} }
func y() *Var            { return &Var{Name: "y", Index: 1} }
func a() *Param          { return &Param{Name: "a", Index: 0} }
func num(v float64) *Num { return &Num{Value: v} }

func diffEnv() *testEnv {
	return &testEnv{
		params: []float64{0.36},
		vars: map[[2]int]float64{
			{0, 0}:  2.0,
			{0, -1}: 1.5,
			{1, 0}:  3.0,
		},
		shocks: []float64{0},
	}
}

// evalDiff differentiates symbolically and evaluates the result.
func evalDiff(t *testing.T, e Expr, target Target) float64 {
	t.Helper()
	d, err := Diff(e, target)
	require.NoError(t, err)
	v, err := Eval(d, diffEnv())
	require.NoError(t, err)
	return v
}

// numericDiff perturbs the target slot with a centered difference.
func numericDiff(t *testing.T, e Expr, target Target) float64 {
	t.Helper()
	const h = 1e-6
	eval := func(shift float64) float64 {
		env := diffEnv()
		if target.Kind == TargetVar {
			env.vars[[2]int{target.Index, target.Offset}] += shift
		} else {
			env.shocks[target.Index] += shift
		}
		v, err := Eval(e, env)
		require.NoError(t, err)
		return v
	}
	return (eval(h) - eval(-h)) / (2 * h)
}

func TestDiffMatchesNumeric(t *testing.T) {
	dx := Target{Kind: TargetVar, Index: 0}
	dlag := Target{Kind: TargetVar, Index: 0, Offset: -1}
	dshock := Target{Kind: TargetShock, Index: 0}

	cases := map[string]struct {
		expr   Expr
		target Target
	}{
		"linear":      {&Binary{Op: OpAdd, X: x(), Y: y()}, dx},
		"product":     {&Binary{Op: OpMul, X: x(), Y: y()}, dx},
		"quotient":    {&Binary{Op: OpDiv, X: y(), Y: x()}, dx},
		"power":       {&Binary{Op: OpPow, X: x(), Y: a()}, dx},
		"nested": {
			&Binary{Op: OpMul,
				X: &Binary{Op: OpPow, X: xlag(), Y: a()},
				Y: &Binary{Op: OpSub, X: num(1), Y: x()}},
			dx,
		},
		"lagged slot": {
			&Binary{Op: OpPow, X: xlag(), Y: num(2)},
			dlag,
		},
		"shock": {
			&Binary{Op: OpMul, X: num(0.5), Y: &Shock{Name: "eps", Index: 0}},
			dshock,
		},
		"negation": {&Unary{Op: OpNeg, X: &Binary{Op: OpMul, X: x(), Y: x()}}, dx},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := evalDiff(t, tc.expr, tc.target)
			want := numericDiff(t, tc.expr, tc.target)
			assert.InDelta(t, want, got, 1e-6)
		})
	}
}

func TestDiffIndependentSlots(t *testing.T) {
	// The same variable at a different offset is a distinct slot.
	d, err := Diff(x(), Target{Kind: TargetVar, Index: 0, Offset: -1})
	require.NoError(t, err)
	assert.Equal(t, &Num{Value: 0}, d)

	d, err = Diff(a(), Target{Kind: TargetVar, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, &Num{Value: 0}, d)
}

func TestDiffConstantFolding(t *testing.T) {
	// d/dx (x + a) folds to 1, not 1 + 0.
	d, err := Diff(&Binary{Op: OpAdd, X: x(), Y: a()}, Target{Kind: TargetVar, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, &Num{Value: 1}, d)

	// A subtree without the target folds to exactly zero.
	d, err = Diff(&Binary{Op: OpPow, X: y(), Y: a()}, Target{Kind: TargetVar, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, &Num{Value: 0}, d)
}

func TestDiffRejections(t *testing.T) {
	t.Run("expectation operator", func(t *testing.T) {
		_, err := Diff(&Expect{Inner: x()}, Target{Kind: TargetVar, Index: 0})
		require.Error(t, err)
	})

	t.Run("target in exponent", func(t *testing.T) {
		_, err := Diff(&Binary{Op: OpPow, X: a(), Y: x()}, Target{Kind: TargetVar, Index: 0})
		require.Error(t, err)
	})
}
