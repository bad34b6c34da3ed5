package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv backs every lookup with plain slices and maps; anything out of
// range reports as unresolved.
type testEnv struct {
	params []float64
	steady []float64
	vars   map[[2]int]float64 // key: {index, offset}
	shocks []float64
}

func (e *testEnv) Param(i int) (float64, bool) {
	if i >= len(e.params) {
		return 0, false
	}
	return e.params[i], true
}

func (e *testEnv) Steady(i int) (float64, bool) {
	if i >= len(e.steady) {
		return 0, false
	}
	return e.steady[i], true
}

func (e *testEnv) Variable(i, offset int) (float64, bool) {
	v, ok := e.vars[[2]int{i, offset}]
	return v, ok
}

func (e *testEnv) Shock(i int) (float64, bool) {
	if i >= len(e.shocks) {
		return 0, false
	}
	return e.shocks[i], true
}

func TestEvalArithmetic(t *testing.T) {
	env := &testEnv{
		params: []float64{0.5, 3},
		vars:   map[[2]int]float64{{0, 0}: 2, {0, -1}: 4},
	}
	cases := map[string]struct {
		expr Expr
		want float64
	}{
		"number":   {&Num{Value: 1.5}, 1.5},
		"param":    {&Param{Name: "a", Index: 0}, 0.5},
		"variable": {&Var{Name: "x", Index: 0}, 2},
		"lag":      {&Var{Name: "x", Index: 0, Offset: -1}, 4},
		"negation": {&Unary{Op: OpNeg, X: &Num{Value: 3}}, -3},
		"sum": {
			&Binary{Op: OpAdd, X: &Var{Index: 0}, Y: &Param{Index: 1}},
			5,
		},
		"power": {
			&Binary{Op: OpPow, X: &Var{Index: 0}, Y: &Param{Index: 1}},
			8,
		},
		"quotient": {
			&Binary{Op: OpDiv, X: &Var{Index: 0, Offset: -1}, Y: &Var{Index: 0}},
			2,
		},
		"expectation passes through": {
			&Expect{Inner: &Binary{Op: OpMul, X: &Num{Value: 2}, Y: &Param{Index: 0}}},
			1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Eval(tc.expr, env)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-14)
		})
	}
}

func TestEvalUnresolved(t *testing.T) {
	env := &testEnv{}
	_, err := Eval(&Param{Name: "beta", Index: 2}, env)
	require.Error(t, err)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "beta", unresolved.Name)
	assert.False(t, unresolved.Steady)

	_, err = Eval(&SteadyRef{Name: "K_ss", Index: 0}, env)
	require.ErrorAs(t, err, &unresolved)
	assert.True(t, unresolved.Steady)
}

func TestEvalDomainErrors(t *testing.T) {
	env := &testEnv{vars: map[[2]int]float64{{0, 0}: -2}}
	t.Run("division by zero", func(t *testing.T) {
		_, err := Eval(&Binary{Op: OpDiv, X: &Num{Value: 1}, Y: &Num{Value: 0}}, env)
		var de *DomainError
		require.ErrorAs(t, err, &de)
	})
	t.Run("fractional power of negative base", func(t *testing.T) {
		_, err := Eval(&Binary{Op: OpPow, X: &Var{Index: 0}, Y: &Num{Value: 0.5}}, env)
		var de *DomainError
		require.ErrorAs(t, err, &de)
	})
	t.Run("integer power of negative base is fine", func(t *testing.T) {
		got, err := Eval(&Binary{Op: OpPow, X: &Var{Index: 0}, Y: &Num{Value: 2}}, env)
		require.NoError(t, err)
		assert.InDelta(t, 4, got, 1e-14)
	})
}

func TestResidual(t *testing.T) {
	eq := Equation{
		Name: "identity 1",
		LHS:  &Var{Name: "y", Index: 0},
		RHS:  &Param{Name: "a", Index: 0},
	}
	env := &testEnv{
		params: []float64{3},
		vars:   map[[2]int]float64{{0, 0}: 5},
	}
	got, err := Eval(eq.Residual(), env)
	require.NoError(t, err)
	assert.InDelta(t, 2, got, 1e-14)
}
