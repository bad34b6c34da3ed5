package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolab/dsolve/internal/model"
)

const smallModel = `
# AR(1) output with a demand shifter.
block Small {
    identities {
        y[] = rho * y[-1] + g * z[] + eps_y[];
        z[] = z_bar + eps_z[];
    };
    shocks {
        eps_y[];
        eps_z[];
    };
    calibration {
        rho   = 0.9;
        g     = 0.2;
        z_bar = 1;
    };
};
`

func TestParseSmallModel(t *testing.T) {
	m, err := Parse(smallModel)
	require.NoError(t, err)

	assert.Equal(t, "Small", m.Name)
	assert.Equal(t, []string{"y", "z"}, m.Variables)
	assert.Equal(t, []string{"eps_y", "eps_z"}, m.Shocks)
	assert.Equal(t, []string{"rho", "g", "z_bar"}, m.Parameters)
	require.Len(t, m.Equations, 2)
	require.Len(t, m.Calibration, 3)

	for i, stmt := range m.Calibration {
		assert.Equal(t, model.AssignParameter, stmt.Kind)
		assert.Equal(t, i, stmt.Index)
	}
}

func TestParseShockTyping(t *testing.T) {
	m, err := Parse(smallModel)
	require.NoError(t, err)

	// eps_y appears on the first identity's right-hand side as a Shock
	// node, not a Var.
	found := false
	model.Walk(m.Equations[0].RHS, func(e model.Expr) {
		if s, ok := e.(*model.Shock); ok {
			found = true
			assert.Equal(t, "eps_y", s.Name)
			assert.Equal(t, 0, s.Index)
		}
	})
	assert.True(t, found)
}

func TestParsePrecedence(t *testing.T) {
	wrap := func(expr string) string {
		return fmt.Sprintf(`
block P {
    identities { y[] = %s; };
    calibration { a = 1; b = 2; c = 3; };
};
`, expr)
	}
	cases := map[string]struct {
		expr string
		want string
	}{
		"mul before add":   {"a + b * c", "(a + (b * c))"},
		"left assoc sub":   {"a - b - c", "((a - b) - c)"},
		"pow right assoc":  {"a ^ b ^ c", "(a ^ (b ^ c))"},
		"pow before mul":   {"a * b ^ c", "(a * (b ^ c))"},
		"unary minus":      {"-a + b", "((-a) + b)"},
		"unary before pow": {"-a ^ b", "(-(a ^ b))"},
		"parens override":  {"(a + b) * c", "((a + b) * c)"},
		"division chain":   {"a / b / c", "((a / b) / c)"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := Parse(wrap(tc.expr))
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Equations[0].RHS.String())
		})
	}
}

func TestParseTimeIndices(t *testing.T) {
	src := `
block T {
    identities { x[] = a * x[-1] + b * x[1]; };
    calibration { a = 0.5; b = 0.25; };
};
`
	m, err := Parse(src)
	require.NoError(t, err)

	offsets := map[int]bool{}
	model.Walk(m.Equations[0].RHS, func(e model.Expr) {
		if v, ok := e.(*model.Var); ok {
			offsets[v.Offset] = true
		}
	})
	assert.Equal(t, map[int]bool{-1: true, 1: true}, offsets)
}

func TestParseExpectation(t *testing.T) {
	src := `
block E1 {
    identities { x[] = beta * E[][ x[1] ]; };
    calibration { beta = 0.99; };
};
`
	m, err := Parse(src)
	require.NoError(t, err)

	var inner model.Expr
	model.Walk(m.Equations[0].RHS, func(e model.Expr) {
		if ex, ok := e.(*model.Expect); ok {
			inner = ex.Inner
		}
	})
	require.NotNil(t, inner)
	v, ok := inner.(*model.Var)
	require.True(t, ok)
	assert.Equal(t, 1, v.Offset)
}

func TestParseSteadyStateNames(t *testing.T) {
	src := `
block S {
    identities {
        x[] = rho * x[-1] + (1 - rho) * x_ss + e_x[];
    };
    shocks { e_x[]; };
    calibration {
        rho  = 0.8;
        x_ss = 2;
    };
};
`
	m, err := Parse(src)
	require.NoError(t, err)

	// x_ss binds to the variable's steady value, not a parameter.
	assert.Equal(t, []string{"rho"}, m.Parameters)
	var sr *model.SteadyRef
	model.Walk(m.Equations[0].RHS, func(e model.Expr) {
		if s, ok := e.(*model.SteadyRef); ok {
			sr = s
		}
	})
	require.NotNil(t, sr)
	assert.Equal(t, 0, sr.Index)

	require.Len(t, m.Calibration, 2)
	assert.Equal(t, model.AssignSteady, m.Calibration[1].Kind)
	assert.Equal(t, 0, m.Calibration[1].Index)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		src     string
		wantMsg string
	}{
		"unbalanced brace": {
			src:     `block B { identities { x[] = 1; };`,
			wantMsg: "",
		},
		"illegal character": {
			src: `block B { identities { x[] = 1 @ 2; }; };`,
		},
		"offset out of range": {
			src: `block B { identities { x[] = x[-2]; }; };`,
		},
		"missing semicolon": {
			src: `block B { identities { x[] = 1 }; };`,
		},
		"unknown section": {
			src: `block B { equations { x[] = 1; }; };`,
		},
		"duplicate section": {
			src: `block B { identities { x[] = 1; }; identities { y[] = 1; }; };`,
		},
		"duplicate shock": {
			src: `block B { identities { x[] = e[]; }; shocks { e[]; e[]; }; };`,
		},
		"undeclared identifier": {
			src:     `block B { identities { x[] = rho * x[-1]; }; };`,
			wantMsg: "undeclared identifier",
		},
		"calibrating a variable": {
			src: `block B { identities { x[] = a; }; calibration { a = 1; x = 2; }; };`,
		},
		"calibrating a shock": {
			src: `block B { identities { x[] = e[]; }; shocks { e[]; }; calibration { e = 1; }; };`,
		},
		"duplicate calibration": {
			src: `block B { identities { x[] = a; }; calibration { a = 1; a = 2; }; };`,
		},
		"unmatched steady name": {
			src: `block B { identities { x[] = a; }; calibration { a = 1; q_ss = 2; }; };`,
		},
		"time index in calibration": {
			src: `block B { identities { x[] = a; }; calibration { a = x[-1]; }; };`,
		},
		"lagged shock": {
			src: `block B { identities { x[] = e[-1]; }; shocks { e[]; }; };`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			if tc.wantMsg != "" {
				assert.ErrorContains(t, err, tc.wantMsg)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	src := "block B {\n    identities {\n        x[] = ;\n    };\n};"
	_, err := Parse(src)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}
