package model

// Equation is a single equilibrium identity, lhs = rhs, that must hold in
// every period. The solver works with the residual lhs - rhs.
type Equation struct {
	Name string // positional name, e.g. "identity 3"
	LHS  Expr
	RHS  Expr
}

// Residual builds the residual expression lhs - rhs for the identity.
func (e Equation) Residual() Expr {
	return &Binary{Op: OpSub, X: e.LHS, Y: e.RHS}
}

// AssignKind distinguishes the two calibration statement forms.
type AssignKind int

const (
	// AssignParameter is a direct parameter assignment, `name = expr;`.
	AssignParameter AssignKind = iota
	// AssignSteady is a steady-state assignment, `name_ss = expr;`.
	AssignSteady
)

// Assignment is one calibration statement. Statements are evaluated in
// declaration order; a right-hand side referencing a not-yet-resolved
// steady-state name joins the implicit root-finding system instead.
type Assignment struct {
	Kind  AssignKind
	Name  string // the assigned surface name ("beta" or "K_ss")
	Index int    // parameter index, or variable index for steady assignments
	RHS   Expr
	Line  int // source line, for diagnostics
}

// Model is the immutable result of parsing one model block: the interned
// symbol tables, the ordered identities and the ordered calibration block.
type Model struct {
	Name string

	// Variables, Shocks and Parameters are the interned symbol tables; a
	// symbol's index is its position in the slice.
	Variables  []string
	Shocks     []string
	Parameters []string

	Equations   []Equation
	Calibration []Assignment
}

// VariableIndex resolves a variable name to its interned index.
func (m *Model) VariableIndex(name string) (int, bool) {
	return indexOf(m.Variables, name)
}

// ShockIndex resolves a shock name to its interned index.
func (m *Model) ShockIndex(name string) (int, bool) {
	return indexOf(m.Shocks, name)
}

// ParameterIndex resolves a parameter name to its interned index.
func (m *Model) ParameterIndex(name string) (int, bool) {
	return indexOf(m.Parameters, name)
}

func indexOf(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
