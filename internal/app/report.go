package app

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"

	"github.com/macrolab/dsolve/internal/engine"
	"github.com/macrolab/dsolve/internal/gensys"
)

// renderReport writes the human-readable solution report: calibration,
// eigenvalues and the state-space matrices.
func renderReport(w io.Writer, rep *engine.Report) {
	fmt.Fprintf(w, "model %s solved\n\n", rep.Model.Name)
	renderCalibration(w, rep)

	fmt.Fprintln(w)
	renderEigenvalues(w, rep.Solution)

	fmt.Fprintf(w, "\ntransition matrix G (states: %v)\n", rep.System.States)
	fmt.Fprintf(w, "%.6f\n", mat.Formatted(rep.Solution.G, mat.Prefix(""), mat.Squeeze()))
	if rep.Solution.H != nil {
		fmt.Fprintf(w, "\nshock impact H (shocks: %v)\n", rep.System.Shocks)
		fmt.Fprintf(w, "%.6f\n", mat.Formatted(rep.Solution.H, mat.Prefix(""), mat.Squeeze()))
	}
}

// renderCheck writes the parse-and-calibrate summary produced by check
// mode.
func renderCheck(w io.Writer, rep *engine.Report) {
	fmt.Fprintf(w, "model %s checked: %d identities, %d variables, %d shocks\n\n",
		rep.Model.Name, len(rep.Model.Equations), len(rep.Model.Variables), len(rep.Model.Shocks))
	renderCalibration(w, rep)
}

func renderCalibration(w io.Writer, rep *engine.Report) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "parameter\tvalue")
	for i, p := range rep.Model.Parameters {
		fmt.Fprintf(tw, "%s\t%.8g\n", p, rep.Calibration.Parameters[i])
	}
	fmt.Fprintln(tw, "\nvariable\tsteady state")
	for i, v := range rep.Model.Variables {
		fmt.Fprintf(tw, "%s\t%.8g\n", v, rep.Calibration.SteadyState[i])
	}
	tw.Flush()
}

// renderFailure writes the diagnostics for a model with no unique stable
// solution, including whatever pipeline stages did complete.
func renderFailure(w io.Writer, rep *engine.Report, f *gensys.Failure) {
	name := "model"
	if rep.Model != nil {
		name = rep.Model.Name
	}
	fmt.Fprintf(w, "%s has no unique stable solution\n\n", name)
	fmt.Fprintf(w, "failure kind:          %s\n", f.Kind)
	fmt.Fprintf(w, "unstable roots:        %d\n", f.Unstable)
	fmt.Fprintf(w, "expectational errors:  %d\n", f.ErrorDims)
	fmt.Fprintf(w, "detail: %s\n", f.Msg)
}

func renderEigenvalues(w io.Writer, sol *gensys.Solution) {
	fmt.Fprintln(w, "transition roots (stable first):")
	for _, ev := range sol.Eigenvalues {
		if math.IsInf(real(ev), 1) {
			fmt.Fprintln(w, "  inf")
			continue
		}
		if imag(ev) == 0 {
			fmt.Fprintf(w, "  %.6g\n", real(ev))
			continue
		}
		fmt.Fprintf(w, "  %.6g%+.6gi (|.| = %.6g)\n", real(ev), imag(ev), cmplx.Abs(ev))
	}
	fmt.Fprintf(w, "unstable count: %d, expectational error count: %d\n", sol.Unstable, sol.ErrorDims)
}
