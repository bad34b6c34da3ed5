package app

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/engine"
	"github.com/macrolab/dsolve/internal/linearize"
)

// optionsFile is the HCL schema of the optional solver options file:
//
//	solver {
//	  tolerance      = 1e-10
//	  max_iterations = 200
//	}
//
//	guess {
//	  K_ss = 10
//	  L_ss = 0.3
//	}
type optionsFile struct {
	Solver *solverBlock `hcl:"solver,block"`
	Guess  *guessBlock  `hcl:"guess,block"`
}

type solverBlock struct {
	Tolerance     *float64 `hcl:"tolerance"`
	MaxIterations *int     `hcl:"max_iterations"`
}

type guessBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// loadOptions decodes an options file into engine options. An empty path
// yields the defaults.
func loadOptions(ctx context.Context, path, method string) (engine.Options, error) {
	logger := ctxlog.FromContext(ctx)
	opts := engine.Options{}
	if method == "numeric" {
		opts.Linearize.Method = linearize.MethodNumeric
	}
	if path == "" {
		return opts, nil
	}

	logger.Debug("decoding options file", "path", path)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return opts, fmt.Errorf("failed to parse options file %s: %s", path, diags.Error())
	}

	var raw optionsFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return opts, fmt.Errorf("failed to decode options file %s: %s", path, diags.Error())
	}

	if raw.Solver != nil {
		if raw.Solver.Tolerance != nil {
			opts.Calibration.Tolerance = *raw.Solver.Tolerance
		}
		if raw.Solver.MaxIterations != nil {
			opts.Calibration.MaxIterations = *raw.Solver.MaxIterations
		}
	}
	if raw.Guess != nil {
		guesses, err := decodeGuesses(raw.Guess.Body)
		if err != nil {
			return opts, fmt.Errorf("invalid guess block in %s: %w", path, err)
		}
		opts.Calibration.InitialGuess = guesses
		logger.Debug("initial guesses loaded", "count", len(guesses))
	}
	return opts, nil
}

// decodeGuesses reads every attribute of the guess block as a number
// keyed by the attribute name.
func decodeGuesses(body hcl.Body) (map[string]float64, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}
	out := make(map[string]float64, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %s: %s", name, diags.Error())
		}
		num, err := convert.Convert(val, cty.Number)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		f, _ := num.AsBigFloat().Float64()
		out[name] = f
	}
	return out, nil
}
