// Package engine runs the full model pipeline: parse, calibrate,
// linearize, solve. It is the programmatic entry point the CLI and the
// tests drive.
package engine

import (
	"context"
	"fmt"

	"github.com/macrolab/dsolve/internal/calib"
	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/gensys"
	"github.com/macrolab/dsolve/internal/linearize"
	"github.com/macrolab/dsolve/internal/model"
	"github.com/macrolab/dsolve/internal/parser"
)

// Options collects per-stage tuning knobs.
type Options struct {
	Calibration calib.Options
	Linearize   linearize.Options

	// CheckOnly stops the pipeline after the steady state is resolved,
	// leaving Report.System and Report.Solution nil.
	CheckOnly bool
}

// Report carries the artifacts of every completed stage. When Run
// returns an error, the fields up to the failing stage are still
// populated so callers can render diagnostics.
type Report struct {
	Model       *model.Model
	Calibration *calib.Result
	System      *linearize.System
	Solution    *gensys.Solution
}

// Run drives a model definition through the whole pipeline.
func Run(ctx context.Context, src string, opts Options) (*Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := &Report{}

	m, err := parser.Parse(src)
	if err != nil {
		return rep, fmt.Errorf("parse: %w", err)
	}
	rep.Model = m
	log.Info("model parsed",
		"model", m.Name,
		"variables", len(m.Variables),
		"shocks", len(m.Shocks),
		"parameters", len(m.Parameters),
		"identities", len(m.Equations))

	res, err := calib.Resolve(ctx, m, opts.Calibration)
	if err != nil {
		return rep, fmt.Errorf("calibrate: %w", err)
	}
	rep.Calibration = res
	log.Info("steady state resolved", "iterations", res.Iterations)

	if opts.CheckOnly {
		log.Info("check complete, skipping linearization and solve")
		return rep, nil
	}

	sys, err := linearize.Linearize(ctx, m, res, opts.Linearize)
	if err != nil {
		return rep, fmt.Errorf("linearize: %w", err)
	}
	rep.System = sys
	log.Info("system linearized",
		"states", sys.Dim(),
		"shocks", len(sys.Shocks),
		"expectationalErrors", sys.NumErrors())

	sol, err := gensys.Solve(ctx, sys)
	if err != nil {
		return rep, fmt.Errorf("solve: %w", err)
	}
	rep.Solution = sol
	log.Info("model solved", "unstableRoots", sol.Unstable)
	return rep, nil
}
