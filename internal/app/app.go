// Package app wires configuration, logging and the model pipeline into a
// runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/macrolab/dsolve/internal/ctxlog"
	"github.com/macrolab/dsolve/internal/engine"
	"github.com/macrolab/dsolve/internal/gensys"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp constructs a fully initialized App with its own isolated logger.
// Logs are written to errW; the rendered report goes to outW.
func NewApp(outW, errW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("logger configured")
	return &App{outW: outW, logger: logger, config: cfg}
}

// Run loads the model file, drives the pipeline and renders the result.
// A solver failure is rendered as diagnostics and returned as the error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	src, err := os.ReadFile(a.config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}

	opts, err := loadOptions(ctx, a.config.OptionsPath, a.config.Method)
	if err != nil {
		return err
	}
	opts.CheckOnly = a.config.Check

	rep, err := engine.Run(ctx, string(src), opts)
	if err != nil {
		var failure *gensys.Failure
		if errors.As(err, &failure) {
			renderFailure(a.outW, rep, failure)
		}
		return err
	}

	if a.config.Check {
		renderCheck(a.outW, rep)
		return nil
	}
	renderReport(a.outW, rep)
	return nil
}
