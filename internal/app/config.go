package app

import (
	"errors"
	"fmt"
)

// Config holds everything an App instance needs to run one model.
type Config struct {
	// ModelPath points at the model definition file.
	ModelPath string
	// OptionsPath optionally points at an HCL file with solver options
	// and initial guesses.
	OptionsPath string

	LogFormat string
	LogLevel  string

	// Method selects the differentiation backend: "analytic" or "numeric".
	Method string

	// Check stops after parsing and steady-state resolution, without
	// linearizing or solving.
	Check bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	switch cfg.Method {
	case "", "analytic", "numeric":
	default:
		return nil, fmt.Errorf("invalid method %q: must be 'analytic' or 'numeric'", cfg.Method)
	}
	return &cfg, nil
}
