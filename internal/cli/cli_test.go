package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	_, shouldExit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
}

func TestParsePositionalModelPath(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"model.dsl"}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "model.dsl", cfg.ModelPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "analytic", cfg.Method)
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"--model", "rbc.model",
		"--options", "rbc.hcl",
		"--method", "numeric",
		"--log-format", "json",
		"--log-level", "debug",
	}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "rbc.model", cfg.ModelPath)
	assert.Equal(t, "rbc.hcl", cfg.OptionsPath)
	assert.Equal(t, "numeric", cfg.Method)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseCheckFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"--check", "rbc.model"}, &out)
	require.NoError(t, err)
	assert.True(t, cfg.Check)
	assert.Equal(t, "rbc.model", cfg.ModelPath)
}

func TestParseShorthand(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"-m", "rbc.model"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "rbc.model", cfg.ModelPath)
}

func TestParseInvalidValues(t *testing.T) {
	cases := map[string][]string{
		"bad log-format": {"--log-format", "xml", "model.dsl"},
		"bad log-level":  {"--log-level", "verbose", "model.dsl"},
		"bad method":     {"--method", "symbolic", "model.dsl"},
		"unknown flag":   {"--frobnicate", "model.dsl"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(args, &out)
			require.Error(t, err)

			exitErr, ok := err.(*ExitError)
			require.True(t, ok)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
