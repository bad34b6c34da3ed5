package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolab/dsolve/internal/linearize"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const arModel = `
block AR {
    identities {
        x[] = a * x[-1] + e_x[];
    };
    shocks { e_x[]; };
    calibration { a = 0.8; };
};
`

func TestAppRunSolvesModel(t *testing.T) {
	modelPath := writeFile(t, "ar.model", arModel)
	cfg, err := NewConfig(Config{ModelPath: modelPath, LogLevel: "error"})
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	a := NewApp(&out, &errOut, cfg)
	require.NoError(t, a.Run(context.Background()))

	report := out.String()
	assert.Contains(t, report, "model AR solved")
	assert.Contains(t, report, "transition roots")
	assert.Contains(t, report, "0.8")
}

func TestAppRunCheckMode(t *testing.T) {
	modelPath := writeFile(t, "ar.model", arModel)
	cfg, err := NewConfig(Config{ModelPath: modelPath, LogLevel: "error", Check: true})
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	a := NewApp(&out, &errOut, cfg)
	require.NoError(t, a.Run(context.Background()))

	report := out.String()
	assert.Contains(t, report, "model AR checked")
	assert.Contains(t, report, "steady state")
	assert.NotContains(t, report, "transition roots")
}

func TestAppRunRendersFailure(t *testing.T) {
	modelPath := writeFile(t, "indet.model", `
block Indet {
    identities {
        x[] = 2 * E[][ x[1] ];
    };
};
`)
	cfg, err := NewConfig(Config{ModelPath: modelPath, LogLevel: "error"})
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	a := NewApp(&out, &errOut, cfg)
	err = a.Run(context.Background())
	require.Error(t, err)

	report := out.String()
	assert.Contains(t, report, "no unique stable solution")
	assert.Contains(t, report, "uniqueness")
}

func TestAppRunMissingModelFile(t *testing.T) {
	cfg, err := NewConfig(Config{ModelPath: "/nonexistent/model.dsl"})
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	a := NewApp(&out, &errOut, cfg)
	require.Error(t, a.Run(context.Background()))
}

func TestLoadOptions(t *testing.T) {
	path := writeFile(t, "opts.hcl", `
solver {
  tolerance      = 1e-8
  max_iterations = 50
}

guess {
  K_ss = 12
  chi  = 8
}
`)
	opts, err := loadOptions(context.Background(), path, "numeric")
	require.NoError(t, err)

	assert.InDelta(t, 1e-8, opts.Calibration.Tolerance, 1e-20)
	assert.Equal(t, 50, opts.Calibration.MaxIterations)
	assert.Equal(t, linearize.MethodNumeric, opts.Linearize.Method)
	assert.InDelta(t, 12.0, opts.Calibration.InitialGuess["K_ss"], 1e-12)
	assert.InDelta(t, 8.0, opts.Calibration.InitialGuess["chi"], 1e-12)
}

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := loadOptions(context.Background(), "", "")
	require.NoError(t, err)
	assert.Zero(t, opts.Calibration.Tolerance)
	assert.Equal(t, linearize.MethodAnalytic, opts.Linearize.Method)
}

func TestLoadOptionsBadFile(t *testing.T) {
	path := writeFile(t, "opts.hcl", `solver { tolerance = `)
	_, err := loadOptions(context.Background(), path, "")
	require.Error(t, err)
}
