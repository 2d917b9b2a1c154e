// Package main provides tests for the leapml CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/cli"
	clitestutil "github.com/leapstack-labs/leapml/internal/cli/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestVersionCommand(t *testing.T) {
	chdir(t, t.TempDir())

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapml v"+cli.Version)
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapml")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestEndToEnd(t *testing.T) {
	p := clitestutil.SetupTestProject(t, 60)
	chdir(t, p.Dir)

	// leapml.yaml in the working directory is picked up; flags override it.
	require.NoError(t, os.WriteFile("leapml.yaml", []byte(`
artifact_dir: out
evaluate:
  jobs: 2
  candidates:
    - name: Linear Regression
      kind: linear
    - name: K-Neighbors Regressor
      kind: knn
      grid:
        n_neighbors: [3, 5]
`), 0o600))

	out, _, err := run(t, "-o", "json", "ingest", "--raw", p.RawPath, "--test-size", "0.25")
	require.NoError(t, err)
	var split struct {
		TrainRows int `json:"train_rows"`
		TestRows  int `json:"test_rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &split))
	assert.Equal(t, 45, split.TrainRows)
	assert.Equal(t, 15, split.TestRows)
	assert.FileExists(t, filepath.Join(p.Dir, "out", "train.csv"))

	out, _, err = run(t, "-o", "json", "train", "--folds", "3")
	require.NoError(t, err)
	var train struct {
		Best   string `json:"best"`
		Scores []struct {
			Model string `json:"model"`
		} `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &train))
	require.Len(t, train.Scores, 2)
	assert.Equal(t, "K-Neighbors Regressor", train.Scores[1].Model)
	assert.Equal(t, "Linear Regression", train.Best)
	assert.FileExists(t, filepath.Join(p.Dir, "out", "preprocessor.pkl"))
	assert.FileExists(t, filepath.Join(p.Dir, "out", "model.pkl"))

	out, _, err = run(t, "-o", "markdown", "runs")
	require.NoError(t, err)
	clitestutil.AssertNoANSI(t, out)
	clitestutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "| train |")
	assert.Contains(t, out, "| ingest |")
	assert.FileExists(t, filepath.Join(p.Dir, ".leapml", "state.db"))
}

func TestInvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := run(t, "-o", "xml", "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
