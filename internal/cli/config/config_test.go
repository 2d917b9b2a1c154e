package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/testutil"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("artifact-dir", "", "")
	fs.String("state", "", "")
	fs.String("database", "", "")
	fs.String("target-column", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.Int("jobs", 0, "")
	fs.Float64("min-score", 0, "")
	fs.Float64("test-size", 0, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, DefaultArtifactDir, cfg.ArtifactDir)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, "math score", cfg.TargetColumn)
	assert.Equal(t, []string{"writing score", "reading score"}, cfg.Columns.Numeric)
	assert.Len(t, cfg.Columns.Categorical, 5)
	assert.Equal(t, OutputAuto, cfg.OutputFormat)
	assert.Equal(t, 3, cfg.Evaluate.Folds)
	assert.Equal(t, 1, cfg.Evaluate.Jobs)
	assert.Equal(t, 0.6, cfg.Evaluate.MinScore)
	assert.Len(t, cfg.Evaluate.Candidates, 4)
	assert.Equal(t, 0.2, cfg.Ingest.TestSize)
	assert.Equal(t, uint64(42), cfg.Ingest.Seed)
	assert.Equal(t, DefaultUIPort, cfg.UI.Port)
	assert.True(t, cfg.UI.Watch)
	assert.Equal(t, filepath.Join("artifact", "model.pkl"), cfg.ArtifactPath("model.pkl"))
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "leapml.yaml", `artifact_dir: out
target_column: reading score
columns:
  numeric: [writing score, math score]
  categorical: [gender]
evaluate:
  min_score: 0.5
  candidates:
    - name: Ridge
      kind: ridge
      grid:
        alpha: [0.1, 1]
    - name: KNN
      kind: knn
      grid:
        n_neighbors: [3]
        weights: [distance]`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "leapml.yaml", cfg.File)
	assert.Equal(t, "out", cfg.ArtifactDir)
	assert.Equal(t, "reading score", cfg.TargetColumn)
	assert.Equal(t, []string{"gender"}, cfg.Columns.Categorical)
	assert.Equal(t, 0.5, cfg.Evaluate.MinScore)

	require.Len(t, cfg.Evaluate.Candidates, 2)
	ridge := cfg.Evaluate.Candidates[0]
	assert.Equal(t, "ridge", ridge.Kind)
	require.Len(t, ridge.Grid["alpha"], 2)

	// YAML values pass through parameter coercion.
	m, err := model.New(ridge.Kind)
	require.NoError(t, err)
	require.NoError(t, m.SetParams(model.ParameterGrid(ridge.Grid)[1]))
	assert.Equal(t, model.Params{"alpha": 1.0, "fit_intercept": true}, m.Params())
}

func TestLoad_DatabaseParams(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "leapml.yaml", `database_params:
  settings:
    threads: 2
    memory_limit: 1GB`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Contains(t, cfg.DatabaseParams, "settings")

	params, err := adapter.ParseDuckDBParams(cfg.DatabaseParams)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"threads": "2", "memory_limit": "1GB"}, params.Settings)
}

func TestLoad_ExplicitFileResolvesPaths(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "artifact_dir: artifacts\nstate_path: state/leapml.db")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "artifacts"), cfg.ArtifactDir)
	assert.Equal(t, filepath.Join(dir, "state", "leapml.db"), cfg.StatePath)
	assert.Equal(t, DefaultDatabase, cfg.Database)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "leapml.yaml", "evaluate:\n  jobs: 2\n  min_score: 0.3\noutput: markdown")

	t.Setenv("LEAPML_EVALUATE__JOBS", "3")
	t.Setenv("LEAPML_OUTPUT", "json")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--jobs", "4"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Evaluate.Jobs)
	assert.Equal(t, 0.3, cfg.Evaluate.MinScore)
	assert.Equal(t, OutputJSON, cfg.OutputFormat)
}

func TestLoad_FlagsOverrideFilePaths(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "leapml.yaml", "artifact_dir: from-file")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--artifact-dir", "from-flag", "--state", "s.db", "-v"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.ArtifactDir)
	assert.Equal(t, "s.db", cfg.StatePath)
	assert.True(t, cfg.Verbose)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("nope.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty target", func(c *Config) { c.TargetColumn = "" }, "target_column"},
		{"target as feature", func(c *Config) { c.Columns.Numeric = append(c.Columns.Numeric, "math score") }, "cannot be a feature"},
		{"duplicate column", func(c *Config) { c.Columns.Categorical = append(c.Columns.Categorical, "gender") }, "listed twice"},
		{"bad output", func(c *Config) { c.OutputFormat = "xml" }, "output"},
		{"one fold", func(c *Config) { c.Evaluate.Folds = 1 }, "folds"},
		{"unknown kind", func(c *Config) { c.Evaluate.Candidates[0].Kind = "svr" }, "svr"},
		{"duplicate candidate", func(c *Config) { c.Evaluate.Candidates[1].Name = c.Evaluate.Candidates[0].Name }, "duplicate"},
		{"bad test size", func(c *Config) { c.Ingest.TestSize = 1 }, "test_size"},
		{"bad port", func(c *Config) { c.UI.Port = 70000 }, "ui.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base.Config
			c.Columns.Numeric = append([]string(nil), base.Columns.Numeric...)
			c.Columns.Categorical = append([]string(nil), base.Columns.Categorical...)
			c.Evaluate.Candidates = append(c.Evaluate.Candidates[:0:0], base.Evaluate.Candidates...)
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := testutil.NewTestLogger(t)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestGetConfig(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultArtifactDir, cfg.ArtifactDir)

	want := &Config{ArtifactDir: "elsewhere"}
	ctx := context.WithValue(context.Background(), ConfigKey(), want)
	got, err := GetConfig(ctx)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
