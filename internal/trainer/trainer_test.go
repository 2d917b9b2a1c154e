package trainer

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/testutil"
	"github.com/leapstack-labs/leapml/internal/transform"
)

type fixture struct {
	trainPath, testPath string
	artifactDir         string
	testRows            []string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rows := testutil.StudentRows(40)
	dir := t.TempDir()
	return fixture{
		trainPath:   testutil.WriteCSV(t, dir, "train.csv", testutil.StudentHeader, rows[:32]),
		testPath:    testutil.WriteCSV(t, dir, "test.csv", testutil.StudentHeader, rows[32:]),
		artifactDir: filepath.Join(t.TempDir(), "artifact"),
		testRows:    rows[32:],
	}
}

func (f fixture) config(t *testing.T) Config {
	return Config{
		Transform: transform.Config{
			ArtifactPath: filepath.Join(f.artifactDir, artifact.PreprocessorFile),
		},
		Candidates: []Candidate{
			{Name: "Linear Regression", Kind: "linear"},
			{Name: "Ridge", Kind: "ridge", Grid: model.Grid{"alpha": {0.1, 1.0}}},
		},
		MinScore:  DefaultMinScore,
		ModelPath: filepath.Join(f.artifactDir, artifact.ModelFile),
		Logger:    testutil.NewTestLogger(t),
	}
}

func TestTrainer_Run(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)

	res, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	require.NoError(t, err)

	require.Len(t, res.Report.Entries, 2)
	assert.Equal(t, "Linear Regression", res.Best.Model)
	assert.InDelta(t, 1, res.Best.TestR2, 1e-6)
	assert.Equal(t, cfg.ModelPath, res.ModelPath)
	assert.FileExists(t, cfg.ModelPath)
	assert.FileExists(t, cfg.Transform.ArtifactPath)

	loaded, err := artifact.LoadModel(cfg.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, "linear", loaded.Kind())
}

func TestTrainer_BelowMinScore(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)
	cfg.MinScore = 1.5

	res, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerr.ErrNoBestModel)
	require.NotNil(t, res)
	assert.Len(t, res.Report.Entries, 2)
	assert.NoFileExists(t, cfg.ModelPath)
}

func TestTrainer_UnknownKind(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)
	cfg.Candidates = append(cfg.Candidates, Candidate{Name: "SVR", Kind: "svr"})

	_, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	var unknown *model.UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "svr", unknown.Kind)

	// Nothing runs when the candidate list is invalid.
	assert.NoFileExists(t, cfg.Transform.ArtifactPath)
}

func TestTrainer_DuplicateCandidate(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)
	cfg.Candidates = append(cfg.Candidates, Candidate{Name: "Ridge", Kind: "ridge"})

	_, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestDefaultCandidates(t *testing.T) {
	kinds := model.List()
	for _, c := range DefaultCandidates() {
		assert.Contains(t, kinds, c.Kind, c.Name)
		assert.NotNil(t, c.Grid, c.Name)
	}
}

func TestPredictor_Predict(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)
	_, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	require.NoError(t, err)

	p := &Predictor{
		PreprocessorPath: cfg.Transform.ArtifactPath,
		ModelPath:        cfg.ModelPath,
		TargetColumn:     "math score",
		Logger:           testutil.NewTestLogger(t),
	}
	pred, err := p.Predict(context.Background(), f.testPath)
	require.NoError(t, err)
	require.Len(t, pred, len(f.testRows))

	for i, row := range f.testRows {
		want, err := strconv.ParseFloat(strings.Split(row, ",")[5], 64)
		require.NoError(t, err)
		assert.InDelta(t, want, pred[i], 1e-6)
	}
}

func TestPredictor_WithoutTargetColumn(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)
	_, err := New(cfg).Run(context.Background(), f.trainPath, f.testPath)
	require.NoError(t, err)

	header := strings.Replace(testutil.StudentHeader, "math score,", "", 1)
	row := "female,group B,some college,standard,none,70,68"
	input := testutil.WriteCSV(t, t.TempDir(), "input.csv", header, []string{row})

	p := &Predictor{
		PreprocessorPath: cfg.Transform.ArtifactPath,
		ModelPath:        cfg.ModelPath,
		TargetColumn:     "math score",
	}
	pred, err := p.Predict(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, pred, 1)
	assert.InDelta(t, 0.5*70+0.4*68+3, pred[0], 1e-6)
}

func TestPredictor_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	p := &Predictor{
		PreprocessorPath: filepath.Join(dir, artifact.PreprocessorFile),
		ModelPath:        filepath.Join(dir, artifact.ModelFile),
	}
	_, err := p.Predict(context.Background(), filepath.Join(dir, "input.csv"))
	require.Error(t, err)
	kind, _ := pipeerr.KindOf(err)
	assert.Equal(t, pipeerr.KindIO, kind)
}

func TestTrainer_RunTransformed(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t)

	tr, err := transform.New(cfg.Transform).Run(context.Background(), f.trainPath, f.testPath)
	require.NoError(t, err)

	res, err := New(cfg).RunTransformed(context.Background(), tr)
	require.NoError(t, err)
	assert.Same(t, tr, res.Transform)
	require.Len(t, res.Report.Entries, 2)
	assert.FileExists(t, res.ModelPath)
}
