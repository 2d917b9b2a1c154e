package transform

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/testutil"
)

func newDriver(t *testing.T) *Driver {
	t.Helper()
	return New(Config{
		ArtifactPath: filepath.Join(t.TempDir(), "artifact", artifact.PreprocessorFile),
		Logger:       testutil.NewTestLogger(t),
	})
}

func TestDriver_Run(t *testing.T) {
	trainPath, testPath := testutil.WriteStudentSplits(t)
	d := newDriver(t)

	res, err := d.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	// 2 numeric + 11 one-hot features, plus the target.
	r, c := res.Train.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 14, c)
	r, c = res.Test.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 14, c)

	assert.Equal(t, []float64{60, 70, 80}, mat.Col(nil, 13, res.Train))
	assert.Equal(t, []float64{75}, mat.Col(nil, 13, res.Test))

	require.Len(t, res.FeatureNames, 13)
	assert.Equal(t, "num_pipeline__writing score", res.FeatureNames[0])

	assert.Equal(t, d.Config().ArtifactPath, res.ArtifactPath)
	assert.FileExists(t, res.ArtifactPath)
}

func TestDriver_TestUsesTrainStatistics(t *testing.T) {
	trainPath, testPath := testutil.WriteStudentSplits(t)
	res, err := newDriver(t).Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	// writing score: train 70, 80, 90 has population std sqrt(200/3).
	std := math.Sqrt(200.0 / 3)
	assert.InDelta(t, 84/std, res.Test.At(0, 0), 1e-9)
	assert.InDelta(t, 70/std, res.Train.At(0, 0), 1e-9)

	ct, err := artifact.LoadTransformer(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, res.FeatureNames, ct.FeatureNames)
}

func TestDriver_Deterministic(t *testing.T) {
	trainPath, testPath := testutil.WriteStudentSplits(t)

	first, err := newDriver(t).Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)
	second, err := newDriver(t).Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first.Train, second.Train))
	assert.True(t, mat.Equal(first.Test, second.Test))
}

func TestDriver_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	header := strings.Replace(testutil.StudentHeader, "math score", "algebra score", 1)
	trainPath := testutil.WriteCSV(t, dir, "train.csv", header, testutil.TrainRows)
	testPath := testutil.WriteCSV(t, dir, "test.csv", header, testutil.TestRows)

	d := newDriver(t)
	_, err := d.Run(context.Background(), trainPath, testPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerr.ErrMissingColumn)

	var pe *pipeerr.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "transform.Run", pe.Op)
	assert.Equal(t, pipeerr.KindData, pe.Kind)

	assert.NoFileExists(t, d.Config().ArtifactPath)
}

func TestDriver_TestMissingFeature(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteCSV(t, dir, "train.csv", testutil.StudentHeader, testutil.TrainRows)
	testPath := testutil.WriteCSV(t, dir, "test.csv",
		"gender,race/ethnicity,parental level of education,test preparation course,math score,reading score,writing score",
		[]string{"male,group C,some college,none,75,85,84"})

	d := newDriver(t)
	_, err := d.Run(context.Background(), trainPath, testPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerr.ErrSchemaMismatch)
	assert.NoFileExists(t, d.Config().ArtifactPath)
}

func TestDriver_UnknownTestCategory(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteCSV(t, dir, "train.csv", testutil.StudentHeader, testutil.TrainRows)
	testPath := testutil.WriteCSV(t, dir, "test.csv", testutil.StudentHeader,
		[]string{"male,group E,some college,standard,none,75,85,84"})

	d := newDriver(t)
	_, err := d.Run(context.Background(), trainPath, testPath)
	assert.ErrorIs(t, err, pipeerr.ErrUnknownCategory)
	assert.NoFileExists(t, d.Config().ArtifactPath)
}

func TestDriver_MissingFile(t *testing.T) {
	trainPath, _ := testutil.WriteStudentSplits(t)
	_, err := newDriver(t).Run(context.Background(), trainPath, filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	kind, ok := pipeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeerr.KindIO, kind)
}

func TestDriver_ImputesMissingTrainValues(t *testing.T) {
	dir := t.TempDir()
	rows := append([]string{}, testutil.TrainRows...)
	rows[1] = `male,,some college,free/reduced,completed,70,82,`
	trainPath := testutil.WriteCSV(t, dir, "train.csv", testutil.StudentHeader, rows)
	testPath := testutil.WriteCSV(t, dir, "test.csv", testutil.StudentHeader,
		[]string{"male,group B,some college,standard,none,75,85,84"})

	res, err := newDriver(t).Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	nRows, cols := res.Train.Dims()
	require.Equal(t, 3, nRows)
	require.Equal(t, len(res.FeatureNames)+1, cols)
	for i := 0; i < nRows; i++ {
		for j := 0; j < cols; j++ {
			assert.False(t, math.IsNaN(res.Train.At(i, j)), "cell (%d, %d)", i, j)
		}
	}

	col := func(name string) int {
		t.Helper()
		j := slices.Index(res.FeatureNames, name)
		require.GreaterOrEqual(t, j, 0, "feature %q not found in %v", name, res.FeatureNames)
		return j
	}

	// Writing scores 70, missing, 90 impute to the median 80 and are scaled
	// by the population standard deviation of 70, 80, 90.
	scale := math.Sqrt(200.0 / 3)
	writing := col("num_pipeline__writing score")
	assert.InDelta(t, 70/scale, res.Train.At(0, writing), 1e-9)
	assert.InDelta(t, 80/scale, res.Train.At(1, writing), 1e-9)
	assert.InDelta(t, 90/scale, res.Train.At(2, writing), 1e-9)

	// The blank race is filled with the most frequent category, so group B
	// is the only race indicator left. A constant column keeps scale 1.
	var race []string
	for _, name := range res.FeatureNames {
		if strings.HasPrefix(name, "cat_pipeline__race/ethnicity_") {
			race = append(race, name)
		}
	}
	assert.Equal(t, []string{"cat_pipeline__race/ethnicity_group B"}, race)
	groupB := col("cat_pipeline__race/ethnicity_group B")
	for i := 0; i < nRows; i++ {
		assert.Equal(t, 1.0, res.Train.At(i, groupB), "row %d", i)
	}
	assert.Equal(t, []float64{60, 70, 80}, mat.Col(nil, cols-1, res.Train))
}

func TestAppendTargetSplitLast(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	d := AppendTarget(X, []float64{9, 8})
	assert.Equal(t, []float64{9, 8}, mat.Col(nil, 2, d))

	gotX, gotY := SplitLast(d)
	assert.True(t, mat.Equal(X, gotX))
	assert.Equal(t, []float64{9, 8}, gotY)
}

func TestNew_Defaults(t *testing.T) {
	cfg := New(Config{}).Config()
	assert.Equal(t, "math score", cfg.TargetColumn)
	assert.Equal(t, filepath.Join("artifact", "preprocessor.pkl"), cfg.ArtifactPath)
	assert.Len(t, cfg.Columns.All(), 7)
}
