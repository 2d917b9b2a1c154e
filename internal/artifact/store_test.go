package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/frame"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/preprocess"
)

func sample() *frame.Frame {
	return frame.MustNew(
		frame.NewColumn("gender", "female", "male", "female"),
		frame.NewColumn("race/ethnicity", "group B", "group C", ""),
		frame.NewColumn("parental level of education", "bachelor's degree", "some college", "master's degree"),
		frame.NewColumn("lunch", "standard", "free/reduced", "standard"),
		frame.NewColumn("test preparation course", "none", "completed", "none"),
		frame.NewColumn("reading score", "72", "82", "92"),
		frame.NewColumn("writing score", "70", "", "90"),
	)
}

func TestSaveLoad_Transformer(t *testing.T) {
	ct, err := preprocess.BuildTransformer(preprocess.DefaultColumns())
	require.NoError(t, err)
	want, err := ct.FitTransform(sample())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "artifact", PreprocessorFile)
	require.NoError(t, Save(path, ct))

	loaded, err := LoadTransformer(path)
	require.NoError(t, err)
	assert.Equal(t, ct.FeatureNames, loaded.FeatureNames)

	got, err := loaded.Transform(sample())
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestSaveLoad_Model(t *testing.T) {
	m := model.NewRidge()
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{1, 2, 3}
	require.NoError(t, m.Fit(X, y))

	path := filepath.Join(t.TempDir(), ModelFile)
	require.NoError(t, Save(path, m))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "ridge", loaded.Kind())

	want, err := m.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obj.pkl")
	require.NoError(t, Save(path, "first"))
	require.NoError(t, Save(path, "second"))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pkl"))
	require.Error(t, err)
	kind, ok := pipeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeerr.KindIO, kind)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pkl")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_WrongType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obj.pkl")
	require.NoError(t, Save(path, model.NewLinearRegression()))

	_, err := LoadTransformer(path)
	assert.Error(t, err)

	require.NoError(t, Save(path, "just a string"))
	_, err = LoadModel(path)
	assert.Error(t, err)
}
