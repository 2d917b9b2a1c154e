package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func column(vals ...float64) *mat.Dense {
	return mat.NewDense(len(vals), 1, vals)
}

func TestLinearRegression_ExactFit(t *testing.T) {
	X := column(1, 2, 3, 4)
	y := []float64{3, 5, 7, 9}

	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 2, m.Coef[0], 1e-9)
	assert.InDelta(t, 1, m.Intercept, 1e-9)

	score, err := Score(m, X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1, score, 1e-12)
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// Two identical columns: the minimum-norm solution splits the weight.
	X := mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3})
	y := []float64{2, 4, 6}

	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 1, m.Coef[0], 1e-9)
	assert.InDelta(t, 1, m.Coef[1], 1e-9)

	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, pred, 1e-9)
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	m := NewLinearRegression()
	require.NoError(t, m.SetParams(Params{"fit_intercept": "false"}))
	require.NoError(t, m.Fit(column(1, 2), []float64{2, 4}))
	assert.Zero(t, m.Intercept)
	assert.InDelta(t, 2, m.Coef[0], 1e-9)
}

func TestRidge_Shrinks(t *testing.T) {
	m := NewRidge()
	require.NoError(t, m.Fit(column(1, 2, 3), []float64{1, 2, 3}))
	assert.InDelta(t, 2.0/3, m.Coef[0], 1e-9)
	assert.InDelta(t, 2.0/3, m.Intercept, 1e-9)
}

func TestRidge_SetParams(t *testing.T) {
	m := NewRidge()
	require.NoError(t, m.SetParams(Params{"alpha": 10}))
	assert.Equal(t, 10.0, m.Alpha)

	assert.Error(t, m.SetParams(Params{"alpha": -1}))
	assert.Error(t, m.SetParams(Params{"gamma": 1}))
}

func TestKNeighborsRegressor(t *testing.T) {
	X := column(0, 1, 10)
	y := []float64{0, 2, 100}

	t.Run("uniform", func(t *testing.T) {
		m := NewKNeighborsRegressor()
		require.NoError(t, m.SetParams(Params{"n_neighbors": 2}))
		require.NoError(t, m.Fit(X, y))
		pred, err := m.Predict(column(0.4))
		require.NoError(t, err)
		assert.InDelta(t, 1, pred[0], 1e-12)
	})

	t.Run("distance", func(t *testing.T) {
		m := NewKNeighborsRegressor()
		require.NoError(t, m.SetParams(Params{"n_neighbors": 2, "weights": "distance"}))
		require.NoError(t, m.Fit(X, y))
		pred, err := m.Predict(column(0.4, 1))
		require.NoError(t, err)
		assert.InDelta(t, 0.8, pred[0], 1e-9)
		assert.InDelta(t, 2, pred[1], 1e-12)
	})

	t.Run("k larger than training set", func(t *testing.T) {
		m := NewKNeighborsRegressor()
		require.NoError(t, m.Fit(X, y))
		pred, err := m.Predict(column(5))
		require.NoError(t, err)
		assert.InDelta(t, 34, pred[0], 1e-12)
	})

	t.Run("bad weights", func(t *testing.T) {
		assert.Error(t, NewKNeighborsRegressor().SetParams(Params{"weights": "gaussian"}))
	})
}

func TestDecisionTreeRegressor(t *testing.T) {
	X := column(1, 2, 3, 4)

	t.Run("pure split", func(t *testing.T) {
		m := NewDecisionTreeRegressor()
		require.NoError(t, m.Fit(X, []float64{1, 1, 5, 5}))
		pred, err := m.Predict(column(1.5, 3.7))
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 5}, pred)
	})

	t.Run("depth limit", func(t *testing.T) {
		m := NewDecisionTreeRegressor()
		require.NoError(t, m.SetParams(Params{"max_depth": 1}))
		require.NoError(t, m.Fit(X, []float64{1, 2, 5, 6}))
		require.Len(t, m.Nodes, 3)
		assert.Equal(t, 2.5, m.Nodes[0].Threshold)

		pred, err := m.Predict(column(0))
		require.NoError(t, err)
		assert.Equal(t, 1.5, pred[0])
	})

	t.Run("unlimited depth fits training data", func(t *testing.T) {
		m := NewDecisionTreeRegressor()
		y := []float64{1, 2, 5, 6}
		require.NoError(t, m.Fit(X, y))
		pred, err := m.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, y, pred)
	})

	t.Run("constant target is a single leaf", func(t *testing.T) {
		m := NewDecisionTreeRegressor()
		require.NoError(t, m.Fit(X, []float64{3, 3, 3, 3}))
		assert.Len(t, m.Nodes, 1)
	})
}

func TestPredictBeforeFit(t *testing.T) {
	for _, kind := range List() {
		t.Run(kind, func(t *testing.T) {
			m, err := New(kind)
			require.NoError(t, err)
			_, err = m.Predict(column(1))
			assert.Error(t, err)
		})
	}
}

func TestPredictFeatureMismatch(t *testing.T) {
	m := NewLinearRegression()
	require.NoError(t, m.Fit(column(1, 2, 3), []float64{1, 2, 3}))
	_, err := m.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err)
}

func TestClone_IsUnfitted(t *testing.T) {
	m := NewRidge()
	require.NoError(t, m.SetParams(Params{"alpha": 0.5}))
	require.NoError(t, m.Fit(column(1, 2, 3), []float64{1, 2, 3}))

	c := m.Clone()
	assert.Equal(t, m.Params(), c.Params())
	_, err := c.Predict(column(1))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"decision_tree", "knn", "linear", "ridge"}, List())

	m, err := New("knn")
	require.NoError(t, err)
	assert.Equal(t, "knn", m.Kind())

	_, err = New("svm")
	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "svm", unknown.Kind)
	assert.Contains(t, err.Error(), "linear")
}

func TestParameterGrid(t *testing.T) {
	got := ParameterGrid(Grid{
		"weights":     {"uniform", "distance"},
		"n_neighbors": {3, 5},
	})
	want := []Params{
		{"n_neighbors": 3, "weights": "uniform"},
		{"n_neighbors": 3, "weights": "distance"},
		{"n_neighbors": 5, "weights": "uniform"},
		{"n_neighbors": 5, "weights": "distance"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 4, Grid{"weights": {"uniform", "distance"}, "n_neighbors": {3, 5}}.Size())
}

func TestParameterGrid_Empty(t *testing.T) {
	assert.Equal(t, []Params{{}}, ParameterGrid(Grid{}))
	assert.Empty(t, ParameterGrid(Grid{"alpha": {}}))
}

func TestParams_String(t *testing.T) {
	assert.Equal(t, "alpha=0.1 fit_intercept=true", Params{"fit_intercept": true, "alpha": 0.1}.String())
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name       string
		yTrue, got []float64
		want       float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean predictor", []float64{1, 2, 3}, []float64{2, 2, 2}, 0},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
		{"constant perfect", []float64{4, 4}, []float64{4, 4}, 1},
		{"constant imperfect", []float64{4, 4}, []float64{4, 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.got)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	r, err := R2Score([]float64{1}, []float64{1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r))

	_, err = R2Score([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}
