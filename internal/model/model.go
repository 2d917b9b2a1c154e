// Package model provides the candidate regressors searched by the evaluator
// and the parameter plumbing shared between them.
package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Params holds estimator hyperparameters by name.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names, sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders params deterministically, e.g. "alpha=1 fit_intercept=true".
func (p Params) String() string {
	s := ""
	for i, k := range p.Keys() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, p[k])
	}
	return s
}

// Regressor is a supervised estimator of a continuous target.
type Regressor interface {
	// Kind returns the registry name of the estimator.
	Kind() string
	// Fit trains on X (n×p) and y (n).
	Fit(X mat.Matrix, y []float64) error
	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) ([]float64, error)
	// Params returns the current hyperparameters.
	Params() Params
	// SetParams updates hyperparameters. Unknown names are an error.
	SetParams(p Params) error
	// Clone returns an unfitted copy with the same hyperparameters.
	Clone() Regressor
}

// Score returns the R² of a fitted regressor's predictions on X.
func Score(r Regressor, X mat.Matrix, y []float64) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return R2Score(y, pred)
}

func checkXY(X mat.Matrix, y []float64) (int, int, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return 0, 0, fmt.Errorf("empty training matrix %dx%d", n, p)
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}
	return n, p, nil
}

func checkPredict(kind string, fitted bool, X mat.Matrix, nFeatures int) (int, error) {
	if !fitted {
		return 0, fmt.Errorf("%s: model is not fitted", kind)
	}
	n, p := X.Dims()
	if p != nFeatures {
		return 0, fmt.Errorf("%s: fitted on %d features, got %d", kind, nFeatures, p)
	}
	return n, nil
}

func unknownParam(kind, name string) error {
	return fmt.Errorf("invalid parameter %q for estimator %s", name, kind)
}
