package evaluate

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// DefaultFolds is the cross-validation fold count.
const DefaultFolds = 3

// GridSearch cross-validates every combination of a parameter grid.
type GridSearch struct {
	Folds int
	// Jobs bounds concurrent fits. Values below 1 mean 1.
	Jobs int
}

// SearchResult is the outcome of a grid search.
type SearchResult struct {
	BestParams model.Params
	BestScore  float64
	// MeanScores holds the mean validation R² of each combination, in
	// ParameterGrid order.
	MeanScores []float64
	Combos     []model.Params
}

// Run evaluates every combination in grid for est on (X, y) and returns the
// best by mean validation R². The first of several equal scores wins. est is
// not modified.
func (g GridSearch) Run(ctx context.Context, est model.Regressor, grid model.Grid, X *mat.Dense, y []float64) (*SearchResult, error) {
	combos := model.ParameterGrid(grid)
	if len(combos) == 0 {
		return nil, pipeerr.ErrEmptyGrid
	}
	k := g.Folds
	if k == 0 {
		k = DefaultFolds
	}
	n, _ := X.Dims()
	folds, err := KFold(n, k)
	if err != nil {
		return nil, err
	}

	// Materialize fold matrices once; every combination reuses them.
	splits := make([]foldData, len(folds))
	for i, f := range folds {
		splits[i] = foldData{
			xTrain: rowsOf(X, f.Train),
			yTrain: pick(y, f.Train),
			xVal:   rowsOf(X, f.Validation),
			yVal:   pick(y, f.Validation),
		}
	}

	scores := make([]float64, len(combos))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Jobs, 1))
	for i, p := range combos {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			s, err := crossValidate(est, p, splits)
			if err != nil {
				return fmt.Errorf("%s with %s: %w", est.Kind(), p, err)
			}
			scores[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] || (math.IsNaN(scores[best]) && !math.IsNaN(s)) {
			best = i
		}
	}
	return &SearchResult{
		BestParams: combos[best],
		BestScore:  scores[best],
		MeanScores: scores,
		Combos:     combos,
	}, nil
}

type foldData struct {
	xTrain, xVal *mat.Dense
	yTrain, yVal []float64
}

func crossValidate(est model.Regressor, p model.Params, splits []foldData) (float64, error) {
	scores := make([]float64, len(splits))
	for i, s := range splits {
		m := est.Clone()
		if err := m.SetParams(p); err != nil {
			return 0, err
		}
		if err := m.Fit(s.xTrain, s.yTrain); err != nil {
			return 0, err
		}
		r2, err := model.Score(m, s.xVal, s.yVal)
		if err != nil {
			return 0, err
		}
		scores[i] = r2
	}
	return stat.Mean(scores, nil), nil
}

func rowsOf(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

func pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
