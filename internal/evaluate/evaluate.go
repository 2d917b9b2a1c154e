// Package evaluate tunes and scores candidate regressors. Each candidate is
// grid-searched with k-fold cross-validation on the training split, refit
// with its best parameters and scored on the held-out test split.
package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

const op = "evaluate.Evaluate"

// Split is a train/test pair of features and targets.
type Split struct {
	XTrain *mat.Dense
	YTrain []float64
	XTest  *mat.Dense
	YTest  []float64
}

// Candidate is a named, unfitted regressor. Model serves as a template and is
// never fitted itself; the refit copy is returned in Entry.Fitted.
type Candidate struct {
	Name  string
	Model model.Regressor
}

// Entry is the evaluation outcome of one candidate.
type Entry struct {
	Model      string          `json:"model" yaml:"model"`
	Kind       string          `json:"kind" yaml:"kind"`
	BestParams model.Params    `json:"best_params" yaml:"best_params"`
	CVScore    float64         `json:"cv_r2" yaml:"cv_r2"`
	TrainR2    float64         `json:"train_r2" yaml:"train_r2"`
	TestR2     float64         `json:"test_r2" yaml:"test_r2"`
	Fitted     model.Regressor `json:"-" yaml:"-"`
}

// Report holds entries in candidate order.
type Report struct {
	Entries []Entry
}

// Scores maps candidate name to test R².
func (r *Report) Scores() map[string]float64 {
	out := make(map[string]float64, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Model] = e.TestR2
	}
	return out
}

// Best returns the entry with the highest test R². The earliest entry wins
// ties and NaN scores never win. ok is false when no entry has a score.
func (r *Report) Best() (Entry, bool) {
	best := -1
	for i, e := range r.Entries {
		if math.IsNaN(e.TestR2) {
			continue
		}
		if best < 0 || e.TestR2 > r.Entries[best].TestR2 {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return r.Entries[best], true
}

// Evaluator runs grid searches over candidates.
type Evaluator struct {
	Search GridSearch
	Logger *slog.Logger
}

// Evaluate grid-searches every candidate in order using the grid registered
// under its name, refits it on the full training split and scores it. The
// first failure aborts the run.
func (ev *Evaluator) Evaluate(ctx context.Context, split Split, candidates []Candidate, grids map[string]model.Grid) (*Report, error) {
	logger := ev.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := checkSplit(split); err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindData, err)
	}

	report := &Report{Entries: make([]Entry, 0, len(candidates))}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, pipeerr.Wrap(op, pipeerr.KindModel, err)
		}
		grid, ok := grids[c.Name]
		if !ok {
			return nil, pipeerr.Errorf(op, pipeerr.KindConfig, "%s: %w", c.Name, pipeerr.ErrMissingGrid)
		}

		entry, err := ev.evaluateOne(ctx, split, c, grid)
		if err != nil {
			return nil, pipeerr.Wrap(op, pipeerr.KindModel, fmt.Errorf("%s: %w", c.Name, err))
		}
		logger.Info("evaluated model",
			"model", c.Name,
			"params", entry.BestParams.String(),
			"cv_r2", entry.CVScore,
			"test_r2", entry.TestR2)
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

func (ev *Evaluator) evaluateOne(ctx context.Context, split Split, c Candidate, grid model.Grid) (Entry, error) {
	res, err := ev.Search.Run(ctx, c.Model, grid, split.XTrain, split.YTrain)
	if err != nil {
		return Entry{}, err
	}

	fitted := c.Model.Clone()
	if err := fitted.SetParams(res.BestParams); err != nil {
		return Entry{}, err
	}
	if err := fitted.Fit(split.XTrain, split.YTrain); err != nil {
		return Entry{}, err
	}
	trainR2, err := model.Score(fitted, split.XTrain, split.YTrain)
	if err != nil {
		return Entry{}, err
	}
	testR2, err := model.Score(fitted, split.XTest, split.YTest)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Model:      c.Name,
		Kind:       fitted.Kind(),
		BestParams: res.BestParams,
		CVScore:    res.BestScore,
		TrainR2:    trainR2,
		TestR2:     testR2,
		Fitted:     fitted,
	}, nil
}

func checkSplit(s Split) error {
	if s.XTrain == nil || s.XTest == nil {
		return fmt.Errorf("split is missing a feature matrix")
	}
	nTrain, pTrain := s.XTrain.Dims()
	nTest, pTest := s.XTest.Dims()
	if nTrain != len(s.YTrain) || nTest != len(s.YTest) {
		return fmt.Errorf("feature rows do not match targets: %d/%d train, %d/%d test",
			nTrain, len(s.YTrain), nTest, len(s.YTest))
	}
	if pTrain != pTest {
		return fmt.Errorf("train has %d features, test has %d: %w", pTrain, pTest, pipeerr.ErrSchemaMismatch)
	}
	return nil
}
