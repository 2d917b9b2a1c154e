// Package trainer runs the full training pipeline: transform, evaluate the
// candidate regressors, keep the best one and persist it.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/evaluate"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/transform"
)

const op = "trainer.Run"

// DefaultMinScore is the test R² a model must reach to be kept.
const DefaultMinScore = 0.6

// DefaultModelPath is where the selected model is written.
var DefaultModelPath = filepath.Join("artifact", artifact.ModelFile)

// Candidate configures one estimator to tune.
type Candidate struct {
	Name string     `koanf:"name" yaml:"name" json:"name"`
	Kind string     `koanf:"kind" yaml:"kind" json:"kind"`
	Grid model.Grid `koanf:"grid" yaml:"grid" json:"grid"`
}

// DefaultCandidates returns the estimators tried when none are configured.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "Linear Regression", Kind: "linear", Grid: model.Grid{}},
		{Name: "Ridge", Kind: "ridge", Grid: model.Grid{"alpha": {0.1, 1.0, 10.0}}},
		{Name: "K-Neighbors Regressor", Kind: "knn", Grid: model.Grid{
			"n_neighbors": {3, 5, 7, 9},
			"weights":     {"uniform", "distance"},
		}},
		{Name: "Decision Tree", Kind: "decision_tree", Grid: model.Grid{
			"max_depth":        {4, 6, 8},
			"min_samples_leaf": {1, 5},
		}},
	}
}

// Config holds trainer configuration.
type Config struct {
	Transform  transform.Config
	Candidates []Candidate
	// Folds is the cross-validation fold count.
	Folds int
	// Jobs bounds concurrent grid-search fits.
	Jobs int
	// MinScore is the lowest acceptable test R² for the best model. Callers
	// usually pass DefaultMinScore; zero accepts any score.
	MinScore float64
	// ModelPath is where the best model is saved.
	ModelPath string
	Logger    *slog.Logger
}

// Result is the outcome of a training run.
type Result struct {
	Transform *transform.Result
	Report    *evaluate.Report
	Best      evaluate.Entry
	ModelPath string
}

// Trainer runs training.
type Trainer struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a trainer, filling unset config fields with defaults.
func New(cfg Config) *Trainer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Transform.Logger == nil {
		cfg.Transform.Logger = logger
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultCandidates()
	}
	if cfg.Folds == 0 {
		cfg.Folds = evaluate.DefaultFolds
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	return &Trainer{cfg: cfg, logger: logger}
}

// Run transforms trainPath and testPath, evaluates every candidate and saves
// the best one. A best test R² below MinScore returns ErrNoBestModel and no
// model file is written.
func (t *Trainer) Run(ctx context.Context, trainPath, testPath string) (*Result, error) {
	candidates, grids, err := buildCandidates(t.cfg.Candidates)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindConfig, err)
	}

	tr, err := transform.New(t.cfg.Transform).Run(ctx, trainPath, testPath)
	if err != nil {
		return nil, err
	}
	return t.evaluate(ctx, tr, candidates, grids)
}

// RunTransformed evaluates candidates on the output of an earlier
// transformation run.
func (t *Trainer) RunTransformed(ctx context.Context, tr *transform.Result) (*Result, error) {
	candidates, grids, err := buildCandidates(t.cfg.Candidates)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindConfig, err)
	}
	return t.evaluate(ctx, tr, candidates, grids)
}

func (t *Trainer) evaluate(ctx context.Context, tr *transform.Result, candidates []evaluate.Candidate, grids map[string]model.Grid) (*Result, error) {
	xTrain, yTrain := transform.SplitLast(tr.Train)
	xTest, yTest := transform.SplitLast(tr.Test)
	ev := &evaluate.Evaluator{
		Search: evaluate.GridSearch{Folds: t.cfg.Folds, Jobs: t.cfg.Jobs},
		Logger: t.logger,
	}
	report, err := ev.Evaluate(ctx, evaluate.Split{
		XTrain: xTrain, YTrain: yTrain,
		XTest: xTest, YTest: yTest,
	}, candidates, grids)
	if err != nil {
		return nil, err
	}

	res := &Result{Transform: tr, Report: report}
	best, ok := report.Best()
	if !ok || best.TestR2 < t.cfg.MinScore {
		return res, pipeerr.Errorf(op, pipeerr.KindModel,
			"best test r2 %.4f is below %.2f: %w", best.TestR2, t.cfg.MinScore, pipeerr.ErrNoBestModel)
	}
	res.Best = best
	t.logger.Info("best model found", "model", best.Model, "test_r2", best.TestR2)

	if err := artifact.Save(t.cfg.ModelPath, best.Fitted); err != nil {
		return res, err
	}
	res.ModelPath = t.cfg.ModelPath
	return res, nil
}

func buildCandidates(specs []Candidate) ([]evaluate.Candidate, map[string]model.Grid, error) {
	candidates := make([]evaluate.Candidate, 0, len(specs))
	grids := make(map[string]model.Grid, len(specs))
	for _, s := range specs {
		if _, dup := grids[s.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate candidate name %q", s.Name)
		}
		m, err := model.New(s.Kind)
		if err != nil {
			return nil, nil, fmt.Errorf("candidate %q: %w", s.Name, err)
		}
		grid := s.Grid
		if grid == nil {
			grid = model.Grid{}
		}
		candidates = append(candidates, evaluate.Candidate{Name: s.Name, Model: m})
		grids[s.Name] = grid
	}
	return candidates, grids, nil
}
