// Package transform turns raw train and test CSV files into model-ready
// numeric arrays and persists the fitted feature transformer.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/frame"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/preprocess"
)

const op = "transform.Run"

// DefaultTargetColumn is the column predicted by the pipeline.
const DefaultTargetColumn = "math score"

// DefaultArtifactPath is where the fitted transformer is written.
var DefaultArtifactPath = filepath.Join("artifact", artifact.PreprocessorFile)

// Config holds driver configuration.
type Config struct {
	// TargetColumn is dropped from the features and appended to the output.
	TargetColumn string
	// ArtifactPath is where the fitted transformer is saved.
	ArtifactPath string
	// Columns assigns feature columns to the numeric and categorical branches.
	Columns preprocess.Columns
	// Adapter configures the engine used to read CSV files. Empty means an
	// in-memory DuckDB.
	Adapter adapter.Config
	// Logger is optional.
	Logger *slog.Logger
}

// Result is the outcome of a transformation run. The last column of Train
// and Test is the raw target.
type Result struct {
	Train        *mat.Dense
	Test         *mat.Dense
	ArtifactPath string
	FeatureNames []string
}

// Driver runs the transformation stage.
type Driver struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a driver, filling unset config fields with defaults.
func New(cfg Config) *Driver {
	if cfg.TargetColumn == "" {
		cfg.TargetColumn = DefaultTargetColumn
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = DefaultArtifactPath
	}
	if len(cfg.Columns.Numeric) == 0 && len(cfg.Columns.Categorical) == 0 {
		cfg.Columns = preprocess.DefaultColumns()
	}
	if cfg.Adapter.Path == "" {
		cfg.Adapter.Path = ":memory:"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (d *Driver) Config() Config { return d.cfg }

// Run loads trainPath and testPath, fits the transformer on the training
// features, transforms both splits and saves the transformer. Nothing is
// written unless both splits transform cleanly.
func (d *Driver) Run(ctx context.Context, trainPath, testPath string) (*Result, error) {
	res, err := d.run(ctx, trainPath, testPath)
	if err != nil {
		return nil, pipeerr.Wrap(op, kindFor(err), err)
	}
	return res, nil
}

func (d *Driver) run(ctx context.Context, trainPath, testPath string) (*Result, error) {
	start := time.Now()

	db, err := adapter.Open(ctx, d.cfg.Adapter, d.logger)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}
	defer func() { _ = db.Close() }()

	trainDF, err := frame.Load(ctx, db, "train", trainPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read train data: %w", err)
	}
	testDF, err := frame.Load(ctx, db, "test", testPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read test data: %w", err)
	}
	if trainDF.NumRows() == 0 || testDF.NumRows() == 0 {
		return nil, pipeerr.Errorf(op, pipeerr.KindData,
			"empty input: train has %d rows, test has %d", trainDF.NumRows(), testDF.NumRows())
	}
	d.logger.Info("read train and test data",
		"train_rows", trainDF.NumRows(), "test_rows", testDF.NumRows())

	ct, err := preprocess.BuildTransformer(d.cfg.Columns)
	if err != nil {
		return nil, err
	}

	trainX, trainY, err := SplitTarget(trainDF, d.cfg.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	testX, testY, err := SplitTarget(testDF, d.cfg.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("test: %w", err)
	}

	d.logger.Debug("fitting transformer", "columns", ct.InputColumns())
	trainArr, err := ct.FitTransform(trainX)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	testArr, err := ct.Transform(testX)
	if err != nil {
		return nil, fmt.Errorf("test: %w", err)
	}

	if err := artifact.Save(d.cfg.ArtifactPath, ct); err != nil {
		return nil, err
	}

	d.logger.Info("saved preprocessing object",
		"path", d.cfg.ArtifactPath,
		"features", len(ct.FeatureNames),
		"duration", time.Since(start))

	return &Result{
		Train:        AppendTarget(trainArr, trainY),
		Test:         AppendTarget(testArr, testY),
		ArtifactPath: d.cfg.ArtifactPath,
		FeatureNames: ct.FeatureNames,
	}, nil
}

// SplitTarget separates the target column from the features. The target must
// be present and fully numeric.
func SplitTarget(f *frame.Frame, target string) (*frame.Frame, []float64, error) {
	y, err := f.Float64s(target)
	if err != nil {
		return nil, nil, err
	}
	X, err := f.Drop(target)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// AppendTarget returns X with y added as its last column.
func AppendTarget(X *mat.Dense, y []float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c+1, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(X)
	out.SetCol(c, y)
	return out
}

// SplitLast is the inverse of AppendTarget.
func SplitLast(d *mat.Dense) (*mat.Dense, []float64) {
	r, c := d.Dims()
	X := mat.DenseCopyOf(d.Slice(0, r, 0, c-1))
	y := mat.Col(nil, c-1, d)
	return X, y
}

func kindFor(err error) pipeerr.Kind {
	if k, ok := pipeerr.KindOf(err); ok {
		return k
	}
	return pipeerr.KindData
}
