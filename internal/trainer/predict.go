package trainer

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/frame"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// Predictor scores new rows with saved artifacts.
type Predictor struct {
	PreprocessorPath string
	ModelPath        string
	// TargetColumn is dropped from the input when present.
	TargetColumn string
	Adapter      adapter.Config
	Logger       *slog.Logger
}

// Predict loads inputPath, applies the saved transformer and returns one
// prediction per row.
func (p *Predictor) Predict(ctx context.Context, inputPath string) ([]float64, error) {
	const op = "trainer.Predict"
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ct, err := artifact.LoadTransformer(p.PreprocessorPath)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}
	m, err := artifact.LoadModel(p.ModelPath)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}

	cfg := p.Adapter
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}
	defer func() { _ = db.Close() }()

	f, err := frame.Load(ctx, db, "input", inputPath)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}
	if p.TargetColumn != "" && f.Has(p.TargetColumn) {
		if f, err = f.Drop(p.TargetColumn); err != nil {
			return nil, pipeerr.Wrap(op, pipeerr.KindData, err)
		}
	}

	X, err := ct.Transform(f)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindData, err)
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindModel, err)
	}
	logger.Debug("predicted", "rows", len(pred), "model", m.Kind())
	return pred, nil
}
