package preprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// StandardScaler scales features to unit variance and, when WithMean is
// set, centers them. Mean and Var are population statistics.
type StandardScaler struct {
	WithMean bool

	Mean     []float64
	Var      []float64
	Scale    []float64
	NSamples int
	Fitted   bool
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler(withMean bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean}
}

// Fit computes per-feature mean and variance. A zero-variance feature gets a
// scale of 1.
func (s *StandardScaler) Fit(b Block) error {
	m, err := b.Matrix()
	if err != nil {
		return fmt.Errorf("StandardScaler: %w", err)
	}
	rows, cols := m.Dims()

	mean := make([]float64, cols)
	variance := make([]float64, cols)
	scale := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean[j], variance[j] = stat.PopMeanVariance(col, nil)
		scale[j] = math.Sqrt(variance[j])
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	s.Mean = mean
	s.Var = variance
	s.Scale = scale
	s.NSamples = rows
	s.Fitted = true
	return nil
}

// Transform applies the fitted statistics to a new matrix.
func (s *StandardScaler) Transform(b Block) (Block, error) {
	if !s.Fitted {
		return Block{}, fmt.Errorf("StandardScaler: %w", pipeerr.ErrNotFitted)
	}
	m, err := b.Matrix()
	if err != nil {
		return Block{}, fmt.Errorf("StandardScaler: %w", err)
	}
	rows, cols := m.Dims()
	if cols != len(s.Scale) {
		return Block{}, fmt.Errorf("StandardScaler fitted on %d features, got %d: %w", len(s.Scale), cols, pipeerr.ErrSchemaMismatch)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if s.WithMean {
			v -= s.Mean[j]
		}
		return v / s.Scale[j]
	}, m)
	return DenseBlock(out, b.Names), nil
}
