// Package preprocess implements the column-wise feature transformer: simple
// imputation, one-hot encoding and standard scaling composed into pipelines
// and applied to disjoint column sets by a ColumnTransformer.
//
// All estimators keep their fitted state in exported fields so a fitted
// transformer survives a gob round trip through the artifact store.
package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/frame"
)

// Block is the value passed between steps. It holds tabular cells until a
// step produces numeric output, and a dense matrix from then on.
type Block struct {
	Frame *frame.Frame
	Dense *mat.Dense
	// Names labels the Dense columns.
	Names []string
}

// FrameBlock wraps a frame.
func FrameBlock(f *frame.Frame) Block { return Block{Frame: f, Names: f.Names()} }

// DenseBlock wraps a matrix and its column names.
func DenseBlock(m *mat.Dense, names []string) Block { return Block{Dense: m, Names: names} }

// Rows returns the number of samples in the block.
func (b Block) Rows() int {
	if b.Dense != nil {
		r, _ := b.Dense.Dims()
		return r
	}
	if b.Frame != nil {
		return b.Frame.NumRows()
	}
	return 0
}

// Matrix returns the block as a dense matrix. A tabular block converts only
// when every cell is present and numeric.
func (b Block) Matrix() (*mat.Dense, error) {
	if b.Dense != nil {
		return b.Dense, nil
	}
	if b.Frame == nil {
		return nil, fmt.Errorf("empty block")
	}
	rows, cols := b.Frame.NumRows(), b.Frame.NumCols()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot build a %dx%d matrix", rows, cols)
	}
	m := mat.NewDense(rows, cols, nil)
	for j, c := range b.Frame.Columns() {
		for i := 0; i < rows; i++ {
			v, err := c.Float(i)
			if err != nil {
				return nil, err
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// Step is one fit/transform stage of a pipeline.
type Step interface {
	// Fit learns the step's statistics from b.
	Fit(b Block) error
	// Transform applies the learned statistics. It never mutates b.
	Transform(b Block) (Block, error)
}

// FitTransform fits s on b and transforms b.
func FitTransform(s Step, b Block) (Block, error) {
	if err := s.Fit(b); err != nil {
		return Block{}, err
	}
	return s.Transform(b)
}

func requireFrame(step string, b Block) (*frame.Frame, error) {
	if b.Frame == nil {
		return nil, fmt.Errorf("%s expects tabular input", step)
	}
	return b.Frame, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
