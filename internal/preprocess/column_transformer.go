package preprocess

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/frame"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

func init() {
	gob.Register(&SimpleImputer{})
	gob.Register(&OneHotEncoder{})
	gob.Register(&StandardScaler{})
	gob.Register(&Pipeline{})
	gob.Register(&ColumnTransformer{})
}

// Branch applies one pipeline to a fixed set of input columns.
type Branch struct {
	Name     string
	Pipeline *Pipeline
	Columns  []string
}

// ColumnTransformer applies each branch to its columns and stacks the
// outputs side by side, in branch order. Columns named by no branch are
// dropped.
type ColumnTransformer struct {
	Branches     []Branch
	FeatureNames []string
	Fitted       bool
}

// NewColumnTransformer builds a transformer. Branch column sets must be
// non-empty and disjoint.
func NewColumnTransformer(branches ...Branch) (*ColumnTransformer, error) {
	if len(branches) == 0 {
		return nil, fmt.Errorf("column transformer needs at least one branch")
	}
	owner := make(map[string]string)
	for _, br := range branches {
		if br.Pipeline == nil {
			return nil, fmt.Errorf("branch %q has no pipeline", br.Name)
		}
		if len(br.Columns) == 0 {
			return nil, fmt.Errorf("branch %q has no columns", br.Name)
		}
		for _, c := range br.Columns {
			if prev, dup := owner[c]; dup {
				return nil, fmt.Errorf("column %q assigned to both %q and %q", c, prev, br.Name)
			}
			owner[c] = br.Name
		}
	}
	return &ColumnTransformer{Branches: branches}, nil
}

// Fit fits every branch on its columns of f.
func (ct *ColumnTransformer) Fit(f *frame.Frame) error {
	_, err := ct.FitTransform(f)
	return err
}

// FitTransform fits every branch and returns the stacked output.
func (ct *ColumnTransformer) FitTransform(f *frame.Frame) (*mat.Dense, error) {
	ct.Fitted = false
	blocks := make([]Block, len(ct.Branches))
	for i, br := range ct.Branches {
		sub, err := selectBranch(f, br)
		if err != nil {
			return nil, err
		}
		out, err := br.Pipeline.FitTransform(FrameBlock(sub))
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", br.Name, err)
		}
		blocks[i] = out
	}
	m, names, err := ct.stack(blocks)
	if err != nil {
		return nil, err
	}
	ct.FeatureNames = names
	ct.Fitted = true
	return m, nil
}

// Transform applies the fitted branches to f.
func (ct *ColumnTransformer) Transform(f *frame.Frame) (*mat.Dense, error) {
	if !ct.Fitted {
		return nil, fmt.Errorf("ColumnTransformer: %w", pipeerr.ErrNotFitted)
	}
	blocks := make([]Block, len(ct.Branches))
	for i, br := range ct.Branches {
		sub, err := selectBranch(f, br)
		if err != nil {
			return nil, err
		}
		out, err := br.Pipeline.Transform(FrameBlock(sub))
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", br.Name, err)
		}
		blocks[i] = out
	}
	m, names, err := ct.stack(blocks)
	if err != nil {
		return nil, err
	}
	if !sameNames(names, ct.FeatureNames) {
		return nil, fmt.Errorf("transform produced %d features, fitted %d: %w", len(names), len(ct.FeatureNames), pipeerr.ErrSchemaMismatch)
	}
	return m, nil
}

// Branch returns the named branch, or nil.
func (ct *ColumnTransformer) Branch(name string) *Branch {
	for i := range ct.Branches {
		if ct.Branches[i].Name == name {
			return &ct.Branches[i]
		}
	}
	return nil
}

// InputColumns returns every column consumed by some branch, in branch order.
func (ct *ColumnTransformer) InputColumns() []string {
	var cols []string
	for _, br := range ct.Branches {
		cols = append(cols, br.Columns...)
	}
	return cols
}

func selectBranch(f *frame.Frame, br Branch) (*frame.Frame, error) {
	sub, err := f.Select(br.Columns...)
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w: %w", br.Name, pipeerr.ErrSchemaMismatch, err)
	}
	return sub, nil
}

func (ct *ColumnTransformer) stack(blocks []Block) (*mat.Dense, []string, error) {
	rows := -1
	width := 0
	mats := make([]*mat.Dense, len(blocks))
	var names []string
	for i, b := range blocks {
		m, err := b.Matrix()
		if err != nil {
			return nil, nil, fmt.Errorf("branch %q: %w", ct.Branches[i].Name, err)
		}
		r, c := m.Dims()
		if rows >= 0 && r != rows {
			return nil, nil, fmt.Errorf("branch %q produced %d rows, want %d", ct.Branches[i].Name, r, rows)
		}
		rows = r
		width += c
		mats[i] = m
		for _, n := range b.Names {
			names = append(names, ct.Branches[i].Name+"__"+n)
		}
	}

	out := mat.NewDense(rows, width, nil)
	off := 0
	for _, m := range mats {
		_, c := m.Dims()
		out.Slice(0, rows, off, off+c).(*mat.Dense).Copy(m)
		off += c
	}
	return out, names, nil
}
