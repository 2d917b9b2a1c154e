package preprocess

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// Unknown-category policies for OneHotEncoder.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// OneHotEncoder expands each categorical column into one indicator column
// per category seen at fit time. Categories are sorted.
type OneHotEncoder struct {
	// HandleUnknown is "error" (the default) or "ignore", which encodes an
	// unseen category as an all-zero block.
	HandleUnknown string

	Columns    []string
	Categories [][]string
	Fitted     bool
}

// NewOneHotEncoder returns an unfitted encoder with the error policy.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownError}
}

// Fit records the sorted categories of every column.
func (e *OneHotEncoder) Fit(b Block) error {
	f, err := requireFrame("OneHotEncoder", b)
	if err != nil {
		return err
	}
	switch e.HandleUnknown {
	case "", HandleUnknownError, HandleUnknownIgnore:
	default:
		return fmt.Errorf("OneHotEncoder: unknown handle_unknown %q", e.HandleUnknown)
	}

	cats := make([][]string, f.NumCols())
	for j, c := range f.Columns() {
		if c.Missing() > 0 {
			return fmt.Errorf("OneHotEncoder: column %q has %d missing values", c.Name, c.Missing())
		}
		seen := make(map[string]bool)
		for _, v := range c.Values {
			seen[v] = true
		}
		uniq := make([]string, 0, len(seen))
		for v := range seen {
			uniq = append(uniq, v)
		}
		sort.Strings(uniq)
		cats[j] = uniq
	}

	e.Columns = f.Names()
	e.Categories = cats
	e.Fitted = true
	return nil
}

// FeatureNames returns the "column_category" output names.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for j, col := range e.Columns {
		for _, cat := range e.Categories[j] {
			names = append(names, col+"_"+cat)
		}
	}
	return names
}

// Transform produces the dense indicator matrix.
func (e *OneHotEncoder) Transform(b Block) (Block, error) {
	if !e.Fitted {
		return Block{}, fmt.Errorf("OneHotEncoder: %w", pipeerr.ErrNotFitted)
	}
	f, err := requireFrame("OneHotEncoder", b)
	if err != nil {
		return Block{}, err
	}
	if !sameNames(f.Names(), e.Columns) {
		return Block{}, fmt.Errorf("OneHotEncoder fitted on %q, got %q: %w", e.Columns, f.Names(), pipeerr.ErrSchemaMismatch)
	}

	width := 0
	offsets := make([]int, len(e.Categories))
	lookup := make([]map[string]int, len(e.Categories))
	for j, cats := range e.Categories {
		offsets[j] = width
		width += len(cats)
		lookup[j] = make(map[string]int, len(cats))
		for k, cat := range cats {
			lookup[j][cat] = k
		}
	}

	rows := f.NumRows()
	if rows == 0 || width == 0 {
		return Block{}, fmt.Errorf("OneHotEncoder: cannot encode %d rows into %d columns", rows, width)
	}
	m := mat.NewDense(rows, width, nil)
	for j, c := range f.Columns() {
		for i, v := range c.Values {
			k, ok := lookup[j][v]
			if !ok || !c.Valid[i] {
				if e.HandleUnknown == HandleUnknownIgnore {
					continue
				}
				return Block{}, fmt.Errorf("OneHotEncoder: column %q value %q: %w", c.Name, v, pipeerr.ErrUnknownCategory)
			}
			m.Set(i, offsets[j]+k, 1)
		}
	}
	return DenseBlock(m, e.FeatureNames()), nil
}
