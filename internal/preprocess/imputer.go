package preprocess

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/leapstack-labs/leapml/internal/frame"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// Strategy selects the statistic a SimpleImputer fills with.
type Strategy string

// Imputation strategies.
const (
	StrategyMean         Strategy = "mean"
	StrategyMedian       Strategy = "median"
	StrategyMostFrequent Strategy = "most_frequent"
	StrategyConstant     Strategy = "constant"
)

// SimpleImputer replaces missing cells column by column with a statistic
// learned at fit time.
type SimpleImputer struct {
	Strategy  Strategy
	FillValue string // used by StrategyConstant

	Columns    []string
	Statistics []string
	Fitted     bool
}

// NewSimpleImputer returns an unfitted imputer.
func NewSimpleImputer(strategy Strategy) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit computes one statistic per column from the present cells.
func (s *SimpleImputer) Fit(b Block) error {
	f, err := requireFrame("SimpleImputer", b)
	if err != nil {
		return err
	}

	statsOut := make([]string, f.NumCols())
	for j, c := range f.Columns() {
		v, err := s.statistic(c)
		if err != nil {
			return fmt.Errorf("imputer column %q: %w", c.Name, err)
		}
		statsOut[j] = v
	}

	s.Columns = f.Names()
	s.Statistics = statsOut
	s.Fitted = true
	return nil
}

func (s *SimpleImputer) statistic(c *frame.Column) (string, error) {
	switch s.Strategy {
	case StrategyConstant:
		return s.FillValue, nil
	case StrategyMostFrequent:
		return mostFrequent(c)
	case StrategyMean, StrategyMedian:
		var xs []float64
		for i, ok := range c.Valid {
			if !ok {
				continue
			}
			v, err := c.Float(i)
			if err != nil {
				return "", err
			}
			xs = append(xs, v)
		}
		if len(xs) == 0 {
			return "", fmt.Errorf("no observed values")
		}
		var v float64
		if s.Strategy == StrategyMean {
			v = stat.Mean(xs, nil)
		} else {
			m, err := stats.Median(xs)
			if err != nil {
				return "", err
			}
			v = m
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s.Strategy)
	}
}

// mostFrequent returns the modal value; ties resolve to the smallest value.
func mostFrequent(c *frame.Column) (string, error) {
	counts := make(map[string]int)
	for i, ok := range c.Valid {
		if ok {
			counts[c.Values[i]]++
		}
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("no observed values")
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, nil
}

// Transform fills missing cells. The input must carry the fitted columns.
func (s *SimpleImputer) Transform(b Block) (Block, error) {
	if !s.Fitted {
		return Block{}, fmt.Errorf("SimpleImputer: %w", pipeerr.ErrNotFitted)
	}
	f, err := requireFrame("SimpleImputer", b)
	if err != nil {
		return Block{}, err
	}
	if !sameNames(f.Names(), s.Columns) {
		return Block{}, fmt.Errorf("SimpleImputer fitted on %q, got %q: %w", s.Columns, f.Names(), pipeerr.ErrSchemaMismatch)
	}

	out := make([]*frame.Column, f.NumCols())
	for j, c := range f.Columns() {
		filled := &frame.Column{
			Name:   c.Name,
			Values: make([]string, c.Len()),
			Valid:  make([]bool, c.Len()),
		}
		for i := range c.Values {
			filled.Valid[i] = true
			if c.Valid[i] {
				filled.Values[i] = c.Values[i]
			} else {
				filled.Values[i] = s.Statistics[j]
			}
		}
		out[j] = filled
	}

	nf, err := frame.New(out...)
	if err != nil {
		return Block{}, err
	}
	return FrameBlock(nf), nil
}
