package preprocess

import (
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// Branch names used by BuildTransformer.
const (
	NumericBranch     = "num_pipeline"
	CategoricalBranch = "cat_pipeline"
)

// Columns names the raw input columns of each branch.
type Columns struct {
	Numeric     []string `koanf:"numeric" yaml:"numeric"`
	Categorical []string `koanf:"categorical" yaml:"categorical"`
}

// DefaultColumns returns the student-performance schema.
func DefaultColumns() Columns {
	return Columns{
		Numeric: []string{"writing score", "reading score"},
		Categorical: []string{
			"gender",
			"race/ethnicity",
			"parental level of education",
			"lunch",
			"test preparation course",
		},
	}
}

// All returns numeric then categorical column names.
func (c Columns) All() []string {
	out := make([]string, 0, len(c.Numeric)+len(c.Categorical))
	out = append(out, c.Numeric...)
	return append(out, c.Categorical...)
}

// BuildTransformer returns an unfitted transformer: median imputation and
// scaling for numeric columns; mode imputation, one-hot encoding and scaling
// for categorical ones. Neither scaler centers its input.
func BuildTransformer(cols Columns) (*ColumnTransformer, error) {
	num := NewPipeline(
		NamedStep{Name: "imputer", Step: NewSimpleImputer(StrategyMedian)},
		NamedStep{Name: "scaler", Step: NewStandardScaler(false)},
	)
	cat := NewPipeline(
		NamedStep{Name: "imputer", Step: NewSimpleImputer(StrategyMostFrequent)},
		NamedStep{Name: "one_hot_encoder", Step: NewOneHotEncoder()},
		NamedStep{Name: "scaler", Step: NewStandardScaler(false)},
	)

	ct, err := NewColumnTransformer(
		Branch{Name: NumericBranch, Pipeline: num, Columns: cols.Numeric},
		Branch{Name: CategoricalBranch, Pipeline: cat, Columns: cols.Categorical},
	)
	if err != nil {
		return nil, pipeerr.Wrap("preprocess.BuildTransformer", pipeerr.KindConfig, err)
	}
	return ct, nil
}
