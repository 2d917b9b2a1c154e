package model

import (
	"fmt"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
)

// rcond is the relative singular-value cutoff used for least squares.
const rcond = 1e-12

// LinearRegression is ordinary least squares. Rank-deficient designs, such
// as full one-hot blocks next to an intercept, get the minimum-norm solution.
type LinearRegression struct {
	FitIntercept bool

	Coef      []float64
	Intercept float64
	Fitted    bool
}

// NewLinearRegression returns an unfitted model with an intercept.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{FitIntercept: true}
}

func (m *LinearRegression) Kind() string { return "linear" }

func (m *LinearRegression) Params() Params {
	return Params{"fit_intercept": m.FitIntercept}
}

func (m *LinearRegression) SetParams(p Params) error {
	for k, v := range p {
		switch k {
		case "fit_intercept":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return fmt.Errorf("fit_intercept: %w", err)
			}
			m.FitIntercept = b
		default:
			return unknownParam(m.Kind(), k)
		}
	}
	return nil
}

func (m *LinearRegression) Clone() Regressor {
	return &LinearRegression{FitIntercept: m.FitIntercept}
}

func (m *LinearRegression) Fit(X mat.Matrix, y []float64) error {
	if _, _, err := checkXY(X, y); err != nil {
		return err
	}
	coef, intercept, err := fitLinear(X, y, 0, m.FitIntercept)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	m.Coef, m.Intercept, m.Fitted = coef, intercept, true
	return nil
}

func (m *LinearRegression) Predict(X mat.Matrix) ([]float64, error) {
	if _, err := checkPredict(m.Kind(), m.Fitted, X, len(m.Coef)); err != nil {
		return nil, err
	}
	return predictLinear(X, m.Coef, m.Intercept), nil
}

// Ridge is least squares with an L2 penalty on the coefficients.
type Ridge struct {
	Alpha        float64
	FitIntercept bool

	Coef      []float64
	Intercept float64
	Fitted    bool
}

// NewRidge returns an unfitted model with alpha 1 and an intercept.
func NewRidge() *Ridge {
	return &Ridge{Alpha: 1, FitIntercept: true}
}

func (m *Ridge) Kind() string { return "ridge" }

func (m *Ridge) Params() Params {
	return Params{"alpha": m.Alpha, "fit_intercept": m.FitIntercept}
}

func (m *Ridge) SetParams(p Params) error {
	for k, v := range p {
		switch k {
		case "alpha":
			a, err := cast.ToFloat64E(v)
			if err != nil {
				return fmt.Errorf("alpha: %w", err)
			}
			if a < 0 {
				return fmt.Errorf("alpha must be non-negative, got %v", a)
			}
			m.Alpha = a
		case "fit_intercept":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return fmt.Errorf("fit_intercept: %w", err)
			}
			m.FitIntercept = b
		default:
			return unknownParam(m.Kind(), k)
		}
	}
	return nil
}

func (m *Ridge) Clone() Regressor {
	return &Ridge{Alpha: m.Alpha, FitIntercept: m.FitIntercept}
}

func (m *Ridge) Fit(X mat.Matrix, y []float64) error {
	if _, _, err := checkXY(X, y); err != nil {
		return err
	}
	coef, intercept, err := fitLinear(X, y, m.Alpha, m.FitIntercept)
	if err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	m.Coef, m.Intercept, m.Fitted = coef, intercept, true
	return nil
}

func (m *Ridge) Predict(X mat.Matrix) ([]float64, error) {
	if _, err := checkPredict(m.Kind(), m.Fitted, X, len(m.Coef)); err != nil {
		return nil, err
	}
	return predictLinear(X, m.Coef, m.Intercept), nil
}

// fitLinear solves min ||y - Xw - b||² + alpha||w||². With an intercept, X
// and y are centered first so the intercept is not penalized.
func fitLinear(X mat.Matrix, y []float64, alpha float64, intercept bool) ([]float64, float64, error) {
	n, p := X.Dims()
	xc := mat.DenseCopyOf(X)
	yc := make([]float64, n)
	copy(yc, y)

	xMean := make([]float64, p)
	yMean := 0.0
	if intercept {
		col := make([]float64, n)
		for j := 0; j < p; j++ {
			mat.Col(col, j, xc)
			s := 0.0
			for _, v := range col {
				s += v
			}
			xMean[j] = s / float64(n)
		}
		for _, v := range yc {
			yMean += v
		}
		yMean /= float64(n)

		xc.Apply(func(_, j int, v float64) float64 { return v - xMean[j] }, xc)
		for i := range yc {
			yc[i] -= yMean
		}
	}

	var coef []float64
	var err error
	if alpha > 0 {
		coef, err = solveRidge(xc, yc, alpha)
	} else {
		coef, err = solveLstsq(xc, yc)
	}
	if err != nil {
		return nil, 0, err
	}

	b := 0.0
	if intercept {
		b = yMean
		for j, w := range coef {
			b -= xMean[j] * w
		}
	}
	return coef, b, nil
}

func solveLstsq(X *mat.Dense, y []float64) ([]float64, error) {
	_, p := X.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}
	coef := make([]float64, p)
	rank := svd.Rank(rcond)
	if rank == 0 {
		return coef, nil
	}
	var w mat.VecDense
	svd.SolveVecTo(&w, mat.NewVecDense(len(y), y), rank)
	for j := range coef {
		coef[j] = w.AtVec(j)
	}
	return coef, nil
}

func solveRidge(X *mat.Dense, y []float64, alpha float64) ([]float64, error) {
	_, p := X.Dims()
	var gram mat.SymDense
	gram.SymOuterK(1, X.T())
	a := mat.NewSymDense(p, nil)
	a.CopySym(&gram)
	for j := 0; j < p; j++ {
		a.SetSym(j, j, a.At(j, j)+alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(X.T(), mat.NewVecDense(len(y), y))

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("ridge system is not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return nil, err
	}
	coef := make([]float64, p)
	for j := range coef {
		coef[j] = w.AtVec(j)
	}
	return coef, nil
}

func predictLinear(X mat.Matrix, coef []float64, intercept float64) []float64 {
	n, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(coef), coef))
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = out.AtVec(i) + intercept
	}
	return pred
}
