package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNN weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNeighborsRegressor predicts the (optionally distance-weighted) mean target
// of the nearest training rows under Euclidean distance. Ties in distance keep
// training order.
type KNeighborsRegressor struct {
	NNeighbors int
	Weights    string

	XTrain    []float64 // row-major n×NFeatures
	YTrain    []float64
	NFeatures int
	Fitted    bool
}

// NewKNeighborsRegressor returns an unfitted model with five uniform
// neighbors.
func NewKNeighborsRegressor() *KNeighborsRegressor {
	return &KNeighborsRegressor{NNeighbors: 5, Weights: WeightsUniform}
}

func (m *KNeighborsRegressor) Kind() string { return "knn" }

func (m *KNeighborsRegressor) Params() Params {
	return Params{"n_neighbors": m.NNeighbors, "weights": m.Weights}
}

func (m *KNeighborsRegressor) SetParams(p Params) error {
	for k, v := range p {
		switch k {
		case "n_neighbors":
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("n_neighbors: %w", err)
			}
			if n < 1 {
				return fmt.Errorf("n_neighbors must be positive, got %d", n)
			}
			m.NNeighbors = n
		case "weights":
			w, err := cast.ToStringE(v)
			if err != nil {
				return fmt.Errorf("weights: %w", err)
			}
			if w != WeightsUniform && w != WeightsDistance {
				return fmt.Errorf("weights must be %q or %q, got %q", WeightsUniform, WeightsDistance, w)
			}
			m.Weights = w
		default:
			return unknownParam(m.Kind(), k)
		}
	}
	return nil
}

func (m *KNeighborsRegressor) Clone() Regressor {
	return &KNeighborsRegressor{NNeighbors: m.NNeighbors, Weights: m.Weights}
}

func (m *KNeighborsRegressor) Fit(X mat.Matrix, y []float64) error {
	n, p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	m.XTrain = make([]float64, 0, n*p)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		m.XTrain = append(m.XTrain, row...)
	}
	m.YTrain = append([]float64(nil), y...)
	m.NFeatures = p
	m.Fitted = true
	return nil
}

func (m *KNeighborsRegressor) Predict(X mat.Matrix) ([]float64, error) {
	n, err := checkPredict(m.Kind(), m.Fitted, X, m.NFeatures)
	if err != nil {
		return nil, err
	}
	nTrain := len(m.YTrain)
	k := m.NNeighbors
	if k > nTrain {
		k = nTrain
	}

	pred := make([]float64, n)
	query := make([]float64, m.NFeatures)
	dist := make([]float64, nTrain)
	idx := make([]int, nTrain)
	for i := 0; i < n; i++ {
		mat.Row(query, i, X)
		for t := 0; t < nTrain; t++ {
			dist[t] = floats.Distance(query, m.XTrain[t*m.NFeatures:(t+1)*m.NFeatures], 2)
			idx[t] = t
		}
		sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })
		pred[i] = m.aggregate(idx[:k], dist)
	}
	return pred, nil
}

func (m *KNeighborsRegressor) aggregate(neighbors []int, dist []float64) float64 {
	if m.Weights != WeightsDistance {
		s := 0.0
		for _, t := range neighbors {
			s += m.YTrain[t]
		}
		return s / float64(len(neighbors))
	}

	// Exact matches take all the weight.
	var exact []int
	for _, t := range neighbors {
		if dist[t] == 0 {
			exact = append(exact, t)
		}
	}
	if len(exact) > 0 {
		s := 0.0
		for _, t := range exact {
			s += m.YTrain[t]
		}
		return s / float64(len(exact))
	}

	var num, den float64
	for _, t := range neighbors {
		w := 1 / dist[t]
		num += w * m.YTrain[t]
		den += w
	}
	if den == 0 || math.IsInf(den, 0) {
		return math.NaN()
	}
	return num / den
}
