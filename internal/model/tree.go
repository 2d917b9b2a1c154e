package model

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
)

// TreeNode is one node of a fitted regression tree. Leaves carry Value;
// internal nodes send rows with x[Feature] <= Threshold to Left.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// DecisionTreeRegressor is a CART tree grown on squared error. Features are
// scanned in column order, so fitting is deterministic.
type DecisionTreeRegressor struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int

	Nodes     []TreeNode
	NFeatures int
	Fitted    bool
}

// NewDecisionTreeRegressor returns an unfitted, unlimited-depth tree.
func NewDecisionTreeRegressor() *DecisionTreeRegressor {
	return &DecisionTreeRegressor{MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (m *DecisionTreeRegressor) Kind() string { return "decision_tree" }

func (m *DecisionTreeRegressor) Params() Params {
	return Params{
		"max_depth":         m.MaxDepth,
		"min_samples_split": m.MinSamplesSplit,
		"min_samples_leaf":  m.MinSamplesLeaf,
	}
}

func (m *DecisionTreeRegressor) SetParams(p Params) error {
	for k, v := range p {
		if v == nil && k == "max_depth" {
			m.MaxDepth = 0
			continue
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		switch k {
		case "max_depth":
			if n < 0 {
				return fmt.Errorf("max_depth must be non-negative, got %d", n)
			}
			m.MaxDepth = n
		case "min_samples_split":
			if n < 2 {
				return fmt.Errorf("min_samples_split must be at least 2, got %d", n)
			}
			m.MinSamplesSplit = n
		case "min_samples_leaf":
			if n < 1 {
				return fmt.Errorf("min_samples_leaf must be positive, got %d", n)
			}
			m.MinSamplesLeaf = n
		default:
			return unknownParam(m.Kind(), k)
		}
	}
	return nil
}

func (m *DecisionTreeRegressor) Clone() Regressor {
	return &DecisionTreeRegressor{
		MaxDepth:        m.MaxDepth,
		MinSamplesSplit: m.MinSamplesSplit,
		MinSamplesLeaf:  m.MinSamplesLeaf,
	}
}

func (m *DecisionTreeRegressor) Fit(X mat.Matrix, y []float64) error {
	n, p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	b := treeBuilder{
		x:        mat.DenseCopyOf(X),
		y:        y,
		maxDepth: m.MaxDepth,
		minSplit: max(m.MinSamplesSplit, 2),
		minLeaf:  max(m.MinSamplesLeaf, 1),
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	b.grow(rows, 0)

	m.Nodes = b.nodes
	m.NFeatures = p
	m.Fitted = true
	return nil
}

func (m *DecisionTreeRegressor) Predict(X mat.Matrix) ([]float64, error) {
	n, err := checkPredict(m.Kind(), m.Fitted, X, m.NFeatures)
	if err != nil {
		return nil, err
	}
	pred := make([]float64, n)
	for i := 0; i < n; i++ {
		node := m.Nodes[0]
		for !node.Leaf {
			if X.At(i, node.Feature) <= node.Threshold {
				node = m.Nodes[node.Left]
			} else {
				node = m.Nodes[node.Right]
			}
		}
		pred[i] = node.Value
	}
	return pred, nil
}

type treeBuilder struct {
	x        *mat.Dense
	y        []float64
	maxDepth int
	minSplit int
	minLeaf  int
	nodes    []TreeNode
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Leaf: true, Value: b.mean(rows)})

	if len(rows) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}
	feature, threshold, ok := b.bestSplit(rows)
	if !ok {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.x.At(r, feature) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

func (b *treeBuilder) mean(rows []int) float64 {
	s := 0.0
	for _, r := range rows {
		s += b.y[r]
	}
	return s / float64(len(rows))
}

// bestSplit finds the split with the lowest summed squared error. A split
// must strictly improve on the parent.
func (b *treeBuilder) bestSplit(rows []int) (int, float64, bool) {
	n := len(rows)
	_, p := b.x.Dims()

	var total, totalSq float64
	for _, r := range rows {
		total += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}
	parentSSE := totalSq - total*total/float64(n)

	bestSSE := parentSSE
	bestFeature, bestThreshold, found := 0, 0.0, false
	order := make([]int, n)
	for f := 0; f < p; f++ {
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool { return b.x.At(order[i], f) < b.x.At(order[j], f) })

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			yv := b.y[order[i]]
			leftSum += yv
			leftSq += yv * yv

			nl, nr := i+1, n-i-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			cur, next := b.x.At(order[i], f), b.x.At(order[i+1], f)
			if cur == next {
				continue
			}
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
