package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// R2Score returns the coefficient of determination of yPred against yTrue.
//
// A constant yTrue scores 1 for a perfect prediction and 0 otherwise. Fewer
// than two samples leave R² undefined and yield NaN.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("r2: %d true values, %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) < 2 {
		return math.NaN(), nil
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i, yt := range yTrue {
		r := yt - yPred[i]
		ssRes += r * r
		d := yt - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}
