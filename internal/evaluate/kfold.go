package evaluate

import "fmt"

// Fold is one train/validation partition of row indices.
type Fold struct {
	Train      []int
	Validation []int
}

// KFold splits n rows into k contiguous, unshuffled folds. The first n%k
// folds get one extra row.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}
	folds := make([]Fold, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size
		f := Fold{Validation: make([]int, 0, size), Train: make([]int, 0, n-size)}
		for r := 0; r < n; r++ {
			if r >= start && r < end {
				f.Validation = append(f.Validation, r)
			} else {
				f.Train = append(f.Train, r)
			}
		}
		folds[i] = f
		start = end
	}
	return folds, nil
}
