package model

// Grid maps a hyperparameter name to the values to try.
type Grid map[string][]any

// Size returns the number of combinations in the grid. An empty grid has one
// combination, the estimator's defaults.
func (g Grid) Size() int {
	n := 1
	for _, vals := range g {
		n *= len(vals)
	}
	return n
}

// ParameterGrid expands g into every combination. Keys are iterated in sorted
// order with the last key varying fastest, so the enumeration is stable.
// A key with no values yields no combinations.
func ParameterGrid(g Grid) []Params {
	keys := Params{}
	for k := range g {
		keys[k] = nil
	}
	names := keys.Keys()

	out := []Params{{}}
	for _, name := range names {
		vals := g[name]
		next := make([]Params, 0, len(out)*len(vals))
		for _, base := range out {
			for _, v := range vals {
				p := base.Clone()
				p[name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}
