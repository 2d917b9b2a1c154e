package model

import (
	"encoding/gob"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs an unfitted regressor with default hyperparameters.
type Factory func() Regressor

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register("linear", func() Regressor { return NewLinearRegression() })
	Register("ridge", func() Regressor { return NewRidge() })
	Register("knn", func() Regressor { return NewKNeighborsRegressor() })
	Register("decision_tree", func() Regressor { return NewDecisionTreeRegressor() })

	gob.Register(&LinearRegression{})
	gob.Register(&Ridge{})
	gob.Register(&KNeighborsRegressor{})
	gob.Register(&DecisionTreeRegressor{})
}

// Register makes a regressor kind available by name. Registering the same
// name twice replaces the earlier factory.
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// List returns the registered kinds, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New returns an unfitted regressor of the given kind.
func New(kind string) (Regressor, error) {
	registryMu.RLock()
	factory, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownModelError{Kind: kind, Available: List()}
	}
	return factory(), nil
}

// UnknownModelError is returned when a candidate names an unregistered kind.
type UnknownModelError struct {
	Kind      string
	Available []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model kind %q (available: %s)", e.Kind, strings.Join(e.Available, ", "))
}
