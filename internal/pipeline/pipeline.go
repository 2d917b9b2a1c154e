package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Stage names of the training pipeline.
const (
	StageIngest    = "ingest"
	StageTransform = "transform"
	StageTrain     = "train"
)

// StageFunc runs one stage.
type StageFunc func(ctx context.Context) error

// StageResult is the outcome of one executed stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// UnknownStageError is returned when a selection names a stage that was
// never added.
type UnknownStageError struct {
	Name      string
	Available []string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Pipeline is a set of stages with dependencies.
type Pipeline struct {
	graph  *Graph
	stages map[string]StageFunc
	logger *slog.Logger
}

// New creates an empty pipeline.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		graph:  NewGraph(),
		stages: make(map[string]StageFunc),
		logger: logger,
	}
}

// Add registers a stage that runs after the named stages, which must
// already exist.
func (p *Pipeline) Add(name string, fn StageFunc, after ...string) error {
	if _, dup := p.stages[name]; dup {
		return fmt.Errorf("stage %q already added", name)
	}
	p.graph.AddNode(name)
	for _, parent := range after {
		if err := p.graph.AddEdge(parent, name); err != nil {
			return fmt.Errorf("stage %q: %w", name, err)
		}
	}
	p.stages[name] = fn
	return nil
}

// Stages returns every stage in execution order.
func (p *Pipeline) Stages() []string {
	return p.graph.TopologicalSort()
}

// Plan returns the stages to run in execution order. An empty selection
// means every stage. With downstream set, each selected stage brings its
// dependents along.
func (p *Pipeline) Plan(selected []string, downstream bool) ([]string, error) {
	if len(selected) == 0 {
		return p.Stages(), nil
	}

	want := make(map[string]bool)
	for _, name := range selected {
		if !p.graph.Has(name) {
			return nil, &UnknownStageError{Name: name, Available: p.Stages()}
		}
		want[name] = true
		if downstream {
			for _, d := range p.graph.Downstream(name) {
				want[d] = true
			}
		}
	}

	var plan []string
	for _, name := range p.Stages() {
		if want[name] {
			plan = append(plan, name)
		}
	}
	return plan, nil
}

// Run executes plan in order and stops at the first failing stage. The
// results cover every stage that ran, including the failed one.
func (p *Pipeline) Run(ctx context.Context, plan []string) ([]StageResult, error) {
	results := make([]StageResult, 0, len(plan))
	for _, name := range plan {
		fn, ok := p.stages[name]
		if !ok {
			return results, &UnknownStageError{Name: name, Available: p.Stages()}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		p.logger.Debug("stage started", "stage", name)
		start := time.Now()
		err := fn(ctx)
		res := StageResult{Name: name, Duration: time.Since(start), Err: err}
		results = append(results, res)
		if err != nil {
			p.logger.Error("stage failed", "stage", name, "error", err)
			return results, fmt.Errorf("stage %s: %w", name, err)
		}
		p.logger.Info("stage completed", "stage", name, "duration", res.Duration)
	}
	return results, nil
}
