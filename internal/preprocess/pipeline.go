package preprocess

import (
	"fmt"
)

// NamedStep is one named stage of a Pipeline.
type NamedStep struct {
	Name string
	Step Step
}

// Pipeline chains steps; each step is fitted on the output of the previous
// one.
type Pipeline struct {
	Steps []NamedStep
}

// NewPipeline builds a pipeline from steps.
func NewPipeline(steps ...NamedStep) *Pipeline {
	return &Pipeline{Steps: steps}
}

// Fit fits every step in order.
func (p *Pipeline) Fit(b Block) error {
	_, err := p.FitTransform(b)
	return err
}

// FitTransform fits every step and returns the final output.
func (p *Pipeline) FitTransform(b Block) (Block, error) {
	if len(p.Steps) == 0 {
		return Block{}, fmt.Errorf("pipeline has no steps")
	}
	cur := b
	for _, s := range p.Steps {
		next, err := FitTransform(s.Step, cur)
		if err != nil {
			return Block{}, fmt.Errorf("step %q: %w", s.Name, err)
		}
		cur = next
	}
	return cur, nil
}

// Transform runs b through every fitted step.
func (p *Pipeline) Transform(b Block) (Block, error) {
	cur := b
	for _, s := range p.Steps {
		next, err := s.Step.Transform(cur)
		if err != nil {
			return Block{}, fmt.Errorf("step %q: %w", s.Name, err)
		}
		cur = next
	}
	return cur, nil
}

// Step returns the named step, or nil.
func (p *Pipeline) Step(name string) Step {
	for _, s := range p.Steps {
		if s.Name == name {
			return s.Step
		}
	}
	return nil
}
