package config

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapml/internal/model"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.TargetColumn == "" {
		errs = append(errs, fmt.Errorf("target_column is required"))
	}
	if len(c.Columns.Numeric)+len(c.Columns.Categorical) == 0 {
		errs = append(errs, fmt.Errorf("columns: at least one feature column is required"))
	}
	seen := make(map[string]bool)
	for _, col := range c.Columns.All() {
		if col == c.TargetColumn {
			errs = append(errs, fmt.Errorf("columns: target %q cannot be a feature", col))
		}
		if seen[col] {
			errs = append(errs, fmt.Errorf("columns: %q listed twice", col))
		}
		seen[col] = true
	}

	switch c.OutputFormat {
	case OutputAuto, OutputText, OutputMarkdown, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q (auto|text|markdown|json)", c.OutputFormat))
	}

	if c.Evaluate.Folds < 2 {
		errs = append(errs, fmt.Errorf("evaluate.folds must be at least 2, got %d", c.Evaluate.Folds))
	}
	if c.Evaluate.Jobs < 0 {
		errs = append(errs, fmt.Errorf("evaluate.jobs must not be negative, got %d", c.Evaluate.Jobs))
	}
	names := make(map[string]bool)
	for i, cand := range c.Evaluate.Candidates {
		if cand.Name == "" {
			errs = append(errs, fmt.Errorf("evaluate.candidates[%d]: name is required", i))
		} else if names[cand.Name] {
			errs = append(errs, fmt.Errorf("evaluate.candidates: duplicate name %q", cand.Name))
		}
		names[cand.Name] = true
		if _, err := model.New(cand.Kind); err != nil {
			errs = append(errs, fmt.Errorf("evaluate.candidates[%d]: %w", i, err))
		}
	}

	if c.Ingest.TestSize <= 0 || c.Ingest.TestSize >= 1 {
		errs = append(errs, fmt.Errorf("ingest.test_size must be in (0, 1), got %v", c.Ingest.TestSize))
	}

	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port must be in [0, 65535], got %d", c.UI.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
