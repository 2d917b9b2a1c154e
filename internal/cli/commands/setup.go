package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/cli/config"
	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/ingest"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/internal/transform"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    state.Store
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open state store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := state.OpenSQLite(cc.Cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a state
// store. Useful for commands that record nothing.
func NewCommandContextWithoutStore(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := config.GetConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// Track records fn as a run of command. fn returns the path of the artifact
// it produced, if any. The run is marked failed when fn returns an error.
func (c *CommandContext) Track(command string, fn func(run *state.Run) (string, error)) error {
	run, err := c.Store.CreateRun(command)
	if err != nil {
		return err
	}
	c.Logger.Debug("run started", "id", run.ID, "command", command)

	artifactPath, runErr := fn(run)
	status := state.RunStatusCompleted
	var msg string
	if runErr != nil {
		status = state.RunStatusFailed
		msg = runErr.Error()
	}
	if err := c.Store.CompleteRun(run.ID, status, msg, artifactPath); err != nil {
		return errors.Join(runErr, err)
	}
	c.Logger.Debug("run finished", "id", run.ID, "status", status)
	return runErr
}

// adapterConfig is the engine configuration for CSV loading.
func (c *CommandContext) adapterConfig() adapter.Config {
	return adapter.Config{Type: "duckdb", Path: c.Cfg.Database, Params: c.Cfg.DatabaseParams}
}

// transformConfig is the transformation driver configuration.
func (c *CommandContext) transformConfig() transform.Config {
	return transform.Config{
		TargetColumn: c.Cfg.TargetColumn,
		ArtifactPath: c.Cfg.ArtifactPath(artifact.PreprocessorFile),
		Columns:      c.Cfg.Columns,
		Adapter:      c.adapterConfig(),
		Logger:       c.Logger,
	}
}

// trainerConfig is the trainer configuration.
func (c *CommandContext) trainerConfig() trainer.Config {
	return trainer.Config{
		Transform:  c.transformConfig(),
		Candidates: c.Cfg.Evaluate.Candidates,
		Folds:      c.Cfg.Evaluate.Folds,
		Jobs:       c.Cfg.Evaluate.Jobs,
		MinScore:   c.Cfg.Evaluate.MinScore,
		ModelPath:  c.Cfg.ArtifactPath(artifact.ModelFile),
		Logger:     c.Logger,
	}
}

// ingestOptions are the split options for outDir.
func (c *CommandContext) ingestOptions(outDir string) ingest.Options {
	return ingest.Options{
		OutDir:   outDir,
		TestSize: c.Cfg.Ingest.TestSize,
		Seed:     c.Cfg.Ingest.Seed,
		Adapter:  c.adapterConfig(),
		Logger:   c.Logger,
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
