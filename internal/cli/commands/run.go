package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/evaluate"
	"github.com/leapstack-labs/leapml/internal/ingest"
	"github.com/leapstack-labs/leapml/internal/pipeline"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/internal/transform"
)

// StageOutput is the JSON form of one pipeline stage.
type StageOutput struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunOutput is the JSON form of a pipeline run.
type RunOutput struct {
	RunID     string        `json:"run_id"`
	Stages    []StageOutput `json:"stages"`
	ModelPath string        `json:"model_path,omitempty"`
	Scores    []ScoreOutput `json:"scores,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		rawPath    string
		selected   []string
		downstream bool
	)

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"pipeline"},
		Short:   "Run the ingest, transform and train stages in order",
		Long: `Run the training pipeline: split the raw dataset, fit the preprocessor and
tune the candidate models.

Use --select to run only some stages, and --downstream to also run every
stage that depends on them. Stages share results in memory, so train reuses
the arrays produced by transform in the same run.`,
		Example: `  # Full pipeline
  leapml run --raw data/stud.csv

  # Re-train from the existing splits
  leapml run --select transform --downstream`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, rawPath, selected, downstream)
		},
	}

	cmd.Flags().StringVar(&rawPath, "raw", "", "Raw CSV dataset (needed by the ingest stage)")
	cmd.Flags().StringSliceVarP(&selected, "select", "s", nil, "Stages to run (ingest, transform, train)")
	cmd.Flags().BoolVar(&downstream, "downstream", false, "Also run stages downstream of the selection")
	cmd.Flags().Float64("test-size", ingest.DefaultTestSize, "Fraction of rows held out for testing")
	cmd.Flags().Uint64("seed", ingest.DefaultSeed, "Shuffle seed")
	cmd.Flags().Int("jobs", 1, "Concurrent fits during grid search")
	cmd.Flags().Int("folds", evaluate.DefaultFolds, "Cross-validation folds")
	cmd.Flags().Float64("min-score", trainer.DefaultMinScore, "Lowest acceptable test R² for the best model")

	return cmd
}

func runPipeline(cmd *cobra.Command, rawPath string, selected []string, downstream bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	trainPath, testPath := cc.splitPaths("", "")
	var (
		tr  *transform.Result
		res *trainer.Result
	)

	p := pipeline.New(cc.Logger)
	stages := []struct {
		name  string
		fn    pipeline.StageFunc
		after []string
	}{
		{pipeline.StageIngest, func(ctx context.Context) error {
			if rawPath == "" {
				return errors.New("--raw is required to run the ingest stage")
			}
			_, err := ingest.Split(ctx, rawPath, cc.ingestOptions(cc.Cfg.ArtifactDir))
			return err
		}, nil},
		{pipeline.StageTransform, func(ctx context.Context) error {
			var err error
			tr, err = transform.New(cc.transformConfig()).Run(ctx, trainPath, testPath)
			return err
		}, []string{pipeline.StageIngest}},
		{pipeline.StageTrain, func(ctx context.Context) error {
			t := trainer.New(cc.trainerConfig())
			var err error
			if tr != nil {
				res, err = t.RunTransformed(ctx, tr)
			} else {
				res, err = t.Run(ctx, trainPath, testPath)
			}
			return err
		}, []string{pipeline.StageTransform}},
	}
	for _, s := range stages {
		if err := p.Add(s.name, s.fn, s.after...); err != nil {
			return err
		}
	}

	plan, err := p.Plan(selected, downstream)
	if err != nil {
		return err
	}

	var (
		results []pipeline.StageResult
		runID   string
	)
	runErr := cc.Track("run", func(run *state.Run) (string, error) {
		runID = run.ID
		var err error
		results, err = p.Run(cmd.Context(), plan)
		if res != nil && res.Report != nil {
			if recErr := cc.Store.RecordScores(run.ID, res.Report); recErr != nil {
				return "", errors.Join(err, recErr)
			}
		}
		if err != nil {
			return "", err
		}
		switch {
		case res != nil:
			return res.ModelPath, nil
		case tr != nil:
			return tr.ArtifactPath, nil
		}
		return cc.Cfg.ArtifactDir, nil
	})

	out := RunOutput{RunID: runID, Stages: stageOutputs(plan, results)}
	if res != nil {
		out.ModelPath = res.ModelPath
		if res.Report != nil {
			out.Scores = scoreOutputs(scoresFromReport(res.Report))
		}
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
		return runErr
	}

	r.Header(1, "Pipeline")
	for _, s := range out.Stages {
		detail := ""
		if s.Status != "skipped" {
			detail = fmt.Sprintf("%dms", s.DurationMS)
		}
		r.StatusLine(s.Name, s.Status, detail)
	}
	if res != nil && res.Report != nil {
		r.Println("")
		renderScores(r, scoresFromReport(res.Report))
	}
	if out.ModelPath != "" {
		r.Println("")
		r.KeyValue("model", out.ModelPath)
	}
	return runErr
}

// stageOutputs reports every planned stage. Stages after a failure are
// skipped.
func stageOutputs(plan []string, results []pipeline.StageResult) []StageOutput {
	out := make([]StageOutput, len(plan))
	for i, name := range plan {
		out[i] = StageOutput{Name: name, Status: "skipped"}
		if i >= len(results) {
			continue
		}
		res := results[i]
		out[i].DurationMS = res.Duration.Milliseconds()
		out[i].Status = "completed"
		if res.Err != nil {
			out[i].Status = "failed"
			out[i].Error = res.Err.Error()
		}
	}
	return out
}
