package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/evaluate"
	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/trainer"
)

// ScoreOutput is the JSON form of one evaluated candidate. Undefined R²
// values are null.
type ScoreOutput struct {
	Model      string       `json:"model"`
	Kind       string       `json:"kind"`
	BestParams model.Params `json:"best_params"`
	CVR2       *float64     `json:"cv_r2"`
	TrainR2    *float64     `json:"train_r2"`
	TestR2     *float64     `json:"test_r2"`
}

// TrainOutput is the JSON form of a training run.
type TrainOutput struct {
	RunID     string        `json:"run_id"`
	Best      string        `json:"best,omitempty"`
	ModelPath string        `json:"model_path,omitempty"`
	Scores    []ScoreOutput `json:"scores"`
	Error     string        `json:"error,omitempty"`
}

// NewTrainCommand creates the train command.
func NewTrainCommand() *cobra.Command {
	var trainPath, testPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Tune candidate regressors and save the best one",
		Long: `Transform the train and test splits, tune every configured candidate with
cross-validated grid search and report the test R² of each.

The best candidate is saved to the artifact directory when its test R²
reaches the minimum score. Candidates and their grids come from the
evaluate section of leapml.yaml.`,
		Example: `  # Train on the splits written by ingest
  leapml train

  # Run four fits at a time with 5 folds
  leapml train --jobs 4 --folds 5

  # Report as JSON
  leapml train -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, trainPath, testPath)
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "Training CSV (default: <artifact-dir>/train.csv)")
	cmd.Flags().StringVar(&testPath, "test", "", "Test CSV (default: <artifact-dir>/test.csv)")
	cmd.Flags().Int("jobs", 1, "Concurrent fits during grid search")
	cmd.Flags().Int("folds", evaluate.DefaultFolds, "Cross-validation folds")
	cmd.Flags().Float64("min-score", trainer.DefaultMinScore, "Lowest acceptable test R² for the best model")

	return cmd
}

func runTrain(cmd *cobra.Command, trainPath, testPath string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	trainPath, testPath = cc.splitPaths(trainPath, testPath)
	t := trainer.New(cc.trainerConfig())

	var (
		res   *trainer.Result
		runID string
	)
	runErr := cc.Track("train", func(run *state.Run) (string, error) {
		runID = run.ID
		var err error
		res, err = t.Run(cmd.Context(), trainPath, testPath)
		if res != nil && res.Report != nil {
			if recErr := cc.Store.RecordScores(run.ID, res.Report); recErr != nil {
				return "", errors.Join(err, recErr)
			}
		}
		if err != nil {
			return "", err
		}
		return res.ModelPath, nil
	})

	// A run below the minimum score still has a report worth showing.
	if res == nil || res.Report == nil {
		return runErr
	}
	scores := scoresFromReport(res.Report)

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		out := TrainOutput{RunID: runID, ModelPath: res.ModelPath, Scores: scoreOutputs(scores)}
		if res.ModelPath != "" {
			out.Best = res.Best.Model
		}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		if err := r.JSON(out); err != nil {
			return err
		}
		return runErr
	}

	if r.Mode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Model Report"))
		r.Println("")
	} else {
		r.Header(1, "Model Report")
	}
	renderScores(r, scores)

	switch {
	case errors.Is(runErr, pipeerr.ErrNoBestModel):
		r.Println("")
		r.StatusLine("no model reached the minimum score", "failed", output.FormatScore(cc.Cfg.Evaluate.MinScore))
	case runErr == nil:
		r.Println("")
		r.StatusLine(res.Best.Model, "completed", "test r2 "+output.FormatScore(res.Best.TestR2))
		r.KeyValue("model", res.ModelPath)
	}
	return runErr
}

func scoresFromReport(rep *evaluate.Report) []state.Score {
	scores := make([]state.Score, len(rep.Entries))
	for i, e := range rep.Entries {
		scores[i] = state.Score{
			Position:   i,
			Model:      e.Model,
			Kind:       e.Kind,
			CVR2:       e.CVScore,
			TrainR2:    e.TrainR2,
			TestR2:     e.TestR2,
			BestParams: e.BestParams,
		}
	}
	return scores
}

func scoreOutputs(scores []state.Score) []ScoreOutput {
	out := make([]ScoreOutput, len(scores))
	for i, s := range scores {
		out[i] = ScoreOutput{
			Model:      s.Model,
			Kind:       s.Kind,
			BestParams: s.BestParams,
			CVR2:       output.NullableFloat(s.CVR2),
			TrainR2:    output.NullableFloat(s.TrainR2),
			TestR2:     output.NullableFloat(s.TestR2),
		}
	}
	return out
}

func renderScores(r *output.Renderer, scores []state.Score) {
	rows := make([][]any, len(scores))
	for i, s := range scores {
		rows[i] = []any{
			s.Model,
			s.BestParams.String(),
			output.FormatScore(s.CVR2),
			output.FormatScore(s.TrainR2),
			output.FormatScore(s.TestR2),
		}
	}
	r.Table([]string{"Model", "Best Params", "CV R²", "Train R²", "Test R²"}, rows)
}
