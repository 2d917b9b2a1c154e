package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/trainer"
)

// PredictOutput is the JSON form of a prediction run.
type PredictOutput struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input"`
	Predictions []float64 `json:"predictions"`
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the target for new rows",
		Long: `Load the saved preprocessor and model from the artifact directory and
print one prediction per input row.

The input CSV needs the feature columns. A target column, if present, is
ignored.`,
		Example: `  leapml predict --input data/new_students.csv
  leapml predict --input data/new_students.csv -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, inputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "CSV file of rows to score")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPredict(cmd *cobra.Command, inputPath string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p := &trainer.Predictor{
		PreprocessorPath: cc.Cfg.ArtifactPath(artifact.PreprocessorFile),
		ModelPath:        cc.Cfg.ArtifactPath(artifact.ModelFile),
		TargetColumn:     cc.Cfg.TargetColumn,
		Adapter:          cc.adapterConfig(),
		Logger:           cc.Logger,
	}

	var (
		pred  []float64
		runID string
	)
	err = cc.Track("predict", func(run *state.Run) (string, error) {
		runID = run.ID
		var err error
		pred, err = p.Predict(cmd.Context(), inputPath)
		return "", err
	})
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(PredictOutput{RunID: runID, Input: inputPath, Predictions: pred})
	}

	rows := make([][]any, len(pred))
	for i, v := range pred {
		rows[i] = []any{i, strconv.FormatFloat(v, 'f', 4, 64)}
	}
	if r.Mode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Predictions"))
		r.Println("")
	} else {
		r.Header(1, "Predictions")
	}
	r.Table([]string{"Row", cc.Cfg.TargetColumn}, rows)
	return nil
}
