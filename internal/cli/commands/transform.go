package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/ingest"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/transform"
)

// TransformOutput is the JSON form of a transformation run.
type TransformOutput struct {
	RunID        string   `json:"run_id"`
	TrainShape   [2]int   `json:"train_shape"`
	TestShape    [2]int   `json:"test_shape"`
	ArtifactPath string   `json:"artifact_path"`
	FeatureNames []string `json:"feature_names"`
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	var trainPath, testPath string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Fit the preprocessor and transform both splits",
		Long: `Fit the feature transformer on the training split, transform the train
and test splits and save the fitted transformer to the artifact directory.

The target column is dropped from the features and appended as the last
column of each transformed array.`,
		Example: `  # Use the splits written by ingest
  leapml transform

  # Explicit paths
  leapml transform --train data/train.csv --test data/test.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, trainPath, testPath)
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "Training CSV (default: <artifact-dir>/train.csv)")
	cmd.Flags().StringVar(&testPath, "test", "", "Test CSV (default: <artifact-dir>/test.csv)")

	return cmd
}

func runTransform(cmd *cobra.Command, trainPath, testPath string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	trainPath, testPath = cc.splitPaths(trainPath, testPath)

	var (
		res   *transform.Result
		runID string
	)
	err = cc.Track("transform", func(run *state.Run) (string, error) {
		runID = run.ID
		var err error
		res, err = transform.New(cc.transformConfig()).Run(cmd.Context(), trainPath, testPath)
		if err != nil {
			return "", err
		}
		return res.ArtifactPath, nil
	})
	if err != nil {
		return err
	}

	out := TransformOutput{
		RunID:        runID,
		ArtifactPath: res.ArtifactPath,
		FeatureNames: res.FeatureNames,
	}
	out.TrainShape[0], out.TrainShape[1] = res.Train.Dims()
	out.TestShape[0], out.TestShape[1] = res.Test.Dims()

	r := cc.Renderer
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Transform"))
		r.Println("")
		r.Println(output.FormatKeyValue("Train", shape(out.TrainShape)))
		r.Println(output.FormatKeyValue("Test", shape(out.TestShape)))
		r.Println(output.FormatKeyValue("Preprocessor", out.ArtifactPath))
	default:
		r.Header(1, "Transform")
		r.KeyValue("train", shape(out.TrainShape))
		r.KeyValue("test", shape(out.TestShape))
		r.KeyValue("preprocessor", out.ArtifactPath)
		r.Muted("run " + runID)
	}
	return nil
}

func shape(s [2]int) string {
	return fmt.Sprintf("(%d, %d)", s[0], s[1])
}

// splitPaths fills empty paths with the files ingest writes to the artifact
// directory.
func (c *CommandContext) splitPaths(trainPath, testPath string) (string, string) {
	if trainPath == "" {
		trainPath = filepath.Join(c.Cfg.ArtifactDir, ingest.TrainFile)
	}
	if testPath == "" {
		testPath = filepath.Join(c.Cfg.ArtifactDir, ingest.TestFile)
	}
	return trainPath, testPath
}
