package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/ingest"
	"github.com/leapstack-labs/leapml/internal/state"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var rawPath, outDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Split a raw dataset into train and test files",
		Long: `Load a raw CSV dataset and write a seeded random train/test split.

The output directory receives raw.csv, train.csv and test.csv. The test
fraction and seed come from --test-size and --seed, or the ingest section of
leapml.yaml.`,
		Example: `  # Split with the default 80/20 ratio
  leapml ingest --raw data/stud.csv

  # Hold out 30% into a custom directory
  leapml ingest --raw data/stud.csv --out data/split --test-size 0.3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, rawPath, outDir)
		},
	}

	cmd.Flags().StringVar(&rawPath, "raw", "", "Raw CSV dataset")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: artifact dir)")
	cmd.Flags().Float64("test-size", ingest.DefaultTestSize, "Fraction of rows held out for testing")
	cmd.Flags().Uint64("seed", ingest.DefaultSeed, "Shuffle seed")
	_ = cmd.MarkFlagRequired("raw")

	return cmd
}

func runIngest(cmd *cobra.Command, rawPath, outDir string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if outDir == "" {
		outDir = cc.Cfg.ArtifactDir
	}

	var res *ingest.Result
	err = cc.Track("ingest", func(_ *state.Run) (string, error) {
		var err error
		res, err = ingest.Split(cmd.Context(), rawPath, cc.ingestOptions(outDir))
		if err != nil {
			return "", err
		}
		return outDir, nil
	})
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Ingest"))
		r.Println("")
		r.Println(output.FormatKeyValue("Train", res.TrainPath))
		r.Println(output.FormatKeyValue("Test", res.TestPath))
		r.Printf("\n%d train rows, %d test rows\n", res.TrainRows, res.TestRows)
	default:
		r.Header(1, "Ingest")
		r.StatusLine(res.TrainPath, "completed", plural(res.TrainRows, "row"))
		r.StatusLine(res.TestPath, "completed", plural(res.TestRows, "row"))
		r.Muted("raw copy: " + res.RawPath)
	}
	return nil
}
