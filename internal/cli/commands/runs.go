package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapml/internal/cli/output"
	"github.com/leapstack-labs/leapml/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long:  `List past ingest, transform, train and predict runs, most recent first.`,
		Example: `  leapml runs
  leapml runs --limit 5 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 for all)")

	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cc.Store.ListRuns(limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	if r.Mode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Runs"))
		r.Println("")
	} else {
		r.Header(1, "Runs")
	}
	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	rows := make([][]any, len(runs))
	for i, run := range runs {
		rows[i] = []any{
			run.ID,
			run.Command,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			formatDuration(run),
		}
	}
	r.Table([]string{"ID", "Command", "Status", "Started", "Duration"}, rows)
	return nil
}

func formatDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}

// RunReport is a run and its scores.
type RunReport struct {
	Run    *state.Run    `json:"run" yaml:"run"`
	Scores []state.Score `json:"-" yaml:"scores,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show a recorded run and its model scores",
		Long: `Show the status of one run and, for train runs, the score of every
evaluated candidate.

--export yaml writes the report as YAML to stdout or to the file given with
--file.`,
		Example: `  leapml report 3f2b9c1e-...
  leapml report 3f2b9c1e-... --export yaml --file report.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runReport(cmd, args[0], export, file)
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "Export format (yaml)")
	cmd.Flags().String("file", "", "Write the export to a file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, runID, export, file string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := cc.Store.GetRun(runID)
	if err != nil {
		return err
	}
	scores, err := cc.Store.GetScores(runID)
	if err != nil {
		return err
	}
	rep := RunReport{Run: run, Scores: scores}

	switch export {
	case "":
	case "yaml":
		if file == "" {
			return writeYAML(cmd.OutOrStdout(), rep)
		}
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		if err := writeYAML(f, rep); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unknown export format %q (supported: yaml)", export)
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(struct {
			Run    *state.Run    `json:"run"`
			Scores []ScoreOutput `json:"scores"`
		}{run, scoreOutputs(scores)})
	}

	if r.Mode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Run "+run.ID))
		r.Println("")
		r.Println(output.FormatKeyValue("Command", run.Command))
		r.Println(output.FormatKeyValue("Status", string(run.Status)))
	} else {
		r.Header(1, "Run "+run.ID)
		r.StatusLine(run.Command, string(run.Status), formatDuration(run))
	}
	if run.ArtifactPath != "" {
		r.KeyValue("artifact", run.ArtifactPath)
	}
	if run.Error != "" {
		r.KeyValue("error", run.Error)
	}
	if len(scores) > 0 {
		r.Println("")
		renderScores(r, scores)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
