package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/ui"
)

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ui",
		Aliases: []string{"serve"},
		Short:   "Serve the run history dashboard",
		Long: `Start a local web server showing recorded runs and their model scores.

The runs page updates live while other leapml commands write to the state
database. Run details are also available as JSON under /api/runs.`,
		Example: `  # Serve on the default port
  leapml ui

  # Serve on a custom port without live updates
  leapml ui --port 3000 --watch=false`,
		RunE: runUI,
	}

	cmd.Flags().Int("port", ui.DefaultPort, "Port to serve on")
	cmd.Flags().Bool("watch", true, "Push updates when the state database changes")

	return cmd
}

func runUI(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	server := ui.NewServer(ui.Config{
		Store:     cc.Store,
		Port:      cc.Cfg.UI.Port,
		Watch:     cc.Cfg.UI.Watch,
		StatePath: cc.Cfg.StatePath,
		Logger:    cc.Logger,
	})

	cc.Renderer.Printf("Serving run history on http://localhost:%d\n", cc.Cfg.UI.Port)
	cc.Renderer.Muted("Press Ctrl+C to stop")
	return server.Serve(cmd.Context())
}
