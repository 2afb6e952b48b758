package cli

import (
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Resolve the workspace and re-resolve on every change",
		Long: `Resolve the workspace, then watch its files and re-resolve whenever
one changes. Runs until interrupted. Failed runs are reported and
watched through, so a broken save gets a fresh chance on the next one.

With --port, an HTTP server exposes /health and Prometheus /metrics.`,
		Example: `  terrane watch ./infra
  terrane watch ./infra --port 8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.appConfig(args)
			cfg.ServePort = port

			a, err := opts.newApp(cfg)
			if err != nil {
				return err
			}
			if err := a.Watch(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port for /health and /metrics; 0 disables the server")
	return cmd
}
