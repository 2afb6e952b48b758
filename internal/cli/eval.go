package cli

import (
	"github.com/spf13/cobra"
)

func newEvalCommand(opts *rootOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "eval [path]",
		Short: "Resolve the workspace and print the outcome",
		Long: `Resolve the workspace: load every .hcl file, build the dependency
graph, evaluate it concurrently, and print outputs and resource
instances. The exit code is non-zero when any declaration fails, and
every failure is reported, not just the first.`,
		Example: `  # Resolve the workspace in the current directory
  terrane eval

  # Resolve a directory with variable inputs
  terrane eval ./infra --var-file prod.yaml --var region=eu-west-1

  # Machine-readable result
  terrane eval --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.appConfig(args)
			cfg.JSON = jsonOut

			a, err := opts.newApp(cfg)
			if err != nil {
				return err
			}
			if err := a.Run(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "render the result as a single JSON document")
	return cmd
}
