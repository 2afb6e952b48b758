package cli

import (
	"github.com/spf13/cobra"
)

func newGraphCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [path]",
		Short: "Print the dependency graph in Graphviz DOT form",
		Long: `Build the workspace's dependency graph and print it as DOT, ready
for rendering:

  terrane graph | dot -Tsvg > graph.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(opts.appConfig(args))
			if err != nil {
				return err
			}
			if err := a.RenderGraph(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}
}
