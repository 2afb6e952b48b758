package cli

import (
	"github.com/spf13/cobra"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check the workspace without resolving it",
		Long: `Load the workspace, translate it, and build its dependency graph.
This catches syntax errors, duplicate and undefined references, cyclic
references and malformed declarations, without evaluating a single
expression.`,
		Example: `  terrane validate
  terrane validate ./infra`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(opts.appConfig(args))
			if err != nil {
				return err
			}
			if err := a.Validate(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return nil
		},
	}
}
