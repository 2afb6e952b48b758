package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/terrane/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// rootOptions holds the persistent flags shared by every subcommand,
// plus the writers the commands render to.
type rootOptions struct {
	outW io.Writer
	errW io.Writer

	configPath string
	varFiles   []string
	vars       []string
	logFormat  string
	logLevel   string
	workers    int
}

// appConfig assembles the app configuration for a subcommand. A
// positional path argument overrides --config.
func (o *rootOptions) appConfig(args []string) app.Config {
	path := o.configPath
	if len(args) > 0 && args[0] != "" {
		path = args[0]
	}
	return app.Config{
		ConfigPath: path,
		VarFiles:   o.varFiles,
		Vars:       o.vars,
		LogFormat:  o.logFormat,
		LogLevel:   o.logLevel,
		Workers:    o.workers,
	}
}

// newApp builds the App for a subcommand. Construction problems are
// usage errors and exit with code 2.
func (o *rootOptions) newApp(cfg app.Config) (*app.App, error) {
	a, err := app.NewApp(o.outW, o.errW, cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return a, nil
}

// Execute runs the command tree against the given arguments.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand assembles the terrane command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &rootOptions{outW: outW, errW: errW}

	rootCmd := &cobra.Command{
		Use:   "terrane",
		Short: "Terrane - a declarative desired-state configuration resolver",
		Long: `Terrane resolves declarative .hcl workspaces: variables, locals,
resources with count/for_each, and outputs, evaluated concurrently
over their dependency graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(outW)
	rootCmd.SetErr(errW)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", ".", "path to an .hcl file or a directory of .hcl files")
	flags.StringArrayVar(&opts.varFiles, "var-file", nil, "YAML variable file; repeatable, applied in order")
	flags.StringArrayVar(&opts.vars, "var", nil, "variable literal name=value; repeatable, wins over var files")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log output format: 'text' or 'json'")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: 'debug', 'info', 'warn' or 'error'")
	flags.IntVar(&opts.workers, "workers", 0, "resolver pool size; 0 means one per CPU")

	rootCmd.AddCommand(newEvalCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newGraphCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))

	return rootCmd
}
