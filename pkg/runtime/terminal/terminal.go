package terminal

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/runtime/terminal/commands"
	"github.com/de-tools/concession-forecast/pkg/runtime/terminal/export"
	"github.com/de-tools/concession-forecast/pkg/services/pipeline"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
)

// CLI represents the command-line interface
type CLI struct {
	deps     commands.Dependencies
	global   *commands.GlobalOptions
	reporter *export.Reporter
	summary  *Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Warehouses warehouse.Registry
	Holidays   pipeline.HolidayLoader
	Output     io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Warehouses == nil {
		opts.Warehouses = warehouse.DefaultRegistry()
	}

	cli := &CLI{
		deps: commands.Dependencies{
			Warehouses: opts.Warehouses,
			Holidays:   opts.Holidays,
		},
		global:   &commands.GlobalOptions{},
		reporter: export.NewReporter(opts.Output),
		summary:  NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides the command-line arguments, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "concessions",
		Short:         "Price concession cost forecast backtesting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.global.Bind(cmd)

	reporters := map[string]commands.ReportHandler{
		commands.OutputTable:   cli.reporter,
		commands.OutputSummary: cli.summary,
	}
	cmd.AddCommand(commands.NewBacktestCmd(cli.global, cli.deps, reporters))
	cmd.AddCommand(commands.NewRunsCmd(cli.global, cli.deps, cli.reporter))
	cmd.AddCommand(commands.NewReconcileCmd(cli.global, cli.deps, cli.reporter))
	cmd.AddCommand(commands.NewProfilesCmd(cli.global, cli.deps))

	return cmd
}
