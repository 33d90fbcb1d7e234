package commands

import (
	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// RunsHandler renders detected concession runs.
type RunsHandler interface {
	HandleRuns(report *domain.Report) error
}

type RunsCmd struct {
	global   *GlobalOptions
	deps     Dependencies
	reporter RunsHandler
}

func NewRunsCmd(global *GlobalOptions, deps Dependencies, reporter RunsHandler) *cobra.Command {
	rc := &RunsCmd{global: global, deps: deps, reporter: reporter}
	return &cobra.Command{
		Use:   "runs",
		Short: "List detected price concession runs",
		RunE:  rc.run,
	}
}

func (rc *RunsCmd) run(cmd *cobra.Command, _ []string) error {
	s, err := rc.global.Settings()
	if err != nil {
		return err
	}
	report, runErr := runPipeline(cmd.Context(), s, rc.deps)
	if report == nil {
		return runErr
	}
	if err := rc.reporter.HandleRuns(report); err != nil {
		return err
	}
	return runErr
}
