package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
	"github.com/de-tools/concession-forecast/pkg/services/pipeline"
	fileexport "github.com/de-tools/concession-forecast/pkg/store/export"
)

// ChecksHandler renders a quantity reconciliation.
type ChecksHandler interface {
	HandleQuantityChecks(month domain.Month, checks []domain.QuantityCheck) error
}

type ReconcileCmd struct {
	global   *GlobalOptions
	deps     Dependencies
	reporter ChecksHandler

	month      string
	exportFile string
	exportDir  string
}

func NewReconcileCmd(global *GlobalOptions, deps Dependencies, reporter ChecksHandler) *cobra.Command {
	rc := &ReconcileCmd{global: global, deps: deps, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare warehouse quantities with a published concession cost export",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.month, "month", "", "Month to reconcile (YYYY-MM)")
	cmd.Flags().StringVar(&rc.exportFile, "export-file", "", "Path to the concession cost export CSV")
	cmd.Flags().StringVar(&rc.exportDir, "export-dir", "", "Directory to write the reconciliation table to")

	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("export-file")

	return cmd
}

func (rc *ReconcileCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	month, err := domain.ParseMonth(rc.month)
	if err != nil {
		return err
	}
	exported, err := pipeline.LoadExportFile(rc.exportFile)
	if err != nil {
		return err
	}

	s, err := rc.global.Settings()
	if err != nil {
		return err
	}
	session, err := openSession(ctx, s, rc.deps)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close warehouse")
		}
	}()

	ds, err := session.Loader.Load(ctx)
	if err != nil {
		return err
	}
	checks, err := pipeline.ReconcileDataset(ds, month, forecast.NewPackDivisor(s.Forecast.PackCountedBNFCodes), exported)
	if err != nil {
		logger.Warn().Err(err).Msg("pack selection completed with failures")
	}

	if err := rc.reporter.HandleQuantityChecks(month, checks); err != nil {
		return err
	}
	if rc.exportDir == "" {
		return nil
	}
	w, err := fileexport.NewWriter(rc.exportDir, s.Export.Formats)
	if err != nil {
		return err
	}
	if _, err := w.WriteQuantityChecks(ctx, month, checks); err != nil {
		return fmt.Errorf("failed to export reconciliation: %w", err)
	}
	return nil
}
