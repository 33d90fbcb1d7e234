package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/pipeline"
	fileexport "github.com/de-tools/concession-forecast/pkg/store/export"
)

const (
	OutputTable   = "table"
	OutputSummary = "summary"
)

// ReportHandler renders a finished report.
type ReportHandler interface {
	Handle(report *domain.Report) error
}

type BacktestCmd struct {
	global    *GlobalOptions
	deps      Dependencies
	reporters map[string]ReportHandler

	output    string
	exportDir string
	formats   []string
	upload    bool
}

func NewBacktestCmd(global *GlobalOptions, deps Dependencies, reporters map[string]ReportHandler) *cobra.Command {
	bc := &BacktestCmd{global: global, deps: deps, reporters: reporters}
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest concession cost forecasts against actual spend",
		RunE:  bc.run,
	}

	cmd.Flags().StringVarP(&bc.output, "output", "o", OutputTable, "Output style: table or summary")
	cmd.Flags().StringVar(&bc.exportDir, "export-dir", "", "Directory to write report tables to (overrides export.dir)")
	cmd.Flags().StringSliceVar(&bc.formats, "export-format", nil, "Export formats: csv, parquet (overrides export.formats)")
	cmd.Flags().BoolVar(&bc.upload, "upload", false, "Upload exported tables to export.s3_bucket")

	return cmd
}

func (bc *BacktestCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reporter, ok := bc.reporters[bc.output]
	if !ok {
		return fmt.Errorf("unknown output style %q", bc.output)
	}

	s, err := bc.global.Settings()
	if err != nil {
		return err
	}
	report, runErr := runPipeline(ctx, s, bc.deps)
	if report == nil {
		return runErr
	}

	if err := reporter.Handle(report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := bc.export(ctx, s, report); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (bc *BacktestCmd) export(ctx context.Context, s *config.Settings, report *domain.Report) error {
	dir := s.Export.Dir
	if bc.exportDir != "" {
		dir = bc.exportDir
	}
	if dir == "" {
		if bc.upload {
			return fmt.Errorf("--upload needs an export directory")
		}
		return nil
	}
	formats := s.Export.Formats
	if len(bc.formats) > 0 {
		formats = bc.formats
	}

	w, err := fileexport.NewWriter(dir, formats)
	if err != nil {
		return err
	}
	paths, err := w.WriteReport(ctx, report)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("dir", dir).Int("files", len(paths)).Msg("report exported")

	if !bc.upload {
		return nil
	}
	uploader, err := fileexport.NewS3Uploader(ctx, s.Export.S3Bucket, s.Export.S3Prefix)
	if err != nil {
		return err
	}
	return uploader.Upload(ctx, paths)
}

func runPipeline(ctx context.Context, s *config.Settings, deps Dependencies) (*domain.Report, error) {
	session, err := openSession(ctx, s, deps)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close warehouse")
		}
	}()

	return pipeline.NewRunner(s, session.Loader, deps.Holidays).Run(ctx)
}
