package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/de-tools/concession-forecast/pkg/adapters"
	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/models/store"
	"github.com/de-tools/concession-forecast/pkg/services/backtest"
	"github.com/de-tools/concession-forecast/pkg/services/calendar"
	"github.com/de-tools/concession-forecast/pkg/services/concession"
	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
	"github.com/de-tools/concession-forecast/pkg/services/pricing"
	"github.com/de-tools/concession-forecast/pkg/store/dataset"
)

const (
	StageAcquisition = "acquisition"
	StageRuns        = "run_detection"
	StagePrices      = "reference_prices"
	StagePacks       = "pack_selection"
	StageForecast    = "forecast"
	StageAggregation = "aggregation"

	ReportTitle = "Price concession forecast backtest"
)

// HolidayLoader supplies bank holidays for day-count weightings.
type HolidayLoader interface {
	Load(ctx context.Context, source, division string) (calendar.Holidays, error)
}

// Runner executes the backtest pipeline once.
type Runner interface {
	Run(ctx context.Context) (*domain.Report, error)
}

type runner struct {
	settings *config.Settings
	loader   dataset.Loader
	holidays HolidayLoader
}

func NewRunner(settings *config.Settings, loader dataset.Loader, holidays HolidayLoader) Runner {
	return &runner{settings: settings, loader: loader, holidays: holidays}
}

// Run acquires the dataset and runs every stage. Recoverable problems are
// recorded as report failures. Data integrity problems are also returned as
// an error alongside the report so callers can fail the run.
func (r *runner) Run(ctx context.Context) (*domain.Report, error) {
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)
	started := time.Now()

	report := &domain.Report{
		RunID:       runID,
		Title:       ReportTitle,
		GeneratedAt: started.UTC(),
		Currency:    "GBP",
	}
	var integrity []error
	record := func(stage string, err error) {
		if err == nil {
			return
		}
		var die *domain.DataIntegrityError
		if errors.As(err, &die) {
			integrity = append(integrity, err)
		}
		failures := domain.FailuresFrom(err)
		for i := range failures {
			if failures[i].Stage == "unknown" {
				failures[i].Stage = stage
			}
		}
		report.Failures = append(report.Failures, failures...)
		logger.Warn().Str("stage", stage).Int("failures", len(failures)).Msg("stage completed with failures")
	}

	stageLog := func(stage string) *zerolog.Event {
		return logger.Info().Str("stage", stage)
	}

	ds, err := r.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageAcquisition, err)
	}
	concessions := adapters.MapStoreConcessionRowsToDomain(ds.Concessions)
	tariff := adapters.MapStoreTariffRowsToDomain(ds.Tariff)
	items := adapters.MapStoreVMPPRowsToDomain(ds.VMPP)
	observations := adapters.MapStorePrescribingRowsToDomain(ds.Prescribing)
	stageLog(StageAcquisition).
		Int("concessions", len(concessions)).
		Int("tariff_prices", len(tariff)).
		Int("items", len(items)).
		Int("prescribing", len(observations)).
		Msg("dataset acquired")

	flags := concession.FlagsFromPrices(concessions)
	runs, err := concession.DetectRuns(flags)
	record(StageRuns, err)
	report.Runs = runs
	last, ok := concession.LastMonth(flags)
	var eligible []domain.ConcessionRun
	if ok {
		eligible = concession.Eligible(runs, last, r.settings.Pricing.MinPostMonths)
		report.Period = domain.NewTimePeriod(lo.MinBy(flags, func(a, b domain.ConcessionFlag) bool {
			return a.Month.Before(b.Month)
		}).Month, last)
	}
	stageLog(StageRuns).Int("runs", len(runs)).Int("eligible", len(eligible)).Msg("concession runs detected")

	prices, err := pricing.NewRollingPrices(tariff, r.settings.Pricing.Window)
	record(StagePrices, err)
	resolver := pricing.NewResolver(prices, pricing.Offsets{Pre: r.settings.Pricing.PreOffset, Post: r.settings.Pricing.PostOffset})
	changes, err := resolver.PriceChanges(eligible)
	record(StagePrices, err)
	report.PriceChanges = changes
	stageLog(StagePrices).Int("price_changes", len(changes)).Msg("reference prices resolved")

	divisor := forecast.NewPackDivisor(r.settings.Forecast.PackCountedBNFCodes)
	packs, err := forecast.SelectPacks(concessions, tariff, items, divisor)
	record(StagePacks, err)
	stageLog(StagePacks).Int("packs", len(packs)).Msg("concession packs selected")

	methodologies, err := r.methodologies(ctx, ds.MonthlyItems)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageForecast, err)
	}
	forecaster, err := forecast.NewForecaster(packs, observations, forecast.Options{
		LagMonths: r.settings.Forecast.LagMonths,
		Divisor:   divisor,
	})
	record(StageForecast, err)

	window := backtest.YearWindow{
		From: domain.FinancialYear(r.settings.Report.FromYear),
		To:   domain.FinancialYear(r.settings.Report.ToYear),
	}
	reports, err := backtest.NewBacktester(forecaster, window).Compare(methodologies)
	if reports == nil && err != nil {
		return nil, fmt.Errorf("%s: %w", StageForecast, err)
	}
	record(StageForecast, err)
	report.Methodologies = reports
	for _, m := range reports {
		report.Failures = append(report.Failures, undefinedPeriodFailures(m)...)
		stageLog(StageForecast).
			Str("methodology", m.Methodology).
			Int("records", len(m.Records)).
			Int("months", len(m.Monthly)).
			Msg("methodology backtested")
	}

	if len(methodologies) > 0 {
		impacts, err := r.impacts(forecaster, changes, items, methodologies[0])
		record(StageForecast, err)
		report.Impacts = impacts
	}

	logger.Info().
		Int("failures", len(report.Failures)).
		Dur("elapsed", time.Since(started)).
		Msg("pipeline completed")

	if len(integrity) > 0 {
		return report, fmt.Errorf("data integrity: %w", errors.Join(integrity...))
	}
	return report, nil
}

func (r *runner) methodologies(ctx context.Context, monthlyItems []store.ItemsRow) ([]forecast.Methodology, error) {
	ms := r.settings.Methodologies
	var sources forecast.WeightingSources

	if NeedsHolidays(ms) {
		if r.holidays == nil {
			return nil, fmt.Errorf("bank holidays are required but no loader is configured")
		}
		h, err := r.holidays.Load(ctx, r.settings.Calendar.HolidaysSource, r.settings.Calendar.Division)
		if err != nil {
			return nil, err
		}
		sources.Holidays = h
	}
	if NeedsSeasonalProfile(ms) {
		sources.Profile = forecast.NewSeasonalProfile(adapters.MapStoreItemsRowsToDomain(monthlyItems))
	}

	var monthly forecast.DiscountSource
	if NeedsMonthlyDiscount(ms) {
		d, err := forecast.LoadMonthlyDiscountFile(r.settings.Forecast.NADPFile)
		if err != nil {
			return nil, err
		}
		monthly = d
	}
	return BuildMethodologies(ms, r.settings.Forecast.DiscountPercent, monthly, sources)
}

// impacts forecasts the month after each priced run ends.
func (r *runner) impacts(
	f *forecast.Forecaster,
	changes []domain.RunPriceChange,
	items map[string]domain.PricedItem,
	m forecast.Methodology,
) ([]domain.RunImpact, error) {
	var (
		out  []domain.RunImpact
		errs []error
	)
	for _, c := range changes {
		item, ok := items[c.Run.VMPP]
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: StageForecast, Key: c.Run.VMPP, Month: c.Run.End, Reference: "vmpp reference"})
			continue
		}
		target := c.Run.End.AddMonths(1)
		v, err := f.RunImpact(c, item, target, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, domain.RunImpact{
			Run:         c.Run,
			BNFCode:     item.BNFCode,
			Target:      target,
			Methodology: m.Name,
			Impact:      v,
		})
	}
	return out, errors.Join(errs...)
}

// undefinedPeriodFailures reports the periods of m whose percentage error is
// undefined because the actual cost is zero.
func undefinedPeriodFailures(m domain.MethodologyReport) []domain.StageFailure {
	var out []domain.StageFailure
	for _, p := range backtest.Undefined(m.Monthly) {
		out = append(out, domain.StageFailure{
			Stage: StageAggregation,
			Key:   m.Methodology,
			Month: p.Period,
			Error: domain.ErrZeroActualCost.Error(),
		})
	}
	for _, p := range backtest.Undefined(m.FinancialYears) {
		out = append(out, domain.StageFailure{
			Stage:  StageAggregation,
			Key:    m.Methodology,
			Period: p.Period,
			Error:  domain.ErrZeroActualCost.Error(),
		})
	}
	return out
}
