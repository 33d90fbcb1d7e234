package backtest

import (
	"errors"
	"fmt"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
)

// Backtester runs forecasting methodologies and reports their error.
type Backtester interface {
	Run(m forecast.Methodology) (domain.MethodologyReport, error)
	Compare(methodologies []forecast.Methodology) ([]domain.MethodologyReport, error)
}

type backtester struct {
	forecaster *forecast.Forecaster
	window     YearWindow
}

func NewBacktester(forecaster *forecast.Forecaster, window YearWindow) Backtester {
	return &backtester{forecaster: forecaster, window: window}
}

// Run backtests one methodology. Records left out for missing references are
// returned as a joined error alongside the report.
func (b *backtester) Run(m forecast.Methodology) (domain.MethodologyReport, error) {
	records, err := b.forecaster.Backtest(m)
	report := domain.MethodologyReport{
		Methodology:    m.Name,
		Monthly:        ByMonth(records),
		FinancialYears: ByFinancialYear(records, b.window),
		Records:        records,
	}
	report.MonthlyStats = Summarise(report.Monthly)
	report.YearlyStats = Summarise(report.FinancialYears)
	return report, err
}

// Compare runs every methodology over the same inputs. A methodology that
// cannot run at all fails the comparison; partial results are kept.
func (b *backtester) Compare(methodologies []forecast.Methodology) ([]domain.MethodologyReport, error) {
	seen := make(map[string]struct{}, len(methodologies))
	reports := make([]domain.MethodologyReport, 0, len(methodologies))
	var errs []error
	for _, m := range methodologies {
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("duplicate methodology %q", m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.Discount == nil {
			return nil, fmt.Errorf("methodology %q has no discount source", m.Name)
		}

		report, err := b.Run(m)
		if err != nil {
			errs = append(errs, err)
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}
