package adapters

import (
	"github.com/de-tools/concession-forecast/pkg/models/api"
	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

func MapReportDomainToApiSummary(report *domain.Report) api.BacktestSummary {
	summary := api.BacktestSummary{
		RunID:         report.RunID,
		Title:         report.Title,
		Start:         report.Period.Start.String(),
		End:           report.Period.End.String(),
		Methodologies: make([]api.Methodology, 0, len(report.Methodologies)),
		Failures:      len(report.Failures),
	}
	for _, m := range report.Methodologies {
		summary.Methodologies = append(summary.Methodologies, api.Methodology{
			Name:               m.Methodology,
			Months:             len(m.Monthly),
			FinancialYears:     len(m.FinancialYears),
			MeanMonthlyError:   m.MonthlyStats.Mean,
			MonthlyErrorStdDev: m.MonthlyStats.StdDev,
		})
	}
	return summary
}

func MapPeriodSummariesDomainToApi(periods []domain.PeriodSummary) []api.Period {
	res := make([]api.Period, 0, len(periods))
	for _, p := range periods {
		res = append(res, api.Period{
			Period:            p.Period,
			PredictedCost:     p.PredictedCost,
			ActualCost:        p.ActualCost,
			Difference:        p.Difference,
			PercentDifference: p.PercentDifference,
		})
	}
	return res
}

func MapPriceChangeDomainToApi(change domain.RunPriceChange) api.PriceChange {
	return api.PriceChange{
		VMPP:      change.Run.VMPP,
		Start:     change.Run.Start.String(),
		End:       change.Run.End.String(),
		Length:    change.Run.Length,
		PrePrice:  poundsOrNil(change.PrePrice),
		PostPrice: poundsOrNil(change.PostPrice),
		Change:    change.Change,
	}
}

func poundsOrNil(p *domain.Pence) *float64 {
	if p == nil {
		return nil
	}
	v := p.Pounds()
	return &v
}
