package backtest

import (
	"testing"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/concession"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
	"github.com/de-tools/concession-forecast/pkg/services/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(year, m int) domain.Month {
	return domain.NewMonth(year, time.Month(m))
}

func record(m domain.Month, predicted, actual float64) domain.ForecastRecord {
	return domain.ForecastRecord{Month: m, PredictedCost: predicted, ActualCost: actual, Difference: predicted - actual}
}

func TestByMonth_SumsBeforeDividing(t *testing.T) {
	records := []domain.ForecastRecord{
		record(month(2021, 4), 110, 100),
		record(month(2021, 4), 10, 100),
		record(month(2021, 5), 50, 40),
	}

	got := ByMonth(records)

	require.Len(t, got, 2)
	assert.Equal(t, "2021-04", got[0].Period)
	assert.Equal(t, 2, got[0].Records)
	assert.InDelta(t, 120, got[0].PredictedCost, 1e-9)
	assert.InDelta(t, 200, got[0].ActualCost, 1e-9)
	assert.InDelta(t, -80, got[0].Difference, 1e-9)
	require.NotNil(t, got[0].PercentDifference)
	assert.InDelta(t, -0.4, *got[0].PercentDifference, 1e-9)
	assert.Equal(t, month(2021, 5), got[1].Start)
}

func TestByMonth_ZeroActual(t *testing.T) {
	got := ByMonth([]domain.ForecastRecord{record(month(2021, 4), 10, 0)})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].PercentDifference)
	assert.Len(t, Undefined(got), 1)
}

func TestFinancialYearDifferenceIsSumOfMonths(t *testing.T) {
	var records []domain.ForecastRecord
	for i, m := range domain.MonthRange(month(2020, 11), month(2021, 7)) {
		records = append(records, record(m, float64(100+i*7), float64(90+i*11)))
	}

	monthly := ByMonth(records)
	yearly := ByFinancialYear(records, YearWindow{})

	require.Len(t, yearly, 2)
	assert.Equal(t, "2020-21", yearly[0].Period)
	assert.Equal(t, "2021-22", yearly[1].Period)

	sums := map[domain.FinancialYear]float64{}
	for _, p := range monthly {
		sums[p.Start.FinancialYear()] += p.Difference
	}
	for _, y := range yearly {
		assert.InDelta(t, sums[y.Start.FinancialYear()], y.Difference, 1e-9)
	}
}

func TestByFinancialYear_Window(t *testing.T) {
	records := []domain.ForecastRecord{
		record(month(2017, 3), 1, 1),
		record(month(2017, 4), 1, 1),
		record(month(2022, 3), 1, 1),
		record(month(2022, 4), 1, 1),
	}

	got := ByFinancialYear(records, YearWindow{From: 2018, To: 2022})

	require.Len(t, got, 2)
	assert.Equal(t, "2017-18", got[0].Period)
	assert.Equal(t, "2021-22", got[1].Period)
}

func TestSummarise(t *testing.T) {
	pct := func(v float64) *float64 { return &v }
	periods := []domain.PeriodSummary{
		{PercentDifference: pct(0.1)},
		{PercentDifference: pct(0.3)},
		{PercentDifference: nil},
		{PercentDifference: pct(-0.1)},
	}

	stats := Summarise(periods)

	assert.Equal(t, 3, stats.Periods)
	require.NotNil(t, stats.Mean)
	assert.InDelta(t, 0.1, *stats.Mean, 1e-9)
	require.NotNil(t, stats.StdDev)
	assert.InDelta(t, 0.2, *stats.StdDev, 1e-9)

	single := Summarise(periods[:1])
	assert.NotNil(t, single.Mean)
	assert.Nil(t, single.StdDev)

	assert.Nil(t, Summarise(nil).Mean)
}

func TestBacktester_Compare(t *testing.T) {
	target := month(2021, 4)
	packs := []domain.ConcessionPack{{Month: target, BNFCode: "X", VMPP: "a", ConcessionPrice: 500, TariffPrice: 300, Divisor: 28, PackSize: 28}}
	observations := []domain.PrescribingObservation{
		{BNFCode: "X", Month: month(2021, 2), Quantity: 1000},
		{BNFCode: "X", Month: target, ActualCost: 150},
	}
	f, err := forecast.NewForecaster(packs, observations, forecast.DefaultOptions())
	require.NoError(t, err)

	b := NewBacktester(f, YearWindow{})
	reports, err := b.Compare([]forecast.Methodology{
		{Name: "fixed", Discount: forecast.FixedDiscount{Percent: forecast.DefaultDiscountPercent}},
		{Name: "monthly", Discount: forecast.NewMonthlyDiscount(map[domain.Month]float64{})},
	})

	var missing *domain.MissingReferenceError
	require.ErrorAs(t, err, &missing)
	require.Len(t, reports, 2)
	assert.Len(t, reports[0].Monthly, 1)
	assert.Len(t, reports[0].FinancialYears, 1)
	assert.Empty(t, reports[1].Records)

	_, err = b.Compare([]forecast.Methodology{
		{Name: "fixed", Discount: forecast.FixedDiscount{}},
		{Name: "fixed", Discount: forecast.FixedDiscount{}},
	})
	assert.Error(t, err)
}

func TestEndToEnd_RunForecastAgainstActual(t *testing.T) {
	// Given a three month run for item "a" and a later concession elsewhere
	// keeping the observed range open past the run's post-reference month
	concessions := []domain.ConcessionPrice{
		{VMPP: "a", Month: month(2021, 1), Price: 1500},
		{VMPP: "a", Month: month(2021, 2), Price: 1500},
		{VMPP: "a", Month: month(2021, 3), Price: 1500},
		{VMPP: "z", Month: month(2021, 7), Price: 100},
	}
	var tariff []domain.TariffPrice
	for _, m := range domain.MonthRange(month(2020, 10), month(2020, 12)) {
		tariff = append(tariff, domain.TariffPrice{VMPP: "a", Month: m, Price: 1000})
	}
	for _, m := range domain.MonthRange(month(2021, 4), month(2021, 6)) {
		tariff = append(tariff, domain.TariffPrice{VMPP: "a", Month: m, Price: 1200})
	}
	item := domain.PricedItem{VMPP: "a", BNFCode: "X", PackSize: 1}
	target := month(2021, 4)
	observations := []domain.PrescribingObservation{
		{BNFCode: "X", Month: month(2021, 2), Quantity: 100},
		{BNFCode: "X", Month: target, ActualCost: 200},
	}

	// When the run is detected, priced and forecast for the following month
	flags := concession.FlagsFromPrices(concessions)
	runs, err := concession.DetectRuns(flags)
	require.NoError(t, err)
	last, _ := concession.LastMonth(flags)
	runs = concession.Eligible(runs, last, concession.DefaultMinPostMonths)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Length)

	prices, err := pricing.NewRollingPrices(tariff, pricing.DefaultWindow)
	require.NoError(t, err)
	change, err := pricing.NewResolver(prices, pricing.DefaultOffsets()).PriceChange(runs[0])
	require.NoError(t, err)
	require.NotNil(t, change.Change)
	assert.InDelta(t, 0.2, *change.Change, 1e-9)

	f, err := forecast.NewForecaster(nil, observations, forecast.DefaultOptions())
	require.NoError(t, err)
	predicted, err := f.RunImpact(change, item, target, forecast.Methodology{Discount: forecast.FixedDiscount{Percent: forecast.DefaultDiscountPercent}})
	require.NoError(t, err)

	monthly := ByMonth([]domain.ForecastRecord{record(target, predicted, 200)})

	// Then the forecast undershoots actual spend by 7.2%
	require.Len(t, monthly, 1)
	assert.InDelta(t, 185.60, monthly[0].PredictedCost, 1e-9)
	assert.InDelta(t, -14.40, monthly[0].Difference, 1e-9)
	require.NotNil(t, monthly[0].PercentDifference)
	assert.InDelta(t, -0.072, *monthly[0].PercentDifference, 1e-9)
}
