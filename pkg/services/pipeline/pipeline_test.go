package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/models/store"
	"github.com/de-tools/concession-forecast/pkg/services/calendar"
	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context) (*store.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

type mockHolidays struct {
	mock.Mock
}

func (m *mockHolidays) Load(ctx context.Context, source, division string) (calendar.Holidays, error) {
	args := m.Called(ctx, source, division)
	return args.Get(0).(calendar.Holidays), args.Error(1)
}

func day(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func fixture() *store.Dataset {
	ds := &store.Dataset{
		Concessions: []store.ConcessionRow{
			{VMPP: "a", Month: day(2021, 1), PricePence: 1500},
			{VMPP: "a", Month: day(2021, 2), PricePence: 1500},
			{VMPP: "a", Month: day(2021, 3), PricePence: 1500},
			{VMPP: "z", Month: day(2021, 7), PricePence: 100},
		},
		VMPP: []store.VMPPRow{
			{ID: "a", Name: "Item A", BNFCode: "X", QtyVal: 1},
			{ID: "z", Name: "Item Z", BNFCode: "Z", QtyVal: 10},
		},
		Prescribing: []store.PrescribingRow{
			{Month: day(2020, 11), BNFCode: "X", Quantity: 100},
			{Month: day(2020, 12), BNFCode: "X", Quantity: 100},
			{Month: day(2021, 1), BNFCode: "X", Quantity: 100, ActualCost: 1400},
			{Month: day(2021, 2), BNFCode: "X", Quantity: 100, ActualCost: 1392},
			{Month: day(2021, 3), BNFCode: "X", Quantity: 100, ActualCost: 0},
			{Month: day(2021, 7), BNFCode: "Z", Quantity: 10, ActualCost: 5},
		},
	}
	for m := 10; m <= 12; m++ {
		ds.Tariff = append(ds.Tariff, store.TariffRow{VMPP: "a", Month: day(2020, m), PricePence: 1000})
	}
	for m := 1; m <= 3; m++ {
		ds.Tariff = append(ds.Tariff, store.TariffRow{VMPP: "a", Month: day(2021, m), PricePence: 1000})
	}
	for m := 4; m <= 6; m++ {
		ds.Tariff = append(ds.Tariff, store.TariffRow{VMPP: "a", Month: day(2021, m), PricePence: 1200})
	}
	ds.Tariff = append(ds.Tariff, store.TariffRow{VMPP: "z", Month: day(2021, 7), PricePence: 50})
	return ds
}

func settings(t *testing.T) *config.Settings {
	cfg, err := config.LoadSettings("")
	require.NoError(t, err)
	return cfg
}

func failuresByStage(failures []domain.StageFailure) map[string]int {
	out := map[string]int{}
	for _, f := range failures {
		out[f.Stage]++
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	cfg := settings(t)

	loader := new(mockLoader)
	loader.On("Load", mock.Anything).Return(fixture(), nil)
	holidays := new(mockHolidays)
	holidays.On("Load", mock.Anything, cfg.Calendar.HolidaysSource, cfg.Calendar.Division).Return(calendar.Holidays{}, nil)

	report, err := NewRunner(cfg, loader, holidays).Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, domain.NewMonth(2021, 1), report.Period.Start)
	assert.Equal(t, domain.NewMonth(2021, 7), report.Period.End)
	assert.Len(t, report.Runs, 2)

	require.Len(t, report.PriceChanges, 1)
	require.NotNil(t, report.PriceChanges[0].Change)
	assert.InDelta(t, 0.2, *report.PriceChanges[0].Change, 1e-9)

	require.Len(t, report.Impacts, 1)
	assert.Equal(t, domain.NewMonth(2021, 4), report.Impacts[0].Target)
	assert.InDelta(t, 185.60, report.Impacts[0].Impact, 1e-9)

	fixed, ok := report.Methodology("fixed_nadp")
	require.True(t, ok)
	require.Len(t, fixed.Monthly, 3)
	assert.InDelta(t, 1392-1400, fixed.Monthly[0].Difference, 1e-9)
	assert.InDelta(t, 0, fixed.Monthly[1].Difference, 1e-9)
	assert.Nil(t, fixed.Monthly[2].PercentDifference)
	require.Len(t, fixed.FinancialYears, 1)
	assert.Equal(t, "2020-21", fixed.FinancialYears[0].Period)

	stages := failuresByStage(report.Failures)
	assert.Equal(t, 2, stages[StageAggregation])
	assert.Equal(t, 2, stages[StageForecast])

	loader.AssertExpectations(t)
	holidays.AssertExpectations(t)
}

func TestRunner_IntegrityErrorKeepsReport(t *testing.T) {
	cfg := settings(t)
	cfg.Methodologies = []config.MethodologySettings{{Name: "fixed_nadp", Discount: DiscountFixed}}

	ds := fixture()
	ds.Tariff = append(ds.Tariff, store.TariffRow{VMPP: "a", Month: day(2021, 5), PricePence: 9999})

	loader := new(mockLoader)
	loader.On("Load", mock.Anything).Return(ds, nil)

	report, err := NewRunner(cfg, loader, nil).Run(context.Background())

	var integrity *domain.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "a", integrity.Key)
	require.NotNil(t, report)
	assert.Len(t, report.Methodologies, 1)
}

func TestRunner_AcquisitionFailure(t *testing.T) {
	loader := new(mockLoader)
	loader.On("Load", mock.Anything).Return(nil, &domain.ExternalQueryError{Query: "vmpp", Err: assert.AnError})

	report, err := NewRunner(settings(t), loader, nil).Run(context.Background())

	var queryErr *domain.ExternalQueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Nil(t, report)
}

func TestRunner_MissingHolidayLoader(t *testing.T) {
	loader := new(mockLoader)
	loader.On("Load", mock.Anything).Return(fixture(), nil)

	_, err := NewRunner(settings(t), loader, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestUndefinedPeriodFailures(t *testing.T) {
	pct := 0.1
	m := domain.MethodologyReport{
		Methodology: "fixed_nadp",
		Monthly: []domain.PeriodSummary{
			{Period: "2021-01", PercentDifference: &pct},
			{Period: "2021-02"},
		},
		FinancialYears: []domain.PeriodSummary{{Period: "2020-21"}},
	}

	got := undefinedPeriodFailures(m)

	require.Len(t, got, 2)
	assert.Equal(t, "2021-02", got[0].Month)
	assert.Empty(t, got[0].Period)
	assert.Equal(t, "2020-21", got[1].Period)
	assert.Empty(t, got[1].Month)
	for _, f := range got {
		assert.Equal(t, StageAggregation, f.Stage)
		assert.Equal(t, "fixed_nadp", f.Key)
	}
}

func TestBuildMethodologies(t *testing.T) {
	ms := []config.MethodologySettings{
		{Name: "fixed", Discount: DiscountFixed, Weighting: "none", Quantity: "lagged"},
		{Name: "monthly_rolling", Discount: DiscountMonthly, Weighting: forecast.WeightingCalendarDays, Quantity: "rolling"},
	}
	monthly := forecast.NewMonthlyDiscount(map[domain.Month]float64{})

	got, err := BuildMethodologies(ms, 7.2, monthly, forecast.WeightingSources{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, forecast.QuantityRolling, got[1].Quantity)
	assert.Equal(t, forecast.WeightingCalendarDays, got[1].Weighting.Name())

	_, err = BuildMethodologies(ms, 7.2, nil, forecast.WeightingSources{})
	assert.Error(t, err)

	_, err = BuildMethodologies([]config.MethodologySettings{{Name: "x", Quantity: "median"}}, 7.2, nil, forecast.WeightingSources{})
	assert.Error(t, err)

	assert.True(t, NeedsMonthlyDiscount(ms))
	assert.False(t, NeedsHolidays(ms))
	assert.False(t, NeedsSeasonalProfile(ms))
}

func TestReconcile(t *testing.T) {
	export, err := ReadExport(strings.NewReader("BNF code,BNF name,Quantity,Additional cost\nX,Item X,\"1,000\",12.5\nY,Item Y,50,1\nW,Item W,7,1\n"))
	require.NoError(t, err)
	require.Len(t, export, 3)
	assert.Equal(t, 1000.0, export[0].Quantity)

	m := domain.NewMonth(2022, 7)
	packs := []domain.ConcessionPack{
		{Month: m, BNFCode: "X"},
		{Month: m, BNFCode: "Y"},
		{Month: domain.NewMonth(2022, 6), BNFCode: "W"},
	}
	observations := []domain.PrescribingObservation{
		{Month: m, BNFCode: "X", BNFName: "Item X", Quantity: 1100},
		{Month: m, BNFCode: "Y", BNFName: "Item Y", Quantity: 20},
		{Month: m, BNFCode: "W", Quantity: 7},
		{Month: domain.NewMonth(2022, 6), BNFCode: "X", Quantity: 1},
	}

	checks := Reconcile(m, packs, observations, export)

	require.Len(t, checks, 2)
	assert.Equal(t, "Y", checks[0].BNFCode)
	assert.Equal(t, -30.0, checks[0].Difference)
	assert.Equal(t, "X", checks[1].BNFCode)
	assert.Equal(t, 100.0, checks[1].Difference)
}

func TestReadExport_MissingColumns(t *testing.T) {
	_, err := ReadExport(strings.NewReader("code,qty\nX,1\n"))
	assert.Error(t, err)
}

func TestReconcileDataset(t *testing.T) {
	export := []ExportQuantity{{BNFCode: "X", Quantity: 90}, {BNFCode: "Q", Quantity: 5}}

	checks, err := ReconcileDataset(fixture(), domain.NewMonth(2021, 2), forecast.DefaultOptions().Divisor, export)

	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "X", checks[0].BNFCode)
	assert.Equal(t, 100.0, checks[0].WarehouseQuantity)
	assert.Equal(t, 10.0, checks[0].Difference)
}
