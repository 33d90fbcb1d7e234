package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/concession-forecast/pkg/models/api"
	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Report(ctx context.Context) (*domain.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func fixtureReport() *domain.Report {
	pre, post := domain.Pence(1000), domain.Pence(1200)
	runA := domain.ConcessionRun{VMPP: "a", Start: domain.NewMonth(2021, 1), End: domain.NewMonth(2021, 3), Length: 3}
	runZ := domain.ConcessionRun{VMPP: "z", Start: domain.NewMonth(2021, 7), End: domain.NewMonth(2021, 7), Length: 1, RightCensored: true}
	return &domain.Report{
		RunID:  "run-1",
		Title:  "Price concession forecast backtest",
		Period: domain.NewTimePeriod(domain.NewMonth(2021, 1), domain.NewMonth(2021, 7)),
		Methodologies: []domain.MethodologyReport{{
			Methodology: "fixed_nadp",
			Monthly: []domain.PeriodSummary{
				{Period: "2021-01", PredictedCost: 185.6, ActualCost: 200, Difference: -14.4, PercentDifference: ptr(-0.072)},
			},
			FinancialYears: []domain.PeriodSummary{
				{Period: "2020-21", PredictedCost: 185.6, ActualCost: 200, Difference: -14.4, PercentDifference: ptr(-0.072)},
			},
			MonthlyStats: domain.ErrorStats{Periods: 1, Mean: ptr(-0.072)},
		}},
		Runs:         []domain.ConcessionRun{runA, runZ},
		PriceChanges: []domain.RunPriceChange{{Run: runA, PrePrice: &pre, PostPrice: &post, Change: ptr(0.2)}},
		Failures:     []domain.StageFailure{{Stage: "forecast", Key: "Z"}},
	}
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	reports := new(mockReports)
	reports.On("Report", mock.Anything).Return(fixtureReport(), nil)

	router := ConfigureRouter(logger, Dependencies{Reports: reports})
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name:           "GetSummary",
			path:           "/api/v1/backtest",
			expectedStatus: http.StatusOK,
			expected: api.BacktestSummary{
				RunID: "run-1",
				Title: "Price concession forecast backtest",
				Start: "2021-01",
				End:   "2021-07",
				Methodologies: []api.Methodology{{
					Name:             "fixed_nadp",
					Months:           1,
					FinancialYears:   1,
					MeanMonthlyError: ptr(-0.072),
				}},
				Failures: 1,
			},
			parseResponse: unmarshalResponse[api.BacktestSummary](),
		},
		{
			name:           "GetMonths",
			path:           "/api/v1/backtest/fixed_nadp/months",
			expectedStatus: http.StatusOK,
			expected: []api.Period{
				{Period: "2021-01", PredictedCost: 185.6, ActualCost: 200, Difference: -14.4, PercentDifference: ptr(-0.072)},
			},
			parseResponse: unmarshalResponse[[]api.Period](),
		},
		{
			name:           "GetFinancialYears",
			path:           "/api/v1/backtest/fixed_nadp/financial-years",
			expectedStatus: http.StatusOK,
			expected: []api.Period{
				{Period: "2020-21", PredictedCost: 185.6, ActualCost: 200, Difference: -14.4, PercentDifference: ptr(-0.072)},
			},
			parseResponse: unmarshalResponse[[]api.Period](),
		},
		{
			name:           "GetMonths_UnknownMethodology",
			path:           "/api/v1/backtest/median/months",
			expectedStatus: http.StatusNotFound,
			expected:       api.Error{Message: "unknown methodology median"},
			parseResponse:  unmarshalResponse[api.Error](),
		},
		{
			name:           "ListRuns",
			path:           "/api/v1/runs",
			expectedStatus: http.StatusOK,
			expected: []api.PriceChange{
				{VMPP: "a", Start: "2021-01", End: "2021-03", Length: 3, PrePrice: ptr(10.0), PostPrice: ptr(12.0), Change: ptr(0.2)},
				{VMPP: "z", Start: "2021-07", End: "2021-07", Length: 1},
			},
			parseResponse: unmarshalResponse[[]api.PriceChange](),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(testServer.URL + tc.path)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")

			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestWebAPI_ReportUnavailable(t *testing.T) {
	reports := new(mockReports)
	reports.On("Report", mock.Anything).Return(nil, assert.AnError)

	router := ConfigureRouter(zerolog.Nop(), Dependencies{Reports: reports})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/backtest", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body api.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "backtest report is unavailable", body.Message)
}

func TestWebAPI_StartStopsWithContext(t *testing.T) {
	web := NewWebAPI(zerolog.Nop(), Config{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		Dependencies:    Dependencies{Reports: new(mockReports)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- web.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var response T
		err := json.Unmarshal(data, &response)
		return response, err
	}
}
