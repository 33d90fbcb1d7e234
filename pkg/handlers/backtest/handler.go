package backtest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/concession-forecast/pkg/adapters"
	"github.com/de-tools/concession-forecast/pkg/models/api"
	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// ReportProvider returns the backtest report to serve.
type ReportProvider interface {
	Report(ctx context.Context) (*domain.Report, error)
}

type Handler struct {
	reports ReportProvider
}

func NewHandler(reports ReportProvider) *Handler {
	return &Handler{reports: reports}
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, adapters.MapReportDomainToApiSummary(report))
}

func (h *Handler) GetMonths(w http.ResponseWriter, r *http.Request) {
	h.periods(w, r, func(m domain.MethodologyReport) []domain.PeriodSummary { return m.Monthly })
}

func (h *Handler) GetFinancialYears(w http.ResponseWriter, r *http.Request) {
	h.periods(w, r, func(m domain.MethodologyReport) []domain.PeriodSummary { return m.FinancialYears })
}

// ListRuns returns every detected run with its reference prices, when known.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	type runKey struct {
		vmpp  string
		start domain.Month
	}
	changes := make(map[runKey]domain.RunPriceChange, len(report.PriceChanges))
	for _, c := range report.PriceChanges {
		changes[runKey{c.Run.VMPP, c.Run.Start}] = c
	}

	response := make([]api.PriceChange, 0, len(report.Runs))
	for _, run := range report.Runs {
		c, ok := changes[runKey{run.VMPP, run.Start}]
		if !ok {
			c = domain.RunPriceChange{Run: run}
		}
		response = append(response, adapters.MapPriceChangeDomainToApi(c))
	}
	writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *Handler) periods(w http.ResponseWriter, r *http.Request, pick func(domain.MethodologyReport) []domain.PeriodSummary) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "methodology")
	m, found := report.Methodology(name)
	if !found {
		writeJSON(r.Context(), w, http.StatusNotFound, api.Error{Message: "unknown methodology " + name})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, adapters.MapPeriodSummariesDomainToApi(pick(m)))
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) (*domain.Report, bool) {
	report, err := h.reports.Report(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to compute backtest report")
		writeJSON(r.Context(), w, http.StatusInternalServerError, api.Error{Message: "backtest report is unavailable"})
		return nil, false
	}
	return report, true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
