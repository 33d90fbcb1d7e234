package backtest

import (
	"math"
	"sort"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// YearWindow limits financial-year output to the years ending between From
// and To inclusive. A zero bound is open.
type YearWindow struct {
	From domain.FinancialYear
	To   domain.FinancialYear
}

func (w YearWindow) Contains(fy domain.FinancialYear) bool {
	if w.From != 0 && fy < w.From {
		return false
	}
	if w.To != 0 && fy > w.To {
		return false
	}
	return true
}

type group struct {
	label     string
	start     domain.Month
	records   int
	predicted float64
	actual    float64
}

func (g group) summary() domain.PeriodSummary {
	s := domain.PeriodSummary{
		Period:        g.label,
		Start:         g.start,
		Records:       g.records,
		PredictedCost: g.predicted,
		ActualCost:    g.actual,
		Difference:    g.predicted - g.actual,
	}
	if g.actual != 0 {
		pct := s.Difference / g.actual
		s.PercentDifference = &pct
	}
	return s
}

func aggregate(records []domain.ForecastRecord, key func(domain.Month) (string, domain.Month, bool)) []domain.PeriodSummary {
	groups := make(map[string]*group)
	for _, r := range records {
		label, start, ok := key(r.Month)
		if !ok {
			continue
		}
		g, ok := groups[label]
		if !ok {
			g = &group{label: label, start: start}
			groups[label] = g
		}
		g.records++
		g.predicted += r.PredictedCost
		g.actual += r.ActualCost
	}

	out := make([]domain.PeriodSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ByMonth sums predicted and actual cost per calendar month. Percentages are
// taken from the sums, never averaged.
func ByMonth(records []domain.ForecastRecord) []domain.PeriodSummary {
	return aggregate(records, func(m domain.Month) (string, domain.Month, bool) {
		return m.String(), m, true
	})
}

// ByFinancialYear sums predicted and actual cost per UK financial year
// (April to March) within the window.
func ByFinancialYear(records []domain.ForecastRecord, window YearWindow) []domain.PeriodSummary {
	return aggregate(records, func(m domain.Month) (string, domain.Month, bool) {
		fy := m.FinancialYear()
		return fy.String(), fy.Start(), window.Contains(fy)
	})
}

// Summarise returns the mean and sample standard deviation of the defined
// percentage differences. The deviation needs at least two periods.
func Summarise(periods []domain.PeriodSummary) domain.ErrorStats {
	var values []float64
	for _, p := range periods {
		if p.PercentDifference != nil {
			values = append(values, *p.PercentDifference)
		}
	}
	stats := domain.ErrorStats{Periods: len(values)}
	if len(values) == 0 {
		return stats
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	stats.Mean = &mean
	if len(values) < 2 {
		return stats
	}

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(len(values)-1))
	stats.StdDev = &std
	return stats
}

// Undefined lists the periods whose actual cost sums to zero.
func Undefined(periods []domain.PeriodSummary) []domain.PeriodSummary {
	var out []domain.PeriodSummary
	for _, p := range periods {
		if p.PercentDifference == nil {
			out = append(out, p)
		}
	}
	return out
}
