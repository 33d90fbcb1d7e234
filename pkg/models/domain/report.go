package domain

import "time"

// Report represents the outcome of one backtest run
type Report struct {
	RunID         string              `json:"run_id"`
	Title         string              `json:"title"`
	Period        TimePeriod          `json:"period"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Currency      string              `json:"currency"`
	Methodologies []MethodologyReport `json:"methodologies"`
	Runs          []ConcessionRun     `json:"runs"`
	PriceChanges  []RunPriceChange    `json:"price_changes"`
	Impacts       []RunImpact         `json:"impacts"`
	Failures      []StageFailure      `json:"failures"`
}

// Methodology returns the report of the named methodology.
func (r *Report) Methodology(name string) (MethodologyReport, bool) {
	for _, m := range r.Methodologies {
		if m.Methodology == name {
			return m, true
		}
	}
	return MethodologyReport{}, false
}

// TimePeriod represents a month range for the report
type TimePeriod struct {
	Start    Month `json:"start"`
	End      Month `json:"end"`
	Duration int   `json:"duration"` // in months
}

// NewTimePeriod builds an inclusive month range.
func NewTimePeriod(start, end Month) TimePeriod {
	return TimePeriod{Start: start, End: end, Duration: end.Index() - start.Index() + 1}
}
