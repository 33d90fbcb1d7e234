package domain

// ForecastRecord is a predicted against actual spend comparison for one BNF
// code in one month under one methodology.
type ForecastRecord struct {
	Methodology       string   `json:"methodology"`
	BNFCode           string   `json:"bnf_code"`
	VMPP              string   `json:"vmpp"`
	Month             Month    `json:"month"`
	LaggedQuantity    float64  `json:"lagged_quantity"`
	PredictedCost     float64  `json:"predicted_cost"`
	PredictedImpact   float64  `json:"predicted_impact"`
	ActualCost        float64  `json:"actual_cost"`
	Difference        float64  `json:"difference"`
	PercentDifference *float64 `json:"percent_difference"`
}

// PeriodSummary aggregates forecast records over a month or financial year.
type PeriodSummary struct {
	Period            string   `json:"period"`
	Start             Month    `json:"start"`
	Records           int      `json:"records"`
	PredictedCost     float64  `json:"predicted_cost"`
	ActualCost        float64  `json:"actual_cost"`
	Difference        float64  `json:"difference"`
	PercentDifference *float64 `json:"percent_difference"`
}

// ErrorStats summarises the spread of percentage differences across periods.
type ErrorStats struct {
	Periods int      `json:"periods"`
	Mean    *float64 `json:"mean"`
	StdDev  *float64 `json:"std_dev"`
}

// MethodologyReport is the backtest outcome of one forecasting methodology.
type MethodologyReport struct {
	Methodology    string           `json:"methodology"`
	Monthly        []PeriodSummary  `json:"monthly"`
	FinancialYears []PeriodSummary  `json:"financial_years"`
	MonthlyStats   ErrorStats       `json:"monthly_stats"`
	YearlyStats    ErrorStats       `json:"yearly_stats"`
	Records        []ForecastRecord `json:"-"`
}

// QuantityCheck compares warehouse quantity with a published export for a BNF code.
type QuantityCheck struct {
	BNFCode           string  `json:"bnf_code"`
	BNFName           string  `json:"bnf_name"`
	WarehouseQuantity float64 `json:"warehouse_quantity"`
	ExportQuantity    float64 `json:"export_quantity"`
	Difference        float64 `json:"difference"`
}
