package api

// Methodology is a summary entry in the backtest listing.
type Methodology struct {
	Name               string   `json:"name"`
	Months             int      `json:"months"`
	FinancialYears     int      `json:"financial_years"`
	MeanMonthlyError   *float64 `json:"mean_monthly_error"`
	MonthlyErrorStdDev *float64 `json:"monthly_error_std_dev"`
}

type BacktestSummary struct {
	RunID         string        `json:"run_id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end"`
	Methodologies []Methodology `json:"methodologies"`
	Failures      int           `json:"failures"`
}

// Period is one bar of the percentage error chart.
type Period struct {
	Period            string   `json:"period"`
	PredictedCost     float64  `json:"predicted_cost"`
	ActualCost        float64  `json:"actual_cost"`
	Difference        float64  `json:"difference"`
	PercentDifference *float64 `json:"percent_difference"`
}

type PriceChange struct {
	VMPP      string   `json:"vmpp"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Length    int      `json:"length"`
	PrePrice  *float64 `json:"pre_price"`
	PostPrice *float64 `json:"post_price"`
	Change    *float64 `json:"change"`
}

type Error struct {
	Message string `json:"message"`
}
