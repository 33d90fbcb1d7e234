package export

import (
	"strconv"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// Row types shared by the CSV and Parquet writers. Optional values are
// pointers; CSV writes them as empty cells.

type PeriodRow struct {
	Methodology       string   `parquet:"methodology"`
	Period            string   `parquet:"period"`
	Records           int32    `parquet:"records"`
	PredictedCost     float64  `parquet:"predicted_cost"`
	ActualCost        float64  `parquet:"actual_cost"`
	Difference        float64  `parquet:"difference"`
	PercentDifference *float64 `parquet:"percent_difference"`
}

func (r PeriodRow) header() []string {
	return []string{"methodology", "period", "records", "predicted_cost", "actual_cost", "difference", "percent_difference"}
}

func (r PeriodRow) record() []string {
	return []string{
		r.Methodology,
		r.Period,
		strconv.Itoa(int(r.Records)),
		formatFloat(r.PredictedCost),
		formatFloat(r.ActualCost),
		formatFloat(r.Difference),
		formatOptional(r.PercentDifference),
	}
}

type PriceChangeRow struct {
	VMPP      string   `parquet:"vmpp"`
	Start     string   `parquet:"start"`
	End       string   `parquet:"end"`
	Length    int32    `parquet:"length"`
	PrePrice  *float64 `parquet:"pre_price"`
	PostPrice *float64 `parquet:"post_price"`
	Change    *float64 `parquet:"change"`
}

func (r PriceChangeRow) header() []string {
	return []string{"vmpp", "start", "end", "length", "pre_price", "post_price", "change"}
}

func (r PriceChangeRow) record() []string {
	return []string{
		r.VMPP,
		r.Start,
		r.End,
		strconv.Itoa(int(r.Length)),
		formatOptional(r.PrePrice),
		formatOptional(r.PostPrice),
		formatOptional(r.Change),
	}
}

type ImpactRow struct {
	VMPP        string  `parquet:"vmpp"`
	BNFCode     string  `parquet:"bnf_code"`
	RunEnd      string  `parquet:"run_end"`
	Target      string  `parquet:"target"`
	Methodology string  `parquet:"methodology"`
	Impact      float64 `parquet:"impact"`
}

func (r ImpactRow) header() []string {
	return []string{"vmpp", "bnf_code", "run_end", "target", "methodology", "impact"}
}

func (r ImpactRow) record() []string {
	return []string{r.VMPP, r.BNFCode, r.RunEnd, r.Target, r.Methodology, formatFloat(r.Impact)}
}

type QuantityCheckRow struct {
	Month             string  `parquet:"month"`
	BNFCode           string  `parquet:"bnf_code"`
	BNFName           string  `parquet:"bnf_name"`
	WarehouseQuantity float64 `parquet:"warehouse_quantity"`
	ExportQuantity    float64 `parquet:"export_quantity"`
	Difference        float64 `parquet:"difference"`
}

func (r QuantityCheckRow) header() []string {
	return []string{"month", "bnf_code", "bnf_name", "warehouse_quantity", "export_quantity", "difference"}
}

func (r QuantityCheckRow) record() []string {
	return []string{
		r.Month,
		r.BNFCode,
		r.BNFName,
		formatFloat(r.WarehouseQuantity),
		formatFloat(r.ExportQuantity),
		formatFloat(r.Difference),
	}
}

func PeriodRows(methodology string, periods []domain.PeriodSummary) []PeriodRow {
	rows := make([]PeriodRow, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, PeriodRow{
			Methodology:       methodology,
			Period:            p.Period,
			Records:           int32(p.Records),
			PredictedCost:     p.PredictedCost,
			ActualCost:        p.ActualCost,
			Difference:        p.Difference,
			PercentDifference: p.PercentDifference,
		})
	}
	return rows
}

// PriceChangeRows converts reference prices to pounds.
func PriceChangeRows(changes []domain.RunPriceChange) []PriceChangeRow {
	rows := make([]PriceChangeRow, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, PriceChangeRow{
			VMPP:      c.Run.VMPP,
			Start:     c.Run.Start.String(),
			End:       c.Run.End.String(),
			Length:    int32(c.Run.Length),
			PrePrice:  pounds(c.PrePrice),
			PostPrice: pounds(c.PostPrice),
			Change:    c.Change,
		})
	}
	return rows
}

func ImpactRows(impacts []domain.RunImpact) []ImpactRow {
	rows := make([]ImpactRow, 0, len(impacts))
	for _, i := range impacts {
		rows = append(rows, ImpactRow{
			VMPP:        i.Run.VMPP,
			BNFCode:     i.BNFCode,
			RunEnd:      i.Run.End.String(),
			Target:      i.Target.String(),
			Methodology: i.Methodology,
			Impact:      i.Impact,
		})
	}
	return rows
}

func QuantityCheckRows(month domain.Month, checks []domain.QuantityCheck) []QuantityCheckRow {
	rows := make([]QuantityCheckRow, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, QuantityCheckRow{
			Month:             month.String(),
			BNFCode:           c.BNFCode,
			BNFName:           c.BNFName,
			WarehouseQuantity: c.WarehouseQuantity,
			ExportQuantity:    c.ExportQuantity,
			Difference:        c.Difference,
		})
	}
	return rows
}

func pounds(p *domain.Pence) *float64 {
	if p == nil {
		return nil
	}
	v := p.Pounds()
	return &v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
