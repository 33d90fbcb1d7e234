package dataset

import (
	"fmt"
	"strings"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

const (
	QueryConcessions  = "concession_prices"
	QueryTariff       = "tariff_prices"
	QueryVMPP         = "vmpp"
	QueryPrescribing  = "prescribing"
	QueryMonthlyItems = "monthly_items"
)

// Tables names the source tables in the warehouse.
type Tables struct {
	Concession  string
	Tariff      string
	VMPP        string
	Prescribing string
}

func DefaultTables() Tables {
	return Tables{
		Concession:  "ebmdatalab.dmd.ncsoconcession",
		Tariff:      "ebmdatalab.dmd.tariffprice",
		VMPP:        "ebmdatalab.dmd.vmpp",
		Prescribing: "ebmdatalab.hscic.normalised_prescribing",
	}
}

// SeasonalWindow is the prescribing history the seasonal profile is built from.
type SeasonalWindow struct {
	From     domain.Month
	To       domain.Month
	Chapters []string
}

func DefaultSeasonalWindow() SeasonalWindow {
	return SeasonalWindow{
		From:     domain.NewMonth(2016, 3),
		To:       domain.NewMonth(2020, 2),
		Chapters: []string{"01", "02", "03", "04", "06", "10"},
	}
}

// Query is a named warehouse query and the columns its result must carry.
type Query struct {
	Name     string
	SQL      string
	Required []string
}

// Queries builds the dataset queries for the given tables.
func Queries(t Tables, seasonal SeasonalWindow) map[string]Query {
	chapters := make([]string, 0, len(seasonal.Chapters))
	for _, c := range seasonal.Chapters {
		chapters = append(chapters, "'"+strings.ReplaceAll(c, "'", "")+"'")
	}

	return map[string]Query{
		QueryConcessions: {
			Name: QueryConcessions,
			SQL: fmt.Sprintf(`
				SELECT
					ncso.vmpp AS vmpp,
					ncso.date AS month,
					ncso.drug AS drug,
					ncso.price_pence AS price_pence
				FROM %s AS ncso
				ORDER BY ncso.date, ncso.vmpp`, t.Concession),
			Required: []string{"vmpp", "month", "price_pence"},
		},
		QueryTariff: {
			Name: QueryTariff,
			SQL: fmt.Sprintf(`
				SELECT
					dt.vmpp AS vmpp,
					dt.date AS month,
					dt.price_pence AS price_pence
				FROM %s AS dt
				ORDER BY dt.vmpp, dt.date`, t.Tariff),
			Required: []string{"vmpp", "month", "price_pence"},
		},
		QueryVMPP: {
			Name: QueryVMPP,
			SQL: fmt.Sprintf(`
				SELECT
					vmpp.id AS id,
					vmpp.nm AS nm,
					vmpp.bnf_code AS bnf_code,
					vmpp.qtyval AS qtyval
				FROM %s AS vmpp
				WHERE vmpp.id IN (SELECT DISTINCT vmpp FROM %s)`, t.VMPP, t.Concession),
			Required: []string{"id", "bnf_code", "qtyval"},
		},
		QueryPrescribing: {
			Name: QueryPrescribing,
			SQL: fmt.Sprintf(`
				SELECT
					rx.month AS month,
					rx.bnf_code AS bnf_code,
					MAX(rx.bnf_name) AS bnf_name,
					SUM(rx.quantity) AS quantity,
					SUM(rx.net_cost) AS net_cost,
					SUM(rx.actual_cost) AS actual_cost
				FROM %s AS rx
				WHERE rx.bnf_code IN (
					SELECT DISTINCT vmpp.bnf_code
					FROM %s AS ncso
					INNER JOIN %s AS vmpp ON ncso.vmpp = vmpp.id
				)
				GROUP BY rx.month, rx.bnf_code
				ORDER BY rx.month, rx.bnf_code`, t.Prescribing, t.Concession, t.VMPP),
			Required: []string{"month", "bnf_code", "quantity", "actual_cost"},
		},
		QueryMonthlyItems: {
			Name: QueryMonthlyItems,
			SQL: fmt.Sprintf(`
				SELECT
					rx.month AS month,
					SUM(rx.items) AS items
				FROM %s AS rx
				WHERE rx.month BETWEEN '%s' AND '%s'
					AND SUBSTR(rx.bnf_code, 1, 2) IN (%s)
				GROUP BY rx.month
				ORDER BY rx.month`,
				t.Prescribing,
				seasonal.From.Time().Format("2006-01-02"),
				seasonal.To.Time().Format("2006-01-02"),
				strings.Join(chapters, ", "),
			),
			Required: []string{"month", "items"},
		},
	}
}
