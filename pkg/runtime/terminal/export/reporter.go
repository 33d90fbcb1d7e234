package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

type TableConfig struct {
	LabelWidth  int
	AmountWidth int
	RatioWidth  int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		LabelWidth:  18,
		AmountWidth: 16,
		RatioWidth:  12,
	}
}

// Reporter renders reports as fixed-width tables.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) funcMap() template.FuncMap {
	cell := func(width int, v string, right bool) string {
		if right {
			return fmt.Sprintf(" %*s ", width, v)
		}
		return fmt.Sprintf(" %-*s ", width, v)
	}
	return template.FuncMap{
		// row renders label cells followed by right-aligned amount and ratio cells.
		"row": func(labels []string, amounts []string, ratios []string) string {
			var b strings.Builder
			b.WriteString("|")
			for _, l := range labels {
				b.WriteString(cell(c.config.LabelWidth, l, false) + "|")
			}
			for _, a := range amounts {
				b.WriteString(cell(c.config.AmountWidth, a, true) + "|")
			}
			for _, r := range ratios {
				b.WriteString(cell(c.config.RatioWidth, r, true) + "|")
			}
			return b.String()
		},
		"separator": func(labels, amounts, ratios int) string {
			var b strings.Builder
			b.WriteString("+")
			for i := 0; i < labels; i++ {
				b.WriteString(strings.Repeat("-", c.config.LabelWidth+2) + "+")
			}
			for i := 0; i < amounts; i++ {
				b.WriteString(strings.Repeat("-", c.config.AmountWidth+2) + "+")
			}
			for i := 0; i < ratios; i++ {
				b.WriteString(strings.Repeat("-", c.config.RatioWidth+2) + "+")
			}
			return b.String()
		},
		"list":    func(v ...string) []string { return v },
		"money":   money,
		"pounds":  pounds,
		"percent": percent,
		"qty":     func(v float64) string { return fmt.Sprintf("%.0f", v) },
		"count":   func(v int) string { return fmt.Sprintf("%d", v) },
	}
}

const periodTable = `{{define "periods"}}{{separator 1 3 1}}
{{row (list "Period") (list "Predicted" "Actual" "Difference") (list "Error")}}
{{separator 1 3 1}}
{{range .}}{{row (list .Period) (list (money .PredictedCost) (money .ActualCost) (money .Difference)) (list (percent .PercentDifference))}}
{{end}}{{separator 1 3 1}}{{end}}`

const reportTemplate = periodTable + `
{{.Title}} ({{.Period.Duration}} months)

Period: {{.Period.Start}} to {{.Period.End}}
Run: {{.RunID}}
Currency: {{.Currency}}
{{range .Methodologies}}
=== {{.Methodology}} ===

Mean monthly error: {{percent .MonthlyStats.Mean}} (std dev {{percent .MonthlyStats.StdDev}}, {{.MonthlyStats.Periods}} months)
Mean yearly error: {{percent .YearlyStats.Mean}} (std dev {{percent .YearlyStats.StdDev}}, {{.YearlyStats.Periods}} years)

Monthly
{{template "periods" .Monthly}}

Financial years
{{template "periods" .FinancialYears}}
{{end}}
=== Post-concession price changes ===
{{separator 3 2 1}}
{{row (list "VMPP" "Start" "End") (list "Pre price" "Post price") (list "Change")}}
{{separator 3 2 1}}
{{range .PriceChanges}}{{row (list .Run.VMPP .Run.Start.String .Run.End.String) (list (pounds .PrePrice) (pounds .PostPrice)) (list (percent .Change))}}
{{end}}{{separator 3 2 1}}
{{if .Impacts}}
=== Forecast impact after run end ===
{{separator 3 1 0}}
{{row (list "VMPP" "BNF code" "Month") (list "Impact") (list)}}
{{separator 3 1 0}}
{{range .Impacts}}{{row (list .Run.VMPP .BNFCode .Target.String) (list (money .Impact)) (list)}}
{{end}}{{separator 3 1 0}}
{{end}}{{if .Failures}}
=== Failures ({{len .Failures}}) ===
{{range .Failures}}- [{{.Stage}}] {{.Key}} {{.Month}}{{.Period}}: {{.Error}}
{{end}}{{end}}`

const runsTemplate = `
Concession runs ({{len .Runs}})
{{separator 3 0 1}}
{{row (list "VMPP" "Start" "End") (list) (list "Months")}}
{{separator 3 0 1}}
{{range .Runs}}{{row (list .VMPP .Start.String .End.String) (list) (list (count .Length))}}
{{end}}{{separator 3 0 1}}
`

const checksTemplate = `
Quantity reconciliation {{.Month}} ({{len .Checks}} BNF codes)
{{separator 2 3 0}}
{{row (list "BNF code" "Name") (list "Warehouse" "Export" "Difference") (list)}}
{{separator 2 3 0}}
{{range .Checks}}{{row (list .BNFCode .BNFName) (list (qty .WarehouseQuantity) (qty .ExportQuantity) (qty .Difference)) (list)}}
{{end}}{{separator 2 3 0}}
`

// Handle renders the full backtest report.
func (c *Reporter) Handle(report *domain.Report) error {
	return c.render("report", reportTemplate, report)
}

// HandleRuns renders detected concession runs.
func (c *Reporter) HandleRuns(report *domain.Report) error {
	return c.render("runs", runsTemplate, report)
}

func (c *Reporter) HandleQuantityChecks(month domain.Month, checks []domain.QuantityCheck) error {
	return c.render("checks", checksTemplate, struct {
		Month  domain.Month
		Checks []domain.QuantityCheck
	}{month, checks})
}

func (c *Reporter) render(name, tmpl string, data any) error {
	t, err := template.New(name).Funcs(c.funcMap()).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pounds(p *domain.Pence) string {
	if p == nil {
		return "n/a"
	}
	return money(p.Pounds())
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}
