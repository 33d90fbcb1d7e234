package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// Reporter outputs a short plain-text summary of a report to the console
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(report *domain.Report) error {
	tmpl := `
{{.Title}} ({{.Period.Duration}} months)
Period: {{.Period.Start}} to {{.Period.End}}
Runs: {{len .Runs}}, priced: {{len .PriceChanges}}, failures: {{len .Failures}}
{{range .Methodologies}}
- {{.Methodology}}: mean monthly error {{percent .MonthlyStats.Mean}} over {{.MonthlyStats.Periods}} months, mean yearly error {{percent .YearlyStats.Mean}} over {{.YearlyStats.Periods}} years
{{- end}}
`
	t, err := template.New("summary").Funcs(template.FuncMap{"percent": percent}).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}
