package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Table names, used as file base names.
const (
	TableMonthly        = "monthly_errors"
	TableFinancialYears = "financial_year_errors"
	TablePriceChanges   = "price_changes"
	TableImpacts        = "run_impacts"
	TableQuantityChecks = "quantity_checks"
)

func ParseFormats(names []string) ([]Format, error) {
	formats := make([]Format, 0, len(names))
	seen := make(map[Format]struct{}, len(names))
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatCSV, FormatParquet:
		default:
			return nil, fmt.Errorf("unknown export format %q", n)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	return formats, nil
}

type row interface {
	header() []string
	record() []string
}

// Writer writes report tables into a directory in every configured format.
type Writer struct {
	dir     string
	formats []Format
}

func NewWriter(dir string, formats []string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	parsed, err := ParseFormats(formats)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		parsed = []Format{FormatCSV}
	}
	return &Writer{dir: dir, formats: parsed}, nil
}

// WriteReport writes the monthly and financial-year error tables of every
// methodology, the price change table and the run impact table. It returns
// the written file paths.
func (w *Writer) WriteReport(ctx context.Context, report *domain.Report) ([]string, error) {
	var monthly, yearly []PeriodRow
	for _, m := range report.Methodologies {
		monthly = append(monthly, PeriodRows(m.Methodology, m.Monthly)...)
		yearly = append(yearly, PeriodRows(m.Methodology, m.FinancialYears)...)
	}

	var paths []string
	for _, write := range []func() ([]string, error){
		func() ([]string, error) { return writeTable(ctx, w, TableMonthly, monthly) },
		func() ([]string, error) { return writeTable(ctx, w, TableFinancialYears, yearly) },
		func() ([]string, error) { return writeTable(ctx, w, TablePriceChanges, PriceChangeRows(report.PriceChanges)) },
		func() ([]string, error) { return writeTable(ctx, w, TableImpacts, ImpactRows(report.Impacts)) },
	} {
		written, err := write()
		if err != nil {
			return paths, err
		}
		paths = append(paths, written...)
	}
	return paths, nil
}

// WriteQuantityChecks writes a reconciliation table.
func (w *Writer) WriteQuantityChecks(ctx context.Context, month domain.Month, checks []domain.QuantityCheck) ([]string, error) {
	return writeTable(ctx, w, TableQuantityChecks, QuantityCheckRows(month, checks))
}

func writeTable[T row](ctx context.Context, w *Writer, name string, rows []T) ([]string, error) {
	logger := zerolog.Ctx(ctx)
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var paths []string
	for _, f := range w.formats {
		path := filepath.Join(w.dir, name+"."+string(f))
		var err error
		switch f {
		case FormatCSV:
			err = WriteCSV(path, rows)
		case FormatParquet:
			err = WriteParquet(path, rows)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", name, err)
		}
		logger.Debug().Str("path", path).Int("rows", len(rows)).Msg("table exported")
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCSV writes rows with a header line. The header is written even when
// there are no rows.
func WriteCSV[T row](path string, rows []T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var zero T
	cw := csv.NewWriter(f)
	if err := cw.Write(zero.header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write parquet records: %w", err)
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return f.Close()
}
