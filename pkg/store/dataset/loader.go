package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/models/store"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
	"github.com/rs/zerolog"
)

// Loader pulls the base tables a pipeline run needs.
type Loader interface {
	Load(ctx context.Context) (*store.Dataset, error)
}

type loader struct {
	warehouse warehouse.Warehouse
	queries   map[string]Query
	seasonal  bool
}

// NewLoader reads from the warehouse, which may be cache-wrapped. The
// monthly items query only runs when withSeasonal is set.
func NewLoader(w warehouse.Warehouse, tables Tables, seasonal SeasonalWindow, withSeasonal bool) Loader {
	return &loader{warehouse: w, queries: Queries(tables, seasonal), seasonal: withSeasonal}
}

type step struct {
	name string
	load func(*warehouse.Table) error
}

func (l *loader) Load(ctx context.Context) (*store.Dataset, error) {
	logger := zerolog.Ctx(ctx)
	ds := &store.Dataset{}

	steps := []step{
		{QueryConcessions, func(t *warehouse.Table) (err error) { ds.Concessions, err = ConcessionRows(t); return }},
		{QueryTariff, func(t *warehouse.Table) (err error) { ds.Tariff, err = TariffRows(t); return }},
		{QueryVMPP, func(t *warehouse.Table) (err error) { ds.VMPP, err = VMPPRows(t); return }},
		{QueryPrescribing, func(t *warehouse.Table) (err error) { ds.Prescribing, err = PrescribingRows(t); return }},
	}
	if l.seasonal {
		steps = append(steps, step{QueryMonthlyItems, func(t *warehouse.Table) (err error) { ds.MonthlyItems, err = ItemsRows(t); return }})
	}

	for _, s := range steps {
		q := l.queries[s.name]
		start := time.Now()
		table, err := l.warehouse.Query(ctx, q.SQL)
		if err != nil {
			return nil, &domain.ExternalQueryError{Query: q.Name, Err: err}
		}
		if err := table.Require(q.Required...); err != nil {
			return nil, &domain.ExternalQueryError{Query: q.Name, Err: err}
		}
		if err := s.load(table); err != nil {
			return nil, &domain.ExternalQueryError{Query: q.Name, Err: err}
		}
		logger.Info().
			Str("query", q.Name).
			Int("rows", table.Len()).
			Dur("elapsed", time.Since(start)).
			Msg("dataset query loaded")
	}
	return ds, nil
}

func ConcessionRows(t *warehouse.Table) ([]store.ConcessionRow, error) {
	rows := make([]store.ConcessionRow, 0, t.Len())
	for i := range t.Rows {
		c := coercer{table: t, row: i}
		r := store.ConcessionRow{
			VMPP:       c.text("vmpp"),
			Month:      c.month("month"),
			Drug:       t.Value(i, "drug"),
			PricePence: c.number("price_pence"),
		}
		if c.err != nil {
			return nil, c.err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func TariffRows(t *warehouse.Table) ([]store.TariffRow, error) {
	rows := make([]store.TariffRow, 0, t.Len())
	for i := range t.Rows {
		c := coercer{table: t, row: i}
		r := store.TariffRow{
			VMPP:       c.text("vmpp"),
			Month:      c.month("month"),
			PricePence: c.number("price_pence"),
		}
		if c.err != nil {
			return nil, c.err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func VMPPRows(t *warehouse.Table) ([]store.VMPPRow, error) {
	rows := make([]store.VMPPRow, 0, t.Len())
	for i := range t.Rows {
		c := coercer{table: t, row: i}
		r := store.VMPPRow{
			ID:      c.text("id"),
			Name:    t.Value(i, "nm"),
			BNFCode: c.text("bnf_code"),
			QtyVal:  c.number("qtyval"),
		}
		if c.err != nil {
			return nil, c.err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func PrescribingRows(t *warehouse.Table) ([]store.PrescribingRow, error) {
	rows := make([]store.PrescribingRow, 0, t.Len())
	for i := range t.Rows {
		c := coercer{table: t, row: i}
		r := store.PrescribingRow{
			Month:      c.month("month"),
			BNFCode:    c.text("bnf_code"),
			BNFName:    t.Value(i, "bnf_name"),
			Quantity:   c.number("quantity"),
			NetCost:    c.optionalNumber("net_cost"),
			ActualCost: c.number("actual_cost"),
		}
		if c.err != nil {
			return nil, c.err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func ItemsRows(t *warehouse.Table) ([]store.ItemsRow, error) {
	rows := make([]store.ItemsRow, 0, t.Len())
	for i := range t.Rows {
		c := coercer{table: t, row: i}
		r := store.ItemsRow{
			Month: c.month("month"),
			Items: c.number("items"),
		}
		if c.err != nil {
			return nil, c.err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// coercer converts named columns of one row, keeping the first failure.
type coercer struct {
	table *warehouse.Table
	row   int
	err   error
}

func (c *coercer) fail(column, value, reason string) {
	if c.err == nil {
		c.err = fmt.Errorf("row %d column %s: %s %q", c.row+1, column, reason, value)
	}
}

func (c *coercer) text(column string) string {
	v := strings.TrimSpace(c.table.Value(c.row, column))
	if v == "" {
		c.fail(column, v, "missing value")
	}
	return v
}

func (c *coercer) number(column string) float64 {
	v := strings.TrimSpace(c.table.Value(c.row, column))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.fail(column, v, "invalid number")
	}
	return f
}

func (c *coercer) optionalNumber(column string) float64 {
	if strings.TrimSpace(c.table.Value(c.row, column)) == "" {
		return 0
	}
	return c.number(column)
}

func (c *coercer) month(column string) time.Time {
	v := strings.TrimSpace(c.table.Value(c.row, column))
	m, err := domain.ParseMonth(v)
	if err != nil {
		c.fail(column, v, "invalid month")
	}
	return m.Time()
}
