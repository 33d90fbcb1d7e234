package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// Warehouse runs read-only queries against an analytical store.
type Warehouse interface {
	Query(ctx context.Context, query string) (*Table, error)
	Close() error
}

// Table is a query result with every value string-encoded, so live and cached
// results are coerced the same way. Columns are addressed by name.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

func NewTable(columns []string, rows [][]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Column returns the position of a column, matched case-insensitively.
func (t *Table) Column(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[strings.ToLower(strings.TrimSpace(c))] = i
		}
	}
	i, ok := t.index[strings.ToLower(name)]
	return i, ok
}

// Require checks that every named column is present.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.Column(n); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %s (have %s)", strings.Join(missing, ", "), strings.Join(t.Columns, ", "))
	}
	return nil
}

// Value returns the named column of row i, or "" when the column is absent.
func (t *Table) Value(i int, name string) string {
	c, ok := t.Column(name)
	if !ok || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

func (t *Table) Len() int {
	return len(t.Rows)
}
