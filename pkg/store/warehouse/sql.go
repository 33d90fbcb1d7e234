package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type sqlWarehouse struct {
	db      *sql.DB
	name    string
	timeout time.Duration
}

// NewSQLWarehouse wraps a database/sql connection. A zero timeout leaves the
// caller's context deadline in charge.
func NewSQLWarehouse(db *sql.DB, name string, timeout time.Duration) Warehouse {
	return &sqlWarehouse{db: db, name: name, timeout: timeout}
}

func (w *sqlWarehouse) Query(ctx context.Context, query string) (*Table, error) {
	logger := zerolog.Ctx(ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", w.name, err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to close warehouse query rows")
		}
	}(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s columns: %w", w.name, err)
	}

	table := NewTable(columns, nil)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s scan: %w", w.name, err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", w.name, err)
	}

	logger.Debug().Str("warehouse", w.name).Int("rows", table.Len()).Msg("query completed")
	return table, nil
}

func (w *sqlWarehouse) Close() error {
	return w.db.Close()
}

// FormatValue string-encodes a driver value. NULL becomes "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.UTC().Format(time.RFC3339)
	case *big.Rat:
		f, _ := x.Float64()
		return strconv.FormatFloat(f, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
