package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type bigQueryWarehouse struct {
	client   *bigquery.Client
	location string
	timeout  time.Duration
}

// NewBigQueryWarehouse connects to BigQuery. Credentials come from the
// environment unless a credentials file is given.
func NewBigQueryWarehouse(ctx context.Context, project, location, credentialsFile string, timeout time.Duration) (Warehouse, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	return &bigQueryWarehouse{client: client, location: location, timeout: timeout}, nil
}

func (w *bigQueryWarehouse) Query(ctx context.Context, query string) (*Table, error) {
	logger := zerolog.Ctx(ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	q := w.client.Query(query)
	if w.location != "" {
		q.Location = w.location
	}
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery query failed: %w", err)
	}

	var table *Table
	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery read: %w", err)
		}
		if table == nil {
			table = NewTable(schemaColumns(it.Schema), nil)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if table == nil {
		table = NewTable(schemaColumns(it.Schema), nil)
	}

	logger.Debug().Str("warehouse", "bigquery").Str("job", jobID(it)).Int("rows", table.Len()).Msg("query completed")
	return table, nil
}

func (w *bigQueryWarehouse) Close() error {
	return w.client.Close()
}

func schemaColumns(schema bigquery.Schema) []string {
	columns := make([]string, 0, len(schema))
	for _, f := range schema {
		columns = append(columns, f.Name)
	}
	return columns
}

func jobID(it *bigquery.RowIterator) string {
	if it.SourceJob() == nil {
		return ""
	}
	return it.SourceJob().ID()
}
