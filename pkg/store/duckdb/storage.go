package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcboeker/go-duckdb/v2"
)

const ConcessionTable = `
	CREATE TABLE IF NOT EXISTS ncsoconcession (
		vmpp VARCHAR NOT NULL,
		date DATE NOT NULL,
		drug VARCHAR,
		price_pence DOUBLE
	);
`
const TariffTable = `
	CREATE TABLE IF NOT EXISTS tariffprice (
		vmpp VARCHAR NOT NULL,
		date DATE NOT NULL,
		price_pence DOUBLE
	);
`
const VMPPTable = `
	CREATE TABLE IF NOT EXISTS vmpp (
		id VARCHAR NOT NULL,
		nm VARCHAR,
		bnf_code VARCHAR,
		qtyval DOUBLE
	);
`
const PrescribingTable = `
	CREATE TABLE IF NOT EXISTS normalised_prescribing (
		month DATE NOT NULL,
		bnf_code VARCHAR NOT NULL,
		bnf_name VARCHAR,
		items DOUBLE,
		quantity DOUBLE,
		net_cost DOUBLE,
		actual_cost DOUBLE
	);
`

// SourceTables lists the local source tables and their DDL, in boot order.
var SourceTables = []struct {
	Name   string
	Schema string
}{
	{Name: "ncsoconcession", Schema: ConcessionTable},
	{Name: "tariffprice", Schema: TariffTable},
	{Name: "vmpp", Schema: VMPPTable},
	{Name: "normalised_prescribing", Schema: PrescribingTable},
}

type Settings struct {
	DbPath string
	// ExtractDir holds <table>.csv extracts. Tables with an extract are
	// created as views over it instead of empty tables.
	ExtractDir string
}

func NewDB(settings Settings) (*sql.DB, error) {
	bootQueries, err := buildBootQueries(settings.ExtractDir)
	if err != nil {
		return nil, err
	}

	// An empty path is an in-memory database; ":memory:" does not survive
	// DSN parsing once parameters are appended.
	path := settings.DbPath
	if path == ":memory:" {
		path = ""
	}
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", path), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}

func buildBootQueries(extractDir string) ([]string, error) {
	queries := make([]string, 0, len(SourceTables))
	for _, t := range SourceTables {
		if extractDir != "" {
			path := filepath.Join(extractDir, t.Name+".csv")
			if _, err := os.Stat(path); err == nil {
				queries = append(queries, fmt.Sprintf(
					"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_csv_auto('%s', header = true);",
					t.Name, strings.ReplaceAll(path, "'", "''"),
				))
				continue
			} else if !os.IsNotExist(err) {
				return nil, fmt.Errorf("stat extract %s: %w", path, err)
			}
		}
		queries = append(queries, t.Schema)
	}
	return queries, nil
}
