package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/databricks/databricks-sql-go"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/de-tools/concession-forecast/pkg/models/store"
	"github.com/de-tools/concession-forecast/pkg/store/duckdb"
)

const (
	TypeBigQuery   = "bigquery"
	TypeDuckDB     = "duckdb"
	TypeSnowflake  = "snowflake"
	TypeDatabricks = "databricks"
	TypePostgres   = "postgres"
	TypeMySQL      = "mysql"
)

// DefaultRegistry has a factory for every supported profile type.
func DefaultRegistry() Registry {
	r := NewRegistry()
	for kind, f := range map[string]Factory{
		TypeBigQuery:   BigQueryFactory,
		TypeDuckDB:     DuckDBFactory,
		TypeSnowflake:  SnowflakeFactory,
		TypeDatabricks: DatabricksFactory,
		TypePostgres:   PostgresFactory,
		TypeMySQL:      MySQLFactory,
	} {
		_ = r.Register(kind, f)
	}
	return r
}

func BigQueryFactory(ctx context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	project := p.Get("project")
	if project == "" {
		return nil, fmt.Errorf("profile %q: project is required", p.Name)
	}
	return NewBigQueryWarehouse(ctx, project, p.Get("location"), p.Get("credentials_file"), timeout)
}

func DuckDBFactory(_ context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath:     p.GetOr("path", ":memory:"),
		ExtractDir: p.Get("extract_dir"),
	})
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to open duckdb: %w", p.Name, err)
	}
	return NewSQLWarehouse(db, TypeDuckDB, timeout), nil
}

func SnowflakeFactory(_ context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	cfg := &sf.Config{
		Account:   p.Get("account"),
		User:      p.Get("user"),
		Password:  p.Get("password"),
		Database:  p.Get("database"),
		Schema:    p.Get("schema"),
		Warehouse: p.Get("warehouse"),
		Role:      p.Get("role"),
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to create DSN: %w", p.Name, err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to connect: %w", p.Name, err)
	}
	return NewSQLWarehouse(db, TypeSnowflake, timeout), nil
}

func DatabricksFactory(_ context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	dsn, err := DatabricksDSN(p)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("databricks", dsn)
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to connect to Databricks: %w", p.Name, err)
	}
	return NewSQLWarehouse(db, TypeDatabricks, timeout), nil
}

// DatabricksDSN builds a token DSN from host, token and http_path, with
// optional catalog and schema.
func DatabricksDSN(p store.Profile) (string, error) {
	host, token, httpPath := p.Get("host"), p.Get("token"), p.Get("http_path")
	if host == "" || token == "" || httpPath == "" {
		return "", fmt.Errorf("profile %q: host, token and http_path are required", p.Name)
	}
	u, err := url.Parse(host)
	if err == nil && u.Host != "" {
		host = u.Host
	}

	dsn := fmt.Sprintf("token:%s@%s%s", token, host, httpPath)

	params := url.Values{}
	if c := p.Get("catalog"); c != "" {
		params.Set("catalog", c)
	}
	if s := p.Get("schema"); s != "" {
		params.Set("schema", s)
	}
	if qp := params.Encode(); qp != "" {
		dsn = dsn + "?" + qp
	}
	return dsn, nil
}

func PostgresFactory(_ context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	dsn := p.Get("url")
	if dsn == "" {
		return nil, fmt.Errorf("profile %q: url is required", p.Name)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to connect to postgres: %w", p.Name, err)
	}
	return NewSQLWarehouse(db, TypePostgres, timeout), nil
}

func MySQLFactory(_ context.Context, p store.Profile, timeout time.Duration) (Warehouse, error) {
	dsn, err := MySQLDSN(p)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("profile %q: failed to connect to mysql: %w", p.Name, err)
	}
	return NewSQLWarehouse(db, TypeMySQL, timeout), nil
}

// MySQLDSN uses the profile's dsn verbatim, or builds one from host, user,
// password and database.
func MySQLDSN(p store.Profile) (string, error) {
	if dsn := p.Get("dsn"); dsn != "" {
		return dsn, nil
	}
	host, database := p.Get("host"), p.Get("database")
	if host == "" || database == "" {
		return "", fmt.Errorf("profile %q: dsn or host and database are required", p.Name)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.User = p.Get("user")
	cfg.Passwd = p.Get("password")
	cfg.DBName = database
	cfg.ParseTime = false
	return cfg.FormatDSN(), nil
}
