package cache

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
	"github.com/rs/zerolog"
)

// Policy decides whether a cached result may be reused.
type Policy string

const (
	// Reuse serves an existing cache file and only queries on a miss.
	Reuse Policy = "reuse"
	// Refresh always queries and overwrites the cache file.
	Refresh Policy = "refresh"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Reuse:
		return Reuse, nil
	case Refresh:
		return Refresh, nil
	default:
		return "", fmt.Errorf("unknown cache policy %q", s)
	}
}

// Cache stores query results as CSV files, one per distinct query text.
// Nothing is ever evicted.
type Cache struct {
	dir string
}

func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key is the file name a query is cached under.
func Key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:]) + ".csv"
}

func (c *Cache) Path(query string) string {
	return filepath.Join(c.dir, Key(query))
}

// ReadThrough returns the cached result for the query when the policy allows,
// otherwise queries the warehouse and caches the result.
func (c *Cache) ReadThrough(ctx context.Context, w warehouse.Warehouse, query string, policy Policy) (*warehouse.Table, error) {
	logger := zerolog.Ctx(ctx)
	path := c.Path(query)

	if policy != Refresh {
		table, err := readCSV(path)
		switch {
		case err == nil:
			logger.Debug().Str("cache_file", path).Int("rows", table.Len()).Msg("cache hit")
			return table, nil
		case !errors.Is(err, os.ErrNotExist):
			logger.Warn().Err(err).Str("cache_file", path).Msg("unreadable cache file, querying warehouse")
		}
	}

	table, err := w.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := writeCSV(path, table); err != nil {
		return nil, fmt.Errorf("write cache file: %w", err)
	}
	logger.Debug().Str("cache_file", path).Int("rows", table.Len()).Msg("cache stored")
	return table, nil
}

type cachedWarehouse struct {
	warehouse.Warehouse
	cache  *Cache
	policy Policy
}

// Wrap returns a warehouse whose queries read through the cache.
func Wrap(w warehouse.Warehouse, c *Cache, policy Policy) warehouse.Warehouse {
	return &cachedWarehouse{Warehouse: w, cache: c, policy: policy}
}

func (cw *cachedWarehouse) Query(ctx context.Context, query string) (*warehouse.Table, error) {
	return cw.cache.ReadThrough(ctx, cw.Warehouse, query, cw.policy)
}

func readCSV(path string) (*warehouse.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty cache file %s", path)
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return warehouse.NewTable(header, rows), nil
}

func writeCSV(path string, table *warehouse.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(table.Columns); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
