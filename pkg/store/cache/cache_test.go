package cache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWarehouse struct {
	mock.Mock
}

func (m *mockWarehouse) Query(ctx context.Context, query string) (*warehouse.Table, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehouse.Table), args.Error(1)
}

func (m *mockWarehouse) Close() error {
	return m.Called().Error(0)
}

const query = "SELECT vmpp, date AS month FROM ncsoconcession"

func TestReadThrough_ReuseQueriesOnce(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	table := warehouse.NewTable([]string{"vmpp", "month"}, [][]string{{"111", "2021-01-01"}, {"222", ""}})
	w := new(mockWarehouse)
	w.On("Query", ctx, query).Return(table, nil).Once()

	first, err := c.ReadThrough(ctx, w, query, Reuse)
	require.NoError(t, err)
	second, err := c.ReadThrough(ctx, w, query, Reuse)
	require.NoError(t, err)

	assert.Equal(t, table.Rows, first.Rows)
	assert.Equal(t, table.Columns, second.Columns)
	assert.Equal(t, table.Rows, second.Rows)
	w.AssertExpectations(t)
}

func TestReadThrough_RefreshAlwaysQueries(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	old := warehouse.NewTable([]string{"n"}, [][]string{{"1"}})
	fresh := warehouse.NewTable([]string{"n"}, [][]string{{"2"}})
	w := new(mockWarehouse)
	w.On("Query", ctx, query).Return(old, nil).Once()
	w.On("Query", ctx, query).Return(fresh, nil).Once()

	_, err = c.ReadThrough(ctx, w, query, Reuse)
	require.NoError(t, err)
	got, err := c.ReadThrough(ctx, w, query, Refresh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2"}}, got.Rows)

	cached, err := c.ReadThrough(ctx, w, query, Reuse)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2"}}, cached.Rows)
	w.AssertExpectations(t)
}

func TestReadThrough_DistinctQueriesDistinctFiles(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NotEqual(t, c.Path("SELECT 1"), c.Path("SELECT 2"))
	assert.Equal(t, c.Path("SELECT 1"), c.Path("SELECT 1"))
}

func TestReadThrough_ErrorLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	w := new(mockWarehouse)
	w.On("Query", ctx, query).Return(nil, errors.New("quota exceeded"))

	_, err = Wrap(w, c, Reuse).Query(ctx, query)
	require.Error(t, err)

	_, statErr := os.Stat(c.Path(query))
	assert.True(t, os.IsNotExist(statErr))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Reuse, p)

	p, err = ParsePolicy("refresh")
	require.NoError(t, err)
	assert.Equal(t, Refresh, p)

	_, err = ParsePolicy("forever")
	assert.Error(t, err)
}
