package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `{
  "england-and-wales": {"division": "england-and-wales", "events": [
    {"title": "Early May bank holiday", "date": "2021-05-03"},
    {"title": "Spring bank holiday", "date": "2021-05-31"}
  ]},
  "scotland": {"division": "scotland", "events": [
    {"title": "2nd January", "date": "2021-01-04"}
  ]}
}`

func TestParse(t *testing.T) {
	h, err := Parse(strings.NewReader(feed), DefaultDivision)
	require.NoError(t, err)

	assert.Len(t, h, 2)
	assert.True(t, h.Contains(time.Date(2021, 5, 31, 15, 0, 0, 0, time.UTC)))
	assert.False(t, h.Contains(time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)))

	_, err = Parse(strings.NewReader(feed), "northern-ireland")
	assert.Error(t, err)
}

func TestCountDays(t *testing.T) {
	h, err := Parse(strings.NewReader(feed), DefaultDivision)
	require.NoError(t, err)
	may := domain.NewMonth(2021, time.May)

	assert.Equal(t, 31, CountDays(may, EveryDay, nil))
	assert.Equal(t, 21, CountDays(may, MondayToFriday, nil))
	assert.Equal(t, 19, CountDays(may, MondayToFriday, h))
	assert.Equal(t, 24, CountDays(may, MondayToSaturday, h))
	assert.Equal(t, 20, CountDays(domain.NewMonth(2021, time.February), MondayToFriday, h))
}

func TestLoader_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())

	h, err := l.Load(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Len(t, h, 2)

	path := filepath.Join(t.TempDir(), "bank-holidays.json")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o600))

	h, err = l.Load(context.Background(), path, "scotland")
	require.NoError(t, err)
	assert.Len(t, h, 1)
}

func TestLoader_LoadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.Client()).Load(context.Background(), srv.URL, "")
	assert.Error(t, err)
}
