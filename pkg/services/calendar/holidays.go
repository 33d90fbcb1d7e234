package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultSource   = "https://www.gov.uk/bank-holidays.json"
	DefaultDivision = "england-and-wales"
)

type event struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type division struct {
	Division string  `json:"division"`
	Events   []event `json:"events"`
}

// Holidays is a set of bank holiday dates.
type Holidays map[time.Time]string

func (h Holidays) Contains(day time.Time) bool {
	_, ok := h[dayOf(day)]
	return ok
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Loader fetches bank holidays from the gov.uk feed or a local copy of it.
type Loader struct {
	client *http.Client
}

func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client}
}

// Load reads the division's holidays from source, an http(s) URL or a file path.
func (l *Loader) Load(ctx context.Context, source, div string) (Holidays, error) {
	logger := zerolog.Ctx(ctx)
	if source == "" {
		source = DefaultSource
	}
	if div == "" {
		div = DefaultDivision
	}

	var body io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("create bank holidays request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch bank holidays: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch bank holidays: unexpected status %d", resp.StatusCode)
		}
		body = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open bank holidays file: %w", err)
		}
		body = f
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close bank holidays source")
		}
	}()

	holidays, err := Parse(body, div)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("source", source).Str("division", div).Int("holidays", len(holidays)).Msg("bank holidays loaded")
	return holidays, nil
}

// Parse decodes the gov.uk bank holidays document and returns one division.
func Parse(r io.Reader, div string) (Holidays, error) {
	var doc map[string]division
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bank holidays: %w", err)
	}
	d, ok := doc[div]
	if !ok {
		return nil, fmt.Errorf("bank holidays division %q not found", div)
	}
	holidays := make(Holidays, len(d.Events))
	for _, e := range d.Events {
		day, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return nil, fmt.Errorf("bank holiday %q: %w", e.Title, err)
		}
		holidays[day] = e.Title
	}
	return holidays, nil
}
