package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/store/cache"
	"github.com/de-tools/concession-forecast/pkg/store/dataset"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
)

// Session is an open warehouse connection and the dataset loader reading
// through the query cache.
type Session struct {
	Loader    dataset.Loader
	warehouse warehouse.Warehouse
}

// OpenSession connects to the configured profile's warehouse.
func OpenSession(ctx context.Context, s *config.Settings, profiles config.Registry, warehouses warehouse.Registry) (*Session, error) {
	if s.Profile == "" {
		return nil, fmt.Errorf("no warehouse profile configured")
	}
	profile, err := profiles.GetProfile(ctx, s.Profile)
	if err != nil {
		return nil, err
	}
	policy, err := cache.ParsePolicy(s.Cache.Policy)
	if err != nil {
		return nil, err
	}
	seasonal, err := SeasonalWindow(s)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(s.Cache.Dir)
	if err != nil {
		return nil, err
	}

	w, err := warehouses.Open(ctx, profile, s.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("profile", profile.Name).
		Str("type", profile.Type).
		Str("cache_policy", string(policy)).
		Msg("warehouse opened")

	loader := dataset.NewLoader(cache.Wrap(w, c, policy), Tables(s), seasonal, NeedsSeasonalProfile(s.Methodologies))
	return &Session{Loader: loader, warehouse: w}, nil
}

func (s *Session) Close() error {
	return s.warehouse.Close()
}

func Tables(s *config.Settings) dataset.Tables {
	return dataset.Tables{
		Concession:  s.Tables.Concession,
		Tariff:      s.Tables.Tariff,
		VMPP:        s.Tables.VMPP,
		Prescribing: s.Tables.Prescribing,
	}
}

func SeasonalWindow(s *config.Settings) (dataset.SeasonalWindow, error) {
	from, err := domain.ParseMonth(s.Seasonal.From)
	if err != nil {
		return dataset.SeasonalWindow{}, fmt.Errorf("seasonal.from: %w", err)
	}
	to, err := domain.ParseMonth(s.Seasonal.To)
	if err != nil {
		return dataset.SeasonalWindow{}, fmt.Errorf("seasonal.to: %w", err)
	}
	if to.Before(from) {
		return dataset.SeasonalWindow{}, fmt.Errorf("seasonal window %s..%s is empty", from, to)
	}
	return dataset.SeasonalWindow{From: from, To: to, Chapters: s.Seasonal.Chapters}, nil
}

// CachedReport runs the pipeline on first use and serves the same report
// afterwards. A failed run is retried on the next call; a report returned
// alongside an integrity error is kept.
type CachedReport struct {
	runner Runner

	mu     sync.Mutex
	report *domain.Report
}

func NewCachedReport(runner Runner) *CachedReport {
	return &CachedReport{runner: runner}
}

func (c *CachedReport) Report(ctx context.Context) (*domain.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.report != nil {
		return c.report, nil
	}
	report, err := c.runner.Run(ctx)
	if report == nil {
		return nil, err
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("report computed with integrity failures")
	}
	c.report = report
	return report, nil
}
