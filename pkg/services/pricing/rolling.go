package pricing

import (
	"errors"
	"sort"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/samber/lo"
)

const (
	stage = "reference_price"

	// DefaultWindow is the number of trailing months averaged into a rolling price.
	DefaultWindow = 3
)

// Offsets position the rolling windows relative to a run. A rolling price at
// month m covers m-window+1 .. m.
type Offsets struct {
	// Pre is added to the run start month.
	Pre int
	// Post is added to the run end month.
	Post int
}

// DefaultOffsets averages the three months ending the month before the run
// starts, and the three months starting the month after it ends.
func DefaultOffsets() Offsets {
	return Offsets{Pre: -1, Post: DefaultWindow}
}

type itemMonth struct {
	vmpp  string
	month domain.Month
}

// RollingPrices holds the trailing mean tariff price per item and month.
type RollingPrices struct {
	window int
	prices map[itemMonth]domain.Pence
	means  map[itemMonth]domain.Pence
}

// NewRollingPrices indexes tariff observations. A rolling price exists only
// for months where every month of the window was observed. Items with more
// than one observation for a month are left out and reported as
// DataIntegrityErrors.
func NewRollingPrices(observations []domain.TariffPrice, window int) (*RollingPrices, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	rp := &RollingPrices{
		window: window,
		prices: make(map[itemMonth]domain.Pence, len(observations)),
		means:  make(map[itemMonth]domain.Pence, len(observations)),
	}

	byItem := lo.GroupBy(observations, func(o domain.TariffPrice) string { return o.VMPP })
	items := lo.Keys(byItem)
	sort.Strings(items)

	var errs []error
	for _, vmpp := range items {
		series := byItem[vmpp]
		sort.Slice(series, func(i, j int) bool { return series[i].Month.Before(series[j].Month) })

		var dup error
		for i := 1; i < len(series); i++ {
			if series[i].Month == series[i-1].Month {
				dup = &domain.DataIntegrityError{
					Stage:  stage,
					Key:    vmpp,
					Month:  series[i].Month,
					Reason: "duplicate tariff price",
				}
				break
			}
		}
		if dup != nil {
			errs = append(errs, dup)
			continue
		}

		for _, o := range series {
			rp.prices[itemMonth{vmpp, o.Month}] = o.Price
		}
		for _, o := range series {
			if mean, ok := rp.trailingMean(vmpp, o.Month); ok {
				rp.means[itemMonth{vmpp, o.Month}] = mean
			}
		}
	}

	return rp, errors.Join(errs...)
}

func (rp *RollingPrices) trailingMean(vmpp string, m domain.Month) (domain.Pence, bool) {
	var sum domain.Pence
	for i := 0; i < rp.window; i++ {
		p, ok := rp.prices[itemMonth{vmpp, m.AddMonths(-i)}]
		if !ok {
			return 0, false
		}
		sum += p
	}
	return sum / domain.Pence(rp.window), true
}

// At returns the rolling price for the item at the month, or nil when the
// window is incomplete.
func (rp *RollingPrices) At(vmpp string, m domain.Month) *domain.Pence {
	mean, ok := rp.means[itemMonth{vmpp, m}]
	if !ok {
		return nil
	}
	return &mean
}

// Price returns the observed tariff price of the item in the month.
func (rp *RollingPrices) Price(vmpp string, m domain.Month) (domain.Pence, bool) {
	p, ok := rp.prices[itemMonth{vmpp, m}]
	return p, ok
}
