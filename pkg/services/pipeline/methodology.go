package pipeline

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
)

const (
	DiscountFixed   = "fixed"
	DiscountMonthly = "monthly"
)

// NeedsHolidays reports whether any methodology weights by bank-holiday-aware day counts.
func NeedsHolidays(ms []config.MethodologySettings) bool {
	return lo.SomeBy(ms, func(m config.MethodologySettings) bool {
		return m.Weighting == forecast.WeightingWorkdays || m.Weighting == forecast.WeightingDispensingDays
	})
}

// NeedsSeasonalProfile reports whether any methodology weights by seasonal profile.
func NeedsSeasonalProfile(ms []config.MethodologySettings) bool {
	return lo.SomeBy(ms, func(m config.MethodologySettings) bool {
		return m.Weighting == forecast.WeightingSeasonalProfile
	})
}

// NeedsMonthlyDiscount reports whether any methodology uses published monthly discounts.
func NeedsMonthlyDiscount(ms []config.MethodologySettings) bool {
	return lo.SomeBy(ms, func(m config.MethodologySettings) bool {
		return m.Discount == DiscountMonthly
	})
}

// BuildMethodologies turns configured methodologies into forecasting ones.
func BuildMethodologies(
	ms []config.MethodologySettings,
	fixedPercent float64,
	monthly forecast.DiscountSource,
	sources forecast.WeightingSources,
) ([]forecast.Methodology, error) {
	out := make([]forecast.Methodology, 0, len(ms))
	for _, m := range ms {
		var discount forecast.DiscountSource
		switch m.Discount {
		case "", DiscountFixed:
			discount = forecast.FixedDiscount{Percent: fixedPercent}
		case DiscountMonthly:
			if monthly == nil {
				return nil, fmt.Errorf("methodology %q: monthly discounts are not loaded", m.Name)
			}
			discount = monthly
		default:
			return nil, fmt.Errorf("methodology %q: unknown discount %q", m.Name, m.Discount)
		}

		weighting, err := forecast.NewWeighting(m.Weighting, sources)
		if err != nil {
			return nil, fmt.Errorf("methodology %q: %w", m.Name, err)
		}

		var basis forecast.QuantityBasis
		switch forecast.QuantityBasis(m.Quantity) {
		case "", forecast.QuantityLagged:
			basis = forecast.QuantityLagged
		case forecast.QuantityRolling:
			basis = forecast.QuantityRolling
		default:
			return nil, fmt.Errorf("methodology %q: unknown quantity basis %q", m.Name, m.Quantity)
		}

		out = append(out, forecast.Methodology{
			Name:      m.Name,
			Discount:  discount,
			Weighting: weighting,
			Quantity:  basis,
		})
	}
	return out, nil
}
