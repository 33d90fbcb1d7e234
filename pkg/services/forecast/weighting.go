package forecast

import (
	"fmt"
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/services/calendar"
)

const (
	WeightingNone                 = "none"
	WeightingCalendarDays         = "calendar_days"
	WeightingWorkdays             = "workdays"
	WeightingWorkdaysWithHolidays = "workdays_with_holidays"
	WeightingDispensingDays       = "dispensing_days"
	WeightingSeasonalProfile      = "seasonal_profile"
)

// Weighting scales a forecast made from lagged data to the target month. The
// factor is target-month factor / lagged-month factor and 1 when either is
// unavailable.
type Weighting interface {
	Name() string
	Factor(target, lagged domain.Month) float64
}

type noWeighting struct{}

func (noWeighting) Name() string { return WeightingNone }

func (noWeighting) Factor(_, _ domain.Month) float64 { return 1 }

// NoWeighting leaves forecasts unscaled.
func NoWeighting() Weighting {
	return noWeighting{}
}

type dayCountWeighting struct {
	name     string
	mask     calendar.Weekmask
	holidays calendar.Holidays
}

func (w dayCountWeighting) Name() string { return w.name }

func (w dayCountWeighting) Factor(target, lagged domain.Month) float64 {
	return ratio(
		float64(calendar.CountDays(target, w.mask, w.holidays)),
		float64(calendar.CountDays(lagged, w.mask, w.holidays)),
	)
}

func CalendarDaysWeighting() Weighting {
	return dayCountWeighting{name: WeightingCalendarDays, mask: calendar.EveryDay}
}

// WorkdaysWeighting counts Monday to Friday, excluding bank holidays.
func WorkdaysWeighting(holidays calendar.Holidays) Weighting {
	return dayCountWeighting{name: WeightingWorkdays, mask: calendar.MondayToFriday, holidays: holidays}
}

// WorkdaysWithHolidaysWeighting counts Monday to Friday, bank holidays included.
func WorkdaysWithHolidaysWeighting() Weighting {
	return dayCountWeighting{name: WeightingWorkdaysWithHolidays, mask: calendar.MondayToFriday}
}

// DispensingDaysWeighting counts Monday to Saturday, excluding bank holidays.
func DispensingDaysWeighting(holidays calendar.Holidays) Weighting {
	return dayCountWeighting{name: WeightingDispensingDays, mask: calendar.MondayToSaturday, holidays: holidays}
}

// SeasonalProfile weights by the share of a year's prescription items that
// falls in each calendar month, relative to an even twelfth.
type SeasonalProfile struct {
	proportions map[time.Month]float64
}

// NewSeasonalProfile builds the profile from monthly item totals.
func NewSeasonalProfile(items []domain.MonthlyItems) *SeasonalProfile {
	var total float64
	byMonth := make(map[time.Month]float64, 12)
	for _, it := range items {
		byMonth[it.Month.Month] += it.Items
		total += it.Items
	}
	proportions := make(map[time.Month]float64, len(byMonth))
	if total > 0 {
		for m, n := range byMonth {
			proportions[m] = n / total * 12
		}
	}
	return &SeasonalProfile{proportions: proportions}
}

func (*SeasonalProfile) Name() string { return WeightingSeasonalProfile }

// Proportion returns the month-of-year share relative to one twelfth.
func (p *SeasonalProfile) Proportion(m time.Month) (float64, bool) {
	v, ok := p.proportions[m]
	return v, ok
}

func (p *SeasonalProfile) Factor(target, lagged domain.Month) float64 {
	t, okT := p.proportions[target.Month]
	l, okL := p.proportions[lagged.Month]
	if !okT || !okL {
		return 1
	}
	return ratio(t, l)
}

func ratio(target, lagged float64) float64 {
	if target <= 0 || lagged <= 0 {
		return 1
	}
	return target / lagged
}

// WeightingSources holds the reference data weightings are built from.
type WeightingSources struct {
	Holidays calendar.Holidays
	Profile  *SeasonalProfile
}

// NewWeighting builds the named weighting scheme.
func NewWeighting(name string, src WeightingSources) (Weighting, error) {
	switch name {
	case "", WeightingNone:
		return NoWeighting(), nil
	case WeightingCalendarDays:
		return CalendarDaysWeighting(), nil
	case WeightingWorkdays:
		if src.Holidays == nil {
			return nil, fmt.Errorf("weighting %q needs bank holidays", name)
		}
		return WorkdaysWeighting(src.Holidays), nil
	case WeightingWorkdaysWithHolidays:
		return WorkdaysWithHolidaysWeighting(), nil
	case WeightingDispensingDays:
		if src.Holidays == nil {
			return nil, fmt.Errorf("weighting %q needs bank holidays", name)
		}
		return DispensingDaysWeighting(src.Holidays), nil
	case WeightingSeasonalProfile:
		if src.Profile == nil {
			return nil, fmt.Errorf("weighting %q needs prescribing item totals", name)
		}
		return src.Profile, nil
	default:
		return nil, fmt.Errorf("unknown weighting %q", name)
	}
}
