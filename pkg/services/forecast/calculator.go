package forecast

import (
	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

const (
	// DefaultLagMonths is how far behind the latest prescribing data is when a
	// concession is announced.
	DefaultLagMonths = 2

	// DefaultDiscountPercent is the national average discount percentage
	// assumed by the published forecast.
	DefaultDiscountPercent = 7.2
)

// DefaultPackCountedBNFCodes are presentations whose dispensed quantity is a
// number of packs rather than units.
var DefaultPackCountedBNFCodes = []string{"0206010F0AACJCJ", "1202010U0AAAAAA"}

// Input holds everything needed to forecast the cost of one item in one month.
type Input struct {
	LaggedQuantity float64
	// Price is per pack. A concession minus tariff delta yields the additional
	// cost of the concession; a full concession price yields the predicted spend.
	Price     domain.Pence
	Divisor   float64
	Discount  float64
	Weighting float64
}

// Predict returns lagged quantity x (price / divisor) x discount x weighting,
// in pounds. A zero weighting is treated as no weighting.
func Predict(in Input) float64 {
	weighting := in.Weighting
	if weighting == 0 {
		weighting = 1
	}
	divisor := in.Divisor
	if divisor == 0 {
		divisor = 1
	}
	return in.LaggedQuantity * (in.Price.Pounds() / divisor) * in.Discount * weighting
}

// RetainedFraction converts a discount percentage in [0,100] into the
// multiplicative factor applied to list cost, e.g. 7.2 -> 0.928.
func RetainedFraction(discountPercent float64) float64 {
	return 1 - discountPercent/100
}

// PackDivisor returns the units-per-pack divisor used to turn a pack price
// into a unit price.
type PackDivisor struct {
	packCounted map[string]struct{}
}

func NewPackDivisor(packCountedBNFCodes []string) PackDivisor {
	set := make(map[string]struct{}, len(packCountedBNFCodes))
	for _, code := range packCountedBNFCodes {
		set[code] = struct{}{}
	}
	return PackDivisor{packCounted: set}
}

func (d PackDivisor) For(item domain.PricedItem) float64 {
	if _, ok := d.packCounted[item.BNFCode]; ok {
		return 1
	}
	if item.PackSize <= 0 {
		return 1
	}
	return item.PackSize
}
