package forecast

import (
	"errors"
	"fmt"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

const stage = "forecast"

// QuantityBasis selects how the lagged quantity is derived from prescribing.
type QuantityBasis string

const (
	// QuantityLagged uses the quantity dispensed in the lagged month.
	QuantityLagged QuantityBasis = "lagged"
	// QuantityRolling uses the mean quantity of the three months ending at the
	// lagged month.
	QuantityRolling QuantityBasis = "rolling"
)

const rollingQuantityMonths = 3

// Methodology is one way of forecasting concession cost.
type Methodology struct {
	Name      string
	Discount  DiscountSource
	Weighting Weighting
	Quantity  QuantityBasis
}

type Options struct {
	LagMonths int
	Divisor   PackDivisor
}

func DefaultOptions() Options {
	return Options{
		LagMonths: DefaultLagMonths,
		Divisor:   NewPackDivisor(DefaultPackCountedBNFCodes),
	}
}

// Forecaster backtests methodologies against selected concession packs and
// observed prescribing.
type Forecaster struct {
	packs       []domain.ConcessionPack
	prescribing map[string]map[domain.Month]domain.PrescribingObservation
	opts        Options
}

// NewForecaster indexes prescribing by BNF code and month. A duplicate
// observation is reported for its BNF code and the first one is kept.
func NewForecaster(packs []domain.ConcessionPack, observations []domain.PrescribingObservation, opts Options) (*Forecaster, error) {
	if opts.LagMonths <= 0 {
		opts.LagMonths = DefaultLagMonths
	}
	if opts.Divisor.packCounted == nil {
		opts.Divisor = NewPackDivisor(DefaultPackCountedBNFCodes)
	}

	var errs []error
	prescribing := make(map[string]map[domain.Month]domain.PrescribingObservation)
	for _, o := range observations {
		byMonth, ok := prescribing[o.BNFCode]
		if !ok {
			byMonth = make(map[domain.Month]domain.PrescribingObservation)
			prescribing[o.BNFCode] = byMonth
		}
		if _, dup := byMonth[o.Month]; dup {
			errs = append(errs, &domain.DataIntegrityError{Stage: stage, Key: o.BNFCode, Month: o.Month, Reason: "duplicate prescribing observation"})
			continue
		}
		byMonth[o.Month] = o
	}
	return &Forecaster{packs: packs, prescribing: prescribing, opts: opts}, errors.Join(errs...)
}

// LagMonths is how many months the quantity trails the target month.
func (f *Forecaster) LagMonths() int {
	return f.opts.LagMonths
}

// Quantity returns the quantity basis for a BNF code forecast in the target month.
func (f *Forecaster) Quantity(bnfCode string, target domain.Month, basis QuantityBasis) (float64, bool) {
	lagged := target.AddMonths(-f.opts.LagMonths)
	byMonth := f.prescribing[bnfCode]
	switch basis {
	case QuantityRolling:
		var sum float64
		for i := rollingQuantityMonths - 1; i >= 0; i-- {
			o, ok := byMonth[lagged.AddMonths(-i)]
			if !ok {
				return 0, false
			}
			sum += o.Quantity
		}
		return sum / rollingQuantityMonths, true
	default:
		o, ok := byMonth[lagged]
		return o.Quantity, ok
	}
}

// Backtest forecasts every selected pack with the methodology and compares it
// with the actual cost. Packs missing a reference value are reported and left out.
func (f *Forecaster) Backtest(m Methodology) ([]domain.ForecastRecord, error) {
	if m.Discount == nil {
		return nil, fmt.Errorf("methodology %q has no discount source", m.Name)
	}
	weighting := m.Weighting
	if weighting == nil {
		weighting = NoWeighting()
	}

	var (
		records []domain.ForecastRecord
		errs    []error
	)
	for _, p := range f.packs {
		lagged := p.Month.AddMonths(-f.opts.LagMonths)
		q, ok := f.Quantity(p.BNFCode, p.Month, m.Quantity)
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: stage, Key: p.BNFCode, Month: lagged, Reference: "lagged quantity"})
			continue
		}
		actual, ok := f.prescribing[p.BNFCode][p.Month]
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: stage, Key: p.BNFCode, Month: p.Month, Reference: "actual cost"})
			continue
		}
		// The discount published for the lagged month is the latest known at
		// prediction time.
		discount, ok := m.Discount.Factor(lagged)
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: stage, Key: p.BNFCode, Month: lagged, Reference: m.Discount.Name() + " discount"})
			continue
		}

		in := Input{
			LaggedQuantity: q,
			Price:          p.ConcessionPrice,
			Divisor:        p.Divisor,
			Discount:       discount,
			Weighting:      weighting.Factor(p.Month, lagged),
		}
		predicted := Predict(in)
		in.Price = p.ConcessionPrice - p.TariffPrice

		rec := domain.ForecastRecord{
			Methodology:     m.Name,
			BNFCode:         p.BNFCode,
			VMPP:            p.VMPP,
			Month:           p.Month,
			LaggedQuantity:  q,
			PredictedCost:   predicted,
			PredictedImpact: Predict(in),
			ActualCost:      actual.ActualCost,
			Difference:      predicted - actual.ActualCost,
		}
		if actual.ActualCost != 0 {
			pct := rec.Difference / actual.ActualCost
			rec.PercentDifference = &pct
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

// ImpactAfterRun is the change in cost for quantity units once the tariff
// moves from the pre-run to the post-run reference price. A zero weighting
// is treated as no weighting.
func ImpactAfterRun(change domain.RunPriceChange, quantity, divisor, discount, weighting float64) (float64, error) {
	if change.PrePrice == nil || change.PostPrice == nil {
		return 0, &domain.MissingReferenceError{Stage: stage, Key: change.Run.VMPP, Month: change.Run.End, Reference: "reference price"}
	}
	return Predict(Input{
		LaggedQuantity: quantity,
		Price:          *change.PostPrice - *change.PrePrice,
		Divisor:        divisor,
		Discount:       discount,
		Weighting:      weighting,
	}), nil
}

// RunImpact forecasts the cost change in the target month after a run ends,
// using the quantity and discount available at that time and the
// methodology's weighting.
func (f *Forecaster) RunImpact(change domain.RunPriceChange, item domain.PricedItem, target domain.Month, m Methodology) (float64, error) {
	lagged := target.AddMonths(-f.opts.LagMonths)
	q, ok := f.Quantity(item.BNFCode, target, m.Quantity)
	if !ok {
		return 0, &domain.MissingReferenceError{Stage: stage, Key: item.BNFCode, Month: lagged, Reference: "lagged quantity"}
	}
	if m.Discount == nil {
		return 0, fmt.Errorf("methodology %q has no discount source", m.Name)
	}
	discount, ok := m.Discount.Factor(lagged)
	if !ok {
		return 0, &domain.MissingReferenceError{Stage: stage, Key: item.BNFCode, Month: lagged, Reference: m.Discount.Name() + " discount"}
	}
	weighting := m.Weighting
	if weighting == nil {
		weighting = NoWeighting()
	}
	return ImpactAfterRun(change, q, f.opts.Divisor.For(item), discount, weighting.Factor(target, lagged))
}
