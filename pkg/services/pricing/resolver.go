package pricing

import (
	"errors"
	"sort"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// Resolver looks up the reference tariff prices around concession runs.
type Resolver struct {
	prices  *RollingPrices
	offsets Offsets
}

func NewResolver(prices *RollingPrices, offsets Offsets) *Resolver {
	return &Resolver{prices: prices, offsets: offsets}
}

// PreMonth is the month whose rolling price is the pre-run reference.
func (r *Resolver) PreMonth(run domain.ConcessionRun) domain.Month {
	return run.Start.AddMonths(r.offsets.Pre)
}

// PostMonth is the month whose rolling price is the post-run reference.
func (r *Resolver) PostMonth(run domain.ConcessionRun) domain.Month {
	return run.End.AddMonths(r.offsets.Post)
}

// Resolve returns the pre-run and post-run reference prices. Either may be nil.
func (r *Resolver) Resolve(run domain.ConcessionRun) (pre, post *domain.Pence) {
	return r.prices.At(run.VMPP, r.PreMonth(run)), r.prices.At(run.VMPP, r.PostMonth(run))
}

// PriceChange compares the reference prices around a run. A missing reference
// leaves Change nil and is returned as a MissingReferenceError.
func (r *Resolver) PriceChange(run domain.ConcessionRun) (domain.RunPriceChange, error) {
	pre, post := r.Resolve(run)
	change := domain.RunPriceChange{Run: run, PrePrice: pre, PostPrice: post}

	switch {
	case pre == nil:
		return change, &domain.MissingReferenceError{Stage: stage, Key: run.VMPP, Month: r.PreMonth(run), Reference: "pre-run rolling price"}
	case post == nil:
		return change, &domain.MissingReferenceError{Stage: stage, Key: run.VMPP, Month: r.PostMonth(run), Reference: "post-run rolling price"}
	case *pre == 0:
		return change, &domain.MissingReferenceError{Stage: stage, Key: run.VMPP, Month: r.PreMonth(run), Reference: "non-zero pre-run rolling price"}
	}

	v := float64(*post / *pre) - 1
	change.Change = &v
	return change, nil
}

// PriceChanges resolves every run, omitting runs with a missing reference.
// Results are sorted by change, largest first.
func (r *Resolver) PriceChanges(runs []domain.ConcessionRun) ([]domain.RunPriceChange, error) {
	var (
		changes []domain.RunPriceChange
		errs    []error
	)
	for _, run := range runs {
		c, err := r.PriceChange(run)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changes = append(changes, c)
	}
	sort.SliceStable(changes, func(i, j int) bool { return *changes[i].Change > *changes[j].Change })
	return changes, errors.Join(errs...)
}
