package forecast

import (
	"errors"
	"sort"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

const packStage = "pack_selection"

type packKey struct {
	month   domain.Month
	bnfCode string
}

type priceKey struct {
	vmpp  string
	month domain.Month
}

// SelectPacks picks, for each month and BNF code, the concession pack with the
// largest uplift over its tariff price per dispensed unit, as counted by
// divisor. Ties go to the lowest VMPP id.
// Packs without a tariff price or VMPP reference are reported and skipped.
func SelectPacks(
	concessions []domain.ConcessionPrice,
	tariff []domain.TariffPrice,
	items map[string]domain.PricedItem,
	divisor PackDivisor,
) ([]domain.ConcessionPack, error) {
	var errs []error

	tariffByKey := make(map[priceKey]domain.Pence, len(tariff))
	for _, t := range tariff {
		k := priceKey{vmpp: t.VMPP, month: t.Month}
		if _, dup := tariffByKey[k]; dup {
			errs = append(errs, &domain.DataIntegrityError{Stage: packStage, Key: t.VMPP, Month: t.Month, Reason: "duplicate tariff price"})
			continue
		}
		tariffByKey[k] = t.Price
	}

	best := make(map[packKey]domain.ConcessionPack)
	seen := make(map[priceKey]struct{}, len(concessions))
	for _, c := range concessions {
		k := priceKey{vmpp: c.VMPP, month: c.Month}
		if _, dup := seen[k]; dup {
			errs = append(errs, &domain.DataIntegrityError{Stage: packStage, Key: c.VMPP, Month: c.Month, Reason: "duplicate concession price"})
			continue
		}
		seen[k] = struct{}{}

		item, ok := items[c.VMPP]
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: packStage, Key: c.VMPP, Month: c.Month, Reference: "vmpp reference"})
			continue
		}
		if item.PackSize <= 0 {
			errs = append(errs, &domain.DataIntegrityError{Stage: packStage, Key: c.VMPP, Month: c.Month, Reason: "non-positive pack size"})
			continue
		}
		tp, ok := tariffByKey[k]
		if !ok {
			errs = append(errs, &domain.MissingReferenceError{Stage: packStage, Key: c.VMPP, Month: c.Month, Reference: "tariff price"})
			continue
		}

		pack := domain.ConcessionPack{
			Month:           c.Month,
			BNFCode:         item.BNFCode,
			VMPP:            c.VMPP,
			Name:            item.Name,
			ConcessionPrice: c.Price,
			TariffPrice:     tp,
			PackSize:        item.PackSize,
			Divisor:         divisor.For(item),
		}
		bk := packKey{month: c.Month, bnfCode: item.BNFCode}
		current, ok := best[bk]
		if !ok || better(pack, current) {
			best[bk] = pack
		}
	}

	packs := make([]domain.ConcessionPack, 0, len(best))
	for _, p := range best {
		packs = append(packs, p)
	}
	sort.Slice(packs, func(i, j int) bool {
		if packs[i].Month != packs[j].Month {
			return packs[i].Month.Before(packs[j].Month)
		}
		return packs[i].BNFCode < packs[j].BNFCode
	})
	return packs, errors.Join(errs...)
}

func better(candidate, current domain.ConcessionPack) bool {
	cu, ou := candidate.UnitUplift(), current.UnitUplift()
	if cu != ou {
		return cu > ou
	}
	return candidate.VMPP < current.VMPP
}
