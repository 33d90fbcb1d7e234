package adapters

import (
	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/models/store"
)

func MapStoreConcessionRowsToDomain(rows []store.ConcessionRow) []domain.ConcessionPrice {
	prices := make([]domain.ConcessionPrice, 0, len(rows))
	for _, r := range rows {
		prices = append(prices, domain.ConcessionPrice{
			VMPP:  r.VMPP,
			Month: domain.MonthOf(r.Month),
			Drug:  r.Drug,
			Price: domain.Pence(r.PricePence),
		})
	}
	return prices
}

func MapStoreTariffRowsToDomain(rows []store.TariffRow) []domain.TariffPrice {
	prices := make([]domain.TariffPrice, 0, len(rows))
	for _, r := range rows {
		prices = append(prices, domain.TariffPrice{
			VMPP:  r.VMPP,
			Month: domain.MonthOf(r.Month),
			Price: domain.Pence(r.PricePence),
		})
	}
	return prices
}

func MapStoreVMPPRowsToDomain(rows []store.VMPPRow) map[string]domain.PricedItem {
	items := make(map[string]domain.PricedItem, len(rows))
	for _, r := range rows {
		items[r.ID] = domain.PricedItem{
			VMPP:     r.ID,
			Name:     r.Name,
			BNFCode:  r.BNFCode,
			PackSize: r.QtyVal,
		}
	}
	return items
}

func MapStorePrescribingRowsToDomain(rows []store.PrescribingRow) []domain.PrescribingObservation {
	obs := make([]domain.PrescribingObservation, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, domain.PrescribingObservation{
			BNFCode:    r.BNFCode,
			BNFName:    r.BNFName,
			Month:      domain.MonthOf(r.Month),
			Quantity:   r.Quantity,
			NetCost:    r.NetCost,
			ActualCost: r.ActualCost,
		})
	}
	return obs
}

func MapStoreItemsRowsToDomain(rows []store.ItemsRow) []domain.MonthlyItems {
	items := make([]domain.MonthlyItems, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.MonthlyItems{Month: domain.MonthOf(r.Month), Items: r.Items})
	}
	return items
}
