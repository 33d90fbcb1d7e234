package store

import "time"

// Rows as returned by the warehouse after column coercion. Prices are in
// pence, prescribing costs in pounds.

type ConcessionRow struct {
	VMPP       string
	Month      time.Time
	Drug       string
	PricePence float64
}

type TariffRow struct {
	VMPP       string
	Month      time.Time
	PricePence float64
}

type VMPPRow struct {
	ID      string
	Name    string
	BNFCode string
	QtyVal  float64
}

type PrescribingRow struct {
	Month      time.Time
	BNFCode    string
	BNFName    string
	Quantity   float64
	NetCost    float64
	ActualCost float64
}

type ItemsRow struct {
	Month time.Time
	Items float64
}

// Dataset is the complete set of base tables one pipeline run consumes.
type Dataset struct {
	Concessions  []ConcessionRow
	Tariff       []TariffRow
	VMPP         []VMPPRow
	Prescribing  []PrescribingRow
	MonthlyItems []ItemsRow
}
