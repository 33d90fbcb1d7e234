package domain

// Pence is an amount in minor currency units as published in the Drug Tariff.
type Pence float64

// Pounds converts to major currency units. This is the only place the
// division by 100 happens.
func (p Pence) Pounds() float64 {
	return float64(p) / 100
}

// PricedItem is a prescribable pack (VMPP) and its classification.
type PricedItem struct {
	VMPP     string
	Name     string
	BNFCode  string
	PackSize float64 // qtyval: units per pack
}

// TariffPrice is the standard Drug Tariff price of a pack in a month.
type TariffPrice struct {
	VMPP  string
	Month Month
	Price Pence
}

// ConcessionPrice is the temporarily agreed price of a pack in a month.
type ConcessionPrice struct {
	VMPP  string
	Month Month
	Drug  string
	Price Pence
}

// ConcessionPack is the pack chosen to represent a BNF code in a month when
// several pack sizes of the same presentation are under concession.
type ConcessionPack struct {
	Month           Month
	BNFCode         string
	VMPP            string
	Name            string
	ConcessionPrice Pence
	TariffPrice     Pence
	PackSize        float64
	Divisor         float64
}

// UnitUplift is the additional cost per dispensed unit caused by the
// concession. Pack-counted codes have a divisor of one, so the whole pack
// delta counts.
func (p ConcessionPack) UnitUplift() Pence {
	divisor := p.Divisor
	if divisor <= 0 {
		divisor = 1
	}
	return (p.ConcessionPrice - p.TariffPrice) / Pence(divisor)
}

// PrescribingObservation is dispensing for a BNF code in a month. Costs are in pounds.
type PrescribingObservation struct {
	BNFCode    string
	BNFName    string
	Month      Month
	Quantity   float64
	NetCost    float64
	ActualCost float64
}

// MonthlyItems is the number of prescription items dispensed in a month.
type MonthlyItems struct {
	Month Month
	Items float64
}
