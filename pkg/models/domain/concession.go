package domain

// ConcessionFlag records whether a concession was in effect for an item in a month.
type ConcessionFlag struct {
	VMPP   string
	Month  Month
	Active bool
}

// ConcessionRun is a maximal block of consecutive concession months for an item.
type ConcessionRun struct {
	VMPP   string `json:"vmpp"`
	Start  Month  `json:"start"`
	End    Month  `json:"end"`
	Length int    `json:"length"`

	// LeftCensored and RightCensored mark runs touching the first or last
	// observed month; their true extent is unknown.
	LeftCensored  bool `json:"left_censored"`
	RightCensored bool `json:"right_censored"`
}

// RunPriceChange compares the rolling tariff price before and after a run.
type RunPriceChange struct {
	Run       ConcessionRun `json:"run"`
	PrePrice  *Pence        `json:"pre_price"`
	PostPrice *Pence        `json:"post_price"`
	// Change is post/pre - 1, nil when either reference price is missing.
	Change *float64 `json:"change"`
}

// RunImpact is the forecast cost change in the month after a run ends, once
// the tariff settles at its post-run reference price.
type RunImpact struct {
	Run         ConcessionRun `json:"run"`
	BNFCode     string        `json:"bnf_code"`
	Target      Month         `json:"target"`
	Methodology string        `json:"methodology"`
	Impact      float64       `json:"impact"`
}
