package domain

// BillItem is one line item extracted from a billing document by the external
// table extraction step.
type BillItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// BillVerdict is the eligibility decision for one line item.
type BillVerdict struct {
	Item     BillItem `json:"item"`
	Eligible bool     `json:"eligible"`
	Cached   bool     `json:"cached"`
}

// BillReport aggregates per-item verdicts and the eligible total.
type BillReport struct {
	Items         []BillVerdict `json:"items"`
	TotalEligible float64       `json:"total_eligible"`
}
