package models

// Itemset is a set of product identifiers with its support.
// Items are sorted, so Items[0] is the set's first element.
type Itemset struct {
	Items   []string
	Support float64
}

// Len returns the number of items.
func (s Itemset) Len() int { return len(s.Items) }

// Rule is an association rule antecedent -> consequent with its metrics.
// Antecedents and Consequents are disjoint, non-empty and sorted.
type Rule struct {
	Antecedents       []string
	Consequents       []string
	AntecedentSupport float64
	ConsequentSupport float64
	Support           float64
	Confidence        float64
	Lift              float64
	Leverage          float64
	Conviction        float64
}

// HasAntecedent reports whether product is a member of the rule's antecedent set.
func (r Rule) HasAntecedent(product string) bool {
	for _, a := range r.Antecedents {
		if a == product {
			return true
		}
	}
	return false
}

// Recommendation is the lookup result for one target product.
type Recommendation struct {
	Product     string
	Description string
	Items       []string
	// Descriptions is parallel to Items.
	Descriptions []string
}

// InsightReport holds the computed analytics over one mining run.
type InsightReport struct {
	RunID             string
	Country           string
	TotalTransactions int
	TotalInvoices     int
	DistinctProducts  int
	ItemsetsByLength  map[int]int
	TotalRules        int
	TopRules          []Rule
	StrongRules       []Rule
	Recommendations   []Recommendation
}
