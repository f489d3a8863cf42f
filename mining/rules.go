package mining

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"retail-basket/models"
)

var (
	// ErrUnknownMetric is returned for a rule metric name that is not supported.
	ErrUnknownMetric = errors.New("unknown rule metric")
	// ErrNoItemsets is returned when rules are requested from an empty itemset list.
	ErrNoItemsets = errors.New("no frequent itemsets")
)

// Metric names a rule measure usable for thresholding and sorting.
type Metric string

const (
	MetricSupport    Metric = "support"
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricLeverage   Metric = "leverage"
	MetricConviction Metric = "conviction"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricSupport, MetricConfidence, MetricLift, MetricLeverage, MetricConviction:
		return m, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownMetric)
}

// Value returns the rule's value for m.
func (m Metric) Value(r models.Rule) float64 {
	switch m {
	case MetricConfidence:
		return r.Confidence
	case MetricLift:
		return r.Lift
	case MetricLeverage:
		return r.Leverage
	case MetricConviction:
		return r.Conviction
	default:
		return r.Support
	}
}

// AssociationRules derives every rule antecedent -> consequent from the
// frequent itemsets and keeps those whose metric is at least minThreshold.
//
// For each itemset of two or more items, antecedents are visited from the
// largest proper subset down to single items, each size in lexicographic
// combination order; the consequent is the remainder.
func AssociationRules(itemsets []models.Itemset, metric Metric, minThreshold float64) ([]models.Rule, error) {
	if len(itemsets) == 0 {
		return nil, fmt.Errorf("association rules: %w", ErrNoItemsets)
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, fmt.Errorf("association rules: %w", err)
	}

	supportOf := make(map[string]float64, len(itemsets))
	for _, s := range itemsets {
		supportOf[itemKey(s.Items)] = s.Support
	}

	var rules []models.Rule
	for _, s := range itemsets {
		k := len(s.Items)
		if k < 2 {
			continue
		}
		for size := k - 1; size >= 1; size-- {
			for _, comb := range combinations(k, size) {
				ante, cons := split(s.Items, comb)
				sA, okA := supportOf[itemKey(ante)]
				sC, okC := supportOf[itemKey(cons)]
				if !okA || !okC {
					return nil, fmt.Errorf("association rules: subset support missing for %v: itemsets are not downward closed", s.Items)
				}
				r := newRule(ante, cons, sA, sC, s.Support)
				if metric.Value(r) >= minThreshold {
					rules = append(rules, r)
				}
			}
		}
	}
	return rules, nil
}

func newRule(ante, cons []string, sA, sC, s float64) models.Rule {
	confidence := s / sA
	conviction := math.Inf(1)
	if confidence < 1 {
		conviction = (1 - sC) / (1 - confidence)
	}
	return models.Rule{
		Antecedents:       ante,
		Consequents:       cons,
		AntecedentSupport: sA,
		ConsequentSupport: sC,
		Support:           s,
		Confidence:        confidence,
		Lift:              confidence / sC,
		Leverage:          s - sA*sC,
		Conviction:        conviction,
	}
}

// RuleFilter keeps rules strictly above every bound.
type RuleFilter struct {
	MinSupport    float64
	MinConfidence float64
	MinLift       float64
}

// StrongRules is the screen used when exploring the retail rules by hand.
var StrongRules = RuleFilter{MinSupport: 0.05, MinConfidence: 0.1, MinLift: 5}

// FilterRules returns the rules passing f, in input order.
func FilterRules(rules []models.Rule, f RuleFilter) []models.Rule {
	out := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Support > f.MinSupport && r.Confidence > f.MinConfidence && r.Lift > f.MinLift {
			out = append(out, r)
		}
	}
	return out
}

// SortBy returns a copy of rules ordered by metric, highest first. Equal
// values keep their input order.
func SortBy(rules []models.Rule, metric Metric) []models.Rule {
	out := make([]models.Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return metric.Value(out[i]) > metric.Value(out[j])
	})
	return out
}

// combinations returns the size-r index combinations of 0..n-1 in lexicographic order.
func combinations(n, r int) [][]int {
	var out [][]int
	comb := make([]int, r)
	for i := range comb {
		comb[i] = i
	}
	for {
		cp := make([]int, r)
		copy(cp, comb)
		out = append(out, cp)

		i := r - 1
		for i >= 0 && comb[i] == n-r+i {
			i--
		}
		if i < 0 {
			return out
		}
		comb[i]++
		for j := i + 1; j < r; j++ {
			comb[j] = comb[j-1] + 1
		}
	}
}

// split partitions items into the positions named by comb and the rest.
func split(items []string, comb []int) (in, rest []string) {
	pick := make(map[int]bool, len(comb))
	for _, c := range comb {
		pick[c] = true
	}
	for i, it := range items {
		if pick[i] {
			in = append(in, it)
		} else {
			rest = append(rest, it)
		}
	}
	return in, rest
}

// itemKey joins sorted items with a separator that cannot occur in a product key.
func itemKey(items []string) string {
	return strings.Join(items, "\x00")
}
