package mining

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"retail-basket/models"
)

var (
	// ErrInvalidSupport is returned when the minimum support is outside (0, 1].
	ErrInvalidSupport = errors.New("min support must be in (0, 1]")
	// ErrEmptyMatrix is returned when there are no invoices to mine.
	ErrEmptyMatrix = errors.New("presence matrix has no invoices")
)

// Options controls frequent itemset generation.
type Options struct {
	// MinSupport is the minimum fraction of invoices an itemset must appear in.
	MinSupport float64
	// MaxLen caps the itemset size; 0 means unlimited.
	MaxLen int
}

// candidate is an itemset over column indices together with the invoices
// containing all of its items.
type candidate struct {
	items    []int
	invoices *bitset.BitSet
}

// Apriori returns every itemset whose support reaches opts.MinSupport.
// Itemsets come out grouped by length, each group in lexicographic item order,
// and the items inside an itemset are sorted.
func Apriori(m *models.PresenceMatrix, opts Options) ([]models.Itemset, error) {
	if opts.MinSupport <= 0 || opts.MinSupport > 1 {
		return nil, fmt.Errorf("apriori: %v: %w", opts.MinSupport, ErrInvalidSupport)
	}
	invoices := m.Invoices()
	if len(invoices) == 0 {
		return nil, fmt.Errorf("apriori: %w", ErrEmptyMatrix)
	}

	products := m.Products()
	n := uint(len(invoices))
	columns := make([]*bitset.BitSet, len(products))
	for i := range columns {
		columns[i] = bitset.New(n)
	}
	colOf := make(map[string]int, len(products))
	for i, p := range products {
		colOf[p] = i
	}
	for row, basket := range m.Baskets() {
		for _, p := range basket {
			columns[colOf[p]].Set(uint(row))
		}
	}

	support := func(b *bitset.BitSet) float64 {
		return float64(b.Count()) / float64(n)
	}

	var out []models.Itemset
	emit := func(level []candidate) {
		for _, c := range level {
			items := make([]string, len(c.items))
			for i, idx := range c.items {
				items[i] = products[idx]
			}
			out = append(out, models.Itemset{Items: items, Support: support(c.invoices)})
		}
	}

	var level []candidate
	for col, b := range columns {
		if support(b) >= opts.MinSupport {
			level = append(level, candidate{items: []int{col}, invoices: b})
		}
	}
	emit(level)

	for k := 2; len(level) > 1 && (opts.MaxLen == 0 || k <= opts.MaxLen); k++ {
		known := make(map[string]struct{}, len(level))
		for _, c := range level {
			known[indexKey(c.items)] = struct{}{}
		}

		var next []candidate
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				a, b := level[i], level[j]
				if !samePrefix(a.items, b.items) {
					// level is lexicographic, so no later j shares a's prefix either.
					break
				}
				items := make([]int, k)
				copy(items, a.items)
				items[k-1] = b.items[k-2]
				if !allSubsetsKnown(items, known) {
					continue
				}
				inv := a.invoices.Intersection(columns[items[k-1]])
				if support(inv) >= opts.MinSupport {
					next = append(next, candidate{items: items, invoices: inv})
				}
			}
		}
		emit(next)
		level = next
	}

	return out, nil
}

// samePrefix reports whether a and b agree on all but their last item.
func samePrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// allSubsetsKnown checks the Apriori property: every subset one item smaller
// must itself be frequent.
func allSubsetsKnown(items []int, known map[string]struct{}) bool {
	sub := make([]int, 0, len(items)-1)
	for skip := range items {
		sub = sub[:0]
		for i, v := range items {
			if i != skip {
				sub = append(sub, v)
			}
		}
		if _, ok := known[indexKey(sub)]; !ok {
			return false
		}
	}
	return true
}

func indexKey(items []int) string {
	var sb strings.Builder
	for i, v := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}
