package services

import (
	"fmt"
	"sort"
	"strings"

	"retail-basket/models"
)

// ProductKey selects which transaction field identifies a product.
type ProductKey int

const (
	KeyStockCode ProductKey = iota
	KeyDescription
)

// ParseProductKey maps the PRODUCT_KEY setting onto a ProductKey.
func ParseProductKey(s string) (ProductKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stockcode":
		return KeyStockCode, nil
	case "description":
		return KeyDescription, nil
	default:
		return 0, fmt.Errorf("unknown product key %q", s)
	}
}

func (k ProductKey) String() string {
	if k == KeyDescription {
		return "description"
	}
	return "stockcode"
}

func (k ProductKey) of(t *models.Transaction) string {
	if k == KeyDescription {
		return t.Description
	}
	return t.StockCode
}

// BuildPresenceMatrix groups tx by (invoice, product), sums quantities and
// thresholds every cell to 1 when the sum is positive, 0 otherwise. Every
// product seen in tx becomes a column, even if no invoice nets above zero.
func BuildPresenceMatrix(tx []*models.Transaction, key ProductKey) *models.PresenceMatrix {
	sums := make(map[string]map[string]float64)
	productSet := make(map[string]struct{})

	for _, t := range tx {
		product := key.of(t)
		row, ok := sums[t.Invoice]
		if !ok {
			row = make(map[string]float64)
			sums[t.Invoice] = row
		}
		row[product] += t.Quantity
		productSet[product] = struct{}{}
	}

	invoices := make([]string, 0, len(sums))
	present := make(map[string]map[string]bool, len(sums))
	for inv, row := range sums {
		invoices = append(invoices, inv)
		cells := make(map[string]bool, len(row))
		for product, qty := range row {
			if qty > 0 {
				cells[product] = true
			}
		}
		present[inv] = cells
	}
	sort.Strings(invoices)

	products := make([]string, 0, len(productSet))
	for p := range productSet {
		products = append(products, p)
	}
	sort.Strings(products)

	return models.NewPresenceMatrix(invoices, products, present)
}
