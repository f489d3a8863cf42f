package models

import "time"

// RawTransaction holds one unprocessed row of the retail workbook.
// Every field is kept as the text found in the source; parsing happens in the cleaner.
type RawTransaction struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    string
	InvoiceDate string
	Price       string
	CustomerID  string
	Country     string
}

// Transaction is a cleaned, validated line item.
// Quantity and Price are always > 0 and Invoice is never a cancellation.
type Transaction struct {
	ID          int64     `db:"id"`
	Invoice     string    `db:"invoice"`
	StockCode   string    `db:"stock_code"`
	Description string    `db:"description"`
	Quantity    float64   `db:"quantity"`
	InvoiceDate time.Time `db:"invoice_date"`
	Price       float64   `db:"price"`
	CustomerID  string    `db:"customer_id"`
	Country     string    `db:"country"`
}

// PresenceMatrix is the binary invoice x product relation fed to the miner.
// A cell is 1 iff the product's summed quantity on that invoice is > 0.
// Invoices and products are kept in sorted order.
type PresenceMatrix struct {
	invoices []string
	products []string
	cells    map[string]map[string]bool
}

// NewPresenceMatrix builds a matrix from sorted row/column labels and the set of present cells.
func NewPresenceMatrix(invoices, products []string, present map[string]map[string]bool) *PresenceMatrix {
	if present == nil {
		present = make(map[string]map[string]bool)
	}
	return &PresenceMatrix{invoices: invoices, products: products, cells: present}
}

// Invoices returns the row labels.
func (m *PresenceMatrix) Invoices() []string { return m.invoices }

// Products returns the column labels.
func (m *PresenceMatrix) Products() []string { return m.products }

// Get returns the cell value; unknown rows or columns read as 0.
func (m *PresenceMatrix) Get(invoice, product string) int {
	if m.cells[invoice][product] {
		return 1
	}
	return 0
}

// Baskets returns, per invoice row, the products whose cell is 1, in column order.
func (m *PresenceMatrix) Baskets() [][]string {
	out := make([][]string, 0, len(m.invoices))
	for _, inv := range m.invoices {
		row := m.cells[inv]
		basket := make([]string, 0, len(row))
		for _, p := range m.products {
			if row[p] {
				basket = append(basket, p)
			}
		}
		out = append(out, basket)
	}
	return out
}
