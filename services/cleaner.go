package services

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"retail-basket/models"
	"retail-basket/utils"
)

// dateLayouts are the InvoiceDate spellings seen across dataset exports.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"01/02/2006 15:04",
}

// CleanStats counts the rows dropped by each cleaning rule.
type CleanStats struct {
	Input        int
	Incomplete   int
	Unparseable  int
	Cancelled    int
	NonPositive  int
	Kept         int
	QuantityLow  float64
	QuantityHigh float64
	PriceLow     float64
	PriceHigh    float64
}

// Cleaner transforms RawTransactions into clean, validated Transactions.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops incomplete rows, cancellations and non-positive quantities or
// prices, then clips Quantity and Price outliers. The returned records are new.
func (c *Cleaner) Clean(raw []*models.RawTransaction) ([]*models.Transaction, CleanStats, error) {
	stats := CleanStats{Input: len(raw)}
	kept := make([]*models.Transaction, 0, len(raw))

	for _, r := range raw {
		if incomplete(r) {
			stats.Incomplete++
			continue
		}

		tx, ok := c.parse(r)
		if !ok {
			stats.Unparseable++
			continue
		}

		if isCancellation(tx.Invoice) {
			stats.Cancelled++
			continue
		}

		if tx.Quantity <= 0 || tx.Price <= 0 {
			stats.NonPositive++
			continue
		}

		kept = append(kept, tx)
	}

	if len(kept) == 0 {
		c.logger.Warn("[cleaner] No rows survived cleaning (input %d)", len(raw))
		return kept, stats, nil
	}

	var err error
	if kept, stats.QuantityLow, stats.QuantityHigh, err = ClipColumn(kept, ColumnQuantity); err != nil {
		return nil, stats, err
	}
	if kept, stats.PriceLow, stats.PriceHigh, err = ClipColumn(kept, ColumnPrice); err != nil {
		return nil, stats, err
	}
	stats.Kept = len(kept)

	c.logger.Info("[cleaner] Cleaned %d -> %d rows (incomplete %d, unparseable %d, cancelled %d, non-positive %d)",
		stats.Input, stats.Kept, stats.Incomplete, stats.Unparseable, stats.Cancelled, stats.NonPositive)
	c.logger.Debug("[cleaner] Quantity bounds [%.3f, %.3f], price bounds [%.3f, %.3f]",
		stats.QuantityLow, stats.QuantityHigh, stats.PriceLow, stats.PriceHigh)
	return kept, stats, nil
}

func (c *Cleaner) parse(r *models.RawTransaction) (*models.Transaction, bool) {
	qty, err := strconv.ParseFloat(r.Quantity, 64)
	if err != nil {
		c.logger.Debug("[cleaner] Bad quantity %q on invoice %s", r.Quantity, r.Invoice)
		return nil, false
	}
	price, err := strconv.ParseFloat(r.Price, 64)
	if err != nil {
		c.logger.Debug("[cleaner] Bad price %q on invoice %s", r.Price, r.Invoice)
		return nil, false
	}
	date, ok := parseDate(r.InvoiceDate)
	if !ok {
		c.logger.Debug("[cleaner] Bad invoice date %q on invoice %s", r.InvoiceDate, r.Invoice)
		return nil, false
	}

	return &models.Transaction{
		Invoice:     r.Invoice,
		StockCode:   r.StockCode,
		Description: normaliseText(r.Description),
		Quantity:    qty,
		InvoiceDate: date,
		Price:       price,
		CustomerID:  normaliseCustomerID(r.CustomerID),
		Country:     normaliseText(r.Country),
	}, true
}

// FilterCountry keeps transactions from country. An empty country keeps everything.
func FilterCountry(tx []*models.Transaction, country string) []*models.Transaction {
	if country == "" {
		return tx
	}
	out := make([]*models.Transaction, 0, len(tx))
	for _, t := range tx {
		if t.Country == country {
			out = append(out, t)
		}
	}
	return out
}

// LookupDescription returns the description of the first transaction carrying stockCode.
func LookupDescription(tx []*models.Transaction, stockCode string) (string, bool) {
	for _, t := range tx {
		if t.StockCode == stockCode {
			return t.Description, true
		}
	}
	return "", false
}

func incomplete(r *models.RawTransaction) bool {
	for _, f := range []string{
		r.Invoice, r.StockCode, r.Description, r.Quantity,
		r.InvoiceDate, r.Price, r.CustomerID, r.Country,
	} {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

// isCancellation matches invoices carrying the "C" cancellation marker.
func isCancellation(invoice string) bool {
	return strings.Contains(invoice, "C")
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normaliseCustomerID strips the ".0" spreadsheets add to integer ids.
func normaliseCustomerID(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
