package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"retail-basket/config"
	"retail-basket/models"
	"retail-basket/utils"
)

// ErrMissingColumn is returned when the source header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ErrUnsupportedFormat is returned for dataset files that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

const (
	colInvoice     = "invoice"
	colStockCode   = "stockcode"
	colDescription = "description"
	colQuantity    = "quantity"
	colInvoiceDate = "invoicedate"
	colPrice       = "price"
	colCustomerID  = "customerid"
	colCountry     = "country"
)

var requiredColumns = []string{
	colInvoice, colStockCode, colDescription, colQuantity,
	colInvoiceDate, colPrice, colCustomerID, colCountry,
}

// aliases maps older dataset header spellings onto the canonical names.
var aliases = map[string]string{
	"invoiceno": colInvoice,
	"unitprice": colPrice,
}

// Loader reads the retail workbook into raw transaction rows.
type Loader struct {
	cfg    *config.Config
	logger *utils.Logger
}

// New creates a Loader for cfg.DatasetPath.
func New(cfg *config.Config, logger *utils.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// Load dispatches on the file extension and returns every data row.
func (l *Loader) Load(ctx context.Context) ([]*models.RawTransaction, error) {
	path := l.cfg.DatasetPath
	start := time.Now()

	var (
		rows []*models.RawTransaction
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		l.logger.Info("[loader] Reading workbook %s (sheet %q)", path, l.cfg.SheetName)
		rows, err = l.readXLSX(ctx, path, l.cfg.SheetName)
	case ".csv":
		l.logger.Info("[loader] Reading CSV %s", path)
		rows, err = l.readCSVFile(ctx, path)
	default:
		return nil, fmt.Errorf("loader: %q: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Info("[loader] Loaded %d raw rows in %v", len(rows), time.Since(start).Round(time.Millisecond))
	return rows, nil
}

func (l *Loader) readCSVFile(ctx context.Context, path string) ([]*models.RawTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV parses a header-led CSV stream of retail rows.
func ReadCSV(ctx context.Context, r io.Reader) ([]*models.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("loader: empty csv: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("loader: read header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []*models.RawTransaction
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: csv line %d: %w", line, err)
		}
		out = append(out, rowToRaw(record, index))
	}
	return out, nil
}

func (l *Loader) readXLSX(ctx context.Context, path, sheet string) ([]*models.RawTransaction, error) {
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("loader: open workbook %q: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("loader: sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var (
		index map[string]int
		out   []*models.RawTransaction
	)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("loader: read row: %w", err)
		}
		if index == nil {
			if index, err = columnIndex(cols); err != nil {
				return nil, err
			}
			continue
		}
		raw := rowToRaw(cols, index)
		raw.InvoiceDate = excelSerialToText(raw.InvoiceDate)
		out = append(out, raw)
	}
	if index == nil {
		return nil, fmt.Errorf("loader: sheet %q has no header: %w", sheet, ErrMissingColumn)
	}
	return out, rows.Error()
}

// excelSerialToText converts a raw Excel date serial into RFC3339 text.
// Non-numeric values are returned unchanged.
func excelSerialToText(v string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format(time.RFC3339)
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normaliseHeader(h)
		if canonical, ok := aliases[key]; ok {
			key = canonical
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("loader: %s: %w", col, ErrMissingColumn)
		}
	}
	return index, nil
}

// normaliseHeader lowercases and strips spaces, so "Customer ID" matches "CustomerID".
func normaliseHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
}

func rowToRaw(record []string, index map[string]int) *models.RawTransaction {
	get := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return &models.RawTransaction{
		Invoice:     get(colInvoice),
		StockCode:   get(colStockCode),
		Description: get(colDescription),
		Quantity:    get(colQuantity),
		InvoiceDate: get(colInvoiceDate),
		Price:       get(colPrice),
		CustomerID:  get(colCustomerID),
		Country:     get(colCountry),
	}
}
