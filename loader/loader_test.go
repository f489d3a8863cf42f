package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retail-basket/config"
	"retail-basket/utils"
)

const sampleCSV = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
536370,22728,ALARM CLOCK BAKELIKE PINK,24,2010-12-01 08:45:00,3.75,12583,France
C536379,D,Discount,-1,2010-12-01 09:41:00,27.5,14527,United Kingdom
536370,22727,ALARM CLOCK BAKELIKE RED ,24,2010-12-01 08:45:00,3.75,12583,France
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "536370", rows[0].Invoice)
	assert.Equal(t, "22728", rows[0].StockCode)
	assert.Equal(t, "12583", rows[0].CustomerID)
	assert.Equal(t, "France", rows[0].Country)
	assert.Equal(t, "C536379", rows[1].Invoice)
	assert.Equal(t, "ALARM CLOCK BAKELIKE RED", rows[2].Description, "fields are trimmed")
}

func TestReadCSVAcceptsLegacyHeaders(t *testing.T) {
	in := "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
		"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850,United Kingdom\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "536365", rows[0].Invoice)
	assert.Equal(t, "2.55", rows[0].Price)
}

func TestReadCSVMissingColumn(t *testing.T) {
	in := "Invoice,StockCode,Description,Quantity,InvoiceDate,Customer ID,Country\n"

	_, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "price")
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadCSVShortRow(t *testing.T) {
	in := "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country\n" +
		"536365,85123A,HOLDER,6\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Country)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	l := New(&config.Config{DatasetPath: path}, utils.NewNopLogger())
	rows, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.xlsx")
	sheet := "Year 2010-2011"

	f := excelize.NewFile()
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{
		"Invoice", "StockCode", "Description", "Quantity", "InvoiceDate", "Price", "Customer ID", "Country",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{
		"536370", "22728", "ALARM CLOCK BAKELIKE PINK", 24, "2010-12-01 08:45:00", 3.75, 12583, "France",
	}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := New(&config.Config{DatasetPath: path, SheetName: sheet}, utils.NewNopLogger())
	rows, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "22728", rows[0].StockCode)
	assert.Equal(t, "24", rows[0].Quantity)
	assert.Equal(t, "3.75", rows[0].Price)
	assert.Equal(t, "France", rows[0].Country)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := New(&config.Config{DatasetPath: "retail.parquet"}, utils.NewNopLogger())
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExcelSerialToText(t *testing.T) {
	assert.Equal(t, "2010-12-01T00:00:00Z", excelSerialToText("40513"))
	assert.Equal(t, "12/1/2010 8:26", excelSerialToText("12/1/2010 8:26"))
}
