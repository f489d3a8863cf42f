package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-basket/models"
)

func TestBuildPresenceMatrixNetQuantity(t *testing.T) {
	tx := []*models.Transaction{
		{Invoice: "I1", StockCode: "P1", Description: "PAINT SET", Quantity: 3},
		{Invoice: "I1", StockCode: "P2", Description: "ALARM CLOCK", Quantity: 2},
		{Invoice: "I1", StockCode: "P2", Description: "ALARM CLOCK", Quantity: -2},
	}

	m := BuildPresenceMatrix(tx, KeyStockCode)
	assert.Equal(t, []string{"I1"}, m.Invoices())
	assert.Equal(t, []string{"P1", "P2"}, m.Products())
	assert.Equal(t, 1, m.Get("I1", "P1"))
	assert.Equal(t, 0, m.Get("I1", "P2"))
	assert.Equal(t, [][]string{{"P1"}}, m.Baskets())
}

func TestBuildPresenceMatrixFillsAbsentCells(t *testing.T) {
	tx := []*models.Transaction{
		{Invoice: "I2", StockCode: "P2", Description: "B", Quantity: 1},
		{Invoice: "I1", StockCode: "P1", Description: "A", Quantity: 5},
		{Invoice: "I1", StockCode: "P1", Description: "A", Quantity: 7},
		{Invoice: "I2", StockCode: "P3", Description: "C", Quantity: 1},
	}

	m := BuildPresenceMatrix(tx, KeyStockCode)
	require.Equal(t, []string{"I1", "I2"}, m.Invoices())
	require.Equal(t, []string{"P1", "P2", "P3"}, m.Products())

	want := map[string][]int{
		"I1": {1, 0, 0},
		"I2": {0, 1, 1},
	}
	for inv, row := range want {
		for i, p := range m.Products() {
			assert.Equal(t, row[i], m.Get(inv, p), "%s/%s", inv, p)
		}
	}
	assert.Equal(t, 0, m.Get("I9", "P1"), "unknown invoice reads as 0")
}

func TestBuildPresenceMatrixByDescription(t *testing.T) {
	tx := []*models.Transaction{
		{Invoice: "I1", StockCode: "22728", Description: "ALARM CLOCK BAKELIKE PINK", Quantity: 1},
		{Invoice: "I1", StockCode: "22727", Description: "ALARM CLOCK BAKELIKE RED", Quantity: 1},
	}

	m := BuildPresenceMatrix(tx, KeyDescription)
	assert.Equal(t, []string{"ALARM CLOCK BAKELIKE PINK", "ALARM CLOCK BAKELIKE RED"}, m.Products())
}

func TestBuildPresenceMatrixEmpty(t *testing.T) {
	m := BuildPresenceMatrix(nil, KeyStockCode)
	assert.Empty(t, m.Invoices())
	assert.Empty(t, m.Products())
	assert.Empty(t, m.Baskets())
}

func TestParseProductKey(t *testing.T) {
	k, err := ParseProductKey("StockCode")
	require.NoError(t, err)
	assert.Equal(t, KeyStockCode, k)

	k, err = ParseProductKey("description")
	require.NoError(t, err)
	assert.Equal(t, KeyDescription, k)
	assert.Equal(t, "description", k.String())

	for _, bad := range []string{"sku", "id", "name", ""} {
		_, err = ParseProductKey(bad)
		assert.Error(t, err, "%q", bad)
	}
}
