package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-basket/models"
)

func TestQuantileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 2, 3, 100}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 2},
		{1, 100},
		{0.01, 1.04},
		{0.99, 96.12},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, quantileSorted(sorted, tt.q), 1e-9, "q=%v", tt.q)
	}
}

func TestOutlierThresholdsUsePercentiles(t *testing.T) {
	low, high, err := OutlierThresholds([]float64{1, 2, 2, 3, 100})
	require.NoError(t, err)

	// Q1 = 1.04, Q3 = 96.12, IQR = 95.08
	assert.InDelta(t, 1.04-1.5*95.08, low, 1e-9)
	assert.InDelta(t, 96.12+1.5*95.08, high, 1e-9)
}

func TestReplaceWithThresholdsKeepsInRangeValues(t *testing.T) {
	in := []float64{100, 2, 1, 3, 2}
	out, low, high, err := ReplaceWithThresholds(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.InDelta(t, 1.04-1.5*95.08, low, 1e-9)
	assert.InDelta(t, 96.12+1.5*95.08, high, 1e-9)
	assert.Equal(t, []float64{100, 2, 1, 3, 2}, in, "input is not sorted in place")
}

func TestReplaceWithThresholdsClipsBothEnds(t *testing.T) {
	var in []float64
	for i := 0; i < 100; i++ {
		in = append(in, float64(i))
	}
	in = append(in, 10000, -10000)

	low, high, err := OutlierThresholds(in)
	require.NoError(t, err)

	out, gotLow, gotHigh, err := ReplaceWithThresholds(in)
	require.NoError(t, err)
	assert.Equal(t, low, gotLow)
	assert.Equal(t, high, gotHigh)

	assert.InDelta(t, high, out[100], 1e-9)
	assert.InDelta(t, low, out[101], 1e-9)
	for i := 0; i < 100; i++ {
		assert.Equal(t, float64(i), out[i])
	}
	assert.Equal(t, 10000.0, in[100], "input is left untouched")
}

func TestOutlierThresholdsEmptyColumn(t *testing.T) {
	_, _, err := OutlierThresholds(nil)
	assert.ErrorIs(t, err, ErrEmptyColumn)

	_, _, _, err = ReplaceWithThresholds([]float64{})
	assert.ErrorIs(t, err, ErrEmptyColumn)
}

func TestClipColumn(t *testing.T) {
	tx := make([]*models.Transaction, 0, 101)
	for i := 0; i < 100; i++ {
		tx = append(tx, &models.Transaction{Invoice: "I", Quantity: 1, Price: float64(i + 1)})
	}
	tx = append(tx, &models.Transaction{Invoice: "I", Quantity: 1, Price: 1e6})

	out, low, high, err := ClipColumn(tx, ColumnPrice)
	require.NoError(t, err)
	require.Len(t, out, len(tx))

	assert.Less(t, low, 1.0)
	assert.InDelta(t, high, out[100].Price, 1e-9)
	assert.Equal(t, 1e6, tx[100].Price)
	assert.NotSame(t, tx[0], out[0])
	assert.Equal(t, 1.0, out[0].Quantity)

	_, _, _, err = ClipColumn(nil, ColumnQuantity)
	assert.ErrorIs(t, err, ErrEmptyColumn)

	_, _, _, err = ClipColumn(tx, Column("Discount"))
	assert.Error(t, err)
}
