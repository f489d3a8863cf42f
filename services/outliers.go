package services

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"retail-basket/models"
)

// ErrEmptyColumn is returned when thresholds are requested for a column with no data.
var ErrEmptyColumn = errors.New("column has no data")

// The retail data is heavy tailed, so bounds are built from the 1st and 99th
// percentiles instead of the quartiles.
const (
	lowerQuantile = 0.01
	upperQuantile = 0.99
	iqrFactor     = 1.5
)

// Column names a numeric transaction field that can be clipped.
type Column string

const (
	ColumnQuantity Column = "Quantity"
	ColumnPrice    Column = "Price"
)

// quantileSorted returns the q-th quantile of sorted using linear
// interpolation between closest ranks.
func quantileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	frac := pos - lo
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*frac
}

// OutlierThresholds returns the low and high clipping bounds of values:
// Q1 - 1.5*IQR and Q3 + 1.5*IQR with Q1, Q3 the 1st and 99th percentiles.
func OutlierThresholds(values []float64) (low, high float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrEmptyColumn
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := quantileSorted(sorted, lowerQuantile)
	q3 := quantileSorted(sorted, upperQuantile)
	iqr := q3 - q1
	return q1 - iqrFactor*iqr, q3 + iqrFactor*iqr, nil
}

// ReplaceWithThresholds returns a copy of values with everything below the low
// bound raised to it and everything above the high bound lowered to it,
// together with the bounds.
func ReplaceWithThresholds(values []float64) (out []float64, low, high float64, err error) {
	low, high, err = OutlierThresholds(values)
	if err != nil {
		return nil, 0, 0, err
	}
	out = make([]float64, len(values))
	for i, v := range values {
		out[i] = clamp(v, low, high)
	}
	return out, low, high, nil
}

// ClipColumn clips one numeric column of tx and returns new records together
// with the bounds that were applied. tx itself is left untouched.
func ClipColumn(tx []*models.Transaction, col Column) ([]*models.Transaction, float64, float64, error) {
	get, set, err := accessors(col)
	if err != nil {
		return nil, 0, 0, err
	}

	values := make([]float64, len(tx))
	for i, t := range tx {
		values[i] = get(t)
	}

	clipped, low, high, err := ReplaceWithThresholds(values)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("clip %s: %w", col, err)
	}

	out := make([]*models.Transaction, len(tx))
	for i, t := range tx {
		cp := *t
		set(&cp, clipped[i])
		out[i] = &cp
	}
	return out, low, high, nil
}

func accessors(col Column) (func(*models.Transaction) float64, func(*models.Transaction, float64), error) {
	switch col {
	case ColumnQuantity:
		return func(t *models.Transaction) float64 { return t.Quantity },
			func(t *models.Transaction, v float64) { t.Quantity = v }, nil
	case ColumnPrice:
		return func(t *models.Transaction) float64 { return t.Price },
			func(t *models.Transaction, v float64) { t.Price = v }, nil
	default:
		return nil, nil, fmt.Errorf("clip: unknown column %q", col)
	}
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
