package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-basket/models"
)

func sampleInput() InsightInput {
	tx := []*models.Transaction{
		{Invoice: "I1", StockCode: "22492", Description: "MINI PAINT SET VINTAGE", Quantity: 36},
		{Invoice: "I1", StockCode: "22326", Description: "ROUND SNACK BOXES SET OF4 WOODLAND", Quantity: 24},
		{Invoice: "I2", StockCode: "22492", Description: "MINI PAINT SET VINTAGE", Quantity: 12},
		{Invoice: "I2", StockCode: "22556", Description: "PLASTERS IN TIN CIRCUS PARADE", Quantity: 12},
	}
	rules := []models.Rule{
		{Antecedents: []string{"22492"}, Consequents: []string{"22326"}, Support: 0.5, Confidence: 0.5, Lift: 1},
		{Antecedents: []string{"22326"}, Consequents: []string{"22492"}, Support: 0.06, Confidence: 0.9, Lift: 6},
		{Antecedents: []string{"22556"}, Consequents: []string{"22492"}, Support: 0.07, Confidence: 0.8, Lift: 7},
	}
	return InsightInput{
		RunID:        "run-1",
		Country:      "France",
		Transactions: tx,
		Matrix:       BuildPresenceMatrix(tx, KeyStockCode),
		Itemsets: []models.Itemset{
			{Items: []string{"22326"}}, {Items: []string{"22492"}}, {Items: []string{"22326", "22492"}},
		},
		Rules: rules,
		Recommendations: map[string][]string{
			"22492": {"22326"},
			"10002": {},
		},
		Key: KeyStockCode,
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleInput())

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 4, r.TotalTransactions)
	assert.Equal(t, 2, r.TotalInvoices)
	assert.Equal(t, 3, r.DistinctProducts)
	assert.Equal(t, map[int]int{1: 2, 2: 1}, r.ItemsetsByLength)
	assert.Equal(t, 3, r.TotalRules)
}

func TestInsightRuleRankings(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleInput())

	require.Len(t, r.TopRules, 3)
	assert.Equal(t, 7.0, r.TopRules[0].Lift)
	assert.Equal(t, 1.0, r.TopRules[2].Lift)

	require.Len(t, r.StrongRules, 2)
	assert.Equal(t, 0.9, r.StrongRules[0].Confidence)
}

func TestInsightRecommendationsDescribed(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleInput())

	require.Len(t, r.Recommendations, 2)
	assert.Equal(t, "10002", r.Recommendations[0].Product)
	assert.Empty(t, r.Recommendations[0].Items)

	rec := r.Recommendations[1]
	assert.Equal(t, "22492", rec.Product)
	assert.Equal(t, "MINI PAINT SET VINTAGE", rec.Description)
	assert.Equal(t, []string{"ROUND SNACK BOXES SET OF4 WOODLAND"}, rec.Descriptions)

	svc.Print(r)
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(InsightInput{})
	assert.Equal(t, 0, r.TotalTransactions)
	assert.Empty(t, r.TopRules)
	assert.Empty(t, r.Recommendations)
	svc.Print(r)
}

func TestFormatRule(t *testing.T) {
	r := models.Rule{Antecedents: []string{"A", "B"}, Consequents: []string{"C"}}
	assert.Equal(t, "{A, B} -> {C}", FormatRule(r))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ééééééé...", truncate("ééééééééééé", 10))
	assert.Equal(t, "ROUND SNACK", truncate("ROUND SNACK", 11))
	assert.Equal(t, "CAKE STAND ...", truncate("CAKE STAND 3 TIER", 14))
}
