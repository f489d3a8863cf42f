package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-basket/config"
	"retail-basket/models"
	"retail-basket/storage"
	"retail-basket/utils"
)

const retailCSV = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
536365,22492,MINI PAINT SET VINTAGE,1,2010-12-01 08:45:00,1.00,12583,France
536365,22326,ROUND SNACK BOXES SET OF4 WOODLAND,1,2010-12-01 08:45:00,1.00,12583,France
536366,22492,MINI PAINT SET VINTAGE,1,2010-12-01 09:00:00,1.00,12583,France
536366,22326,ROUND SNACK BOXES SET OF4 WOODLAND,1,2010-12-01 09:00:00,1.00,12583,France
536367,22492,MINI PAINT SET VINTAGE,1,2010-12-01 10:00:00,1.00,12662,France
536367,22556,PLASTERS IN TIN CIRCUS PARADE,1,2010-12-01 10:00:00,1.00,12662,France
536368,22326,ROUND SNACK BOXES SET OF4 WOODLAND,1,2010-12-01 11:00:00,1.00,12662,France
C536369,22326,ROUND SNACK BOXES SET OF4 WOODLAND,-1,2010-12-01 11:30:00,1.00,12662,France
536370,22728,ALARM CLOCK BAKELIKE PINK,24,2010-12-01 12:00:00,3.75,14527,Germany
`

// testConfig points a pipeline run at a temp dir with every optional sink off.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	dataset := filepath.Join(dir, "retail.csv")
	require.NoError(t, os.WriteFile(dataset, []byte(retailCSV), 0o644))

	return &config.Config{
		DatasetPath:     dataset,
		Country:         "France",
		ProductKey:      "stockcode",
		MinSupport:      0.5,
		RuleMetric:      "support",
		MinThreshold:    0.01,
		TargetProducts:  []string{"22492", "22556"},
		RecCount:        3,
		RulesCSVPath:    filepath.Join(dir, "out", "rules.csv"),
		RulesSource:     "mine",
		MetricsTextfile: filepath.Join(dir, "out", "retail.prom"),
	}
}

func TestRunMinesAndStoresRules(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, run(cfg, utils.NewNopLogger()))

	rules, runID, err := storage.ReadRulesCSV(cfg.RulesCSVPath)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"22326"}, rules[0].Antecedents)
	assert.Equal(t, []string{"22492"}, rules[0].Consequents)
	assert.InDelta(t, 8.0/9.0, rules[0].Lift, 1e-9)

	metrics, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "retail_transactions_loaded_total 9")
	assert.Contains(t, string(metrics), `retail_transactions_dropped_total{reason="cancelled"} 1`)
	assert.Contains(t, string(metrics), "retail_rules_mined 2")
}

func TestRunAnswersFromRulesCSV(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, run(cfg, utils.NewNopLogger()))

	_, runID, err := storage.ReadRulesCSV(cfg.RulesCSVPath)
	require.NoError(t, err)

	cfg.RulesSource = "csv"
	cfg.DatasetPath = filepath.Join(t.TempDir(), "gone.csv")
	cfg.RulesRunID = runID
	assert.NoError(t, run(cfg, utils.NewNopLogger()), "stored rules need no dataset")

	table, err := loadCSVRules(context.Background(), cfg, utils.NewNopLogger(), nil)
	require.NoError(t, err)
	assert.Equal(t, runID, table.runID)
	assert.Len(t, table.rules, 2)
	assert.Nil(t, table.tx)
}

func TestLoadCSVRulesErrors(t *testing.T) {
	cfg := testConfig(t)
	logger := utils.NewNopLogger()

	_, err := loadCSVRules(context.Background(), cfg, logger, nil)
	assert.Error(t, err, "no rules file yet")

	w, err := storage.NewRulesCSVWriter(cfg.RulesCSVPath)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = loadCSVRules(context.Background(), cfg, logger, nil)
	assert.ErrorIs(t, err, storage.ErrNoRules)

	require.NoError(t, writeRulesCSV(cfg.RulesCSVPath, "run-1", []models.Rule{
		{Antecedents: []string{"22492"}, Consequents: []string{"22326"}, Lift: 1},
	}))
	cfg.RulesRunID = "run-2"
	_, err = loadCSVRules(context.Background(), cfg, logger, nil)
	assert.ErrorContains(t, err, "not run-2")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesSource = "postgres"
	assert.Error(t, run(cfg, utils.NewNopLogger()))
}
