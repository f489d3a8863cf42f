package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"retail-basket/broker"
	"retail-basket/config"
	"retail-basket/loader"
	"retail-basket/metrics"
	"retail-basket/mining"
	"retail-basket/models"
	"retail-basket/report"
	"retail-basket/services"
	"retail-basket/storage"
	"retail-basket/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.NewLoggerFor(cfg.Env, cfg.LogLevel)
	if err != nil {
		logger = utils.NewLogger()
		logger.Warn("Invalid log settings, using defaults: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// ruleTable is the rule set recommendations are answered from, together with
// whatever the run knows about the transactions behind it.
type ruleTable struct {
	runID    string
	tx       []*models.Transaction
	matrix   *models.PresenceMatrix
	itemsets []models.Itemset
	rules    []models.Rule
}

func run(cfg *config.Config, logger *utils.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	key, err := services.ParseProductKey(cfg.ProductKey)
	if err != nil {
		return err
	}

	ctx := context.Background()
	m := metrics.NewPipeline()
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: time.Second, Logger: logger}

	logger.Info("=== Basket Analysis starting (rules: %s) ===", cfg.RulesSource)

	defer func() {
		if cfg.MetricsTextfile == "" {
			return
		}
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Metrics textfile write failed: %v", err)
		} else {
			logger.Info("Metrics written to %s", cfg.MetricsTextfile)
		}
	}()

	var pg *storage.PostgresStore
	if cfg.PostgresEnabled {
		pg, err = storage.NewPostgresStore(cfg.DSN(), retry)
		if err != nil {
			if cfg.RulesSource == "postgres" {
				return err
			}
			logger.Warn("PostgreSQL unavailable, continuing without it: %v", err)
			pg = nil
		} else {
			defer pg.Close()
		}
	}

	var table *ruleTable
	switch cfg.RulesSource {
	case "csv":
		table, err = loadCSVRules(ctx, cfg, logger, pg)
	case "postgres":
		table, err = loadStoredRules(ctx, cfg, logger, pg)
	default:
		table, err = mineRules(ctx, cfg, logger, m, pg, key)
	}
	if err != nil {
		return err
	}

	// Recommend
	start := time.Now()
	var opts []services.RecommenderOption
	opts = append(opts, services.WithMetrics(m))
	if cfg.RedisAddr != "" {
		cache, err := storage.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			time.Duration(cfg.RedisTTLSeconds)*time.Second, retry)
		if err != nil {
			logger.Warn("Redis unavailable, recommendations will not be cached: %v", err)
		} else {
			defer cache.Close()
			opts = append(opts, services.WithCache(cache))
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := broker.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		opts = append(opts, services.WithPublisher(producer))
	}

	recommender := services.NewRecommender(logger, table.runID, table.rules, opts...)
	recs := make(map[string][]string, len(cfg.TargetProducts))
	for _, target := range cfg.TargetProducts {
		items, err := recommender.Recommend(ctx, target, cfg.RecCount)
		if err != nil {
			logger.Warn("Recommendation for %s failed: %v", target, err)
			continue
		}
		recs[target] = items
	}
	m.ObserveStage("recommend", start)

	// Report
	insightSvc := services.NewInsightService(logger)
	insights := insightSvc.Generate(services.InsightInput{
		RunID:           table.runID,
		Country:         cfg.Country,
		Transactions:    table.tx,
		Matrix:          table.matrix,
		Itemsets:        table.itemsets,
		Rules:           table.rules,
		Recommendations: recs,
		Key:             key,
	})
	insightSvc.Print(insights)

	if cfg.ReportPDFPath != "" {
		start = time.Now()
		html, err := report.RenderHTML(insights)
		if err == nil {
			err = report.NewPDFExporter(cfg.ChromeBin, logger).Export(ctx, html, cfg.ReportPDFPath)
		}
		if err != nil {
			logger.Warn("PDF report failed: %v", err)
		}
		m.ObserveStage("report", start)
	}

	fmt.Printf("  Done. Rules from %s | run %s\n\n", cfg.RulesSource, table.runID)
	return nil
}

// mineRules loads and cleans the dataset, mines a fresh rule table and
// stores it in the rules CSV and, when available, PostgreSQL.
func mineRules(ctx context.Context, cfg *config.Config, logger *utils.Logger, m *metrics.Pipeline,
	pg *storage.PostgresStore, key services.ProductKey) (*ruleTable, error) {
	runID := uuid.NewString()
	logger.Info("Mining run %s: dataset %s | country %q | key %s | min support %.3f | %s >= %.3f",
		runID, cfg.DatasetPath, cfg.Country, cfg.ProductKey, cfg.MinSupport, cfg.RuleMetric, cfg.MinThreshold)

	metric, err := mining.ParseMetric(cfg.RuleMetric)
	if err != nil {
		return nil, err
	}

	// Load
	start := time.Now()
	raw, err := loader.New(cfg, logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	m.Loaded(len(raw))
	m.ObserveStage("load", start)

	// Clean
	start = time.Now()
	clean, stats, err := services.NewCleaner(logger).Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean dataset: %w", err)
	}
	m.Dropped("incomplete", stats.Incomplete)
	m.Dropped("unparseable", stats.Unparseable)
	m.Dropped("cancelled", stats.Cancelled)
	m.Dropped("non_positive", stats.NonPositive)
	m.ObserveStage("clean", start)

	tx := services.FilterCountry(clean, cfg.Country)
	if len(tx) == 0 {
		return nil, errors.New("no transactions left after cleaning and country filter")
	}
	logger.Info("Cleaned dataset: %d transactions for %q", len(tx), cfg.Country)

	if pg != nil {
		if err := pg.WriteTransactions(ctx, tx); err != nil {
			logger.Warn("PostgreSQL transaction write failed: %v", err)
		}
	}

	// Mine
	start = time.Now()
	matrix := services.BuildPresenceMatrix(tx, key)
	itemsets, err := mining.Apriori(matrix, mining.Options{MinSupport: cfg.MinSupport, MaxLen: cfg.MaxItemsetLen})
	if err != nil {
		return nil, fmt.Errorf("mine itemsets: %w", err)
	}
	rules, err := mining.AssociationRules(itemsets, metric, cfg.MinThreshold)
	if err != nil {
		return nil, fmt.Errorf("derive rules: %w", err)
	}
	m.Mined(len(itemsets), len(rules))
	m.ObserveStage("mine", start)
	logger.Info("Mined %d frequent itemsets and %d rules over %d invoices",
		len(itemsets), len(rules), len(matrix.Invoices()))

	if err := writeRulesCSV(cfg.RulesCSVPath, runID, rules); err != nil {
		logger.Warn("Rules CSV write failed: %v", err)
	} else {
		logger.Info("Rules saved to %s", cfg.RulesCSVPath)
	}
	if pg != nil {
		if err := pg.WriteRules(runID, rules); err != nil {
			logger.Warn("PostgreSQL rule write failed: %v", err)
		} else {
			logger.Info("Rules stored in PostgreSQL (table: association_rules)")
		}
	}

	return &ruleTable{runID: runID, tx: tx, matrix: matrix, itemsets: itemsets, rules: rules}, nil
}

// loadCSVRules answers from the rules CSV of an earlier mining run.
func loadCSVRules(ctx context.Context, cfg *config.Config, logger *utils.Logger, pg *storage.PostgresStore) (*ruleTable, error) {
	rules, runID, err := storage.ReadRulesCSV(cfg.RulesCSVPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("load rules from %s: %w", cfg.RulesCSVPath, storage.ErrNoRules)
	}
	if cfg.RulesRunID != "" && cfg.RulesRunID != runID {
		return nil, fmt.Errorf("load rules: %s holds run %s, not %s", cfg.RulesCSVPath, runID, cfg.RulesRunID)
	}
	logger.Info("Loaded %d rules of run %s from %s", len(rules), runID, cfg.RulesCSVPath)

	return &ruleTable{runID: runID, tx: storedTransactions(ctx, cfg, logger, pg), rules: rules}, nil
}

// loadStoredRules answers from the rules of RULES_RUN_ID, or of the latest
// run, stored in PostgreSQL.
func loadStoredRules(ctx context.Context, cfg *config.Config, logger *utils.Logger, pg *storage.PostgresStore) (*ruleTable, error) {
	runID := cfg.RulesRunID
	if runID == "" {
		latest, err := pg.LatestRunID(ctx)
		if err != nil {
			return nil, err
		}
		runID = latest
	}

	rules, err := pg.FetchRules(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("load rules of run %s: %w", runID, storage.ErrNoRules)
	}
	logger.Info("Loaded %d rules of run %s from PostgreSQL", len(rules), runID)

	return &ruleTable{runID: runID, tx: storedTransactions(ctx, cfg, logger, pg), rules: rules}, nil
}

// storedTransactions returns the transactions kept by the last mining run,
// used to describe products in the report. Without a store it returns nil.
func storedTransactions(ctx context.Context, cfg *config.Config, logger *utils.Logger, pg *storage.PostgresStore) []*models.Transaction {
	if pg == nil {
		return nil
	}
	tx, err := pg.FetchTransactions(ctx, cfg.Country)
	if err != nil {
		logger.Warn("Stored transactions unavailable, report will lack descriptions: %v", err)
		return nil
	}
	return tx
}

func writeRulesCSV(path, runID string, rules []models.Rule) error {
	w, err := storage.NewRulesCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteRules(runID, rules); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
