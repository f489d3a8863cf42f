package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"retail-basket/models"
	"retail-basket/utils"
)

const batchSize = 50

// PostgresStore persists cleaned transactions and mined rules to PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

var (
	_ RuleWriter        = (*PostgresStore)(nil)
	_ TransactionWriter = (*PostgresStore)(nil)
)

// NewPostgresStore opens a connection to PostgreSQL, retrying the ping with
// retry, runs schema migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id           SERIAL PRIMARY KEY,
			invoice      VARCHAR(20)   NOT NULL,
			stock_code   VARCHAR(20)   NOT NULL,
			description  TEXT          NOT NULL,
			quantity     DOUBLE PRECISION NOT NULL,
			invoice_date TIMESTAMPTZ   NOT NULL,
			price        DOUBLE PRECISION NOT NULL,
			customer_id  VARCHAR(20)   NOT NULL,
			country      TEXT          NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_invoice ON transactions(invoice);
		CREATE INDEX IF NOT EXISTS idx_transactions_country ON transactions(country);

		CREATE TABLE IF NOT EXISTS association_rules (
			id                 SERIAL PRIMARY KEY,
			run_id             UUID             NOT NULL,
			antecedents        TEXT[]           NOT NULL,
			consequents        TEXT[]           NOT NULL,
			antecedent_support DOUBLE PRECISION NOT NULL,
			consequent_support DOUBLE PRECISION NOT NULL,
			support            DOUBLE PRECISION NOT NULL,
			confidence         DOUBLE PRECISION NOT NULL,
			lift               DOUBLE PRECISION NOT NULL,
			leverage           DOUBLE PRECISION NOT NULL,
			conviction         DOUBLE PRECISION,
			created_at         TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			UNIQUE (run_id, antecedents, consequents)
		);

		CREATE INDEX IF NOT EXISTS idx_rules_run  ON association_rules(run_id);
		CREATE INDEX IF NOT EXISTS idx_rules_ante ON association_rules USING GIN (antecedents);
	`)
	return err
}

// ClearTransactions deletes all stored transactions.
func (ps *PostgresStore) ClearTransactions(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("postgres: clear transactions: %w", err)
	}
	return nil
}

// WriteTransactions replaces the stored transactions with tx.
func (ps *PostgresStore) WriteTransactions(ctx context.Context, tx []*models.Transaction) error {
	if len(tx) == 0 {
		return nil
	}
	if err := ps.ClearTransactions(ctx); err != nil {
		return err
	}

	for i := 0; i < len(tx); i += batchSize {
		end := min(i+batchSize, len(tx))
		if err := ps.insertTransactions(ctx, tx[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertTransactions(ctx context.Context, batch []*models.Transaction) error {
	const cols = 8
	args := make([]interface{}, 0, len(batch)*cols)
	for _, t := range batch {
		args = append(args, t.Invoice, t.StockCode, t.Description, t.Quantity,
			t.InvoiceDate, t.Price, t.CustomerID, t.Country)
	}

	query := fmt.Sprintf(`
		INSERT INTO transactions (invoice, stock_code, description, quantity, invoice_date, price, customer_id, country)
		VALUES %s
	`, placeholders(len(batch), cols))

	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert transactions: %w", err)
	}
	return nil
}

// WriteRules batch-inserts the rules of run runID.
func (ps *PostgresStore) WriteRules(runID string, rules []models.Rule) error {
	for i := 0; i < len(rules); i += batchSize {
		end := min(i+batchSize, len(rules))
		if err := ps.insertRules(runID, rules[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertRules(runID string, batch []models.Rule) error {
	const cols = 10
	args := make([]interface{}, 0, len(batch)*cols)
	for _, r := range batch {
		conviction := sql.NullFloat64{Float64: r.Conviction, Valid: !math.IsInf(r.Conviction, 0)}
		args = append(args, runID, pq.StringArray(r.Antecedents), pq.StringArray(r.Consequents),
			r.AntecedentSupport, r.ConsequentSupport, r.Support, r.Confidence, r.Lift, r.Leverage, conviction)
	}

	query := fmt.Sprintf(`
		INSERT INTO association_rules (run_id, antecedents, consequents, antecedent_support,
			consequent_support, support, confidence, lift, leverage, conviction)
		VALUES %s
		ON CONFLICT (run_id, antecedents, consequents) DO NOTHING
	`, placeholders(len(batch), cols))

	if _, err := ps.db.Exec(query, args...); err != nil {
		return fmt.Errorf("postgres: insert rules: %w", err)
	}
	return nil
}

type ruleRow struct {
	Antecedents       pq.StringArray  `db:"antecedents"`
	Consequents       pq.StringArray  `db:"consequents"`
	AntecedentSupport float64         `db:"antecedent_support"`
	ConsequentSupport float64         `db:"consequent_support"`
	Support           float64         `db:"support"`
	Confidence        float64         `db:"confidence"`
	Lift              float64         `db:"lift"`
	Leverage          float64         `db:"leverage"`
	Conviction        sql.NullFloat64 `db:"conviction"`
}

// LatestRunID returns the run whose rules were stored last.
func (ps *PostgresStore) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := ps.db.GetContext(ctx, &runID, `
		SELECT run_id::text
		FROM association_rules
		ORDER BY id DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("postgres: latest run: %w", ErrNoRules)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: latest run: %w", err)
	}
	return runID, nil
}

// FetchRules returns the rules of run runID in insertion order.
func (ps *PostgresStore) FetchRules(ctx context.Context, runID string) ([]models.Rule, error) {
	var rows []ruleRow
	err := ps.db.SelectContext(ctx, &rows, `
		SELECT antecedents, consequents, antecedent_support, consequent_support,
		       support, confidence, lift, leverage, conviction
		FROM association_rules
		WHERE run_id = $1
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch rules: %w", err)
	}

	rules := make([]models.Rule, len(rows))
	for i, row := range rows {
		conviction := math.Inf(1)
		if row.Conviction.Valid {
			conviction = row.Conviction.Float64
		}
		rules[i] = models.Rule{
			Antecedents:       []string(row.Antecedents),
			Consequents:       []string(row.Consequents),
			AntecedentSupport: row.AntecedentSupport,
			ConsequentSupport: row.ConsequentSupport,
			Support:           row.Support,
			Confidence:        row.Confidence,
			Lift:              row.Lift,
			Leverage:          row.Leverage,
			Conviction:        conviction,
		}
	}
	return rules, nil
}

// FetchTransactions returns the stored transactions of country, or all when country is empty.
func (ps *PostgresStore) FetchTransactions(ctx context.Context, country string) ([]*models.Transaction, error) {
	query := `
		SELECT id, invoice, stock_code, description, quantity, invoice_date, price, customer_id, country
		FROM transactions`
	var args []interface{}
	if country != "" {
		query += " WHERE country = $1"
		args = append(args, country)
	}
	query += " ORDER BY id"

	var tx []*models.Transaction
	if err := ps.db.SelectContext(ctx, &tx, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: fetch transactions: %w", err)
	}
	return tx, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// placeholders renders rows groups of cols positional parameters: ($1,$2),($3,$4)...
func placeholders(rows, cols int) string {
	groups := make([]string, rows)
	n := 1
	for r := 0; r < rows; r++ {
		ph := make([]string, cols)
		for c := 0; c < cols; c++ {
			ph[c] = fmt.Sprintf("$%d", n)
			n++
		}
		groups[r] = "(" + strings.Join(ph, ",") + ")"
	}
	return strings.Join(groups, ",")
}
