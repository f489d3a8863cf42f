package storage

import (
	"context"
	"errors"

	"retail-basket/models"
)

// ErrNoRules is returned when a rule store holds no rules to answer from.
var ErrNoRules = errors.New("no stored rules")

// RuleWriter is the interface any rule storage backend must satisfy.
type RuleWriter interface {
	WriteRules(runID string, rules []models.Rule) error
	Close() error
}

// TransactionWriter persists cleaned transactions.
type TransactionWriter interface {
	WriteTransactions(ctx context.Context, tx []*models.Transaction) error
	Close() error
}

// RecommendationCache keeps computed recommendation lists under keys built
// with CacheKey. Get reports ok=false on a miss.
type RecommendationCache interface {
	Set(ctx context.Context, key string, items []string) error
	Get(ctx context.Context, key string) ([]string, bool, error)
	Close() error
}
