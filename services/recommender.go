package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"retail-basket/metrics"
	"retail-basket/models"
	"retail-basket/storage"
	"retail-basket/utils"
)

// ErrInvalidInput is returned for a rule table the lookup cannot work with.
var ErrInvalidInput = errors.New("invalid input")

// Recommend returns up to count products recommended for target.
//
// Rules are visited in descending lift order, ties keeping their input order.
// Each rule whose antecedent contains target contributes the first item of its
// consequent. Duplicates are kept. rules is not modified.
func Recommend(rules []models.Rule, target string, count int) ([]string, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("recommend: empty rule table: %w", ErrInvalidInput)
	}
	for i, r := range rules {
		if len(r.Antecedents) == 0 {
			return nil, fmt.Errorf("recommend: rule %d has no antecedents: %w", i, ErrInvalidInput)
		}
		if len(r.Consequents) == 0 {
			return nil, fmt.Errorf("recommend: rule %d has no consequents: %w", i, ErrInvalidInput)
		}
	}

	out := []string{}
	if count <= 0 {
		return out, nil
	}

	sorted := make([]models.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Lift > sorted[j].Lift
	})

	for _, r := range sorted {
		if r.HasAntecedent(target) {
			out = append(out, r.Consequents[0])
		}
	}

	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// RecommendationPublisher announces served recommendations.
type RecommendationPublisher interface {
	PublishRecommendation(ctx context.Context, runID, product string, items []string) error
}

// Recommender serves cart recommendations from one mined rule table and
// forwards results to the optional cache and publisher.
type Recommender struct {
	logger    *utils.Logger
	rules     []models.Rule
	runID     string
	cache     storage.RecommendationCache
	publisher RecommendationPublisher
	metrics   *metrics.Pipeline
}

// RecommenderOption configures optional Recommender sinks.
type RecommenderOption func(*Recommender)

// WithCache answers repeated lookups from c and stores every computed list in it.
func WithCache(c storage.RecommendationCache) RecommenderOption {
	return func(r *Recommender) { r.cache = c }
}

// WithPublisher announces every served list through p.
func WithPublisher(p RecommendationPublisher) RecommenderOption {
	return func(r *Recommender) { r.publisher = p }
}

// WithMetrics counts served lookups by outcome.
func WithMetrics(m *metrics.Pipeline) RecommenderOption {
	return func(r *Recommender) { r.metrics = m }
}

// NewRecommender creates a Recommender over rules mined in run runID.
func NewRecommender(logger *utils.Logger, runID string, rules []models.Rule, opts ...RecommenderOption) *Recommender {
	r := &Recommender{logger: logger, rules: rules, runID: runID}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend looks up target, first in the cache and then in the rule table,
// and forwards the result to the configured sinks. Cache and publisher
// failures are logged, never returned.
func (r *Recommender) Recommend(ctx context.Context, target string, count int) ([]string, error) {
	if items, ok := r.cached(ctx, target, count); ok {
		r.metrics.RecommendationServed("cached")
		r.logger.Info("[recommender] %s -> %v (cached)", target, items)
		r.publish(ctx, target, items)
		return items, nil
	}

	items, err := Recommend(r.rules, target, count)
	if err != nil {
		r.metrics.RecommendationServed("error")
		return nil, err
	}

	if len(items) == 0 {
		r.metrics.RecommendationServed("empty")
		r.logger.Warn("[recommender] No rule has %s in its antecedent", target)
	} else {
		r.metrics.RecommendationServed("ok")
		r.logger.Info("[recommender] %s -> %v", target, items)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, storage.CacheKey(r.runID, target, count), items); err != nil {
			r.logger.Warn("[recommender] Cache write for %s failed: %v", target, err)
		}
	}
	r.publish(ctx, target, items)
	return items, nil
}

func (r *Recommender) cached(ctx context.Context, target string, count int) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	items, ok, err := r.cache.Get(ctx, storage.CacheKey(r.runID, target, count))
	if err != nil {
		r.logger.Warn("[recommender] Cache read for %s failed: %v", target, err)
		return nil, false
	}
	return items, ok
}

func (r *Recommender) publish(ctx context.Context, target string, items []string) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishRecommendation(ctx, r.runID, target, items); err != nil {
		r.logger.Warn("[recommender] Publish for %s failed: %v", target, err)
	}
}
