package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the counters of one batch run. A nil *Pipeline is valid and
// records nothing.
type Pipeline struct {
	registry *prometheus.Registry

	TransactionsLoaded  prometheus.Counter
	TransactionsDropped *prometheus.CounterVec
	ItemsetsMined       prometheus.Gauge
	RulesMined          prometheus.Gauge
	Recommendations     *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
}

// NewPipeline registers the pipeline metrics on a fresh registry.
func NewPipeline() *Pipeline {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Pipeline{
		registry: reg,
		TransactionsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "retail_transactions_loaded_total",
			Help: "Total number of raw transaction rows loaded",
		}),
		TransactionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_transactions_dropped_total",
			Help: "Total number of transaction rows dropped during cleaning",
		}, []string{"reason"}),
		ItemsetsMined: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retail_itemsets_mined",
			Help: "Number of frequent itemsets found by the last run",
		}),
		RulesMined: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retail_rules_mined",
			Help: "Number of association rules derived by the last run",
		}),
		Recommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_recommendations_total",
			Help: "Total number of recommendation lookups",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retail_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// Loaded adds n loaded rows.
func (p *Pipeline) Loaded(n int) {
	if p == nil {
		return
	}
	p.TransactionsLoaded.Add(float64(n))
}

// Dropped adds n rows dropped for reason.
func (p *Pipeline) Dropped(reason string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.TransactionsDropped.WithLabelValues(reason).Add(float64(n))
}

// Mined records the size of the mining output.
func (p *Pipeline) Mined(itemsets, rules int) {
	if p == nil {
		return
	}
	p.ItemsetsMined.Set(float64(itemsets))
	p.RulesMined.Set(float64(rules))
}

// RecommendationServed counts one lookup by outcome.
func (p *Pipeline) RecommendationServed(outcome string) {
	if p == nil {
		return
	}
	p.Recommendations.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long stage took since start.
func (p *Pipeline) ObserveStage(stage string, start time.Time) {
	if p == nil {
		return
	}
	p.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the metrics in text exposition format for the node
// exporter textfile collector.
func (p *Pipeline) WriteTextfile(path string) error {
	if p == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create output dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
