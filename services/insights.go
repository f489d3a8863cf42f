package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"retail-basket/mining"
	"retail-basket/models"
	"retail-basket/utils"
)

const topRulesLimit = 10

// InsightInput is everything one pipeline run produced.
type InsightInput struct {
	RunID        string
	Country      string
	Transactions []*models.Transaction
	Matrix       *models.PresenceMatrix
	Itemsets     []models.Itemset
	Rules        []models.Rule
	// Recommendations maps a target product to its recommended products.
	Recommendations map[string][]string
	Key             ProductKey
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(in InsightInput) *models.InsightReport {
	report := &models.InsightReport{
		RunID:            in.RunID,
		Country:          in.Country,
		ItemsetsByLength: make(map[int]int),
	}

	report.TotalTransactions = len(in.Transactions)
	if in.Matrix != nil {
		report.TotalInvoices = len(in.Matrix.Invoices())
		report.DistinctProducts = len(in.Matrix.Products())
	}

	for _, set := range in.Itemsets {
		report.ItemsetsByLength[set.Len()]++
	}

	report.TotalRules = len(in.Rules)
	byLift := mining.SortBy(in.Rules, mining.MetricLift)
	if len(byLift) > topRulesLimit {
		byLift = byLift[:topRulesLimit]
	}
	report.TopRules = byLift
	report.StrongRules = mining.SortBy(mining.FilterRules(in.Rules, mining.StrongRules), mining.MetricConfidence)

	targets := make([]string, 0, len(in.Recommendations))
	for target := range in.Recommendations {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	describe := func(product string) string {
		if in.Key == KeyDescription {
			return product
		}
		desc, _ := LookupDescription(in.Transactions, product)
		return desc
	}

	for _, target := range targets {
		items := in.Recommendations[target]
		rec := models.Recommendation{
			Product:     target,
			Description: describe(target),
			Items:       items,
		}
		for _, it := range items {
			rec.Descriptions = append(rec.Descriptions, describe(it))
		}
		report.Recommendations = append(report.Recommendations, rec)
	}

	s.logger.Debug("[insights] Report built: %d invoices, %d products, %d rules",
		report.TotalInvoices, report.DistinctProducts, report.TotalRules)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🛒 BASKET ANALYSIS INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Run               : %s\n", r.RunID)
	country := r.Country
	if country == "" {
		country = "all"
	}
	fmt.Printf("  Country           : \033[1m%s\033[0m\n", country)
	fmt.Printf("  Transactions      : \033[1m%d\033[0m\n", r.TotalTransactions)
	fmt.Printf("  Invoices          : \033[1m%d\033[0m\n", r.TotalInvoices)
	fmt.Printf("  Distinct products : \033[1m%d\033[0m\n", r.DistinctProducts)
	fmt.Println()

	// Itemsets
	fmt.Printf("\033[1;33m  Frequent Itemsets\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ItemsetsByLength) == 0 {
		fmt.Printf("  No frequent itemsets\n")
	} else {
		lengths := make([]int, 0, len(r.ItemsetsByLength))
		for l := range r.ItemsetsByLength {
			lengths = append(lengths, l)
		}
		sort.Ints(lengths)
		for _, l := range lengths {
			fmt.Printf("  size %-2d : %d\n", l, r.ItemsetsByLength[l])
		}
	}
	fmt.Printf("  Rules derived : \033[1m%d\033[0m\n", r.TotalRules)
	fmt.Println()

	printRules("Top Rules by Lift", r.TopRules, thin)
	printRules("Strong Rules (support>0.05, confidence>0.1, lift>5)", r.StrongRules, thin)

	// ── CART RECOMMENDATIONS ─────────────────────────────────────────────
	fmt.Printf("\033[1;33m  Cart Recommendations\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Recommendations) == 0 {
		fmt.Printf("  No targets requested\n")
	}
	for _, rec := range r.Recommendations {
		fmt.Printf("  \033[1m%s\033[0m %s\n", rec.Product, truncate(rec.Description, 48))
		if len(rec.Items) == 0 {
			fmt.Printf("      no rule has this product in its antecedent\n")
			continue
		}
		for i, item := range rec.Items {
			fmt.Printf("    %d. %-10s %s\n", i+1, item, truncate(rec.Descriptions[i], 44))
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func printRules(title string, rules []models.Rule, thin string) {
	fmt.Printf("\033[1;33m  %s\033[0m\n", title)
	fmt.Printf("  %s\n", thin)
	if len(rules) == 0 {
		fmt.Printf("  None\n\n")
		return
	}
	fmt.Printf("  %-30s %8s %8s %8s\n", "rule", "support", "conf", "lift")
	for _, rule := range rules {
		fmt.Printf("  %-30s %8.3f %8.3f %8.3f\n", truncate(FormatRule(rule), 30),
			rule.Support, rule.Confidence, round2(rule.Lift))
	}
	fmt.Println()
}

// FormatRule renders a rule as "{a, b} -> {c}".
func FormatRule(r models.Rule) string {
	return "{" + strings.Join(r.Antecedents, ", ") + "} -> {" + strings.Join(r.Consequents, ", ") + "}"
}

func round2(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	return math.Round(f*100) / 100
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
