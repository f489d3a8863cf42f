package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"retail-basket/models"
)

var pageTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
	"f3":   func(f float64) string { return fmt.Sprintf("%.3f", f) },
	"at": func(items []string, i int) string {
		if i < len(items) {
			return items[i]
		}
		return ""
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Basket analysis {{.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { color: #6a1b9a; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; font-size: 12px; }
th { background: #f3e5f5; }
</style>
</head>
<body>
<h1>Basket analysis</h1>
<p>Run {{.RunID}} &middot; country {{if .Country}}{{.Country}}{{else}}all{{end}}</p>
<table>
<tr><th>Transactions</th><td>{{.TotalTransactions}}</td></tr>
<tr><th>Invoices</th><td>{{.TotalInvoices}}</td></tr>
<tr><th>Distinct products</th><td>{{.DistinctProducts}}</td></tr>
<tr><th>Rules</th><td>{{.TotalRules}}</td></tr>
{{range .Lengths}}<tr><th>Itemsets of size {{.Size}}</th><td>{{.Count}}</td></tr>
{{end}}</table>
<h2>Top rules by lift</h2>
{{template "rules" .TopRules}}
<h2>Strong rules</h2>
{{template "rules" .StrongRules}}
<h2>Cart recommendations</h2>
{{range $rec := .Recommendations}}<h3>{{$rec.Product}} {{$rec.Description}}</h3>
{{if $rec.Items}}<ol>{{range $i, $item := $rec.Items}}<li>{{$item}} {{at $rec.Descriptions $i}}</li>{{end}}</ol>{{else}}<p>No rule has this product in its antecedent.</p>{{end}}
{{end}}
</body>
</html>
{{define "rules"}}{{if .}}<table>
<tr><th>Antecedents</th><th>Consequents</th><th>Support</th><th>Confidence</th><th>Lift</th></tr>
{{range .}}<tr><td>{{join .Antecedents}}</td><td>{{join .Consequents}}</td><td>{{f3 .Support}}</td><td>{{f3 .Confidence}}</td><td>{{f3 .Lift}}</td></tr>
{{end}}</table>{{else}}<p>None</p>{{end}}{{end}}`))

type lengthCount struct {
	Size  int
	Count int
}

type htmlPage struct {
	*models.InsightReport
	Lengths []lengthCount
}

// RenderHTML renders the insight report as a standalone HTML page.
func RenderHTML(r *models.InsightReport) (string, error) {
	p := htmlPage{InsightReport: r}
	for size, count := range r.ItemsetsByLength {
		p.Lengths = append(p.Lengths, lengthCount{Size: size, Count: count})
	}
	sort.Slice(p.Lengths, func(i, j int) bool { return p.Lengths[i].Size < p.Lengths[j].Size })

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("report: render html: %w", err)
	}
	return buf.String(), nil
}
