package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-basket/models"
	"retail-basket/utils"
)

func sampleReport() *models.InsightReport {
	rule := models.Rule{
		Antecedents: []string{"22326"}, Consequents: []string{"22492"},
		Support: 0.08, Confidence: 0.4, Lift: 6.25,
	}
	return &models.InsightReport{
		RunID:             "run-1",
		Country:           "France",
		TotalTransactions: 100,
		TotalInvoices:     20,
		DistinctProducts:  40,
		ItemsetsByLength:  map[int]int{2: 3, 1: 10},
		TotalRules:        6,
		TopRules:          []models.Rule{rule},
		Recommendations: []models.Recommendation{
			{
				Product: "22326", Description: "ROUND SNACK BOXES <WOODLAND>",
				Items: []string{"22492"}, Descriptions: []string{"MINI PAINT SET VINTAGE"},
			},
			{Product: "10002", Description: "INFLATABLE POLITICAL GLOBE"},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, html, "Run run-1")
	assert.Contains(t, html, "<td>22326</td><td>22492</td><td>0.080</td><td>0.400</td><td>6.250</td>")
	assert.Contains(t, html, "<li>22492 MINI PAINT SET VINTAGE</li>")
	assert.Contains(t, html, "ROUND SNACK BOXES &lt;WOODLAND&gt;", "descriptions are escaped")
	assert.Contains(t, html, "No rule has this product in its antecedent.")
	assert.Contains(t, html, "<p>None</p>", "empty strong rules")
	assert.Less(t, indexOf(html, "Itemsets of size 1"), indexOf(html, "Itemsets of size 2"))
}

func TestRenderHTMLEmptyReport(t *testing.T) {
	html, err := RenderHTML(&models.InsightReport{})
	require.NoError(t, err)
	assert.Contains(t, html, "country all")
}

func TestNewPDFExporterResolvesBinary(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/chrome/chrome")

	e := NewPDFExporter("", utils.NewNopLogger())
	assert.Equal(t, "/opt/chrome/chrome", e.chromeBin)

	e = NewPDFExporter("/usr/bin/chromium", utils.NewNopLogger())
	assert.Equal(t, "/usr/bin/chromium", e.chromeBin)
}

func TestPDFExport(t *testing.T) {
	if os.Getenv("TEST_CHROME") == "" {
		t.Skip("Integration test - set TEST_CHROME to run headless Chrome")
	}

	html, err := RenderHTML(sampleReport())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.pdf")
	e := NewPDFExporter("", utils.NewNopLogger())
	require.NoError(t, e.Export(context.Background(), html, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
