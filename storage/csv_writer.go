package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"retail-basket/models"
)

// itemSeparator joins itemset members inside a single CSV cell.
const itemSeparator = "|"

// RulesCSVWriter writes mined association rules to a CSV file.
// It is safe for concurrent use.
type RulesCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRulesCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewRulesCSVWriter(path string) (*RulesCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"run_id", "antecedents", "consequents", "antecedent_support", "consequent_support",
		"support", "confidence", "lift", "leverage", "conviction",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &RulesCSVWriter{file: f, writer: w}, nil
}

// WriteRules appends every rule of run runID.
func (c *RulesCSVWriter) WriteRules(runID string, rules []models.Rule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rules {
		row := []string{
			runID,
			strings.Join(r.Antecedents, itemSeparator),
			strings.Join(r.Consequents, itemSeparator),
			formatFloat(r.AntecedentSupport),
			formatFloat(r.ConsequentSupport),
			formatFloat(r.Support),
			formatFloat(r.Confidence),
			formatFloat(r.Lift),
			formatFloat(r.Leverage),
			formatFloat(r.Conviction),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *RulesCSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// ReadRulesCSV loads rules written by RulesCSVWriter, in file order, along
// with the run id they were written under. A file holding several runs is
// rejected.
func ReadRulesCSV(path string) ([]models.Rule, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, "", fmt.Errorf("csv: %q has no header", path)
	}

	var runID string
	rules := make([]models.Rule, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 10 {
			return nil, "", fmt.Errorf("csv: line %d: want 10 fields, got %d", i+2, len(rec))
		}
		if runID == "" {
			runID = rec[0]
		} else if rec[0] != runID {
			return nil, "", fmt.Errorf("csv: line %d: run %s mixed with run %s", i+2, rec[0], runID)
		}
		vals := make([]float64, 7)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[3+j], 64); err != nil {
				return nil, "", fmt.Errorf("csv: line %d: %w", i+2, err)
			}
		}
		rules = append(rules, models.Rule{
			Antecedents:       splitItems(rec[1]),
			Consequents:       splitItems(rec[2]),
			AntecedentSupport: vals[0],
			ConsequentSupport: vals[1],
			Support:           vals[2],
			Confidence:        vals[3],
			Lift:              vals[4],
			Leverage:          vals[5],
			Conviction:        vals[6],
		})
	}
	return rules, runID, nil
}

func splitItems(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, itemSeparator)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
