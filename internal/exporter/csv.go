package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"FinRegime/internal/domain/models"
	applogger "FinRegime/pkg/logger"
)

// CSVWriter writes labeled panels and summary tables as CSV files.
type CSVWriter struct {
	dir string
	l   *applogger.Logger
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string, l *applogger.Logger) *CSVWriter {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVWriter{dir: dir, l: l}
}

// WriteLabeled writes <name>_labeled.csv and returns its path.
func (w *CSVWriter) WriteLabeled(ls models.LabeledSeries) (string, error) {
	records := make([][]string, 0, len(ls.Observations))
	for _, o := range ls.Observations {
		records = append(records, labeledRecord(o))
	}
	return w.write(ls.Name+LabeledSuffix, labeledHeader, records)
}

// WriteSummary writes <name>_regime_summary.csv and returns its path.
func (w *CSVWriter) WriteSummary(sum models.RegimeSummary) (string, error) {
	return w.write(sum.Name+SummarySuffix, SummaryHeader(), summaryRecords(sum))
}

// WriteCombined writes the all-series summary table.
func (w *CSVWriter) WriteCombined(sum models.RegimeSummary) (string, error) {
	return w.write(CombinedSummaryFile, SummaryHeader(), summaryRecords(sum))
}

func (w *CSVWriter) write(file string, header []string, records [][]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(w.dir, file)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to write records: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	w.l.Debug("csv written",
		applogger.String("path", path),
		applogger.Int("records", len(records)),
	)
	return path, nil
}
