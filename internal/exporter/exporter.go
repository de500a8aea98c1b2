package exporter

import (
	"context"
	"fmt"
	"path/filepath"

	"FinRegime/internal/domain/models"
	applogger "FinRegime/pkg/logger"
)

// Exporter writes a run's labeled panels and summaries to a directory.
type Exporter struct {
	dir  string
	xlsx bool
	csv  *CSVWriter
	l    *applogger.Logger
}

// New creates an exporter; when xlsx is set a summary workbook is written too.
func New(dir string, xlsx bool, l *applogger.Logger) *Exporter {
	if l == nil {
		l = applogger.Nop()
	}
	return &Exporter{dir: dir, xlsx: xlsx, csv: NewCSVWriter(dir, l), l: l}
}

// Export writes every file for the named series of result and returns the paths.
func (e *Exporter) Export(ctx context.Context, result *models.RunResult, names []string) ([]string, error) {
	var paths []string
	sums := make([]models.RegimeSummary, 0, len(names)+1)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		ls, ok := result.Labeled[name]
		if !ok {
			continue
		}
		p, err := e.csv.WriteLabeled(ls)
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", name, err)
		}
		paths = append(paths, p)

		sum := result.Summaries.Series[name]
		if p, err = e.csv.WriteSummary(sum); err != nil {
			return paths, fmt.Errorf("export %s summary: %w", name, err)
		}
		paths = append(paths, p)
		sums = append(sums, sum)
	}

	p, err := e.csv.WriteCombined(result.Summaries.Combined)
	if err != nil {
		return paths, fmt.Errorf("export combined summary: %w", err)
	}
	paths = append(paths, p)
	sums = append(sums, result.Summaries.Combined)

	if e.xlsx {
		p := filepath.Join(e.dir, WorkbookFile)
		if err := WriteWorkbook(p, sums); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	e.l.Info("results exported",
		applogger.String("dir", e.dir),
		applogger.Int("files", len(paths)),
	)
	return paths, nil
}
