package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"FinRegime/internal/domain/models"
)

const maxSheetName = 31

// WriteWorkbook writes one sheet per summary, in the given order, into path.
// Missing statistics are left as empty cells.
func WriteWorkbook(path string, sums []models.RegimeSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := SummaryHeader()
	for i, sum := range sums {
		sheet := sheetName(sum.Name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}

		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("sheet %s header: %w", sheet, err)
		}
		for r, row := range sum.Ordered() {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := workbookRow(row)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", sheet, r+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func workbookRow(row models.RegimeStatsRow) []interface{} {
	values := []interface{}{string(row.Regime), row.Stats.Days}
	for _, st := range []models.Stats{row.Stats.LogReturn, row.Stats.RollingVolatility, row.Stats.Drawdown} {
		values = append(values, st.Count, cellValue(st.Mean), cellValue(st.Std), cellValue(st.Min), cellValue(st.Max))
	}
	return values
}

func cellValue(n models.NullFloat) interface{} {
	if !n.Valid {
		return nil
	}
	return n.Value
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
