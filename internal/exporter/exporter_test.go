package exporter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"FinRegime/internal/domain/models"
	"FinRegime/pkg/util"
)

func sampleResult() *models.RunResult {
	gfc := "GFC"
	ls := models.LabeledSeries{
		Name: "SP500",
		Observations: []models.LabeledObservation{
			{
				FeaturedObservation: models.FeaturedObservation{
					PriceObservation: models.PriceObservation{Date: util.MustParseDate("2008-09-15"), Close: models.Some(1192.7)},
					RunningPeak:      models.Some(1192.7),
					Drawdown:         models.Some(0),
				},
				Regime:      models.RegimeCrisis,
				CrisisName:  &gfc,
				IsCrisis:    true,
				IsPreCrisis: true,
				IsHighRisk:  true,
			},
			{
				FeaturedObservation: models.FeaturedObservation{
					PriceObservation: models.PriceObservation{Date: util.MustParseDate("2008-09-16")},
				},
				Regime: models.RegimeNormal,
			},
		},
	}
	sum := models.RegimeSummary{Name: "SP500", Regimes: map[models.Regime]models.RegimeStats{
		models.RegimeCrisis: {Days: 1, Drawdown: models.Stats{Count: 1, Mean: models.Some(0), Min: models.Some(0), Max: models.Some(0)}},
		models.RegimeNormal: {Days: 1},
	}}
	combined := sum
	combined.Name = models.CombinedSummaryName
	return &models.RunResult{
		Labeled: map[string]models.LabeledSeries{"SP500": ls},
		Summaries: models.SummaryReport{
			Series:   map[string]models.RegimeSummary{"SP500": sum},
			Combined: combined,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestExportWritesAllFiles(t *testing.T) {
	dir := t.TempDir()
	paths, err := New(dir, true, nil).Export(context.Background(), sampleResult(), []string{"SP500", "UNKNOWN"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "SP500_labeled.csv"),
		filepath.Join(dir, "SP500_regime_summary.csv"),
		filepath.Join(dir, "all_indices_regime_summary.csv"),
		filepath.Join(dir, "regime_summaries.xlsx"),
	}, paths)

	labeled := readCSV(t, paths[0])
	require.Len(t, labeled, 3)
	assert.Equal(t, LabeledHeader(), labeled[0])
	assert.Equal(t, []string{"2008-09-15", "1192.7", "", "", "1192.7", "0", "crisis", "GFC", "1", "1", "1"}, labeled[1])
	assert.Equal(t, []string{"2008-09-16", "", "", "", "", "", "normal", "", "0", "0", "0"}, labeled[2])

	summary := readCSV(t, paths[1])
	require.Len(t, summary, 3)
	assert.Equal(t, "normal", summary[1][0], "regimes follow reporting order")
	assert.Equal(t, "crisis", summary[2][0])
	assert.Equal(t, "", summary[1][3], "missing mean renders empty")
}

func TestWriteWorkbookSheets(t *testing.T) {
	res := sampleResult()
	path := filepath.Join(t.TempDir(), "out", "book.xlsx")
	require.NoError(t, WriteWorkbook(path, []models.RegimeSummary{res.Summaries.Series["SP500"], res.Summaries.Combined}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"SP500", "combined"}, f.GetSheetList())
	rows, err := f.GetRows("SP500")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "regime", rows[0][0])
	assert.Equal(t, "crisis", rows[2][0])
}

func TestSheetNameTruncates(t *testing.T) {
	assert.Len(t, sheetName("A_VERY_LONG_INDEX_NAME_THAT_EXCEEDS_LIMIT"), maxSheetName)
	assert.Equal(t, "FTSE100", sheetName("FTSE100"))
}
