package exporter

import (
	"strconv"
	"time"

	"FinRegime/internal/domain/models"
)

// File names written under the export directory.
const (
	LabeledSuffix       = "_labeled.csv"
	SummarySuffix       = "_regime_summary.csv"
	CombinedSummaryFile = "all_indices_regime_summary.csv"
	WorkbookFile        = "regime_summaries.xlsx"
)

var labeledHeader = []string{
	"Date", "Close", "log_return", "vol_30d", "peak", "drawdown",
	"regime", "crisis_name", "is_crisis", "is_pre_crisis", "is_high_risk",
}

var summaryFeatures = []string{"log_return", "vol_30d", "drawdown"}
var summaryAggs = []string{"mean", "std", "min", "max"}

// LabeledHeader returns the column names of the labeled panel export.
func LabeledHeader() []string {
	return append([]string(nil), labeledHeader...)
}

func labeledRecord(o models.LabeledObservation) []string {
	crisis := ""
	if o.CrisisName != nil {
		crisis = *o.CrisisName
	}
	return []string{
		o.Date.Format(time.DateOnly),
		o.Close.String(),
		o.LogReturn.String(),
		o.RollingVolatility.String(),
		o.RunningPeak.String(),
		o.Drawdown.String(),
		string(o.Regime),
		crisis,
		bit(o.IsCrisis),
		bit(o.IsPreCrisis),
		bit(o.IsHighRisk),
	}
}

// SummaryHeader is regime, days, then <feature>_<agg> for every feature,
// plus <feature>_count so empty groups stay distinguishable.
func SummaryHeader() []string {
	h := []string{"regime", "days"}
	for _, f := range summaryFeatures {
		h = append(h, f+"_count")
		for _, a := range summaryAggs {
			h = append(h, f+"_"+a)
		}
	}
	return h
}

func summaryRecords(sum models.RegimeSummary) [][]string {
	rows := sum.Ordered()
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := []string{string(r.Regime), strconv.Itoa(r.Stats.Days)}
		for _, st := range []models.Stats{r.Stats.LogReturn, r.Stats.RollingVolatility, r.Stats.Drawdown} {
			rec = append(rec,
				strconv.Itoa(st.Count),
				st.Mean.String(),
				st.Std.String(),
				st.Min.String(),
				st.Max.String(),
			)
		}
		out = append(out, rec)
	}
	return out
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
