package models

// CombinedSummaryName keys the summary computed over all series together.
const CombinedSummaryName = "combined"

// Stats aggregates one feature over a group, ignoring missing values.
type Stats struct {
	Count int       `json:"count"`
	Mean  NullFloat `json:"mean"`
	Std   NullFloat `json:"std"`
	Min   NullFloat `json:"min"`
	Max   NullFloat `json:"max"`
}

// RegimeStats holds the stats of each summarized feature for one regime.
type RegimeStats struct {
	Days              int   `json:"days"`
	LogReturn         Stats `json:"log_return"`
	RollingVolatility Stats `json:"vol_30d"`
	Drawdown          Stats `json:"drawdown"`
}

// RegimeSummary maps each regime present in a series to its stats.
type RegimeSummary struct {
	Name    string                 `json:"name"`
	Regimes map[Regime]RegimeStats `json:"regimes"`
}

// RegimeStatsRow pairs a regime with its stats for ordered iteration.
type RegimeStatsRow struct {
	Regime Regime
	Stats  RegimeStats
}

// Ordered returns the present regimes in reporting order.
func (s RegimeSummary) Ordered() []RegimeStatsRow {
	rows := make([]RegimeStatsRow, 0, len(s.Regimes))
	for _, r := range AllRegimes() {
		if st, ok := s.Regimes[r]; ok {
			rows = append(rows, RegimeStatsRow{Regime: r, Stats: st})
		}
	}
	return rows
}

// SummaryReport is the Regime Aggregator output.
type SummaryReport struct {
	Series   map[string]RegimeSummary `json:"series"`
	Combined RegimeSummary            `json:"combined"`
}
