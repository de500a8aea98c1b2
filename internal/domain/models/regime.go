package models

import "time"

// Regime is the market-state label assigned to a trading day.
type Regime string

const (
	RegimeNormal     Regime = "normal"
	RegimePreCrisis  Regime = "pre_crisis"
	RegimeCrisis     Regime = "crisis"
	RegimePostCrisis Regime = "post_crisis"
)

// AllRegimes returns every regime in reporting order.
func AllRegimes() []Regime {
	return []Regime{RegimeNormal, RegimePreCrisis, RegimeCrisis, RegimePostCrisis}
}

// Valid reports whether r is a known regime.
func (r Regime) Valid() bool {
	switch r {
	case RegimeNormal, RegimePreCrisis, RegimeCrisis, RegimePostCrisis:
		return true
	default:
		return false
	}
}

// CrisisInterval is a named historical crisis window, both bounds inclusive.
type CrisisInterval struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LabeledObservation extends a featured observation with its regime attribution.
type LabeledObservation struct {
	FeaturedObservation
	Regime      Regime  `json:"regime"`
	CrisisName  *string `json:"crisis_name"`
	IsCrisis    bool    `json:"is_crisis"`
	IsPreCrisis bool    `json:"is_pre_crisis"`
	IsHighRisk  bool    `json:"is_high_risk"`
}

// LabeledSeries is the Regime Labeler output for one index.
type LabeledSeries struct {
	Name             string               `json:"name"`
	PreCrisisMonths  int                  `json:"pre_crisis_months"`
	PostCrisisMonths int                  `json:"post_crisis_months"`
	MissingReturns   int                  `json:"missing_returns"`
	Observations     []LabeledObservation `json:"observations"`
}

// RegimeCounts returns the number of days per regime.
func (s LabeledSeries) RegimeCounts() map[Regime]int {
	out := make(map[Regime]int, 4)
	for _, o := range s.Observations {
		out[o.Regime]++
	}
	return out
}

// FlagCounts returns the number of crisis and pre-crisis days.
func (s LabeledSeries) FlagCounts() (crisis, preCrisis int) {
	for _, o := range s.Observations {
		if o.IsCrisis {
			crisis++
		}
		if o.IsPreCrisis {
			preCrisis++
		}
	}
	return crisis, preCrisis
}
