package service

import (
	"FinRegime/internal/domain/models"
)

// FeatureEngine derives returns, volatility and drawdown from a raw series.
type FeatureEngine interface {
	Window() int
	Compute(s models.Series) models.FeaturedSeries
}

// RegimeLabeler assigns a regime to every observation of a featured series.
type RegimeLabeler interface {
	Label(s models.FeaturedSeries) models.LabeledSeries
}

// RegimeAggregator summarizes labeled series by regime.
type RegimeAggregator interface {
	Summarize(series map[string]models.LabeledSeries) models.SummaryReport
}
