package models

// FeaturedObservation extends a price observation with derived features.
type FeaturedObservation struct {
	PriceObservation
	LogReturn         NullFloat `json:"log_return"`
	RollingVolatility NullFloat `json:"vol_30d"`
	RunningPeak       NullFloat `json:"peak"`
	Drawdown          NullFloat `json:"drawdown"`
}

// FeaturedSeries is the Feature Engine output for one index.
type FeaturedSeries struct {
	Name           string                `json:"name"`
	Window         int                   `json:"window"`
	Observations   []FeaturedObservation `json:"observations"`
	MissingReturns int                   `json:"missing_returns"`
}
