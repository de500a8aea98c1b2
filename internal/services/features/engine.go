package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"FinRegime/internal/domain/models"
	domsvc "FinRegime/internal/domain/service"
)

// DefaultWindow is the rolling volatility window in trading days.
const DefaultWindow = 30

// Engine computes log returns, rolling volatility, running peak and drawdown.
// It holds no state besides its window and is safe for concurrent use.
type Engine struct {
	window int
}

// NewEngine builds an engine with the given rolling window; values below 2 fall back to DefaultWindow.
func NewEngine(window int) *Engine {
	if window < 2 {
		window = DefaultWindow
	}
	return &Engine{window: window}
}

// Window returns the rolling volatility window.
func (e *Engine) Window() int { return e.window }

// Compute derives all features for s. The result has the same length and dates as s.
func (e *Engine) Compute(s models.Series) models.FeaturedSeries {
	out := models.FeaturedSeries{
		Name:         s.Name,
		Window:       e.window,
		Observations: make([]models.FeaturedObservation, len(s.Observations)),
	}
	if len(s.Observations) == 0 {
		return out
	}

	rets := ComputeLogReturns(s.Observations)
	vols := RollingVolatility(rets, e.window)
	peaks, dds := Drawdowns(s.Observations)

	for i, o := range s.Observations {
		out.Observations[i] = models.FeaturedObservation{
			PriceObservation:  o,
			LogReturn:         rets[i],
			RollingVolatility: vols[i],
			RunningPeak:       peaks[i],
			Drawdown:          dds[i],
		}
		if !rets[i].Valid {
			out.MissingReturns++
		}
	}
	return out
}

// ComputeLogReturns returns r_t = ln(C_t) - ln(C_{t-1}) aligned with obs.
// r_0 is missing, as is any r_t whose current or previous close is missing or non-positive.
func ComputeLogReturns(obs []models.PriceObservation) []models.NullFloat {
	out := make([]models.NullFloat, len(obs))
	for i := 1; i < len(obs); i++ {
		prev := obs[i-1].Close
		cur := obs[i].Close
		if !positive(prev) || !positive(cur) {
			continue
		}
		out[i] = models.Some(math.Log(cur.Value) - math.Log(prev.Value))
	}
	return out
}

// RollingVolatility returns the sample standard deviation of the trailing window of returns.
// A position is missing until window consecutive defined returns end at it.
func RollingVolatility(rets []models.NullFloat, window int) []models.NullFloat {
	out := make([]models.NullFloat, len(rets))
	if window < 2 {
		return out
	}
	buf := make([]float64, window)
	run := 0
	for i, r := range rets {
		if !r.Valid {
			run = 0
			continue
		}
		run++
		if run < window {
			continue
		}
		for j := 0; j < window; j++ {
			buf[j] = rets[i-window+1+j].Value
		}
		v := stat.Variance(buf, nil)
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		out[i] = models.Some(math.Sqrt(v))
	}
	return out
}

// Drawdowns returns the running peak and drawdown for each observation.
// Missing closes do not move the peak and have no drawdown; neither does a
// close under a zero or still undefined peak.
func Drawdowns(obs []models.PriceObservation) (peaks, drawdowns []models.NullFloat) {
	peaks = make([]models.NullFloat, len(obs))
	drawdowns = make([]models.NullFloat, len(obs))
	var peak models.NullFloat
	for i, o := range obs {
		if o.Close.Valid && (!peak.Valid || o.Close.Value > peak.Value) {
			peak = o.Close
		}
		peaks[i] = peak
		if !o.Close.Valid || !peak.Valid || peak.Value == 0 {
			continue
		}
		drawdowns[i] = models.Some((o.Close.Value - peak.Value) / peak.Value)
	}
	return peaks, drawdowns
}

func positive(v models.NullFloat) bool {
	return v.Valid && v.Value > 0
}

var _ domsvc.FeatureEngine = (*Engine)(nil)
