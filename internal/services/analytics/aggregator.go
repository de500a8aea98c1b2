package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"FinRegime/internal/domain/models"
	domsvc "FinRegime/internal/domain/service"
)

// Aggregator groups labeled observations by regime and summarizes
// log_return, vol_30d and drawdown for each group.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

// Summarize computes one summary per series and a combined summary over the
// concatenation of every series' rows.
func (a *Aggregator) Summarize(series map[string]models.LabeledSeries) models.SummaryReport {
	report := models.SummaryReport{Series: make(map[string]models.RegimeSummary, len(series))}
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	// Fixed order keeps the combined sums reproducible.
	sort.Strings(names)

	all := newAccumulator()
	for _, name := range names {
		s := series[name]
		acc := newAccumulator()
		for _, o := range s.Observations {
			acc.add(o)
			all.add(o)
		}
		report.Series[name] = acc.summary(name)
	}
	report.Combined = all.summary(models.CombinedSummaryName)
	return report
}

// SummarizeSeries computes the summary of a single series.
func (a *Aggregator) SummarizeSeries(s models.LabeledSeries) models.RegimeSummary {
	acc := newAccumulator()
	for _, o := range s.Observations {
		acc.add(o)
	}
	return acc.summary(s.Name)
}

type group struct {
	days    int
	returns []float64
	vols    []float64
	dds     []float64
}

type accumulator struct {
	groups map[models.Regime]*group
}

func newAccumulator() *accumulator {
	return &accumulator{groups: make(map[models.Regime]*group, 4)}
}

func (acc *accumulator) add(o models.LabeledObservation) {
	g, ok := acc.groups[o.Regime]
	if !ok {
		g = &group{}
		acc.groups[o.Regime] = g
	}
	g.days++
	if o.LogReturn.Valid {
		g.returns = append(g.returns, o.LogReturn.Value)
	}
	if o.RollingVolatility.Valid {
		g.vols = append(g.vols, o.RollingVolatility.Value)
	}
	if o.Drawdown.Valid {
		g.dds = append(g.dds, o.Drawdown.Value)
	}
}

func (acc *accumulator) summary(name string) models.RegimeSummary {
	sum := models.RegimeSummary{Name: name, Regimes: make(map[models.Regime]models.RegimeStats, len(acc.groups))}
	for r, g := range acc.groups {
		sum.Regimes[r] = models.RegimeStats{
			Days:              g.days,
			LogReturn:         Describe(g.returns),
			RollingVolatility: Describe(g.vols),
			Drawdown:          Describe(g.dds),
		}
	}
	return sum
}

// Describe returns count, mean, sample std, min and max of xs.
// Std needs at least two values; every statistic of an empty slice is missing.
func Describe(xs []float64) models.Stats {
	st := models.Stats{Count: len(xs)}
	if len(xs) == 0 {
		return st
	}
	st.Mean = models.Some(stat.Mean(xs, nil))
	st.Min = models.Some(floats.Min(xs))
	st.Max = models.Some(floats.Max(xs))
	if len(xs) > 1 {
		v := stat.Variance(xs, nil)
		if v < 0 {
			v = 0
		}
		st.Std = models.Some(math.Sqrt(v))
	}
	return st
}

var _ domsvc.RegimeAggregator = (*Aggregator)(nil)
