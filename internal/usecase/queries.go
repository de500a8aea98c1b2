package usecase

import (
	"context"
	"fmt"
	"time"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	applogger "FinRegime/pkg/logger"
)

// RowFilter selects labeled rows of one series. Zero fields do not filter.
type RowFilter struct {
	Regime models.Regime
	From   time.Time
	To     time.Time
	Limit  int
}

// Queries answers read requests against the latest run, with the summary
// cache in front of it.
type Queries struct {
	p     *Pipeline
	cache domrepo.SummaryCache
	l     *applogger.Logger
}

// NewQueries creates the read side. cache may be nil.
func NewQueries(p *Pipeline, cache domrepo.SummaryCache, l *applogger.Logger) *Queries {
	if l == nil {
		l = applogger.Nop()
	}
	return &Queries{p: p, cache: cache, l: l}
}

// SeriesNames lists the series of the latest run in request order.
func (q *Queries) SeriesNames() ([]string, error) {
	rep, err := q.p.LatestReport()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rep.Processed))
	for _, d := range rep.Processed {
		out = append(out, d.Name)
	}
	return out, nil
}

// Rows returns the filtered rows of name and the number of rows matching
// before the limit was applied.
func (q *Queries) Rows(name string, f RowFilter) ([]models.LabeledObservation, int, error) {
	res, err := q.p.Latest()
	if err != nil {
		return nil, 0, err
	}
	ls, ok := res.Labeled[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, name)
	}

	out := make([]models.LabeledObservation, 0)
	total := 0
	for _, o := range ls.Observations {
		if f.Regime != "" && o.Regime != f.Regime {
			continue
		}
		if !f.From.IsZero() && o.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.Date.After(f.To) {
			continue
		}
		total++
		if f.Limit <= 0 || len(out) < f.Limit {
			out = append(out, o)
		}
	}
	return out, total, nil
}

// Summary returns the regime summary of name, or of all series for
// models.CombinedSummaryName. Only names of the latest run resolve; for those
// the cache is consulted first.
func (q *Queries) Summary(ctx context.Context, name string) (models.RegimeSummary, error) {
	res, err := q.p.Latest()
	if err != nil {
		return models.RegimeSummary{}, err
	}
	fallback := res.Summaries.Combined
	if name != models.CombinedSummaryName {
		sum, ok := res.Summaries.Series[name]
		if !ok {
			return models.RegimeSummary{}, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, name)
		}
		fallback = sum
	}

	if q.cache != nil {
		sum, ok, err := q.cache.GetSummary(ctx, name)
		if err != nil {
			q.l.Warn("summary cache read failed", applogger.String("series", name), applogger.Error(err))
		} else if ok {
			return sum, nil
		}
	}
	return fallback, nil
}

// Calendar returns the crisis intervals in effect.
func (q *Queries) Calendar() []models.CrisisInterval {
	return q.p.Calendar().Intervals()
}
