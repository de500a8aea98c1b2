package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	domsvc "FinRegime/internal/domain/service"
	"FinRegime/internal/services/analytics"
	"FinRegime/internal/services/calendar"
	"FinRegime/pkg/util"
)

type fakeSource struct {
	series  map[string]models.Series
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) Load(ctx context.Context, name string) (models.Series, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Series{}, err
	}
	s, ok := f.series[name]
	if !ok {
		return models.Series{}, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, name)
	}
	return s, nil
}

type recordingSink struct {
	mu    sync.Mutex
	name  string
	err   error
	calls [][]string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Consume(_ context.Context, _ *models.RunResult, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), names...))
	return s.err
}

type countingMetrics struct {
	mu         sync.Mutex
	series     map[string]string
	sinkErrors []string
}

func (m *countingMetrics) RecordSeries(name, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.series == nil {
		m.series = map[string]string{}
	}
	m.series[name] = status
}
func (m *countingMetrics) RecordMissingReturns(string, int) {}
func (m *countingMetrics) RecordRegimeDays(string, map[models.Regime]int) {}
func (m *countingMetrics) RecordStage(string, time.Duration) {}
func (m *countingMetrics) RecordSinkError(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkErrors = append(m.sinkErrors, sink)
}

// dailySeries builds n consecutive calendar days of prices starting at start.
func dailySeries(name, start string, n int, price func(i int) float64) models.Series {
	d0 := util.MustParseDate(start)
	s := models.Series{Name: name}
	for i := 0; i < n; i++ {
		s.Observations = append(s.Observations, models.PriceObservation{
			Date:  d0.AddDate(0, 0, i),
			Close: models.Some(price(i)),
		})
	}
	return s
}

func growing(i int) float64 { return 100 * (1 + 0.001*float64(i)) }

func newTestPipeline(src domrepo.SeriesSource, sinks []ResultSink, m domrepo.Metrics) *Pipeline {
	p := NewPipeline(src, calendar.Default(), analytics.NewAggregator(), sinks, m, nil, PipelineConfig{
		Series:           []string{"SP500", "FTSE100"},
		Workers:          2,
		Window:           5,
		PreCrisisMonths:  6,
		PostCrisisMonths: 6,
	})
	p.newID = func() string { return "run-test" }
	return p
}

func TestPipelineSkipsFailedSeries(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500": dailySeries("SP500", "2008-01-01", 400, growing),
	}}
	m := &countingMetrics{}
	sink := &recordingSink{name: "rec"}
	p := newTestPipeline(src, []ResultSink{sink}, m)

	res, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "run-test", res.ID)
	assert.Equal(t, models.RunCompletedWithSkips, res.Status)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "FTSE100", res.Skipped[0].Name)
	assert.Contains(t, res.Skipped[0].Reason, "series not found")

	require.Contains(t, res.Labeled, "SP500")
	assert.Len(t, res.Labeled["SP500"].Observations, 400)
	assert.Equal(t, res.Summaries.Series["SP500"].Regimes, res.Summaries.Combined.Regimes,
		"with one processed series the combined summary equals it")

	assert.Equal(t, [][]string{{"SP500"}}, sink.calls)
	assert.Equal(t, map[string]string{"SP500": "processed", "FTSE100": "skipped"}, m.series)
}

func TestPipelineAllSeriesFailed(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	p := newTestPipeline(&fakeSource{}, []ResultSink{sink}, nil)

	res, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, res.Status)
	assert.Len(t, res.Skipped, 2)
	assert.Empty(t, sink.calls, "sinks are not invoked for a failed run")

	rep, err := p.LatestReport()
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, rep.Status)
	assert.Empty(t, rep.Processed)
}

func TestPipelineSkipsReservedSeriesName(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500":                    dailySeries("SP500", "2020-01-01", 20, growing),
		models.CombinedSummaryName: dailySeries(models.CombinedSummaryName, "2020-01-01", 20, growing),
	}}
	p := newTestPipeline(src, nil, nil)

	res, err := p.Run(context.Background(), RunOptions{Series: []string{"SP500", models.CombinedSummaryName}})
	require.NoError(t, err)
	assert.Equal(t, models.RunCompletedWithSkips, res.Status)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, models.CombinedSummaryName, res.Skipped[0].Name)
	assert.Equal(t, ErrReservedName.Error(), res.Skipped[0].Reason)
	assert.NotContains(t, res.Labeled, models.CombinedSummaryName)
	assert.NotContains(t, res.Summaries.Series, models.CombinedSummaryName)
	days := 0
	for _, st := range res.Summaries.Combined.Regimes {
		days += st.Days
	}
	assert.Equal(t, 20, days)
}

func TestPipelineSinkFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500":   dailySeries("SP500", "2019-06-01", 60, growing),
		"FTSE100": dailySeries("FTSE100", "2019-06-01", 60, growing),
	}}
	m := &countingMetrics{}
	bad := &recordingSink{name: "kafka", err: errors.New("broker down")}
	good := &recordingSink{name: "cache"}
	p := newTestPipeline(src, []ResultSink{bad, good}, m)

	res, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, res.Status)
	assert.Equal(t, []models.SinkError{{Sink: "kafka", Reason: "broker down"}}, res.SinkErrors)
	assert.Equal(t, [][]string{{"SP500", "FTSE100"}}, good.calls, "later sinks still run, in request order")
	assert.Equal(t, []string{"kafka"}, m.sinkErrors)
	assert.Len(t, res.Labeled, 2)
}

func TestPipelineRunOptionsOverrideDefaults(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"NASDAQ": dailySeries("NASDAQ", "2020-01-01", 40, growing),
	}}
	p := newTestPipeline(src, nil, nil)

	zero := 0
	res, err := p.Run(context.Background(), RunOptions{
		Series:           []string{"NASDAQ", "NASDAQ"},
		Window:           10,
		PreCrisisMonths:  &zero,
		PostCrisisMonths: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, res.Status)
	require.Len(t, res.Labeled, 1)

	ls := res.Labeled["NASDAQ"]
	assert.Equal(t, 0, ls.PreCrisisMonths)
	assert.Equal(t, 0, ls.PostCrisisMonths)
	// window 10: rows 0..9 have no volatility, row 10 is the first full window
	assert.False(t, ls.Observations[9].RollingVolatility.Valid)
	assert.True(t, ls.Observations[10].RollingVolatility.Valid)
	// 2020-01-01..2020-02-09 lies before the covid crash (2020-02-15) and buffers are zero
	assert.Equal(t, map[models.Regime]int{models.RegimeNormal: 40}, ls.RegimeCounts())
}

func TestPipelineRejectsNegativeBuffer(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, nil, nil)
	neg := -1
	_, err := p.Run(context.Background(), RunOptions{PreCrisisMonths: &neg})
	require.Error(t, err)
}

func TestPipelineCancellation(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500": dailySeries("SP500", "2008-01-01", 10, growing),
	}}
	p := newTestPipeline(src, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Latest()
	assert.ErrorIs(t, err, ErrNoRun, "an aborted run is not recorded")
}

func TestPipelineRejectsConcurrentRun(t *testing.T) {
	src := &fakeSource{
		series:  map[string]models.Series{"SP500": dailySeries("SP500", "2008-01-01", 10, growing)},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	p := newTestPipeline(src, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), RunOptions{Series: []string{"SP500"}})
		done <- err
	}()
	<-src.entered

	_, err := p.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(src.block)
	require.NoError(t, <-done)
}

func TestBuildReport(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500":   dailySeries("SP500", "2020-02-01", 30, growing),
		"FTSE100": dailySeries("FTSE100", "2020-02-01", 20, growing),
	}}
	p := newTestPipeline(src, nil, nil)
	res, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	rep := BuildReport(res, []string{"FTSE100", "SP500"})
	require.Len(t, rep.Processed, 2)
	assert.Equal(t, "FTSE100", rep.Processed[0].Name)
	assert.Equal(t, 20, rep.Processed[0].Rows)
	assert.Equal(t, 1, rep.Processed[0].MissingReturns)
	assert.NotNil(t, rep.Skipped)
	assert.Equal(t, []string{"FTSE100", "SP500"}, SortedNames(res))
}

type countingEngine struct {
	domsvc.FeatureEngine
	calls atomic.Int32
}

func (e *countingEngine) Compute(s models.Series) models.FeaturedSeries {
	e.calls.Add(1)
	return e.FeatureEngine.Compute(s)
}

type countingLabeler struct {
	domsvc.RegimeLabeler
	calls atomic.Int32
}

func (l *countingLabeler) Label(s models.FeaturedSeries) models.LabeledSeries {
	l.calls.Add(1)
	return l.RegimeLabeler.Label(s)
}

func TestPipelineBuildsStagesPerRun(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"SP500":   dailySeries("SP500", "2020-01-01", 20, growing),
		"FTSE100": dailySeries("FTSE100", "2020-01-01", 20, growing),
	}}
	p := newTestPipeline(src, nil, nil)

	var windows []int
	var buffers [][2]int
	engine := &countingEngine{}
	labeler := &countingLabeler{}
	p.newEngine = func(window int) domsvc.FeatureEngine {
		windows = append(windows, window)
		engine.FeatureEngine = defaultEngine(window)
		return engine
	}
	p.newLabeler = func(cal *calendar.Calendar, pre, post int) (domsvc.RegimeLabeler, error) {
		buffers = append(buffers, [2]int{pre, post})
		inner, err := defaultLabeler(cal, pre, post)
		labeler.RegimeLabeler = inner
		return labeler, err
	}

	three := 3
	_, err := p.Run(context.Background(), RunOptions{Window: 7, PostCrisisMonths: &three})
	require.NoError(t, err)

	assert.Equal(t, []int{7}, windows)
	assert.Equal(t, [][2]int{{6, 3}}, buffers)
	assert.EqualValues(t, 2, engine.calls.Load())
	assert.EqualValues(t, 2, labeler.calls.Load())
}
