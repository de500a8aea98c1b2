package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	domsvc "FinRegime/internal/domain/service"
	"FinRegime/internal/services/calendar"
	"FinRegime/internal/services/features"
	"FinRegime/internal/services/regime"
	applogger "FinRegime/pkg/logger"
)

var (
	// ErrNoRun is returned by queries before the first run has finished.
	ErrNoRun = errors.New("no completed run")
	// ErrRunInProgress is returned when a run is requested while another is executing.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrNoSeries is returned when a run has nothing to process.
	ErrNoSeries = errors.New("no series requested")
	// ErrReservedName marks a series whose name collides with the combined summary.
	ErrReservedName = errors.New("series name is reserved for the combined summary")
)

// Pipeline stage names used for metrics.
const (
	StageLoad      = "load"
	StageFeatures  = "features"
	StageLabel     = "label"
	StageAggregate = "aggregate"
	StageSinks     = "sinks"
)

// PipelineConfig holds the defaults a run falls back to.
type PipelineConfig struct {
	Series           []string
	Workers          int
	Window           int
	PreCrisisMonths  int
	PostCrisisMonths int
}

// RunOptions overrides PipelineConfig for a single run. Zero values keep the defaults.
type RunOptions struct {
	Series           []string
	Window           int
	PreCrisisMonths  *int
	PostCrisisMonths *int
}

// Pipeline loads every requested series, computes features, labels regimes
// and aggregates the result. Series are processed concurrently; a series that
// fails to load is skipped without affecting the others.
type Pipeline struct {
	source  domrepo.SeriesSource
	cal     *calendar.Calendar
	agg     domsvc.RegimeAggregator
	sinks   []ResultSink
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     PipelineConfig

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *models.RunResult
	report *models.RunReport

	newEngine  func(window int) domsvc.FeatureEngine
	newLabeler func(cal *calendar.Calendar, pre, post int) (domsvc.RegimeLabeler, error)
	newID      func() string
	now        func() time.Time
}

func defaultEngine(window int) domsvc.FeatureEngine { return features.NewEngine(window) }

func defaultLabeler(cal *calendar.Calendar, pre, post int) (domsvc.RegimeLabeler, error) {
	l, err := regime.NewLabeler(cal, pre, post)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// NewPipeline wires a pipeline. metrics and l may be nil.
func NewPipeline(
	source domrepo.SeriesSource,
	cal *calendar.Calendar,
	agg domsvc.RegimeAggregator,
	sinks []ResultSink,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PipelineConfig,
) *Pipeline {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Series) == 0 {
		cfg.Series = models.DefaultIndexNames()
	}
	return &Pipeline{
		source:  source,
		cal:     cal,
		agg:     agg,
		sinks:   sinks,
		metrics: metrics,
		l:       l,
		cfg:     cfg,

		newEngine:  defaultEngine,
		newLabeler: defaultLabeler,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Calendar returns the crisis calendar used for labeling.
func (p *Pipeline) Calendar() *calendar.Calendar { return p.cal }

// Run executes one pipeline run. A run is rejected with ErrRunInProgress while
// another one executes. Context cancellation aborts the run with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*models.RunResult, error) {
	res, _, err := p.run(ctx, opts)
	return res, err
}

// RunReport executes one run like Run and returns its report.
func (p *Pipeline) RunReport(ctx context.Context, opts RunOptions) (models.RunReport, error) {
	_, rep, err := p.run(ctx, opts)
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions) (*models.RunResult, models.RunReport, error) {
	if !p.runMu.TryLock() {
		return nil, models.RunReport{}, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	names := dedupe(opts.Series)
	if len(names) == 0 {
		names = dedupe(p.cfg.Series)
	}
	if len(names) == 0 {
		return nil, models.RunReport{}, ErrNoSeries
	}

	window := p.cfg.Window
	if opts.Window > 0 {
		window = opts.Window
	}
	pre, post := p.cfg.PreCrisisMonths, p.cfg.PostCrisisMonths
	if opts.PreCrisisMonths != nil {
		pre = *opts.PreCrisisMonths
	}
	if opts.PostCrisisMonths != nil {
		post = *opts.PostCrisisMonths
	}

	labeler, err := p.newLabeler(p.cal, pre, post)
	if err != nil {
		return nil, models.RunReport{}, err
	}
	engine := p.newEngine(window)

	result := &models.RunResult{
		ID:        p.newID(),
		StartedAt: p.now().UTC(),
		Labeled:   make(map[string]models.LabeledSeries, len(names)),
	}
	log := p.l.With(applogger.String("run_id", result.ID))
	log.Info("pipeline run started",
		applogger.Strings("series", names),
		applogger.Int("window", engine.Window()),
		applogger.Int("pre_crisis_months", pre),
		applogger.Int("post_crisis_months", post),
		applogger.Int("workers", p.cfg.Workers),
	)

	slots := make([]seriesOutcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, name := range names {
		g.Go(func() error {
			out, err := p.processSeries(gctx, log, engine, labeler, name)
			if err != nil {
				return err
			}
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("pipeline run aborted", applogger.Error(err))
		return nil, models.RunReport{}, err
	}

	for i, out := range slots {
		if out.skipped != "" {
			result.Skipped = append(result.Skipped, models.SkippedSeries{Name: names[i], Reason: out.skipped})
			continue
		}
		result.Labeled[names[i]] = out.labeled
	}

	start := time.Now()
	result.Summaries = p.agg.Summarize(result.Labeled)
	p.metrics.RecordStage(StageAggregate, time.Since(start))

	switch {
	case len(result.Labeled) == 0:
		result.Status = models.RunFailed
	case len(result.Skipped) > 0:
		result.Status = models.RunCompletedWithSkips
	default:
		result.Status = models.RunCompleted
	}

	processed := result.Names(names)
	if result.Status != models.RunFailed {
		start = time.Now()
		p.consume(ctx, log, result, processed)
		p.metrics.RecordStage(StageSinks, time.Since(start))
	}
	result.FinishedAt = p.now().UTC()

	report := BuildReport(result, processed)
	p.mu.Lock()
	p.latest = result
	p.report = &report
	p.mu.Unlock()

	log.Info("pipeline run finished",
		applogger.String("status", string(result.Status)),
		applogger.Int("processed", len(processed)),
		applogger.Int("skipped", len(result.Skipped)),
		applogger.Int("sink_errors", len(result.SinkErrors)),
		applogger.Duration("duration_ms", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, report, nil
}

type seriesOutcome struct {
	labeled models.LabeledSeries
	skipped string
}

// processSeries only returns an error for cancellation; load failures become skips.
func (p *Pipeline) processSeries(
	ctx context.Context,
	log *applogger.Logger,
	engine domsvc.FeatureEngine,
	labeler domsvc.RegimeLabeler,
	name string,
) (seriesOutcome, error) {
	log = log.With(applogger.String("series", name))

	if name == models.CombinedSummaryName {
		log.Warn("series skipped", applogger.Error(ErrReservedName))
		p.metrics.RecordSeries(name, "skipped")
		return seriesOutcome{skipped: ErrReservedName.Error()}, nil
	}

	start := time.Now()
	raw, err := p.source.Load(ctx, name)
	p.metrics.RecordStage(StageLoad, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return seriesOutcome{}, ctxErr
		}
		log.Warn("series skipped", applogger.Error(err))
		p.metrics.RecordSeries(name, "skipped")
		return seriesOutcome{skipped: err.Error()}, nil
	}
	if raw.DroppedRows > 0 {
		log.Warn("rows with unparseable dates dropped", applogger.Int("dropped_rows", raw.DroppedRows))
	}
	if err := ctx.Err(); err != nil {
		return seriesOutcome{}, err
	}

	start = time.Now()
	featured := engine.Compute(raw)
	p.metrics.RecordStage(StageFeatures, time.Since(start))
	p.metrics.RecordMissingReturns(name, featured.MissingReturns)
	log.Info("features computed",
		applogger.Int("rows", len(featured.Observations)),
		applogger.Int("missing_log_returns", featured.MissingReturns),
	)
	if err := ctx.Err(); err != nil {
		return seriesOutcome{}, err
	}

	start = time.Now()
	labeled := labeler.Label(featured)
	p.metrics.RecordStage(StageLabel, time.Since(start))
	counts := labeled.RegimeCounts()
	p.metrics.RecordRegimeDays(name, counts)
	crisisDays, preCrisisDays := labeled.FlagCounts()
	log.Info("regimes labeled",
		applogger.Int("crisis_days", crisisDays),
		applogger.Int("pre_crisis_days", preCrisisDays),
		applogger.Int("post_crisis_days", counts[models.RegimePostCrisis]),
		applogger.Int("normal_days", counts[models.RegimeNormal]),
	)
	p.metrics.RecordSeries(name, "processed")
	return seriesOutcome{labeled: labeled}, nil
}

// consume hands the result to every sink. A failing sink is logged and
// recorded on the result; the others still run.
func (p *Pipeline) consume(ctx context.Context, log *applogger.Logger, result *models.RunResult, names []string) {
	for _, s := range p.sinks {
		if err := s.Consume(ctx, result, names); err != nil {
			log.Error("result sink failed", applogger.String("sink", s.Name()), applogger.Error(err))
			p.metrics.RecordSinkError(s.Name())
			result.SinkErrors = append(result.SinkErrors, models.SinkError{Sink: s.Name(), Reason: err.Error()})
		}
	}
}

// Latest returns the most recent run result.
func (p *Pipeline) Latest() (*models.RunResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil, ErrNoRun
	}
	return p.latest, nil
}

// LatestReport returns the report of the most recent run.
func (p *Pipeline) LatestReport() (models.RunReport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.report == nil {
		return models.RunReport{}, ErrNoRun
	}
	return *p.report, nil
}

// BuildReport projects a run result onto its transport view. names fixes the
// order of the processed series.
func BuildReport(r *models.RunResult, names []string) models.RunReport {
	rep := models.RunReport{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Status:     r.Status,
		Processed:  make([]models.SeriesDigest, 0, len(names)),
		Skipped:    r.Skipped,
		SinkErrors: r.SinkErrors,
	}
	if rep.Skipped == nil {
		rep.Skipped = []models.SkippedSeries{}
	}
	for _, n := range names {
		ls, ok := r.Labeled[n]
		if !ok {
			continue
		}
		rep.Processed = append(rep.Processed, models.SeriesDigest{
			Name:           n,
			Rows:           len(ls.Observations),
			MissingReturns: ls.MissingReturns,
			RegimeDays:     ls.RegimeCounts(),
		})
	}
	return rep
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SortedNames returns the labeled series names of r in lexical order.
func SortedNames(r *models.RunResult) []string {
	out := make([]string, 0, len(r.Labeled))
	for n := range r.Labeled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordSeries(string, string) {}
func (nopMetrics) RecordMissingReturns(string, int) {}
func (nopMetrics) RecordRegimeDays(string, map[models.Regime]int) {}
func (nopMetrics) RecordStage(string, time.Duration) {}
func (nopMetrics) RecordSinkError(string) {}

