package usecase

import (
	"context"
	"errors"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
)

// ResultSink consumes a finished run. names lists the processed series in
// request order.
type ResultSink interface {
	Name() string
	Consume(ctx context.Context, result *models.RunResult, names []string) error
}

// Exporter is implemented by the file exporter.
type Exporter interface {
	Export(ctx context.Context, result *models.RunResult, names []string) ([]string, error)
}

// ExportSink writes CSV/XLSX files.
type ExportSink struct{ exp Exporter }

func NewExportSink(exp Exporter) *ExportSink { return &ExportSink{exp: exp} }

func (s *ExportSink) Name() string { return "export" }

func (s *ExportSink) Consume(ctx context.Context, result *models.RunResult, names []string) error {
	_, err := s.exp.Export(ctx, result, names)
	return err
}

// StoreSink persists labeled rows and summaries.
type StoreSink struct{ store domrepo.LabeledStore }

func NewStoreSink(store domrepo.LabeledStore) *StoreSink { return &StoreSink{store: store} }

func (s *StoreSink) Name() string { return "clickhouse" }

// Consume stores every series even if an earlier one failed and reports all failures.
func (s *StoreSink) Consume(ctx context.Context, result *models.RunResult, names []string) error {
	var errs []error
	for _, n := range names {
		if err := s.store.StoreLabeled(ctx, result.ID, result.Labeled[n]); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.store.StoreSummary(ctx, result.ID, result.Summaries.Series[n]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.StoreSummary(ctx, result.ID, result.Summaries.Combined); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PublishSink emits one summary event per series, the combined summary and
// finally the run report.
type PublishSink struct{ pub domrepo.EventPublisher }

func NewPublishSink(pub domrepo.EventPublisher) *PublishSink { return &PublishSink{pub: pub} }

func (s *PublishSink) Name() string { return "kafka" }

func (s *PublishSink) Consume(ctx context.Context, result *models.RunResult, names []string) error {
	for _, n := range names {
		if err := s.pub.PublishSummary(ctx, result.ID, result.Summaries.Series[n]); err != nil {
			return err
		}
	}
	if err := s.pub.PublishSummary(ctx, result.ID, result.Summaries.Combined); err != nil {
		return err
	}
	return s.pub.PublishRun(ctx, BuildReport(result, names))
}

// CacheSink replaces the cached summaries with those of the current run.
// Entries of series the run did not process are dropped.
type CacheSink struct{ cache domrepo.SummaryCache }

func NewCacheSink(cache domrepo.SummaryCache) *CacheSink { return &CacheSink{cache: cache} }

func (s *CacheSink) Name() string { return "cache" }

func (s *CacheSink) Consume(ctx context.Context, result *models.RunResult, names []string) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return err
	}
	for _, n := range names {
		if err := s.cache.PutSummary(ctx, result.Summaries.Series[n]); err != nil {
			return err
		}
	}
	return s.cache.PutSummary(ctx, result.Summaries.Combined)
}
