package repository

import (
	"context"
	"errors"
	"time"

	"FinRegime/internal/domain/models"
)

var (
	// ErrMalformedSeries marks input that cannot be turned into a dated price series.
	ErrMalformedSeries = errors.New("malformed series")
	// ErrSeriesNotFound is returned when a source has no data for a series name.
	ErrSeriesNotFound = errors.New("series not found")
)

// SeriesSource supplies raw price series by index name.
type SeriesSource interface {
	Load(ctx context.Context, name string) (models.Series, error)
}

// LabeledStore persists labeled rows and regime summaries.
type LabeledStore interface {
	StoreLabeled(ctx context.Context, runID string, s models.LabeledSeries) error
	StoreSummary(ctx context.Context, runID string, sum models.RegimeSummary) error
	Health(ctx context.Context) error
}

// EventPublisher emits run lifecycle events.
type EventPublisher interface {
	PublishRun(ctx context.Context, report models.RunReport) error
	PublishSummary(ctx context.Context, runID string, sum models.RegimeSummary) error
	Close() error
}

// SummaryCache keeps the latest regime summaries for fast reads.
type SummaryCache interface {
	PutSummary(ctx context.Context, sum models.RegimeSummary) error
	GetSummary(ctx context.Context, name string) (models.RegimeSummary, bool, error)
	// Invalidate drops every cached summary.
	Invalidate(ctx context.Context) error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordSeries(name, status string)
	RecordMissingReturns(name string, n int)
	RecordRegimeDays(name string, counts map[models.Regime]int)
	RecordStage(stage string, d time.Duration)
	RecordSinkError(sink string)
}
