package repository

import (
	"context"
	"time"

	"FinRegime/internal/domain/models"
	pkgkafka "FinRegime/pkg/kafka"
)

// Event types carried in the envelope.
const (
	EventRunCompleted     = "run.completed"
	EventSummaryPublished = "summary.published"
)

// Event is the envelope of every message published by KafkaEventPublisher.
type Event struct {
	Type       string      `json:"type"`
	RunID      string      `json:"run_id"`
	Series     string      `json:"series,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// KafkaEventPublisher implements EventPublisher for Kafka.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	now      func() time.Time
}

// NewKafkaEventPublisher creates Kafka publisher. Summaries are keyed by
// series name so consumers see them in order per index.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaEventPublisher) PublishRun(ctx context.Context, report models.RunReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(report.ID), Event{
		Type:       EventRunCompleted,
		RunID:      report.ID,
		OccurredAt: p.now().UTC(),
		Payload:    report,
	})
}

func (p *KafkaEventPublisher) PublishSummary(ctx context.Context, runID string, sum models.RegimeSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(sum.Name), Event{
		Type:       EventSummaryPublished,
		RunID:      runID,
		Series:     sum.Name,
		OccurredAt: p.now().UTC(),
		Payload:    sum,
	})
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
