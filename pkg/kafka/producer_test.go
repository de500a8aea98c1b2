package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &memWriter{}
	p, err := NewProducer(ProducerConfig{Writer: w})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "runs", []byte("SP500"), map[string]int{"rows": 4}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "plain"))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "runs", w.msgs[0].Topic)
	assert.Equal(t, []byte("SP500"), w.msgs[0].Key)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 4, decoded["rows"])
	assert.Equal(t, []byte("plain"), w.msgs[1].Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishBatchPropagatesWriterError(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Writer: &memWriter{err: errors.New("broker down")}})
	require.NoError(t, err)

	err = p.PublishBatch(context.Background(), "runs", []Message{{Value: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.NoError(t, p.PublishBatch(context.Background(), "runs", nil))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	require.ErrorIs(t, err, ErrNoBrokers)
}

func TestProducerConfigWriter(t *testing.T) {
	w := ProducerConfig{Brokers: []string{"k1:9092", "k2:9092"}, Compression: "ZSTD", HashByKey: true}.withDefaults().writer()
	assert.Equal(t, kafka.Zstd, w.Compression)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
