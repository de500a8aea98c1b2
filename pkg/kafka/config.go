package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures a Producer. Zero values take the defaults listed
// on each field.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int           // -1 (all replicas); set 1 for leader only
	Compression  string        // gzip | snappy | lz4 | zstd, default gzip
	MaxAttempts  int           // 3
	WriteTimeout time.Duration // 10s
	BatchTimeout time.Duration // 50ms
	// HashByKey keeps every event of one key on one partition.
	HashByKey bool
	// Writer replaces the network writer. Brokers are not needed then.
	Writer MessageWriter
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	return c
}

func (c ProducerConfig) writer() *kafka.Writer {
	bal := kafka.Balancer(&kafka.LeastBytes{})
	if c.HashByKey {
		bal = &kafka.Hash{}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(c.RequiredAcks),
		Compression:            compression(c.Compression),
		MaxAttempts:            c.MaxAttempts,
		WriteTimeout:           c.WriteTimeout,
		BatchTimeout:           c.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
}

func compression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}
