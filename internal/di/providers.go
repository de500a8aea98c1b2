package di

import (
	"context"
	"fmt"
	"time"

	"FinRegime/internal/domain/repository"
	domsvc "FinRegime/internal/domain/service"
	"FinRegime/internal/exporter"
	"FinRegime/internal/handler/api"
	internalrepo "FinRegime/internal/repository"
	"FinRegime/internal/service/ratelimit"
	"FinRegime/internal/services/analytics"
	"FinRegime/internal/services/calendar"
	"FinRegime/internal/usecase"
	"FinRegime/pkg/cache"
	pkgch "FinRegime/pkg/clickhouse"
	"FinRegime/pkg/config"
	"FinRegime/pkg/http/middleware"
	pkgkafka "FinRegime/pkg/kafka"
	applogger "FinRegime/pkg/logger"
	"FinRegime/pkg/metrics"
	"FinRegime/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.MaxAttempts,
		WriteTimeout: cfg.Kafka.WriteTimeout,
		HashByKey:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. Aggregated error logs are
// shipped through the producer when the collector is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if !cfg.Log.Collector.Enabled || producer == nil {
		return l, func() {}, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   cfg.Log.Collector.FlushInterval,
		CountThreshold: cfg.Log.Collector.CountThreshold,
		Topic:          cfg.Log.Collector.Topic,
		Publisher:      producer,
	})
	return l, l.RemoveCollector, nil
}

// ProvideClickHouseClient connects to ClickHouse and ensures the output schema,
// or returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(pkgch.Config{
		Host:             cfg.ClickHouse.Host,
		Port:             cfg.ClickHouse.Port,
		Database:         cfg.ClickHouse.Database,
		User:             cfg.ClickHouse.User,
		Password:         cfg.ClickHouse.Password,
		UseHTTP:          cfg.ClickHouse.UseHTTP,
		AsyncInsert:      cfg.ClickHouse.AsyncInsert,
		WaitForAsync:     cfg.ClickHouse.WaitForAsync,
		MaxExecutionTime: cfg.ClickHouse.MaxExecutionTime,
		DialTimeout:      cfg.ClickHouse.DialTimeout,
		ReadTimeout:      cfg.ClickHouse.ReadTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.LabeledSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected", applogger.String("database", client.Database()))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideCache creates the summary cache backend, or nil for cache.type none.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var svc cache.Service
	switch cfg.Cache.Type {
	case "none":
		return nil, func() {}, nil
	case "memory":
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
			cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		)
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdle, cfg.Cache.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Type == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MaxEntries),
				cache.WithLayeredMemoryTTL(cfg.Cache.TTL),
			)
		}
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideSummaryCache adapts the cache backend to summary storage.
func ProvideSummaryCache(cfg *config.Config, svc cache.Service) repository.SummaryCache {
	if svc == nil {
		return nil
	}
	return internalrepo.NewCacheSummaryStore(svc, cfg.Cache.TTL)
}

// ProvideSeriesSource selects where raw price series are read from.
func ProvideSeriesSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.SeriesSource, error) {
	switch cfg.Source.Type {
	case "csv":
		return internalrepo.NewCSVSource(cfg.Source.DataDir, l), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("clickhouse source requires clickhouse.enabled")
		}
		return internalrepo.NewCHSeriesSource(ch.DB(), ch.Database()+"."+cfg.Source.Table, l), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// ProvideCalendar builds the crisis calendar from config.
func ProvideCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	return cfg.CrisisCalendar()
}

func ProvideAggregator() domsvc.RegimeAggregator {
	return analytics.NewAggregator()
}

// ProvideMetrics creates a Prometheus metrics recorder, or nil when metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideSinks assembles the result sinks enabled in config. Sink order is
// the order results are handed out after a run.
func ProvideSinks(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	summaries repository.SummaryCache,
	l *applogger.Logger,
) []usecase.ResultSink {
	var sinks []usecase.ResultSink
	if cfg.Export.Enabled {
		sinks = append(sinks, usecase.NewExportSink(exporter.New(cfg.Export.OutDir, cfg.Export.XLSX, l)))
	}
	if ch != nil {
		sinks = append(sinks, usecase.NewStoreSink(internalrepo.NewCHLabeledStore(ch.DB(), ch.Database(), l)))
	}
	if producer != nil {
		sinks = append(sinks, usecase.NewPublishSink(internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)))
	}
	if summaries != nil {
		sinks = append(sinks, usecase.NewCacheSink(summaries))
	}
	return sinks
}

// ProvidePipeline creates the batch pipeline with config defaults.
func ProvidePipeline(
	cfg *config.Config,
	source repository.SeriesSource,
	cal *calendar.Calendar,
	agg domsvc.RegimeAggregator,
	sinks []usecase.ResultSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(source, cal, agg, sinks, m, l, usecase.PipelineConfig{
		Series:           cfg.Pipeline.Series,
		Workers:          cfg.Pipeline.Workers,
		Window:           cfg.Pipeline.VolatilityWindow,
		PreCrisisMonths:  cfg.Pipeline.PreCrisisMonths,
		PostCrisisMonths: cfg.Pipeline.PostCrisisMonths,
	})
}

func ProvideQueries(p *usecase.Pipeline, summaries repository.SummaryCache, l *applogger.Logger) *usecase.Queries {
	return usecase.NewQueries(p, summaries, l)
}

// ProvideHandler creates the HTTP handler with a health check per enabled backend.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	p *usecase.Pipeline,
	q *usecase.Queries,
	ch *pkgch.Client,
	svc cache.Service,
) *api.RegimesEchoHandler {
	checks := map[string]api.HealthCheck{}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if svc != nil {
		checks["cache"] = func(ctx context.Context) error {
			_, err := svc.Exists(ctx, "healthz")
			return err
		}
	}
	h := api.NewRegimesEchoHandler(l, p, q, checks)
	if cfg.Server.RunRateLimit.Burst > 0 {
		h.LimitRuns(middleware.RateLimit(ratelimit.New(cfg.Server.RunRateLimit.Burst, cfg.Server.RunRateLimit.RefillPerSec)))
	}
	return h
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, l *applogger.Logger, p *usecase.Pipeline, h *api.RegimesEchoHandler) *server.App {
	return server.New(cfg, l, p, h)
}
