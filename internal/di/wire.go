//go:build wireinject
// +build wireinject

package di

import (
	"FinRegime/pkg/config"
	"FinRegime/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideSummaryCache,
		ProvideSeriesSource,
		ProvideMetrics,
		ProvideSinks,

		// Domain services
		ProvideCalendar,
		ProvideAggregator,

		// Use cases
		ProvidePipeline,
		ProvideQueries,

		// HTTP + application
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
