//go:build wireinject
// +build wireinject

package di

import (
	"SigFuse/pkg/config"
	"SigFuse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,

		// Repositories
		ProvideDecisionStore,
		ProvideDecisionPublisher,

		// External signal services
		ProvideSignalProviders,
		ProvideDirectionModel,
		ProvideContextProviders,
		ProvideRegimeSource,

		// Core fusion and learning
		ProvideEngine,
		ProvideLearner,
		ProvideAdjuster,
		ProvideCoordinator,

		// Use cases
		ProvideCycleRunner,
		ProvideQuoteStream,
		ProvideQuoteCollector,
		ProvideQueuePublisher,
		ProvideOutcomeIngestJob,
		ProvideQueueConsumer,
		ProvideKafkaOutcomesHandler,

		// HTTP and scheduling
		ProvideHTTPHandler,
		ProvideCronRunner,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
