//go:build wireinject
// +build wireinject

package di

import (
	"PumpWatch/pkg/config"

	"github.com/google/wire"
)

// InitializeRuntime wires up all dependencies and returns the pipeline runtime.
// Wire will generate the implementation of this function.
func InitializeRuntime(cfg *config.Config) (*Runtime, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideAlertPublisher,
		ProvideMarketData,
		ProvideArtifacts,
		ProvideLedger,

		// Analytics
		ProvideFeatures,
		ProvideScorer,
		ProvideBacktester,

		// Use cases
		ProvideAnalyzer,
		ProvideScanner,
		ProvideTracker,
		ProvideReporter,
		ProvideDashboard,

		// Transport
		ProvideHandler,
		ProvideClosers,

		wire.Struct(new(Runtime), "*"),
	)
	return &Runtime{}, nil
}
