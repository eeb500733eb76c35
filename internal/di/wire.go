//go:build wireinject
// +build wireinject

package di

import (
	"UsagePrep/pkg/config"
	"UsagePrep/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideCyclePublisher,

		// Repositories
		ProvideTickReader,
		ProvideUsageReader,
		ProvideCustomerReader,
		ProvidePreparedStore,

		// Use cases
		ProvideForexAggregator,
		ProvideUsageAggregator,
		ProvideTowerSessionizer,
		ProvideBalanceFlattener,
		ProvideScheduler,

		// HTTP
		ProvideStatusHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
