//go:build wireinject
// +build wireinject

package di

import (
	"ScoutSync/pkg/config"
	"ScoutSync/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application and
// a cleanup that releases every client it opened.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideFactStore,
		ProvideFactMirror,
		ProvideCache,

		// Collaborators
		ProvideNotifier,
		ProvideFileSource,
		ProvideWorkbookOpener,
		ProvideDispatcher,
		ProvideNormalizer,
		ProvideResolver,

		// Use cases
		ProvideReconciler,
		ProvideIngestRunner,

		// Transport and application
		ProvideRunsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
