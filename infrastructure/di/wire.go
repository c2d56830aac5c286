//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"snippets-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideTracer,
	ProvideLocalDB,
	ProvideLocalStore,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideRemoteStore,
	ProvideEventPublisher,
	ProvideTreeService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTService,
	ProvideReadinessChecks,
	ProvideHTTPHandler,
	ProvideConfigWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
