//go:build !wireinject
// +build !wireinject

// Hand-maintained counterpart of the injector in wire.go. Keep the provider
// order in step with wire.go when either changes.

package di

import (
	"context"

	"snippets-backend/infrastructure/config"
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	atomicLevel := ProvideLogLevel(cfg)
	logger, cleanup, err := ProvideLogger(cfg, atomicLevel)
	if err != nil {
		return nil, nil, err
	}
	collector := ProvideMetrics(cfg)
	tracerProvider, cleanup2, err := ProvideTracing(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	tracer := ProvideTracer(tracerProvider)
	db, cleanup3, err := ProvideLocalDB(cfg, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	localStore, cleanup4, err := ProvideLocalStore(db, cfg, logger)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	awsConfig, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	client := ProvideDynamoDBClient(awsConfig)
	remoteStore := ProvideRemoteStore(client, cfg, collector, logger)
	eventbridgeClient := ProvideEventBridgeClient(awsConfig)
	eventPublisher := ProvideEventPublisher(eventbridgeClient, cfg, logger)
	treeService := ProvideTreeService(localStore, remoteStore, eventPublisher, cfg, collector, tracer, logger)
	commandBus, err := ProvideCommandBus(treeService, collector, logger)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	queryBus, err := ProvideQueryBus(treeService, collector)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	jwtService, err := ProvideJWTService(cfg)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	readinessChecks := ProvideReadinessChecks(db, client, cfg)
	handler := ProvideHTTPHandler(commandBus, queryBus, jwtService, collector, readinessChecks, cfg, logger)
	watcher, cleanup5, err := ProvideConfigWatcher(cfg, atomicLevel, logger)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	container := &Container{
		Config:     cfg,
		Logger:     logger,
		LogLevel:   atomicLevel,
		Metrics:    collector,
		Tree:       treeService,
		CommandBus: commandBus,
		QueryBus:   queryBus,
		Handler:    handler,
		Watcher:    watcher,
	}
	return container, func() {
		cleanup5()
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
