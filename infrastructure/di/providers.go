package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"snippets-backend/application/commands/bus"
	cmdhandlers "snippets-backend/application/commands/handlers"
	"snippets-backend/application/ports"
	querybus "snippets-backend/application/queries/bus"
	queryhandlers "snippets-backend/application/queries/handlers"
	"snippets-backend/application/services"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/infrastructure/config"
	"snippets-backend/infrastructure/messaging/eventbridge"
	badgerstore "snippets-backend/infrastructure/persistence/badger"
	"snippets-backend/infrastructure/persistence/dynamodb"
	"snippets-backend/infrastructure/resilience"
	"snippets-backend/interfaces/http/rest"
	"snippets-backend/pkg/auth"
	"snippets-backend/pkg/observability"
)

// ProvideLogLevel parses LOG_LEVEL into an adjustable level
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return level
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, func(), error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", cfg.Environment))
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideMetrics returns nil when metrics are disabled; a nil collector
// records nothing
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("snippets")
}

// ProvideTracing installs the OTLP exporter when tracing is enabled
func ProvideTracing(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideTracer returns the engine tracer
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideLocalDB opens the embedded database behind the local store
func ProvideLocalDB(cfg *config.Config, logger *zap.Logger) (*badgerstore.DB, func(), error) {
	bcfg := badgerstore.DefaultConfig(cfg.LocalStorePath)
	if cfg.LocalInMemory {
		bcfg = badgerstore.InMemoryConfig()
	}
	db, err := badgerstore.Open(bcfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close local store", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideLocalStore creates the on-device node store
func ProvideLocalStore(db *badgerstore.DB, cfg *config.Config, logger *zap.Logger) (ports.LocalStore, func(), error) {
	store, err := badgerstore.NewLocalNodeStore(db, cfg.Domain.LocalNamespace(), logger.Named("badger"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to release local id sequence", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideRemoteStore creates the remote store behind a circuit breaker. It
// returns nil when the remote store is disabled.
func ProvideRemoteStore(
	client *awsdynamodb.Client,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) ports.RemoteStore {
	if !cfg.RemoteEnabled {
		logger.Info("Remote store disabled; serving local snippets only")
		return nil
	}
	store := dynamodb.NewNodeStore(client, cfg.DynamoDBTable, cfg.Domain.RemoteNamespace(), logger.Named("dynamodb"))

	breaker := resilience.DefaultBreakerConfig("remote-store")
	breaker.MinRequests = uint32(cfg.BreakerMinRequests)
	breaker.Timeout = time.Duration(cfg.BreakerTimeoutSecs) * time.Second
	return resilience.NewBreakerStore[valueobjects.RemoteID](store, breaker, metrics, logger)
}

// ProvideEventPublisher returns nil when no event bus is configured
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" || !cfg.RemoteEnabled {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger.Named("eventbridge"))
}

// ProvideTreeService creates the hierarchy engine
func ProvideTreeService(
	local ports.LocalStore,
	remote ports.RemoteStore,
	publisher ports.EventPublisher,
	cfg *config.Config,
	metrics *observability.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
) *services.TreeService {
	return services.NewTreeService(local, remote, publisher, cfg.Domain, metrics, tracer, logger.Named("tree"))
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(tree *services.TreeService, metrics *observability.Collector, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)
	if err := cmdhandlers.NewNodeCommandHandler(tree, logger).Register(commandBus); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(tree *services.TreeService, metrics *observability.Collector) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(metrics)
	if err := queryhandlers.NewTreeQueryHandler(tree).Register(queryBus); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideJWTService returns nil when no secret is configured; every caller
// is then anonymous
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ReadinessChecks are the dependencies checked by /ready
type ReadinessChecks map[string]rest.ReadinessCheck

// ProvideReadinessChecks checks the local database and, when enabled, the
// remote table
func ProvideReadinessChecks(db *badgerstore.DB, client *awsdynamodb.Client, cfg *config.Config) ReadinessChecks {
	checks := ReadinessChecks{"local": db.Ping}
	if cfg.RemoteEnabled {
		checks["remote"] = func(ctx context.Context) error {
			return dynamodb.CheckTable(ctx, client, cfg.DynamoDBTable)
		}
	}
	return checks
}

// ProvideHTTPHandler builds the REST router
func ProvideHTTPHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	jwt *auth.JWTService,
	metrics *observability.Collector,
	checks ReadinessChecks,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(commandBus, queryBus, rest.RouterConfig{
		AllowedOrigins: cfg.CORSOrigins,
		Auth:           jwt,
		Metrics:        metrics,
		Readiness:      checks,
		Debug:          cfg.IsDevelopment(),
	}, logger.Named("http")).Setup()
}

// ProvideConfigWatcher watches the YAML overlay in development and applies
// log level changes. It returns nil when there is nothing to watch.
func ProvideConfigWatcher(cfg *config.Config, level zap.AtomicLevel, logger *zap.Logger) (*config.Watcher, func(), error) {
	if cfg.ConfigFile == "" || !cfg.IsDevelopment() || cfg.IsLambda {
		return nil, func() {}, nil
	}
	w, err := config.NewWatcher(cfg.ConfigFile, logger.Named("config"))
	if err != nil {
		return nil, nil, err
	}
	w.OnChange(config.LogLevelHandler(level, logger))
	w.Start()
	return w, w.Stop, nil
}
