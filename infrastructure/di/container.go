package di

import (
	"net/http"

	"go.uber.org/zap"

	"snippets-backend/application/commands/bus"
	querybus "snippets-backend/application/queries/bus"
	"snippets-backend/application/services"
	"snippets-backend/infrastructure/config"
	"snippets-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	LogLevel   zap.AtomicLevel
	Metrics    *observability.Collector
	Tree       *services.TreeService
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Handler    http.Handler
	Watcher    *config.Watcher
}
