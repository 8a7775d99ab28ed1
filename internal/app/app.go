package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/metrics"
	"github.com/vk/taskgraph/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	promReg    *prometheus.Registry
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// metrics. Without modules, the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules(outW)
	}
	reg, err := registry.FromModules(modules...)
	if err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	logger.Debug("All Go modules registered.", "modules", len(modules), "factories", reg.Len())

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		promReg:  promReg,
		metrics:  metrics.New(promReg),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Gatherer exposes the application's metrics. This is primarily for testing.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.promReg
}
