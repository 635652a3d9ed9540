// Package app wires the acquisition engine together: configuration,
// logging, the shared cache service, the concurrency gate and the
// per-context controllers.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kubeagle/kubeagle/internal/cache"
	"github.com/kubeagle/kubeagle/internal/charts"
	"github.com/kubeagle/kubeagle/internal/cluster"
	"github.com/kubeagle/kubeagle/internal/datasource"
	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/limiter"
	"github.com/kubeagle/kubeagle/internal/observability"
)

// App owns the process-wide acquisition services and hands out
// controllers bound to a cluster context.
type App struct {
	logger  *zap.Logger
	config  *Config
	version string

	metrics   *observability.Metrics
	metricsSv *observability.Server
	shared    *cache.Shared
	gate      *limiter.Gate
	refresher *cache.Refresher

	controller *cluster.Controller
	charts     *charts.Service
}

// instrumentedRunner reports invocation counts and durations for every
// external tool call passing through it.
type instrumentedRunner struct {
	inner   kubecli.Runner
	metrics *observability.Metrics
}

func (r *instrumentedRunner) Run(ctx context.Context, args []string) (string, error) {
	start := time.Now()
	out, err := r.inner.Run(ctx, args)
	r.metrics.ObserveProcess(r.inner.Tool(), time.Since(start), err)
	return out, err
}

func (r *instrumentedRunner) Tool() string { return r.inner.Tool() }

// New creates a new App instance
func New(config *Config, version string) (*App, error) {
	logger, err := initLogger(config.LogLevel, config.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{
		logger:  logger,
		config:  config,
		version: version,
		metrics: observability.NewMetrics(),
	}

	a.shared = cache.NewShared(config.MaxCacheEntries, a.metrics, logger)
	a.gate = limiter.New(config.MaxConcurrent, config.AcquireTimeout, logger)
	a.gate.SetRecorder(a.metrics)
	return a, nil
}

// Start wires the engine against the configured cluster context.
func (a *App) Start() error {
	kubeContext := a.config.Context
	if kubeContext == "" {
		current, err := kubecli.CurrentContext()
		if err != nil {
			return fmt.Errorf("no cluster context configured and none found: %w", err)
		}
		kubeContext = current
	}

	a.logger.Info("Starting acquisition engine",
		zap.String("version", a.version),
		zap.String("context", kubeContext),
		zap.Int("max_concurrent", a.config.MaxConcurrent),
		zap.Int("cache_capacity", a.config.MaxCacheEntries),
	)

	kubectl := &instrumentedRunner{
		inner:   kubecli.NewKubectl(kubeContext, a.logger),
		metrics: a.metrics,
	}
	helm := &instrumentedRunner{
		inner:   kubecli.NewHelm(kubeContext, a.logger),
		metrics: a.metrics,
	}

	commands := cache.NewCommandCache(a.shared, a.logger)
	client := datasource.NewClient(kubeContext, kubectl, helm, commands, a.gate, a.logger)
	a.controller = cluster.New(client, a.metrics, a.logger)
	a.charts = charts.NewService(client, nil, a.logger)

	if a.config.RefreshInterval > 0 {
		a.refresher = cache.NewRefresher(a.controller, a.config.RefreshInterval, a.logger)
		if err := a.refresher.Start(); err != nil {
			return fmt.Errorf("failed to start refresher: %w", err)
		}
	}

	if a.config.MetricsEnabled {
		a.metricsSv = observability.NewServer(a.config.MetricsPort, a.metrics, a.logger)
		if err := a.metricsSv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
	}
	return nil
}

// Controller returns the controller for the configured context. Valid
// after Start.
func (a *App) Controller() *cluster.Controller {
	return a.controller
}

// Charts returns the chart release/values service. Valid after Start.
func (a *App) Charts() *charts.Service {
	return a.charts
}

// Metrics exposes the self-monitoring registry.
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// ForceRefresh invalidates caches and re-primes the inventory.
func (a *App) ForceRefresh() error {
	if a.refresher != nil {
		return a.refresher.RefreshNow()
	}
	if a.controller == nil {
		return fmt.Errorf("engine not started")
	}
	a.controller.Refresh()
	return nil
}

// Shutdown gracefully stops the application
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down application...")

	if a.refresher != nil {
		if err := a.refresher.Stop(); err != nil {
			a.logger.Error("Failed to stop refresher", zap.Error(err))
		}
	}
	if a.metricsSv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSv.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop metrics endpoint", zap.Error(err))
		}
	}

	// Sync only flushes buffered log entries, ignore stderr sync errors
	_ = a.logger.Sync()
	return nil
}

// initLogger initializes the zap logger with file rotation support
func initLogger(levelStr, logFile string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if logFile == "" {
		logFile = "/tmp/kubeagle.log"
	}

	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})
	core := zapcore.NewCore(fileEncoder, fileWriter, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	zap.ReplaceGlobals(logger)
	return logger, nil
}
