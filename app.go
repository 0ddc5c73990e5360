package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
	"github.com/Kocoro-lab/Shannon/go/research/internal/session"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tracing"
)

// app holds the process-wide collaborators shared by every command.
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	logger   *zap.Logger
	creds    *credentials.Resolver
	sessions *session.Manager
	session  *session.Session
	redis    redis.UniversalClient

	closers []func(context.Context) error
}

func bootstrap(ctx context.Context, cfgPath string, console io.Writer) (*app, error) {
	boot, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	loader := config.NewLoader(cfgPath, boot)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, loader: loader, logger: logger, creds: credentials.NewResolver(cfg.Credentials)}
	a.closers = append(a.closers, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	shutdownTracing, err := tracing.Initialize(ctx, cfg.Observability.Tracing, logger)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	} else {
		a.closers = append(a.closers, shutdownTracing)
	}

	log := decisionlog.New()
	if cfg.DecisionLog.Console {
		log.AddRenderer(decisionlog.NewConsoleRenderer(console))
	}
	log.AddRenderer(decisionlog.NewZapRenderer(logger))
	if !cfg.DecisionLog.Enabled {
		log.Disable()
	}

	a.sessions = session.NewManager(log, logger)
	a.session = a.sessions.CreateSession()
	a.closers = append(a.closers, func(context.Context) error {
		return a.sessions.EndSession(a.session.ID)
	})

	if rc := cfg.DecisionLog.Redis; rc.Enabled {
		a.redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		stream := rc.StreamPrefix + ":" + a.session.ID
		log.AddRenderer(decisionlog.NewRedisRenderer(a.redis, stream, rc.MaxLen, logger))
		a.closers = append(a.closers, func(context.Context) error { return a.redis.Close() })
		logger.Info("Publishing decision log to Redis", zap.String("stream", stream))
	}

	loader.Watch(func(c *config.Config) {
		if c.DecisionLog.Enabled {
			log.Enable()
		} else {
			log.Disable()
		}
	})

	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	a.closers = append(a.closers, func(context.Context) error {
		cancelMetrics()
		return nil
	})
	circuitbreaker.StartMetricsCollection(metricsCtx, 15*time.Second)
	if m := cfg.Observability.Metrics; m.Enabled {
		go serveMetrics(m.Port, logger)
	}
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Shutdown step failed", zap.Error(err))
		}
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	// keep stdout for reports and the MCP stdio transport
	zc.OutputPaths = []string{"stderr"}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("observability.logging.level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

func serveMetrics(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("Metrics server listening", zap.String("address", addr))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Failed to start metrics server", zap.Error(err))
	}
}
