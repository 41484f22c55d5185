package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oy3o/mbuf"
	"github.com/oy3o/mbuf/internal/config"
	"github.com/oy3o/mbuf/internal/workload"
	"github.com/oy3o/mbuf/metrics"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "mbufload",
		Short:        "Drive an mbuf pool with a synthetic message mix",
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	f.Int("iterations", config.DefaultIterations, "Number of messages to process")
	f.Int("min-size", config.DefaultMinSize, "Smallest message size in bytes")
	f.Int("max-size", config.DefaultMaxSize, "Largest message size in bytes")
	f.Float64("grow-ratio", config.DefaultGrowRatio, "Share of messages that append past their requested size")
	f.Uint64("seed", 1, "Seed for the size generator")
	f.Bool("warm", true, "Warm the pool up before the run")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for a signal after the run")
	f.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	pool, err := newPool(cfg)
	if err != nil {
		return err
	}

	logger.Info("Starting mbufload",
		zap.String("version", version),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("minSize", cfg.MinSize),
		zap.Int("maxSize", cfg.MaxSize),
		zap.Float64("growRatio", cfg.GrowRatio),
		zap.Bool("warm", cfg.Warm),
	)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = startMetricsServer(cfg.MetricsAddr, newMetricsRegistry(pool), logger)
	}

	runner := workload.NewRunner(pool, workload.Options{
		Iterations: cfg.Iterations,
		MinSize:    cfg.MinSize,
		MaxSize:    cfg.MaxSize,
		GrowRatio:  cfg.GrowRatio,
		Seed:       cfg.Seed,
	}, logger)

	res, err := runner.Run(ctx)
	logResult(logger, res, pool.Stats())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Workload failed", zap.Error(err))
		return err
	}

	if srv != nil {
		if err == nil {
			logger.Info("Workload finished, serving metrics until shutdown signal")
			<-ctx.Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// newPool builds the pool with any configured quota overrides.
func newPool(cfg *config.Config) (*mbuf.Pool, error) {
	quotas, err := cfg.PoolQuotas()
	if err != nil {
		return nil, err
	}
	pool := mbuf.NewPool()
	for class, n := range quotas {
		pool.WithQuota(class, n)
	}
	if cfg.Warm {
		pool.Initialize()
	}
	return pool, nil
}

func logResult(logger *zap.Logger, res workload.Result, st mbuf.Stats) {
	logger.Info("Workload result",
		zap.Int("iterations", res.Iterations),
		zap.Int("fallbacks", res.Fallbacks),
		zap.Int("grown", res.Grown),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("elapsed", res.Elapsed),
		zap.Int64("hits", st.Hits),
		zap.Int64("misses", st.Misses),
		zap.Int64("rejected", st.Rejected),
		zap.Int64("returns", st.Returns),
		zap.Int64("drops", st.Drops),
		zap.Float64("hitRatio", st.HitRatio()),
		zap.Int64s("idle", st.Idle[:]),
	)
}

// newMetricsHandler serves /metrics from registry and a /health check.
func newMetricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// newMetricsRegistry registers the pool collector and the Go runtime collector.
func newMetricsRegistry(pool *mbuf.Pool) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector("mbuf", pool),
		collectors.NewGoCollector(),
	)
	return registry
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newMetricsHandler(registry), ReadHeaderTimeout: 5 * time.Second}
	logger.Info("Starting metrics server", zap.String("address", addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// initLogger initializes the zap logger based on the log level
func initLogger(level string) (*zap.Logger, error) {
	var config zap.Config

	switch level {
	case "debug":
		config = zap.NewDevelopmentConfig()
	default:
		config = zap.NewProductionConfig()
		config.Level = parseLogLevel(level)
	}

	return config.Build()
}

// parseLogLevel parses the log level string
func parseLogLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
