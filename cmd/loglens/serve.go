package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dfrtlabs/loglens/internal/api"
	"github.com/dfrtlabs/loglens/internal/cache"
	"github.com/dfrtlabs/loglens/internal/engine"
	"github.com/dfrtlabs/loglens/internal/metrics"
	"github.com/dfrtlabs/loglens/internal/services"
)

func newServeCommand(global *globalFlags) *cobra.Command {
	var address, metricsAddress string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analyzer gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("address") {
				cfg.Server.Address = address
			}
			if cmd.Flags().Changed("metrics-address") {
				cfg.Server.MetricsAddress = metricsAddress
			}
			logger.Info("starting loglens", slog.String("address", cfg.Server.Address), slog.String("version", version))

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			store, err := cache.New(cfg.Cache.Provider())
			if err != nil {
				logger.Warn("result cache unavailable, falling back to memory", slog.String("backend", cfg.Cache.Backend), slog.Any("error", err))
				store = cache.NewMemoryProvider(cfg.Cache.MaxEntries)
			}
			defer store.Close()

			rules, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
			if err != nil {
				return fmt.Errorf("load rule pack %s: %w", cfg.Rules.Path, err)
			}
			if rules != nil {
				logger.Info("rule pack loaded", slog.String("path", cfg.Rules.Path), slog.Int("rules", rules.Len()))
			}

			pipeline := engine.NewPipeline(logger, rules, cfg.Ingest.MaxLineBytes)
			service := services.NewAnalysisService(logger, pipeline, store, services.Settings{
				ResultTTL:    cfg.Cache.ResultTTL,
				AllowedRoots: cfg.Server.AllowedRoots,
			})

			server, err := api.NewServer(cfg.Server, service)
			if err != nil {
				return fmt.Errorf("create gRPC server: %w", err)
			}

			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()

			var metricsServer *http.Server
			if cfg.Server.MetricsAddress != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				metricsServer = &http.Server{
					Addr:         cfg.Server.MetricsAddress,
					Handler:      mux,
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 15 * time.Second,
				}
				go func() {
					logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server exited", slog.Any("error", err))
						stop()
					}
				}()
			}

			go func() {
				logger.Info("gRPC server listening", slog.String("address", server.Address()))
				if serveErr := server.Start(); serveErr != nil {
					logger.Error("gRPC server exited", slog.Any("error", serveErr))
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
			defer cancel()
			server.Shutdown(shutdownCtx)

			if metricsServer != nil {
				metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
				if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("metrics server shutdown", slog.Any("error", err))
				}
				cancelMetrics()
			}

			summary := service.LatencySummary()
			logger.Info("loglens stopped",
				slog.Int("analyses", summary.Observed),
				slog.Duration("p50", summary.P50),
				slog.Duration("p95", summary.P95))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "gRPC listen address (overrides server.address)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "Prometheus listen address, empty disables (overrides server.metricsAddress)")
	return cmd
}
