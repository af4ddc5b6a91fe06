package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/graphrun/graphrun/graph"
	"github.com/graphrun/graphrun/graph/capability"
	"github.com/graphrun/graphrun/graph/emit"
	"github.com/graphrun/graphrun/graph/store"
	"github.com/graphrun/graphrun/internal/config"
	"github.com/graphrun/graphrun/internal/logging"
	"github.com/graphrun/graphrun/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow engine HTTP server",
	Long: `Starts the HTTP API for creating and executing workflow graphs.
Configuration comes from the YAML file named by --config; without one the
server listens on :8080 with an in-memory store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		logger := logging.New(cfg.LogLevel())

		st, err := openStore(cfg.Store)
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
		}
		defer st.Close()

		registry := capability.Default()
		promRegistry := prometheus.NewRegistry()

		engineOpts := []graph.Option{
			graph.WithMetrics(graph.NewPrometheusMetrics(promRegistry)),
		}
		if cfg.Engine.IterationCap > 0 {
			engineOpts = append(engineOpts, graph.WithIterationCap(cfg.Engine.IterationCap))
		}
		if emitter := buildEmitter(cfg.Events); emitter != nil {
			engineOpts = append(engineOpts, graph.WithEmitter(emitter))
		}
		engine := graph.New(registry, engineOpts...)

		svc := server.NewService(st, registry, engine, logger)
		handler := server.NewHandler(svc, logger, server.Options{
			Metrics: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		})

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown incomplete", "error", err)
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

// openStore builds the persistence backend named by the configuration.
func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "mysql":
		return store.NewMySQLStore(cfg.MySQLDSN)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// buildEmitter maps the events mode to an emitter, nil for off.
func buildEmitter(cfg config.EventsConfig) emit.Emitter {
	switch cfg.Mode {
	case "text":
		return emit.NewLogEmitter(os.Stderr, false)
	case "json":
		return emit.NewLogEmitter(os.Stderr, true)
	case "otel":
		return emit.NewOTelEmitter(otel.Tracer("graphrun"))
	default:
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
