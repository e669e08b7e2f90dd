package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/config"
	"github.com/rpattn/candh/internal/db"
	"github.com/rpattn/candh/internal/export"
	"github.com/rpattn/candh/internal/logging"
	"github.com/rpattn/candh/internal/metrics"
	"github.com/rpattn/candh/internal/middleware"
	"github.com/rpattn/candh/internal/repository"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(conn.Pool, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	historyRepo := repository.NewPostgresHistoryRepository(conn.Pool, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})

	historyHandler := newHistoryHandler(historyRepo, logger, metrics.New(prometheus.DefaultRegisterer))

	mux := http.NewServeMux()
	mux.Handle("/history", corsHandler.Handler(historyHandler))
	mux.Handle("/history/", corsHandler.Handler(historyHandler))
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting history server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// newHistoryHandler builds the read-only history query chain.
func newHistoryHandler(repo repository.HistoryRepository, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	return middleware.LoggingMiddleware(logger)(
		middleware.MetricsMiddleware(m)(
			middleware.DataLoaderMiddleware(repo)(
				export.NewHTTPHandler(repo, logger),
			),
		),
	)
}
