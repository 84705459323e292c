package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/classify"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/config"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/dispatch"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/journal"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/route"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/selector"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/server"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// The model catalogue is validated once here; a malformed entry is
	// fatal at startup, never at request time.
	reg, err := loader.Models().BuildRegistry()
	if err != nil {
		logger.Error("invalid model registry", "error", err)
		os.Exit(1)
	}
	logger.Info("model registry loaded", "models", len(reg.Models()))

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	// Optional Redis-backed quota ledger (shared across replicas)
	var quotaLedger ledger.Store
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory ledger", "error", err)
			quotaLedger = ledger.NewMemory()
		} else {
			logger.Info("redis connected, using shared quota ledger")
			quotaLedger = ledger.NewRedis(rdb)
		}
	} else {
		quotaLedger = ledger.NewMemory()
	}

	// Optional decision journal
	var decisionJournal *journal.Journal
	if cfg.Database.Host != "" {
		dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			logger.Warn("failed to create database pool, journal disabled", "error", err)
		} else {
			defer dbPool.Close()
			if err := dbPool.Ping(context.Background()); err != nil {
				logger.Warn("database not reachable, journal disabled", "error", err)
			} else {
				logger.Info("database connected, decision journal enabled")
				decisionJournal = journal.New(dbPool)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bans := blacklist.New()
	if cfg.Routing.SweepInterval > 0 {
		bans.StartSweeper(ctx, cfg.Routing.SweepInterval)
	}

	sel := selector.New(reg, quotaLedger, bans)

	dispatchers := dispatch.BuildFromConfig(loader.Providers())
	loader.OnReload(func() {
		dispatchers.Reload(loader.Providers())
		logger.Info("provider dispatchers reloaded")
	})

	metrics := telemetry.NewMetrics()

	router := route.New(
		classify.New(),
		sel,
		quotaLedger,
		bans,
		dispatchers,
		route.NewAckOrchestrator(sel),
		metrics,
		decisionJournal,
		route.ConfigFrom(cfg.Routing),
	)

	handler := server.NewHandler(router, reg, quotaLedger, bans)

	// HTTP surface
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/v1/health", healthHandler)
	r.Post("/v1/chat", handler.Chat)
	r.Get("/v1/models", handler.ListModels)
	r.Get("/v1/diagnostics/usage/{model}", handler.Usage)
	r.Get("/v1/diagnostics/blacklist", handler.Blacklist)

	// Metrics on a separate listener
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("router starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("router stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
