package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"masters/internal/masters/cache"
	"masters/internal/masters/handler"
	"masters/internal/masters/registry"
	"masters/internal/masters/seed"
	"masters/internal/masters/service"
	"masters/internal/masters/store"
	memorystore "masters/internal/masters/store/memory"
	postgresstore "masters/internal/masters/store/postgres"
	"masters/internal/platform/config"
	"masters/internal/platform/database"
	"masters/internal/platform/httpserver"
	"masters/internal/platform/logger"
	"masters/internal/platform/middleware"
	platformredis "masters/internal/platform/redis"
)

// main wires configuration, storage, the cache layer, and the HTTP router.
// Business logic lives in internal/masters.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		types store.TypeStore
		data  store.DataStore
	)
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgresstore.EnsureSchema(context.Background(), db); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		types = postgresstore.NewTypeStore(db)
		data = postgresstore.NewDataStore(db)
		log.Info("using postgres storage")
	} else {
		types = memorystore.NewTypeStore()
		data = memorystore.NewDataStore()
		log.Info("using in-memory storage")
	}

	reg := registry.New(types, log)
	svc := service.New(reg, data, log)

	// Cache layer: wraps the service when enabled; the repository contract
	// is identical either way.
	var (
		repo    service.Repository = svc
		flusher handler.Flusher
	)
	if cfg.Cache.Enabled {
		var backend cache.Cache
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
			backend = cache.NewRedis(redisClient.Client)
			log.Info("caching with redis", "ttl", cfg.Cache.TTL)
		} else {
			backend = cache.NewMemory()
			log.Info("caching in process", "ttl", cfg.Cache.TTL)
		}
		cached := cache.NewCachedRepository(svc, backend, cache.NewKeys(cfg.Cache.Prefix), cfg.Cache.TTL, log)
		repo = cached
		flusher = cached
	}

	importer := service.NewImporter(repo, log)

	if cfg.SeedOnStart {
		if err := seed.New(reg, repo, log).Run(context.Background()); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	h := handler.New(repo, reg, importer, flusher, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.ResolveTenant(cfg.JWTSigningKey, log))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/v1/masters", func(r chi.Router) {
		h.Register(r, middleware.RequireAdminToken(cfg.AdminToken, log))
	})

	srv := httpserver.New(cfg.Addr, r)

	go func() {
		log.Info("starting masters server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
