package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/marketfee/internal/cache"
	"github.com/Simplici0/marketfee/internal/category"
	"github.com/Simplici0/marketfee/internal/config"
	"github.com/Simplici0/marketfee/internal/db"
	"github.com/Simplici0/marketfee/internal/httpx"
	"github.com/Simplici0/marketfee/internal/logging"
	"github.com/Simplici0/marketfee/internal/migrations"
	"github.com/Simplici0/marketfee/internal/savedconfig"
	"github.com/Simplici0/marketfee/internal/seed"
	"github.com/Simplici0/marketfee/web"
)

const redisConnectWait = 30 * time.Second

type server struct {
	templates  *web.Templates
	categories *category.Service
	configs    *savedconfig.Store
	logger     *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, logger); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	stats, err := seed.RunFile(ctx, database, cfg.CategoryDataPath)
	if err != nil {
		return fmt.Errorf("seed categories from %s: %w", cfg.CategoryDataPath, err)
	}
	logger.Info("category dataset applied",
		zap.String("path", cfg.CategoryDataPath),
		zap.Int("inserts", stats.Inserts),
		zap.Int("updates", stats.Updates),
		zap.Int("deletes", stats.Deletes),
		zap.String("fingerprint", stats.Fingerprint),
	)

	categoryCache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	templates, err := web.Parse()
	if err != nil {
		return err
	}

	srv := &server{
		templates:  templates,
		categories: category.NewService(category.NewStore(database), categoryCache, cfg.CacheTTL, stats.Fingerprint, logger),
		configs:    savedconfig.NewStore(database, savedconfig.Deps{}),
		logger:     logger,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openCache connects to Redis when configured. Outside development a Redis
// failure is fatal; in development the service falls back to an in-memory cache.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Cache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}

	redisCache, err := cache.ConnectRedis(ctx, cache.RedisOptions{
		Addr:           cfg.RedisAddr,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		MaxConnectWait: redisConnectWait,
	}, logger)
	if err != nil {
		if !cfg.IsDev() {
			return nil, nil, err
		}
		logger.Warn("using in-memory category cache", zap.Error(err))
		return cache.NewMemory(), func() {}, nil
	}
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.TraceMiddleware)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(logging.Recoverer)

	r.Get("/", s.handleCalculator)
	r.Get("/categories", s.handleCategories)
	r.Get("/categories/select", s.handleCategorySelect)
	r.Post("/configs", s.handleConfigSave)
	r.Get("/configs/{id}/load", s.handleConfigLoad)
	r.Post("/configs/{id}/delete", s.handleConfigDelete)

	r.Route("/api", func(r chi.Router) {
		r.Get("/calculate", s.handleAPICalculate)
		r.Get("/categories", s.handleAPICategories)
		r.Get("/categories/search", s.handleAPICategorySearch)
		r.Get("/categories/select", s.handleAPICategorySelect)
		r.Get("/configs", s.handleAPIConfigList)
		r.Post("/configs", s.handleAPIConfigCreate)
		r.Get("/configs/{id}", s.handleAPIConfigGet)
		r.Delete("/configs/{id}", s.handleAPIConfigDelete)
	})

	r.Get("/healthz", s.handleHealthz)
	return r
}

// handleHealthz reports ready once the category dataset is queryable.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	n, err := s.categories.Count(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("count categories", zap.Error(err))
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "categories": n})
}
