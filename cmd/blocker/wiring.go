package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/ghibli-blocker/internal/adapter/memory"
	"github.com/user/ghibli-blocker/internal/adapter/postgres"
	redis_adapter "github.com/user/ghibli-blocker/internal/adapter/redis"
	"github.com/user/ghibli-blocker/internal/adapter/sqlite"
	"github.com/user/ghibli-blocker/internal/delivery/http/handler"
	"github.com/user/ghibli-blocker/internal/delivery/http/router"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/internal/usecase"
	"github.com/user/ghibli-blocker/pkg/config"
)

const (
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendMemory = "memory"

	shutdownTimeout = 5 * time.Second
)

// backend bundles the preference store with the control channel that reaches
// the agent. Only redis carries control messages across processes.
type backend struct {
	store        repository.PreferenceRepository
	channel      repository.ControlChannel
	crossProcess bool
	close        func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreBackend {
	case backendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("unable to connect to Redis: %w", err)
		}
		slog.Info("Redis connection established", "addr", cfg.RedisAddr)
		return &backend{
			store:        redis_adapter.NewPreferenceRepo(rdb),
			channel:      redis_adapter.NewControlChannel(rdb),
			crossProcess: true,
			close:        func() { _ = rdb.Close() },
		}, nil

	case backendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("SQLite preference store opened", "path", cfg.SQLitePath)
		return &backend{
			store:   store,
			channel: memory.NewControlChannel(0),
			close:   func() { _ = store.Close() },
		}, nil

	case backendMemory:
		return &backend{
			store:   memory.NewPreferenceRepo(entity.DefaultPreferences()),
			channel: memory.NewControlChannel(0),
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q (want sqlite, redis or memory)", cfg.StoreBackend)
}

// openBlockLog returns the Postgres block log when configured, an in-memory one otherwise.
func openBlockLog(ctx context.Context, cfg *config.Config) (repository.BlockLogRepository, func(), error) {
	if !cfg.PostgresEnabled() {
		slog.Info("POSTGRES_HOST not set, keeping the block log in memory")
		return memory.NewBlockLogRepo(0), func() {}, nil
	}

	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, nil, fmt.Errorf("unable to reach database: %w", err)
	}

	repo := postgres.NewBlockLogRepo(dbpool)
	if err := repo.EnsureSchema(ctx); err != nil {
		dbpool.Close()
		return nil, nil, fmt.Errorf("failed to create blocked_posts table: %w", err)
	}
	slog.Info("PostgreSQL connection pool established")
	return repo, dbpool.Close, nil
}

func newHTTPServer(cfg *config.Config, panel usecase.ControlPanel) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(handler.NewHandler(panel)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
