package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/config"
	"spatialdoc/core-go/internal/convert"
	"spatialdoc/core-go/internal/db"
	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/httpapi"
	"spatialdoc/core-go/internal/jobs"
	"spatialdoc/core-go/internal/logging"
	"spatialdoc/core-go/internal/metrics"
	"spatialdoc/core-go/internal/store"
	"spatialdoc/core-go/internal/workspace"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		l := logging.New("info")
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, logger, cfg)
	defer closeStore()

	m := metrics.New()
	ws := workspace.New(logger, cfg.DocumentName, workspace.Options{
		Document: document.Options{Converter: convert.Engine{}, Observer: m},
		Store:    st,
	})

	worker := jobs.New(logger, ws.Queue(), jobs.Options{
		PollInterval: cfg.Jobs.PollInterval,
		MaxRuntime:   cfg.Jobs.MaxRuntime,
	}, m)
	go worker.Run(ctx)

	h := httpapi.NewHandler(logger, ws, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("spatialdoc listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// openStore prefers Postgres, then SQLite, then keeps snapshots in memory.
func openStore(ctx context.Context, logger zerolog.Logger, cfg config.Config) (store.Store, func()) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		pg := store.NewPostgres(pool.Queries(), pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			logger.Fatal().Err(err).Msg("failed to migrate snapshot table")
		}
		logger.Info().Msg("snapshots stored in postgres")
		return pg, pool.Close
	case cfg.SQLitePath != "":
		lite, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("failed to open sqlite store")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("snapshots stored in sqlite")
		return lite, func() { _ = lite.Close() }
	default:
		logger.Warn().Msg("no snapshot store configured; snapshots are kept in memory")
		return store.NewMemory(), func() {}
	}
}
