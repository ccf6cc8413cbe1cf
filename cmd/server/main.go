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

	"go.uber.org/zap"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/api"
	"github.com/david/court-scout/internal/auth"
	"github.com/david/court-scout/internal/catalog"
	"github.com/david/court-scout/internal/config"
	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/intel"
	"github.com/david/court-scout/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogFormat, os.Getenv("DEBUG") == "true")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, logger.Named("migrate")); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, logger)
	if err != nil {
		return err
	}

	store := db.NewStore(pool)
	llm := ai.NewOllamaClient(cfg.OllamaHost, "", cfg.OllamaModel)

	registry, err := intel.LoadRegistry(cfg.IntelSources)
	if err != nil {
		return fmt.Errorf("load intel sources: %w", err)
	}
	refresher := &intel.Refresher{
		Registry: registry,
		Crawler:  intel.NewCrawler(logger.Named("crawler")),
		LLM:      llm,
		Store:    store,
		Logger:   logger.Named("intel"),
	}

	srv, err := api.NewServer(api.Deps{
		Catalog:     cat,
		Store:       store,
		Accounts:    auth.NewService(pool, tokens),
		Tokens:      tokens,
		LLM:         llm,
		Refresher:   refresher,
		Logger:      logger,
		ScanOptions: cfg.Scan.Options(),
		AdminSecret: cfg.AdminSecret,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("catalog_version", cat.Version()),
			zap.Int("intel_sources", len(registry.Enabled())),
		)
		errCh <- srv.Start(cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
