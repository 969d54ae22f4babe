package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitibrasil/vitibrasil-api/internal/api"
	"github.com/vitibrasil/vitibrasil-api/internal/auth"
	"github.com/vitibrasil/vitibrasil-api/internal/cache"
	"github.com/vitibrasil/vitibrasil-api/internal/config"
	"github.com/vitibrasil/vitibrasil-api/internal/fallback"
	"github.com/vitibrasil/vitibrasil-api/internal/logging"
	"github.com/vitibrasil/vitibrasil-api/internal/metrics"
	"github.com/vitibrasil/vitibrasil-api/internal/scraper"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	provider, err := cacheProvider(cfg)
	if err != nil {
		return err
	}
	resultCache := cache.New(provider, logger.Named("cache"))

	client := scraper.NewClient(scraper.ClientConfig{
		UserAgent:   cfg.Scraper.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxRetries:  cfg.Scraper.MaxRetries,
		BackoffBase: time.Duration(cfg.Scraper.BackoffInitialMs) * time.Millisecond,
		RequestsPS:  cfg.Scraper.RequestsPS,
	}, logger.Named("fetch"))

	store := fallback.NewStore(cfg.Fallback.DataDir, logger.Named("fallback"))
	pipeline := scraper.NewPipeline(scraper.PipelineConfig{
		BaseURL: cfg.Scraper.BaseURL,
		MinYear: cfg.Scraper.MinYear,
		MaxYear: cfg.Scraper.MaxYear,
	}, client, store, logger.Named("pipeline"))

	tokens := auth.NewManager(cfg.Auth.SecretKey, time.Duration(cfg.Auth.ExpireMinutes)*time.Minute)
	server := api.NewServer(pipeline, resultCache, tokens, cfg, logger.Named("api"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func cacheProvider(cfg config.Config) (cache.Provider, error) {
	switch cfg.Cache.Provider {
	case "file":
		return cache.NewFileProvider(cfg.Cache.Dir)
	default:
		return cache.NewMemoryProvider(), nil
	}
}
