package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/knowledge"
	"github.com/m-sorano/ai-cafe/internal/llm"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/server"
	"github.com/m-sorano/ai-cafe/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	if _, err := repo.SeedCategories(ctx); err != nil {
		return err
	}

	avatars, err := storage.New(cfg)
	if err != nil {
		return err
	}
	if err := avatars.EnsureBucket(ctx); err != nil {
		logger.Warn("avatar storage is not ready", zap.Error(err))
	}

	var summarizer knowledge.Summarizer
	client, err := llm.New(ctx, cfg)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn("no summarization model configured; knowledge cards use the fallback")
	case err != nil:
		return err
	default:
		logger.Info("summarization model ready", zap.String("model", client.Name()))
		summarizer = client
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute, time.Minute, logger)

	handler := server.NewRouter(server.Deps{
		Config:    cfg,
		Repo:      repo,
		Generator: knowledge.NewGenerator(repo, summarizer, logger),
		Avatars:   avatars,
		Limiter:   limiter,
		Logger:    logger,
	})
	srv := server.New(cfg, handler)

	// A server failure cancels egCtx and stops the background loops.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		cleanSessions(egCtx, repo)
		return nil
	})
	eg.Go(func() error {
		limiter.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		return server.Run(egCtx, srv, logger)
	})
	return eg.Wait()
}

func cleanSessions(ctx context.Context, repo *db.Repository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.CleanExpiredSessions(ctx); err != nil {
				logger.Error("session cleanup error", zap.Error(err))
			}
		}
	}
}
