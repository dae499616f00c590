package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthwars/internal/config"
	"wealthwars/internal/db"
	"wealthwars/internal/game"
	"wealthwars/internal/leaderboard"
	"wealthwars/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	catalog := game.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = game.LoadCatalogYAML(cfg.CatalogFile)
		if err != nil {
			logger.Error("catalog load failed", "err", err, "path", cfg.CatalogFile)
			os.Exit(1)
		}
	}

	var ranker game.Ranker
	if cfg.RedisURL != "" {
		rdb, err := leaderboard.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		ranker = leaderboard.NewRedis(rdb, "")
	} else {
		logger.Warn("REDIS_URL not set, leaderboard sync disabled")
	}

	svc := game.NewService(game.Deps{
		Engine: game.NewEngine(catalog, game.DefaultRules()),
		Store:  store.NewPostgres(pool, logger),
		Ranker: ranker,
		Logger: logger,
	})

	if cfg.RunOnce {
		if err := tick(ctx, svc, logger); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.LeaderboardEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.LeaderboardEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := tick(ctx, svc, logger); err != nil {
				logger.Error("tick failed", "err", err)
			}
		}
	}
}

func tick(ctx context.Context, svc *game.Service, logger *slog.Logger) error {
	synced, err := svc.SyncLeaderboard(ctx)
	if err != nil {
		return err
	}
	swept, err := svc.SweepExpiredEffects(ctx)
	if err != nil {
		return err
	}
	degraded, err := svc.ProcessDegradation(ctx)
	if err != nil {
		return err
	}
	logger.Info("worker tick complete", "synced", synced, "swept", swept, "degraded", degraded)
	return nil
}
