package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthwars/internal/api"
	"wealthwars/internal/config"
	"wealthwars/internal/db"
	"wealthwars/internal/game"
	"wealthwars/internal/leaderboard"
	"wealthwars/internal/realtime"
	"wealthwars/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalog := game.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = game.LoadCatalogYAML(cfg.CatalogFile)
		if err != nil {
			logger.Error("catalog load failed", "err", err, "path", cfg.CatalogFile)
			os.Exit(1)
		}
	}
	engine := game.NewEngine(catalog, cfg.Rules())

	var st game.Store = store.NewMemory()
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
		st = pg
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	var ranker game.Ranker = leaderboard.NewMemory()
	if cfg.RedisURL != "" {
		rdb, err := leaderboard.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		ranker = leaderboard.NewRedis(rdb, "")
	}

	var roller game.Roller
	if cfg.RNGSeed != 0 {
		roller = rand.New(rand.NewSource(cfg.RNGSeed))
		logger.Warn("takeover rolls are seeded", "seed", cfg.RNGSeed)
	}

	hub := realtime.NewHub(logger)
	gameSvc := game.NewService(game.Deps{
		Engine:    engine,
		Store:     st,
		Ranker:    ranker,
		Publisher: hub,
		Rand:      roller,
		Logger:    logger,
	})
	if _, err := gameSvc.SyncLeaderboard(ctx); err != nil {
		logger.Warn("initial leaderboard sync failed", "err", err)
	}

	server := api.New(logger, gameSvc, http.HandlerFunc(hub.ServeWS))
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("wealth wars api listening", "addr", cfg.Addr, "businesses", catalog.Len())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
