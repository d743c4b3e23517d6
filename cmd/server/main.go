package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/0SilentFox0/fit-app/internal/config"
	"github.com/0SilentFox0/fit-app/internal/database"
	"github.com/0SilentFox0/fit-app/internal/handler"
	"github.com/0SilentFox0/fit-app/internal/logger"
	"github.com/0SilentFox0/fit-app/internal/middleware"
	"github.com/0SilentFox0/fit-app/internal/queue"
	"github.com/0SilentFox0/fit-app/internal/repository"
	"github.com/0SilentFox0/fit-app/internal/router"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
	"github.com/0SilentFox0/fit-app/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zlog.Fatal("database open", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		zlog.Warn("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	slots := repository.NewSlotRepo(db)
	requests := repository.NewRequestRepo(db)
	bookings := repository.NewBookingRepo(db)
	progress := repository.NewProgressRepo(db)

	notifier := service.NewQueueNotifier(queue.BrokerURL())
	co := scheduling.NewCoordinator(slots, requests, bookings, notifier,
		time.Duration(cfg.HoldTTLSec)*time.Second, zlog)

	// Background workers: notification consumer and the stale-hold sweep.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			zlog.Error("notification consumer stopped", zap.Error(err))
		}
	}()
	sweeper := scheduling.NewSweeper(co, time.Duration(cfg.SweepEverySec)*time.Second, zlog)
	go sweeper.Run(context.Background())

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	browseCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	trainerHandler := handler.NewTrainerHandler(co, requests, bookings, progress)
	clientHandler := handler.NewClientHandler(co, requests, bookings)
	progressHandler := handler.NewProgressHandler(progress)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterTrainer(e, trainerHandler, cfg.JWTSecret)
	router.RegisterClient(e, clientHandler, progressHandler, cfg.JWTSecret, browseCache)

	addr := ":" + cfg.Port
	zlog.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
