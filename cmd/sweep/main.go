// One-shot expiry sweep for cron-style schedulers that prefer a binary
// over the HTTP entry point.
package main

import (
	"context"
	"log"

	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/pkg/cache"
	"go-stock-ledger/pkg/database"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	// 2. Setup Database
	db := database.ConnectDB()

	var locker *cache.Locker
	if cfg.RedisAddr != "" {
		locker = cache.NewLocker(cache.NewClient(cfg.RedisAddr))
	}

	stockRepo := repository.NewStockRepo(db)
	cartRepo := repository.NewCartRepo(db)
	orderLines := repository.NewOrderLineSource(db)

	// No hub or producer: the one-shot sweep only needs the release path.
	reservationSvc := service.NewReservationService(stockRepo, cartRepo, orderLines,
		nil, nil, logger, cfg.ServiceName, cfg.CartHoldTTL, cfg.CheckoutHoldTTL)
	sweeper := service.NewExpirySweeper(reservationSvc, cartRepo, locker, logger,
		cfg.SweepInterval, cfg.SweepBatchSize)

	released, err := sweeper.Sweep(context.Background())
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
	logger.Info("sweep complete", zap.Int("released", released))
}
