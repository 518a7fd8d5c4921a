package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/handler"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/cache"
	"go-stock-ledger/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	// 2. Setup Database
	db := database.ConnectDB()
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	seedAdminActor(db, logger)

	// 3. WebSocket hub for dashboard stock updates
	hub := ws.NewHub(logger)
	go hub.Run()

	// 4. Optional event producer and sweep locker
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, events.TopicStockMovements, 256, logger)
		producer.Start(context.Background())
	}
	var locker *cache.Locker
	if cfg.RedisAddr != "" {
		locker = cache.NewLocker(cache.NewClient(cfg.RedisAddr))
	}

	// 5. Dependency Injection (Wiring Layers)
	stockRepo := repository.NewStockRepo(db)
	adjustmentRepo := repository.NewAdjustmentRepo(db)
	transferRepo := repository.NewTransferRepo(db)
	cartRepo := repository.NewCartRepo(db)
	catalogRepo := repository.NewCatalogRepo(db)
	actorRepo := repository.NewActorRepo(db)
	orderLines := repository.NewOrderLineSource(db)

	stockValidator := service.NewStockValidator(stockRepo)
	reservationSvc := service.NewReservationService(stockRepo, cartRepo, orderLines,
		hub, producer, logger, cfg.ServiceName, cfg.CartHoldTTL, cfg.CheckoutHoldTTL)
	transferSvc := service.NewTransferService(transferRepo, stockRepo, hub, producer, logger, cfg.ServiceName)
	stockSvc := service.NewStockService(stockRepo, adjustmentRepo, catalogRepo, hub, producer, logger, cfg.ServiceName)
	authSvc := service.NewAuthService(actorRepo)
	actorResolver := service.NewActorResolver(actorRepo, cfg.FallbackActor)
	sweeper := service.NewExpirySweeper(reservationSvc, cartRepo, locker, logger,
		cfg.SweepInterval, cfg.SweepBatchSize)

	stockHandler := handler.NewStockHandler(stockSvc, stockValidator)
	reservationHandler := handler.NewReservationHandler(reservationSvc, sweeper)
	transferHandler := handler.NewTransferHandler(transferSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	// 6. Background sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Stock Ledger v1.0",
	})

	app.Use(fiberlogger.New()) // Request logging
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(actorResolver))

	// Availability + ledger reads
	protected.Post("/stock/validate", stockHandler.ValidateAvailability)
	protected.Get("/stock", stockHandler.ListStock)
	protected.Get("/stock/stats", stockHandler.GetStats)
	protected.Get("/stock/:id", stockHandler.GetStock)
	protected.Get("/stock/:id/history", stockHandler.GetHistory)
	protected.Get("/adjustments", stockHandler.GetHistoryByReference)

	// Admin mutations
	protected.Post("/stock", stockHandler.CreateStockRecord)
	protected.Post("/stock/:id/adjust", stockHandler.Adjust)

	// Order reservations
	protected.Post("/orders/:id/reserve", reservationHandler.Reserve)
	protected.Post("/orders/:id/release", reservationHandler.Release)
	protected.Post("/orders/:id/fulfill", reservationHandler.Fulfill)
	protected.Post("/orders/:id/return", reservationHandler.Return)

	// Cart soft holds
	protected.Post("/carts/:id/reserve", reservationHandler.ReserveCart)
	protected.Post("/carts/:id/release", reservationHandler.ReleaseCart)
	protected.Post("/carts/:id/extend", reservationHandler.ExtendCart)

	// Scheduler entry point
	protected.Post("/sweep", reservationHandler.SweepNow)

	// Transfers
	protected.Post("/transfers", transferHandler.Create)
	protected.Get("/transfers", transferHandler.List)
	protected.Get("/transfers/:id", transferHandler.Get)
	protected.Post("/transfers/:id/execute", transferHandler.Execute)
	protected.Post("/transfers/:id/cancel", transferHandler.Cancel)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.Register <- c
		defer func() { hub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweep()
	if err := app.Shutdown(); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}
	logger.Info("server exited")
}

// seedAdminActor creates the default admin actor if no actors exist yet.
func seedAdminActor(db *gorm.DB, logger *zap.Logger) {
	var count int64
	if err := db.Model(&model.Actor{}).Count(&count).Error; err != nil {
		logger.Warn("actor count failed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	admin := &model.Actor{
		Email:    "admin@example.com",
		FullName: "Stock Administrator",
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword("admin123"); err != nil {
		logger.Warn("failed to hash admin password", zap.Error(err))
		return
	}
	if err := db.Create(admin).Error; err != nil {
		logger.Warn("failed to create admin actor", zap.Error(err))
		return
	}
	logger.Info("admin actor created", zap.String("email", admin.Email))
}
