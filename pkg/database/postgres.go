package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"go-stock-ledger/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statements for pooled transaction mode
	}), &gorm.Config{
		Logger:      newLogger,
		PrepareStmt: false,
	})

	if err != nil {
		log.Fatal("Failed to connect to database. \n", err)
	}

	// Connection Pooling Setup
	sqlDB, _ := db.DB()
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db
}

// Migrate runs the schema migration plus the constraints GORM tags cannot
// express: the partial unique indexes that make one ledger row per
// (location, product) or (location, variant) a database guarantee.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.Location{},
		&model.StockRecord{},
		&model.StockAdjustment{},
		&model.StockTransfer{},
		&model.CartLine{},
		&model.OrderLineItem{},
		&model.Actor{},
	); err != nil {
		return err
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_stock_location_product
			ON stock_records (location_id, product_id)
			WHERE variant_id IS NULL AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_stock_location_variant
			ON stock_records (location_id, variant_id)
			WHERE variant_id IS NOT NULL AND deleted_at IS NULL`,
		// Exactly one of product_id / variant_id per row.
		`ALTER TABLE stock_records DROP CONSTRAINT IF EXISTS chk_stock_key_exclusive`,
		`ALTER TABLE stock_records ADD CONSTRAINT chk_stock_key_exclusive
			CHECK ((product_id IS NULL) <> (variant_id IS NULL))`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
