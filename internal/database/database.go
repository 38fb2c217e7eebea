package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDisabled is returned when the submission store is switched off in config
var ErrDisabled = errors.New("database disabled")

// NewDatabase opens the submission store.
// It returns ErrDisabled when database.enabled is false.
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Ping checks that the connection pool can reach the server
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates the submission table (for development only; production uses goose migrations)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.FormSubmission{})
}
