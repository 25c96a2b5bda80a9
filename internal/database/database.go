package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linkinbio-service/internal/config"
	"linkinbio-service/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// NewConnection opens the relational store selected by cfg.Driver, sizes its
// pool and migrates the schema.
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		AllowGlobalUpdate:                        false,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	}

	// Add retry logic for initial connection
	var db *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		slog.Warn("Failed to connect to database", "driver", cfg.Driver, "attempt", i+1, "error", err)
		time.Sleep(connectDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	slog.Info("Database connection established", "driver", cfg.Driver)
	return db, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the posts table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Post{}); err != nil {
		// If tables exist, we can continue as the schema is already set up
		if strings.Contains(err.Error(), "already exists") {
			slog.Info("Tables already exist, continuing with existing schema")
			return nil
		}
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
