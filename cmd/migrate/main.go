package main

import (
	"log"
	"log/slog"

	"linkinbio-service/internal/config"
	"linkinbio-service/internal/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatal("Nothing to migrate for the memory driver")
	}

	slog.Info("Starting database migration...", "driver", cfg.Database.Driver)

	// Connecting runs the auto-migration
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	slog.Info("Database migration completed successfully!")
}
