package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -dir status

import (
	"context"
	"flag"
	"log"
	"os"

	"autofill-backend/internal/shared/config"
	"autofill-backend/internal/shared/storage/db"
)

func main() {
	dir := flag.String("dir", "up", "migration direction: up or status")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch *dir {
	case "status":
		err = db.MigrationStatus(ctx, sqlDB, cfg.DatabaseURL)
	default:
		err = db.RunMigrations(ctx, sqlDB, cfg.DatabaseURL)
	}
	if err != nil {
		log.Printf("migrate %s: %v", *dir, err)
		os.Exit(1)
	}
}
