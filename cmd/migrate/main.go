// Applies the embedded goose migrations against DATABASE_URL:
//
//	go run ./cmd/migrate
//
// The api binary does not migrate on boot, so run this before deploying a
// schema-dependent change.
package main

import (
	"context"
	"log"
	"os"

	"manuscript-backend/internal/shared/config"
	"manuscript-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
}
