package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -cmd down  # revert the latest migration
//   go run ./cmd/migrate -cmd version

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/storage/db"
)

func main() {
	command := flag.String("cmd", "up", "migration command: up, down or version")
	flag.Parse()

	cfg := config.Load()
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
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

	switch *command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "version":
		var version int64
		version, err = db.MigrationVersion(ctx, sqlDB)
		if err == nil {
			log.Printf("schema version %d", version)
		}
	default:
		log.Printf("unknown command %q", *command)
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s failed: %v", *command, err)
		os.Exit(1)
	}
}
