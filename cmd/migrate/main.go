package main

import (
	"context"
	"time"

	mongoMigration "examslots/internal/migrations/mongo"
	postgresMigration "examslots/internal/migrations/postgres"
	"examslots/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetStore()
	defer cfg.GracefulShutdown(ctx)

	cfg.Log.Info("Starting migration job", "store_backend", cfg.StoreBackend)
	if err := migrate(ctx, cfg); err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		cfg.GracefulShutdown(ctx)
		cfg.Log.Fatal("Migration job aborted")
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		return mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
	case config.StoreBackendPostgres:
		return postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	default:
		cfg.Log.Info("Store backend needs no schema migration", "store_backend", cfg.StoreBackend)
		return nil
	}
}
